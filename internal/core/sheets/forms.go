package sheets

import (
	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/metadata"
)

func init() {
	registerForms()
	registerDashboards()
	registerLayoutSheets(core.GroupForms, "Forms", 110, true, formsOf, [3]metadata.Kind{
		metadata.KindFormTab, metadata.KindFormSection, metadata.KindFormField,
	})
	registerLayoutSheets(core.GroupDashboards, "Dashboards", 160, false, dashboardsOf, [3]metadata.Kind{
		metadata.KindDashboardTab, metadata.KindDashboardSection, metadata.KindDashboardField,
	})
}

func formsOf(tree *metadata.Tree) []*metadata.Form {
	var out []*metadata.Form
	for _, t := range tree.Tables {
		out = append(out, t.Forms...)
	}
	return out
}

func dashboardsOf(tree *metadata.Tree) []*metadata.Form {
	return tree.Dashboards
}

func registerForms() {
	const colID = colFormID
	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:        "forms",
			Group:      core.GroupForms,
			Name:       "Forms",
			Order:      100,
			Columns:    []string{colFormUniqueID, colFormID, colEntity, colFormType, core.TypeColumn},
			Keys:       []string{colFormID},
			Qualifiers: nameQualifiers,
		},
		Project: func(tree *metadata.Tree) []core.Entry {
			var out []core.Entry
			for _, f := range formsOf(tree) {
				out = append(out, entry(&f.Labels, metadata.WrapID(f.UniqueID), metadata.WrapID(f.ID), f.Entity, f.FormType))
			}
			return out
		},
		Target: recordTarget(metadata.KindForm, colID),
	})
}

func registerDashboards() {
	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:        "dashboards",
			Group:      core.GroupDashboards,
			Name:       "Dashboards",
			Order:      150,
			Columns:    []string{colFormUniqueID, colFormID, core.TypeColumn},
			Keys:       []string{colFormID},
			Qualifiers: nameQualifiers,
		},
		Project: func(tree *metadata.Tree) []core.Entry {
			var out []core.Entry
			for _, f := range tree.Dashboards {
				out = append(out, entry(&f.Labels, metadata.WrapID(f.UniqueID), metadata.WrapID(f.ID)))
			}
			return out
		},
		Target: recordTarget(metadata.KindDashboard, colFormID),
	})
}

// registerLayoutSheets adds the Tabs, Sections and Fields sheets of forms
// or dashboards. Their captions live in the layout document, so rows carry
// the owning form id and every row is a Label.
func registerLayoutSheets(group, prefix string, order int, withEntity bool, source func(*metadata.Tree) []*metadata.Form, kinds [3]metadata.Kind) {
	withEntityCol := func(cols ...string) []string {
		out := []string{cols[0]}
		if withEntity {
			out = append(out, colEntity)
		}
		return append(out, cols[1:]...)
	}

	layouts := []struct {
		key, name, idCol, nameCol string
		kind                      metadata.Kind
		columns                   []string
		identity                  func(*metadata.LayoutFragment) []any
	}{
		{
			key: "tabs", name: "Tabs", idCol: "Tab Id", nameCol: colTabName, kind: kinds[0],
			columns: withEntityCol("Tab Id", colFormName, colFormID, colTabName),
			identity: func(l *metadata.LayoutFragment) []any {
				return []any{l.FormName, metadata.WrapID(l.FormID), l.TabName}
			},
		},
		{
			key: "sections", name: "Sections", idCol: "Section Id", nameCol: colSectionName, kind: kinds[1],
			columns: withEntityCol("Section Id", colFormName, colFormID, colTabName, colSectionName),
			identity: func(l *metadata.LayoutFragment) []any {
				return []any{l.FormName, metadata.WrapID(l.FormID), l.TabName, l.SectionName}
			},
		},
		{
			key: "fields", name: "Fields", idCol: "Field Id", kind: kinds[2],
			columns: withEntityCol("Field Id", colFormName, colFormID, colTabName, colSectionName, colAttribute),
			identity: func(l *metadata.LayoutFragment) []any {
				return []any{l.FormName, metadata.WrapID(l.FormID), l.TabName, l.SectionName, l.Attribute}
			},
		},
	}

	for i, l := range layouts {
		core.Register(core.SheetDefinition{
			Info: core.SheetInfo{
				Key:            group + "_" + l.key,
				Group:          group,
				Name:           prefix + " " + l.name,
				Order:          order + i*10,
				Columns:        l.columns,
				Keys:           []string{colFormID},
				FixedQualifier: metadata.Label,
			},
			Project: func(tree *metadata.Tree) []core.Entry {
				var out []core.Entry
				for _, f := range source(tree) {
					for _, frag := range *f.Fragments(l.kind) {
						cells := []any{metadata.WrapID(frag.ID)}
						if withEntity {
							cells = append(cells, frag.Entity)
						}
						out = append(out, entry(&frag.Labels, append(cells, l.identity(frag)...)...))
					}
				}
				return out
			},
			Target: func(row core.RowView) (core.Target, error) {
				doc, err := row.RequireID(colFormID)
				if err != nil {
					return core.Target{}, err
				}
				id, name, err := idOrName(row, l.idCol, l.nameCol)
				if err != nil {
					return core.Target{}, err
				}
				return core.Target{Kind: l.kind, Document: doc, ID: id, Name: name}, nil
			},
		})
	}
}
