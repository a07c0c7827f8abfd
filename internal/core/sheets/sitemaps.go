package sheets

import (
	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/metadata"
)

func init() {
	registerSiteMap("sitemap_areas", "SiteMap Areas", 200, metadata.KindSiteMapArea,
		[]string{colAreaID},
		func(e *metadata.SiteMapElement) []any { return []any{e.ID} })
	registerSiteMap("sitemap_groups", "SiteMap Groups", 210, metadata.KindSiteMapGroup,
		[]string{colAreaID, colGroupID},
		func(e *metadata.SiteMapElement) []any { return []any{e.AreaID, e.ID} })
	registerSiteMap("sitemap_subareas", "SiteMap SubAreas", 220, metadata.KindSiteMapSubArea,
		[]string{colAreaID, colGroupID, colSubAreaID},
		func(e *metadata.SiteMapElement) []any { return []any{e.AreaID, e.GroupID, e.ID} })
}

// registerSiteMap adds one site map sheet. The last id column is the
// element's own id; the others place it in the tree for the reader.
func registerSiteMap(key, name string, order int, kind metadata.Kind, ids []string, identity func(*metadata.SiteMapElement) []any) {
	columns := append([]string{colSiteMapName, colSiteMapID}, ids...)
	columns = append(columns, core.TypeColumn)
	idCol := ids[len(ids)-1]

	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:        key,
			Group:      core.GroupSiteMaps,
			Name:       name,
			Order:      order,
			Columns:    columns,
			Keys:       []string{colSiteMapID, idCol},
			Qualifiers: siteQualifiers,
		},
		Project: func(tree *metadata.Tree) []core.Entry {
			var out []core.Entry
			for _, sm := range tree.SiteMaps {
				for _, e := range *sm.Elements(kind) {
					cells := append([]any{sm.Name, metadata.WrapID(sm.ID)}, identity(e)...)
					out = append(out, entry(&e.Labels, cells...))
				}
			}
			return out
		},
		Target: func(row core.RowView) (core.Target, error) {
			doc, err := row.RequireID(colSiteMapID)
			if err != nil {
				return core.Target{}, err
			}
			id, err := row.RequireID(idCol)
			if err != nil {
				return core.Target{}, err
			}
			return core.Target{Kind: kind, Document: doc, ID: id}, nil
		},
	})
}
