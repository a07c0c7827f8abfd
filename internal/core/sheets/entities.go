package sheets

import (
	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/metadata"
)

func init() {
	registerEntities()
	registerAttributes()
	registerRelationships()
	registerManyToMany()
	registerViews()
	registerCharts()
}

func registerEntities() {
	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:        "entities",
			Group:      core.GroupEntities,
			Name:       "Entities",
			Order:      10,
			Columns:    []string{colEntityID, colEntity, core.TypeColumn},
			Keys:       []string{colEntity},
			Qualifiers: []string{metadata.DisplayName, metadata.DisplayCollectionName, metadata.Description},
		},
		Project: func(tree *metadata.Tree) []core.Entry {
			var out []core.Entry
			for _, t := range tree.Tables {
				out = append(out, entry(&t.Labels, metadata.WrapID(t.ID), t.LogicalName))
			}
			return out
		},
		Target: func(row core.RowView) (core.Target, error) {
			entity, err := row.Require(colEntity)
			if err != nil {
				return core.Target{}, err
			}
			return core.Target{Kind: metadata.KindEntity, Entity: entity}, nil
		},
	})
}

func registerAttributes() {
	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:        "attributes",
			Group:      core.GroupEntities,
			Name:       "Attributes",
			Order:      20,
			Columns:    []string{colAttributeID, colEntity, colAttribute, core.TypeColumn},
			Keys:       []string{colEntity, colAttribute},
			Qualifiers: nameQualifiers,
		},
		Project: func(tree *metadata.Tree) []core.Entry {
			var out []core.Entry
			for _, t := range tree.Tables {
				for _, f := range t.Fields {
					out = append(out, entry(&f.Labels, metadata.WrapID(f.ID), t.LogicalName, f.LogicalName))
				}
			}
			return out
		},
		Target: func(row core.RowView) (core.Target, error) {
			entity, err := row.Require(colEntity)
			if err != nil {
				return core.Target{}, err
			}
			attr, err := row.Require(colAttribute)
			if err != nil {
				return core.Target{}, err
			}
			return core.Target{Kind: metadata.KindAttribute, Entity: entity, Name: attr}, nil
		},
	})
}

func registerRelationships() {
	const (
		colEntityShort = "Entity"
		colID          = "Relationship Id"
		colName        = "Relationship Name"
		colRelated     = "Relationship entity"
	)
	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:            "relationships",
			Group:          core.GroupEntities,
			Name:           "Relationships",
			Order:          30,
			Columns:        []string{colEntityShort, colID, colName, colRelated},
			Keys:           []string{colEntityShort, colID},
			FixedQualifier: metadata.Label,
		},
		Project: func(tree *metadata.Tree) []core.Entry {
			var out []core.Entry
			for _, t := range tree.Tables {
				for _, r := range t.Relationships {
					if r.Kind == metadata.ManyToMany {
						continue
					}
					out = append(out, entry(&r.Labels, r.Entity, metadata.WrapID(r.ID), r.SchemaName, r.RelatedEntity))
				}
			}
			return out
		},
		Target: func(row core.RowView) (core.Target, error) {
			return relationshipTarget(row, metadata.KindRelationship, colEntityShort, colID)
		},
	})
}

func registerManyToMany() {
	const (
		colEntityShort = "Entity"
		colID          = "Relationship Id"
		colIntersect   = "Relationship Intersect Entity"
	)
	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:            "relationships_nn",
			Group:          core.GroupEntities,
			Name:           "RelationshipsNN",
			Order:          40,
			Columns:        []string{colEntityShort, colID, colIntersect},
			Keys:           []string{colEntityShort, colID},
			FixedQualifier: metadata.Label,
		},
		Project: func(tree *metadata.Tree) []core.Entry {
			var out []core.Entry
			for _, t := range tree.Tables {
				for _, r := range t.Relationships {
					if r.Kind != metadata.ManyToMany {
						continue
					}
					out = append(out, entry(&r.Labels, r.Entity, metadata.WrapID(r.ID), r.IntersectEntity))
				}
			}
			return out
		},
		Target: func(row core.RowView) (core.Target, error) {
			return relationshipTarget(row, metadata.KindManyToMany, colEntityShort, colID)
		},
	})
}

// A many-to-many relationship appears once per side, so relationships are
// keyed by the entity they are seen from as well as their id.
func relationshipTarget(row core.RowView, kind metadata.Kind, entityCol, idCol string) (core.Target, error) {
	entity, err := row.Require(entityCol)
	if err != nil {
		return core.Target{}, err
	}
	id, err := row.RequireID(idCol)
	if err != nil {
		return core.Target{}, err
	}
	return core.Target{Kind: kind, Entity: entity, ID: id}, nil
}

func registerViews() {
	const (
		colID   = "View Id"
		colType = "View Type"
	)
	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:        "views",
			Group:      core.GroupEntities,
			Name:       "Views",
			Order:      80,
			Columns:    []string{colID, colEntity, colType, core.TypeColumn},
			Keys:       []string{colID},
			Qualifiers: nameQualifiers,
		},
		Project: func(tree *metadata.Tree) []core.Entry {
			var out []core.Entry
			for _, t := range tree.Tables {
				for _, v := range t.Views {
					out = append(out, entry(&v.Labels, metadata.WrapID(v.ID), t.LogicalName, metadata.ViewTypeName(v.QueryType)))
				}
			}
			return out
		},
		Target: recordTarget(metadata.KindView, colID),
	})
}

func registerCharts() {
	const colID = "Chart Id"
	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:        "charts",
			Group:      core.GroupEntities,
			Name:       "Charts",
			Order:      90,
			Columns:    []string{colID, colEntity, core.TypeColumn},
			Keys:       []string{colID},
			Qualifiers: nameQualifiers,
		},
		Project: func(tree *metadata.Tree) []core.Entry {
			var out []core.Entry
			for _, t := range tree.Tables {
				for _, c := range t.Charts {
					out = append(out, entry(&c.Labels, metadata.WrapID(c.ID), t.LogicalName))
				}
			}
			return out
		},
		Target: recordTarget(metadata.KindChart, colID),
	})
}

// recordTarget keys views, charts, forms and dashboards by record id alone.
func recordTarget(kind metadata.Kind, idCol string) core.TargetFunc {
	return func(row core.RowView) (core.Target, error) {
		id, err := row.RequireID(idCol)
		if err != nil {
			return core.Target{}, err
		}
		return core.Target{Kind: kind, ID: id}, nil
	}
}
