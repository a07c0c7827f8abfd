package sheets

import (
	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/metadata"
)

// Option values such as 100000000 exceed any language code, so language
// detection on these sheets starts at the Type column.

func init() {
	registerGlobalOptionSets()
	registerLocalOptionSets()
	registerBooleans()
}

func registerGlobalOptionSets() {
	// The option set's name sits in the Attribute Logical Name column, as on
	// the other option sheets minus the entity.
	const colID = "OptionSet Id"
	columns := []string{colID, colAttribute, colAttributeType, colValue, core.TypeColumn}
	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:        "global_optionsets",
			Group:      core.GroupOptionSets,
			Name:       "Global OptionSets",
			Order:      50,
			Columns:    columns,
			Keys:       []string{colAttribute, colValue},
			Qualifiers: optionQualifiers,
			ScanFrom:   len(columns) - 1,
		},
		Project: func(tree *metadata.Tree) []core.Entry {
			var out []core.Entry
			for _, s := range tree.GlobalOptionSets {
				for _, o := range s.Options {
					out = append(out, entry(&o.Labels, metadata.WrapID(s.ID), s.Name, s.Type, o.Value))
				}
			}
			return out
		},
		Target: func(row core.RowView) (core.Target, error) {
			name, err := row.Require(colAttribute)
			if err != nil {
				return core.Target{}, err
			}
			value, err := row.RequireInt(colValue)
			if err != nil {
				return core.Target{}, err
			}
			return core.Target{Kind: metadata.KindGlobalOption, Name: name, Value: value}, nil
		},
	})
}

var fieldOptionColumns = []string{colAttributeID, colEntity, colAttribute, colAttributeType, colValue, core.TypeColumn}

func registerLocalOptionSets() {
	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:        "local_optionsets",
			Group:      core.GroupOptionSets,
			Name:       "Local OptionSets",
			Aliases:    []string{"OptionSets"},
			Order:      60,
			Columns:    fieldOptionColumns,
			Keys:       []string{colEntity, colAttribute, colValue},
			Qualifiers: optionQualifiers,
			ScanFrom:   len(fieldOptionColumns) - 1,
		},
		Project: fieldOptions(func(f *metadata.Field) bool { return !f.IsBoolean() && !f.IsGlobal() }),
		Target:  fieldOptionTarget(metadata.KindOption),
	})
}

func registerBooleans() {
	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:        "booleans",
			Group:      core.GroupOptionSets,
			Name:       "Booleans",
			Order:      70,
			Columns:    fieldOptionColumns,
			Keys:       []string{colEntity, colAttribute, colValue},
			Qualifiers: optionQualifiers,
			ScanFrom:   len(fieldOptionColumns) - 1,
		},
		Project: fieldOptions((*metadata.Field).IsBoolean),
		Target:  fieldOptionTarget(metadata.KindBoolean),
	})
}

func fieldOptions(keep func(*metadata.Field) bool) core.ProjectFunc {
	return func(tree *metadata.Tree) []core.Entry {
		var out []core.Entry
		for _, t := range tree.Tables {
			for _, f := range t.Fields {
				if len(f.Options) == 0 || !keep(f) {
					continue
				}
				for _, o := range f.Options {
					out = append(out, entry(&o.Labels, metadata.WrapID(f.ID), t.LogicalName, f.LogicalName, f.AttributeType, o.Value))
				}
			}
		}
		return out
	}
}

func fieldOptionTarget(kind metadata.Kind) core.TargetFunc {
	return func(row core.RowView) (core.Target, error) {
		entity, err := row.Require(colEntity)
		if err != nil {
			return core.Target{}, err
		}
		attr, err := row.Require(colAttribute)
		if err != nil {
			return core.Target{}, err
		}
		value, err := row.RequireInt(colValue)
		if err != nil {
			return core.Target{}, err
		}
		return core.Target{Kind: kind, Entity: entity, Name: attr, Value: value}, nil
	}
}
