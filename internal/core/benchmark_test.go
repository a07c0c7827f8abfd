package core_test

import (
	"fmt"
	"testing"

	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/metadata"
	"github.com/JonMunkholm/labelbook/internal/workbook"
)

// ============================================================================
// Test Data Generators
// ============================================================================

var benchLanguages = []int{1033, 1036, 1031, 1043}

// generateTree builds a tree of entities, each with fields carrying a few
// options, translated into benchLanguages.
func generateTree(entities, fields, options int) *metadata.Tree {
	tree := &metadata.Tree{BaseLanguage: 1033, Languages: benchLanguages}
	for e := 0; e < entities; e++ {
		name := fmt.Sprintf("entity%03d", e)
		t := &metadata.Table{ID: fmt.Sprintf("00000000-0000-0000-0000-%012d", e), LogicalName: name}
		for _, l := range benchLanguages {
			t.Labels.Set(metadata.DisplayName, l, fmt.Sprintf("Entity %d (%d)", e, l))
			t.Labels.Set(metadata.Description, l, fmt.Sprintf("Description of entity %d (%d)", e, l))
		}
		for f := 0; f < fields; f++ {
			field := &metadata.Field{
				ID:            fmt.Sprintf("00000000-0000-0000-%04d-%012d", e, f),
				Entity:        name,
				LogicalName:   fmt.Sprintf("field%03d", f),
				AttributeType: "Picklist",
			}
			for _, l := range benchLanguages {
				field.Labels.Set(metadata.DisplayName, l, fmt.Sprintf("Field %d (%d)", f, l))
			}
			for o := 0; o < options; o++ {
				opt := &metadata.OptionEntry{Value: 100000000 + o}
				for _, l := range benchLanguages {
					opt.Labels.Set(metadata.Label, l, fmt.Sprintf("Option %d (%d)", o, l))
				}
				field.Options = append(field.Options, opt)
			}
			t.Fields = append(t.Fields, field)
		}
		tree.Tables = append(tree.Tables, t)
	}
	return tree
}

func benchDefinitions(b *testing.B) []core.SheetDefinition {
	defs, err := core.Select([]string{"entities", "attributes", "local_optionsets"})
	if err != nil {
		b.Fatal(err)
	}
	return defs
}

// ============================================================================
// Projection Benchmarks
// ============================================================================

// BenchmarkProject measures laying a tree out as sheets, including the
// workbook serialization an export performs.
func BenchmarkProject(b *testing.B) {
	sizes := []struct {
		name                      string
		entities, fields, options int
	}{
		{"small", 10, 10, 3},
		{"medium", 50, 40, 5},
	}

	for _, size := range sizes {
		tree := generateTree(size.entities, size.fields, size.options)
		defs := benchDefinitions(b)

		b.Run(size.name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				wb, _, err := core.Project(tree, defs, core.ProjectOptions{Languages: benchLanguages, Filter: core.FilterBoth})
				if err != nil {
					b.Fatal(err)
				}
				if _, err := wb.Bytes(); err != nil {
					b.Fatal(err)
				}
				wb.Close()
			}
		})
	}
}

// ============================================================================
// Parse Benchmarks
// ============================================================================

// BenchmarkParse measures reading an exported workbook back into units.
func BenchmarkParse(b *testing.B) {
	tree := generateTree(50, 40, 5)
	wb, _, err := core.Project(tree, benchDefinitions(b), core.ProjectOptions{Languages: benchLanguages, Filter: core.FilterBoth})
	if err != nil {
		b.Fatal(err)
	}
	data, err := wb.Bytes()
	wb.Close()
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(data)))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wb, err := workbook.OpenBytes(data)
		if err != nil {
			b.Fatal(err)
		}
		if _, _, err := core.NewParser(nil).Parse(wb); err != nil {
			b.Fatal(err)
		}
		wb.Close()
	}
}

// BenchmarkDetectLanguageColumns measures header scanning.
func BenchmarkDetectLanguageColumns(b *testing.B) {
	header := []string{"Attribute Id", "Entity Logical Name", "Attribute Logical Name", "Attribute Type", "Value", "Type", "1033", "1036", "1031", "1043"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		core.DetectLanguageColumns(header, 5)
	}
}
