package core

import (
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/labelbook/internal/locale"
	"github.com/JonMunkholm/labelbook/internal/metadata"
	"github.com/JonMunkholm/labelbook/internal/workbook"
)

// ProjectOptions controls how a tree is laid out as sheets.
type ProjectOptions struct {
	Languages []int // column order of the language block
	Filter    LabelFilter
	Logger    *slog.Logger
}

// Project writes one sheet per definition. Every entry becomes one row per
// qualifier allowed by the filter, with the identity cells, the qualifier
// (typed sheets only) and one cell per language; a missing translation is
// an empty cell. Sheets whose qualifiers are all filtered out are skipped.
func Project(tree *metadata.Tree, defs []SheetDefinition, opts ProjectOptions) (*workbook.Workbook, []SheetSummary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	langs := opts.Languages
	if len(langs) == 0 {
		langs = metadata.SweepOrder(tree.BaseLanguage, tree.Languages)
	}

	wb, err := workbook.New()
	if err != nil {
		return nil, nil, err
	}

	var summaries []SheetSummary
	for _, def := range defs {
		qualifiers := allowedQualifiers(def.Info, opts.Filter)
		if len(qualifiers) == 0 {
			logger.Debug("sheet skipped by label filter", "sheet", def.Info.Name, "filter", opts.Filter)
			continue
		}

		header := make([]any, 0, len(def.Info.Columns)+len(langs))
		for _, c := range def.Info.Columns {
			header = append(header, c)
		}
		notes := make(map[int]string, len(langs))
		for i, l := range langs {
			notes[len(header)+i] = locale.Name(l)
			header = append(header, l)
		}
		if err := wb.AddSheet(def.Info.Name, header, notes); err != nil {
			wb.Close()
			return nil, nil, err
		}

		rows := 0
		for _, entry := range def.Project(tree) {
			for _, q := range qualifiers {
				row := make([]any, 0, len(header))
				row = append(row, entry.Identity...)
				if def.Info.Typed() {
					row = append(row, q)
				}
				for _, l := range langs {
					text, _ := entry.Labels.Get(q, l)
					row = append(row, text)
				}
				if err := wb.Append(def.Info.Name, row); err != nil {
					wb.Close()
					return nil, nil, fmt.Errorf("project %s: %w", def.Info.Key, err)
				}
				rows++
			}
		}
		summaries = append(summaries, SheetSummary{Name: def.Info.Name, Rows: rows})
		logger.Debug("sheet projected", "sheet", def.Info.Name, "rows", rows)
	}

	return wb, summaries, nil
}

func allowedQualifiers(info SheetInfo, filter LabelFilter) []string {
	var out []string
	for _, q := range info.Qualifiers {
		if filter.Allows(q) {
			out = append(out, q)
		}
	}
	return out
}
