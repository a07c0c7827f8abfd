package core

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/labelbook/internal/failure"
	"github.com/JonMunkholm/labelbook/internal/metadata"
	"github.com/JonMunkholm/labelbook/internal/workbook"
)

// MinLanguageCode separates language codes from small business integers
// (option values, query types) that can sit in front of the language block.
const MinLanguageCode = 1000

// DetectLanguageColumns finds the language block of a header row. The block
// starts at the first integer above MinLanguageCode at or after from, and
// continues through consecutive positive integers. ok is false when the row
// has no language column.
func DetectLanguageColumns(header []string, from int) (start int, languages []int, ok bool) {
	if from < 0 {
		from = 0
	}
	start = -1
	for i := from; i < len(header); i++ {
		if n, isNum := ParseCode(header[i]); isNum && n > MinLanguageCode {
			start = i
			break
		}
	}
	if start < 0 {
		return -1, nil, false
	}
	for i := start; i < len(header); i++ {
		n, isNum := ParseCode(header[i])
		if !isNum || n <= 0 {
			break
		}
		languages = append(languages, n)
	}
	return start, languages, true
}

// ParseReport summarizes a workbook parse.
type ParseReport struct {
	Sheets      []string // recognized sheets, workbook order
	Rows        int
	Dropped     int
	Skipped     int
	Diagnostics []Diagnostic
	Errors      *failure.Tally
}

func (r *ParseReport) skip(logger *slog.Logger, d Diagnostic) {
	r.Skipped++
	r.Diagnostics = append(r.Diagnostics, d)
	r.Errors.Add(failure.New(d.Category, "parse row", d.Target, errors.New(d.Message)))
	logger.Warn("row skipped",
		"sheet", d.Sheet,
		"line", d.Line,
		"category", d.Category,
		"reason", d.Message,
	)
}

// Parser turns an edited workbook back into update units.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a Parser. A nil logger uses slog.Default.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse reads every recognized sheet. Rows with equal targets merge into
// one unit, which belongs to the group of the sheet where it first
// appeared. Groups follow workbook sheet order; units follow row order.
// Unknown sheets are ignored; unreadable rows are skipped and reported.
func (p *Parser) Parse(wb *workbook.Workbook) ([]UnitGroup, *ParseReport, error) {
	report := &ParseReport{Errors: failure.NewTally()}
	units := make(map[Target]*UpdateUnit)
	var groups []UnitGroup

	for _, name := range wb.SheetNames() {
		def, ok := Lookup(name)
		if !ok {
			p.logger.Debug("sheet ignored", "sheet", name)
			continue
		}
		rows, err := wb.Rows(name)
		if err != nil {
			return nil, report, failure.Parse("read sheet", name, err)
		}
		report.Sheets = append(report.Sheets, name)

		group := p.parseSheet(def, name, rows, units, report)
		if len(group.Units) > 0 {
			groups = append(groups, group)
		}
	}

	p.logger.Info("workbook parsed",
		"sheets", len(report.Sheets),
		"rows", report.Rows,
		"units", CountUnits(groups),
		"dropped", report.Dropped,
		"skipped", report.Skipped,
	)
	return groups, report, nil
}

func (p *Parser) parseSheet(def SheetDefinition, name string, rows [][]string, units map[Target]*UpdateUnit, report *ParseReport) UnitGroup {
	group := UnitGroup{Sheet: name}
	if len(rows) == 0 {
		return group
	}

	start, langs, ok := DetectLanguageColumns(rows[0], def.Info.ScanFrom)
	if !ok {
		report.skip(p.logger, Diagnostic{
			Sheet:    name,
			Line:     1,
			Category: failure.ParseFailure,
			Message:  "no language columns in header",
		})
		return group
	}
	index := MakeHeaderIndex(rows[0][:start])
	if err := ValidateHeader(def.Info, index); err != nil {
		report.skip(p.logger, Diagnostic{
			Sheet:    name,
			Line:     1,
			Category: failure.ParseFailure,
			Message:  err.Error(),
		})
		return group
	}
	typed := def.Info.Typed()

	for i, cells := range rows[1:] {
		line := i + 2
		report.Rows++

		texts := make(map[int]string, len(langs))
		for j, lang := range langs {
			col := start + j
			if col >= len(cells) {
				break
			}
			// Text is kept verbatim; whitespace-only cells request no change.
			if text := cells[col]; strings.TrimSpace(text) != "" {
				texts[lang] = text
			}
		}
		if len(texts) == 0 {
			report.Dropped++
			continue
		}

		row := NewRowView(name, line, cells, index)
		target, err := def.Target(row)
		if err != nil {
			report.skip(p.logger, Diagnostic{Sheet: name, Line: line, Category: failure.ParseFailure, Message: err.Error()})
			continue
		}

		qualifier := def.Info.FixedQualifier
		if typed {
			q, err := canonicalQualifier(def.Info, row.Get(TypeColumn))
			if err != nil {
				report.skip(p.logger, Diagnostic{Sheet: name, Line: line, Target: target.String(), Category: failure.ParseFailure, Message: err.Error()})
				continue
			}
			qualifier = q
		}
		if qualifier == "" {
			report.skip(p.logger, Diagnostic{Sheet: name, Line: line, Target: target.String(), Category: failure.ParseFailure, Message: "missing Type"})
			continue
		}

		unit, seen := units[target]
		if !seen {
			unit = &UpdateUnit{Target: target, Labels: metadata.NewLabelSet(), Sheet: name}
			units[target] = unit
			group.Units = append(group.Units, unit)
		}
		unit.Lines = append(unit.Lines, line)
		for _, lang := range langs {
			if text, ok := texts[lang]; ok {
				unit.Labels.Set(qualifier, lang, text)
			}
		}
	}
	return group
}

func (h HeaderIndex) has(column string) bool {
	_, ok := h[strings.ToLower(column)]
	return ok
}

// canonicalQualifier matches a Type cell against the sheet's qualifiers,
// ignoring case and spaces.
func canonicalQualifier(info SheetInfo, cell string) (string, error) {
	if cell == "" {
		return "", fmt.Errorf("missing %s", TypeColumn)
	}
	want := strings.ReplaceAll(strings.ToLower(cell), " ", "")
	for _, q := range info.Qualifiers {
		if strings.ToLower(q) == want {
			return q, nil
		}
	}
	return "", fmt.Errorf("unknown %s %q", TypeColumn, cell)
}
