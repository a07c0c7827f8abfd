// Package workbook reads and writes the xlsx documents exchanged with
// translators.
package workbook

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// Workbook is an xlsx document with one header row per sheet.
type Workbook struct {
	f           *excelize.File
	headerStyle int
	fresh       bool // still holds only the default sheet
	next        map[string]int
}

// New creates an empty workbook.
func New() (*Workbook, error) {
	f := excelize.NewFile()
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	return &Workbook{f: f, headerStyle: style, fresh: true, next: make(map[string]int)}, nil
}

// Open reads a workbook.
func Open(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Workbook{f: f, next: make(map[string]int)}, nil
}

// OpenBytes reads a workbook from memory.
func OpenBytes(data []byte) (*Workbook, error) {
	return Open(bytes.NewReader(data))
}

// Close releases the workbook's resources.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// AddSheet creates a sheet with a styled, frozen header row. notes adds a
// comment to header cells by zero-based column index.
func (w *Workbook) AddSheet(name string, header []any, notes map[int]string) error {
	idx, err := w.f.NewSheet(name)
	if err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	if w.fresh {
		w.f.SetActiveSheet(idx)
		if name != defaultSheet {
			if err := w.f.DeleteSheet(defaultSheet); err != nil {
				return fmt.Errorf("remove default sheet: %w", err)
			}
		}
		w.fresh = false
	}

	if err := w.f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header of %s: %w", name, err)
	}
	w.next[name] = 2

	// Cosmetics only from here on.
	if err := w.f.SetRowStyle(name, 1, 1, w.headerStyle); err != nil {
		return fmt.Errorf("style header of %s: %w", name, err)
	}
	if err := w.f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header of %s: %w", name, err)
	}
	if len(header) > 0 {
		last, _ := excelize.ColumnNumberToName(len(header))
		if err := w.f.SetColWidth(name, "A", last, 28); err != nil {
			return fmt.Errorf("size columns of %s: %w", name, err)
		}
	}
	for col, text := range notes {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := w.f.AddComment(name, excelize.Comment{Cell: cell, Author: "labelbook", Text: text}); err != nil {
			return fmt.Errorf("annotate %s!%s: %w", name, cell, err)
		}
	}
	return nil
}

// Append writes a row after the last one written to sheet.
func (w *Workbook) Append(sheet string, row []any) error {
	n, ok := w.next[sheet]
	if !ok {
		return fmt.Errorf("sheet %s has no header", sheet)
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
	w.next[sheet] = n + 1
	return nil
}

// SheetNames lists sheets in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.f.GetSheetList()
}

// Rows returns every row of a sheet as text. Rows may be shorter than the
// header when trailing cells are empty.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// Bytes serializes the workbook.
func (w *Workbook) Bytes() ([]byte, error) {
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
