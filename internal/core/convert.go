package core

// convert.go normalizes workbook cells.
//
// Translators edit workbooks in spreadsheet tools that reformat cells:
// headers may come back as "1033.0", identifiers with stray quotes or a
// formula prefix (="..."). Identity cells are cleaned; translation text is
// only trimmed.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/labelbook/internal/metadata"
)

// HeaderIndex maps column names (lowercase) to their position in the row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a map of lowercase header names to column indices.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// ParseCode reads an integer header or value cell. Spreadsheet tools write
// numbers back as "1033.0"; integral floats are accepted.
func ParseCode(s string) (int, bool) {
	s = CleanCell(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// RowView reads one import row by identity column name.
type RowView struct {
	Sheet string
	Line  int // 1-based, as shown by spreadsheet tools
	cells []string
	index HeaderIndex
}

// NewRowView wraps a row for lookups through index.
func NewRowView(sheet string, line int, cells []string, index HeaderIndex) RowView {
	return RowView{Sheet: sheet, Line: line, cells: cells, index: index}
}

// Has reports whether the sheet has the column.
func (r RowView) Has(column string) bool {
	_, ok := r.index[strings.ToLower(column)]
	return ok
}

// Get returns the cleaned cell for column, or "" when the column or cell is
// missing.
func (r RowView) Get(column string) string {
	i, ok := r.index[strings.ToLower(column)]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return CleanCell(r.cells[i])
}

// ID returns the cell for column as a normalized identifier.
func (r RowView) ID(column string) string {
	return metadata.NormalizeID(r.Get(column))
}

// Require returns the cell for column or an error naming it when empty.
func (r RowView) Require(column string) (string, error) {
	v := r.Get(column)
	if v == "" {
		return "", fmt.Errorf("missing %s", column)
	}
	return v, nil
}

// RequireID is Require for identifier columns.
func (r RowView) RequireID(column string) (string, error) {
	v, err := r.Require(column)
	if err != nil {
		return "", err
	}
	return metadata.NormalizeID(v), nil
}

// RequireInt returns the cell for column as an integer.
func (r RowView) RequireInt(column string) (int, error) {
	v, err := r.Require(column)
	if err != nil {
		return 0, err
	}
	n, ok := ParseCode(v)
	if !ok {
		return 0, fmt.Errorf("%s %q is not a number", column, v)
	}
	return n, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
