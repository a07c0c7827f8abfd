package core

// validation.go checks an import sheet's header before its rows are read.
//
// A sheet whose header lacks a key column would skip every row with the
// same message, so it is rejected once with the list of missing columns.

import (
	"fmt"
	"strings"
)

// ValidationError reports missing identity columns of one sheet.
type ValidationError struct {
	Sheet   string
	Missing []string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Sheet, strings.Join(e.Missing, ", "))
}

// ValidateHeader checks that index holds every key column of the sheet,
// and the Type column for typed sheets.
func ValidateHeader(info SheetInfo, index HeaderIndex) error {
	var missing []string
	for _, col := range info.Keys {
		if !index.has(col) {
			missing = append(missing, col)
		}
	}
	if info.Typed() && !index.has(TypeColumn) {
		missing = append(missing, TypeColumn)
	}
	if len(missing) > 0 {
		return ValidationError{Sheet: info.Name, Missing: missing}
	}
	return nil
}
