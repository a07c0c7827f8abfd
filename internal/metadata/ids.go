package metadata

import (
	"strconv"
	"strings"
)

// WrapID renders a GUID as an opaque workbook key: {id}. Other identifiers,
// such as site map element ids, are returned as is.
func WrapID(id string) string {
	if !looksLikeGUID(id) {
		return id
	}
	return "{" + id + "}"
}

// NormalizeID strips surrounding braces and whitespace and lower-cases GUIDs
// so ids read back from a workbook compare equal to repository ids.
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	s = strings.TrimSpace(s)
	if looksLikeGUID(s) {
		return strings.ToLower(s)
	}
	return s
}

func looksLikeGUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i, r := range s {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
				return false
			}
		}
	}
	return true
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
