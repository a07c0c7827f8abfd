// Package failure classifies the errors a translation run can produce.
//
// Every error raised by the metadata, layout and core packages is wrapped in
// an *Error carrying a Category. Callers use the category to decide whether
// the run continues (per-item failures) or stops (fatal failures), and to
// aggregate counts for the operator at the end of each phase.
package failure

import (
	"errors"
	"fmt"
)

// Category is the failure class of an error.
type Category string

const (
	// ConnectionUnavailable means the repository could not be reached. Fatal.
	ConnectionUnavailable Category = "connection_unavailable"
	// FetchFailure means one node could not be read; the node is omitted.
	FetchFailure Category = "fetch_failure"
	// ParseFailure means a malformed sheet, row or layout document.
	ParseFailure Category = "parse_failure"
	// ReferenceNotFound means a row points at something the repository lacks.
	ReferenceNotFound Category = "reference_not_found"
	// UpdateFailure means the repository rejected one write.
	UpdateFailure Category = "update_failure"
	// LocaleRestoreFailure means the operator's locale could not be put back. Fatal.
	LocaleRestoreFailure Category = "locale_restore_failure"
	// Unknown is used for errors that were never classified.
	Unknown Category = "unknown"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	ConnectionUnavailable,
	FetchFailure,
	ParseFailure,
	ReferenceNotFound,
	UpdateFailure,
	LocaleRestoreFailure,
}

// Fatal reports whether errors of this category stop the run.
func (c Category) Fatal() bool {
	return c == ConnectionUnavailable || c == LocaleRestoreFailure
}

// Severity returns the log severity used when reporting the category.
func (c Category) Severity() string {
	switch c {
	case ConnectionUnavailable, LocaleRestoreFailure:
		return "fatal"
	case UpdateFailure, FetchFailure:
		return "error"
	default:
		return "warning"
	}
}

var errNotFound = errors.New("not found")

// Error is a classified error.
type Error struct {
	Category Category
	Op       string // operation that failed, e.g. "retrieve entity"
	Target   string // what it failed on, e.g. "account"
	Err      error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Target)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(cat Category, op, target string, err error) *Error {
	return &Error{Category: cat, Op: op, Target: target, Err: err}
}

// Connection wraps err as ConnectionUnavailable.
func Connection(op string, err error) *Error {
	return New(ConnectionUnavailable, op, "", err)
}

// Fetch wraps err as FetchFailure.
func Fetch(op, target string, err error) *Error {
	return New(FetchFailure, op, target, err)
}

// Parse wraps err as ParseFailure.
func Parse(op, target string, err error) *Error {
	return New(ParseFailure, op, target, err)
}

// NotFound creates a ReferenceNotFound error.
func NotFound(op, target string) *Error {
	return New(ReferenceNotFound, op, target, errNotFound)
}

// Update wraps err as UpdateFailure.
func Update(op, target string, err error) *Error {
	return New(UpdateFailure, op, target, err)
}

// LocaleRestore wraps err as LocaleRestoreFailure.
func LocaleRestore(language int, err error) *Error {
	return New(LocaleRestoreFailure, "restore locale", fmt.Sprint(language), err)
}

// CategoryOf returns the category of the outermost classified error in the
// chain, or Unknown.
func CategoryOf(err error) Category {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Category
	}
	return Unknown
}

// Is reports whether any error in err's tree carries the category.
// errors.Join trees are searched too, so a fetch error joined with a
// restore error matches both categories.
func Is(err error, cat Category) bool {
	if err == nil {
		return false
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Category == cat {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			if Is(e, cat) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return Is(x.Unwrap(), cat)
	}
	return false
}

// IsFatal reports whether err contains a fatal category.
func IsFatal(err error) bool {
	return Is(err, ConnectionUnavailable) || Is(err, LocaleRestoreFailure)
}
