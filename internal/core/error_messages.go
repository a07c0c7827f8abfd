package core

// # Error Codes Reference
//
// User-facing messages carry a code operators can quote to support.
// Classified errors (see package failure) map by category first; anything
// else is matched against known patterns.
//
// # Repository (CONN, FETCH, REF, UPD, LOC)
//
//	CONN001 - Repository unavailable: the metadata repository did not respond
//	          Action: Check the repository connection and try again
//	FETCH001 - Fetch failed: some metadata could not be read
//	          Action: The affected items were left out; see the run log
//	REF001  - Reference not found: a row points at an item that no longer exists
//	          Action: Export a fresh workbook and re-apply the translations
//	UPD001  - Update failed: the repository rejected a label update
//	          Action: Review the failed rows in the run result
//	UPD002  - Publish failed: labels were saved but not published
//	          Action: Publish customizations from the repository
//	LOC001  - Locale not restored: your user language could not be switched back
//	          Action: Reset your language in the repository's personal options
//
// # Workbook (PARSE, SHEET, FILE)
//
//	PARSE001 - Unreadable row or layout
//	          Action: Check the identity columns of the reported rows
//	SHEET001 - No language columns: a sheet header has no language codes
//	          Action: Keep the numeric language headers of the exported workbook
//	SHEET002 - Unknown sheet or group
//	          Action: Use one of the listed sheet keys
//	FILE001 - File too large
//	          Action: Split the workbook by sheet
//	FILE002 - Invalid workbook: the file is not an xlsx document
//	          Action: Save the file as Excel Workbook (.xlsx)
//	FILE003 - No file was uploaded
//	          Action: Select a workbook to import
//
// # Runs (RUN)
//
//	RUN001 - Run in progress: another export or import is running
//	         Action: Wait for it to finish and try again
//	RUN002 - Run not found: the run id is unknown or expired
//	         Action: Start a new import
//	RUN003 - Run cancelled
//	         Action: Start a new import when ready
//	RUN004 - Run timed out
//	         Action: Export fewer entities or languages per workbook
//
// # Rate Limiting (RATE)
//
//	RATE001 - Too many requests
//	          Action: Please wait a moment before trying again
//
// ERR000 is the fallback for anything unrecognized.

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/labelbook/internal/failure"
)

// UserMessage is a user-facing rendering of an error.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var categoryMessages = map[failure.Category]UserMessage{
	failure.ConnectionUnavailable: {"Metadata repository is unavailable", "Check the repository connection and try again", "CONN001"},
	failure.FetchFailure:          {"Some metadata could not be read", "The affected items were left out; see the run log", "FETCH001"},
	failure.ParseFailure:          {"A row or layout could not be read", "Check the identity columns of the reported rows", "PARSE001"},
	failure.ReferenceNotFound:     {"A row refers to an item that no longer exists", "Export a fresh workbook and re-apply the translations", "REF001"},
	failure.UpdateFailure:         {"The repository rejected a label update", "Review the failed rows in the run result", "UPD001"},
	failure.LocaleRestoreFailure:  {"Your user language could not be switched back", "Reset your language in the repository's personal options", "LOC001"},
}

// errorPatterns are checked in order; more specific patterns come first.
var errorPatterns = []errorPattern{
	{"another translation run is in progress", UserMessage{"Another export or import is running", "Wait for it to finish and try again", "RUN001"}},
	{"run not found", UserMessage{"Run not found", "The run may have expired. Please start a new import", "RUN002"}},
	{"context canceled", UserMessage{"The run was cancelled", "Start a new import when ready", "RUN003"}},
	{"context deadline exceeded", UserMessage{"The run timed out", "Export fewer entities or languages per workbook", "RUN004"}},
	{"publish", UserMessage{"Labels were saved but not published", "Publish customizations from the repository", "UPD002"}},
	{"no language columns", UserMessage{"A sheet has no language columns", "Keep the numeric language headers of the exported workbook", "SHEET001"}},
	{"unknown sheet", UserMessage{"Unknown sheet or group", "Use one of the listed sheet keys", "SHEET002"}},
	{"file too large", UserMessage{"File too large", "Split the workbook by sheet", "FILE001"}},
	{"open workbook", UserMessage{"The file is not a valid workbook", "Save the file as Excel Workbook (.xlsx)", "FILE002"}},
	{"zip: not a valid zip file", UserMessage{"The file is not a valid workbook", "Save the file as Excel Workbook (.xlsx)", "FILE002"}},
	{"no file provided", UserMessage{"No file was uploaded", "Select a workbook to import", "FILE003"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Patterns are checked before categories so specific run and file errors
// keep their own codes.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if msg, ok := categoryMessages[failure.CategoryOf(err)]; ok {
		return msg
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether an error maps to a specific message rather
// than the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
