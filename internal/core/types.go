package core

import (
	"strings"
	"time"

	"github.com/JonMunkholm/labelbook/internal/failure"
	"github.com/JonMunkholm/labelbook/internal/metadata"
)

// Target identifies the repository object an import row updates. It is
// comparable; rows with equal targets merge into one UpdateUnit.
//
// Which fields are set depends on Kind:
//
//	entity                   Entity
//	attribute                Entity, Name (attribute)
//	relationship(_nn)        Entity, ID
//	option, boolean          Entity, Name (attribute), Value
//	global_option            Name (option set), Value
//	view, chart, form, dash. ID
//	form/dashboard layout    Document (form id), ID (element id), Name
//	site map layout          Document (site map id), ID (element id)
type Target struct {
	Kind     metadata.Kind `json:"kind"`
	Entity   string        `json:"entity,omitempty"`
	Name     string        `json:"name,omitempty"`
	ID       string        `json:"id,omitempty"`
	Document string        `json:"document,omitempty"`
	Value    int           `json:"value,omitempty"`
}

// String renders the target for logs and diagnostics.
func (t Target) String() string {
	var b strings.Builder
	b.WriteString(string(t.Kind))
	for _, part := range []string{t.Document, t.Entity, t.Name, t.ID} {
		if part != "" {
			b.WriteByte(' ')
			b.WriteString(part)
		}
	}
	switch t.Kind {
	case metadata.KindOption, metadata.KindBoolean, metadata.KindGlobalOption:
		b.WriteString("=")
		b.WriteString(itoa(t.Value))
	}
	return b.String()
}

// UpdateUnit is every translation the workbook carries for one target.
type UpdateUnit struct {
	Target Target             `json:"target"`
	Labels *metadata.LabelSet `json:"labels"`
	Sheet  string             `json:"sheet"`
	Lines  []int              `json:"lines,omitempty"` // source rows, 1-based
}

// UnitGroup is the units first seen on one sheet, in row order.
type UnitGroup struct {
	Sheet string        `json:"sheet"`
	Units []*UpdateUnit `json:"units"`
}

// CountUnits returns the number of units across groups.
func CountUnits(groups []UnitGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Units)
	}
	return n
}

// Phase indicates the current stage of a run.
type Phase string

const (
	PhaseStarting    Phase = "starting"
	PhaseBuilding    Phase = "building"
	PhaseProjecting  Phase = "projecting"
	PhaseParsing     Phase = "parsing"
	PhaseReconciling Phase = "reconciling"
	PhaseApplying    Phase = "applying"
	PhaseFlushing    Phase = "flushing"
	PhasePublishing  Phase = "publishing"
	PhaseComplete    Phase = "complete"
	PhaseFailed      Phase = "failed"
	PhaseCancelled   Phase = "cancelled"
)

// Progress represents the current state of a run. Processed and Total are
// reset at the start of every group.
type Progress struct {
	RunID     string `json:"run_id"`
	Phase     Phase  `json:"phase"`
	Group     string `json:"group,omitempty"`
	Status    string `json:"status,omitempty"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"` // Non-empty if Phase is PhaseFailed
}

// Percent returns the progress within the current group (0-100).
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return (p.Processed * 100) / p.Total
}

// ProgressFunc is called as a run advances.
type ProgressFunc func(Progress)

// LabelFilter limits which qualifiers an export writes.
type LabelFilter string

const (
	FilterBoth         LabelFilter = "both"
	FilterNames        LabelFilter = "names"
	FilterDescriptions LabelFilter = "descriptions"
)

// ParseLabelFilter accepts "both", "names" or "descriptions". Empty is both.
func ParseLabelFilter(s string) (LabelFilter, bool) {
	switch LabelFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterBoth:
		return FilterBoth, true
	case FilterNames, "name", "namesonly":
		return FilterNames, true
	case FilterDescriptions, "description", "descriptionsonly":
		return FilterDescriptions, true
	}
	return "", false
}

// Allows reports whether qualifier passes the filter.
func (f LabelFilter) Allows(qualifier string) bool {
	switch f {
	case FilterNames:
		return qualifier != metadata.Description
	case FilterDescriptions:
		return qualifier == metadata.Description
	}
	return true
}

// ExportRequest scopes an export.
type ExportRequest struct {
	Selection metadata.Selection `json:"selection" yaml:"selection"`
	// Languages in column order. Empty exports every provisioned language,
	// base first.
	Languages []int       `json:"languages,omitempty" yaml:"languages"`
	Filter    LabelFilter `json:"filter,omitempty" yaml:"filter"`
	// Sheets by key or group. Empty exports every registered sheet.
	Sheets   []string `json:"sheets,omitempty" yaml:"sheets"`
	FileName string   `json:"file_name,omitempty" yaml:"file_name"`
}

// SheetSummary reports one written sheet.
type SheetSummary struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// ExportResult contains the final result of an export.
type ExportResult struct {
	RunID      string                   `json:"run_id"`
	FileName   string                   `json:"file_name"`
	Languages  []int                    `json:"languages"`
	Sheets     []SheetSummary           `json:"sheets"`
	Omitted    []string                 `json:"omitted,omitempty"`
	Errors     map[failure.Category]int `json:"errors,omitempty"`
	ArchiveKey string                   `json:"archive_key,omitempty"`
	Duration   time.Duration            `json:"duration"`
	Data       []byte                   `json:"-"`
}

// Diagnostic is one skipped row or failed unit.
type Diagnostic struct {
	Sheet    string           `json:"sheet,omitempty"`
	Line     int              `json:"line,omitempty"`
	Target   string           `json:"target,omitempty"`
	Category failure.Category `json:"category"`
	Message  string           `json:"message"`
}

// GroupResult reports one sheet's dispatch.
type GroupResult struct {
	Sheet   string `json:"sheet"`
	Units   int    `json:"units"`
	Applied int    `json:"applied"`
	Failed  int    `json:"failed"`
}

// ImportResult contains the final result of an import.
type ImportResult struct {
	RunID            string                   `json:"run_id"`
	FileName         string                   `json:"file_name"`
	Rows             int                      `json:"rows"`
	Dropped          int                      `json:"dropped"`   // rows without any translation
	Skipped          int                      `json:"skipped"`   // rows rejected while parsing
	Unchanged        int                      `json:"unchanged"` // units equal to the live repository
	Units            int                      `json:"units"`
	Applied          int                      `json:"applied"`
	Failed           int                      `json:"failed"`
	Groups           []GroupResult            `json:"groups"`
	DocumentsWritten int                      `json:"documents_written"`
	DocumentsFailed  int                      `json:"documents_failed"`
	Published        bool                     `json:"published"`
	Cancelled        bool                     `json:"cancelled,omitempty"`
	Errors           map[failure.Category]int `json:"errors,omitempty"`
	Diagnostics      []Diagnostic             `json:"diagnostics,omitempty"`
	ArchiveKey       string                   `json:"archive_key,omitempty"`
	Duration         time.Duration            `json:"duration"`
	Error            string                   `json:"error,omitempty"` // Non-empty if the run failed
}
