package core

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/labelbook/internal/failure"
	"github.com/JonMunkholm/labelbook/internal/layout"
	"github.com/JonMunkholm/labelbook/internal/workbook"
)

// PreviewSummary contains the summary counts for an import preview.
type PreviewSummary struct {
	Rows      int `json:"rows"`
	Dropped   int `json:"dropped"`
	Skipped   int `json:"skipped"`
	Units     int `json:"units"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Missing   int `json:"missing"`
	Unknown   int `json:"unknown"` // current value could not be read
}

// UpdateDiff is the before/after of one unit that would change. Keys are
// "<qualifier>/<language>".
type UpdateDiff struct {
	LineNumber int               `json:"line_number"`
	Sheet      string            `json:"sheet"`
	Target     string            `json:"target"`
	Current    map[string]string `json:"current"`
	Incoming   map[string]string `json:"incoming"`
	Changed    []string          `json:"changed"`
}

// PreviewResponse is the complete response from an import preview.
type PreviewResponse struct {
	FileName         string         `json:"file_name"`
	Summary          PreviewSummary `json:"summary"`
	UpdateDiffs      []UpdateDiff   `json:"update_diffs"`
	Diagnostics      []Diagnostic   `json:"diagnostics"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// Sample limits
const (
	maxUpdateDiffs  = 25
	maxDiagnostics  = 50
	previewLanguage = "%s/%d"
)

// PreviewImport parses a workbook and compares every unit with the live
// repository without writing anything.
func (s *Service) PreviewImport(ctx context.Context, fileName string, data []byte) (*PreviewResponse, error) {
	startTime := time.Now()
	if s.opts.MaxFileSize > 0 && int64(len(data)) > s.opts.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(data), s.opts.MaxFileSize)
	}

	logger := s.runLogger(ctx, "preview", "preview")
	wb, err := workbook.OpenBytes(data)
	if err != nil {
		return nil, failure.Parse("open workbook", filepath.Base(fileName), err)
	}
	groups, parsed, err := NewParser(logger).Parse(wb)
	wb.Close()
	if err != nil {
		return nil, err
	}

	resp := &PreviewResponse{
		FileName: filepath.Base(fileName),
		Summary: PreviewSummary{
			Rows:    parsed.Rows,
			Dropped: parsed.Dropped,
			Skipped: parsed.Skipped,
			Units:   CountUnits(groups),
		},
		UpdateDiffs: []UpdateDiff{},
	}
	diags := append([]Diagnostic(nil), parsed.Diagnostics...)

	s.cached.Purge()
	docs := layout.NewDocumentCache(layout.RepositoryFetch(s.cached))
	rec := NewReconciler(s.cached, docs, logger)

	for _, g := range groups {
		for _, u := range g.Units {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			current, err := rec.Current(ctx, u.Target, u.Labels.Qualifiers())
			switch {
			case failure.Is(err, failure.ReferenceNotFound):
				resp.Summary.Missing++
				diags = append(diags, Diagnostic{
					Sheet:    g.Sheet,
					Line:     firstLine(u),
					Target:   u.Target.String(),
					Category: failure.ReferenceNotFound,
					Message:  err.Error(),
				})
				continue
			case err != nil:
				resp.Summary.Unknown++
				diags = append(diags, Diagnostic{
					Sheet:    g.Sheet,
					Line:     firstLine(u),
					Target:   u.Target.String(),
					Category: failure.CategoryOf(err),
					Message:  err.Error(),
				})
				continue
			}

			diff := Diff(u.Labels, current)
			if diff.IsEmpty() {
				resp.Summary.Unchanged++
				continue
			}
			resp.Summary.Changed++
			if len(resp.UpdateDiffs) >= maxUpdateDiffs {
				continue
			}

			d := UpdateDiff{
				LineNumber: firstLine(u),
				Sheet:      g.Sheet,
				Target:     u.Target.String(),
				Current:    make(map[string]string),
				Incoming:   make(map[string]string),
			}
			for _, q := range diff.Qualifiers() {
				for _, t := range diff.Sorted(q) {
					key := fmt.Sprintf(previewLanguage, q, t.Language)
					d.Incoming[key] = t.Text
					if cur, ok := current.Get(q, t.Language); ok {
						d.Current[key] = cur
					}
					d.Changed = append(d.Changed, key)
				}
			}
			resp.UpdateDiffs = append(resp.UpdateDiffs, d)
		}
	}

	if len(diags) > maxDiagnostics {
		diags = diags[:maxDiagnostics]
	}
	resp.Diagnostics = diags
	resp.ProcessingTimeMs = time.Since(startTime).Milliseconds()
	return resp, nil
}
