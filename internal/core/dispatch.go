package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/labelbook/internal/failure"
	"github.com/JonMunkholm/labelbook/internal/layout"
	"github.com/JonMunkholm/labelbook/internal/metadata"
)

// Dispatcher applies update units to the repository.
type Dispatcher struct {
	repo     metadata.Repository
	docs     *layout.DocumentCache
	logger   *slog.Logger
	progress ProgressFunc
}

// NewDispatcher creates a Dispatcher. Layout units are patched into docs and
// written when the run is flushed.
func NewDispatcher(repo metadata.Repository, docs *layout.DocumentCache, logger *slog.Logger, progress ProgressFunc) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if progress == nil {
		progress = func(Progress) {}
	}
	return &Dispatcher{repo: repo, docs: docs, logger: logger, progress: progress}
}

// DispatchReport summarizes a dispatch.
type DispatchReport struct {
	Groups           []GroupResult
	Applied          int
	Failed           int
	DocumentsWritten int
	DocumentsFailed  int
	Published        bool
	Cancelled        bool
	Diagnostics      []Diagnostic
	Errors           *failure.Tally
}

// Run applies groups in order. A failed unit is logged and counted and does
// not stop its group. Cancellation is honored between groups only: a
// cancelled run stops before the next group and neither flushes layouts nor
// publishes. Otherwise changed layout documents are written once each and
// the repository is published once, even when nothing was written.
func (d *Dispatcher) Run(ctx context.Context, runID string, groups []UnitGroup) *DispatchReport {
	report := &DispatchReport{Errors: failure.NewTally()}
	// Units in flight finish even if the run is cancelled mid-group.
	unitCtx := context.WithoutCancel(ctx)

	for _, g := range groups {
		if ctx.Err() != nil {
			report.Cancelled = true
			d.logger.Warn("import cancelled between sheets", "next_sheet", g.Sheet)
			return report
		}

		result := GroupResult{Sheet: g.Sheet, Units: len(g.Units)}
		p := Progress{
			RunID:  runID,
			Phase:  PhaseApplying,
			Group:  g.Sheet,
			Status: fmt.Sprintf("Updating %s", g.Sheet),
			Total:  len(g.Units),
		}
		d.progress(p)

		for _, u := range g.Units {
			if err := d.apply(unitCtx, u); err != nil {
				result.Failed++
				report.Errors.Record(ctx, d.logger, "update failed", err,
					"sheet", g.Sheet,
					"target", u.Target.String(),
					"lines", u.Lines,
				)
				report.Diagnostics = append(report.Diagnostics, Diagnostic{
					Sheet:    g.Sheet,
					Line:     firstLine(u),
					Target:   u.Target.String(),
					Category: failure.CategoryOf(err),
					Message:  err.Error(),
				})
			} else {
				result.Applied++
			}
			p.Processed++
			d.progress(p)
		}

		report.Applied += result.Applied
		report.Failed += result.Failed
		report.Groups = append(report.Groups, result)
		d.logger.Info("sheet applied",
			"sheet", g.Sheet,
			"applied", result.Applied,
			"failed", result.Failed,
		)
	}

	if ctx.Err() != nil {
		report.Cancelled = true
		return report
	}

	d.flush(unitCtx, runID, report)
	d.publish(unitCtx, runID, report)
	return report
}

func (d *Dispatcher) flush(ctx context.Context, runID string, report *DispatchReport) {
	dirty := d.docs.Dirty()
	if len(dirty) == 0 {
		return
	}
	d.progress(Progress{RunID: runID, Phase: PhaseFlushing, Group: "Layouts", Status: "Writing layouts", Total: len(dirty)})

	for i, res := range d.docs.Flush(ctx, layout.RepositoryWrite(d.repo)) {
		if res.Err != nil {
			report.DocumentsFailed++
			report.Errors.Record(ctx, d.logger, "layout write failed", res.Err, "document", res.Key.ID)
			report.Diagnostics = append(report.Diagnostics, Diagnostic{
				Target:   fmt.Sprintf("%s %s", res.Key.Kind, res.Key.ID),
				Category: failure.CategoryOf(res.Err),
				Message:  res.Err.Error(),
			})
		} else {
			report.DocumentsWritten++
		}
		d.progress(Progress{RunID: runID, Phase: PhaseFlushing, Group: "Layouts", Status: "Writing layouts", Processed: i + 1, Total: len(dirty)})
	}
}

func (d *Dispatcher) publish(ctx context.Context, runID string, report *DispatchReport) {
	d.progress(Progress{RunID: runID, Phase: PhasePublishing, Group: "Publish", Status: "Publishing customizations", Total: 1})

	if err := d.repo.PublishAll(ctx); err != nil {
		report.Errors.Record(ctx, d.logger, "publish failed", failure.Update("publish", "all", err))
		report.Diagnostics = append(report.Diagnostics, Diagnostic{Category: failure.UpdateFailure, Message: err.Error()})
		return
	}
	report.Published = true
	d.progress(Progress{RunID: runID, Phase: PhasePublishing, Group: "Publish", Status: "Published", Processed: 1, Total: 1})
}

// apply issues the repository write for one unit. Layout units only patch
// the cached document.
func (d *Dispatcher) apply(ctx context.Context, u *UpdateUnit) error {
	t := u.Target
	var err error

	switch t.Kind {
	case metadata.KindEntity:
		err = d.repo.UpdateEntity(ctx, t.Entity, u.Labels)
	case metadata.KindAttribute:
		err = d.repo.UpdateAttribute(ctx, t.Entity, t.Name, u.Labels)
	case metadata.KindRelationship, metadata.KindManyToMany:
		err = d.repo.UpdateRelationship(ctx, t.Entity, t.ID, u.Labels)
	case metadata.KindOption, metadata.KindBoolean:
		err = d.repo.UpdateOptionValue(ctx, metadata.OptionRef{Entity: t.Entity, Attribute: t.Name, Value: t.Value}, u.Labels)
	case metadata.KindGlobalOption:
		err = d.repo.UpdateOptionValue(ctx, metadata.OptionRef{OptionSet: t.Name, Value: t.Value}, u.Labels)
	case metadata.KindView, metadata.KindChart, metadata.KindForm, metadata.KindDashboard:
		err = d.applyRecord(ctx, u)
	default:
		if !t.Kind.IsLayout() {
			return failure.Update("apply", t.String(), fmt.Errorf("unsupported target kind %s", t.Kind))
		}
		return d.applyLayout(ctx, u)
	}

	if err != nil {
		return classify("update", t.String(), err, failure.UpdateFailure)
	}
	return nil
}

func (d *Dispatcher) applyRecord(ctx context.Context, u *UpdateUnit) error {
	ref := RecordFor(u.Target)
	var errs []error
	for _, q := range u.Labels.Qualifiers() {
		column, err := columnFor(q)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := d.repo.SetLocLabels(ctx, ref, column, u.Labels.Sorted(q)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", column, err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) applyLayout(ctx context.Context, u *UpdateUnit) error {
	key := layout.DocKeyFor(u.Target.Kind, u.Target.Document)
	for _, q := range u.Labels.Qualifiers() {
		if _, err := d.docs.Patch(ctx, key, LayoutTarget(u.Target, q), u.Labels.Sorted(q)); err != nil {
			return err
		}
	}
	return nil
}
