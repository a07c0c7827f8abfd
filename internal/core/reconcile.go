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

// Reconciler drops translations that already match the live repository so
// an unedited round trip issues no writes.
type Reconciler struct {
	repo   metadata.Repository
	docs   *layout.DocumentCache
	logger *slog.Logger
}

// NewReconciler creates a Reconciler. docs should be the cache the
// dispatcher patches, so each layout document is fetched once per run.
func NewReconciler(repo metadata.Repository, docs *layout.DocumentCache, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{repo: repo, docs: docs, logger: logger}
}

// ReconcileReport summarizes a reconciliation.
type ReconcileReport struct {
	Unchanged   int // units dropped because nothing differs
	Missing     int // units whose target no longer exists
	Diagnostics []Diagnostic
	Errors      *failure.Tally
}

// Reconcile returns groups holding only the translations that differ from
// the repository. Units whose target is gone are dropped as
// ReferenceNotFound. When the current value cannot be read the unit is kept
// whole and left for the dispatcher to report.
func (r *Reconciler) Reconcile(ctx context.Context, groups []UnitGroup) ([]UnitGroup, *ReconcileReport, error) {
	report := &ReconcileReport{Errors: failure.NewTally()}
	out := make([]UnitGroup, 0, len(groups))

	for _, g := range groups {
		kept := UnitGroup{Sheet: g.Sheet}
		for _, u := range g.Units {
			if err := ctx.Err(); err != nil {
				return nil, report, err
			}

			current, err := r.Current(ctx, u.Target, u.Labels.Qualifiers())
			switch {
			case failure.Is(err, failure.ReferenceNotFound):
				report.Missing++
				report.Errors.Record(ctx, r.logger, "update target not found", err, "sheet", g.Sheet, "target", u.Target.String())
				report.Diagnostics = append(report.Diagnostics, Diagnostic{
					Sheet:    g.Sheet,
					Line:     firstLine(u),
					Target:   u.Target.String(),
					Category: failure.ReferenceNotFound,
					Message:  err.Error(),
				})
				continue
			case err != nil:
				r.logger.Warn("current labels unavailable, unit kept", "target", u.Target.String(), "error", err)
				kept.Units = append(kept.Units, u)
				continue
			}

			diff := Diff(u.Labels, current)
			if u.Target.Kind.IsLayout() {
				diff = captionDiff(u.Labels, current)
			}
			if !diff.IsEmpty() {
				u.Labels = diff
				kept.Units = append(kept.Units, u)
			} else {
				report.Unchanged++
			}
		}
		if len(kept.Units) > 0 {
			out = append(out, kept)
		}
	}

	r.logger.Info("import reconciled",
		"units", CountUnits(out),
		"unchanged", report.Unchanged,
		"missing", report.Missing,
	)
	return out, report, nil
}

// Diff returns the translations of incoming whose text differs from current.
func Diff(incoming, current *metadata.LabelSet) *metadata.LabelSet {
	out := metadata.NewLabelSet()
	for _, q := range incoming.Qualifiers() {
		for _, t := range incoming.Translations(q) {
			if cur, ok := current.Get(q, t.Language); ok && cur == t.Text {
				continue
			}
			out.Set(q, t.Language, t.Text)
		}
	}
	return out
}

// captionDiff keeps, per qualifier, the whole incoming caption set whenever
// it is not exactly what the layout already holds. Layout captions are
// rebuilt from the set, so a partial one would drop languages.
func captionDiff(incoming, current *metadata.LabelSet) *metadata.LabelSet {
	out := metadata.NewLabelSet()
	for _, q := range incoming.Qualifiers() {
		ts := incoming.Translations(q)
		if layout.SameCaptions(current.Translations(q), ts) {
			continue
		}
		out.SetAll(q, ts)
	}
	return out
}

func firstLine(u *UpdateUnit) int {
	if len(u.Lines) == 0 {
		return 0
	}
	return u.Lines[0]
}

// Current reads the live labels of a target for the given qualifiers. A
// target that does not exist returns a ReferenceNotFound error.
func (r *Reconciler) Current(ctx context.Context, t Target, qualifiers []string) (*metadata.LabelSet, error) {
	switch t.Kind {
	case metadata.KindEntity:
		table, err := r.table(ctx, t.Entity)
		if err != nil {
			return nil, err
		}
		return &table.Labels, nil

	case metadata.KindAttribute:
		field, err := r.field(ctx, t.Entity, t.Name)
		if err != nil {
			return nil, err
		}
		return &field.Labels, nil

	case metadata.KindRelationship, metadata.KindManyToMany:
		table, err := r.table(ctx, t.Entity)
		if err != nil {
			return nil, err
		}
		for _, rel := range table.Relationships {
			if metadata.NormalizeID(rel.ID) == t.ID {
				return &rel.Labels, nil
			}
		}
		return nil, failure.NotFound("find relationship", t.String())

	case metadata.KindOption, metadata.KindBoolean:
		field, err := r.field(ctx, t.Entity, t.Name)
		if err != nil {
			return nil, err
		}
		for _, o := range field.Options {
			if o.Value == t.Value {
				return &o.Labels, nil
			}
		}
		return nil, failure.NotFound("find option", t.String())

	case metadata.KindGlobalOption:
		sets, err := r.repo.RetrieveGlobalOptionSets(ctx)
		if err != nil {
			return nil, failure.Fetch("retrieve option sets", t.Name, err)
		}
		for _, s := range sets {
			if s.Name == t.Name {
				if o := s.Option(t.Value); o != nil {
					return &o.Labels, nil
				}
			}
		}
		return nil, failure.NotFound("find option", t.String())

	case metadata.KindView, metadata.KindChart, metadata.KindForm, metadata.KindDashboard:
		ref := RecordFor(t)
		out := metadata.NewLabelSet()
		for _, q := range qualifiers {
			column, err := columnFor(q)
			if err != nil {
				return nil, failure.Parse("map qualifier", t.String(), err)
			}
			ts, err := r.repo.RetrieveLocLabels(ctx, ref, column)
			if err != nil {
				return nil, classify("retrieve labels", t.String(), err, failure.FetchFailure)
			}
			out.SetAll(q, ts)
		}
		return out, nil
	}

	if t.Kind.IsLayout() {
		doc, err := r.docs.Text(ctx, layout.DocKeyFor(t.Kind, t.Document))
		if err != nil {
			return nil, classify("retrieve layout", t.String(), err, failure.FetchFailure)
		}
		out := metadata.NewLabelSet()
		for _, q := range qualifiers {
			ts, err := layout.Read(doc, LayoutTarget(t, q))
			if errors.Is(err, layout.ErrElementNotFound) {
				return nil, failure.NotFound("locate layout element", t.String())
			}
			if err != nil {
				return nil, failure.Parse("read layout", t.String(), err)
			}
			out.SetAll(q, ts)
		}
		return out, nil
	}

	return nil, fmt.Errorf("unsupported target kind %s", t.Kind)
}

func (r *Reconciler) table(ctx context.Context, name string) (*metadata.Table, error) {
	table, err := r.repo.RetrieveEntity(ctx, name)
	if err != nil {
		return nil, classify("retrieve entity", name, err, failure.FetchFailure)
	}
	return table, nil
}

func (r *Reconciler) field(ctx context.Context, entity, name string) (*metadata.Field, error) {
	table, err := r.table(ctx, entity)
	if err != nil {
		return nil, err
	}
	field := table.Field(name)
	if field == nil {
		return nil, failure.NotFound("find attribute", entity+"."+name)
	}
	return field, nil
}

// classify keeps an already classified error, maps a missing reference to
// ReferenceNotFound and wraps anything else as fallback.
func classify(op, target string, err error, fallback failure.Category) error {
	var fe *failure.Error
	if errors.As(err, &fe) {
		if errors.Is(err, metadata.ErrNotFound) && fe.Category != failure.ReferenceNotFound {
			return failure.New(failure.ReferenceNotFound, op, target, err)
		}
		return err
	}
	if errors.Is(err, metadata.ErrNotFound) {
		return failure.New(failure.ReferenceNotFound, op, target, err)
	}
	return failure.New(fallback, op, target, err)
}

// RecordFor returns the record holding a view, chart, form or dashboard's
// name and description.
func RecordFor(t Target) metadata.RecordRef {
	switch t.Kind {
	case metadata.KindView:
		return metadata.RecordRef{Entity: metadata.RecordView, ID: t.ID}
	case metadata.KindChart:
		return metadata.RecordRef{Entity: metadata.RecordChart, ID: t.ID}
	default:
		return metadata.RecordRef{Entity: metadata.RecordForm, ID: t.ID}
	}
}

func columnFor(qualifier string) (string, error) {
	switch qualifier {
	case metadata.DisplayName:
		return metadata.ColumnName, nil
	case metadata.Description:
		return metadata.ColumnDesc, nil
	}
	return "", fmt.Errorf("qualifier %s has no record column", qualifier)
}

// LayoutTarget locates a layout unit's element inside its document.
func LayoutTarget(t Target, qualifier string) layout.Target {
	return layout.Target{Kind: t.Kind, ID: t.ID, Name: t.Name, Qualifier: qualifier}
}
