package metadata

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/labelbook/internal/failure"
)

// DefaultFetchConcurrency bounds the per-table fetch batch.
const DefaultFetchConcurrency = 8

// LayoutExtractor turns layout documents into caption fragments.
type LayoutExtractor interface {
	// ExtractForm reads the captions of doc, rendered in snap's locale, into
	// form's fragments.
	ExtractForm(form *Form, doc string, snap Snapshot) error
	// ExtractSiteMap reads every caption of the site map's document.
	ExtractSiteMap(sm *SiteMap) error
}

// BuildOptions selects what a build fetches.
type BuildOptions struct {
	// Languages requested for output. Empty means every provisioned language.
	Languages  []int
	Forms      bool
	Dashboards bool
	SiteMaps   bool
}

// BuildReport summarizes a build.
type BuildReport struct {
	Tables  int
	Omitted []string // tables that could not be fetched
	Errors  *failure.Tally
}

// Builder assembles a Tree from the repository.
type Builder struct {
	repo        Repository
	sweeper     *Sweeper
	extractor   LayoutExtractor
	concurrency int
	logger      *slog.Logger
}

// NewBuilder creates a Builder. concurrency <= 0 uses DefaultFetchConcurrency.
func NewBuilder(repo Repository, sweeper *Sweeper, extractor LayoutExtractor, concurrency int, logger *slog.Logger) *Builder {
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		repo:        repo,
		sweeper:     sweeper,
		extractor:   extractor,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Build fetches the selected metadata. Per-node fetch failures are logged,
// counted and the node omitted; only a connection failure or a failed
// locale restore returns an error.
func (b *Builder) Build(ctx context.Context, sel Selection, opts BuildOptions) (*Tree, *BuildReport, error) {
	report := &BuildReport{Errors: failure.NewTally()}

	if err := b.repo.Ping(ctx); err != nil {
		return nil, report, failure.Connection("ping repository", err)
	}

	base, err := b.repo.BaseLanguage(ctx)
	if err != nil {
		return nil, report, failure.Connection("get base language", err)
	}
	languages := opts.Languages
	if len(languages) == 0 {
		if languages, err = b.repo.Languages(ctx); err != nil {
			return nil, report, failure.Connection("list languages", err)
		}
	}

	names := sel.Entities
	if len(names) == 0 {
		if names, err = b.repo.EntityNames(ctx); err != nil {
			return nil, report, failure.Connection("list entities", err)
		}
	}

	tree := &Tree{BaseLanguage: base, Languages: languages}
	tree.Tables = b.fetchTables(ctx, names, report)
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}
	tree.SortTables()
	report.Tables = len(tree.Tables)

	b.fetchGlobalOptionSets(ctx, tree, report)

	if opts.Forms || opts.Dashboards {
		if err := b.sweepLayouts(ctx, tree, sel, opts, report); err != nil {
			return nil, report, err
		}
	}

	if opts.SiteMaps {
		b.fetchSiteMaps(ctx, tree, sel, report)
	}

	b.logger.Info("metadata tree built",
		"tables", report.Tables,
		"omitted", len(report.Omitted),
		"option_sets", len(tree.GlobalOptionSets),
		"dashboards", len(tree.Dashboards),
		"sitemaps", len(tree.SiteMaps),
		"errors", report.Errors.Total(),
	)
	return tree, report, nil
}

// fetchTables fetches every table concurrently. Each goroutine writes only
// its own slot.
func (b *Builder) fetchTables(ctx context.Context, names []string, report *BuildReport) []*Table {
	slots := make([]*Table, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			t, err := b.fetchTable(gctx, name, report.Errors)
			if err != nil {
				report.Errors.Record(gctx, b.logger, "table omitted", err, "entity", name)
				return nil
			}
			slots[i] = t
			return nil
		})
	}
	_ = g.Wait()

	tables := make([]*Table, 0, len(slots))
	for i, t := range slots {
		if t == nil {
			report.Omitted = append(report.Omitted, names[i])
			continue
		}
		tables = append(tables, t)
	}
	return tables
}

func (b *Builder) fetchTable(ctx context.Context, name string, tally *failure.Tally) (*Table, error) {
	t, err := b.repo.RetrieveEntity(ctx, name)
	if err != nil {
		return nil, failure.Fetch("retrieve entity", name, err)
	}

	views, err := b.repo.RetrieveViews(ctx, name)
	if err != nil {
		tally.Record(ctx, b.logger, "views omitted", failure.Fetch("retrieve views", name, err))
	}
	for _, v := range views {
		b.loadNameLabels(ctx, RecordRef{Entity: RecordView, ID: v.ID}, &v.Labels, tally)
	}
	t.Views = views

	charts, err := b.repo.RetrieveCharts(ctx, name)
	if err != nil {
		tally.Record(ctx, b.logger, "charts omitted", failure.Fetch("retrieve charts", name, err))
	}
	for _, c := range charts {
		b.loadNameLabels(ctx, RecordRef{Entity: RecordChart, ID: c.ID}, &c.Labels, tally)
	}
	t.Charts = charts

	return t, nil
}

// loadNameLabels reads the localized name and description of a record.
func (b *Builder) loadNameLabels(ctx context.Context, ref RecordRef, set *LabelSet, tally *failure.Tally) {
	for _, c := range []struct{ column, qualifier string }{
		{ColumnName, DisplayName},
		{ColumnDesc, Description},
	} {
		set.Ensure(c.qualifier)
		ts, err := b.repo.RetrieveLocLabels(ctx, ref, c.column)
		if err != nil {
			tally.Record(ctx, b.logger, "labels omitted",
				failure.Fetch("retrieve loc labels", ref.Entity+"/"+ref.ID, err), "column", c.column)
			continue
		}
		set.SetAll(c.qualifier, ts)
	}
}

// fetchGlobalOptionSets keeps only option sets referenced by a selected field.
func (b *Builder) fetchGlobalOptionSets(ctx context.Context, tree *Tree, report *BuildReport) {
	used := make(map[string]bool)
	for _, t := range tree.Tables {
		for _, f := range t.Fields {
			if f.IsGlobal() {
				used[f.OptionSetName] = true
			}
		}
	}
	if len(used) == 0 {
		return
	}

	sets, err := b.repo.RetrieveGlobalOptionSets(ctx)
	if err != nil {
		report.Errors.Record(ctx, b.logger, "global option sets omitted",
			failure.Fetch("retrieve global option sets", "", err))
		return
	}
	for _, set := range sets {
		if used[set.Name] {
			tree.GlobalOptionSets = append(tree.GlobalOptionSets, set)
		}
	}
}

// sweepLayouts fetches forms and dashboards once per language. The base
// snapshot supplies the form record and fragment context; later snapshots
// only add caption translations.
func (b *Builder) sweepLayouts(ctx context.Context, tree *Tree, sel Selection, opts BuildOptions, report *BuildReport) error {
	err := b.sweeper.Sweep(ctx, tree.Languages, func(ctx context.Context, snap Snapshot) error {
		if opts.Forms {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(b.concurrency)
			for _, t := range tree.Tables {
				t := t
				g.Go(func() error {
					forms, err := b.repo.RetrieveForms(gctx, t.LogicalName)
					if err != nil {
						report.Errors.Record(gctx, b.logger, "forms omitted for language",
							failure.Fetch("retrieve forms", t.LogicalName, err), "language", snap.Language)
						return nil
					}
					t.Forms = b.mergeForms(gctx, t.Forms, forms, snap, report.Errors)
					return nil
				})
			}
			_ = g.Wait()
		}

		if opts.Dashboards {
			dashboards, err := b.repo.RetrieveDashboards(ctx, sel.Dashboards)
			if err != nil {
				report.Errors.Record(ctx, b.logger, "dashboards omitted for language",
					failure.Fetch("retrieve dashboards", "", err), "language", snap.Language)
			} else {
				tree.Dashboards = b.mergeForms(ctx, tree.Dashboards, dashboards, snap, report.Errors)
			}
		}
		return ctx.Err()
	})
	if err != nil {
		if failure.IsFatal(err) || ctx.Err() != nil {
			return err
		}
		report.Errors.Record(ctx, b.logger, "layout sweep incomplete", err)
	}

	for _, t := range tree.Tables {
		for _, f := range t.Forms {
			b.loadNameLabels(ctx, RecordRef{Entity: RecordForm, ID: f.ID}, &f.Labels, report.Errors)
		}
	}
	for _, d := range tree.Dashboards {
		b.loadNameLabels(ctx, RecordRef{Entity: RecordForm, ID: d.ID}, &d.Labels, report.Errors)
	}
	return nil
}

// mergeForms folds one snapshot's forms into the accumulated list, keyed by
// form id.
func (b *Builder) mergeForms(ctx context.Context, acc, fetched []*Form, snap Snapshot, tally *failure.Tally) []*Form {
	byID := make(map[string]*Form, len(acc))
	for _, f := range acc {
		byID[f.ID] = f
	}

	for _, f := range fetched {
		doc := f.XML
		target, ok := byID[f.ID]
		switch {
		case !ok:
			f.Language = snap.Language
			f.Base = snap.Base
			acc = append(acc, f)
			byID[f.ID] = f
			target = f
		case snap.Base && !target.Base:
			// A non-base snapshot got here first; the base one is canonical.
			target.Name, target.FormType, target.XML = f.Name, f.FormType, f.XML
			target.Language, target.Base = snap.Language, true
		}

		if err := b.extractor.ExtractForm(target, doc, snap); err != nil {
			tally.Record(ctx, b.logger, "layout skipped",
				failure.Parse("extract form layout", f.ID, err), "language", snap.Language)
		}
	}
	return acc
}

func (b *Builder) fetchSiteMaps(ctx context.Context, tree *Tree, sel Selection, report *BuildReport) {
	maps, err := b.repo.RetrieveSiteMaps(ctx, sel.SiteMaps)
	if err != nil {
		report.Errors.Record(ctx, b.logger, "site maps omitted", failure.Fetch("retrieve site maps", "", err))
		return
	}
	for _, sm := range maps {
		if err := b.extractor.ExtractSiteMap(sm); err != nil {
			report.Errors.Record(ctx, b.logger, "site map skipped",
				failure.Parse("extract site map", sm.ID, err))
			continue
		}
		tree.SiteMaps = append(tree.SiteMaps, sm)
	}
}
