package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/labelbook/internal/failure"
	"github.com/JonMunkholm/labelbook/internal/history"
	"github.com/JonMunkholm/labelbook/internal/layout"
	"github.com/JonMunkholm/labelbook/internal/locale"
	"github.com/JonMunkholm/labelbook/internal/logging"
	"github.com/JonMunkholm/labelbook/internal/metadata"
	"github.com/JonMunkholm/labelbook/internal/storage"
	"github.com/JonMunkholm/labelbook/internal/workbook"
)

// ErrFileTooLarge is returned when an import exceeds Options.MaxFileSize.
var ErrFileTooLarge = errors.New("file too large")

// ErrRunNotFound is returned for unknown or expired run ids.
var ErrRunNotFound = errors.New("run not found")

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	MaxConcurrentRuns int
	MaxWait           time.Duration
	RunTimeout        time.Duration // default 30m
	ResultRetention   time.Duration // how long finished async runs stay queryable; default 5m

	FetchConcurrency int
	CacheSize        int
	SettleDelay      time.Duration
	SettleAttempts   int

	MaxFileSize   int64 // bytes; 0 means unlimited
	SkipUnchanged bool

	History history.Store // nil keeps history in memory
	Archive storage.Store // nil disables archiving
	Logger  *slog.Logger  // nil uses the request logger of each call
}

// Service provides export and import of repository labels.
type Service struct {
	repo    metadata.Repository
	cached  *metadata.CachedRepository
	builder *metadata.Builder
	limiter *RunLimiter
	history history.Store
	archive storage.Store
	opts    Options

	mu   sync.RWMutex
	runs map[string]*activeRun
}

type activeRun struct {
	ID         string
	FileName   string
	Cancel     context.CancelFunc
	Progress   Progress
	Result     *ImportResult
	Done       chan struct{}
	Listeners  []chan Progress
	ListenerMu sync.Mutex
	finished   bool // guarded by ListenerMu
}

// NewService creates a Service over repo.
func NewService(repo metadata.Repository, opts Options) (*Service, error) {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 30 * time.Minute
	}
	if opts.ResultRetention <= 0 {
		opts.ResultRetention = 5 * time.Minute
	}
	if opts.History == nil {
		opts.History = history.NewMemoryStore()
	}

	cached, err := metadata.NewCachedRepository(repo, opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create metadata cache: %w", err)
	}

	sweeper := metadata.NewSweeper(cached,
		metadata.WithSettle(opts.SettleDelay, opts.SettleAttempts),
		metadata.WithSweepLogger(opts.Logger),
	)
	builder := metadata.NewBuilder(cached, sweeper, layout.NewExtractor(), opts.FetchConcurrency, opts.Logger)

	return &Service{
		repo:    repo,
		cached:  cached,
		builder: builder,
		limiter: NewRunLimiter(opts.MaxConcurrentRuns, opts.MaxWait),
		history: opts.History,
		archive: opts.Archive,
		opts:    opts,
		runs:    make(map[string]*activeRun),
	}, nil
}

func (s *Service) runLogger(ctx context.Context, runID, kind string) *slog.Logger {
	if s.opts.Logger != nil {
		return s.opts.Logger.With("run_id", runID, "run", kind)
	}
	return logging.WithRun(ctx, runID, kind)
}

// Sheets returns information about all registered sheets.
func (s *Service) Sheets() []SheetInfo {
	defs := All()
	infos := make([]SheetInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// Languages lists the base language and every provisioned language, base
// first.
func (s *Service) Languages(ctx context.Context) ([]locale.Language, error) {
	base, err := s.repo.BaseLanguage(ctx)
	if err != nil {
		return nil, failure.Connection("get base language", err)
	}
	langs, err := s.repo.Languages(ctx)
	if err != nil {
		return nil, failure.Connection("list languages", err)
	}
	return locale.Describe(metadata.SweepOrder(base, langs), base), nil
}

// Entities lists the logical names of every entity, sorted.
func (s *Service) Entities(ctx context.Context) ([]string, error) {
	names, err := s.repo.EntityNames(ctx)
	if err != nil {
		return nil, failure.Connection("list entities", err)
	}
	names = slices.Clone(names)
	slices.Sort(names)
	return names, nil
}

// LimiterStatus reports run slot usage.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until no run is active or ctx is done.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Export builds the selected metadata and lays it out as a workbook. Per-node
// fetch failures leave the node out and are counted in the result; a
// connection failure or a failed locale restore fails the export.
func (s *Service) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	runID := uuid.New().String()
	logger := s.runLogger(ctx, runID, string(history.KindExport))
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	result, err := s.export(ctx, runID, req, logger)
	if result == nil {
		result = &ExportResult{RunID: runID, FileName: req.FileName}
	}
	result.Duration = time.Since(start)

	run := history.Run{
		ID:         runID,
		Kind:       history.KindExport,
		Status:     history.StatusSucceeded,
		FileName:   result.FileName,
		Languages:  result.Languages,
		Errors:     categoryCounts(result.Errors),
		ArchiveKey: result.ArchiveKey,
		IPAddress:  GetIPAddressFromContext(ctx),
		UserAgent:  GetUserAgentFromContext(ctx),
		StartedAt:  start,
		FinishedAt: time.Now(),
	}
	for _, sh := range result.Sheets {
		run.Units += sh.Rows
	}
	if err != nil {
		run.Status = history.StatusFailed
		run.Error = err.Error()
		logger.Error("export failed", "error", err, "duration", result.Duration)
	} else if len(result.Errors) > 0 {
		run.Status = history.StatusPartial
	}
	s.recordRun(ctx, logger, run)

	if err != nil {
		return nil, err
	}
	logger.Info("export completed",
		"sheets", len(result.Sheets),
		"rows", run.Units,
		"languages", result.Languages,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *Service) export(ctx context.Context, runID string, req ExportRequest, logger *slog.Logger) (*ExportResult, error) {
	defs, err := Select(req.Sheets)
	if err != nil {
		return nil, err
	}
	filter := req.Filter
	if filter == "" {
		filter = FilterBoth
	}

	s.cached.Purge()
	tree, report, err := s.builder.Build(ctx, req.Selection, BuildOptionsFor(defs, req.Languages))
	if err != nil {
		return nil, err
	}

	langs := req.Languages
	if len(langs) == 0 {
		langs = metadata.SweepOrder(tree.BaseLanguage, tree.Languages)
	}
	wb, sheets, err := Project(tree, defs, ProjectOptions{Languages: langs, Filter: filter, Logger: logger})
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	data, err := wb.Bytes()
	if err != nil {
		return nil, err
	}

	name := req.FileName
	if name == "" {
		name = fmt.Sprintf("translations-%s.xlsx", time.Now().Format("20060102-150405"))
	}
	result := &ExportResult{
		RunID:     runID,
		FileName:  filepath.Base(name),
		Languages: langs,
		Sheets:    sheets,
		Omitted:   report.Omitted,
		Errors:    report.Errors.Counts(),
		Data:      data,
	}
	result.ArchiveKey = s.archiveWorkbook(ctx, logger, runID, result.FileName, data)
	return result, nil
}

// BuildOptionsFor returns what a build must fetch to fill defs.
func BuildOptionsFor(defs []SheetDefinition, languages []int) metadata.BuildOptions {
	opts := metadata.BuildOptions{Languages: languages}
	for _, d := range defs {
		switch d.Info.Group {
		case GroupForms:
			opts.Forms = true
		case GroupDashboards:
			opts.Dashboards = true
		case GroupSiteMaps:
			opts.SiteMaps = true
		}
	}
	return opts
}

// Sheet groups used by BuildOptionsFor.
const (
	GroupEntities   = "entities"
	GroupOptionSets = "optionsets"
	GroupForms      = "forms"
	GroupDashboards = "dashboards"
	GroupSiteMaps   = "sitemaps"
)

// Import applies an edited workbook synchronously. progress may be nil.
func (s *Service) Import(ctx context.Context, fileName string, data []byte, progress ProgressFunc) (*ImportResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	runID := uuid.New().String()
	ctx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	result := s.runImport(ctx, runID, fileName, data, progress)
	if result.Error != "" && !result.Cancelled {
		return result, errors.New(result.Error)
	}
	return result, nil
}

// StartImport begins an asynchronous import.
// Returns the run ID immediately. Use SubscribeProgress to get updates.
func (s *Service) StartImport(ctx context.Context, fileName string, data []byte) (string, error) {
	if s.opts.MaxFileSize > 0 && int64(len(data)) > s.opts.MaxFileSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(data), s.opts.MaxFileSize)
	}
	if !s.limiter.TryAcquire() {
		return "", ErrRunInProgress
	}

	runID := uuid.New().String()
	// The run outlives the request that started it.
	runCtx, cancel := context.WithTimeout(operatorContext(context.Background(), ctx), s.opts.RunTimeout)

	run := &activeRun{
		ID:       runID,
		FileName: fileName,
		Cancel:   cancel,
		Progress: Progress{RunID: runID, Phase: PhaseStarting},
		Done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.runs[runID] = run
	s.mu.Unlock()

	go func() {
		defer s.limiter.Release()
		defer cancel()
		defer func() {
			run.closeListeners()
			close(run.Done)
			s.cleanup(runID, s.opts.ResultRetention)
		}()

		run.Result = s.runImport(runCtx, runID, fileName, data, run.update)
	}()

	return runID, nil
}

func (s *Service) lookup(runID string) (*activeRun, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

// SubscribeProgress returns a channel that receives progress updates.
// The channel is closed when the run completes.
func (s *Service) SubscribeProgress(runID string) (<-chan Progress, error) {
	run, err := s.lookup(runID)
	if err != nil {
		return nil, err
	}

	ch := make(chan Progress, 10)

	run.ListenerMu.Lock()
	defer run.ListenerMu.Unlock()
	if run.finished {
		ch <- run.Progress
		close(ch)
		return ch, nil
	}
	run.Listeners = append(run.Listeners, ch)
	// Send current progress immediately
	ch <- run.Progress

	return ch, nil
}

// CancelImport requests cancellation. The run stops before its next sheet
// and is discarded: nothing is flushed or published.
func (s *Service) CancelImport(runID string) error {
	run, err := s.lookup(runID)
	if err != nil {
		return err
	}
	run.Cancel()
	return nil
}

// GetImportResult returns the result of a run.
// Blocks until the run completes if still in progress.
func (s *Service) GetImportResult(ctx context.Context, runID string) (*ImportResult, error) {
	run, err := s.lookup(runID)
	if err != nil {
		return nil, err
	}
	select {
	case <-run.Done:
		return run.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetImportProgress returns the current progress without blocking.
func (s *Service) GetImportProgress(runID string) (Progress, error) {
	run, err := s.lookup(runID)
	if err != nil {
		return Progress{}, err
	}
	run.ListenerMu.Lock()
	defer run.ListenerMu.Unlock()
	return run.Progress, nil
}

// update stores p and sends it to all listeners.
func (run *activeRun) update(p Progress) {
	run.ListenerMu.Lock()
	defer run.ListenerMu.Unlock()

	run.Progress = p
	for _, ch := range run.Listeners {
		select {
		case ch <- p:
		default:
			// Listener is slow, skip this update
		}
	}
}

// closeListeners closes all listener channels. Later subscribers get a
// closed channel holding the final progress.
func (run *activeRun) closeListeners() {
	run.ListenerMu.Lock()
	defer run.ListenerMu.Unlock()

	run.finished = true
	for _, ch := range run.Listeners {
		close(ch)
	}
	run.Listeners = nil
}

// cleanup forgets a finished run after delay.
func (s *Service) cleanup(runID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.runs, runID)
		s.mu.Unlock()
	})
}

// runImport executes one import: parse, reconcile, dispatch, record. The
// returned result is never nil; Error is set when the run failed as a whole.
func (s *Service) runImport(ctx context.Context, runID, fileName string, data []byte, progress ProgressFunc) *ImportResult {
	if progress == nil {
		progress = func(Progress) {}
	}
	logger := s.runLogger(ctx, runID, string(history.KindImport))
	start := time.Now()
	result := &ImportResult{RunID: runID, FileName: filepath.Base(fileName)}
	tally := failure.NewTally()

	fail := func(err error) *ImportResult {
		result.Error = err.Error()
		tally.Add(err)
		result.Errors = tally.Counts()
		result.Duration = time.Since(start)
		progress(Progress{RunID: runID, Phase: PhaseFailed, Error: FormatUserError(err)})
		logger.Error("import failed", "error", err, "category", failure.CategoryOf(err))
		s.recordImport(ctx, logger, result, start)
		return result
	}

	progress(Progress{RunID: runID, Phase: PhaseStarting, Status: "Reading workbook"})
	if s.opts.MaxFileSize > 0 && int64(len(data)) > s.opts.MaxFileSize {
		return fail(fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(data), s.opts.MaxFileSize))
	}
	if err := s.repo.Ping(ctx); err != nil {
		return fail(failure.Connection("ping repository", err))
	}
	result.ArchiveKey = s.archiveWorkbook(ctx, logger, runID, result.FileName, data)

	progress(Progress{RunID: runID, Phase: PhaseParsing, Status: "Parsing workbook"})
	wb, err := workbook.OpenBytes(data)
	if err != nil {
		return fail(failure.Parse("open workbook", result.FileName, err))
	}
	groups, parsed, err := NewParser(logger).Parse(wb)
	wb.Close()
	if err != nil {
		return fail(err)
	}
	tally.Merge(parsed.Errors)
	result.Rows = parsed.Rows
	result.Dropped = parsed.Dropped
	result.Skipped = parsed.Skipped
	result.Diagnostics = append(result.Diagnostics, parsed.Diagnostics...)

	s.cached.Purge()
	docs := layout.NewDocumentCache(layout.RepositoryFetch(s.cached))

	if s.opts.SkipUnchanged {
		progress(Progress{RunID: runID, Phase: PhaseReconciling, Status: "Comparing with repository", Total: CountUnits(groups)})
		var rec *ReconcileReport
		groups, rec, err = NewReconciler(s.cached, docs, logger).Reconcile(ctx, groups)
		if rec != nil {
			tally.Merge(rec.Errors)
			result.Unchanged = rec.Unchanged
			result.Diagnostics = append(result.Diagnostics, rec.Diagnostics...)
		}
		if err != nil {
			return s.cancelled(ctx, logger, result, tally, start, progress)
		}
	}
	result.Units = CountUnits(groups)

	dispatched := NewDispatcher(s.cached, docs, logger, progress).Run(ctx, runID, groups)
	tally.Merge(dispatched.Errors)
	result.Groups = dispatched.Groups
	result.Applied = dispatched.Applied
	result.Failed = dispatched.Failed
	result.DocumentsWritten = dispatched.DocumentsWritten
	result.DocumentsFailed = dispatched.DocumentsFailed
	result.Published = dispatched.Published
	result.Diagnostics = append(result.Diagnostics, dispatched.Diagnostics...)

	if dispatched.Cancelled {
		return s.cancelled(ctx, logger, result, tally, start, progress)
	}

	result.Errors = tally.Counts()
	result.Duration = time.Since(start)
	progress(Progress{
		RunID:     runID,
		Phase:     PhaseComplete,
		Status:    fmt.Sprintf("Applied %d of %d updates", result.Applied, result.Units),
		Processed: result.Applied,
		Total:     result.Units,
	})
	logger.Info("import completed",
		"units", result.Units,
		"applied", result.Applied,
		"failed", result.Failed,
		"unchanged", result.Unchanged,
		"documents", result.DocumentsWritten,
		"published", result.Published,
		"errors", tally.String(),
		"duration", result.Duration,
	)
	s.recordImport(ctx, logger, result, start)
	return result
}

func (s *Service) cancelled(ctx context.Context, logger *slog.Logger, result *ImportResult, tally *failure.Tally, start time.Time, progress ProgressFunc) *ImportResult {
	result.Cancelled = true
	result.Error = "import cancelled"
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.Error = "import timed out: context deadline exceeded"
	}
	result.Errors = tally.Counts()
	result.Duration = time.Since(start)
	progress(Progress{RunID: result.RunID, Phase: PhaseCancelled, Status: "Cancelled, no changes published"})
	logger.Warn("import cancelled", "applied", result.Applied, "reason", ctx.Err())
	s.recordImport(ctx, logger, result, start)
	return result
}

func (s *Service) recordImport(ctx context.Context, logger *slog.Logger, result *ImportResult, start time.Time) {
	run := history.Run{
		ID:         result.RunID,
		Kind:       history.KindImport,
		Status:     history.StatusSucceeded,
		FileName:   result.FileName,
		Units:      result.Units,
		Applied:    result.Applied,
		Failed:     result.Failed,
		Errors:     categoryCounts(result.Errors),
		ArchiveKey: result.ArchiveKey,
		IPAddress:  GetIPAddressFromContext(ctx),
		UserAgent:  GetUserAgentFromContext(ctx),
		Error:      result.Error,
		StartedAt:  start,
		FinishedAt: time.Now(),
	}
	switch {
	case result.Cancelled:
		run.Status = history.StatusCancelled
	case result.Error != "":
		run.Status = history.StatusFailed
	case result.Failed > 0 || result.Skipped > 0 || result.DocumentsFailed > 0:
		run.Status = history.StatusPartial
	}
	s.recordRun(ctx, logger, run)
}

func (s *Service) recordRun(ctx context.Context, logger *slog.Logger, run history.Run) {
	if err := s.history.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("run history not recorded", "error", err)
	}
}

func (s *Service) archiveWorkbook(ctx context.Context, logger *slog.Logger, runID, name string, data []byte) string {
	if s.archive == nil {
		return ""
	}
	key, err := s.archive.Put(ctx, runID, name, data)
	if err != nil {
		logger.Warn("workbook not archived", "error", err)
		return ""
	}
	return key
}

// Runs returns the most recent runs.
func (s *Service) Runs(ctx context.Context, limit int) ([]history.Run, error) {
	return s.history.List(ctx, limit)
}

// Run returns one recorded run.
func (s *Service) Run(ctx context.Context, runID string) (*history.Run, error) {
	return s.history.Get(ctx, runID)
}

// ArchivedWorkbook returns a workbook archived by a run.
func (s *Service) ArchivedWorkbook(ctx context.Context, runID string) (string, []byte, error) {
	if s.archive == nil {
		return "", nil, storage.ErrNotFound
	}
	run, err := s.history.Get(ctx, runID)
	if err != nil {
		return "", nil, err
	}
	if run.ArchiveKey == "" {
		return "", nil, storage.ErrNotFound
	}
	name := run.ArchiveKey[strings.LastIndex(run.ArchiveKey, "/")+1:]
	data, err := s.archive.Get(ctx, runID, name)
	return name, data, err
}

func categoryCounts(counts map[failure.Category]int) map[string]int {
	if len(counts) == 0 {
		return nil
	}
	out := make(map[string]int, len(counts))
	for c, n := range counts {
		out[string(c)] = n
	}
	return out
}
