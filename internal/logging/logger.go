// Package logging configures log/slog for labelbook.
//
// HTTP handlers log through FromContext, which tags entries with chi's
// request id. Export and import runs outlive the request that started them
// and log through WithRun instead.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs the default logger on stdout.
//
// level is debug, info, warn or error (default info); format is text or
// json (default text).
func Setup(level, format string) {
	SetupTo(os.Stdout, level, format)
}

// SetupTo is Setup writing to w. The CLI logs to stderr so that command
// output stays clean.
func SetupTo(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// FromContext returns the default logger, tagged with request_id when ctx
// carries one.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// WithRun returns the context logger tagged with a run id and kind
// ("export" or "import").
//
//	logger := logging.WithRun(ctx, runID, "import")
//	logger.Info("sheet applied", "sheet", g.Sheet)
func WithRun(ctx context.Context, runID, kind string) *slog.Logger {
	return FromContext(ctx).With("run_id", runID, "run", kind)
}
