// Package cli implements the labelbook command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/labelbook/internal/application"
	"github.com/JonMunkholm/labelbook/internal/config"
	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/logging"
)

// session is the state shared by subcommands of one invocation.
type session struct {
	envFile  string
	snapshot string
	logLevel string

	cfg *config.Config
	app *application.App
}

// open loads configuration and starts the application. save controls
// whether the repository snapshot is written back on close. Logs go to the
// command's stderr at warn level unless LOG_LEVEL or --log-level say
// otherwise.
func (s *session) open(cmd *cobra.Command, save bool) error {
	if s.envFile != "" {
		if err := godotenv.Load(s.envFile); err != nil {
			return fmt.Errorf("load %s: %w", s.envFile, err)
		}
	} else {
		_ = godotenv.Load() // optional .env in the working directory
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if s.snapshot != "" {
		cfg.Repository.SnapshotPath = s.snapshot
	}
	switch {
	case s.logLevel != "":
		cfg.Logging.Level = s.logLevel
	case os.Getenv("LOG_LEVEL") == "":
		cfg.Logging.Level = "warn"
	}
	cfg.Repository.SaveOnShutdown = save
	logging.SetupTo(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	app, err := application.Open(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.app = app
	return nil
}

func (s *session) close() error {
	if s.app == nil {
		return nil
	}
	return s.app.Close()
}

// failed wraps err for display, adding the user-facing message when the
// error maps to one.
func failed(op string, err error) error {
	if core.IsUserFacing(err) {
		return fmt.Errorf("%s: %s\n  cause: %w", op, core.FormatUserError(err), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	s := &session{}

	root := &cobra.Command{
		Use:   "labelbook",
		Short: "Export and import metadata translations through a workbook",
		Long: `labelbook exports the labels of a metadata repository into a workbook with
one column per language, and applies an edited workbook back.

The repository is a JSON snapshot (REPOSITORY_SNAPSHOT or --snapshot). Without
one, the built-in sample is used; write it out with "labelbook init-sample".`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&s.snapshot, "snapshot", "", "repository snapshot (JSON)")
	root.PersistentFlags().StringVar(&s.envFile, "env-file", "", "load environment from this file")
	root.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newExportCmd(s),
		newImportCmd(s),
		newPreviewCmd(s),
		newLanguagesCmd(s),
		newSheetsCmd(),
		newRunsCmd(s),
		newInitSampleCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
