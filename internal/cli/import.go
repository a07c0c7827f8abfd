package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/failure"
)

// maxListed caps diagnostics printed after a run.
const maxListed = 20

func newImportCmd(s *session) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "import <workbook.xlsx>",
		Short: "Apply an edited workbook to the repository",
		Long: `Import reads every recognised sheet, skips translations that already match
the repository, applies the rest sheet by sheet and publishes once.

With a snapshot repository the changes are saved back to the snapshot file.
Interrupting the import stops it before the next sheet; nothing is published.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, s, args[0], quiet)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide progress bars")
	return cmd
}

func runImport(cmd *cobra.Command, s *session, path string, quiet bool) (err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read workbook: %w", err)
	}

	if err := s.open(cmd, true); err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	view := newProgressView(cmd.ErrOrStderr(), quiet)
	result, err := s.app.Service.Import(ctx, path, data, view.Update)
	if result == nil {
		return failed("import", err)
	}

	printImportResult(cmd.OutOrStdout(), result)
	if s.cfg.Repository.SnapshotPath == "" && result.Applied > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshot configured: changes were applied to the built-in sample and are not kept.")
	}
	if err != nil {
		return failed("import", err)
	}
	if result.Cancelled {
		return errors.New(result.Error)
	}
	return nil
}

func printImportResult(w io.Writer, r *core.ImportResult) {
	fmt.Fprintf(w, "Rows read: %d (dropped %d, skipped %d)\n", r.Rows, r.Dropped, r.Skipped)
	fmt.Fprintf(w, "Updates: %d applied, %d failed, %d unchanged\n", r.Applied, r.Failed, r.Unchanged)
	for _, g := range r.Groups {
		fmt.Fprintf(w, "  %-28s %5d/%-5d failed %d\n", g.Sheet, g.Applied, g.Units, g.Failed)
	}
	if r.DocumentsWritten+r.DocumentsFailed > 0 {
		fmt.Fprintf(w, "Layouts: %d written, %d failed\n", r.DocumentsWritten, r.DocumentsFailed)
	}
	if r.Published {
		fmt.Fprintln(w, "Customizations published.")
	}
	if len(r.Errors) > 0 {
		fmt.Fprint(w, "Errors:")
		for _, c := range failure.Categories {
			if n := r.Errors[c]; n > 0 {
				fmt.Fprintf(w, " %s=%d", c, n)
			}
		}
		if n := r.Errors[failure.Unknown]; n > 0 {
			fmt.Fprintf(w, " %s=%d", failure.Unknown, n)
		}
		fmt.Fprintln(w)
	}
	printDiagnostics(w, r.Diagnostics)
	fmt.Fprintf(w, "Run %s finished in %s\n", r.RunID, r.Duration.Round(time.Millisecond))
}

func printDiagnostics(w io.Writer, diags []core.Diagnostic) {
	for i, d := range diags {
		if i == maxListed {
			fmt.Fprintf(w, "  ... and %d more\n", len(diags)-maxListed)
			return
		}
		where := d.Target
		if d.Sheet != "" {
			where = fmt.Sprintf("%s:%d", d.Sheet, d.Line)
		}
		fmt.Fprintf(w, "  [%s] %s %s\n", d.Category, where, d.Message)
	}
}
