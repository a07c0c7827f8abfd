package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

func newPreviewCmd(s *session) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "preview <workbook.xlsx>",
		Short: "Show what an import would change without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read workbook: %w", err)
			}
			if err := s.open(cmd, false); err != nil {
				return err
			}
			defer s.close()

			preview, err := s.app.Service.PreviewImport(cmd.Context(), args[0], data)
			if err != nil {
				return failed("preview", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(preview)
			}

			sum := preview.Summary
			fmt.Fprintf(out, "Rows: %d (dropped %d, skipped %d)\n", sum.Rows, sum.Dropped, sum.Skipped)
			fmt.Fprintf(out, "Units: %d  changed %d  unchanged %d  missing %d  unknown %d\n",
				sum.Units, sum.Changed, sum.Unchanged, sum.Missing, sum.Unknown)
			for _, d := range preview.UpdateDiffs {
				fmt.Fprintf(out, "\n%s:%d %s\n", d.Sheet, d.LineNumber, d.Target)
				keys := append([]string(nil), d.Changed...)
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "  %-20s %q -> %q\n", k, d.Current[k], d.Incoming[k])
				}
			}
			if len(preview.Diagnostics) > 0 {
				fmt.Fprintln(out, "\nDiagnostics:")
				printDiagnostics(out, preview.Diagnostics)
			}
			if shown := len(preview.UpdateDiffs); shown < sum.Changed {
				fmt.Fprintf(out, "\nShowing %d of %d changed units.\n", shown, sum.Changed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the preview as JSON")
	return cmd
}
