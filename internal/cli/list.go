package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/labelbook/internal/core"
)

func newLanguagesCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the repository's provisioned languages, base first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.open(cmd, false); err != nil {
				return err
			}
			defer s.close()

			langs, err := s.app.Service.Languages(cmd.Context())
			if err != nil {
				return failed("languages", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LCID\tTAG\tNAME\tNATIVE\t")
			for _, l := range langs {
				name := l.Name
				if l.Base {
					name += " (base)"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t\n", l.LCID, l.Tag, name, l.SelfName)
			}
			return tw.Flush()
		},
	}
}

func newSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets",
		Short: "List the workbook sheets and their groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tGROUP\tSHEET\tCOLUMNS\t")
			for _, def := range core.All() {
				info := def.Info
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", info.Key, info.Group, info.Name, strings.Join(info.Columns, ", "))
			}
			return tw.Flush()
		},
	}
}

func newRunsCmd(s *session) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded export and import runs, newest first",
		Long:  "Runs are only kept across invocations when DATABASE_URL points at PostgreSQL.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.open(cmd, false); err != nil {
				return err
			}
			defer s.close()

			runs, err := s.app.Service.Runs(cmd.Context(), limit)
			if err != nil {
				return failed("runs", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tFILE\tAPPLIED\tFAILED\tSTARTED\t")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t\n",
					r.ID, r.Kind, r.Status, r.FileName, r.Applied, r.Failed, r.StartedAt.Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list (0 for all)")
	return cmd
}
