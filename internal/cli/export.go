package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/labelbook/internal/config"
	"github.com/JonMunkholm/labelbook/internal/core"
)

type exportOptions struct {
	profile     string
	saveProfile string
	out         string
	entities    []string
	dashboards  []string
	siteMaps    []string
	languages   []string
	filter      string
	sheets      []string
}

func newExportCmd(s *session) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the repository labels to a workbook",
		Long: `Export writes one sheet per label kind with a column per language.

Scope comes from a YAML profile (--profile) and is narrowed or extended by
flags; flags win over the profile. Languages and filter fall back to
EXPORT_LANGUAGES and EXPORT_FILTER.

Examples:
  labelbook export --entities account,contact --languages en-US,fr-FR
  labelbook export --profile sales.yaml -o sales.xlsx
  labelbook export --sheets entities,forms --save-profile sales.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, s, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.profile, "profile", "", "YAML export profile")
	f.StringVar(&opts.saveProfile, "save-profile", "", "write the effective request as a profile")
	f.StringVarP(&opts.out, "output", "o", "", "output file (default: generated name)")
	f.StringSliceVar(&opts.entities, "entities", nil, "entity logical names")
	f.StringSliceVar(&opts.dashboards, "dashboards", nil, "dashboard ids")
	f.StringSliceVar(&opts.siteMaps, "sitemaps", nil, "site map ids")
	f.StringSliceVar(&opts.languages, "languages", nil, "LCIDs or tags in column order")
	f.StringVar(&opts.filter, "filter", "", "both, names or descriptions")
	f.StringSliceVar(&opts.sheets, "sheets", nil, "sheet keys or groups")
	return cmd
}

// buildRequest merges profile, flags and configured defaults.
func buildRequest(opts *exportOptions, cfg *config.Config) (core.ExportRequest, error) {
	profile := &Profile{}
	if opts.profile != "" {
		p, err := LoadProfile(opts.profile)
		if err != nil {
			return core.ExportRequest{}, err
		}
		profile = p
	}

	if len(opts.entities) > 0 {
		profile.Selection.Entities = opts.entities
	}
	if len(opts.dashboards) > 0 {
		profile.Selection.Dashboards = opts.dashboards
	}
	if len(opts.siteMaps) > 0 {
		profile.Selection.SiteMaps = opts.siteMaps
	}
	if len(opts.languages) > 0 {
		profile.Languages = opts.languages
	}
	if opts.filter != "" {
		profile.Filter = opts.filter
	}
	if len(opts.sheets) > 0 {
		profile.Sheets = opts.sheets
	}
	if opts.out != "" {
		profile.FileName = filepath.Base(opts.out)
	}

	req, err := profile.Request()
	if err != nil {
		return req, err
	}
	if len(req.Languages) == 0 {
		if req.Languages, err = cfg.ExportLanguageCodes(); err != nil {
			return req, err
		}
	}
	if req.Filter == "" {
		req.Filter, _ = core.ParseLabelFilter(cfg.Export.Filter)
	}
	return req, nil
}

func runExport(cmd *cobra.Command, s *session, opts *exportOptions) error {
	if err := s.open(cmd, false); err != nil {
		return err
	}
	defer s.close()

	req, err := buildRequest(opts, s.cfg)
	if err != nil {
		return err
	}
	if opts.saveProfile != "" {
		if err := ProfileFrom(req).Save(opts.saveProfile); err != nil {
			return err
		}
	}

	result, err := s.app.Service.Export(cmd.Context(), req)
	if err != nil {
		return failed("export", err)
	}

	path := opts.out
	if path == "" {
		path = result.FileName
	}
	if err := os.WriteFile(path, result.Data, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Exported %s (%d languages) in %s\n", path, len(result.Languages), result.Duration.Round(time.Millisecond))
	for _, sheet := range result.Sheets {
		fmt.Fprintf(out, "  %-28s %6d rows\n", sheet.Name, sheet.Rows)
	}
	if len(result.Omitted) > 0 {
		fmt.Fprintf(out, "Omitted %d nodes that could not be read:\n", len(result.Omitted))
		for _, node := range result.Omitted {
			fmt.Fprintf(out, "  %s\n", node)
		}
	}
	return nil
}
