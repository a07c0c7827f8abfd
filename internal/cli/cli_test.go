package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/labelbook/internal/config"
	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/metadata/memrepo"
	"github.com/JonMunkholm/labelbook/internal/workbook"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func sampleSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repo.json")
	_, err := execute(t, "init-sample", path)
	require.NoError(t, err)
	return path
}

func writeFrenchAccount(t *testing.T, dir string) string {
	t.Helper()
	wb, err := workbook.New()
	require.NoError(t, err)
	defer wb.Close()
	require.NoError(t, wb.AddSheet("Entities", []any{"Entity Id", "Entity Logical Name", "Type", 1033, 1036}, nil))
	require.NoError(t, wb.Append("Entities", []any{"", "account", "DisplayName", "Account", "Client"}))
	data, err := wb.Bytes()
	require.NoError(t, err)

	path := filepath.Join(dir, "fr.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func frenchName(t *testing.T, snapshot string) string {
	t.Helper()
	repo, err := memrepo.Load(snapshot)
	require.NoError(t, err)
	got, _ := repo.Entity("account").Labels.Get("DisplayName", 1036)
	return got
}

func TestInitSample(t *testing.T) {
	path := sampleSnapshot(t)

	_, err := execute(t, "init-sample", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "init-sample", "--force", path)
	require.NoError(t, err)
	assert.Equal(t, "Compte", frenchName(t, path))
}

func TestExportCommand(t *testing.T) {
	snapshot := sampleSnapshot(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "book.xlsx")
	profile := filepath.Join(dir, "profile.yaml")

	stdout, err := execute(t, "export", "--snapshot", snapshot,
		"--sheets", "entities", "--languages", "en-US,fr-FR",
		"-o", out, "--save-profile", profile)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Exported "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	wb, err := workbook.OpenBytes(data)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"Entities"}, wb.SheetNames())
	rows, err := wb.Rows("Entities")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"1033", "1036"}, rows[0][len(rows[0])-2:])

	saved, err := LoadProfile(profile)
	require.NoError(t, err)
	assert.Equal(t, []string{"en-US", "fr-FR"}, saved.Languages)
	assert.Equal(t, []string{"entities"}, saved.Sheets)

	// The saved profile reproduces the export.
	again := filepath.Join(dir, "again.xlsx")
	_, err = execute(t, "export", "--snapshot", snapshot, "--profile", profile, "-o", again)
	require.NoError(t, err)
	assert.FileExists(t, again)
}

func TestExportCommand_UnknownSheet(t *testing.T) {
	_, err := execute(t, "export", "--sheets", "nope", "-o", filepath.Join(t.TempDir(), "x.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHEET002")
}

func TestImportCommand_SavesSnapshot(t *testing.T) {
	snapshot := sampleSnapshot(t)
	book := writeFrenchAccount(t, t.TempDir())

	stdout, err := execute(t, "import", "-q", "--snapshot", snapshot, book)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 applied")
	assert.Contains(t, stdout, "Customizations published.")
	assert.Equal(t, "Client", frenchName(t, snapshot))

	// Importing the same workbook again changes nothing.
	stdout, err = execute(t, "import", "-q", "--snapshot", snapshot, book)
	require.NoError(t, err)
	assert.Contains(t, stdout, "0 applied")
	assert.Contains(t, stdout, "Customizations published.")
}

func TestImportCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "import", filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read workbook")
}

func TestPreviewCommand(t *testing.T) {
	snapshot := sampleSnapshot(t)
	book := writeFrenchAccount(t, t.TempDir())

	stdout, err := execute(t, "preview", "--snapshot", snapshot, book)
	require.NoError(t, err)
	assert.Contains(t, stdout, "changed 1")
	assert.Contains(t, stdout, `"Compte" -> "Client"`)
	assert.Equal(t, "Compte", frenchName(t, snapshot), "preview writes nothing")
}

func TestListCommands(t *testing.T) {
	stdout, err := execute(t, "languages")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1033")
	assert.Contains(t, stdout, "(base)")

	stdout, err = execute(t, "sheets")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Entities")
	assert.Contains(t, stdout, "optionsets")

	stdout, err = execute(t, "runs")
	require.NoError(t, err)
	assert.Contains(t, stdout, "KIND")
}

func TestProfileRequest(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    []int
		filter  core.LabelFilter
		wantErr string
	}{
		{name: "tags and codes", profile: Profile{Languages: []string{"en-US", "1036"}, Filter: "names"}, want: []int{1033, 1036}, filter: core.FilterNames},
		{name: "empty", profile: Profile{}},
		{name: "bad filter", profile: Profile{Filter: "labels"}, wantErr: "unknown filter"},
		{name: "bad language", profile: Profile{Languages: []string{"klingon"}}, wantErr: "unknown language"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.profile.Request()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Languages)
			assert.Equal(t, tt.filter, req.Filter)
		})
	}
}

func TestBuildRequest(t *testing.T) {
	cfg, err := config.LoadFrom(func(k string) string {
		return map[string]string{"EXPORT_LANGUAGES": "1033", "EXPORT_FILTER": "descriptions"}[k]
	})
	require.NoError(t, err)

	profile := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, (&Profile{Sheets: []string{"forms"}, Filter: "names"}).Save(profile))

	req, err := buildRequest(&exportOptions{profile: profile, entities: []string{"account"}}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"forms"}, req.Sheets)
	assert.Equal(t, []string{"account"}, req.Selection.Entities)
	assert.Equal(t, core.FilterNames, req.Filter, "profile wins over the configured filter")
	assert.Equal(t, []int{1033}, req.Languages, "configured languages fill the gap")

	req, err = buildRequest(&exportOptions{profile: profile, filter: "both", sheets: []string{"entities"}, out: "/tmp/x/out.xlsx"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"entities"}, req.Sheets)
	assert.Equal(t, core.FilterBoth, req.Filter)
	assert.Equal(t, "out.xlsx", req.FileName)
}

func TestProgressView(t *testing.T) {
	var buf bytes.Buffer
	v := newProgressView(&buf, false)
	v.Update(core.Progress{Phase: core.PhaseParsing, Status: "Parsing workbook"})
	v.Update(core.Progress{Phase: core.PhaseApplying, Group: "Entities", Total: 2})
	v.Update(core.Progress{Phase: core.PhaseApplying, Group: "Entities", Processed: 2, Total: 2})
	v.Update(core.Progress{Phase: core.PhaseComplete, Status: "Applied 2 of 2 updates"})

	out := buf.String()
	assert.Contains(t, out, "Parsing workbook...")
	assert.Contains(t, out, "Entities")
	assert.Contains(t, out, "Applied 2 of 2 updates")

	buf.Reset()
	quiet := newProgressView(&buf, true)
	quiet.Update(core.Progress{Phase: core.PhaseApplying, Group: "Entities", Total: 2})
	assert.Empty(t, buf.String())
}
