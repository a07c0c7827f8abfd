package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/labelbook/internal/core"
	_ "github.com/JonMunkholm/labelbook/internal/core/sheets"
	"github.com/JonMunkholm/labelbook/internal/failure"
	"github.com/JonMunkholm/labelbook/internal/history"
	"github.com/JonMunkholm/labelbook/internal/layout"
	"github.com/JonMunkholm/labelbook/internal/metadata"
	"github.com/JonMunkholm/labelbook/internal/metadata/memrepo"
	"github.com/JonMunkholm/labelbook/internal/workbook"
)

// sheet is one sheet of a hand-built workbook: header first.
type sheet struct {
	name string
	rows [][]any
}

func buildWorkbook(t *testing.T, sheets ...sheet) []byte {
	t.Helper()
	wb, err := workbook.New()
	require.NoError(t, err)
	defer wb.Close()

	for _, s := range sheets {
		require.NoError(t, wb.AddSheet(s.name, s.rows[0], nil))
		for _, row := range s.rows[1:] {
			require.NoError(t, wb.Append(s.name, row))
		}
	}
	data, err := wb.Bytes()
	require.NoError(t, err)
	return data
}

func newService(t *testing.T, repo metadata.Repository, skipUnchanged bool) *core.Service {
	t.Helper()
	svc, err := core.NewService(repo, core.Options{
		SkipUnchanged: skipUnchanged,
		SettleDelay:   time.Millisecond,
		History:       history.NewMemoryStore(),
	})
	require.NoError(t, err)
	return svc
}

func entitiesSheet(rows ...[]any) sheet {
	header := []any{"Entity Id", "Entity Logical Name", "Type", 1033, 1036}
	return sheet{name: "Entities", rows: append([][]any{header}, rows...)}
}

// ----------------------------------------------------------------------------
// Export
// ----------------------------------------------------------------------------

func TestExport_EntitiesSheetLayout(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	svc := newService(t, repo, false)

	res, err := svc.Export(context.Background(), core.ExportRequest{Sheets: []string{"entities"}})
	require.NoError(t, err)
	assert.Equal(t, []int{1033, 1036}, res.Languages)
	require.Len(t, res.Sheets, 1)
	assert.Equal(t, core.SheetSummary{Name: "Entities", Rows: 6}, res.Sheets[0])

	wb, err := workbook.OpenBytes(res.Data)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.Rows("Entities")
	require.NoError(t, err)
	assert.Equal(t, []string{"Entity Id", "Entity Logical Name", "Type", "1033", "1036"}, rows[0])
	// Tables are sorted by base display label: Account before Contact.
	assert.Equal(t, []string{"{" + memrepo.SampleAccountID + "}", "account", "DisplayName", "Account", "Compte"}, rows[1])
	assert.Equal(t, []string{"{" + memrepo.SampleAccountID + "}", "account", "Description", "Business that represents a customer"}, rows[3])
}

func TestGlobalOptionSets_NameInAttributeColumn(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	svc := newService(t, repo, false)
	ctx := context.Background()

	res, err := svc.Export(ctx, core.ExportRequest{Sheets: []string{"global_optionsets"}})
	require.NoError(t, err)
	wb, err := workbook.OpenBytes(res.Data)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.Rows("Global OptionSets")
	require.NoError(t, err)
	assert.Equal(t, []string{"OptionSet Id", "Attribute Logical Name", "Attribute Type", "Value", "Type", "1033", "1036"}, rows[0])
	assert.Equal(t, "customercategory", rows[1][1])

	data := buildWorkbook(t, sheet{name: "Global OptionSets", rows: [][]any{
		{"OptionSet Id", "Attribute Logical Name", "Attribute Type", "Value", "Type", 1033, 1036},
		{"", "customercategory", "Picklist", 2, "Label", "Standard", "Standard FR"},
	}})
	imported, err := svc.Import(ctx, "edited.xlsx", data, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, imported.Applied, "diagnostics: %+v", imported.Diagnostics)

	sets, err := repo.RetrieveGlobalOptionSets(ctx)
	require.NoError(t, err)
	for _, set := range sets {
		if set.Name == "customercategory" {
			got, _ := set.Option(2).Labels.Get(metadata.Label, 1036)
			assert.Equal(t, "Standard FR", got)
		}
	}
}

func TestExport_DescriptionsFilterSkipsLabelOnlySheets(t *testing.T) {
	svc := newService(t, memrepo.New(memrepo.Sample()), false)

	res, err := svc.Export(context.Background(), core.ExportRequest{
		Sheets: []string{"entities", "relationships"},
		Filter: core.FilterDescriptions,
	})
	require.NoError(t, err)
	require.Len(t, res.Sheets, 1)
	assert.Equal(t, core.SheetSummary{Name: "Entities", Rows: 2}, res.Sheets[0])
}

func TestExport_UnknownSheet(t *testing.T) {
	svc := newService(t, memrepo.New(memrepo.Sample()), false)
	_, err := svc.Export(context.Background(), core.ExportRequest{Sheets: []string{"nope"}})
	assert.EqualError(t, err, "unknown sheet or group: nope")
}

func TestExport_RestoresUserLanguage(t *testing.T) {
	data := memrepo.Sample()
	data.UserLanguage = 1036
	repo := memrepo.New(data)
	svc := newService(t, repo, false)

	_, err := svc.Export(context.Background(), core.ExportRequest{})
	require.NoError(t, err)

	lang, err := repo.UserLanguage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1036, lang)
}

// ----------------------------------------------------------------------------
// Round trip
// ----------------------------------------------------------------------------

func TestRoundTrip_UnchangedWorkbookIssuesNoWrites(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	svc := newService(t, repo, true)
	ctx := context.Background()

	exported, err := svc.Export(ctx, core.ExportRequest{})
	require.NoError(t, err)
	before := repo.Stats()

	res, err := svc.Import(ctx, exported.FileName, exported.Data, nil)
	require.NoError(t, err)

	assert.Zero(t, res.Units, "diagnostics: %+v", res.Diagnostics)
	assert.Zero(t, res.Skipped, "diagnostics: %+v", res.Diagnostics)
	assert.Positive(t, res.Unchanged)
	assert.True(t, res.Published, "a finished run always publishes")

	after := repo.Stats()
	assert.Equal(t, before.LabelUpdates, after.LabelUpdates)
	assert.Equal(t, before.RecordUpdates, after.RecordUpdates)
	assert.Equal(t, before.Publishes+1, after.Publishes)
}

func TestRoundTrip_KeepsSurroundingWhitespace(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	ctx := context.Background()
	padded := metadata.NewLabelSet()
	padded.Set(metadata.DisplayName, 1033, "Account ")
	padded.Set(metadata.Description, 1036, " Compte client")
	require.NoError(t, repo.UpdateEntity(ctx, "account", padded))

	svc := newService(t, repo, true)
	exported, err := svc.Export(ctx, core.ExportRequest{Sheets: []string{"entities"}})
	require.NoError(t, err)
	before := repo.Stats()

	res, err := svc.Import(ctx, exported.FileName, exported.Data, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Units, "diagnostics: %+v", res.Diagnostics)
	assert.Equal(t, before.LabelUpdates, repo.Stats().LabelUpdates)

	got, _ := repo.Entity("account").Labels.Get(metadata.DisplayName, 1033)
	assert.Equal(t, "Account ", got)
	got, _ = repo.Entity("account").Labels.Get(metadata.Description, 1036)
	assert.Equal(t, " Compte client", got)
}

// ----------------------------------------------------------------------------
// Parsing
// ----------------------------------------------------------------------------

func TestParse_RowsMergeIntoOneUnit(t *testing.T) {
	data := buildWorkbook(t, sheet{name: "Attributes", rows: [][]any{
		{"Attribute Id", "Entity Logical Name", "Attribute Logical Name", "Type", 1033, 1036},
		{"{66666666-0000-0000-0000-000000000001}", "account", "name", "DisplayName", "Name", "Nom"},
		{"{66666666-0000-0000-0000-000000000001}", "account", "name", "Description", "Company name", ""},
	}})
	wb, err := workbook.OpenBytes(data)
	require.NoError(t, err)
	defer wb.Close()

	groups, report, err := core.NewParser(nil).Parse(wb)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Rows)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Units, 1)

	u := groups[0].Units[0]
	assert.Equal(t, core.Target{Kind: metadata.KindAttribute, Entity: "account", Name: "name"}, u.Target)
	assert.Equal(t, []int{2, 3}, u.Lines)
	assert.Equal(t, []string{metadata.DisplayName, metadata.Description}, u.Labels.Qualifiers())

	got, _ := u.Labels.Get(metadata.DisplayName, 1036)
	assert.Equal(t, "Nom", got)
	got, _ = u.Labels.Get(metadata.Description, 1033)
	assert.Equal(t, "Company name", got)
	_, ok := u.Labels.Get(metadata.Description, 1036)
	assert.False(t, ok, "empty cells are not translations")
}

func TestParse_EntityRowBuildsUnit(t *testing.T) {
	data := buildWorkbook(t, entitiesSheet(
		[]any{"{" + memrepo.SampleAccountID + "}", "account", "DisplayName", "Client", "Compte"},
	))
	wb, err := workbook.OpenBytes(data)
	require.NoError(t, err)
	defer wb.Close()

	groups, _, err := core.NewParser(nil).Parse(wb)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	u := groups[0].Units[0]
	assert.Equal(t, core.Target{Kind: metadata.KindEntity, Entity: "account"}, u.Target)
	assert.Equal(t, []metadata.Translation{{Language: 1033, Text: "Client"}, {Language: 1036, Text: "Compte"}}, u.Labels.Sorted(metadata.DisplayName))
}

func TestParse_SkipsAndDrops(t *testing.T) {
	data := buildWorkbook(t,
		entitiesSheet(
			[]any{"{x}", "account", "DisplayName", "  ", ""},          // whitespace only: dropped
			[]any{"{x}", "", "DisplayName", "Account"},                // no logical name: skipped
			[]any{"{x}", "account", "", "Account"},                    // no type: skipped
			[]any{"{x}", "account", "Nickname", "Account"},            // unknown type: skipped
			[]any{"{x}", "account", "display name", "Account", "Cpt"}, // type is case and space insensitive
		),
		sheet{name: "Notes", rows: [][]any{{"Anything"}, {"ignored"}}},
		sheet{name: "Attributes", rows: [][]any{{"Attribute Id", "Type", "Notes"}, {"a", "b", "c"}}},
	)
	wb, err := workbook.OpenBytes(data)
	require.NoError(t, err)
	defer wb.Close()

	groups, report, err := core.NewParser(nil).Parse(wb)
	require.NoError(t, err)
	assert.Equal(t, 1, core.CountUnits(groups))
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 4, report.Skipped, "three rows and the Attributes header")
	assert.Equal(t, 4, report.Errors.Count(failure.ParseFailure))

	var messages []string
	for _, d := range report.Diagnostics {
		messages = append(messages, d.Message)
	}
	assert.Contains(t, messages, "no language columns in header")
}

func TestParse_OptionSetsAlias(t *testing.T) {
	data := buildWorkbook(t, sheet{name: "OptionSets", rows: [][]any{
		{"Attribute Id", "Entity Logical Name", "Attribute Logical Name", "Attribute Type", "Value", "Type", 1033},
		{"{66666666-0000-0000-0000-000000000002}", "account", "industrycode", "Picklist", 100000000, "Label", "Accounting"},
	}})
	wb, err := workbook.OpenBytes(data)
	require.NoError(t, err)
	defer wb.Close()

	groups, _, err := core.NewParser(nil).Parse(wb)
	require.NoError(t, err)
	require.Equal(t, 1, core.CountUnits(groups))
	assert.Equal(t, core.Target{Kind: metadata.KindOption, Entity: "account", Name: "industrycode", Value: 100000000}, groups[0].Units[0].Target)
}

// ----------------------------------------------------------------------------
// Import
// ----------------------------------------------------------------------------

func TestImport_AppliesTranslations(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	svc := newService(t, repo, false)

	data := buildWorkbook(t, entitiesSheet(
		[]any{"{" + memrepo.SampleAccountID + "}", "account", "DisplayName", "Client", "Compte"},
	))
	res, err := svc.Import(context.Background(), "edited.xlsx", data, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Applied)
	assert.True(t, res.Published)
	assert.Equal(t, 1, repo.Stats().Publishes)

	got, _ := repo.Entity("account").Labels.Get(metadata.DisplayName, 1033)
	assert.Equal(t, "Client", got)
	got, _ = repo.Entity("account").Labels.Get(metadata.DisplayCollectionName, 1036)
	assert.Equal(t, "Comptes", got, "other qualifiers untouched")
}

func TestImport_FailedUnitDoesNotStopRun(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	repo.FailOn("UpdateAttribute", "account.name", errors.New("denied"))
	svc := newService(t, repo, false)

	data := buildWorkbook(t,
		entitiesSheet([]any{"", "nosuchentity", "DisplayName", "Ghost"}),
		sheet{name: "Attributes", rows: [][]any{
			{"Attribute Id", "Entity Logical Name", "Attribute Logical Name", "Type", 1033},
			{"", "account", "name", "DisplayName", "Name"},
			{"", "account", "industrycode", "DisplayName", "Sector"},
		}},
	)
	res, err := svc.Import(context.Background(), "edited.xlsx", data, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Units)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 1, res.Errors[failure.ReferenceNotFound])
	assert.Equal(t, 1, res.Errors[failure.UpdateFailure])
	assert.True(t, res.Published)
	assert.Equal(t, 1, repo.Stats().Publishes, "published once")

	run, err := svc.Run(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, history.StatusPartial, run.Status)
}

func TestImport_LayoutCaptionsWriteEachDocumentOnce(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	svc := newService(t, repo, false)
	formID := "{" + memrepo.SampleFormID + "}"

	data := buildWorkbook(t,
		sheet{name: "Forms Tabs", rows: [][]any{
			{"Tab Id", "Entity Logical Name", "Form Name", "Form Id", "Tab Name", 1033, 1036},
			{"{" + memrepo.SampleTabID + "}", "account", "Account", formID, "general", "General", "Onglet général"},
		}},
		sheet{name: "Forms Sections", rows: [][]any{
			{"Section Id", "Entity Logical Name", "Form Name", "Form Id", "Tab Name", "Section Name", 1036},
			{"", "account", "Account", formID, "general", "account_information", "Informations"},
		}},
	)
	res, err := svc.Import(context.Background(), "edited.xlsx", data, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 1, res.DocumentsWritten)
	assert.Equal(t, 1, repo.Stats().RecordUpdates)

	xml := repo.FormXML(memrepo.SampleFormID)
	assert.Contains(t, xml, "Onglet général")
	assert.Contains(t, xml, "Informations")
	assert.Contains(t, xml, `description="General"`)
	assert.NotContains(t, xml, "Account Information", "captions are rebuilt from the workbook languages")
	assert.Contains(t, xml, "Account Name", "descendant captions untouched")
}

func TestImport_ConnectionFailureAbortsBeforeWrites(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	repo.SetOffline(true)
	svc := newService(t, repo, false)

	data := buildWorkbook(t, entitiesSheet([]any{"", "account", "DisplayName", "Client"}))
	res, err := svc.Import(context.Background(), "edited.xlsx", data, nil)
	require.Error(t, err)
	assert.Equal(t, 1, res.Errors[failure.ConnectionUnavailable])
	assert.Zero(t, repo.Stats().LabelUpdates)
}

func TestImport_RejectsInvalidWorkbook(t *testing.T) {
	svc := newService(t, memrepo.New(memrepo.Sample()), false)
	_, err := svc.Import(context.Background(), "notes.txt", []byte("not a workbook"), nil)
	require.Error(t, err)
	assert.Equal(t, "FILE002", core.MapError(err).Code)
}

func TestStartImport_ReportsProgressAndResult(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	svc := newService(t, repo, false)

	data := buildWorkbook(t, entitiesSheet([]any{"", "account", "DisplayName", "Client"}))
	runID, err := svc.StartImport(context.Background(), "edited.xlsx", data)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := svc.GetImportResult(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	progress, err := svc.GetImportProgress(runID)
	require.NoError(t, err)
	assert.Equal(t, core.PhaseComplete, progress.Phase)

	ch, err := svc.SubscribeProgress(runID)
	require.NoError(t, err)
	last, ok := <-ch
	assert.True(t, ok)
	assert.Equal(t, core.PhaseComplete, last.Phase)
	_, ok = <-ch
	assert.False(t, ok, "channel closed after the run")
}

func TestStartImport_UnknownRun(t *testing.T) {
	svc := newService(t, memrepo.New(memrepo.Sample()), false)
	_, err := svc.GetImportProgress("missing")
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	assert.ErrorIs(t, svc.CancelImport("missing"), core.ErrRunNotFound)
}

// ----------------------------------------------------------------------------
// Dispatcher
// ----------------------------------------------------------------------------

func TestDispatcher_CancelledRunNeitherFlushesNorPublishes(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	docs := layout.NewDocumentCache(layout.RepositoryFetch(repo))

	labels := metadata.NewLabelSet()
	labels.Set(metadata.DisplayName, 1033, "Client")
	groups := []core.UnitGroup{{
		Sheet: "Entities",
		Units: []*core.UpdateUnit{{Target: core.Target{Kind: metadata.KindEntity, Entity: "account"}, Labels: labels}},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := core.NewDispatcher(repo, docs, nil, nil).Run(ctx, "run", groups)
	assert.True(t, report.Cancelled)
	assert.False(t, report.Published)
	assert.Zero(t, repo.Stats().LabelUpdates)
	assert.Zero(t, repo.Stats().Publishes)
}

func TestDispatcher_ProgressResetsPerGroup(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	docs := layout.NewDocumentCache(layout.RepositoryFetch(repo))

	unit := func(entity string) *core.UpdateUnit {
		labels := metadata.NewLabelSet()
		labels.Set(metadata.DisplayName, 1033, strings.ToUpper(entity))
		return &core.UpdateUnit{Target: core.Target{Kind: metadata.KindEntity, Entity: entity}, Labels: labels}
	}
	groups := []core.UnitGroup{
		{Sheet: "Entities", Units: []*core.UpdateUnit{unit("account"), unit("contact")}},
		{Sheet: "More", Units: []*core.UpdateUnit{unit("contact")}},
	}

	var updates []core.Progress
	report := core.NewDispatcher(repo, docs, nil, func(p core.Progress) {
		if p.Phase == core.PhaseApplying {
			updates = append(updates, p)
		}
	}).Run(context.Background(), "run", groups)

	assert.Equal(t, 3, report.Applied)
	require.NotEmpty(t, updates)
	last := map[string]core.Progress{}
	for _, p := range updates {
		last[p.Group] = p
	}
	assert.Equal(t, 2, last["Entities"].Total)
	assert.Equal(t, 1, last["More"].Total)
	assert.Equal(t, 1, last["More"].Processed)
}
