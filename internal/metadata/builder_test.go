package metadata_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/labelbook/internal/failure"
	"github.com/JonMunkholm/labelbook/internal/layout"
	"github.com/JonMunkholm/labelbook/internal/metadata"
	"github.com/JonMunkholm/labelbook/internal/metadata/memrepo"
)

func newBuilder(repo metadata.Repository) *metadata.Builder {
	return metadata.NewBuilder(repo, newSweeper(repo), layout.NewExtractor(), 4, nil)
}

var allLayouts = metadata.BuildOptions{Forms: true, Dashboards: true, SiteMaps: true}

func TestBuild_SampleTree(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())

	tree, report, err := newBuilder(repo).Build(context.Background(), metadata.Selection{}, allLayouts)
	require.NoError(t, err)
	assert.Zero(t, report.Errors.Total())
	assert.Equal(t, 1033, tree.BaseLanguage)

	require.Len(t, tree.Tables, 2)
	account := tree.Tables[0]
	assert.Equal(t, "account", account.LogicalName)
	assert.Len(t, account.Fields, 4)
	assert.Len(t, account.Views, 1)
	assert.Len(t, account.Charts, 1)
	require.Len(t, tree.GlobalOptionSets, 1, "only sets referenced by a selected field")
	assert.Equal(t, "customercategory", tree.GlobalOptionSets[0].Name)

	require.Len(t, account.Forms, 1)
	form := account.Forms[0]
	assert.True(t, form.Base)
	require.Len(t, form.Tabs, 1)
	assert.Equal(t, []metadata.Translation{{Language: 1033, Text: "General"}, {Language: 1036, Text: "Général"}}, form.Tabs[0].Labels.Sorted(metadata.Label))
	require.Len(t, form.Cells, 1)
	assert.Equal(t, "name", form.Cells[0].Attribute)
	assert.Equal(t, "account_information", form.Cells[0].SectionName)

	got, _ := form.Labels.Get(metadata.DisplayName, 1036)
	assert.Equal(t, "Compte", got)

	require.Len(t, tree.Dashboards, 1)
	require.Len(t, tree.SiteMaps, 1)
	assert.Len(t, tree.SiteMaps[0].SubAreas, 1)
}

func TestBuild_FetchFailureOmitsTable(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	repo.FailOn("RetrieveEntity", "contact", errors.New("timeout"))

	tree, report, err := newBuilder(repo).Build(context.Background(), metadata.Selection{}, metadata.BuildOptions{})
	require.NoError(t, err)
	require.Len(t, tree.Tables, 1)
	assert.Equal(t, "account", tree.Tables[0].LogicalName)
	assert.Equal(t, []string{"contact"}, report.Omitted)
	assert.Equal(t, 1, report.Errors.Count(failure.FetchFailure))
}

func TestBuild_ConnectionFailureIsFatal(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	repo.SetOffline(true)

	_, _, err := newBuilder(repo).Build(context.Background(), metadata.Selection{}, metadata.BuildOptions{})
	assert.True(t, failure.Is(err, failure.ConnectionUnavailable))
}

func TestBuild_DoesNotShareRepositoryState(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())

	tree, _, err := newBuilder(repo).Build(context.Background(), metadata.Selection{Entities: []string{"account"}}, metadata.BuildOptions{})
	require.NoError(t, err)
	tree.Tables[0].Labels.Set(metadata.DisplayName, 1033, "Changed")

	got, _ := repo.Entity("account").Labels.Get(metadata.DisplayName, 1033)
	assert.Equal(t, "Account", got)
}

func TestCachedRepository_WritesEvict(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	cached, err := metadata.NewCachedRepository(repo, 16)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := cached.RetrieveEntity(ctx, "account")
	require.NoError(t, err)
	first.Labels.Set(metadata.DisplayName, 1033, "Mutated")

	again, err := cached.RetrieveEntity(ctx, "account")
	require.NoError(t, err)
	got, _ := again.Labels.Get(metadata.DisplayName, 1033)
	assert.Equal(t, "Account", got, "cached values are cloned")

	labels := metadata.NewLabelSet()
	labels.Set(metadata.DisplayName, 1033, "Client")
	require.NoError(t, cached.UpdateEntity(ctx, "account", labels))

	after, err := cached.RetrieveEntity(ctx, "account")
	require.NoError(t, err)
	got, _ = after.Labels.Get(metadata.DisplayName, 1033)
	assert.Equal(t, "Client", got)
}
