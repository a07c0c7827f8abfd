package layout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/labelbook/internal/failure"
	"github.com/JonMunkholm/labelbook/internal/metadata"
)

const formXML = `<form><tabs>` +
	`<tab name="general" id="{aaaaaaaa-0000-0000-0000-000000000001}">` +
	`<labels><label description="General" languagecode="1033" /></labels>` +
	`<columns><column><sections>` +
	`<section name="summary" id="{bbbbbbbb-0000-0000-0000-000000000001}">` +
	`<labels><label description="Summary" languagecode="1033" /></labels>` +
	`<rows><row><cell id="{cccccccc-0000-0000-0000-000000000001}">` +
	`<control datafieldname="name" />` +
	`</cell></row></rows>` +
	`</section></sections></column></columns>` +
	`</tab></tabs></form>`

const siteMapXML = `<SiteMap>` +
	`<Area Id="area_sales">` +
	`<Titles><Title LCID="1033" Title="Sales" /><Title LCID="1036" Title="Ventes" /></Titles>` +
	`<Group Id="group_customers">` +
	`<Titles><Title LCID="1033" Title="Customers" /></Titles>` +
	`<SubArea Id="sub_accounts" Entity="account" />` +
	`</Group></Area></SiteMap>`

func tab() Target {
	return Target{Kind: metadata.KindFormTab, ID: "AAAAAAAA-0000-0000-0000-000000000001", Qualifier: metadata.Label}
}

// ----------------------------------------------------------------------------
// Caption Lookup Tests
// ----------------------------------------------------------------------------

func TestCaptionFor(t *testing.T) {
	c, err := CaptionFor(metadata.KindFormSection, metadata.Label)
	require.NoError(t, err)
	assert.Equal(t, "labels", c.Container)

	c, err = CaptionFor(metadata.KindSiteMapGroup, metadata.Description)
	require.NoError(t, err)
	assert.Equal(t, "Descriptions", c.Container)

	_, err = CaptionFor(metadata.KindSiteMapArea, metadata.DisplayName)
	assert.Error(t, err)

	_, err = CaptionFor(metadata.KindEntity, metadata.DisplayName)
	assert.Error(t, err)
}

// ----------------------------------------------------------------------------
// Patch Tests
// ----------------------------------------------------------------------------

func TestPatch_RebuildsFromTranslations(t *testing.T) {
	german := strings.Replace(formXML,
		`<labels><label description="General" languagecode="1033" /></labels>`,
		`<labels><label description="Allgemein" languagecode="1031" /><label description="General" languagecode="1033" /></labels>`, 1)

	out, changed, err := Patch(german, tab(), []metadata.Translation{{Language: 1033, Text: "Summary"}})
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := Read(out, tab())
	require.NoError(t, err)
	assert.Equal(t, []metadata.Translation{{Language: 1033, Text: "Summary"}}, got, "languages outside the translations are removed")

	out, changed, err = Patch(formXML, tab(), []metadata.Translation{
		{Language: 1036, Text: "Général"},
		{Language: 1033, Text: "General"},
	})
	require.NoError(t, err)
	assert.True(t, changed)
	got, err = Read(out, tab())
	require.NoError(t, err)
	assert.Equal(t, []metadata.Translation{
		{Language: 1033, Text: "General"},
		{Language: 1036, Text: "Général"},
	}, got)

	section := Target{Kind: metadata.KindFormSection, ID: "bbbbbbbb-0000-0000-0000-000000000001", Qualifier: metadata.Label}
	got, err = Read(out, section)
	require.NoError(t, err)
	assert.Equal(t, []metadata.Translation{{Language: 1033, Text: "Summary"}}, got, "descendant captions untouched")
}

func TestSameCaptions(t *testing.T) {
	en := metadata.Translation{Language: 1033, Text: "General"}
	fr := metadata.Translation{Language: 1036, Text: "Général"}
	blank := metadata.Translation{Language: 1031, Text: " "}

	assert.True(t, SameCaptions([]metadata.Translation{fr, en}, []metadata.Translation{en, fr}))
	assert.True(t, SameCaptions([]metadata.Translation{en, blank}, []metadata.Translation{en}), "blank captions carry nothing")
	assert.False(t, SameCaptions([]metadata.Translation{en, fr}, []metadata.Translation{en}))
	assert.False(t, SameCaptions([]metadata.Translation{en}, []metadata.Translation{{Language: 1033, Text: "General "}}))
}

func TestPatch_NoChangeReturnsInput(t *testing.T) {
	out, changed, err := Patch(formXML, tab(), []metadata.Translation{{Language: 1033, Text: "General"}})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, formXML, out)
}

func TestPatch_CreatesContainerAsDirectChild(t *testing.T) {
	cell := Target{Kind: metadata.KindFormField, ID: "cccccccc-0000-0000-0000-000000000001", Qualifier: metadata.Label}
	out, changed, err := Patch(formXML, cell, []metadata.Translation{{Language: 1033, Text: "Account Name"}})
	require.NoError(t, err)
	assert.True(t, changed)

	d, err := parse(out)
	require.NoError(t, err)
	el := locate(d, cell)
	require.NotNil(t, el)
	require.NotNil(t, el.SelectElement("labels"))
	assert.Equal(t, 0, el.SelectElement("labels").Index(), "container goes first")
	assert.NotNil(t, el.SelectElement("control"))
}

func TestPatch_FallsBackToName(t *testing.T) {
	byName := Target{Kind: metadata.KindFormSection, ID: "dddddddd-0000-0000-0000-000000000009", Name: "summary", Qualifier: metadata.Label}
	out, changed, err := Patch(formXML, byName, []metadata.Translation{{Language: 1036, Text: "Résumé"}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, out, `description="Résumé"`)
}

func TestPatch_Errors(t *testing.T) {
	missing := Target{Kind: metadata.KindFormTab, ID: "eeeeeeee-0000-0000-0000-000000000001", Qualifier: metadata.Label}
	_, _, err := Patch(formXML, missing, []metadata.Translation{{Language: 1033, Text: "x"}})
	assert.True(t, errors.Is(err, ErrElementNotFound))

	_, _, err = Patch("<form", tab(), nil)
	assert.Error(t, err)

	_, _, err = Patch("", tab(), nil)
	assert.Error(t, err)
}

func TestPatch_SiteMapDescriptionAfterTitles(t *testing.T) {
	area := Target{Kind: metadata.KindSiteMapArea, ID: "area_sales", Qualifier: metadata.Description}
	out, changed, err := Patch(siteMapXML, area, []metadata.Translation{{Language: 1033, Text: "Sales area"}})
	require.NoError(t, err)
	assert.True(t, changed)

	d, err := parse(out)
	require.NoError(t, err)
	el := locate(d, area)
	require.NotNil(t, el)
	titles := el.SelectElement("Titles")
	descriptions := el.SelectElement("Descriptions")
	require.NotNil(t, descriptions)
	assert.Equal(t, titles.Index()+1, descriptions.Index())

	got, err := Read(out, Target{Kind: metadata.KindSiteMapArea, ID: "area_sales", Qualifier: metadata.Title})
	require.NoError(t, err)
	assert.Len(t, got, 2, "titles untouched")
}

func TestPatch_SiteMapDescriptionWithoutTitles(t *testing.T) {
	const doc = `<SiteMap><Area Id="area_service">` +
		`<Group Id="group_cases"><Titles><Title LCID="1033" Title="Cases" /></Titles></Group>` +
		`</Area></SiteMap>`
	area := Target{Kind: metadata.KindSiteMapArea, ID: "area_service", Qualifier: metadata.Description}

	out, changed, err := Patch(doc, area, []metadata.Translation{{Language: 1033, Text: "Service area"}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, out, `LCID="1033" Description="Service area"`, "LCID is written first")

	d, err := parse(out)
	require.NoError(t, err)
	el := locate(d, area)
	require.NotNil(t, el)
	assert.Nil(t, el.SelectElement("Titles"), "no Titles container is created")
	descriptions := el.SelectElement("Descriptions")
	require.NotNil(t, descriptions)
	assert.Equal(t, 0, descriptions.Index())

	group := locate(d, Target{Kind: metadata.KindSiteMapGroup, ID: "group_cases"})
	require.NotNil(t, group)
	assert.Nil(t, group.SelectElement("Descriptions"), "the child group keeps its own containers")
	assert.Len(t, group.SelectElement("Titles").SelectElements("Title"), 1)
}

// ----------------------------------------------------------------------------
// Extraction Tests
// ----------------------------------------------------------------------------

func TestExtractForm_AccumulatesLanguages(t *testing.T) {
	form := &metadata.Form{ID: "f1", Entity: "account", Name: "Account"}
	x := NewExtractor()

	require.NoError(t, x.ExtractForm(form, formXML, metadata.Snapshot{Language: 1033, Base: true}))
	french := strings.ReplaceAll(strings.ReplaceAll(formXML, `"General"`, `"Général"`), `"1033"`, `"1036"`)
	require.NoError(t, x.ExtractForm(form, french, metadata.Snapshot{Language: 1036}))

	require.Len(t, form.Tabs, 1)
	assert.Equal(t, "general", form.Tabs[0].TabName)
	fr, ok := form.Tabs[0].Labels.Get(metadata.Label, 1036)
	assert.True(t, ok)
	assert.Equal(t, "Général", fr)

	require.Len(t, form.Sections, 1)
	assert.Equal(t, "general", form.Sections[0].TabName)

	require.Len(t, form.Cells, 1)
	cell := form.Cells[0]
	assert.Equal(t, "name", cell.Attribute)
	assert.Equal(t, "summary", cell.SectionName)
	assert.True(t, cell.Labels.Has(metadata.Label), "uncaptioned cell still carries the qualifier")
}

func TestExtractSiteMap(t *testing.T) {
	sm := &metadata.SiteMap{ID: "sm1", XML: siteMapXML}
	require.NoError(t, NewExtractor().ExtractSiteMap(sm))

	require.Len(t, sm.Areas, 1)
	assert.Equal(t, []int{1033, 1036}, sm.Areas[0].Labels.Languages(metadata.Title))

	require.Len(t, sm.Groups, 1)
	assert.Equal(t, "area_sales", sm.Groups[0].AreaID)

	require.Len(t, sm.SubAreas, 1)
	assert.Equal(t, "group_customers", sm.SubAreas[0].GroupID)
	assert.True(t, sm.SubAreas[0].Labels.Has(metadata.Description))
}

// ----------------------------------------------------------------------------
// Document Cache Tests
// ----------------------------------------------------------------------------

func TestDocumentCache_PatchesAccumulateAndFlushOnce(t *testing.T) {
	fetches := 0
	cache := NewDocumentCache(func(ctx context.Context, key DocKey) (string, error) {
		fetches++
		return formXML, nil
	})
	key := DocKeyFor(metadata.KindFormTab, "{F1}")
	ctx := context.Background()

	_, err := cache.Patch(ctx, key, tab(), []metadata.Translation{{Language: 1036, Text: "Général"}})
	require.NoError(t, err)
	section := Target{Kind: metadata.KindFormSection, ID: "bbbbbbbb-0000-0000-0000-000000000001", Qualifier: metadata.Label}
	_, err = cache.Patch(ctx, key, section, []metadata.Translation{{Language: 1036, Text: "Résumé"}})
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)

	var writes []string
	results := cache.Flush(ctx, func(ctx context.Context, k DocKey, text string) error {
		writes = append(writes, text)
		return nil
	})
	require.Len(t, results, 1)
	require.Len(t, writes, 1)
	assert.Contains(t, writes[0], "Général")
	assert.Contains(t, writes[0], "Résumé")

	assert.Empty(t, cache.Flush(ctx, func(context.Context, DocKey, string) error {
		t.Fatal("flushed twice")
		return nil
	}))
	_, err = cache.Patch(ctx, key, tab(), nil)
	assert.Error(t, err, "flushed documents are closed")
}

func TestDocumentCache_Failures(t *testing.T) {
	cache := NewDocumentCache(func(ctx context.Context, key DocKey) (string, error) {
		if key.ID == "broken" {
			return "", errors.New("timeout")
		}
		return formXML, nil
	})
	ctx := context.Background()

	_, err := cache.Patch(ctx, DocKey{Kind: DocForm, ID: "broken"}, tab(), nil)
	assert.Equal(t, failure.FetchFailure, failure.CategoryOf(err))

	missing := Target{Kind: metadata.KindFormTab, ID: "eeeeeeee-0000-0000-0000-000000000001", Qualifier: metadata.Label}
	changed, err := cache.Patch(ctx, DocKey{Kind: DocForm, ID: "ok"}, missing, []metadata.Translation{{Language: 1033, Text: "x"}})
	assert.False(t, changed)
	assert.Equal(t, failure.ReferenceNotFound, failure.CategoryOf(err))
	assert.Empty(t, cache.Dirty())

	_, err = cache.Patch(ctx, DocKey{Kind: DocForm, ID: "ok"}, tab(), []metadata.Translation{{Language: 1033, Text: "Main"}})
	require.NoError(t, err)
	results := cache.Flush(ctx, func(context.Context, DocKey, string) error { return errors.New("denied") })
	require.Len(t, results, 1)
	assert.Equal(t, failure.UpdateFailure, failure.CategoryOf(results[0].Err))
}
