package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/labelbook/internal/metadata"
)

// ----------------------------------------------------------------------------
// Cell Cleaning Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "account", "account"},
		{"whitespace", "  account \t", "account"},
		{"formula prefix with quotes", `="{11111111-1111-1111-1111-111111111111}"`, "{11111111-1111-1111-1111-111111111111}"},
		{"formula prefix", "=1033", "1033"},
		{"surrounding quotes", `"account"`, "account"},
		{"single quotes", "'account'", "account"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanCell(tt.input))
		})
	}
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"1033", 1033, true},
		{"1033.0", 1033, true},
		{" 1036 ", 1036, true},
		{"100000000", 100000000, true},
		{"-1", -1, true},
		{"10.5", 0, false},
		{"Type", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseCode(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMakeHeaderIndex_FirstOccurrenceWins(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Entity Id", " entity logical name ", "Type", "Entity Id"})
	assert.Equal(t, 0, idx["entity id"])
	assert.Equal(t, 1, idx["entity logical name"])
	assert.Equal(t, 2, idx["type"])
}

// ----------------------------------------------------------------------------
// RowView Tests
// ----------------------------------------------------------------------------

func TestRowView(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Relationship Id", "Entity", "Value"})
	row := NewRowView("Relationships", 7, []string{"{77777777-AAAA-0000-0000-000000000001}", " account "}, idx)

	assert.True(t, row.Has("entity"))
	assert.False(t, row.Has("Type"))
	assert.Equal(t, "account", row.Get("Entity"))
	assert.Equal(t, "77777777-aaaa-0000-0000-000000000001", row.ID("Relationship Id"))
	assert.Equal(t, "", row.Get("Value"), "short row")

	_, err := row.Require("Value")
	assert.EqualError(t, err, "missing Value")

	_, err = row.RequireInt("Value")
	assert.Error(t, err)

	row = NewRowView("Local OptionSets", 2, []string{"", "", "1.0"}, idx)
	n, err := row.RequireInt("Value")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	row = NewRowView("Local OptionSets", 3, []string{"", "", "one"}, idx)
	_, err = row.RequireInt("Value")
	assert.EqualError(t, err, `Value "one" is not a number`)
}

// ----------------------------------------------------------------------------
// Language Column Detection Tests
// ----------------------------------------------------------------------------

func TestDetectLanguageColumns(t *testing.T) {
	tests := []struct {
		name      string
		header    []string
		from      int
		wantStart int
		wantLangs []int
		wantOK    bool
	}{
		{
			name:      "after attribute type",
			header:    []string{"Attribute Id", "Entity Logical Name", "Attribute Logical Name", "Attribute Type", "1033", "1036"},
			from:      1,
			wantStart: 4,
			wantLangs: []int{1033, 1036},
			wantOK:    true,
		},
		{
			name:      "business integer below threshold is not a language",
			header:    []string{"Id", "Name", "5", "1033"},
			from:      1,
			wantStart: 3,
			wantLangs: []int{1033},
			wantOK:    true,
		},
		{
			name:      "threshold itself is not a language",
			header:    []string{"Id", "1000", "1031"},
			from:      1,
			wantStart: 2,
			wantLangs: []int{1031},
			wantOK:    true,
		},
		{
			name:      "scan offset skips option values",
			header:    []string{"Id", "Value", "Type", "1033"},
			from:      2,
			wantStart: 3,
			wantLangs: []int{1033},
			wantOK:    true,
		},
		{
			name:      "float headers from spreadsheet tools",
			header:    []string{"Id", "Type", "1033.0", "1036.0"},
			from:      1,
			wantStart: 2,
			wantLangs: []int{1033, 1036},
			wantOK:    true,
		},
		{
			name:      "block ends at first non-numeric column",
			header:    []string{"Id", "Type", "1033", "1036", "Notes", "1031"},
			from:      1,
			wantStart: 2,
			wantLangs: []int{1033, 1036},
			wantOK:    true,
		},
		{
			name:      "no language columns",
			header:    []string{"Id", "Type", "Notes"},
			from:      1,
			wantStart: -1,
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, langs, ok := DetectLanguageColumns(tt.header, tt.from)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantLangs, langs)
		})
	}
}

// ----------------------------------------------------------------------------
// Diff / Filter / Header Tests
// ----------------------------------------------------------------------------

func TestDiff(t *testing.T) {
	incoming := metadata.NewLabelSet()
	incoming.Set(metadata.DisplayName, 1033, "Account")
	incoming.Set(metadata.DisplayName, 1036, "Client")
	incoming.Set(metadata.Description, 1033, "Customer")

	current := metadata.NewLabelSet()
	current.Set(metadata.DisplayName, 1033, "Account")
	current.Set(metadata.DisplayName, 1036, "Compte")

	diff := Diff(incoming, current)
	_, same := diff.Get(metadata.DisplayName, 1033)
	assert.False(t, same)

	got, ok := diff.Get(metadata.DisplayName, 1036)
	assert.True(t, ok)
	assert.Equal(t, "Client", got)

	got, ok = diff.Get(metadata.Description, 1033)
	assert.True(t, ok)
	assert.Equal(t, "Customer", got)

	assert.True(t, Diff(current, current).IsEmpty())
}

func TestCaptionDiff(t *testing.T) {
	current := metadata.NewLabelSet()
	current.Set(metadata.Label, 1033, "General")
	current.Set(metadata.Label, 1036, "Général")

	incoming := metadata.NewLabelSet()
	incoming.Set(metadata.Label, 1033, "General")
	assert.Equal(t, []metadata.Translation{{Language: 1033, Text: "General"}},
		captionDiff(incoming, current).Translations(metadata.Label), "a dropped language keeps the whole set")

	incoming.Set(metadata.Label, 1036, "Général")
	assert.True(t, captionDiff(incoming, current).IsEmpty())

	incoming.Set(metadata.Label, 1036, "Generale")
	assert.Len(t, captionDiff(incoming, current).Translations(metadata.Label), 2)
}

func TestParseLabelFilter(t *testing.T) {
	tests := []struct {
		input string
		want  LabelFilter
		ok    bool
	}{
		{"", FilterBoth, true},
		{"Both", FilterBoth, true},
		{"names", FilterNames, true},
		{"NamesOnly", FilterNames, true},
		{"descriptions", FilterDescriptions, true},
		{"labels", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseLabelFilter(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, FilterNames.Allows(metadata.Label))
	assert.False(t, FilterNames.Allows(metadata.Description))
	assert.True(t, FilterDescriptions.Allows(metadata.Description))
	assert.False(t, FilterDescriptions.Allows(metadata.DisplayName))
}

func TestValidateHeader(t *testing.T) {
	info := SheetInfo{
		Name:    "Attributes",
		Columns: []string{"Attribute Id", "Entity Logical Name", "Attribute Logical Name", TypeColumn},
		Keys:    []string{"Entity Logical Name", "Attribute Logical Name"},
	}

	assert.NoError(t, ValidateHeader(info, MakeHeaderIndex(info.Columns)))

	err := ValidateHeader(info, MakeHeaderIndex([]string{"Attribute Id", "Entity Logical Name"}))
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Attribute Logical Name", TypeColumn}, verr.Missing)
	assert.EqualError(t, err, "Attributes: missing required columns: Attribute Logical Name, Type")
}
