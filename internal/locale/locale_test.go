package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"1036", 1036, true},
		{" 1033 ", 1033, true},
		{"fr-FR", 1036, true},
		{"en-us", 1033, true},
		{"de", 1031, true},
		{"pt", 1046, true},
		{"pt-PT", 2070, true},
		{"0", 0, false},
		{"klingon", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Parse(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNames(t *testing.T) {
	assert.Contains(t, Name(1036), "French")
	assert.Contains(t, SelfName(1036), "français")
	assert.Equal(t, "9999", Name(9999))
	assert.Equal(t, "9999", SelfName(9999))

	tag, ok := Tag(1031)
	assert.True(t, ok)
	assert.Equal(t, "de-DE", tag.String())
}

func TestDescribe(t *testing.T) {
	got := Describe([]int{1033, 1036, 9999}, 1033)
	assert.Len(t, got, 3)
	assert.True(t, got[0].Base)
	assert.Equal(t, "en-US", got[0].Tag)
	assert.False(t, got[1].Base)
	assert.Empty(t, got[2].Tag)
	assert.Equal(t, "9999", got[2].Name)
}
