package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/labelbook/internal/failure"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"connection category", failure.Connection("ping repository", errors.New("dial tcp: i/o")), "CONN001"},
		{"fetch category", failure.Fetch("retrieve forms", "account", errors.New("boom")), "FETCH001"},
		{"reference category", failure.NotFound("find option", "option account industrycode=9"), "REF001"},
		{"update category", failure.Update("update", "entity account", errors.New("denied")), "UPD001"},
		{"locale restore category", failure.LocaleRestore(1033, errors.New("denied")), "LOC001"},
		{"run in progress", fmt.Errorf("start import: %w", ErrRunInProgress), "RUN001"},
		{"no language columns", errors.New("Entities: no language columns in header"), "SHEET001"},
		{"invalid workbook", errors.New("open workbook: zip: not a valid zip file"), "FILE002"},
		{"publish beats update category", failure.Update("publish", "all", errors.New("locked")), "UPD002"},
		{"unknown error", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, MapError(tt.err).Code)
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrRunInProgress)
	assert.Equal(t, "Another export or import is running (Code: RUN001). Wait for it to finish and try again", got)
	assert.Empty(t, FormatUserError(nil))
}

func TestIsUserFacing(t *testing.T) {
	assert.True(t, IsUserFacing(failure.NotFound("find attribute", "account.name")))
	assert.False(t, IsUserFacing(errors.New("something odd")))
	assert.False(t, IsUserFacing(nil))
}

func TestNewUserError(t *testing.T) {
	assert.Nil(t, NewUserError(nil))

	orig := failure.Update("update", "entity account", errors.New("denied"))
	ue := NewUserError(orig)
	assert.Equal(t, "UPD001", ue.User.Code)
	assert.Equal(t, ue.User.Message, ue.Error())
	assert.ErrorIs(t, ue, orig)
}
