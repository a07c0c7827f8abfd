package metadata_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/labelbook/internal/failure"
	"github.com/JonMunkholm/labelbook/internal/metadata"
	"github.com/JonMunkholm/labelbook/internal/metadata/memrepo"
)

func newSweeper(repo metadata.Repository) *metadata.Sweeper {
	return metadata.NewSweeper(repo, metadata.WithSettle(0, 1))
}

func TestSweep_BaseFirstAndRestore(t *testing.T) {
	data := memrepo.Sample()
	data.UserLanguage = 1036
	repo := memrepo.New(data)

	var seen []metadata.Snapshot
	err := newSweeper(repo).Sweep(context.Background(), []int{1036}, func(ctx context.Context, snap metadata.Snapshot) error {
		active, err := repo.UserLanguage(ctx)
		require.NoError(t, err)
		assert.Equal(t, snap.Language, active)
		seen = append(seen, snap)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []metadata.Snapshot{{Language: 1033, Base: true}, {Language: 1036}}, seen)
	active, _ := repo.UserLanguage(context.Background())
	assert.Equal(t, 1036, active)
}

func TestSweep_NoSwitchWhenAlreadyInBase(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())

	err := newSweeper(repo).Sweep(context.Background(), nil, func(ctx context.Context, snap metadata.Snapshot) error {
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, repo.Stats().LocaleSwitches)
}

func TestSweep_RestoresAfterCallbackError(t *testing.T) {
	repo := memrepo.New(memrepo.Sample())
	boom := errors.New("boom")

	err := newSweeper(repo).Sweep(context.Background(), []int{1036}, func(ctx context.Context, snap metadata.Snapshot) error {
		if snap.Language == 1036 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	active, _ := repo.UserLanguage(context.Background())
	assert.Equal(t, 1033, active)
}

func TestSweep_RestoreFailureIsFatal(t *testing.T) {
	data := memrepo.Sample()
	data.Languages = []int{1033, 1036, 1031}
	data.UserLanguage = 1031
	repo := memrepo.New(data)
	repo.FailOn("SetUserLanguage", "1031", errors.New("denied"))

	calls := 0
	err := newSweeper(repo).Sweep(context.Background(), []int{1036}, func(ctx context.Context, snap metadata.Snapshot) error {
		calls++
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, failure.Is(err, failure.LocaleRestoreFailure))
	assert.True(t, failure.IsFatal(err))
}

func TestSweep_StopsOnCancelledContext(t *testing.T) {
	data := memrepo.Sample()
	data.UserLanguage = 1036
	repo := memrepo.New(data)
	ctx, cancel := context.WithCancel(context.Background())

	err := newSweeper(repo).Sweep(ctx, []int{1036}, func(ctx context.Context, snap metadata.Snapshot) error {
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	active, _ := repo.UserLanguage(context.Background())
	assert.Equal(t, 1036, active, "restored even though the sweep was cancelled")
}
