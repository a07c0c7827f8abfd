package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		start := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Record(ctx, Run{
			ID:         id,
			Kind:       KindImport,
			Status:     StatusSucceeded,
			StartedAt:  start,
			FinishedAt: start.Add(time.Minute),
		}))
	}

	got, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID, "newest first")
	assert.Equal(t, "b", runs[1].ID)

	n, err := store.Purge(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	runs, err = store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "c", runs[0].ID)
}

func TestMemoryStore_RecordReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Record(ctx, Run{ID: "a", Status: StatusFailed}))
	require.NoError(t, store.Record(ctx, Run{ID: "a", Status: StatusPartial}))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, got.Status)
}
