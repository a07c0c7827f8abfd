package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "run-1/book.xlsx", ObjectKey("run-1", "book.xlsx"))
	assert.Equal(t, "run-1/book.xlsx", ObjectKey(" run-1 ", "/uploads/book.xlsx"))
	assert.Equal(t, "run-1/book.xlsx", ObjectKey("run-1", "../../book.xlsx"))
}

func TestDiskStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "archive")
	store, err := NewDiskStore(dir)
	require.NoError(t, err)

	key, err := store.Put(ctx, "run-1", "b.xlsx", []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, "run-1/b.xlsx", key)
	_, err = store.Put(ctx, "run-1", "a.xlsx", []byte("first"))
	require.NoError(t, err)

	data, err := store.Get(ctx, "run-1", "b.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	_, err = store.Get(ctx, "run-1", "missing.xlsx")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := store.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.xlsx", "b.xlsx"}, names)

	names, err = store.List(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDiskStore_Validation(t *testing.T) {
	ctx := context.Background()
	_, err := NewDiskStore(" ")
	assert.Error(t, err)

	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Put(ctx, "", "a.xlsx", nil)
	assert.EqualError(t, err, "run id is required")
	_, err = store.Get(ctx, "run-1", "")
	assert.EqualError(t, err, "file name is required")
}
