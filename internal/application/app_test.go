package application

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/labelbook/internal/config"
	"github.com/JonMunkholm/labelbook/internal/history"
	"github.com/JonMunkholm/labelbook/internal/metadata"
	"github.com/JonMunkholm/labelbook/internal/metadata/memrepo"
	"github.com/JonMunkholm/labelbook/internal/storage"
)

func load(t *testing.T, vars map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(k string) string { return vars[k] })
	require.NoError(t, err)
	return cfg
}

func TestOpen_Defaults(t *testing.T) {
	app, err := Open(context.Background(), load(t, nil), nil)
	require.NoError(t, err)
	defer app.Close()

	assert.IsType(t, &history.MemoryStore{}, app.History)
	assert.Nil(t, app.Archive)

	names, err := app.Service.Entities(context.Background())
	require.NoError(t, err)
	assert.Contains(t, names, "account")
	assert.NotEmpty(t, app.Service.Sheets())
}

func TestOpen_SnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repo.json")
	require.NoError(t, memrepo.New(memrepo.Sample()).Save(path))

	app, err := Open(context.Background(), load(t, map[string]string{
		"REPOSITORY_SNAPSHOT": path,
		"STORAGE_BACKEND":     "disk",
		"STORAGE_DIR":         filepath.Join(t.TempDir(), "archive"),
	}), nil)
	require.NoError(t, err)
	assert.IsType(t, &storage.DiskStore{}, app.Archive)

	labels := metadata.NewLabelSet()
	labels.Set(metadata.DisplayName, 1036, "Client")
	require.NoError(t, app.Repo.UpdateEntity(context.Background(), "account", labels))
	require.NoError(t, app.Close())

	reloaded, err := memrepo.Load(path)
	require.NoError(t, err)
	got, _ := reloaded.Entity("account").Labels.Get("DisplayName", 1036)
	assert.Equal(t, "Client", got)
}

func TestOpen_MissingSnapshot(t *testing.T) {
	_, err := Open(context.Background(), load(t, map[string]string{
		"REPOSITORY_SNAPSHOT": filepath.Join(t.TempDir(), "missing.json"),
	}), nil)
	assert.Error(t, err)
}

func TestServiceOptions(t *testing.T) {
	cfg := load(t, map[string]string{"RUN_MAX_CONCURRENT": "2", "IMPORT_SKIP_UNCHANGED": "false"})
	opts := ServiceOptions(cfg, nil, nil, nil)
	assert.Equal(t, 2, opts.MaxConcurrentRuns)
	assert.False(t, opts.SkipUnchanged)
	assert.Equal(t, cfg.Import.MaxFileSize, opts.MaxFileSize)
	assert.Equal(t, cfg.Run.Timeout, opts.RunTimeout)
}
