// Package storage archives the workbooks exchanged in each run.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when no object exists at a key.
var ErrNotFound = errors.New("object not found")

// ContentTypeXLSX is the media type of archived workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Store keeps workbooks by run.
type Store interface {
	// Put stores content under runID/name and returns the object key.
	Put(ctx context.Context, runID, name string, content []byte) (string, error)
	Get(ctx context.Context, runID, name string) ([]byte, error)
	List(ctx context.Context, runID string) ([]string, error)
}

// ObjectKey joins a run id and a file name into an object key.
func ObjectKey(runID, name string) string {
	normalized := strings.TrimLeft(strings.TrimSpace(name), "/")
	return strings.TrimSpace(runID) + "/" + filepath.Base(normalized)
}

func validate(runID, name string) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name is required")
	}
	return nil
}

// DiskStore keeps workbooks under a local directory.
type DiskStore struct {
	dir string
}

var _ Store = (*DiskStore)(nil)

// NewDiskStore returns a store rooted at dir, creating it if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (d *DiskStore) path(key string) string {
	return filepath.Join(d.dir, filepath.FromSlash(key))
}

func (d *DiskStore) Put(ctx context.Context, runID, name string, content []byte) (string, error) {
	if err := validate(runID, name); err != nil {
		return "", err
	}
	key := ObjectKey(runID, name)
	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return key, nil
}

func (d *DiskStore) Get(ctx context.Context, runID, name string) ([]byte, error) {
	if err := validate(runID, name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path(ObjectKey(runID, name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (d *DiskStore) List(ctx context.Context, runID string) ([]string, error) {
	entries, err := os.ReadDir(d.path(strings.TrimSpace(runID)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
