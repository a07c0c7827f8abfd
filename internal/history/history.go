// Package history records export and import runs so operators can see what
// was sent to translators and what came back.
package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Kind is the type of run.
type Kind string

const (
	KindExport Kind = "export"
	KindImport Kind = "import"
)

// Status is how a run ended.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusPartial   Status = "partial" // finished with per-row failures
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Run is one recorded export or import.
type Run struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"kind"`
	Status     Status         `json:"status"`
	FileName   string         `json:"fileName,omitempty"`
	Languages  []int          `json:"languages,omitempty"`
	Units      int            `json:"units"`
	Applied    int            `json:"applied"`
	Failed     int            `json:"failed"`
	Errors     map[string]int `json:"errors,omitempty"` // failure category -> count
	ArchiveKey string         `json:"archiveKey,omitempty"`
	IPAddress  string         `json:"ipAddress,omitempty"`
	UserAgent  string         `json:"userAgent,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// Store persists runs.
type Store interface {
	Record(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (*Run, error)
	// List returns the most recent runs first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]Run, error)
	// Purge deletes runs that finished before cutoff.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// MemoryStore keeps runs in process. It is used when no database is
// configured.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]Run)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Record(ctx context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &run, nil
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.runs {
		if r.FinishedAt.Before(cutoff) {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}
