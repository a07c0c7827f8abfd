package failure

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Tally counts classified errors for one phase or run. It is safe for
// concurrent use.
type Tally struct {
	mu     sync.Mutex
	counts map[Category]int
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[Category]int)}
}

// Add classifies err and increments its category. Nil errors are ignored.
func (t *Tally) Add(err error) Category {
	if err == nil {
		return ""
	}
	cat := CategoryOf(err)
	t.mu.Lock()
	t.counts[cat]++
	t.mu.Unlock()
	return cat
}

// Record logs err with its category and severity, then counts it.
func (t *Tally) Record(ctx context.Context, logger *slog.Logger, msg string, err error, args ...any) {
	if err == nil {
		return
	}
	cat := t.Add(err)
	attrs := append([]any{"category", cat, "severity", cat.Severity(), "error", err}, args...)
	level := slog.LevelWarn
	if cat.Severity() != "warning" {
		level = slog.LevelError
	}
	logger.Log(ctx, level, msg, attrs...)
}

// Count returns the number of errors in a category.
func (t *Tally) Count(cat Category) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[cat]
}

// Total returns the number of errors recorded.
func (t *Tally) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.counts {
		n += c
	}
	return n
}

// Counts returns a copy of the per-category counts.
func (t *Tally) Counts() map[Category]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Category]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// Merge adds every count from other.
func (t *Tally) Merge(other *Tally) {
	if other == nil {
		return
	}
	for k, v := range other.Counts() {
		t.mu.Lock()
		t.counts[k] += v
		t.mu.Unlock()
	}
}

// String renders "category=n" pairs in a stable order.
func (t *Tally) String() string {
	counts := t.Counts()
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.Itoa(counts[Category(k)])
	}
	return strings.Join(parts, " ")
}
