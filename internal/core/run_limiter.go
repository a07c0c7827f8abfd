package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrRunInProgress is returned when every run slot stays taken for the whole
// wait. Clients should retry once the current run finishes.
var ErrRunInProgress = errors.New("another translation run is in progress, please try again later")

const (
	// DefaultMaxConcurrentRuns allows one run per service. A run reads and
	// writes a single repository from start to publish.
	DefaultMaxConcurrentRuns = 1
	// DefaultMaxWaitTime bounds how long Acquire queues for a slot.
	DefaultMaxWaitTime = 30 * time.Second
)

// RunLimiter admits whole exports and imports against one service's
// repository. It spans the run from workbook to publish; the locale lock in
// package metadata only spans a language sweep and is shared by every
// service in the process.
type RunLimiter struct {
	slots   int64
	sem     *semaphore.Weighted
	maxWait time.Duration

	mu     sync.Mutex
	active int
	idle   chan struct{} // closed while active is zero
}

// NewRunLimiter admits maxConcurrent runs and queues callers for up to
// maxWait. Non-positive values fall back to the defaults.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	idle := make(chan struct{})
	close(idle)
	return &RunLimiter{
		slots:   int64(maxConcurrent),
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		maxWait: maxWait,
		idle:    idle,
	}
}

// Acquire takes a slot, queueing for at most the limiter's wait. It returns
// ctx's error when ctx ends first and ErrRunInProgress when the wait runs
// out. Every nil return must be paired with Release.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrRunInProgress
	}
	l.enter()
	return nil
}

// TryAcquire takes a slot only if one is free right now.
func (l *RunLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.enter()
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *RunLimiter) Release() {
	l.leave()
	l.sem.Release(1)
}

func (l *RunLimiter) enter() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active == 0 {
		l.idle = make(chan struct{})
	}
	l.active++
}

func (l *RunLimiter) leave() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active--
	if l.active == 0 {
		close(l.idle)
	}
}

// ActiveCount returns the number of runs holding a slot.
func (l *RunLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *RunLimiter) MaxConcurrent() int {
	return int(l.slots)
}

// Available returns the number of free slots.
func (l *RunLimiter) Available() int {
	return l.MaxConcurrent() - l.ActiveCount()
}

// WaitForDrain blocks until no run holds a slot or ctx is done, so shutdown
// never interrupts a sweep with the operator's locale switched.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	for {
		l.mu.Lock()
		idle, active := l.idle, l.active
		l.mu.Unlock()
		if active == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
			// A new run may have started since; check again.
		}
	}
}

// RunLimiterStatus is a snapshot of slot usage.
type RunLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current slot usage.
func (l *RunLimiter) Status() RunLimiterStatus {
	active := l.ActiveCount()
	return RunLimiterStatus{
		Active:        active,
		Available:     l.MaxConcurrent() - active,
		MaxConcurrent: l.MaxConcurrent(),
	}
}
