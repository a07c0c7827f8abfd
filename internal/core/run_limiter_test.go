package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLimiter_DefaultsToSingleRun(t *testing.T) {
	limiter := NewRunLimiter(0, 0)
	assert.Equal(t, 1, limiter.MaxConcurrent())
	assert.Equal(t, 1, limiter.Available())
}

func TestRunLimiter_SecondRunIsRejected(t *testing.T) {
	limiter := NewRunLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx))
	assert.Equal(t, 1, limiter.ActiveCount())
	assert.False(t, limiter.TryAcquire())

	err := limiter.Acquire(ctx)
	assert.ErrorIs(t, err, ErrRunInProgress)

	limiter.Release()
	assert.Equal(t, 0, limiter.ActiveCount())
	assert.True(t, limiter.TryAcquire())
	limiter.Release()
}

func TestRunLimiter_AcquireHonorsCancellation(t *testing.T) {
	limiter := NewRunLimiter(1, 5*time.Second)
	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- limiter.Acquire(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestRunLimiter_WaitForDrain(t *testing.T) {
	limiter := NewRunLimiter(2, time.Second)
	ctx := context.Background()
	require.NoError(t, limiter.Acquire(ctx))
	require.NoError(t, limiter.Acquire(ctx))

	done := make(chan error, 1)
	go func() { done <- limiter.WaitForDrain(context.Background()) }()

	limiter.Release()
	select {
	case <-done:
		t.Fatal("WaitForDrain returned with a run active")
	case <-time.After(150 * time.Millisecond):
	}

	limiter.Release()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitForDrain did not return after all runs released")
	}
}

func TestRunLimiter_Status(t *testing.T) {
	limiter := NewRunLimiter(3, time.Second)
	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	assert.Equal(t, RunLimiterStatus{Active: 1, Available: 2, MaxConcurrent: 3}, limiter.Status())
}

func TestRunLimiter_WaitForDrainIdleAndCancelled(t *testing.T) {
	limiter := NewRunLimiter(1, time.Second)
	require.NoError(t, limiter.WaitForDrain(context.Background()), "an idle limiter is already drained")

	require.True(t, limiter.TryAcquire())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.WaitForDrain(ctx), context.DeadlineExceeded)

	limiter.Release()
	require.NoError(t, limiter.WaitForDrain(context.Background()))

	// Slots are reusable after a drain.
	require.True(t, limiter.TryAcquire())
	assert.Equal(t, 0, limiter.Available())
	limiter.Release()
	assert.Equal(t, 1, limiter.Available())
}

func TestSubscribeProgress_AfterListenersClosed(t *testing.T) {
	run := &activeRun{
		ID:       "run",
		Progress: Progress{RunID: "run", Phase: PhaseComplete},
		Done:     make(chan struct{}),
	}
	s := &Service{runs: map[string]*activeRun{"run": run}}

	early, err := s.SubscribeProgress("run")
	require.NoError(t, err)

	// Listeners are closed before Done; a subscriber in between must still
	// get a channel that closes.
	run.closeListeners()
	late, err := s.SubscribeProgress("run")
	require.NoError(t, err)

	for _, ch := range []<-chan Progress{early, late} {
		last, ok := <-ch
		require.True(t, ok)
		assert.Equal(t, PhaseComplete, last.Phase)
		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channel closed")
		case <-time.After(time.Second):
			t.Fatal("channel left open")
		}
	}
}
