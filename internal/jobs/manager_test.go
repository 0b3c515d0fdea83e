package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForTerminal(t *testing.T, m *Manager, id JobID) *Job {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		job, err := m.GetJob(id)
		require.NoError(t, err)
		if job.IsTerminal() {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("job %s never reached a terminal state (status %s)", id, job.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestScheduleCompletes(t *testing.T) {
	m := NewManager()
	var ran atomic.Bool

	job := m.Schedule(DeployJobType, func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	done := waitForTerminal(t, m, job.ID)
	assert.Equal(t, JobStatusCompleted, done.Status)
	assert.Empty(t, done.Error)
	assert.True(t, ran.Load())
}

func TestScheduleFailure(t *testing.T) {
	m := NewManager()

	job := m.Schedule(CleanupJobType, func(ctx context.Context) error {
		return errors.New("working copy save failed")
	})

	done := waitForTerminal(t, m, job.ID)
	assert.Equal(t, JobStatusFailed, done.Status)
	assert.Equal(t, "working copy save failed", done.Error)
}

func TestCancelIsNotAnError(t *testing.T) {
	m := NewManager()
	started := make(chan struct{})

	job := m.Schedule(DeployJobType, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	require.NoError(t, m.Cancel(job.ID))

	done := waitForTerminal(t, m, job.ID)
	assert.Equal(t, JobStatusCancelled, done.Status)
	assert.Empty(t, done.Error)
}

func TestScheduleReturnsPendingSnapshot(t *testing.T) {
	m := NewManager()
	t.Cleanup(m.Close)

	// many concurrent schedules: each returned snapshot must be the
	// pre-start copy, untouched by the worker's status transitions
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := m.Schedule(DeployJobType, func(ctx context.Context) error { return nil })
			assert.Equal(t, JobStatusPending, job.Status)
			assert.Empty(t, job.Error)
		}()
	}
	wg.Wait()
	m.Wait()

	assert.Len(t, m.ListJobs(), 50)
	for _, job := range m.ListJobs() {
		assert.Equal(t, JobStatusCompleted, job.Status)
	}
}

func TestCloseStopsCleanupLoop(t *testing.T) {
	m := NewManager()
	m.Schedule(DeployJobType, func(ctx context.Context) error { return nil })
	m.Wait()

	m.Close()
	m.Close() // idempotent

	// the manager stays queryable after Close
	assert.Len(t, m.ListJobs(), 1)
}

func TestGetJobNotFound(t *testing.T) {
	m := NewManager()
	_, err := m.GetJob("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, m.Cancel("missing"), ErrJobNotFound)
}

func TestListJobs(t *testing.T) {
	m := NewManager()
	m.Schedule(DeployJobType, func(ctx context.Context) error { return nil })
	m.Schedule(CleanupJobType, func(ctx context.Context) error { return nil })
	m.Wait()

	jobs := m.ListJobs()
	assert.Len(t, jobs, 2)
}

func TestCleanupDropsOldTerminalJobs(t *testing.T) {
	m := NewManager()
	job := m.Schedule(DeployJobType, func(ctx context.Context) error { return nil })
	m.Wait()

	m.mu.Lock()
	m.jobs[job.ID].UpdatedAt = time.Now().UTC().Add(-2 * JobTTL)
	m.mu.Unlock()

	m.cleanup()

	_, err := m.GetJob(job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}
