package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// JobTTL is how long completed jobs are retained.
	JobTTL = 1 * time.Hour
)

// ErrJobNotFound is returned when a job is not found.
var ErrJobNotFound = errors.New("job not found")

// Runner is the body of a background job. It must honour ctx: cancellation
// is checked cooperatively between units of work, never mid-call. Returning
// context.Canceled marks the job cancelled, not failed.
type Runner func(ctx context.Context) error

// Manager runs and tracks async jobs in memory.
type Manager struct {
	mu   sync.RWMutex
	jobs map[JobID]*Job
	wg   sync.WaitGroup

	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a new job manager.
func NewManager() *Manager {
	m := &Manager{
		jobs: make(map[JobID]*Job),
		done: make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Schedule registers a job of the given type and starts it on a worker
// goroutine. The returned job is a snapshot; poll GetJob for progress.
func (m *Manager) Schedule(jobType string, run Runner) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now().UTC()

	job := &Job{
		ID:        JobID(jobType + "-" + uuid.NewString()),
		Type:      jobType,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		cancel:    cancel,
	}

	// Snapshot before the worker starts: once it is running, the shared
	// entry may only be read under the lock.
	m.mu.Lock()
	m.jobs[job.ID] = job
	snapshot := *job
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()

		m.setStatus(job.ID, JobStatusRunning, "")
		err := run(ctx)
		switch {
		case err == nil:
			m.setStatus(job.ID, JobStatusCompleted, "")
		case errors.Is(err, context.Canceled):
			m.setStatus(job.ID, JobStatusCancelled, "")
		default:
			m.setStatus(job.ID, JobStatusFailed, err.Error())
		}
	}()

	return &snapshot
}

// Cancel signals the job's context. Cancellation is cooperative; the job
// transitions to cancelled only once its runner observes the signal.
func (m *Manager) Cancel(id JobID) error {
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}
	job.cancel()
	return nil
}

// GetJob retrieves a job by ID.
func (m *Manager) GetJob(id JobID) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs returns snapshots of all known jobs.
func (m *Manager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobCopy := *job
		out = append(out, &jobCopy)
	}
	return out
}

// Wait blocks until every scheduled job has finished. Used on shutdown and
// in tests; normal callers never join on jobs.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close stops the cleanup loop. Already-scheduled jobs keep running; pair
// with Wait to drain them on shutdown. Safe to call more than once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *Manager) setStatus(id JobID, status JobStatus, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.Error = errMsg
	job.UpdatedAt = time.Now().UTC()
}

// cleanupLoop periodically removes old terminal jobs until Close.
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *Manager) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().Add(-JobTTL)
	for id, job := range m.jobs {
		if job.IsTerminal() && job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}
