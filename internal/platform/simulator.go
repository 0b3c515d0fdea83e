package platform

import (
	"context"
	"sync"
	"time"

	"github.com/cloudbridge-dev/cloudbridge/internal/host"
	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
)

// Simulator is an in-memory Client. The daemon falls back to it when no real
// platform client is injected, and tests use it to script inventories.
type Simulator struct {
	mu   sync.Mutex
	apps map[string]*models.AppSnapshot

	// Optional hooks let tests override individual calls.
	ListFn   func(ctx context.Context) (map[string]*models.AppSnapshot, error)
	DeployFn func(ctx context.Context, unit host.Unit, appName string) (*models.AppSnapshot, error)
	DeleteFn func(ctx context.Context, names []string, deleteServices bool) error
}

// NewSimulator returns a Simulator seeded with the given snapshots.
func NewSimulator(apps ...*models.AppSnapshot) *Simulator {
	s := &Simulator{apps: make(map[string]*models.AppSnapshot)}
	for _, app := range apps {
		s.apps[app.Name] = app
	}
	return s
}

func (s *Simulator) ListApplications(ctx context.Context) (map[string]*models.AppSnapshot, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*models.AppSnapshot, len(s.apps))
	for name, app := range s.apps {
		out[name] = app
	}
	return out, nil
}

func (s *Simulator) StartAndWaitForDeployment(ctx context.Context, unit host.Unit, appName string) (*models.AppSnapshot, error) {
	if s.DeployFn != nil {
		return s.DeployFn(ctx, unit, appName)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := &models.AppSnapshot{
		Name:             appName,
		State:            models.AppStateStarted,
		Instances:        1,
		RunningInstances: 1,
		UpdatedAt:        time.Now().UTC(),
	}
	s.mu.Lock()
	s.apps[appName] = snap
	s.mu.Unlock()
	return snap, nil
}

func (s *Simulator) DeleteApplications(ctx context.Context, names []string, deleteServices bool) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, names, deleteServices)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	missing := false
	for _, name := range names {
		if _, ok := s.apps[name]; !ok {
			missing = true
			continue
		}
		delete(s.apps, name)
	}
	if missing {
		return ErrNotFound
	}
	return nil
}
