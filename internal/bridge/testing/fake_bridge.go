// Package testing provides test utilities for the bridge service.
package testing

import (
	"context"
	"sync"

	"github.com/cloudbridge-dev/cloudbridge/internal/bridge"
	"github.com/cloudbridge-dev/cloudbridge/internal/host"
	"github.com/cloudbridge-dev/cloudbridge/internal/jobs"
	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
)

// FakeBridge is a configurable fake implementation of bridge.BridgeService.
// It supports both data-driven setup via struct fields and function hooks
// for custom behavior.
type FakeBridge struct {
	mu sync.Mutex

	// Data fields for simple data-driven tests
	Connections []models.Connection
	Modules     map[string][]models.Module
	JobManager  *jobs.Manager

	// Call counters for verification
	RefreshCalls int

	// Function hooks (take precedence over data fields when set)
	CreateConnectionFn  func(ctx context.Context, opts bridge.CreateConnectionOptions) (*models.Connection, error)
	ListConnectionsFn   func(ctx context.Context) ([]models.Connection, error)
	GetConnectionFn     func(ctx context.Context, name string) (*models.Connection, error)
	DeleteConnectionFn  func(ctx context.Context, name string) error
	UpdateCredentialsFn func(ctx context.Context, name, username, password string) (*models.Connection, error)
	UpdateSpaceFn       func(ctx context.Context, name, org, space string) (*models.Connection, error)
	ListModulesFn       func(ctx context.Context, name string) ([]models.Module, error)
	RefreshFn           func(ctx context.Context, name string) error
	DeployModuleFn      func(ctx context.Context, connection string, unit host.Unit) error
	RemoveModuleFn      func(ctx context.Context, connection, unitID string, deleteServices bool) error
}

var _ bridge.BridgeService = (*FakeBridge)(nil)

// NewFakeBridge creates a FakeBridge with initialized maps.
func NewFakeBridge() *FakeBridge {
	return &FakeBridge{
		Modules:    make(map[string][]models.Module),
		JobManager: jobs.NewManager(),
	}
}

func (f *FakeBridge) CreateConnection(ctx context.Context, opts bridge.CreateConnectionOptions) (*models.Connection, error) {
	if f.CreateConnectionFn != nil {
		return f.CreateConnectionFn(ctx, opts)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Connections {
		if c.Name == opts.Name {
			return nil, bridge.ErrAlreadyExists
		}
	}
	conn := models.Connection{
		Name:     opts.Name,
		URL:      opts.URL,
		Username: opts.Username,
		Org:      opts.Org,
		Space:    opts.Space,
	}
	f.Connections = append(f.Connections, conn)
	return &conn, nil
}

func (f *FakeBridge) ListConnections(ctx context.Context) ([]models.Connection, error) {
	if f.ListConnectionsFn != nil {
		return f.ListConnectionsFn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Connection(nil), f.Connections...), nil
}

func (f *FakeBridge) GetConnection(ctx context.Context, name string) (*models.Connection, error) {
	if f.GetConnectionFn != nil {
		return f.GetConnectionFn(ctx, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Connections {
		if c.Name == name {
			conn := c
			return &conn, nil
		}
	}
	return nil, bridge.ErrNotFound
}

func (f *FakeBridge) DeleteConnection(ctx context.Context, name string) error {
	if f.DeleteConnectionFn != nil {
		return f.DeleteConnectionFn(ctx, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.Connections {
		if c.Name == name {
			f.Connections = append(f.Connections[:i], f.Connections[i+1:]...)
			return nil
		}
	}
	return bridge.ErrNotFound
}

func (f *FakeBridge) UpdateCredentials(ctx context.Context, name, username, password string) (*models.Connection, error) {
	if f.UpdateCredentialsFn != nil {
		return f.UpdateCredentialsFn(ctx, name, username, password)
	}
	return f.GetConnection(ctx, name)
}

func (f *FakeBridge) UpdateSpace(ctx context.Context, name, org, space string) (*models.Connection, error) {
	if f.UpdateSpaceFn != nil {
		return f.UpdateSpaceFn(ctx, name, org, space)
	}
	conn, err := f.GetConnection(ctx, name)
	if err != nil {
		return nil, err
	}
	conn.Org = org
	conn.Space = space
	return conn, nil
}

func (f *FakeBridge) ListModules(ctx context.Context, name string) ([]models.Module, error) {
	if f.ListModulesFn != nil {
		return f.ListModulesFn(ctx, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	mods, ok := f.Modules[name]
	if !ok {
		return nil, bridge.ErrNotFound
	}
	return append([]models.Module(nil), mods...), nil
}

func (f *FakeBridge) Refresh(ctx context.Context, name string) error {
	if f.RefreshFn != nil {
		return f.RefreshFn(ctx, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Modules[name]; !ok {
		return bridge.ErrNotFound
	}
	f.RefreshCalls++
	return nil
}

func (f *FakeBridge) DeployModule(ctx context.Context, connection string, unit host.Unit) error {
	if f.DeployModuleFn != nil {
		return f.DeployModuleFn(ctx, connection, unit)
	}
	return nil
}

func (f *FakeBridge) RemoveModule(ctx context.Context, connection, unitID string, deleteServices bool) error {
	if f.RemoveModuleFn != nil {
		return f.RemoveModuleFn(ctx, connection, unitID, deleteServices)
	}
	return nil
}

func (f *FakeBridge) Jobs() *jobs.Manager {
	return f.JobManager
}
