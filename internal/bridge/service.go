// Package bridge manages the daemon's server connections: each connection
// pairs a host module registry with a cloud server delegate and a platform
// client, and the service exposes the operations the API handlers need.
package bridge

import (
	"context"
	"errors"

	"github.com/cloudbridge-dev/cloudbridge/internal/host"
	"github.com/cloudbridge-dev/cloudbridge/internal/jobs"
	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
)

var (
	// ErrNotFound is returned when a connection or module does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a connection name is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput is returned when a request is structurally invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// CreateConnectionOptions carries everything needed to set up a connection.
// Cloud names an entry in the endpoint catalog; URL overrides it when set.
type CreateConnectionOptions struct {
	Name     string
	URL      string
	Cloud    string
	Username string
	Password string
	Org      string
	Space    string
}

// BridgeService is the surface the API handlers and the refresh loop use.
type BridgeService interface {
	CreateConnection(ctx context.Context, opts CreateConnectionOptions) (*models.Connection, error)
	ListConnections(ctx context.Context) ([]models.Connection, error)
	GetConnection(ctx context.Context, name string) (*models.Connection, error)
	DeleteConnection(ctx context.Context, name string) error

	UpdateCredentials(ctx context.Context, name, username, password string) (*models.Connection, error)
	UpdateSpace(ctx context.Context, name, org, space string) (*models.Connection, error)

	ListModules(ctx context.Context, name string) ([]models.Module, error)
	Refresh(ctx context.Context, name string) error
	DeployModule(ctx context.Context, connection string, unit host.Unit) error
	RemoveModule(ctx context.Context, connection, unitID string, deleteServices bool) error

	Jobs() *jobs.Manager
}
