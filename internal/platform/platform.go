// Package platform declares the remote operations the bridge needs from the
// cloud platform. The wire protocol itself lives behind this interface and
// is supplied by the embedding product.
package platform

import (
	"context"
	"errors"

	"github.com/cloudbridge-dev/cloudbridge/internal/host"
	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
)

// ErrNotFound indicates the remote object no longer exists. Delete paths
// treat it as success so deletes stay idempotent.
var ErrNotFound = errors.New("application not found")

// Client exposes the remote deploy/undeploy primitives and the application
// inventory for one server connection.
type Client interface {
	// ListApplications returns the authoritative mapping of deployed
	// application name to its current snapshot.
	ListApplications(ctx context.Context) (map[string]*models.AppSnapshot, error)

	// StartAndWaitForDeployment pushes the unit under the given application
	// name and blocks until the platform reports it started.
	StartAndWaitForDeployment(ctx context.Context, unit host.Unit, appName string) (*models.AppSnapshot, error)

	// DeleteApplications removes the named applications. When
	// deleteServices is true, services bound only to those applications are
	// removed as well. Returns ErrNotFound if any name is already gone.
	DeleteApplications(ctx context.Context, names []string, deleteServices bool) error
}
