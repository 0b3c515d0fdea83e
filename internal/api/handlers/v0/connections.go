package v0

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cloudbridge-dev/cloudbridge/internal/bridge"
	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
)

// ConnectionRequest represents the input for creating a server connection
type ConnectionRequest struct {
	Name     string `json:"name" doc:"Connection name, unique within the daemon" example:"staging"`
	URL      string `json:"url,omitempty" doc:"Platform API endpoint URL; overrides cloud when set" example:"https://api.staging.example.com"`
	Cloud    string `json:"cloud,omitempty" doc:"Named endpoint from the cloud catalog" example:"pivotal"`
	Username string `json:"username" doc:"Account username" example:"dev@example.com"`
	Password string `json:"password,omitempty" doc:"Account password; stored in the credential store, never returned"`
	Org      string `json:"org,omitempty" doc:"Organization to target" example:"acme"`
	Space    string `json:"space,omitempty" doc:"Space to target" example:"staging"`
}

// CredentialsUpdate represents the input for updating connection credentials
type CredentialsUpdate struct {
	Username string `json:"username,omitempty" doc:"New username; empty keeps the current one"`
	Password string `json:"password" doc:"New password"`
}

// SpaceUpdate represents the input for retargeting a connection
type SpaceUpdate struct {
	Org   string `json:"org" doc:"Organization to target; empty clears the selection"`
	Space string `json:"space" doc:"Space to target; empty clears the selection"`
}

// ConnectionResponse represents a single connection
type ConnectionResponse struct {
	Body models.Connection
}

// ConnectionsListResponse represents a list of connections
type ConnectionsListResponse struct {
	Body struct {
		Connections []models.Connection `json:"connections" doc:"Configured server connections"`
	}
}

// ConnectionInput represents path parameters for connection operations
type ConnectionInput struct {
	Name string `path:"name" json:"name" doc:"Connection name" example:"staging"`
}

// RegisterConnectionsEndpoints registers all connection-related endpoints
func RegisterConnectionsEndpoints(api huma.API, basePath string, svc bridge.BridgeService) {
	// List all connections
	huma.Register(api, huma.Operation{
		OperationID: "list-connections",
		Method:      http.MethodGet,
		Path:        basePath + "/connections",
		Summary:     "List connections",
		Description: "Retrieve all configured server connections",
		Tags:        []string{"connections"},
	}, func(ctx context.Context, input *struct{}) (*ConnectionsListResponse, error) {
		conns, err := svc.ListConnections(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to list connections", err)
		}
		resp := &ConnectionsListResponse{}
		resp.Body.Connections = conns
		return resp, nil
	})

	// Get a specific connection
	huma.Register(api, huma.Operation{
		OperationID: "get-connection",
		Method:      http.MethodGet,
		Path:        basePath + "/connections/{name}",
		Summary:     "Get connection details",
		Description: "Retrieve details for a specific server connection",
		Tags:        []string{"connections"},
	}, func(ctx context.Context, input *ConnectionInput) (*ConnectionResponse, error) {
		name, err := url.PathUnescape(input.Name)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid connection name encoding", err)
		}
		conn, err := svc.GetConnection(ctx, name)
		if err != nil {
			if errors.Is(err, bridge.ErrNotFound) {
				return nil, huma.Error404NotFound("Connection not found")
			}
			return nil, huma.Error500InternalServerError("Failed to retrieve connection", err)
		}
		return &ConnectionResponse{Body: *conn}, nil
	})

	// Create a connection
	huma.Register(api, huma.Operation{
		OperationID: "create-connection",
		Method:      http.MethodPost,
		Path:        basePath + "/connections",
		Summary:     "Create a connection",
		Description: "Configure a new server connection and persist its credentials",
		Tags:        []string{"connections"},
	}, func(ctx context.Context, input *struct {
		Body ConnectionRequest
	}) (*ConnectionResponse, error) {
		conn, err := svc.CreateConnection(ctx, bridge.CreateConnectionOptions{
			Name:     input.Body.Name,
			URL:      input.Body.URL,
			Cloud:    input.Body.Cloud,
			Username: input.Body.Username,
			Password: input.Body.Password,
			Org:      input.Body.Org,
			Space:    input.Body.Space,
		})
		if err != nil {
			if errors.Is(err, bridge.ErrAlreadyExists) {
				return nil, huma.Error409Conflict("A connection with this name already exists")
			}
			if errors.Is(err, bridge.ErrInvalidInput) {
				return nil, huma.Error400BadRequest("Invalid connection request", err)
			}
			return nil, huma.Error500InternalServerError("Failed to create connection", err)
		}
		return &ConnectionResponse{Body: *conn}, nil
	})

	// Delete a connection
	huma.Register(api, huma.Operation{
		OperationID: "delete-connection",
		Method:      http.MethodDelete,
		Path:        basePath + "/connections/{name}",
		Summary:     "Delete a connection",
		Description: "Remove a connection along with its cached state and stored credentials",
		Tags:        []string{"connections"},
	}, func(ctx context.Context, input *ConnectionInput) (*struct{}, error) {
		name, err := url.PathUnescape(input.Name)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid connection name encoding", err)
		}
		if err := svc.DeleteConnection(ctx, name); err != nil {
			if errors.Is(err, bridge.ErrNotFound) {
				return nil, huma.Error404NotFound("Connection not found")
			}
			return nil, huma.Error500InternalServerError("Failed to delete connection", err)
		}
		return &struct{}{}, nil
	})

	// Update credentials
	huma.Register(api, huma.Operation{
		OperationID: "update-connection-credentials",
		Method:      http.MethodPut,
		Path:        basePath + "/connections/{name}/credentials",
		Summary:     "Update connection credentials",
		Description: "Replace the stored credentials for a connection",
		Tags:        []string{"connections"},
	}, func(ctx context.Context, input *struct {
		ConnectionInput
		Body CredentialsUpdate
	}) (*ConnectionResponse, error) {
		name, err := url.PathUnescape(input.Name)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid connection name encoding", err)
		}
		conn, err := svc.UpdateCredentials(ctx, name, input.Body.Username, input.Body.Password)
		if err != nil {
			if errors.Is(err, bridge.ErrNotFound) {
				return nil, huma.Error404NotFound("Connection not found")
			}
			return nil, huma.Error500InternalServerError("Failed to update credentials", err)
		}
		return &ConnectionResponse{Body: *conn}, nil
	})

	// Update org/space selection
	huma.Register(api, huma.Operation{
		OperationID: "update-connection-space",
		Method:      http.MethodPut,
		Path:        basePath + "/connections/{name}/space",
		Summary:     "Update connection target space",
		Description: "Retarget the connection to a different organization and space",
		Tags:        []string{"connections"},
	}, func(ctx context.Context, input *struct {
		ConnectionInput
		Body SpaceUpdate
	}) (*ConnectionResponse, error) {
		name, err := url.PathUnescape(input.Name)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid connection name encoding", err)
		}
		conn, err := svc.UpdateSpace(ctx, name, input.Body.Org, input.Body.Space)
		if err != nil {
			if errors.Is(err, bridge.ErrNotFound) {
				return nil, huma.Error404NotFound("Connection not found")
			}
			return nil, huma.Error500InternalServerError("Failed to update target space", err)
		}
		return &ConnectionResponse{Body: *conn}, nil
	})
}
