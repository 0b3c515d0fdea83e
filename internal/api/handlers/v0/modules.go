package v0

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cloudbridge-dev/cloudbridge/internal/bridge"
	"github.com/cloudbridge-dev/cloudbridge/internal/host"
	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
)

// ModuleDeployRequest represents the input for deploying a module
type ModuleDeployRequest struct {
	UnitID      string `json:"unitId" doc:"Unique identifier of the deployable unit" example:"unit:web"`
	UnitName    string `json:"unitName" doc:"Unit name, used as the deployed application name" example:"web"`
	ProjectPath string `json:"projectPath,omitempty" doc:"Workspace project backing the unit" example:"/workspace/web"`
}

// ModulesListResponse represents a connection's module list
type ModulesListResponse struct {
	Body struct {
		Modules []models.Module `json:"modules" doc:"Application modules known for this connection"`
	}
}

// ModuleInput represents path parameters for module operations
type ModuleInput struct {
	Name           string `path:"name" json:"name" doc:"Connection name" example:"staging"`
	UnitID         string `path:"unitId" json:"unitId" doc:"URL-encoded unit identifier" example:"unit%3Aweb"`
	DeleteServices bool   `query:"deleteServices" json:"deleteServices,omitempty" doc:"Also delete services bound to the application" default:"false"`
}

// RegisterModulesEndpoints registers all module-related endpoints
func RegisterModulesEndpoints(api huma.API, basePath string, svc bridge.BridgeService) {
	// List modules for a connection
	huma.Register(api, huma.Operation{
		OperationID: "list-modules",
		Method:      http.MethodGet,
		Path:        basePath + "/connections/{name}/modules",
		Summary:     "List application modules",
		Description: "Retrieve the cached application modules for a connection. Run a refresh first to reconcile against the platform.",
		Tags:        []string{"modules"},
	}, func(ctx context.Context, input *ConnectionInput) (*ModulesListResponse, error) {
		name, err := url.PathUnescape(input.Name)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid connection name encoding", err)
		}
		mods, err := svc.ListModules(ctx, name)
		if err != nil {
			if errors.Is(err, bridge.ErrNotFound) {
				return nil, huma.Error404NotFound("Connection not found")
			}
			return nil, huma.Error500InternalServerError("Failed to list modules", err)
		}
		resp := &ModulesListResponse{}
		resp.Body.Modules = mods
		return resp, nil
	})

	// Refresh a connection against the platform
	huma.Register(api, huma.Operation{
		OperationID: "refresh-connection",
		Method:      http.MethodPost,
		Path:        basePath + "/connections/{name}/refresh",
		Summary:     "Refresh modules",
		Description: "Reconcile the connection's modules against the platform's current application inventory",
		Tags:        []string{"modules"},
	}, func(ctx context.Context, input *ConnectionInput) (*ModulesListResponse, error) {
		name, err := url.PathUnescape(input.Name)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid connection name encoding", err)
		}
		if err := svc.Refresh(ctx, name); err != nil {
			if errors.Is(err, bridge.ErrNotFound) {
				return nil, huma.Error404NotFound("Connection not found")
			}
			return nil, huma.Error500InternalServerError("Failed to refresh modules", err)
		}
		mods, err := svc.ListModules(ctx, name)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to list modules", err)
		}
		resp := &ModulesListResponse{}
		resp.Body.Modules = mods
		return resp, nil
	})

	// Deploy a module
	huma.Register(api, huma.Operation{
		OperationID: "deploy-module",
		Method:      http.MethodPost,
		Path:        basePath + "/connections/{name}/modules",
		Summary:     "Deploy a module",
		Description: "Add a deployable unit to the connection and deploy it in the background. Poll the jobs API for progress.",
		Tags:        []string{"modules"},
	}, func(ctx context.Context, input *struct {
		ConnectionInput
		Body ModuleDeployRequest
	}) (*Response[EmptyResponse], error) {
		name, err := url.PathUnescape(input.Name)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid connection name encoding", err)
		}
		unit := host.Unit{
			ID:          input.Body.UnitID,
			Name:        input.Body.UnitName,
			ProjectPath: input.Body.ProjectPath,
		}
		if err := svc.DeployModule(ctx, name, unit); err != nil {
			if errors.Is(err, bridge.ErrNotFound) {
				return nil, huma.Error404NotFound("Connection not found")
			}
			if errors.Is(err, bridge.ErrInvalidInput) {
				return nil, huma.Error400BadRequest("Invalid deploy request", err)
			}
			return nil, huma.Error500InternalServerError("Failed to deploy module", err)
		}
		return &Response[EmptyResponse]{
			Body: EmptyResponse{Message: "Deployment scheduled"},
		}, nil
	})

	// Remove a module
	huma.Register(api, huma.Operation{
		OperationID: "remove-module",
		Method:      http.MethodDelete,
		Path:        basePath + "/connections/{name}/modules/{unitId}",
		Summary:     "Remove a module",
		Description: "Remove a module from the connection and delete its application from the platform",
		Tags:        []string{"modules"},
	}, func(ctx context.Context, input *ModuleInput) (*struct{}, error) {
		name, err := url.PathUnescape(input.Name)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid connection name encoding", err)
		}
		unitID, err := url.PathUnescape(input.UnitID)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid unit id encoding", err)
		}
		if err := svc.RemoveModule(ctx, name, unitID, input.DeleteServices); err != nil {
			if errors.Is(err, bridge.ErrNotFound) {
				return nil, huma.Error404NotFound("Connection or module not found")
			}
			return nil, huma.Error500InternalServerError("Failed to remove module", err)
		}
		return &struct{}{}, nil
	})
}
