package v0

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// HealthBody represents the health check response
type HealthBody struct {
	Status string `json:"status" example:"ok" doc:"Health status of the service"`
}

// VersionBody represents version information
type VersionBody struct {
	Version   string `json:"version" example:"1.0.0" doc:"Service version"`
	GitCommit string `json:"gitCommit,omitempty" example:"abc123" doc:"Git commit hash"`
	BuildTime string `json:"buildTime,omitempty" example:"2024-01-01T00:00:00Z" doc:"Build timestamp"`
}

// RegisterHealthEndpoint registers the health check endpoint
func RegisterHealthEndpoint(api huma.API, basePath string) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        basePath + "/health",
		Summary:     "Health check",
		Description: "Check the health status of the bridge daemon",
		Tags:        []string{"health"},
	}, func(ctx context.Context, input *struct{}) (*Response[HealthBody], error) {
		return &Response[HealthBody]{
			Body: HealthBody{Status: "ok"},
		}, nil
	})
}

// RegisterPingEndpoint registers the ping endpoint
func RegisterPingEndpoint(api huma.API, basePath string) {
	huma.Register(api, huma.Operation{
		OperationID: "ping",
		Method:      http.MethodGet,
		Path:        basePath + "/ping",
		Summary:     "Ping",
		Description: "Simple ping endpoint for testing connectivity",
		Tags:        []string{"ping"},
	}, func(ctx context.Context, input *struct{}) (*Response[struct {
		Pong bool `json:"pong" example:"true" doc:"Always true"`
	}], error) {
		resp := &Response[struct {
			Pong bool `json:"pong" example:"true" doc:"Always true"`
		}]{}
		resp.Body.Pong = true
		return resp, nil
	})
}

// RegisterVersionEndpoint registers the version information endpoint
func RegisterVersionEndpoint(api huma.API, basePath string, versionInfo *VersionBody) {
	huma.Register(api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        basePath + "/version",
		Summary:     "Version information",
		Description: "Retrieve build and version details",
		Tags:        []string{"version"},
	}, func(ctx context.Context, input *struct{}) (*Response[VersionBody], error) {
		body := VersionBody{Version: "dev"}
		if versionInfo != nil {
			body = *versionInfo
		}
		return &Response[VersionBody]{Body: body}, nil
	})
}
