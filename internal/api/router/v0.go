// Package router contains API routing logic
package router

import (
	"github.com/danielgtaylor/huma/v2"

	v0 "github.com/cloudbridge-dev/cloudbridge/internal/api/handlers/v0"
	"github.com/cloudbridge-dev/cloudbridge/internal/bridge"
)

// RegisterRoutes registers all API routes. This is the single entry point
// for route registration.
func RegisterRoutes(api huma.API, svc bridge.BridgeService, versionInfo *v0.VersionBody) {
	registerV0Routes(api, "/v0", svc, versionInfo)
}

func registerV0Routes(api huma.API, pathPrefix string, svc bridge.BridgeService, versionInfo *v0.VersionBody) {
	v0.RegisterHealthEndpoint(api, pathPrefix)
	v0.RegisterPingEndpoint(api, pathPrefix)
	v0.RegisterVersionEndpoint(api, pathPrefix, versionInfo)

	v0.RegisterConnectionsEndpoints(api, pathPrefix, svc)
	v0.RegisterModulesEndpoints(api, pathPrefix, svc)
	v0.RegisterJobsEndpoints(api, pathPrefix, svc.Jobs())
}
