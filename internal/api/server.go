// Package api hosts the bridge daemon's HTTP surface.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	v0 "github.com/cloudbridge-dev/cloudbridge/internal/api/handlers/v0"
	"github.com/cloudbridge-dev/cloudbridge/internal/api/router"
	"github.com/cloudbridge-dev/cloudbridge/internal/bridge"
	"github.com/cloudbridge-dev/cloudbridge/internal/config"
	"github.com/cloudbridge-dev/cloudbridge/internal/telemetry"
)

// TrailingSlashMiddleware redirects API requests with trailing slashes to
// their canonical form.
func TrailingSlashMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isAPIRoute := strings.HasPrefix(r.URL.Path, "/v0/") ||
			r.URL.Path == "/health" ||
			r.URL.Path == "/ping" ||
			r.URL.Path == "/metrics" ||
			strings.HasPrefix(r.URL.Path, "/docs")

		if isAPIRoute && r.URL.Path != "/" && strings.HasSuffix(r.URL.Path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(r.URL.Path, "/")

			// 308 preserves the request method
			http.Redirect(w, r, newURL.String(), http.StatusPermanentRedirect)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	log     *logrus.Logger
	humaAPI huma.API
	mux     *http.ServeMux
	server  *http.Server
}

// HumaAPI returns the Huma API instance, allowing registration of new routes
func (s *Server) HumaAPI() huma.API {
	return s.humaAPI
}

// Mux returns the HTTP ServeMux, allowing registration of custom HTTP handlers
func (s *Server) Mux() *http.ServeMux {
	return s.mux
}

// Handler returns the full middleware-wrapped handler the server listens
// with. Exposed for tests and for embedding the API in another server.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// NewServer creates a new HTTP server over the bridge service.
func NewServer(cfg *config.Config, svc bridge.BridgeService, metrics *telemetry.Metrics, versionInfo *v0.VersionBody, log *logrus.Logger) *Server {
	mux := http.NewServeMux()
	api := router.NewHumaAPI(svc, mux, metrics, versionInfo)

	// Permissive CORS: the daemon binds locally and serves IDE frontends on
	// arbitrary origins.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Type", "Content-Length"},
		AllowCredentials: false, // Must be false when AllowedOrigins is "*"
		MaxAge:           86400,
	})

	// Order: TrailingSlash -> CORS -> Mux
	handler := TrailingSlashMiddleware(corsHandler.Handler(mux))

	return &Server{
		config:  cfg,
		log:     log,
		humaAPI: api,
		mux:     mux,
		server: &http.Server{
			Addr:              cfg.ServerAddress,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start begins listening for incoming HTTP requests
func (s *Server) Start() error {
	s.log.Infof("HTTP server starting on %s", s.config.ServerAddress)
	s.log.Infof("API documentation at http://localhost%s/docs", s.config.ServerAddress)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
