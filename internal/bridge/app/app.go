package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cloudbridge-dev/cloudbridge/internal/api"
	v0 "github.com/cloudbridge-dev/cloudbridge/internal/api/handlers/v0"
	"github.com/cloudbridge-dev/cloudbridge/internal/bridge"
	"github.com/cloudbridge-dev/cloudbridge/internal/cache"
	"github.com/cloudbridge-dev/cloudbridge/internal/config"
	"github.com/cloudbridge-dev/cloudbridge/internal/credentials"
	"github.com/cloudbridge-dev/cloudbridge/internal/jobs"
	"github.com/cloudbridge-dev/cloudbridge/internal/telemetry"
	"github.com/cloudbridge-dev/cloudbridge/internal/version"
)

// App runs the bridge daemon until the context is cancelled or a termination
// signal arrives.
func App(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	log := logrus.New()
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		dataDir = filepath.Join(home, ".cloudbridge")
	}
	store, err := credentials.Open(filepath.Join(dataDir, "credentials"))
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("failed to close credential store")
		}
	}()

	catalog, err := config.LoadCatalog(cfg.CloudsFile)
	if err != nil {
		return err
	}

	shutdownTelemetry, metrics, err := telemetry.InitMetrics(cfg.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.WithError(err).Error("failed to shutdown telemetry")
		}
	}()

	jobManager := jobs.NewManager()
	defer jobManager.Close()
	manager := bridge.NewManager(cache.New(), store, jobManager, catalog, metrics, log, nil)

	log.Infof("Starting cloud bridge %s (commit: %s)", version.Version, version.GitCommit)

	versionInfo := &v0.VersionBody{
		Version:   version.Version,
		GitCommit: version.GitCommit,
		BuildTime: version.BuildDate,
	}
	server := api.NewServer(cfg, manager, metrics, versionInfo, log)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("failed to start server")
			os.Exit(1)
		}
	}()

	// Background refresh keeps every connection's modules in sync with the
	// platform without the IDE having to poll.
	refreshDone := make(chan struct{})
	if cfg.RefreshInterval > 0 {
		go func() {
			defer close(refreshDone)
			ticker := time.NewTicker(cfg.RefreshInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					manager.RefreshAll(ctx)
				}
			}
		}()
	} else {
		close(refreshDone)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")
	cancel()

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()

	if err := server.Shutdown(sctx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	<-refreshDone
	jobManager.Wait()

	log.Info("Server exiting")
	return nil
}
