package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the bridge daemon configuration.
// See .env.example for more documentation.
type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:":8080"`
	DataDir       string `env:"DATA_DIR" envDefault:""`
	CloudsFile    string `env:"CLOUDS_FILE" envDefault:""`
	Version       string `env:"VERSION" envDefault:"dev"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// RefreshInterval is how often connections are refreshed against the
	// platform in the background. Zero disables the refresh loop.
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"60s"`
}

// NewConfig loads configuration from the environment, with an optional .env
// file for local development.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}
	var cfg Config
	err := env.ParseWithOptions(&cfg, env.Options{
		Prefix: "CLOUDBRIDGE_",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations the daemon cannot start with.
func Validate(cfg *Config) error {
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", cfg.LogFormat)
	}
	if cfg.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must not be negative")
	}
	return nil
}
