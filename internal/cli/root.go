// Package cli implements bridgectl, the command-line client for the
// cloud bridge daemon.
package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudbridge-dev/cloudbridge/internal/client"
)

// DefaultBaseURL is used when no --api-url flag or environment override is
// present. It matches the daemon's default listen address.
const DefaultBaseURL = "http://localhost:8080"

// APIClient is the shared API client used by all subcommands. It is
// initialized in PersistentPreRunE so tests can substitute their own.
var APIClient *client.Client

var apiURL string

var rootCmd = &cobra.Command{
	Use:   "bridgectl",
	Short: "Cloud bridge CLI",
	Long:  `bridgectl manages server connections and module deployments through a running cloud bridge daemon.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		APIClient = client.NewClient(resolveBaseURL())
		return nil
	},
}

func init() {
	envBaseURL := os.Getenv("CLOUDBRIDGE_API_BASE_URL")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envBaseURL,
		"Bridge daemon base URL (overrides CLOUDBRIDGE_API_BASE_URL; default "+DefaultBaseURL+")")
}

// Root returns the root command, for tests and embedding.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveBaseURL() string {
	base := strings.TrimSpace(apiURL)
	if base == "" {
		base = strings.TrimSpace(os.Getenv("CLOUDBRIDGE_API_BASE_URL"))
	}
	if base == "" {
		return DefaultBaseURL
	}
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return strings.TrimSuffix(base, "/")
	}
	return "http://" + strings.TrimSuffix(base, "/")
}
