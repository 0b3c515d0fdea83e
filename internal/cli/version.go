package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudbridge-dev/cloudbridge/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bridgectl %s (commit: %s, built: %s)\n", version.Version, version.GitCommit, version.BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
