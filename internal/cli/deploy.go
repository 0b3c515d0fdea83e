package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/cloudbridge-dev/cloudbridge/internal/client"
	"github.com/cloudbridge-dev/cloudbridge/pkg/printer"
)

var (
	deployUnitID      string
	deployProjectPath string

	removeDeleteServices bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy <connection> <unit-name>",
	Short: "Deploy a workspace unit to a connection",
	Long:  `Schedules a background deployment of the unit. Use 'bridgectl jobs' to watch progress.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		connName, unitName := args[0], args[1]
		unitID := deployUnitID
		if unitID == "" {
			unitID = "unit:" + unitName
		}
		err := APIClient.DeployModule(cmd.Context(), connName, client.ModuleDeployRequest{
			UnitID:      unitID,
			UnitName:    unitName,
			ProjectPath: deployProjectPath,
		})
		if err != nil {
			log.Fatalf("Failed to deploy: %v", err)
		}
		printer.PrintSuccess(fmt.Sprintf("deployment of %q scheduled on %q", unitName, connName))
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <connection> <unit-id>",
	Short: "Remove a deployed module",
	Long:  `Removes the module from the connection and deletes its application on the platform. Bound services are kept unless --delete-services is set.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := APIClient.RemoveModule(cmd.Context(), args[0], args[1], removeDeleteServices); err != nil {
			log.Fatalf("Failed to remove module: %v", err)
		}
		printer.PrintSuccess(fmt.Sprintf("module %q removed from %q", args[1], args[0]))
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(removeCmd)

	deployCmd.Flags().StringVar(&deployUnitID, "unit-id", "", "Workspace unit ID (defaults to unit:<unit-name>)")
	deployCmd.Flags().StringVar(&deployProjectPath, "project-path", "", "Path to the unit's workspace project")

	removeCmd.Flags().BoolVar(&removeDeleteServices, "delete-services", false, "Also delete services bound to the application")
}
