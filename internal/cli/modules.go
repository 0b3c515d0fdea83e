package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
	"github.com/cloudbridge-dev/cloudbridge/pkg/printer"
)

var modulesOutput string

var modulesCmd = &cobra.Command{
	Use:   "modules <connection>",
	Short: "List the modules of a connection",
	Long:  `Lists the cached modules of a connection: workspace units linked to remote applications plus applications discovered on the server.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mods, err := APIClient.ListModules(cmd.Context(), args[0])
		if err != nil {
			log.Fatalf("Failed to list modules: %v", err)
		}

		if modulesOutput == "json" {
			if err := printer.PrintJSON(os.Stdout, mods); err != nil {
				log.Fatalf("Failed to output JSON: %v", err)
			}
			return
		}

		if len(mods) == 0 {
			fmt.Println("No modules cached; try 'bridgectl refresh'")
			return
		}
		printModulesTable(mods)
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <connection>",
	Short: "Reconcile a connection against the platform",
	Long:  `Fetches the application inventory from the platform, reconciles the module cache, and prints the result.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mods, err := APIClient.Refresh(cmd.Context(), args[0])
		if err != nil {
			log.Fatalf("Failed to refresh: %v", err)
		}
		if len(mods) == 0 {
			fmt.Println("No modules found")
			return
		}
		printModulesTable(mods)
	},
}

func printModulesTable(mods []models.Module) {
	t := printer.NewTablePrinter(os.Stdout)
	t.SetHeaders("Unit", "Name", "App", "Link", "State", "Source")

	for _, m := range mods {
		source := "workspace"
		if m.External {
			source = "external"
		}
		t.AddRow(
			printer.EmptyValueOrDefault(printer.TruncateString(m.UnitID, 40), "<none>"),
			printer.EmptyValueOrDefault(m.UnitName, "<none>"),
			printer.TruncateString(m.AppName, 40),
			m.Link,
			m.State,
			source,
		)
	}

	if err := t.Render(); err != nil {
		printer.PrintError(fmt.Sprintf("failed to render table: %v", err))
	}
}

func init() {
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(refreshCmd)
	modulesCmd.Flags().StringVarP(&modulesOutput, "output", "o", "table", "Output format (table, json)")
}
