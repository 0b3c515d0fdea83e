package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
	"github.com/cloudbridge-dev/cloudbridge/pkg/printer"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List server connections",
	Long:  `Lists every configured server connection known to the bridge daemon.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		conns, err := APIClient.ListConnections(cmd.Context())
		if err != nil {
			log.Fatalf("Failed to list connections: %v", err)
		}

		if listOutput == "json" {
			if err := printer.PrintJSON(os.Stdout, conns); err != nil {
				log.Fatalf("Failed to output JSON: %v", err)
			}
			return
		}

		if len(conns) == 0 {
			fmt.Println("No connections configured")
			return
		}
		printConnectionsTable(conns)
	},
}

func printConnectionsTable(conns []models.Connection) {
	t := printer.NewTablePrinter(os.Stdout)
	t.SetHeaders("Name", "URL", "Username", "Org", "Space", "Server ID")

	for _, c := range conns {
		t.AddRow(
			printer.TruncateString(c.Name, 30),
			printer.TruncateString(c.URL, 50),
			c.Username,
			printer.EmptyValueOrDefault(c.Org, "<none>"),
			printer.EmptyValueOrDefault(c.Space, "<none>"),
			printer.TruncateString(c.ServerID, 60),
		)
	}

	if err := t.Render(); err != nil {
		printer.PrintError(fmt.Sprintf("failed to render table: %v", err))
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table, json)")
}
