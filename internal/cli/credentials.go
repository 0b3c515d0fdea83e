package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/cloudbridge-dev/cloudbridge/pkg/printer"
)

var (
	credentialsUsername string
	credentialsPassword string
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials <connection>",
	Short: "Update a connection's credentials",
	Long:  `Replaces the stored credentials of a connection. Changing the username changes the connection's server identity; cached modules follow it.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conn, err := APIClient.UpdateCredentials(cmd.Context(), args[0], credentialsUsername, credentialsPassword)
		if err != nil {
			log.Fatalf("Failed to update credentials: %v", err)
		}
		printer.PrintSuccess(fmt.Sprintf("credentials updated for %q (server %s)", conn.Name, conn.ServerID))
	},
}

var spaceCmd = &cobra.Command{
	Use:   "space <connection> <org> <space>",
	Short: "Retarget a connection to another org and space",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		conn, err := APIClient.UpdateSpace(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			log.Fatalf("Failed to update space: %v", err)
		}
		printer.PrintSuccess(fmt.Sprintf("connection %q now targets %s/%s (server %s)", conn.Name, conn.Org, conn.Space, conn.ServerID))
	},
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(spaceCmd)

	credentialsCmd.Flags().StringVarP(&credentialsUsername, "username", "u", "", "New username (empty keeps the current one)")
	credentialsCmd.Flags().StringVarP(&credentialsPassword, "password", "p", "", "New password")
	_ = credentialsCmd.MarkFlagRequired("password")
}
