package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/cloudbridge-dev/cloudbridge/internal/client"
	"github.com/cloudbridge-dev/cloudbridge/pkg/printer"
)

var (
	connectURL      string
	connectCloud    string
	connectUsername string
	connectPassword string
	connectOrg      string
	connectSpace    string
)

var connectCmd = &cobra.Command{
	Use:   "connect <name>",
	Short: "Create a server connection",
	Long:  `Creates a named connection to a cloud controller. Target either a known cloud from the catalog (--cloud) or an explicit API endpoint (--url).`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conn, err := APIClient.CreateConnection(cmd.Context(), client.ConnectionRequest{
			Name:     args[0],
			URL:      connectURL,
			Cloud:    connectCloud,
			Username: connectUsername,
			Password: connectPassword,
			Org:      connectOrg,
			Space:    connectSpace,
		})
		if err != nil {
			log.Fatalf("Failed to create connection: %v", err)
		}
		printer.PrintSuccess(fmt.Sprintf("connection %q created (server %s)", conn.Name, conn.ServerID))
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect <name>",
	Short: "Delete a server connection",
	Long:  `Deletes a connection, its cached modules, and its stored credentials.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := APIClient.DeleteConnection(cmd.Context(), args[0]); err != nil {
			log.Fatalf("Failed to delete connection: %v", err)
		}
		printer.PrintSuccess(fmt.Sprintf("connection %q deleted", args[0]))
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)

	connectCmd.Flags().StringVar(&connectURL, "url", "", "Cloud controller API endpoint")
	connectCmd.Flags().StringVar(&connectCloud, "cloud", "", "Named cloud from the catalog (ignored when --url is set)")
	connectCmd.Flags().StringVarP(&connectUsername, "username", "u", "", "Account username")
	connectCmd.Flags().StringVarP(&connectPassword, "password", "p", "", "Account password")
	connectCmd.Flags().StringVar(&connectOrg, "org", "", "Target organization")
	connectCmd.Flags().StringVar(&connectSpace, "space", "", "Target space")
	_ = connectCmd.MarkFlagRequired("username")
}
