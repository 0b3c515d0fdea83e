package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudbridge-dev/cloudbridge/pkg/printer"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List background jobs",
	Long:  `Lists the daemon's background jobs: deployments and module cleanups.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		listed, err := APIClient.ListJobs(cmd.Context())
		if err != nil {
			log.Fatalf("Failed to list jobs: %v", err)
		}
		if len(listed) == 0 {
			fmt.Println("No jobs")
			return
		}

		t := printer.NewTablePrinter(os.Stdout)
		t.SetHeaders("ID", "Type", "Status", "Age", "Error")
		for _, j := range listed {
			t.AddRow(
				j.ID,
				j.Type,
				j.Status,
				printer.FormatAge(j.CreatedAt),
				printer.EmptyValueOrDefault(printer.TruncateString(j.Error, 60), "-"),
			)
		}
		if err := t.Render(); err != nil {
			printer.PrintError(fmt.Sprintf("failed to render table: %v", err))
		}
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a running job",
	Long:  `Requests cooperative cancellation. A cancelled deployment rolls back units it had not finished deploying.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := APIClient.CancelJob(cmd.Context(), args[0]); err != nil {
			log.Fatalf("Failed to cancel job: %v", err)
		}
		printer.PrintSuccess(fmt.Sprintf("cancellation requested for job %s", args[0]))
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(cancelCmd)
}
