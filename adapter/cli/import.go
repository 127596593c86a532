package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/airrdigital/taskmatrix/internal/connector"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import tasks from an external source",
}

var importSlackCmd = &cobra.Command{
	Use:   "slack",
	Short: "Import actionable Slack messages as tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, container.SlackConnector)
	},
}

var importAirtableCmd = &cobra.Command{
	Use:   "airtable",
	Short: "Import assigned Airtable records as tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, container.AirtableConnector)
	},
}

func runImport(cmd *cobra.Command, conn connector.Connector) error {
	result, err := container.ImportTasks.Handle(cmd.Context(), conn)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported: %d\n", result.Imported)
	fmt.Fprintf(out, "Skipped:  %d\n", result.Skipped)
	if result.Message != "" {
		fmt.Fprintln(out, result.Message)
	}
	for _, task := range result.Tasks {
		fmt.Fprintf(out, "  + %s (%s)\n", task.Title, task.ID)
	}
	return nil
}

func init() {
	importCmd.AddCommand(importSlackCmd)
	importCmd.AddCommand(importAirtableCmd)
	rootCmd.AddCommand(importCmd)
}
