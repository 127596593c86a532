package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/airrdigital/taskmatrix/internal/matrix/application/commands"
	"github.com/airrdigital/taskmatrix/internal/matrix/application/queries"
	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
	"github.com/airrdigital/taskmatrix/internal/matrix/priority"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var (
	listStatus   string
	listUrgency  string
	listCategory string
)

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks ranked by urgency and leverage/effort score",
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := container.ListTasks.Handle(cmd.Context(), queries.ListTasksParams{
			Status:   listStatus,
			Urgency:  listUrgency,
			Category: listCategory,
		})
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tasks found.")
			return nil
		}

		priority.Sort(tasks)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tQUADRANT\tSCORE\tURGENCY\tSTATUS\tTITLE")
		for _, t := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\t%s\n",
				shortID(t.ID), priority.Classify(t).Label(), priority.DisplayScore(t),
				t.Urgency, t.Status, t.Title)
		}
		return w.Flush()
	},
}

var (
	addDescription string
	addLeverage    int
	addEffort      int
	addUrgency     string
	addCategory    string
	addTags        []string
)

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := container.CreateTask.Handle(cmd.Context(), commands.CreateTaskInput{
			Title:       args[0],
			Description: addDescription,
			Leverage:    &addLeverage,
			Effort:      &addEffort,
			Urgency:     addUrgency,
			Category:    addCategory,
			Tags:        addTags,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s [%s, score %.2f]\n",
			shortID(task.ID), task.Title,
			priority.Classify(*task).Label(), priority.DisplayScore(*task))
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid task id %q: %w", args[0], err)
		}

		status := domain.StatusCompleted
		task, err := container.UpdateTask.Handle(cmd.Context(), id, domain.Update{Status: &status})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Completed %s: %s\n", shortID(task.ID), task.Title)
		return nil
	},
}

// shortID keeps table rows readable; the full UUID is available through the API.
func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func init() {
	taskListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (active, completed, killed, or all)")
	taskListCmd.Flags().StringVar(&listUrgency, "urgency", "", "filter by urgency (today, this_week, whenever)")
	taskListCmd.Flags().StringVar(&listCategory, "category", "", "filter by category")

	taskAddCmd.Flags().StringVarP(&addDescription, "description", "d", "", "task description")
	taskAddCmd.Flags().IntVar(&addLeverage, "leverage", 5, "leverage from 1 to 10")
	taskAddCmd.Flags().IntVar(&addEffort, "effort", 5, "effort from 1 to 10")
	taskAddCmd.Flags().StringVar(&addUrgency, "urgency", "", "urgency (today, this_week, whenever)")
	taskAddCmd.Flags().StringVar(&addCategory, "category", "", "category label")
	taskAddCmd.Flags().StringSliceVar(&addTags, "tags", nil, "comma separated tags")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskDoneCmd)
	rootCmd.AddCommand(taskCmd)
}
