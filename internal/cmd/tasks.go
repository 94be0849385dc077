package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gravitrone/concierge/internal/api"
	"github.com/gravitrone/concierge/internal/listsync"
	"github.com/gravitrone/concierge/internal/ui/components"
)

// TasksCmd returns the `concierge tasks` command group.
func TasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage the task queue",
	}
	cmd.AddCommand(tasksListCmd())
	cmd.AddCommand(tasksAddCmd())
	cmd.AddCommand(tasksKillCmd())
	cmd.AddCommand(tasksDeleteCmd())
	cmd.AddCommand(tasksLogCmd())
	return cmd
}

// cliTaskSchema orders tasks the way the Ops page does and filters by raw
// status.
var cliTaskSchema = listsync.Schema[api.Task]{
	ID:             func(t api.Task) string { return t.ID },
	Time:           func(t api.Task) time.Time { return t.Created },
	Tab:            func(t api.Task, status string) bool { return string(t.Status) == status },
	ReverseBatches: true,
}

func tasksListCmd() *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := loadClient(cmd)
			if err != nil {
				return err
			}
			tasks, err := client.ListTasks()
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			view := listsync.FilteredView(tasks, cliTaskSchema, status, "")
			if limit > 0 && len(view) > limit {
				view = view[:limit]
			}
			out := cmd.OutOrStdout()
			if len(view) == 0 {
				fmt.Fprintln(out, "no tasks found")
				return nil
			}
			for _, t := range view {
				printTask(out, t)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "only show tasks with this status")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n tasks")
	return cmd
}

func printTask(out io.Writer, t api.Task) {
	title := components.ClampTextWidthEllipsis(components.SanitizeOneLine(t.DisplayTitle()), 60)
	fmt.Fprintf(out, "  %-12s  %-9s  %s  %s\n", t.ID, t.Status, t.Created.Local().Format("2006-01-02 15:04"), title)
}

func tasksAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <prompt>",
		Short: "Queue a task; prompts separated by a --- line queue a batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts := api.SplitPrompts(strings.Join(args, " "))
			if len(prompts) == 0 {
				return fmt.Errorf("prompt is empty")
			}
			client, _, err := loadClient(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(prompts) == 1 {
				task, err := client.CreateTask(api.CreateTaskInput{Prompt: prompts[0]})
				if err != nil {
					return fmt.Errorf("create task: %w", err)
				}
				fmt.Fprintf(out, "task queued: %s\n", task.ID)
				return nil
			}
			tasks, err := client.CreateTaskBatch(api.CreateTaskBatchInput{Prompts: prompts})
			if err != nil {
				return fmt.Errorf("create batch: %w", err)
			}
			fmt.Fprintf(out, "%d tasks queued\n", len(prompts))
			for _, t := range tasks {
				fmt.Fprintf(out, "  %s\n", t.ID)
			}
			return nil
		},
	}
}

func tasksKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <id>...",
		Short: "Cancel running or queued tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := loadClient(cmd)
			if err != nil {
				return err
			}
			return reportBulk(cmd.OutOrStdout(), listsync.RunBulk("Killed", "task", args, client.KillTask))
		},
	}
}

func tasksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := loadClient(cmd)
			if err != nil {
				return err
			}
			return reportBulk(cmd.OutOrStdout(), listsync.RunBulk("Deleted", "task", args, client.DeleteTask))
		},
	}
}

func tasksLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log <id>",
		Short: "Print a task's log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := loadClient(cmd)
			if err != nil {
				return err
			}
			log, err := client.GetTaskLog(args[0])
			if err != nil {
				if isNotFound(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "no log file found")
					return nil
				}
				return fmt.Errorf("get log: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), components.SanitizeText(log.Content))
			if !strings.HasSuffix(log.Content, "\n") {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
}

// reportBulk prints the summary and every failure. Any failure makes the
// command fail.
func reportBulk(out io.Writer, result listsync.BulkResult) error {
	fmt.Fprintln(out, result.Summary())
	for _, f := range result.Failures {
		fmt.Fprintf(out, "  %s: %v\n", f.ID, f.Err)
	}
	if result.Failed() {
		return fmt.Errorf("%d of %d failed", len(result.Failures), result.Total)
	}
	return nil
}
