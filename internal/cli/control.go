package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"timetracker/internal/control"
	"timetracker/internal/report"
)

const requestTimeout = 5 * time.Second

func init() {
	rootCmd.AddCommand(statusCmd, startCmd, pauseCmd, stopCmd, selectCmd, tasksCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running stopwatch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *control.Client) error {
			status, err := client.Status(ctx)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start or resume the stopwatch for the active task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *control.Client) error {
			status, err := client.Start(ctx)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		})
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the stopwatch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *control.Client) error {
			status, err := client.Pause(ctx)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the stopwatch and record the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *control.Client) error {
			stopped, err := client.Stop(ctx)
			if err != nil {
				return err
			}
			printRecorded(cmd.OutOrStdout(), stopped.Recorded)
			printStatus(cmd.OutOrStdout(), stopped.State)
			return nil
		})
	},
}

var selectCmd = &cobra.Command{
	Use:   "select TASK",
	Short: "Make TASK (id or name) the active task",
	Long:  "Make TASK the active task. A session in progress is stopped and recorded first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *control.Client) error {
			selected, err := client.Select(ctx, args[0])
			if err != nil {
				return err
			}
			printRecorded(cmd.OutOrStdout(), selected.Recorded)
			printStatus(cmd.OutOrStdout(), selected.State)
			return nil
		})
	},
}

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"ls"},
	Short:   "List tasks with their total tracked time",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *control.Client) error {
			tasks, err := client.Tasks(ctx)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ACTIVE\tNAME\tTOTAL\tID")
			for _, task := range tasks {
				marker := ""
				if task.Active {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, task.Name, report.FormatDuration(task.TotalSeconds), task.ID)
			}
			return w.Flush()
		})
	},
}

func withClient(cmd *cobra.Command, fn func(ctx context.Context, client *control.Client) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	err := fn(ctx, control.NewClient(address))
	if errors.Is(err, control.ErrNotRunning) {
		return fmt.Errorf("%w at %s; start it with 'timetracker'", err, address)
	}
	return err
}

func printStatus(w io.Writer, status control.StatusResponse) {
	task := status.TaskName
	if task == "" {
		task = "(no task)"
	}
	fmt.Fprintf(w, "%s  %s  %s\n", status.Status, status.Clock, task)
}

func printRecorded(w io.Writer, entry *control.EntryResponse) {
	if entry == nil {
		return
	}
	fmt.Fprintf(w, "Recorded %s on %s (%s)\n", report.FormatDuration(entry.DurationSeconds), entry.TaskName, entry.Date)
}
