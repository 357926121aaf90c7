package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"timetracker/internal/core/model"
	"timetracker/internal/report"
	"timetracker/internal/storage"
)

var (
	reportWeek bool
	reportDate string
	reportDB   string
)

func init() {
	reportCmd.Flags().BoolVar(&reportWeek, "week", false, "summarise the seven days ending on --date")
	reportCmd.Flags().StringVar(&reportDate, "date", "", "report date as YYYY-MM-DD (default today)")
	reportCmd.Flags().StringVar(&reportDB, "db", "", "database path (default from settings)")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print tracked time for a day or a week",
	Long:  "Print tracked time from the database. Works whether or not the tracker is running.",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	day, err := parseReportDate(reportDate, time.Now())
	if err != nil {
		return err
	}

	path := reportDB
	if path == "" {
		settings, err := storage.LoadSettings(AppName)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		path = settings.DatabasePath
	}
	db, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	dates := report.WeekDates(day)
	from := dates[len(dates)-1]
	if reportWeek {
		from = dates[0]
	}
	entries, err := db.ListEntries(ctx, from, dates[len(dates)-1])
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	tasks, err := db.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	week := report.BuildWeek(report.BuildDaily(entries, tasks), day)
	if reportWeek {
		return printWeek(cmd.OutOrStdout(), week)
	}
	return printDaily(cmd.OutOrStdout(), dates[len(dates)-1], week.Today)
}

func parseReportDate(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	day, err := time.ParseInLocation(model.DateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", value)
	}
	return day, nil
}

func printDaily(w io.Writer, date string, daily *report.Daily) error {
	if daily == nil || len(daily.Tasks) == 0 {
		fmt.Fprintf(w, "Nothing tracked on %s.\n", date)
		return nil
	}

	fmt.Fprintf(w, "Date: %s\n", date)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "TASK\tTIME\n")
	for _, task := range daily.Tasks {
		fmt.Fprintf(tw, "%s\t%s\n", task.TaskName, report.FormatDuration(task.TotalSeconds))
	}
	fmt.Fprintf(tw, "TOTAL\t%s\n", report.FormatDuration(daily.TotalSeconds))
	return tw.Flush()
}

func printWeek(w io.Writer, week report.Week) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "DATE\tTIME\n")
	for _, day := range week.Days {
		fmt.Fprintf(tw, "%s\t%s\n", day.Date, report.FormatDuration(day.TotalSeconds))
	}
	if len(week.Tasks) > 0 {
		fmt.Fprintf(tw, "\t\n")
		fmt.Fprintf(tw, "TASK\tTIME\n")
		for _, task := range week.Tasks {
			fmt.Fprintf(tw, "%s\t%s\n", task.TaskName, report.FormatDuration(task.TotalSeconds))
		}
	}
	fmt.Fprintf(tw, "TOTAL\t%s\n", report.FormatDuration(week.TotalSeconds))
	return tw.Flush()
}
