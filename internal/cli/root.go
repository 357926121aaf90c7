// Package cli implements the timetracker command line using Cobra. Without a
// subcommand it runs the desktop tracker; subcommands drive a running
// instance through its control API or read the database directly.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"timetracker/internal/app"
	"timetracker/internal/platform"
)

// AppName names the config directory, the instance port and the login item.
const AppName = "TimeTracker"

var (
	hidden  bool
	address string
)

var rootCmd = &cobra.Command{
	Use:   "timetracker",
	Short: "Personal time tracker",
	Long: `timetracker keeps a stopwatch per task and records each finished run as a
time entry. Run it without arguments to open the tracker; use the subcommands
to control a running tracker from the terminal.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTracker,
}

func init() {
	rootCmd.Flags().BoolVar(&hidden, strings.TrimPrefix(platform.HiddenFlag, "--"), false,
		"start in the system tray without opening the window")
	rootCmd.PersistentFlags().StringVar(&address, "address", platform.InstanceAddress(AppName),
		"control address of the running tracker")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runTracker(cmd *cobra.Command, args []string) error {
	err := app.Run(app.Options{AppName: AppName, Hidden: hidden})
	if errors.Is(err, platform.ErrAlreadyRunning) {
		return fmt.Errorf("%w; use 'timetracker status' to talk to it", err)
	}
	return err
}
