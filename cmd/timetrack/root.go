package main

import (
	"github.com/spf13/cobra"

	"timetrack/internal/version"
)

var (
	// verbosity counts repeated -v flags
	verbosity int
	// configFlag is the CLI --config flag value
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:   "timetrack",
	Short: "timetrack - automatic per-project time tracking",
	Long: `timetrack watches the directories you work in and records which project
each burst of file changes belongs to. Running it without a subcommand
prints the time spent per project, like 'timetrack report'.`,
	Version: version.Info(),
	Args:    cobra.NoArgs,
	Run:     runReport,
}

func init() {
	rootCmd.SetVersionTemplate("timetrack version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Config file (default: $TIMETRACK_HOME/config.toml)")
}
