package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"timetrack/internal/display"
)

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the time spent per project",
	Long: `Fold the raw activity log into the processed span store and print the
total time recorded for every project.`,
	Args: cobra.NoArgs,
	Run:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "human", "Output format (human, json, yaml)")
	rootCmd.Flags().StringVar(&reportFormat, "format", "human", "Output format (human, json, yaml)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) {
	if err := doReport(os.Stdout, reportFormat); err != nil {
		exitWithError(err)
	}
}

func doReport(w io.Writer, format string) error {
	outputFormat, err := display.ParseFormat(format)
	if err != nil {
		return err
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	reporter, store, err := e.newReporter()
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := reporter.Report()
	if err != nil {
		return err
	}
	e.logger.Info("Report pass complete",
		"pass", result.Pass.ID,
		"records", result.Pass.Records,
		"spans", result.Pass.Spans,
	)

	return display.Render(w, outputFormat, result.Totals)
}
