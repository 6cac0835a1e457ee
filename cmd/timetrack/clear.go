package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"timetrack/internal/report"
)

var (
	clearBackup bool
	clearYes    bool
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded time",
	Long: `Truncate the raw activity log and remove every processed span.
With --backup both are archived to the backup directory first.`,
	Args: cobra.NoArgs,
	Run:  runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&clearBackup, "backup", false, "Archive the logs before clearing")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) {
	if !clearYes && !confirm(os.Stdin, os.Stdout, "Delete all recorded time?") {
		fmt.Println("Aborted.")
		return
	}
	if err := doClear(os.Stdout, clearBackup); err != nil {
		exitWithError(err)
	}
}

func doClear(w io.Writer, backup bool) error {
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

	opts := report.ClearOptions{}
	if backup {
		opts.BackupDir = e.cfg.Storage.BackupDir
	}
	path, err := reporter.Clear(opts)
	if path != "" {
		fmt.Fprintf(w, "Backup written to %s\n", path)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Time track data cleared.")
	return nil
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
