package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"timetrack/internal/version"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run:   runVersion,
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(versionCmd)
}

// VersionResponseCLI is the version command output
type VersionResponseCLI struct {
	version.BuildInfo
	Text string `json:"-"`
}

func runVersion(cmd *cobra.Command, args []string) {
	resp := &VersionResponseCLI{BuildInfo: version.Current(), Text: version.Full()}
	output, err := FormatResponse(resp, OutputFormat(versionFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
