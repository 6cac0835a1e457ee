package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"timetrack/internal/backends/git"
	"timetrack/internal/daemon"
	"timetrack/internal/paths"
	"timetrack/internal/storage"
	"timetrack/internal/version"
)

var (
	statusFormat string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show timetrack status",
	Long:  "Display whether the tracker is running and the state of the raw log and span store",
	Args:  cobra.NoArgs,
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(statusCmd)
}

// StatusResponseCLI contains the complete status for CLI output
type StatusResponseCLI struct {
	Version    string           `json:"version"`
	Home       string           `json:"home"`
	ConfigPath string           `json:"configPath,omitempty"`
	Tracker    TrackerStatusCLI `json:"tracker"`
	RawLog     RawLogStatusCLI  `json:"rawLog"`
	Spans      SpanStatusCLI    `json:"spans"`
}

// TrackerStatusCLI describes the watch loop
type TrackerStatusCLI struct {
	Running      bool     `json:"running"`
	PID          int      `json:"pid,omitempty"`
	TrackPaths   []string `json:"trackPaths"`
	IgnoreCheck  bool     `json:"ignoreCheck"`
	GitAvailable bool     `json:"gitAvailable"`
}

// RawLogStatusCLI describes the records awaiting a report pass
type RawLogStatusCLI struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"sizeBytes"`
	Records   int    `json:"records"`
	Error     string `json:"error,omitempty"`
}

// SpanStatusCLI describes the processed span store
type SpanStatusCLI struct {
	Backend  string               `json:"backend"`
	Location string               `json:"location"`
	Count    int                  `json:"count"`
	LastPass *storage.PassSummary `json:"lastPass,omitempty"`
	Error    string               `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) {
	e := mustLoadEnv()

	output, err := FormatResponse(collectStatus(e), OutputFormat(statusFormat))
	e.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

// collectStatus never fails. Problems with a store are reported in its
// section.
func collectStatus(e *env) *StatusResponseCLI {
	resp := &StatusResponseCLI{
		Version: version.Version,
		Home:    e.home,
		Tracker: TrackerStatusCLI{
			TrackPaths:   e.cfg.TrackPaths,
			IgnoreCheck:  e.cfg.Tracking.IgnoreCheck,
			GitAvailable: git.NewGitAdapter(e.cfg.Tracking.GitTimeout(), e.logger).IsAvailable(),
		},
		RawLog: RawLogStatusCLI{Path: e.cfg.RawDataPath},
		Spans: SpanStatusCLI{
			Backend:  e.cfg.Storage.Backend,
			Location: e.cfg.ProcessedDataPath,
		},
	}
	if !e.result.UsedDefaults {
		resp.ConfigPath = e.result.ConfigPath
	}
	if resp.Tracker.TrackPaths == nil {
		resp.Tracker.TrackPaths = []string{}
	}

	running, pid, err := daemon.NewPIDFile(paths.PIDPath(e.home)).IsRunning()
	if err != nil {
		e.logger.Warn("Failed to read PID file", "error", err.Error())
	}
	resp.Tracker.Running = running
	resp.Tracker.PID = pid

	if info, err := os.Stat(e.cfg.RawDataPath); err == nil {
		resp.RawLog.SizeBytes = info.Size()
	}
	logs, err := storage.NewRawLogFile(e.cfg.RawDataPath).Read()
	if err != nil {
		resp.RawLog.Error = err.Error()
	} else {
		resp.RawLog.Records = len(logs)
	}

	store, err := e.openSpanStore()
	if err != nil {
		resp.Spans.Error = err.Error()
		return resp
	}
	defer store.Close()
	resp.Spans.Location = store.Location()

	spans, err := store.All()
	if err != nil {
		resp.Spans.Error = err.Error()
		return resp
	}
	resp.Spans.Count = len(spans)

	if db, ok := store.(*storage.SpanDB); ok {
		passes, err := db.Passes(1)
		if err != nil {
			resp.Spans.Error = err.Error()
		} else if len(passes) > 0 {
			resp.Spans.LastPass = &passes[0]
		}
	}
	return resp
}
