package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"timetrack/internal/daemon"
	"timetrack/internal/paths"
	"timetrack/internal/storage"
	"timetrack/internal/version"
)

func TestFormatResponse_JSON(t *testing.T) {
	resp := map[string]interface{}{
		"key": "value",
		"num": 42,
	}

	result, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, `"key": "value"`) {
		t.Error("JSON output missing expected key")
	}
	if !strings.Contains(result, `"num": 42`) {
		t.Error("JSON output missing expected number")
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	resp := map[string]string{"key": "value"}

	_, err := FormatResponse(resp, "xml")
	if err == nil {
		t.Error("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestFormatResponse_Version(t *testing.T) {
	resp := &VersionResponseCLI{BuildInfo: version.Current(), Text: version.Full()}

	human, err := FormatResponse(resp, FormatHuman)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(human, "timetrack version "+version.Version) {
		t.Errorf("human = %q", human)
	}

	out, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	var info version.BuildInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatal(err)
	}
	if info.Version != version.Version {
		t.Errorf("info = %+v", info)
	}
	if strings.Contains(out, "Text") {
		t.Errorf("JSON should omit the human text: %s", out)
	}
}

func TestFormatStatusHuman(t *testing.T) {
	resp := &StatusResponseCLI{
		Version: "1.2.3",
		Home:    "/home/me/.timetrack",
		Tracker: TrackerStatusCLI{
			Running:      true,
			PID:          4242,
			TrackPaths:   []string{"/home/me/work"},
			IgnoreCheck:  true,
			GitAvailable: false,
		},
		RawLog: RawLogStatusCLI{Path: "/home/me/.timetrack/raw.log", SizeBytes: 2048, Records: 7},
		Spans: SpanStatusCLI{
			Backend:  "sqlite",
			Location: "/home/me/.timetrack/spans.db",
			Count:    3,
			LastPass: &storage.PassSummary{PassID: "abc", Spans: 2, RecordedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		},
	}

	out, err := formatStatusHuman(resp)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"timetrack Status - v1.2.3",
		"Config: defaults (no config file found)",
		"✓ Running (pid 4242)",
		"    - /home/me/work",
		"Ignore Check: Unavailable",
		"Size: 2.0 KiB",
		"Pending Records: 7",
		"Spans: 3",
		"Last Pass: abc (2 spans, 2024-01-02T03:04:05Z)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
}

func TestFormatStatusHumanProblems(t *testing.T) {
	resp := &StatusResponseCLI{
		Tracker: TrackerStatusCLI{TrackPaths: []string{}},
		RawLog:  RawLogStatusCLI{Error: "line 2: bad"},
		Spans:   SpanStatusCLI{Error: "locked"},
	}

	out, err := formatStatusHuman(resp)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"✗ Not running", "(none configured)", "Ignore Check: Disabled", "! line 2: bad", "! locked"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Pending Records") {
		t.Errorf("a broken raw log has no record count:\n%s", out)
	}
}

func TestCollectStatus(t *testing.T) {
	home := isolate(t)
	writeRawLog(t, home, "A/1\nA/2\nB/3\n")

	e, err := loadEnv()
	if err != nil {
		t.Fatal(err)
	}
	defer e.close()

	resp := collectStatus(e)
	if resp.Tracker.Running {
		t.Error("no tracker should be running")
	}
	if resp.RawLog.Records != 3 || resp.RawLog.Error != "" {
		t.Errorf("RawLog = %+v", resp.RawLog)
	}
	if resp.Spans.Count != 0 || resp.Spans.Backend != storage.BackendFile {
		t.Errorf("Spans = %+v", resp.Spans)
	}

	pid := daemon.NewPIDFile(paths.PIDPath(home))
	if err := pid.Acquire(); err != nil {
		t.Fatal(err)
	}
	defer pid.Release()

	resp = collectStatus(e)
	if !resp.Tracker.Running || resp.Tracker.PID == 0 {
		t.Errorf("Tracker = %+v, want running", resp.Tracker)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
