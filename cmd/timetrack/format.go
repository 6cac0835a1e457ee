package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatTOML  OutputFormat = "toml"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *StatusResponseCLI:
		return formatStatusHuman(v)
	case *VersionResponseCLI:
		return v.Text, nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// formatStatusHuman formats a StatusResponseCLI in human-readable format
func formatStatusHuman(resp *StatusResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("timetrack Status - v%s\n", resp.Version))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(fmt.Sprintf("Home: %s\n", resp.Home))
	if resp.ConfigPath != "" {
		b.WriteString(fmt.Sprintf("Config: %s\n", resp.ConfigPath))
	} else {
		b.WriteString("Config: defaults (no config file found)\n")
	}
	b.WriteString("\n")

	b.WriteString("Tracker:\n")
	if resp.Tracker.Running {
		b.WriteString(fmt.Sprintf("  ✓ Running (pid %d)\n", resp.Tracker.PID))
	} else {
		b.WriteString("  ✗ Not running\n")
	}
	if len(resp.Tracker.TrackPaths) == 0 {
		b.WriteString("  Track Paths: (none configured)\n")
	} else {
		b.WriteString("  Track Paths:\n")
		for _, p := range resp.Tracker.TrackPaths {
			b.WriteString(fmt.Sprintf("    - %s\n", p))
		}
	}
	gitText := "Available"
	if !resp.Tracker.GitAvailable {
		gitText = "Unavailable (ignore rules not applied)"
	}
	if !resp.Tracker.IgnoreCheck {
		gitText = "Disabled"
	}
	b.WriteString(fmt.Sprintf("  Ignore Check: %s\n\n", gitText))

	b.WriteString("Raw Log:\n")
	b.WriteString(fmt.Sprintf("  Path: %s\n", resp.RawLog.Path))
	b.WriteString(fmt.Sprintf("  Size: %s\n", formatBytes(resp.RawLog.SizeBytes)))
	if resp.RawLog.Error != "" {
		b.WriteString(fmt.Sprintf("  ! %s\n", resp.RawLog.Error))
	} else {
		b.WriteString(fmt.Sprintf("  Pending Records: %d\n", resp.RawLog.Records))
	}
	b.WriteString("\n")

	b.WriteString("Span Store:\n")
	b.WriteString(fmt.Sprintf("  Backend: %s\n", resp.Spans.Backend))
	b.WriteString(fmt.Sprintf("  Location: %s\n", resp.Spans.Location))
	if resp.Spans.Error != "" {
		b.WriteString(fmt.Sprintf("  ! %s\n", resp.Spans.Error))
	} else {
		b.WriteString(fmt.Sprintf("  Spans: %d\n", resp.Spans.Count))
	}
	if resp.Spans.LastPass != nil {
		b.WriteString(fmt.Sprintf("  Last Pass: %s (%d spans, %s)\n",
			resp.Spans.LastPass.PassID,
			resp.Spans.LastPass.Spans,
			resp.Spans.LastPass.RecordedAt.Format(time.RFC3339)))
	}

	return b.String(), nil
}

// formatBytes formats byte size in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
