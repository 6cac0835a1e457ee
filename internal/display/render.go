package display

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// NoDataMessage is printed when no project has any time.
const NoDataMessage = "No time track data found"

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatHuman OutputFormat = "human"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatHuman, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Row is one project line of a report.
type Row struct {
	Project  string `json:"project" yaml:"project"`
	Seconds  uint64 `json:"seconds" yaml:"seconds"`
	Duration string `json:"duration" yaml:"duration"`
}

// Rows sorts totals by project name and drops projects with no time.
func Rows(totals map[string]uint64) []Row {
	rows := make([]Row, 0, len(totals))
	for project, seconds := range totals {
		if seconds == 0 {
			continue
		}
		rows = append(rows, Row{
			Project:  project,
			Seconds:  seconds,
			Duration: FormatDuration(seconds),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Project < rows[j].Project })
	return rows
}

// Report is the machine-readable report document.
type Report struct {
	Projects []Row  `json:"projects" yaml:"projects"`
	Total    uint64 `json:"totalSeconds" yaml:"totalSeconds"`
}

// NewReport builds the report document for totals.
func NewReport(totals map[string]uint64) Report {
	r := Report{Projects: Rows(totals)}
	for _, row := range r.Projects {
		r.Total += row.Seconds
	}
	return r
}

// Render writes totals to w in the given format.
func Render(w io.Writer, format OutputFormat, totals map[string]uint64) error {
	switch format {
	case FormatHuman, "":
		_, err := io.WriteString(w, formatHuman(w, Rows(totals))+"\n")
		return err
	case FormatJSON:
		data, err := json.MarshalIndent(NewReport(totals), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewReport(totals)); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// formatHuman draws the rows as a table styled for w. Writers that are not
// terminals get plain text.
func formatHuman(w io.Writer, rows []Row) string {
	if len(rows) == 0 {
		return NoDataMessage
	}

	renderer := lipgloss.NewRenderer(w)
	header := renderer.NewStyle().Bold(true).Padding(0, 1)
	cell := renderer.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Project Name", "Time").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, r := range rows {
		t.Row(r.Project, r.Duration)
	}
	return t.String()
}
