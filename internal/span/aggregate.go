package span

import (
	"sort"

	"timetrack/internal/rawlog"
)

// Aggregate sums span durations per project. The result does not depend on
// the order of spans.
func Aggregate(spans []Span) map[string]uint64 {
	totals := make(map[string]uint64)
	for _, s := range spans {
		totals[s.Project] += s.Duration()
	}
	return totals
}

// LastTimestamps returns the latest span end seen for each project.
func LastTimestamps(spans []Span) map[string]uint64 {
	last := make(map[string]uint64)
	for _, s := range spans {
		if end, ok := last[s.Project]; !ok || s.End > end {
			last[s.Project] = s.End
		}
	}
	return last
}

// ToRawLogs converts a checkpoint map into one record per project, ordered
// by timestamp and then by project name.
func ToRawLogs(last map[string]uint64) []rawlog.RawLog {
	logs := make([]rawlog.RawLog, 0, len(last))
	for project, ts := range last {
		logs = append(logs, rawlog.RawLog{Project: project, Timestamp: ts})
	}

	sort.Slice(logs, func(i, j int) bool {
		if logs[i].Timestamp != logs[j].Timestamp {
			return logs[i].Timestamp < logs[j].Timestamp
		}
		return logs[i].Project < logs[j].Project
	})

	return logs
}

// LatestEnd returns the largest span end, or 0 when there are no spans.
func LatestEnd(spans []Span) uint64 {
	var latest uint64
	for _, s := range spans {
		if s.End > latest {
			latest = s.End
		}
	}
	return latest
}

// ClipBefore trims spans to the time after boundary. A span ending at or
// before boundary is dropped; one crossing it starts at boundary.
func ClipBefore(spans []Span, boundary uint64) []Span {
	clipped := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.End <= boundary {
			continue
		}
		if s.Start < boundary {
			s.Start = boundary
		}
		clipped = append(clipped, s)
	}
	return clipped
}

// Checkpoint returns the records a folded raw log is replaced with: the last
// span end per project in clipped, the output of ClipBefore over spans
// reconstructed from logs. A project in logs with no span left in clipped
// keeps its latest record, so folding only checkpoints changes nothing.
func Checkpoint(logs []rawlog.RawLog, clipped []Span) []rawlog.RawLog {
	last := LastTimestamps(clipped)
	carried := make(map[string]uint64)
	for _, l := range logs {
		if _, ok := last[l.Project]; ok {
			continue
		}
		if ts, ok := carried[l.Project]; !ok || l.Timestamp > ts {
			carried[l.Project] = l.Timestamp
		}
	}
	for project, ts := range carried {
		last[project] = ts
	}
	return ToRawLogs(last)
}
