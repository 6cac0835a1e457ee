// Package span reconstructs contiguous blocks of activity from raw log
// records and reduces them to per-project totals and checkpoints.
package span

import (
	"fmt"
	"strconv"
	"strings"

	"timetrack/internal/errors"
	"timetrack/internal/rawlog"
)

// Span is a contiguous block of attributed activity for one project.
// End is never before Start.
type Span struct {
	Project string
	Start   uint64
	End     uint64
}

// Duration returns the length of the span in seconds.
func (s Span) Duration() uint64 {
	return s.End - s.Start
}

// String returns the processed-log line for the span.
func (s Span) String() string {
	return Encode(s)
}

// Encode renders a span as "<project>/<start>/<end>".
func Encode(s Span) string {
	return s.Project + rawlog.Separator +
		strconv.FormatUint(s.Start, 10) + rawlog.Separator +
		strconv.FormatUint(s.End, 10)
}

// Decode parses a processed-log line.
func Decode(line string) (Span, error) {
	fields := strings.Split(line, rawlog.Separator)
	if len(fields) != 3 || fields[0] == "" {
		return Span{}, errors.New(errors.MalformedRecord,
			fmt.Sprintf("could not parse span %q", line))
	}

	start, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return Span{}, errors.Wrap(errors.InvalidTimestamp,
			fmt.Sprintf("could not parse start %q in span %q", fields[1], line), err)
	}
	end, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return Span{}, errors.Wrap(errors.InvalidTimestamp,
			fmt.Sprintf("could not parse end %q in span %q", fields[2], line), err)
	}
	if end < start {
		return Span{}, errors.New(errors.MalformedRecord,
			fmt.Sprintf("span %q ends before it starts", line))
	}

	return Span{Project: fields[0], Start: start, End: end}, nil
}

// DecodeAll parses newline-separated spans, stopping at the first bad line.
func DecodeAll(text string) ([]Span, error) {
	lines := rawlog.SplitLines(text)
	spans := make([]Span, 0, len(lines))

	for i, line := range lines {
		s, err := Decode(line)
		if err != nil {
			return nil, fmt.Errorf("processed log line %d: %w", i+1, err)
		}
		spans = append(spans, s)
	}

	return spans, nil
}

// EncodeAll renders spans as newline-terminated lines.
func EncodeAll(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(Encode(s))
		b.WriteByte('\n')
	}
	return b.String()
}
