// Package rawlog encodes and decodes activity records of the raw log.
//
// A record is one line of the form "<project>/<timestamp>", where timestamp
// is unsigned seconds since the Unix epoch. Lines are taken exactly as
// written; no whitespace is trimmed.
package rawlog

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"timetrack/internal/errors"
)

// Separator splits the fields of a record.
const Separator = "/"

// RawLog is a single activity record for one project.
type RawLog struct {
	Project   string
	Timestamp uint64
}

// String returns the encoded line without a trailing newline.
func (r RawLog) String() string {
	return Encode(r)
}

// Encode converts a record to its line form.
func Encode(r RawLog) string {
	return r.Project + Separator + strconv.FormatUint(r.Timestamp, 10)
}

// Decode parses a single line into a record.
func Decode(line string) (RawLog, error) {
	project, ts, ok := strings.Cut(line, Separator)
	if !ok || project == "" || strings.Contains(ts, Separator) {
		return RawLog{}, errors.New(errors.MalformedRecord,
			fmt.Sprintf("could not parse line %q", line)).
			WithDetails(map[string]interface{}{"line": line})
	}

	timestamp, err := strconv.ParseUint(ts, 10, 64)
	if err != nil {
		return RawLog{}, errors.Wrap(errors.InvalidTimestamp,
			fmt.Sprintf("could not parse timestamp %q in line %q", ts, line), err).
			WithDetails(map[string]interface{}{"line": line})
	}

	// Only the canonical form round-trips through Encode.
	if len(ts) > 1 && ts[0] == '0' {
		return RawLog{}, errors.New(errors.InvalidTimestamp,
			fmt.Sprintf("timestamp %q in line %q has leading zeros", ts, line)).
			WithDetails(map[string]interface{}{"line": line})
	}

	return RawLog{Project: project, Timestamp: timestamp}, nil
}

// DecodeAll parses newline-separated records. A trailing empty line is
// ignored; any other malformed line stops decoding and is reported with its
// 1-based line number.
func DecodeAll(text string) ([]RawLog, error) {
	lines := SplitLines(text)
	logs := make([]RawLog, 0, len(lines))

	for i, line := range lines {
		log, err := Decode(line)
		if err != nil {
			return nil, annotateLine(err, i+1, line)
		}
		logs = append(logs, log)
	}

	return logs, nil
}

// EncodeAll renders records as newline-terminated lines.
func EncodeAll(logs []RawLog) string {
	var b strings.Builder
	for _, log := range logs {
		b.WriteString(Encode(log))
		b.WriteByte('\n')
	}
	return b.String()
}

// SplitLines splits text on '\n', dropping the empty line after a final
// newline. Empty text yields no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// annotateLine prefixes a freshly created decode error with its position.
func annotateLine(err error, lineNo int, line string) error {
	var te *errors.TrackError
	if !stderrors.As(err, &te) {
		return fmt.Errorf("line %d: %w", lineNo, err)
	}
	te.Message = fmt.Sprintf("line %d: %s", lineNo, te.Message)
	return te.WithDetails(map[string]interface{}{
		"lineNumber": lineNo,
		"line":       line,
	})
}
