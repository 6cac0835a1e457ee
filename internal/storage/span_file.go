package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"timetrack/internal/span"
)

// SpanFile stores spans as `project/start/end` lines.
type SpanFile struct {
	path string
}

// NewSpanFile returns a store backed by the file at path.
func NewSpanFile(path string) *SpanFile {
	return &SpanFile{path: path}
}

// Add appends spans. The pass identifier is not recorded in this format.
func (f *SpanFile) Add(_ string, spans []span.Span) error {
	if len(spans) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating span log directory: %w", err)
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening span log: %w", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return err
	}
	defer unlockFile(file)

	if _, err := io.WriteString(file, span.EncodeAll(spans)); err != nil {
		return fmt.Errorf("appending to span log: %w", err)
	}
	return file.Sync()
}

// All decodes the whole file. A missing file reads as empty.
func (f *SpanFile) All() ([]span.Span, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return []span.Span{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading span log: %w", err)
	}
	return span.DecodeAll(string(data))
}

// LatestEnd scans the whole file.
func (f *SpanFile) LatestEnd() (uint64, error) {
	spans, err := f.All()
	if err != nil {
		return 0, err
	}
	return span.LatestEnd(spans), nil
}

// Clear truncates the file.
func (f *SpanFile) Clear() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating span log directory: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("opening span log: %w", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return err
	}
	defer unlockFile(file)

	return overwrite(file, "")
}

func (f *SpanFile) Location() string { return f.path }
func (f *SpanFile) Close() error     { return nil }
