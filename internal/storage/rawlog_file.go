package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"timetrack/internal/rawlog"
)

// RawLogFile is the append-only activity log. Every operation opens the
// file, takes an exclusive lock, and closes it again.
type RawLogFile struct {
	path string
}

// NewRawLogFile returns a handle for the log at path. The file is created on
// first write.
func NewRawLogFile(path string) *RawLogFile {
	return &RawLogFile{path: path}
}

// Path returns the file location.
func (f *RawLogFile) Path() string {
	return f.path
}

// Append writes records to the end of the log.
func (f *RawLogFile) Append(logs []rawlog.RawLog) error {
	if len(logs) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating raw log directory: %w", err)
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening raw log: %w", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return err
	}
	defer unlockFile(file)

	if _, err := io.WriteString(file, rawlog.EncodeAll(logs)); err != nil {
		return fmt.Errorf("appending to raw log: %w", err)
	}
	return file.Sync()
}

// Read decodes the whole log. A missing file reads as empty.
func (f *RawLogFile) Read() ([]rawlog.RawLog, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return []rawlog.RawLog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading raw log: %w", err)
	}
	return rawlog.DecodeAll(string(data))
}

// Rewrite reads the log, passes the records to fn, and replaces the file
// contents with fn's result. The lock is held throughout, so no append can
// slip in between the read and the write. If fn fails the file is untouched.
func (f *RawLogFile) Rewrite(fn func([]rawlog.RawLog) ([]rawlog.RawLog, error)) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating raw log directory: %w", err)
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("opening raw log: %w", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return err
	}
	defer unlockFile(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("reading raw log: %w", err)
	}
	logs, err := rawlog.DecodeAll(string(data))
	if err != nil {
		return err
	}

	next, err := fn(logs)
	if err != nil {
		return err
	}

	return overwrite(file, rawlog.EncodeAll(next))
}

// Clear truncates the log without decoding it, so a corrupt log can still
// be cleared.
func (f *RawLogFile) Clear() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating raw log directory: %w", err)
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("opening raw log: %w", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return err
	}
	defer unlockFile(file)

	return overwrite(file, "")
}

func overwrite(file *os.File, content string) error {
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncating %s: %w", file.Name(), err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seeking %s: %w", file.Name(), err)
	}
	if _, err := io.WriteString(file, content); err != nil {
		return fmt.Errorf("writing %s: %w", file.Name(), err)
	}
	return file.Sync()
}
