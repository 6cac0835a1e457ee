// Package daemon keeps the PID file that marks a running tracker.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"timetrack/internal/errors"
)

// PIDFile records the process that owns the raw log while tracking
type PIDFile struct {
	path string
}

// NewPIDFile creates a new PID file manager
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the PID file location.
func (p *PIDFile) Path() string {
	return p.path
}

// Acquire writes the current process ID. It fails with TRACKER_RUNNING
// while another live process holds the file; a stale file is replaced.
func (p *PIDFile) Acquire() error {
	running, pid, err := p.IsRunning()
	if err != nil {
		return err
	}
	if running && pid != os.Getpid() {
		return errors.New(errors.TrackerRunning,
			fmt.Sprintf("tracker is already running (PID: %d)", pid)).
			WithDetails(map[string]interface{}{"pid": pid, "pidFile": p.path})
	}

	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale PID file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}

	// O_EXCL so two trackers starting together cannot both win
	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errors.New(errors.TrackerRunning, "tracker is already starting").
				WithDetails(map[string]interface{}{"pidFile": p.path})
		}
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Release removes the PID file if it still names this process
func (p *PIDFile) Release() error {
	pid, err := p.GetPID()
	if err != nil || pid != os.Getpid() {
		return nil //nolint:nilerr // a file owned by someone else is left alone
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// IsRunning checks if a tracker is currently running
// Returns (running, pid, error)
func (p *PIDFile) IsRunning() (bool, int, error) {
	pid, err := p.GetPID()
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		if _, ok := err.(*strconv.NumError); ok {
			// Invalid PID file, treat as not running
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	return processExists(pid), pid, nil
}

// GetPID returns the PID stored in the file
func (p *PIDFile) GetPID() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// processExists checks if a process with the given PID exists
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 doesn't send anything but checks if process exists
	return process.Signal(syscall.Signal(0)) == nil
}
