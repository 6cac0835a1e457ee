package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// HomeEnvVar overrides the data directory.
	HomeEnvVar = "TIMETRACK_HOME"

	// DefaultHome is the data directory name under the user's home.
	DefaultHome = ".timetrack"

	ConfigFileName   = "config.toml"
	RawLogFileName   = "raw.log"
	SpanLogFileName  = "processed.log"
	DatabaseFileName = "spans.db"
	PIDFileName      = "track.pid"
	LogsDirName      = "logs"
	TrackLogFileName = "track.log"
	BackupsDirName   = "backups"
)

// GetHome returns the data directory, honoring TIMETRACK_HOME.
func GetHome() (string, error) {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(userHome, DefaultHome), nil
}

// EnsureHome creates the data directory if needed and returns it.
func EnsureHome() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", home, err)
	}
	return home, nil
}

func ConfigPath(home string) string   { return filepath.Join(home, ConfigFileName) }
func RawLogPath(home string) string   { return filepath.Join(home, RawLogFileName) }
func SpanLogPath(home string) string  { return filepath.Join(home, SpanLogFileName) }
func DatabasePath(home string) string { return filepath.Join(home, DatabaseFileName) }
func PIDPath(home string) string      { return filepath.Join(home, PIDFileName) }
func TrackLogPath(home string) string { return filepath.Join(home, LogsDirName, TrackLogFileName) }
func BackupsDir(home string) string   { return filepath.Join(home, BackupsDirName) }

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(userHome, strings.TrimPrefix(path, "~")), nil
}

// Clean makes path absolute and lexically clean. Symlinks are not resolved.
func Clean(path string) (string, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

// RelativeTo returns path relative to root when root is a component-wise
// prefix of path. "/a/bc" is not within "/a/b".
func RelativeTo(path, root string) (string, bool) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// FirstComponent returns the first element of a relative path.
func FirstComponent(rel string) string {
	rel = filepath.ToSlash(rel)
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return rel
}
