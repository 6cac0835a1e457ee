package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"timetrack/internal/config"
	"timetrack/internal/errors"
	"timetrack/internal/paths"
)

// isolate points the CLI at a fresh home with no environment overrides.
func isolate(t *testing.T) string {
	t.Helper()
	for _, v := range config.GetSupportedEnvVars() {
		if old, ok := os.LookupEnv(v.EnvVar); ok {
			os.Unsetenv(v.EnvVar)
			t.Cleanup(func() { os.Setenv(v.EnvVar, old) })
		}
	}
	home := t.TempDir()
	t.Setenv(paths.HomeEnvVar, home)

	oldFlag := configFlag
	configFlag = ""
	t.Cleanup(func() { configFlag = oldFlag })
	return home
}

func TestLoadEnvDefaults(t *testing.T) {
	home := isolate(t)

	e, err := loadEnv()
	if err != nil {
		t.Fatalf("loadEnv() error = %v", err)
	}
	defer e.close()

	if e.home != home {
		t.Errorf("home = %q, want %q", e.home, home)
	}
	if !e.result.UsedDefaults {
		t.Error("expected defaults without a config file")
	}
	if e.cfg.RawDataPath != paths.RawLogPath(home) {
		t.Errorf("RawDataPath = %q", e.cfg.RawDataPath)
	}
}

func TestLoadEnvInvalidConfig(t *testing.T) {
	home := isolate(t)
	content := "version = 1\n[report]\nmaxGapSeconds = 0\n"
	if err := os.WriteFile(paths.ConfigPath(home), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := loadEnv()
	if !errors.HasCode(err, errors.ConfigInvalid) {
		t.Fatalf("loadEnv() error = %v, want %s", err, errors.ConfigInvalid)
	}
	if !strings.Contains(err.Error(), "report.maxGapSeconds") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestLoadEnvConfigFlag(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	if err := os.WriteFile(path, []byte("version = 1\ntrackPaths = [\"/work\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	configFlag = path

	e, err := loadEnv()
	if err != nil {
		t.Fatalf("loadEnv() error = %v", err)
	}
	defer e.close()
	if e.result.ConfigPath != path || len(e.cfg.TrackPaths) != 1 {
		t.Errorf("result = %+v, cfg.TrackPaths = %v", e.result, e.cfg.TrackPaths)
	}

	configFlag = filepath.Join(t.TempDir(), "missing.toml")
	if _, err := loadEnv(); err == nil {
		t.Error("a missing --config file should be an error")
	}
}

func TestExcludedPaths(t *testing.T) {
	home := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Logging.MaxBackups = 2
	if err := cfg.ExpandPaths(home); err != nil {
		t.Fatal(err)
	}

	got := excludedPaths(cfg, home)
	set := make(map[string]bool, len(got))
	for _, p := range got {
		if !filepath.IsAbs(p) {
			t.Errorf("excluded path %q is not absolute", p)
		}
		set[p] = true
	}

	for _, want := range []string{
		cfg.RawDataPath,
		cfg.ProcessedDataPath,
		cfg.Storage.DatabasePath,
		cfg.Storage.DatabasePath + "-wal",
		cfg.Logging.File,
		cfg.Logging.File + ".1",
		cfg.Logging.File + ".2",
		paths.PIDPath(home),
		paths.ConfigPath(home),
	} {
		if !set[want] {
			t.Errorf("excludedPaths() missing %q", want)
		}
	}
	if set[cfg.Logging.File+".3"] {
		t.Error("only configured log backups should be excluded")
	}
}

func TestPrintError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
		absent   string
	}{
		{
			name:     "plain error",
			err:      os.ErrPermission,
			contains: []string{"Error: permission denied"},
			absent:   "Suggested fixes",
		},
		{
			name:     "tracked error with fixes",
			err:      errors.New(errors.MalformedRecord, "bad line"),
			contains: []string{"Error: [MALFORMED_RECORD] bad line", "Suggested fixes:", "  - "},
		},
		{
			name: "custom fix",
			err: errors.New(errors.InternalError, "boom").WithFix(errors.FixAction{
				Type:        errors.RunCommand,
				Command:     "timetrack status",
				Description: "Check the tracker",
			}),
			contains: []string{"Check the tracker: timetrack status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printError(&buf, tt.err)
			out := buf.String()
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			if tt.absent != "" && strings.Contains(out, tt.absent) {
				t.Errorf("output should not contain %q:\n%s", tt.absent, out)
			}
		})
	}
}

func TestTrackRoots(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TrackPaths = []string{"/work/../work/src", "relative"}

	roots, err := trackRoots(cfg)
	if err != nil {
		t.Fatalf("trackRoots() error = %v", err)
	}
	if roots[0] != filepath.Clean("/work/src") {
		t.Errorf("roots[0] = %q", roots[0])
	}
	if !filepath.IsAbs(roots[1]) {
		t.Errorf("roots[1] = %q, want absolute", roots[1])
	}
}
