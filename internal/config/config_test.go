package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable the loader reads for the duration of t.
func clearEnv(t *testing.T) {
	t.Helper()
	names := []string{ConfigPathEnvVar}
	for name := range envVarMappings {
		names = append(names, name)
	}
	for _, name := range names {
		if old, ok := os.LookupEnv(name); ok {
			os.Unsetenv(name)
			t.Cleanup(func() { os.Setenv(name, old) })
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.TrackPaths == nil || len(cfg.TrackPaths) != 0 {
		t.Errorf("TrackPaths = %v, want empty", cfg.TrackPaths)
	}

	if cfg.Tracking.QuietWindow() != 2*time.Second {
		t.Errorf("QuietWindow() = %v, want 2s", cfg.Tracking.QuietWindow())
	}
	if cfg.Tracking.PollInterval() != 50*time.Millisecond {
		t.Errorf("PollInterval() = %v, want 50ms", cfg.Tracking.PollInterval())
	}
	if cfg.Tracking.GitTimeout() != 5*time.Second {
		t.Errorf("GitTimeout() = %v, want 5s", cfg.Tracking.GitTimeout())
	}
	if !reflect.DeepEqual(cfg.Tracking.SkipDirs, []string{".git"}) {
		t.Errorf("SkipDirs = %v, want [.git]", cfg.Tracking.SkipDirs)
	}
	if !cfg.Tracking.IgnoreCheck {
		t.Error("IgnoreCheck should be enabled by default")
	}

	if cfg.Report.MaxGapSeconds != 300 {
		t.Errorf("MaxGapSeconds = %d, want 300", cfg.Report.MaxGapSeconds)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend = %q, want file", cfg.Storage.Backend)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad version", func(c *Config) { c.Version = 99 }, "version"},
		{"empty root", func(c *Config) { c.TrackPaths = []string{"/a", ""} }, "trackPaths[1]"},
		{"zero window", func(c *Config) { c.Tracking.QuietWindowMs = 0 }, "tracking.quietWindowMs"},
		{"zero poll", func(c *Config) { c.Tracking.PollIntervalMs = 0 }, "tracking.pollIntervalMs"},
		{"poll beyond window", func(c *Config) { c.Tracking.PollIntervalMs = 5000 }, "tracking.pollIntervalMs"},
		{"zero git timeout", func(c *Config) { c.Tracking.GitTimeoutMs = 0 }, "tracking.gitTimeoutMs"},
		{"zero gap", func(c *Config) { c.Report.MaxGapSeconds = 0 }, "report.maxGapSeconds"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
		{"sqlite backend", func(c *Config) { c.Storage.Backend = "sqlite" }, ""},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad size", func(c *Config) { c.Logging.MaxSize = "huge" }, "logging.maxSize"},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.maxBackups"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}

			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestConfig_ValidateForTracking(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidateForTracking(); err == nil {
		t.Error("ValidateForTracking() should require trackPaths")
	}

	cfg.TrackPaths = []string{"/home/me/code"}
	if err := cfg.ValidateForTracking(); err != nil {
		t.Errorf("ValidateForTracking() = %v", err)
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "report.maxGapSeconds", Message: "must be positive"}
	want := "config error in field 'report.maxGapSeconds': must be positive"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestExpandPaths(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig()

	if err := cfg.ExpandPaths(home); err != nil {
		t.Fatalf("ExpandPaths() error = %v", err)
	}

	want := map[string]string{
		"rawDataPath":          filepath.Join(home, "raw.log"),
		"processedDataPath":    filepath.Join(home, "processed.log"),
		"storage.databasePath": filepath.Join(home, "spans.db"),
		"storage.backupDir":    filepath.Join(home, "backups"),
		"logging.file":         filepath.Join(home, "logs", "track.log"),
	}
	got := map[string]string{
		"rawDataPath":          cfg.RawDataPath,
		"processedDataPath":    cfg.ProcessedDataPath,
		"storage.databasePath": cfg.Storage.DatabasePath,
		"storage.backupDir":    cfg.Storage.BackupDir,
		"logging.file":         cfg.Logging.File,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandPaths() = %v, want %v", got, want)
	}
}

func TestExpandPaths_Tilde(t *testing.T) {
	userHome, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no user home directory")
	}

	cfg := DefaultConfig()
	cfg.TrackPaths = []string{"~/code", "/abs"}
	cfg.RawDataPath = "~/raw.log"

	if err := cfg.ExpandPaths(t.TempDir()); err != nil {
		t.Fatalf("ExpandPaths() error = %v", err)
	}
	if cfg.TrackPaths[0] != filepath.Join(userHome, "code") || cfg.TrackPaths[1] != "/abs" {
		t.Errorf("TrackPaths = %v", cfg.TrackPaths)
	}
	if cfg.RawDataPath != filepath.Join(userHome, "raw.log") {
		t.Errorf("RawDataPath = %q", cfg.RawDataPath)
	}
}

func TestLoadConfig_Default(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Report.MaxGapSeconds != 300 {
		t.Errorf("MaxGapSeconds = %d, want 300", cfg.Report.MaxGapSeconds)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()

	content := `version = 1
trackPaths = ["/work/a", "/work/b"]

[report]
maxGapSeconds = 600

[storage]
backend = "sqlite"
`
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := LoadConfigWithDetails(home)
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	cfg := result.Config

	if result.UsedDefaults {
		t.Error("UsedDefaults should be false when the file exists")
	}
	if !reflect.DeepEqual(cfg.TrackPaths, []string{"/work/a", "/work/b"}) {
		t.Errorf("TrackPaths = %v", cfg.TrackPaths)
	}
	if cfg.Report.MaxGapSeconds != 600 {
		t.Errorf("MaxGapSeconds = %d, want 600", cfg.Report.MaxGapSeconds)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want sqlite", cfg.Storage.Backend)
	}

	// keys missing from the file keep their defaults
	if cfg.Tracking.QuietWindowMs != 2000 {
		t.Errorf("QuietWindowMs = %d, want 2000", cfg.Tracking.QuietWindowMs)
	}
	if !cfg.Tracking.IgnoreCheck {
		t.Error("IgnoreCheck should keep its default")
	}
	if cfg.RawDataPath != filepath.Join(home, "raw.log") {
		t.Errorf("RawDataPath = %q", cfg.RawDataPath)
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()

	cfg := DefaultConfig()
	cfg.TrackPaths = []string{"/work"}
	cfg.Tracking.IgnoreCheck = false
	cfg.Report.MaxGapSeconds = 120

	path := filepath.Join(home, "config.toml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "maxGapSeconds = 120") {
		t.Errorf("saved TOML missing maxGapSeconds:\n%s", data)
	}

	loaded, err := LoadConfig(home)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Tracking.IgnoreCheck {
		t.Error("IgnoreCheck = true after round trip, want false")
	}
	if loaded.Report.MaxGapSeconds != 120 {
		t.Errorf("MaxGapSeconds = %d, want 120", loaded.Report.MaxGapSeconds)
	}
	if !reflect.DeepEqual(loaded.TrackPaths, []string{"/work"}) {
		t.Errorf("TrackPaths = %v", loaded.TrackPaths)
	}
}

func TestSave_ErrorHandling(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := DefaultConfig().Save(filepath.Join(blocker, "config.toml")); err == nil {
		t.Error("Save() should fail when the directory cannot be created")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config, overrides []EnvOverride)
	}{
		{
			name:    "logging level override",
			envVars: map[string]string{"TIMETRACK_LOG_LEVEL": "debug"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
				}
				if len(overrides) != 1 {
					t.Errorf("len(overrides) = %d, want 1", len(overrides))
				}
			},
		},
		{
			name:    "track paths list",
			envVars: map[string]string{"TIMETRACK_TRACKPATHS": "/a, /b,,"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if !reflect.DeepEqual(cfg.TrackPaths, []string{"/a", "/b"}) {
					t.Errorf("TrackPaths = %v, want [/a /b]", cfg.TrackPaths)
				}
			},
		},
		{
			name:    "int override",
			envVars: map[string]string{"TIMETRACK_REPORT_MAXGAPSECONDS": "600"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Report.MaxGapSeconds != 600 {
					t.Errorf("MaxGapSeconds = %d, want 600", cfg.Report.MaxGapSeconds)
				}
				if overrides[0].Path != "report.maxGapSeconds" || overrides[0].FromValue != "600" {
					t.Errorf("override = %+v", overrides[0])
				}
			},
		},
		{
			name:    "bool override",
			envVars: map[string]string{"TIMETRACK_TRACKING_IGNORECHECK": "false"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Tracking.IgnoreCheck {
					t.Error("IgnoreCheck should be false")
				}
			},
		},
		{
			name: "multiple overrides",
			envVars: map[string]string{
				"TIMETRACK_STORAGE_BACKEND":        "sqlite",
				"TIMETRACK_TRACKING_QUIETWINDOWMS": "5000",
				"TIMETRACK_LOGGING_MAXBACKUPS":     "7",
			},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Storage.Backend != "sqlite" {
					t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
				}
				if cfg.Tracking.QuietWindowMs != 5000 {
					t.Errorf("QuietWindowMs = %d", cfg.Tracking.QuietWindowMs)
				}
				if cfg.Logging.MaxBackups != 7 {
					t.Errorf("MaxBackups = %d", cfg.Logging.MaxBackups)
				}
				if len(overrides) != 3 {
					t.Errorf("len(overrides) = %d, want 3", len(overrides))
				}
				for i := 1; i < len(overrides); i++ {
					if overrides[i-1].EnvVar > overrides[i].EnvVar {
						t.Errorf("overrides not sorted: %v", overrides)
					}
				}
			},
		},
		{
			name:    "invalid int ignored",
			envVars: map[string]string{"TIMETRACK_REPORT_MAXGAPSECONDS": "soon"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Report.MaxGapSeconds != 300 {
					t.Errorf("MaxGapSeconds = %d, want 300 (default)", cfg.Report.MaxGapSeconds)
				}
				if len(overrides) != 0 {
					t.Errorf("len(overrides) = %d, want 0 (invalid value should be skipped)", len(overrides))
				}
			},
		},
		{
			name:    "invalid bool ignored",
			envVars: map[string]string{"TIMETRACK_TRACKING_IGNORECHECK": "maybe"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if !cfg.Tracking.IgnoreCheck {
					t.Error("IgnoreCheck should keep its default")
				}
				if len(overrides) != 0 {
					t.Errorf("len(overrides) = %d, want 0", len(overrides))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := DefaultConfig()
			overrides := applyEnvOverrides(cfg)

			tt.validate(t, cfg, overrides)
		})
	}
}

func TestLoadConfigWithDetails(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()

	result, err := LoadConfigWithDetails(home)
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	if !result.UsedDefaults {
		t.Error("UsedDefaults should be true without a config file")
	}
	if result.ConfigPath != filepath.Join(home, "config.toml") {
		t.Errorf("ConfigPath = %q", result.ConfigPath)
	}
	if len(result.EnvOverrides) != 0 {
		t.Errorf("EnvOverrides = %v, want none", result.EnvOverrides)
	}
}

func TestLoadConfigWithDetails_EnvConfigPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	custom := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(custom, []byte("version = 1\n[report]\nmaxGapSeconds = 42\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, custom)

	result, err := LoadConfigWithDetails(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	if result.ConfigPath != custom {
		t.Errorf("ConfigPath = %q, want %q", result.ConfigPath, custom)
	}
	if result.Config.Report.MaxGapSeconds != 42 {
		t.Errorf("MaxGapSeconds = %d, want 42", result.Config.Report.MaxGapSeconds)
	}
}

func TestLoadConfigWithDetails_EnvOverridesApplied(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMETRACK_LOG_LEVEL", "debug")
	t.Setenv("TIMETRACK_TRACKPATHS", "/x")

	result, err := LoadConfigWithDetails(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	if result.Config.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", result.Config.Logging.Level)
	}
	if len(result.EnvOverrides) != 2 {
		t.Errorf("len(EnvOverrides) = %d, want 2", len(result.EnvOverrides))
	}
}

func TestLoadConfigWithDetails_InvalidConfigPath(t *testing.T) {
	clearEnv(t)
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.toml"))

	if _, err := LoadConfigWithDetails(t.TempDir()); err == nil {
		t.Error("LoadConfigWithDetails() should return error for nonexistent TIMETRACK_CONFIG_PATH")
	}
}

func TestLoadConfigWithDetails_InvalidTOML(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()

	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte("trackPaths = [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfigWithDetails(home); err == nil {
		t.Error("LoadConfigWithDetails() should return error for invalid TOML")
	}
}

func TestLoadConfigFile_NotFound(t *testing.T) {
	clearEnv(t)
	if _, err := LoadConfigFile(t.TempDir(), filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("LoadConfigFile() should fail for a missing file")
	}
}

func TestGetSupportedEnvVars(t *testing.T) {
	vars := GetSupportedEnvVars()

	if len(vars) != len(envVarMappings)+2 {
		t.Errorf("len(GetSupportedEnvVars()) = %d, want %d", len(vars), len(envVarMappings)+2)
	}

	seen := map[string]bool{}
	for _, v := range vars {
		seen[v.EnvVar] = true
	}
	for _, name := range []string{"TIMETRACK_HOME", "TIMETRACK_CONFIG_PATH", "TIMETRACK_TRACKPATHS", "TIMETRACK_LOG_LEVEL"} {
		if !seen[name] {
			t.Errorf("GetSupportedEnvVars() should include %s", name)
		}
	}
}

func TestApplyOverride_AllPaths(t *testing.T) {
	tests := []struct {
		path     string
		value    interface{}
		validate func(cfg *Config) bool
	}{
		{"trackPaths", []string{"/a"}, func(cfg *Config) bool { return reflect.DeepEqual(cfg.TrackPaths, []string{"/a"}) }},
		{"rawDataPath", "/r.log", func(cfg *Config) bool { return cfg.RawDataPath == "/r.log" }},
		{"processedDataPath", "/p.log", func(cfg *Config) bool { return cfg.ProcessedDataPath == "/p.log" }},
		{"tracking.quietWindowMs", 100, func(cfg *Config) bool { return cfg.Tracking.QuietWindowMs == 100 }},
		{"tracking.pollIntervalMs", 10, func(cfg *Config) bool { return cfg.Tracking.PollIntervalMs == 10 }},
		{"tracking.skipDirs", []string{"node_modules"}, func(cfg *Config) bool { return cfg.Tracking.SkipDirs[0] == "node_modules" }},
		{"tracking.ignoreCheck", false, func(cfg *Config) bool { return !cfg.Tracking.IgnoreCheck }},
		{"tracking.gitTimeoutMs", 900, func(cfg *Config) bool { return cfg.Tracking.GitTimeoutMs == 900 }},
		{"report.maxGapSeconds", 60, func(cfg *Config) bool { return cfg.Report.MaxGapSeconds == 60 }},
		{"storage.backend", "sqlite", func(cfg *Config) bool { return cfg.Storage.Backend == "sqlite" }},
		{"storage.databasePath", "/s.db", func(cfg *Config) bool { return cfg.Storage.DatabasePath == "/s.db" }},
		{"storage.backupDir", "/bk", func(cfg *Config) bool { return cfg.Storage.BackupDir == "/bk" }},
		{"logging.level", "error", func(cfg *Config) bool { return cfg.Logging.Level == "error" }},
		{"logging.file", "/t.log", func(cfg *Config) bool { return cfg.Logging.File == "/t.log" }},
		{"logging.maxSize", "1MB", func(cfg *Config) bool { return cfg.Logging.MaxSize == "1MB" }},
		{"logging.maxBackups", 1, func(cfg *Config) bool { return cfg.Logging.MaxBackups == 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			cfg := DefaultConfig()
			if !applyOverride(cfg, tt.path, tt.value) {
				t.Fatalf("applyOverride() returned false for path %q", tt.path)
			}
			if !tt.validate(cfg) {
				t.Errorf("applyOverride() did not set value correctly for path %q", tt.path)
			}
		})
	}
}

func TestApplyOverride_InvalidPaths(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		value interface{}
	}{
		{"unknown top-level", "unknown", "value"},
		{"incomplete tracking", "tracking", 100},
		{"incomplete storage", "storage", "file"},
		{"incomplete logging", "logging", "debug"},
		{"too deep", "report.maxGapSeconds.extra", 1},
		{"nested top-level", "trackPaths.x", []string{"/a"}},
		{"unknown leaf", "tracking.unknown", 1},
		{"trackPaths wrong type", "trackPaths", "/a"},
		{"maxGapSeconds wrong type", "report.maxGapSeconds", "60"},
		{"ignoreCheck wrong type", "tracking.ignoreCheck", "false"},
		{"backend wrong type", "storage.backend", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if applyOverride(DefaultConfig(), tt.path, tt.value) {
				t.Errorf("applyOverride() should return false for %q", tt.path)
			}
		})
	}
}
