package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"timetrack/internal/paths"
	"timetrack/internal/slogutil"
	"timetrack/internal/storage"
)

// CurrentVersion is the config schema version written by this release.
const CurrentVersion = 1

// Config represents the complete timetrack configuration
type Config struct {
	Version           int      `json:"version" toml:"version" mapstructure:"version"`
	TrackPaths        []string `json:"trackPaths" toml:"trackPaths" mapstructure:"trackPaths"`
	RawDataPath       string   `json:"rawDataPath" toml:"rawDataPath" mapstructure:"rawDataPath"`
	ProcessedDataPath string   `json:"processedDataPath" toml:"processedDataPath" mapstructure:"processedDataPath"`

	Tracking TrackingConfig `json:"tracking" toml:"tracking" mapstructure:"tracking"`
	Report   ReportConfig   `json:"report" toml:"report" mapstructure:"report"`
	Storage  StorageConfig  `json:"storage" toml:"storage" mapstructure:"storage"`
	Logging  LoggingConfig  `json:"logging" toml:"logging" mapstructure:"logging"`
}

// TrackingConfig contains watch loop settings
type TrackingConfig struct {
	QuietWindowMs  int      `json:"quietWindowMs" toml:"quietWindowMs" mapstructure:"quietWindowMs"`
	PollIntervalMs int      `json:"pollIntervalMs" toml:"pollIntervalMs" mapstructure:"pollIntervalMs"`
	SkipDirs       []string `json:"skipDirs" toml:"skipDirs" mapstructure:"skipDirs"`
	IgnoreCheck    bool     `json:"ignoreCheck" toml:"ignoreCheck" mapstructure:"ignoreCheck"`
	GitTimeoutMs   int      `json:"gitTimeoutMs" toml:"gitTimeoutMs" mapstructure:"gitTimeoutMs"`
}

// QuietWindow is the debounce window.
func (t TrackingConfig) QuietWindow() time.Duration {
	return time.Duration(t.QuietWindowMs) * time.Millisecond
}

// PollInterval is the collecting-state sleep.
func (t TrackingConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalMs) * time.Millisecond
}

// GitTimeout bounds one git check-ignore call.
func (t TrackingConfig) GitTimeout() time.Duration {
	return time.Duration(t.GitTimeoutMs) * time.Millisecond
}

// ReportConfig contains span reconstruction settings
type ReportConfig struct {
	MaxGapSeconds int `json:"maxGapSeconds" toml:"maxGapSeconds" mapstructure:"maxGapSeconds"`
}

// StorageConfig selects the span store
type StorageConfig struct {
	Backend      string `json:"backend" toml:"backend" mapstructure:"backend"`
	DatabasePath string `json:"databasePath" toml:"databasePath" mapstructure:"databasePath"`
	BackupDir    string `json:"backupDir" toml:"backupDir" mapstructure:"backupDir"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" toml:"level" mapstructure:"level"`
	File       string `json:"file" toml:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" toml:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" toml:"maxBackups" mapstructure:"maxBackups"`
}

// DefaultConfig returns the default configuration. Empty paths are filled in
// relative to the timetrack home by ExpandPaths.
func DefaultConfig() *Config {
	return &Config{
		Version:    CurrentVersion,
		TrackPaths: []string{},
		Tracking: TrackingConfig{
			QuietWindowMs:  2000,
			PollIntervalMs: 50,
			SkipDirs:       []string{".git"},
			IgnoreCheck:    true,
			GitTimeoutMs:   5000,
		},
		Report: ReportConfig{
			MaxGapSeconds: 300,
		},
		Storage: StorageConfig{
			Backend: storage.BackendFile,
		},
		Logging: LoggingConfig{
			Level:      "warn",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// setDefaults registers every default with viper so keys missing from the
// file keep their default value.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("version", d.Version)
	v.SetDefault("trackPaths", d.TrackPaths)
	v.SetDefault("rawDataPath", d.RawDataPath)
	v.SetDefault("processedDataPath", d.ProcessedDataPath)

	v.SetDefault("tracking.quietWindowMs", d.Tracking.QuietWindowMs)
	v.SetDefault("tracking.pollIntervalMs", d.Tracking.PollIntervalMs)
	v.SetDefault("tracking.skipDirs", d.Tracking.SkipDirs)
	v.SetDefault("tracking.ignoreCheck", d.Tracking.IgnoreCheck)
	v.SetDefault("tracking.gitTimeoutMs", d.Tracking.GitTimeoutMs)

	v.SetDefault("report.maxGapSeconds", d.Report.MaxGapSeconds)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.databasePath", d.Storage.DatabasePath)
	v.SetDefault("storage.backupDir", d.Storage.BackupDir)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// LoadConfig loads configuration from <home>/config.toml
func LoadConfig(home string) (*Config, error) {
	result, err := LoadConfigWithDetails(home)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// loadConfigFromPath reads a TOML config file on top of the defaults
func loadConfigFromPath(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", configPath, err)
	}

	return &cfg, nil
}

// ExpandPaths resolves "~" and fills empty storage paths with their
// locations under home.
func (c *Config) ExpandPaths(home string) error {
	fill := func(p *string, fallback string) error {
		if *p == "" {
			*p = fallback
			return nil
		}
		expanded, err := paths.ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
		return nil
	}

	if err := fill(&c.RawDataPath, paths.RawLogPath(home)); err != nil {
		return err
	}
	if err := fill(&c.ProcessedDataPath, paths.SpanLogPath(home)); err != nil {
		return err
	}
	if err := fill(&c.Storage.DatabasePath, paths.DatabasePath(home)); err != nil {
		return err
	}
	if err := fill(&c.Storage.BackupDir, paths.BackupsDir(home)); err != nil {
		return err
	}
	if err := fill(&c.Logging.File, paths.TrackLogPath(home)); err != nil {
		return err
	}

	for i, root := range c.TrackPaths {
		expanded, err := paths.ExpandHome(root)
		if err != nil {
			return err
		}
		c.TrackPaths[i] = expanded
	}
	return nil
}

// Encode renders the configuration as TOML
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the configuration as TOML to configPath
func (c *Config) Save(configPath string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0o644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}

	for i, root := range c.TrackPaths {
		if root == "" {
			return &ConfigError{Field: fmt.Sprintf("trackPaths[%d]", i), Message: "must not be empty"}
		}
	}

	if c.Tracking.QuietWindowMs <= 0 {
		return &ConfigError{Field: "tracking.quietWindowMs", Message: "must be positive"}
	}
	if c.Tracking.PollIntervalMs <= 0 {
		return &ConfigError{Field: "tracking.pollIntervalMs", Message: "must be positive"}
	}
	if c.Tracking.PollIntervalMs > c.Tracking.QuietWindowMs {
		return &ConfigError{Field: "tracking.pollIntervalMs", Message: "must not exceed tracking.quietWindowMs"}
	}
	if c.Tracking.GitTimeoutMs <= 0 {
		return &ConfigError{Field: "tracking.gitTimeoutMs", Message: "must be positive"}
	}

	if c.Report.MaxGapSeconds <= 0 {
		return &ConfigError{Field: "report.maxGapSeconds", Message: "must be positive"}
	}

	switch c.Storage.Backend {
	case storage.BackendFile, storage.BackendSQLite:
	default:
		return &ConfigError{Field: "storage.backend", Message: fmt.Sprintf("unknown backend %q (want %q or %q)", c.Storage.Backend, storage.BackendFile, storage.BackendSQLite)}
	}

	if c.Logging.Level != "" && !slogutil.ValidLevel(c.Logging.Level) {
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	if c.Logging.MaxSize != "" && slogutil.ParseSize(c.Logging.MaxSize) <= 0 {
		return &ConfigError{Field: "logging.maxSize", Message: fmt.Sprintf("invalid size %q", c.Logging.MaxSize)}
	}
	if c.Logging.MaxBackups < 0 {
		return &ConfigError{Field: "logging.maxBackups", Message: "must not be negative"}
	}

	return nil
}

// ValidateForTracking additionally requires at least one watched root.
func (c *Config) ValidateForTracking() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.TrackPaths) == 0 {
		return &ConfigError{Field: "trackPaths", Message: "no paths to track"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
