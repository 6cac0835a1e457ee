package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"timetrack/internal/paths"
)

// ConfigPathEnvVar names a config file that replaces <home>/config.toml.
const ConfigPathEnvVar = "TIMETRACK_CONFIG_PATH"

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
	kindList
)

type envMapping struct {
	path string
	kind valueKind
}

// envVarMappings maps environment variables to config paths
var envVarMappings = map[string]envMapping{
	"TIMETRACK_TRACKPATHS":              {"trackPaths", kindList},
	"TIMETRACK_RAWDATAPATH":             {"rawDataPath", kindString},
	"TIMETRACK_PROCESSEDDATAPATH":       {"processedDataPath", kindString},
	"TIMETRACK_TRACKING_QUIETWINDOWMS":  {"tracking.quietWindowMs", kindInt},
	"TIMETRACK_TRACKING_POLLINTERVALMS": {"tracking.pollIntervalMs", kindInt},
	"TIMETRACK_TRACKING_SKIPDIRS":       {"tracking.skipDirs", kindList},
	"TIMETRACK_TRACKING_IGNORECHECK":    {"tracking.ignoreCheck", kindBool},
	"TIMETRACK_TRACKING_GITTIMEOUTMS":   {"tracking.gitTimeoutMs", kindInt},
	"TIMETRACK_REPORT_MAXGAPSECONDS":    {"report.maxGapSeconds", kindInt},
	"TIMETRACK_STORAGE_BACKEND":         {"storage.backend", kindString},
	"TIMETRACK_STORAGE_DATABASEPATH":    {"storage.databasePath", kindString},
	"TIMETRACK_STORAGE_BACKUPDIR":       {"storage.backupDir", kindString},
	"TIMETRACK_LOG_LEVEL":               {"logging.level", kindString},
	"TIMETRACK_LOGGING_LEVEL":           {"logging.level", kindString},
	"TIMETRACK_LOGGING_FILE":            {"logging.file", kindString},
	"TIMETRACK_LOGGING_MAXSIZE":         {"logging.maxSize", kindString},
	"TIMETRACK_LOGGING_MAXBACKUPS":      {"logging.maxBackups", kindInt},
}

// EnvOverride records one environment variable that changed the config
type EnvOverride struct {
	EnvVar    string `json:"envVar"`
	FromValue string `json:"fromValue,omitempty"`
	Path      string `json:"path"`
}

// LoadResult describes where the effective configuration came from
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
	EnvOverrides []EnvOverride
}

// LoadConfigWithDetails loads <home>/config.toml, or the file named by
// TIMETRACK_CONFIG_PATH, applies environment overrides and expands paths.
// A missing default file yields the defaults; a missing
// TIMETRACK_CONFIG_PATH file is an error.
func LoadConfigWithDetails(home string) (*LoadResult, error) {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		return LoadConfigFile(home, envPath)
	}
	return load(home, paths.ConfigPath(home), false)
}

// LoadConfigFile is LoadConfigWithDetails for an explicitly named file,
// which must exist.
func LoadConfigFile(home, configPath string) (*LoadResult, error) {
	expanded, err := paths.ExpandHome(configPath)
	if err != nil {
		return nil, err
	}
	return load(home, expanded, true)
}

func load(home, configPath string, required bool) (*LoadResult, error) {
	result := &LoadResult{ConfigPath: configPath}

	if _, err := os.Stat(configPath); err != nil {
		if !os.IsNotExist(err) || required {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
		result.Config = DefaultConfig()
		result.UsedDefaults = true
	} else {
		cfg, err := loadConfigFromPath(configPath)
		if err != nil {
			return nil, err
		}
		result.Config = cfg
	}

	result.EnvOverrides = applyEnvOverrides(result.Config)

	if err := result.Config.ExpandPaths(home); err != nil {
		return nil, err
	}

	return result, nil
}

// applyEnvOverrides applies every set, parseable environment variable in
// name order. Values that do not parse are skipped.
func applyEnvOverrides(cfg *Config) []EnvOverride {
	names := make([]string, 0, len(envVarMappings))
	for name := range envVarMappings {
		names = append(names, name)
	}
	sort.Strings(names)

	var overrides []EnvOverride
	for _, name := range names {
		raw, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		mapping := envVarMappings[name]

		value, ok := parseEnvValue(raw, mapping.kind)
		if !ok {
			continue
		}
		if applyOverride(cfg, mapping.path, value) {
			overrides = append(overrides, EnvOverride{
				EnvVar:    name,
				FromValue: raw,
				Path:      mapping.path,
			})
		}
	}
	return overrides
}

func parseEnvValue(raw string, kind valueKind) (interface{}, bool) {
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, false
		}
		return n, true
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, false
		}
		return b, true
	case kindList:
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if items == nil {
			items = []string{}
		}
		return items, true
	default:
		return raw, true
	}
}

// applyOverride sets the value at a dotted config path. It reports false for
// an unknown path or a value of the wrong type.
func applyOverride(cfg *Config, path string, value interface{}) bool {
	parts := strings.Split(path, ".")

	switch parts[0] {
	case "trackPaths":
		return len(parts) == 1 && setList(&cfg.TrackPaths, value)
	case "rawDataPath":
		return len(parts) == 1 && setString(&cfg.RawDataPath, value)
	case "processedDataPath":
		return len(parts) == 1 && setString(&cfg.ProcessedDataPath, value)

	case "tracking":
		if len(parts) != 2 {
			return false
		}
		switch parts[1] {
		case "quietWindowMs":
			return setInt(&cfg.Tracking.QuietWindowMs, value)
		case "pollIntervalMs":
			return setInt(&cfg.Tracking.PollIntervalMs, value)
		case "skipDirs":
			return setList(&cfg.Tracking.SkipDirs, value)
		case "ignoreCheck":
			return setBool(&cfg.Tracking.IgnoreCheck, value)
		case "gitTimeoutMs":
			return setInt(&cfg.Tracking.GitTimeoutMs, value)
		}

	case "report":
		if len(parts) == 2 && parts[1] == "maxGapSeconds" {
			return setInt(&cfg.Report.MaxGapSeconds, value)
		}

	case "storage":
		if len(parts) != 2 {
			return false
		}
		switch parts[1] {
		case "backend":
			return setString(&cfg.Storage.Backend, value)
		case "databasePath":
			return setString(&cfg.Storage.DatabasePath, value)
		case "backupDir":
			return setString(&cfg.Storage.BackupDir, value)
		}

	case "logging":
		if len(parts) != 2 {
			return false
		}
		switch parts[1] {
		case "level":
			return setString(&cfg.Logging.Level, value)
		case "file":
			return setString(&cfg.Logging.File, value)
		case "maxSize":
			return setString(&cfg.Logging.MaxSize, value)
		case "maxBackups":
			return setInt(&cfg.Logging.MaxBackups, value)
		}
	}
	return false
}

func setString(dst *string, value interface{}) bool {
	s, ok := value.(string)
	if ok {
		*dst = s
	}
	return ok
}

func setInt(dst *int, value interface{}) bool {
	n, ok := value.(int)
	if ok {
		*dst = n
	}
	return ok
}

func setBool(dst *bool, value interface{}) bool {
	b, ok := value.(bool)
	if ok {
		*dst = b
	}
	return ok
}

func setList(dst *[]string, value interface{}) bool {
	l, ok := value.([]string)
	if ok {
		*dst = l
	}
	return ok
}

// GetSupportedEnvVars returns the supported environment variables with the
// config path each one sets, sorted by name.
func GetSupportedEnvVars() []EnvOverride {
	vars := make([]EnvOverride, 0, len(envVarMappings)+2)
	vars = append(vars, EnvOverride{EnvVar: ConfigPathEnvVar, Path: "(config file)"})
	vars = append(vars, EnvOverride{EnvVar: paths.HomeEnvVar, Path: "(home directory)"})
	for name, mapping := range envVarMappings {
		vars = append(vars, EnvOverride{EnvVar: name, Path: mapping.path})
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].EnvVar < vars[j].EnvVar })
	return vars
}
