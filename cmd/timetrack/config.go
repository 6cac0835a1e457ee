package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"timetrack/internal/config"
	"timetrack/internal/paths"
)

var (
	configFormat    string
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage timetrack configuration",
	Long:  "View and manage timetrack configuration stored in $TIMETRACK_HOME/config.toml",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective timetrack configuration.

Examples:
  timetrack config show                # Pretty-print current config
  timetrack config show --format json  # JSON output with sources
  timetrack config show --format toml  # Effective config as a config file`,
	Args: cobra.NoArgs,
	Run:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	Run:   runConfigInit,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Long:  "Display all supported timetrack environment variable overrides",
	Args:  cobra.NoArgs,
	Run:   runConfigEnv,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (human, json, toml)")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string                 `json:"configPath,omitempty"`
	UsedDefaults bool                   `json:"usedDefaults"`
	EnvOverrides []config.EnvOverride   `json:"envOverrides,omitempty"`
	Config       map[string]interface{} `json:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) {
	e := mustLoadEnv()
	defer e.close()

	var err error
	switch OutputFormat(configFormat) {
	case FormatJSON:
		err = outputConfigJSON(os.Stdout, e.result)
	case FormatTOML:
		err = outputConfigTOML(os.Stdout, e.cfg)
	case FormatHuman:
		defaults := config.DefaultConfig()
		if err = defaults.ExpandPaths(e.home); err == nil {
			outputConfigHuman(os.Stdout, e.result, defaults)
		}
	default:
		err = fmt.Errorf("unsupported format: %s", configFormat)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error showing config: %v\n", err)
		e.close()
		os.Exit(1)
	}
}

func outputConfigJSON(w io.Writer, result *config.LoadResult) error {
	configBytes, err := json.Marshal(result.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	var configMap map[string]interface{}
	if err := json.Unmarshal(configBytes, &configMap); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	output, err := formatJSON(ConfigShowResponse{
		ConfigPath:   result.ConfigPath,
		UsedDefaults: result.UsedDefaults,
		EnvOverrides: result.EnvOverrides,
		Config:       configMap,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, output)
	return err
}

func outputConfigTOML(w io.Writer, cfg *config.Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal TOML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func outputConfigHuman(w io.Writer, result *config.LoadResult, defaults *config.Config) {
	fmt.Fprintln(w, "timetrack Configuration")
	fmt.Fprintln(w, strings.Repeat("─", 50))

	if result.UsedDefaults {
		fmt.Fprintln(w, "Source: defaults (no config file found)")
	} else if result.ConfigPath != "" {
		fmt.Fprintf(w, "Source: %s\n", result.ConfigPath)
	}

	if len(result.EnvOverrides) > 0 {
		fmt.Fprintln(w, "\nEnvironment Overrides:")
		for _, ov := range result.EnvOverrides {
			fmt.Fprintf(w, "  %s=%s → %s\n", ov.EnvVar, ov.FromValue, ov.Path)
		}
	}

	fmt.Fprintln(w)

	cfg := result.Config
	printConfigSection(w, "version", cfg.Version, defaults.Version)
	printConfigSection(w, "trackPaths", cfg.TrackPaths, defaults.TrackPaths)
	printConfigSection(w, "rawDataPath", cfg.RawDataPath, defaults.RawDataPath)
	printConfigSection(w, "processedDataPath", cfg.ProcessedDataPath, defaults.ProcessedDataPath)

	fmt.Fprintln(w, "\ntracking:")
	printConfigSection(w, "  quietWindowMs", cfg.Tracking.QuietWindowMs, defaults.Tracking.QuietWindowMs)
	printConfigSection(w, "  pollIntervalMs", cfg.Tracking.PollIntervalMs, defaults.Tracking.PollIntervalMs)
	printConfigSection(w, "  skipDirs", cfg.Tracking.SkipDirs, defaults.Tracking.SkipDirs)
	printConfigSection(w, "  ignoreCheck", cfg.Tracking.IgnoreCheck, defaults.Tracking.IgnoreCheck)
	printConfigSection(w, "  gitTimeoutMs", cfg.Tracking.GitTimeoutMs, defaults.Tracking.GitTimeoutMs)

	fmt.Fprintln(w, "\nreport:")
	printConfigSection(w, "  maxGapSeconds", cfg.Report.MaxGapSeconds, defaults.Report.MaxGapSeconds)

	fmt.Fprintln(w, "\nstorage:")
	printConfigSection(w, "  backend", cfg.Storage.Backend, defaults.Storage.Backend)
	printConfigSection(w, "  databasePath", cfg.Storage.DatabasePath, defaults.Storage.DatabasePath)
	printConfigSection(w, "  backupDir", cfg.Storage.BackupDir, defaults.Storage.BackupDir)

	fmt.Fprintln(w, "\nlogging:")
	printConfigSection(w, "  level", cfg.Logging.Level, defaults.Logging.Level)
	printConfigSection(w, "  file", cfg.Logging.File, defaults.Logging.File)
	printConfigSection(w, "  maxSize", cfg.Logging.MaxSize, defaults.Logging.MaxSize)
	printConfigSection(w, "  maxBackups", cfg.Logging.MaxBackups, defaults.Logging.MaxBackups)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use 'timetrack config show --format json' for machine-readable output")
	fmt.Fprintln(w, "Use 'timetrack config env' to see supported environment variables")
}

func printConfigSection(w io.Writer, name string, value, defaultValue interface{}) {
	modified := ""
	if !isEqual(value, defaultValue) {
		modified = fmt.Sprintf(" (default: %v)", defaultValue)
	}
	fmt.Fprintf(w, "%s: %v%s\n", name, value, modified)
}

func isEqual(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	home, err := paths.EnsureHome()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	path, err := writeDefaultConfig(home, configInitForce)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default configuration to %s\n", path)
	fmt.Println("Add the directories you work in to trackPaths, then run 'timetrack track'.")
}

// writeDefaultConfig writes the defaults to <home>/config.toml, refusing to
// replace an existing file unless force is set.
func writeDefaultConfig(home string, force bool) (string, error) {
	path := paths.ConfigPath(home)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return "", err
	}
	return path, nil
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	printEnvVars(os.Stdout, config.GetSupportedEnvVars())
}

func printEnvVars(w io.Writer, vars []config.EnvOverride) {
	fmt.Fprintln(w, "Supported timetrack Environment Variables")
	fmt.Fprintln(w, strings.Repeat("─", 50))
	fmt.Fprintln(w)

	for _, v := range vars {
		fmt.Fprintf(w, "  %-38s %s\n", v.EnvVar, v.Path)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Example usage:")
	fmt.Fprintln(w, "  TIMETRACK_LOG_LEVEL=debug timetrack track")
	fmt.Fprintln(w, "  TIMETRACK_TRACKPATHS=~/work,~/oss timetrack track")
	fmt.Fprintln(w, "  TIMETRACK_STORAGE_BACKEND=sqlite timetrack report")
}
