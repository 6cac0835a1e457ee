package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"timetrack/internal/config"
	"timetrack/internal/errors"
	"timetrack/internal/paths"
	"timetrack/internal/report"
	"timetrack/internal/slogutil"
	"timetrack/internal/storage"
)

// env is what every command needs once the config is loaded.
type env struct {
	home    string
	result  *config.LoadResult
	cfg     *config.Config
	loggers *slogutil.LoggerFactory
	logger  *slog.Logger
}

// loadEnv resolves the home directory and loads the configuration.
func loadEnv() (*env, error) {
	home, err := paths.GetHome()
	if err != nil {
		return nil, err
	}

	var result *config.LoadResult
	if configFlag != "" {
		result, err = config.LoadConfigFile(home, configFlag)
	} else {
		result, err = config.LoadConfigWithDetails(home)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, "failed to load config", err)
	}
	if err := result.Config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, "invalid config", err).
			WithDetails(map[string]interface{}{"configPath": result.ConfigPath})
	}

	loggers := slogutil.NewLoggerFactory(loggerOptions(result.Config), verbosity, os.Stderr)
	return &env{
		home:    home,
		result:  result,
		cfg:     result.Config,
		loggers: loggers,
		logger:  loggers.CLILogger(),
	}, nil
}

func mustLoadEnv() *env {
	e, err := loadEnv()
	if err != nil {
		exitWithError(err)
	}
	return e
}

func loggerOptions(cfg *config.Config) slogutil.Options {
	return slogutil.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	}
}

// openSpanStore opens the configured span store backend.
func (e *env) openSpanStore() (storage.SpanStore, error) {
	store, err := storage.OpenSpanStore(storage.Options{
		Backend:      e.cfg.Storage.Backend,
		SpanLogPath:  e.cfg.ProcessedDataPath,
		DatabasePath: e.cfg.Storage.DatabasePath,
	}, e.logger)
	if err != nil {
		return nil, errors.Wrap(errors.StorageFailure, "failed to open span store", err)
	}
	return store, nil
}

// newReporter opens the stores a report pass needs. The caller closes the
// returned store.
func (e *env) newReporter() (*report.Reporter, storage.SpanStore, error) {
	store, err := e.openSpanStore()
	if err != nil {
		return nil, nil, err
	}
	raw := storage.NewRawLogFile(e.cfg.RawDataPath)
	return report.New(raw, store, uint64(e.cfg.Report.MaxGapSeconds), e.logger), store, nil
}

func (e *env) close() {
	_ = e.loggers.Close()
}

// exitWithError prints err with any suggested fixes and exits non-zero.
func exitWithError(err error) {
	printError(os.Stderr, err)
	os.Exit(1)
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var te *errors.TrackError
	if !stderrors.As(err, &te) || len(te.SuggestedFixes) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSuggested fixes:")
	for _, fix := range te.SuggestedFixes {
		line := fix.Description
		switch {
		case fix.Command != "":
			line = fmt.Sprintf("%s: %s", fix.Description, fix.Command)
		case fix.Tool != "":
			line = fmt.Sprintf("%s (%s)", fix.Description, fix.Tool)
		}
		fmt.Fprintf(w, "  - %s\n", line)
	}
}

// excludedPaths lists the tracker's own files, which never count as work.
func excludedPaths(cfg *config.Config, home string) []string {
	db := cfg.Storage.DatabasePath
	files := []string{
		cfg.RawDataPath,
		cfg.ProcessedDataPath,
		db,
		db + "-journal",
		db + "-wal",
		db + "-shm",
		paths.PIDPath(home),
		paths.ConfigPath(home),
	}
	if cfg.Logging.File != "" {
		files = append(files, cfg.Logging.File)
		for i := 1; i <= cfg.Logging.MaxBackups; i++ {
			files = append(files, fmt.Sprintf("%s.%d", cfg.Logging.File, i))
		}
	}

	out := make([]string, 0, len(files))
	for _, f := range files {
		if abs, err := paths.Clean(f); err == nil {
			out = append(out, abs)
		}
	}
	return out
}
