package slogutil

import (
	"io"
	"log/slog"
)

// Options are the logging settings from the configuration file.
type Options struct {
	Level      string
	File       string
	MaxSize    string
	MaxBackups int
}

// LoggerFactory builds loggers for the CLI. The -v flag beats the
// configured level.
type LoggerFactory struct {
	opts      Options
	verbosity int
	stderr    io.Writer
	closers   []io.Closer
}

// NewLoggerFactory creates a factory. stderr receives console output.
func NewLoggerFactory(opts Options, verbosity int, stderr io.Writer) *LoggerFactory {
	return &LoggerFactory{
		opts:      opts,
		verbosity: verbosity,
		stderr:    stderr,
	}
}

// Level is the console level: the configured level, raised by -v.
func (f *LoggerFactory) Level() slog.Level {
	fallback := slog.LevelWarn
	if f.opts.Level != "" {
		fallback = LevelFromString(f.opts.Level)
	}
	return LevelFromVerbosity(f.verbosity, fallback)
}

// CLILogger logs to stderr only.
func (f *LoggerFactory) CLILogger() *slog.Logger {
	return NewLogger(f.stderr, f.Level())
}

// TrackLogger logs to stderr and, when a log file is configured, to that file
// with rotation. The file records at least info. If the file cannot be opened
// the console logger is returned together with the error.
func (f *LoggerFactory) TrackLogger() (*slog.Logger, error) {
	console := NewHandler(f.stderr, &slog.HandlerOptions{Level: f.Level()})
	if f.opts.File == "" {
		return slog.New(console), nil
	}

	fileLevel := f.Level()
	if fileLevel > slog.LevelInfo {
		fileLevel = slog.LevelInfo
	}

	fileLogger, closer, err := NewFileLoggerWithRotation(f.opts.File, fileLevel, f.opts.MaxSize, f.opts.MaxBackups)
	if err != nil {
		return slog.New(console), err
	}
	f.closers = append(f.closers, closer)

	return slog.New(NewTeeHandler(console, fileLogger.Handler())), nil
}

// Close closes every log file opened by the factory.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
