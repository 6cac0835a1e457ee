package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"timetrack/internal/backends/git"
	"timetrack/internal/config"
	"timetrack/internal/daemon"
	"timetrack/internal/errors"
	"timetrack/internal/paths"
	"timetrack/internal/project"
	"timetrack/internal/storage"
	"timetrack/internal/track"
	"timetrack/internal/watcher"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Watch the tracked directories and record activity",
	Long: `Watch every configured track path and append one activity record per
project for each burst of file changes. Runs until interrupted.`,
	Args: cobra.NoArgs,
	Run:  runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) {
	if err := doTrack(cmd.Context()); err != nil {
		exitWithError(err)
	}
}

func doTrack(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.cfg.ValidateForTracking(); err != nil {
		return errors.Wrap(errors.ConfigInvalid, "cannot start tracking", err)
	}
	if _, err := paths.EnsureHome(); err != nil {
		return err
	}

	logger, err := e.loggers.TrackLogger()
	if err != nil {
		logger.Warn("Track log file unavailable, logging to stderr only",
			"file", e.cfg.Logging.File,
			"error", err.Error(),
		)
	}

	pidFile := daemon.NewPIDFile(paths.PIDPath(e.home))
	if err := pidFile.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := pidFile.Release(); err != nil {
			logger.Warn("Failed to remove PID file", "path", pidFile.Path(), "error", err.Error())
		}
	}()

	roots, err := trackRoots(e.cfg)
	if err != nil {
		return err
	}

	attributor := project.NewAttributor(roots, excludedPaths(e.cfg, e.home)...)
	ignore := newIgnoreChecker(e.cfg, logger)

	w := watcher.New(watcher.Config{
		Roots:    roots,
		SkipDirs: e.cfg.Tracking.SkipDirs,
	}, logger)
	tracker := track.New(attributor, ignore, storage.NewRawLogFile(e.cfg.RawDataPath), track.Options{
		Window:       e.cfg.Tracking.QuietWindow(),
		PollInterval: e.cfg.Tracking.PollInterval(),
	}, logger)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Tracker starting",
		"roots", roots,
		"rawLog", e.cfg.RawDataPath,
		"pid", os.Getpid(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Start(gctx) })
	g.Go(func() error { return tracker.Run(gctx, w.Events()) })
	err = g.Wait()

	stats := tracker.Stats()
	logger.Info("Tracking stopped",
		"batches", stats.Batches,
		"records", stats.Records,
		"ignoredBatches", stats.IgnoredBatches,
		"appendFailures", stats.AppendFailures,
	)
	return err
}

// trackRoots cleans and expands every configured track path.
func trackRoots(cfg *config.Config) ([]string, error) {
	roots := make([]string, 0, len(cfg.TrackPaths))
	for _, p := range cfg.TrackPaths {
		root, err := paths.Clean(p)
		if err != nil {
			return nil, fmt.Errorf("invalid track path %q: %w", p, err)
		}
		roots = append(roots, root)
	}
	return roots, nil
}

func newIgnoreChecker(cfg *config.Config, logger *slog.Logger) git.IgnoreChecker {
	if !cfg.Tracking.IgnoreCheck {
		return git.AllowAll{}
	}
	adapter := git.NewGitAdapter(cfg.Tracking.GitTimeout(), logger)
	if !adapter.IsAvailable() {
		logger.Warn("git not found, ignore rules will not be applied")
		return git.AllowAll{}
	}
	return adapter
}
