// Package track runs the watch loop: debounced batches of changed paths are
// attributed to projects, filtered through each project's ignore rules and
// appended to the raw log as one record per project.
package track

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"timetrack/internal/backends/git"
	"timetrack/internal/errors"
	"timetrack/internal/project"
	"timetrack/internal/rawlog"
	"timetrack/internal/watcher"
)

// Appender persists activity records.
type Appender interface {
	Append(logs []rawlog.RawLog) error
}

// Attributor maps a changed path to its project.
type Attributor interface {
	Attribute(path string) (project.Attribution, bool, error)
}

// Options tunes the watch loop. Zero values select the debouncer defaults.
type Options struct {
	Window       time.Duration
	PollInterval time.Duration
	Clock        watcher.Clock
}

// Stats counts what the loop has done since it started.
type Stats struct {
	Batches        int
	Records        int
	IgnoredBatches int
	AppendFailures int
	LastRecorded   time.Time
}

// Tracker is the long-lived watch loop.
type Tracker struct {
	debouncer  *watcher.Debouncer
	attributor Attributor
	ignore     git.IgnoreChecker
	store      Appender
	clock      watcher.Clock
	logger     *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a tracker. A nil ignore checker records every change.
func New(attributor Attributor, ignore git.IgnoreChecker, store Appender, opts Options, logger *slog.Logger) *Tracker {
	if ignore == nil {
		ignore = git.AllowAll{}
	}
	if opts.Clock == nil {
		opts.Clock = watcher.SystemClock{}
	}
	return &Tracker{
		debouncer:  watcher.NewDebouncer(opts.Window, opts.PollInterval, opts.Clock),
		attributor: attributor,
		ignore:     ignore,
		store:      store,
		clock:      opts.Clock,
		logger:     logger,
	}
}

// Run consumes events until ctx is cancelled or the source closes. It
// returns nil in both cases. A path outside every tracked root stops the
// loop with a CONFIG_INVARIANT_VIOLATION error.
func (t *Tracker) Run(ctx context.Context, events <-chan watcher.Event) error {
	t.logger.Info("Tracking started",
		"window", t.debouncer.Window.String(),
	)

	for {
		batch, err := t.debouncer.Next(ctx, events)
		if err != nil {
			if stderrors.Is(err, watcher.ErrSourceClosed) || ctx.Err() != nil {
				t.logger.Info("Tracking stopped")
				return nil
			}
			return err
		}

		if _, err := t.Process(ctx, batch); err != nil {
			t.logger.Error("Tracking aborted",
				"code", errors.CodeOf(err),
				"error", err.Error(),
			)
			return err
		}
	}
}

type projectChanges struct {
	dir   string
	paths []string
}

// Process handles one batch and returns the records it appended. Append
// failures are retried once and then logged; they do not fail the batch.
func (t *Tracker) Process(ctx context.Context, batch watcher.Batch) ([]rawlog.RawLog, error) {
	t.mu.Lock()
	t.stats.Batches++
	t.mu.Unlock()

	changes := make(map[string]*projectChanges)
	for _, path := range batch.Paths {
		attr, ok, err := t.attributor.Attribute(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		pc, exists := changes[attr.Project]
		if !exists {
			pc = &projectChanges{dir: attr.Dir}
			changes[attr.Project] = pc
		}
		pc.paths = append(pc.paths, path)
	}

	if len(changes) == 0 {
		t.logger.Debug("Batch has no project changes", "paths", len(batch.Paths))
		return nil, nil
	}

	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)

	now := t.clock.Now()
	records := make([]rawlog.RawLog, 0, len(names))
	ignored := 0
	for _, name := range names {
		pc := changes[name]
		if !t.ignore.ContainsUnignored(ctx, pc.dir, pc.paths) {
			t.logger.Debug("Changes ignored",
				"project", name,
				"paths", len(pc.paths),
			)
			ignored++
			continue
		}
		records = append(records, rawlog.RawLog{
			Project:   name,
			Timestamp: uint64(now.Unix()),
		})
	}

	if len(records) == 0 {
		t.mu.Lock()
		t.stats.IgnoredBatches++
		t.mu.Unlock()
		return nil, nil
	}

	if err := t.append(records); err != nil {
		t.logger.Warn("Failed to record activity",
			"code", errors.CodeOf(err),
			"records", len(records),
			"error", err.Error(),
		)
		t.mu.Lock()
		t.stats.AppendFailures++
		t.mu.Unlock()
		return nil, nil
	}

	t.mu.Lock()
	t.stats.Records += len(records)
	t.stats.LastRecorded = now
	t.mu.Unlock()

	t.logger.Info("Activity recorded",
		"projects", projectList(records),
		"ignored", ignored,
	)
	return records, nil
}

func (t *Tracker) append(records []rawlog.RawLog) error {
	err := t.store.Append(records)
	if err == nil {
		return nil
	}
	t.logger.Debug("Append failed, retrying", "error", err.Error())

	if err := t.store.Append(records); err != nil {
		return fmt.Errorf("append retry failed: %w", err)
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func projectList(records []rawlog.RawLog) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Project
	}
	return out
}
