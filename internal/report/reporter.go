// Package report folds the raw log into the span store and totals the
// stored spans per project.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"timetrack/internal/errors"
	"timetrack/internal/rawlog"
	"timetrack/internal/span"
	"timetrack/internal/storage"
)

// RawLog is the raw activity log a pass consumes.
type RawLog interface {
	Path() string
	Rewrite(fn func([]rawlog.RawLog) ([]rawlog.RawLog, error)) error
	Clear() error
}

// Pass describes one fold of the raw log into the span store.
type Pass struct {
	ID          string          `json:"id"`
	Records     int             `json:"records"`
	Spans       int             `json:"spans"`
	Checkpoints []rawlog.RawLog `json:"-"`
}

// Result is what a report shows.
type Result struct {
	Pass   Pass              `json:"pass"`
	Totals map[string]uint64 `json:"totals"`
}

// Reporter runs report passes.
type Reporter struct {
	raw    RawLog
	spans  storage.SpanStore
	maxGap uint64
	logger *slog.Logger

	newID func() string
}

// New creates a reporter. maxGap is in seconds; 0 selects span.DefaultMaxGap.
func New(raw RawLog, spans storage.SpanStore, maxGap uint64, logger *slog.Logger) *Reporter {
	return &Reporter{
		raw:    raw,
		spans:  spans,
		maxGap: maxGap,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
	}
}

// Fold reconstructs spans from the raw log, stores those with a non-zero
// duration, and replaces the raw log with one checkpoint record per project.
// Spans are clipped to start after the latest stored span end, since the
// checkpoints that seed a pass cover time an earlier pass already stored.
// The raw log stays locked for the whole pass. If the spans cannot be stored
// the raw log is left as it was.
func (r *Reporter) Fold() (Pass, error) {
	pass := Pass{ID: r.newID()}

	err := r.raw.Rewrite(func(logs []rawlog.RawLog) ([]rawlog.RawLog, error) {
		pass.Records = len(logs)
		if len(logs) == 0 {
			return logs, nil
		}

		boundary, err := r.spans.LatestEnd()
		if err != nil {
			return nil, errors.Wrap(errors.StorageFailure, "failed to read spans", err).
				WithDetails(map[string]interface{}{"store": r.spans.Location()})
		}
		spans := span.ClipBefore(span.Reconstruct(logs, r.maxGap), boundary)

		kept := make([]span.Span, 0, len(spans))
		for _, s := range spans {
			if s.Duration() > 0 {
				kept = append(kept, s)
			}
		}
		if len(kept) > 0 {
			if err := r.spans.Add(pass.ID, kept); err != nil {
				return nil, errors.Wrap(errors.StorageFailure, "failed to store spans", err).
					WithDetails(map[string]interface{}{"store": r.spans.Location()})
			}
		}
		pass.Spans = len(kept)

		pass.Checkpoints = span.Checkpoint(logs, spans)
		return pass.Checkpoints, nil
	})
	if err != nil {
		return Pass{}, err
	}

	r.logger.Debug("Raw log folded",
		"pass", pass.ID,
		"records", pass.Records,
		"spans", pass.Spans,
		"checkpoints", len(pass.Checkpoints),
	)
	return pass, nil
}

// Totals aggregates every stored span.
func (r *Reporter) Totals() (map[string]uint64, error) {
	spans, err := r.spans.All()
	if err != nil {
		return nil, errors.Wrap(errors.StorageFailure, "failed to read spans", err).
			WithDetails(map[string]interface{}{"store": r.spans.Location()})
	}
	return span.Aggregate(spans), nil
}

// Report folds the raw log and then totals the span store.
func (r *Reporter) Report() (Result, error) {
	pass, err := r.Fold()
	if err != nil {
		return Result{}, err
	}
	totals, err := r.Totals()
	if err != nil {
		return Result{}, err
	}
	return Result{Pass: pass, Totals: totals}, nil
}

// ClearOptions controls Clear.
type ClearOptions struct {
	// BackupDir, when set, receives an archive of the raw log and spans
	// before anything is removed.
	BackupDir string
	Now       time.Time
}

// Clear truncates the raw log and removes every stored span. It returns the
// backup archive path when one was written.
func (r *Reporter) Clear(opts ClearOptions) (string, error) {
	var backup string
	if opts.BackupDir != "" {
		entries, err := r.backupEntries()
		if err != nil {
			return "", err
		}
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		backup, err = storage.Backup(opts.BackupDir, now, entries...)
		if err != nil {
			return "", errors.Wrap(errors.StorageFailure, "failed to write backup", err)
		}
		r.logger.Info("Backup written", "path", backup)
	}

	if err := r.raw.Clear(); err != nil {
		return backup, errors.Wrap(errors.StorageFailure, "failed to clear raw log", err)
	}
	if err := r.spans.Clear(); err != nil {
		return backup, errors.Wrap(errors.StorageFailure, "failed to clear spans", err).
			WithDetails(map[string]interface{}{"store": r.spans.Location()})
	}
	return backup, nil
}

// Backup entry names.
const (
	BackupRawLogName = "raw.log"
	BackupSpansName  = "spans.log"
)

// backupEntries captures the raw log bytes as written, even if corrupt, and
// the spans in the processed log format whatever the backend.
func (r *Reporter) backupEntries() ([]storage.BackupEntry, error) {
	raw, err := os.ReadFile(r.raw.Path())
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.StorageFailure, "failed to read raw log for backup", err)
	}

	spans, err := r.spans.All()
	if err != nil {
		return nil, errors.Wrap(errors.StorageFailure,
			fmt.Sprintf("failed to read spans from %s for backup", r.spans.Location()), err)
	}

	return []storage.BackupEntry{
		{Name: BackupRawLogName, Data: raw},
		{Name: BackupSpansName, Data: []byte(span.EncodeAll(spans))},
	}, nil
}
