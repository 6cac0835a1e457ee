package storage

import (
	"fmt"
	"log/slog"

	"timetrack/internal/span"
)

// Span store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// SpanStore keeps every span produced by past report passes.
type SpanStore interface {
	// Add records spans produced by one pass.
	Add(passID string, spans []span.Span) error
	// All returns every stored span in insertion order.
	All() ([]span.Span, error)
	// LatestEnd returns the largest stored span end, or 0 when empty.
	LatestEnd() (uint64, error)
	// Clear removes every stored span.
	Clear() error
	// Location describes where the spans live.
	Location() string
	Close() error
}

// Options selects and locates a span store.
type Options struct {
	Backend      string
	SpanLogPath  string
	DatabasePath string
}

// OpenSpanStore opens the configured backend.
func OpenSpanStore(opts Options, logger *slog.Logger) (SpanStore, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewSpanFile(opts.SpanLogPath), nil
	case BackendSQLite:
		db, err := Open(opts.DatabasePath, logger)
		if err != nil {
			return nil, err
		}
		return NewSpanDB(db), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
