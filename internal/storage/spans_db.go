package storage

import (
	"database/sql"
	"fmt"
	"time"

	"timetrack/internal/span"
)

// SpanDB stores spans in SQLite, tagged with the report pass that
// produced them.
type SpanDB struct {
	db *DB
}

// NewSpanDB wraps an open database.
func NewSpanDB(db *DB) *SpanDB {
	return &SpanDB{db: db}
}

// PassSummary describes one report pass.
type PassSummary struct {
	PassID     string    `json:"passId"`
	Spans      int       `json:"spans"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Add inserts spans in a single transaction.
func (s *SpanDB) Add(passID string, spans []span.Span) error {
	if len(spans) == 0 {
		return nil
	}
	recordedAt := time.Now().UTC().Format(time.RFC3339)

	return s.db.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO spans (project, start_ts, end_ts, pass_id, recorded_at)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, sp := range spans {
			if _, err := stmt.Exec(sp.Project, int64(sp.Start), int64(sp.End), passID, recordedAt); err != nil {
				return fmt.Errorf("failed to insert span %s: %w", sp, err)
			}
		}
		return nil
	})
}

// All returns every span ordered by insertion.
func (s *SpanDB) All() ([]span.Span, error) {
	rows, err := s.db.Query(`SELECT project, start_ts, end_ts FROM spans ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query spans: %w", err)
	}
	defer rows.Close()

	spans := []span.Span{}
	for rows.Next() {
		var (
			project    string
			start, end int64
		)
		if err := rows.Scan(&project, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan span: %w", err)
		}
		spans = append(spans, span.Span{Project: project, Start: uint64(start), End: uint64(end)})
	}
	return spans, rows.Err()
}

// LatestEnd returns the largest end_ts.
func (s *SpanDB) LatestEnd() (uint64, error) {
	var end int64
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(end_ts), 0) FROM spans`).Scan(&end); err != nil {
		return 0, fmt.Errorf("failed to query latest span end: %w", err)
	}
	return uint64(end), nil
}

// Passes lists report passes, newest first.
func (s *SpanDB) Passes(limit int) ([]PassSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT pass_id, COUNT(*), MAX(recorded_at)
		FROM spans
		GROUP BY pass_id
		ORDER BY MAX(recorded_at) DESC, MAX(id) DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query passes: %w", err)
	}
	defer rows.Close()

	var passes []PassSummary
	for rows.Next() {
		var (
			p        PassSummary
			recorded string
		)
		if err := rows.Scan(&p.PassID, &p.Spans, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan pass: %w", err)
		}
		p.RecordedAt, _ = time.Parse(time.RFC3339, recorded)
		passes = append(passes, p)
	}
	return passes, rows.Err()
}

// Clear deletes every span.
func (s *SpanDB) Clear() error {
	_, err := s.db.Exec(`DELETE FROM spans`)
	if err != nil {
		return fmt.Errorf("failed to clear spans: %w", err)
	}
	return nil
}

func (s *SpanDB) Location() string { return s.db.Path() }
func (s *SpanDB) Close() error     { return s.db.Close() }
