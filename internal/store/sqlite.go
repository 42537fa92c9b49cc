package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// sqliteSchema bootstraps the history table on open. Timestamps are
// stored as unix milliseconds so listing sorts without date parsing.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS fill_sessions (
	session_id TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	platform TEXT NOT NULL DEFAULT '',
	started_at INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	filled INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	errored INTEGER NOT NULL,
	fields TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fill_sessions_started ON fill_sessions(started_at);
`

// SQLiteStore keeps fill history in a local file. This is the default
// backend; the file lives under the user's config directory.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// NewSQLite opens the history database at path, expanding a leading ~
// and creating the parent directory and schema as needed.
func NewSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding history path: %w", err)
	}
	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", expanded)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// Concurrent targets persist from separate goroutines; one connection
	// serializes the writes and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	s := &SQLiteStore{db: db, log: logger.Named("store")}
	s.log.Debug("History database ready", zap.String("path", expanded))
	return s, nil
}

// SaveReport upserts the report under its session ID.
func (s *SQLiteStore) SaveReport(ctx context.Context, report *schemas.FillReport) error {
	fields, err := encodeFields(report.Fields)
	if err != nil {
		return fmt.Errorf("encoding field results: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fill_sessions (session_id, target, platform, started_at, duration_ms, filled, skipped, errored, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			target = excluded.target,
			platform = excluded.platform,
			started_at = excluded.started_at,
			duration_ms = excluded.duration_ms,
			filled = excluded.filled,
			skipped = excluded.skipped,
			errored = excluded.errored,
			fields = excluded.fields;
	`, report.SessionID, report.Target, string(report.Platform),
		report.StartedAt.UTC().UnixMilli(), report.Duration.Milliseconds(),
		report.Filled, report.Skipped, report.Errored, fields)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	s.log.Debug("Report saved", zap.String("session_id", report.SessionID))
	return nil
}

// ListSessions returns the most recent session headers, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, target, platform, started_at, duration_ms, filled, skipped, errored
		FROM fill_sessions
		ORDER BY started_at DESC
		LIMIT ?;
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var (
			sum        SessionSummary
			platform   string
			startedMS  int64
			durationMS int64
		)
		if err := rows.Scan(&sum.SessionID, &sum.Target, &platform, &startedMS,
			&durationMS, &sum.Filled, &sum.Skipped, &sum.Errored); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sum.Platform = schemas.Platform(platform)
		sum.StartedAt = time.UnixMilli(startedMS).UTC()
		sum.Duration = time.Duration(durationMS) * time.Millisecond
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

// GetSession loads one full report, per-field results included.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*schemas.FillReport, error) {
	var (
		report     schemas.FillReport
		platform   string
		startedMS  int64
		durationMS int64
		fields     []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, target, platform, started_at, duration_ms, filled, skipped, errored, fields
		FROM fill_sessions
		WHERE session_id = ?;
	`, sessionID).Scan(&report.SessionID, &report.Target, &platform, &startedMS,
		&durationMS, &report.Filled, &report.Skipped, &report.Errored, &fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	report.Platform = schemas.Platform(platform)
	report.StartedAt = time.UnixMilli(startedMS).UTC()
	report.Duration = time.Duration(durationMS) * time.Millisecond
	if report.Fields, err = decodeFields(fields); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", sessionID, err)
	}
	return &report, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
