package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for
// mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS fill_sessions (
		session_id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		duration_ms BIGINT NOT NULL,
		filled INT NOT NULL,
		skipped INT NOT NULL,
		errored INT NOT NULL,
		fields JSONB NOT NULL
	);
`

// PostgresStore keeps fill history in PostgreSQL, for setups where runs
// happen on more than one machine.
type PostgresStore struct {
	pool DBPool
	log  *zap.Logger
}

// NewPostgres verifies the connection and bootstraps the history table.
func NewPostgres(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &PostgresStore{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// SaveReport upserts the report under its session ID.
func (s *PostgresStore) SaveReport(ctx context.Context, report *schemas.FillReport) error {
	fields, err := encodeFields(report.Fields)
	if err != nil {
		return fmt.Errorf("encoding field results: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO fill_sessions (session_id, target, platform, started_at, duration_ms, filled, skipped, errored, fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO UPDATE SET
			target = EXCLUDED.target,
			platform = EXCLUDED.platform,
			started_at = EXCLUDED.started_at,
			duration_ms = EXCLUDED.duration_ms,
			filled = EXCLUDED.filled,
			skipped = EXCLUDED.skipped,
			errored = EXCLUDED.errored,
			fields = EXCLUDED.fields;
	`, report.SessionID, report.Target, string(report.Platform),
		report.StartedAt.UTC(), report.Duration.Milliseconds(),
		report.Filled, report.Skipped, report.Errored, fields)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	s.log.Debug("Report saved", zap.String("session_id", report.SessionID))
	return nil
}

// ListSessions returns the most recent session headers, newest first.
func (s *PostgresStore) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, target, platform, started_at, duration_ms, filled, skipped, errored
		FROM fill_sessions
		ORDER BY started_at DESC
		LIMIT $1;
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
			durationMS int64
		)
		if err := rows.Scan(&sum.SessionID, &sum.Target, &platform, &sum.StartedAt,
			&durationMS, &sum.Filled, &sum.Skipped, &sum.Errored); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sum.Platform = schemas.Platform(platform)
		sum.Duration = time.Duration(durationMS) * time.Millisecond
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

// GetSession loads one full report, per-field results included.
func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*schemas.FillReport, error) {
	var (
		report     schemas.FillReport
		platform   string
		durationMS int64
		fields     []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT session_id, target, platform, started_at, duration_ms, filled, skipped, errored, fields
		FROM fill_sessions
		WHERE session_id = $1;
	`, sessionID).Scan(&report.SessionID, &report.Target, &platform, &report.StartedAt,
		&durationMS, &report.Filled, &report.Skipped, &report.Errored, &fields)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	report.Platform = schemas.Platform(platform)
	report.Duration = time.Duration(durationMS) * time.Millisecond
	if report.Fields, err = decodeFields(fields); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", sessionID, err)
	}
	return &report, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
