// Package store persists fill reports so past sessions can be listed and
// inspected later. Two backends are available: a local SQLite file (the
// default) and PostgreSQL for setups where runs happen on more than one
// machine. The backend is chosen by the history section of the config.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrSessionNotFound is returned by GetSession when no stored report
// matches the requested session ID.
var ErrSessionNotFound = errors.New("session not found")

// defaultListLimit bounds ListSessions when the caller passes no limit.
const defaultListLimit = 20

// SessionSummary is one row of the history listing: the report header
// without the per-field results.
type SessionSummary struct {
	SessionID string
	Target    string
	Platform  schemas.Platform
	StartedAt time.Time
	Duration  time.Duration
	Filled    int
	Skipped   int
	Errored   int
}

// Store persists fill reports across runs.
type Store interface {
	// SaveReport inserts the report, replacing any earlier report stored
	// under the same session ID.
	SaveReport(ctx context.Context, report *schemas.FillReport) error
	// ListSessions returns up to limit session summaries, newest first.
	// A non-positive limit applies a default.
	ListSessions(ctx context.Context, limit int) ([]SessionSummary, error)
	// GetSession loads one full report by session ID.
	GetSession(ctx context.Context, sessionID string) (*schemas.FillReport, error)
	Close() error
}

// New opens the backend named by the config. Callers decide whether
// history is wanted at all; New assumes it is.
func New(ctx context.Context, cfg config.HistoryConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "", "sqlite":
		return NewSQLite(ctx, cfg.SQLite.Path, logger)
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		st, err := NewPostgres(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown history backend %q (expected sqlite or postgres)", cfg.Backend)
	}
}

// encodeFields renders the per-field results as a JSON array. A nil slice
// is stored as an empty array so the column never holds "null".
func encodeFields(fields []schemas.FieldResult) (string, error) {
	if fields == nil {
		fields = []schemas.FieldResult{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeFields(data []byte) ([]schemas.FieldResult, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var fields []schemas.FieldResult
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
