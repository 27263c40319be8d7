// Package postgres implements the optional durable backend for YOLO
// exploration state and the all-time leaderboard: the same Store and
// LeaderboardStore capabilities as the default JSON files, backed by
// Postgres so several machines can share one all-time record. Documents are
// stored as JSONB rows; schema versioning and compatibility rules are the
// ones the persistence package already enforces on the decoded documents.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/trendlab/internal/persistence"
	"github.com/sawpanic/trendlab/internal/terrors"
	"github.com/sawpanic/trendlab/internal/yolo"
)

// Schema is the DDL the store expects. Applied by the operator, not the
// core; kept here so migrations and tests share one source of truth.
const Schema = `
CREATE TABLE IF NOT EXISTS exploration_state (
    name       TEXT PRIMARY KEY,
    doc        JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leaderboard (
    name       TEXT PRIMARY KEY,
    doc        JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store persists state documents in Postgres via sqlx. It implements both
// persistence.Store and persistence.LeaderboardStore.
type Store struct {
	db      *sqlx.DB
	name    string
	timeout time.Duration
}

// NewStore wraps an open sqlx DB. name partitions rows so multiple
// universes can share one database.
func NewStore(db *sqlx.DB, name string, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{db: db, name: name, timeout: timeout}
}

// Open connects to Postgres with the lib/pq driver and verifies the
// connection.
func Open(dsn, name string, timeout time.Duration) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, terrors.Wrap(terrors.ErrIO, "connecting to postgres", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(time.Minute)
	return NewStore(db, name, timeout), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Load reads the exploration state document. A missing row is a first-ever
// session: a fresh state, not an error.
func (s *Store) Load() (yolo.ExplorationState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var raw []byte
	err := s.db.QueryRowxContext(ctx,
		`SELECT doc FROM exploration_state WHERE name = $1`, s.name).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return yolo.NewExplorationState(), nil
		}
		return yolo.ExplorationState{}, terrors.Wrap(terrors.ErrIO, "loading exploration state row", err)
	}

	var doc persistence.StateDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return yolo.ExplorationState{}, terrors.Wrap(terrors.ErrSchema, "decoding exploration state row", err)
	}
	return persistence.FromDoc(doc)
}

// Save upserts the exploration state document.
func (s *Store) Save(state yolo.ExplorationState) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	data, err := json.Marshal(persistence.ToDoc(state))
	if err != nil {
		return terrors.Wrap(terrors.ErrIO, "encoding exploration state", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exploration_state (name, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		s.name, data)
	if err != nil {
		return terrors.Wrap(terrors.ErrIO, "upserting exploration state row", wrapPqError(err))
	}
	return nil
}

// LoadLeaderboard reads the all-time leaderboard under profile; a missing
// row yields a fresh empty set.
func (s *Store) LoadLeaderboard(profile yolo.RiskProfile) (*yolo.LeaderboardSet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var raw []byte
	err := s.db.QueryRowxContext(ctx,
		`SELECT doc FROM leaderboard WHERE name = $1`, s.name).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return yolo.NewLeaderboardSet(yolo.DefaultLeaderboardCapacity, profile), nil
		}
		return nil, terrors.Wrap(terrors.ErrIO, "loading leaderboard row", err)
	}

	var doc persistence.LeaderboardDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, terrors.Wrap(terrors.ErrSchema, "decoding leaderboard row", err)
	}
	return persistence.FromLeaderboardDoc(doc, profile)
}

// SaveLeaderboard upserts the all-time leaderboard document.
func (s *Store) SaveLeaderboard(set *yolo.LeaderboardSet) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	data, err := json.Marshal(persistence.ToLeaderboardDoc(set))
	if err != nil {
		return terrors.Wrap(terrors.ErrIO, "encoding leaderboard", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO leaderboard (name, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		s.name, data)
	if err != nil {
		return terrors.Wrap(terrors.ErrIO, "upserting leaderboard row", wrapPqError(err))
	}
	return nil
}

// wrapPqError surfaces the Postgres error code when the driver reports one,
// without leaking connection details into the message.
func wrapPqError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("postgres error %s: %w", pqErr.Code, err)
	}
	return err
}
