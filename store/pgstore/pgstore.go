// Package pgstore implements [store.Store] on a PostgreSQL table through pgx.
//
// Rows carry an optional expires_at; expired rows read as absent and are removed
// lazily by [Store.Sweep].
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/adminGate/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is used when no table name is configured.
const DefaultTable = "admin_gate_kv"

// DB is the subset of *pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists gate records in PostgreSQL.
type Store struct {
	db    DB
	table string
	now   func() time.Time
}

// New creates a store over db using the given table name.
func New(db DB, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{
		db:    db,
		table: pgx.Identifier{table}.Sanitize(),
		now:   time.Now,
	}
}

// NewPool connects to databaseURL and verifies the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("database pool init failed: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the backing table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	sql := `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	expires_at TIMESTAMPTZ NULL
)`
	if _, err := s.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx,
		`SELECT value FROM `+s.table+` WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`,
		key, s.now().UTC(),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := s.now().Add(ttl).UTC()
		expiresAt = &t
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO `+s.table+` (key, value, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM `+s.table+` WHERE key = ANY($1)`, keys); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// Sweep deletes expired rows and returns how many were removed.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM `+s.table+` WHERE expires_at IS NOT NULL AND expires_at <= $1`,
		s.now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return tag.RowsAffected(), nil
}
