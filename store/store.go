// Package store persists harvested profiles in SQLite. Each ticker has
// one row whose data column is a JSON object keyed by source label, so
// results from different surfaces accumulate instead of clobbering each
// other.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound means no profile row exists for the ticker.
var ErrNotFound = errors.New("store: profile not found")

// Store wraps the profiles database.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the store at path.
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Upsert merges payload under the source label into the ticker's
// profile object. Other sources' entries are preserved.
func (s *Store) Upsert(ctx context.Context, ticker, source string, payload json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	merged := make(map[string]json.RawMessage)
	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM profiles WHERE ticker = ?`, ticker).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("store: read existing: %w", err)
	default:
		if err := json.Unmarshal([]byte(existing), &merged); err != nil {
			// Unreadable rows get replaced rather than blocking writes.
			merged = make(map[string]json.RawMessage)
		}
	}
	merged[source] = payload

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (ticker, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		ticker, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: upsert: %w", err)
	}
	return tx.Commit()
}

// Get returns the ticker's merged profile object and its last update time.
func (s *Store) Get(ctx context.Context, ticker string) (json.RawMessage, time.Time, error) {
	var data string
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM profiles WHERE ticker = ?`, ticker).
		Scan(&data, &updated)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, ticker)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("store: get: %w", err)
	}
	return json.RawMessage(data), time.Unix(updated, 0), nil
}

// Tickers lists every stored ticker, newest first.
func (s *Store) Tickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ticker FROM profiles ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
