// Package store persists refresh-token identifiers. It is the durable
// half of the token lifecycle: codec.Codec mints and verifies the signed
// bearer, this package tracks which token ids are still live.
//
// This store carries no family-rotation or theft-detection bookkeeping:
// refresh mints a fresh access token without ever rotating the refresh
// token itself, so the store's contract is exactly add/exists/remove.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/houseflow/houseflow/internal/sqlitex"
)

// ErrStore wraps any I/O failure from the underlying connection; callers
// map it to an internal-error response at the HTTP boundary.
var ErrStore = errors.New("store: operation failed")

// Store is a SQLite-backed refresh-token id store, safe for concurrent
// callers (serialized by the single-writer pool in internal/sqlitex).
type Store struct {
	db *sqlitex.DB
}

// New wraps an already-migrated database handle.
func New(db *sqlitex.DB) *Store {
	return &Store{db: db}
}

// Add records tid as live. If exp is the zero Time, the entry never
// expires on its own (it remains until Remove).
func (s *Store) Add(ctx context.Context, tid string, exp time.Time) error {
	var expires any
	if !exp.IsZero() {
		expires = exp.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (tid, expires_at) VALUES (?, ?)
		 ON CONFLICT(tid) DO UPDATE SET expires_at = excluded.expires_at`,
		tid, expires,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// Exists reports whether tid is present and, if it carries an expiry,
// unexpired. An expired row is lazily swept on the way out.
func (s *Store) Exists(ctx context.Context, tid string) (bool, error) {
	var expiresAt sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT expires_at FROM refresh_tokens WHERE tid = ?", tid,
	).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStore, err)
	}

	if !expiresAt.Valid {
		return true, nil
	}
	exp, err := time.Parse(time.RFC3339, expiresAt.String)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if time.Now().After(exp) {
		_ = s.Remove(ctx, tid)
		return false, nil
	}
	return true, nil
}

// Remove deletes tid. Removing an absent tid is not an error.
func (s *Store) Remove(ctx context.Context, tid string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE tid = ?", tid); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}
