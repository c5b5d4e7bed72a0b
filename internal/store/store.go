// Package store handles SQLite persistence of the session cache.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/xpdash/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when the requested cache entry is absent.
var ErrNotFound = errors.New("not found in cache")

// Store wraps SQLite access for the bearer token and the cached profile.
type Store struct {
	db *sql.DB
}

// CachedProfile is the last profile payload written to the cache.
type CachedProfile struct {
	Seq       int64
	FetchedAt time.Time
	Profile   *model.UserProfile
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS profile_cache (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			seq INTEGER NOT NULL,
			login TEXT NOT NULL,
			fetched_at TEXT NOT NULL,
			payload TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveToken replaces the stored bearer token.
func (s *Store) SaveToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth (id, token, saved_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET token = excluded.token, saved_at = excluded.saved_at`,
		token, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Token returns the stored bearer token or ErrNotFound.
func (s *Store) Token(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM auth WHERE id = 1`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

// SaveProfile stores the raw profile under a fetch sequence number. A write
// whose sequence is not newer than the stored one is ignored and reported
// with applied=false.
func (s *Store) SaveProfile(ctx context.Context, seq int64, profile *model.UserProfile, fetchedAt time.Time) (bool, error) {
	if profile == nil {
		return false, fmt.Errorf("save profile: nil profile")
	}
	payload, err := json.Marshal(profile)
	if err != nil {
		return false, fmt.Errorf("encode profile: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO profile_cache (id, seq, login, fetched_at, payload) VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			seq = excluded.seq,
			login = excluded.login,
			fetched_at = excluded.fetched_at,
			payload = excluded.payload
		 WHERE excluded.seq > profile_cache.seq`,
		seq, profile.Login, fetchedAt.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return false, fmt.Errorf("save profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save profile: %w", err)
	}
	return n > 0, nil
}

// Profile returns the cached profile or ErrNotFound.
func (s *Store) Profile(ctx context.Context) (CachedProfile, error) {
	var (
		out       CachedProfile
		fetchedAt string
		payload   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT seq, fetched_at, payload FROM profile_cache WHERE id = 1`).Scan(&out.Seq, &fetchedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedProfile{}, ErrNotFound
	}
	if err != nil {
		return CachedProfile{}, fmt.Errorf("load profile: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return CachedProfile{}, fmt.Errorf("parse fetched_at: %w", err)
	}
	out.FetchedAt = parsed
	var profile model.UserProfile
	if err := json.Unmarshal([]byte(payload), &profile); err != nil {
		return CachedProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	out.Profile = &profile
	return out, nil
}

// Clear removes the token and the cached profile.
func (s *Store) Clear(ctx context.Context) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	for _, stmt := range []string{`DELETE FROM auth`, `DELETE FROM profile_cache`} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	return tx.Commit()
}
