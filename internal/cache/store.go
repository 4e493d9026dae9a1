package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS responses (
	key        TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	fetched_at INTEGER NOT NULL
);`

// Store persists upstream response bodies in SQLite so they survive restarts
type Store struct {
	conn    *sql.DB
	writeMu sync.Mutex
	now     func() time.Time
}

// OpenStore opens (creating if needed) the SQLite file at path.
// Use ":memory:" for a throwaway store.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?_journal=WAL&_busy_timeout=5000"
	if path == ":memory:" {
		dsn = path
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// one writer at a time
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &Store{conn: conn, now: time.Now}, nil
}

// Get returns the body stored under key if it is younger than maxAge
func (s *Store) Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool, error) {
	var (
		body      []byte
		fetchedAt int64
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM responses WHERE key = ?`, key,
	).Scan(&body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry %q: %w", key, err)
	}

	if maxAge > 0 && s.now().Sub(time.Unix(fetchedAt, 0)) >= maxAge {
		return nil, false, nil
	}
	return body, true, nil
}

// Put stores body under key, replacing any previous entry
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO responses (key, body, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		key, body, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry %q: %w", key, err)
	}
	return nil
}

// Prune deletes entries older than maxAge and reports how many went
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cutoff := s.now().Add(-maxAge).Unix()
	res, err := s.conn.ExecContext(ctx, `DELETE FROM responses WHERE fetched_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database
func (s *Store) Close() error {
	return s.conn.Close()
}
