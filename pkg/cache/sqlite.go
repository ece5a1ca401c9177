package cache

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite is an embedded cache backend for single-node runs without a cache
// server. Expiry is stored per entry and checked on read; stale rows are
// simply overwritten by the next set.
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
}

func NewSQLite(path string, log *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			expires_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db, log: log}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool) {
	var data string
	var expiresAt time.Time

	err := s.db.QueryRowContext(ctx,
		`SELECT data, expires_at FROM entries WHERE key = ?`, key,
	).Scan(&data, &expiresAt)

	if err != nil {
		if err != sql.ErrNoRows {
			s.log.Warn("sqlite get failed, treating as miss", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}

	if time.Now().After(expiresAt) {
		return "", false
	}

	return data, true
}

func (s *SQLite) Set(ctx context.Context, key, value string, ttl time.Duration) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (key, data, expires_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(key)
		 DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`,
		key, value, time.Now().Add(ttl),
	)
	if err != nil {
		s.log.Warn("sqlite set failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
