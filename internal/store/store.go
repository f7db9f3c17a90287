package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Store is the single persistence layer of the application.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the SQLite database at path and applies the schema.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("store: mkdir %s: %w", filepath.Dir(path), err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	logrus.WithField("path", path).Info("Database ready")
	return &Store{db: db, now: time.Now}, nil
}

// SetClock overrides the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping is used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		username        TEXT NOT NULL UNIQUE COLLATE NOCASE,
		email           TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash   TEXT NOT NULL,
		user_type       TEXT NOT NULL,
		public_email    INTEGER NOT NULL DEFAULT 0,
		date_registered INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS youtube_channels (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id          INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		channel_id       TEXT NOT NULL,
		title            TEXT NOT NULL,
		subscriber_count INTEGER NOT NULL DEFAULT 0,
		video_count      INTEGER NOT NULL DEFAULT 0,
		view_count       INTEGER NOT NULL DEFAULT 0,
		date_added       INTEGER NOT NULL,
		last_updated     INTEGER NOT NULL,
		UNIQUE(user_id, channel_id)
	)`,
	`CREATE TABLE IF NOT EXISTS searches (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		query       TEXT NOT NULL,
		video_id    TEXT,
		search_type TEXT NOT NULL,
		searched_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_searches_user ON searches(user_id, searched_at)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at         INTEGER NOT NULL,
		youtube_url        TEXT NOT NULL,
		creator_name       TEXT NOT NULL,
		creator_industry   TEXT NOT NULL,
		sponsor_name       TEXT NOT NULL,
		sponsor_industry   TEXT NOT NULL,
		transcript_summary TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS otps (
		email      TEXT PRIMARY KEY COLLATE NOCASE,
		code_hash  TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_otps_expiry ON otps(expires_at)`,
	`CREATE TABLE IF NOT EXISTS scheduled_posts (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id        TEXT NOT NULL UNIQUE,
		user_id        INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		platform       TEXT NOT NULL,
		content_type   TEXT NOT NULL,
		media_path     TEXT NOT NULL,
		thumbnail_path TEXT NOT NULL DEFAULT '',
		title          TEXT NOT NULL DEFAULT '',
		caption        TEXT NOT NULL DEFAULT '',
		scheduled_time TEXT NOT NULL,
		due_at         INTEGER NOT NULL,
		status         TEXT NOT NULL,
		result         TEXT NOT NULL DEFAULT '',
		created_at     INTEGER NOT NULL,
		updated_at     INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_due ON scheduled_posts(status, due_at)`,
	`CREATE TABLE IF NOT EXISTS rentals (
		id                   TEXT PRIMARY KEY,
		user_id              INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		influencer_id        TEXT NOT NULL,
		start_date           TEXT NOT NULL,
		end_date             TEXT NOT NULL,
		duration_days        INTEGER NOT NULL,
		campaign_name        TEXT NOT NULL,
		campaign_description TEXT NOT NULL DEFAULT '',
		total_cost           REAL NOT NULL,
		status               TEXT NOT NULL,
		created_at           INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id              TEXT PRIMARY KEY,
		user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		agent_id        TEXT NOT NULL,
		start_date      TEXT NOT NULL,
		end_date        TEXT NOT NULL,
		months          INTEGER NOT NULL,
		platforms       TEXT NOT NULL,
		account_details TEXT NOT NULL DEFAULT '{}',
		total_cost      REAL NOT NULL,
		status          TEXT NOT NULL,
		created_at      INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS generated_images (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     INTEGER,
		prompt      TEXT NOT NULL,
		brand_name  TEXT NOT NULL DEFAULT '',
		output_path TEXT NOT NULL DEFAULT '',
		image_url   TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	)`,
}

func migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func unix(t time.Time) int64 {
	return t.UTC().Unix()
}

func fromUnix(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
