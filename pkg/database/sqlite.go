package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tradegate-bot/tradegate/pkg/config"
)

// NewSQLite returns a configured SQLite client.
func NewSQLite(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", cfg.Path)

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite serialises writers; a single connection avoids SQLITE_BUSY churn.
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(1)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS threads (
    thread_id         TEXT PRIMARY KEY,
    parent_channel_id TEXT NOT NULL,
    guild_id          TEXT NOT NULL,
    owner_id          TEXT NOT NULL,
    name              TEXT NOT NULL DEFAULT '',
    url               TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL,
    archived          INTEGER NOT NULL DEFAULT 0,
    locked            INTEGER NOT NULL DEFAULT 0,
    auto_close_at     TIMESTAMP,
    created_at        TIMESTAMP NOT NULL,
    updated_at        TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS tos_prompts (
    thread_id  TEXT PRIMARY KEY,
    owner_id   TEXT NOT NULL,
    message_id TEXT NOT NULL DEFAULT '',
    sent_at    TIMESTAMP NOT NULL,
    deadline   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS reviews (
    id          TEXT PRIMARY KEY,
    giver_id    TEXT NOT NULL,
    receiver_id TEXT NOT NULL,
    thread_id   TEXT NOT NULL,
    rating      INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 10),
    notes       TEXT,
    created_at  TIMESTAMP NOT NULL,
    UNIQUE (giver_id, receiver_id, thread_id)
);

CREATE TABLE IF NOT EXISTS auto_close_schedules (
    thread_id TEXT PRIMARY KEY,
    fire_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
    id         TEXT PRIMARY KEY,
    thread_id  TEXT,
    user_id    TEXT,
    action     TEXT NOT NULL,
    details    TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reviews_receiver ON reviews (receiver_id, created_at);
CREATE INDEX IF NOT EXISTS idx_reviews_thread ON reviews (thread_id);
CREATE INDEX IF NOT EXISTS idx_audit_thread ON audit_log (thread_id, created_at);
CREATE INDEX IF NOT EXISTS idx_schedules_fire_at ON auto_close_schedules (fire_at);
`

// Migrate applies the schema. Statements are idempotent.
func Migrate(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
