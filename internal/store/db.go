package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Migrate creates the schema if it does not exist yet. Statements run one at
// a time because the pgx driver rejects multi-statement Exec calls.
func (d *DB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			name        TEXT PRIMARY KEY,
			email       TEXT UNIQUE NOT NULL,
			role        TEXT NOT NULL DEFAULT 'student',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			email          TEXT PRIMARY KEY REFERENCES users(email),
			password_hash  TEXT NOT NULL,
			role           TEXT NOT NULL DEFAULT 'student',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS rooms (
			friendly_name     TEXT PRIMARY KEY,
			sid               TEXT NOT NULL,
			chat_service_sid  TEXT NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS attendance_records (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'Present',
			recorded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS emotion_records (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			emotion      TEXT NOT NULL DEFAULT 'Normal',
			attention    TEXT NOT NULL DEFAULT 'Yes',
			recorded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_recorded ON attendance_records(recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_emotion_name ON emotion_records(name, recorded_at)`,
	}
	for _, stmt := range statements {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
