package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Store is the SQLite statistics store. It talks to a local file through
// modernc.org/sqlite or to a hosted Turso database through libsql.
type Store struct {
	db     *sql.DB
	driver string
}

// OpenSQLite opens (creating if needed) a local database file.
// ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create db directory: %w", err)
			}
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	return open("sqlite", dsn)
}

// OpenTurso connects to a hosted libsql database
func OpenTurso(url, authToken string) (*Store, error) {
	if url == "" {
		return nil, fmt.Errorf("Turso URL not configured (set TURSO_DATABASE_URL)")
	}
	connStr := url
	if authToken != "" {
		connStr = fmt.Sprintf("%s?authToken=%s", url, authToken)
	}
	return open("libsql", connStr)
}

func open(driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has no row locks, so transactions serialize here
	db.SetMaxOpenConns(1)

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the database/sql driver name in use
func (s *Store) Driver() string {
	return s.driver
}

// EnsureSchema creates the required tables if they don't exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS player_stats (
			player_id TEXT PRIMARY KEY,
			streak INTEGER NOT NULL DEFAULT 0,
			times_played INTEGER NOT NULL DEFAULT 0,
			average_guesses REAL NOT NULL DEFAULT 0,
			played_today INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS daily_leaderboard (
			player_id TEXT PRIMARY KEY,
			guess_count INTEGER NOT NULL,
			submitted_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_leaderboard_guesses
			ON daily_leaderboard (guess_count, submitted_at)`,
		`CREATE TABLE IF NOT EXISTS announcement_targets (
			guild_id TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS puzzle_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			weapon_name TEXT NOT NULL,
			weapon_game TEXT NOT NULL,
			puzzle_date TEXT NOT NULL,
			previous_name TEXT,
			previous_game TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS rollover_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			reset_date TEXT NOT NULL DEFAULT '',
			cleared_date TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// withTx runs fn in a transaction, committing when it returns nil
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
