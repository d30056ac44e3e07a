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

	_ "github.com/mattn/go-sqlite3"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS loom_store (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`

// SQLAdapter stores values in a SQLite table.
type SQLAdapter struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path, creating parent
// directories as needed.
func OpenSQLite(path string) (*SQLAdapter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	a, err := NewSQLAdapter(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// NewSQLAdapter uses an open SQLite database, creating the table if needed.
func NewSQLAdapter(db *sql.DB) (*SQLAdapter, error) {
	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("store: create table: %w", err)
	}
	return &SQLAdapter{db: db}, nil
}

// Close closes the database.
func (a *SQLAdapter) Close() error {
	return a.db.Close()
}

// Get retrieves a value by key.
func (a *SQLAdapter) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var value string
	err := a.db.QueryRowContext(ctx, `SELECT value FROM loom_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get %q: %w", key, err)
	}
	return json.RawMessage(value), true, nil
}

// Set stores value under key.
func (a *SQLAdapter) Set(ctx context.Context, key string, value json.RawMessage) error {
	_, err := a.db.ExecContext(ctx, `
INSERT INTO loom_store (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (a *SQLAdapter) Delete(ctx context.Context, key string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM loom_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	return nil
}

// Keys returns every key in ascending order.
func (a *SQLAdapter) Keys(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT key FROM loom_store ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("store: list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("store: list keys: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
