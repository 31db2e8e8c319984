// Package storage persists ledger state in SQLite. State is a flat
// key→JSON table: each key is written and read independently, so one
// corrupt value never takes the others down with it.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type StateDB struct {
	db *sql.DB
}

// NewStateDB opens (creating if needed) the database at dbPath and runs
// pending migrations.
func NewStateDB(dbPath string) (*StateDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &StateDB{db: db}, nil
}

func (s *StateDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load implements ledger.StateStore. A missing key returns (false, nil).
// A value that no longer decodes is logged and also reported as missing,
// so the caller falls back to its default instead of failing the load.
func (s *StateDB) Load(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load state %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		slog.WarnContext(ctx, "Stored state value is corrupt, treating as missing",
			"key", key, "error", err)
		return false, nil
	}
	return true, nil
}

// Save implements ledger.StateStore with an upsert.
func (s *StateDB) Save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode state %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save state %s: %w", key, err)
	}
	return nil
}
