package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the set in a SQLite table, one row per fingerprint.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path, configures WAL mode and
// creates the schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("dedup: create %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dedup: sqlite open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("dedup: sqlite exec %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS processed_hashes (
	hash       TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return fmt.Errorf("dedup: sqlite migrate: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hash FROM processed_hashes ORDER BY hash`)
	if err != nil {
		return nil, fmt.Errorf("dedup: sqlite query: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("dedup: sqlite scan: %w", err)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dedup: sqlite rows: %w", err)
	}
	return hashes, nil
}

// Persist implements Store by inserting the new fingerprints in one transaction.
func (s *SQLiteStore) Persist(ctx context.Context, added, _ []string) error {
	if len(added) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dedup: sqlite begin: %w", err)
	}
	now := time.Now().UTC()
	for _, h := range added {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO processed_hashes (hash, created_at) VALUES (?, ?)`, h, now,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("dedup: sqlite insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dedup: sqlite commit: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
