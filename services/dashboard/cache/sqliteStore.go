package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteBackendName = "sqlite"
	inMemoryDB        = ":memory:"
)

// sqliteBackend keeps the envelopes in a single table. Every save is one upsert statement, which sqlite applies
// atomically
type sqliteBackend struct {
	db *sql.DB
}

// NewSQLiteStore creates the database and schema and returns a cache store backed by it
func NewSQLiteStore(dbPath string, metrics MetricsRecorder) (*cacheStore, error) {
	err := prepareDirectories(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial empty DB file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == inMemoryDB {
		// every new connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	err = createSchema(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newCacheStore(sqliteBackendName, &sqliteBackend{db: db}, metrics)
}

func prepareDirectories(dbPath string) error {
	if dbPath == inMemoryDB {
		return nil
	}

	return os.MkdirAll(filepath.Dir(dbPath), os.ModePerm)
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		cache_key  TEXT    NOT NULL PRIMARY KEY,
		envelope   TEXT    NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (sb *sqliteBackend) load(ctx context.Context, key string) ([]byte, bool, error) {
	var envelope string
	err := sb.db.QueryRowContext(ctx, "SELECT envelope FROM cache_entries WHERE cache_key = ?", key).Scan(&envelope)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query failed: %w", err)
	}

	return []byte(envelope), true, nil
}

func (sb *sqliteBackend) save(ctx context.Context, key string, data []byte) error {
	_, err := sb.db.ExecContext(ctx, `
		INSERT INTO cache_entries (cache_key, envelope, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			envelope=excluded.envelope,
			updated_at=excluded.updated_at
	`, key, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}

	return nil
}

func (sb *sqliteBackend) clear(ctx context.Context) error {
	_, err := sb.db.ExecContext(ctx, "DELETE FROM cache_entries")
	return err
}

func (sb *sqliteBackend) close() error {
	return sb.db.Close()
}
