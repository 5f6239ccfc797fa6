package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	sqlOpTimeout = 2 * time.Second

	createKVTable = `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`

	// $n placeholders and ON CONFLICT are understood by both sqlite3 and postgres
	selectValue = `SELECT value FROM kv WHERE key = $1`
	upsertValue = `INSERT INTO kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	deleteValue = `DELETE FROM kv WHERE key = $1`
)

// SQLEngine implements Engine on a single kv table of a SQL database.
type SQLEngine struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a sqlite database at dbPath.
func NewSQLite(dbPath string) (*SQLEngine, error) {
	if dbPath == "" {
		dbPath = filepath.Join(".", "movieshelf.sqlite")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), dbDirMode); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	db.SetMaxOpenConns(1)

	return newSQLEngine(db)
}

// NewPostgres connects to the postgres database named by dsn.
func NewPostgres(dsn string) (*SQLEngine, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	return newSQLEngine(db)
}

func newSQLEngine(db *sql.DB) (*SQLEngine, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqlOpTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, createKVTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return &SQLEngine{db: db}, nil
}

func (e *SQLEngine) GetString(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqlOpTimeout)
	defer cancel()

	var value string
	err := e.db.QueryRowContext(ctx, selectValue, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, true, nil
}

func (e *SQLEngine) SetString(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), sqlOpTimeout)
	defer cancel()

	if _, err := e.db.ExecContext(ctx, upsertValue, key, value); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (e *SQLEngine) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), sqlOpTimeout)
	defer cancel()

	if _, err := e.db.ExecContext(ctx, deleteValue, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (e *SQLEngine) Contains(key string) (bool, error) {
	_, found, err := e.GetString(key)
	return found, err
}

func (e *SQLEngine) Close() error {
	return e.db.Close()
}
