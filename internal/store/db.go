package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"radiocat/internal/domain"
)

type DB struct {
	*sqlx.DB
}

func NewSQLiteDB(dsn string) (*DB, error) {
	// Pragmas travel in the DSN so they reach every pooled connection; an
	// Exec'd PRAGMA only configures the one connection it happens to run
	// on. Two processes share this file (daemon and transcription worker),
	// so WAL plus a generous busy timeout is required everywhere.
	db, err := sqlx.Open("sqlite", dsn+"?_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// storeErr wraps a raw storage failure so callers can distinguish
// backing-store trouble from domain errors.
func storeErr(op string, err error) error {
	return &domain.StoreError{Op: op, Err: err}
}
