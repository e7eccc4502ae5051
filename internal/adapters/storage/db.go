// Package storage provides database access and schema management.
package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLDB is the subset of *sql.DB used by the stores. Keeping it an
// interface lets tests swap in failure-injecting fakes.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ SQLDB = (*sql.DB)(nil)

// InitDB creates the schema if it does not exist yet.
// PRE: db is an open SQLite connection
// POST: email_history table and indexes exist
func InitDB(db *sql.DB) error {
	statements := []string{
		`PRAGMA journal_mode=WAL`,
		`CREATE TABLE IF NOT EXISTS email_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			sender TEXT NOT NULL,
			subject TEXT NOT NULL,
			recipients TEXT NOT NULL,
			message TEXT NOT NULL,
			status TEXT NOT NULL,
			details TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_email_history_date ON email_history(date)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init db: %w", err)
		}
	}
	return nil
}
