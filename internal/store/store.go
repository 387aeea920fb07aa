// Package store provides read-only access to the Messages database.
//
// The database belongs to Messages.app; chatbridge never writes to it and
// opens it immutable so a live client cannot be disturbed.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chatbridge/chatbridge/internal/fault"
)

// Querier is the read-only query surface the query layer depends on.
// *sql.DB satisfies it, as do test fixtures.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps a read-only connection to the Messages database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens the Messages database read-only. A permission failure is
// reported as fault.ErrAccessDenied with guidance, since on macOS the usual
// cause is the process lacking Full Disk Access.
func Open(dbPath string) (*Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, accessDenied(dbPath, err)
		}
		return nil, fmt.Errorf("messages database %s: %w", dbPath, err)
	}

	dsn := "file:" + dbPath + "?mode=ro&immutable=1&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open messages database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		if errors.Is(err, fs.ErrPermission) {
			return nil, accessDenied(dbPath, err)
		}
		return nil, fmt.Errorf("ping messages database: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

func accessDenied(dbPath string, cause error) error {
	return fmt.Errorf("%w: cannot read %s (%v); grant the terminal Full Disk Access in System Settings > Privacy & Security",
		fault.ErrAccessDenied, dbPath, cause)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection for the query layer.
func (s *Store) DB() *sql.DB {
	return s.db
}
