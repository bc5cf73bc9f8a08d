package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/stayhq/presence-server/internal/identity"
)

// Oracle implements identity.Oracle against the users table in SQLite.
type Oracle struct {
	db *sql.DB
}

// New opens the SQLite database at dbPath.
func New(dbPath string) (*Oracle, error) {
	return NewWithSetup(dbPath, nil)
}

// NewWithSetup opens the database and runs a setup function first.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*Oracle, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Oracle{db: db}, nil
}

// Close closes the database connection.
func (o *Oracle) Close() error {
	return o.db.Close()
}

// Exists reports whether a user row with the given uid is present. A uid that
// does not parse as a UUID returns identity.ErrMalformedID without touching
// the database.
func (o *Oracle) Exists(ctx context.Context, userUID string) (bool, error) {
	if _, err := uuid.Parse(userUID); err != nil {
		return false, identity.ErrMalformedID
	}

	var one int
	query := `SELECT 1 FROM users WHERE id = ?`
	err := o.db.QueryRowContext(ctx, query, userUID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query user: %w", err)
	}
	return true, nil
}
