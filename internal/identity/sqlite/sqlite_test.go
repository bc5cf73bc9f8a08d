package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/stayhq/presence-server/internal/identity"
)

func newTestOracle(t *testing.T) *Oracle {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	oracle, err := NewWithSetup(path, func(db *sql.DB) error {
		_, err := db.Exec(`CREATE TABLE users (id TEXT PRIMARY KEY, username TEXT)`)
		return err
	})
	if err != nil {
		t.Fatalf("open test oracle: %v", err)
	}
	t.Cleanup(func() { oracle.Close() })

	return oracle
}

func insertUser(t *testing.T, oracle *Oracle, id string) {
	t.Helper()
	if _, err := oracle.db.Exec(`INSERT INTO users (id, username) VALUES (?, ?)`, id, "tester"); err != nil {
		t.Fatalf("insert user: %v", err)
	}
}

func TestExistsKnownUser(t *testing.T) {
	oracle := newTestOracle(t)
	id := uuid.NewString()
	insertUser(t, oracle, id)

	exists, err := oracle.Exists(context.Background(), id)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("expected known user to exist")
	}
}

func TestExistsUnknownUser(t *testing.T) {
	oracle := newTestOracle(t)

	exists, err := oracle.Exists(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("expected unknown user to be absent")
	}
}

func TestExistsMalformedUID(t *testing.T) {
	oracle := newTestOracle(t)

	_, err := oracle.Exists(context.Background(), "not-a-uuid")
	if !errors.Is(err, identity.ErrMalformedID) {
		t.Fatalf("expected ErrMalformedID, got %v", err)
	}
}
