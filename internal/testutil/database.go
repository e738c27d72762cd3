package testutil

import (
	"path/filepath"
	"testing"

	"ilmhub/internal/database"
)

// NewTestStore creates an in-memory SQLite store with migrations applied.
// It also serves as the slug index. Closed when the test completes.
func NewTestStore(t *testing.T) *database.SQLiteDatabase {
	t.Helper()
	return openTestStore(t, ":memory:")
}

// NewFileTestStore creates a migrated SQLite store in a temp file. Unlike
// the in-memory store it opens several connections in WAL mode, so
// concurrent callers really race.
func NewFileTestStore(t *testing.T) *database.SQLiteDatabase {
	t.Helper()
	return openTestStore(t, filepath.Join(t.TempDir(), "ilm.db"))
}

func openTestStore(t *testing.T, path string) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}
