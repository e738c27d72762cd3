package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	for _, table := range []string{"nodes", "versions", "slugs", "operations", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus(t *testing.T) {
	t.Run("fresh database needs migration", func(t *testing.T) {
		db := openTestDB(t)

		err := CheckDBMigrationStatus(db)
		if !errors.Is(err, ErrNeedsMigration) {
			t.Errorf("CheckDBMigrationStatus() error = %v, want ErrNeedsMigration", err)
		}
	})

	t.Run("migrated database is current", func(t *testing.T) {
		db := openTestDB(t)
		if err := MigrateUp(db); err != nil {
			t.Fatalf("MigrateUp() error = %v", err)
		}

		if err := CheckDBMigrationStatus(db); err != nil {
			t.Errorf("CheckDBMigrationStatus() error = %v", err)
		}

		st, err := ReadStatus(db)
		if err != nil {
			t.Fatalf("ReadStatus() error = %v", err)
		}
		if st.Current != st.Latest || st.Dirty {
			t.Errorf("ReadStatus() = %+v, want current == latest and clean", st)
		}
	})
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp() error = %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("second MigrateUp() error = %v", err)
	}
}

func TestSchema_SlugIsImmutable(t *testing.T) {
	db := migratedDB(t)

	insertNode(t, db, "n1", "fiqh", "/fiqh")

	_, err := db.Exec("UPDATE nodes SET slug = 'fiqh-2' WHERE id = 'n1'")
	if err == nil {
		t.Fatal("changing slug succeeded, want trigger abort")
	}

	if _, err := db.Exec("UPDATE nodes SET title = 'Fiqh al-Ibadat' WHERE id = 'n1'"); err != nil {
		t.Errorf("updating title error = %v", err)
	}
}

func TestSchema_SlugUnique(t *testing.T) {
	db := migratedDB(t)

	insertNode(t, db, "n1", "fiqh", "/fiqh")

	_, err := db.Exec(`INSERT INTO nodes (id, slug, level, path, created_at, updated_at)
		VALUES ('n2', 'fiqh', 0, '/fiqh', datetime('now'), datetime('now'))`)
	if err == nil {
		t.Error("duplicate slug insert succeeded, want unique violation")
	}
}

func TestSchema_VersionsAppendOnly(t *testing.T) {
	db := migratedDB(t)

	insertNode(t, db, "n1", "fiqh", "/fiqh")
	_, err := db.Exec(`INSERT INTO versions (node_id, version_id, changed_at)
		VALUES ('n1', 1, datetime('now'))`)
	if err != nil {
		t.Fatalf("inserting version error = %v", err)
	}

	t.Run("duplicate version id", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO versions (node_id, version_id, changed_at)
			VALUES ('n1', 1, datetime('now'))`)
		if err == nil {
			t.Error("duplicate version insert succeeded")
		}
	})

	t.Run("update rejected", func(t *testing.T) {
		if _, err := db.Exec("UPDATE versions SET changed_by = 'x'"); err == nil {
			t.Error("version update succeeded")
		}
	})

	t.Run("delete rejected", func(t *testing.T) {
		if _, err := db.Exec("DELETE FROM versions"); err == nil {
			t.Error("version delete succeeded")
		}
	})
}

func TestForeignKeyConstraints(t *testing.T) {
	db := migratedDB(t)

	_, err := db.Exec(`INSERT INTO versions (node_id, version_id, changed_at)
		VALUES ('missing', 1, datetime('now'))`)
	if err == nil {
		t.Error("version for missing node inserted, want foreign key violation")
	}
}

// openTestDB opens a single-connection in-memory SQLite database. Each new
// connection to ":memory:" would see a different database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enabling foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func migratedDB(t *testing.T) *sql.DB {
	t.Helper()
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	return db
}

func insertNode(t *testing.T, db *sql.DB, id, slug, path string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO nodes (id, slug, level, path, created_at, updated_at)
		VALUES (?, ?, 0, ?, datetime('now'), datetime('now'))`, id, slug, path)
	if err != nil {
		t.Fatalf("inserting node %s: %v", id, err)
	}
}
