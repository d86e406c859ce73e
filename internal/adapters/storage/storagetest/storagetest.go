// Package storagetest opens migrated in-memory databases for store tests.
package storagetest

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"kinesis/internal/adapters/storage"
)

// OpenDB returns a fully migrated in-memory SQLite database that is closed
// when the test ends.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open(string(storage.DialectSQLite), ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db, storage.DialectSQLite); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}
