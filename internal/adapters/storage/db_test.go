package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// openTestDB creates an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// every pooled connection to :memory: would be a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// getTableNames returns sorted table names from sqlite_master, excluding internal tables.
func getTableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan table name: %v", err)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// getSchemaSQL returns sorted CREATE statements from sqlite_master.
func getSchemaSQL(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT sql FROM sqlite_master WHERE name NOT LIKE 'sqlite_%' AND sql IS NOT NULL ORDER BY name")
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	defer rows.Close()

	var sqls []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatalf("failed to scan sql: %v", err)
		}
		sqls = append(sqls, strings.Join(strings.Fields(s), " "))
	}
	sort.Strings(sqls)
	return sqls
}

var expectedTables = []string{
	"client_workouts",
	"outbox",
	"schema_version",
	"users",
	"workouts",
}

// TestMigrateDB_Fresh verifies all migrations apply cleanly to an empty database.
func TestMigrateDB_Fresh(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateDB(db, DialectSQLite); err != nil {
		t.Fatalf("MigrateDB failed on fresh db: %v", err)
	}

	version, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != LatestSchemaVersion() {
		t.Errorf("version = %d, want %d", version, LatestSchemaVersion())
	}

	tables := getTableNames(t, db)
	if strings.Join(tables, ",") != strings.Join(expectedTables, ",") {
		t.Errorf("tables = %v, want %v", tables, expectedTables)
	}
}

// TestMigrateDB_Idempotent verifies that running MigrateDB twice is a no-op.
func TestMigrateDB_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateDB(db, DialectSQLite); err != nil {
		t.Fatalf("first MigrateDB failed: %v", err)
	}
	before := getSchemaSQL(t, db)

	if err := MigrateDB(db, DialectSQLite); err != nil {
		t.Fatalf("second MigrateDB failed: %v", err)
	}

	var rows int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != len(migrations) {
		t.Errorf("schema_version rows = %d, want %d", rows, len(migrations))
	}
	after := getSchemaSQL(t, db)
	if strings.Join(before, "\n") != strings.Join(after, "\n") {
		t.Error("schema changed on second run")
	}
}

// TestMigrateDB_VersionProgression verifies SchemaVersion before and after migrating.
func TestMigrateDB_VersionProgression(t *testing.T) {
	db := openTestDB(t)

	v, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != 0 {
		t.Errorf("initial version = %d, want 0", v)
	}

	if err := MigrateDB(db, DialectSQLite); err != nil {
		t.Fatalf("MigrateDB failed: %v", err)
	}
	v, _ = SchemaVersion(db)
	if v != LatestSchemaVersion() {
		t.Errorf("post-migration version = %d, want %d", v, LatestSchemaVersion())
	}
}

// TestMigrateDB_UniqueIndexes verifies the uniqueness the stores rely on.
func TestMigrateDB_UniqueIndexes(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateDB(db, DialectSQLite); err != nil {
		t.Fatal(err)
	}

	insertUser := `INSERT INTO users (id, username, role, created_at) VALUES (?, ?, 'client', '2026-01-01T00:00:00Z')`
	if _, err := db.Exec(insertUser, "u1", "mario"); err != nil {
		t.Fatal(err)
	}
	_, err := db.Exec(insertUser, "u2", "mario")
	if !IsUniqueViolation(err) {
		t.Errorf("duplicate username error = %v, want unique violation", err)
	}

	insertPair := `INSERT INTO client_workouts (id, client_username, workout_id, assigned_at) VALUES (?, 'mario', 'w1', '2026-01-01T00:00:00Z')`
	if _, err := db.Exec(insertPair, "a1"); err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(insertPair, "a2")
	if !IsUniqueViolation(err) {
		t.Errorf("duplicate assignment error = %v, want unique violation", err)
	}
}

// TestDialect_Rebind tests placeholder rewriting.
func TestDialect_Rebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"sqlite untouched", DialectSQLite, "SELECT * FROM users WHERE id = ?", "SELECT * FROM users WHERE id = ?"},
		{"postgres numbered", DialectPostgres, "UPDATE workouts SET name = ?, days = ? WHERE id = ?", "UPDATE workouts SET name = $1, days = $2 WHERE id = $3"},
		{"quoted literal kept", DialectPostgres, "SELECT '?' FROM users WHERE id = ?", "SELECT '?' FROM users WHERE id = $1"},
		{"no placeholders", DialectPostgres, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.Rebind(tt.in); got != tt.want {
				t.Errorf("Rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestParseDialect tests driver name mapping.
func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"", DialectSQLite, false},
		{"sqlite", DialectSQLite, false},
		{"Postgres", DialectPostgres, false},
		{"pgx", DialectPostgres, false},
		{"mysql", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDialect(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDialect(%q) = %q, %v", tt.in, got, err)
		}
	}
}

// TestOpen_SQLite tests opening a file-backed database.
func TestOpen_SQLite(t *testing.T) {
	path := t.TempDir() + "/kinesis.db"
	db, err := Open(context.Background(), DialectSQLite, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
	if err := MigrateDB(db, DialectSQLite); err != nil {
		t.Fatalf("MigrateDB() error = %v", err)
	}
}

// TestGatewayError tests error classification.
func TestGatewayError(t *testing.T) {
	if err := GatewayError("op", nil); err != nil {
		t.Errorf("GatewayError(nil) = %v", err)
	}
	if err := GatewayError("get plan", sql.ErrNoRows); err != ErrNotFound {
		t.Errorf("GatewayError(ErrNoRows) = %v, want ErrNotFound", err)
	}
	if err := GatewayError("get plan", fmt.Errorf("scan: %w", sql.ErrNoRows)); err != ErrNotFound {
		t.Errorf("wrapped ErrNoRows = %v, want ErrNotFound", err)
	}

	cause := errors.New("disk I/O error")
	err := GatewayError("save plan", cause)
	if !errors.Is(err, ErrGatewayFailure) || !errors.Is(err, cause) {
		t.Errorf("GatewayError() = %v, want ErrGatewayFailure wrapping cause", err)
	}
	if again := GatewayError("outer", err); again != err {
		t.Errorf("already classified error was wrapped twice: %v", again)
	}

	dup := GatewayError("insert", errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)"))
	if !errors.Is(dup, ErrDuplicate) || errors.Is(dup, ErrGatewayFailure) {
		t.Errorf("unique violation = %v, want ErrDuplicate only", dup)
	}
}

// TestTimeFormat tests that stored timestamps sort chronologically.
func TestTimeFormat(t *testing.T) {
	a := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	b := a.Add(500 * time.Millisecond)
	if !(FormatTime(a) < FormatTime(b)) {
		t.Errorf("FormatTime order broken: %q !< %q", FormatTime(a), FormatTime(b))
	}
	got, err := ParseTime(FormatTime(b))
	if err != nil || !got.Equal(b) {
		t.Errorf("ParseTime(FormatTime()) = %v, %v", got, err)
	}
	if FormatTime(time.Time{}) != "" {
		t.Error("zero time should format as empty")
	}
	if z, err := ParseTime(""); err != nil || !z.IsZero() {
		t.Errorf("ParseTime(\"\") = %v, %v", z, err)
	}
}
