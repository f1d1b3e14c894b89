package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDialectFor(t *testing.T) {
	tests := map[string]Dialect{
		"data/attendance.db":                 SQLite,
		"/abs/path.db":                       SQLite,
		"postgres://u:p@localhost:5432/db":   Postgres,
		"POSTGRESQL://u:p@localhost:5432/db": Postgres,
	}
	for dsn, want := range tests {
		if got := dialectFor(dsn); got != want {
			t.Errorf("dialectFor(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func TestRebind(t *testing.T) {
	q := "UPDATE students SET image_count = ? WHERE enrollment = ?"

	sqlite := &DB{Dialect: SQLite}
	if got := sqlite.Rebind(q); got != q {
		t.Errorf("sqlite Rebind changed query: %q", got)
	}

	pg := &DB{Dialect: Postgres}
	want := "UPDATE students SET image_count = $1 WHERE enrollment = $2"
	if got := pg.Rebind(q); got != want {
		t.Errorf("postgres Rebind = %q, want %q", got, want)
	}
}

func TestNewDBSQLiteCreatesSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "attendance.db")

	db, err := NewDB(ctx, path)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}
	if !db.Healthy(ctx) {
		t.Error("expected healthy db")
	}

	var n int
	if err := db.Client.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
		t.Fatalf("students table missing: %v", err)
	}
	if n != 0 {
		t.Errorf("fresh table has %d rows", n)
	}

	// Re-opening must not fail on the existing schema.
	again, err := NewDB(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again.Close()
}

func TestNilDBIsUnhealthy(t *testing.T) {
	var db *DB
	if db.Healthy(context.Background()) {
		t.Error("nil DB reported healthy")
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close on nil DB: %v", err)
	}
}
