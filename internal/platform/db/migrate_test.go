package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"
	"testing/fstest"
)

func migrationFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys["m/"+name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

func openRawSQLite(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := openSQLite(context.Background(), filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

func TestLoadMigrations(t *testing.T) {
	fsys := migrationFS(map[string]string{
		"001_init.sql":     "CREATE TABLE patients (id INTEGER PRIMARY KEY);",
		"002_records.sql":  "CREATE TABLE medical_records (id INTEGER PRIMARY KEY);",
		"003_meds.sql":     "CREATE TABLE medications (id INTEGER PRIMARY KEY);",
	})

	migrations, err := NewMigrator(nil, DialectSQLite, fsys, "m").LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 {
		t.Errorf("expected version 1, got %d", migrations[0].Version)
	}
	if migrations[0].Name != "001_init.sql" {
		t.Errorf("expected name 001_init.sql, got %s", migrations[0].Name)
	}
	if migrations[0].SQL != "CREATE TABLE patients (id INTEGER PRIMARY KEY);" {
		t.Errorf("unexpected SQL content: %s", migrations[0].SQL)
	}
	if migrations[2].Version != 3 {
		t.Errorf("expected version 3, got %d", migrations[2].Version)
	}
}

func TestLoadMigrations_SortOrderAndSkips(t *testing.T) {
	fsys := migrationFS(map[string]string{
		"010_tables.sql":  "SELECT 10;",
		"002_second.sql":  "SELECT 2;",
		"001_first.sql":   "SELECT 1;",
		"readme.sql":      "-- no version prefix",
		"notes.txt":       "not sql",
		"abc_invalid.sql": "-- non-numeric prefix",
	})

	migrations, err := NewMigrator(nil, DialectSQLite, fsys, "m").LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	var versions []int
	for _, m := range migrations {
		versions = append(versions, m.Version)
	}
	if !reflect.DeepEqual(versions, []int{1, 2, 10}) {
		t.Errorf("expected versions [1 2 10], got %v", versions)
	}
}

func TestLoadMigrations_NonExistentDir(t *testing.T) {
	_, err := NewMigrator(nil, DialectSQLite, fstest.MapFS{}, "missing").LoadMigrations()
	if err == nil {
		t.Error("expected error for non-existent directory")
	}
}

func TestEmbeddedMigrations_BothDialects(t *testing.T) {
	for _, d := range []Dialect{DialectSQLite, DialectPostgres} {
		m := NewMigrator(nil, d, embeddedMigrations, "migrations/"+string(d))
		migrations, err := m.LoadMigrations()
		if err != nil {
			t.Fatalf("%s: LoadMigrations() error: %v", d, err)
		}
		if len(migrations) != 2 {
			t.Fatalf("%s: expected 2 migrations, got %d", d, len(migrations))
		}
		if migrations[1].Name != "002_patient_image_path.sql" {
			t.Errorf("%s: unexpected second migration %s", d, migrations[1].Name)
		}
	}
}

func TestMigrator_UpAndStatus(t *testing.T) {
	sqlDB := openRawSQLite(t)
	ctx := context.Background()
	fsys := migrationFS(map[string]string{
		"001_init.sql":  "CREATE TABLE patients (id INTEGER PRIMARY KEY, patient_name TEXT NOT NULL);",
		"002_phone.sql": "ALTER TABLE patients ADD COLUMN phone TEXT;\nALTER TABLE patients ADD COLUMN address TEXT;",
	})
	m := NewMigrator(sqlDB, DialectSQLite, fsys, "m")

	n, err := m.UpTo(ctx, 1)
	if err != nil {
		t.Fatalf("UpTo(1) error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 applied migration, got %d", n)
	}

	statuses, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[0].Applied || statuses[0].AppliedAt == nil {
		t.Error("expected migration 001 to be applied with a timestamp")
	}
	if statuses[1].Applied || statuses[1].AppliedAt != nil {
		t.Error("expected migration 002 to be pending")
	}

	n, err = m.Up(ctx)
	if err != nil {
		t.Fatalf("Up() error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 applied migration, got %d", n)
	}

	// Both statements of the multi-statement file ran.
	if _, err := sqlDB.ExecContext(ctx, `INSERT INTO patients (patient_name, phone, address) VALUES ('A', '1', 'B')`); err != nil {
		t.Fatalf("insert after migration: %v", err)
	}

	n, err = m.Up(ctx)
	if err != nil {
		t.Fatalf("second Up() error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no pending migrations, got %d", n)
	}
}

func TestMigrator_FailedMigrationIsNotRecorded(t *testing.T) {
	sqlDB := openRawSQLite(t)
	ctx := context.Background()
	fsys := migrationFS(map[string]string{
		"001_broken.sql": "CREATE TABLE ok (id INTEGER);\nCREATE TABLE broken (;",
	})
	m := NewMigrator(sqlDB, DialectSQLite, fsys, "m")

	if _, err := m.Up(ctx); err == nil {
		t.Fatal("expected error from broken migration")
	}

	applied, err := m.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions() error: %v", err)
	}
	if applied[1] {
		t.Error("broken migration must not be recorded")
	}

	var n int
	if err := sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE name = 'ok'`).Scan(&n); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if n != 0 {
		t.Error("expected the partial migration to be rolled back")
	}
}

func TestSplitStatements(t *testing.T) {
	script := `-- header comment
CREATE TABLE a (
    id INTEGER
);

-- between
ALTER TABLE a ADD COLUMN b TEXT;
SELECT 1`

	got := SplitStatements(script)
	want := []string{
		"CREATE TABLE a (\n    id INTEGER\n)",
		"ALTER TABLE a ADD COLUMN b TEXT",
		"SELECT 1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitStatements() = %q, want %q", got, want)
	}
}
