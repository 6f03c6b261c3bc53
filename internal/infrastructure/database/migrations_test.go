package database

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"
)

var testMigrationsFS = fstest.MapFS{
	"sql/20261001_090000_create_runs.up.sql": &fstest.MapFile{
		Data: []byte("CREATE TABLE test_runs (id TEXT PRIMARY KEY, task TEXT NOT NULL);"),
	},
	"sql/20261001_090000_create_runs.down.sql": &fstest.MapFile{
		Data: []byte("DROP TABLE test_runs;"),
	},
	"sql/readme.txt": &fstest.MapFile{Data: []byte("ignored")},
}

// useMigrations swaps the package migration source for the duration of a test.
func useMigrations(t *testing.T, fsys fs.FS, dir string) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS = origFS
		MigrationsDir = origDir
	})
	MigrationsFS = fsys
	MigrationsDir = dir
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrationsFS, "sql")
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "test_runs") {
		t.Fatal("table test_runs not created")
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 {
		t.Errorf("expected 1 applied migration, got %d", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending migrations, got %d", len(pending))
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	useMigrations(t, testMigrationsFS, "sql")
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "test_runs") {
		t.Error("table test_runs should be dropped after rollback")
	}

	// Nothing left to roll back.
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() on empty history error = %v", err)
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	useMigrations(t, nil, ".")
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

func TestGetMigrationStatus_Pending(t *testing.T) {
	useMigrations(t, testMigrationsFS, "sql")
	db := openTestDB(t)

	applied, pending, err := db.GetMigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected 0 applied, got %d", len(applied))
	}
	if len(pending) != 1 || pending[0].Name != "create_runs" {
		t.Errorf("pending = %+v, want one create_runs migration", pending)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{
			name:        "valid up migration",
			filename:    "20261001_090000_task_runs.up.sql",
			wantVersion: "20261001_090000",
			wantIsUp:    true,
			wantOk:      true,
		},
		{
			name:        "valid down migration",
			filename:    "20261001_090000_task_runs.down.sql",
			wantVersion: "20261001_090000",
			wantOk:      true,
		},
		{name: "not sql file", filename: "readme.txt"},
		{name: "missing direction", filename: "20261001_090000_task_runs.sql"},
		{name: "invalid format", filename: "invalid.up.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion {
				t.Errorf("version = %v, want %v", version, tt.wantVersion)
			}
			if isUp != tt.wantIsUp {
				t.Errorf("isUp = %v, want %v", isUp, tt.wantIsUp)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20261001_090000_task_runs.up.sql", "task_runs"},
		{"20261001_090000_task_runs.down.sql", "task_runs"},
		{"20261002_120000_add_detail_to_runs.up.sql", "add_detail_to_runs"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := extractMigrationName(tt.filename); got != tt.want {
				t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
