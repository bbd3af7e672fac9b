package migration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteExecutor_AppliesAndRecords(t *testing.T) {
	ctx := context.Background()
	db, err := Open(TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migrate.db")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	executor := NewSQLiteExecutor(db)
	if err := executor.InitializeVersionTable(ctx); err != nil {
		t.Fatalf("InitializeVersionTable failed: %v", err)
	}

	migration := Migration{
		Version:  "001",
		SQL:      "CREATE TABLE widgets (id TEXT PRIMARY KEY);\nINSERT INTO widgets (id) VALUES ('w1');",
		FilePath: "001_widgets.sql",
		Checksum: "abc",
	}
	if err := executor.ExecuteMigration(ctx, migration); err != nil {
		t.Fatalf("ExecuteMigration failed: %v", err)
	}
	if err := executor.RecordMigration(ctx, migration, 15*time.Millisecond); err != nil {
		t.Fatalf("RecordMigration failed: %v", err)
	}

	applied, err := executor.IsVersionApplied(ctx, "001")
	if err != nil || !applied {
		t.Fatalf("expected version 001 to be applied, got %v (%v)", applied, err)
	}

	versions, err := executor.GetAppliedVersions(ctx)
	if err != nil {
		t.Fatalf("GetAppliedVersions failed: %v", err)
	}
	if len(versions) != 1 || versions[0].Checksum != "abc" || versions[0].ExecutionTime != 15*time.Millisecond {
		t.Fatalf("unexpected applied versions: %+v", versions)
	}
}

func TestSQLiteExecutor_RollsBackFailedMigration(t *testing.T) {
	ctx := context.Background()
	db, err := Open(TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "rollback.db")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	executor := NewSQLiteExecutor(db)
	err = executor.ExecuteMigration(ctx, Migration{
		Version: "001",
		SQL:     "CREATE TABLE widgets (id TEXT PRIMARY KEY);\nINSERT INTO missing_table VALUES (1);",
	})
	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected DatabaseError, got %v", err)
	}

	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'widgets'"); err != nil {
		t.Fatalf("failed to inspect schema: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected widgets table to be rolled back")
	}
}

func TestBuildDSN(t *testing.T) {
	config := SQLiteConfig{DSN: "data/app.db", BusyTimeout: 2 * time.Second, EnableForeignKeys: true, JournalMode: "WAL"}
	want := "data/app.db?_pragma=busy_timeout(2000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	if got := BuildDSN(config); got != want {
		t.Fatalf("BuildDSN() = %q, want %q", got, want)
	}

	config.DSN = "file:app.db?cache=shared"
	config.BusyTimeout = 0
	config.JournalMode = ""
	if got := BuildDSN(config); got != "file:app.db?cache=shared&_pragma=foreign_keys(1)" {
		t.Fatalf("unexpected DSN with existing query: %q", got)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  SQLiteConfig
		wantErr bool
	}{
		{name: "defaults", config: DefaultSQLiteConfig("app.db")},
		{name: "in memory", config: InMemoryTestSQLiteConfig()},
		{name: "empty dsn", config: SQLiteConfig{}, wantErr: true},
		{name: "bad journal mode", config: SQLiteConfig{DSN: "a.db", JournalMode: "FAST"}, wantErr: true},
		{name: "bad synchronous", config: SQLiteConfig{DSN: "a.db", Synchronous: "SOMETIMES"}, wantErr: true},
		{name: "negative pool", config: SQLiteConfig{DSN: "a.db", MaxOpenConns: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateConfig(tt.config); (err != nil) != tt.wantErr {
				t.Fatalf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if cfg := DefaultSQLiteConfig(":memory:"); cfg.MaxOpenConns != 1 {
		t.Fatalf("expected in-memory default to use a single connection, got %d", cfg.MaxOpenConns)
	}
}
