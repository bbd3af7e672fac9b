package migration

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

func TestFileScanner_ScanMigrations(t *testing.T) {
	tests := []struct {
		name          string
		files         map[string]string
		expectedOrder []string
		expectError   error
	}{
		{
			name: "sorts numerically and ignores non-SQL files",
			files: map[string]string{
				"migrations/010_add_indexes.sql":    "CREATE INDEX idx_users_email ON users(email);",
				"migrations/002_add_sessions.sql":   "CREATE TABLE sessions (id TEXT PRIMARY KEY);",
				"migrations/001_initial_schema.sql": "CREATE TABLE users (id TEXT PRIMARY KEY);",
				"migrations/README.md":              "# notes",
			},
			expectedOrder: []string{"001", "002", "010"},
		},
		{
			name: "rejects duplicate versions",
			files: map[string]string{
				"migrations/001_initial_schema.sql": "CREATE TABLE users (id TEXT PRIMARY KEY);",
				"migrations/001_other.sql":          "CREATE TABLE other (id TEXT PRIMARY KEY);",
			},
			expectError: ErrDuplicateVersion,
		},
		{
			name: "rejects malformed file names",
			files: map[string]string{
				"migrations/initial.sql": "CREATE TABLE users (id TEXT PRIMARY KEY);",
			},
			expectError: ErrInvalidMigrationFile,
		},
		{
			name: "rejects unbalanced parentheses",
			files: map[string]string{
				"migrations/001_broken.sql": "CREATE TABLE users (id TEXT PRIMARY KEY;",
			},
			expectError: ErrInvalidMigrationFile,
		},
		{
			name: "rejects comment-only files",
			files: map[string]string{
				"migrations/001_empty.sql": "-- nothing here\n",
			},
			expectError: ErrInvalidMigrationFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := fstest.MapFS{}
			for name, content := range tt.files {
				files[name] = &fstest.MapFile{Data: []byte(content)}
			}

			migrations, err := NewFileScanner(files).ScanMigrations("migrations")
			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Fatalf("expected %v, got %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ScanMigrations failed: %v", err)
			}

			if len(migrations) != len(tt.expectedOrder) {
				t.Fatalf("expected %d migrations, got %d", len(tt.expectedOrder), len(migrations))
			}
			for i, version := range tt.expectedOrder {
				if migrations[i].Version != version {
					t.Fatalf("position %d: expected version %s, got %s", i, version, migrations[i].Version)
				}
				if migrations[i].Checksum == "" {
					t.Fatalf("expected checksum for version %s", version)
				}
			}
		})
	}
}

func TestFileScanner_MissingDirectory(t *testing.T) {
	_, err := NewFileScanner(fstest.MapFS{}).ScanMigrations("migrations")
	var fsErr *FileSystemError
	if !errors.As(err, &fsErr) {
		t.Fatalf("expected FileSystemError, got %v", err)
	}
}

func TestFileScanner_ParseMigrationFileDescription(t *testing.T) {
	files := fstest.MapFS{
		"m/001_initial_schema.sql": {Data: []byte("-- Migration: 001\n-- Description: Create the users table\nCREATE TABLE users (id TEXT);")},
		"m/002_add_sessions.sql":   {Data: []byte("CREATE TABLE sessions (id TEXT);")},
	}
	scanner := NewFileScanner(files)

	withHeader, err := scanner.ParseMigrationFile("m/001_initial_schema.sql")
	if err != nil {
		t.Fatalf("ParseMigrationFile failed: %v", err)
	}
	if withHeader.Description != "Create the users table" {
		t.Fatalf("unexpected description: %q", withHeader.Description)
	}

	fromName, err := scanner.ParseMigrationFile("m/002_add_sessions.sql")
	if err != nil {
		t.Fatalf("ParseMigrationFile failed: %v", err)
	}
	if fromName.Description != "add sessions" {
		t.Fatalf("expected description derived from file name, got %q", fromName.Description)
	}
}

func TestSplitStatements(t *testing.T) {
	content := "-- header\nCREATE TABLE a (id TEXT);\n\n-- second\nCREATE INDEX idx_a ON a(id);\n"
	statements := splitStatements(content)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if !strings.HasPrefix(statements[1], "CREATE INDEX") {
		t.Fatalf("unexpected second statement: %q", statements[1])
	}
}
