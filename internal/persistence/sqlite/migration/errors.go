package migration

import (
	"errors"
	"fmt"
)

// Sentinels wrapped by the typed errors below; match them with errors.Is.
var (
	ErrMigrationFailed      = errors.New("migration: execution failed")
	ErrInvalidMigrationFile = errors.New("migration: invalid file")
	ErrVersionConflict      = errors.New("migration: version sequence conflict")
	ErrInvalidVersion       = errors.New("migration: invalid version")
	ErrDuplicateVersion     = errors.New("migration: duplicate version")
	ErrVersionTableCorrupt  = errors.New("migration: schema_migrations is corrupt")
)

// MigrationError reports a failure tied to one migration file.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

func NewMigrationError(version, filePath, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, FilePath: filePath, Operation: operation, Err: err}
}

func (e *MigrationError) Error() string {
	subject := e.FilePath
	if e.Version != "" {
		subject = e.Version + " (" + e.FilePath + ")"
	}
	return fmt.Sprintf("migration %s: %s: %v", subject, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// FileSystemError reports a failure reading the migration source.
type FileSystemError struct {
	Path      string
	Operation string
	Err       error
}

func NewFileSystemError(path, operation string, err error) *FileSystemError {
	return &FileSystemError{Path: path, Operation: operation, Err: err}
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("migration source %s: %s: %v", e.Path, e.Operation, e.Err)
}

func (e *FileSystemError) Unwrap() error { return e.Err }

// DatabaseError reports a failed statement. Query holds the SQL when known
// and is kept out of Error to avoid dumping schema text into logs.
type DatabaseError struct {
	Version   string
	Query     string
	Operation string
	Err       error
}

func NewDatabaseError(version, query, operation string, err error) *DatabaseError {
	return &DatabaseError{Version: version, Query: query, Operation: operation, Err: err}
}

func (e *DatabaseError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("migration database: %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("migration %s database: %s: %v", e.Version, e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }
