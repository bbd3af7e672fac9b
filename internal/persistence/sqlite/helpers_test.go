package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/persistence/sqlite/migration"
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	pool, err := NewConnectionPool(migration.TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "scheduler.db")))
	if err != nil {
		t.Fatalf("failed to open pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := pool.Migrate(context.Background(), nil); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return pool
}

func seedUser(t *testing.T, repo *UserRepository, id, email, role string, createdAt time.Time) persistence.User {
	t.Helper()

	user := persistence.User{
		ID:           id,
		Email:        email,
		Name:         "User " + id,
		PasswordHash: "hash-" + id,
		Role:         role,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", id, err)
	}
	return user
}
