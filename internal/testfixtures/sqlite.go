package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/session-scheduler/internal/persistence/sqlite"
	"github.com/example/session-scheduler/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary, migrated
// SQLite file for integration-style tests.
type SQLiteHarness struct {
	Pool           *sqlite.ConnectionPool
	Users          *sqlite.UserRepository
	Availabilities *sqlite.AvailabilityRepository
	GameSessions   *sqlite.GameSessionRepository
	Sessions       *sqlite.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a database in tb.TempDir. The pool is
// closed automatically when the test finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduler.db")
	pool, err := sqlite.NewConnectionPool(migration.TempFileTestSQLiteConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := pool.Migrate(context.Background(), nil); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:           pool,
		Users:          sqlite.NewUserRepository(pool),
		Availabilities: sqlite.NewAvailabilityRepository(pool),
		GameSessions:   sqlite.NewGameSessionRepository(pool),
		Sessions:       sqlite.NewSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedUser stores the fixture and fails the test on error.
func (h *SQLiteHarness) SeedUser(tb testing.TB, fixture UserFixture) UserFixture {
	tb.Helper()
	if err := h.Users.CreateUser(context.Background(), fixture.Persistence()); err != nil {
		tb.Fatalf("failed to seed user %s: %v", fixture.ID, err)
	}
	return fixture
}

// SeedAvailability stores the fixture and fails the test on error.
func (h *SQLiteHarness) SeedAvailability(tb testing.TB, fixture AvailabilityFixture) AvailabilityFixture {
	tb.Helper()
	if err := h.Availabilities.CreateAvailability(context.Background(), fixture.Persistence()); err != nil {
		tb.Fatalf("failed to seed availability %s: %v", fixture.ID, err)
	}
	return fixture
}

// SeedGameSession stores the fixture and fails the test on error.
func (h *SQLiteHarness) SeedGameSession(tb testing.TB, fixture GameSessionFixture) GameSessionFixture {
	tb.Helper()
	if err := h.GameSessions.CreateGameSession(context.Background(), fixture.Persistence()); err != nil {
		tb.Fatalf("failed to seed game session %s: %v", fixture.ID, err)
	}
	return fixture
}
