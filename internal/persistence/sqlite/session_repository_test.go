package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
)

func TestSessionRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := newTestPool(t)
	users := NewUserRepository(pool)
	repo := NewSessionRepository(pool)
	seedUser(t, users, "user-1", "alice@example.com", "player", referenceTime)

	created, err := repo.CreateSession(ctx, persistence.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		ExpiresAt: referenceTime.Add(time.Hour),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if created.RevokedAt != nil {
		t.Fatalf("new session should not be revoked")
	}

	t.Run("extends expiry", func(t *testing.T) {
		created.ExpiresAt = referenceTime.Add(2 * time.Hour)
		created.UpdatedAt = referenceTime.Add(time.Minute)
		updated, err := repo.UpdateSession(ctx, created)
		if err != nil {
			t.Fatalf("UpdateSession failed: %v", err)
		}
		if !updated.ExpiresAt.Equal(referenceTime.Add(2 * time.Hour)) {
			t.Fatalf("expiry not updated: %v", updated.ExpiresAt)
		}
	})

	t.Run("revokes once", func(t *testing.T) {
		first := referenceTime.Add(10 * time.Minute)
		revoked, err := repo.RevokeSession(ctx, "sess-1", first)
		if err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}
		if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(first) {
			t.Fatalf("unexpected revoked_at: %v", revoked.RevokedAt)
		}

		again, err := repo.RevokeSession(ctx, "sess-1", first.Add(time.Minute))
		if err != nil {
			t.Fatalf("second RevokeSession failed: %v", err)
		}
		if !again.RevokedAt.Equal(first) {
			t.Fatalf("expected original revocation time to be kept, got %v", again.RevokedAt)
		}

		if _, err := repo.RevokeSession(ctx, "missing", first); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("prunes expired sessions", func(t *testing.T) {
		if err := repo.DeleteExpiredSessions(ctx, referenceTime.Add(3*time.Hour)); err != nil {
			t.Fatalf("DeleteExpiredSessions failed: %v", err)
		}
		if _, err := repo.GetSession(ctx, "sess-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected expired session to be removed, got %v", err)
		}
	})
}
