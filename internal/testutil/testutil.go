// Package testutil holds helpers shared by integration and unit tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kidsstudy/kidsstudy/internal/model"
	"github.com/kidsstudy/kidsstudy/migrations"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 717171

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema rolls every migration back and applies it again.
func ResetSchema(ctx context.Context, databaseURL string) error {
	db, err := migrations.Open(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	return migrations.Reset(ctx, db)
}

// NewPostgres connects to DATABASE_URL, takes the test lock and resets the schema.
// Skips the test when DATABASE_URL is not set.
func NewPostgres(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := RequireEnv(t, "DATABASE_URL")

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := ResetSchema(ctx, dbURL); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, pool
}

// InsertProfile writes a profile row directly.
func InsertProfile(ctx context.Context, pool *pgxpool.Pool, p *model.Profile) error {
	var planType *string
	if p.PlanType != nil {
		s := string(*p.PlanType)
		planType = &s
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO profiles (id, email, is_paid, trial_ends_at, plan_type)
		VALUES ($1, $2, $3, $4, $5)
	`, p.UserID, p.Email, p.IsPaid, p.TrialEndsAt, planType)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// NewRedis starts an in-process Redis and returns a client bound to it.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return mr, client
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestProfile creates an unpaid profile whose trial ends at trialEndsAt.
func NewTestProfile(t testing.TB, trialEndsAt time.Time) *model.Profile {
	t.Helper()
	id := uuid.NewString()
	return &model.Profile{
		UserID:      id,
		Email:       "parent-" + id[:8] + "@example.com",
		TrialEndsAt: trialEndsAt,
	}
}
