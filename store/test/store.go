package test

import (
	"context"
	"os"
	"testing"

	"github.com/hrygo/babywise/internal/profile"
	"github.com/hrygo/babywise/store"
	"github.com/hrygo/babywise/store/db"
)

// NewTestingStore opens a migrated store for tests.
// SQLite runs in memory; set DRIVER=postgres with POSTGRES_TEST_DSN to target PostgreSQL.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	profile := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(profile)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	s := store.New(dbDriver, profile, nil)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	if profile.Driver == "postgres" {
		if _, err := dbDriver.GetDB().ExecContext(ctx, "TRUNCATE routine_event RESTART IDENTITY"); err != nil {
			t.Fatalf("failed to reset db: %v", err)
		}
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	t.Helper()
	driver := getDriverFromEnv()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: driver,
		DSN:    ":memory:",
	}
	if driver == "postgres" {
		p.DSN = os.Getenv("POSTGRES_TEST_DSN")
		if p.DSN == "" {
			t.Skip("POSTGRES_TEST_DSN is not set")
		}
	}
	return p
}

func getDriverFromEnv() string {
	if driver := os.Getenv("DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}
