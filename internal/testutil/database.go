// Package testutil provides shared test helpers for database-backed tests.
package testutil

import (
	"context"
	"testing"

	"github.com/ozanyurtsever/promopipe/internal/service"
	"github.com/ozanyurtsever/promopipe/internal/storage"
)

// SetupTestStore creates a migrated in-memory SQLite store with cleanup
// registered on the test.
func SetupTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// SeedNames registers canonical names for a kind, failing the test on error.
func SeedNames(t *testing.T, store *storage.SQLiteStore, kind service.NameKind, names ...string) {
	t.Helper()

	ctx := context.Background()
	for _, name := range names {
		if err := store.RegisterCanonicalName(ctx, kind, name); err != nil {
			t.Fatalf("failed to seed %s %q: %v", kind, name, err)
		}
	}
}
