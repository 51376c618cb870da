// Package testutil provides test fixtures for the classbridge project.
package testutil

import (
	"context"
	"testing"

	"github.com/mgiraud/classbridge/internal/audit"
	"github.com/mgiraud/classbridge/internal/model"
	"github.com/mgiraud/classbridge/internal/storage"
)

// Snapshot is the seed data for a test staging database.
type Snapshot struct {
	Catalog  []model.CanonicalCategory
	Students []string
	Classes  []string
	Terms    []string
	Enums    audit.EnumTable
	Records  []model.MigrationRecord
}

// SetupTestDB creates a migrated in-memory staging database seeded with the
// given snapshot. Cleanup is registered automatically.
func SetupTestDB(t *testing.T, snapshot Snapshot) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(snapshot.Catalog) > 0 {
		if err := store.LoadCatalog(ctx, snapshot.Catalog); err != nil {
			t.Fatalf("failed to seed catalog: %v", err)
		}
	}
	if err := store.LoadReferences(ctx, snapshot.Students, snapshot.Classes, snapshot.Terms); err != nil {
		t.Fatalf("failed to seed references: %v", err)
	}
	if len(snapshot.Enums) > 0 {
		if err := store.LoadEnumTable(ctx, snapshot.Enums); err != nil {
			t.Fatalf("failed to seed enum table: %v", err)
		}
	}
	if len(snapshot.Records) > 0 {
		if err := store.LoadRecords(ctx, snapshot.Records); err != nil {
			t.Fatalf("failed to seed records: %v", err)
		}
	}

	return store
}
