package storage_test

import (
	"context"
	"testing"

	"github.com/mgiraud/classbridge/internal/audit"
	"github.com/mgiraud/classbridge/internal/model"
	"github.com/mgiraud/classbridge/internal/storage"
	"github.com/mgiraud/classbridge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() testutil.Snapshot {
	return testutil.Snapshot{
		Catalog: []model.CanonicalCategory{
			{ID: "cat-05", Label: "2ème Année Confirmation (5ème)"},
			{ID: "cat-02", Label: "1ère Année Communion (CE2)"},
		},
		Students: []string{"stu-1", "stu-2"},
		Classes:  []string{"cls-1"},
		Terms:    []string{"t-23"},
		Enums: audit.EnumTable{
			model.FieldPaymentMethod: {"cash", "cheque"},
			model.FieldStatus:        {"active"},
		},
		Records: []model.MigrationRecord{
			{
				ID: "rec-1", StudentRef: "stu-1", ClassRef: "cls-1", TermRef: "t-23",
				ClassLabel: "2ème Année Confirmation (6e)", Period: "2023-2024",
				Migrated: true,
				Enums:    map[string]string{model.FieldPaymentMethod: "cheque"},
			},
			{
				ID: "rec-2", StudentRef: "stu-2", ClassRef: "cls-1", TermRef: "t-23",
				ClassLabel: "2ème Année Confirmation (6e)", Period: "2023-2024",
				Enums: map[string]string{},
			},
			{
				ID: "rec-3", Period: "2023-2024",
				Enums: map[string]string{},
			},
		},
	}
}

func TestSQLiteStorage_Snapshots(t *testing.T) {
	store := testutil.SetupTestDB(t, testSnapshot())
	ctx := context.Background()

	t.Run("catalog preserves export order", func(t *testing.T) {
		catalog, err := store.GetCatalog(ctx)
		require.NoError(t, err)
		require.Len(t, catalog, 2)
		assert.Equal(t, "cat-05", catalog[0].ID)
		assert.Equal(t, "cat-02", catalog[1].ID)
	})

	t.Run("source labels derived from records", func(t *testing.T) {
		labels, err := store.GetSourceLabels(ctx)
		require.NoError(t, err)
		require.Len(t, labels, 2)

		// Blank label sorts first and is included, not dropped.
		assert.Equal(t, "", labels[0].Label)
		assert.Equal(t, 1, labels[0].RecordCount)
		assert.Equal(t, "2ème Année Confirmation (6e)", labels[1].Label)
		assert.Equal(t, 2, labels[1].RecordCount)
	})

	t.Run("records round-trip with enum fields", func(t *testing.T) {
		records, err := store.GetRecords(ctx)
		require.NoError(t, err)
		require.Len(t, records, 3)

		assert.Equal(t, "rec-1", records[0].ID)
		assert.True(t, records[0].Migrated)
		assert.Equal(t, "cheque", records[0].Enums[model.FieldPaymentMethod])
		_, present := records[1].Enums[model.FieldPaymentMethod]
		assert.False(t, present, "absent enum fields stay absent")
		assert.False(t, records[1].Migrated)
		assert.True(t, records[2].Blank())
	})

	t.Run("enum table", func(t *testing.T) {
		enums, err := store.GetEnumTable(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"cash", "cheque"}, enums[model.FieldPaymentMethod])
		assert.Equal(t, []string{"active"}, enums[model.FieldStatus])
	})

	t.Run("lookups answer from memory", func(t *testing.T) {
		lookups, err := store.GetLookups(ctx)
		require.NoError(t, err)

		assert.True(t, lookups.StudentExists("stu-1"))
		assert.False(t, lookups.StudentExists("stu-404"))
		assert.True(t, lookups.ClassExists("cls-1"))
		assert.False(t, lookups.TermExists(""))
	})
}

func TestSQLiteStorage_EmptySnapshots(t *testing.T) {
	store := testutil.SetupTestDB(t, testutil.Snapshot{})
	ctx := context.Background()

	catalog, err := store.GetCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, catalog)

	labels, err := store.GetSourceLabels(ctx)
	require.NoError(t, err)
	assert.Empty(t, labels)

	records, err := store.GetRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteStorage_SaveOutputs(t *testing.T) {
	store := testutil.SetupTestDB(t, testSnapshot())
	ctx := context.Background()

	candidates := []model.MatchCandidate{
		{
			SourceLabel:   "2ème Année Confirmation (6e)",
			CategoryID:    "cat-05",
			CategoryLabel: "2ème Année Confirmation (5ème)",
			SharedTokens:  []string{"2ème", "année", "confirmation"},
			Confidence:    75,
			Tier:          model.TierMedium,
		},
	}
	require.NoError(t, store.SaveMatchCandidates(ctx, "run-1", candidates))

	loadedCandidates, err := store.GetMatchCandidates(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, candidates, loadedCandidates)

	noCandidates, err := store.GetMatchCandidates(ctx, "run-404")
	require.NoError(t, err)
	assert.Empty(t, noCandidates)

	audits := []model.MigrationAudit{
		{
			RecordID:   "rec-3",
			StudentRef: model.AnonymousStudentRef,
			Period:     "2023-2024",
			Issues: []model.Issue{
				{Kind: model.IssueMissingClass},
				{Kind: model.IssueMissingStudent, Detail: model.AnonymousStudentRef},
			},
		},
		{RecordID: "rec-1", StudentRef: "stu-1", Period: "2023-2024"},
	}
	require.NoError(t, store.SaveAudits(ctx, "run-1", audits))

	loaded, err := store.GetAudits(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "rec-1", loaded[0].RecordID)
	assert.True(t, loaded[0].Migratable())
	assert.Equal(t, audits[0], loaded[1])

	missing, err := store.GetAudits(ctx, "run-404")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestSQLiteStorage_SaveValidation(t *testing.T) {
	store := testutil.SetupTestDB(t, testutil.Snapshot{})
	ctx := context.Background()

	err := store.SaveMatchCandidates(ctx, "", nil)
	assert.ErrorIs(t, err, storage.ErrEmptyString)

	bad := []model.MatchCandidate{{CategoryID: "c", Confidence: 250, Tier: model.TierHigh}}
	err = store.SaveMatchCandidates(ctx, "run-1", bad)
	assert.ErrorIs(t, err, storage.ErrInvalidCandidate)

	err = store.SaveAudits(ctx, "run-1", []model.MigrationAudit{{}})
	assert.ErrorIs(t, err, storage.ErrInvalidAudit)
}

func TestSQLiteStorage_MigrateIdempotent(t *testing.T) {
	store := testutil.SetupTestDB(t, testutil.Snapshot{})
	require.NoError(t, store.Migrate(context.Background()))
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := storage.NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, storage.ErrEmptyString)
}
