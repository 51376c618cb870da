package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mgiraud/classbridge/internal/audit"
	"github.com/mgiraud/classbridge/internal/match"
	"github.com/mgiraud/classbridge/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStorage implements service.Storage over in-memory snapshots.
type fakeStorage struct {
	mu         sync.Mutex
	catalog    []model.CanonicalCategory
	labels     []model.SourceLabel
	records    []model.MigrationRecord
	enums      audit.EnumTable
	lookups    audit.Lookups
	savedRuns  map[string][]model.MatchCandidate
	savedAudit map[string][]model.MigrationAudit
}

type fakeLookups struct {
	students map[string]bool
	classes  map[string]bool
	terms    map[string]bool
}

func (l fakeLookups) StudentExists(id string) bool { return l.students[id] }
func (l fakeLookups) ClassExists(id string) bool   { return l.classes[id] }
func (l fakeLookups) TermExists(id string) bool    { return l.terms[id] }

func (s *fakeStorage) GetCatalog(_ context.Context) ([]model.CanonicalCategory, error) {
	return s.catalog, nil
}

func (s *fakeStorage) GetSourceLabels(_ context.Context) ([]model.SourceLabel, error) {
	return s.labels, nil
}

func (s *fakeStorage) GetRecords(_ context.Context) ([]model.MigrationRecord, error) {
	return s.records, nil
}

func (s *fakeStorage) GetEnumTable(_ context.Context) (audit.EnumTable, error) {
	return s.enums, nil
}

func (s *fakeStorage) GetLookups(_ context.Context) (audit.Lookups, error) {
	return s.lookups, nil
}

func (s *fakeStorage) SaveMatchCandidates(_ context.Context, runID string, candidates []model.MatchCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.savedRuns == nil {
		s.savedRuns = make(map[string][]model.MatchCandidate)
	}
	s.savedRuns[runID] = candidates
	return nil
}

func (s *fakeStorage) SaveAudits(_ context.Context, runID string, audits []model.MigrationAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.savedAudit == nil {
		s.savedAudit = make(map[string][]model.MigrationAudit)
	}
	s.savedAudit[runID] = audits
	return nil
}

func (s *fakeStorage) Migrate(_ context.Context) error { return nil }
func (s *fakeStorage) Close() error                    { return nil }

func testStorage() *fakeStorage {
	return &fakeStorage{
		catalog: []model.CanonicalCategory{
			{ID: "cat-02", Label: "1ère Année Communion (CE2)"},
			{ID: "cat-05", Label: "2ème Année Confirmation (5ème)"},
			{ID: "cat-06", Label: "Profession de Foi"},
		},
		labels: []model.SourceLabel{
			{Label: "Profession de Foi", RecordCount: 2},
			{Label: "2ème Année Confirmation (6e)", RecordCount: 1},
			{Label: "Groupe guitare", RecordCount: 1},
			{Label: "", RecordCount: 1},
		},
		records: []model.MigrationRecord{
			{
				ID: "rec-1", StudentRef: "stu-1", ClassRef: "cls-1", TermRef: "t-23",
				ClassLabel: "Profession de Foi", Period: "2023-2024", Migrated: true,
				Enums: map[string]string{model.FieldPaymentMethod: "cheque"},
			},
			{
				ID: "rec-2", StudentRef: "stu-404", ClassRef: "cls-1", TermRef: "t-23",
				ClassLabel: "Profession de Foi", Period: "2023-2024",
			},
			{
				ID: "rec-3", StudentRef: "stu-1", ClassRef: "cls-1", TermRef: "t-22",
				ClassLabel: "2ème Année Confirmation (6e)", Period: "2022-2023",
				Enums: map[string]string{model.FieldPaymentMethod: "bitcoin"},
			},
			{
				ID: "rec-4", StudentRef: "stu-2", ClassRef: "cls-2", TermRef: "t-23",
				ClassLabel: "Groupe guitare", Period: "2023-2024", Migrated: true,
			},
			{
				ID: "rec-5", StudentRef: "stu-2", ClassRef: "cls-1", TermRef: "t-23",
				ClassLabel: "", Period: "2023-2024", Migrated: true,
			},
		},
		enums: audit.EnumTable{
			model.FieldPaymentMethod: {"cash", "cheque", "virement"},
		},
		lookups: fakeLookups{
			students: map[string]bool{"stu-1": true, "stu-2": true},
			classes:  map[string]bool{"cls-1": true, "cls-2": true},
			terms:    map[string]bool{"t-22": true, "t-23": true},
		},
	}
}

func TestEngine_ReconcileLabels(t *testing.T) {
	engine := New(testStorage())

	labels, err := engine.ReconcileLabels(context.Background())
	require.NoError(t, err)
	require.Len(t, labels, 4)

	byLabel := make(map[string]RankedLabel)
	for _, ranked := range labels {
		byLabel[ranked.Label.Label] = ranked
	}

	exact := byLabel["Profession de Foi"]
	require.Len(t, exact.Candidates, 1)
	assert.True(t, exact.Candidates[0].ExactMatch)
	assert.Equal(t, model.TierHigh, exact.Candidates[0].Tier)

	medium := byLabel["2ème Année Confirmation (6e)"]
	require.NotEmpty(t, medium.Candidates)
	assert.Equal(t, "cat-05", medium.Candidates[0].CategoryID)
	assert.Equal(t, model.TierMedium, medium.Candidates[0].Tier)
	assert.False(t, medium.NewCategory)

	unknown := byLabel["Groupe guitare"]
	assert.True(t, unknown.NewCategory)

	blank := byLabel[""]
	assert.True(t, blank.Unspecified)
	assert.Empty(t, blank.Candidates)
	assert.False(t, blank.NewCategory)
}

func TestEngine_AuditRecords(t *testing.T) {
	engine := New(testStorage())

	audits, err := engine.AuditRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, audits, 5)

	byID := make(map[string]model.MigrationAudit)
	for _, a := range audits {
		byID[a.RecordID] = a
	}

	assert.True(t, byID["rec-1"].Migratable())
	assert.True(t, byID["rec-2"].Has(model.IssueMissingStudent))
	assert.True(t, byID["rec-3"].Has(model.IssueInvalidEnum))
	assert.True(t, byID["rec-4"].Migratable())
	assert.True(t, byID["rec-5"].Migratable())
}

func TestEngine_AuditRecords_UnknownCause(t *testing.T) {
	// A record that failed to transfer but triggers no predicate gets a
	// terminal UNKNOWN classification, never a silent pass.
	storage := testStorage()
	storage.records = []model.MigrationRecord{
		{
			ID: "rec-ok", StudentRef: "stu-1", ClassRef: "cls-1", TermRef: "t-23",
			ClassLabel: "Profession de Foi", Period: "2023-2024",
		},
	}

	audits, err := New(storage).AuditRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.False(t, audits[0].Migratable())
	assert.True(t, audits[0].Has(model.IssueUnknown))
}

func TestEngine_Run(t *testing.T) {
	storage := testStorage()
	engine := New(storage)

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.RunID)

	// Outputs persisted under the run id.
	assert.Len(t, storage.savedAudit[result.RunID], 5)
	assert.NotEmpty(t, storage.savedRuns[result.RunID])

	// Stats.
	assert.Equal(t, 4, result.Stats.LabelsRanked)
	assert.Equal(t, 1, result.Stats.ExactMatches)
	assert.Equal(t, 1, result.Stats.AutoMappable)
	assert.Equal(t, 1, result.Stats.NeedsReview)
	assert.Equal(t, 1, result.Stats.NewCategories)
	assert.Equal(t, 1, result.Stats.Unspecified)
	assert.Equal(t, 5, result.Stats.RecordsAudited)
	assert.Equal(t, 3, result.Stats.Migratable)
	assert.Equal(t, 1, result.Stats.IssueCounts[model.IssueMissingStudent])
	assert.Equal(t, 1, result.Stats.IssueCounts[model.IssueInvalidEnum])

	// Report invariants.
	require.Len(t, result.Report.Periods, 2)
	total := 0
	for _, period := range result.Report.Periods {
		total += period.Total
		countSum := 0
		for _, c := range period.Categories {
			countSum += c.Count
		}
		assert.Equal(t, period.Total, countSum)
	}
	assert.Equal(t, result.Report.Total, total)
}

func TestEngine_RunDeterministic(t *testing.T) {
	first, err := New(testStorage()).Run(context.Background())
	require.NoError(t, err)

	second, err := NewWithConfig(testStorage(), match.NewDiceScorer(), Config{Workers: 1}).Run(context.Background())
	require.NoError(t, err)

	// Worker count and completion order never change the outputs.
	assert.Equal(t, first.Labels, second.Labels)
	assert.Equal(t, first.Audits, second.Audits)
	assert.Equal(t, first.Report, second.Report)
}

func TestEngine_Progress(t *testing.T) {
	var done atomic.Int64
	config := DefaultConfig()
	config.OnProgress = func(n int) { done.Add(int64(n)) }

	engine := NewWithConfig(testStorage(), match.NewDiceScorer(), config)
	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	// 4 labels + 5 records.
	assert.Equal(t, int64(9), done.Load())
}

func TestEngine_EmptySnapshots(t *testing.T) {
	engine := New(&fakeStorage{lookups: fakeLookups{}})

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Labels)
	assert.Empty(t, result.Audits)
	assert.Empty(t, result.Report.Periods)
	assert.Zero(t, result.Report.Total)
}

func TestEngine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testStorage()).ReconcileLabels(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
