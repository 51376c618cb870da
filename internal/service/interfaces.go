// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/mgiraud/classbridge/internal/audit"
	"github.com/mgiraud/classbridge/internal/model"
)

// Storage defines the contract for the staging persistence layer. It supplies
// the engine's two immutable input snapshots and persists run outputs; it
// never mutates authoritative data in either record system.
type Storage interface {
	// Snapshot loads
	GetCatalog(ctx context.Context) ([]model.CanonicalCategory, error)
	GetSourceLabels(ctx context.Context) ([]model.SourceLabel, error)
	GetRecords(ctx context.Context) ([]model.MigrationRecord, error)
	GetEnumTable(ctx context.Context) (audit.EnumTable, error)
	// GetLookups loads the student/class/term reference id sets into memory
	// once; the returned capabilities never touch I/O afterwards.
	GetLookups(ctx context.Context) (audit.Lookups, error)

	// Run outputs
	SaveMatchCandidates(ctx context.Context, runID string, candidates []model.MatchCandidate) error
	SaveAudits(ctx context.Context, runID string, audits []model.MigrationAudit) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RunStats shows the results of a reconciliation run.
type RunStats struct {
	LabelsRanked   int
	ExactMatches   int
	AutoMappable   int
	NeedsReview    int
	NewCategories  int
	Unspecified    int
	RecordsAudited int
	Migratable     int
	IssueCounts    map[model.IssueKind]int
	Duration       time.Duration
}
