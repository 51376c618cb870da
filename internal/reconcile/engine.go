// Package reconcile orchestrates a full reconciliation run: label ranking,
// record auditing, aggregation, and persistence of the run's outputs.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mgiraud/classbridge/internal/aggregate"
	"github.com/mgiraud/classbridge/internal/audit"
	"github.com/mgiraud/classbridge/internal/match"
	"github.com/mgiraud/classbridge/internal/model"
	"github.com/mgiraud/classbridge/internal/service"
)

// Config holds configuration options for the reconciliation engine.
type Config struct {
	// OnProgress, when set, is called once per completed item. It must be
	// safe for concurrent calls.
	OnProgress func(n int)
	Workers    int
	TopN       int
	ReportTopN int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:    runtime.GOMAXPROCS(0),
		TopN:       match.DefaultTopN,
		ReportTopN: 10,
	}
}

// Engine runs the reconciliation pipeline over the two immutable snapshots
// held in storage. Workers share the immutable catalog index and record
// snapshot and write only their own output slot, so the final reduction is
// deterministic regardless of completion order.
type Engine struct {
	storage service.Storage
	scorer  match.Scorer
	config  Config
}

// New creates an engine with the default Dice scorer and configuration.
func New(storage service.Storage) *Engine {
	return NewWithConfig(storage, match.NewDiceScorer(), DefaultConfig())
}

// NewWithConfig creates an engine with an explicit scorer and configuration.
// The scorer is pluggable so alternative similarity measures can be
// substituted without touching the ranker or classifier.
func NewWithConfig(storage service.Storage, scorer match.Scorer, config Config) *Engine {
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	if config.TopN <= 0 {
		config.TopN = match.DefaultTopN
	}
	return &Engine{
		storage: storage,
		scorer:  scorer,
		config:  config,
	}
}

// RankedLabel is the ranking outcome for one source label.
type RankedLabel struct {
	Label       model.SourceLabel
	Candidates  model.MatchCandidates
	Unspecified bool
	NewCategory bool
}

// Result holds everything a reconciliation run produced.
type Result struct {
	RunID  string
	Labels []RankedLabel
	Audits []model.MigrationAudit
	Report model.CombinedReport
	Stats  service.RunStats
}

// ReconcileLabels ranks every observed source label against the canonical
// catalog and returns the tiered candidate lists.
func (e *Engine) ReconcileLabels(ctx context.Context) ([]RankedLabel, error) {
	catalog, err := e.storage.GetCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load canonical catalog: %w", err)
	}

	labels, err := e.storage.GetSourceLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load source labels: %w", err)
	}

	slog.Info("Ranking source labels",
		"labels", len(labels),
		"catalog_size", len(catalog),
		"workers", e.config.Workers)

	index := match.NewIndex(catalog)
	ranker := match.NewRankerWith(index, e.scorer, e.config.TopN)

	results := make([]RankedLabel, len(labels))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(e.config.Workers)

	for i, label := range labels {
		i, label := i, label
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			candidates := ranker.Rank(label)
			results[i] = RankedLabel{
				Label:       label,
				Candidates:  candidates,
				Unspecified: label.Unspecified(),
				NewCategory: !label.Unspecified() && match.NeedsNewCategory(candidates),
			}
			e.progress(1)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// AuditRecords classifies every record in the snapshot. A record that failed
// to transfer still gets a terminal cause: if its audit triggers zero
// predicates it is classified UNKNOWN rather than silently passing.
func (e *Engine) AuditRecords(ctx context.Context) ([]model.MigrationAudit, error) {
	records, err := e.storage.GetRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load migration records: %w", err)
	}
	return e.auditAll(ctx, records)
}

func (e *Engine) auditAll(ctx context.Context, records []model.MigrationRecord) ([]model.MigrationAudit, error) {
	lookups, err := e.storage.GetLookups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference lookups: %w", err)
	}

	enums, err := e.storage.GetEnumTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load enum table: %w", err)
	}

	slog.Info("Auditing migration records",
		"records", len(records),
		"governed_fields", len(enums),
		"workers", e.config.Workers)

	classifier := audit.NewClassifier(lookups, enums)
	audits := make([]model.MigrationAudit, len(records))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(e.config.Workers)

	for i, rec := range records {
		i, rec := i, rec
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a := classifier.Classify(rec)
			if !rec.Migrated {
				a = audit.EnsureCause(a)
			}
			audits[i] = a
			e.progress(1)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return audits, nil
}

// Run executes the full pipeline and persists the outputs under a fresh run
// id. The engine holds no state across runs.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()

	labels, err := e.ReconcileLabels(ctx)
	if err != nil {
		return nil, err
	}

	records, err := e.storage.GetRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load migration records: %w", err)
	}

	audits, err := e.auditAll(ctx, records)
	if err != nil {
		return nil, err
	}

	report := aggregate.BuildReport(audits, buildUsages(labels, records), e.config.ReportTopN)

	var candidates []model.MatchCandidate
	for _, ranked := range labels {
		candidates = append(candidates, ranked.Candidates...)
	}
	if err := e.storage.SaveMatchCandidates(ctx, runID, candidates); err != nil {
		return nil, fmt.Errorf("failed to save match candidates: %w", err)
	}
	if err := e.storage.SaveAudits(ctx, runID, audits); err != nil {
		return nil, fmt.Errorf("failed to save audits: %w", err)
	}

	result := &Result{
		RunID:  runID,
		Labels: labels,
		Audits: audits,
		Report: report,
		Stats:  buildStats(labels, audits, time.Since(start)),
	}

	slog.Info("Reconciliation run complete",
		"run_id", runID,
		"labels", result.Stats.LabelsRanked,
		"records", result.Stats.RecordsAudited,
		"duration", result.Stats.Duration)

	return result, nil
}

func (e *Engine) progress(n int) {
	if e.config.OnProgress != nil {
		e.config.OnProgress(n)
	}
}

// buildUsages tallies records per period and category identity. A label that
// normalized exactly onto a canonical category counts under that category;
// everything else keeps its own spelling as an unmatched identity, because
// merging near-miss spellings is a human decision, not the aggregator's.
func buildUsages(labels []RankedLabel, records []model.MigrationRecord) []aggregate.CategoryUsage {
	type identity struct {
		categoryID string
		label      string
	}

	identities := make(map[string]identity, len(labels))
	for _, ranked := range labels {
		id := identity{label: ranked.Label.Label}
		if ranked.Unspecified {
			id.label = model.UnspecifiedLabel
		} else if top := ranked.Candidates.Top(); top != nil && top.ExactMatch {
			id = identity{categoryID: top.CategoryID, label: top.CategoryLabel}
		}
		identities[ranked.Label.Label] = id
	}

	counts := make(map[string]*aggregate.CategoryUsage)
	for _, rec := range records {
		id, ok := identities[rec.ClassLabel]
		if !ok {
			id = identity{label: rec.ClassLabel}
			if (model.SourceLabel{Label: rec.ClassLabel}).Unspecified() {
				id.label = model.UnspecifiedLabel
			}
		}

		key := rec.Period + "\x1f" + id.categoryID + "\x1f" + id.label
		usage, seen := counts[key]
		if !seen {
			usage = &aggregate.CategoryUsage{
				Period:     rec.Period,
				CategoryID: id.categoryID,
				Label:      id.label,
			}
			counts[key] = usage
		}
		usage.Count++
	}

	usages := make([]aggregate.CategoryUsage, 0, len(counts))
	for _, usage := range counts {
		usages = append(usages, *usage)
	}
	return usages
}

// buildStats folds run outcomes into completion statistics.
func buildStats(labels []RankedLabel, audits []model.MigrationAudit, duration time.Duration) service.RunStats {
	stats := service.RunStats{
		LabelsRanked:   len(labels),
		RecordsAudited: len(audits),
		IssueCounts:    make(map[model.IssueKind]int),
		Duration:       duration,
	}

	for _, ranked := range labels {
		switch {
		case ranked.Unspecified:
			stats.Unspecified++
		case ranked.NewCategory:
			stats.NewCategories++
		default:
			top := ranked.Candidates.Top()
			if top == nil {
				stats.NewCategories++
				continue
			}
			if top.ExactMatch {
				stats.ExactMatches++
			}
			switch top.Tier {
			case model.TierHigh:
				stats.AutoMappable++
			case model.TierMedium:
				stats.NeedsReview++
			case model.TierLow:
				stats.NewCategories++
			}
		}
	}

	for _, a := range audits {
		if a.Migratable() {
			stats.Migratable++
			continue
		}
		for _, issue := range a.Issues {
			stats.IssueCounts[issue.Kind]++
		}
	}

	return stats
}
