package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mgiraud/classbridge/internal/model"
)

// SaveMatchCandidates persists the ranked candidates of one run. The rows are
// proposals for human review; nothing here mutates either record system.
func (s *SQLiteStorage) SaveMatchCandidates(ctx context.Context, runID string, candidates []model.MatchCandidate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runID, "runID"); err != nil {
		return err
	}
	if err := validateCandidates(candidates); err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO match_candidates
		 (run_id, source_label, category_id, category_label, shared_tokens, confidence, tier, exact_match)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare candidate insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, candidate := range candidates {
		_, err := stmt.ExecContext(ctx,
			runID,
			candidate.SourceLabel,
			candidate.CategoryID,
			candidate.CategoryLabel,
			strings.Join(candidate.SharedTokens, " "),
			candidate.Confidence,
			string(candidate.Tier),
			candidate.ExactMatch,
		)
		if err != nil {
			return fmt.Errorf("failed to insert candidate for %q: %w", candidate.SourceLabel, err)
		}
	}

	return tx.Commit()
}

// SaveAudits persists the per-record audits of one run.
func (s *SQLiteStorage) SaveAudits(ctx context.Context, runID string, audits []model.MigrationAudit) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runID, "runID"); err != nil {
		return err
	}
	if err := validateAudits(audits); err != nil {
		return err
	}
	if len(audits) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO audits (run_id, record_id, student_ref, period, issues)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare audit insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, a := range audits {
		issues, err := json.Marshal(a.Issues)
		if err != nil {
			return fmt.Errorf("failed to encode issues for record %q: %w", a.RecordID, err)
		}

		if _, err := stmt.ExecContext(ctx, runID, a.RecordID, a.StudentRef, a.Period, string(issues)); err != nil {
			return fmt.Errorf("failed to insert audit for record %q: %w", a.RecordID, err)
		}
	}

	return tx.Commit()
}

// GetMatchCandidates loads the persisted candidates of a previous run,
// grouped by source label with the strongest candidate first.
func (s *SQLiteStorage) GetMatchCandidates(ctx context.Context, runID string) ([]model.MatchCandidate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_label, category_id, category_label, shared_tokens, confidence, tier, exact_match
		 FROM match_candidates WHERE run_id = ?
		 ORDER BY source_label, confidence DESC, category_label`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []model.MatchCandidate
	for rows.Next() {
		var candidate model.MatchCandidate
		var shared, tier string
		if err := rows.Scan(&candidate.SourceLabel, &candidate.CategoryID, &candidate.CategoryLabel,
			&shared, &candidate.Confidence, &tier, &candidate.ExactMatch); err != nil {
			return nil, fmt.Errorf("failed to scan match candidate: %w", err)
		}
		candidate.Tier = model.ConfidenceTier(tier)
		if shared != "" {
			candidate.SharedTokens = strings.Fields(shared)
		}
		candidates = append(candidates, candidate)
	}

	return candidates, rows.Err()
}

// GetAudits loads the persisted audits of a previous run.
func (s *SQLiteStorage) GetAudits(ctx context.Context, runID string) ([]model.MigrationAudit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, student_ref, period, issues
		 FROM audits WHERE run_id = ? ORDER BY record_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var audits []model.MigrationAudit
	for rows.Next() {
		var a model.MigrationAudit
		var issues string
		if err := rows.Scan(&a.RecordID, &a.StudentRef, &a.Period, &issues); err != nil {
			return nil, fmt.Errorf("failed to scan audit: %w", err)
		}
		if err := json.Unmarshal([]byte(issues), &a.Issues); err != nil {
			return nil, fmt.Errorf("failed to decode issues for record %q: %w", a.RecordID, err)
		}
		audits = append(audits, a)
	}

	return audits, rows.Err()
}
