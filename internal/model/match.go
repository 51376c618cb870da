package model

import (
	"fmt"
	"sort"
)

// ConfidenceTier buckets a numeric confidence into an action policy.
type ConfidenceTier string

// Confidence tier constants.
const (
	// TierHigh candidates are recommended for automatic mapping.
	TierHigh ConfidenceTier = "HIGH"
	// TierMedium candidates require human confirmation before mapping.
	TierMedium ConfidenceTier = "MEDIUM"
	// TierLow candidates suggest a brand-new canonical category instead.
	TierLow ConfidenceTier = "LOW"
)

// Tier thresholds.
const (
	HighConfidenceThreshold   = 80
	MediumConfidenceThreshold = 50
)

// TierFor returns the confidence tier for a 0-100 confidence value.
func TierFor(confidence int) ConfidenceTier {
	switch {
	case confidence >= HighConfidenceThreshold:
		return TierHigh
	case confidence >= MediumConfidenceThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// MatchCandidate is one proposed mapping from a source label to a canonical
// category. Candidates are ephemeral: produced fresh per run, never persisted
// as authoritative data.
type MatchCandidate struct {
	SourceLabel   string
	CategoryID    string
	CategoryLabel string
	SharedTokens  []string
	Confidence    int
	Tier          ConfidenceTier
	ExactMatch    bool
}

// Validate ensures the candidate has valid data.
func (c *MatchCandidate) Validate() error {
	if c.CategoryID == "" {
		return fmt.Errorf("candidate category ID is required")
	}
	if c.Confidence < 0 || c.Confidence > 100 {
		return fmt.Errorf("confidence must be between 0 and 100, got %d", c.Confidence)
	}
	if c.Tier != TierFor(c.Confidence) {
		return fmt.Errorf("tier %s does not match confidence %d", c.Tier, c.Confidence)
	}
	return nil
}

// MatchCandidates is a slice of MatchCandidate that supports sorting and
// utility methods.
type MatchCandidates []MatchCandidate

// Len implements sort.Interface.
func (m MatchCandidates) Len() int {
	return len(m)
}

// Less implements sort.Interface. Higher confidence comes first; ties break
// by canonical label so output is stable across runs with reordered catalogs.
func (m MatchCandidates) Less(i, j int) bool {
	if m[i].Confidence != m[j].Confidence {
		return m[i].Confidence > m[j].Confidence
	}
	return m[i].CategoryLabel < m[j].CategoryLabel
}

// Swap implements sort.Interface.
func (m MatchCandidates) Swap(i, j int) {
	m[i], m[j] = m[j], m[i]
}

// Sort sorts the candidates by confidence in descending order.
func (m MatchCandidates) Sort() {
	sort.Sort(m)
}

// Top returns the highest-confidence candidate, or nil if empty.
func (m MatchCandidates) Top() *MatchCandidate {
	if len(m) == 0 {
		return nil
	}
	m.Sort()
	return &m[0]
}

// TopN returns the N highest-confidence candidates.
func (m MatchCandidates) TopN(n int) MatchCandidates {
	if n <= 0 {
		return MatchCandidates{}
	}

	m.Sort()

	if n > len(m) {
		n = len(m)
	}

	result := make(MatchCandidates, n)
	copy(result, m[:n])
	return result
}

// Validate ensures all candidates in the slice are valid.
func (m MatchCandidates) Validate() error {
	seen := make(map[string]bool)

	for i, candidate := range m {
		if err := candidate.Validate(); err != nil {
			return fmt.Errorf("invalid candidate at index %d: %w", i, err)
		}
		if seen[candidate.CategoryID] {
			return fmt.Errorf("duplicate category %q in candidates", candidate.CategoryID)
		}
		seen[candidate.CategoryID] = true
	}

	return nil
}
