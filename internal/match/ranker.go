package match

import (
	"github.com/mgiraud/classbridge/internal/model"
	"github.com/mgiraud/classbridge/internal/normalize"
)

// DefaultTopN is the number of candidates returned per source label when no
// explicit limit is configured.
const DefaultTopN = 5

// Ranker produces ordered, tier-tagged candidate lists for unmatched source
// labels against a catalog index.
type Ranker struct {
	index  *Index
	scorer Scorer
	topN   int
}

// NewRanker creates a ranker over the given index using the default Dice
// scorer and DefaultTopN.
func NewRanker(index *Index) *Ranker {
	return NewRankerWith(index, NewDiceScorer(), DefaultTopN)
}

// NewRankerWith creates a ranker with an explicit scorer and candidate limit.
func NewRankerWith(index *Index, scorer Scorer, topN int) *Ranker {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Ranker{
		index:  index,
		scorer: scorer,
		topN:   topN,
	}
}

// Rank scores the source label against every catalog entry and returns the
// top-N candidates, sorted by descending confidence then canonical label.
//
// A label that normalizes exactly to an existing category short-circuits to a
// single HIGH(100) candidate. A blank label yields no candidates. Labels
// whose every candidate is LOW tier (including all-zero confidence) are
// flagged upstream as candidates for a brand-new canonical category.
func (r *Ranker) Rank(label model.SourceLabel) model.MatchCandidates {
	tokens := normalize.SetOf(label.Label)
	if tokens.Len() == 0 {
		return nil
	}

	if category, ok := r.index.ExactMatch(tokens); ok {
		return model.MatchCandidates{{
			SourceLabel:   label.Label,
			CategoryID:    category.ID,
			CategoryLabel: category.Label,
			SharedTokens:  tokens.Sorted(),
			Confidence:    100,
			Tier:          model.TierHigh,
			ExactMatch:    true,
		}}
	}

	candidates := make(model.MatchCandidates, 0, r.index.Size())
	for _, entry := range r.index.categories {
		confidence, shared := r.scorer.Score(tokens, entry.tokens)
		candidates = append(candidates, model.MatchCandidate{
			SourceLabel:   label.Label,
			CategoryID:    entry.category.ID,
			CategoryLabel: entry.category.Label,
			SharedTokens:  shared,
			Confidence:    confidence,
			Tier:          model.TierFor(confidence),
		})
	}

	return candidates.TopN(r.topN)
}

// NeedsNewCategory reports whether a ranked candidate list suggests creating
// a brand-new canonical category: no candidate reached MEDIUM tier.
func NeedsNewCategory(candidates model.MatchCandidates) bool {
	for _, candidate := range candidates {
		if candidate.Tier != model.TierLow {
			return false
		}
	}
	return true
}
