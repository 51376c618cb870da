package match

import (
	"math"

	"github.com/mgiraud/classbridge/internal/normalize"
)

// Scorer computes a confidence score between two normalized token sets.
// Implementations must be pure: symmetric, deterministic, and always within
// [0, 100], scoring 100 only for identical non-empty sets.
type Scorer interface {
	// Score returns the confidence in [0, 100] and the shared tokens, sorted.
	Score(a, b normalize.TokenSet) (int, []string)
}

// DiceScorer scores token overlap with the Sørensen–Dice coefficient:
// 200 * |A∩B| / (|A| + |B|), rounded to the nearest integer.
type DiceScorer struct{}

// NewDiceScorer returns the default overlap scorer.
func NewDiceScorer() DiceScorer {
	return DiceScorer{}
}

// Score implements Scorer. Either set being empty scores 0 rather than
// dividing by zero.
func (DiceScorer) Score(a, b normalize.TokenSet) (int, []string) {
	if a.Len() == 0 || b.Len() == 0 {
		return 0, nil
	}

	shared := a.Intersect(b)
	confidence := int(math.Round(200 * float64(len(shared)) / float64(a.Len()+b.Len())))

	// Rounding can reach 100 on large near-complete overlaps; 100 is
	// reserved for identical sets.
	if confidence == 100 && !a.Equal(b) {
		confidence = 99
	}

	return confidence, shared
}
