// Package match proposes canonical mappings for free-text source labels,
// ranked by a deterministic confidence measure and split into tiers.
package match

import (
	"github.com/mgiraud/classbridge/internal/model"
	"github.com/mgiraud/classbridge/internal/normalize"
)

// Index holds the tokenized canonical catalog for one reconciliation run.
// Catalog entries are tokenized exactly once here; every subsequent
// comparison reuses the precomputed sets, since comparisons are
// O(labels x catalog size).
type Index struct {
	categories []indexed
	exact      map[string]int // token-set key -> position in categories
}

type indexed struct {
	category model.CanonicalCategory
	tokens   normalize.TokenSet
}

// NewIndex tokenizes every catalog entry and builds the exact-match lookup.
// The index is immutable after construction and safe for concurrent readers.
func NewIndex(catalog []model.CanonicalCategory) *Index {
	idx := &Index{
		categories: make([]indexed, 0, len(catalog)),
		exact:      make(map[string]int, len(catalog)),
	}

	for _, entry := range catalog {
		tokens := normalize.Tokens(entry.Label)
		entry.Tokens = tokens

		set := normalize.NewSet(tokens...)
		idx.categories = append(idx.categories, indexed{category: entry, tokens: set})

		if set.Len() > 0 {
			key := set.Key()
			if _, taken := idx.exact[key]; !taken {
				idx.exact[key] = len(idx.categories) - 1
			}
		}
	}

	return idx
}

// Size returns the number of catalog entries in the index.
func (idx *Index) Size() int {
	return len(idx.categories)
}

// Categories returns the tokenized catalog entries.
func (idx *Index) Categories() []model.CanonicalCategory {
	out := make([]model.CanonicalCategory, len(idx.categories))
	for i, entry := range idx.categories {
		out[i] = entry.category
	}
	return out
}

// ExactMatch returns the catalog entry whose token set equals the given set,
// if any. Empty sets never match.
func (idx *Index) ExactMatch(tokens normalize.TokenSet) (model.CanonicalCategory, bool) {
	if tokens.Len() == 0 {
		return model.CanonicalCategory{}, false
	}
	pos, ok := idx.exact[tokens.Key()]
	if !ok {
		return model.CanonicalCategory{}, false
	}
	return idx.categories[pos].category, true
}
