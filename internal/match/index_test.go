package match

import (
	"testing"

	"github.com/mgiraud/classbridge/internal/model"
	"github.com/mgiraud/classbridge/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() []model.CanonicalCategory {
	return []model.CanonicalCategory{
		{ID: "cat-01", Label: "Éveil à la foi"},
		{ID: "cat-02", Label: "1ère Année Communion (CE2)"},
		{ID: "cat-03", Label: "2ème Année Communion (CM1)"},
		{ID: "cat-04", Label: "1ère Année Confirmation (6ème)"},
		{ID: "cat-05", Label: "2ème Année Confirmation (5ème)"},
		{ID: "cat-06", Label: "Profession de Foi"},
	}
}

func TestNewIndex(t *testing.T) {
	idx := NewIndex(testCatalog())

	assert.Equal(t, 6, idx.Size())

	categories := idx.Categories()
	require.Len(t, categories, 6)
	for _, category := range categories {
		assert.NotEmpty(t, category.Tokens, "catalog entry %s should be tokenized", category.ID)
	}
}

func TestNewIndex_Empty(t *testing.T) {
	idx := NewIndex(nil)

	assert.Equal(t, 0, idx.Size())
	_, ok := idx.ExactMatch(normalize.SetOf("Confirmation"))
	assert.False(t, ok)
}

func TestIndex_ExactMatch(t *testing.T) {
	idx := NewIndex(testCatalog())

	tests := []struct {
		name   string
		label  string
		wantID string
		wantOK bool
	}{
		{
			name:   "same label",
			label:  "Profession de Foi",
			wantID: "cat-06",
			wantOK: true,
		},
		{
			name:   "reordered tokens and casing",
			label:  "FOI de profession",
			wantID: "cat-06",
			wantOK: true,
		},
		{
			name:   "near miss is not exact",
			label:  "Profession de Foi (6e)",
			wantOK: false,
		},
		{
			name:   "blank label never matches",
			label:  "   ",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, ok := idx.ExactMatch(normalize.SetOf(tt.label))
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, category.ID)
			}
		})
	}
}

func TestIndex_BlankCatalogEntry(t *testing.T) {
	// A catalog entry with no recognizable tokens is indexed but can never be
	// an exact match.
	idx := NewIndex([]model.CanonicalCategory{{ID: "cat-00", Label: "---"}})

	assert.Equal(t, 1, idx.Size())
	_, ok := idx.ExactMatch(normalize.SetOf(""))
	assert.False(t, ok)
}
