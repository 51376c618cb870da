// Package normalize converts free-text category labels into canonical token
// sets. Normalization is pure and deterministic: the same label always yields
// the same tokens, independent of call order.
package normalize

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokens normalizes a raw label into a sorted, deduplicated token slice.
//
// The label is NFC-normalized so composed and decomposed accent encodings
// tokenize identically, lower-cased, and split on anything that is not a
// letter or digit. Accented characters are part of the domain vocabulary and
// are preserved. Parenthetical abbreviations such as a short grade code
// become standalone tokens because the parentheses act as boundaries.
//
// An empty or blank label yields an empty slice; that is a data condition
// ("unspecified" category), never an error.
func Tokens(label string) []string {
	normalized := strings.ToLower(norm.NFC.String(label))

	tokens := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	if len(tokens) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tokens))
	unique := tokens[:0]
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		unique = append(unique, token)
	}

	sort.Strings(unique)
	return unique
}

// TokenSet is a normalized token set.
type TokenSet map[string]struct{}

// NewSet builds a TokenSet from already-normalized tokens.
func NewSet(tokens ...string) TokenSet {
	set := make(TokenSet, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// SetOf normalizes a label and returns its token set.
func SetOf(label string) TokenSet {
	return NewSet(Tokens(label)...)
}

// Len returns the number of tokens in the set.
func (s TokenSet) Len() int {
	return len(s)
}

// Contains reports whether the set contains the token.
func (s TokenSet) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// Sorted returns the tokens in lexicographic order.
func (s TokenSet) Sorted() []string {
	tokens := make([]string, 0, len(s))
	for token := range s {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// Key returns a canonical string key for the set, used for exact-match
// lookups. Two sets have the same key exactly when they are equal.
func (s TokenSet) Key() string {
	return strings.Join(s.Sorted(), "\x1f")
}

// Equal reports whether both sets contain exactly the same tokens.
func (s TokenSet) Equal(other TokenSet) bool {
	if len(s) != len(other) {
		return false
	}
	for token := range s {
		if !other.Contains(token) {
			return false
		}
	}
	return true
}

// Intersect returns the tokens present in both sets, sorted.
func (s TokenSet) Intersect(other TokenSet) []string {
	var shared []string
	for token := range s {
		if other.Contains(token) {
			shared = append(shared, token)
		}
	}
	sort.Strings(shared)
	return shared
}
