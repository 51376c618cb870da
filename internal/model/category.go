// Package model defines the core domain models used throughout the application.
package model

// CanonicalCategory is an authoritative classification value in the target
// system, carrying the normalized token set built once per reconciliation run.
type CanonicalCategory struct {
	ID     string
	Label  string
	Tokens []string // normalized, sorted, deduplicated
}

// UnspecifiedLabel is the display identity for records whose source label is
// blank. Blank labels are a data condition, reported under this identity.
const UnspecifiedLabel = "(unspecified)"

// SourceLabel is a free-text class/cohort string observed in the foreign
// system, with the number of records bearing it.
type SourceLabel struct {
	Label       string
	RecordCount int
}

// Unspecified reports whether the label is empty or whitespace-only. Such
// labels are a data condition, not an error: they produce no candidates and
// are reported as an unspecified category.
func (s SourceLabel) Unspecified() bool {
	for _, r := range s.Label {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
