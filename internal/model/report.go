package model

// CategoryCount is one row of a category distribution.
type CategoryCount struct {
	CategoryID string // empty for unmatched source labels
	Label      string
	Count      int
	Percent    float64
}

// PeriodReport aggregates audits and candidate matches for one term/year.
type PeriodReport struct {
	Period      string
	Total       int
	Migratable  int
	SuccessRate float64
	Categories  []CategoryCount
	// GrowthRate is (total - previous period total) / previous period total.
	// Nil for the first period.
	GrowthRate *float64
}

// CombinedReport aggregates across all periods. Per-period totals sum to
// Total; the distribution merges counts by category identity only, never by
// label similarity.
type CombinedReport struct {
	Periods     []PeriodReport
	Total       int
	Migratable  int
	SuccessRate float64
	Categories  []CategoryCount
}
