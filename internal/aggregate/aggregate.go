// Package aggregate folds per-record audits and per-label match results into
// grouped period statistics and one combined report.
package aggregate

import (
	"sort"

	"github.com/mgiraud/classbridge/internal/model"
)

// CategoryUsage is one period-tagged category tally: how many records in the
// period belong to a canonical category, or to an unmatched source label
// (empty CategoryID). Distinct unmatched spellings are distinct identities;
// merging spellings is the ranking step's responsibility, never the
// aggregator's.
type CategoryUsage struct {
	Period     string
	CategoryID string
	Label      string
	Count      int
}

// identity is the merge key for a usage row.
func (u CategoryUsage) identity() string {
	if u.CategoryID != "" {
		return "c\x1f" + u.CategoryID
	}
	return "u\x1f" + u.Label
}

// BuildReport reduces all audits and category usages of a run into one
// PeriodReport per period plus the combined report. The reduction is a pure
// deterministic fold: output does not depend on input order beyond the
// period/label data itself, so reports are reproducible regardless of the
// order workers completed in.
//
// topN limits the combined distribution; zero or negative keeps every
// category. Empty inputs produce empty reports, not errors.
func BuildReport(audits []model.MigrationAudit, usages []CategoryUsage, topN int) model.CombinedReport {
	byPeriod := make(map[string]*periodAccum)

	accumFor := func(period string) *periodAccum {
		acc, ok := byPeriod[period]
		if !ok {
			acc = &periodAccum{usage: make(map[string]CategoryUsage)}
			byPeriod[period] = acc
		}
		return acc
	}

	for _, a := range audits {
		acc := accumFor(a.Period)
		acc.total++
		if a.Migratable() {
			acc.migratable++
		}
	}

	for _, u := range usages {
		if u.Count == 0 {
			continue
		}
		acc := accumFor(u.Period)
		key := u.identity()
		merged := acc.usage[key]
		merged.Period = u.Period
		merged.CategoryID = u.CategoryID
		merged.Label = u.Label
		merged.Count += u.Count
		acc.usage[key] = merged
	}

	periods := make([]string, 0, len(byPeriod))
	for period := range byPeriod {
		periods = append(periods, period)
	}
	sort.Strings(periods)

	combined := model.CombinedReport{}
	combinedUsage := make(map[string]CategoryUsage)

	var previousTotal *int
	for _, period := range periods {
		acc := byPeriod[period]

		report := model.PeriodReport{
			Period:      period,
			Total:       acc.total,
			Migratable:  acc.migratable,
			SuccessRate: rate(acc.migratable, acc.total),
			Categories:  distribution(acc.usage, 0),
		}

		if previousTotal != nil && *previousTotal > 0 {
			growth := float64(acc.total-*previousTotal) / float64(*previousTotal)
			report.GrowthRate = &growth
		}
		total := acc.total
		previousTotal = &total

		combined.Periods = append(combined.Periods, report)
		combined.Total += acc.total
		combined.Migratable += acc.migratable

		for key, u := range acc.usage {
			merged := combinedUsage[key]
			merged.CategoryID = u.CategoryID
			merged.Label = u.Label
			merged.Count += u.Count
			combinedUsage[key] = merged
		}
	}

	combined.SuccessRate = rate(combined.Migratable, combined.Total)
	combined.Categories = distribution(combinedUsage, topN)

	return combined
}

type periodAccum struct {
	usage      map[string]CategoryUsage
	total      int
	migratable int
}

// rate returns migratable/total, or 0 for an empty group.
func rate(migratable, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(migratable) / float64(total)
}

// distribution renders a usage map as rows sorted by descending count with a
// stable tie-break on label. Percentages are relative to the group's own
// count sum, so they total 100 within rounding tolerance.
func distribution(usage map[string]CategoryUsage, topN int) []model.CategoryCount {
	if len(usage) == 0 {
		return nil
	}

	sum := 0
	for _, u := range usage {
		sum += u.Count
	}

	rows := make([]model.CategoryCount, 0, len(usage))
	for _, u := range usage {
		rows = append(rows, model.CategoryCount{
			CategoryID: u.CategoryID,
			Label:      u.Label,
			Count:      u.Count,
			Percent:    100 * float64(u.Count) / float64(sum),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Label < rows[j].Label
	})

	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}
	return rows
}
