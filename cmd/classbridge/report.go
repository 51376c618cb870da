package main

import (
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgiraud/classbridge/internal/cli"
	"github.com/mgiraud/classbridge/internal/model"
	"github.com/mgiraud/classbridge/internal/reconcile"
)

func reportCmd() *cobra.Command {
	var (
		workers int
		topN    int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the full pipeline and print period and combined reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			engine := newEngine(store, workers, topN, "Reconciling...")

			result, err := engine.Run(ctx)
			if err != nil {
				return err
			}

			printReport(cmd, result.Report)
			printStats(cmd, result)
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "worker count (default: number of CPUs)")
	cmd.Flags().IntVar(&topN, "top-n", 0, "candidates per label (default 5)")

	return cmd
}

func printReport(cmd *cobra.Command, report model.CombinedReport) {
	for _, period := range report.Periods {
		cmd.Println(cli.TitleStyle.Render("Period " + period.Period))
		cmd.Printf("  %s %d\n", cli.BoldStyle.Render("Total records:"), period.Total)
		cmd.Printf("  %s %d (%.1f%%)\n", cli.SuccessStyle.Render("Migratable:"),
			period.Migratable, 100*period.SuccessRate)
		if period.GrowthRate != nil {
			cmd.Printf("  %s %+.1f%%\n", cli.BoldStyle.Render("Growth:"), 100**period.GrowthRate)
		}
		printDistribution(cmd, period.Categories)
	}

	cmd.Println(cli.TitleStyle.Render("Combined"))
	cmd.Printf("  %s %d\n", cli.BoldStyle.Render("Total records:"), report.Total)
	if report.Total > 0 {
		cmd.Printf("  %s %d (%.1f%%)\n", cli.SuccessStyle.Render("Migratable:"),
			report.Migratable, 100*report.SuccessRate)
	}
	printDistribution(cmd, report.Categories)
}

func printDistribution(cmd *cobra.Command, categories []model.CategoryCount) {
	for _, category := range categories {
		label := category.Label
		if category.CategoryID == "" {
			label += cli.SubtleStyle.Render(" (unmatched)")
		}
		cmd.Printf("    %4d  %5.1f%%  %s\n", category.Count, category.Percent, label)
	}
}

func printStats(cmd *cobra.Command, result *reconcile.Result) {
	stats := result.Stats

	cmd.Println(cli.TitleStyle.Render("Run statistics"))
	cmd.Printf("  %s %s\n", cli.BoldStyle.Render("Run id:"), result.RunID)
	cmd.Printf("  Labels ranked: %d (exact %d, auto-mappable %d, needs review %d, new categories %d, unspecified %d)\n",
		stats.LabelsRanked, stats.ExactMatches, stats.AutoMappable,
		stats.NeedsReview, stats.NewCategories, stats.Unspecified)
	cmd.Printf("  Records audited: %d, migratable %d\n", stats.RecordsAudited, stats.Migratable)

	kinds := make([]string, 0, len(stats.IssueCounts))
	for kind := range stats.IssueCounts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		cmd.Printf("    %s %d\n", cli.ErrorStyle.Render(kind), stats.IssueCounts[model.IssueKind(kind)])
	}

	cmd.Printf("  %s %s\n", cli.SubtleStyle.Render("Duration:"), stats.Duration.Round(time.Millisecond).String())
}
