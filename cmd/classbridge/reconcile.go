package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mgiraud/classbridge/internal/cli"
	"github.com/mgiraud/classbridge/internal/model"
	"github.com/mgiraud/classbridge/internal/reconcile"
)

func reconcileCmd() *cobra.Command {
	var (
		workers int
		topN    int
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rank source labels against the canonical catalog",
		Long: `Ranks every class/cohort label observed in the source snapshot against the
canonical catalog and prints tiered mapping proposals:

  HIGH    recommended for automatic mapping
  MEDIUM  requires human confirmation
  LOW     candidate for a brand-new canonical category

The ranked candidates are also persisted in the staging database for review.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			engine := newEngine(store, workers, topN, "Ranking source labels...")

			labels, err := engine.ReconcileLabels(ctx)
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			var candidates []model.MatchCandidate
			for _, ranked := range labels {
				candidates = append(candidates, ranked.Candidates...)
			}
			if err := store.SaveMatchCandidates(ctx, runID, candidates); err != nil {
				return fmt.Errorf("failed to save match candidates: %w", err)
			}

			printRankedLabels(cmd, labels)
			cmd.Println(cli.SubtleStyle.Render(fmt.Sprintf("Saved %d candidates under run %s", len(candidates), runID)))
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "worker count (default: number of CPUs)")
	cmd.Flags().IntVar(&topN, "top-n", 0, "candidates per label (default 5)")

	return cmd
}

func printRankedLabels(cmd *cobra.Command, labels []reconcile.RankedLabel) {
	cmd.Println(cli.TitleStyle.Render("Label reconciliation proposals"))

	for _, ranked := range labels {
		switch {
		case ranked.Unspecified:
			cmd.Printf("%s %s\n",
				cli.BoldStyle.Render(model.UnspecifiedLabel),
				cli.SubtleStyle.Render(fmt.Sprintf("(%d records, no label to match)", ranked.Label.RecordCount)))
			continue
		case ranked.NewCategory:
			cmd.Printf("%s %s\n",
				cli.BoldStyle.Render(ranked.Label.Label),
				cli.ErrorStyle.Render("→ new canonical category suggested"))
		default:
			cmd.Println(cli.BoldStyle.Render(ranked.Label.Label))
		}

		for _, candidate := range ranked.Candidates {
			shared := ""
			if len(candidate.SharedTokens) > 0 {
				shared = cli.SubtleStyle.Render(" shares: " + strings.Join(candidate.SharedTokens, ", "))
			}
			cmd.Printf("  %3d%% %s %s%s\n",
				candidate.Confidence,
				cli.RenderTier(candidate.Tier),
				candidate.CategoryLabel,
				shared)
		}
	}
}
