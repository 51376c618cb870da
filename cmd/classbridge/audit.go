package main

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mgiraud/classbridge/internal/cli"
	"github.com/mgiraud/classbridge/internal/model"
)

func auditCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Classify why each record failed to migrate",
		Long: `Evaluates every enrollment record in the snapshot against the independent
validity predicates (student/class/term references, enum-valued fields) and
reports the complete set of violated conditions per record. Records that
failed to transfer with no recognized cause are classified UNKNOWN.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			engine := newEngine(store, workers, 0, "Auditing records...")

			audits, err := engine.AuditRecords(ctx)
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			if err := store.SaveAudits(ctx, runID, audits); err != nil {
				return fmt.Errorf("failed to save audits: %w", err)
			}

			printAuditSummary(cmd, audits)
			cmd.Println(cli.SubtleStyle.Render(fmt.Sprintf("Saved %d audits under run %s", len(audits), runID)))
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "worker count (default: number of CPUs)")

	return cmd
}

func printAuditSummary(cmd *cobra.Command, audits []model.MigrationAudit) {
	cmd.Println(cli.TitleStyle.Render("Migration audit"))

	migratable := 0
	issueCounts := make(map[string]int)
	for _, a := range audits {
		if a.Migratable() {
			migratable++
			continue
		}
		for _, issue := range a.Issues {
			issueCounts[issue.String()]++
		}
	}

	total := len(audits)
	cmd.Printf("%s %d\n", cli.BoldStyle.Render("Records audited:"), total)
	if total > 0 {
		rate := 100 * float64(migratable) / float64(total)
		cmd.Printf("%s %d (%.1f%%)\n", cli.SuccessStyle.Render("Migratable:"), migratable, rate)
	}

	keys := make([]string, 0, len(issueCounts))
	for key := range issueCounts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if issueCounts[keys[i]] != issueCounts[keys[j]] {
			return issueCounts[keys[i]] > issueCounts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	for _, key := range keys {
		cmd.Printf("  %s %d\n", cli.ErrorStyle.Render(key), issueCounts[key])
	}
}
