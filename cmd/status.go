package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
)

var statusRunID string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show fact sheet and staging counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Ping(ctx); err != nil {
			return eris.Wrap(err, "store unreachable")
		}

		tiers, err := st.CountFactSheetsByTier(ctx)
		if err != nil {
			return eris.Wrap(err, "count fact sheets")
		}
		fmt.Println("Fact sheets by tier:")
		total := 0
		for _, tier := range []model.Tier{model.TierRich, model.TierModerate, model.TierMinimal, model.TierNone} {
			fmt.Printf("  %-10s %d\n", tier, tiers[tier])
			total += tiers[tier]
		}
		fmt.Printf("  %-10s %d\n", "total", total)

		statuses, err := st.CountStagingByStatus(ctx, statusRunID)
		if err != nil {
			return eris.Wrap(err, "count staging rows")
		}
		scope := "all runs"
		if statusRunID != "" {
			scope = "run " + statusRunID
		}
		fmt.Printf("Staging rows (%s):\n", scope)
		for _, s := range []model.StagingStatus{
			model.StatusPending, model.StatusApproved, model.StatusRejected,
			model.StatusReviewRequired, model.StatusApplied,
		} {
			if n := statuses[s]; n > 0 {
				fmt.Printf("  %-16s %d\n", s, n)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusRunID, "run-id", "", "restrict staging counts to one run")
	rootCmd.AddCommand(statusCmd)
}
