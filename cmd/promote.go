package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/FrankSpooren/HolidaiButler/internal/promote"
	"github.com/FrankSpooren/HolidaiButler/internal/safeguard"
)

var (
	promoteRunID        string
	promoteExecute      bool
	promoteBatchApprove bool
	promoteBy           string
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Apply approved candidates to production",
	Long:  "Applies the run's approved staging rows to production, each inside one transaction with its audit entry. Dry run by default; pass --execute to write.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if promoteRunID == "" {
			return eris.New("--run-id is required")
		}

		pg, err := initPostgresStore(ctx)
		if err != nil {
			return err
		}
		defer pg.Close()

		dests, err := loadDestinations()
		if err != nil {
			return err
		}

		gate := safeguard.New(cfg.Safeguards, dests)
		engine := promote.New(pg.Pool(), pg, gate)

		out, err := engine.Run(ctx, promote.Options{
			RunID:        promoteRunID,
			Execute:      promoteExecute,
			BatchApprove: promoteBatchApprove,
			ApprovedBy:   promoteBy,
		})
		if err != nil {
			return eris.Wrap(err, "promote")
		}

		mode := "applied"
		if out.DryRun {
			mode = "would apply"
		}
		fmt.Printf("%s %d, skipped %d identical, approved %d, blocked %d, errors %d\n",
			mode, out.Applied, out.Skipped, out.Approved, len(out.Blocked), len(out.Errors))
		for _, b := range out.Blocked {
			fmt.Printf("blocked %s: %v\n", b.POIID, b.Blocks)
		}
		for _, e := range out.Errors {
			fmt.Printf("error %s\n", e)
		}
		return nil
	},
}

func init() {
	promoteCmd.Flags().StringVar(&promoteRunID, "run-id", "", "run whose approved rows to promote")
	promoteCmd.Flags().BoolVar(&promoteExecute, "execute", false, "write changes (default is dry run)")
	promoteCmd.Flags().BoolVar(&promoteBatchApprove, "batch-approve", false, "gate pending rows and approve the ones that pass")
	promoteCmd.Flags().StringVar(&promoteBy, "by", "pipeline", "name recorded as the approver")
	rootCmd.AddCommand(promoteCmd)
}
