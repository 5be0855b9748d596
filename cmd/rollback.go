package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
	"github.com/FrankSpooren/HolidaiButler/internal/promote"
)

var (
	rollbackField string
	rollbackBy    string
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <poi-id>",
	Short: "Restore a POI field to its previous production content",
	Long:  "Restores the newest audit entry's previous content and records the restore as a new entry. The staging row that applied the change moves to rejected.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		poiID := args[0]

		pg, err := initPostgresStore(ctx)
		if err != nil {
			return err
		}
		defer pg.Close()

		engine := promote.New(pg.Pool(), pg, nil)
		if err := engine.Rollback(ctx, poiID, rollbackField, rollbackBy); err != nil {
			return eris.Wrap(err, "rollback")
		}

		zap.L().Info("rolled back", zap.String("poi_id", poiID), zap.String("field", rollbackField))
		return nil
	},
}

func init() {
	rollbackCmd.Flags().StringVar(&rollbackField, "field", model.FieldDescription, "production field to restore")
	rollbackCmd.Flags().StringVar(&rollbackBy, "by", "operator", "name recorded on the rollback entry")
	rootCmd.AddCommand(rollbackCmd)
}
