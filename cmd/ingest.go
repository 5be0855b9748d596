package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <fact-sheets.json>",
	Short: "Load POI fact sheets into the store",
	Long:  "Reads a JSON array of fact sheets, derives missing quality tiers from evidence volume, and upserts them keyed by POI id.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read fact sheets file")
		}
		var sheets []model.FactSheet
		if err := json.Unmarshal(data, &sheets); err != nil {
			return eris.Wrap(err, "parse fact sheets file")
		}

		derived := 0
		for i := range sheets {
			fs := &sheets[i]
			fs.SourceText = model.TruncateSourceText(fs.SourceText)
			if fs.Tier == "" {
				fs.Tier = model.DeriveTier(fs.WebsiteWords, fs.SubpageWords,
					fs.GoogleWords, fs.HighlightWords, fs.SourceCount)
				derived++
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.UpsertFactSheets(ctx, sheets)
		if err != nil {
			return eris.Wrap(err, "ingest fact sheets")
		}

		zap.L().Info("fact sheets ingested",
			zap.Int64("upserted", n),
			zap.Int("tiers_derived", derived),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
