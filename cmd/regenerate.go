package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
	"github.com/FrankSpooren/HolidaiButler/internal/pipeline"
)

var (
	regenRunID        string
	regenDestination  string
	regenTier         string
	regenLimit        int
	regenOffset       int
	regenResume       bool
	regenClearStaging bool
	regenReportOnly   bool
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Regenerate and fact-check POI descriptions",
	Long:  "Generates a candidate description for every matching fact sheet, runs the fact-check pass, and stages the results for review. Writes a triage report when done.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		started := time.Now()

		runID := regenRunID
		if runID == "" {
			runID = "regen-" + uuid.NewString()[:8]
		}
		if regenResume && regenRunID == "" {
			return eris.New("--resume requires --run-id")
		}
		if regenReportOnly && regenRunID == "" {
			return eris.New("--report-only requires --run-id")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if regenReportOnly {
			p := pipeline.New(cfg, st, nil, nil, nil)
			results, err := p.ReplayResults(ctx, runID)
			if err != nil {
				return eris.Wrap(err, "report only")
			}
			return writeRunReport(runID, results, started)
		}

		if regenClearStaging {
			n, err := st.ClearStagingRun(ctx, runID)
			if err != nil {
				return eris.Wrap(err, "clear staging run")
			}
			zap.L().Info("staging cleared", zap.String("run_id", runID), zap.Int64("rows", n))
		}

		client, err := initTextClient()
		if err != nil {
			return err
		}
		dests, err := loadDestinations()
		if err != nil {
			return err
		}

		p := pipeline.New(cfg, st, client, client, dests)
		results, err := p.RunBatch(ctx, pipeline.RunOptions{
			RunID:       runID,
			Destination: regenDestination,
			Tier:        model.Tier(regenTier),
			Limit:       regenLimit,
			Offset:      regenOffset,
			Resume:      regenResume,
		})
		if err != nil {
			return eris.Wrap(err, "regenerate")
		}

		return writeRunReport(runID, results, started)
	},
}

// writeRunReport writes the triage report and prints the run summary.
func writeRunReport(runID string, results []pipeline.Result, started time.Time) error {
	stats := pipeline.ComputeStats(results)
	reportPath := filepath.Join(cfg.Batch.ReportDir, fmt.Sprintf("triage-%s.md", runID))
	if err := os.WriteFile(reportPath, []byte(pipeline.FormatTriageReport(runID, results)), 0o644); err != nil {
		return eris.Wrap(err, "write triage report")
	}

	fmt.Println(pipeline.FormatRunSummary(runID, stats, time.Since(started)))
	fmt.Printf("Triage report: %s\n", reportPath)
	return nil
}

func init() {
	regenerateCmd.Flags().StringVar(&regenRunID, "run-id", "", "run identifier (generated when empty)")
	regenerateCmd.Flags().StringVar(&regenDestination, "destination", "", "only POIs of this destination")
	regenerateCmd.Flags().StringVar(&regenTier, "tier", "", "only POIs of this quality tier")
	regenerateCmd.Flags().IntVar(&regenLimit, "limit", 0, "maximum POIs to process")
	regenerateCmd.Flags().IntVar(&regenOffset, "offset", 0, "POIs to skip from the start")
	regenerateCmd.Flags().BoolVar(&regenResume, "resume", false, "resume from the run's checkpoint")
	regenerateCmd.Flags().BoolVar(&regenClearStaging, "clear-staging", false, "delete the run's unapplied staging rows first")
	regenerateCmd.Flags().BoolVar(&regenReportOnly, "report-only", false, "rebuild reports from the run's staged rows without calling the text service")
	rootCmd.AddCommand(regenerateCmd)
}
