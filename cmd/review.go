package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/FrankSpooren/HolidaiButler/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Export candidates for human review and apply decisions",
}

var (
	reviewExportRunID string
	reviewExportOut   string
)

var reviewExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the run's rows awaiting review to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if reviewExportRunID == "" {
			return eris.New("--run-id is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		path := reviewExportOut
		if path == "" {
			path = fmt.Sprintf("review-%s.xlsx", reviewExportRunID)
		}

		n, err := review.Export(ctx, st, path, review.ExportOptions{
			RunID:   reviewExportRunID,
			MaxRows: cfg.Review.MaxRows,
		})
		if err != nil {
			return eris.Wrap(err, "review export")
		}

		fmt.Printf("exported %d rows to %s\n", n, path)
		return nil
	},
}

var reviewApplyBy string

var reviewApplyCmd = &cobra.Command{
	Use:   "apply <decisions.json|workbook.xlsx>",
	Short: "Apply reviewer decisions to the staging table",
	Long:  "Reads decisions from a JSON file or from the decision columns of an exported workbook, then moves the staging rows accordingly.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var decisions []review.Decision
		var err error
		if strings.HasSuffix(args[0], ".xlsx") {
			decisions, err = review.ParseWorkbook(args[0])
		} else {
			decisions, err = review.LoadDecisions(args[0])
		}
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		out, err := review.ApplyDecisions(ctx, st, decisions, reviewApplyBy)
		if err != nil {
			return eris.Wrap(err, "review apply")
		}

		fmt.Printf("approved %d, edited %d, rejected %d, errors %d\n",
			out.Approved, out.Edited, out.Rejected, len(out.Errors))
		for _, e := range out.Errors {
			fmt.Printf("error: %s\n", e)
		}
		return nil
	},
}

func init() {
	reviewExportCmd.Flags().StringVar(&reviewExportRunID, "run-id", "", "run to export")
	reviewExportCmd.Flags().StringVar(&reviewExportOut, "out", "", "workbook path (default review-<run-id>.xlsx)")
	reviewApplyCmd.Flags().StringVar(&reviewApplyBy, "by", "reviewer", "name recorded on reviewed rows")
	reviewCmd.AddCommand(reviewExportCmd)
	reviewCmd.AddCommand(reviewApplyCmd)
	rootCmd.AddCommand(reviewCmd)
}
