// Package review handles the human side of the approval machine: exporting
// staged candidates to a workbook reviewers can work through, and applying
// their decisions back onto the staging table.
package review

import (
	"context"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
	"github.com/FrankSpooren/HolidaiButler/internal/store"
)

// exportHeader is the workbook column layout. The last three columns are
// left blank for the reviewer; ParseDecisions reads them back.
var exportHeader = []string{
	"staging_id", "poi_id", "name", "tier", "status", "recommendation",
	"words", "band", "hallucination_rate", "high_severity", "unsupported_claims",
	"rationale", "current_text", "candidate_text",
	"decision", "edited_text", "notes",
}

// ExportOptions selects what goes into the review workbook.
type ExportOptions struct {
	RunID   string
	MaxRows int
}

// Export writes the run's rows awaiting review to an xlsx workbook, worst
// first: HIGH severity candidates on top, then by hallucination rate
// descending. Returns the number of rows exported.
func Export(ctx context.Context, st store.Store, path string, opts ExportOptions) (int, error) {
	if opts.RunID == "" {
		return 0, eris.New("review: run id required")
	}

	rows, err := st.ListStaging(ctx, store.StagingFilter{
		RunID:    opts.RunID,
		Statuses: []model.StagingStatus{model.StatusPending, model.StatusReviewRequired},
		Limit:    opts.MaxRows,
	})
	if err != nil {
		return 0, eris.Wrap(err, "review: list staging rows")
	}
	sortForReview(rows)

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Review")
	if err != nil {
		return 0, eris.Wrap(err, "review: add sheet")
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeader {
		headerRow.AddCell().SetString(h)
	}

	for i := range rows {
		writeRow(ctx, st, sheet, &rows[i])
	}

	if err := file.Save(path); err != nil {
		return 0, eris.Wrap(err, "review: save workbook")
	}

	zap.L().Info("review workbook exported",
		zap.String("run_id", opts.RunID),
		zap.String("path", path),
		zap.Int("rows", len(rows)),
	)
	return len(rows), nil
}

func writeRow(ctx context.Context, st store.Store, sheet *xlsx.Sheet, sr *model.StagingRow) {
	name := ""
	if fs, err := st.GetFactSheet(ctx, sr.POIID); err == nil && fs != nil {
		name = fs.Name
	}

	rate := 0.0
	high := false
	claims := ""
	if v := sr.Verification; v != nil {
		rate = v.HallucinationRate
		high = v.HasHighSeverity()
		for i, c := range v.UnsupportedClaims {
			if i > 0 {
				claims += "; "
			}
			claims += fmt.Sprintf("[%s] %s", c.Severity, c.Text)
		}
	}

	row := sheet.AddRow()
	row.AddCell().SetString(fmt.Sprintf("%d", sr.ID))
	row.AddCell().SetString(sr.POIID)
	row.AddCell().SetString(name)
	row.AddCell().SetString(string(sr.Tier))
	row.AddCell().SetString(string(sr.Status))
	row.AddCell().SetString(string(sr.Recommendation))
	row.AddCell().SetInt(sr.WordCount)
	row.AddCell().SetString(fmt.Sprintf("%d-%d", sr.WordTargetMin, sr.WordTargetMax))
	row.AddCell().SetFloat(rate)
	row.AddCell().SetBool(high)
	row.AddCell().SetString(claims)
	row.AddCell().SetString(sr.Rationale)
	row.AddCell().SetString(sr.OldContentSnapshot)
	row.AddCell().SetString(sr.CandidateText)
	row.AddCell().SetString("") // decision
	row.AddCell().SetString("") // edited_text
	row.AddCell().SetString("") // notes
}

// sortForReview orders rows HIGH severity first, then by hallucination rate
// descending, then by poi id for a stable layout.
func sortForReview(rows []model.StagingRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		vi, vj := rows[i].Verification, rows[j].Verification
		hi := vi != nil && vi.HasHighSeverity()
		hj := vj != nil && vj.HasHighSeverity()
		if hi != hj {
			return hi
		}
		ri, rj := 0.0, 0.0
		if vi != nil {
			ri = vi.HallucinationRate
		}
		if vj != nil {
			rj = vj.HallucinationRate
		}
		if ri != rj {
			return ri > rj
		}
		return rows[i].POIID < rows[j].POIID
	})
}
