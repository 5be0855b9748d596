package review

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Column positions in the exported workbook. Must stay in sync with
// exportHeader.
const (
	colStagingID  = 0
	colDecision   = 14
	colEditedText = 15
	colNotes      = 16
)

// ParseWorkbook reads reviewer decisions back out of an exported workbook.
// Rows with an empty decision column are not decided yet and are skipped.
func ParseWorkbook(path string) ([]Decision, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "review: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("review: workbook has no sheets")
	}
	sheet := f.Sheets[0]

	var decisions []Decision
	for i, row := range sheet.Rows {
		if i == 0 {
			continue // header
		}
		if len(row.Cells) <= colDecision {
			continue
		}
		decision := strings.TrimSpace(row.Cells[colDecision].String())
		if decision == "" {
			continue
		}

		id, err := strconv.ParseInt(strings.TrimSpace(row.Cells[colStagingID].String()), 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "review: row %d: bad staging id", i+1)
		}

		d := Decision{StagingID: id, Decision: decision}
		if len(row.Cells) > colEditedText {
			d.EditedText = strings.TrimSpace(row.Cells[colEditedText].String())
		}
		if len(row.Cells) > colNotes {
			d.Notes = strings.TrimSpace(row.Cells[colNotes].String())
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}
