package review

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
	"github.com/FrankSpooren/HolidaiButler/internal/store"
)

// Decision kinds a reviewer can record.
const (
	DecisionUseCandidate = "use-candidate"
	DecisionUseEdited    = "use-edited-text"
	DecisionReject       = "reject"
)

// Decision is one reviewer call on a staged candidate.
type Decision struct {
	StagingID  int64  `json:"staging_id"`
	Decision   string `json:"decision"`
	EditedText string `json:"edited_text,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// ApplyOutcome summarizes one decisions pass.
type ApplyOutcome struct {
	Approved int      `json:"approved"`
	Edited   int      `json:"edited"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// LoadDecisions reads a decisions JSON file.
func LoadDecisions(path string) ([]Decision, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "review: read decisions file")
	}
	var decisions []Decision
	if err := json.Unmarshal(data, &decisions); err != nil {
		return nil, eris.Wrap(err, "review: parse decisions file")
	}
	return decisions, nil
}

// ApplyDecisions writes reviewer decisions onto the staging table. Each
// decision is independent; one bad entry does not stop the rest.
func ApplyDecisions(ctx context.Context, st store.Store, decisions []Decision, reviewer string) (*ApplyOutcome, error) {
	out := &ApplyOutcome{}

	for _, d := range decisions {
		if err := applyOne(ctx, st, d, reviewer, out); err != nil {
			zap.L().Warn("decision not applied",
				zap.Int64("staging_id", d.StagingID),
				zap.Error(err),
			)
			out.Errors = append(out.Errors, err.Error())
		}
	}

	zap.L().Info("review decisions applied",
		zap.Int("approved", out.Approved),
		zap.Int("edited", out.Edited),
		zap.Int("rejected", out.Rejected),
		zap.Int("errors", len(out.Errors)),
	)
	return out, nil
}

func applyOne(ctx context.Context, st store.Store, d Decision, reviewer string, out *ApplyOutcome) error {
	row, err := st.GetStagingByID(ctx, d.StagingID)
	if err != nil {
		return eris.Wrapf(err, "review: load staging row %d", d.StagingID)
	}
	if row == nil {
		return eris.Errorf("review: staging row %d not found", d.StagingID)
	}

	var target model.StagingStatus
	switch d.Decision {
	case DecisionUseCandidate:
		target = model.StatusApproved
	case DecisionUseEdited:
		if strings.TrimSpace(d.EditedText) == "" {
			return eris.Errorf("review: row %d: %s requires edited_text", d.StagingID, DecisionUseEdited)
		}
		target = model.StatusApproved
	case DecisionReject:
		target = model.StatusRejected
	default:
		return eris.Errorf("review: row %d: unknown decision %q", d.StagingID, d.Decision)
	}

	if !row.Status.CanTransitionTo(target) {
		return eris.Errorf("review: row %d: cannot move %s -> %s", d.StagingID, row.Status, target)
	}

	if d.Decision == DecisionUseEdited {
		text := strings.TrimSpace(d.EditedText)
		if err := st.UpdateStagingCandidate(ctx, d.StagingID, text, model.CountWords(text)); err != nil {
			return eris.Wrapf(err, "review: update candidate %d", d.StagingID)
		}
	}

	if err := st.UpdateStagingStatus(ctx, d.StagingID, target, reviewer, d.Notes); err != nil {
		return eris.Wrapf(err, "review: update status %d", d.StagingID)
	}

	switch d.Decision {
	case DecisionUseCandidate:
		out.Approved++
	case DecisionUseEdited:
		out.Edited++
	case DecisionReject:
		out.Rejected++
	}
	return nil
}
