package model

import "time"

// StagingStatus tracks a candidate description through the approval machine.
type StagingStatus string

const (
	StatusPending        StagingStatus = "pending"
	StatusApproved       StagingStatus = "approved"
	StatusRejected       StagingStatus = "rejected"
	StatusReviewRequired StagingStatus = "review_required"
	StatusApplied        StagingStatus = "applied"
)

// validTransitions holds the allowed status moves. applied→rejected exists
// only for rollback.
var validTransitions = map[StagingStatus][]StagingStatus{
	StatusPending:        {StatusApproved, StatusRejected, StatusReviewRequired},
	StatusReviewRequired: {StatusApproved, StatusRejected},
	StatusApproved:       {StatusApplied, StatusRejected},
	StatusApplied:        {StatusRejected},
}

// CanTransitionTo reports whether moving from s to next is a legal step.
func (s StagingStatus) CanTransitionTo(next StagingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions except rollback exist.
func (s StagingStatus) Terminal() bool {
	return s == StatusRejected || s == StatusApplied
}

// Recommendation is the triage hint attached to a staged candidate for
// human reviewers.
type Recommendation string

const (
	RecommendUseCandidate Recommendation = "use-candidate"
	RecommendManualReview Recommendation = "manual-review"
)

// StagingRow is one candidate description awaiting approval. Rows are
// keyed by (POIID, RunID); re-running a batch overwrites its own rows and
// never touches another run's.
type StagingRow struct {
	ID                 int64           `json:"id"`
	POIID              string          `json:"poi_id"`
	RunID              string          `json:"run_id"`
	FieldName          string          `json:"field_name"`
	Tier               Tier            `json:"tier"`
	CandidateText      string          `json:"candidate_text"`
	WordCount          int             `json:"word_count"`
	WordTargetMin      int             `json:"word_target_min"`
	WordTargetMax      int             `json:"word_target_max"`
	WordCountOK        bool            `json:"word_count_ok"`
	Verification       *Verification   `json:"verification,omitempty"`
	Status             StagingStatus   `json:"status"`
	Recommendation     Recommendation  `json:"recommendation"`
	Rationale          string          `json:"rationale,omitempty"`
	OldContentSnapshot string          `json:"old_content_snapshot,omitempty"`
	ReviewedBy         string          `json:"reviewed_by,omitempty"`
	ReviewNotes        string          `json:"review_notes,omitempty"`
	ReviewedAt         *time.Time      `json:"reviewed_at,omitempty"`
	AppliedAt          *time.Time      `json:"applied_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// InitialStatus maps a verification verdict to the status a freshly staged
// row starts in. Nothing enters the machine approved; approval is the
// safeguard gate's call.
func InitialStatus(v Verdict) StagingStatus {
	switch v {
	case VerdictPass, VerdictReview:
		return StatusPending
	default:
		return StatusReviewRequired
	}
}

// Recommend derives the reviewer triage hint from the verification result.
func Recommend(v *Verification) Recommendation {
	if v == nil || v.Verdict == VerdictError || v.HasHighSeverity() {
		return RecommendManualReview
	}
	return RecommendUseCandidate
}
