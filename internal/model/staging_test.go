package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStagingTransitions(t *testing.T) {
	tests := []struct {
		from, to StagingStatus
		ok       bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusReviewRequired, true},
		{StatusPending, StatusApplied, false},
		{StatusReviewRequired, StatusApproved, true},
		{StatusReviewRequired, StatusRejected, true},
		{StatusReviewRequired, StatusApplied, false},
		{StatusApproved, StatusApplied, true},
		{StatusApproved, StatusRejected, true},
		{StatusApproved, StatusPending, false},
		{StatusApplied, StatusRejected, true}, // rollback only
		{StatusApplied, StatusApproved, false},
		{StatusRejected, StatusPending, false},
		{StatusRejected, StatusApproved, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestStagingTerminal(t *testing.T) {
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusApplied.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusApproved.Terminal())
	assert.False(t, StatusReviewRequired.Terminal())
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, StatusPending, InitialStatus(VerdictPass))
	assert.Equal(t, StatusPending, InitialStatus(VerdictReview))
	assert.Equal(t, StatusReviewRequired, InitialStatus(VerdictFail))
	assert.Equal(t, StatusReviewRequired, InitialStatus(VerdictError))
}

func TestRecommend(t *testing.T) {
	assert.Equal(t, RecommendManualReview, Recommend(nil))
	assert.Equal(t, RecommendManualReview, Recommend(ErrorVerification("boom")))

	withHigh := &Verification{
		Verdict:           VerdictFail,
		HallucinationRate: 0.25,
		UnsupportedClaims: []Claim{{Text: "free entry", Severity: SeverityHigh}},
	}
	assert.Equal(t, RecommendManualReview, Recommend(withHigh))

	failNoHigh := &Verification{
		Verdict:           VerdictFail,
		HallucinationRate: 0.25,
		UnsupportedClaims: []Claim{{Text: "open daily", Severity: SeverityLow}},
	}
	assert.Equal(t, RecommendUseCandidate, Recommend(failNoHigh))

	clean := &Verification{Verdict: VerdictPass}
	assert.Equal(t, RecommendUseCandidate, Recommend(clean))
}
