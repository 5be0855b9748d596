package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveVerdict(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		hasHigh bool
		want    Verdict
	}{
		{"zero rate passes", 0, false, VerdictPass},
		{"small rate is review", 0.05, false, VerdictReview},
		{"rate at threshold is still review", 0.20, false, VerdictReview},
		{"rate above threshold fails", 0.21, false, VerdictFail},
		{"high severity fails regardless of rate", 0.05, true, VerdictFail},
		{"high severity fails even at zero rate", 0, true, VerdictFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveVerdict(tt.rate, tt.hasHigh))
		})
	}
}

func TestHasHighSeverity(t *testing.T) {
	v := &Verification{UnsupportedClaims: []Claim{
		{Text: "open daily", Severity: SeverityLow},
		{Text: "founded in 1890", Severity: SeverityMedium},
	}}
	assert.False(t, v.HasHighSeverity())

	v.UnsupportedClaims = append(v.UnsupportedClaims, Claim{Text: "free entry", Severity: SeverityHigh})
	assert.True(t, v.HasHighSeverity())
}

func TestErrorVerification(t *testing.T) {
	v := ErrorVerification("verification call failed")
	assert.Equal(t, VerdictError, v.Verdict)
	assert.Equal(t, 1.0, v.HallucinationRate)
	assert.Equal(t, "verification call failed", v.Summary)
}
