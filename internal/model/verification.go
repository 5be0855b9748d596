package model

// Verdict is the outcome of the fact-check pass over a candidate description.
type Verdict string

const (
	VerdictPass   Verdict = "PASS"
	VerdictReview Verdict = "REVIEW"
	VerdictFail   Verdict = "FAIL"
	VerdictError  Verdict = "ERROR"
)

// Severity grades of an unsupported claim.
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

// failRateThreshold is the hallucination rate above which a candidate fails
// outright. A rate of exactly the threshold is still REVIEW.
const failRateThreshold = 0.20

// Claim is one statement in the candidate text that the source material
// does not support.
type Claim struct {
	Text     string `json:"text"`
	Severity string `json:"severity"`
	Reason   string `json:"reason,omitempty"`
}

// Verification is the parsed result of the fact-check pass.
type Verification struct {
	Verdict           Verdict `json:"verdict"`
	HallucinationRate float64 `json:"hallucination_rate"`
	ClaimsTotal       int     `json:"claims_total"`
	UnsupportedClaims []Claim `json:"unsupported_claims,omitempty"`
	Summary           string  `json:"summary,omitempty"`
	Raw               string  `json:"-"` // raw model output, persisted separately
}

// HasHighSeverity reports whether any unsupported claim is graded HIGH.
func (v *Verification) HasHighSeverity() bool {
	for _, c := range v.UnsupportedClaims {
		if c.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// DeriveVerdict maps a hallucination rate and severity flag to a verdict.
// PASS requires a clean slate; anything above the fail threshold, or a
// single HIGH-severity claim, fails regardless of rate.
func DeriveVerdict(rate float64, hasHigh bool) Verdict {
	if hasHigh || rate > failRateThreshold {
		return VerdictFail
	}
	if rate == 0 {
		return VerdictPass
	}
	return VerdictReview
}

// ErrorVerification is the verification recorded when the fact-check pass
// itself failed. The rate of 1.0 guarantees the safeguard gate blocks it.
func ErrorVerification(summary string) *Verification {
	return &Verification{
		Verdict:           VerdictError,
		HallucinationRate: 1.0,
		Summary:           summary,
	}
}
