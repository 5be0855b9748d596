package pipeline

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
)

// verificationWire mirrors the JSON shape the fact-check prompt demands.
type verificationWire struct {
	Verdict           string      `json:"verdict"`
	HallucinationRate float64     `json:"hallucination_rate"`
	TotalClaims       int         `json:"total_claims"`
	Unsupported       int         `json:"unsupported"`
	UnsupportedClaims []claimWire `json:"unsupported_claims"`
	SuggestedFix      string      `json:"suggested_fix"`
}

type claimWire struct {
	Claim    string `json:"claim"`
	Reason   string `json:"reason"`
	Severity string `json:"severity"`
}

var (
	jsonBlockRe = regexp.MustCompile(`\{[\s\S]*\}`)
	verdictRe   = regexp.MustCompile(`"verdict"\s*:\s*"(PASS|REVIEW|FAIL)"`)
	rateRe      = regexp.MustCompile(`"hallucination_rate"\s*:\s*([\d.]+)`)
	unsuppRe    = regexp.MustCompile(`"unsupported"\s*:\s*(\d+)`)
	totalRe     = regexp.MustCompile(`"total_claims"\s*:\s*(\d+)`)
)

// ParseVerification turns the fact-check model's response into a
// Verification. Models wrap the JSON in markdown fences or truncate it at
// the token limit, so parsing degrades in steps: full JSON, then regex
// field extraction, then a bare verdict token scan. Anything less yields
// an ERROR verification that routes the candidate to manual review.
func ParseVerification(response string) *model.Verification {
	response = strings.TrimSpace(response)

	if block := jsonBlockRe.FindString(response); block != "" {
		var wire verificationWire
		if err := json.Unmarshal([]byte(block), &wire); err == nil {
			return fromWire(wire, response)
		}
	}

	// Truncated JSON: pull the scalar fields out directly.
	if m := verdictRe.FindStringSubmatch(response); m != nil {
		v := &model.Verification{
			Verdict:           model.Verdict(m[1]),
			HallucinationRate: 0.5,
			Summary:           "extracted from truncated response",
			Raw:               response,
		}
		if rm := rateRe.FindStringSubmatch(response); rm != nil {
			if rate, err := strconv.ParseFloat(rm[1], 64); err == nil {
				v.HallucinationRate = rate
			}
		}
		if tm := totalRe.FindStringSubmatch(response); tm != nil {
			v.ClaimsTotal, _ = strconv.Atoi(tm[1])
		}
		// Claims list is gone; keep the unsupported count in the summary.
		if um := unsuppRe.FindStringSubmatch(response); um != nil {
			v.Summary = "extracted from truncated response (" + um[1] + " unsupported)"
		}
		return v
	}

	// Last resort: a bare verdict word somewhere in the response.
	for _, candidate := range []struct {
		verdict model.Verdict
		rate    float64
	}{
		{model.VerdictPass, 0.0},
		{model.VerdictReview, 0.15},
		{model.VerdictFail, 0.30},
	} {
		if strings.Contains(response, string(candidate.verdict)) {
			return &model.Verification{
				Verdict:           candidate.verdict,
				HallucinationRate: candidate.rate,
				Summary:           "fallback: found " + string(candidate.verdict) + " in response text",
				Raw:               response,
			}
		}
	}

	v := model.ErrorVerification("could not parse verification response")
	if len(response) > 500 {
		response = response[:500]
	}
	v.Raw = response
	return v
}

func fromWire(wire verificationWire, raw string) *model.Verification {
	claims := make([]model.Claim, 0, len(wire.UnsupportedClaims))
	for _, c := range wire.UnsupportedClaims {
		claims = append(claims, model.Claim{
			Text:     c.Claim,
			Severity: strings.ToUpper(c.Severity),
			Reason:   c.Reason,
		})
	}

	v := &model.Verification{
		Verdict:           model.Verdict(strings.ToUpper(wire.Verdict)),
		HallucinationRate: wire.HallucinationRate,
		ClaimsTotal:       wire.TotalClaims,
		UnsupportedClaims: claims,
		Summary:           wire.SuggestedFix,
		Raw:               raw,
	}

	// Models sometimes omit the verdict field; derive it from the numbers.
	switch v.Verdict {
	case model.VerdictPass, model.VerdictReview, model.VerdictFail:
	default:
		v.Verdict = model.DeriveVerdict(v.HallucinationRate, v.HasHighSeverity())
	}
	return v
}
