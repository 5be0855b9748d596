package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
)

// reviewQueueLimit caps the per-destination review queue in the triage
// report. Everything beyond the cap is still in staging, just not inlined.
const reviewQueueLimit = 30

// FormatTriageReport generates the reviewer-facing markdown for one batch
// run: totals, a per-destination review queue sorted worst-first, and the
// failed candidates with their unsupported claims.
func FormatTriageReport(runID string, results []Result) string {
	stats := ComputeStats(results)

	var b strings.Builder
	fmt.Fprintf(&b, "# Triage Report: run %s\n", runID)
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- POIs processed: %d\n", stats.Total)
	fmt.Fprintf(&b, "- PASS: %d\n", stats.Verdicts[model.VerdictPass])
	fmt.Fprintf(&b, "- REVIEW: %d\n", stats.Verdicts[model.VerdictReview])
	fmt.Fprintf(&b, "- FAIL: %d\n", stats.Verdicts[model.VerdictFail])
	fmt.Fprintf(&b, "- Errors: %d\n", stats.Errors)
	fmt.Fprintf(&b, "- Avg hallucination rate: %.1f%%\n", stats.AvgHallucinationRate*100)
	fmt.Fprintf(&b, "- Word count compliance: %.0f%%\n\n", stats.WordCountCompliance()*100)

	b.WriteString("## Tier Breakdown\n")
	for _, tier := range []model.Tier{model.TierRich, model.TierModerate, model.TierMinimal, model.TierNone} {
		if n := stats.Tiers[tier]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", tier, n)
		}
	}
	b.WriteString("\n")

	writeReviewQueue(&b, results)
	writeFailures(&b, results)

	return b.String()
}

// writeReviewQueue lists the candidates needing human eyes, grouped by
// destination and sorted by hallucination rate descending so reviewers see
// the worst offenders first.
func writeReviewQueue(b *strings.Builder, results []Result) {
	byDest := make(map[string][]Result)
	for _, r := range results {
		if r.Row == nil || r.Row.Verification == nil {
			continue
		}
		if r.Row.Verification.Verdict != model.VerdictReview && r.Row.Status != model.StatusReviewRequired {
			continue
		}
		dest := r.Sheet.Destination
		byDest[dest] = append(byDest[dest], r)
	}

	b.WriteString("## Review Queue\n")
	if len(byDest) == 0 {
		b.WriteString("Empty. Nothing needs review.\n\n")
		return
	}

	dests := make([]string, 0, len(byDest))
	for d := range byDest {
		dests = append(dests, d)
	}
	sort.Strings(dests)

	for _, dest := range dests {
		queue := byDest[dest]
		sort.SliceStable(queue, func(i, j int) bool {
			return queue[i].Row.Verification.HallucinationRate > queue[j].Row.Verification.HallucinationRate
		})
		fmt.Fprintf(b, "### %s (%d)\n", dest, len(queue))
		shown := queue
		if len(shown) > reviewQueueLimit {
			shown = shown[:reviewQueueLimit]
		}
		for _, r := range shown {
			v := r.Row.Verification
			fmt.Fprintf(b, "- %s — %s: %.0f%% rate, %d unsupported, %d words [%s]\n",
				r.Row.POIID, r.Sheet.Name, v.HallucinationRate*100,
				len(v.UnsupportedClaims), r.Row.WordCount, r.Row.Tier)
		}
		if len(queue) > reviewQueueLimit {
			fmt.Fprintf(b, "- ... and %d more in staging\n", len(queue)-reviewQueueLimit)
		}
		b.WriteString("\n")
	}
}

// writeFailures details the FAIL verdicts with their unsupported claims so
// reviewers can judge without opening the raw verification output.
func writeFailures(b *strings.Builder, results []Result) {
	b.WriteString("## Failed Candidates\n")
	count := 0
	for _, r := range results {
		if r.Row == nil || r.Row.Verification == nil || r.Row.Verification.Verdict != model.VerdictFail {
			continue
		}
		count++
		v := r.Row.Verification
		fmt.Fprintf(b, "### %s — %s\n", r.Row.POIID, r.Sheet.Name)
		fmt.Fprintf(b, "Rate: %.0f%%, claims: %d/%d unsupported\n",
			v.HallucinationRate*100, len(v.UnsupportedClaims), v.ClaimsTotal)
		for _, c := range v.UnsupportedClaims {
			fmt.Fprintf(b, "- [%s] %s (%s)\n", c.Severity, c.Text, c.Reason)
		}
		b.WriteString("\n")
	}
	if count == 0 {
		b.WriteString("None.\n\n")
	}
}

// FormatRunSummary generates the short operator summary printed at the end
// of a batch run.
func FormatRunSummary(runID string, stats *RunStats, elapsed time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run Summary: %s\n", runID)
	fmt.Fprintf(&b, "Elapsed: %s\n\n", elapsed.Round(time.Second))

	fmt.Fprintf(&b, "- Processed: %d\n", stats.Total)
	fmt.Fprintf(&b, "- Generated: %d\n", stats.Generated)
	fmt.Fprintf(&b, "- Errors: %d\n", stats.Errors)
	for _, status := range []model.StagingStatus{model.StatusPending, model.StatusReviewRequired} {
		if n := stats.Statuses[status]; n > 0 {
			fmt.Fprintf(&b, "- Status %s: %d\n", status, n)
		}
	}
	fmt.Fprintf(&b, "- Avg words: %.0f\n", stats.AvgWordCount)
	fmt.Fprintf(&b, "- Avg hallucination rate: %.1f%%\n", stats.AvgHallucinationRate*100)
	if len(stats.HighSeverityPOIs) > 0 {
		fmt.Fprintf(&b, "- HIGH severity claims: %s\n", strings.Join(stats.HighSeverityPOIs, ", "))
	}
	return b.String()
}
