package pipeline

import "github.com/FrankSpooren/HolidaiButler/internal/model"

// RunStats aggregates the outcome of a batch run for the summary report.
type RunStats struct {
	Total                int
	Generated            int
	Errors               int
	Verdicts             map[model.Verdict]int
	Statuses             map[model.StagingStatus]int
	Tiers                map[model.Tier]int
	WordCountOK          int
	AvgHallucinationRate float64
	AvgWordCount         float64
	HighSeverityPOIs     []string
}

// ComputeStats aggregates per-run numbers from the batch results. The
// average hallucination rate covers verified candidates only; rows whose
// verification errored would skew it with their pinned 1.0 rate.
func ComputeStats(results []Result) *RunStats {
	stats := &RunStats{
		Verdicts: make(map[model.Verdict]int),
		Statuses: make(map[model.StagingStatus]int),
		Tiers:    make(map[model.Tier]int),
	}

	rateSum := 0.0
	rateCount := 0
	wordSum := 0
	wordCount := 0

	for _, r := range results {
		stats.Total++
		if r.Err != nil {
			stats.Errors++
			continue
		}
		row := r.Row
		stats.Statuses[row.Status]++
		stats.Tiers[row.Tier]++
		if row.WordCount > 0 {
			stats.Generated++
			wordSum += row.WordCount
			wordCount++
			if row.WordCountOK {
				stats.WordCountOK++
			}
		}

		v := row.Verification
		if v == nil {
			continue
		}
		stats.Verdicts[v.Verdict]++
		if v.Verdict == model.VerdictError {
			stats.Errors++
			continue
		}
		rateSum += v.HallucinationRate
		rateCount++
		if v.HasHighSeverity() {
			stats.HighSeverityPOIs = append(stats.HighSeverityPOIs, row.POIID)
		}
	}

	if rateCount > 0 {
		stats.AvgHallucinationRate = rateSum / float64(rateCount)
	}
	if wordCount > 0 {
		stats.AvgWordCount = float64(wordSum) / float64(wordCount)
	}
	return stats
}

// WordCountCompliance returns the fraction of generated candidates whose
// word count landed inside the tier band.
func (s *RunStats) WordCountCompliance() float64 {
	if s.Generated <= 0 {
		return 0
	}
	return float64(s.WordCountOK) / float64(s.Generated)
}
