package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTier(t *testing.T) {
	tests := []struct {
		name                                 string
		website, subpage, google, highlights int
		sources                              int
		want                                 Tier
	}{
		{"rich: long website text, two sources", 150, 0, 0, 0, 2, TierRich},
		{"rich boundary: exactly 100 words, 2 sources", 100, 0, 0, 0, 2, TierRich},
		{"long website but single source is moderate", 150, 0, 0, 0, 1, TierModerate},
		{"moderate: website 50 words", 50, 0, 0, 0, 1, TierModerate},
		{"moderate: google plus highlights", 0, 0, 20, 10, 2, TierModerate},
		{"google alone below highlight floor is minimal", 0, 0, 30, 5, 1, TierMinimal},
		{"minimal: ten words total", 3, 3, 2, 2, 1, TierMinimal},
		{"none: nine words total", 3, 3, 2, 1, 1, TierNone},
		{"none: nothing", 0, 0, 0, 0, 0, TierNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveTier(tt.website, tt.subpage, tt.google, tt.highlights, tt.sources)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTierWordTarget(t *testing.T) {
	tests := []struct {
		tier     Tier
		min, max int
	}{
		{TierRich, 110, 140},
		{TierModerate, 85, 115},
		{TierMinimal, 55, 85},
		{TierNone, 30, 60},
	}
	for _, tt := range tests {
		min, max := tt.tier.WordTarget()
		assert.Equal(t, tt.min, min, string(tt.tier))
		assert.Equal(t, tt.max, max, string(tt.tier))
	}
}

func TestTierWithinTarget(t *testing.T) {
	// moderate band 85-115, 20% tolerance widens to 68-138
	assert.True(t, TierModerate.WithinTarget(100, 0.20))
	assert.True(t, TierModerate.WithinTarget(68, 0.20))
	assert.True(t, TierModerate.WithinTarget(138, 0.20))
	assert.False(t, TierModerate.WithinTarget(67, 0.20))
	assert.False(t, TierModerate.WithinTarget(139, 0.20))
	// zero tolerance is the bare band
	assert.True(t, TierModerate.WithinTarget(85, 0))
	assert.False(t, TierModerate.WithinTarget(84, 0))
}

func TestMergeEvidenceRaisesTier(t *testing.T) {
	fs := &FactSheet{POIID: "poi-1", Tier: TierNone}
	now := time.Now()
	cutoff := now.AddDate(0, -4, 0)

	fs.MergeEvidence(Evidence{
		Source:    "website",
		Text:      strings.Repeat("word ", 120),
		FetchedAt: now,
	}, cutoff)
	assert.Equal(t, TierModerate, fs.Tier)

	fs.MergeEvidence(Evidence{
		Source:    "google",
		Text:      strings.Repeat("word ", 30),
		FetchedAt: now,
	}, cutoff)
	assert.Equal(t, TierRich, fs.Tier)
	assert.False(t, fs.TierConflict)
}

func TestMergeEvidenceNeverLowersTier(t *testing.T) {
	// Sheet already rated rich from a previous run; new evidence alone
	// only supports minimal. Tier stays, conflict is flagged.
	fs := &FactSheet{POIID: "poi-1", Tier: TierRich}
	now := time.Now()
	cutoff := now.AddDate(0, -4, 0)

	fs.MergeEvidence(Evidence{
		Source:    "google",
		Text:      "short blurb about the place with a dozen words in it",
		FetchedAt: now,
	}, cutoff)

	assert.Equal(t, TierRich, fs.Tier)
	assert.True(t, fs.TierConflict)
}

func TestMergeEvidenceStaleDoesNotCount(t *testing.T) {
	fs := &FactSheet{POIID: "poi-1", Tier: TierNone}
	now := time.Now()
	cutoff := now.AddDate(0, -4, 0)

	fs.MergeEvidence(Evidence{
		Source:    "website",
		Text:      strings.Repeat("word ", 200),
		FetchedAt: now.AddDate(0, -6, 0),
	}, cutoff)

	// Stale evidence lands in the source text as background but never
	// raises the tier.
	assert.Equal(t, TierNone, fs.Tier)
	assert.Equal(t, 0, fs.WebsiteWords)
	assert.Equal(t, 0, fs.SourceCount)
	assert.Contains(t, fs.SourceText, "[background, may be outdated]")
}

func TestTruncateSourceText(t *testing.T) {
	short := strings.Repeat("a", 6000)
	assert.Equal(t, short, TruncateSourceText(short))

	long := strings.Repeat("a", 7000)
	got := TruncateSourceText(long)
	assert.Less(t, len(got), 6000)
	assert.True(t, strings.HasSuffix(got, "truncated ...]"))
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords("   \n\t"))
	assert.Equal(t, 3, CountWords("one two three"))
	assert.Equal(t, 3, CountWords("  one\ntwo\t three "))
}
