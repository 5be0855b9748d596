package model

import (
	"strings"
	"time"
)

// Tier classifies how much verified source material exists for a POI.
// Richer tiers permit longer, more specific descriptions.
type Tier string

const (
	TierRich     Tier = "rich"
	TierModerate Tier = "moderate"
	TierMinimal  Tier = "minimal"
	TierNone     Tier = "none"
)

// tierRank orders tiers from weakest to strongest.
var tierRank = map[Tier]int{
	TierNone:     0,
	TierMinimal:  1,
	TierModerate: 2,
	TierRich:     3,
}

// Rank returns the tier's position in the quality ordering (none=0, rich=3).
func (t Tier) Rank() int {
	return tierRank[t]
}

// WordTarget returns the inclusive word-count band for descriptions at this tier.
func (t Tier) WordTarget() (min, max int) {
	switch t {
	case TierRich:
		return 110, 140
	case TierModerate:
		return 85, 115
	case TierMinimal:
		return 55, 85
	default:
		return 30, 60
	}
}

const (
	// maxSourceTextLen caps the evidence text handed to the generator.
	maxSourceTextLen = 6000
	// sourceTextCutAt is where over-long evidence is cut before the marker.
	sourceTextCutAt  = 5500
	truncationMarker = "\n[... source material truncated ...]"
)

// VerifiedFacts holds the structured facts a description may state.
// Anything not present here must not appear in generated text.
type VerifiedFacts struct {
	Address      string   `json:"address,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Email        string   `json:"email,omitempty"`
	OpeningHours string   `json:"opening_hours,omitempty"`
	Prices       string   `json:"prices,omitempty"`
	Features     []string `json:"features,omitempty"`
	SocialLinks  []string `json:"social_links,omitempty"`
}

// Evidence is one piece of source material about a POI.
type Evidence struct {
	Source    string    `json:"source"` // website, subpage, google, highlight, social, scrape
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FactSheet is the verified source material for one POI, the only input
// the generator is allowed to draw facts from.
type FactSheet struct {
	POIID        string        `json:"poi_id"`
	Name         string        `json:"name"`
	Category     string        `json:"category"`
	Subcategory  string        `json:"subcategory,omitempty"`
	Destination  string        `json:"destination"`
	City         string        `json:"city,omitempty"`
	Website      string        `json:"website,omitempty"`
	Rating       float64       `json:"rating,omitempty"`
	ReviewCount  int           `json:"review_count,omitempty"`
	Highlights   string        `json:"highlights,omitempty"`
	Latitude     float64       `json:"latitude,omitempty"`
	Longitude    float64       `json:"longitude,omitempty"`
	Tier         Tier          `json:"tier"`
	TierConflict bool          `json:"tier_conflict,omitempty"`
	SourceText   string        `json:"source_text"`
	Facts        VerifiedFacts `json:"facts"`

	WebsiteWords   int `json:"website_words"`
	SubpageWords   int `json:"subpage_words"`
	GoogleWords    int `json:"google_words"`
	HighlightWords int `json:"highlight_words"`
	SourceCount    int `json:"source_count"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DeriveTier maps evidence volume to a quality tier.
func DeriveTier(websiteWords, subpageWords, googleWords, highlightWords, sourceCount int) Tier {
	if websiteWords >= 100 && sourceCount >= 2 {
		return TierRich
	}
	if websiteWords >= 50 || (googleWords >= 20 && highlightWords >= 10) {
		return TierModerate
	}
	if websiteWords+subpageWords+googleWords+highlightWords >= 10 {
		return TierMinimal
	}
	return TierNone
}

// MergeEvidence folds a new piece of evidence into the sheet. The tier never
// decreases: when fresh evidence supports a lower tier than the stored one,
// the sheet keeps its tier and TierConflict is set for the gate to surface.
// Evidence fetched before cutoff is appended as background only; it does not
// count toward word totals and cannot raise the tier.
func (fs *FactSheet) MergeEvidence(ev Evidence, cutoff time.Time) {
	stale := ev.FetchedAt.Before(cutoff)

	if !stale {
		words := CountWords(ev.Text)
		switch ev.Source {
		case "website":
			fs.WebsiteWords += words
		case "subpage":
			fs.SubpageWords += words
		case "google":
			fs.GoogleWords += words
		case "highlight":
			fs.HighlightWords += words
		}
		fs.SourceCount++
	}

	text := ev.Text
	if stale {
		text = "[background, may be outdated] " + text
	}
	if fs.SourceText == "" {
		fs.SourceText = text
	} else {
		fs.SourceText += "\n\n" + text
	}
	fs.SourceText = TruncateSourceText(fs.SourceText)

	derived := DeriveTier(fs.WebsiteWords, fs.SubpageWords, fs.GoogleWords, fs.HighlightWords, fs.SourceCount)
	switch {
	case derived.Rank() > fs.Tier.Rank():
		fs.Tier = derived
		fs.TierConflict = false
	case derived.Rank() < fs.Tier.Rank():
		fs.TierConflict = true
	}
}

// TruncateSourceText bounds evidence text so prompts stay within budget.
func TruncateSourceText(s string) string {
	if len(s) <= maxSourceTextLen {
		return s
	}
	return s[:sourceTextCutAt] + truncationMarker
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// WithinTarget reports whether n falls inside the tier's word band widened
// by tolerance on each side (tolerance 0.20 widens the band by 20%).
func (t Tier) WithinTarget(n int, tolerance float64) bool {
	min, max := t.WordTarget()
	lo := int(float64(min) * (1 - tolerance))
	hi := int(float64(max) * (1 + tolerance))
	return n >= lo && n <= hi
}
