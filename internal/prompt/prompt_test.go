package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
)

var calpe = model.Destination{
	ID:            "calpe",
	Name:          "Calpe",
	Preposition:   "in",
	LanguageNote:  "Use British English spelling (colour, centre, specialise).",
	GeoRefs:       "the Peñón de Ifach, the Mediterranean Sea, or the Costa Blanca",
	LocaleContext: "a coastal town on Spain's Costa Blanca",
}

func richSheet() *model.FactSheet {
	return &model.FactSheet{
		POIID:       "poi-1",
		Name:        "Restaurante El Faro",
		Category:    "Food & Drinks",
		Subcategory: "Restaurant",
		Destination: "calpe",
		City:        "Calpe",
		Website:     "https://www.elfaro-calpe.com",
		Rating:      4.6,
		ReviewCount: 312,
		Tier:        model.TierRich,
		SourceText:  "WEBSITE CONTENT:\nEl Faro serves fresh fish from the Calpe fleet.",
		Facts: model.VerifiedFacts{
			Address:  "Avenida del Puerto 12, 03710 Calpe",
			Phone:    "+34 965 830 000",
			Features: []string{"fresh fish", "harbour views"},
		},
	}
}

func TestGeneration_RichTier(t *testing.T) {
	fs := richSheet()
	system, user := Generation(fs, &calpe)

	assert.Contains(t, system, "professional tourism copywriter for Calpe")
	assert.Contains(t, system, "Write EXACTLY 110-140 words")
	assert.Contains(t, system, "AIDA — full")
	assert.Contains(t, system, "'in Calpe'")
	assert.Contains(t, system, "Peñón de Ifach")
	assert.Contains(t, system, "ANTI-HALLUCINATION RULES")

	assert.Contains(t, user, "POI Name: Restaurante El Faro")
	assert.Contains(t, user, "4.6/5 (312 reviews)")
	assert.Contains(t, user, "fresh fish from the Calpe fleet")
	assert.Contains(t, user, "Address: Avenida del Puerto 12")
	assert.Contains(t, user, "CATEGORY RULES — Food & Drinks")
	assert.Contains(t, user, "DATA QUALITY: RICH")
	assert.Contains(t, user, "Write EXACTLY 110-140 words")
}

func TestGeneration_TierStructures(t *testing.T) {
	tests := []struct {
		tier model.Tier
		want string
	}{
		{model.TierRich, "AIDA — full"},
		{model.TierModerate, "AIDA — condensed"},
		{model.TierMinimal, "brief factual — STRICT"},
		{model.TierNone, "generic safe — MAXIMUM CAUTION"},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			fs := richSheet()
			fs.Tier = tt.tier
			system, _ := Generation(fs, &calpe)
			assert.Contains(t, system, tt.want)
		})
	}
}

func TestGeneration_NoneTierHidesSourceData(t *testing.T) {
	fs := richSheet()
	fs.Tier = model.TierNone
	fs.SourceText = ""

	_, user := Generation(fs, &calpe)
	assert.Contains(t, user, "NO SOURCE DATA AVAILABLE")
	assert.Contains(t, user, "DATA QUALITY: NONE")
	assert.Contains(t, user, "Write EXACTLY 30-60 words")
}

func TestGeneration_NilDestinationFallsBack(t *testing.T) {
	fs := richSheet()
	system, user := Generation(fs, nil)

	assert.Contains(t, system, "the destination")
	assert.NotEmpty(t, user)
}

func TestGeneration_TruncatesLongSourceText(t *testing.T) {
	fs := richSheet()
	fs.SourceText = strings.Repeat("words and more words ", 500)

	_, user := Generation(fs, &calpe)
	assert.Contains(t, user, "truncated")
}

func TestGeneration_NoRatingRendersNA(t *testing.T) {
	fs := richSheet()
	fs.Rating = 0
	fs.ReviewCount = 0

	_, user := Generation(fs, &calpe)
	assert.Contains(t, user, "Google Rating: N/A")
}

func TestCategoryRules(t *testing.T) {
	assert.Contains(t, CategoryRules("Food & Drinks"), "NEVER invent specific dishes")
	assert.Contains(t, CategoryRules("Eten & Drinken"), "Eten & Drinken")
	// Case-insensitive fallback.
	assert.Contains(t, CategoryRules("shopping"), "NEVER invent specific products")
	// Unknown categories get the generic block.
	assert.Equal(t, defaultCategoryRules, CategoryRules("Spaceports"))
}

func TestFormatVerifiedFacts(t *testing.T) {
	out := FormatVerifiedFacts(model.VerifiedFacts{
		Address:      "Main Street 1",
		OpeningHours: "Mon-Fri 9-17",
		Features:     []string{"terrace", "parking"},
	})
	assert.Contains(t, out, "Address: Main Street 1")
	assert.Contains(t, out, "Opening hours: Mon-Fri 9-17")
	assert.Contains(t, out, "Features/Services: terrace, parking")
	assert.NotContains(t, out, "Phone")

	assert.Empty(t, FormatVerifiedFacts(model.VerifiedFacts{}))
}

func TestFormatVerifiedFacts_CapsLists(t *testing.T) {
	features := make([]string, 30)
	for i := range features {
		features[i] = "feature"
	}
	out := FormatVerifiedFacts(model.VerifiedFacts{Features: features})
	assert.Equal(t, 15, strings.Count(out, "feature"))
}

func TestVerification(t *testing.T) {
	fs := richSheet()
	system, user := Verification(fs, "El Faro is a seafood restaurant in Calpe.")

	assert.Contains(t, system, "rigorous fact-checker")
	assert.Contains(t, system, `"verdict": "PASS" | "REVIEW" | "FAIL"`)
	assert.Contains(t, system, "TRANSLATED_OK")

	assert.Contains(t, user, "El Faro is a seafood restaurant in Calpe.")
	assert.Contains(t, user, "fresh fish from the Calpe fleet")
	assert.Contains(t, user, "Output JSON only.")
}

func TestVerification_EmptySourceData(t *testing.T) {
	fs := richSheet()
	fs.SourceText = "   "
	fs.Facts = model.VerifiedFacts{}

	_, user := Verification(fs, "Some text.")
	assert.Contains(t, user, "NO SOURCE DATA AVAILABLE")
	assert.Contains(t, user, "No verified facts.")
	require.Contains(t, user, "None available.")
}

func TestEmbellishmentWordsMatchRules(t *testing.T) {
	for _, w := range EmbellishmentWords {
		assert.Contains(t, antiHallucinationRules, `"`+w+`"`)
	}
}
