package prompt

import (
	"fmt"
	"strings"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
)

// verificationSystem instructs the fact-check pass. The JSON shape it demands
// matches model.Verification.
const verificationSystem = `You are a rigorous fact-checker for tourism content. Your job is to compare a generated POI description against the provided source data and identify any claims that are NOT supported by the source data.

You must be STRICT but FAIR.

CLASSIFICATION RULES:
- VERIFIED: The claim appears in the source data, either verbatim or as a faithful translation/paraphrase.
- TRANSLATED_OK: The claim is a faithful English translation of Dutch or Spanish source text. Since source data is often in Dutch or Spanish and the output is in English, accurate translations count as VERIFIED, not UNSUPPORTED. Example: source says "gezellig verfijnd" and output says "refined atmosphere" = TRANSLATED_OK (verified).
- UNSUPPORTED: The claim adds NEW information not present in ANY form in the source data. This includes:
  - Specific prices, distances, times not in source data
  - Specific menu items, products, services not in source data
  - Historical claims, awards, or superlatives not in source data
  - Sensory descriptions (aromas, sounds, atmosphere) not described in source data
  - Facilities or amenities not mentioned in source data
  - Embellishment adjectives (unique, stunning, charming) not in source data
  - Claims about what visitors "will experience" that go beyond source data
- GENERAL_OK: The claim is a reasonable general statement that doesn't require source data:
  - Mentioning the category type ("restaurant", "beach", "museum", "bakery", "parking") as this is verified metadata
  - Using the Google rating/review count (this IS verified data)
  - Mentioning the city/destination location
  - General call-to-action ("visit the website", "contact for details")
  - Inferring category from the POI name in a foreign language ("Panadería" = bakery, "Parkeerplaats" = parking) is GENERAL_OK, not unsupported
  - General geographic facts about the destination that are widely known

IMPORTANT: The source data is often in Dutch or Spanish. A claim in the English output that faithfully translates the source data should be classified as VERIFIED or TRANSLATED_OK, NOT as UNSUPPORTED.

OUTPUT FORMAT (JSON):
{
    "total_claims": <number>,
    "verified": <number>,
    "translated_ok": <number>,
    "unsupported": <number>,
    "general_ok": <number>,
    "unsupported_claims": [
        {"claim": "exact quote from description", "reason": "why this is not in source data", "severity": "HIGH|MEDIUM|LOW"}
    ],
    "hallucination_rate": <float 0.0-1.0 based on unsupported/total_claims>,
    "verdict": "PASS" | "REVIEW" | "FAIL",
    "suggested_fix": "brief suggestion if REVIEW/FAIL"
}

SEVERITY LEVELS for unsupported claims:
- HIGH: Invented prices, distances, specific products/services, historical facts, awards
- MEDIUM: Embellishment adjectives, inferred experiences, atmosphere not in source
- LOW: Minor paraphrase liberties, slight geographic assumptions

VERDICT THRESHOLDS:
- PASS: hallucination_rate = 0.0 (zero unsupported claims)
- REVIEW: hallucination_rate > 0.0 and <= 0.20 (minor unsupported claims, no HIGH severity)
- FAIL: hallucination_rate > 0.20 OR any HIGH severity unsupported claim

Be thorough but fair. Count each distinct factual claim separately. Remember: faithful translations are VERIFIED.`

// Verification builds the system and user message for fact-checking a
// generated description against its fact sheet.
func Verification(fs *model.FactSheet, generatedText string) (system, user string) {
	sourceText := model.TruncateSourceText(fs.SourceText)
	if strings.TrimSpace(sourceText) == "" {
		sourceText = "NO SOURCE DATA AVAILABLE — any specific claim should be marked UNSUPPORTED."
	}

	facts := FormatVerifiedFacts(fs.Facts)
	if facts == "" {
		facts = "No verified facts."
	}
	highlights := fs.Highlights
	if highlights == "" {
		highlights = "None available."
	}

	user = fmt.Sprintf(`Fact-check the following generated tourism description against the source data.

=== GENERATED DESCRIPTION (to verify) ===
%s

=== POI CONTEXT ===
POI Name: %s
Category: %s
Destination: %s
Google Rating: %s

=== SOURCE DATA (ground truth) ===
%s

=== VERIFIED FACTS ===
%s

=== HIGHLIGHTS (from Google/DB) ===
%s

Now analyze EVERY factual claim in the generated description. Output JSON only.`,
		generatedText, fs.Name, fs.Category, fs.Destination, formatRating(fs),
		sourceText, facts, highlights)

	return verificationSystem, user
}
