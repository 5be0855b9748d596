package prompt

import (
	"fmt"
	"strings"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
)

// fallbackDestination is used when a POI references a destination missing
// from the registry. The gate blocks such rows; the prompt still needs to
// render for dry runs and tests.
var fallbackDestination = model.Destination{
	Name:          "the destination",
	Preposition:   "in",
	LanguageNote:  "Use British English spelling (colour, centre, specialise).",
	LocaleContext: "a holiday destination",
}

// Generation builds the system and user message for regenerating one POI
// description from its fact sheet.
func Generation(fs *model.FactSheet, dest *model.Destination) (system, user string) {
	if dest == nil {
		dest = &fallbackDestination
	}
	return generationSystem(dest, fs.Tier), generationUser(fs, dest)
}

func generationSystem(dest *model.Destination, tier model.Tier) string {
	min, max := tier.WordTarget()

	locale := dest.LocaleContext
	if locale == "" {
		locale = fallbackDestination.LocaleContext
	}
	langNote := dest.LanguageNote
	if langNote == "" {
		langNote = fallbackDestination.LanguageNote
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `You are a professional tourism copywriter for %s, %s.
You write accurate, engaging descriptions for Points of Interest based EXCLUSIVELY on provided source data.

WORD COUNT: Write EXACTLY %d-%d words. Count carefully.

OUTPUT FORMAT:
- Output ONLY plain text. NO markdown, NO square brackets, NO hyperlinks, NO bullet points, NO numbered lists, NO special formatting.
- Start with a NATURAL opening — NEVER use: 'Tucked away', 'Nestled in', 'Located in', 'Situated in', 'Set in', 'Found in', 'Discover', 'Welcome to'.
- Mention the POI name naturally in the first sentence.

%s

LANGUAGE:
- %s
- Use '%s %s' (correct preposition for this destination).`,
		dest.Name, locale, min, max, structureRules(tier, dest), langNote, dest.Preposition, dest.Name)

	if dest.GeoRefs != "" {
		fmt.Fprintf(&sb, "\n- Reference %s where geographically relevant, but only if the source data supports it.", dest.GeoRefs)
	}

	fmt.Fprintf(&sb, `

%s

CRITICAL REMINDER: Every factual claim in your description MUST come DIRECTLY from the source data below. Do NOT:
- Add adjectives not in the source (cosy, unique, modern, vibrant, charming, stunning)
- Infer products/services from the venue name or category
- Describe what visitors "will experience" unless the source data says so
- Mention proximity to landmarks, the coast, or other features unless the source data explicitly states this
If the source data is thin, write a SHORTER description. Accuracy over length. ALWAYS.`, antiHallucinationRules)

	return sb.String()
}

// structureRules varies the writing structure by quality tier. Rich sheets
// get a full AIDA structure, thin ones a strict factual template.
func structureRules(tier model.Tier, dest *model.Destination) string {
	switch tier {
	case model.TierRich:
		return `WRITING STRUCTURE (AIDA — full):
- Attention (1-2 sentences): Open with a factual detail FROM THE SOURCE DATA that makes this place interesting.
- Interest (1-2 sentences): What makes this place special? Use ONLY details from source data.
- Desire (1-2 sentences): What can the visitor expect? Ground this in source data facts.
- Action (1 sentence): Practical call-to-action. Refer to website/contact for current details.`
	case model.TierModerate:
		return `WRITING STRUCTURE (AIDA — condensed):
- Attention (1 sentence): Open with a factual detail FROM THE SOURCE DATA.
- Interest (1-2 sentences): What makes this place worth visiting? Use ONLY source data.
- Action (1 sentence): Direct the reader to the website or contact for more information.`
	case model.TierMinimal:
		return `WRITING STRUCTURE (brief factual — STRICT):
- Opening (1 sentence): Introduce the venue using its name, category, and location.
- Description (1-2 sentences): Use ONLY whatever source data is available. If the data is thin, keep the description thin. Do NOT pad with assumptions or inferences.
- Action (1 sentence): Direct the reader to the website or contact for details.
- Do NOT add embellishment, atmosphere descriptions, or inferred offerings.`
	default:
		return fmt.Sprintf(`WRITING STRUCTURE (generic safe — MAXIMUM CAUTION):
- Write ONLY: "[Name] is a [category] %s [destination], located at [address if known]."
- Add ONE sentence directing the reader to visit or contact the venue for details.
- Do NOT describe what the venue offers, its atmosphere, its products, or what visitors can expect.
- Do NOT infer ANYTHING from the venue name (e.g., a bakery might not sell bread — you don't know).
- The ENTIRE description should be 2-3 sentences maximum.`, dest.Preposition)
	}
}

func generationUser(fs *model.FactSheet, dest *model.Destination) string {
	min, max := fs.Tier.WordTarget()

	city := fs.City
	if city == "" {
		city = dest.Name
	}
	website := fs.Website
	if website == "" {
		website = "Not available"
	}
	subcategory := fs.Subcategory
	if subcategory == "" {
		subcategory = "N/A"
	}

	facts := FormatVerifiedFacts(fs.Facts)
	if facts == "" {
		facts = "No verified facts available."
	}

	return fmt.Sprintf(`Write a tourism description for this Point of Interest.

=== POI INFORMATION ===
POI Name: %s
Category: %s
Subcategory: %s
Location: %s, %s
Google Rating: %s
Website: %s

=== SOURCE DATA (use ONLY this information) ===
%s

=== VERIFIED FACTS ===
%s

%s

%s

FINAL REMINDER: Write EXACTLY %d-%d words. Use ONLY facts from the source data above. If something is not in the source data, DO NOT include it. Accuracy is more important than engagement.`,
		fs.Name, fs.Category, subcategory, city, dest.Name, formatRating(fs),
		website, sourceSection(fs), facts, CategoryRules(fs.Category),
		tierGuidance(fs.Tier), min, max)
}

func formatRating(fs *model.FactSheet) string {
	if fs.Rating <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f/5 (%d reviews)", fs.Rating, fs.ReviewCount)
}

// FormatVerifiedFacts renders structured facts as prompt-ready lines.
// Returns the empty string when nothing is set.
func FormatVerifiedFacts(vf model.VerifiedFacts) string {
	var parts []string
	if vf.Address != "" {
		parts = append(parts, "Address: "+vf.Address)
	}
	if vf.Phone != "" {
		parts = append(parts, "Phone: "+vf.Phone)
	}
	if vf.Email != "" {
		parts = append(parts, "Email: "+vf.Email)
	}
	if vf.OpeningHours != "" {
		parts = append(parts, "Opening hours: "+vf.OpeningHours)
	}
	if vf.Prices != "" {
		parts = append(parts, "Prices: "+vf.Prices)
	}
	if len(vf.Features) > 0 {
		parts = append(parts, "Features/Services: "+strings.Join(capSlice(vf.Features, 15), ", "))
	}
	if len(vf.SocialLinks) > 0 {
		parts = append(parts, "Social media: "+strings.Join(capSlice(vf.SocialLinks, 5), ", "))
	}
	return strings.Join(parts, "\n")
}

func capSlice(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func sourceSection(fs *model.FactSheet) string {
	if fs.Tier == model.TierNone || strings.TrimSpace(fs.SourceText) == "" {
		return `NO SOURCE DATA AVAILABLE.
You have NO website content, NO scraped data, and NO detailed information about this venue.
Write ONLY a generic description based on the POI name, category, and location above.
Do NOT attempt to describe specific offerings, atmosphere, menu items, or experiences.`
	}
	return model.TruncateSourceText(fs.SourceText)
}

func tierGuidance(tier model.Tier) string {
	switch tier {
	case model.TierRich:
		return `DATA QUALITY: RICH — You have substantial source data.
- Use the source data to write a detailed AIDA description.
- You may include specific details (services, features, specialties) ONLY if they appear EXPLICITLY in the source data.
- Mention prices, hours, or facilities ONLY if they appear VERBATIM in the source data.
- Do NOT paraphrase source data too liberally — stay close to what is actually stated.
- Do NOT add embellishment adjectives not present in source data.
- For anything not explicitly stated in the source data, direct readers to the website.`
	case model.TierModerate:
		return `DATA QUALITY: MODERATE — You have some source data but it is limited.
- Write a focused description using available facts. Do not pad with invented details.
- If the source data mentions specific services or features, you may include those.
- Keep claims conservative — only state what the source data supports.
- Direct readers to the website for complete information.`
	case model.TierMinimal:
		return `DATA QUALITY: MINIMAL — Very little source data is available.
- Write a SHORT, factual description. Do NOT flesh it out with assumed or inferred details.
- Use ONLY the POI name, category, location, Google rating, and whatever minimal source data exists.
- Do NOT infer what the venue offers from its name or category. A "restaurant" could serve anything, so do not guess.
- Do NOT add atmosphere descriptions, embellishments, or "what to expect" claims.
- It is PREFERRED to write a brief description rather than fabricate details.
- Direct readers to the website or venue for all specific information.`
	default:
		return `DATA QUALITY: NONE — No source data available at all.
- Write ONLY a very brief factual description (2-3 sentences).
- Sentence 1: "[Name] is a [category type] [preposition] [destination]." Add address if available.
- Sentence 2: Mention Google rating if available.
- Sentence 3: "For details about [offerings/services/hours], visitors can contact the venue directly."
- Do NOT describe products, services, menus, atmosphere, experiences, or proximity to landmarks.
- Do NOT infer ANYTHING from the venue name or category type.
- A factual short description is infinitely better than a fabricated longer one.`
	}
}
