package prompt

import "strings"

// EmbellishmentWords are adjectives the generator is forbidden to add unless
// they appear in the source material. The safeguard gate scans candidate text
// for them as a warning signal.
var EmbellishmentWords = []string{
	"unique", "modern", "cosy", "convenient", "charming", "inviting",
	"vibrant", "bustling", "stunning", "perfect", "renowned", "legendary",
	"delightful",
}

// antiHallucinationRules is the shared rule block injected into every
// generation system prompt. Derived from per-error-type analysis of
// fabricated claims in previously published descriptions.
const antiHallucinationRules = `ANTI-HALLUCINATION RULES — ABSOLUTE, NON-NEGOTIABLE:

1. Use ONLY information that appears EXPLICITLY in the SOURCE DATA below. If something is not stated in the source data, DO NOT mention it — not even as an inference or reasonable assumption.
2. NEVER invent prices, costs, or fee amounts. Only mention prices if they appear VERBATIM in the source data.
3. NEVER invent distances (metres, kilometres, minutes walking). Do not estimate proximity to landmarks, the coast, or other features.
4. NEVER invent opening hours, days, or schedules. Only mention times if they appear VERBATIM in the source data.
5. NEVER invent specific menu items, dishes, or drinks unless they are EXPLICITLY listed in the source data. Do NOT infer products from the venue name or category (e.g., do NOT assume a bakery sells bread unless the source data says so).
6. NEVER invent facilities, amenities, or features (terraces, fireplaces, gardens, parking) unless EXPLICITLY stated in source data.
7. NEVER invent historical facts, founding years, or heritage claims unless documented in source data.
8. NEVER invent awards, ratings, certifications, or accolades (Michelin stars, TripAdvisor awards).
9. NEVER use embellishment adjectives that are not in the source data. Avoid: "unique", "modern", "cosy", "convenient", "charming", "inviting", "vibrant", "bustling", "stunning", "perfect", "renowned", "legendary", "delightful". Use NEUTRAL descriptive language instead.
10. NEVER invent sensory descriptions (aromas, sounds, atmosphere, textures) unless EXPLICITLY described in source data.
11. NEVER invent specific quantities (number of rooms, seats, wines, species) unless in source data.
12. NEVER infer what visitors "will experience" or "can expect" beyond what the source data explicitly states.
13. If the source data is limited, write a SHORTER description. A short accurate description is ALWAYS better than a longer fabricated one.
14. For current information (prices, hours, availability), direct the reader to the website or to contact the venue.
15. You may use the Google rating and review count as they are verified data.
16. You may state the venue category (restaurant, beach, museum, shop) as this is verified metadata.`

// categoryRules maps a POI category to extra guardrails matching that
// category's observed fabrication patterns. Categories appear in both the
// Dutch and English catalogue spellings.
var categoryRules = map[string]string{
	"Eten & Drinken": `CATEGORY RULES — Eten & Drinken (Food & Drinks):
- NEVER invent specific dishes, menu items, or drinks. Only mention items listed in source data.
- NEVER invent price ranges for meals or drinks.
- NEVER claim a restaurant is "the only" or "the best" unless source data confirms this.
- You may mention the cuisine TYPE (Dutch, Mediterranean, seafood) if evident from name, category, or source data.
- Direct readers to the menu or website for current offerings and prices.`,

	"Food & Drinks": `CATEGORY RULES — Food & Drinks:
- NEVER invent specific dishes, menu items, or drinks. Only mention items listed in source data.
- NEVER invent price ranges for meals or drinks.
- NEVER claim a restaurant is "the only" or "the best" unless source data confirms this.
- You may mention the cuisine TYPE (Spanish, Mediterranean, tapas) if evident from name, category, or source data.
- Direct readers to the menu or website for current offerings and prices.`,

	"Natuur": `CATEGORY RULES — Natuur (Nature):
- NEVER invent specific wildlife species, plant names, or observation statistics.
- NEVER invent trail lengths, walking times, or distances.
- You may use general nature descriptions (dunes, beaches, forests, mudflats) if consistent with the destination's geography.
- For nature reserves: mention access rules only if in source data.`,

	"Beaches & Nature": `CATEGORY RULES — Beaches & Nature:
- NEVER invent specific beach lengths, water temperatures, or wildlife counts.
- NEVER invent distances to the beach or walking times.
- You may use general geographical descriptions consistent with the destination's geography.
- For nature areas: mention access rules only if in source data.`,

	"Cultuur & Historie": `CATEGORY RULES — Cultuur & Historie (Culture & History):
- NEVER invent founding dates, historical events, or heritage claims.
- NEVER invent exhibition details, collection sizes, or artist names unless in source data.
- NEVER invent entry fees or opening hours.
- You may reference the destination's general heritage if contextually appropriate.`,

	"Culture & History": `CATEGORY RULES — Culture & History:
- NEVER invent founding dates, historical events, or heritage claims.
- NEVER invent exhibition details, collection sizes, or artist names unless in source data.
- NEVER invent entry fees or opening hours.
- You may reference the destination's general heritage if contextually appropriate.`,

	"Winkelen": `CATEGORY RULES — Winkelen (Shopping):
- NEVER invent specific products, brands, or price ranges.
- NEVER invent store layouts or atmosphere details.
- You may mention the GENERAL type of shop (souvenir, clothing, local produce) from category/name context.`,

	"Shopping": `CATEGORY RULES — Shopping:
- NEVER invent specific products, brands, or price ranges.
- NEVER invent store layouts or atmosphere details.
- You may mention the GENERAL type of shop if evident from the name or category.`,

	"Recreatief": `CATEGORY RULES — Recreatief (Recreation):
- NEVER invent specific activities, equipment details, or session durations.
- NEVER invent prices for activities or rentals.
- You may mention the general TYPE of recreation from the category/name.`,

	"Recreation": `CATEGORY RULES — Recreation:
- NEVER invent specific activities, equipment details, or session durations.
- NEVER invent prices for activities or rentals.
- You may mention the general TYPE of recreation from the category/name.`,

	"Actief": `CATEGORY RULES — Actief (Active):
- NEVER invent route lengths, difficulty levels, or duration estimates.
- NEVER invent equipment specifications or group sizes.
- NEVER invent prices for tours, lessons, or rentals.
- You may describe the general NATURE of the activity from category/name context.`,

	"Active": `CATEGORY RULES — Active:
- NEVER invent route lengths, difficulty levels, or duration estimates.
- NEVER invent equipment specifications or group sizes.
- NEVER invent prices for tours, lessons, or rentals.
- You may describe the general NATURE of the activity from category/name context.`,

	"Gezondheid & Verzorging": `CATEGORY RULES — Gezondheid & Verzorging (Health & Wellness):
- NEVER invent specific treatments, services, or their prices.
- NEVER invent qualifications or certifications of practitioners.
- You may mention the general TYPE of service (wellness, beauty, healthcare) from category/name.`,

	"Health & Wellness": `CATEGORY RULES — Health & Wellness:
- NEVER invent specific treatments, services, or their prices.
- NEVER invent qualifications or certifications of practitioners.
- You may mention the general TYPE of service from category/name.`,

	"Praktisch": `CATEGORY RULES — Praktisch (Practical):
- NEVER invent specific services, prices, or availability.
- Focus on factual, practical information from source data.
- Direct readers to the website or phone number for current details.`,

	"Practical": `CATEGORY RULES — Practical:
- NEVER invent specific services, prices, or availability.
- Focus on factual, practical information from source data.
- Direct readers to the website or phone number for current details.`,
}

const defaultCategoryRules = `CATEGORY RULES:
- NEVER invent specific details about products, services, or features not in source data.
- You may describe the general nature of this venue from the category and name context.
- Direct readers to the website for current details.`

// CategoryRules returns the guardrail block for a category, falling back to
// a case-insensitive match and then the generic block.
func CategoryRules(category string) string {
	if rules, ok := categoryRules[category]; ok {
		return rules
	}
	for key, rules := range categoryRules {
		if strings.EqualFold(key, category) {
			return rules
		}
	}
	return defaultCategoryRules
}
