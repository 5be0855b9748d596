package model

import "time"

// FieldDescription is the production field this pipeline repairs. Translated
// variants use a language suffix, e.g. description_nl.
const FieldDescription = "description"

// TranslatedField returns the production field name for a language code.
// English is the canonical field without a suffix.
func TranslatedField(lang string) string {
	if lang == "" || lang == "en" {
		return FieldDescription
	}
	return FieldDescription + "_" + lang
}

// ProductionContent is the live content of one POI field.
type ProductionContent struct {
	POIID     string    `json:"poi_id"`
	FieldName string    `json:"field_name"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}
