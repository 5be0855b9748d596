package model

import "time"

// ChangeSource records what caused a production content change.
type ChangeSource string

const (
	SourcePipeline ChangeSource = "pipeline"
	SourceReview   ChangeSource = "review"
	SourceRollback ChangeSource = "rollback"
)

// AuditEntry is one append-only record of a production content change.
// Entries are never updated or deleted; rollback writes a new entry.
type AuditEntry struct {
	ID           int64        `json:"id"`
	POIID        string       `json:"poi_id"`
	FieldName    string       `json:"field_name"`
	OldContent   string       `json:"old_content"`
	NewContent   string       `json:"new_content"`
	ChangeSource ChangeSource `json:"change_source"`
	RunID        string       `json:"run_id,omitempty"`
	StagingID    int64        `json:"staging_id,omitempty"`
	ChangedBy    string       `json:"changed_by,omitempty"`
	ChangedAt    time.Time    `json:"changed_at"`
}
