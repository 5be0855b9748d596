package store

import (
	"context"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
)

// FactSheetFilter specifies criteria for listing fact sheets.
type FactSheetFilter struct {
	Destination string     `json:"destination,omitempty"`
	Tier        model.Tier `json:"tier,omitempty"`
	Limit       int        `json:"limit,omitempty"`
	Offset      int        `json:"offset,omitempty"`
}

// StagingFilter specifies criteria for listing staging rows.
type StagingFilter struct {
	RunID    string                `json:"run_id,omitempty"`
	POIID    string                `json:"poi_id,omitempty"`
	Statuses []model.StagingStatus `json:"statuses,omitempty"`
	Limit    int                   `json:"limit,omitempty"`
	Offset   int                   `json:"offset,omitempty"`
}

// Store defines the persistence interface for the content repair pipeline.
type Store interface {
	// Fact sheets
	UpsertFactSheets(ctx context.Context, sheets []model.FactSheet) (int64, error)
	GetFactSheet(ctx context.Context, poiID string) (*model.FactSheet, error)
	ListFactSheets(ctx context.Context, filter FactSheetFilter) ([]model.FactSheet, error)
	CountFactSheetsByTier(ctx context.Context) (map[model.Tier]int, error)

	// Staging
	UpsertStaging(ctx context.Context, row *model.StagingRow) (int64, error)
	GetStaging(ctx context.Context, poiID, runID string) (*model.StagingRow, error)
	GetStagingByID(ctx context.Context, id int64) (*model.StagingRow, error)
	ListStaging(ctx context.Context, filter StagingFilter) ([]model.StagingRow, error)
	UpdateStagingStatus(ctx context.Context, id int64, status model.StagingStatus, reviewedBy, notes string) error
	UpdateStagingCandidate(ctx context.Context, id int64, candidateText string, wordCount int) error
	ClearStagingRun(ctx context.Context, runID string) (int64, error)
	CountStagingByStatus(ctx context.Context, runID string) (map[model.StagingStatus]int, error)

	// Production content. Promotion writes production inside its own
	// transactions; UpsertProduction serves the translation fan-out, which
	// has no staging row to keep in sync.
	GetProduction(ctx context.Context, poiID, fieldName string) (*model.ProductionContent, error)
	UpsertProduction(ctx context.Context, pc *model.ProductionContent) error

	// Audit trail (append-only; written inside promotion transactions,
	// read here)
	ListAuditEntries(ctx context.Context, poiID, fieldName string, limit int) ([]model.AuditEntry, error)

	// Run checkpoints
	SaveCheckpoint(ctx context.Context, runID string, data []byte) error
	LoadCheckpoint(ctx context.Context, runID string) ([]byte, error)
	DeleteCheckpoint(ctx context.Context, runID string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
