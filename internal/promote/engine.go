// Package promote moves approved staged candidates into production. Every
// apply is one transaction covering the production upsert, the audit entry,
// and the staging status flip, so a crash never leaves the three out of sync.
package promote

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/FrankSpooren/HolidaiButler/internal/db"
	"github.com/FrankSpooren/HolidaiButler/internal/model"
	"github.com/FrankSpooren/HolidaiButler/internal/safeguard"
	"github.com/FrankSpooren/HolidaiButler/internal/store"
)

// Engine applies approved candidates to production and rolls them back.
type Engine struct {
	pool  db.Pool
	store store.Store
	gate  *safeguard.Gate
}

// New creates an Engine. The pool must point at the same database as the
// store; promotion writes through its own transactions.
func New(pool db.Pool, st store.Store, gate *safeguard.Gate) *Engine {
	return &Engine{pool: pool, store: st, gate: gate}
}

// Options selects what a promotion pass covers.
type Options struct {
	RunID string
	// BatchApprove runs the safeguard gate over pending rows and approves
	// the ones that pass before applying.
	BatchApprove bool
	// Execute applies changes. False is a dry run: the result reports what
	// would happen and nothing is written.
	Execute    bool
	ApprovedBy string
}

// Outcome summarizes one promotion pass.
type Outcome struct {
	DryRun   bool                 `json:"dry_run"`
	Approved int                  `json:"approved"`
	Applied  int                  `json:"applied"`
	Skipped  int                  `json:"skipped"`
	Blocked  []safeguard.Decision `json:"blocked,omitempty"`
	Errors   []string             `json:"errors,omitempty"`
}

// Run executes one promotion pass over the run's staging rows.
func (e *Engine) Run(ctx context.Context, opts Options) (*Outcome, error) {
	if opts.RunID == "" {
		return nil, eris.New("promote: run id required")
	}
	log := zap.L().With(zap.String("run_id", opts.RunID), zap.Bool("dry_run", !opts.Execute))
	out := &Outcome{DryRun: !opts.Execute}

	if opts.BatchApprove {
		if err := e.batchApprove(ctx, opts, out); err != nil {
			return nil, err
		}
	}

	rows, err := e.store.ListStaging(ctx, store.StagingFilter{
		RunID:    opts.RunID,
		Statuses: []model.StagingStatus{model.StatusApproved},
	})
	if err != nil {
		return nil, eris.Wrap(err, "promote: list approved rows")
	}

	for i := range rows {
		row := &rows[i]
		if !opts.Execute {
			out.Applied++
			continue
		}
		applied, err := e.apply(ctx, row, opts.ApprovedBy)
		if err != nil {
			log.Warn("apply failed", zap.String("poi_id", row.POIID), zap.Error(err))
			out.Errors = append(out.Errors, row.POIID+": "+err.Error())
			continue
		}
		if applied {
			out.Applied++
		} else {
			out.Skipped++
		}
	}

	log.Info("promotion pass complete",
		zap.Int("approved", out.Approved),
		zap.Int("applied", out.Applied),
		zap.Int("skipped", out.Skipped),
		zap.Int("blocked", len(out.Blocked)),
		zap.Int("errors", len(out.Errors)),
	)
	return out, nil
}

// batchApprove gates the run's pending rows. Rows the gate clears move to
// approved; blocked rows are reported and left pending for a human.
func (e *Engine) batchApprove(ctx context.Context, opts Options, out *Outcome) error {
	pending, err := e.store.ListStaging(ctx, store.StagingFilter{
		RunID:    opts.RunID,
		Statuses: []model.StagingStatus{model.StatusPending},
	})
	if err != nil {
		return eris.Wrap(err, "promote: list pending rows")
	}

	for i := range pending {
		row := &pending[i]
		fs, err := e.store.GetFactSheet(ctx, row.POIID)
		if err != nil {
			return eris.Wrapf(err, "promote: fact sheet %s", row.POIID)
		}
		decision := e.gate.Validate(row, fs)
		if !decision.Approved {
			out.Blocked = append(out.Blocked, decision)
			continue
		}
		out.Approved++
		if !opts.Execute {
			continue
		}
		if err := e.store.UpdateStagingStatus(ctx, row.ID, model.StatusApproved, opts.ApprovedBy, "gate: auto-approved"); err != nil {
			return eris.Wrapf(err, "promote: approve %s", row.POIID)
		}
	}
	return nil
}

// apply promotes one row. Returns false when production already carries the
// candidate text; the row is still marked applied but no audit entry is
// written for a no-op.
func (e *Engine) apply(ctx context.Context, row *model.StagingRow, by string) (applied bool, err error) {
	if !row.Status.CanTransitionTo(model.StatusApplied) {
		return false, eris.Errorf("promote: cannot apply row in status %s", row.Status)
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return false, eris.Wrap(err, "promote: begin tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var current string
	scanErr := tx.QueryRow(ctx,
		`SELECT content FROM poi_production WHERE poi_id = $1 AND field_name = $2 FOR UPDATE`,
		row.POIID, row.FieldName,
	).Scan(&current)
	if scanErr != nil && !errors.Is(scanErr, pgx.ErrNoRows) {
		return false, eris.Wrap(scanErr, "promote: read production")
	}

	now := time.Now().UTC()

	if current == row.CandidateText {
		// Identical content: flip the status, skip the write and the audit.
		if err = e.markApplied(ctx, tx, row.ID, by, now); err != nil {
			return false, err
		}
		return false, eris.Wrap(tx.Commit(ctx), "promote: commit")
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO poi_production (poi_id, field_name, content, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (poi_id, field_name) DO UPDATE SET content = $3, updated_at = $4`,
		row.POIID, row.FieldName, row.CandidateText, now,
	); err != nil {
		return false, eris.Wrap(err, "promote: write production")
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO poi_content_history
		 (poi_id, field_name, old_content, new_content, change_source, run_id, staging_id, changed_by, changed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		row.POIID, row.FieldName, current, row.CandidateText,
		string(model.SourcePipeline), row.RunID, row.ID, by, now,
	); err != nil {
		return false, eris.Wrap(err, "promote: write audit entry")
	}

	if err = e.markApplied(ctx, tx, row.ID, by, now); err != nil {
		return false, err
	}
	return true, eris.Wrap(tx.Commit(ctx), "promote: commit")
}

func (e *Engine) markApplied(ctx context.Context, tx pgx.Tx, stagingID int64, by string, now time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE poi_content_staging
		 SET status = $1, reviewed_by = $2, applied_at = $3, updated_at = $3
		 WHERE id = $4`,
		string(model.StatusApplied), by, now, stagingID,
	)
	if err != nil {
		return eris.Wrap(err, "promote: mark applied")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("promote: staging row not found: %d", stagingID)
	}
	return nil
}

// Rollback restores the previous production content for one POI field from
// the newest audit entry and records the restore as a new entry. Rows applied
// through the identical-content shortcut have no audit entry; those restore
// from the staging row's old_content_snapshot instead. The staging row that
// applied the change moves applied -> rejected.
func (e *Engine) Rollback(ctx context.Context, poiID, fieldName, by string) error {
	entries, err := e.store.ListAuditEntries(ctx, poiID, fieldName, 1)
	if err != nil {
		return eris.Wrap(err, "promote: list audit entries")
	}
	if len(entries) == 0 {
		return e.rollbackFromSnapshot(ctx, poiID, fieldName, by)
	}
	last := entries[0]
	if last.ChangeSource == model.SourceRollback {
		return eris.Errorf("promote: %s/%s already rolled back", poiID, fieldName)
	}
	return e.restore(ctx, restoreOp{
		poiID:     poiID,
		fieldName: fieldName,
		replaced:  last.NewContent,
		restored:  last.OldContent,
		runID:     last.RunID,
		stagingID: last.StagingID,
		by:        by,
	})
}

// rollbackFromSnapshot restores from the newest applied staging row when the
// audit trail carries nothing for the field.
func (e *Engine) rollbackFromSnapshot(ctx context.Context, poiID, fieldName, by string) error {
	rows, err := e.store.ListStaging(ctx, store.StagingFilter{
		POIID:    poiID,
		Statuses: []model.StagingStatus{model.StatusApplied},
	})
	if err != nil {
		return eris.Wrap(err, "promote: list applied rows")
	}
	var row *model.StagingRow
	for i := range rows {
		if rows[i].FieldName != fieldName {
			continue
		}
		if row == nil || rows[i].ID > row.ID {
			row = &rows[i]
		}
	}
	if row == nil {
		return eris.Errorf("promote: no history or applied staging row for %s/%s, nothing to roll back", poiID, fieldName)
	}
	return e.restore(ctx, restoreOp{
		poiID:     poiID,
		fieldName: fieldName,
		replaced:  row.CandidateText,
		restored:  row.OldContentSnapshot,
		runID:     row.RunID,
		stagingID: row.ID,
		by:        by,
	})
}

type restoreOp struct {
	poiID     string
	fieldName string
	replaced  string
	restored  string
	runID     string
	stagingID int64
	by        string
}

// restore writes one rollback transaction: the production restore, the audit
// entry recording it, and the applied staging row flipping to rejected.
func (e *Engine) restore(ctx context.Context, op restoreOp) (err error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "promote: begin tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	now := time.Now().UTC()

	if _, err = tx.Exec(ctx,
		`INSERT INTO poi_production (poi_id, field_name, content, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (poi_id, field_name) DO UPDATE SET content = $3, updated_at = $4`,
		op.poiID, op.fieldName, op.restored, now,
	); err != nil {
		return eris.Wrap(err, "promote: restore production")
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO poi_content_history
		 (poi_id, field_name, old_content, new_content, change_source, run_id, staging_id, changed_by, changed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		op.poiID, op.fieldName, op.replaced, op.restored,
		string(model.SourceRollback), op.runID, op.stagingID, op.by, now,
	); err != nil {
		return eris.Wrap(err, "promote: write rollback entry")
	}

	if op.stagingID != 0 {
		if _, err = tx.Exec(ctx,
			`UPDATE poi_content_staging
			 SET status = $1, review_notes = $2, updated_at = $3
			 WHERE id = $4 AND status = $5`,
			string(model.StatusRejected), "rolled back", now,
			op.stagingID, string(model.StatusApplied),
		); err != nil {
			return eris.Wrap(err, "promote: reject staging row")
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "promote: commit")
	}

	zap.L().Info("rollback complete",
		zap.String("poi_id", op.poiID),
		zap.String("field", op.fieldName),
		zap.Int64("staging_id", op.stagingID),
	)
	return nil
}
