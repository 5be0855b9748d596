package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
	"github.com/FrankSpooren/HolidaiButler/internal/resilience"
	"github.com/FrankSpooren/HolidaiButler/internal/store"
)

// RunOptions selects which POIs a batch run covers.
type RunOptions struct {
	RunID       string
	Destination string
	Tier        model.Tier
	Limit       int
	Offset      int
	// Resume skips POIs the run's checkpoint already marks completed.
	Resume bool
}

// Checkpoint is the persisted progress of one batch run. It lets an
// interrupted run pick up where it stopped instead of re-spending API calls.
type Checkpoint struct {
	RunID        string                `json:"run_id"`
	CompletedIDs []string              `json:"completed_ids"`
	Failed       []resilience.DLQEntry `json:"failed,omitempty"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

func (c *Checkpoint) completedSet() map[string]bool {
	set := make(map[string]bool, len(c.CompletedIDs))
	for _, id := range c.CompletedIDs {
		set[id] = true
	}
	return set
}

// RunBatch regenerates all matching POIs: generate, verify, stage, with a
// checkpoint written every cfg.Batch.CheckpointEvery POIs. API calls are
// rate limited and routed through a circuit breaker so a dying upstream
// stops the run instead of burning the whole batch.
func (p *Pipeline) RunBatch(ctx context.Context, opts RunOptions) ([]Result, error) {
	if opts.RunID == "" {
		return nil, eris.New("pipeline: run id required")
	}
	log := zap.L().With(zap.String("run_id", opts.RunID))

	sheets, err := p.store.ListFactSheets(ctx, store.FactSheetFilter{
		Destination: opts.Destination,
		Tier:        opts.Tier,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list fact sheets")
	}

	checkpoint := &Checkpoint{RunID: opts.RunID}
	if opts.Resume {
		checkpoint, err = p.loadCheckpoint(ctx, opts.RunID)
		if err != nil {
			return nil, err
		}
		if len(checkpoint.CompletedIDs) > 0 {
			log.Info("resuming from checkpoint", zap.Int("completed", len(checkpoint.CompletedIDs)))
		}
	}
	completed := checkpoint.completedSet()

	remaining := make([]model.FactSheet, 0, len(sheets))
	for _, fs := range sheets {
		if !completed[fs.POIID] {
			remaining = append(remaining, fs)
		}
	}
	if opts.Offset > 0 && opts.Offset < len(remaining) {
		remaining = remaining[opts.Offset:]
	} else if opts.Offset >= len(remaining) {
		remaining = nil
	}
	if opts.Limit > 0 && opts.Limit < len(remaining) {
		remaining = remaining[:opts.Limit]
	}

	log.Info("batch run starting",
		zap.Int("total", len(sheets)),
		zap.Int("remaining", len(remaining)),
	)

	limiter := rate.NewLimiter(rate.Limit(p.cfg.Batch.CallsPerSecond), 1)
	bcfg := resilience.FromCircuitConfig(p.cfg.Batch.BreakerFailures, p.cfg.Batch.BreakerResetSeconds)
	bcfg.ShouldTrip = resilience.IsTransient
	bcfg.OnStateChange = func(from, to resilience.CircuitState) {
		log.Warn("circuit state change",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	breaker := resilience.NewCircuitBreaker(bcfg)

	results := make([]Result, 0, len(remaining))
	sinceCheckpoint := 0

	for i := range remaining {
		fs := &remaining[i]

		if err := limiter.Wait(ctx); err != nil {
			return results, eris.Wrap(err, "pipeline: rate limiter")
		}

		row, procErr := p.processThroughBreaker(ctx, breaker, fs, opts.RunID)
		if procErr != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn("poi failed", zap.String("poi_id", fs.POIID), zap.Error(procErr))
			checkpoint.Failed = append(checkpoint.Failed, resilience.DLQEntry{
				POIID:        fs.POIID,
				RunID:        opts.RunID,
				Error:        procErr.Error(),
				ErrorType:    resilience.ClassifyError(procErr),
				FailedStage:  "regenerate",
				RetryCount:   1,
				MaxRetries:   p.cfg.Batch.MaxAttempts,
				LastFailedAt: time.Now().UTC(),
			})
			results = append(results, Result{Sheet: fs, Err: procErr})
			continue
		}

		if _, err := p.store.UpsertStaging(ctx, row); err != nil {
			return results, eris.Wrap(err, "pipeline: stage candidate")
		}

		checkpoint.CompletedIDs = append(checkpoint.CompletedIDs, fs.POIID)
		results = append(results, Result{Sheet: fs, Row: row})
		sinceCheckpoint++

		if sinceCheckpoint >= p.cfg.Batch.CheckpointEvery {
			if err := p.saveCheckpoint(ctx, checkpoint); err != nil {
				return results, err
			}
			sinceCheckpoint = 0
			log.Info("checkpoint written",
				zap.Int("completed", len(checkpoint.CompletedIDs)),
				zap.Int("remaining", len(remaining)-i-1),
			)
		}
	}

	if err := p.saveCheckpoint(ctx, checkpoint); err != nil {
		return results, err
	}

	stats := ComputeStats(results)
	log.Info("batch run complete",
		zap.Int("processed", stats.Total),
		zap.Int("pass", stats.Verdicts[model.VerdictPass]),
		zap.Int("review", stats.Verdicts[model.VerdictReview]),
		zap.Int("fail", stats.Verdicts[model.VerdictFail]),
		zap.Int("errors", stats.Errors),
		zap.Float64("avg_hallucination_rate", stats.AvgHallucinationRate),
	)
	return results, nil
}

// processThroughBreaker runs one POI behind the circuit breaker. The old
// production content is snapshotted into the staging row for side-by-side
// review and rollback.
func (p *Pipeline) processThroughBreaker(ctx context.Context, breaker *resilience.CircuitBreaker, fs *model.FactSheet, runID string) (*model.StagingRow, error) {
	return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*model.StagingRow, error) {
		oldContent := ""
		if prod, err := p.store.GetProduction(ctx, fs.POIID, model.FieldDescription); err != nil {
			return nil, eris.Wrap(err, "pipeline: load production content")
		} else if prod != nil {
			oldContent = prod.Content
		}
		return p.ProcessPOI(ctx, fs, oldContent, runID)
	})
}

// ReplayResults rebuilds a run's results from its staging rows so reports
// can be regenerated without spending API calls.
func (p *Pipeline) ReplayResults(ctx context.Context, runID string) ([]Result, error) {
	if runID == "" {
		return nil, eris.New("pipeline: run id required")
	}
	rows, err := p.store.ListStaging(ctx, store.StagingFilter{RunID: runID})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list staging rows")
	}

	results := make([]Result, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		sheet, err := p.store.GetFactSheet(ctx, row.POIID)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: load fact sheet")
		}
		if sheet == nil {
			// The sheet was removed after the run; report from the row alone.
			sheet = &model.FactSheet{POIID: row.POIID, Tier: row.Tier}
		}
		results = append(results, Result{Sheet: sheet, Row: row})
	}
	return results, nil
}

func (p *Pipeline) loadCheckpoint(ctx context.Context, runID string) (*Checkpoint, error) {
	data, err := p.store.LoadCheckpoint(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load checkpoint")
	}
	cp := &Checkpoint{RunID: runID}
	if data == nil {
		return cp, nil
	}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse checkpoint")
	}
	return cp, nil
}

func (p *Pipeline) saveCheckpoint(ctx context.Context, cp *Checkpoint) error {
	cp.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(cp)
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal checkpoint")
	}
	if err := p.store.SaveCheckpoint(ctx, cp.RunID, data); err != nil {
		return eris.Wrap(err, "pipeline: save checkpoint")
	}
	return nil
}
