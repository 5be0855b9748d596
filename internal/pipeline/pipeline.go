// Package pipeline regenerates POI descriptions from fact sheets and
// fact-checks each candidate before it reaches the staging table.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/FrankSpooren/HolidaiButler/internal/config"
	"github.com/FrankSpooren/HolidaiButler/internal/model"
	"github.com/FrankSpooren/HolidaiButler/internal/prompt"
	"github.com/FrankSpooren/HolidaiButler/internal/resilience"
	"github.com/FrankSpooren/HolidaiButler/internal/store"
)

// Pipeline orchestrates generation, verification, and staging for POIs.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	generate TextClient
	verify   TextClient
	dests    *model.Destinations
	retry    resilience.RetryConfig
}

// New creates a Pipeline with all dependencies. generate and verify may be
// the same client; the split exists so verification can run on a different
// model or provider than generation.
func New(cfg *config.Config, st store.Store, generate, verify TextClient, dests *model.Destinations) *Pipeline {
	retry := resilience.FromRetryConfig(cfg.Batch.MaxAttempts, 0, 0, 0, 0)
	retry.OnRetry = resilience.RetryLogger(cfg.Generation.Provider, "chat")
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		generate: generate,
		verify:   verify,
		dests:    dests,
		retry:    retry,
	}
}

// Result pairs a staged candidate with the sheet it was generated from.
type Result struct {
	Sheet *model.FactSheet
	Row   *model.StagingRow
	Err   error
}

// ProcessPOI regenerates one POI description, fact-checks it, and returns
// the staging row ready for persistence. A failed generation still yields a
// row (status review_required) so the run's coverage stays complete; only
// infrastructure errors return err.
func (p *Pipeline) ProcessPOI(ctx context.Context, fs *model.FactSheet, oldContent, runID string) (*model.StagingRow, error) {
	log := zap.L().With(
		zap.String("poi_id", fs.POIID),
		zap.String("run_id", runID),
		zap.String("tier", string(fs.Tier)),
	)

	min, max := fs.Tier.WordTarget()
	row := &model.StagingRow{
		POIID:              fs.POIID,
		RunID:              runID,
		FieldName:          model.FieldDescription,
		Tier:               fs.Tier,
		WordTargetMin:      min,
		WordTargetMax:      max,
		OldContentSnapshot: oldContent,
	}

	text, wordCount, err := p.generateDescription(ctx, fs)
	if err != nil {
		log.Warn("generation failed", zap.Error(err))
		row.Status = model.StatusReviewRequired
		row.Recommendation = model.RecommendManualReview
		row.Rationale = "Generation failed: " + err.Error()
		row.Verification = model.ErrorVerification("generation failed: " + err.Error())
		return row, nil
	}
	row.CandidateText = text
	row.WordCount = wordCount
	row.WordCountOK = wordCount >= min && wordCount <= max

	verification := p.verifyDescription(ctx, fs, text)
	row.Verification = verification
	row.Status = model.InitialStatus(verification.Verdict)
	row.Recommendation = model.Recommend(verification)
	row.Rationale = rationale(verification, fs.Tier)

	log.Info("poi processed",
		zap.String("verdict", string(verification.Verdict)),
		zap.Int("words", wordCount),
		zap.Float64("hallucination_rate", verification.HallucinationRate),
		zap.String("status", string(row.Status)),
	)
	return row, nil
}

// generateDescription calls the generation model, retrying once more at a
// slightly higher temperature when the word count lands outside the tier's
// target band.
func (p *Pipeline) generateDescription(ctx context.Context, fs *model.FactSheet) (string, int, error) {
	var dest *model.Destination
	if p.dests != nil {
		dest = p.dests.ByID(fs.Destination)
	}
	system, user := prompt.Generation(fs, dest)
	min, max := fs.Tier.WordTarget()

	text, err := p.complete(ctx, p.generate, TextRequest{
		System:      system,
		User:        user,
		Temperature: p.cfg.Generation.Temperature,
		MaxTokens:   p.cfg.Generation.MaxTokens,
	})
	if err != nil {
		return "", 0, err
	}

	words := model.CountWords(text)
	for retry := 1; (words < min || words > max) && retry <= p.cfg.Generation.WordCountRetries; retry++ {
		zap.L().Debug("word count out of range, retrying",
			zap.String("poi_id", fs.POIID),
			zap.Int("words", words),
			zap.Int("retry", retry),
		)
		retried, retryErr := p.complete(ctx, p.generate, TextRequest{
			System:      system,
			User:        user,
			Temperature: p.cfg.Generation.Temperature + 0.1*float64(retry),
			MaxTokens:   p.cfg.Generation.MaxTokens,
		})
		if retryErr != nil {
			break
		}
		text = retried
		words = model.CountWords(text)
	}

	return text, words, nil
}

// verifyDescription runs the fact-check pass. A failed call or unparseable
// response yields an ERROR verification, never an error: the candidate is
// then routed to manual review.
func (p *Pipeline) verifyDescription(ctx context.Context, fs *model.FactSheet, text string) *model.Verification {
	system, user := prompt.Verification(fs, text)

	resp, err := p.complete(ctx, p.verify, TextRequest{
		System:      system,
		User:        user,
		Temperature: p.cfg.Verification.Temperature,
		MaxTokens:   p.cfg.Verification.MaxTokens,
		Model:       p.cfg.Mistral.VerifyModel,
		CacheSystem: true,
	})
	if err != nil {
		zap.L().Warn("verification call failed", zap.String("poi_id", fs.POIID), zap.Error(err))
		return model.ErrorVerification("verification call failed: " + err.Error())
	}
	return ParseVerification(resp)
}

func (p *Pipeline) complete(ctx context.Context, client TextClient, req TextRequest) (string, error) {
	return resilience.DoVal(ctx, p.retry, func(ctx context.Context) (string, error) {
		return client.Complete(ctx, req)
	})
}

// rationale builds the reviewer-facing one-liner explaining the triage.
func rationale(v *model.Verification, tier model.Tier) string {
	switch v.Verdict {
	case model.VerdictPass:
		return "Verification PASS: 0 unsupported claims. Tier: " + string(tier) + "."
	case model.VerdictReview:
		return verdictLine("Verification REVIEW", v, tier)
	case model.VerdictFail:
		if v.HasHighSeverity() {
			return verdictLine("Verification FAIL with HIGH severity claims", v, tier)
		}
		return verdictLine("Verification FAIL", v, tier)
	default:
		return "Verification error: " + v.Summary + " Tier: " + string(tier) + "."
	}
}

func verdictLine(prefix string, v *model.Verification, tier model.Tier) string {
	return fmt.Sprintf("%s: %d/%d unsupported claims (%.0f%%). Tier: %s.",
		prefix, len(v.UnsupportedClaims), v.ClaimsTotal, v.HallucinationRate*100, tier)
}
