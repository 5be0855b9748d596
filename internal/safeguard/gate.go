// Package safeguard is the deterministic approval gate between staging and
// production. It never calls a model: every check is a rule over data the
// pipeline already recorded, so the same row always gets the same decision.
package safeguard

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/FrankSpooren/HolidaiButler/internal/config"
	"github.com/FrankSpooren/HolidaiButler/internal/model"
	"github.com/FrankSpooren/HolidaiButler/internal/prompt"
)

// Decision is the gate's verdict over one staged candidate. Blocks stop
// promotion outright; warnings go to the reviewer but do not stop an
// otherwise clean candidate.
type Decision struct {
	POIID    string   `json:"poi_id"`
	Approved bool     `json:"approved"`
	Blocks   []string `json:"blocks,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Gate evaluates staged candidates against the promotion rules.
type Gate struct {
	cfg   config.SafeguardConfig
	dests *model.Destinations
}

// New creates a Gate. dests may be nil when no destination registry is
// loaded; the destination check then blocks everything with a non-empty
// destination id.
func New(cfg config.SafeguardConfig, dests *model.Destinations) *Gate {
	if cfg.MaxHallucinationRate <= 0 {
		cfg.MaxHallucinationRate = 0.20
	}
	if cfg.MaxHallucinationRateNone <= 0 {
		cfg.MaxHallucinationRateNone = 0.30
	}
	if cfg.WordCountTolerance <= 0 {
		cfg.WordCountTolerance = 0.20
	}
	return &Gate{cfg: cfg, dests: dests}
}

// Validate runs every check over the candidate and its fact sheet. A block
// means the candidate must not reach production; the caller decides whether
// that maps to rejected or review_required.
func (g *Gate) Validate(row *model.StagingRow, fs *model.FactSheet) Decision {
	d := Decision{POIID: row.POIID}

	g.checkContent(&d, row)
	g.checkVerification(&d, row)
	g.checkDestination(&d, fs)
	g.checkWordCount(&d, row)
	g.checkEmbellishments(&d, row)
	g.checkTierConflict(&d, fs)
	g.checkCoordinates(&d, fs)

	d.Approved = len(d.Blocks) == 0
	zap.L().Debug("gate decision",
		zap.String("poi_id", row.POIID),
		zap.Bool("approved", d.Approved),
		zap.Strings("blocks", d.Blocks),
		zap.Strings("warnings", d.Warnings),
	)
	return d
}

func (g *Gate) checkContent(d *Decision, row *model.StagingRow) {
	if strings.TrimSpace(row.CandidateText) == "" {
		d.Blocks = append(d.Blocks, "candidate text is empty")
	}
}

// checkVerification blocks on HIGH severity claims and on hallucination
// rates above the tier's ceiling. The none tier gets a looser ceiling since
// its generic-safe descriptions carry almost no checkable claims.
func (g *Gate) checkVerification(d *Decision, row *model.StagingRow) {
	v := row.Verification
	if v == nil {
		d.Blocks = append(d.Blocks, "no verification result")
		return
	}
	if v.Verdict == model.VerdictError {
		d.Blocks = append(d.Blocks, "verification errored: "+v.Summary)
		return
	}
	if v.HasHighSeverity() {
		d.Blocks = append(d.Blocks, "HIGH severity unsupported claim")
	}

	limit := g.cfg.MaxHallucinationRate
	if row.Tier == model.TierNone {
		limit = g.cfg.MaxHallucinationRateNone
	}
	if v.HallucinationRate > limit {
		d.Blocks = append(d.Blocks, fmt.Sprintf(
			"hallucination rate %.0f%% exceeds %.0f%% limit",
			v.HallucinationRate*100, limit*100))
	}
}

func (g *Gate) checkDestination(d *Decision, fs *model.FactSheet) {
	if fs == nil {
		d.Blocks = append(d.Blocks, "no fact sheet")
		return
	}
	if fs.Destination == "" {
		d.Blocks = append(d.Blocks, "fact sheet has no destination")
		return
	}
	if g.dests == nil || g.dests.ByID(fs.Destination) == nil {
		d.Blocks = append(d.Blocks, "unknown destination "+fs.Destination)
	}
}

func (g *Gate) checkWordCount(d *Decision, row *model.StagingRow) {
	if row.WordCount == 0 {
		return // already blocked as empty
	}
	if !row.Tier.WithinTarget(row.WordCount, g.cfg.WordCountTolerance) {
		min, max := row.Tier.WordTarget()
		d.Warnings = append(d.Warnings, fmt.Sprintf(
			"word count %d outside %d-%d band for tier %s",
			row.WordCount, min, max, row.Tier))
	}
}

// checkEmbellishments flags banned marketing words that slipped past the
// generation rules. A warning, not a block: reviewers can judge whether the
// word is factual in context.
func (g *Gate) checkEmbellishments(d *Decision, row *model.StagingRow) {
	lower := strings.ToLower(row.CandidateText)
	for _, word := range prompt.EmbellishmentWords {
		if containsWord(lower, word) {
			d.Warnings = append(d.Warnings, "embellishment word: "+word)
		}
	}
}

func (g *Gate) checkTierConflict(d *Decision, fs *model.FactSheet) {
	if fs != nil && fs.TierConflict {
		d.Warnings = append(d.Warnings, "fresh evidence supports a lower tier than recorded")
	}
}

func (g *Gate) checkCoordinates(d *Decision, fs *model.FactSheet) {
	if fs == nil || g.dests == nil {
		return
	}
	if fs.Latitude == 0 && fs.Longitude == 0 {
		return
	}
	dest := g.dests.ByID(fs.Destination)
	if dest == nil {
		return // already blocked as unknown
	}
	if !dest.Contains(fs.Longitude, fs.Latitude) {
		d.Warnings = append(d.Warnings, fmt.Sprintf(
			"coordinates (%.4f, %.4f) outside %s bounding box",
			fs.Latitude, fs.Longitude, dest.ID))
	}
}

// containsWord reports whether text contains word as a whole word. Both
// inputs must already be lowercase.
func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isLetter(text[start-1])
		afterOK := end == len(text) || !isLetter(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
