package safeguard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrankSpooren/HolidaiButler/internal/config"
	"github.com/FrankSpooren/HolidaiButler/internal/model"
)

func testGate() *Gate {
	dests := model.NewDestinations([]model.Destination{{
		ID:          "calpe",
		Name:        "Calpe",
		Preposition: "in",
		BBox:        [4]float64{-0.1, 38.6, 0.1, 38.7},
	}})
	return New(config.SafeguardConfig{}, dests)
}

func cleanRow() *model.StagingRow {
	return &model.StagingRow{
		POIID:         "poi-1",
		Tier:          model.TierRich,
		CandidateText: strings.TrimSpace(strings.Repeat("plain factual text ", 40)),
		WordCount:     120,
		Verification:  &model.Verification{Verdict: model.VerdictPass},
	}
}

func cleanSheet() *model.FactSheet {
	return &model.FactSheet{
		POIID:       "poi-1",
		Destination: "calpe",
		Latitude:    38.65,
		Longitude:   0.0,
		Tier:        model.TierRich,
	}
}

func TestValidate_CleanCandidateApproved(t *testing.T) {
	d := testGate().Validate(cleanRow(), cleanSheet())
	assert.True(t, d.Approved)
	assert.Empty(t, d.Blocks)
	assert.Empty(t, d.Warnings)
}

func TestValidate_HighSeverityBlocks(t *testing.T) {
	row := cleanRow()
	row.Verification.UnsupportedClaims = []model.Claim{
		{Text: "Michelin star", Severity: model.SeverityHigh},
	}
	d := testGate().Validate(row, cleanSheet())
	assert.False(t, d.Approved)
	require.Len(t, d.Blocks, 1)
	assert.Contains(t, d.Blocks[0], "HIGH severity")
}

func TestValidate_RateAboveLimitBlocks(t *testing.T) {
	row := cleanRow()
	row.Verification.HallucinationRate = 0.25
	d := testGate().Validate(row, cleanSheet())
	assert.False(t, d.Approved)
	require.Len(t, d.Blocks, 1)
	assert.Contains(t, d.Blocks[0], "exceeds 20% limit")
}

func TestValidate_NoneTierGetsLooserRateLimit(t *testing.T) {
	row := cleanRow()
	row.Tier = model.TierNone
	row.WordCount = 45
	row.Verification.HallucinationRate = 0.25

	// 25% passes the 30% none-tier ceiling.
	d := testGate().Validate(row, cleanSheet())
	assert.True(t, d.Approved)

	row.Verification.HallucinationRate = 0.35
	d = testGate().Validate(row, cleanSheet())
	assert.False(t, d.Approved)
}

func TestValidate_EmptyContentBlocks(t *testing.T) {
	row := cleanRow()
	row.CandidateText = "   "
	row.WordCount = 0
	d := testGate().Validate(row, cleanSheet())
	assert.False(t, d.Approved)
	assert.Contains(t, d.Blocks[0], "empty")
}

func TestValidate_VerificationErrorBlocks(t *testing.T) {
	row := cleanRow()
	row.Verification = model.ErrorVerification("upstream down")
	d := testGate().Validate(row, cleanSheet())
	assert.False(t, d.Approved)
	assert.Contains(t, d.Blocks[0], "verification errored")
}

func TestValidate_MissingVerificationBlocks(t *testing.T) {
	row := cleanRow()
	row.Verification = nil
	d := testGate().Validate(row, cleanSheet())
	assert.False(t, d.Approved)
	assert.Contains(t, d.Blocks[0], "no verification result")
}

func TestValidate_UnknownDestinationBlocks(t *testing.T) {
	fs := cleanSheet()
	fs.Destination = "atlantis"
	d := testGate().Validate(cleanRow(), fs)
	assert.False(t, d.Approved)
	assert.Contains(t, d.Blocks[0], "unknown destination atlantis")
}

func TestValidate_MissingSheetBlocks(t *testing.T) {
	d := testGate().Validate(cleanRow(), nil)
	assert.False(t, d.Approved)
	assert.Contains(t, d.Blocks[0], "no fact sheet")
}

func TestValidate_WordCountWarns(t *testing.T) {
	row := cleanRow()
	row.WordCount = 60 // far below the rich band, even with tolerance
	d := testGate().Validate(row, cleanSheet())
	assert.True(t, d.Approved)
	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0], "word count 60 outside 110-140 band")
}

func TestValidate_WordCountToleranceAccepted(t *testing.T) {
	row := cleanRow()
	row.WordCount = 100 // inside the rich band once widened by 20%
	d := testGate().Validate(row, cleanSheet())
	assert.True(t, d.Approved)
	assert.Empty(t, d.Warnings)
}

func TestValidate_EmbellishmentWarns(t *testing.T) {
	row := cleanRow()
	row.CandidateText = "A stunning venue with charming views near the harbour."
	d := testGate().Validate(row, cleanSheet())
	assert.True(t, d.Approved)
	assert.Contains(t, d.Warnings, "embellishment word: stunning")
	assert.Contains(t, d.Warnings, "embellishment word: charming")
}

func TestValidate_EmbellishmentWholeWordOnly(t *testing.T) {
	row := cleanRow()
	// "untied" contains no banned word; "uniquely" contains "unique" as a
	// substring but not as a whole word.
	row.CandidateText = "The untied boats sit uniquely arranged along the quay. " + strings.Repeat("word ", 110)
	row.WordCount = 120
	d := testGate().Validate(row, cleanSheet())
	assert.True(t, d.Approved)
	assert.Empty(t, d.Warnings)
}

func TestValidate_TierConflictWarns(t *testing.T) {
	fs := cleanSheet()
	fs.TierConflict = true
	d := testGate().Validate(cleanRow(), fs)
	assert.True(t, d.Approved)
	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0], "lower tier")
}

func TestValidate_CoordinatesOutsideBoxWarn(t *testing.T) {
	fs := cleanSheet()
	fs.Latitude = 52.0
	fs.Longitude = 4.8
	d := testGate().Validate(cleanRow(), fs)
	assert.True(t, d.Approved)
	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0], "outside calpe bounding box")
}

func TestValidate_ZeroCoordinatesSkipped(t *testing.T) {
	fs := cleanSheet()
	fs.Latitude = 0
	fs.Longitude = 0
	d := testGate().Validate(cleanRow(), fs)
	assert.True(t, d.Approved)
	assert.Empty(t, d.Warnings)
}

// Adding a violation to an approved candidate can only take approval away.
func TestValidate_Monotonic(t *testing.T) {
	gate := testGate()

	base := gate.Validate(cleanRow(), cleanSheet())
	require.True(t, base.Approved)

	degrade := []func(*model.StagingRow, *model.FactSheet){
		func(r *model.StagingRow, _ *model.FactSheet) { r.CandidateText = "" },
		func(r *model.StagingRow, _ *model.FactSheet) { r.Verification.HallucinationRate = 0.9 },
		func(r *model.StagingRow, _ *model.FactSheet) {
			r.Verification.UnsupportedClaims = []model.Claim{{Text: "x", Severity: model.SeverityHigh}}
		},
		func(_ *model.StagingRow, f *model.FactSheet) { f.Destination = "nowhere" },
	}

	for _, apply := range degrade {
		row, fs := cleanRow(), cleanSheet()
		apply(row, fs)
		d := gate.Validate(row, fs)
		assert.False(t, d.Approved)
		assert.NotEmpty(t, d.Blocks)
	}
}

func TestNew_DefaultsApplied(t *testing.T) {
	g := New(config.SafeguardConfig{}, nil)
	assert.InDelta(t, 0.20, g.cfg.MaxHallucinationRate, 1e-9)
	assert.InDelta(t, 0.30, g.cfg.MaxHallucinationRateNone, 1e-9)
	assert.InDelta(t, 0.20, g.cfg.WordCountTolerance, 1e-9)
}
