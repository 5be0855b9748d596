package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- Fact sheets ---

func TestSQLite_FactSheet_Roundtrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sheets := []model.FactSheet{
		{
			POIID:       "poi-1",
			Name:        "Penyal d'Ifac",
			Category:    "nature",
			Destination: "calpe",
			Tier:        model.TierRich,
			SourceText:  "A limestone rock rising from the sea.",
			Facts:       model.VerifiedFacts{Features: []string{"hiking", "viewpoint"}},
		},
		{
			POIID:       "poi-2",
			Name:        "Beach Bar",
			Destination: "calpe",
			Tier:        model.TierMinimal,
		},
	}
	n, err := st.UpsertFactSheets(ctx, sheets)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	fs, err := st.GetFactSheet(ctx, "poi-1")
	require.NoError(t, err)
	require.NotNil(t, fs)
	assert.Equal(t, "Penyal d'Ifac", fs.Name)
	assert.Equal(t, model.TierRich, fs.Tier)
	assert.Equal(t, []string{"hiking", "viewpoint"}, fs.Facts.Features)
}

func TestSQLite_FactSheet_UpsertOverwrites(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sheet := model.FactSheet{POIID: "poi-1", Name: "Old Name", Destination: "calpe", Tier: model.TierMinimal}
	_, err := st.UpsertFactSheets(ctx, []model.FactSheet{sheet})
	require.NoError(t, err)

	sheet.Name = "New Name"
	sheet.Tier = model.TierModerate
	_, err = st.UpsertFactSheets(ctx, []model.FactSheet{sheet})
	require.NoError(t, err)

	fs, err := st.GetFactSheet(ctx, "poi-1")
	require.NoError(t, err)
	assert.Equal(t, "New Name", fs.Name)
	assert.Equal(t, model.TierModerate, fs.Tier)
}

func TestSQLite_FactSheet_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	fs, err := st.GetFactSheet(context.Background(), "poi-404")
	require.NoError(t, err)
	assert.Nil(t, fs)
}

func TestSQLite_FactSheet_ListAndCount(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.UpsertFactSheets(ctx, []model.FactSheet{
		{POIID: "a", Name: "A", Destination: "calpe", Tier: model.TierRich},
		{POIID: "b", Name: "B", Destination: "calpe", Tier: model.TierNone},
		{POIID: "c", Name: "C", Destination: "texel", Tier: model.TierRich},
	})
	require.NoError(t, err)

	byDest, err := st.ListFactSheets(ctx, FactSheetFilter{Destination: "calpe"})
	require.NoError(t, err)
	assert.Len(t, byDest, 2)

	byTier, err := st.ListFactSheets(ctx, FactSheetFilter{Tier: model.TierRich})
	require.NoError(t, err)
	assert.Len(t, byTier, 2)

	limited, err := st.ListFactSheets(ctx, FactSheetFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	counts, err := st.CountFactSheetsByTier(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[model.TierRich])
	assert.Equal(t, 1, counts[model.TierNone])
}

// --- Staging ---

func TestSQLite_Staging_Roundtrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	row := &model.StagingRow{
		POIID:          "poi-1",
		RunID:          "run-1",
		FieldName:      model.FieldDescription,
		Tier:           model.TierModerate,
		CandidateText:  "A quiet beach bar near the marina with local wines.",
		WordCount:      10,
		WordTargetMin:  85,
		WordTargetMax:  115,
		Status:         model.StatusPending,
		Recommendation: model.RecommendUseCandidate,
		Verification: &model.Verification{
			Verdict:           model.VerdictReview,
			HallucinationRate: 0.1,
			ClaimsTotal:       10,
			UnsupportedClaims: []model.Claim{{Text: "local wines", Severity: model.SeverityLow}},
		},
		OldContentSnapshot: "Old description.",
	}

	id, err := st.UpsertStaging(ctx, row)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := st.GetStaging(ctx, "poi-1", "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, "Old description.", got.OldContentSnapshot)
	require.NotNil(t, got.Verification)
	assert.Equal(t, model.VerdictReview, got.Verification.Verdict)
	require.Len(t, got.Verification.UnsupportedClaims, 1)
	assert.Equal(t, model.SeverityLow, got.Verification.UnsupportedClaims[0].Severity)
	assert.Nil(t, got.ReviewedAt)
	assert.Nil(t, got.AppliedAt)
}

func TestSQLite_Staging_UpsertKeepsOneRowPerRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	row := &model.StagingRow{
		POIID: "poi-1", RunID: "run-1", FieldName: model.FieldDescription,
		Tier: model.TierNone, CandidateText: "first attempt",
		Status: model.StatusPending, Recommendation: model.RecommendUseCandidate,
	}
	id, err := st.UpsertStaging(ctx, row)
	require.NoError(t, err)

	row.CandidateText = "second attempt"
	row.Status = model.StatusReviewRequired
	id2, err := st.UpsertStaging(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	got, err := st.GetStaging(ctx, "poi-1", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "second attempt", got.CandidateText)
	assert.Equal(t, model.StatusReviewRequired, got.Status)

	byID, err := st.GetStagingByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "poi-1", byID.POIID)
}

func TestSQLite_Staging_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetStaging(context.Background(), "poi-1", "run-404")
	require.NoError(t, err)
	assert.Nil(t, got)

	byID, err := st.GetStagingByID(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, byID)
}

func TestSQLite_Staging_StatusListAndCounts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	mkRow := func(poi string, status model.StagingStatus) int64 {
		id, err := st.UpsertStaging(ctx, &model.StagingRow{
			POIID: poi, RunID: "run-1", FieldName: model.FieldDescription,
			Tier: model.TierNone, CandidateText: "text", Status: status,
			Recommendation: model.RecommendUseCandidate,
		})
		require.NoError(t, err)
		return id
	}
	idA := mkRow("a", model.StatusPending)
	mkRow("b", model.StatusPending)
	mkRow("c", model.StatusReviewRequired)

	require.NoError(t, st.UpdateStagingStatus(ctx, idA, model.StatusApproved, "reviewer", "looks good"))

	got, err := st.GetStagingByID(ctx, idA)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
	assert.Equal(t, "reviewer", got.ReviewedBy)
	assert.Equal(t, "looks good", got.ReviewNotes)
	assert.NotNil(t, got.ReviewedAt)

	err = st.UpdateStagingStatus(ctx, 9999, model.StatusApproved, "", "")
	require.Error(t, err)

	open, err := st.ListStaging(ctx, StagingFilter{
		RunID:    "run-1",
		Statuses: []model.StagingStatus{model.StatusPending, model.StatusReviewRequired},
	})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	counts, err := st.CountStagingByStatus(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.StatusApproved])
	assert.Equal(t, 1, counts[model.StatusPending])
	assert.Equal(t, 1, counts[model.StatusReviewRequired])
}

func TestSQLite_Staging_ClearRunKeepsApplied(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, r := range []struct {
		poi    string
		status model.StagingStatus
	}{
		{"a", model.StatusPending},
		{"b", model.StatusApplied},
		{"c", model.StatusRejected},
	} {
		_, err := st.UpsertStaging(ctx, &model.StagingRow{
			POIID: r.poi, RunID: "run-1", FieldName: model.FieldDescription,
			Tier: model.TierNone, CandidateText: "text", Status: r.status,
			Recommendation: model.RecommendUseCandidate,
		})
		require.NoError(t, err)
	}

	n, err := st.ClearStagingRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	applied, err := st.GetStaging(ctx, "b", "run-1")
	require.NoError(t, err)
	require.NotNil(t, applied)
	assert.Equal(t, model.StatusApplied, applied.Status)
}

func TestSQLite_Staging_UpdateCandidate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.UpsertStaging(ctx, &model.StagingRow{
		POIID: "poi-1", RunID: "run-1", FieldName: model.FieldDescription,
		Tier: model.TierNone, CandidateText: "original", WordCount: 1,
		Status: model.StatusReviewRequired, Recommendation: model.RecommendManualReview,
	})
	require.NoError(t, err)

	require.NoError(t, st.UpdateStagingCandidate(ctx, id, "edited by reviewer", 3))

	got, err := st.GetStagingByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "edited by reviewer", got.CandidateText)
	assert.Equal(t, 3, got.WordCount)
}

// --- Checkpoints ---

func TestSQLite_Checkpoint_Roundtrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	data, err := st.LoadCheckpoint(ctx, "run-1")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, st.SaveCheckpoint(ctx, "run-1", []byte(`{"completed":["a","b"]}`)))
	require.NoError(t, st.SaveCheckpoint(ctx, "run-1", []byte(`{"completed":["a","b","c"]}`)))

	data, err = st.LoadCheckpoint(ctx, "run-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"completed":["a","b","c"]}`, string(data))

	require.NoError(t, st.DeleteCheckpoint(ctx, "run-1"))
	data, err = st.LoadCheckpoint(ctx, "run-1")
	require.NoError(t, err)
	assert.Nil(t, data)
}

// --- Production ---

func TestSQLite_Production_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	pc, err := st.GetProduction(context.Background(), "poi-1", model.FieldDescription)
	require.NoError(t, err)
	assert.Nil(t, pc)
}

func TestSQLite_AuditEntries_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	entries, err := st.ListAuditEntries(context.Background(), "poi-1", model.FieldDescription, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLite_Ping(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Ping(context.Background()))
}
