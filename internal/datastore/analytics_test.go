package datastore

import (
	"testing"

	"github.com/salim-benhamadi/FLOW/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionTrainingSummaries(t *testing.T) {
	store := newTestStore(t)

	active, err := store.GetVersionByNumber(t.Context(), 1)
	require.NoError(t, err)

	require.NoError(t, store.RecordTrainingEvent(t.Context(), &TrainingEvent{
		ModelVersionID: active.ID,
		EventType:      "manual",
		Status:         "completed",
	}))

	v2 := &ModelVersion{VersionNumber: 2}
	require.NoError(t, store.RegisterVersion(t.Context(), v2))

	summaries, err := store.VersionTrainingSummaries(t.Context())
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Newest version first; no metrics or events yet
	assert.Equal(t, 2, summaries[0].VersionNumber)
	assert.Nil(t, summaries[0].Accuracy)
	assert.Zero(t, summaries[0].EventCount)
	assert.Nil(t, summaries[0].LastEventAt)

	// Bootstrap metric plus the event recorded above
	assert.Equal(t, 1, summaries[1].VersionNumber)
	require.NotNil(t, summaries[1].Accuracy)
	assert.Equal(t, int64(1), summaries[1].EventCount)
	assert.NotNil(t, summaries[1].LastEventAt)
}

func TestFeedbackBreakdownAndResolutionStats(t *testing.T) {
	store := newTestStore(t)

	high := submitTestFeedback(t, store, SeverityHigh)
	submitTestFeedback(t, store, SeverityCritical)
	require.NoError(t, store.ResolveFeedback(t.Context(), high.ID, string(LabelSimilar)))

	breakdown, err := store.FeedbackBreakdown(t.Context())
	require.NoError(t, err)
	assert.Len(t, breakdown, 2)
	for _, row := range breakdown {
		assert.Equal(t, int64(1), row.Count)
		assert.NotEmpty(t, row.Earliest)
		assert.GreaterOrEqual(t, row.Latest, row.Earliest)
	}

	stats, err := store.FeedbackResolutionStats(t.Context())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byStatus := map[FeedbackSeverity]FeedbackResolutionStat{}
	for _, s := range stats {
		byStatus[s.Severity] = s
	}

	highStat := byStatus[SeverityHigh]
	assert.Equal(t, int64(1), highStat.Total)
	assert.Equal(t, int64(1), highStat.Resolved)
	assert.InDelta(t, 1.0, highStat.ResolutionRate, 0.0001)

	criticalStat := byStatus[SeverityCritical]
	assert.Equal(t, int64(1), criticalStat.Pending)
	assert.InDelta(t, 0.0, criticalStat.ResolutionRate, 0.0001)
}

func TestAnalysisStats(t *testing.T) {
	store := newTestStore(t)
	seedInput(t, store, "IN-1")

	active, err := store.GetVersionByNumber(t.Context(), 1)
	require.NoError(t, err)

	inputID := "IN-1"
	for _, score := range []float64{0.99, 0.97, 0.60} {
		require.NoError(t, store.SaveAnalysisResult(t.Context(), &AnalysisResult{
			ModelVersionID:  active.ID,
			InputID:         &inputID,
			TestName:        "vdd_leakage",
			ConfidenceScore: score,
		}))
	}

	rows, err := store.AnalysisStats(t.Context(), 0.95, 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "vdd_leakage", rows[0].TestName)
	assert.Equal(t, 1, rows[0].VersionNumber)
	assert.Equal(t, int64(3), rows[0].Count)
	assert.Equal(t, int64(2), rows[0].AboveThreshold)
	assert.InDelta(t, 0.60, rows[0].MinConfidence, 0.0001)
	assert.InDelta(t, 0.99, rows[0].MaxConfidence, 0.0001)

	_, err = store.AnalysisStats(t.Context(), 0.95, 0)
	assert.True(t, errors.IsValidation(err))
}

func TestSaveAnalysisResult_Validation(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveAnalysisResult(t.Context(), &AnalysisResult{
		ModelVersionID:  1,
		ConfidenceScore: 0.5,
	})
	assert.True(t, errors.IsValidation(err), "needs input or reference id")

	id := "IN-1"
	err = store.SaveAnalysisResult(t.Context(), &AnalysisResult{
		ModelVersionID: 99999,
		InputID:        &id,
	})
	assert.True(t, errors.IsNotFound(err))
}

func TestAPIUsageStats(t *testing.T) {
	store := newTestStore(t)

	entries := []APILog{
		{Endpoint: "/api/v1/versions", Method: "GET", StatusCode: 200, ResponseTime: 12.0},
		{Endpoint: "/api/v1/versions", Method: "POST", StatusCode: 201, ResponseTime: 30.0},
		{Endpoint: "/api/v1/feedback", Method: "POST", StatusCode: 422, ResponseTime: 6.0},
	}
	for i := range entries {
		require.NoError(t, store.LogAPIRequest(t.Context(), &entries[i]))
	}

	stats, err := store.APIUsageStats(t.Context(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.ErrorCount)
	assert.InDelta(t, 16.0, stats.AvgResponseTime, 0.0001)
	require.Len(t, stats.PerDay, 1)
	assert.Equal(t, int64(3), stats.PerDay[0].Count)
}

func TestRecentAnalysisResults_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	seedInput(t, store, "IN-1")

	active, err := store.GetVersionByNumber(t.Context(), 1)
	require.NoError(t, err)

	inputID := "IN-1"
	for _, dist := range []string{"normal", "skewed", "bimodal"} {
		require.NoError(t, store.SaveAnalysisResult(t.Context(), &AnalysisResult{
			ModelVersionID:   active.ID,
			InputID:          &inputID,
			DistributionType: dist,
			ConfidenceScore:  0.9,
		}))
	}

	results, err := store.RecentAnalysisResults(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "bimodal", results[0].DistributionType)
	assert.Equal(t, "skewed", results[1].DistributionType)
}
