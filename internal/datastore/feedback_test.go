package datastore

import (
	"testing"

	"github.com/salim-benhamadi/FLOW/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// submitTestFeedback creates the datasets a feedback record points at and
// submits it, returning the stored record.
func submitTestFeedback(t *testing.T, store *SQLiteStore, severity FeedbackSeverity) *FeedbackRecord {
	t.Helper()

	seedInput(t, store, "IN-FB-"+string(severity))
	seedReference(t, store, "REF-FB-"+string(severity), "P1", "FT1")

	feedback := &FeedbackRecord{
		Severity:     severity,
		TestName:     "vdd_leakage",
		TestNumber:   1001,
		Lot:          "LOT-7",
		Insertion:    "FT1",
		InitialLabel: string(LabelSimilar),
		ReferenceID:  "REF-FB-" + string(severity),
		InputID:      "IN-FB-" + string(severity),
	}
	require.NoError(t, store.SubmitFeedback(t.Context(), feedback))
	return feedback
}

func TestSubmitFeedback_ForcesPending(t *testing.T) {
	store := newTestStore(t)
	seedInput(t, store, "IN-1")
	seedReference(t, store, "REF-1", "P1", "FT1")

	label := "wrong"
	feedback := &FeedbackRecord{
		Severity:    SeverityHigh,
		Status:      FeedbackStatusResolved, // caller-set status is ignored
		NewLabel:    &label,
		TestName:    "vdd_leakage",
		ReferenceID: "REF-1",
		InputID:     "IN-1",
	}
	require.NoError(t, store.SubmitFeedback(t.Context(), feedback))

	stored, err := store.GetFeedback(t.Context(), feedback.ID)
	require.NoError(t, err)
	assert.Equal(t, FeedbackStatusPending, stored.Status)
	assert.Nil(t, stored.NewLabel)
}

func TestSubmitFeedback_Validation(t *testing.T) {
	store := newTestStore(t)
	seedInput(t, store, "IN-1")
	seedReference(t, store, "REF-1", "P1", "FT1")

	err := store.SubmitFeedback(t.Context(), &FeedbackRecord{
		Severity:    FeedbackSeverity("SHRUG"),
		ReferenceID: "REF-1",
		InputID:     "IN-1",
	})
	assert.True(t, errors.IsValidation(err))

	err = store.SubmitFeedback(t.Context(), &FeedbackRecord{
		Severity:    SeverityMedium,
		ReferenceID: "REF-MISSING",
		InputID:     "IN-1",
	})
	assert.True(t, errors.IsNotFound(err))

	err = store.SubmitFeedback(t.Context(), &FeedbackRecord{
		Severity:    SeverityMedium,
		ReferenceID: "REF-1",
		InputID:     "IN-MISSING",
	})
	assert.True(t, errors.IsNotFound(err))
}

func TestResolveFeedback(t *testing.T) {
	store := newTestStore(t)
	feedback := submitTestFeedback(t, store, SeverityHigh)

	require.NoError(t, store.ResolveFeedback(t.Context(), feedback.ID, string(LabelCompletelyDifferent)))

	stored, err := store.GetFeedback(t.Context(), feedback.ID)
	require.NoError(t, err)
	assert.Equal(t, FeedbackStatusResolved, stored.Status)
	require.NotNil(t, stored.NewLabel)
	assert.Equal(t, string(LabelCompletelyDifferent), *stored.NewLabel)
}

func TestResolveFeedback_EmptyLabelFails(t *testing.T) {
	store := newTestStore(t)
	feedback := submitTestFeedback(t, store, SeverityHigh)

	err := store.ResolveFeedback(t.Context(), feedback.ID, "")
	assert.True(t, errors.IsValidation(err))

	stored, err := store.GetFeedback(t.Context(), feedback.ID)
	require.NoError(t, err)
	assert.Equal(t, FeedbackStatusPending, stored.Status)
}

func TestFeedbackTransitions_AreTerminal(t *testing.T) {
	store := newTestStore(t)
	feedback := submitTestFeedback(t, store, SeverityCritical)

	require.NoError(t, store.IgnoreFeedback(t.Context(), feedback.ID))

	// IGNORED is terminal: neither resolve nor a second ignore is allowed
	err := store.ResolveFeedback(t.Context(), feedback.ID, string(LabelSimilar))
	require.Error(t, err)
	assert.True(t, errors.IsInvalidState(err))

	err = store.IgnoreFeedback(t.Context(), feedback.ID)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidState(err))

	stored, err := store.GetFeedback(t.Context(), feedback.ID)
	require.NoError(t, err)
	assert.Equal(t, FeedbackStatusIgnored, stored.Status)
}

func TestTransitionFeedback_MissingFails(t *testing.T) {
	store := newTestStore(t)

	err := store.IgnoreFeedback(t.Context(), 99999)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestPendingFeedback_SeverityFilter(t *testing.T) {
	store := newTestStore(t)
	submitTestFeedback(t, store, SeverityHigh)
	critical := submitTestFeedback(t, store, SeverityCritical)
	require.NoError(t, store.IgnoreFeedback(t.Context(), critical.ID))

	pending, err := store.PendingFeedback(t.Context(), "", 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	high, err := store.PendingFeedback(t.Context(), string(SeverityHigh), 0)
	require.NoError(t, err)
	assert.Len(t, high, 1)

	none, err := store.PendingFeedback(t.Context(), string(SeverityCritical), 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = store.PendingFeedback(t.Context(), "bogus", 0)
	assert.True(t, errors.IsValidation(err))
}

func TestSearchFeedback(t *testing.T) {
	store := newTestStore(t)
	feedback := submitTestFeedback(t, store, SeverityHigh)

	// Attach two analysis results to the same input; the search joins the latest
	active, err := store.GetVersionByNumber(t.Context(), 1)
	require.NoError(t, err)

	inputID := feedback.InputID
	require.NoError(t, store.SaveAnalysisResult(t.Context(), &AnalysisResult{
		ModelVersionID:   active.ID,
		InputID:          &inputID,
		TestName:         "vdd_leakage",
		DistributionType: "normal",
		ConfidenceScore:  0.70,
	}))
	require.NoError(t, store.SaveAnalysisResult(t.Context(), &AnalysisResult{
		ModelVersionID:   active.ID,
		InputID:          &inputID,
		TestName:         "vdd_leakage",
		DistributionType: "bimodal",
		ConfidenceScore:  0.97,
	}))

	rows, err := store.SearchFeedback(t.Context(), FeedbackQuery{Search: "LOT-7"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].DistributionType)
	assert.Equal(t, "bimodal", *rows[0].DistributionType)
	require.NotNil(t, rows[0].AnalysisScore)
	assert.InDelta(t, 0.97, *rows[0].AnalysisScore, 0.0001)

	rows, err = store.SearchFeedback(t.Context(), FeedbackQuery{Status: string(FeedbackStatusResolved)})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = store.SearchFeedback(t.Context(), FeedbackQuery{Search: "no-such-lot"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
