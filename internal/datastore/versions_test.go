package datastore

import (
	"sync"
	"testing"
	"time"

	"github.com/salim-benhamadi/FLOW/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapSeedsInitialVersion(t *testing.T) {
	store := newTestStore(t)

	versions, err := store.ListVersions(t.Context())
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].VersionNumber)
	assert.Equal(t, VersionStatusActive, versions[0].Status)
	assert.InDelta(t, 0.85, versions[0].ConfidenceScore, 0.0001)

	settings, err := store.GetModelSettings(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "v1", settings.ModelVersion)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	// Re-running migration and seeding must not duplicate anything
	require.NoError(t, performAutoMigration(store.DB, false, "SQLite", "test"))

	versions, err := store.ListVersions(t.Context())
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	var migrationCount int64
	require.NoError(t, store.DB.Model(&SchemaMigration{}).Count(&migrationCount).Error)
	assert.Equal(t, int64(len(tableMappings)), migrationCount)
}

func TestRegisterVersion_DuplicateNumberFails(t *testing.T) {
	store := newTestStore(t)

	err := store.RegisterVersion(t.Context(), &ModelVersion{VersionNumber: 2})
	require.NoError(t, err)

	err = store.RegisterVersion(t.Context(), &ModelVersion{VersionNumber: 2})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestRegisterVersion_Validation(t *testing.T) {
	store := newTestStore(t)

	err := store.RegisterVersion(t.Context(), &ModelVersion{VersionNumber: 0})
	assert.True(t, errors.IsValidation(err))

	err = store.RegisterVersion(t.Context(), &ModelVersion{VersionNumber: 3, Status: "bogus"})
	assert.True(t, errors.IsValidation(err))

	// Empty status defaults to inactive
	v := &ModelVersion{VersionNumber: 3}
	require.NoError(t, store.RegisterVersion(t.Context(), v))
	stored, err := store.GetVersion(t.Context(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, VersionStatusInactive, stored.Status)
}

func TestActivateVersion_SwitchesActive(t *testing.T) {
	store := newTestStore(t)

	v2 := &ModelVersion{VersionNumber: 2}
	require.NoError(t, store.RegisterVersion(t.Context(), v2))

	require.NoError(t, store.ActivateVersion(t.Context(), v2.ID))

	versions, err := store.ListVersions(t.Context())
	require.NoError(t, err)

	activeCount := 0
	for _, v := range versions {
		if v.Status == VersionStatusActive {
			activeCount++
			assert.Equal(t, 2, v.VersionNumber)
		}
	}
	assert.Equal(t, 1, activeCount)

	settings, err := store.GetModelSettings(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "v2", settings.ModelVersion)
}

func TestActivateVersion_AlreadyActiveIsNoop(t *testing.T) {
	store := newTestStore(t)

	active, err := store.GetVersionByNumber(t.Context(), 1)
	require.NoError(t, err)

	require.NoError(t, store.ActivateVersion(t.Context(), active.ID))

	settings, err := store.GetModelSettings(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "v1", settings.ModelVersion)
}

func TestActivateVersion_MissingFails(t *testing.T) {
	store := newTestStore(t)

	err := store.ActivateVersion(t.Context(), 99999)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestActivateVersion_ConcurrentSingleWinner(t *testing.T) {
	store := newTestStore(t)

	ids := make([]uint, 0, 4)
	for n := 2; n <= 5; n++ {
		v := &ModelVersion{VersionNumber: n}
		require.NoError(t, store.RegisterVersion(t.Context(), v))
		ids = append(ids, v.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(target uint) {
			defer wg.Done()
			// Losing a race is acceptable; corrupting the invariant is not
			_ = store.ActivateVersion(t.Context(), target)
		}(id)
	}
	wg.Wait()

	var activeCount int64
	require.NoError(t, store.DB.Model(&ModelVersion{}).
		Where("status = ?", VersionStatusActive).
		Count(&activeCount).Error)
	assert.Equal(t, int64(1), activeCount)

	// The settings pointer matches whichever version won
	var active ModelVersion
	require.NoError(t, store.DB.Where("status = ?", VersionStatusActive).First(&active).Error)
	settings, err := store.GetModelSettings(t.Context())
	require.NoError(t, err)
	assert.Equal(t, VersionString(active.VersionNumber), settings.ModelVersion)
}

func TestRecordMetric(t *testing.T) {
	store := newTestStore(t)

	active, err := store.GetVersionByNumber(t.Context(), 1)
	require.NoError(t, err)

	err = store.RecordMetric(t.Context(), &VersionMetric{
		ModelVersionID: active.ID,
		Accuracy:       floatPtr(0.91),
		VamosScore:     floatPtr(0.88),
	})
	require.NoError(t, err)

	err = store.RecordMetric(t.Context(), &VersionMetric{ModelVersionID: 99999})
	assert.True(t, errors.IsNotFound(err))
}

func TestRecordTrainingEvent_AppendsRows(t *testing.T) {
	store := newTestStore(t)

	active, err := store.GetVersionByNumber(t.Context(), 1)
	require.NoError(t, err)

	started := &TrainingEvent{
		ModelVersionID:   active.ID,
		EventType:        "manual",
		MatchedInsertion: "FT1",
		Status:           "started",
		InitiatedBy:      "scheduler",
	}
	require.NoError(t, store.RecordTrainingEvent(t.Context(), started))

	// Completion appends a second event rather than mutating the first
	completed := &TrainingEvent{
		ModelVersionID:   active.ID,
		EventType:        "manual",
		MatchedInsertion: "FT1",
		Status:           "completed",
		TrainingDuration: floatPtr(42.5),
		FinalAccuracy:    floatPtr(0.93),
		InitiatedBy:      "scheduler",
	}
	require.NoError(t, store.RecordTrainingEvent(t.Context(), completed))

	var count int64
	require.NoError(t, store.DB.Model(&TrainingEvent{}).
		Where("model_version_id = ?", active.ID).
		Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestCandidateReferences_ProductOrdersButDoesNotFilter(t *testing.T) {
	store := newTestStore(t)

	seedReference(t, store, "R2", "P2", "FT1")
	// Ensure distinct created_at so the secondary ordering is observable
	time.Sleep(10 * time.Millisecond)
	seedReference(t, store, "R1", "P1", "FT1")
	seedReference(t, store, "R3", "P1", "FT9")
	require.NoError(t, store.MarkReferenceUsed(t.Context(), "R3", "v1"))

	candidates, err := store.CandidateReferences(t.Context(), "FT1", "P1", 0)
	require.NoError(t, err)
	require.Len(t, candidates, 2, "non-matching product rows must still be returned")
	assert.Equal(t, "R1", candidates[0].ID, "exact product match orders first")
	assert.Equal(t, "R2", candidates[1].ID)
}

func TestLatestMetricsPerVersion_DeterministicTiebreak(t *testing.T) {
	store := newTestStore(t)

	active, err := store.GetVersionByNumber(t.Context(), 1)
	require.NoError(t, err)

	// Two metrics with identical timestamps: the higher id wins
	now := time.Now()
	older := VersionMetric{ModelVersionID: active.ID, Accuracy: floatPtr(0.80), CreatedAt: now}
	newer := VersionMetric{ModelVersionID: active.ID, Accuracy: floatPtr(0.95), CreatedAt: now}
	require.NoError(t, store.DB.Create(&older).Error)
	require.NoError(t, store.DB.Create(&newer).Error)

	v2 := &ModelVersion{VersionNumber: 2}
	require.NoError(t, store.RegisterVersion(t.Context(), v2))

	snapshots, err := store.LatestMetricsPerVersion(t.Context())
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	// Ordered by version number desc; v2 has no metrics
	assert.Equal(t, 2, snapshots[0].VersionNumber)
	assert.Nil(t, snapshots[0].Accuracy)

	assert.Equal(t, 1, snapshots[1].VersionNumber)
	require.NotNil(t, snapshots[1].Accuracy)
	assert.InDelta(t, 0.95, *snapshots[1].Accuracy, 0.0001)
}
