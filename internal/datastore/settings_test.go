package datastore

import (
	"testing"

	"github.com/salim-benhamadi/FLOW/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelSettings_Defaults(t *testing.T) {
	store := newTestStore(t)

	settings, err := store.GetModelSettings(t.Context())
	require.NoError(t, err)
	assert.Equal(t, uint(settingsRowID), settings.ID)
	assert.InDelta(t, 0.5, settings.Sensitivity, 0.0001)
	assert.InDelta(t, 0.95, settings.ConfidenceThreshold, 0.0001)
	assert.InDelta(t, 1.0, settings.CriticalIssueWeight, 0.0001)
	assert.InDelta(t, 0.8, settings.HighPriorityWeight, 0.0001)
	assert.InDelta(t, 0.6, settings.NormalPriorityWeight, 0.0001)
	assert.False(t, settings.AutoRetrain)
	assert.Equal(t, "weekly", settings.RetrainingSchedule)
	assert.Equal(t, "v1", settings.ModelVersion)
}

func TestUpdateModelSettings_PartialUpdate(t *testing.T) {
	store := newTestStore(t)

	sensitivity := 0.8
	autoRetrain := true
	products := ProductList{"P1", "P2"}

	updated, err := store.UpdateModelSettings(t.Context(), SettingsUpdate{
		Sensitivity:      &sensitivity,
		AutoRetrain:      &autoRetrain,
		SelectedProducts: &products,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, updated.Sensitivity, 0.0001)
	assert.True(t, updated.AutoRetrain)
	assert.Equal(t, ProductList{"P1", "P2"}, updated.SelectedProducts)

	// Untouched fields keep their values
	assert.InDelta(t, 0.95, updated.ConfidenceThreshold, 0.0001)
	assert.Equal(t, "weekly", updated.RetrainingSchedule)

	stored, err := store.GetModelSettings(t.Context())
	require.NoError(t, err)
	assert.Equal(t, ProductList{"P1", "P2"}, stored.SelectedProducts)
}

func TestUpdateModelSettings_ValidationLeavesRowUntouched(t *testing.T) {
	store := newTestStore(t)

	bad := 1.5
	_, err := store.UpdateModelSettings(t.Context(), SettingsUpdate{Sensitivity: &bad})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	badWeight := 11.0
	_, err = store.UpdateModelSettings(t.Context(), SettingsUpdate{CriticalIssueWeight: &badWeight})
	assert.True(t, errors.IsValidation(err))

	badSchedule := "hourly-ish"
	_, err = store.UpdateModelSettings(t.Context(), SettingsUpdate{RetrainingSchedule: &badSchedule})
	assert.True(t, errors.IsValidation(err))

	stored, err := store.GetModelSettings(t.Context())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, stored.Sensitivity, 0.0001)
	assert.InDelta(t, 1.0, stored.CriticalIssueWeight, 0.0001)
	assert.Equal(t, "weekly", stored.RetrainingSchedule)
}

func TestUpdateModelSettings_SingleRow(t *testing.T) {
	store := newTestStore(t)

	sensitivity := 0.3
	_, err := store.UpdateModelSettings(t.Context(), SettingsUpdate{Sensitivity: &sensitivity})
	require.NoError(t, err)

	var count int64
	require.NoError(t, store.DB.Model(&ModelSettings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
