package datastore

import (
	"math"
	"testing"

	"github.com/salim-benhamadi/FLOW/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestInput_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	err := store.IngestInput(t.Context(), &InputDataset{
		ID:         "IN-1",
		Insertion:  "FT1",
		TestName:   "vdd_leakage",
		TestNumber: 1001,
		LSL:        floatPtr(0.1),
		USL:        floatPtr(0.9),
	}, []Measurement{
		{ChipNumber: 3, Value: floatPtr(0.5)},
		{ChipNumber: 1, Value: floatPtr(0.3)},
		{ChipNumber: 2, Value: nil},
	})
	require.NoError(t, err)

	dataset, err := store.GetInput(t.Context(), "IN-1")
	require.NoError(t, err)
	assert.Equal(t, "FT1", dataset.Insertion)
	require.NotNil(t, dataset.LSL)
	assert.InDelta(t, 0.1, *dataset.LSL, 0.0001)

	// Measurements come back ordered by chip number
	measurements, err := store.GetMeasurements(t.Context(), KindInput, "IN-1")
	require.NoError(t, err)
	require.Len(t, measurements, 3)
	assert.Equal(t, 1, measurements[0].ChipNumber)
	assert.Equal(t, 2, measurements[1].ChipNumber)
	assert.Equal(t, 3, measurements[2].ChipNumber)
	assert.Nil(t, measurements[1].Value)
}

func TestIngestInput_NormalizesNonFiniteValues(t *testing.T) {
	store := newTestStore(t)

	err := store.IngestInput(t.Context(), &InputDataset{
		ID:        "IN-NAN",
		Insertion: "FT1",
		TestName:  "vdd_leakage",
		LSL:       floatPtr(math.NaN()),
	}, []Measurement{
		{ChipNumber: 1, Value: floatPtr(math.NaN())},
		{ChipNumber: 2, Value: floatPtr(math.Inf(1))},
		{ChipNumber: 3, Value: floatPtr(math.Inf(-1))},
		{ChipNumber: 4, Value: floatPtr(0.7)},
	})
	require.NoError(t, err)

	dataset, err := store.GetInput(t.Context(), "IN-NAN")
	require.NoError(t, err)
	assert.Nil(t, dataset.LSL)

	measurements, err := store.GetMeasurements(t.Context(), KindInput, "IN-NAN")
	require.NoError(t, err)
	require.Len(t, measurements, 4)
	assert.Nil(t, measurements[0].Value)
	assert.Nil(t, measurements[1].Value)
	assert.Nil(t, measurements[2].Value)
	require.NotNil(t, measurements[3].Value)
	assert.InDelta(t, 0.7, *measurements[3].Value, 0.0001)
}

func TestIngestInput_DuplicateIDFails(t *testing.T) {
	store := newTestStore(t)
	seedInput(t, store, "IN-DUP")

	err := store.IngestInput(t.Context(), &InputDataset{
		ID:        "IN-DUP",
		Insertion: "FT2",
		TestName:  "other_test",
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	// Stored row untouched
	dataset, err := store.GetInput(t.Context(), "IN-DUP")
	require.NoError(t, err)
	assert.Equal(t, "FT1", dataset.Insertion)
}

func TestGetMeasurements_UnknownKind(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetMeasurements(t.Context(), DatasetKind("bogus"), "IN-1")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestGetMeasurements_UnknownID(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetMeasurements(t.Context(), KindInput, "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteInput_Cascades(t *testing.T) {
	store := newTestStore(t)
	seedInput(t, store, "IN-DEL")

	require.NoError(t, store.DeleteInput(t.Context(), "IN-DEL"))

	_, err := store.GetInput(t.Context(), "IN-DEL")
	assert.True(t, errors.IsNotFound(err))

	var count int64
	require.NoError(t, store.DB.Model(&InputMeasurement{}).Where("input_id = ?", "IN-DEL").Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteInput_MissingFails(t *testing.T) {
	store := newTestStore(t)

	err := store.DeleteInput(t.Context(), "never-existed")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestListReferences_Filters(t *testing.T) {
	store := newTestStore(t)
	seedReference(t, store, "REF-A", "P1", "FT1")
	seedReference(t, store, "REF-B", "P2", "FT1")
	seedReference(t, store, "REF-C", "P1", "FT2")

	all, err := store.ListReferences(t.Context(), "", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	p1, err := store.ListReferences(t.Context(), "P1", "", 0)
	require.NoError(t, err)
	assert.Len(t, p1, 2)

	ft1p1, err := store.ListReferences(t.Context(), "P1", "FT1", 0)
	require.NoError(t, err)
	require.Len(t, ft1p1, 1)
	assert.Equal(t, "REF-A", ft1p1[0].ID)
}

func TestMarkReferenceUsed(t *testing.T) {
	store := newTestStore(t)
	seedReference(t, store, "REF-USE", "P1", "FT1")

	require.NoError(t, store.MarkReferenceUsed(t.Context(), "REF-USE", "v2"))

	ref, err := store.GetReference(t.Context(), "REF-USE")
	require.NoError(t, err)
	assert.True(t, ref.UsedForTraining)
	require.NotNil(t, ref.TrainingVersion)
	assert.Equal(t, "v2", *ref.TrainingVersion)

	err = store.MarkReferenceUsed(t.Context(), "missing", "v2")
	assert.True(t, errors.IsNotFound(err))
}
