package datastore

import (
	"testing"

	"github.com/salim-benhamadi/FLOW/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTrainingLabel(t *testing.T) {
	store := newTestStore(t)
	seedReference(t, store, "REF-1", "P1", "FT1")
	seedReference(t, store, "REF-2", "P1", "FT1")

	label := &TrainingLabel{
		ReferenceID1: "REF-1",
		ReferenceID2: "REF-2",
		Label:        LabelModeratelySimilar,
	}
	require.NoError(t, store.AddTrainingLabel(t.Context(), label))

	// Duplicate pairs are retained as separate rows
	require.NoError(t, store.AddTrainingLabel(t.Context(), &TrainingLabel{
		ReferenceID1: "REF-1",
		ReferenceID2: "REF-2",
		Label:        LabelSimilar,
	}))

	var count int64
	require.NoError(t, store.DB.Model(&TrainingLabel{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestAddTrainingLabel_Validation(t *testing.T) {
	store := newTestStore(t)
	seedReference(t, store, "REF-1", "P1", "FT1")

	err := store.AddTrainingLabel(t.Context(), &TrainingLabel{
		ReferenceID1: "REF-1",
		ReferenceID2: "REF-MISSING",
		Label:        LabelSimilar,
	})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	err = store.AddTrainingLabel(t.Context(), &TrainingLabel{
		ReferenceID1: "REF-1",
		ReferenceID2: "REF-1",
		Label:        SimilarityLabel("KINDA"),
	})
	assert.True(t, errors.IsValidation(err))
}

func TestLabelsForReference_EitherPosition(t *testing.T) {
	store := newTestStore(t)
	seedReference(t, store, "REF-1", "P1", "FT1")
	seedReference(t, store, "REF-2", "P1", "FT1")
	seedReference(t, store, "REF-3", "P1", "FT1")

	require.NoError(t, store.AddTrainingLabel(t.Context(), &TrainingLabel{
		ReferenceID1: "REF-1", ReferenceID2: "REF-2", Label: LabelSimilar,
	}))
	require.NoError(t, store.AddTrainingLabel(t.Context(), &TrainingLabel{
		ReferenceID1: "REF-3", ReferenceID2: "REF-1", Label: LabelCompletelyDifferent,
	}))
	require.NoError(t, store.AddTrainingLabel(t.Context(), &TrainingLabel{
		ReferenceID1: "REF-2", ReferenceID2: "REF-3", Label: LabelSimilar,
	}))

	labels, err := store.LabelsForReference(t.Context(), "REF-1")
	require.NoError(t, err)
	assert.Len(t, labels, 2)
}
