package datastore

import (
	"context"

	"gorm.io/gorm"
)

// AddTrainingLabel appends a pairwise similarity label. Both referenced
// datasets must exist; duplicate pairs are retained as separate rows.
func (ds *DataStore) AddTrainingLabel(ctx context.Context, label *TrainingLabel) error {
	if label == nil {
		return validationError("training label is nil", "label", nil)
	}
	if label.ReferenceID1 == "" || label.ReferenceID2 == "" {
		return validationError("training label references are empty", "reference_ids",
			label.ReferenceID1+","+label.ReferenceID2)
	}
	if !ValidSimilarityLabel(label.Label) {
		return validationError("unknown similarity label", "label", string(label.Label))
	}

	return ds.transaction(ctx, "add_training_label", func(tx *gorm.DB) error {
		for _, refID := range []string{label.ReferenceID1, label.ReferenceID2} {
			var count int64
			if err := tx.Model(&ReferenceDataset{}).Where("reference_id = ?", refID).Count(&count).Error; err != nil {
				return dbError(err, "add_training_label", "", "reference_id", refID)
			}
			if count == 0 {
				return notFoundError("reference dataset", refID)
			}
		}

		if err := tx.Create(label).Error; err != nil {
			return dbError(err, "add_training_label", "",
				"reference_id_1", label.ReferenceID1,
				"reference_id_2", label.ReferenceID2)
		}
		return nil
	})
}

// LabelsForReference returns labels where the reference appears in either
// position, newest first.
func (ds *DataStore) LabelsForReference(ctx context.Context, referenceID string) ([]TrainingLabel, error) {
	var labels []TrainingLabel
	err := ds.DB.WithContext(ctx).
		Where("reference_id_1 = ? OR reference_id_2 = ?", referenceID, referenceID).
		Order("created_at DESC").
		Find(&labels).Error
	if err != nil {
		return nil, dbError(err, "labels_for_reference", "", "reference_id", referenceID)
	}
	return labels, nil
}
