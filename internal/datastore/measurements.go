package datastore

import (
	"context"
	"math"

	"github.com/salim-benhamadi/FLOW/internal/errors"
	"gorm.io/gorm"
)

// normalizeValue maps NaN and infinite values to NULL. The stores never
// contain non-finite floats, so cross-database comparisons stay sane.
func normalizeValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

// IngestInput stores an input dataset header and its measurements in a
// single transaction. A duplicate dataset ID fails with a conflict error
// and leaves the stored rows untouched.
func (ds *DataStore) IngestInput(ctx context.Context, dataset *InputDataset, measurements []Measurement) error {
	if dataset == nil || dataset.ID == "" {
		return validationError("input dataset id is empty", "input_id", "")
	}

	err := ds.transaction(ctx, "ingest_input", func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&InputDataset{}).Where("input_id = ?", dataset.ID).Count(&count).Error; err != nil {
			return dbError(err, "ingest_input", "", "input_id", dataset.ID)
		}
		if count > 0 {
			return conflictError(errors.Newf("input dataset %s already exists", dataset.ID).Build(),
				"ingest_input", "duplicate_dataset", "input_id", dataset.ID)
		}

		dataset.LSL = normalizeValue(dataset.LSL)
		dataset.USL = normalizeValue(dataset.USL)
		if err := tx.Create(dataset).Error; err != nil {
			if isConstraintViolation(err) {
				return conflictError(err, "ingest_input", "duplicate_dataset", "input_id", dataset.ID)
			}
			return dbError(err, "ingest_input", "", "input_id", dataset.ID)
		}

		rows := make([]InputMeasurement, 0, len(measurements))
		for _, m := range measurements {
			rows = append(rows, InputMeasurement{
				InputID:    dataset.ID,
				ChipNumber: m.ChipNumber,
				Value:      normalizeValue(m.Value),
			})
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				if isConstraintViolation(err) {
					return conflictError(err, "ingest_input", "duplicate_measurement", "input_id", dataset.ID)
				}
				return dbError(err, "ingest_input", "", "input_id", dataset.ID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if ds.metrics != nil {
		ds.metrics.RecordIngestedMeasurements(string(KindInput), len(measurements))
	}
	return nil
}

// IngestReference stores a reference dataset header and its measurements in
// a single transaction, same contract as IngestInput.
func (ds *DataStore) IngestReference(ctx context.Context, dataset *ReferenceDataset, measurements []Measurement) error {
	if dataset == nil || dataset.ID == "" {
		return validationError("reference dataset id is empty", "reference_id", "")
	}

	err := ds.transaction(ctx, "ingest_reference", func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ReferenceDataset{}).Where("reference_id = ?", dataset.ID).Count(&count).Error; err != nil {
			return dbError(err, "ingest_reference", "", "reference_id", dataset.ID)
		}
		if count > 0 {
			return conflictError(errors.Newf("reference dataset %s already exists", dataset.ID).Build(),
				"ingest_reference", "duplicate_dataset", "reference_id", dataset.ID)
		}

		dataset.LSL = normalizeValue(dataset.LSL)
		dataset.USL = normalizeValue(dataset.USL)
		dataset.QualityScore = normalizeValue(dataset.QualityScore)
		if err := tx.Create(dataset).Error; err != nil {
			if isConstraintViolation(err) {
				return conflictError(err, "ingest_reference", "duplicate_dataset", "reference_id", dataset.ID)
			}
			return dbError(err, "ingest_reference", "", "reference_id", dataset.ID)
		}

		rows := make([]ReferenceMeasurement, 0, len(measurements))
		for _, m := range measurements {
			rows = append(rows, ReferenceMeasurement{
				ReferenceID: dataset.ID,
				ChipNumber:  m.ChipNumber,
				Value:       normalizeValue(m.Value),
			})
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				if isConstraintViolation(err) {
					return conflictError(err, "ingest_reference", "duplicate_measurement", "reference_id", dataset.ID)
				}
				return dbError(err, "ingest_reference", "", "reference_id", dataset.ID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if ds.metrics != nil {
		ds.metrics.RecordIngestedMeasurements(string(KindReference), len(measurements))
	}
	return nil
}

// GetInput retrieves an input dataset header by ID.
func (ds *DataStore) GetInput(ctx context.Context, id string) (*InputDataset, error) {
	var dataset InputDataset
	err := ds.DB.WithContext(ctx).Where("input_id = ?", id).First(&dataset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("input dataset", id)
		}
		return nil, dbError(err, "get_input", "", "input_id", id)
	}
	return &dataset, nil
}

// GetReference retrieves a reference dataset header by ID.
func (ds *DataStore) GetReference(ctx context.Context, id string) (*ReferenceDataset, error) {
	var dataset ReferenceDataset
	err := ds.DB.WithContext(ctx).Where("reference_id = ?", id).First(&dataset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("reference dataset", id)
		}
		return nil, dbError(err, "get_reference", "", "reference_id", id)
	}
	return &dataset, nil
}

// ListReferences returns reference dataset headers, optionally filtered by
// product and insertion, newest first.
func (ds *DataStore) ListReferences(ctx context.Context, product, insertion string, limit int) ([]ReferenceDataset, error) {
	query := ds.DB.WithContext(ctx).Model(&ReferenceDataset{})
	if product != "" {
		query = query.Where("product = ?", product)
	}
	if insertion != "" {
		query = query.Where("insertion = ?", insertion)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var datasets []ReferenceDataset
	if err := query.Order("created_at DESC").Find(&datasets).Error; err != nil {
		return nil, dbError(err, "list_references", "", "product", product, "insertion", insertion)
	}
	return datasets, nil
}

// GetMeasurements returns the per-chip values of a dataset ordered by chip
// number. kind selects the input or reference store.
func (ds *DataStore) GetMeasurements(ctx context.Context, kind DatasetKind, id string) ([]Measurement, error) {
	var measurements []Measurement

	switch kind {
	case KindInput:
		if _, err := ds.GetInput(ctx, id); err != nil {
			return nil, err
		}
		err := ds.DB.WithContext(ctx).Model(&InputMeasurement{}).
			Select("chip_number, value").
			Where("input_id = ?", id).
			Order("chip_number ASC").
			Scan(&measurements).Error
		if err != nil {
			return nil, dbError(err, "get_measurements", "", "kind", string(kind), "id", id)
		}
	case KindReference:
		if _, err := ds.GetReference(ctx, id); err != nil {
			return nil, err
		}
		err := ds.DB.WithContext(ctx).Model(&ReferenceMeasurement{}).
			Select("chip_number, value").
			Where("reference_id = ?", id).
			Order("chip_number ASC").
			Scan(&measurements).Error
		if err != nil {
			return nil, dbError(err, "get_measurements", "", "kind", string(kind), "id", id)
		}
	default:
		return nil, validationError("unknown dataset kind", "kind", string(kind))
	}

	return measurements, nil
}

// DeleteInput removes an input dataset and its measurements.
func (ds *DataStore) DeleteInput(ctx context.Context, id string) error {
	return ds.transaction(ctx, "delete_input", func(tx *gorm.DB) error {
		result := tx.Where("input_id = ?", id).Delete(&InputDataset{})
		if result.Error != nil {
			return dbError(result.Error, "delete_input", "", "input_id", id)
		}
		if result.RowsAffected == 0 {
			return notFoundError("input dataset", id)
		}
		// Explicit cascade for engines that did not propagate the constraint
		if err := tx.Where("input_id = ?", id).Delete(&InputMeasurement{}).Error; err != nil {
			return dbError(err, "delete_input", "", "input_id", id)
		}
		return nil
	})
}

// DeleteReference removes a reference dataset and its measurements.
func (ds *DataStore) DeleteReference(ctx context.Context, id string) error {
	return ds.transaction(ctx, "delete_reference", func(tx *gorm.DB) error {
		result := tx.Where("reference_id = ?", id).Delete(&ReferenceDataset{})
		if result.Error != nil {
			return dbError(result.Error, "delete_reference", "", "reference_id", id)
		}
		if result.RowsAffected == 0 {
			return notFoundError("reference dataset", id)
		}
		if err := tx.Where("reference_id = ?", id).Delete(&ReferenceMeasurement{}).Error; err != nil {
			return dbError(err, "delete_reference", "", "reference_id", id)
		}
		return nil
	})
}

// MarkReferenceUsed flags a reference dataset as consumed by a training run.
func (ds *DataStore) MarkReferenceUsed(ctx context.Context, id, trainingVersion string) error {
	result := ds.DB.WithContext(ctx).Model(&ReferenceDataset{}).
		Where("reference_id = ?", id).
		Updates(map[string]any{
			"used_for_training": true,
			"training_version":  trainingVersion,
		})
	if result.Error != nil {
		return dbError(result.Error, "mark_reference_used", "", "reference_id", id)
	}
	if result.RowsAffected == 0 {
		return notFoundError("reference dataset", id)
	}
	return nil
}
