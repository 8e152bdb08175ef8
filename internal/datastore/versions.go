package datastore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/salim-benhamadi/FLOW/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VersionString formats a version number into its canonical display form.
func VersionString(versionNumber int) string {
	return "v" + strconv.Itoa(versionNumber)
}

// RegisterVersion stores a new model version. Duplicate version numbers are
// rejected with a conflict error and leave the registry untouched.
func (ds *DataStore) RegisterVersion(ctx context.Context, version *ModelVersion) error {
	if version == nil {
		return validationError("model version is nil", "version", nil)
	}
	if version.VersionNumber <= 0 {
		return validationError("version number must be positive", "version_number", version.VersionNumber)
	}
	if version.Status == "" {
		version.Status = VersionStatusInactive
	}
	if !ValidVersionStatus(version.Status) {
		return validationError("unknown version status", "status", string(version.Status))
	}

	err := ds.DB.WithContext(ctx).Create(version).Error
	if err != nil {
		if isConstraintViolation(err) {
			return conflictError(err, "register_version", "duplicate_version_number",
				"version_number", version.VersionNumber)
		}
		return dbError(err, "register_version", "", "version_number", version.VersionNumber)
	}
	return nil
}

// GetVersion retrieves a model version by primary key.
func (ds *DataStore) GetVersion(ctx context.Context, id uint) (*ModelVersion, error) {
	var version ModelVersion
	if err := ds.DB.WithContext(ctx).First(&version, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("model version", fmt.Sprintf("%d", id))
		}
		return nil, dbError(err, "get_version", "", "id", id)
	}
	return &version, nil
}

// GetVersionByNumber retrieves a model version by its version number.
func (ds *DataStore) GetVersionByNumber(ctx context.Context, number int) (*ModelVersion, error) {
	var version ModelVersion
	err := ds.DB.WithContext(ctx).Where("version_number = ?", number).First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("model version", VersionString(number))
		}
		return nil, dbError(err, "get_version_by_number", "", "version_number", number)
	}
	return &version, nil
}

// ListVersions returns all model versions, newest version number first.
func (ds *DataStore) ListVersions(ctx context.Context) ([]ModelVersion, error) {
	var versions []ModelVersion
	err := ds.DB.WithContext(ctx).Order("version_number DESC").Find(&versions).Error
	if err != nil {
		return nil, dbError(err, "list_versions", "")
	}
	return versions, nil
}

// ActivateVersion atomically makes the given version the single active one.
// Activating the already-active version is a no-op. Concurrent activations
// serialize on the row guards: exactly one wins, losers fail with a
// concurrency conflict and no partial state is ever visible.
func (ds *DataStore) ActivateVersion(ctx context.Context, id uint) error {
	outcome := "success"

	err := ds.transaction(ctx, "activate_version", func(tx *gorm.DB) error {
		var target ModelVersion
		if err := tx.First(&target, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = "error"
				return notFoundError("model version", fmt.Sprintf("%d", id))
			}
			outcome = "error"
			return dbError(err, "activate_version", "", "id", id)
		}

		if target.Status == VersionStatusActive {
			outcome = "noop"
			return nil
		}

		// Demote whatever is currently active. The status guard makes this
		// a no-op when nothing is active.
		demote := tx.Model(&ModelVersion{}).
			Where("status = ? AND id <> ?", VersionStatusActive, id).
			Updates(map[string]any{"status": VersionStatusInactive, "updated_at": time.Now()})
		if demote.Error != nil {
			outcome = "error"
			return dbError(demote.Error, "activate_version", "", "id", id)
		}

		// Promote the target. The guard detects a concurrent activation that
		// already flipped this row.
		promote := tx.Model(&ModelVersion{}).
			Where("id = ? AND status <> ?", id, VersionStatusActive).
			Updates(map[string]any{"status": VersionStatusActive, "updated_at": time.Now()})
		if promote.Error != nil {
			outcome = "error"
			return dbError(promote.Error, "activate_version", "", "id", id)
		}
		if promote.RowsAffected == 0 {
			// Re-read to classify what won the race
			var current ModelVersion
			if err := tx.First(&current, id).Error; err != nil {
				outcome = "error"
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFoundError("model version", fmt.Sprintf("%d", id))
				}
				return dbError(err, "activate_version", "", "id", id)
			}
			if current.Status == VersionStatusActive {
				outcome = "noop"
				return nil
			}
			outcome = "conflict"
			return concurrencyError("model version changed during activation", "activate_version",
				"id", id, "observed_status", string(current.Status))
		}

		pointer := VersionString(target.VersionNumber)
		if err := tx.Model(&ModelSettings{}).
			Where("id = ?", settingsRowID).
			Update("model_version", pointer).Error; err != nil {
			outcome = "error"
			return dbError(err, "activate_version", "", "id", id)
		}

		// Post-check: exactly one active row or the whole transition rolls back
		var activeCount int64
		if err := tx.Model(&ModelVersion{}).
			Where("status = ?", VersionStatusActive).
			Count(&activeCount).Error; err != nil {
			outcome = "error"
			return dbError(err, "activate_version", "", "id", id)
		}
		if activeCount != 1 {
			outcome = "conflict"
			return concurrencyError("active version count invariant violated", "activate_version",
				"id", id, "active_count", activeCount)
		}
		return nil
	})

	if ds.metrics != nil {
		ds.metrics.RecordVersionActivation(outcome)
	}
	return err
}

// RecordMetric appends a metric snapshot for an existing model version.
// Non-finite metric values are normalized to NULL.
func (ds *DataStore) RecordMetric(ctx context.Context, metric *VersionMetric) error {
	if metric == nil {
		return validationError("version metric is nil", "metric", nil)
	}

	return ds.transaction(ctx, "record_metric", func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ModelVersion{}).Where("id = ?", metric.ModelVersionID).Count(&count).Error; err != nil {
			return dbError(err, "record_metric", "", "model_version_id", metric.ModelVersionID)
		}
		if count == 0 {
			return notFoundError("model version", fmt.Sprintf("%d", metric.ModelVersionID))
		}

		metric.Accuracy = normalizeValue(metric.Accuracy)
		metric.Confidence = normalizeValue(metric.Confidence)
		metric.ErrorRate = normalizeValue(metric.ErrorRate)
		metric.VamosScore = normalizeValue(metric.VamosScore)
		metric.Precision = normalizeValue(metric.Precision)
		metric.Recall = normalizeValue(metric.Recall)
		metric.F1Score = normalizeValue(metric.F1Score)

		if err := tx.Create(metric).Error; err != nil {
			return dbError(err, "record_metric", "", "model_version_id", metric.ModelVersionID)
		}
		return nil
	})
}

// RecordTrainingEvent appends a training run event for an existing model
// version. Completion or failure of a run appends a new event rather than
// mutating a previous one.
func (ds *DataStore) RecordTrainingEvent(ctx context.Context, event *TrainingEvent) error {
	if event == nil {
		return validationError("training event is nil", "event", nil)
	}

	return ds.transaction(ctx, "record_training_event", func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ModelVersion{}).Where("id = ?", event.ModelVersionID).Count(&count).Error; err != nil {
			return dbError(err, "record_training_event", "", "model_version_id", event.ModelVersionID)
		}
		if count == 0 {
			return notFoundError("model version", fmt.Sprintf("%d", event.ModelVersionID))
		}

		event.TrainingDuration = normalizeValue(event.TrainingDuration)
		event.FinalAccuracy = normalizeValue(event.FinalAccuracy)

		if err := tx.Create(event).Error; err != nil {
			return dbError(err, "record_training_event", "", "model_version_id", event.ModelVersionID)
		}
		return nil
	})
}

// CandidateReferences returns unused references matching the insertion.
// Product is an ordering preference, not a filter: exact product matches
// sort before the rest, newest first within each group.
func (ds *DataStore) CandidateReferences(ctx context.Context, insertion, product string, limit int) ([]ReferenceDataset, error) {
	query := ds.DB.WithContext(ctx).
		Where("used_for_training = ? AND insertion = ?", false, insertion).
		Order(clause.OrderBy{
			Expression: clause.Expr{
				SQL:                "CASE WHEN product = ? THEN 0 ELSE 1 END, created_at DESC",
				Vars:               []any{product},
				WithoutParentheses: true,
			},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}

	var candidates []ReferenceDataset
	if err := query.Find(&candidates).Error; err != nil {
		return nil, dbError(err, "candidate_references", "", "insertion", insertion, "product", product)
	}
	return candidates, nil
}

// VersionMetricSnapshot joins a model version with its most recent metric.
// Metric fields are nil when a version has no metrics yet.
type VersionMetricSnapshot struct {
	ModelVersionID  uint          `gorm:"column:model_version_id"`
	VersionNumber   int           `gorm:"column:version_number"`
	Status          VersionStatus `gorm:"column:status"`
	ConfidenceScore float64       `gorm:"column:confidence_score"`
	Accuracy        *float64      `gorm:"column:accuracy"`
	Confidence      *float64      `gorm:"column:confidence"`
	ErrorRate       *float64      `gorm:"column:error_rate"`
	VamosScore      *float64      `gorm:"column:vamos_score"`
	Precision       *float64      `gorm:"column:metric_precision"`
	Recall          *float64      `gorm:"column:metric_recall"`
	F1Score         *float64      `gorm:"column:f1_score"`
	MetricCreatedAt *time.Time    `gorm:"column:metric_created_at"`
}

// LatestMetricsPerVersion returns one row per version with its most recent
// metric snapshot. Latest means created_at desc with id desc as the
// deterministic tiebreak; versions without metrics appear with nil fields.
func (ds *DataStore) LatestMetricsPerVersion(ctx context.Context) ([]VersionMetricSnapshot, error) {
	start := time.Now()

	var snapshots []VersionMetricSnapshot
	err := ds.DB.WithContext(ctx).Raw(`
		SELECT mv.id AS model_version_id,
		       mv.version_number,
		       mv.status,
		       mv.confidence_score,
		       vm.accuracy,
		       vm.confidence,
		       vm.error_rate,
		       vm.vamos_score,
		       vm.precision_score AS metric_precision,
		       vm.recall AS metric_recall,
		       vm.f1_score,
		       vm.created_at AS metric_created_at
		FROM model_versions mv
		LEFT JOIN version_metrics vm
		  ON vm.id = (
		    SELECT id FROM version_metrics
		    WHERE model_version_id = mv.id
		    ORDER BY created_at DESC, id DESC
		    LIMIT 1
		  )
		ORDER BY mv.version_number DESC`).Scan(&snapshots).Error

	if ds.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		ds.metrics.RecordAnalyticsOperation("latest_metrics", status)
		ds.metrics.RecordAnalyticsDuration("latest_metrics", time.Since(start).Seconds())
	}
	if err != nil {
		return nil, dbError(err, "latest_metrics_per_version", "")
	}
	return snapshots, nil
}
