package datastore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// SaveAnalysisResult appends a distribution-analysis outcome. The model
// version must exist and at least one of InputID/ReferenceID must be set;
// the metadata payload is stored opaquely.
func (ds *DataStore) SaveAnalysisResult(ctx context.Context, result *AnalysisResult) error {
	if result == nil {
		return validationError("analysis result is nil", "result", nil)
	}
	if (result.InputID == nil || *result.InputID == "") &&
		(result.ReferenceID == nil || *result.ReferenceID == "") {
		return validationError("analysis result needs an input or reference id", "input_id", "")
	}

	return ds.transaction(ctx, "save_analysis_result", func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ModelVersion{}).Where("id = ?", result.ModelVersionID).Count(&count).Error; err != nil {
			return dbError(err, "save_analysis_result", "", "model_version_id", result.ModelVersionID)
		}
		if count == 0 {
			return notFoundError("model version", fmt.Sprintf("%d", result.ModelVersionID))
		}

		if err := tx.Create(result).Error; err != nil {
			return dbError(err, "save_analysis_result", "", "model_version_id", result.ModelVersionID)
		}
		return nil
	})
}

// RecentAnalysisResults returns analysis results newest first.
func (ds *DataStore) RecentAnalysisResults(ctx context.Context, limit int) ([]AnalysisResult, error) {
	query := ds.DB.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var results []AnalysisResult
	if err := query.Find(&results).Error; err != nil {
		return nil, dbError(err, "recent_analysis_results", "")
	}
	return results, nil
}
