package datastore

import (
	"context"
	"fmt"

	"github.com/salim-benhamadi/FLOW/internal/errors"
	"gorm.io/gorm"
)

// SettingsUpdate is a partial update of the model settings. Nil fields are
// left untouched.
type SettingsUpdate struct {
	Sensitivity          *float64
	SelectedProducts     *ProductList
	ConfidenceThreshold  *float64
	CriticalIssueWeight  *float64
	HighPriorityWeight   *float64
	NormalPriorityWeight *float64
	AutoRetrain          *bool
	RetrainingSchedule   *string
}

// validModelSettings checks the merged settings state before it is written.
func validModelSettings(s *ModelSettings) error {
	if s.Sensitivity < 0 || s.Sensitivity > 1 {
		return validationError("sensitivity must be in [0, 1]", "sensitivity", s.Sensitivity)
	}
	if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 1 {
		return validationError("confidence threshold must be in [0, 1]", "confidence_threshold", s.ConfidenceThreshold)
	}
	weights := map[string]float64{
		"critical_issue_weight":  s.CriticalIssueWeight,
		"high_priority_weight":   s.HighPriorityWeight,
		"normal_priority_weight": s.NormalPriorityWeight,
	}
	for field, w := range weights {
		if w < 0 || w > 10 {
			return validationError(fmt.Sprintf("%s must be in [0, 10]", field), field, w)
		}
	}
	switch s.RetrainingSchedule {
	case "daily", "weekly", "biweekly", "monthly":
	default:
		return validationError("unknown retraining schedule", "retraining_schedule", s.RetrainingSchedule)
	}
	return nil
}

// GetModelSettings returns the singleton settings row. The row is created
// at bootstrap, so this never reports not-found on an initialized store.
func (ds *DataStore) GetModelSettings(ctx context.Context) (*ModelSettings, error) {
	var settings ModelSettings
	err := ds.DB.WithContext(ctx).Where("id = ?", settingsRowID).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("model settings", fmt.Sprintf("%d", settingsRowID))
		}
		return nil, dbError(err, "get_model_settings", "")
	}
	return &settings, nil
}

// UpdateModelSettings applies a partial update to the singleton settings
// row. The merged state is validated before anything is written; a
// validation failure leaves the stored row untouched.
func (ds *DataStore) UpdateModelSettings(ctx context.Context, update SettingsUpdate) (*ModelSettings, error) {
	var result *ModelSettings

	err := ds.transaction(ctx, "update_model_settings", func(tx *gorm.DB) error {
		var settings ModelSettings
		if err := tx.Where("id = ?", settingsRowID).First(&settings).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("model settings", fmt.Sprintf("%d", settingsRowID))
			}
			return dbError(err, "update_model_settings", "")
		}

		if update.Sensitivity != nil {
			settings.Sensitivity = *update.Sensitivity
		}
		if update.SelectedProducts != nil {
			settings.SelectedProducts = *update.SelectedProducts
		}
		if update.ConfidenceThreshold != nil {
			settings.ConfidenceThreshold = *update.ConfidenceThreshold
		}
		if update.CriticalIssueWeight != nil {
			settings.CriticalIssueWeight = *update.CriticalIssueWeight
		}
		if update.HighPriorityWeight != nil {
			settings.HighPriorityWeight = *update.HighPriorityWeight
		}
		if update.NormalPriorityWeight != nil {
			settings.NormalPriorityWeight = *update.NormalPriorityWeight
		}
		if update.AutoRetrain != nil {
			settings.AutoRetrain = *update.AutoRetrain
		}
		if update.RetrainingSchedule != nil {
			settings.RetrainingSchedule = *update.RetrainingSchedule
		}

		if err := validModelSettings(&settings); err != nil {
			return err
		}

		if err := tx.Save(&settings).Error; err != nil {
			return dbError(err, "update_model_settings", "")
		}
		result = &settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
