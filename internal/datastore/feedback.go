package datastore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/salim-benhamadi/FLOW/internal/errors"
	"gorm.io/gorm"
)

// SubmitFeedback stores a new feedback record. Status is always forced to
// PENDING; the referenced input and reference datasets must exist at
// submission time.
func (ds *DataStore) SubmitFeedback(ctx context.Context, feedback *FeedbackRecord) error {
	if feedback == nil {
		return validationError("feedback is nil", "feedback", nil)
	}
	if !ValidFeedbackSeverity(feedback.Severity) {
		return validationError("unknown feedback severity", "severity", string(feedback.Severity))
	}
	if feedback.InputID == "" {
		return validationError("feedback input id is empty", "input_id", "")
	}
	if feedback.ReferenceID == "" {
		return validationError("feedback reference id is empty", "reference_id", "")
	}

	outcome := "success"
	err := ds.transaction(ctx, "submit_feedback", func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&InputDataset{}).Where("input_id = ?", feedback.InputID).Count(&count).Error; err != nil {
			return dbError(err, "submit_feedback", "", "input_id", feedback.InputID)
		}
		if count == 0 {
			return notFoundError("input dataset", feedback.InputID)
		}

		if err := tx.Model(&ReferenceDataset{}).Where("reference_id = ?", feedback.ReferenceID).Count(&count).Error; err != nil {
			return dbError(err, "submit_feedback", "", "reference_id", feedback.ReferenceID)
		}
		if count == 0 {
			return notFoundError("reference dataset", feedback.ReferenceID)
		}

		feedback.Status = FeedbackStatusPending
		feedback.NewLabel = nil
		if err := tx.Create(feedback).Error; err != nil {
			return dbError(err, "submit_feedback", "")
		}
		return nil
	})
	if err != nil {
		outcome = "error"
	}
	if ds.metrics != nil {
		ds.metrics.RecordFeedbackTransition(string(FeedbackStatusPending), outcome)
	}
	return err
}

// transitionFeedback flips a PENDING record to the given terminal status via
// a guarded update. Losing the guard re-reads the row to classify the
// failure: missing row or a record already outside PENDING.
func (ds *DataStore) transitionFeedback(ctx context.Context, id uint, to FeedbackStatus, updates map[string]any) error {
	outcome := "success"
	err := ds.transaction(ctx, "transition_feedback", func(tx *gorm.DB) error {
		updates["status"] = to
		updates["updated_at"] = time.Now()

		result := tx.Model(&FeedbackRecord{}).
			Where("id = ? AND status = ?", id, FeedbackStatusPending).
			Updates(updates)
		if result.Error != nil {
			return dbError(result.Error, "transition_feedback", "", "id", id, "to_status", string(to))
		}
		if result.RowsAffected == 0 {
			var current FeedbackRecord
			if err := tx.First(&current, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFoundError("feedback", fmt.Sprintf("%d", id))
				}
				return dbError(err, "transition_feedback", "", "id", id)
			}
			return stateError(
				fmt.Sprintf("feedback %d is %s, only PENDING records can transition", id, current.Status),
				"feedback_status",
				"id", id,
				"current_status", string(current.Status),
				"requested_status", string(to))
		}
		return nil
	})
	if err != nil {
		outcome = "error"
	}
	if ds.metrics != nil {
		ds.metrics.RecordFeedbackTransition(string(to), outcome)
	}
	return err
}

// ResolveFeedback marks a PENDING feedback record as RESOLVED with the
// corrected label.
func (ds *DataStore) ResolveFeedback(ctx context.Context, id uint, newLabel string) error {
	if newLabel == "" {
		return validationError("new label is empty", "new_label", "")
	}
	return ds.transitionFeedback(ctx, id, FeedbackStatusResolved, map[string]any{
		"new_label": newLabel,
	})
}

// IgnoreFeedback marks a PENDING feedback record as IGNORED.
func (ds *DataStore) IgnoreFeedback(ctx context.Context, id uint) error {
	return ds.transitionFeedback(ctx, id, FeedbackStatusIgnored, map[string]any{})
}

// GetFeedback retrieves a feedback record by ID.
func (ds *DataStore) GetFeedback(ctx context.Context, id uint) (*FeedbackRecord, error) {
	var feedback FeedbackRecord
	if err := ds.DB.WithContext(ctx).First(&feedback, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("feedback", fmt.Sprintf("%d", id))
		}
		return nil, dbError(err, "get_feedback", "", "id", id)
	}
	return &feedback, nil
}

// PendingFeedback returns PENDING records newest first, optionally filtered
// by severity.
func (ds *DataStore) PendingFeedback(ctx context.Context, severity string, limit int) ([]FeedbackRecord, error) {
	query := ds.DB.WithContext(ctx).Where("status = ?", FeedbackStatusPending)
	if severity != "" {
		if !ValidFeedbackSeverity(FeedbackSeverity(severity)) {
			return nil, validationError("unknown feedback severity", "severity", severity)
		}
		query = query.Where("severity = ?", severity)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []FeedbackRecord
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, dbError(err, "pending_feedback", "", "severity", severity)
	}
	return records, nil
}

// FeedbackQuery holds the optional filters for SearchFeedback.
type FeedbackQuery struct {
	Search   string // substring match on test_name or lot
	Severity string
	Status   string
	From     *time.Time
	To       *time.Time
	Limit    int
}

// FeedbackSearchRow is a feedback record joined with the most recent
// analysis result for the same input dataset, when one exists.
type FeedbackSearchRow struct {
	FeedbackRecord
	DistributionType *string  `gorm:"column:distribution_type"`
	AnalysisScore    *float64 `gorm:"column:analysis_score"`
}

// SearchFeedback returns feedback records matching the query, newest first,
// each joined with the latest analysis result for its input dataset.
func (ds *DataStore) SearchFeedback(ctx context.Context, query FeedbackQuery) ([]FeedbackSearchRow, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString(`
		SELECT f.*, ar.distribution_type, ar.confidence_score AS analysis_score
		FROM feedback_records f
		LEFT JOIN analysis_results ar
		  ON ar.id = (
		    SELECT id FROM analysis_results
		    WHERE input_id = f.input_id
		    ORDER BY created_at DESC, id DESC
		    LIMIT 1
		  )
		WHERE 1 = 1`)

	if query.Search != "" {
		sb.WriteString(" AND (f.test_name LIKE ? OR f.lot LIKE ?)")
		pattern := "%" + query.Search + "%"
		args = append(args, pattern, pattern)
	}
	if query.Severity != "" {
		sb.WriteString(" AND f.severity = ?")
		args = append(args, query.Severity)
	}
	if query.Status != "" {
		sb.WriteString(" AND f.status = ?")
		args = append(args, query.Status)
	}
	if query.From != nil {
		sb.WriteString(" AND f.created_at >= ?")
		args = append(args, *query.From)
	}
	if query.To != nil {
		sb.WriteString(" AND f.created_at <= ?")
		args = append(args, *query.To)
	}

	sb.WriteString(" ORDER BY f.created_at DESC")
	if query.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, query.Limit)
	}

	var rows []FeedbackSearchRow
	if err := ds.DB.WithContext(ctx).Raw(sb.String(), args...).Scan(&rows).Error; err != nil {
		return nil, dbError(err, "search_feedback", "", "search", query.Search)
	}
	return rows, nil
}
