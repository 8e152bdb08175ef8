// analytics.go: read models computed fresh on every call, no caching
package datastore

import (
	"context"
	"time"
)

// trackAnalytics records outcome and duration metrics for one analytics query.
func (ds *DataStore) trackAnalytics(analyticsType string, start time.Time, err error) {
	if ds.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	ds.metrics.RecordAnalyticsOperation(analyticsType, status)
	ds.metrics.RecordAnalyticsDuration(analyticsType, time.Since(start).Seconds())
}

// VersionTrainingSummary is one row of the per-version training overview:
// the latest metric snapshot plus training event aggregates.
type VersionTrainingSummary struct {
	ModelVersionID  uint          `gorm:"column:model_version_id"`
	VersionNumber   int           `gorm:"column:version_number"`
	Status          VersionStatus `gorm:"column:status"`
	ConfidenceScore float64       `gorm:"column:confidence_score"`
	Accuracy        *float64      `gorm:"column:accuracy"`
	Confidence      *float64      `gorm:"column:confidence"`
	ErrorRate       *float64      `gorm:"column:error_rate"`
	VamosScore      *float64      `gorm:"column:vamos_score"`
	MetricCreatedAt *time.Time    `gorm:"column:metric_created_at"`
	EventCount      int64         `gorm:"column:event_count"`
	LastEventAt     *string       `gorm:"column:last_event_at"` // sortable timestamp text, engine-formatted
}

// VersionTrainingSummaries returns one summary per version, newest version
// number first. Versions without metrics or events carry nil metric fields
// and a zero event count.
func (ds *DataStore) VersionTrainingSummaries(ctx context.Context) ([]VersionTrainingSummary, error) {
	start := time.Now()

	var summaries []VersionTrainingSummary
	err := ds.DB.WithContext(ctx).Raw(`
		SELECT mv.id AS model_version_id,
		       mv.version_number,
		       mv.status,
		       mv.confidence_score,
		       vm.accuracy,
		       vm.confidence,
		       vm.error_rate,
		       vm.vamos_score,
		       vm.created_at AS metric_created_at,
		       COALESCE(te.event_count, 0) AS event_count,
		       te.last_event_at
		FROM model_versions mv
		LEFT JOIN version_metrics vm
		  ON vm.id = (
		    SELECT id FROM version_metrics
		    WHERE model_version_id = mv.id
		    ORDER BY created_at DESC, id DESC
		    LIMIT 1
		  )
		LEFT JOIN (
		    SELECT model_version_id,
		           COUNT(*) AS event_count,
		           CAST(MAX(created_at) AS CHAR) AS last_event_at
		    FROM training_events
		    GROUP BY model_version_id
		) te ON te.model_version_id = mv.id
		ORDER BY mv.version_number DESC`).Scan(&summaries).Error

	ds.trackAnalytics("version_training_summaries", start, err)
	if err != nil {
		return nil, dbError(err, "version_training_summaries", "")
	}
	return summaries, nil
}

// FeedbackBreakdownRow groups feedback counts by classification dimensions.
type FeedbackBreakdownRow struct {
	Severity  FeedbackSeverity `gorm:"column:severity"`
	Status    FeedbackStatus   `gorm:"column:status"`
	TestName  string           `gorm:"column:test_name"`
	Insertion string           `gorm:"column:insertion"`
	Count     int64            `gorm:"column:count"`
	Earliest  string           `gorm:"column:earliest"` // sortable timestamp text, engine-formatted
	Latest    string           `gorm:"column:latest"`
}

// FeedbackBreakdown returns feedback counts grouped by severity, status,
// test name and insertion, with the time range of each group.
func (ds *DataStore) FeedbackBreakdown(ctx context.Context) ([]FeedbackBreakdownRow, error) {
	start := time.Now()

	var rows []FeedbackBreakdownRow
	err := ds.DB.WithContext(ctx).Raw(`
		SELECT severity,
		       status,
		       test_name,
		       insertion,
		       COUNT(*) AS count,
		       CAST(MIN(created_at) AS CHAR) AS earliest,
		       CAST(MAX(created_at) AS CHAR) AS latest
		FROM feedback_records
		GROUP BY severity, status, test_name, insertion
		ORDER BY count DESC`).Scan(&rows).Error

	ds.trackAnalytics("feedback_breakdown", start, err)
	if err != nil {
		return nil, dbError(err, "feedback_breakdown", "")
	}
	return rows, nil
}

// FeedbackResolutionStat summarizes the workflow state of one severity class.
type FeedbackResolutionStat struct {
	Severity       FeedbackSeverity `gorm:"column:severity"`
	Total          int64            `gorm:"column:total"`
	Pending        int64            `gorm:"column:pending"`
	Resolved       int64            `gorm:"column:resolved"`
	Ignored        int64            `gorm:"column:ignored"`
	ResolutionRate float64          `gorm:"-"`
}

// FeedbackResolutionStats returns per-severity workflow counts with the
// resolved/total rate computed per row.
func (ds *DataStore) FeedbackResolutionStats(ctx context.Context) ([]FeedbackResolutionStat, error) {
	start := time.Now()

	var stats []FeedbackResolutionStat
	err := ds.DB.WithContext(ctx).Raw(`
		SELECT severity,
		       COUNT(*) AS total,
		       SUM(CASE WHEN status = 'PENDING' THEN 1 ELSE 0 END) AS pending,
		       SUM(CASE WHEN status = 'RESOLVED' THEN 1 ELSE 0 END) AS resolved,
		       SUM(CASE WHEN status = 'IGNORED' THEN 1 ELSE 0 END) AS ignored
		FROM feedback_records
		GROUP BY severity
		ORDER BY severity`).Scan(&stats).Error

	ds.trackAnalytics("feedback_resolution_stats", start, err)
	if err != nil {
		return nil, dbError(err, "feedback_resolution_stats", "")
	}

	for i := range stats {
		if stats[i].Total > 0 {
			stats[i].ResolutionRate = float64(stats[i].Resolved) / float64(stats[i].Total)
		}
	}
	return stats, nil
}

// AnalysisStatRow groups analysis outcomes by test, version and day.
type AnalysisStatRow struct {
	TestName       string  `gorm:"column:test_name"`
	VersionNumber  int     `gorm:"column:version_number"`
	Day            string  `gorm:"column:day"`
	Count          int64   `gorm:"column:count"`
	AvgConfidence  float64 `gorm:"column:avg_confidence"`
	MinConfidence  float64 `gorm:"column:min_confidence"`
	MaxConfidence  float64 `gorm:"column:max_confidence"`
	AboveThreshold int64   `gorm:"column:above_threshold"`
}

// AnalysisStats returns analysis outcome aggregates over the last N days,
// grouped by test name, version number and day. AboveThreshold counts rows
// with confidence at or above the given threshold; callers typically pass
// the configured confidence threshold.
func (ds *DataStore) AnalysisStats(ctx context.Context, confidenceThreshold float64, days int) ([]AnalysisStatRow, error) {
	if days <= 0 {
		return nil, validationError("days must be positive", "days", days)
	}
	start := time.Now()
	cutoff := time.Now().AddDate(0, 0, -days)

	var rows []AnalysisStatRow
	err := ds.DB.WithContext(ctx).Raw(`
		SELECT ar.test_name,
		       mv.version_number,
		       DATE(ar.created_at) AS day,
		       COUNT(*) AS count,
		       AVG(ar.confidence_score) AS avg_confidence,
		       MIN(ar.confidence_score) AS min_confidence,
		       MAX(ar.confidence_score) AS max_confidence,
		       SUM(CASE WHEN ar.confidence_score >= ? THEN 1 ELSE 0 END) AS above_threshold
		FROM analysis_results ar
		JOIN model_versions mv ON mv.id = ar.model_version_id
		WHERE ar.created_at >= ?
		GROUP BY ar.test_name, mv.version_number, DATE(ar.created_at)
		ORDER BY day DESC, mv.version_number DESC, ar.test_name`,
		confidenceThreshold, cutoff).Scan(&rows).Error

	ds.trackAnalytics("analysis_stats", start, err)
	if err != nil {
		return nil, dbError(err, "analysis_stats", "", "days", days)
	}
	return rows, nil
}

// DailyRequestCount is the per-day request volume inside an APIUsageStats.
type DailyRequestCount struct {
	Day   string `gorm:"column:day"`
	Count int64  `gorm:"column:count"`
}

// APIUsageStats summarizes the request log over a time window.
type APIUsageStats struct {
	TotalRequests   int64
	AvgResponseTime float64 // milliseconds
	ErrorCount      int64   // responses with status >= 400
	PerDay          []DailyRequestCount
}

// APIUsageStats aggregates the request log over the last N days.
func (ds *DataStore) APIUsageStats(ctx context.Context, days int) (*APIUsageStats, error) {
	if days <= 0 {
		return nil, validationError("days must be positive", "days", days)
	}
	start := time.Now()
	cutoff := time.Now().AddDate(0, 0, -days)

	var totals struct {
		TotalRequests   int64   `gorm:"column:total_requests"`
		AvgResponseTime float64 `gorm:"column:avg_response_time"`
		ErrorCount      int64   `gorm:"column:error_count"`
	}
	err := ds.DB.WithContext(ctx).Raw(`
		SELECT COUNT(*) AS total_requests,
		       COALESCE(AVG(response_time), 0) AS avg_response_time,
		       COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0) AS error_count
		FROM api_logs
		WHERE created_at >= ?`, cutoff).Scan(&totals).Error
	if err != nil {
		ds.trackAnalytics("api_usage_stats", start, err)
		return nil, dbError(err, "api_usage_stats", "", "days", days)
	}

	var perDay []DailyRequestCount
	err = ds.DB.WithContext(ctx).Raw(`
		SELECT DATE(created_at) AS day,
		       COUNT(*) AS count
		FROM api_logs
		WHERE created_at >= ?
		GROUP BY DATE(created_at)
		ORDER BY day DESC`, cutoff).Scan(&perDay).Error

	ds.trackAnalytics("api_usage_stats", start, err)
	if err != nil {
		return nil, dbError(err, "api_usage_stats", "", "days", days)
	}

	return &APIUsageStats{
		TotalRequests:   totals.TotalRequests,
		AvgResponseTime: totals.AvgResponseTime,
		ErrorCount:      totals.ErrorCount,
		PerDay:          perDay,
	}, nil
}

// LogAPIRequest appends one request/response record to the operational log.
func (ds *DataStore) LogAPIRequest(ctx context.Context, entry *APILog) error {
	if entry == nil {
		return validationError("api log entry is nil", "entry", nil)
	}
	if err := ds.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return dbError(err, "log_api_request", "", "endpoint", entry.Endpoint)
	}
	return nil
}
