// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"context"
	"time"

	"github.com/salim-benhamadi/FLOW/internal/conf"
	"gorm.io/gorm"
)

// Interface abstracts the underlying database implementation and defines the
// persistence operations for measurement data, model versions, feedback and
// analytics.
type Interface interface {
	Open() error
	Close() error

	// Measurement store
	IngestInput(ctx context.Context, dataset *InputDataset, measurements []Measurement) error
	IngestReference(ctx context.Context, dataset *ReferenceDataset, measurements []Measurement) error
	GetInput(ctx context.Context, id string) (*InputDataset, error)
	GetReference(ctx context.Context, id string) (*ReferenceDataset, error)
	ListReferences(ctx context.Context, product, insertion string, limit int) ([]ReferenceDataset, error)
	GetMeasurements(ctx context.Context, kind DatasetKind, id string) ([]Measurement, error)
	DeleteInput(ctx context.Context, id string) error
	DeleteReference(ctx context.Context, id string) error
	MarkReferenceUsed(ctx context.Context, id, trainingVersion string) error

	// Model version registry
	RegisterVersion(ctx context.Context, version *ModelVersion) error
	GetVersion(ctx context.Context, id uint) (*ModelVersion, error)
	GetVersionByNumber(ctx context.Context, number int) (*ModelVersion, error)
	ListVersions(ctx context.Context) ([]ModelVersion, error)
	ActivateVersion(ctx context.Context, id uint) error
	RecordMetric(ctx context.Context, metric *VersionMetric) error
	RecordTrainingEvent(ctx context.Context, event *TrainingEvent) error
	LatestMetricsPerVersion(ctx context.Context) ([]VersionMetricSnapshot, error)
	CandidateReferences(ctx context.Context, insertion, product string, limit int) ([]ReferenceDataset, error)

	// Analysis results
	SaveAnalysisResult(ctx context.Context, result *AnalysisResult) error
	RecentAnalysisResults(ctx context.Context, limit int) ([]AnalysisResult, error)

	// Feedback workflow
	SubmitFeedback(ctx context.Context, feedback *FeedbackRecord) error
	ResolveFeedback(ctx context.Context, id uint, newLabel string) error
	IgnoreFeedback(ctx context.Context, id uint) error
	GetFeedback(ctx context.Context, id uint) (*FeedbackRecord, error)
	PendingFeedback(ctx context.Context, severity string, limit int) ([]FeedbackRecord, error)
	SearchFeedback(ctx context.Context, query FeedbackQuery) ([]FeedbackSearchRow, error)

	// Training labels
	AddTrainingLabel(ctx context.Context, label *TrainingLabel) error
	LabelsForReference(ctx context.Context, referenceID string) ([]TrainingLabel, error)

	// Settings
	GetModelSettings(ctx context.Context) (*ModelSettings, error)
	UpdateModelSettings(ctx context.Context, update SettingsUpdate) (*ModelSettings, error)

	// Analytics
	VersionTrainingSummaries(ctx context.Context) ([]VersionTrainingSummary, error)
	FeedbackBreakdown(ctx context.Context) ([]FeedbackBreakdownRow, error)
	FeedbackResolutionStats(ctx context.Context) ([]FeedbackResolutionStat, error)
	AnalysisStats(ctx context.Context, confidenceThreshold float64, days int) ([]AnalysisStatRow, error)
	APIUsageStats(ctx context.Context, days int) (*APIUsageStats, error)
	LogAPIRequest(ctx context.Context, entry *APILog) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB      *gorm.DB // GORM database instance
	metrics *Metrics
}

// New creates a new store instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// SetMetrics attaches observability metrics to the store. Safe to leave unset;
// all recording paths are nil-checked.
func (ds *DataStore) SetMetrics(m *Metrics) {
	ds.metrics = m
}

// transaction runs fn inside a database transaction, recording duration and
// outcome metrics under the given operation name.
func (ds *DataStore) transaction(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	start := time.Now()
	err := ds.DB.WithContext(ctx).Transaction(fn)

	if ds.metrics != nil {
		ds.metrics.RecordTransactionDuration(operation, time.Since(start).Seconds())
		if err != nil {
			ds.metrics.RecordTransaction("rollback")
			ds.metrics.RecordTransactionError(operation, categorizeError(err))
		} else {
			ds.metrics.RecordTransaction("committed")
		}
	}
	return err
}
