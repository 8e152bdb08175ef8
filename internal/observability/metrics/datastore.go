// Package metrics provides datastore metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for datastore operations
type DatastoreMetrics struct {
	registry *prometheus.Registry

	// Database operation metrics
	dbOperationsTotal      *prometheus.CounterVec
	dbOperationDuration    *prometheus.HistogramVec
	dbOperationErrorsTotal *prometheus.CounterVec

	// Transaction metrics
	dbTransactionsTotal      *prometheus.CounterVec
	dbTransactionDuration    *prometheus.HistogramVec
	dbTransactionErrorsTotal *prometheus.CounterVec

	// Query result metrics
	dbQueryResultSizeHist *prometheus.HistogramVec

	// Model version lifecycle metrics
	versionActivationsTotal *prometheus.CounterVec
	activationConflictsTotal prometheus.Counter

	// Feedback workflow metrics
	feedbackTransitionsTotal *prometheus.CounterVec

	// Measurement ingestion metrics
	ingestedMeasurementsTotal *prometheus.CounterVec
	ingestBatchSizeHist       *prometheus.HistogramVec

	// Analytics metrics
	analyticsOperationsTotal   *prometheus.CounterVec
	analyticsOperationDuration *prometheus.HistogramVec

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewDatastoreMetrics creates and registers new datastore metrics
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *DatastoreMetrics) initMetrics() error {
	m.dbOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "table", "status"}, // status: success, error
	)

	m.dbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_db_operation_duration_seconds",
			Help:    "Time taken for database operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~32s
		},
		[]string{"operation", "table"},
	)

	m.dbOperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	m.dbTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_transactions_total",
			Help: "Total number of database transactions",
		},
		[]string{"status"}, // status: committed, rollback
	)

	m.dbTransactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_db_transaction_duration_seconds",
			Help:    "Time taken for database transactions",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~32s
		},
		[]string{"operation"},
	)

	m.dbTransactionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_transaction_errors_total",
			Help: "Total number of transaction errors",
		},
		[]string{"operation", "error_type"},
	)

	m.dbQueryResultSizeHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_db_query_result_size",
			Help:    "Number of rows returned by database queries",
			Buckets: prometheus.ExponentialBuckets(1, BucketFactor10, BucketCount6), // 1 to 100k rows
		},
		[]string{"operation", "table"},
	)

	m.versionActivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_version_activations_total",
			Help: "Total number of model version activation attempts",
		},
		[]string{"status"}, // status: success, noop, conflict, error
	)

	m.activationConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datastore_version_activation_conflicts_total",
			Help: "Total number of activations lost to a concurrent activation",
		},
	)

	m.feedbackTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_feedback_transitions_total",
			Help: "Total number of feedback status transitions",
		},
		[]string{"to_status", "status"}, // to_status: RESOLVED, IGNORED
	)

	m.ingestedMeasurementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_ingested_measurements_total",
			Help: "Total number of measurement rows ingested",
		},
		[]string{"kind"}, // kind: input, reference
	)

	m.ingestBatchSizeHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_ingest_batch_size",
			Help:    "Number of measurements per ingested dataset",
			Buckets: prometheus.ExponentialBuckets(1, BucketFactor10, BucketCount6), // 1 to 100k rows
		},
		[]string{"kind"},
	)

	m.analyticsOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_analytics_operations_total",
			Help: "Total number of analytics queries",
		},
		[]string{"analytics_type", "status"},
	)

	m.analyticsOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_analytics_operation_duration_seconds",
			Help:    "Time taken for analytics queries",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~32s
		},
		[]string{"analytics_type"},
	)

	// Initialize collectors slice with all metrics
	m.collectors = []prometheus.Collector{
		m.dbOperationsTotal,
		m.dbOperationDuration,
		m.dbOperationErrorsTotal,
		m.dbTransactionsTotal,
		m.dbTransactionDuration,
		m.dbTransactionErrorsTotal,
		m.dbQueryResultSizeHist,
		m.versionActivationsTotal,
		m.activationConflictsTotal,
		m.feedbackTransitionsTotal,
		m.ingestedMeasurementsTotal,
		m.ingestBatchSizeHist,
		m.analyticsOperationsTotal,
		m.analyticsOperationDuration,
	}

	return nil
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordDbOperation records a database operation
func (m *DatastoreMetrics) RecordDbOperation(operation, table, status string) {
	m.dbOperationsTotal.WithLabelValues(operation, table, status).Inc()
}

// RecordDbOperationDuration records the duration of a database operation
func (m *DatastoreMetrics) RecordDbOperationDuration(operation, table string, duration float64) {
	m.dbOperationDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordDbOperationError records a database operation error
func (m *DatastoreMetrics) RecordDbOperationError(operation, table, errorType string) {
	m.dbOperationErrorsTotal.WithLabelValues(operation, table, errorType).Inc()
}

// RecordTransaction records a completed transaction with its outcome
func (m *DatastoreMetrics) RecordTransaction(status string) {
	m.dbTransactionsTotal.WithLabelValues(status).Inc()
}

// RecordTransactionDuration records the duration of a transaction
func (m *DatastoreMetrics) RecordTransactionDuration(operation string, duration float64) {
	m.dbTransactionDuration.WithLabelValues(operation).Observe(duration)
}

// RecordTransactionError records a transaction error
func (m *DatastoreMetrics) RecordTransactionError(operation, errorType string) {
	m.dbTransactionErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordQueryResultSize records the number of rows returned by a query
func (m *DatastoreMetrics) RecordQueryResultSize(operation, table string, size int) {
	m.dbQueryResultSizeHist.WithLabelValues(operation, table).Observe(float64(size))
}

// RecordVersionActivation records a model version activation attempt
func (m *DatastoreMetrics) RecordVersionActivation(status string) {
	m.versionActivationsTotal.WithLabelValues(status).Inc()
	if status == "conflict" {
		m.activationConflictsTotal.Inc()
	}
}

// RecordFeedbackTransition records a feedback status transition attempt
func (m *DatastoreMetrics) RecordFeedbackTransition(toStatus, status string) {
	m.feedbackTransitionsTotal.WithLabelValues(toStatus, status).Inc()
}

// RecordIngestedMeasurements records a batch of ingested measurement rows
func (m *DatastoreMetrics) RecordIngestedMeasurements(kind string, count int) {
	m.ingestedMeasurementsTotal.WithLabelValues(kind).Add(float64(count))
	m.ingestBatchSizeHist.WithLabelValues(kind).Observe(float64(count))
}

// RecordAnalyticsOperation records an analytics query
func (m *DatastoreMetrics) RecordAnalyticsOperation(analyticsType, status string) {
	m.analyticsOperationsTotal.WithLabelValues(analyticsType, status).Inc()
}

// RecordAnalyticsDuration records the duration of an analytics query
func (m *DatastoreMetrics) RecordAnalyticsDuration(analyticsType string, duration float64) {
	m.analyticsOperationDuration.WithLabelValues(analyticsType).Observe(duration)
}
