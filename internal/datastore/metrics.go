// Package datastore provides type aliases and integration with the observability metrics package
package datastore

import (
	"github.com/salim-benhamadi/FLOW/internal/observability/metrics"
)

// Metrics is a type alias for metrics.DatastoreMetrics.
// This allows us to use the metrics throughout the datastore package
// without importing the observability package everywhere.
type Metrics = metrics.DatastoreMetrics
