package observability

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findFamily returns the metric family with the given name, or nil.
func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestNewMetricsRegistersCollectors(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	require.NotNil(t, m.Datastore)
	require.NotNil(t, m.HTTP)

	// Record one sample through each collector so families are emitted
	m.Datastore.RecordDbOperation("insert", "model_versions", "success")
	m.Datastore.RecordVersionActivation("conflict")
	m.HTTP.RecordHTTPRequest("GET", "/api/v1/settings", "200")

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	ops := findFamily(families, "datastore_db_operations_total")
	require.NotNil(t, ops, "datastore operation counter not registered")
	require.Len(t, ops.GetMetric(), 1)
	assert.InDelta(t, 1.0, ops.GetMetric()[0].GetCounter().GetValue(), 0.001)

	conflicts := findFamily(families, "datastore_version_activation_conflicts_total")
	require.NotNil(t, conflicts)
	assert.InDelta(t, 1.0, conflicts.GetMetric()[0].GetCounter().GetValue(), 0.001)

	requests := findFamily(families, "http_requests_total")
	require.NotNil(t, requests)
	require.Len(t, requests.GetMetric(), 1)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	// Registering the same collector twice must be rejected by the registry
	err = m.Registry().Register(m.Datastore)
	assert.Error(t, err)
}
