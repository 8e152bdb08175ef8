package datastore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/salim-benhamadi/FLOW/internal/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
)

// TestMySQLStore_Integration exercises the MySQL path end to end against a
// throwaway container. Gated behind FLOW_MYSQL_INTEGRATION so the default
// test run stays Docker-free.
func TestMySQLStore_Integration(t *testing.T) {
	if os.Getenv("FLOW_MYSQL_INTEGRATION") == "" {
		t.Skip("set FLOW_MYSQL_INTEGRATION=1 to run the MySQL container test")
	}
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("flow"),
		tcmysql.WithUsername("flow"),
		tcmysql.WithPassword("flowtest"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	settings := &conf.Settings{}
	settings.Output.MySQL.Enabled = true
	settings.Output.MySQL.Username = "flow"
	settings.Output.MySQL.Password = "flowtest"
	settings.Output.MySQL.Database = "flow"
	settings.Output.MySQL.Host = host
	settings.Output.MySQL.Port = port.Port()

	store := &MySQLStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	// Bootstrap seeded the registry and settings
	versions, err := store.ListVersions(ctx)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, VersionStatusActive, versions[0].Status)

	// Guarded activation works on InnoDB as well
	v2 := &ModelVersion{VersionNumber: 2}
	require.NoError(t, store.RegisterVersion(ctx, v2))
	require.NoError(t, store.ActivateVersion(ctx, v2.ID))

	modelSettings, err := store.GetModelSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", modelSettings.ModelVersion)

	var activeCount int64
	require.NoError(t, store.DB.Model(&ModelVersion{}).
		Where("status = ?", VersionStatusActive).
		Count(&activeCount).Error)
	assert.Equal(t, int64(1), activeCount)

	// Ingestion and the raw-SQL read models run on MySQL syntax
	err = store.IngestReference(ctx, &ReferenceDataset{
		ID: "REF-MYSQL", Product: "P1", Lot: "L1", Insertion: "FT1", TestName: "vdd_leakage",
	}, []Measurement{{ChipNumber: 1, Value: floatPtr(0.5)}})
	require.NoError(t, err)

	summaries, err := store.VersionTrainingSummaries(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}
