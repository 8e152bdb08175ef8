package datastore

import (
	"path/filepath"
	"testing"

	"github.com/salim-benhamadi/FLOW/internal/conf"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a migrated and seeded SQLite store backed by a
// temporary file.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "flow-test.db")

	store := &SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// floatPtr returns a pointer to v.
func floatPtr(v float64) *float64 {
	return &v
}

// seedReference inserts a minimal reference dataset for tests that need one.
func seedReference(t *testing.T, store *SQLiteStore, id, product, insertion string) {
	t.Helper()

	err := store.IngestReference(t.Context(), &ReferenceDataset{
		ID:        id,
		Product:   product,
		Lot:       "LOT-1",
		Insertion: insertion,
		TestName:  "vdd_leakage",
	}, []Measurement{
		{ChipNumber: 1, Value: floatPtr(0.42)},
		{ChipNumber: 2, Value: floatPtr(0.43)},
	})
	require.NoError(t, err)
}

// seedInput inserts a minimal input dataset for tests that need one.
func seedInput(t *testing.T, store *SQLiteStore, id string) {
	t.Helper()

	err := store.IngestInput(t.Context(), &InputDataset{
		ID:        id,
		Insertion: "FT1",
		TestName:  "vdd_leakage",
	}, []Measurement{
		{ChipNumber: 1, Value: floatPtr(0.40)},
	})
	require.NoError(t, err)
}
