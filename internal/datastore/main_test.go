package datastore

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// database/sql keeps a connection opener goroutine per pool
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}
