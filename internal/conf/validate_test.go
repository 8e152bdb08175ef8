package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salim-benhamadi/FLOW/internal/errors"
)

func validTestSettings() *Settings {
	s := &Settings{}
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "flow.db"
	s.WebServer.Enabled = true
	s.WebServer.Port = "8580"
	return s
}

func TestValidateSettings_Defaults(t *testing.T) {
	require.NoError(t, ValidateSettings(validTestSettings()))
}

func TestValidateSettings_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"both outputs enabled", func(s *Settings) { s.Output.MySQL.Enabled = true }},
		{"no output enabled", func(s *Settings) { s.Output.SQLite.Enabled = false }},
		{"sqlite path empty", func(s *Settings) { s.Output.SQLite.Path = "" }},
		{"invalid port", func(s *Settings) { s.WebServer.Port = "http" }},
		{"port out of range", func(s *Settings) { s.WebServer.Port = "70000" }},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validTestSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
		})
	}
}

func TestValidateSettings_MySQLOnly(t *testing.T) {
	s := &Settings{}
	s.Output.MySQL.Enabled = true
	s.Output.MySQL.Host = "db"
	s.Output.MySQL.Database = "flow"

	require.NoError(t, ValidateSettings(s))
}
