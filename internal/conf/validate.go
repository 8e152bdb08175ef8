// conf/validate.go settings validation
package conf

import (
	"strconv"

	"github.com/salim-benhamadi/FLOW/internal/errors"
)

// ValidateSettings checks the loaded settings for configuration mistakes that
// would otherwise only surface at runtime.
func ValidateSettings(settings *Settings) error {
	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		return errors.Newf("only one database output may be enabled at a time").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("setting", "output").
			Build()
	}

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return errors.Newf("no database output enabled").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("setting", "output").
			Build()
	}

	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		return errors.Newf("sqlite output enabled but path is empty").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("setting", "output.sqlite.path").
			Build()
	}

	if settings.Output.MySQL.Enabled {
		if settings.Output.MySQL.Host == "" || settings.Output.MySQL.Database == "" {
			return errors.Newf("mysql output enabled but host or database is empty").
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("setting", "output.mysql").
				Build()
		}
	}

	if settings.WebServer.Enabled {
		if err := validatePort(settings.WebServer.Port, "webserver.port"); err != nil {
			return err
		}
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		return errors.Newf("sentry telemetry enabled but dsn is empty").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("setting", "sentry.dsn").
			Build()
	}

	return nil
}

func validatePort(port, setting string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return errors.Newf("invalid port %q", port).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("setting", setting).
			Build()
	}
	return nil
}
