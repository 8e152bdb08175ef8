// Package telemetry provides opt-in error reporting via Sentry.
package telemetry

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/salim-benhamadi/FLOW/internal/conf"
	"github.com/salim-benhamadi/FLOW/internal/errors"
	"github.com/salim-benhamadi/FLOW/internal/logging"
)

var (
	initOnce    sync.Once
	initialized bool
	initMu      sync.Mutex

	serviceLogger *slog.Logger
	loggerOnce    sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logging.ForService("telemetry")
	})
	return serviceLogger
}

// Init initializes Sentry telemetry if enabled in settings. Telemetry is
// strictly opt-in: when disabled, error reporting stays on the no-op fast
// path and no SDK state is created.
func Init(settings *conf.Settings) error {
	if settings == nil {
		return errors.Newf("telemetry: settings is nil").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if !settings.Sentry.Enabled {
		errors.SetTelemetryReporter(nil)
		getLogger().Info("telemetry disabled")
		return nil
	}

	var initErr error
	initOnce.Do(func() {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:        settings.Sentry.DSN,
			SampleRate: 1.0,
			Debug:      settings.Debug,

			// Privacy settings: no stack traces or hostnames leave the host
			AttachStacktrace: false,
			Environment:      settings.Sentry.Environment,
			ServerName:       "",

			Release:    fmt.Sprintf("flow@%s", settings.Version),
			BeforeSend: scrubEvent,
		})
		if err != nil {
			initErr = errors.New(err).
				Component("telemetry").
				Category(errors.CategoryConfiguration).
				Context("operation", "sentry_init").
				Build()
			return
		}

		errors.SetTelemetryReporter(errors.NewSentryReporter(true))

		initMu.Lock()
		initialized = true
		initMu.Unlock()

		getLogger().Info("telemetry initialized",
			"environment", settings.Sentry.Environment)
	})

	return initErr
}

// scrubEvent removes identifying data from an outgoing event.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

// Flush waits up to timeout for buffered events to be delivered.
// Safe to call whether or not telemetry was initialized.
func Flush(timeout time.Duration) {
	initMu.Lock()
	active := initialized
	initMu.Unlock()

	if !active {
		return
	}
	if !sentry.Flush(timeout) {
		getLogger().Warn("telemetry flush timed out", "timeout", timeout)
	}
}
