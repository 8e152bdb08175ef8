// Package server wires the persistence layer, API and metrics endpoints
// into a running service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/salim-benhamadi/FLOW/internal/api"
	"github.com/salim-benhamadi/FLOW/internal/conf"
	"github.com/salim-benhamadi/FLOW/internal/datastore"
	"github.com/salim-benhamadi/FLOW/internal/errors"
	"github.com/salim-benhamadi/FLOW/internal/logging"
	"github.com/salim-benhamadi/FLOW/internal/observability"
	"github.com/salim-benhamadi/FLOW/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Run starts the FLOW service and blocks until a termination signal or a
// fatal server error.
func Run(settings *conf.Settings) error {
	logger := logging.ForService("server")

	if err := telemetry.Init(settings); err != nil {
		logger.Warn("telemetry initialization failed", "error", err)
	}
	defer telemetry.Flush(3 * time.Second)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	store := datastore.New(settings)
	if store == nil {
		return errors.Newf("no database backend enabled in configuration").
			Component("server").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if ms, ok := store.(interface{ SetMetrics(*datastore.Metrics) }); ok {
		ms.SetMetrics(metrics.Datastore)
	}

	if err := store.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer closeStore(store, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if _, err := api.New(e, store, settings, metrics); err != nil {
		return fmt.Errorf("initializing API: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	apiAddr := ":" + settings.WebServer.Port
	g.Go(func() error {
		logger.Info("starting API server", "addr", apiAddr)
		if err := e.Start(apiAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	var metricsServer *http.Server
	if settings.Metrics.Enabled {
		mux := http.NewServeMux()
		metrics.RegisterHandlers(mux)
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		metricsServer = &http.Server{
			Addr:              settings.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("starting metrics server", "addr", settings.Metrics.Listen)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("API server shutdown", "error", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown", "error", err)
			}
		}
		return nil
	})

	return g.Wait()
}

func closeStore(store datastore.Interface, logger *slog.Logger) {
	if err := store.Close(); err != nil {
		logger.Error("closing datastore", "error", err)
	}
}
