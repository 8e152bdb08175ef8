// internal/api/api.go
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/salim-benhamadi/FLOW/internal/conf"
	"github.com/salim-benhamadi/FLOW/internal/datastore"
	"github.com/salim-benhamadi/FLOW/internal/errors"
	"github.com/salim-benhamadi/FLOW/internal/logging"
	"github.com/salim-benhamadi/FLOW/internal/observability"
)

const (
	// measurementCacheTTL bounds how stale a cached measurement read can be.
	// Datasets are immutable after ingestion, so the TTL only matters for
	// deletions, which also invalidate explicitly.
	measurementCacheTTL = 5 * time.Minute

	cacheCleanupInterval = 10 * time.Minute
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Settings *conf.Settings

	apiLogger        *slog.Logger
	metrics          *observability.Metrics
	measurementCache *cache.Cache // measurement reads keyed by kind:id
	startTime        time.Time
}

// New creates a new API controller and registers its routes under /api/v1.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	metrics *observability.Metrics) (*Controller, error) {
	if ds == nil {
		return nil, errors.Newf("api: datastore is nil").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Controller{
		Echo:             e,
		DS:               ds,
		Settings:         settings,
		apiLogger:        logging.ForService("api"),
		metrics:          metrics,
		measurementCache: cache.New(measurementCacheTTL, cacheCleanupInterval),
		startTime:        time.Now(),
	}

	c.Group = e.Group("/api/v1")

	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.CORS())
	c.Group.Use(middleware.BodyLimit("10M")) // measurement batches can be large
	c.Group.Use(c.RequestIDMiddleware())
	c.Group.Use(c.LoggingMiddleware())

	c.initRoutes()

	return c, nil
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	// Measurement stores
	c.Group.POST("/inputs", c.CreateInput)
	c.Group.GET("/inputs/:id", c.GetInput)
	c.Group.DELETE("/inputs/:id", c.DeleteInput)
	c.Group.POST("/references", c.CreateReference)
	c.Group.GET("/references", c.ListReferences)
	c.Group.GET("/references/:id", c.GetReference)
	c.Group.DELETE("/references/:id", c.DeleteReference)
	c.Group.POST("/references/:id/used", c.MarkReferenceUsed)
	c.Group.GET("/measurements/:kind/:id", c.GetMeasurements)

	// Model version registry
	c.Group.POST("/versions", c.RegisterVersion)
	c.Group.GET("/versions", c.ListVersions)
	c.Group.GET("/versions/:id", c.GetVersion)
	c.Group.POST("/versions/:id/activate", c.ActivateVersion)
	c.Group.POST("/versions/:id/metrics", c.RecordMetric)
	c.Group.POST("/versions/:id/events", c.RecordTrainingEvent)

	// Training support
	c.Group.GET("/training/candidates", c.CandidateReferences)
	c.Group.POST("/training/labels", c.AddTrainingLabel)
	c.Group.GET("/training/labels/:referenceID", c.LabelsForReference)

	// Analysis results
	c.Group.POST("/analysis", c.SaveAnalysisResult)
	c.Group.GET("/analysis/recent", c.RecentAnalysisResults)

	// Feedback workflow
	c.Group.POST("/feedback", c.SubmitFeedback)
	c.Group.GET("/feedback/pending", c.PendingFeedback)
	c.Group.GET("/feedback/search", c.SearchFeedback)
	c.Group.GET("/feedback/:id", c.GetFeedback)
	c.Group.POST("/feedback/:id/resolve", c.ResolveFeedback)
	c.Group.POST("/feedback/:id/ignore", c.IgnoreFeedback)

	// Settings
	c.Group.GET("/settings", c.GetSettings)
	c.Group.PATCH("/settings", c.UpdateSettings)

	// Analytics views
	c.Group.GET("/analytics/training-summaries", c.VersionTrainingSummaries)
	c.Group.GET("/analytics/metrics/latest", c.LatestMetricsPerVersion)
	c.Group.GET("/analytics/feedback/breakdown", c.FeedbackBreakdown)
	c.Group.GET("/analytics/feedback/resolution", c.FeedbackResolutionStats)
	c.Group.GET("/analytics/analysis", c.AnalysisStats)
	c.Group.GET("/analytics/api-usage", c.APIUsageStats)
}

// RequestIDMiddleware assigns each request a correlation ID, reused in error
// responses and logs.
func (c *Controller) RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id := ctx.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			ctx.Set("request_id", id)
			ctx.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(ctx)
		}
	}
}

// LoggingMiddleware logs each request and persists an APILog row.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()
			elapsed := time.Since(start)

			requestID, _ := ctx.Get("request_id").(string)
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("query", req.URL.RawQuery),
				slog.Int("status", res.Status),
				slog.String("request_id", requestID),
				slog.String("ip", ctx.RealIP()),
				slog.Int64("latency_ms", elapsed.Milliseconds()),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			c.apiLogger.LogAttrs(req.Context(), slog.LevelInfo, "API Request", attrs...)

			if c.metrics != nil {
				c.metrics.HTTP.RecordHTTPRequest(req.Method, ctx.Path(), strconv.Itoa(res.Status))
				c.metrics.HTTP.RecordHTTPRequestDuration(req.Method, ctx.Path(), elapsed.Seconds())
				c.metrics.HTTP.RecordHTTPResponseSize(req.Method, ctx.Path(), int(res.Size))
			}

			// Health probes would swamp the operational log
			if ctx.Path() != "/api/v1/health" {
				logCtx := context.WithoutCancel(req.Context())
				if logErr := c.DS.LogAPIRequest(logCtx, &datastore.APILog{
					Endpoint:     req.URL.Path,
					Method:       req.Method,
					StatusCode:   res.Status,
					ResponseTime: float64(elapsed.Milliseconds()),
				}); logErr != nil {
					c.apiLogger.Warn("failed to persist request log", "error", logErr)
				}
			}

			return err
		}
	}
}

// bindError categorizes a request decoding failure so it maps to a 400.
func bindError(err error) error {
	return errors.New(err).
		Component("api").
		Category(errors.CategoryValidation).
		Build()
}

// ErrorResponse is the uniform JSON error body.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// statusForError maps error categories to HTTP status codes. Invariant
// violations surface as client errors; everything else is a server fault.
func statusForError(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsConflict(err), errors.IsInvalidState(err), errors.IsConcurrencyConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorTypeForMetrics labels an error for the request error counter.
func errorTypeForMetrics(err error) string {
	switch {
	case errors.IsValidation(err):
		return "validation"
	case errors.IsNotFound(err):
		return "not-found"
	case errors.IsConflict(err):
		return "conflict"
	case errors.IsInvalidState(err):
		return "invalid-state"
	case errors.IsConcurrencyConflict(err):
		return "concurrency-conflict"
	default:
		return "database"
	}
}

// HandleError converts a datastore error into the uniform JSON error
// response, logging it with the request correlation ID.
func (c *Controller) HandleError(ctx echo.Context, err error, message string) error {
	code := statusForError(err)
	requestID, _ := ctx.Get("request_id").(string)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	resp := &ErrorResponse{
		Error:         err.Error(),
		Message:       message,
		Code:          code,
		CorrelationID: requestID,
	}

	c.apiLogger.Error("API Error",
		"correlation_id", requestID,
		"message", message,
		"error", err.Error(),
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method)

	if c.metrics != nil {
		c.metrics.HTTP.RecordHTTPRequestError(ctx.Request().Method, ctx.Path(), errorTypeForMetrics(err))
	}

	return ctx.JSON(code, resp)
}

// HealthCheck reports service liveness and uptime.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"uptime_seconds": time.Since(c.startTime).Seconds(),
	})
}
