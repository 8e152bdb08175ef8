// internal/api/analytics.go
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// VersionTrainingSummaries returns per-version training activity with the
// latest metric snapshot.
func (c *Controller) VersionTrainingSummaries(ctx echo.Context) error {
	summaries, err := c.DS.VersionTrainingSummaries(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to build training summaries")
	}
	return ctx.JSON(http.StatusOK, summaries)
}

// LatestMetricsPerVersion returns each version's most recent metric snapshot.
func (c *Controller) LatestMetricsPerVersion(ctx echo.Context) error {
	snapshots, err := c.DS.LatestMetricsPerVersion(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get latest metrics")
	}
	return ctx.JSON(http.StatusOK, snapshots)
}

// FeedbackBreakdown returns feedback counts grouped by severity, status,
// test name and insertion.
func (c *Controller) FeedbackBreakdown(ctx echo.Context) error {
	rows, err := c.DS.FeedbackBreakdown(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to build feedback breakdown")
	}
	return ctx.JSON(http.StatusOK, rows)
}

// FeedbackResolutionStats returns per-severity resolution rates.
func (c *Controller) FeedbackResolutionStats(ctx echo.Context) error {
	stats, err := c.DS.FeedbackResolutionStats(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to build resolution stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// AnalysisStats aggregates analysis results per test, version and day over
// a trailing window. The confidence threshold defaults to the stored
// model settings value.
func (c *Controller) AnalysisStats(ctx echo.Context) error {
	days := queryInt(ctx, "days", 30)

	threshold := -1.0
	if raw := ctx.QueryParam("confidence_threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.HandleError(ctx, bindError(err), "Invalid confidence threshold")
		}
		threshold = parsed
	}
	if threshold < 0 {
		settings, err := c.DS.GetModelSettings(ctx.Request().Context())
		if err != nil {
			return c.HandleError(ctx, err, "Failed to get model settings")
		}
		threshold = settings.ConfidenceThreshold
	}

	stats, err := c.DS.AnalysisStats(ctx.Request().Context(), threshold, days)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to build analysis stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// APIUsageStats returns request volume, latency and error totals over a
// trailing window.
func (c *Controller) APIUsageStats(ctx echo.Context) error {
	days := queryInt(ctx, "days", 7)
	stats, err := c.DS.APIUsageStats(ctx.Request().Context(), days)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to build API usage stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}
