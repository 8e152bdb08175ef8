// internal/api/feedback.go
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/salim-benhamadi/FLOW/internal/datastore"
)

// FeedbackRequest is a new human review of an analysis output.
type FeedbackRequest struct {
	Severity     string `json:"severity"`
	TestName     string `json:"test_name"`
	TestNumber   int    `json:"test_number"`
	Lot          string `json:"lot"`
	Insertion    string `json:"insertion"`
	InitialLabel string `json:"initial_label"`
	ReferenceID  string `json:"reference_id"`
	InputID      string `json:"input_id"`
}

// SubmitFeedback records a new feedback entry in PENDING state.
func (c *Controller) SubmitFeedback(ctx echo.Context) error {
	var req FeedbackRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, bindError(err), "Invalid request body")
	}

	feedback := &datastore.FeedbackRecord{
		Severity:     datastore.FeedbackSeverity(req.Severity),
		TestName:     req.TestName,
		TestNumber:   req.TestNumber,
		Lot:          req.Lot,
		Insertion:    req.Insertion,
		InitialLabel: req.InitialLabel,
		ReferenceID:  req.ReferenceID,
		InputID:      req.InputID,
	}
	if err := c.DS.SubmitFeedback(ctx.Request().Context(), feedback); err != nil {
		return c.HandleError(ctx, err, "Failed to submit feedback")
	}

	return ctx.JSON(http.StatusCreated, feedback)
}

// GetFeedback returns one feedback record by ID.
func (c *Controller) GetFeedback(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid feedback ID")
	}

	feedback, err := c.DS.GetFeedback(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get feedback")
	}
	return ctx.JSON(http.StatusOK, feedback)
}

// ResolveFeedbackRequest carries the corrected label for a resolution.
type ResolveFeedbackRequest struct {
	NewLabel string `json:"new_label"`
}

// ResolveFeedback transitions a pending feedback record to RESOLVED.
func (c *Controller) ResolveFeedback(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid feedback ID")
	}

	var req ResolveFeedbackRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, bindError(err), "Invalid request body")
	}

	if err := c.DS.ResolveFeedback(ctx.Request().Context(), id, req.NewLabel); err != nil {
		return c.HandleError(ctx, err, "Failed to resolve feedback")
	}

	feedback, err := c.DS.GetFeedback(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read resolved feedback")
	}
	return ctx.JSON(http.StatusOK, feedback)
}

// IgnoreFeedback transitions a pending feedback record to IGNORED.
func (c *Controller) IgnoreFeedback(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid feedback ID")
	}

	if err := c.DS.IgnoreFeedback(ctx.Request().Context(), id); err != nil {
		return c.HandleError(ctx, err, "Failed to ignore feedback")
	}

	feedback, err := c.DS.GetFeedback(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read ignored feedback")
	}
	return ctx.JSON(http.StatusOK, feedback)
}

// PendingFeedback returns open feedback records, optionally filtered by severity.
func (c *Controller) PendingFeedback(ctx echo.Context) error {
	limit := queryInt(ctx, "limit", 100)
	records, err := c.DS.PendingFeedback(ctx.Request().Context(), ctx.QueryParam("severity"), limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list pending feedback")
	}
	return ctx.JSON(http.StatusOK, records)
}

// SearchFeedback returns feedback records matching the query parameters,
// each joined with its latest analysis result.
func (c *Controller) SearchFeedback(ctx echo.Context) error {
	query := datastore.FeedbackQuery{
		Search:   ctx.QueryParam("search"),
		Severity: ctx.QueryParam("severity"),
		Status:   ctx.QueryParam("status"),
		Limit:    queryInt(ctx, "limit", 100),
	}

	if from := ctx.QueryParam("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return c.HandleError(ctx, bindError(err), "Invalid from timestamp")
		}
		query.From = &t
	}
	if to := ctx.QueryParam("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return c.HandleError(ctx, bindError(err), "Invalid to timestamp")
		}
		query.To = &t
	}

	rows, err := c.DS.SearchFeedback(ctx.Request().Context(), query)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to search feedback")
	}
	return ctx.JSON(http.StatusOK, rows)
}
