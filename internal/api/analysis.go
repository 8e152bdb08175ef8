// internal/api/analysis.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/salim-benhamadi/FLOW/internal/datastore"
)

// AnalysisResultRequest is one distribution-analysis outcome to persist.
type AnalysisResultRequest struct {
	ModelVersionID   uint    `json:"model_version_id"`
	InputID          *string `json:"input_id"`
	ReferenceID      *string `json:"reference_id"`
	TestName         string  `json:"test_name"`
	DistributionType string  `json:"distribution_type"`
	ConfidenceScore  float64 `json:"confidence_score"`
	ResultMetadata   string  `json:"result_metadata"`
}

// SaveAnalysisResult persists one analysis outcome.
func (c *Controller) SaveAnalysisResult(ctx echo.Context) error {
	var req AnalysisResultRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, bindError(err), "Invalid request body")
	}

	result := &datastore.AnalysisResult{
		ModelVersionID:   req.ModelVersionID,
		InputID:          req.InputID,
		ReferenceID:      req.ReferenceID,
		TestName:         req.TestName,
		DistributionType: req.DistributionType,
		ConfidenceScore:  req.ConfidenceScore,
		ResultMetadata:   req.ResultMetadata,
	}
	if err := c.DS.SaveAnalysisResult(ctx.Request().Context(), result); err != nil {
		return c.HandleError(ctx, err, "Failed to save analysis result")
	}

	return ctx.JSON(http.StatusCreated, result)
}

// RecentAnalysisResults returns the most recent analysis outcomes.
func (c *Controller) RecentAnalysisResults(ctx echo.Context) error {
	limit := queryInt(ctx, "limit", 50)
	results, err := c.DS.RecentAnalysisResults(ctx.Request().Context(), limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list analysis results")
	}
	return ctx.JSON(http.StatusOK, results)
}
