// internal/api/settings.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/salim-benhamadi/FLOW/internal/datastore"
)

// SettingsUpdateRequest is a partial settings update; absent fields keep
// their stored value.
type SettingsUpdateRequest struct {
	Sensitivity          *float64  `json:"sensitivity"`
	SelectedProducts     *[]string `json:"selected_products"`
	ConfidenceThreshold  *float64  `json:"confidence_threshold"`
	CriticalIssueWeight  *float64  `json:"critical_issue_weight"`
	HighPriorityWeight   *float64  `json:"high_priority_weight"`
	NormalPriorityWeight *float64  `json:"normal_priority_weight"`
	AutoRetrain          *bool     `json:"auto_retrain"`
	RetrainingSchedule   *string   `json:"retraining_schedule"`
}

// GetSettings returns the model settings singleton.
func (c *Controller) GetSettings(ctx echo.Context) error {
	settings, err := c.DS.GetModelSettings(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get model settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

// UpdateSettings applies a partial update to the model settings singleton.
func (c *Controller) UpdateSettings(ctx echo.Context) error {
	var req SettingsUpdateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, bindError(err), "Invalid request body")
	}

	update := datastore.SettingsUpdate{
		Sensitivity:          req.Sensitivity,
		ConfidenceThreshold:  req.ConfidenceThreshold,
		CriticalIssueWeight:  req.CriticalIssueWeight,
		HighPriorityWeight:   req.HighPriorityWeight,
		NormalPriorityWeight: req.NormalPriorityWeight,
		AutoRetrain:          req.AutoRetrain,
		RetrainingSchedule:   req.RetrainingSchedule,
	}
	if req.SelectedProducts != nil {
		products := datastore.ProductList(*req.SelectedProducts)
		update.SelectedProducts = &products
	}

	settings, err := c.DS.UpdateModelSettings(ctx.Request().Context(), update)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to update model settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}
