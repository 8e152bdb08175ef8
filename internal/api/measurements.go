// internal/api/measurements.go
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"github.com/salim-benhamadi/FLOW/internal/datastore"
)

// IngestRequest carries a dataset header and its per-chip measurements.
type IngestRequest struct {
	ID           string                  `json:"id"`
	Product      string                  `json:"product"`
	Lot          string                  `json:"lot"`
	Insertion    string                  `json:"insertion"`
	TestName     string                  `json:"test_name"`
	TestNumber   int                     `json:"test_number"`
	LSL          *float64                `json:"lsl"`
	USL          *float64                `json:"usl"`
	QualityScore *float64                `json:"quality_score"`
	Measurements []datastore.Measurement `json:"measurements"`
}

// CreateInput ingests a new input dataset with its measurements.
func (c *Controller) CreateInput(ctx echo.Context) error {
	var req IngestRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, bindError(err), "Invalid request body")
	}

	dataset := &datastore.InputDataset{
		ID:         req.ID,
		Insertion:  req.Insertion,
		TestName:   req.TestName,
		TestNumber: req.TestNumber,
		LSL:        req.LSL,
		USL:        req.USL,
	}
	if err := c.DS.IngestInput(ctx.Request().Context(), dataset, req.Measurements); err != nil {
		return c.HandleError(ctx, err, "Failed to ingest input dataset")
	}

	return ctx.JSON(http.StatusCreated, dataset)
}

// CreateReference ingests a new reference dataset with its measurements.
func (c *Controller) CreateReference(ctx echo.Context) error {
	var req IngestRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, bindError(err), "Invalid request body")
	}

	dataset := &datastore.ReferenceDataset{
		ID:           req.ID,
		Product:      req.Product,
		Lot:          req.Lot,
		Insertion:    req.Insertion,
		TestName:     req.TestName,
		TestNumber:   req.TestNumber,
		LSL:          req.LSL,
		USL:          req.USL,
		QualityScore: req.QualityScore,
	}
	if err := c.DS.IngestReference(ctx.Request().Context(), dataset, req.Measurements); err != nil {
		return c.HandleError(ctx, err, "Failed to ingest reference dataset")
	}

	return ctx.JSON(http.StatusCreated, dataset)
}

// GetInput returns an input dataset header by ID.
func (c *Controller) GetInput(ctx echo.Context) error {
	dataset, err := c.DS.GetInput(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get input dataset")
	}
	return ctx.JSON(http.StatusOK, dataset)
}

// GetReference returns a reference dataset header by ID.
func (c *Controller) GetReference(ctx echo.Context) error {
	dataset, err := c.DS.GetReference(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get reference dataset")
	}
	return ctx.JSON(http.StatusOK, dataset)
}

// ListReferences returns reference dataset headers, optionally filtered by
// product and insertion query parameters.
func (c *Controller) ListReferences(ctx echo.Context) error {
	limit := queryInt(ctx, "limit", 100)
	refs, err := c.DS.ListReferences(ctx.Request().Context(),
		ctx.QueryParam("product"), ctx.QueryParam("insertion"), limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list reference datasets")
	}
	return ctx.JSON(http.StatusOK, refs)
}

// measurementCacheKey builds the cache key for a dataset's measurements.
func measurementCacheKey(kind datastore.DatasetKind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}

// GetMeasurements returns the per-chip measurements of a dataset. Reads go
// through a short-lived cache since training and analysis fetch the same
// datasets repeatedly.
func (c *Controller) GetMeasurements(ctx echo.Context) error {
	kind := datastore.DatasetKind(ctx.Param("kind"))
	id := ctx.Param("id")
	key := measurementCacheKey(kind, id)

	if cached, found := c.measurementCache.Get(key); found {
		if c.metrics != nil {
			c.metrics.HTTP.RecordCacheOperation("get", "hit")
		}
		return ctx.JSON(http.StatusOK, cached)
	}
	if c.metrics != nil {
		c.metrics.HTTP.RecordCacheOperation("get", "miss")
	}

	measurements, err := c.DS.GetMeasurements(ctx.Request().Context(), kind, id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get measurements")
	}

	c.measurementCache.Set(key, measurements, cache.DefaultExpiration)
	if c.metrics != nil {
		c.metrics.HTTP.RecordCacheOperation("set", "ok")
	}

	return ctx.JSON(http.StatusOK, measurements)
}

// DeleteInput removes an input dataset and its measurements.
func (c *Controller) DeleteInput(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := c.DS.DeleteInput(ctx.Request().Context(), id); err != nil {
		return c.HandleError(ctx, err, "Failed to delete input dataset")
	}

	c.measurementCache.Delete(measurementCacheKey(datastore.KindInput, id))
	if c.metrics != nil {
		c.metrics.HTTP.RecordCacheOperation("invalidate", "ok")
	}

	return ctx.NoContent(http.StatusNoContent)
}

// DeleteReference removes a reference dataset and its measurements.
func (c *Controller) DeleteReference(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := c.DS.DeleteReference(ctx.Request().Context(), id); err != nil {
		return c.HandleError(ctx, err, "Failed to delete reference dataset")
	}

	c.measurementCache.Delete(measurementCacheKey(datastore.KindReference, id))
	if c.metrics != nil {
		c.metrics.HTTP.RecordCacheOperation("invalidate", "ok")
	}

	return ctx.NoContent(http.StatusNoContent)
}

// MarkReferenceUsedRequest names the training version that consumed a reference.
type MarkReferenceUsedRequest struct {
	TrainingVersion string `json:"training_version"`
}

// MarkReferenceUsed flags a reference dataset as consumed by a training run.
func (c *Controller) MarkReferenceUsed(ctx echo.Context) error {
	var req MarkReferenceUsedRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, bindError(err), "Invalid request body")
	}

	if err := c.DS.MarkReferenceUsed(ctx.Request().Context(), ctx.Param("id"), req.TrainingVersion); err != nil {
		return c.HandleError(ctx, err, "Failed to mark reference as used")
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// queryInt parses an integer query parameter, falling back to def when the
// parameter is missing or malformed.
func queryInt(ctx echo.Context, name string, def int) int {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
