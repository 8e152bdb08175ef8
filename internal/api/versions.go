// internal/api/versions.go
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/salim-benhamadi/FLOW/internal/datastore"
	"github.com/salim-benhamadi/FLOW/internal/errors"
)

// RegisterVersionRequest describes a new model version to register.
type RegisterVersionRequest struct {
	VersionNumber   int     `json:"version_number"`
	Status          string  `json:"status"`
	ConfidenceScore float64 `json:"confidence_score"`
	ModelPath       string  `json:"model_path"`
	TrainingDataRef string  `json:"training_data_ref"`
	ParentVersion   *uint   `json:"parent_version"`
}

// RegisterVersion creates a new model version record.
func (c *Controller) RegisterVersion(ctx echo.Context) error {
	var req RegisterVersionRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, bindError(err), "Invalid request body")
	}

	version := &datastore.ModelVersion{
		VersionNumber:   req.VersionNumber,
		Status:          datastore.VersionStatus(req.Status),
		ConfidenceScore: req.ConfidenceScore,
		ModelPath:       req.ModelPath,
		TrainingDataRef: req.TrainingDataRef,
		ParentVersion:   req.ParentVersion,
	}
	if err := c.DS.RegisterVersion(ctx.Request().Context(), version); err != nil {
		return c.HandleError(ctx, err, "Failed to register model version")
	}

	return ctx.JSON(http.StatusCreated, version)
}

// ListVersions returns all model versions, newest version number first.
func (c *Controller) ListVersions(ctx echo.Context) error {
	versions, err := c.DS.ListVersions(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list model versions")
	}
	return ctx.JSON(http.StatusOK, versions)
}

// GetVersion returns one model version by ID, or by version number when the
// number query parameter form is used.
func (c *Controller) GetVersion(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid version ID")
	}

	version, err := c.DS.GetVersion(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get model version")
	}
	return ctx.JSON(http.StatusOK, version)
}

// ActivateVersion promotes a version to active, demoting the current one.
func (c *Controller) ActivateVersion(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid version ID")
	}

	if err := c.DS.ActivateVersion(ctx.Request().Context(), id); err != nil {
		return c.HandleError(ctx, err, "Failed to activate model version")
	}

	version, err := c.DS.GetVersion(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read activated version")
	}
	return ctx.JSON(http.StatusOK, version)
}

// MetricRequest carries one metric snapshot for a version.
type MetricRequest struct {
	Accuracy   *float64 `json:"accuracy"`
	Confidence *float64 `json:"confidence"`
	ErrorRate  *float64 `json:"error_rate"`
	VamosScore *float64 `json:"vamos_score"`
	Precision  *float64 `json:"precision"`
	Recall     *float64 `json:"recall"`
	F1Score    *float64 `json:"f1_score"`
}

// RecordMetric appends a metric snapshot to a model version.
func (c *Controller) RecordMetric(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid version ID")
	}

	var req MetricRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, bindError(err), "Invalid request body")
	}

	metric := &datastore.VersionMetric{
		ModelVersionID: id,
		Accuracy:       req.Accuracy,
		Confidence:     req.Confidence,
		ErrorRate:      req.ErrorRate,
		VamosScore:     req.VamosScore,
		Precision:      req.Precision,
		Recall:         req.Recall,
		F1Score:        req.F1Score,
	}
	if err := c.DS.RecordMetric(ctx.Request().Context(), metric); err != nil {
		return c.HandleError(ctx, err, "Failed to record version metric")
	}

	return ctx.JSON(http.StatusCreated, metric)
}

// TrainingEventRequest describes one training run outcome.
type TrainingEventRequest struct {
	EventType        string   `json:"event_type"`
	MatchedInsertion string   `json:"matched_insertion"`
	MatchedProduct   string   `json:"matched_product"`
	TrainingDuration *float64 `json:"training_duration"`
	FinalAccuracy    *float64 `json:"final_accuracy"`
	Status           string   `json:"status"`
	ErrorMessage     *string  `json:"error_message"`
	InitiatedBy      string   `json:"initiated_by"`
}

// RecordTrainingEvent appends a training event to a model version.
func (c *Controller) RecordTrainingEvent(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid version ID")
	}

	var req TrainingEventRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, bindError(err), "Invalid request body")
	}

	event := &datastore.TrainingEvent{
		ModelVersionID:   id,
		EventType:        req.EventType,
		MatchedInsertion: req.MatchedInsertion,
		MatchedProduct:   req.MatchedProduct,
		TrainingDuration: req.TrainingDuration,
		FinalAccuracy:    req.FinalAccuracy,
		Status:           req.Status,
		ErrorMessage:     req.ErrorMessage,
		InitiatedBy:      req.InitiatedBy,
	}
	if err := c.DS.RecordTrainingEvent(ctx.Request().Context(), event); err != nil {
		return c.HandleError(ctx, err, "Failed to record training event")
	}

	return ctx.JSON(http.StatusCreated, event)
}

// CandidateReferences returns unused reference datasets for a training run,
// preferring the requested product but not excluding others.
func (c *Controller) CandidateReferences(ctx echo.Context) error {
	insertion := ctx.QueryParam("insertion")
	if insertion == "" {
		err := errors.Newf("insertion query parameter is required").
			Component("api").
			Category(errors.CategoryValidation).
			Build()
		return c.HandleError(ctx, err, "Missing insertion parameter")
	}

	limit := queryInt(ctx, "limit", 50)
	refs, err := c.DS.CandidateReferences(ctx.Request().Context(), insertion, ctx.QueryParam("product"), limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list candidate references")
	}
	return ctx.JSON(http.StatusOK, refs)
}

// TrainingLabelRequest is a pairwise similarity judgement between two
// reference datasets.
type TrainingLabelRequest struct {
	ReferenceID1 string `json:"reference_id_1"`
	ReferenceID2 string `json:"reference_id_2"`
	Label        string `json:"label"`
}

// AddTrainingLabel records a similarity label between two references.
func (c *Controller) AddTrainingLabel(ctx echo.Context) error {
	var req TrainingLabelRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, bindError(err), "Invalid request body")
	}

	label := &datastore.TrainingLabel{
		ReferenceID1: req.ReferenceID1,
		ReferenceID2: req.ReferenceID2,
		Label:        datastore.SimilarityLabel(req.Label),
	}
	if err := c.DS.AddTrainingLabel(ctx.Request().Context(), label); err != nil {
		return c.HandleError(ctx, err, "Failed to add training label")
	}

	return ctx.JSON(http.StatusCreated, label)
}

// LabelsForReference returns all labels naming a reference in either position.
func (c *Controller) LabelsForReference(ctx echo.Context) error {
	labels, err := c.DS.LabelsForReference(ctx.Request().Context(), ctx.Param("referenceID"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list training labels")
	}
	return ctx.JSON(http.StatusOK, labels)
}

// pathID parses the numeric :id path parameter.
func pathID(ctx echo.Context) (uint, error) {
	raw := ctx.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.Newf("invalid numeric ID %q", raw).
			Component("api").
			Category(errors.CategoryValidation).
			Context("value", raw).
			Build()
	}
	return uint(id), nil
}
