// model.go this code defines the data model for the application
package datastore

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// VersionStatus is the lifecycle state of a model version.
type VersionStatus string

const (
	VersionStatusInactive VersionStatus = "inactive"
	VersionStatusActive   VersionStatus = "active"
	VersionStatusTraining VersionStatus = "training"
	VersionStatusFailed   VersionStatus = "failed"
)

// ValidVersionStatus reports whether s is a known model version status.
func ValidVersionStatus(s VersionStatus) bool {
	switch s {
	case VersionStatusInactive, VersionStatusActive, VersionStatusTraining, VersionStatusFailed:
		return true
	}
	return false
}

// FeedbackStatus is the workflow state of a feedback record. PENDING is the
// only non-terminal status.
type FeedbackStatus string

const (
	FeedbackStatusPending  FeedbackStatus = "PENDING"
	FeedbackStatusResolved FeedbackStatus = "RESOLVED"
	FeedbackStatusIgnored  FeedbackStatus = "IGNORED"
)

// FeedbackSeverity classifies the reviewer-assigned severity of feedback.
type FeedbackSeverity string

const (
	SeverityHigh     FeedbackSeverity = "HIGH"
	SeverityCritical FeedbackSeverity = "CRITICAL"
	SeverityMedium   FeedbackSeverity = "MEDIUM"
)

// ValidFeedbackSeverity reports whether s is a known severity.
func ValidFeedbackSeverity(s FeedbackSeverity) bool {
	switch s {
	case SeverityHigh, SeverityCritical, SeverityMedium:
		return true
	}
	return false
}

// SimilarityLabel is a pairwise distribution similarity verdict.
type SimilarityLabel string

const (
	LabelSimilar             SimilarityLabel = "SIMILAR"
	LabelModeratelySimilar   SimilarityLabel = "MODERATELY_SIMILAR"
	LabelCompletelyDifferent SimilarityLabel = "COMPLETELY_DIFFERENT"
)

// ValidSimilarityLabel reports whether l is a known similarity label.
func ValidSimilarityLabel(l SimilarityLabel) bool {
	switch l {
	case LabelSimilar, LabelModeratelySimilar, LabelCompletelyDifferent:
		return true
	}
	return false
}

// DatasetKind selects between the input and reference measurement stores.
type DatasetKind string

const (
	KindInput     DatasetKind = "input"
	KindReference DatasetKind = "reference"
)

// InputDataset is one ingested measurement set under analysis.
// Immutable after ingestion except for cascading deletion.
type InputDataset struct {
	ID           string `gorm:"primaryKey;column:input_id;size:128"`
	Insertion    string `gorm:"index:idx_input_insertion"`
	TestName     string
	TestNumber   int
	LSL          *float64 `gorm:"column:lsl"` // lower spec limit, optional
	USL          *float64 `gorm:"column:usl"` // upper spec limit, optional
	CreatedAt    time.Time
	Measurements []InputMeasurement `gorm:"foreignKey:InputID;references:ID;constraint:OnDelete:CASCADE"`
}

// InputMeasurement is a single per-chip value owned by an InputDataset.
// Value is either a finite float or NULL, never NaN.
type InputMeasurement struct {
	InputID    string   `gorm:"primaryKey;column:input_id;size:128"`
	ChipNumber int      `gorm:"primaryKey;autoIncrement:false"`
	Value      *float64 // NULL for missing measurement
}

// ReferenceDataset is one reference measurement set forming the training corpus.
type ReferenceDataset struct {
	ID               string `gorm:"primaryKey;column:reference_id;size:128"`
	Product          string `gorm:"index:idx_reference_product"`
	Lot              string
	Insertion        string `gorm:"index:idx_reference_insertion"`
	TestName         string
	TestNumber       int
	LSL              *float64 `gorm:"column:lsl"`
	USL              *float64 `gorm:"column:usl"`
	UsedForTraining  bool     `gorm:"index:idx_reference_used;default:false"`
	TrainingVersion  *string  // version string that consumed this reference, if any
	DistributionHash string   // content fingerprint of the measurement set
	QualityScore     *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Measurements     []ReferenceMeasurement `gorm:"foreignKey:ReferenceID;references:ID;constraint:OnDelete:CASCADE"`
}

// ReferenceMeasurement is a single per-chip value owned by a ReferenceDataset.
type ReferenceMeasurement struct {
	ReferenceID string `gorm:"primaryKey;column:reference_id;size:128"`
	ChipNumber  int    `gorm:"primaryKey;autoIncrement:false"`
	Value       *float64
}

// Measurement is the transport shape for per-chip values, independent of
// which store owns them.
type Measurement struct {
	ChipNumber int      `json:"chip_number"`
	Value      *float64 `json:"value"`
}

// ModelVersion is one versioned record of a trained model.
// At most one row has Status == active at any instant; all activation goes
// through ActivateVersion so the invariant is never observably violated.
type ModelVersion struct {
	ID              uint          `gorm:"primaryKey"`
	VersionNumber   int           `gorm:"uniqueIndex;not null"`
	Status          VersionStatus `gorm:"type:varchar(20);index;not null;default:inactive"`
	ConfidenceScore float64
	ModelPath       string // opaque locator for the serialized model
	TrainingDataRef string // free-text description of the training set used
	ParentVersion   *uint  // version this one was trained from, if any
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Metrics         []VersionMetric `gorm:"foreignKey:ModelVersionID;constraint:OnDelete:CASCADE"`
	Events          []TrainingEvent `gorm:"foreignKey:ModelVersionID;constraint:OnDelete:CASCADE"`
}

// VersionMetric is a point-in-time metric snapshot for a model version.
// Append-only, never updated.
type VersionMetric struct {
	ID             uint `gorm:"primaryKey"`
	ModelVersionID uint `gorm:"index;not null"`
	Accuracy       *float64
	Confidence     *float64
	ErrorRate      *float64
	VamosScore     *float64
	Precision      *float64 `gorm:"column:precision_score"` // PRECISION is reserved in MySQL
	Recall         *float64
	F1Score        *float64
	CreatedAt      time.Time `gorm:"index"`
}

// TrainingEvent is a log entry describing one training run's outcome.
// Completion or failure is recorded by appending a new event, never by
// updating a prior row.
type TrainingEvent struct {
	ID               uint   `gorm:"primaryKey"`
	ModelVersionID   uint   `gorm:"index;not null"`
	EventType        string `gorm:"type:varchar(40)"` // scheduled, manual, auto_retrain
	MatchedInsertion string
	MatchedProduct   string
	TrainingDuration *float64 // seconds
	FinalAccuracy    *float64
	Status           string `gorm:"type:varchar(20)"`
	ErrorMessage     *string
	InitiatedBy      string
	CreatedAt        time.Time `gorm:"index"`
}

// AnalysisResult is one distribution-analysis outcome, produced by the
// analysis engine and persisted here. Append-only.
type AnalysisResult struct {
	ID               uint    `gorm:"primaryKey"`
	ModelVersionID   uint    `gorm:"index;not null"`
	InputID          *string `gorm:"column:input_id;size:128;index"`
	ReferenceID      *string `gorm:"column:reference_id;size:128"`
	TestName         string  `gorm:"index"`
	DistributionType string  `gorm:"type:varchar(40)"`
	ConfidenceScore  float64
	ResultMetadata   string    `gorm:"type:text"` // opaque JSON payload, stored without interpretation
	CreatedAt        time.Time `gorm:"index"`
}

// FeedbackRecord is one human review of an analysis output.
// ReferenceID and InputID are verified to exist at submission time but are
// not declared as schema-level foreign keys, so later dataset deletion never
// invalidates the feedback audit trail.
type FeedbackRecord struct {
	ID           uint             `gorm:"primaryKey"`
	Severity     FeedbackSeverity `gorm:"type:varchar(10);index"`
	Status       FeedbackStatus   `gorm:"type:varchar(10);index"`
	TestName     string           `gorm:"index"`
	TestNumber   int
	Lot          string
	Insertion    string
	InitialLabel string
	NewLabel     *string // set on resolution only
	ReferenceID  string  `gorm:"column:reference_id;size:128"`
	InputID      string  `gorm:"column:input_id;size:128"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

// TrainingLabel is an append-only pairwise similarity label between two
// reference datasets. Duplicate pairs are retained as separate rows.
type TrainingLabel struct {
	ID           uint            `gorm:"primaryKey"`
	ReferenceID1 string          `gorm:"column:reference_id_1;size:128;index"`
	ReferenceID2 string          `gorm:"column:reference_id_2;size:128;index"`
	Label        SimilarityLabel `gorm:"type:varchar(30)"`
	CreatedAt    time.Time
}

// ProductList is a set of product identifiers serialized as JSON text.
type ProductList []string

// Value implements driver.Valuer for database storage.
func (p ProductList) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshaling product list: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner for database retrieval.
func (p *ProductList) Scan(value any) error {
	if value == nil {
		*p = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported product list type %T", value)
	}
	if len(data) == 0 {
		*p = nil
		return nil
	}
	return json.Unmarshal(data, p)
}

// settingsRowID is the fixed primary key of the singleton settings row.
const settingsRowID = 1

// ModelSettings is the singleton configuration record controlling model
// behavior. Exactly one row exists, addressed by id = 1.
type ModelSettings struct {
	ID                   uint        `gorm:"primaryKey;check:id = 1"`
	Sensitivity          float64     // in [0, 1]
	SelectedProducts     ProductList `gorm:"type:text"`
	ConfidenceThreshold  float64     // in [0, 1]
	CriticalIssueWeight  float64
	HighPriorityWeight   float64
	NormalPriorityWeight float64
	AutoRetrain          bool
	RetrainingSchedule   string `gorm:"type:varchar(20)"`
	ModelVersion         string `gorm:"type:varchar(20)"` // mirrors the active version, "v" + version_number
	UpdatedAt            time.Time
}

// APILog is one request/response record for the operational log.
type APILog struct {
	ID           uint   `gorm:"primaryKey"`
	Endpoint     string `gorm:"index"`
	Method       string `gorm:"type:varchar(10)"`
	StatusCode   int
	ResponseTime float64   // milliseconds
	CreatedAt    time.Time `gorm:"index"`
}

// SchemaMigration records one applied migration identifier. Append-only;
// each identifier is applied at most once.
type SchemaMigration struct {
	ID          string `gorm:"primaryKey;size:64"`
	Description string
	AppliedAt   time.Time
}
