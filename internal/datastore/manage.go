package datastore

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

// tableMapping pairs a migration identifier with the model it migrates.
type tableMapping struct {
	id          string
	description string
	model       any
}

// tableMappings lists every persisted entity in migration order. Parents
// come before children so constraints resolve during AutoMigrate.
var tableMappings = []tableMapping{
	{"001_input_datasets", "input dataset headers", &InputDataset{}},
	{"002_input_measurements", "per-chip input measurements", &InputMeasurement{}},
	{"003_reference_datasets", "reference dataset headers", &ReferenceDataset{}},
	{"004_reference_measurements", "per-chip reference measurements", &ReferenceMeasurement{}},
	{"005_model_versions", "model version registry", &ModelVersion{}},
	{"006_version_metrics", "model version metric snapshots", &VersionMetric{}},
	{"007_training_events", "training run event log", &TrainingEvent{}},
	{"008_analysis_results", "distribution analysis results", &AnalysisResult{}},
	{"009_feedback", "analysis feedback records", &FeedbackRecord{}},
	{"010_training_labels", "pairwise similarity labels", &TrainingLabel{}},
	{"011_model_settings", "singleton model settings", &ModelSettings{}},
	{"012_api_logs", "request/response log", &APILog{}},
}

// performAutoMigration runs schema migration and initial seeding for the
// given database. Idempotent: re-running against an up-to-date schema is a
// no-op apart from timestamp-free reads.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	// The migration bookkeeping table comes first so applied IDs can be
	// recorded for everything else.
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return dbError(err, "auto_migration", "",
			"db_type", dbType,
			"table", "schema_migrations")
	}

	for _, tm := range tableMappings {
		if err := db.AutoMigrate(tm.model); err != nil {
			return dbError(err, "auto_migration", "",
				"db_type", dbType,
				"migration_id", tm.id)
		}

		record := SchemaMigration{
			ID:          tm.id,
			Description: tm.description,
			AppliedAt:   time.Now(),
		}
		// FirstOrCreate keeps each migration ID applied at most once
		if err := db.Where("id = ?", tm.id).FirstOrCreate(&record).Error; err != nil {
			return dbError(err, "migration_record", "",
				"db_type", dbType,
				"migration_id", tm.id)
		}
	}

	if debug {
		getLogger().Debug("Schema migration completed",
			"db_type", dbType,
			"connection", connectionInfo,
			"tables", len(tableMappings))
	}

	return seed(db)
}

// defaultModelSettings returns the settings row used when no configuration
// has been stored yet.
func defaultModelSettings() ModelSettings {
	return ModelSettings{
		ID:                   settingsRowID,
		Sensitivity:          0.5,
		SelectedProducts:     ProductList{},
		ConfidenceThreshold:  0.95,
		CriticalIssueWeight:  1.0,
		HighPriorityWeight:   0.8,
		NormalPriorityWeight: 0.6,
		AutoRetrain:          false,
		RetrainingSchedule:   "weekly",
		ModelVersion:         "v1",
	}
}

// seed creates the singleton settings row and, on a fresh database, the
// initial model version with its first metric snapshot.
func seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		settings := defaultModelSettings()
		if err := tx.Where("id = ?", settingsRowID).FirstOrCreate(&settings).Error; err != nil {
			return dbError(err, "seed_settings", "")
		}

		var versionCount int64
		if err := tx.Model(&ModelVersion{}).Count(&versionCount).Error; err != nil {
			return dbError(err, "seed_version_count", "")
		}
		if versionCount > 0 {
			return nil
		}

		initial := ModelVersion{
			VersionNumber:   1,
			Status:          VersionStatusActive,
			ConfidenceScore: 0.85,
			TrainingDataRef: "bootstrap",
		}
		if err := tx.Create(&initial).Error; err != nil {
			return dbError(err, "seed_initial_version", "")
		}

		accuracy := 0.85
		confidence := 0.85
		errorRate := 0.15
		metric := VersionMetric{
			ModelVersionID: initial.ID,
			Accuracy:       &accuracy,
			Confidence:     &confidence,
			ErrorRate:      &errorRate,
		}
		if err := tx.Create(&metric).Error; err != nil {
			return dbError(err, "seed_initial_metric", "")
		}

		pointer := "v" + strconv.Itoa(initial.VersionNumber)
		if err := tx.Model(&ModelSettings{}).
			Where("id = ?", settingsRowID).
			Update("model_version", pointer).Error; err != nil {
			return dbError(err, "seed_settings_pointer", "")
		}

		getLogger().Info("Seeded initial model version",
			"version_number", initial.VersionNumber,
			"model_version", pointer)
		return nil
	})
}
