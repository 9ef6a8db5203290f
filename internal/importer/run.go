package importer

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
)

// Run wires one import pass together: a classifier and processor sharing
// the run-scoped created-product index and ledger, plus the reset engine.
// A Run holds no cross-run state; staged imports thread the ledger between
// passes explicitly through the settings.
type Run struct {
	settings     *Settings
	classifier   *Classifier
	processor    *Processor
	engine       *ResetAbsentEngine
	validateOnly bool
	logger       *logrus.Entry
}

// RunParams collects the collaborators for one import run.
type RunParams struct {
	Store              CatalogStore
	Settings           *Settings
	FallbackCategoryID uuid.UUID
	ValidateOnly       bool
	Logger             *logrus.Entry
}

// NewRun builds a run. The classifier and processor share a fresh
// created-product index scoped to this run only.
func NewRun(p RunParams) *Run {
	created := newCreatedIndex()
	return &Run{
		settings:     p.Settings,
		classifier:   NewClassifier(p.Store, p.Settings, created, p.FallbackCategoryID),
		processor:    NewProcessor(p.Store, p.Settings, created, p.Logger),
		engine:       NewResetAbsentEngine(p.Store, p.Settings, p.Logger),
		validateOnly: p.ValidateOnly,
		logger:       p.Logger,
	}
}

// Import classifies and persists every row sequentially, returning the
// aggregate result. In validate-only mode rows are classified but nothing
// is persisted.
func (r *Run) Import(rows []map[string]string) *models.ImportResult {
	start := time.Now()
	result := &models.ImportResult{TotalRows: len(rows)}

	for i, row := range rows {
		line := i + 2 // header occupies line 1
		if raw, ok := row["_row"]; ok {
			if n, err := strconv.Atoi(raw); err == nil {
				line = n
			}
		}

		entry := r.classifier.Classify(row, line)

		if r.validateOnly {
			if entry.Invalid() {
				for _, msg := range entry.ValidationErrors {
					result.Errors = append(result.Errors, models.ImportRowError{
						Row:     entry.LineNumber,
						Code:    "VALIDATION",
						Message: msg,
					})
				}
			} else {
				result.ValidRows++
			}
			continue
		}

		r.processor.Process(entry)
	}

	if r.validateOnly {
		result.Success = result.ValidRows > 0
		result.ProcessingMs = time.Since(start).Milliseconds()
		return result
	}

	r.processor.Finalize()

	result.ProductsCreated = r.processor.ProductsCreated()
	result.VariantsCreated = r.processor.VariantsCreated()
	result.VariantsUpdated = r.processor.VariantsUpdated()
	result.InventoryCreated = r.processor.InventoryCreated()
	result.InventoryUpdated = r.processor.InventoryUpdated()
	result.Errors = r.processor.Errors()
	result.Success = r.processor.TotalSaved() > 0

	if ledger := r.settings.Ledger(); ledger != nil {
		result.UpdatedIDs = make([]string, 0, ledger.Len())
		for _, id := range ledger.IDs() {
			result.UpdatedIDs = append(result.UpdatedIDs, id.String())
		}
	}

	result.ProcessingMs = time.Since(start).Milliseconds()

	r.logger.WithFields(logrus.Fields{
		"total_rows":        result.TotalRows,
		"products_created":  result.ProductsCreated,
		"variants_created":  result.VariantsCreated,
		"variants_updated":  result.VariantsUpdated,
		"inventory_created": result.InventoryCreated,
		"inventory_updated": result.InventoryUpdated,
		"errors":            len(result.Errors),
	}).Info("Import pass completed")

	return result
}

// ResetAbsent runs the post-pass reset. The boolean is false when the
// guard short-circuited and no reset was attempted.
func (r *Run) ResetAbsent() (int, bool) {
	return r.engine.Call()
}
