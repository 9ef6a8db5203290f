package importer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
)

// Processor persists classified entries: applies default-merge rules,
// saves with a single reload-and-retry on write conflicts, accumulates
// per-category counters, and pushes every persisted ID onto the ledger.
// Row failures are collected, never fatal to the run.
type Processor struct {
	store    CatalogStore
	settings *Settings
	created  *createdIndex
	logger   *logrus.Entry

	productsCreated  int
	variantsCreated  int
	variantsUpdated  int
	inventoryCreated int
	inventoryUpdated int
	errors           []models.ImportRowError
}

// NewProcessor builds a processor for one import run. The created index
// must be the same instance the classifier consults.
func NewProcessor(store CatalogStore, settings *Settings, created *createdIndex, logger *logrus.Entry) *Processor {
	return &Processor{
		store:    store,
		settings: settings,
		created:  created,
		logger:   logger,
	}
}

// SaveAll routes a batch of classified entries to persistence.
func (p *Processor) SaveAll(entries []*models.Entry) {
	for _, entry := range entries {
		p.Process(entry)
	}
}

// Process persists one classified entry according to its disposition.
func (p *Processor) Process(entry *models.Entry) {
	if entry.Invalid() {
		for _, msg := range entry.ValidationErrors {
			p.addError(entry, "VALIDATION", msg)
		}
		return
	}

	switch entry.Disposition {
	case models.DispositionNewProduct:
		p.saveNewProduct(entry)
	case models.DispositionNewVariant:
		p.saveVariant(entry, true)
	case models.DispositionExistingVariant:
		p.saveVariant(entry, false)
	case models.DispositionNewInventoryItem:
		p.saveOverride(entry, true)
	case models.DispositionExistingInventory:
		p.saveOverride(entry, false)
	}
}

// Finalize records the run-level error when nothing at all was saved.
func (p *Processor) Finalize() {
	if p.TotalSaved() == 0 {
		p.errors = append(p.errors, models.ImportRowError{
			Row:     0,
			Code:    "NOTHING_SAVED",
			Message: "the import did not save any records",
		})
	}
}

// saveNewProduct creates a product together with its first variant. A pair
// already created earlier in this run is routed to the variant path instead,
// which dedupes repeated header rows describing the same product.
func (p *Processor) saveNewProduct(entry *models.Entry) {
	if product, ok := p.created.Lookup(entry.Product.SupplierID, entry.Product.Name); ok {
		entry.Variant.ProductID = product.ID
		p.saveVariant(entry, true)
		return
	}

	now := time.Now()
	entry.Variant.ImportDate = &now
	product := entry.Product
	product.Variants = []*models.Variant{entry.Variant}

	outcome, err := p.store.CreateProduct(product)
	if err != nil {
		p.addError(entry, "SAVE_FAILED", fmt.Sprintf("failed to create product '%s': %s", product.Name, err.Error()))
		return
	}
	if outcome.Status != SaveOK {
		for _, msg := range outcome.Messages {
			p.addError(entry, "VALIDATION", msg)
		}
		return
	}

	p.created.Add(product)
	p.appendLedger(entry.Variant.ID)
	p.productsCreated++
}

func (p *Processor) saveVariant(entry *models.Entry, isNew bool) {
	applyVariantDefaults(p.settings, entry)
	now := time.Now()
	entry.Variant.ImportDate = &now

	outcome, err := p.store.SaveVariant(entry.Variant)
	if err != nil {
		p.addError(entry, "SAVE_FAILED", fmt.Sprintf("failed to save variant: %s", err.Error()))
		return
	}

	switch outcome.Status {
	case SaveInvalid:
		for _, msg := range outcome.Messages {
			p.addError(entry, "VALIDATION", msg)
		}
		return
	case SaveConflict:
		if !p.retryVariant(entry, now) {
			return
		}
	}

	p.appendLedger(entry.Variant.ID)
	if isNew {
		p.variantsCreated++
	} else {
		p.variantsUpdated++
	}
}

// retryVariant handles a concurrent-modification conflict: reload the
// record once, reapply the row and defaults, and retry the save exactly
// once. A second failure becomes a normal row error.
func (p *Processor) retryVariant(entry *models.Entry, importedAt time.Time) bool {
	fresh, err := p.store.ReloadVariant(entry.Variant.ID)
	if err != nil || fresh == nil {
		p.addError(entry, "SAVE_FAILED", "variant was modified concurrently and could not be reloaded")
		return false
	}

	assignRowToVariant(fresh, entry.Attributes)
	entry.Variant = fresh
	applyVariantDefaults(p.settings, entry)
	fresh.ImportDate = &importedAt

	outcome, err := p.store.SaveVariant(fresh)
	if err != nil || outcome.Status != SaveOK {
		p.addError(entry, "SAVE_FAILED", "variant was modified concurrently and the retry failed")
		return false
	}
	return true
}

func (p *Processor) saveOverride(entry *models.Entry, isNew bool) {
	applyOverrideDefaults(p.settings, entry)
	now := time.Now()
	entry.Override.ImportDate = &now

	outcome, err := p.store.SaveOverride(entry.Override)
	if err != nil {
		p.addError(entry, "SAVE_FAILED", fmt.Sprintf("failed to save inventory: %s", err.Error()))
		return
	}

	switch outcome.Status {
	case SaveInvalid:
		for _, msg := range outcome.Messages {
			p.addError(entry, "VALIDATION", msg)
		}
		return
	case SaveConflict:
		if !p.retryOverride(entry, now) {
			return
		}
	}

	if err := p.store.EnsureInventoryVisible(entry.Override.HubID, entry.Override.VariantID); err != nil {
		p.logger.WithError(err).WithField("variant_id", entry.Override.VariantID).
			Warn("Failed to mark inventory item visible")
	}

	p.appendLedger(entry.Override.ID)
	if isNew {
		p.inventoryCreated++
	} else {
		p.inventoryUpdated++
	}
}

func (p *Processor) retryOverride(entry *models.Entry, importedAt time.Time) bool {
	fresh, err := p.store.ReloadOverride(entry.Override.ID)
	if err != nil || fresh == nil {
		p.addError(entry, "SAVE_FAILED", "inventory record was modified concurrently and could not be reloaded")
		return false
	}

	assignRowToOverride(fresh, entry)
	entry.Override = fresh
	applyOverrideDefaults(p.settings, entry)
	fresh.ImportDate = &importedAt

	outcome, err := p.store.SaveOverride(fresh)
	if err != nil || outcome.Status != SaveOK {
		p.addError(entry, "SAVE_FAILED", "inventory record was modified concurrently and the retry failed")
		return false
	}
	return true
}

func (p *Processor) appendLedger(id uuid.UUID) {
	if ledger := p.settings.Ledger(); ledger != nil {
		ledger.Append(id)
	}
}

func (p *Processor) addError(entry *models.Entry, code, message string) {
	p.errors = append(p.errors, models.ImportRowError{
		Row:     entry.LineNumber,
		Code:    code,
		Message: message,
	})
}

// ProductsCreated returns the number of products created this run.
func (p *Processor) ProductsCreated() int { return p.productsCreated }

// VariantsCreated returns the number of variants created this run.
func (p *Processor) VariantsCreated() int { return p.variantsCreated }

// VariantsUpdated returns the number of variants updated this run.
func (p *Processor) VariantsUpdated() int { return p.variantsUpdated }

// InventoryCreated returns the number of inventory overrides created this run.
func (p *Processor) InventoryCreated() int { return p.inventoryCreated }

// InventoryUpdated returns the number of inventory overrides updated this run.
func (p *Processor) InventoryUpdated() int { return p.inventoryUpdated }

// TotalSaved returns the total number of successful saves this run.
func (p *Processor) TotalSaved() int {
	return p.productsCreated + p.variantsCreated + p.variantsUpdated + p.inventoryCreated + p.inventoryUpdated
}

// Errors returns the per-row error collection.
func (p *Processor) Errors() []models.ImportRowError {
	return p.errors
}
