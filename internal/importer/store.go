// Package importer implements the spreadsheet reconciliation engine: row
// classification against the existing catalog, default-value merging,
// staged persistence with conflict retry, and the post-pass reset of
// catalog records absent from the upload.
package importer

import (
	"github.com/google/uuid"

	"catalog-import-service/internal/models"
)

// SaveStatus describes how a single candidate-record save ended.
type SaveStatus int

const (
	SaveOK SaveStatus = iota
	SaveInvalid
	SaveConflict
)

// SaveOutcome is the explicit result of a store write. Conflict means the
// record changed concurrently since it was loaded; the processor reloads
// and retries exactly once before demoting it to a row error.
type SaveOutcome struct {
	Status   SaveStatus
	Messages []string
}

// CatalogStore is the persistence boundary the engine decides against.
// The gorm implementation lives in internal/repository; tests supply fakes.
type CatalogStore interface {
	// Lookups used by classification.
	EnterpriseIDByName(name string) (uuid.UUID, bool, error)
	CategoryIDByName(name string) (uuid.UUID, bool, error)
	ProductBySupplierAndName(supplierID uuid.UUID, name string) (*models.Product, error)
	VariantForProduct(productID uuid.UUID, displayName string, unitValue float64) (*models.Variant, error)
	OverrideForVariant(variantID, hubID uuid.UUID) (*models.VariantOverride, error)

	// Writes performed by the processor.
	CreateProduct(product *models.Product) (SaveOutcome, error)
	SaveVariant(variant *models.Variant) (SaveOutcome, error)
	ReloadVariant(id uuid.UUID) (*models.Variant, error)
	SaveOverride(override *models.VariantOverride) (SaveOutcome, error)
	ReloadOverride(id uuid.UUID) (*models.VariantOverride, error)
	EnsureInventoryVisible(hubID, variantID uuid.UUID) error

	// Set-difference mutations performed by the reset strategies.
	DeactivateVariantsExcept(supplierID uuid.UUID, keep []uuid.UUID) (int64, error)
	HideOverridesExcept(hubID uuid.UUID, keep []uuid.UUID) (int64, error)
}
