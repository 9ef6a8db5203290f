package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"catalog-import-service/internal/models"
)

// createdIndex tracks products created earlier in the same run so later
// rows for the same (supplier, name) pair classify as variants of the fresh
// product instead of duplicating it. Shared between classifier and processor.
type createdIndex struct {
	products map[string]*models.Product
}

func newCreatedIndex() *createdIndex {
	return &createdIndex{products: make(map[string]*models.Product)}
}

func productKey(supplierID uuid.UUID, name string) string {
	return supplierID.String() + "|" + strings.ToLower(strings.TrimSpace(name))
}

func (i *createdIndex) Lookup(supplierID uuid.UUID, name string) (*models.Product, bool) {
	p, ok := i.products[productKey(supplierID, name)]
	return p, ok
}

func (i *createdIndex) Add(product *models.Product) {
	i.products[productKey(product.SupplierID, product.Name)] = product
}

// Classifier resolves one spreadsheet row at a time into a classified Entry.
// Name lookups are cached for the lifetime of the run.
type Classifier struct {
	store    CatalogStore
	settings *Settings
	created  *createdIndex

	// FallbackCategoryID is attached to rows whose category cannot be
	// resolved, so candidate validation does not report the category twice.
	fallbackCategoryID uuid.UUID

	enterpriseIDs map[string]uuid.UUID
	categoryIDs   map[string]uuid.UUID
}

// NewClassifier builds a classifier for one import run.
func NewClassifier(store CatalogStore, settings *Settings, created *createdIndex, fallbackCategoryID uuid.UUID) *Classifier {
	return &Classifier{
		store:              store,
		settings:           settings,
		created:            created,
		fallbackCategoryID: fallbackCategoryID,
		enterpriseIDs:      make(map[string]uuid.UUID),
		categoryIDs:        make(map[string]uuid.UUID),
	}
}

// Classify turns one raw row into an Entry with its disposition, candidate
// record, and any validation errors. The disposition is set exactly once.
func (c *Classifier) Classify(row map[string]string, lineNumber int) *models.Entry {
	entry := &models.Entry{LineNumber: lineNumber}

	attrs, parseErrs := normalizeRow(row, entry)
	entry.Attributes = attrs

	supplierID, supplierErr := c.resolveSupplier(attrs.Supplier)
	categoryID, categoryErr := c.resolveCategory(attrs.Category)

	var errs []string
	errs = append(errs, parseErrs...)
	if supplierErr != "" {
		errs = append(errs, supplierErr)
	}
	if categoryErr != "" {
		errs = append(errs, categoryErr)
	}

	// Without a supplier there is nothing to look products up against, so
	// disposition resolution is skipped. Category and parse failures fall
	// through so the row reports every problem at once; the fallback
	// category stands in for the unresolved one.
	if supplierErr != "" {
		entry.Disposition = models.DispositionInvalid
		entry.ValidationErrors = errs
		return entry
	}

	disposition, candErrs := c.resolveDisposition(entry, supplierID, categoryID)
	errs = append(errs, candErrs...)
	if len(errs) > 0 {
		entry.Disposition = models.DispositionInvalid
		entry.ValidationErrors = errs
		entry.Product = nil
		entry.Variant = nil
		entry.Override = nil
		return entry
	}

	entry.Disposition = disposition
	return entry
}

// normalizeRow coerces the raw row into typed attributes, routing
// unrecognized columns into Extra. Blank on_hand and on_demand cells flag
// the entry so the overwrite_empty default rules can tell a blank apart
// from an explicit 0 or false.
func normalizeRow(row map[string]string, entry *models.Entry) (models.RowAttributes, []string) {
	var errs []string

	attrs := models.RowAttributes{
		Supplier:    strings.TrimSpace(row["supplier"]),
		Name:        strings.TrimSpace(row["name"]),
		Category:    strings.TrimSpace(row["category"]),
		DisplayName: strings.TrimSpace(row["display_name"]),
		SKU:         strings.TrimSpace(row["sku"]),
		Price:       strings.TrimSpace(row["price"]),
		Description: strings.TrimSpace(row["description"]),
	}

	if raw := strings.TrimSpace(row["unit_value"]); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("unit_value '%s' is not a valid number", raw))
		} else {
			attrs.UnitValue = value
		}
	} else {
		errs = append(errs, "unit_value is required")
	}

	if raw := strings.TrimSpace(row["on_hand"]); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("on_hand '%s' is not a valid number", raw))
		} else {
			attrs.OnHand = count
		}
	} else {
		attrs.OnHand = 0
		entry.OnHandDefaulted = true
	}

	if raw := strings.TrimSpace(row["on_demand"]); raw != "" {
		onDemand, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("on_demand '%s' is not a valid boolean", raw))
		} else {
			attrs.OnDemand = onDemand
		}
	} else {
		entry.OnDemandDefaulted = true
	}

	for key, value := range row {
		switch key {
		case "supplier", "name", "category", "display_name", "unit_value", "sku", "price", "on_hand", "on_demand", "description", "_row":
		default:
			if attrs.Extra == nil {
				attrs.Extra = make(map[string]string)
			}
			attrs.Extra[key] = value
		}
	}

	return attrs, errs
}

func (c *Classifier) resolveSupplier(name string) (uuid.UUID, string) {
	if name == "" {
		return uuid.Nil, "supplier name field is blank"
	}

	key := strings.ToLower(name)
	id, ok := c.enterpriseIDs[key]
	if !ok {
		var found bool
		var err error
		id, found, err = c.store.EnterpriseIDByName(name)
		if err != nil {
			return uuid.Nil, fmt.Sprintf("failed to look up supplier '%s': %s", name, err.Error())
		}
		if !found {
			return uuid.Nil, fmt.Sprintf("supplier '%s' not found in database", name)
		}
		c.enterpriseIDs[key] = id
	}

	if !c.settings.CanEdit(id) {
		return uuid.Nil, fmt.Sprintf("you do not have permission to manage products for '%s'", name)
	}
	return id, ""
}

// resolveCategory mirrors resolveSupplier but always hands back a usable
// category ID: unresolved rows get the fallback category so candidate
// validation does not report the missing category a second time.
func (c *Classifier) resolveCategory(name string) (uuid.UUID, string) {
	if name == "" {
		return c.fallbackCategoryID, "category field is blank"
	}

	key := strings.ToLower(name)
	if id, ok := c.categoryIDs[key]; ok {
		return id, ""
	}

	id, found, err := c.store.CategoryIDByName(name)
	if err != nil {
		return c.fallbackCategoryID, fmt.Sprintf("failed to look up category '%s': %s", name, err.Error())
	}
	if !found {
		return c.fallbackCategoryID, fmt.Sprintf("category '%s' not found in database", name)
	}
	c.categoryIDs[key] = id
	return id, ""
}

// resolveDisposition works out what the row represents, first match wins:
// unknown (supplier, name) pair means a new product; a known pair routes to
// the inventory or variant paths depending on the run mode. Products created
// earlier in this same run count as existing.
func (c *Classifier) resolveDisposition(entry *models.Entry, supplierID, categoryID uuid.UUID) (models.Disposition, []string) {
	attrs := entry.Attributes

	product, found := c.created.Lookup(supplierID, attrs.Name)
	if !found {
		var err error
		product, err = c.store.ProductBySupplierAndName(supplierID, attrs.Name)
		if err != nil {
			return models.DispositionInvalid, []string{fmt.Sprintf("failed to look up product '%s': %s", attrs.Name, err.Error())}
		}
	}

	if product == nil {
		return c.buildNewProduct(entry, supplierID, categoryID)
	}
	entry.Product = product

	if c.settings.ImportIntoInventory() {
		return c.buildInventoryItem(entry, product)
	}
	return c.buildVariant(entry, product)
}

func (c *Classifier) buildNewProduct(entry *models.Entry, supplierID, categoryID uuid.UUID) (models.Disposition, []string) {
	attrs := entry.Attributes

	product := &models.Product{
		SupplierID: supplierID,
		CategoryID: categoryID,
		Name:       attrs.Name,
	}
	if attrs.Description != "" {
		product.Description = &attrs.Description
	}

	variant := &models.Variant{}
	assignRowToVariant(variant, attrs)

	errs := product.Validate()
	errs = append(errs, variant.Validate()...)
	if len(errs) > 0 {
		return models.DispositionInvalid, errs
	}

	entry.Product = product
	entry.Variant = variant
	return models.DispositionNewProduct, nil
}

func (c *Classifier) buildVariant(entry *models.Entry, product *models.Product) (models.Disposition, []string) {
	attrs := entry.Attributes

	existing, err := c.lookupVariant(product, attrs)
	if err != nil {
		return models.DispositionInvalid, []string{err.Error()}
	}

	var variant *models.Variant
	disposition := models.DispositionNewVariant
	if existing != nil {
		variant = existing
		disposition = models.DispositionExistingVariant
	} else {
		variant = &models.Variant{ProductID: product.ID}
	}
	assignRowToVariant(variant, attrs)

	if errs := variant.Validate(); len(errs) > 0 {
		return models.DispositionInvalid, errs
	}

	entry.Variant = variant
	return disposition, nil
}

func (c *Classifier) buildInventoryItem(entry *models.Entry, product *models.Product) (models.Disposition, []string) {
	attrs := entry.Attributes
	hubID := c.settings.InventoryHubID()

	variant, err := c.lookupVariant(product, attrs)
	if err != nil {
		return models.DispositionInvalid, []string{err.Error()}
	}
	if variant == nil {
		return models.DispositionInvalid, []string{fmt.Sprintf("no variant of '%s' matches this row; inventory import requires an existing variant", product.Name)}
	}
	entry.Variant = variant

	override, err := c.store.OverrideForVariant(variant.ID, hubID)
	if err != nil {
		return models.DispositionInvalid, []string{fmt.Sprintf("failed to look up inventory for '%s': %s", product.Name, err.Error())}
	}

	disposition := models.DispositionNewInventoryItem
	if override == nil {
		override = &models.VariantOverride{HubID: hubID, VariantID: variant.ID}
	} else {
		disposition = models.DispositionExistingInventory
	}
	assignRowToOverride(override, entry)

	if errs := override.Validate(); len(errs) > 0 {
		return models.DispositionInvalid, errs
	}

	entry.Override = override
	return disposition, nil
}

// lookupVariant scans the product's variants for one matching the row's
// (display_name, unit_value): exact string match on the name, numeric
// comparison on the unit value. Falls back to the store when the product
// was loaded without variants.
func (c *Classifier) lookupVariant(product *models.Product, attrs models.RowAttributes) (*models.Variant, error) {
	if product.Variants != nil {
		for _, v := range product.Variants {
			if v.IsMaster || v.DeletedAt != nil {
				continue
			}
			if v.DisplayName == attrs.DisplayName && v.UnitValue == attrs.UnitValue {
				return v, nil
			}
		}
		return nil, nil
	}

	if product.ID == uuid.Nil {
		return nil, nil
	}
	variant, err := c.store.VariantForProduct(product.ID, attrs.DisplayName, attrs.UnitValue)
	if err != nil {
		return nil, fmt.Errorf("failed to look up variants of '%s': %s", product.Name, err.Error())
	}
	return variant, nil
}

// assignRowToVariant copies the row's attributes onto a candidate variant.
// Identity and foreign-key fields are left to the store.
func assignRowToVariant(variant *models.Variant, attrs models.RowAttributes) {
	variant.DisplayName = attrs.DisplayName
	variant.UnitValue = attrs.UnitValue
	variant.OnHand = attrs.OnHand
	variant.OnDemand = attrs.OnDemand
	if attrs.Price != "" {
		variant.Price = attrs.Price
	}
	if attrs.SKU != "" {
		sku := attrs.SKU
		variant.SKU = &sku
	}
}

// assignRowToOverride copies the row's attributes onto a candidate override.
// A blank on_demand cell leaves the stored flag alone; an explicit value,
// true or false, becomes the override's.
func assignRowToOverride(override *models.VariantOverride, entry *models.Entry) {
	attrs := entry.Attributes
	count := attrs.OnHand
	override.CountOnHand = &count
	if attrs.Price != "" {
		price := attrs.Price
		override.Price = &price
	}
	if !entry.OnDemandDefaulted {
		onDemand := attrs.OnDemand
		override.OnDemand = &onDemand
	}
}
