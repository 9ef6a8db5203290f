package models

// Disposition is the classification outcome for one spreadsheet row.
type Disposition string

const (
	DispositionNewProduct        Disposition = "NEW_PRODUCT"
	DispositionNewVariant        Disposition = "NEW_VARIANT"
	DispositionExistingVariant   Disposition = "EXISTING_VARIANT"
	DispositionNewInventoryItem  Disposition = "NEW_INVENTORY_ITEM"
	DispositionExistingInventory Disposition = "EXISTING_INVENTORY_ITEM"
	DispositionInvalid           Disposition = "INVALID"
)

// RowAttributes is the normalized view of one spreadsheet row. Every
// recognized column has a typed field; unrecognized columns land in Extra.
type RowAttributes struct {
	Supplier    string
	Name        string
	Category    string
	DisplayName string
	UnitValue   float64
	SKU         string
	Price       string
	OnHand      int
	OnDemand    bool
	Description string
	Extra       map[string]string
}

// Entry is one classified spreadsheet row. Disposition is set exactly once
// by the classifier; reclassifying a row means building a new Entry.
type Entry struct {
	LineNumber  int
	Attributes  RowAttributes
	Disposition Disposition

	// Candidate records prepared for persistence. Product and Variant are
	// set for the catalog dispositions, Override for the inventory ones.
	// All are nil when the entry is invalid.
	Product  *Product
	Variant  *Variant
	Override *VariantOverride

	ValidationErrors []string

	// OnHandDefaulted distinguishes "on_hand blank in the source, defaulted
	// to 0" from "on_hand explicitly 0". The overwrite_empty default rule
	// treats the former as empty. OnDemandDefaulted does the same for the
	// on_demand cell, so an explicit false survives the default merge.
	OnHandDefaulted   bool
	OnDemandDefaulted bool
}

// Invalid reports whether the entry failed classification or validation.
func (e *Entry) Invalid() bool {
	return e.Disposition == DispositionInvalid
}

// DefaultMode selects how a configured default value is merged onto a row.
type DefaultMode string

const (
	DefaultOverwriteAll   DefaultMode = "overwrite_all"
	DefaultOverwriteEmpty DefaultMode = "overwrite_empty"
)

// DefaultRule is one configured default-value rule for a single attribute.
type DefaultRule struct {
	Active bool        `json:"active"`
	Mode   DefaultMode `json:"mode"`
	Value  string      `json:"value"`
}

// ImportSettings is the configuration surface for one import run, supplied
// by the caller alongside the file. Nil maps/slices mean the section was
// absent entirely, which the reset pass distinguishes from present-but-empty.
type ImportSettings struct {
	Defaults            map[string]DefaultRule `json:"defaults,omitempty"`
	ImportIntoInventory bool                   `json:"importIntoInventory"`
	InventoryHubID      string                 `json:"inventoryHubId,omitempty"`
	ResetAllAbsent      bool                   `json:"resetAllAbsent"`
	EnterprisesToReset  []string               `json:"enterprisesToReset,omitempty"`
	UpdatedIDs          []string               `json:"updatedIds,omitempty"`
	ValidateOnly        bool                   `json:"validateOnly"`
}

// ImportRowError represents an error for a specific row
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportResult represents the outcome of one import pass.
type ImportResult struct {
	Success            bool             `json:"success"`
	TotalRows          int              `json:"totalRows"`
	ProductsCreated    int              `json:"productsCreated"`
	VariantsCreated    int              `json:"variantsCreated"`
	VariantsUpdated    int              `json:"variantsUpdated"`
	InventoryCreated   int              `json:"inventoryCreated"`
	InventoryUpdated   int              `json:"inventoryUpdated"`
	ProductsResetCount *int             `json:"productsResetCount,omitempty"`
	ValidRows          int              `json:"validRows,omitempty"`
	Errors             []ImportRowError `json:"errors,omitempty"`
	UpdatedIDs         []string         `json:"updatedIds,omitempty"`
	ProcessingMs       int64            `json:"processingMs"`
}

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// CatalogImportColumns returns the column definitions for catalog import
func CatalogImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: "supplier", Description: "Supplier enterprise name - must exist", Required: true, Type: "string", Example: "Green Valley Farm"},
		{Name: "name", Description: "Product name", Required: true, Type: "string", Example: "Carrots"},
		{Name: "category", Description: "Category name - must exist", Required: true, Type: "string", Example: "Vegetables"},
		{Name: "display_name", Description: "Variant display name", Required: false, Type: "string", Example: "Bunch of carrots"},
		{Name: "unit_value", Description: "Variant unit size", Required: true, Type: "number", Example: "500"},
		{Name: "price", Description: "Variant price", Required: true, Type: "number", Example: "3.50"},
		{Name: "on_hand", Description: "Stock on hand (blank defaults to 0)", Required: false, Type: "number", Example: "12"},
		{Name: "on_demand", Description: "Produce on demand (true/false)", Required: false, Type: "boolean", Example: "false"},
		{Name: "sku", Description: "Variant SKU", Required: false, Type: "string", Example: "CAR-500"},
		{Name: "description", Description: "Product description", Required: false, Type: "string", Example: ""},
	}
}

// CatalogImportTemplate returns the template definition for catalog import
func CatalogImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "catalog",
		Version: "1.0",
		Columns: CatalogImportColumns(),
	}
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
