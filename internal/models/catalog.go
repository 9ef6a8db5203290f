package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnterpriseStatus represents the status of an enterprise
type EnterpriseStatus string

const (
	EnterpriseStatusActive   EnterpriseStatus = "ACTIVE"
	EnterpriseStatusInactive EnterpriseStatus = "INACTIVE"
)

// Enterprise represents a supplier or hub. A supplier owns products; a hub
// carries per-location inventory overrides of variants from any supplier.
type Enterprise struct {
	ID        uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OwnerID   uuid.UUID        `json:"ownerId" gorm:"type:uuid;not null;index"`
	Name      string           `json:"name" gorm:"type:varchar(255);not null;uniqueIndex"`
	Status    EnterpriseStatus `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	IsHub     bool             `json:"isHub" gorm:"default:false"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	DeletedAt *gorm.DeletedAt  `json:"deletedAt,omitempty" gorm:"index"`
}

// Category represents a product category used to validate the row's
// category column during import.
type Category struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string          `json:"name" gorm:"type:varchar(255);not null;uniqueIndex"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// Product represents a catalog product owned by a supplier enterprise.
// Products are matched during import by (supplier_id, name).
type Product struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SupplierID  uuid.UUID       `json:"supplierId" gorm:"type:uuid;not null;index;uniqueIndex:idx_products_supplier_name"`
	CategoryID  uuid.UUID       `json:"categoryId" gorm:"type:uuid;not null;index"`
	Name        string          `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_products_supplier_name"`
	Description *string         `json:"description,omitempty" gorm:"type:text"`
	Variants    []*Variant      `json:"variants,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DeletedAt   *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// Variant represents one sellable unit of a product. Variants are matched
// during import by (display_name, unit_value) under their product.
// LockVersion backs the store's optimistic concurrency control.
type Variant struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID   uuid.UUID       `json:"productId" gorm:"type:uuid;not null;index"`
	SKU         *string         `json:"sku,omitempty" gorm:"type:varchar(100);index"`
	DisplayName string          `json:"displayName" gorm:"type:varchar(255)"`
	UnitValue   float64         `json:"unitValue" gorm:"not null;default:1"`
	Price       string          `json:"price" gorm:"not null;default:'0.0'"`
	OnHand      int             `json:"onHand" gorm:"not null;default:0"`
	OnDemand    bool            `json:"onDemand" gorm:"default:false"`
	IsMaster    bool            `json:"isMaster" gorm:"default:false;index"`
	ImportDate  *time.Time      `json:"importDate,omitempty"`
	LockVersion int             `json:"lockVersion" gorm:"not null;default:0"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DeletedAt   *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// VariantOverride represents a hub's per-location override of a variant's
// stock and price. Matched during import by (variant_id, hub_id).
type VariantOverride struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	HubID       uuid.UUID       `json:"hubId" gorm:"type:uuid;not null;index;uniqueIndex:idx_overrides_hub_variant"`
	VariantID   uuid.UUID       `json:"variantId" gorm:"type:uuid;not null;index;uniqueIndex:idx_overrides_hub_variant"`
	Price       *string         `json:"price,omitempty"`
	CountOnHand *int            `json:"countOnHand,omitempty"`
	OnDemand    *bool           `json:"onDemand,omitempty"`
	ImportDate  *time.Time      `json:"importDate,omitempty"`
	LockVersion int             `json:"lockVersion" gorm:"not null;default:0"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DeletedAt   *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// InventoryItem records whether a variant is visible in a hub's inventory.
// The import marks every touched variant visible; the reset pass hides the
// untouched remainder.
type InventoryItem struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	HubID     uuid.UUID `json:"hubId" gorm:"type:uuid;not null;index;uniqueIndex:idx_inventory_hub_variant"`
	VariantID uuid.UUID `json:"variantId" gorm:"type:uuid;not null;index;uniqueIndex:idx_inventory_hub_variant"`
	Visible   bool      `json:"visible" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate runs schema-level checks on a product candidate before persistence.
func (p *Product) Validate() []string {
	var msgs []string
	if p.Name == "" {
		msgs = append(msgs, "product name is required")
	}
	if p.SupplierID == uuid.Nil {
		msgs = append(msgs, "product supplier is required")
	}
	if p.CategoryID == uuid.Nil {
		msgs = append(msgs, "product category is required")
	}
	return msgs
}

// Validate runs schema-level checks on a variant candidate before persistence.
func (v *Variant) Validate() []string {
	var msgs []string
	if v.UnitValue <= 0 {
		msgs = append(msgs, "unit_value must be greater than 0")
	}
	if v.Price != "" {
		if _, err := strconv.ParseFloat(v.Price, 64); err != nil {
			msgs = append(msgs, fmt.Sprintf("price '%s' is not a valid number", v.Price))
		}
	}
	if v.OnHand < 0 {
		msgs = append(msgs, "on_hand cannot be negative")
	}
	return msgs
}

// Validate runs schema-level checks on an override candidate before persistence.
func (o *VariantOverride) Validate() []string {
	var msgs []string
	if o.HubID == uuid.Nil {
		msgs = append(msgs, "inventory hub is required")
	}
	if o.Price != nil {
		if _, err := strconv.ParseFloat(*o.Price, 64); err != nil {
			msgs = append(msgs, fmt.Sprintf("price '%s' is not a valid number", *o.Price))
		}
	}
	if o.CountOnHand != nil && *o.CountOnHand < 0 {
		msgs = append(msgs, "on_hand cannot be negative")
	}
	return msgs
}

// TableName returns the table name for the Enterprise model
func (Enterprise) TableName() string {
	return "enterprises"
}

// TableName returns the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// TableName returns the table name for the Variant model
func (Variant) TableName() string {
	return "variants"
}

// TableName returns the table name for the VariantOverride model
func (VariantOverride) TableName() string {
	return "variant_overrides"
}

// TableName returns the table name for the InventoryItem model
func (InventoryItem) TableName() string {
	return "inventory_items"
}
