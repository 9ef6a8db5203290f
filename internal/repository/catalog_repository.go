package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/models"
)

// Cache TTL constants
const (
	EnterpriseCacheTTL = 30 * time.Minute // Enterprise names rarely change
	CategoryCacheTTL   = 30 * time.Minute // Categories rarely change
)

// CatalogRepository is the gorm-backed CatalogStore. Name lookups are
// cached in Redis for the duration of EnterpriseCacheTTL/CategoryCacheTTL;
// the repository degrades gracefully when Redis is unavailable.
type CatalogRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// interface guard
var _ importer.CatalogStore = (*CatalogRepository)(nil)

func NewCatalogRepository(db *gorm.DB, redisClient *redis.Client) *CatalogRepository {
	return &CatalogRepository{db: db, redis: redisClient}
}

// cachedID resolves a name→ID lookup through Redis before touching the
// database. loader runs the actual query on a cache miss.
func (r *CatalogRepository) cachedID(cacheKey string, ttl time.Duration, loader func() (uuid.UUID, bool, error)) (uuid.UUID, bool, error) {
	ctx := context.Background()

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			if id, parseErr := uuid.Parse(val); parseErr == nil {
				return id, true, nil
			}
		}
	}

	id, found, err := loader()
	if err != nil || !found {
		return uuid.Nil, false, err
	}

	if r.redis != nil {
		r.redis.Set(ctx, cacheKey, id.String(), ttl)
	}
	return id, true, nil
}

// EnterpriseIDByName resolves a supplier/hub name to its ID, case-insensitively.
func (r *CatalogRepository) EnterpriseIDByName(name string) (uuid.UUID, bool, error) {
	cacheKey := fmt.Sprintf("catalog:enterprise:name:%s", strings.ToLower(name))
	return r.cachedID(cacheKey, EnterpriseCacheTTL, func() (uuid.UUID, bool, error) {
		var enterprise models.Enterprise
		err := r.db.Select("id").Where("LOWER(name) = LOWER(?)", name).First(&enterprise).Error
		if err == gorm.ErrRecordNotFound {
			return uuid.Nil, false, nil
		}
		if err != nil {
			return uuid.Nil, false, err
		}
		return enterprise.ID, true, nil
	})
}

// CategoryIDByName resolves a category name to its ID, case-insensitively.
func (r *CatalogRepository) CategoryIDByName(name string) (uuid.UUID, bool, error) {
	cacheKey := fmt.Sprintf("catalog:category:name:%s", strings.ToLower(name))
	return r.cachedID(cacheKey, CategoryCacheTTL, func() (uuid.UUID, bool, error) {
		var category models.Category
		err := r.db.Select("id").Where("LOWER(name) = LOWER(?)", name).First(&category).Error
		if err == gorm.ErrRecordNotFound {
			return uuid.Nil, false, nil
		}
		if err != nil {
			return uuid.Nil, false, err
		}
		return category.ID, true, nil
	})
}

// ProductBySupplierAndName loads a product with its variants; nil when no
// product matches the pair.
func (r *CatalogRepository) ProductBySupplierAndName(supplierID uuid.UUID, name string) (*models.Product, error) {
	var product models.Product
	err := r.db.Preload("Variants").
		Where("supplier_id = ? AND LOWER(name) = LOWER(?)", supplierID, name).
		First(&product).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// VariantForProduct finds the product's non-master variant matching the
// display name and unit value; nil when none matches.
func (r *CatalogRepository) VariantForProduct(productID uuid.UUID, displayName string, unitValue float64) (*models.Variant, error) {
	var variant models.Variant
	err := r.db.Where("product_id = ? AND is_master = ? AND display_name = ? AND unit_value = ?",
		productID, false, displayName, unitValue).
		First(&variant).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// OverrideForVariant loads a hub's override of a variant; nil when absent.
func (r *CatalogRepository) OverrideForVariant(variantID, hubID uuid.UUID) (*models.VariantOverride, error) {
	var override models.VariantOverride
	err := r.db.Where("variant_id = ? AND hub_id = ?", variantID, hubID).First(&override).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

// CreateProduct creates a product together with its master variant and the
// first variant carried on product.Variants, all in one transaction.
func (r *CatalogRepository) CreateProduct(product *models.Product) (importer.SaveOutcome, error) {
	if msgs := product.Validate(); len(msgs) > 0 {
		return importer.SaveOutcome{Status: importer.SaveInvalid, Messages: msgs}, nil
	}
	for _, variant := range product.Variants {
		if msgs := variant.Validate(); len(msgs) > 0 {
			return importer.SaveOutcome{Status: importer.SaveInvalid, Messages: msgs}, nil
		}
	}

	now := time.Now()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt = now
	product.UpdatedAt = now

	master := &models.Variant{
		ID:        uuid.New(),
		ProductID: product.ID,
		IsMaster:  true,
		UnitValue: 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, variant := range product.Variants {
		if variant.ID == uuid.Nil {
			variant.ID = uuid.New()
		}
		variant.ProductID = product.ID
		variant.CreatedAt = now
		variant.UpdatedAt = now
		if master.Price == "" {
			master.Price = variant.Price
		}
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		variants := product.Variants
		product.Variants = nil
		if err := tx.Create(product).Error; err != nil {
			return err
		}
		product.Variants = variants

		if err := tx.Create(master).Error; err != nil {
			return err
		}
		for _, variant := range product.Variants {
			if err := tx.Create(variant).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return importer.SaveOutcome{}, err
	}
	return importer.SaveOutcome{Status: importer.SaveOK}, nil
}

// SaveVariant creates a new variant, or updates an existing one under
// optimistic concurrency control: the UPDATE is guarded by lock_version
// and zero affected rows reports a conflict.
func (r *CatalogRepository) SaveVariant(variant *models.Variant) (importer.SaveOutcome, error) {
	if msgs := variant.Validate(); len(msgs) > 0 {
		return importer.SaveOutcome{Status: importer.SaveInvalid, Messages: msgs}, nil
	}

	now := time.Now()
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
		variant.CreatedAt = now
		variant.UpdatedAt = now
		if err := r.db.Create(variant).Error; err != nil {
			return importer.SaveOutcome{}, err
		}
		return importer.SaveOutcome{Status: importer.SaveOK}, nil
	}

	result := r.db.Model(&models.Variant{}).
		Where("id = ? AND lock_version = ?", variant.ID, variant.LockVersion).
		Updates(map[string]interface{}{
			"display_name": variant.DisplayName,
			"unit_value":   variant.UnitValue,
			"price":        variant.Price,
			"on_hand":      variant.OnHand,
			"on_demand":    variant.OnDemand,
			"sku":          variant.SKU,
			"import_date":  variant.ImportDate,
			"updated_at":   now,
			"lock_version": variant.LockVersion + 1,
		})
	if result.Error != nil {
		return importer.SaveOutcome{}, result.Error
	}
	if result.RowsAffected == 0 {
		return importer.SaveOutcome{Status: importer.SaveConflict}, nil
	}
	variant.LockVersion++
	return importer.SaveOutcome{Status: importer.SaveOK}, nil
}

// ReloadVariant fetches a fresh copy of a variant; nil when it no longer exists.
func (r *CatalogRepository) ReloadVariant(id uuid.UUID) (*models.Variant, error) {
	var variant models.Variant
	err := r.db.Where("id = ?", id).First(&variant).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// SaveOverride creates or updates a hub's variant override under the same
// optimistic concurrency scheme as SaveVariant.
func (r *CatalogRepository) SaveOverride(override *models.VariantOverride) (importer.SaveOutcome, error) {
	if msgs := override.Validate(); len(msgs) > 0 {
		return importer.SaveOutcome{Status: importer.SaveInvalid, Messages: msgs}, nil
	}

	now := time.Now()
	if override.ID == uuid.Nil {
		override.ID = uuid.New()
		override.CreatedAt = now
		override.UpdatedAt = now
		if err := r.db.Create(override).Error; err != nil {
			return importer.SaveOutcome{}, err
		}
		return importer.SaveOutcome{Status: importer.SaveOK}, nil
	}

	result := r.db.Model(&models.VariantOverride{}).
		Where("id = ? AND lock_version = ?", override.ID, override.LockVersion).
		Updates(map[string]interface{}{
			"price":         override.Price,
			"count_on_hand": override.CountOnHand,
			"on_demand":     override.OnDemand,
			"import_date":   override.ImportDate,
			"updated_at":    now,
			"lock_version":  override.LockVersion + 1,
		})
	if result.Error != nil {
		return importer.SaveOutcome{}, result.Error
	}
	if result.RowsAffected == 0 {
		return importer.SaveOutcome{Status: importer.SaveConflict}, nil
	}
	override.LockVersion++
	return importer.SaveOutcome{Status: importer.SaveOK}, nil
}

// ReloadOverride fetches a fresh copy of an override; nil when it no longer exists.
func (r *CatalogRepository) ReloadOverride(id uuid.UUID) (*models.VariantOverride, error) {
	var override models.VariantOverride
	err := r.db.Where("id = ?", id).First(&override).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

// EnsureInventoryVisible creates the hub's inventory-visibility record for
// a variant, or flips an existing one back to visible.
func (r *CatalogRepository) EnsureInventoryVisible(hubID, variantID uuid.UUID) error {
	var item models.InventoryItem
	err := r.db.Where("hub_id = ? AND variant_id = ?", hubID, variantID).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		item = models.InventoryItem{
			ID:        uuid.New(),
			HubID:     hubID,
			VariantID: variantID,
			Visible:   true,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		return r.db.Create(&item).Error
	}
	if err != nil {
		return err
	}
	if item.Visible {
		return nil
	}
	return r.db.Model(&models.InventoryItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{"visible": true, "updated_at": time.Now()}).Error
}

// DeactivateVariantsExcept zeroes stock on every non-deleted, non-master
// variant of the supplier's products whose ID is not in keep, and returns
// how many were neutralized.
func (r *CatalogRepository) DeactivateVariantsExcept(supplierID uuid.UUID, keep []uuid.UUID) (int64, error) {
	query := r.db.Model(&models.Variant{}).
		Where("is_master = ?", false).
		Where("product_id IN (?)", r.db.Model(&models.Product{}).Select("id").Where("supplier_id = ?", supplierID))
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}

	result := query.Updates(map[string]interface{}{
		"on_hand":    0,
		"on_demand":  false,
		"updated_at": time.Now(),
	})
	return result.RowsAffected, result.Error
}

// HideOverridesExcept zeroes the hub's overrides whose ID is not in keep
// and hides the matching inventory-visibility records, returning the
// number of neutralized overrides.
func (r *CatalogRepository) HideOverridesExcept(hubID uuid.UUID, keep []uuid.UUID) (int64, error) {
	var neutralized int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.VariantOverride{}).Where("hub_id = ?", hubID)
		if len(keep) > 0 {
			query = query.Where("id NOT IN ?", keep)
		}
		result := query.Updates(map[string]interface{}{
			"count_on_hand": 0,
			"updated_at":    time.Now(),
		})
		if result.Error != nil {
			return result.Error
		}
		neutralized = result.RowsAffected

		hidden := tx.Model(&models.InventoryItem{}).
			Where("hub_id = ?", hubID).
			Where("variant_id NOT IN (?)", tx.Model(&models.VariantOverride{}).Select("variant_id").Where("hub_id = ? AND id IN ?", hubID, keepOrNil(keep))).
			Updates(map[string]interface{}{"visible": false, "updated_at": time.Now()})
		return hidden.Error
	})
	return neutralized, err
}

// keepOrNil substitutes an impossible ID for an empty keep set so the
// NOT IN subquery stays valid SQL.
func keepOrNil(keep []uuid.UUID) []uuid.UUID {
	if len(keep) == 0 {
		return []uuid.UUID{uuid.Nil}
	}
	return keep
}

// EditableEnterpriseIDs returns the enterprises the user may write to.
func (r *CatalogRepository) EditableEnterpriseIDs(ownerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&models.Enterprise{}).
		Where("owner_id = ?", ownerID).
		Pluck("id", &ids).Error
	return ids, err
}
