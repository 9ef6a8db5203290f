package importer_test

import (
	"strings"

	"github.com/google/uuid"

	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/models"
)

type resetCall struct {
	enterpriseID uuid.UUID
	keep         []uuid.UUID
}

// fakeStore is an in-memory CatalogStore. Conflict counters make a save
// report SaveConflict that many times before succeeding, which drives the
// retry paths. Saved variants become visible on their product, matching
// the real store's preloaded product loads.
type fakeStore struct {
	enterprises map[string]uuid.UUID
	categories  map[string]uuid.UUID
	products    []*models.Product

	variantsByID  map[uuid.UUID]*models.Variant
	overridesByID map[uuid.UUID]*models.VariantOverride

	variantConflicts  map[uuid.UUID]int
	overrideConflicts map[uuid.UUID]int

	createdProducts []*models.Product
	variantSaves    int
	overrideSaves   int
	variantReloads  int
	visibleCalls    []resetCall
	deactivateCalls []resetCall
	hideCalls       []resetCall
	resetCounts     map[uuid.UUID]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		enterprises:       make(map[string]uuid.UUID),
		categories:        make(map[string]uuid.UUID),
		variantsByID:      make(map[uuid.UUID]*models.Variant),
		overridesByID:     make(map[uuid.UUID]*models.VariantOverride),
		variantConflicts:  make(map[uuid.UUID]int),
		overrideConflicts: make(map[uuid.UUID]int),
		resetCounts:       make(map[uuid.UUID]int64),
	}
}

func (s *fakeStore) addEnterprise(name string) uuid.UUID {
	id := uuid.New()
	s.enterprises[strings.ToLower(name)] = id
	return id
}

func (s *fakeStore) addCategory(name string) uuid.UUID {
	id := uuid.New()
	s.categories[strings.ToLower(name)] = id
	return id
}

// addProduct registers an existing product with its variants loaded.
func (s *fakeStore) addProduct(supplierID uuid.UUID, name string, variants ...*models.Variant) *models.Product {
	product := &models.Product{
		ID:         uuid.New(),
		SupplierID: supplierID,
		CategoryID: uuid.New(),
		Name:       name,
		Variants:   append([]*models.Variant{}, variants...),
	}
	for _, v := range variants {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.ProductID = product.ID
		s.variantsByID[v.ID] = v
	}
	s.products = append(s.products, product)
	return product
}

func (s *fakeStore) addOverride(variantID, hubID uuid.UUID) *models.VariantOverride {
	override := &models.VariantOverride{ID: uuid.New(), VariantID: variantID, HubID: hubID}
	s.overridesByID[override.ID] = override
	return override
}

func (s *fakeStore) EnterpriseIDByName(name string) (uuid.UUID, bool, error) {
	id, ok := s.enterprises[strings.ToLower(name)]
	return id, ok, nil
}

func (s *fakeStore) CategoryIDByName(name string) (uuid.UUID, bool, error) {
	id, ok := s.categories[strings.ToLower(name)]
	return id, ok, nil
}

func (s *fakeStore) ProductBySupplierAndName(supplierID uuid.UUID, name string) (*models.Product, error) {
	for _, p := range s.products {
		if p.SupplierID == supplierID && strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) VariantForProduct(productID uuid.UUID, displayName string, unitValue float64) (*models.Variant, error) {
	for _, v := range s.variantsByID {
		if v.ProductID == productID && !v.IsMaster && v.DisplayName == displayName && v.UnitValue == unitValue {
			return v, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) OverrideForVariant(variantID, hubID uuid.UUID) (*models.VariantOverride, error) {
	for _, o := range s.overridesByID {
		if o.VariantID == variantID && o.HubID == hubID {
			return o, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateProduct(product *models.Product) (importer.SaveOutcome, error) {
	if msgs := product.Validate(); len(msgs) > 0 {
		return importer.SaveOutcome{Status: importer.SaveInvalid, Messages: msgs}, nil
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	for _, v := range product.Variants {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.ProductID = product.ID
		s.variantsByID[v.ID] = v
	}
	s.products = append(s.products, product)
	s.createdProducts = append(s.createdProducts, product)
	return importer.SaveOutcome{Status: importer.SaveOK}, nil
}

func (s *fakeStore) SaveVariant(variant *models.Variant) (importer.SaveOutcome, error) {
	if msgs := variant.Validate(); len(msgs) > 0 {
		return importer.SaveOutcome{Status: importer.SaveInvalid, Messages: msgs}, nil
	}
	if variant.ID != uuid.Nil {
		if remaining := s.variantConflicts[variant.ID]; remaining > 0 {
			s.variantConflicts[variant.ID] = remaining - 1
			return importer.SaveOutcome{Status: importer.SaveConflict}, nil
		}
	}
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	if _, known := s.variantsByID[variant.ID]; !known {
		s.attachToProduct(variant)
	}
	s.variantsByID[variant.ID] = variant
	s.variantSaves++
	return importer.SaveOutcome{Status: importer.SaveOK}, nil
}

// attachToProduct mirrors the real store: a freshly created variant shows
// up on subsequent product loads.
func (s *fakeStore) attachToProduct(variant *models.Variant) {
	for _, p := range s.products {
		if p.ID == variant.ProductID {
			p.Variants = append(p.Variants, variant)
			return
		}
	}
}

func (s *fakeStore) ReloadVariant(id uuid.UUID) (*models.Variant, error) {
	s.variantReloads++
	v, ok := s.variantsByID[id]
	if !ok {
		return nil, nil
	}
	fresh := *v
	return &fresh, nil
}

func (s *fakeStore) SaveOverride(override *models.VariantOverride) (importer.SaveOutcome, error) {
	if msgs := override.Validate(); len(msgs) > 0 {
		return importer.SaveOutcome{Status: importer.SaveInvalid, Messages: msgs}, nil
	}
	if override.ID != uuid.Nil {
		if remaining := s.overrideConflicts[override.ID]; remaining > 0 {
			s.overrideConflicts[override.ID] = remaining - 1
			return importer.SaveOutcome{Status: importer.SaveConflict}, nil
		}
	}
	if override.ID == uuid.Nil {
		override.ID = uuid.New()
	}
	s.overridesByID[override.ID] = override
	s.overrideSaves++
	return importer.SaveOutcome{Status: importer.SaveOK}, nil
}

func (s *fakeStore) ReloadOverride(id uuid.UUID) (*models.VariantOverride, error) {
	o, ok := s.overridesByID[id]
	if !ok {
		return nil, nil
	}
	fresh := *o
	return &fresh, nil
}

func (s *fakeStore) EnsureInventoryVisible(hubID, variantID uuid.UUID) error {
	s.visibleCalls = append(s.visibleCalls, resetCall{enterpriseID: hubID, keep: []uuid.UUID{variantID}})
	return nil
}

func (s *fakeStore) DeactivateVariantsExcept(supplierID uuid.UUID, keep []uuid.UUID) (int64, error) {
	s.deactivateCalls = append(s.deactivateCalls, resetCall{enterpriseID: supplierID, keep: keep})
	return s.resetCounts[supplierID], nil
}

func (s *fakeStore) HideOverridesExcept(hubID uuid.UUID, keep []uuid.UUID) (int64, error) {
	s.hideCalls = append(s.hideCalls, resetCall{enterpriseID: hubID, keep: keep})
	return s.resetCounts[hubID], nil
}
