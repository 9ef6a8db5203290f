package importer_test

import (
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/models"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newTestRun(store *fakeStore, params importer.SettingsParams, validateOnly bool) *importer.Run {
	return importer.NewRun(importer.RunParams{
		Store:        store,
		Settings:     importer.NewSettings(params),
		ValidateOnly: validateOnly,
		Logger:       testLogger(),
	})
}

func catalogRow(supplier, name, category string, extra map[string]string) map[string]string {
	row := map[string]string{
		"supplier":   supplier,
		"name":       name,
		"category":   category,
		"unit_value": "1",
		"price":      "3.50",
		"on_hand":    "10",
	}
	for k, v := range extra {
		row[k] = v
	}
	return row
}

func findVariantByDisplayName(store *fakeStore, displayName string) *models.Variant {
	for _, v := range store.variantsByID {
		if v.DisplayName == displayName {
			return v
		}
	}
	return nil
}

func TestImportCreatesProductWithFirstVariant(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	store.addCategory("Vegetables")

	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID},
	}, false)

	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", nil),
	})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ProductsCreated)
	assert.Equal(t, 0, result.VariantsCreated)
	assert.Empty(t, result.Errors)
	assert.Len(t, store.createdProducts, 1)
	assert.Len(t, store.createdProducts[0].Variants, 1)
	assert.Equal(t, "3.50", store.createdProducts[0].Variants[0].Price)
	assert.Equal(t, 10, store.createdProducts[0].Variants[0].OnHand)
}

func TestImportRoutesRepeatedNewProductRowsToVariants(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	store.addCategory("Vegetables")

	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID},
	}, false)

	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{"unit_value": "1"}),
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{"unit_value": "5"}),
	})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ProductsCreated)
	assert.Equal(t, 1, result.VariantsCreated)
	assert.Len(t, store.createdProducts, 1)
}

func TestReimportIdenticalSpreadsheetIsIdempotent(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	store.addCategory("Vegetables")

	rows := []map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{
			"display_name": "Bunch",
			"unit_value":   "1",
		}),
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{
			"display_name": "Crate",
			"unit_value":   "5",
		}),
	}

	first := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID},
	}, false)
	initial := first.Import(rows)
	assert.Equal(t, 1, initial.ProductsCreated)
	assert.Equal(t, 1, initial.VariantsCreated)

	// Re-running the same spreadsheet must only update the records the
	// first run created, never duplicate them.
	second := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID},
	}, false)
	rerun := second.Import(rows)

	assert.True(t, rerun.Success)
	assert.Equal(t, 0, rerun.ProductsCreated)
	assert.Equal(t, 0, rerun.VariantsCreated)
	assert.Equal(t, 2, rerun.VariantsUpdated)
	assert.Empty(t, rerun.Errors)
	assert.Len(t, store.createdProducts, 1)
	assert.Len(t, store.variantsByID, 2)
}

func TestUnknownCategoryReportedOnce(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")

	run := importer.NewRun(importer.RunParams{
		Store: store,
		Settings: importer.NewSettings(importer.SettingsParams{
			EditableEnterprises: []uuid.UUID{supplierID},
		}),
		FallbackCategoryID: uuid.New(),
		Logger:             testLogger(),
	})

	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Mystery", nil),
	})

	assert.False(t, result.Success)
	assert.Empty(t, store.createdProducts)

	var messages []string
	for _, e := range result.Errors {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "category 'Mystery' not found in database")
	assert.NotContains(t, messages, "product category is required")
}

func TestOnDemandDefaultKeepsExplicitFalse(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	store.addCategory("Vegetables")
	store.addProduct(supplierID, "Carrots")

	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID},
		Defaults: map[string]models.DefaultRule{
			"on_demand": {Active: true, Mode: models.DefaultOverwriteEmpty, Value: "true"},
		},
	}, false)

	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{
			"display_name": "Blank",
			"unit_value":   "2",
		}),
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{
			"display_name": "Declined",
			"unit_value":   "3",
			"on_demand":    "false",
		}),
	})

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.VariantsCreated)
	assert.True(t, findVariantByDisplayName(store, "Blank").OnDemand)
	assert.False(t, findVariantByDisplayName(store, "Declined").OnDemand)
}

func TestImportMatchesExistingVariantNumerically(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	store.addCategory("Vegetables")
	store.addProduct(supplierID, "Carrots", &models.Variant{
		DisplayName: "Bunch",
		UnitValue:   1,
		Price:       "2.00",
	})

	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID},
	}, false)

	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{
			"display_name": "Bunch",
			"unit_value":   "1.0",
			"price":        "2.50",
		}),
	})

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ProductsCreated)
	assert.Equal(t, 0, result.VariantsCreated)
	assert.Equal(t, 1, result.VariantsUpdated)

	variant := findVariantByDisplayName(store, "Bunch")
	assert.NotNil(t, variant)
	assert.Equal(t, "2.50", variant.Price)
}

func TestImportUnknownSupplierFails(t *testing.T) {
	store := newFakeStore()
	store.addCategory("Vegetables")

	run := newTestRun(store, importer.SettingsParams{}, false)

	result := run.Import([]map[string]string{
		catalogRow("Nobody Farm", "Carrots", "Vegetables", nil),
	})

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.ProductsCreated)

	var messages []string
	for _, e := range result.Errors {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "supplier 'Nobody Farm' not found in database")
	assert.Contains(t, messages, "the import did not save any records")
}

func TestImportPermissionDenied(t *testing.T) {
	store := newFakeStore()
	store.addEnterprise("Green Valley Farm")
	store.addCategory("Vegetables")

	// Supplier exists but is outside the caller's permission scope.
	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{uuid.New()},
	}, false)

	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", nil),
	})

	assert.False(t, result.Success)
	assert.Len(t, store.createdProducts, 0)
	assert.Contains(t, result.Errors[0].Message, "you do not have permission")
}

func TestBlankOnHandGetsDefaultExplicitZeroKeepsZero(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	store.addCategory("Vegetables")
	store.addProduct(supplierID, "Carrots")

	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID},
		Defaults: map[string]models.DefaultRule{
			"on_hand": {Active: true, Mode: models.DefaultOverwriteEmpty, Value: "5"},
		},
	}, false)

	blankRow := catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{
		"display_name": "Blank",
		"unit_value":   "2",
	})
	delete(blankRow, "on_hand")
	zeroRow := catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{
		"display_name": "Zero",
		"unit_value":   "3",
		"on_hand":      "0",
	})

	result := run.Import([]map[string]string{blankRow, zeroRow})

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.VariantsCreated)
	assert.Equal(t, 5, findVariantByDisplayName(store, "Blank").OnHand)
	assert.Equal(t, 0, findVariantByDisplayName(store, "Zero").OnHand)
}

func TestOverwriteAllPriceDefault(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	store.addCategory("Vegetables")
	store.addProduct(supplierID, "Carrots")

	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID},
		Defaults: map[string]models.DefaultRule{
			"price": {Active: true, Mode: models.DefaultOverwriteAll, Value: "9.99"},
		},
	}, false)

	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{
			"display_name": "Bunch",
			"price":        "3.50",
		}),
	})

	assert.True(t, result.Success)
	assert.Equal(t, "9.99", findVariantByDisplayName(store, "Bunch").Price)
}

func TestConflictRetriesExactlyOnce(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	store.addCategory("Vegetables")
	variant := &models.Variant{DisplayName: "Bunch", UnitValue: 1, Price: "2.00"}
	store.addProduct(supplierID, "Carrots", variant)
	store.variantConflicts[variant.ID] = 1

	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID},
	}, false)

	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{
			"display_name": "Bunch",
			"price":        "2.50",
		}),
	})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.VariantsUpdated)
	assert.Equal(t, 1, store.variantReloads)
	assert.Empty(t, result.Errors)
}

func TestConflictRetryExhausted(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	store.addCategory("Vegetables")
	variant := &models.Variant{DisplayName: "Bunch", UnitValue: 1, Price: "2.00"}
	store.addProduct(supplierID, "Carrots", variant)
	store.variantConflicts[variant.ID] = 2

	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID},
	}, false)

	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{
			"display_name": "Bunch",
			"price":        "2.50",
		}),
	})

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.VariantsUpdated)
	assert.Equal(t, 1, store.variantReloads)
	assert.Equal(t, "SAVE_FAILED", result.Errors[0].Code)
}

func TestValidateOnlyPersistsNothing(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	store.addCategory("Vegetables")

	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID},
	}, true)

	badRow := catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{"unit_value": "abc"})
	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", nil),
		badRow,
	})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ValidRows)
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, store.createdProducts)
	assert.Equal(t, 0, store.variantSaves)
}

func TestLedgerCollectsSavedIDs(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	store.addCategory("Vegetables")

	seed := uuid.New()
	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID},
		Ledger:              importer.NewLedger([]uuid.UUID{seed}),
	}, false)

	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", nil),
	})

	assert.True(t, result.Success)
	assert.Len(t, result.UpdatedIDs, 2)
	assert.Equal(t, seed.String(), result.UpdatedIDs[0])
}

func TestInventoryImportCreatesOverride(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	hubID := store.addEnterprise("City Hub")
	store.addCategory("Vegetables")
	store.addProduct(supplierID, "Carrots", &models.Variant{DisplayName: "Bunch", UnitValue: 1, Price: "2.00"})

	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID, hubID},
		ImportIntoInventory: true,
		InventoryHubID:      hubID,
	}, false)

	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{
			"display_name": "Bunch",
			"price":        "2.75",
			"on_hand":      "7",
		}),
	})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.InventoryCreated)
	assert.Equal(t, 0, result.InventoryUpdated)
	assert.Len(t, store.visibleCalls, 1)
}

func TestInventoryImportUpdatesExistingOverride(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	hubID := store.addEnterprise("City Hub")
	store.addCategory("Vegetables")
	variant := &models.Variant{DisplayName: "Bunch", UnitValue: 1, Price: "2.00"}
	store.addProduct(supplierID, "Carrots", variant)
	store.addOverride(variant.ID, hubID)

	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID, hubID},
		ImportIntoInventory: true,
		InventoryHubID:      hubID,
	}, false)

	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{
			"display_name": "Bunch",
			"on_hand":      "4",
		}),
	})

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.InventoryCreated)
	assert.Equal(t, 1, result.InventoryUpdated)
}

func TestInventoryImportRequiresExistingVariant(t *testing.T) {
	store := newFakeStore()
	supplierID := store.addEnterprise("Green Valley Farm")
	hubID := store.addEnterprise("City Hub")
	store.addCategory("Vegetables")
	store.addProduct(supplierID, "Carrots", &models.Variant{DisplayName: "Bunch", UnitValue: 1, Price: "2.00"})

	run := newTestRun(store, importer.SettingsParams{
		EditableEnterprises: []uuid.UUID{supplierID, hubID},
		ImportIntoInventory: true,
		InventoryHubID:      hubID,
	}, false)

	result := run.Import([]map[string]string{
		catalogRow("Green Valley Farm", "Carrots", "Vegetables", map[string]string{
			"display_name": "Crate",
			"unit_value":   "12",
		}),
	})

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.InventoryCreated)
	assert.Contains(t, result.Errors[0].Message, "inventory import requires an existing variant")
}
