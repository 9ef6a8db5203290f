package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"catalog-import-service/internal/models"
)

func settingsWithRule(attr string, rule models.DefaultRule) *Settings {
	return NewSettings(SettingsParams{
		Defaults: map[string]models.DefaultRule{attr: rule},
	})
}

func TestApplyVariantDefaultsInactiveRuleIgnored(t *testing.T) {
	settings := settingsWithRule("price", models.DefaultRule{Active: false, Mode: models.DefaultOverwriteAll, Value: "9.99"})
	entry := &models.Entry{Variant: &models.Variant{Price: "3.50"}}

	applyVariantDefaults(settings, entry)
	assert.Equal(t, "3.50", entry.Variant.Price)
}

func TestApplyVariantDefaultsOverwriteEmptyFillsBlankPrice(t *testing.T) {
	settings := settingsWithRule("price", models.DefaultRule{Active: true, Mode: models.DefaultOverwriteEmpty, Value: "9.99"})

	blank := &models.Entry{Variant: &models.Variant{}}
	applyVariantDefaults(settings, blank)
	assert.Equal(t, "9.99", blank.Variant.Price)

	filled := &models.Entry{Variant: &models.Variant{Price: "3.50"}}
	applyVariantDefaults(settings, filled)
	assert.Equal(t, "3.50", filled.Variant.Price)
}

func TestApplyVariantDefaultsOnHandBlankVersusExplicitZero(t *testing.T) {
	settings := settingsWithRule("on_hand", models.DefaultRule{Active: true, Mode: models.DefaultOverwriteEmpty, Value: "5"})

	blank := &models.Entry{Variant: &models.Variant{OnHand: 0}, OnHandDefaulted: true}
	applyVariantDefaults(settings, blank)
	assert.Equal(t, 5, blank.Variant.OnHand)

	explicitZero := &models.Entry{Variant: &models.Variant{OnHand: 0}}
	applyVariantDefaults(settings, explicitZero)
	assert.Equal(t, 0, explicitZero.Variant.OnHand)
}

func TestApplyVariantDefaultsCountOnHandAliasesOnHand(t *testing.T) {
	settings := settingsWithRule("count_on_hand", models.DefaultRule{Active: true, Mode: models.DefaultOverwriteAll, Value: "8"})

	entry := &models.Entry{Variant: &models.Variant{OnHand: 3}}
	applyVariantDefaults(settings, entry)
	assert.Equal(t, 8, entry.Variant.OnHand)
}

func TestApplyVariantDefaultsSKU(t *testing.T) {
	settings := settingsWithRule("sku", models.DefaultRule{Active: true, Mode: models.DefaultOverwriteEmpty, Value: "DEFAULT-SKU"})

	entry := &models.Entry{Variant: &models.Variant{}}
	applyVariantDefaults(settings, entry)
	assert.NotNil(t, entry.Variant.SKU)
	assert.Equal(t, "DEFAULT-SKU", *entry.Variant.SKU)

	sku := "KEEP-ME"
	kept := &models.Entry{Variant: &models.Variant{SKU: &sku}}
	applyVariantDefaults(settings, kept)
	assert.Equal(t, "KEEP-ME", *kept.Variant.SKU)
}

func TestApplyVariantDefaultsOnDemandBlankVersusExplicitFalse(t *testing.T) {
	settings := settingsWithRule("on_demand", models.DefaultRule{Active: true, Mode: models.DefaultOverwriteEmpty, Value: "true"})

	blank := &models.Entry{Variant: &models.Variant{}, OnDemandDefaulted: true}
	applyVariantDefaults(settings, blank)
	assert.True(t, blank.Variant.OnDemand)

	explicitFalse := &models.Entry{Variant: &models.Variant{}}
	applyVariantDefaults(settings, explicitFalse)
	assert.False(t, explicitFalse.Variant.OnDemand)
}

func TestApplyOverrideDefaultsOnDemandBlankVersusExplicitFalse(t *testing.T) {
	settings := settingsWithRule("on_demand", models.DefaultRule{Active: true, Mode: models.DefaultOverwriteEmpty, Value: "true"})

	blank := &models.Entry{Override: &models.VariantOverride{}, OnDemandDefaulted: true}
	applyOverrideDefaults(settings, blank)
	assert.NotNil(t, blank.Override.OnDemand)
	assert.True(t, *blank.Override.OnDemand)

	explicit := false
	kept := &models.Entry{Override: &models.VariantOverride{OnDemand: &explicit}}
	applyOverrideDefaults(settings, kept)
	assert.False(t, *kept.Override.OnDemand)
}

func TestApplyOverrideDefaultsOnHand(t *testing.T) {
	settings := settingsWithRule("on_hand", models.DefaultRule{Active: true, Mode: models.DefaultOverwriteEmpty, Value: "5"})

	zero := 0
	blank := &models.Entry{Override: &models.VariantOverride{CountOnHand: &zero}, OnHandDefaulted: true}
	applyOverrideDefaults(settings, blank)
	assert.Equal(t, 5, *blank.Override.CountOnHand)

	explicit := 0
	kept := &models.Entry{Override: &models.VariantOverride{CountOnHand: &explicit}}
	applyOverrideDefaults(settings, kept)
	assert.Equal(t, 0, *kept.Override.CountOnHand)
}

func TestApplyOverrideDefaultsPrice(t *testing.T) {
	settings := settingsWithRule("price", models.DefaultRule{Active: true, Mode: models.DefaultOverwriteAll, Value: "4.25"})

	price := "1.00"
	entry := &models.Entry{Override: &models.VariantOverride{Price: &price}}
	applyOverrideDefaults(settings, entry)
	assert.Equal(t, "4.25", *entry.Override.Price)
}
