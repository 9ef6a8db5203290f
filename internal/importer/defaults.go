package importer

import (
	"strconv"

	"catalog-import-service/internal/models"
)

// variantDefaultAttrs lists the attributes default rules may target on a
// catalog variant, in the order rules are applied.
var variantDefaultAttrs = []string{"price", "on_hand", "count_on_hand", "on_demand", "display_name", "sku"}

// overrideDefaultAttrs lists the attributes default rules may target on an
// inventory override.
var overrideDefaultAttrs = []string{"price", "on_hand", "count_on_hand", "on_demand"}

// applyVariantDefaults merges active default rules onto a variant candidate.
// overwrite_all rules win over the row's value; overwrite_empty rules fill
// blanks only. "Blank" for on_hand and on_demand means the source cell was
// blank, never an explicit 0 or false.
func applyVariantDefaults(settings *Settings, entry *models.Entry) {
	variant := entry.Variant
	if variant == nil {
		return
	}

	for _, attr := range variantDefaultAttrs {
		rule, ok := settings.DefaultFor(attr)
		if !ok || !rule.Active {
			continue
		}

		switch attr {
		case "price":
			if rule.Mode == models.DefaultOverwriteAll || variant.Price == "" {
				variant.Price = rule.Value
			}
		case "on_hand", "count_on_hand":
			if rule.Mode == models.DefaultOverwriteAll || entry.OnHandDefaulted {
				if count, err := strconv.Atoi(rule.Value); err == nil {
					variant.OnHand = count
				}
			}
		case "on_demand":
			if rule.Mode == models.DefaultOverwriteAll || entry.OnDemandDefaulted {
				if onDemand, err := strconv.ParseBool(rule.Value); err == nil {
					variant.OnDemand = onDemand
				}
			}
		case "display_name":
			if rule.Mode == models.DefaultOverwriteAll || variant.DisplayName == "" {
				variant.DisplayName = rule.Value
			}
		case "sku":
			if rule.Mode == models.DefaultOverwriteAll || variant.SKU == nil || *variant.SKU == "" {
				sku := rule.Value
				variant.SKU = &sku
			}
		}
	}
}

// applyOverrideDefaults merges active default rules onto an inventory
// override candidate, with the same blank-vs-explicit rule for on_hand
// and on_demand.
func applyOverrideDefaults(settings *Settings, entry *models.Entry) {
	override := entry.Override
	if override == nil {
		return
	}

	for _, attr := range overrideDefaultAttrs {
		rule, ok := settings.DefaultFor(attr)
		if !ok || !rule.Active {
			continue
		}

		switch attr {
		case "price":
			if rule.Mode == models.DefaultOverwriteAll || override.Price == nil || *override.Price == "" {
				price := rule.Value
				override.Price = &price
			}
		case "on_hand", "count_on_hand":
			if rule.Mode == models.DefaultOverwriteAll || entry.OnHandDefaulted {
				if count, err := strconv.Atoi(rule.Value); err == nil {
					override.CountOnHand = &count
				}
			}
		case "on_demand":
			if rule.Mode == models.DefaultOverwriteAll || entry.OnDemandDefaulted {
				if onDemand, err := strconv.ParseBool(rule.Value); err == nil {
					override.OnDemand = &onDemand
				}
			}
		}
	}
}
