package importer

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ResetStrategy neutralizes one enterprise's records that the current run
// did not touch and reports how many were affected.
type ResetStrategy interface {
	Reset(enterpriseID uuid.UUID) (int64, error)
}

// productResetStrategy zeroes stock on all non-deleted, non-master variants
// of a supplier's products whose IDs are absent from the ledger.
type productResetStrategy struct {
	store CatalogStore
	keep  []uuid.UUID
}

func (s *productResetStrategy) Reset(supplierID uuid.UUID) (int64, error) {
	return s.store.DeactivateVariantsExcept(supplierID, s.keep)
}

// inventoryResetStrategy zeroes and hides all of a hub's inventory
// overrides whose IDs are absent from the ledger.
type inventoryResetStrategy struct {
	store CatalogStore
	keep  []uuid.UUID
}

func (s *inventoryResetStrategy) Reset(hubID uuid.UUID) (int64, error) {
	return s.store.HideOverridesExcept(hubID, s.keep)
}

// ResetAbsentEngine runs after the main pass and neutralizes catalog or
// inventory records belonging to eligible enterprises that the upload did
// not mention, so a spreadsheet can fully describe a supplier's catalog.
type ResetAbsentEngine struct {
	store    CatalogStore
	settings *Settings
	logger   *logrus.Entry
}

// NewResetAbsentEngine builds the engine for one run.
func NewResetAbsentEngine(store CatalogStore, settings *Settings, logger *logrus.Entry) *ResetAbsentEngine {
	return &ResetAbsentEngine{store: store, settings: settings, logger: logger}
}

// Call computes and applies the reset. The second return value is false
// only when the guard short-circuits: the defaults configuration, the
// ledger, or the eligible-enterprise list was absent entirely. A present
// but empty list still runs and reports zero resets, as does a run with
// reset_all_absent disabled: enterprises are still enumerated for
// permission checks, but every bucket stays empty.
func (e *ResetAbsentEngine) Call() (int, bool) {
	enterprises, listed := e.settings.EnterprisesToReset()
	if !e.settings.HasDefaults() || e.settings.Ledger() == nil || !listed {
		return 0, false
	}

	keep := e.settings.Ledger().IDs()
	var strategy ResetStrategy
	if e.settings.ImportIntoInventory() {
		strategy = &inventoryResetStrategy{store: e.store, keep: keep}
	} else {
		strategy = &productResetStrategy{store: e.store, keep: keep}
	}

	total := 0
	for _, enterpriseID := range enterprises {
		if !e.settings.CanEdit(enterpriseID) {
			e.logger.WithField("enterprise_id", enterpriseID).
				Debug("Skipping reset for enterprise outside permission scope")
			continue
		}
		if !e.settings.ResetAllAbsent() {
			continue
		}

		count, err := strategy.Reset(enterpriseID)
		if err != nil {
			e.logger.WithError(err).WithField("enterprise_id", enterpriseID).
				Error("Failed to reset absent records")
			continue
		}
		total += int(count)
	}

	return total, true
}
