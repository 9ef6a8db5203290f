package importer

import (
	"github.com/google/uuid"

	"catalog-import-service/internal/models"
)

// Ledger is the run-scoped sequence of record IDs persisted this run.
// It is shared by reference between the processor, which appends every
// successful write, and the reset engine, which keeps its contents.
type Ledger struct {
	ids []uuid.UUID
}

// NewLedger builds a ledger seeded with IDs carried over from earlier
// passes of a staged import.
func NewLedger(seed []uuid.UUID) *Ledger {
	ids := make([]uuid.UUID, len(seed))
	copy(ids, seed)
	return &Ledger{ids: ids}
}

// Append records one persisted ID.
func (l *Ledger) Append(id uuid.UUID) {
	l.ids = append(l.ids, id)
}

// IDs returns the ledger contents.
func (l *Ledger) IDs() []uuid.UUID {
	return l.ids
}

// Len returns the number of recorded IDs.
func (l *Ledger) Len() int {
	return len(l.ids)
}

// Settings is the immutable per-run view over the import configuration:
// default rules, the caller's permission scope, the run mode, the reset
// gates, and the shared ledger. Nil defaults, ledger, or reset list mean
// the section was absent, which gates the reset pass to a no-op.
type Settings struct {
	defaults            map[string]models.DefaultRule
	editableEnterprises map[uuid.UUID]bool
	importIntoInventory bool
	inventoryHubID      uuid.UUID
	resetAllAbsent      bool
	enterprisesToReset  []uuid.UUID
	ledger              *Ledger
}

// SettingsParams collects the inputs for one run's settings view.
type SettingsParams struct {
	Defaults            map[string]models.DefaultRule
	EditableEnterprises []uuid.UUID
	ImportIntoInventory bool
	InventoryHubID      uuid.UUID
	ResetAllAbsent      bool
	EnterprisesToReset  []uuid.UUID
	Ledger              *Ledger
}

// NewSettings builds the settings view for one import run.
func NewSettings(p SettingsParams) *Settings {
	editable := make(map[uuid.UUID]bool, len(p.EditableEnterprises))
	for _, id := range p.EditableEnterprises {
		editable[id] = true
	}
	return &Settings{
		defaults:            p.Defaults,
		editableEnterprises: editable,
		importIntoInventory: p.ImportIntoInventory,
		inventoryHubID:      p.InventoryHubID,
		resetAllAbsent:      p.ResetAllAbsent,
		enterprisesToReset:  p.EnterprisesToReset,
		ledger:              p.Ledger,
	}
}

// HasDefaults reports whether the defaults configuration section was
// provided at all. An empty-but-present rule table still counts.
func (s *Settings) HasDefaults() bool {
	return s.defaults != nil
}

// DefaultFor returns the configured rule for an attribute.
func (s *Settings) DefaultFor(attribute string) (models.DefaultRule, bool) {
	rule, ok := s.defaults[attribute]
	return rule, ok
}

// CanEdit reports whether the importing user may write to the enterprise.
func (s *Settings) CanEdit(enterpriseID uuid.UUID) bool {
	return s.editableEnterprises[enterpriseID]
}

// ImportIntoInventory reports whether the run targets per-hub inventory
// overrides rather than the product catalog.
func (s *Settings) ImportIntoInventory() bool {
	return s.importIntoInventory
}

// InventoryHubID returns the hub receiving overrides in inventory mode.
func (s *Settings) InventoryHubID() uuid.UUID {
	return s.inventoryHubID
}

// ResetAllAbsent reports whether untouched records should be neutralized
// after the main pass.
func (s *Settings) ResetAllAbsent() bool {
	return s.resetAllAbsent
}

// EnterprisesToReset returns the eligible enterprise list and whether it
// was provided at all.
func (s *Settings) EnterprisesToReset() ([]uuid.UUID, bool) {
	return s.enterprisesToReset, s.enterprisesToReset != nil
}

// Ledger returns the shared updated-IDs ledger; nil when no pass has
// provided one.
func (s *Settings) Ledger() *Ledger {
	return s.ledger
}
