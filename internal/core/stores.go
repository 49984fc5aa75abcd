package core

import (
	"time"

	"github.com/valter-silva-au/settlement/pkg/models"
)

// Inventory is the item ledger the task lifecycle consumes from and
// produces into. Remove clamps at zero and never fails.
// This interface is defined locally in core to avoid importing storage.
type Inventory interface {
	Quantity(itemID string) int
	Add(itemID string, amount int)
	Remove(itemID string, amount int)
}

// CharacterRegistry gives the scheduler access to the settlement roster.
// The returned characters are the registry's own records: the task lifecycle
// writes CurrentTaskID, IsAvailable and WorkState on them directly.
type CharacterRegistry interface {
	Characters() []*models.Character
	Character(id int) (*models.Character, bool)
}

// Settings exposes the user toggles the scheduler consults every hour.
type Settings interface {
	AutoAssignEnabled() bool
}

// Clock supplies the current simulation time for timestamps and deadlines.
type Clock interface {
	Now() time.Time
}

// StaticSettings is a Settings whose auto-assign flag never changes.
type StaticSettings bool

// AutoAssignEnabled implements Settings.
func (s StaticSettings) AutoAssignEnabled() bool { return bool(s) }
