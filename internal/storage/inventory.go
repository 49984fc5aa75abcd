package storage

import (
	"maps"
	"sort"
)

// InventoryLedger is the settlement's item stock. Quantities never go below
// zero: removing more than is held empties the item without error.
type InventoryLedger interface {
	Quantity(itemID string) int
	Add(itemID string, amount int)
	Remove(itemID string, amount int)
	Set(itemID string, quantity int)
	Items() map[string]int
	ItemIDs() []string
	Replace(items map[string]int)
}

type mapInventory struct {
	items map[string]int
}

// NewInventoryLedger creates a ledger holding a copy of initial.
func NewInventoryLedger(initial map[string]int) InventoryLedger {
	inv := &mapInventory{}
	inv.Replace(initial)
	return inv
}

// DefaultInventory returns the stock a new settlement starts with.
func DefaultInventory() map[string]int {
	return map[string]int{
		"iron_sword":     1,
		"leather_armor":  1,
		"healing_potion": 5,
		"iron_ore":       10,
		"ancient_scroll": 1,
		"lucky_charm":    1,
		"wood":           25,
		"stone":          30,
		"food":           120,
		"steel":          8,
		"leather":        15,
		"cloth":          20,
	}
}

func (m *mapInventory) Quantity(itemID string) int {
	return m.items[itemID]
}

// Add adjusts the stock by amount. A negative amount behaves like Remove.
func (m *mapInventory) Add(itemID string, amount int) {
	m.Set(itemID, m.items[itemID]+amount)
}

func (m *mapInventory) Remove(itemID string, amount int) {
	m.Set(itemID, m.items[itemID]-amount)
}

// Set stores quantity clamped at zero. Unknown items are only recorded once
// they have a positive quantity.
func (m *mapInventory) Set(itemID string, quantity int) {
	quantity = max(0, quantity)
	if _, known := m.items[itemID]; !known && quantity == 0 {
		return
	}
	m.items[itemID] = quantity
}

// Items returns a copy of the stock.
func (m *mapInventory) Items() map[string]int {
	return maps.Clone(m.items)
}

// ItemIDs returns every known item ID in sorted order.
func (m *mapInventory) ItemIDs() []string {
	ids := make([]string, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Replace discards the current stock and loads items, dropping negative
// quantities to zero.
func (m *mapInventory) Replace(items map[string]int) {
	m.items = make(map[string]int, len(items))
	for id, q := range items {
		m.items[id] = max(0, q)
	}
}
