package core

import (
	"testing"
	"time"

	"github.com/valter-silva-au/settlement/pkg/models"
)

// memInventory is an in-memory Inventory that clamps at zero.
type memInventory map[string]int

func (m memInventory) Quantity(itemID string) int { return m[itemID] }
func (m memInventory) Add(itemID string, amount int) {
	m[itemID] += amount
}
func (m memInventory) Remove(itemID string, amount int) {
	m[itemID] = max(0, m[itemID]-amount)
}

func (m memInventory) total() int {
	n := 0
	for _, q := range m {
		n += q
	}
	return n
}

// memRoster is an in-memory CharacterRegistry in insertion order.
type memRoster struct {
	chars []*models.Character
}

func (r *memRoster) Characters() []*models.Character { return r.chars }

func (r *memRoster) Character(id int) (*models.Character, bool) {
	for _, c := range r.chars {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// fixedClock is a Clock that only moves when told to.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// newCharacter builds an idle, rested character with the given skill levels.
func newCharacter(id int, name string, skills map[string]int) *models.Character {
	c := &models.Character{
		ID:          id,
		Name:        name,
		IsAvailable: true,
		WorkState:   models.NewWorkState(),
	}
	for skillID, level := range skills {
		c.Skills = append(c.Skills, models.Skill{ID: skillID, Name: skillID, BaseLevel: level})
	}
	return c
}

// harness bundles a task manager with its collaborators and records events.
type harness struct {
	tm       TaskManager
	inv      memInventory
	roster   *memRoster
	clock    *fixedClock
	settings StaticSettings
	events   []Event
}

func newHarness(t *testing.T, chars ...*models.Character) *harness {
	t.Helper()
	h := &harness{
		inv:      memInventory{},
		roster:   &memRoster{chars: chars},
		clock:    &fixedClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		settings: StaticSettings(false),
	}
	bus := NewEventBus()
	bus.Subscribe(ObserverFunc(func(e Event) { h.events = append(h.events, e) }))
	h.tm = NewTaskManager(h.inv, h.roster, &h.settings, h.clock, bus, nil)
	return h
}

func (h *harness) create(t *testing.T, params models.CreateTaskParams) *models.Task {
	t.Helper()
	if params.Name == "" {
		params.Name = "chop wood"
	}
	if params.Type == "" {
		params.Type = models.TaskTypeGathering
	}
	task, err := h.tm.CreateTask(params)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

func (h *harness) task(t *testing.T, id string) *models.Task {
	t.Helper()
	task, err := h.tm.GetTask(id)
	if err != nil {
		t.Fatalf("GetTask(%s): %v", id, err)
	}
	return task
}

func (h *harness) eventNames() []string {
	names := make([]string, len(h.events))
	for i, e := range h.events {
		names[i] = e.Name()
	}
	return names
}

func lastHistoryType(task *models.Task) string {
	if len(task.History) == 0 {
		return ""
	}
	return task.History[len(task.History)-1].Type
}
