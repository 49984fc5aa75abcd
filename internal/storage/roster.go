package storage

import (
	"fmt"
	"sort"

	"github.com/valter-silva-au/settlement/pkg/models"
)

// Roster is the settlement's character registry. Characters and Character
// return the live records so the scheduler can update work state in place;
// Export returns copies for persistence.
type Roster interface {
	Characters() []*models.Character
	Character(id int) (*models.Character, bool)
	Add(c *models.Character) error
	Replace(chars []*models.Character) error
	Export() []*models.Character
	Len() int
}

type memoryRoster struct {
	chars []*models.Character
	byID  map[int]*models.Character
}

// NewRoster creates an empty Roster.
func NewRoster() Roster {
	return &memoryRoster{byID: make(map[int]*models.Character)}
}

// Characters returns the characters in ID order.
func (r *memoryRoster) Characters() []*models.Character {
	return r.chars
}

func (r *memoryRoster) Character(id int) (*models.Character, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Add registers c. Its ID must be positive and unused.
func (r *memoryRoster) Add(c *models.Character) error {
	if c == nil {
		return fmt.Errorf("adding character: nil: %w", ErrInvalidCharacter)
	}
	if c.ID <= 0 {
		return fmt.Errorf("adding character %q: id %d must be positive: %w", c.Name, c.ID, ErrInvalidCharacter)
	}
	if _, exists := r.byID[c.ID]; exists {
		return fmt.Errorf("adding character %q: id %d already registered: %w", c.Name, c.ID, ErrInvalidCharacter)
	}
	r.byID[c.ID] = c
	r.chars = append(r.chars, c)
	sort.SliceStable(r.chars, func(i, j int) bool { return r.chars[i].ID < r.chars[j].ID })
	return nil
}

// Replace swaps the whole roster for copies of chars. On error the roster
// is unchanged.
func (r *memoryRoster) Replace(chars []*models.Character) error {
	next, err := buildRoster(chars)
	if err != nil {
		return fmt.Errorf("replacing roster: %w", err)
	}
	r.chars, r.byID = next.chars, next.byID
	return nil
}

// ValidateCharacters reports whether chars would be accepted by Replace.
func ValidateCharacters(chars []*models.Character) error {
	_, err := buildRoster(chars)
	return err
}

func buildRoster(chars []*models.Character) (*memoryRoster, error) {
	next := &memoryRoster{byID: make(map[int]*models.Character, len(chars))}
	for _, c := range chars {
		if err := next.Add(c.Clone()); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func (r *memoryRoster) Export() []*models.Character {
	out := make([]*models.Character, len(r.chars))
	for i, c := range r.chars {
		out[i] = c.Clone()
	}
	return out
}

func (r *memoryRoster) Len() int {
	return len(r.chars)
}
