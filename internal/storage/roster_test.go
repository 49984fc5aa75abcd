package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valter-silva-au/settlement/pkg/models"
	"pgregory.net/rapid"
)

func character(id int, name string) *models.Character {
	return &models.Character{ID: id, Name: name, IsAvailable: true, WorkState: models.NewWorkState()}
}

func TestRoster_AddAndLookup(t *testing.T) {
	r := NewRoster()
	require.NoError(t, r.Add(character(2, "Bea")))
	require.NoError(t, r.Add(character(1, "Al")))

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 1, r.Characters()[0].ID, "characters are kept in id order")

	c, ok := r.Character(2)
	require.True(t, ok)
	assert.Equal(t, "Bea", c.Name)

	_, ok = r.Character(9)
	assert.False(t, ok)
}

func TestRoster_AddRejectsInvalid(t *testing.T) {
	r := NewRoster()
	require.NoError(t, r.Add(character(1, "Al")))

	assert.ErrorIs(t, r.Add(nil), ErrInvalidCharacter)
	assert.ErrorIs(t, r.Add(character(0, "Zero")), ErrInvalidCharacter)
	assert.ErrorIs(t, r.Add(character(1, "Dup")), ErrInvalidCharacter)
	assert.Equal(t, 1, r.Len())
}

func TestRoster_LiveRecordsAndExportCopies(t *testing.T) {
	r := NewRoster()
	require.NoError(t, r.Add(character(1, "Al")))

	live, _ := r.Character(1)
	live.CurrentTaskID = "task-00000001"

	exported := r.Export()
	assert.Equal(t, "task-00000001", exported[0].CurrentTaskID)

	exported[0].Name = "changed"
	assert.Equal(t, "Al", live.Name)
}

func TestRoster_ReplaceIsAtomic(t *testing.T) {
	r := NewRoster()
	require.NoError(t, r.Add(character(1, "Al")))

	err := r.Replace([]*models.Character{character(5, "E"), character(5, "F")})
	assert.ErrorIs(t, err, ErrInvalidCharacter)
	assert.Equal(t, 1, r.Len(), "failed replace keeps the old roster")

	require.NoError(t, r.Replace([]*models.Character{character(7, "G")}))
	_, ok := r.Character(1)
	assert.False(t, ok)
	_, ok = r.Character(7)
	assert.True(t, ok)
}

func TestValidateCharacters(t *testing.T) {
	assert.NoError(t, ValidateCharacters(nil))
	assert.NoError(t, ValidateCharacters([]*models.Character{character(1, "A"), character(2, "B")}))
	assert.ErrorIs(t, ValidateCharacters([]*models.Character{character(3, "C"), character(3, "D")}), ErrInvalidCharacter)
	assert.ErrorIs(t, ValidateCharacters([]*models.Character{character(0, "Zero")}), ErrInvalidCharacter)
	assert.ErrorIs(t, ValidateCharacters([]*models.Character{nil}), ErrInvalidCharacter)
}

func TestRosterGenerator_Generate(t *testing.T) {
	chars := NewSeededRosterGenerator(42).Generate(10)
	require.Len(t, chars, 10)

	for i, c := range chars {
		assert.Equal(t, i+1, c.ID)
		assert.NotEmpty(t, c.Name)
		assert.True(t, c.IsIdle())
		assert.GreaterOrEqual(t, c.Age, 18)
		assert.Less(t, c.Age, 68)
		assert.Equal(t, models.NewWorkState(), c.WorkState)
		require.Len(t, c.Skills, len(SkillCatalog))
		for _, s := range c.Skills {
			if s.Type == c.Specialty {
				assert.GreaterOrEqual(t, s.BaseLevel, 5, "specialty skill %s", s.ID)
			} else {
				assert.Less(t, s.BaseLevel, 10, "ordinary skill %s", s.ID)
			}
		}
	}
}

func TestRosterGenerator_SeedIsDeterministic(t *testing.T) {
	a := NewSeededRosterGenerator(7).Generate(5)
	b := NewSeededRosterGenerator(7).Generate(5)
	assert.Equal(t, a, b)
}

func TestRosterGenerator_Recruit(t *testing.T) {
	c := NewSeededRosterGenerator(3).Recruit(11)
	assert.Equal(t, 11, c.ID)
	assert.Empty(t, c.Specialty)
	for _, s := range c.Skills {
		assert.GreaterOrEqual(t, s.BaseLevel, models.MinSkillLevel)
		assert.LessOrEqual(t, s.BaseLevel, models.MaxSkillLevel)
	}
}

func TestProperty_RandomSkillLevelInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g := NewSeededRosterGenerator(rapid.Uint64().Draw(rt, "seed"))
		for range 20 {
			if lvl := g.RandomSkillLevel(); lvl < models.MinSkillLevel || lvl > models.MaxSkillLevel {
				rt.Fatalf("level %d out of range", lvl)
			}
		}
	})
}
