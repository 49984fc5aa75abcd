package storage

import (
	"math"
	"math/rand/v2"

	"github.com/valter-silva-au/settlement/pkg/models"
)

// SkillCatalog lists every skill a generated character receives.
var SkillCatalog = []models.Skill{
	{ID: "swordsmanship", Name: "Swordsmanship", Type: models.SkillCombat},
	{ID: "archery", Name: "Archery", Type: models.SkillCombat},
	{ID: "herbalism", Name: "Herbalism", Type: models.SkillMagic},
	{ID: "arcana", Name: "Arcana", Type: models.SkillMagic},
	{ID: "foraging", Name: "Foraging", Type: models.SkillSurvival},
	{ID: "hunting", Name: "Hunting", Type: models.SkillSurvival},
	{ID: "trading", Name: "Trading", Type: models.SkillSocial},
	{ID: "leadership", Name: "Leadership", Type: models.SkillSocial},
	{ID: "woodworking", Name: "Woodworking", Type: models.SkillCrafting},
	{ID: "cooking", Name: "Cooking", Type: models.SkillCrafting},
	{ID: "masonry", Name: "Masonry", Type: models.SkillCrafting},
	{ID: "smithing", Name: "Smithing", Type: models.SkillCrafting},
}

var specialtyTypes = []models.SkillType{
	models.SkillCombat,
	models.SkillMagic,
	models.SkillSurvival,
	models.SkillSocial,
	models.SkillCrafting,
}

var (
	maleNames   = []string{"John", "David", "Michael", "James", "Robert", "William", "Thomas", "Christopher"}
	femaleNames = []string{"Emma", "Olivia", "Sarah", "Jennifer", "Emily", "Jessica", "Elizabeth", "Sophia"}
)

// Specialty skills start at 5 and roll up to 14 more; the rest roll 0-9.
const (
	specialtyBase  = 5
	specialtyBoost = 15
	ordinaryBoost  = 10
	minAge         = 18
	ageSpan        = 50
)

// RosterGenerator seeds new settlements with random characters.
type RosterGenerator struct {
	rng *rand.Rand
}

// NewRosterGenerator creates a generator drawing from rng. A nil rng uses
// the global source.
func NewRosterGenerator(rng *rand.Rand) *RosterGenerator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RosterGenerator{rng: rng}
}

// NewSeededRosterGenerator creates a deterministic generator.
func NewSeededRosterGenerator(seed uint64) *RosterGenerator {
	return NewRosterGenerator(rand.New(rand.NewPCG(seed, seed)))
}

// Generate returns n idle, rested characters with IDs 1..n.
func (g *RosterGenerator) Generate(n int) []*models.Character {
	chars := make([]*models.Character, 0, n)
	for i := range n {
		chars = append(chars, g.Character(i+1))
	}
	return chars
}

// Character returns one random character with the given ID. Skills of the
// character's specialty type are rolled higher than the rest.
func (g *RosterGenerator) Character(id int) *models.Character {
	gender, names := "Male", maleNames
	if g.rng.IntN(2) == 0 {
		gender, names = "Female", femaleNames
	}
	specialty := specialtyTypes[g.rng.IntN(len(specialtyTypes))]

	skills := make([]models.Skill, len(SkillCatalog))
	for i, s := range SkillCatalog {
		level := g.rng.IntN(ordinaryBoost)
		if s.Type == specialty {
			level = specialtyBase + g.rng.IntN(specialtyBoost)
		}
		s.BaseLevel = min(level, models.MaxSkillLevel)
		skills[i] = s
	}

	return &models.Character{
		ID:          id,
		Name:        names[g.rng.IntN(len(names))],
		Gender:      gender,
		Age:         minAge + g.rng.IntN(ageSpan),
		Specialty:   specialty,
		Skills:      skills,
		IsAvailable: true,
		WorkState:   models.NewWorkState(),
	}
}

// RandomSkillLevel rolls a level in [0, 20] skewed towards low values.
func (g *RosterGenerator) RandomSkillLevel() int {
	level := int(math.Floor(math.Pow(g.rng.Float64(), 1.5) * (models.MaxSkillLevel + 1)))
	return min(max(level, models.MinSkillLevel), models.MaxSkillLevel)
}

// Recruit returns a character with uniformly skewed skills and no specialty,
// for settlers who join after the founding.
func (g *RosterGenerator) Recruit(id int) *models.Character {
	c := g.Character(id)
	c.Specialty = ""
	for i := range c.Skills {
		c.Skills[i].BaseLevel = g.RandomSkillLevel()
	}
	return c
}
