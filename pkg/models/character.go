package models

import (
	"slices"
	"time"
)

// Skill level bounds.
const (
	MinSkillLevel = 0
	MaxSkillLevel = 20
)

// Work-state bounds.
const (
	BaselineEfficiency = 100.0
	MinEfficiency      = 50.0
	MaxEfficiency      = 120.0
	MaxStamina         = 100.0
	MaxTaskHistory     = 10
)

// SkillType groups skills into broad disciplines.
type SkillType string

const (
	SkillCombat   SkillType = "combat"
	SkillMagic    SkillType = "magic"
	SkillSurvival SkillType = "survival"
	SkillSocial   SkillType = "social"
	SkillCrafting SkillType = "crafting"
)

// Skill is one of a character's abilities. BonusLevel comes from traits and
// equipment outside the scheduler.
type Skill struct {
	ID         string    `yaml:"id" json:"id"`
	Name       string    `yaml:"name" json:"name"`
	Type       SkillType `yaml:"type" json:"type"`
	BaseLevel  int       `yaml:"base_level" json:"base_level"`
	BonusLevel int       `yaml:"bonus_level,omitempty" json:"bonus_level,omitempty"`
}

// EffectiveLevel returns base plus bonus, clamped to the valid skill range.
func (s Skill) EffectiveLevel() int {
	return min(max(s.BaseLevel+s.BonusLevel, MinSkillLevel), MaxSkillLevel)
}

// WorkState is the slice of a character the scheduler reads and writes.
type WorkState struct {
	Efficiency   float64    `yaml:"efficiency" json:"efficiency"`
	Stamina      float64    `yaml:"stamina" json:"stamina"`
	LastRestTime *time.Time `yaml:"last_rest_time,omitempty" json:"last_rest_time,omitempty"`
	// TaskHistory holds recently completed task IDs, most recent first.
	TaskHistory []string `yaml:"task_history,omitempty" json:"task_history,omitempty"`
}

// NewWorkState returns a rested work state at baseline efficiency.
func NewWorkState() WorkState {
	return WorkState{Efficiency: BaselineEfficiency, Stamina: MaxStamina}
}

// Character is a settlement member who can hold at most one task.
type Character struct {
	ID            int       `yaml:"id" json:"id"`
	Name          string    `yaml:"name" json:"name"`
	Gender        string    `yaml:"gender,omitempty" json:"gender,omitempty"`
	Age           int       `yaml:"age,omitempty" json:"age,omitempty"`
	Specialty     SkillType `yaml:"specialty,omitempty" json:"specialty,omitempty"`
	Skills        []Skill   `yaml:"skills" json:"skills"`
	CurrentTaskID string    `yaml:"current_task_id,omitempty" json:"current_task_id,omitempty"`
	IsAvailable   bool      `yaml:"available" json:"available"`
	WorkState     WorkState `yaml:"work_state" json:"work_state"`
}

// SkillLevel returns the effective level of the named skill and whether the
// character has it at all.
func (c *Character) SkillLevel(skillID string) (int, bool) {
	for _, s := range c.Skills {
		if s.ID == skillID {
			return s.EffectiveLevel(), true
		}
	}
	return 0, false
}

// IsIdle reports whether the character is free to take a task.
func (c *Character) IsIdle() bool {
	return c.IsAvailable && c.CurrentTaskID == ""
}

// Clone returns a deep copy of the character.
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Skills = slices.Clone(c.Skills)
	cp.WorkState.TaskHistory = slices.Clone(c.WorkState.TaskHistory)
	cp.WorkState.LastRestTime = cloneTime(c.WorkState.LastRestTime)
	return &cp
}
