package core

import (
	"fmt"
	"math"

	"github.com/valter-silva-au/settlement/pkg/models"
)

// Fitness score components.
const (
	maxSkillScore       = 50.0
	noSkillScore        = 30.0
	idleAvailability    = 40.0
	busyAvailability    = 15.0
	otherFactorsScore   = 10.0
	maxSkillMatch       = 10.0
	qualityAdvantageDiv = 50.0
	durationBonusDiv    = 100.0
)

// Quality modifier bounds.
const (
	MinQualityModifier = 0.5
	MaxQualityModifier = 1.5
)

// ScoreCharacter computes how well c suits task on a 0-100 scale. Eligible
// reports whether c passes CheckEligibility; the score is computed either way.
func ScoreCharacter(task *models.Task, c *models.Character) models.FitScore {
	skill := noSkillScore
	if len(task.RequiredSkills) > 0 {
		var total float64
		for _, req := range task.RequiredSkills {
			total += skillMatch(req, c)
		}
		skill = total / (float64(len(task.RequiredSkills)) * maxSkillMatch) * maxSkillScore
	}

	availability := idleAvailability
	if c.CurrentTaskID != "" {
		availability = busyAvailability
	}

	return models.FitScore{
		CharacterID:   c.ID,
		CharacterName: c.Name,
		Overall:       skill + availability + otherFactorsScore,
		Skill:         skill,
		Availability:  availability,
		Other:         otherFactorsScore,
		Eligible:      CheckEligibility(task, c) == nil,
	}
}

// skillMatch scores one requirement from 0 to 10. A missing skill scores 0.
func skillMatch(req models.SkillRequirement, c *models.Character) float64 {
	level, ok := c.SkillLevel(req.SkillID)
	if !ok {
		return 0
	}
	if level >= req.RequiredLevel {
		return maxSkillMatch
	}
	return max(0, float64(level)/float64(req.RequiredLevel)*maxSkillMatch)
}

// CheckEligibility returns nil if c is unoccupied and meets every skill
// requirement of task. Otherwise it returns ErrCharacterBusy or
// ErrInsufficientSkill.
func CheckEligibility(task *models.Task, c *models.Character) error {
	if !c.IsIdle() {
		return fmt.Errorf("character %d: %w", c.ID, ErrCharacterBusy)
	}
	for _, req := range task.RequiredSkills {
		level, ok := c.SkillLevel(req.SkillID)
		if !ok {
			return fmt.Errorf("character %d lacks %s: %w", c.ID, req.SkillID, ErrInsufficientSkill)
		}
		if level < req.RequiredLevel {
			return fmt.Errorf("character %d has %s %d, needs %d: %w",
				c.ID, req.SkillID, level, req.RequiredLevel, ErrInsufficientSkill)
		}
	}
	return nil
}

// EstimateCompletionHours returns how long c would take to finish task,
// rounded to one decimal place and never below the task's minimum.
func EstimateCompletionHours(task *models.Task, c *models.Character) float64 {
	est := task.Estimate
	if len(task.RequiredSkills) == 0 {
		return est.BaseHours
	}

	var bonus float64
	for _, req := range task.RequiredSkills {
		level, ok := c.SkillLevel(req.SkillID)
		if !ok {
			continue
		}
		bonus += max(0, float64(level-req.RequiredLevel)/durationBonusDiv)
	}
	reduction := bonus / float64(len(task.RequiredSkills)) * est.SkillFactor

	hours := max(est.MinHours, est.BaseHours*(1-reduction))
	return math.Round(hours*10) / 10
}

// HourlyProgress returns the percentage of task c completes per hour at full
// efficiency. A zero-length task completes in its first hour.
func HourlyProgress(task *models.Task, c *models.Character) float64 {
	hours := EstimateCompletionHours(task, c)
	if hours <= 0 {
		return 100
	}
	return 100 / hours
}

// QualityModifier returns the output multiplier for task completed by c.
// Each required skill contributes (level-required)/50 clamped to [-0.5, 1];
// the average is added to 1 and clamped to [0.5, 1.5]. A skill the character
// lacks contributes nothing.
func QualityModifier(task *models.Task, c *models.Character) float64 {
	if len(task.RequiredSkills) == 0 {
		return 1.0
	}

	var total float64
	for _, req := range task.RequiredSkills {
		level, ok := c.SkillLevel(req.SkillID)
		if !ok {
			continue
		}
		advantage := float64(level-req.RequiredLevel) / qualityAdvantageDiv
		total += min(max(advantage, -0.5), 1.0)
	}
	avg := total / float64(len(task.RequiredSkills))

	return min(max(1.0+avg, MinQualityModifier), MaxQualityModifier)
}
