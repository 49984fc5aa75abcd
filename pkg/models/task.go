package models

import (
	"maps"
	"slices"
	"time"
)

// TaskType represents the kind of work a task involves.
type TaskType string

const (
	TaskTypeCrafting    TaskType = "crafting"
	TaskTypeGathering   TaskType = "gathering"
	TaskTypeBuilding    TaskType = "building"
	TaskTypeResearch    TaskType = "research"
	TaskTypeMaintenance TaskType = "maintenance"
	TaskTypeTraining    TaskType = "training"
)

// TaskTypes lists every valid TaskType in display order.
var TaskTypes = []TaskType{
	TaskTypeCrafting,
	TaskTypeGathering,
	TaskTypeBuilding,
	TaskTypeResearch,
	TaskTypeMaintenance,
	TaskTypeTraining,
}

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusCancelled  TaskStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible from s.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// FailureReason records why a task ended in the failed state.
type FailureReason string

const (
	FailureRoleUnavailable   FailureReason = "role_unavailable"
	FailureInsufficientSkill FailureReason = "insufficient_skill"
	FailureInsufficientItems FailureReason = "insufficient_items"
	FailureExpired           FailureReason = "expired"
	FailureOther             FailureReason = "other"
)

// FailureReasons lists every valid FailureReason.
var FailureReasons = []FailureReason{
	FailureRoleUnavailable,
	FailureInsufficientSkill,
	FailureInsufficientItems,
	FailureExpired,
	FailureOther,
}

// History entry types appended by the task lifecycle.
const (
	HistoryCreated           = "created"
	HistoryTemplateUsed      = "template-used"
	HistoryAssigned          = "assigned"
	HistoryAutoAssigned      = "auto-assigned"
	HistoryUnassigned        = "unassigned"
	HistoryCompleted         = "completed"
	HistoryFailed            = "failed"
	HistoryCancelled         = "cancelled"
	HistoryRecurringCreation = "recurring_creation"
)

// SkillRequirement is a minimum effective skill level a worker must hold.
type SkillRequirement struct {
	SkillID       string `yaml:"skill_id" json:"skill_id"`
	SkillName     string `yaml:"skill_name,omitempty" json:"skill_name,omitempty"`
	RequiredLevel int    `yaml:"required_level" json:"required_level"`
}

// ItemRequirement is an inventory item consumed when the task is assigned.
type ItemRequirement struct {
	ItemID   string `yaml:"item_id" json:"item_id"`
	ItemName string `yaml:"item_name,omitempty" json:"item_name,omitempty"`
	Quantity int    `yaml:"quantity" json:"quantity"`
}

// ItemOutput is an inventory item produced when the task completes.
// QualityModifier is nil until the task completes.
type ItemOutput struct {
	ItemID          string   `yaml:"item_id" json:"item_id"`
	ItemName        string   `yaml:"item_name,omitempty" json:"item_name,omitempty"`
	Quantity        int      `yaml:"quantity" json:"quantity"`
	QualityModifier *float64 `yaml:"quality_modifier,omitempty" json:"quality_modifier,omitempty"`
}

// TimeEstimate describes how long a task takes and how much skill shortens it.
type TimeEstimate struct {
	BaseHours   float64 `yaml:"base_hours" json:"base_hours"`
	SkillFactor float64 `yaml:"skill_factor" json:"skill_factor"`
	MinHours    float64 `yaml:"min_hours" json:"min_hours"`
}

// DefaultTimeEstimate is applied to tasks created without an estimate.
var DefaultTimeEstimate = TimeEstimate{BaseHours: 8, SkillFactor: 0.5, MinHours: 2}

// Task priorities run from MinTaskPriority to MaxTaskPriority; higher is
// more urgent. A zero priority in create parameters or template overrides
// means unspecified, and DefaultTaskPriority (or the template's default)
// applies.
const (
	MinTaskPriority     = 1
	MaxTaskPriority     = 10
	DefaultTaskPriority = 5
)

// ValidPriority reports whether p is a priority a task can carry.
func ValidPriority(p int) bool {
	return p >= MinTaskPriority && p <= MaxTaskPriority
}

// HistoryEntry is one line of a task's append-only audit trail.
type HistoryEntry struct {
	Timestamp   time.Time      `yaml:"timestamp" json:"timestamp"`
	Type        string         `yaml:"type" json:"type"`
	Description string         `yaml:"description" json:"description"`
	Data        map[string]any `yaml:"data,omitempty" json:"data,omitempty"`
}

// Task is a schedulable unit of work with skill and item requirements and
// item outputs. AssignedCharacterID is zero when nobody is assigned.
type Task struct {
	ID                  string             `yaml:"id" json:"id"`
	Type                TaskType           `yaml:"type" json:"type"`
	Name                string             `yaml:"name" json:"name"`
	Description         string             `yaml:"description,omitempty" json:"description,omitempty"`
	RequiredSkills      []SkillRequirement `yaml:"required_skills,omitempty" json:"required_skills,omitempty"`
	Priority            int                `yaml:"priority" json:"priority"`
	CreatedAt           time.Time          `yaml:"created_at" json:"created_at"`
	Deadline            *time.Time         `yaml:"deadline,omitempty" json:"deadline,omitempty"`
	AssignedCharacterID int                `yaml:"assigned_character_id,omitempty" json:"assigned_character_id,omitempty"`
	Status              TaskStatus         `yaml:"status" json:"status"`
	Progress            float64            `yaml:"progress" json:"progress"`
	Estimate            TimeEstimate       `yaml:"estimate" json:"estimate"`
	StartTime           *time.Time         `yaml:"start_time,omitempty" json:"start_time,omitempty"`
	CompletionTime      *time.Time         `yaml:"completion_time,omitempty" json:"completion_time,omitempty"`
	RequiredItems       []ItemRequirement  `yaml:"required_items,omitempty" json:"required_items,omitempty"`
	OutputItems         []ItemOutput       `yaml:"output_items,omitempty" json:"output_items,omitempty"`
	Location            string             `yaml:"location,omitempty" json:"location,omitempty"`
	FailureReason       FailureReason      `yaml:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	History             []HistoryEntry     `yaml:"history" json:"history"`
	Tags                []string           `yaml:"tags,omitempty" json:"tags,omitempty"`
	IsUserCreated       bool               `yaml:"user_created" json:"user_created"`
	IsRecurring         bool               `yaml:"recurring" json:"recurring"`
	Cycle               int                `yaml:"cycle,omitempty" json:"cycle,omitempty"`
	SourceTaskID        string             `yaml:"source_task_id,omitempty" json:"source_task_id,omitempty"`
	TemplateID          string             `yaml:"template_id,omitempty" json:"template_id,omitempty"`
}

// Clone returns a deep copy of the task. History data maps are copied one
// level deep; their values are scalars.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.RequiredSkills = slices.Clone(t.RequiredSkills)
	c.RequiredItems = slices.Clone(t.RequiredItems)
	c.Tags = slices.Clone(t.Tags)
	c.Deadline = cloneTime(t.Deadline)
	c.StartTime = cloneTime(t.StartTime)
	c.CompletionTime = cloneTime(t.CompletionTime)

	if t.OutputItems != nil {
		c.OutputItems = make([]ItemOutput, len(t.OutputItems))
		for i, out := range t.OutputItems {
			if out.QualityModifier != nil {
				q := *out.QualityModifier
				out.QualityModifier = &q
			}
			c.OutputItems[i] = out
		}
	}

	if t.History != nil {
		c.History = make([]HistoryEntry, len(t.History))
		for i, h := range t.History {
			h.Data = maps.Clone(h.Data)
			c.History[i] = h
		}
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// CreateTaskParams holds the caller-supplied fields for a new task. Zero
// values fall back to defaults: priority 5 and an {8h, 0.5, 2h} estimate.
type CreateTaskParams struct {
	Type           TaskType
	Name           string
	Description    string
	RequiredSkills []SkillRequirement
	// Priority is 1-10; zero selects DefaultTaskPriority.
	Priority      int
	Deadline      *time.Time
	Estimate      *TimeEstimate
	RequiredItems []ItemRequirement
	OutputItems   []ItemOutput
	Location      string
	Tags          []string
	IsUserCreated bool
	IsRecurring   bool
	// TemplateID records the template the task was instantiated from.
	TemplateID string
	// AssignTo, when positive, requests immediate assignment to that character.
	AssignTo int
}

// TaskTemplate is a reusable blueprint for creating tasks.
type TaskTemplate struct {
	ID              string             `yaml:"id" json:"id"`
	Name            string             `yaml:"name" json:"name"`
	Type            TaskType           `yaml:"type" json:"type"`
	Description     string             `yaml:"description,omitempty" json:"description,omitempty"`
	RequiredSkills  []SkillRequirement `yaml:"required_skills,omitempty" json:"required_skills,omitempty"`
	Estimate        TimeEstimate       `yaml:"estimate" json:"estimate"`
	RequiredItems   []ItemRequirement  `yaml:"required_items,omitempty" json:"required_items,omitempty"`
	OutputItems     []ItemOutput       `yaml:"output_items,omitempty" json:"output_items,omitempty"`
	DefaultPriority int                `yaml:"default_priority" json:"default_priority"`
	Tags            []string           `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// FitScore is the transient suitability of one character for one task.
type FitScore struct {
	CharacterID   int     `json:"character_id"`
	CharacterName string  `json:"character_name"`
	Overall       float64 `json:"overall"`
	Skill         float64 `json:"skill"`
	Availability  float64 `json:"availability"`
	Other         float64 `json:"other"`
	Eligible      bool    `json:"eligible"`
}
