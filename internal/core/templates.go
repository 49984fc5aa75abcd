package core

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"time"

	"github.com/valter-silva-au/settlement/pkg/models"
	"gopkg.in/yaml.v3"
)

// TemplateOverrides replaces template fields when instantiating a task.
// Zero values keep the template's value; Tags are appended.
type TemplateOverrides struct {
	Name          string
	Description   string
	Priority      int
	Deadline      *time.Time
	Location      string
	Tags          []string
	IsRecurring   bool
	IsUserCreated bool
	AssignTo      int
}

// TemplateManager defines the interface for listing task templates and
// creating tasks from them.
type TemplateManager interface {
	ListTemplates() []models.TaskTemplate
	GetTemplate(id string) (models.TaskTemplate, error)
	RegisterTemplate(tmpl models.TaskTemplate) error
	LoadTemplates(path string) (int, error)
	CreateFromTemplate(id string, overrides TemplateOverrides) (*models.Task, error)
}

// templateManager implements TemplateManager with built-in defaults and
// support for user templates loaded from YAML.
type templateManager struct {
	tasks     TaskManager
	templates map[string]models.TaskTemplate
}

// NewTemplateManager creates a TemplateManager seeded with the built-in
// templates that creates tasks through tasks.
func NewTemplateManager(tasks TaskManager) TemplateManager {
	tm := &templateManager{
		tasks:     tasks,
		templates: make(map[string]models.TaskTemplate),
	}
	for _, tmpl := range builtinTemplates() {
		tm.templates[tmpl.ID] = tmpl
	}
	return tm
}

// builtinTemplates returns the templates every settlement starts with.
func builtinTemplates() []models.TaskTemplate {
	return []models.TaskTemplate{
		{
			ID:          "wood-processing",
			Name:        "Wood processing",
			Type:        models.TaskTypeCrafting,
			Description: "Saw raw wood into planks",
			RequiredSkills: []models.SkillRequirement{
				{SkillID: "woodworking", SkillName: "Woodworking", RequiredLevel: 2},
			},
			Estimate:        models.TimeEstimate{BaseHours: 4, SkillFactor: 0.5, MinHours: 1},
			RequiredItems:   []models.ItemRequirement{{ItemID: "wood", ItemName: "Wood", Quantity: 2}},
			OutputItems:     []models.ItemOutput{{ItemID: "planks", ItemName: "Planks", Quantity: 4}},
			DefaultPriority: 5,
			Tags:            []string{"crafting", "wood"},
		},
		{
			ID:          "food-preparation",
			Name:        "Food preparation",
			Type:        models.TaskTypeCrafting,
			Description: "Cook rations for the settlement",
			RequiredSkills: []models.SkillRequirement{
				{SkillID: "cooking", SkillName: "Cooking", RequiredLevel: 3},
			},
			Estimate:        models.TimeEstimate{BaseHours: 3, SkillFactor: 0.6, MinHours: 1},
			RequiredItems:   []models.ItemRequirement{{ItemID: "wood", ItemName: "Firewood", Quantity: 3}},
			OutputItems:     []models.ItemOutput{{ItemID: "food", ItemName: "Food", Quantity: 6}},
			DefaultPriority: 6,
			Tags:            []string{"crafting", "food"},
		},
		{
			ID:          "resource-gathering",
			Name:        "Resource gathering",
			Type:        models.TaskTypeGathering,
			Description: "Collect basic resources around the settlement",
			RequiredSkills: []models.SkillRequirement{
				{SkillID: "foraging", SkillName: "Foraging", RequiredLevel: 1},
			},
			Estimate: models.TimeEstimate{BaseHours: 5, SkillFactor: 0.4, MinHours: 2},
			OutputItems: []models.ItemOutput{
				{ItemID: "wood", ItemName: "Wood", Quantity: 5},
				{ItemID: "stone", ItemName: "Stone", Quantity: 3},
			},
			DefaultPriority: 4,
			Tags:            []string{"gathering", "resources"},
		},
	}
}

// ListTemplates returns every template sorted by ID.
func (tm *templateManager) ListTemplates() []models.TaskTemplate {
	out := make([]models.TaskTemplate, 0, len(tm.templates))
	for _, tmpl := range tm.templates {
		out = append(out, tmpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetTemplate returns the template with the given ID.
func (tm *templateManager) GetTemplate(id string) (models.TaskTemplate, error) {
	tmpl, ok := tm.templates[id]
	if !ok {
		return models.TaskTemplate{}, fmt.Errorf("template %q: %w", id, ErrTemplateNotFound)
	}
	return tmpl, nil
}

// RegisterTemplate adds or replaces a template.
func (tm *templateManager) RegisterTemplate(tmpl models.TaskTemplate) error {
	tmpl, err := checkTemplate(tmpl)
	if err != nil {
		return err
	}
	tm.templates[tmpl.ID] = tmpl
	return nil
}

// checkTemplate validates tmpl and fills in the default estimate.
func checkTemplate(tmpl models.TaskTemplate) (models.TaskTemplate, error) {
	if tmpl.ID == "" {
		return tmpl, fmt.Errorf("registering template: id is required: %w", ErrInvalidArgument)
	}
	if tmpl.Name == "" {
		return tmpl, fmt.Errorf("registering template %s: name is required: %w", tmpl.ID, ErrInvalidArgument)
	}
	if !validTaskTypes[tmpl.Type] {
		return tmpl, fmt.Errorf("registering template %s: unknown type %q: %w", tmpl.ID, tmpl.Type, ErrInvalidArgument)
	}
	if tmpl.DefaultPriority != 0 && !models.ValidPriority(tmpl.DefaultPriority) {
		return tmpl, fmt.Errorf("registering template %s: default priority %d outside %d-%d: %w",
			tmpl.ID, tmpl.DefaultPriority, models.MinTaskPriority, models.MaxTaskPriority, ErrInvalidArgument)
	}
	if tmpl.Estimate == (models.TimeEstimate{}) {
		tmpl.Estimate = models.DefaultTimeEstimate
	}
	return tmpl, nil
}

// templatesFile is the on-disk shape of a user template file.
type templatesFile struct {
	Templates []models.TaskTemplate `yaml:"templates"`
}

// LoadTemplates registers every template in the YAML file at path and
// returns how many were loaded. The file is all or nothing: one invalid
// entry registers none of them. A missing file loads nothing.
func (tm *templateManager) LoadTemplates(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading templates file: %w", err)
	}

	var file templatesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parsing templates file: %w", err)
	}

	checked := make([]models.TaskTemplate, 0, len(file.Templates))
	for _, tmpl := range file.Templates {
		tmpl, err := checkTemplate(tmpl)
		if err != nil {
			return 0, fmt.Errorf("loading %s: %w", path, err)
		}
		checked = append(checked, tmpl)
	}
	for _, tmpl := range checked {
		tm.templates[tmpl.ID] = tmpl
	}
	return len(checked), nil
}

// CreateFromTemplate creates a task from the template with the given ID,
// applying overrides. The new task records the template in its history.
func (tm *templateManager) CreateFromTemplate(id string, overrides TemplateOverrides) (*models.Task, error) {
	tmpl, err := tm.GetTemplate(id)
	if err != nil {
		return nil, fmt.Errorf("creating task from template: %w", err)
	}

	estimate := tmpl.Estimate
	params := models.CreateTaskParams{
		Type:           tmpl.Type,
		Name:           tmpl.Name,
		Description:    tmpl.Description,
		RequiredSkills: tmpl.RequiredSkills,
		Priority:       tmpl.DefaultPriority,
		Deadline:       overrides.Deadline,
		Estimate:       &estimate,
		RequiredItems:  tmpl.RequiredItems,
		OutputItems:    tmpl.OutputItems,
		Location:       overrides.Location,
		Tags:           append(slices.Clone(tmpl.Tags), overrides.Tags...),
		IsUserCreated:  overrides.IsUserCreated,
		IsRecurring:    overrides.IsRecurring,
		TemplateID:     tmpl.ID,
		AssignTo:       overrides.AssignTo,
	}
	if overrides.Name != "" {
		params.Name = overrides.Name
	}
	if overrides.Description != "" {
		params.Description = overrides.Description
	}
	if overrides.Priority != 0 {
		params.Priority = overrides.Priority
	}

	return tm.tasks.CreateTask(params)
}
