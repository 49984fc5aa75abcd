package core

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/valter-silva-au/settlement/pkg/models"
	"go.uber.org/zap"
)

// Work-state effects of progressing a task.
const (
	staminaCostPerHour   = 2.0
	lowStaminaThreshold  = 30.0
	lowStaminaEfficiency = 10.0
)

// TaskManager defines the interface for the task lifecycle: creation,
// assignment, progress, completion, failure, cancellation and scheduling.
//
// Mutating operations return nil on success. On any error no task,
// character or inventory state has changed. Malformed task or character
// IDs yield ErrInvalidID.
type TaskManager interface {
	CreateTask(params models.CreateTaskParams) (*models.Task, error)
	AssignTaskToRole(taskID string, characterID int) error
	UnassignTask(taskID string) error
	CancelTask(taskID string) error
	UpdateTaskProgress(taskID string, hours float64) error
	CompleteTask(taskID string) error
	FailTask(taskID string, reason models.FailureReason) error
	CheckTaskDeadlines() int
	AutoAssignRolesToTasks() int
	OnTimeUpdate(hour, day int)

	GetTask(taskID string) (*models.Task, error)
	GetAllTasks() []*models.Task
	GetTasksByStatus(status models.TaskStatus) []*models.Task
	GetTasksByType(taskType models.TaskType) []*models.Task
	GetTasksByCharacter(characterID int) ([]*models.Task, error)
	RankCandidates(taskID string) ([]models.FitScore, error)

	ExportTasks() []*models.Task
	ImportTasks(tasks []*models.Task) error
	Reset()
}

// taskManager implements TaskManager over an in-memory task list kept in
// creation order. It is not safe for concurrent use.
type taskManager struct {
	tasks []*models.Task
	index map[string]*models.Task

	inventory Inventory
	roster    CharacterRegistry
	settings  Settings
	clock     Clock
	ids       TaskIDGenerator
	bus       *EventBus
	log       *zap.Logger

	// lastHour and lastDay de-duplicate OnTimeUpdate calls.
	lastHour int
	lastDay  int
}

// NewTaskManager creates a new TaskManager with all dependencies injected.
// bus may be nil if no observers are needed.
func NewTaskManager(inventory Inventory, roster CharacterRegistry, settings Settings, clock Clock, bus *EventBus, log *zap.Logger) TaskManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &taskManager{
		index:     make(map[string]*models.Task),
		inventory: inventory,
		roster:    roster,
		settings:  settings,
		clock:     clock,
		ids:       NewTaskIDGenerator(),
		bus:       bus,
		log:       log,
		lastHour:  -1,
		lastDay:   -1,
	}
}

// validTaskTypes is the set of allowed TaskType values.
var validTaskTypes = map[models.TaskType]bool{
	models.TaskTypeCrafting:    true,
	models.TaskTypeGathering:   true,
	models.TaskTypeBuilding:    true,
	models.TaskTypeResearch:    true,
	models.TaskTypeMaintenance: true,
	models.TaskTypeTraining:    true,
}

// CreateTask adds a pending task built from params. When params.AssignTo is
// set the task is immediately offered to that character through the normal
// assignment path; if the assignment is declined the task stays pending.
func (tm *taskManager) CreateTask(params models.CreateTaskParams) (*models.Task, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, fmt.Errorf("creating task: name is required: %w", ErrInvalidArgument)
	}
	if !validTaskTypes[params.Type] {
		return nil, fmt.Errorf("creating task: unknown type %q: %w", params.Type, ErrInvalidArgument)
	}
	if params.Priority != 0 && !models.ValidPriority(params.Priority) {
		return nil, fmt.Errorf("creating task: priority %d outside %d-%d: %w",
			params.Priority, models.MinTaskPriority, models.MaxTaskPriority, ErrInvalidArgument)
	}
	if params.AssignTo < 0 {
		return nil, fmt.Errorf("creating task: %w", ValidateCharacterID(params.AssignTo))
	}

	task := tm.newTask(params, tm.clock.Now())
	tm.insert(task)

	if params.AssignTo > 0 {
		if err := tm.AssignTaskToRole(task.ID, params.AssignTo); err != nil {
			tm.log.Warn("direct assignment declined",
				zap.String("task_id", task.ID),
				zap.Int("character_id", params.AssignTo),
				zap.Error(err))
		}
	}

	return task.Clone(), nil
}

// newTask builds a pending task without storing it.
func (tm *taskManager) newTask(params models.CreateTaskParams, now time.Time) *models.Task {
	estimate := models.DefaultTimeEstimate
	if params.Estimate != nil {
		estimate = *params.Estimate
	}
	priority := params.Priority
	if priority == 0 {
		priority = models.DefaultTaskPriority
	}

	task := &models.Task{
		ID:             tm.nextID(),
		Type:           params.Type,
		Name:           params.Name,
		Description:    params.Description,
		RequiredSkills: slices.Clone(params.RequiredSkills),
		Priority:       priority,
		CreatedAt:      now,
		Status:         models.StatusPending,
		Estimate:       estimate,
		RequiredItems:  slices.Clone(params.RequiredItems),
		OutputItems:    baseOutputs(params.OutputItems),
		Location:       params.Location,
		Tags:           slices.Clone(params.Tags),
		IsUserCreated:  params.IsUserCreated,
		IsRecurring:    params.IsRecurring,
		TemplateID:     params.TemplateID,
	}
	if params.Deadline != nil {
		d := *params.Deadline
		task.Deadline = &d
	}
	if task.IsRecurring {
		task.Cycle = 1
	}

	task.History = []models.HistoryEntry{{
		Timestamp:   now,
		Type:        models.HistoryCreated,
		Description: "task created",
	}}
	if params.TemplateID != "" {
		task.History = append(task.History, models.HistoryEntry{
			Timestamp:   now,
			Type:        models.HistoryTemplateUsed,
			Description: fmt.Sprintf("created from template %s", params.TemplateID),
			Data:        map[string]any{"template_id": params.TemplateID},
		})
	}
	return task
}

// nextID returns a task ID not already in the store.
func (tm *taskManager) nextID() string {
	for {
		id := tm.ids.GenerateTaskID()
		if _, exists := tm.index[id]; !exists {
			return id
		}
	}
}

// insert stores task and announces it.
func (tm *taskManager) insert(task *models.Task) {
	tm.tasks = append(tm.tasks, task)
	tm.index[task.ID] = task

	tm.log.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("name", task.Name),
		zap.String("type", string(task.Type)),
		zap.Int("priority", task.Priority))
	tm.bus.Publish(TaskCreated{
		TaskID:     task.ID,
		TaskName:   task.Name,
		Type:       task.Type,
		Priority:   task.Priority,
		TemplateID: task.TemplateID,
	})
}

// AssignTaskToRole starts a pending task with the given character and
// consumes the task's required items.
func (tm *taskManager) AssignTaskToRole(taskID string, characterID int) error {
	task, err := tm.findTask(taskID)
	if err != nil {
		return fmt.Errorf("assigning task: %w", err)
	}
	c, err := tm.findCharacter(characterID)
	if err != nil {
		return fmt.Errorf("assigning task %s: %w", taskID, err)
	}
	if err := tm.assign(task, c, nil); err != nil {
		return fmt.Errorf("assigning task %s: %w", taskID, err)
	}
	return nil
}

// assign performs the pending -> in_progress transition. score is non-nil
// when the assignment was chosen by the scheduler.
func (tm *taskManager) assign(task *models.Task, c *models.Character, score *models.FitScore) error {
	if task.Status != models.StatusPending {
		return fmt.Errorf("task is %s: %w", task.Status, ErrInvalidTransition)
	}
	if !c.IsIdle() {
		return fmt.Errorf("character %d: %w", c.ID, ErrCharacterBusy)
	}
	if missing := tm.missingItems(task); len(missing) > 0 {
		return fmt.Errorf("missing %s: %w", strings.Join(missing, ", "), ErrInsufficientItems)
	}

	now := tm.clock.Now()
	task.AssignedCharacterID = c.ID
	task.Status = models.StatusInProgress
	task.StartTime = &now
	c.CurrentTaskID = task.ID
	c.IsAvailable = false

	for _, item := range task.RequiredItems {
		tm.inventory.Remove(item.ItemID, item.Quantity)
	}

	task.History = append(task.History, models.HistoryEntry{
		Timestamp:   now,
		Type:        models.HistoryAssigned,
		Description: fmt.Sprintf("assigned to %s", c.Name),
		Data:        map[string]any{"character_id": c.ID},
	})

	event := TaskAssigned{TaskID: task.ID, CharacterID: c.ID}
	if score != nil {
		task.History = append(task.History, models.HistoryEntry{
			Timestamp:   now,
			Type:        models.HistoryAutoAssigned,
			Description: fmt.Sprintf("automatically assigned to %s", c.Name),
			Data:        map[string]any{"character_id": c.ID, "score": score.Overall},
		})
		event.Auto = true
		event.Score = score.Overall
	}

	tm.log.Info("task assigned",
		zap.String("task_id", task.ID),
		zap.Int("character_id", c.ID),
		zap.Bool("auto", event.Auto))
	tm.bus.Publish(event)
	return nil
}

// missingItems lists the required items the inventory cannot cover, as
// "item (have/need)" strings. Repeated item IDs are summed.
func (tm *taskManager) missingItems(task *models.Task) []string {
	need := make(map[string]int)
	var order []string
	for _, item := range task.RequiredItems {
		if _, seen := need[item.ItemID]; !seen {
			order = append(order, item.ItemID)
		}
		need[item.ItemID] += item.Quantity
	}

	var missing []string
	for _, id := range order {
		if have := tm.inventory.Quantity(id); have < need[id] {
			missing = append(missing, fmt.Sprintf("%s (%d/%d)", id, have, need[id]))
		}
	}
	return missing
}

// UnassignTask returns an in-progress task to pending, frees its character
// and gives back the consumed items.
func (tm *taskManager) UnassignTask(taskID string) error {
	task, err := tm.findTask(taskID)
	if err != nil {
		return fmt.Errorf("unassigning task: %w", err)
	}
	if task.Status != models.StatusInProgress {
		return fmt.Errorf("unassigning task %s: task is %s: %w", taskID, task.Status, ErrInvalidTransition)
	}
	tm.unassign(task, tm.clock.Now())
	return nil
}

func (tm *taskManager) unassign(task *models.Task, now time.Time) {
	characterID := task.AssignedCharacterID
	if c, ok := tm.roster.Character(characterID); ok && c.CurrentTaskID == task.ID {
		c.CurrentTaskID = ""
		c.IsAvailable = true
	}

	task.Status = models.StatusPending
	task.Progress = 0
	task.StartTime = nil
	task.AssignedCharacterID = 0

	for _, item := range task.RequiredItems {
		tm.inventory.Add(item.ItemID, item.Quantity)
	}

	task.History = append(task.History, models.HistoryEntry{
		Timestamp:   now,
		Type:        models.HistoryUnassigned,
		Description: "returned to pending",
		Data:        map[string]any{"character_id": characterID},
	})

	tm.log.Info("task unassigned", zap.String("task_id", task.ID), zap.Int("character_id", characterID))
	tm.bus.Publish(TaskUnassigned{TaskID: task.ID, CharacterID: characterID})
}

// CancelTask cancels a pending or in-progress task. An in-progress task is
// unassigned first, so its items are returned. Cancelling a finished task
// returns ErrTaskTerminal.
func (tm *taskManager) CancelTask(taskID string) error {
	task, err := tm.findTask(taskID)
	if err != nil {
		return fmt.Errorf("cancelling task: %w", err)
	}
	if task.Status.IsTerminal() {
		return fmt.Errorf("cancelling task %s: task is %s: %w", taskID, task.Status, ErrTaskTerminal)
	}

	now := tm.clock.Now()
	previous := task.Status
	if previous == models.StatusInProgress {
		tm.unassign(task, now)
	}

	task.Status = models.StatusCancelled
	task.History = append(task.History, models.HistoryEntry{
		Timestamp:   now,
		Type:        models.HistoryCancelled,
		Description: "task cancelled",
		Data:        map[string]any{"previous_status": string(previous)},
	})

	tm.log.Info("task cancelled", zap.String("task_id", task.ID))
	tm.bus.Publish(TaskCancelled{TaskID: task.ID, PreviousStatus: previous})
	return nil
}

// UpdateTaskProgress applies hours of work by the assigned character. It
// drains stamina, lowers efficiency while stamina is low, and completes the
// task when progress reaches 100.
func (tm *taskManager) UpdateTaskProgress(taskID string, hours float64) error {
	if hours < 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return fmt.Errorf("updating progress: hours %v: %w", hours, ErrInvalidArgument)
	}
	task, c, err := tm.activeTask(taskID)
	if err != nil {
		return fmt.Errorf("updating progress: %w", err)
	}
	tm.progress(task, c, hours)
	return nil
}

func (tm *taskManager) progress(task *models.Task, c *models.Character, hours float64) {
	efficiency := c.WorkState.Efficiency / 100
	delta := HourlyProgress(task, c) * hours * efficiency
	task.Progress = min(100, task.Progress+delta)

	c.WorkState.Stamina = max(0, c.WorkState.Stamina-hours*staminaCostPerHour)
	if c.WorkState.Stamina < lowStaminaThreshold {
		c.WorkState.Efficiency = max(models.MinEfficiency, c.WorkState.Efficiency-lowStaminaEfficiency)
	}

	if task.Progress >= 100 {
		tm.complete(task, c)
		return
	}
	tm.bus.Publish(TaskProgressed{TaskID: task.ID, CharacterID: c.ID, Progress: task.Progress, Delta: delta})
}

// CompleteTask finishes an in-progress task immediately, producing its
// outputs scaled by the worker's quality modifier.
func (tm *taskManager) CompleteTask(taskID string) error {
	task, c, err := tm.activeTask(taskID)
	if err != nil {
		return fmt.Errorf("completing task: %w", err)
	}
	tm.complete(task, c)
	return nil
}

func (tm *taskManager) complete(task *models.Task, c *models.Character) {
	now := tm.clock.Now()
	base := baseOutputs(task.OutputItems)
	quality := QualityModifier(task, c)

	for i := range task.OutputItems {
		qty := int(math.Floor(float64(base[i].Quantity) * quality))
		tm.inventory.Add(base[i].ItemID, qty)
		q := quality
		task.OutputItems[i].Quantity = qty
		task.OutputItems[i].QualityModifier = &q
	}

	task.Status = models.StatusCompleted
	task.Progress = 100
	task.CompletionTime = &now
	task.History = append(task.History, models.HistoryEntry{
		Timestamp:   now,
		Type:        models.HistoryCompleted,
		Description: fmt.Sprintf("completed by %s", c.Name),
		Data:        map[string]any{"character_id": c.ID, "quality": quality},
	})

	c.CurrentTaskID = ""
	c.IsAvailable = true
	c.WorkState.TaskHistory = append([]string{task.ID}, c.WorkState.TaskHistory...)
	if len(c.WorkState.TaskHistory) > models.MaxTaskHistory {
		c.WorkState.TaskHistory = c.WorkState.TaskHistory[:models.MaxTaskHistory]
	}

	tm.log.Info("task completed",
		zap.String("task_id", task.ID),
		zap.Int("character_id", c.ID),
		zap.Float64("quality", quality))
	tm.bus.Publish(TaskCompleted{
		TaskID:      task.ID,
		CharacterID: c.ID,
		Type:        task.Type,
		Quality:     quality,
		Outputs:     slices.Clone(task.OutputItems),
	})

	if task.IsRecurring {
		tm.spawnRecurrence(task, base, now)
	}
}

// spawnRecurrence creates the next cycle of a completed recurring task with
// the source's unscaled outputs.
func (tm *taskManager) spawnRecurrence(source *models.Task, outputs []models.ItemOutput, now time.Time) {
	estimate := source.Estimate
	next := tm.newTask(models.CreateTaskParams{
		Type:           source.Type,
		Name:           source.Name,
		Description:    source.Description,
		RequiredSkills: source.RequiredSkills,
		Priority:       source.Priority,
		Estimate:       &estimate,
		RequiredItems:  source.RequiredItems,
		OutputItems:    outputs,
		Location:       source.Location,
		Tags:           source.Tags,
		IsUserCreated:  source.IsUserCreated,
		IsRecurring:    true,
	}, now)
	next.TemplateID = source.TemplateID
	next.SourceTaskID = source.ID
	next.Cycle = max(source.Cycle, 1) + 1
	next.History = append(next.History, models.HistoryEntry{
		Timestamp:   now,
		Type:        models.HistoryRecurringCreation,
		Description: fmt.Sprintf("recurrence of %s", source.ID),
		Data:        map[string]any{"source_task_id": source.ID, "cycle": next.Cycle},
	})

	tm.insert(next)
	tm.bus.Publish(RecurringTaskCreated{TaskID: next.ID, SourceTaskID: source.ID, Cycle: next.Cycle})
}

// baseOutputs copies outputs with any quality modifier cleared.
func baseOutputs(outputs []models.ItemOutput) []models.ItemOutput {
	if outputs == nil {
		return nil
	}
	base := make([]models.ItemOutput, len(outputs))
	for i, out := range outputs {
		out.QualityModifier = nil
		base[i] = out
	}
	return base
}

// FailTask marks a pending or in-progress task failed. The assigned
// character is freed but consumed items are forfeited. An empty reason is
// recorded as "other".
func (tm *taskManager) FailTask(taskID string, reason models.FailureReason) error {
	task, err := tm.findTask(taskID)
	if err != nil {
		return fmt.Errorf("failing task: %w", err)
	}
	if task.Status.IsTerminal() {
		return fmt.Errorf("failing task %s: task is %s: %w", taskID, task.Status, ErrTaskTerminal)
	}
	if reason == "" {
		reason = models.FailureOther
	}
	tm.fail(task, reason, tm.clock.Now())
	return nil
}

func (tm *taskManager) fail(task *models.Task, reason models.FailureReason, now time.Time) {
	characterID := 0
	if task.Status == models.StatusInProgress {
		characterID = task.AssignedCharacterID
		if c, ok := tm.roster.Character(characterID); ok && c.CurrentTaskID == task.ID {
			c.CurrentTaskID = ""
			c.IsAvailable = true
		}
	}

	task.Status = models.StatusFailed
	task.FailureReason = reason
	task.History = append(task.History, models.HistoryEntry{
		Timestamp:   now,
		Type:        models.HistoryFailed,
		Description: fmt.Sprintf("task failed: %s", reason),
		Data:        map[string]any{"reason": string(reason), "character_id": characterID},
	})

	tm.log.Info("task failed", zap.String("task_id", task.ID), zap.String("reason", string(reason)))
	tm.bus.Publish(TaskFailed{TaskID: task.ID, CharacterID: characterID, Reason: reason})
}

// CheckTaskDeadlines fails every unfinished task whose deadline has passed
// and returns how many expired.
func (tm *taskManager) CheckTaskDeadlines() int {
	now := tm.clock.Now()
	expired := 0
	for _, task := range tm.tasks {
		if task.Status.IsTerminal() || task.Deadline == nil {
			continue
		}
		if now.After(*task.Deadline) {
			tm.fail(task, models.FailureExpired, now)
			expired++
		}
	}
	return expired
}

// AutoAssignRolesToTasks greedily matches idle characters to pending tasks,
// highest priority first. Each task goes to the best-scoring eligible
// character still in the pool; on equal scores the character listed first
// in the registry wins. Tasks whose items are short are skipped.
func (tm *taskManager) AutoAssignRolesToTasks() int {
	pending := tm.byStatus(models.StatusPending)
	if len(pending) == 0 {
		return 0
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Priority > pending[j].Priority
	})

	var pool []*models.Character
	for _, c := range tm.roster.Characters() {
		if c.IsIdle() {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return 0
	}

	assigned := 0
	for _, task := range pending {
		var best *models.Character
		var bestScore models.FitScore
		for _, c := range pool {
			if CheckEligibility(task, c) != nil {
				continue
			}
			score := ScoreCharacter(task, c)
			if best == nil || score.Overall > bestScore.Overall {
				best, bestScore = c, score
			}
		}
		if best == nil || len(tm.missingItems(task)) > 0 {
			continue
		}

		if err := tm.assign(task, best, &bestScore); err != nil {
			tm.log.Debug("auto-assignment skipped", zap.String("task_id", task.ID), zap.Error(err))
			continue
		}
		assigned++

		chosen := best.ID
		pool = slices.DeleteFunc(pool, func(c *models.Character) bool { return c.ID == chosen })
		if len(pool) == 0 {
			break
		}
	}

	if assigned > 0 {
		tm.log.Info("tasks auto-assigned", zap.Int("count", assigned))
		tm.bus.Publish(TasksAutoAssigned{Count: assigned})
	}
	return assigned
}

// OnTimeUpdate runs one hour of work: progress for every in-progress task,
// then deadline checks, then auto-assignment if enabled. Repeated calls with
// the same hour and day do nothing.
func (tm *taskManager) OnTimeUpdate(hour, day int) {
	if hour == tm.lastHour && day == tm.lastDay {
		return
	}
	tm.lastHour, tm.lastDay = hour, day

	for _, task := range tm.byStatus(models.StatusInProgress) {
		c, ok := tm.roster.Character(task.AssignedCharacterID)
		if !ok {
			tm.log.Warn("in-progress task has no worker",
				zap.String("task_id", task.ID),
				zap.Int("character_id", task.AssignedCharacterID))
			continue
		}
		tm.progress(task, c, 1)
	}

	tm.CheckTaskDeadlines()

	if tm.settings != nil && tm.settings.AutoAssignEnabled() {
		tm.AutoAssignRolesToTasks()
	}
}

// GetTask returns a copy of the task with the given ID.
func (tm *taskManager) GetTask(taskID string) (*models.Task, error) {
	task, err := tm.findTask(taskID)
	if err != nil {
		return nil, err
	}
	return task.Clone(), nil
}

// GetAllTasks returns copies of every task in creation order.
func (tm *taskManager) GetAllTasks() []*models.Task {
	return cloneTasks(tm.tasks)
}

// GetTasksByStatus returns copies of the tasks with the given status.
func (tm *taskManager) GetTasksByStatus(status models.TaskStatus) []*models.Task {
	return cloneTasks(tm.byStatus(status))
}

// GetTasksByType returns copies of the tasks of the given type.
func (tm *taskManager) GetTasksByType(taskType models.TaskType) []*models.Task {
	var out []*models.Task
	for _, task := range tm.tasks {
		if task.Type == taskType {
			out = append(out, task.Clone())
		}
	}
	return out
}

// GetTasksByCharacter returns copies of the tasks the character is or was
// assigned to.
func (tm *taskManager) GetTasksByCharacter(characterID int) ([]*models.Task, error) {
	if err := ValidateCharacterID(characterID); err != nil {
		return nil, err
	}
	var out []*models.Task
	for _, task := range tm.tasks {
		if task.AssignedCharacterID == characterID {
			out = append(out, task.Clone())
		}
	}
	return out, nil
}

// RankCandidates scores every character for the task, best first. Ties keep
// registry order.
func (tm *taskManager) RankCandidates(taskID string) ([]models.FitScore, error) {
	task, err := tm.findTask(taskID)
	if err != nil {
		return nil, err
	}
	var scores []models.FitScore
	for _, c := range tm.roster.Characters() {
		scores = append(scores, ScoreCharacter(task, c))
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Overall > scores[j].Overall
	})
	return scores, nil
}

// ExportTasks returns deep copies of every task for persistence.
func (tm *taskManager) ExportTasks() []*models.Task {
	return cloneTasks(tm.tasks)
}

// ImportTasks replaces the store with copies of tasks, preserving order and
// every field. IDs must be well formed and unique.
func (tm *taskManager) ImportTasks(tasks []*models.Task) error {
	index := make(map[string]*models.Task, len(tasks))
	list := make([]*models.Task, 0, len(tasks))
	for i, task := range tasks {
		if task == nil {
			return fmt.Errorf("importing tasks: entry %d is nil: %w", i, ErrInvalidArgument)
		}
		if err := ValidateTaskID(task.ID); err != nil {
			return fmt.Errorf("importing tasks: %w", err)
		}
		if _, dup := index[task.ID]; dup {
			return fmt.Errorf("importing tasks: duplicate id %s: %w", task.ID, ErrInvalidArgument)
		}
		c := task.Clone()
		index[c.ID] = c
		list = append(list, c)
	}

	tm.tasks = list
	tm.index = index
	tm.lastHour, tm.lastDay = -1, -1
	tm.log.Debug("tasks imported", zap.Int("count", len(list)))
	return nil
}

// Reset removes every task and clears the time-update watermark.
func (tm *taskManager) Reset() {
	tm.tasks = nil
	tm.index = make(map[string]*models.Task)
	tm.lastHour, tm.lastDay = -1, -1
}

// findTask validates the ID and looks up the live task record.
func (tm *taskManager) findTask(taskID string) (*models.Task, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}
	task, ok := tm.index[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	return task, nil
}

// findCharacter validates the ID and looks up the live character record.
func (tm *taskManager) findCharacter(characterID int) (*models.Character, error) {
	if err := ValidateCharacterID(characterID); err != nil {
		return nil, err
	}
	c, ok := tm.roster.Character(characterID)
	if !ok {
		return nil, fmt.Errorf("character %d: %w", characterID, ErrCharacterNotFound)
	}
	return c, nil
}

// activeTask returns an in-progress task together with its worker.
func (tm *taskManager) activeTask(taskID string) (*models.Task, *models.Character, error) {
	task, err := tm.findTask(taskID)
	if err != nil {
		return nil, nil, err
	}
	if task.Status != models.StatusInProgress || task.AssignedCharacterID == 0 {
		return nil, nil, fmt.Errorf("task %s is %s: %w", taskID, task.Status, ErrInvalidTransition)
	}
	c, ok := tm.roster.Character(task.AssignedCharacterID)
	if !ok {
		return nil, nil, fmt.Errorf("task %s worker %d: %w", taskID, task.AssignedCharacterID, ErrCharacterNotFound)
	}
	return task, c, nil
}

func (tm *taskManager) byStatus(status models.TaskStatus) []*models.Task {
	var out []*models.Task
	for _, task := range tm.tasks {
		if task.Status == status {
			out = append(out, task)
		}
	}
	return out
}

func cloneTasks(tasks []*models.Task) []*models.Task {
	out := make([]*models.Task, len(tasks))
	for i, task := range tasks {
		out[i] = task.Clone()
	}
	return out
}
