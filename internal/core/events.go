package core

import "github.com/valter-silva-au/settlement/pkg/models"

// Event is a notification published by the task lifecycle or the simulation.
// The set of events is closed: only types in this package implement it.
type Event interface {
	// Name is the dotted event type written to the event log.
	Name() string
	// Data flattens the payload for the event log.
	Data() map[string]any
	event()
}

// TaskCreated is published after a task enters the store.
type TaskCreated struct {
	TaskID     string
	TaskName   string
	Type       models.TaskType
	Priority   int
	TemplateID string
}

// TaskAssigned is published after a character starts a task.
type TaskAssigned struct {
	TaskID      string
	CharacterID int
	Auto        bool
	Score       float64
}

// TaskUnassigned is published after a task returns to pending.
type TaskUnassigned struct {
	TaskID      string
	CharacterID int
}

// TaskProgressed is published when work advances without completing the task.
type TaskProgressed struct {
	TaskID      string
	CharacterID int
	Progress    float64
	Delta       float64
}

// TaskCompleted is published after outputs have been added to the inventory.
type TaskCompleted struct {
	TaskID      string
	CharacterID int
	Type        models.TaskType
	Quality     float64
	Outputs     []models.ItemOutput
}

// TaskFailed is published after a task is marked failed.
type TaskFailed struct {
	TaskID      string
	CharacterID int
	Reason      models.FailureReason
}

// TaskCancelled is published after a task is marked cancelled.
type TaskCancelled struct {
	TaskID         string
	PreviousStatus models.TaskStatus
}

// RecurringTaskCreated is published when completing a recurring task spawns
// its next cycle.
type RecurringTaskCreated struct {
	TaskID       string
	SourceTaskID string
	Cycle        int
}

// TasksAutoAssigned is published when an auto-assignment pass placed at
// least one task.
type TasksAutoAssigned struct {
	Count int
}

// DayChanged is published when the simulation clock enters a new date.
type DayChanged struct {
	Date models.GameDate
}

// FoodConsumed is published after the daily meal.
type FoodConsumed struct {
	Date       models.GameDate
	Population int
	Consumed   int
	Fed        int
	Hungry     []int
	Remaining  int
}

// HungerReported is published after a meal that left characters unfed.
type HungerReported struct {
	Date   models.GameDate
	Hungry []int
}

func (TaskCreated) event()          {}
func (TaskAssigned) event()         {}
func (TaskUnassigned) event()       {}
func (TaskProgressed) event()       {}
func (TaskCompleted) event()        {}
func (TaskFailed) event()           {}
func (TaskCancelled) event()        {}
func (RecurringTaskCreated) event() {}
func (TasksAutoAssigned) event()    {}
func (DayChanged) event()           {}
func (FoodConsumed) event()         {}
func (HungerReported) event()       {}

// Every variant of the closed set.
var (
	_ Event = TaskCreated{}
	_ Event = TaskAssigned{}
	_ Event = TaskUnassigned{}
	_ Event = TaskProgressed{}
	_ Event = TaskCompleted{}
	_ Event = TaskFailed{}
	_ Event = TaskCancelled{}
	_ Event = RecurringTaskCreated{}
	_ Event = TasksAutoAssigned{}
	_ Event = DayChanged{}
	_ Event = FoodConsumed{}
	_ Event = HungerReported{}
)

func (TaskCreated) Name() string          { return "task.created" }
func (TaskAssigned) Name() string         { return "task.assigned" }
func (TaskUnassigned) Name() string       { return "task.unassigned" }
func (TaskProgressed) Name() string       { return "task.progressed" }
func (TaskCompleted) Name() string        { return "task.completed" }
func (TaskFailed) Name() string           { return "task.failed" }
func (TaskCancelled) Name() string        { return "task.cancelled" }
func (RecurringTaskCreated) Name() string { return "task.recurring_created" }
func (TasksAutoAssigned) Name() string    { return "tasks.auto_assigned" }
func (DayChanged) Name() string           { return "sim.day_changed" }
func (FoodConsumed) Name() string         { return "food.consumed" }
func (HungerReported) Name() string       { return "food.hunger" }

func (e TaskCreated) Data() map[string]any {
	d := map[string]any{"task_id": e.TaskID, "name": e.TaskName, "type": string(e.Type), "priority": e.Priority}
	if e.TemplateID != "" {
		d["template_id"] = e.TemplateID
	}
	return d
}

func (e TaskAssigned) Data() map[string]any {
	return map[string]any{"task_id": e.TaskID, "character_id": e.CharacterID, "auto": e.Auto, "score": e.Score}
}

func (e TaskUnassigned) Data() map[string]any {
	return map[string]any{"task_id": e.TaskID, "character_id": e.CharacterID}
}

func (e TaskProgressed) Data() map[string]any {
	return map[string]any{"task_id": e.TaskID, "character_id": e.CharacterID, "progress": e.Progress, "delta": e.Delta}
}

func (e TaskCompleted) Data() map[string]any {
	produced := make(map[string]any, len(e.Outputs))
	for _, out := range e.Outputs {
		produced[out.ItemID] = out.Quantity
	}
	return map[string]any{
		"task_id":      e.TaskID,
		"character_id": e.CharacterID,
		"type":         string(e.Type),
		"quality":      e.Quality,
		"produced":     produced,
	}
}

func (e TaskFailed) Data() map[string]any {
	return map[string]any{"task_id": e.TaskID, "character_id": e.CharacterID, "reason": string(e.Reason)}
}

func (e TaskCancelled) Data() map[string]any {
	return map[string]any{"task_id": e.TaskID, "previous_status": string(e.PreviousStatus)}
}

func (e RecurringTaskCreated) Data() map[string]any {
	return map[string]any{"task_id": e.TaskID, "source_task_id": e.SourceTaskID, "cycle": e.Cycle}
}

func (e TasksAutoAssigned) Data() map[string]any {
	return map[string]any{"count": e.Count}
}

func (e DayChanged) Data() map[string]any {
	return map[string]any{"date": e.Date.String()}
}

func (e FoodConsumed) Data() map[string]any {
	return map[string]any{
		"date":       e.Date.String(),
		"population": e.Population,
		"consumed":   e.Consumed,
		"fed":        e.Fed,
		"hungry":     len(e.Hungry),
		"remaining":  e.Remaining,
	}
}

func (e HungerReported) Data() map[string]any {
	ids := make([]any, len(e.Hungry))
	for i, id := range e.Hungry {
		ids[i] = id
	}
	return map[string]any{"date": e.Date.String(), "count": len(e.Hungry), "characters": ids}
}

// Observer receives published events.
type Observer interface {
	OnEvent(e Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(e Event)

// OnEvent implements Observer.
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// EventBus fans events out to observers synchronously, in the order they
// subscribed. The zero value is ready to use; a nil *EventBus drops events.
type EventBus struct {
	observers []Observer
}

// NewEventBus creates an EventBus with no observers.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers o to receive every subsequent event.
func (b *EventBus) Subscribe(o Observer) {
	b.observers = append(b.observers, o)
}

// Publish delivers e to every observer before returning.
func (b *EventBus) Publish(e Event) {
	if b == nil {
		return
	}
	for _, o := range b.observers {
		o.OnEvent(e)
	}
}
