package observability

import (
	"fmt"
	"time"
)

// Metrics aggregates the event log over a real-time window.
type Metrics struct {
	TasksCreated      int            `json:"tasks_created"`
	TasksCompleted    int            `json:"tasks_completed"`
	TasksFailed       int            `json:"tasks_failed"`
	TasksCancelled    int            `json:"tasks_cancelled"`
	TasksAutoAssigned int            `json:"tasks_auto_assigned"`
	RecurringCreated  int            `json:"recurring_created"`
	TasksByType       map[string]int `json:"tasks_by_type"`
	FailuresByReason  map[string]int `json:"failures_by_reason"`
	ItemsProduced     map[string]int `json:"items_produced"`
	FoodConsumed      int            `json:"food_consumed"`
	Meals             int            `json:"meals"`
	HungerDays        int            `json:"hunger_days"`
	DaysElapsed       int            `json:"days_elapsed"`
	EventCount        int            `json:"event_count"`
	OldestEvent       *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent       *time.Time     `json:"newest_event,omitempty"`
	// GameStart and GameEnd bound the simulation time the window covers.
	GameStart *time.Time `json:"game_start,omitempty"`
	GameEnd   *time.Time `json:"game_end,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator reading from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// tally folds one event of a known type into m.
type tally func(m *Metrics, data map[string]any)

var tallies = map[string]tally{
	"task.created": func(m *Metrics, d map[string]any) {
		m.TasksCreated++
		if t, ok := d["type"].(string); ok {
			m.TasksByType[t]++
		}
	},
	"task.completed": func(m *Metrics, d map[string]any) {
		m.TasksCompleted++
		produced, _ := d["produced"].(map[string]any)
		for item, q := range produced {
			m.ItemsProduced[item] += intValue(q)
		}
	},
	"task.failed": func(m *Metrics, d map[string]any) {
		m.TasksFailed++
		if r, ok := d["reason"].(string); ok {
			m.FailuresByReason[r]++
		}
	},
	"task.cancelled":         func(m *Metrics, _ map[string]any) { m.TasksCancelled++ },
	"task.recurring_created": func(m *Metrics, _ map[string]any) { m.RecurringCreated++ },
	"tasks.auto_assigned":    func(m *Metrics, d map[string]any) { m.TasksAutoAssigned += intValue(d["count"]) },
	"sim.day_changed":        func(m *Metrics, _ map[string]any) { m.DaysElapsed++ },
	"food.consumed": func(m *Metrics, d map[string]any) {
		m.Meals++
		m.FoodConsumed += intValue(d["consumed"])
	},
	"food.hunger": func(m *Metrics, _ map[string]any) { m.HungerDays++ },
}

// Calculate aggregates every event recorded at or after since. Unknown
// event types count toward EventCount only.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("calculating metrics: %w", err)
	}

	m := &Metrics{
		EventCount:       len(events),
		TasksByType:      make(map[string]int),
		FailuresByReason: make(map[string]int),
		ItemsProduced:    make(map[string]int),
	}
	if len(events) > 0 {
		oldest, newest := events[0].Time, events[len(events)-1].Time
		m.OldestEvent, m.NewestEvent = &oldest, &newest
	}

	for _, e := range events {
		if f, ok := tallies[e.Type]; ok {
			f(m, e.Data)
		}
		if e.GameTime == nil {
			continue
		}
		if m.GameStart == nil || e.GameTime.Before(*m.GameStart) {
			m.GameStart = e.GameTime
		}
		if m.GameEnd == nil || e.GameTime.After(*m.GameEnd) {
			m.GameEnd = e.GameTime
		}
	}
	return m, nil
}
