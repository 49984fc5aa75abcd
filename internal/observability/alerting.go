package observability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/valter-silva-au/settlement/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	LowFoodDays        int `yaml:"low_food_days" json:"low_food_days"`
	MaxPendingTasks    int `yaml:"max_pending_tasks" json:"max_pending_tasks"`
	ExpiredWindowHours int `yaml:"expired_window_hours" json:"expired_window_hours"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		LowFoodDays:        3,
		MaxPendingTasks:    20,
		ExpiredWindowHours: 24,
	}
}

// SettlementState is the live state the alert conditions are checked
// against. Now is game time.
type SettlementState struct {
	Now          time.Time
	Population   int
	DailyDemand  int
	FoodStock    int
	PendingTasks int
}

// AlertEngine evaluates alert conditions against the event log and the
// current settlement state.
type AlertEngine interface {
	Evaluate(state SettlementState) ([]Alert, error)
}

// alertEngine implements AlertEngine by reading events and checking thresholds.
type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
}

// NewAlertEngine creates a new AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
	}
}

// Evaluate checks all alert conditions, returning any triggered alerts
// ordered from most to least severe.
func (ae *alertEngine) Evaluate(state SettlementState) ([]Alert, error) {
	var alerts []Alert

	hungerAlerts, err := ae.checkHunger(state.Now)
	if err != nil {
		return nil, fmt.Errorf("checking hunger: %w", err)
	}
	alerts = append(alerts, hungerAlerts...)

	alerts = append(alerts, ae.checkFoodStock(state)...)

	expiredAlerts, err := ae.checkExpiredTasks(state.Now)
	if err != nil {
		return nil, fmt.Errorf("checking expired tasks: %w", err)
	}
	alerts = append(alerts, expiredAlerts...)

	alerts = append(alerts, ae.checkPendingBacklog(state)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return severityRank(alerts[i].Severity) < severityRank(alerts[j].Severity)
	})
	return alerts, nil
}

// AtLeast reports whether s is as severe as floor or more.
func (s AlertSeverity) AtLeast(floor AlertSeverity) bool {
	return severityRank(s) <= severityRank(floor)
}

// ParseSeverity accepts high, medium or low in any case.
func ParseSeverity(v string) (AlertSeverity, error) {
	switch s := AlertSeverity(strings.ToLower(strings.TrimSpace(v))); s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return s, nil
	default:
		return "", fmt.Errorf("unknown severity %q (use high, medium or low)", v)
	}
}

func severityRank(s AlertSeverity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// checkHunger alerts when the most recent meal left characters unfed.
func (ae *alertEngine) checkHunger(now time.Time) ([]Alert, error) {
	events, err := ae.eventLog.Read(EventFilter{Types: []string{"food.consumed"}})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	last := events[len(events)-1]
	hungry := intValue(last.Data["hungry"])
	if hungry == 0 {
		return nil, nil
	}
	date, _ := last.Data["date"].(string)
	return []Alert{{
		ID:          fmt.Sprintf("hunger-%s", date),
		Condition:   "characters_hungry",
		Severity:    SeverityHigh,
		Message:     fmt.Sprintf("%d characters went hungry at the meal on %s", hungry, date),
		TriggeredAt: now,
	}}, nil
}

// checkFoodStock alerts when the stock covers fewer than LowFoodDays meals.
func (ae *alertEngine) checkFoodStock(state SettlementState) []Alert {
	if state.DailyDemand <= 0 {
		return nil
	}
	need := ae.thresholds.LowFoodDays * state.DailyDemand
	if state.FoodStock >= need {
		return nil
	}
	return []Alert{{
		ID:        "food-low",
		Condition: "food_stock_low",
		Severity:  SeverityMedium,
		Message: fmt.Sprintf("food stock %d covers less than %d days for %d characters",
			state.FoodStock, ae.thresholds.LowFoodDays, state.Population),
		TriggeredAt: state.Now,
	}}
}

// checkExpiredTasks alerts for tasks that missed their deadline within the
// last ExpiredWindowHours of game time.
func (ae *alertEngine) checkExpiredTasks(now time.Time) ([]Alert, error) {
	from := now.Add(-time.Duration(ae.thresholds.ExpiredWindowHours) * time.Hour)
	events, err := ae.eventLog.Read(EventFilter{
		Types:     []string{"task.failed"},
		GameSince: &from,
		GameUntil: &now,
	})
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	for _, event := range events {
		if reason, _ := event.Data["reason"].(string); reason != "expired" {
			continue
		}
		at := *event.GameTime
		taskID, _ := event.Data["task_id"].(string)
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("expired-%s", taskID),
			Condition:   "task_expired",
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("task %s missed its deadline at %s", taskID, at.Format("2006-01-02 15:04")),
			TriggeredAt: now,
		})
	}
	return alerts, nil
}

// checkPendingBacklog alerts when too many tasks are waiting for a worker.
func (ae *alertEngine) checkPendingBacklog(state SettlementState) []Alert {
	if state.PendingTasks <= ae.thresholds.MaxPendingTasks {
		return nil
	}
	return []Alert{{
		ID:        "pending-backlog",
		Condition: "pending_backlog_too_large",
		Severity:  SeverityLow,
		Message: fmt.Sprintf("%d tasks are pending, exceeding the maximum of %d",
			state.PendingTasks, ae.thresholds.MaxPendingTasks),
		TriggeredAt: state.Now,
	}}
}

// StateOf derives the alert state from a settlement status.
func StateOf(st models.SettlementStatus) SettlementState {
	return SettlementState{
		Now:          st.Time.Time(),
		Population:   st.Population,
		DailyDemand:  st.DailyDemand,
		FoodStock:    st.FoodStock,
		PendingTasks: st.Tasks[models.StatusPending],
	}
}
