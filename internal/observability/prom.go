package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valter-silva-au/settlement/pkg/models"
)

// LiveState is the settlement state mirrored into Prometheus gauges.
type LiveState struct {
	GameHour   int
	GameDay    int
	Population int
	FoodStock  int
	Hungry     int
	Pending    int
	InProgress int
}

// Collector exports settlement counters and gauges to Prometheus. Counters
// are fed through LogEvent, so a Collector can observe the same event stream
// as the JSONL log. Metrics are registered on a private registry.
type Collector struct {
	registry *prometheus.Registry

	tasksCreated   *prometheus.CounterVec
	tasksCompleted *prometheus.CounterVec
	tasksFailed    *prometheus.CounterVec
	tasksCancelled prometheus.Counter
	autoAssigned   prometheus.Counter
	itemsProduced  *prometheus.CounterVec
	foodConsumed   prometheus.Counter
	hungerEvents   prometheus.Counter
	daysElapsed    prometheus.Counter

	gameHour   prometheus.Gauge
	gameDay    prometheus.Gauge
	population prometheus.Gauge
	foodStock  prometheus.Gauge
	hungry     prometheus.Gauge
	tasks      *prometheus.GaugeVec
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		tasksCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_tasks_created_total",
			Help: "Total number of tasks created, partitioned by task type.",
		}, []string{"type"}),
		tasksCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_tasks_completed_total",
			Help: "Total number of tasks completed, partitioned by task type.",
		}, []string{"type"}),
		tasksFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_tasks_failed_total",
			Help: "Total number of tasks failed, partitioned by failure reason.",
		}, []string{"reason"}),
		tasksCancelled: f.NewCounter(prometheus.CounterOpts{
			Name: "settlement_tasks_cancelled_total",
			Help: "Total number of tasks cancelled.",
		}),
		autoAssigned: f.NewCounter(prometheus.CounterOpts{
			Name: "settlement_tasks_auto_assigned_total",
			Help: "Total number of tasks placed by auto-assignment.",
		}),
		itemsProduced: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_items_produced_total",
			Help: "Total number of items produced by completed tasks.",
		}, []string{"item"}),
		foodConsumed: f.NewCounter(prometheus.CounterOpts{
			Name: "settlement_food_consumed_total",
			Help: "Total food eaten at daily meals.",
		}),
		hungerEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "settlement_hunger_days_total",
			Help: "Number of meals that left at least one character hungry.",
		}),
		daysElapsed: f.NewCounter(prometheus.CounterOpts{
			Name: "settlement_days_elapsed_total",
			Help: "Number of game days elapsed.",
		}),
		gameHour: f.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_game_hour",
			Help: "Current hour of the game clock.",
		}),
		gameDay: f.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_game_day",
			Help: "Current day of month of the game clock.",
		}),
		population: f.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_population",
			Help: "Number of characters in the settlement.",
		}),
		foodStock: f.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_food_stock",
			Help: "Food units in the inventory.",
		}),
		hungry: f.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_hungry_characters",
			Help: "Characters left hungry at the last meal.",
		}),
		tasks: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "settlement_tasks",
			Help: "Number of open tasks by status.",
		}, []string{"status"}),
	}
}

// LogEvent counts one settlement event.
func (c *Collector) LogEvent(eventType string, data map[string]any) error {
	switch eventType {
	case "task.created":
		typ, _ := data["type"].(string)
		c.tasksCreated.WithLabelValues(typ).Inc()
	case "task.completed":
		typ, _ := data["type"].(string)
		c.tasksCompleted.WithLabelValues(typ).Inc()
		if produced, ok := data["produced"].(map[string]any); ok {
			for item, q := range produced {
				c.itemsProduced.WithLabelValues(item).Add(float64(intValue(q)))
			}
		}
	case "task.failed":
		reason, _ := data["reason"].(string)
		c.tasksFailed.WithLabelValues(reason).Inc()
	case "task.cancelled":
		c.tasksCancelled.Inc()
	case "tasks.auto_assigned":
		c.autoAssigned.Add(float64(intValue(data["count"])))
	case "sim.day_changed":
		c.daysElapsed.Inc()
	case "food.consumed":
		c.foodConsumed.Add(float64(intValue(data["consumed"])))
	case "food.hunger":
		c.hungerEvents.Inc()
	}
	return nil
}

// Observe sets the gauges from the current settlement state.
func (c *Collector) Observe(s LiveState) {
	c.gameHour.Set(float64(s.GameHour))
	c.gameDay.Set(float64(s.GameDay))
	c.population.Set(float64(s.Population))
	c.foodStock.Set(float64(s.FoodStock))
	c.hungry.Set(float64(s.Hungry))
	c.tasks.WithLabelValues("pending").Set(float64(s.Pending))
	c.tasks.WithLabelValues("in_progress").Set(float64(s.InProgress))
}

// LiveStateOf derives the gauge values from a settlement status.
func LiveStateOf(st models.SettlementStatus) LiveState {
	return LiveState{
		GameHour:   st.Time.Hour,
		GameDay:    st.Time.Day,
		Population: st.Population,
		FoodStock:  st.FoodStock,
		Hungry:     len(st.Hungry),
		Pending:    st.Tasks[models.StatusPending],
		InProgress: st.Tasks[models.StatusInProgress],
	}
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
