package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_CountsEvents(t *testing.T) {
	c := NewCollector()

	events := []struct {
		typ  string
		data map[string]any
	}{
		{"task.created", map[string]any{"type": "crafting"}},
		{"task.created", map[string]any{"type": "crafting"}},
		{"task.completed", map[string]any{"type": "crafting", "produced": map[string]any{"planks": 4}}},
		{"task.failed", map[string]any{"reason": "expired"}},
		{"task.cancelled", nil},
		{"tasks.auto_assigned", map[string]any{"count": 3}},
		{"sim.day_changed", nil},
		{"food.consumed", map[string]any{"consumed": 7}},
		{"food.hunger", map[string]any{"count": 3}},
		{"task.progressed", nil},
	}
	for _, e := range events {
		if err := c.LogEvent(e.typ, e.data); err != nil {
			t.Fatalf("LogEvent(%s): %v", e.typ, err)
		}
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"created crafting", testutil.ToFloat64(c.tasksCreated.WithLabelValues("crafting")), 2},
		{"completed crafting", testutil.ToFloat64(c.tasksCompleted.WithLabelValues("crafting")), 1},
		{"planks", testutil.ToFloat64(c.itemsProduced.WithLabelValues("planks")), 4},
		{"failed expired", testutil.ToFloat64(c.tasksFailed.WithLabelValues("expired")), 1},
		{"cancelled", testutil.ToFloat64(c.tasksCancelled), 1},
		{"auto-assigned", testutil.ToFloat64(c.autoAssigned), 3},
		{"days", testutil.ToFloat64(c.daysElapsed), 1},
		{"food", testutil.ToFloat64(c.foodConsumed), 7},
		{"hunger", testutil.ToFloat64(c.hungerEvents), 1},
	}
	for _, ch := range checks {
		if ch.got != ch.want {
			t.Errorf("%s = %v, want %v", ch.name, ch.got, ch.want)
		}
	}
}

func TestCollector_ObserveAndServe(t *testing.T) {
	c := NewCollector()
	c.Observe(LiveState{GameHour: 12, GameDay: 3, Population: 10, FoodStock: 42, Hungry: 2, Pending: 5, InProgress: 4})

	if got := testutil.ToFloat64(c.foodStock); got != 42 {
		t.Errorf("food stock = %v, want 42", got)
	}
	if got := testutil.ToFloat64(c.tasks.WithLabelValues("pending")); got != 5 {
		t.Errorf("pending = %v, want 5", got)
	}

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scraping metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}

	for _, want := range []string{
		"settlement_game_hour 12",
		"settlement_food_stock 42",
		"settlement_hungry_characters 2",
		`settlement_tasks{status="in_progress"} 4`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}
