package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/settlement/internal/core"
	"github.com/valter-silva-au/settlement/internal/observability"
	"github.com/valter-silva-au/settlement/internal/sim"
	"github.com/valter-silva-au/settlement/internal/storage"
	"github.com/valter-silva-au/settlement/pkg/models"
)

// --- Test settlement ---

// testGame is a small settlement over the real scheduler services.
type testGame struct {
	mu     sync.Mutex
	clock  *sim.GameClock
	tasks  core.TaskManager
	inv    storage.InventoryLedger
	roster storage.Roster
	saves  int
}

func (g *testGame) Do(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}

func (g *testGame) Status() models.SettlementStatus {
	st := models.SettlementStatus{
		Time:        g.clock.Current(),
		Population:  g.roster.Len(),
		FoodItem:    "food",
		FoodStock:   g.inv.Quantity("food"),
		DailyDemand: g.roster.Len(),
		Tasks:       make(map[models.TaskStatus]int),
	}
	for _, c := range g.roster.Characters() {
		if c.IsIdle() {
			st.Idle++
		}
	}
	for _, t := range g.tasks.GetAllTasks() {
		st.Tasks[t.Status]++
	}
	return st
}

func (g *testGame) Save() error {
	g.saves++
	return nil
}

func worker(id int, name string) *models.Character {
	return &models.Character{
		ID:   id,
		Name: name,
		Skills: []models.Skill{
			{ID: "woodworking", Name: "Woodworking", Type: models.SkillCrafting, BaseLevel: 6},
			{ID: "foraging", Name: "Foraging", Type: models.SkillSurvival, BaseLevel: 6},
			{ID: "cooking", Name: "Cooking", Type: models.SkillCrafting, BaseLevel: 6},
		},
		IsAvailable: true,
		WorkState:   models.NewWorkState(),
	}
}

type fixture struct {
	game *testGame
	sim  *sim.Simulation
	tmpl core.TemplateManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock, err := sim.NewGameClock(models.GameTime{GameDate: models.GameDate{Year: 2025, Month: 3, Day: 1}, Hour: 8})
	if err != nil {
		t.Fatalf("NewGameClock: %v", err)
	}
	g := &testGame{
		clock:  clock,
		inv:    storage.NewInventoryLedger(map[string]int{"food": 50, "wood": 10}),
		roster: storage.NewRoster(),
	}
	for _, c := range []*models.Character{worker(1, "Ada"), worker(2, "Bram")} {
		if err := g.roster.Add(c); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	bus := core.NewEventBus()
	g.tasks = core.NewTaskManager(g.inv, g.roster, core.StaticSettings(false), clock, bus, nil)
	simulation := sim.New(clock, g.tasks, g.roster, sim.NewFoodConsumer(g.inv, "food", 1, nil), bus, nil)
	return &fixture{game: g, sim: simulation, tmpl: core.NewTemplateManager(g.tasks)}
}

func (f *fixture) server(metrics observability.MetricsCalculator, alerts observability.AlertEngine) *Server {
	return NewServer(Deps{
		Game:        f.game,
		Tasks:       f.game.tasks,
		Templates:   f.tmpl,
		Sim:         f.sim,
		MetricsCalc: metrics,
		AlertEngine: alerts,
	}, "test")
}

func (f *fixture) createTask(t *testing.T, templateID string) *models.Task {
	t.Helper()
	task, err := f.tmpl.CreateFromTemplate(templateID, core.TemplateOverrides{})
	if err != nil {
		t.Fatalf("CreateFromTemplate(%s): %v", templateID, err)
	}
	return task
}

type fakeMetricsCalculator struct {
	metrics *observability.Metrics
}

func (f *fakeMetricsCalculator) Calculate(_ time.Time) (*observability.Metrics, error) {
	return f.metrics, nil
}

type fakeAlertEngine struct {
	alerts []observability.Alert
	state  observability.SettlementState
}

func (f *fakeAlertEngine) Evaluate(state observability.SettlementState) ([]observability.Alert, error) {
	f.state = state
	return f.alerts, nil
}

// --- Test helpers ---

// callTool is a helper that connects a client to the server and calls a tool.
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}

	return result
}

// decode unmarshals a successful tool result into out.
func decode(t *testing.T, result *gomcp.CallToolResult, out any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	if result.StructuredContent != nil {
		data, err := json.Marshal(result.StructuredContent)
		if err != nil {
			t.Fatalf("marshalling structured content: %v", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("unmarshalling structured content: %v", err)
		}
		return
	}
	if err := json.Unmarshal([]byte(extractText(result)), out); err != nil {
		t.Fatalf("unmarshalling text output: %v", err)
	}
}

// extractText extracts the text from the first TextContent in a CallToolResult.
func extractText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// --- Tests ---

func TestGetTask(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "wood-processing")

	var out taskOutput
	decode(t, callTool(t, f.server(nil, nil), "get_task", map[string]any{"task_id": task.ID}), &out)

	if out.ID != task.ID {
		t.Errorf("expected task ID %s, got %s", task.ID, out.ID)
	}
	if out.Status != "pending" {
		t.Errorf("expected status pending, got %s", out.Status)
	}
	if out.Type != "crafting" {
		t.Errorf("expected type crafting, got %s", out.Type)
	}
	if len(out.RequiredItems) != 1 || out.RequiredItems[0] != "wood:2" {
		t.Errorf("required items = %v, want [wood:2]", out.RequiredItems)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	f := newFixture(t)
	result := callTool(t, f.server(nil, nil), "get_task", map[string]any{"task_id": "task-deadbeef"})
	if !result.IsError {
		t.Fatal("expected error result for non-existent task")
	}
}

func TestGetTaskMissingID(t *testing.T) {
	f := newFixture(t)
	result := callTool(t, f.server(nil, nil), "get_task", map[string]any{"task_id": ""})
	if !result.IsError {
		t.Fatal("expected error result for empty task_id")
	}
}

func TestListTasks(t *testing.T) {
	f := newFixture(t)
	first := f.createTask(t, "wood-processing")
	f.createTask(t, "resource-gathering")
	if err := f.game.tasks.CancelTask(first.ID); err != nil {
		t.Fatalf("CancelTask: %v", err)
	}
	srv := f.server(nil, nil)

	tests := []struct {
		name string
		args map[string]any
		want int
	}{
		{"all", map[string]any{}, 2},
		{"by status", map[string]any{"status": "pending"}, 1},
		{"by type", map[string]any{"type": "crafting"}, 1},
		{"status and type", map[string]any{"status": "pending", "type": "crafting"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out listTasksOutput
			decode(t, callTool(t, srv, "list_tasks", tt.args), &out)
			if out.Count != tt.want || len(out.Tasks) != tt.want {
				t.Errorf("count = %d (%d tasks), want %d", out.Count, len(out.Tasks), tt.want)
			}
		})
	}
}

func TestCreateTaskFromTemplate(t *testing.T) {
	f := newFixture(t)

	var out taskOutput
	decode(t, callTool(t, f.server(nil, nil), "create_task_from_template", map[string]any{
		"template_id":    "wood-processing",
		"name":           "Planks for the mill",
		"priority":       9,
		"deadline_hours": 48,
		"assign_to":      2,
	}), &out)

	if out.Name != "Planks for the mill" || out.Priority != 9 {
		t.Errorf("overrides not applied: %+v", out)
	}
	if out.Status != "in_progress" || out.AssignedTo != 2 {
		t.Errorf("expected immediate assignment to 2, got status %s worker %d", out.Status, out.AssignedTo)
	}
	if out.Deadline != "2025-03-03T08:00:00Z" {
		t.Errorf("deadline = %s, want 48 game hours ahead", out.Deadline)
	}
	if got := f.game.inv.Quantity("wood"); got != 8 {
		t.Errorf("wood = %d, want 8 after assignment", got)
	}
	if f.game.saves != 1 {
		t.Errorf("saves = %d, want 1", f.game.saves)
	}
}

func TestCreateTaskFromTemplateUnknown(t *testing.T) {
	f := newFixture(t)
	result := callTool(t, f.server(nil, nil), "create_task_from_template", map[string]any{"template_id": "moon-mining"})
	if !result.IsError {
		t.Fatal("expected error for unknown template")
	}
	if f.game.saves != 0 {
		t.Errorf("failed mutation must not save, saves = %d", f.game.saves)
	}
}

func TestAssignAndUnassignTask(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "wood-processing")
	srv := f.server(nil, nil)

	result := callTool(t, srv, "assign_task", map[string]any{"task_id": task.ID, "character_id": 1})
	if result.IsError {
		t.Fatalf("assign_task: %s", extractText(result))
	}
	got, _ := f.game.tasks.GetTask(task.ID)
	if got.Status != models.StatusInProgress || got.AssignedCharacterID != 1 {
		t.Fatalf("task not assigned: %s worker %d", got.Status, got.AssignedCharacterID)
	}

	result = callTool(t, srv, "assign_task", map[string]any{"task_id": task.ID, "character_id": 2})
	if !result.IsError {
		t.Error("assigning an in-progress task should fail")
	}

	result = callTool(t, srv, "unassign_task", map[string]any{"task_id": task.ID})
	if result.IsError {
		t.Fatalf("unassign_task: %s", extractText(result))
	}
	got, _ = f.game.tasks.GetTask(task.ID)
	if got.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if q := f.game.inv.Quantity("wood"); q != 10 {
		t.Errorf("wood = %d, want refund to 10", q)
	}
}

func TestCancelTask(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "resource-gathering")

	var out messageOutput
	decode(t, callTool(t, f.server(nil, nil), "cancel_task", map[string]any{"task_id": task.ID}), &out)

	got, _ := f.game.tasks.GetTask(task.ID)
	if got.Status != models.StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
}

func TestAutoAssign(t *testing.T) {
	f := newFixture(t)
	f.createTask(t, "wood-processing")
	f.createTask(t, "resource-gathering")
	f.createTask(t, "food-preparation")

	var out autoAssignOutput
	decode(t, callTool(t, f.server(nil, nil), "auto_assign", map[string]any{}), &out)

	if out.Assigned != 2 {
		t.Errorf("assigned = %d, want 2 (two idle characters)", out.Assigned)
	}
	if n := len(f.game.tasks.GetTasksByStatus(models.StatusPending)); n != 1 {
		t.Errorf("pending = %d, want 1", n)
	}
}

func TestAdvanceTime(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "resource-gathering")
	if err := f.game.tasks.AssignTaskToRole(task.ID, 1); err != nil {
		t.Fatalf("AssignTaskToRole: %v", err)
	}

	var out statusOutput
	decode(t, callTool(t, f.server(nil, nil), "advance_time", map[string]any{"hours": 6}), &out)

	if out.Time != "2025-03-01 14:00" {
		t.Errorf("time = %s, want 2025-03-01 14:00", out.Time)
	}
	if out.FoodStock != 48 {
		t.Errorf("food = %d, want 48 after the noon meal", out.FoodStock)
	}
	got, _ := f.game.tasks.GetTask(task.ID)
	if got.Progress <= 0 {
		t.Errorf("progress = %v, want work done", got.Progress)
	}
}

func TestAdvanceTimeBounds(t *testing.T) {
	f := newFixture(t)
	srv := f.server(nil, nil)
	for _, hours := range []int{0, -3, maxAdvanceHours + 1} {
		result := callTool(t, srv, "advance_time", map[string]any{"hours": hours})
		if !result.IsError {
			t.Errorf("hours=%d: expected error", hours)
			continue
		}
		if msg := extractText(result); !strings.Contains(msg, "hours must be between") {
			t.Errorf("hours=%d: message %q", hours, msg)
		}
	}
	if got := f.sim.Clock().Current().Hour; got != 8 {
		t.Errorf("clock moved to hour %d", got)
	}
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t)
	f.createTask(t, "wood-processing")

	var out statusOutput
	decode(t, callTool(t, f.server(nil, nil), "get_status", map[string]any{}), &out)

	if out.Population != 2 || out.Idle != 2 {
		t.Errorf("population %d idle %d, want 2 and 2", out.Population, out.Idle)
	}
	if out.Tasks["pending"] != 1 {
		t.Errorf("pending = %d, want 1", out.Tasks["pending"])
	}
}

func TestGetMetrics(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	mc := &fakeMetricsCalculator{metrics: &observability.Metrics{
		TasksCreated:   5,
		TasksCompleted: 3,
		TasksFailed:    1,
		TasksByType:    map[string]int{"crafting": 4, "gathering": 1},
		ItemsProduced:  map[string]int{"planks": 12},
		FoodConsumed:   20,
		EventCount:     30,
		OldestEvent:    &now,
		NewestEvent:    &now,
	}}

	var out metricsOutput
	decode(t, callTool(t, f.server(mc, nil), "get_metrics", map[string]any{"since": "30d"}), &out)

	if out.TasksCreated != 5 || out.TasksCompleted != 3 || out.TasksFailed != 1 {
		t.Errorf("task counts = %d/%d/%d", out.TasksCreated, out.TasksCompleted, out.TasksFailed)
	}
	if out.ItemsProduced["planks"] != 12 {
		t.Errorf("planks = %d, want 12", out.ItemsProduced["planks"])
	}
	if out.OldestEvent == "" {
		t.Error("expected oldest event timestamp")
	}
	if out.GameStart != "" || out.FailuresByReason == nil {
		t.Errorf("game bounds should be omitted and empty breakdowns kept: %+v", out)
	}
}

func TestGetMetricsDisabled(t *testing.T) {
	f := newFixture(t)
	if result := callTool(t, f.server(nil, nil), "get_metrics", map[string]any{}); !result.IsError {
		t.Fatal("expected error when metrics are disabled")
	}
}

func TestGetAlerts(t *testing.T) {
	f := newFixture(t)
	ae := &fakeAlertEngine{alerts: []observability.Alert{{
		ID:          "food-low",
		Condition:   "food_stock_low",
		Severity:    observability.SeverityMedium,
		Message:     "Food stock is low",
		TriggeredAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}}}

	var out getAlertsOutput
	decode(t, callTool(t, f.server(nil, ae), "get_alerts", map[string]any{}), &out)

	if out.Count != 1 || out.Alerts[0].Condition != "food_stock_low" {
		t.Errorf("alerts = %+v", out.Alerts)
	}
	if ae.state.Population != 2 || ae.state.FoodStock != 50 {
		t.Errorf("engine saw state %+v", ae.state)
	}
}

func TestGetAlertsMinSeverity(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	ae := &fakeAlertEngine{alerts: []observability.Alert{
		{ID: "hunger-2025-03-01", Condition: "characters_hungry", Severity: observability.SeverityHigh, TriggeredAt: at},
		{ID: "pending-backlog", Condition: "pending_backlog_too_large", Severity: observability.SeverityLow, TriggeredAt: at},
	}}
	srv := f.server(nil, ae)

	var out getAlertsOutput
	decode(t, callTool(t, srv, "get_alerts", map[string]any{"min_severity": "medium"}), &out)
	if out.Count != 1 || out.Alerts[0].Severity != "high" {
		t.Errorf("alerts at medium and above = %+v", out.Alerts)
	}

	if result := callTool(t, srv, "get_alerts", map[string]any{"min_severity": "severe"}); !result.IsError {
		t.Error("expected an unknown severity to be rejected")
	}
}

func TestGetMetricsBadWindow(t *testing.T) {
	f := newFixture(t)
	mc := &fakeMetricsCalculator{metrics: &observability.Metrics{}}
	if result := callTool(t, f.server(mc, nil), "get_metrics", map[string]any{"since": "7x"}); !result.IsError {
		t.Fatal("expected an invalid window to be rejected")
	}
}

func TestGetAlertsDisabled(t *testing.T) {
	f := newFixture(t)
	if result := callTool(t, f.server(nil, nil), "get_alerts", map[string]any{}); !result.IsError {
		t.Fatal("expected error when alerts are disabled")
	}
}
