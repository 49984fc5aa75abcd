// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the settlement's task scheduler as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/settlement/internal/core"
	"github.com/valter-silva-au/settlement/internal/observability"
	"github.com/valter-silva-au/settlement/internal/sim"
	"github.com/valter-silva-au/settlement/pkg/models"
)

// maxAdvanceHours bounds a single advance_time call.
const maxAdvanceHours = 24 * 30

// Game serializes access to the loaded settlement. Status and Save must be
// called inside Do.
type Game interface {
	Do(fn func() error) error
	Status() models.SettlementStatus
	Save() error
}

// Server wraps the settlement services and exposes them as MCP tools.
// Every handler runs under Game.Do; mutating handlers save before returning.
type Server struct {
	server      *gomcp.Server
	game        Game
	tasks       core.TaskManager
	templates   core.TemplateManager
	sim         *sim.Simulation
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// Deps holds the services the server exposes. MetricsCalc and AlertEngine
// may be nil if observability is disabled.
type Deps struct {
	Game        Game
	Tasks       core.TaskManager
	Templates   core.TemplateManager
	Sim         *sim.Simulation
	MetricsCalc observability.MetricsCalculator
	AlertEngine observability.AlertEngine
}

// NewServer creates a new MCP server over the given services.
func NewServer(deps Deps, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		game:        deps.Game,
		tasks:       deps.Tasks,
		templates:   deps.Templates,
		sim:         deps.Sim,
		metricsCalc: deps.MetricsCalc,
		alertEngine: deps.AlertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "settle", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type getTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task identifier (e.g. task-1a2b3c4d)"`
}

type taskOutput struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Status         string   `json:"status"`
	Priority       int      `json:"priority"`
	Progress       float64  `json:"progress"`
	AssignedTo     int      `json:"assigned_to,omitempty"`
	FailureReason  string   `json:"failure_reason,omitempty"`
	Deadline       string   `json:"deadline,omitempty"`
	Created        string   `json:"created"`
	RequiredSkills []string `json:"required_skills,omitempty"`
	RequiredItems  []string `json:"required_items,omitempty"`
	OutputItems    []string `json:"output_items,omitempty"`
	Recurring      bool     `json:"recurring,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

type listTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter tasks by status (pending, in_progress, completed, failed, cancelled)"`
	Type   string `json:"type,omitempty" jsonschema:"filter tasks by type (crafting, gathering, building, research, maintenance, training)"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type createFromTemplateInput struct {
	TemplateID    string `json:"template_id" jsonschema:"required,the template to instantiate (e.g. wood-processing)"`
	Name          string `json:"name,omitempty" jsonschema:"override the template name"`
	Priority      int    `json:"priority,omitempty" jsonschema:"override the template priority (1-10)"`
	DeadlineHours int    `json:"deadline_hours,omitempty" jsonschema:"deadline in game hours from now"`
	AssignTo      int    `json:"assign_to,omitempty" jsonschema:"character to assign immediately"`
	Recurring     bool   `json:"recurring,omitempty" jsonschema:"recreate the task each time it completes"`
}

type assignTaskInput struct {
	TaskID      string `json:"task_id" jsonschema:"required,the pending task to assign"`
	CharacterID int    `json:"character_id" jsonschema:"required,the idle character to assign it to"`
}

type taskIDInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task identifier"`
}

type messageOutput struct {
	Message string `json:"message"`
}

type autoAssignInput struct{}

type autoAssignOutput struct {
	Assigned int `json:"assigned"`
}

type advanceTimeInput struct {
	Hours int `json:"hours" jsonschema:"required,game hours to advance (1-720)"`
}

type statusOutput struct {
	Time        string         `json:"time"`
	Population  int            `json:"population"`
	Idle        int            `json:"idle"`
	FoodItem    string         `json:"food_item"`
	FoodStock   int            `json:"food_stock"`
	DailyDemand int            `json:"daily_demand"`
	Hungry      []int          `json:"hungry,omitempty"`
	Tasks       map[string]int `json:"tasks"`
	AutoAssign  bool           `json:"auto_assign"`
}

type getStatusInput struct{}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"real-time window for metrics (e.g. 90m, 24h, 7d). Defaults to 7d."`
}

type metricsOutput struct {
	TasksCreated      int            `json:"tasks_created"`
	TasksCompleted    int            `json:"tasks_completed"`
	TasksFailed       int            `json:"tasks_failed"`
	TasksCancelled    int            `json:"tasks_cancelled"`
	TasksAutoAssigned int            `json:"tasks_auto_assigned"`
	TasksByType       map[string]int `json:"tasks_by_type"`
	FailuresByReason  map[string]int `json:"failures_by_reason"`
	ItemsProduced     map[string]int `json:"items_produced"`
	FoodConsumed      int            `json:"food_consumed"`
	HungerDays        int            `json:"hunger_days"`
	DaysElapsed       int            `json:"days_elapsed"`
	EventCount        int            `json:"event_count"`
	Meals             int            `json:"meals"`
	RecurringCreated  int            `json:"recurring_created"`
	OldestEvent       string         `json:"oldest_event,omitempty"`
	NewestEvent       string         `json:"newest_event,omitempty"`
	GameStart         string         `json:"game_start,omitempty"`
	GameEnd           string         `json:"game_end,omitempty"`
}

type getAlertsInput struct {
	MinSeverity string `json:"min_severity,omitempty" jsonschema:"hide alerts below this severity: high, medium or low. Defaults to low."`
}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get task details by ID, including status, progress, requirements and the assigned character.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks in creation order with optional status and type filters.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_task_from_template",
		Description: "Create a pending task from a template, optionally assigning it right away.",
	}, s.handleCreateFromTemplate)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "assign_task",
		Description: "Assign a pending task to an idle character. Required items are taken from the inventory.",
	}, s.handleAssignTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "unassign_task",
		Description: "Return an in-progress task to pending and refund its required items.",
	}, s.handleUnassignTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "cancel_task",
		Description: "Cancel a pending or in-progress task.",
	}, s.handleCancelTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "auto_assign",
		Description: "Assign idle characters to pending tasks by priority and fitness. Returns how many were placed.",
	}, s.handleAutoAssign)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "advance_time",
		Description: "Advance the game clock hour by hour, progressing tasks and serving the daily meal.",
	}, s.handleAdvanceTime)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_status",
		Description: "Get game time, population, food stock and task counts by status.",
	}, s.handleGetStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated metrics from the event log: task outcomes, items produced and food consumption.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (hunger, low food, expired tasks, pending backlog).",
	}, s.handleGetAlerts)
}

// view runs fn under the game lock.
func (s *Server) view(fn func() error) error {
	return s.game.Do(fn)
}

// mutate runs fn under the game lock and saves if it succeeds.
func (s *Server) mutate(fn func() error) error {
	return s.game.Do(func() error {
		if err := fn(); err != nil {
			return err
		}
		return s.game.Save()
	})
}

// --- Tool handlers ---

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input getTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}

	var out taskOutput
	err := s.view(func() error {
		task, err := s.tasks.GetTask(input.TaskID)
		if err != nil {
			return err
		}
		out = taskToOutput(task)
		return nil
	})
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", input.TaskID, err)), taskOutput{}, nil
	}
	return nil, out, nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	out := listTasksOutput{Tasks: []taskOutput{}}
	_ = s.view(func() error {
		tasks := s.tasks.GetAllTasks()
		if input.Status != "" {
			tasks = s.tasks.GetTasksByStatus(models.TaskStatus(input.Status))
		}
		for _, t := range tasks {
			if input.Type != "" && t.Type != models.TaskType(input.Type) {
				continue
			}
			out.Tasks = append(out.Tasks, taskToOutput(t))
		}
		return nil
	})
	out.Count = len(out.Tasks)
	return nil, out, nil
}

func (s *Server) handleCreateFromTemplate(_ context.Context, _ *gomcp.CallToolRequest, input createFromTemplateInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TemplateID == "" {
		return errorResult("template_id is required"), taskOutput{}, nil
	}
	if input.DeadlineHours < 0 {
		return errorResult("deadline_hours must not be negative"), taskOutput{}, nil
	}

	var out taskOutput
	err := s.mutate(func() error {
		overrides := core.TemplateOverrides{
			Name:          input.Name,
			Priority:      input.Priority,
			IsRecurring:   input.Recurring,
			IsUserCreated: true,
			AssignTo:      input.AssignTo,
		}
		if input.DeadlineHours > 0 {
			d := sim.AddHours(s.sim.Clock().Current(), input.DeadlineHours).Time()
			overrides.Deadline = &d
		}
		task, err := s.templates.CreateFromTemplate(input.TemplateID, overrides)
		if err != nil {
			return err
		}
		out = taskToOutput(task)
		return nil
	})
	if err != nil {
		return errorResult(fmt.Sprintf("creating task from %s: %s", input.TemplateID, err)), taskOutput{}, nil
	}
	return nil, out, nil
}

func (s *Server) handleAssignTask(_ context.Context, _ *gomcp.CallToolRequest, input assignTaskInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), messageOutput{}, nil
	}
	err := s.mutate(func() error {
		return s.tasks.AssignTaskToRole(input.TaskID, input.CharacterID)
	})
	if err != nil {
		return errorResult(fmt.Sprintf("assigning task %s: %s", input.TaskID, err)), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("task %s assigned to character %d", input.TaskID, input.CharacterID)}, nil
}

func (s *Server) handleUnassignTask(_ context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, messageOutput, error) {
	return s.taskAction(input.TaskID, "unassigned", s.tasks.UnassignTask)
}

func (s *Server) handleCancelTask(_ context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, messageOutput, error) {
	return s.taskAction(input.TaskID, "cancelled", s.tasks.CancelTask)
}

func (s *Server) taskAction(taskID, done string, action func(string) error) (*gomcp.CallToolResult, messageOutput, error) {
	if taskID == "" {
		return errorResult("task_id is required"), messageOutput{}, nil
	}
	if err := s.mutate(func() error { return action(taskID) }); err != nil {
		return errorResult(fmt.Sprintf("task %s: %s", taskID, err)), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("task %s %s", taskID, done)}, nil
}

func (s *Server) handleAutoAssign(_ context.Context, _ *gomcp.CallToolRequest, _ autoAssignInput) (*gomcp.CallToolResult, autoAssignOutput, error) {
	var out autoAssignOutput
	err := s.mutate(func() error {
		out.Assigned = s.tasks.AutoAssignRolesToTasks()
		return nil
	})
	if err != nil {
		return errorResult(fmt.Sprintf("auto-assigning: %s", err)), autoAssignOutput{}, nil
	}
	return nil, out, nil
}

func (s *Server) handleAdvanceTime(_ context.Context, _ *gomcp.CallToolRequest, input advanceTimeInput) (*gomcp.CallToolResult, statusOutput, error) {
	if input.Hours < 1 || input.Hours > maxAdvanceHours {
		return errorResult(fmt.Sprintf("hours must be between 1 and %d", maxAdvanceHours)), emptyStatusOutput(), nil
	}

	var out statusOutput
	err := s.mutate(func() error {
		if err := s.sim.AdvanceTime(input.Hours); err != nil {
			return err
		}
		out = statusToOutput(s.game.Status())
		return nil
	})
	if err != nil {
		return errorResult(fmt.Sprintf("advancing time: %s", err)), emptyStatusOutput(), nil
	}
	return nil, out, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *gomcp.CallToolRequest, _ getStatusInput) (*gomcp.CallToolResult, statusOutput, error) {
	var out statusOutput
	_ = s.view(func() error {
		out = statusToOutput(s.game.Status())
		return nil
	})
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics are unavailable: observability is disabled"), emptyMetricsOutput(), nil
	}
	since, err := observability.SinceWindow(input.Since, time.Now().UTC())
	if err != nil {
		return errorResult(err.Error()), emptyMetricsOutput(), nil
	}
	m, err := s.metricsCalc.Calculate(since)
	if err != nil {
		return errorResult(err.Error()), emptyMetricsOutput(), nil
	}
	return nil, metricsToOutput(m), nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, input getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alerts are unavailable: observability is disabled"), getAlertsOutput{}, nil
	}
	floor := observability.SeverityLow
	if input.MinSeverity != "" {
		var err error
		if floor, err = observability.ParseSeverity(input.MinSeverity); err != nil {
			return errorResult(err.Error()), getAlertsOutput{}, nil
		}
	}

	var state observability.SettlementState
	_ = s.view(func() error {
		state = observability.StateOf(s.game.Status())
		return nil
	})
	alerts, err := s.alertEngine.Evaluate(state)
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{Alerts: []alertOutput{}}
	for _, a := range alerts {
		if !a.Severity.AtLeast(floor) {
			continue
		}
		out.Alerts = append(out.Alerts, alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		})
	}
	out.Count = len(out.Alerts)
	return nil, out, nil
}

// --- Helpers ---

func taskToOutput(t *models.Task) taskOutput {
	out := taskOutput{
		ID:            t.ID,
		Name:          t.Name,
		Type:          string(t.Type),
		Status:        string(t.Status),
		Priority:      t.Priority,
		Progress:      t.Progress,
		AssignedTo:    t.AssignedCharacterID,
		FailureReason: string(t.FailureReason),
		Created:       t.CreatedAt.Format(time.RFC3339),
		Recurring:     t.IsRecurring,
		Tags:          t.Tags,
	}
	if t.Deadline != nil {
		out.Deadline = t.Deadline.Format(time.RFC3339)
	}
	for _, s := range t.RequiredSkills {
		out.RequiredSkills = append(out.RequiredSkills, fmt.Sprintf("%s:%d", s.SkillID, s.RequiredLevel))
	}
	for _, item := range t.RequiredItems {
		out.RequiredItems = append(out.RequiredItems, fmt.Sprintf("%s:%d", item.ItemID, item.Quantity))
	}
	for _, item := range t.OutputItems {
		out.OutputItems = append(out.OutputItems, fmt.Sprintf("%s:%d", item.ItemID, item.Quantity))
	}
	return out
}

func statusToOutput(st models.SettlementStatus) statusOutput {
	out := statusOutput{
		Time:        st.Time.String(),
		Population:  st.Population,
		Idle:        st.Idle,
		FoodItem:    st.FoodItem,
		FoodStock:   st.FoodStock,
		DailyDemand: st.DailyDemand,
		Hungry:      st.Hungry,
		Tasks:       make(map[string]int, len(st.Tasks)),
		AutoAssign:  st.AutoAssign,
	}
	for status, n := range st.Tasks {
		out.Tasks[string(status)] = n
	}
	return out
}

func metricsToOutput(m *observability.Metrics) metricsOutput {
	stamp := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(time.RFC3339)
	}
	return metricsOutput{
		TasksCreated:      m.TasksCreated,
		TasksCompleted:    m.TasksCompleted,
		TasksFailed:       m.TasksFailed,
		TasksCancelled:    m.TasksCancelled,
		TasksAutoAssigned: m.TasksAutoAssigned,
		TasksByType:       nonNil(m.TasksByType),
		FailuresByReason:  nonNil(m.FailuresByReason),
		ItemsProduced:     nonNil(m.ItemsProduced),
		FoodConsumed:      m.FoodConsumed,
		HungerDays:        m.HungerDays,
		DaysElapsed:       m.DaysElapsed,
		EventCount:        m.EventCount,
		Meals:             m.Meals,
		RecurringCreated:  m.RecurringCreated,
		OldestEvent:       stamp(m.OldestEvent),
		NewestEvent:       stamp(m.NewestEvent),
		GameStart:         stamp(m.GameStart),
		GameEnd:           stamp(m.GameEnd),
	}
}

// nonNil keeps empty breakdowns as {} rather than null in structured output.
func nonNil(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func emptyStatusOutput() statusOutput {
	return statusOutput{Tasks: make(map[string]int)}
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		TasksByType:      make(map[string]int),
		FailuresByReason: make(map[string]int),
		ItemsProduced:    make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
