package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/settlement/internal/observability"
	"github.com/valter-silva-au/settlement/internal/storage"
	"github.com/valter-silva-au/settlement/pkg/models"
)

func subcommand(t *testing.T, parent *cobra.Command, name string) *cobra.Command {
	t.Helper()
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("%s has no %s subcommand", parent.Name(), name)
	return nil
}

func TestStatusCmd(t *testing.T) {
	setupSettlement(t)
	mustCreate(t, "wood-processing")

	out := captureStdout(t, func() {
		if err := statusCmd.RunE(statusCmd, nil); err != nil {
			t.Fatalf("status: %v", err)
		}
	})

	for _, want := range []string{"2025-01-01 06:00", "Population:  2 (2 idle)", "Food:        30 food", "Last meal:   never", "pending      1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAdvanceCmd_ServesMealAndSaves(t *testing.T) {
	g := setupSettlement(t)

	out := captureStdout(t, func() {
		if err := advanceCmd.RunE(advanceCmd, []string{"8"}); err != nil {
			t.Fatalf("advance: %v", err)
		}
	})

	if !strings.Contains(out, "2025-01-01 06:00 -> 2025-01-01 14:00") {
		t.Errorf("unexpected time line:\n%s", out)
	}
	if !strings.Contains(out, "Food: 30 -> 28") {
		t.Errorf("noon meal should feed two characters:\n%s", out)
	}
	if g.saveCount != 1 {
		t.Errorf("saveCount = %d, want 1", g.saveCount)
	}
}

func TestAdvanceCmd_InvalidHours(t *testing.T) {
	g := setupSettlement(t)
	for _, arg := range []string{"x", "-2"} {
		if err := advanceCmd.RunE(advanceCmd, []string{arg}); err == nil {
			t.Errorf("advance %s: expected error", arg)
		}
	}
	if g.saveCount != 0 {
		t.Errorf("failed advance must not save")
	}
}

func TestInventoryCmds(t *testing.T) {
	g := setupSettlement(t)
	add, remove := subcommand(t, inventoryCmd, "add"), subcommand(t, inventoryCmd, "remove")

	captureStdout(t, func() {
		if err := add.RunE(add, []string{"stone", "5"}); err != nil {
			t.Fatalf("add: %v", err)
		}
		if err := remove.RunE(remove, []string{"wood", "25"}); err != nil {
			t.Fatalf("remove: %v", err)
		}
	})
	if g.inv.Quantity("stone") != 5 {
		t.Errorf("stone = %d, want 5", g.inv.Quantity("stone"))
	}
	if g.inv.Quantity("wood") != 0 {
		t.Errorf("wood = %d, want 0 (removal stops at zero)", g.inv.Quantity("wood"))
	}
	if err := add.RunE(add, []string{"stone", "-1"}); err == nil {
		t.Error("negative quantity should be rejected")
	}

	out := captureStdout(t, func() {
		if err := inventoryCmd.RunE(inventoryCmd, nil); err != nil {
			t.Fatalf("inventory: %v", err)
		}
	})
	if !strings.Contains(out, "stone") || !strings.Contains(out, "food") {
		t.Errorf("unexpected listing:\n%s", out)
	}
}

func TestRosterCmds(t *testing.T) {
	g := setupSettlement(t)

	out := captureStdout(t, func() {
		if err := rosterListCmd.RunE(rosterListCmd, nil); err != nil {
			t.Fatalf("roster list: %v", err)
		}
	})
	if !strings.Contains(out, "Ada") || !strings.Contains(out, "Bram") {
		t.Errorf("unexpected roster:\n%s", out)
	}

	out = captureStdout(t, func() {
		if err := rosterShowCmd.RunE(rosterShowCmd, []string{"1"}); err != nil {
			t.Fatalf("roster show: %v", err)
		}
	})
	if !strings.Contains(out, "woodworking") || !strings.Contains(out, "Stamina:    100.0") {
		t.Errorf("unexpected character:\n%s", out)
	}

	if err := rosterShowCmd.RunE(rosterShowCmd, []string{"99"}); !errors.Is(err, storage.ErrInvalidCharacter) {
		t.Errorf("expected ErrInvalidCharacter, got %v", err)
	}

	orig := rosterRecruitCount
	defer func() { rosterRecruitCount = orig }()
	rosterRecruitCount = 2
	captureStdout(t, func() {
		if err := rosterRecruitCmd.RunE(rosterRecruitCmd, nil); err != nil {
			t.Fatalf("recruit: %v", err)
		}
	})
	if g.roster.Len() != 4 {
		t.Fatalf("roster size = %d, want 4", g.roster.Len())
	}
	if _, ok := g.roster.Character(4); !ok {
		t.Error("recruits should take the next free IDs")
	}
}

func TestTemplateCmds(t *testing.T) {
	setupSettlement(t)

	out := captureStdout(t, func() {
		if err := templateListCmd.RunE(templateListCmd, nil); err != nil {
			t.Fatalf("template list: %v", err)
		}
	})
	for _, id := range []string{"food-preparation", "resource-gathering", "wood-processing"} {
		if !strings.Contains(out, id) {
			t.Errorf("listing missing %s:\n%s", id, out)
		}
	}

	out = captureStdout(t, func() {
		if err := templateShowCmd.RunE(templateShowCmd, []string{"food-preparation"}); err != nil {
			t.Fatalf("template show: %v", err)
		}
	})
	if !strings.Contains(out, "Produces:  food x6") {
		t.Errorf("unexpected template:\n%s", out)
	}
}

func TestSaveCmds(t *testing.T) {
	g := setupSettlement(t)
	task := mustCreate(t, "wood-processing")

	captureStdout(t, func() {
		if err := saveAsCmd.RunE(saveAsCmd, []string{"backup"}); err != nil {
			t.Fatalf("save as: %v", err)
		}
	})
	if err := TaskMgr.CancelTask(task.ID); err != nil {
		t.Fatalf("CancelTask: %v", err)
	}

	out := captureStdout(t, func() {
		if err := saveListCmd.RunE(saveListCmd, nil); err != nil {
			t.Fatalf("save list: %v", err)
		}
	})
	if !strings.Contains(out, "backup") {
		t.Errorf("listing missing backup:\n%s", out)
	}

	captureStdout(t, func() {
		if err := saveLoadCmd.RunE(saveLoadCmd, []string{"backup"}); err != nil {
			t.Fatalf("save load: %v", err)
		}
	})
	got, err := g.tasks.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask after load: %v", err)
	}
	if got.Status != models.StatusPending {
		t.Errorf("loaded status = %s, want pending from the backup", got.Status)
	}
	if _, err := g.saves.Load("main"); err != nil {
		t.Errorf("load should save into the active slot: %v", err)
	}

	if err := saveDeleteCmd.RunE(saveDeleteCmd, []string{"main"}); err == nil {
		t.Error("deleting the active slot should be refused")
	}
	captureStdout(t, func() {
		if err := saveDeleteCmd.RunE(saveDeleteCmd, []string{"backup"}); err != nil {
			t.Fatalf("save delete: %v", err)
		}
	})
	if _, err := g.saves.Load("backup"); !errors.Is(err, storage.ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound after delete, got %v", err)
	}
}

func TestInitCmd(t *testing.T) {
	g := setupSettlement(t)
	origPop, origSeed, origForce := initPopulation, initSeed, initForce
	defer func() { initPopulation, initSeed, initForce = origPop, origSeed, origForce }()
	initSeed, initForce = 7, false

	out := captureStdout(t, func() {
		if err := initCmd.RunE(initCmd, nil); err != nil {
			t.Fatalf("init: %v", err)
		}
	})
	if !strings.Contains(out, "Founded a settlement of 10 characters.") {
		t.Errorf("population should default from config:\n%s", out)
	}
	if g.roster.Len() != 10 {
		t.Errorf("roster size = %d, want 10", g.roster.Len())
	}
	if _, err := os.Stat(filepath.Join(BasePath, ".settlement.yaml")); err != nil {
		t.Errorf("default config not written: %v", err)
	}

	if err := initCmd.RunE(initCmd, nil); err == nil {
		t.Error("init over an existing save should require --force")
	}
	initForce = true
	captureStdout(t, func() {
		if err := initCmd.RunE(initCmd, nil); err != nil {
			t.Fatalf("init --force: %v", err)
		}
	})
}

func TestAlertsCmd(t *testing.T) {
	g := setupSettlement(t)
	el, err := observability.NewJSONLEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("NewJSONLEventLog: %v", err)
	}
	defer el.Close()

	orig := AlertEngine
	defer func() { AlertEngine = orig }()
	AlertEngine = observability.NewAlertEngine(el, observability.DefaultAlertThresholds())

	out := captureStdout(t, func() {
		if err := alertsCmd.RunE(alertsCmd, nil); err != nil {
			t.Fatalf("alerts: %v", err)
		}
	})
	if !strings.Contains(out, "No active alerts.") {
		t.Errorf("healthy settlement should have no alerts:\n%s", out)
	}

	g.inv.Set("food", 1)
	out = captureStdout(t, func() {
		if err := alertsCmd.RunE(alertsCmd, nil); err != nil {
			t.Fatalf("alerts: %v", err)
		}
	})
	if !strings.Contains(out, "[MEDIUM]") {
		t.Errorf("low food should raise a medium alert:\n%s", out)
	}

	alertsMinSeverity = "high"
	t.Cleanup(func() { alertsMinSeverity = "low" })
	out = captureStdout(t, func() {
		if err := alertsCmd.RunE(alertsCmd, nil); err != nil {
			t.Fatalf("alerts --min-severity high: %v", err)
		}
	})
	if !strings.Contains(out, "No active alerts.") {
		t.Errorf("medium alerts should be hidden at --min-severity high:\n%s", out)
	}

	alertsMinSeverity, alertsJSON = "medium", true
	t.Cleanup(func() { alertsJSON = false })
	out = captureStdout(t, func() {
		if err := alertsCmd.RunE(alertsCmd, nil); err != nil {
			t.Fatalf("alerts --json: %v", err)
		}
	})
	var decoded []observability.Alert
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decoding JSON alerts: %v\n%s", err, out)
	}
	if len(decoded) != 1 || decoded[0].Condition != "food_stock_low" {
		t.Errorf("JSON alerts = %+v", decoded)
	}

	alertsMinSeverity = "urgent"
	if err := alertsCmd.RunE(alertsCmd, nil); err == nil {
		t.Error("expected an unknown severity to be rejected")
	}
}

func TestMetricsHelpers(t *testing.T) {
	out := captureStdout(t, func() {
		printCounts("Items produced", map[string]int{"stone": 3, "planks": 8})
		printCounts("Empty", nil)
	})
	if strings.Index(out, "planks") > strings.Index(out, "stone") {
		t.Errorf("counts should print in key order:\n%s", out)
	}
	if strings.Contains(out, "Empty") {
		t.Errorf("empty breakdowns print nothing:\n%s", out)
	}

	out = captureStdout(t, func() {
		printMetrics(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), &observability.Metrics{
			TasksCreated:     4,
			FoodConsumed:     9,
			Meals:            3,
			FailuresByReason: map[string]int{"expired": 1},
		})
	})
	for _, want := range []string{"Metrics since 2025-01-01 00:00", "Tasks created", "9 over 3 meal(s)", "Failures by reason", "expired"} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Oldest event") {
		t.Errorf("event bounds print only when known:\n%s", out)
	}
}

func TestRunLoop_StepsAndAutosaves(t *testing.T) {
	g := setupSettlement(t)
	Config.Simulation.TickInterval = 10 * time.Millisecond

	loop, err := newRunLoop(10, 2)
	if err != nil {
		t.Fatalf("newRunLoop: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hours, err := loop.runner.Run(ctx, 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if hours != 5 {
		t.Fatalf("ran %d hours, want 5", hours)
	}
	if got := currentStatus().Time; got != gameTime(2025, 1, 1, 11) {
		t.Errorf("clock at %s, want 2025-01-01 11:00", got)
	}
	if g.saveCount != 2 {
		t.Errorf("saveCount = %d, want 2 (every 2 hours)", g.saveCount)
	}
}

func TestDashboardModel_Keys(t *testing.T) {
	setupSettlement(t)
	loop, err := newRunLoop(1, 0)
	if err != nil {
		t.Fatalf("newRunLoop: %v", err)
	}
	var m tea.Model = newDashboardModel(loop.runner)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	if loop.runner.Speed() != 2 {
		t.Errorf("speed = %v, want 2 after +", loop.runner.Speed())
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if !loop.runner.Paused() {
		t.Error("space should pause")
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.(dashboardModel).activePanel != panelTasks {
		t.Errorf("tab should move to the tasks panel")
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.(dashboardModel).activePanel != panelAlerts {
		t.Errorf("shift+tab should wrap around to the alerts panel")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Error("q should quit")
	}

	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m, _ = m.Update(loadData())
	view := m.View()
	for _, want := range []string{"Settlement", "2025-01-01 06:00", "PAUSED", "Roster", "#1", "Ada", "No active alerts."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestDashboard_AutoAssign(t *testing.T) {
	g := setupSettlement(t)
	mustCreate(t, "resource-gathering")

	msg := autoAssign()
	if notice, ok := msg.(noticeMsg); !ok || !strings.Contains(string(notice), "auto-assigned 1") {
		t.Errorf("unexpected message %#v", msg)
	}
	if n := len(g.tasks.GetTasksByStatus(models.StatusInProgress)); n != 1 {
		t.Errorf("in progress = %d, want 1", n)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{0, "[..........]"},
		{55, "[#####.....]"},
		{100, "[##########]"},
		{140, "[##########]"},
	}
	for _, tt := range tests {
		if got := progressBar(tt.pct, 10); got != tt.want {
			t.Errorf("progressBar(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestCompletions(t *testing.T) {
	setupSettlement(t)
	task := mustCreate(t, "wood-processing")

	ids, _ := completeTaskIDs()(nil, nil, "")
	if len(ids) != 1 || !strings.HasPrefix(ids[0], task.ID+"\t") {
		t.Errorf("task completions = %v", ids)
	}
	ids, _ = completeTaskIDs(models.StatusPending)(nil, nil, "")
	if len(ids) != 0 {
		t.Errorf("pending tasks should be excluded, got %v", ids)
	}

	chars, _ := completeAssignArgs(nil, []string{task.ID}, "")
	if len(chars) != 2 || chars[0] != "1\tAda" {
		t.Errorf("character completions = %v", chars)
	}

	tmpls, _ := completeTemplateIDs(nil, nil, "wood")
	if len(tmpls) != 1 || !strings.HasPrefix(tmpls[0], "wood-processing") {
		t.Errorf("template completions = %v", tmpls)
	}

	types, _ := completeTaskTypes(nil, nil, "")
	if len(types) != len(models.TaskTypes) {
		t.Errorf("type completions = %v", types)
	}
}

func TestCompletionCommand(t *testing.T) {
	if !rootCmd.CompletionOptions.DisableDefaultCmd {
		t.Error("expected Cobra default completion command to be disabled")
	}
	if err := runCompletion(completionCmd, []string{"tcsh"}); err == nil {
		t.Error("expected error for unsupported shell")
	}

	home := t.TempDir()
	target, err := installCompletion(home, completionShells()["fish"])
	if err != nil {
		t.Fatalf("installCompletion: %v", err)
	}
	if target != filepath.Join(home, ".config", "fish", "completions", "settle.fish") {
		t.Errorf("target = %s", target)
	}
	data, err := os.ReadFile(target)
	if err != nil || !strings.Contains(string(data), "settle") {
		t.Errorf("completion script not written: %v", err)
	}
}
