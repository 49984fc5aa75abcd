package internal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/valter-silva-au/settlement/internal/core"
	"github.com/valter-silva-au/settlement/internal/storage"
	"github.com/valter-silva-au/settlement/pkg/models"
)

func TestResolveBasePath_SettleHomeSet(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("SETTLE_HOME", tmpDir)

	got := ResolveBasePath()
	if got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q", got, tmpDir)
	}
}

func TestResolveBasePath_FindsConfigInParent(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "sub", "nested")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, core.ConfigFileName), []byte("simulation:\n  speed: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Chdir(subDir)
	t.Setenv("SETTLE_HOME", "")

	got := ResolveBasePath()
	if got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q", got, tmpDir)
	}
}

func TestResolveBasePath_FallbackToCwd(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv("SETTLE_HOME", "")

	got := ResolveBasePath()
	if got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q", got, tmpDir)
	}
}

func newTestApp(t *testing.T, dir string) *App {
	t.Helper()
	app, err := NewApp(dir)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNewApp_EmptyDirectory(t *testing.T) {
	app := newTestApp(t, t.TempDir())

	if app.Config.Save.Slot != "autosave" {
		t.Errorf("slot = %q, want autosave", app.Config.Save.Slot)
	}
	if app.Roster.Len() != 0 {
		t.Errorf("roster should be empty before a game is started, got %d", app.Roster.Len())
	}
	if app.EventLog == nil || app.AlertEngine == nil || app.MetricsCalc == nil {
		t.Error("observability should be wired when the event log opens")
	}
	if app.Notifier != nil {
		t.Error("notifier must stay nil unless notifications are enabled")
	}
	if got := len(app.TmplMgr.ListTemplates()); got != 3 {
		t.Errorf("templates = %d, want the 3 built-ins", got)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, core.ConfigFileName), []byte("simulation:\n  tick_interval: -1s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewApp(dir); err == nil {
		t.Fatal("expected an error for a negative tick interval")
	}
}

func TestNewApp_LoadsUserTemplates(t *testing.T) {
	dir := t.TempDir()
	yml := `templates:
  - id: fence-repair
    name: Fence repair
    type: building
    default_priority: 7
`
	if err := os.WriteFile(filepath.Join(dir, TemplatesFileName), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	app := newTestApp(t, dir)
	tmpl, err := app.TmplMgr.GetTemplate("fence-repair")
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if tmpl.Estimate != models.DefaultTimeEstimate {
		t.Errorf("missing estimate should default, got %+v", tmpl.Estimate)
	}
}

func TestApp_NewGameSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	app := newTestApp(t, dir)

	err := app.Do(func() error {
		if err := app.NewGame(4, 42); err != nil {
			return err
		}
		if _, err := app.TmplMgr.CreateFromTemplate("wood-processing", core.TemplateOverrides{}); err != nil {
			return err
		}
		return app.Save()
	})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	want := app.Status()
	if err := app.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reloaded := newTestApp(t, dir)
	got := reloaded.Status()
	if got.Population != 4 || got.Time != want.Time || got.FoodStock != want.FoodStock {
		t.Errorf("reloaded status = %+v, want %+v", got, want)
	}
	if len(reloaded.TaskMgr.GetAllTasks()) != 1 {
		t.Errorf("tasks not restored: %d", len(reloaded.TaskMgr.GetAllTasks()))
	}
}

func TestApp_NewGameRejectsNegativePopulation(t *testing.T) {
	app := newTestApp(t, t.TempDir())
	if err := app.NewGame(-1, 0); err == nil {
		t.Fatal("expected error for negative population")
	}
}

func TestApp_LoadMissingSlot(t *testing.T) {
	app := newTestApp(t, t.TempDir())
	if err := app.Load("nowhere"); !errors.Is(err, storage.ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}
}

func TestApp_RestoreRejectsInvalidTimeWithoutChanges(t *testing.T) {
	app := newTestApp(t, t.TempDir())
	if err := app.NewGame(2, 7); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	before := app.Status()

	bad := app.Snapshot()
	bad.Time.Hour = 30
	bad.Characters = nil
	if err := app.restore(bad); err == nil {
		t.Fatal("expected restore to reject hour 30")
	}
	if after := app.Status(); after.Population != before.Population || after.Time != before.Time {
		t.Errorf("state changed after rejected restore: %+v", after)
	}
}

func TestApp_RestoreRejectsDuplicateCharactersWithoutChanges(t *testing.T) {
	app := newTestApp(t, t.TempDir())
	if err := app.NewGame(2, 7); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	worker := app.Roster.Characters()[0]
	task, err := app.TaskMgr.CreateTask(models.CreateTaskParams{
		Name:     "chop wood",
		Type:     models.TaskTypeGathering,
		AssignTo: worker.ID,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if worker.CurrentTaskID != task.ID {
		t.Fatalf("character %d not assigned to %s", worker.ID, task.ID)
	}

	bad := app.Snapshot()
	bad.Tasks = nil
	bad.Characters = append(bad.Characters, bad.Characters[0].Clone())
	if err := app.restore(bad); !errors.Is(err, storage.ErrInvalidCharacter) {
		t.Fatalf("restore error = %v, want ErrInvalidCharacter", err)
	}

	if _, err := app.TaskMgr.GetTask(task.ID); err != nil {
		t.Errorf("task lost after rejected restore: %v", err)
	}
	if n := len(app.TaskMgr.GetAllTasks()); n != 1 {
		t.Errorf("tasks = %d, want 1", n)
	}
	c, ok := app.Roster.Character(worker.ID)
	if !ok || c.CurrentTaskID != task.ID {
		t.Errorf("character %d lost its assignment to %s", worker.ID, task.ID)
	}
	if app.Roster.Len() != 2 {
		t.Errorf("population = %d, want 2", app.Roster.Len())
	}
}

func TestApp_DayOfSimulationIsRecorded(t *testing.T) {
	app := newTestApp(t, t.TempDir())

	err := app.Do(func() error {
		if err := app.NewGame(3, 11); err != nil {
			return err
		}
		task, err := app.TmplMgr.CreateFromTemplate("food-preparation", core.TemplateOverrides{})
		if err != nil {
			return err
		}
		if err := app.TaskMgr.CancelTask(task.ID); err != nil {
			return err
		}
		return app.Sim.AdvanceTime(24)
	})
	if err != nil {
		t.Fatalf("simulating: %v", err)
	}

	st := app.Status()
	if st.Time.String() != "2025-01-02 00:00" {
		t.Errorf("time = %s, want 2025-01-02 00:00", st.Time)
	}
	if st.FoodStock != storage.DefaultInventory()["food"]-3 {
		t.Errorf("food = %d, want one ration eaten per character", st.FoodStock)
	}
	if st.LastMeal.String() != "2025-01-01" {
		t.Errorf("last meal = %s", st.LastMeal)
	}

	m, err := app.MetricsCalc.Calculate(time.Time{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if m.TasksCreated != 1 || m.TasksCancelled != 1 {
		t.Errorf("created/cancelled = %d/%d, want 1/1", m.TasksCreated, m.TasksCancelled)
	}
	if m.Meals != 1 || m.FoodConsumed != 3 || m.DaysElapsed != 1 {
		t.Errorf("meals=%d consumed=%d days=%d, want 1/3/1", m.Meals, m.FoodConsumed, m.DaysElapsed)
	}
}
