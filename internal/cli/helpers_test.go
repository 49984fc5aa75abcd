package cli

import (
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/valter-silva-au/settlement/internal/core"
	"github.com/valter-silva-au/settlement/internal/sim"
	"github.com/valter-silva-au/settlement/internal/storage"
	"github.com/valter-silva-au/settlement/pkg/models"
)

// captureStdout captures everything written to os.Stdout during fn.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = origStdout

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading pipe: %v", err)
	}
	return string(out)
}

// testSettlement implements Settlement over the real scheduler services and
// a file save store in a temp directory.
type testSettlement struct {
	mu     sync.Mutex
	slot   string
	clock  *sim.GameClock
	inv    storage.InventoryLedger
	roster storage.Roster
	tasks  core.TaskManager
	sim    *sim.Simulation
	saves  storage.SaveStore

	saveCount int
}

func (g *testSettlement) Do(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}

func (g *testSettlement) Status() models.SettlementStatus {
	st := models.SettlementStatus{
		Time:        g.clock.Current(),
		Population:  g.roster.Len(),
		FoodItem:    "food",
		FoodStock:   g.inv.Quantity("food"),
		DailyDemand: g.roster.Len(),
		LastMeal:    g.sim.Food().LastMealDate(),
		Hungry:      g.sim.Food().Hungry(),
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

func (g *testSettlement) Save() error { return g.SaveAs(g.slot) }

func (g *testSettlement) SaveAs(slot string) error {
	g.saveCount++
	return g.saves.Save(slot, &models.Snapshot{
		Version:    models.SnapshotVersion,
		SavedAt:    time.Now().UTC(),
		Time:       g.clock.Current(),
		Characters: g.roster.Export(),
		Inventory:  g.inv.Items(),
		Tasks:      g.tasks.ExportTasks(),
	})
}

func (g *testSettlement) Load(slot string) error {
	snap, err := g.saves.Load(slot)
	if err != nil {
		return err
	}
	if err := g.tasks.ImportTasks(snap.Tasks); err != nil {
		return err
	}
	if err := g.roster.Replace(snap.Characters); err != nil {
		return err
	}
	g.inv.Replace(snap.Inventory)
	return g.clock.Set(snap.Time)
}

func (g *testSettlement) NewGame(population int, seed uint64) error {
	if err := g.roster.Replace(storage.NewSeededRosterGenerator(seed).Generate(population)); err != nil {
		return err
	}
	g.inv.Replace(storage.DefaultInventory())
	g.tasks.Reset()
	return g.clock.Set(gameTime(2025, 1, 1, 6))
}

func (g *testSettlement) WatchConfig() error { return nil }

func gameTime(y, m, d, h int) models.GameTime {
	return models.GameTime{GameDate: models.GameDate{Year: y, Month: m, Day: d}, Hour: h}
}

func skilledCharacter(id int, name string, level int) *models.Character {
	return &models.Character{
		ID:   id,
		Name: name,
		Skills: []models.Skill{
			{ID: "woodworking", Name: "Woodworking", Type: models.SkillCrafting, BaseLevel: level},
			{ID: "foraging", Name: "Foraging", Type: models.SkillSurvival, BaseLevel: level},
			{ID: "cooking", Name: "Cooking", Type: models.SkillCrafting, BaseLevel: level},
		},
		IsAvailable: true,
		WorkState:   models.NewWorkState(),
	}
}

// setupSettlement wires a two-character settlement into the package
// variables and restores them when the test ends.
func setupSettlement(t *testing.T) *testSettlement {
	t.Helper()

	origGame, origTasks, origTmpl := Game, TaskMgr, TmplMgr
	origInv, origRoster, origSaves, origSim := Inventory, Roster, Saves, Sim
	origConfig, origBase := Config, BasePath
	t.Cleanup(func() {
		Game, TaskMgr, TmplMgr = origGame, origTasks, origTmpl
		Inventory, Roster, Saves, Sim = origInv, origRoster, origSaves, origSim
		Config, BasePath = origConfig, origBase
	})

	clock, err := sim.NewGameClock(gameTime(2025, 1, 1, 6))
	if err != nil {
		t.Fatalf("NewGameClock: %v", err)
	}
	dir := t.TempDir()
	g := &testSettlement{
		slot:   "main",
		clock:  clock,
		inv:    storage.NewInventoryLedger(map[string]int{"food": 30, "wood": 10}),
		roster: storage.NewRoster(),
		saves:  storage.NewFileSaveStore(dir, nil),
	}
	for _, c := range []*models.Character{skilledCharacter(1, "Ada", 8), skilledCharacter(2, "Bram", 3)} {
		if err := g.roster.Add(c); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	bus := core.NewEventBus()
	g.tasks = core.NewTaskManager(g.inv, g.roster, core.StaticSettings(false), clock, bus, nil)
	g.sim = sim.New(clock, g.tasks, g.roster, sim.NewFoodConsumer(g.inv, "food", 1, nil), bus, nil)

	cfg := core.DefaultGlobalConfig()
	cfg.Save.Slot = g.slot

	Game = g
	TaskMgr = g.tasks
	TmplMgr = core.NewTemplateManager(g.tasks)
	Inventory = g.inv
	Roster = g.roster
	Saves = g.saves
	Sim = g.sim
	Config = cfg
	BasePath = dir
	return g
}

// mustCreate creates a task from a template directly through the manager.
func mustCreate(t *testing.T, templateID string) *models.Task {
	t.Helper()
	task, err := TmplMgr.CreateFromTemplate(templateID, core.TemplateOverrides{})
	if err != nil {
		t.Fatalf("CreateFromTemplate(%s): %v", templateID, err)
	}
	return task
}
