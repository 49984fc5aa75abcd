// Package internal provides the App struct that wires all components of the
// settlement engine together and initializes the CLI layer.
package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valter-silva-au/settlement/internal/cli"
	"github.com/valter-silva-au/settlement/internal/core"
	"github.com/valter-silva-au/settlement/internal/logger"
	"github.com/valter-silva-au/settlement/internal/observability"
	"github.com/valter-silva-au/settlement/internal/sim"
	"github.com/valter-silva-au/settlement/internal/storage"
	"github.com/valter-silva-au/settlement/pkg/models"
	"go.uber.org/zap"
)

// File names under the base path.
const (
	TemplatesFileName = "templates.yaml"
	EventLogFileName  = ".settlement_events.jsonl"
)

// App holds all service dependencies of the settlement engine. Engine state
// is not safe for concurrent use; callers that share an App across
// goroutines go through Do.
type App struct {
	BasePath string
	Config   *models.GlobalConfig
	Log      *zap.Logger

	// Configuration
	ConfigMgr core.ConfigurationManager
	settings  *liveSettings

	// Storage layer
	Inventory storage.InventoryLedger
	Roster    storage.Roster
	Saves     storage.SaveStore

	// Core services
	Bus     *core.EventBus
	TaskMgr core.TaskManager
	TmplMgr core.TemplateManager

	// Simulation
	Clock *sim.GameClock
	Food  *sim.FoodConsumer
	Sim   *sim.Simulation

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
	Collector   *observability.Collector

	mu sync.Mutex
}

// NewApp creates and wires all components and loads the active save slot
// if it exists. basePath is the directory holding .settlement.yaml, saves
// and the event log.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	app.Log, err = logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Encoding:   cfg.Log.Encoding,
		OutputPath: cfg.Log.Output,
	})
	if err != nil {
		return nil, err
	}

	app.settings = &liveSettings{}
	app.settings.autoAssign.Store(cfg.Simulation.AutoAssign)

	// --- Storage layer ---
	app.Inventory = storage.NewInventoryLedger(nil)
	app.Roster = storage.NewRoster()
	app.Saves, err = storage.NewSaveStore(cfg.Save.Backend, basePath, app.Log.Named("saves"))
	if err != nil {
		return nil, fmt.Errorf("opening save store: %w", err)
	}

	// --- Core services ---
	app.Clock, err = sim.NewGameClock(cfg.Simulation.Start)
	if err != nil {
		return nil, fmt.Errorf("starting clock: %w", err)
	}
	app.Bus = core.NewEventBus()
	app.TaskMgr = core.NewTaskManager(app.Inventory, app.Roster, app.settings, app.Clock, app.Bus, app.Log.Named("tasks"))
	app.TmplMgr = core.NewTemplateManager(app.TaskMgr)
	if n, err := app.TmplMgr.LoadTemplates(filepath.Join(basePath, TemplatesFileName)); err != nil {
		app.Log.Warn("user templates not loaded", zap.Error(err))
	} else if n > 0 {
		app.Log.Debug("user templates loaded", zap.Int("count", n))
	}

	// --- Simulation ---
	app.Food = sim.NewFoodConsumer(app.Inventory, cfg.Food.ItemID, cfg.Food.PerCapita, nil)
	app.Sim = sim.New(app.Clock, app.TaskMgr, app.Roster, app.Food, app.Bus, app.Log.Named("sim"))

	// --- Observability ---
	app.Collector = observability.NewCollector()
	app.Bus.Subscribe(core.NewEventLogObserver(app.Collector, app.Log))

	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFileName))
	if err != nil {
		// Non-fatal: run without the event log.
		app.Log.Warn("event log disabled", zap.Error(err))
		app.EventLog = nil
	}
	if app.EventLog != nil {
		recorder := observability.NewRecorder(app.EventLog, app.Clock.Now)
		app.Bus.Subscribe(core.NewEventLogObserver(recorder, app.Log))

		thresholds := observability.DefaultAlertThresholds()
		if cfg.Alerts.LowFoodDays > 0 {
			thresholds.LowFoodDays = cfg.Alerts.LowFoodDays
		}
		if cfg.Alerts.MaxPendingTasks > 0 {
			thresholds.MaxPendingTasks = cfg.Alerts.MaxPendingTasks
		}
		if cfg.Alerts.ExpiredWindowHours > 0 {
			thresholds.ExpiredWindowHours = cfg.Alerts.ExpiredWindowHours
		}
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, thresholds)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL, app.Log.Named("notify"))
	}

	// --- Saved game ---
	if err := app.Load(cfg.Save.Slot); err != nil && !errors.Is(err, storage.ErrSlotNotFound) {
		_ = app.Close()
		return nil, err
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Logger = app.Log
	cli.Game = app
	cli.TaskMgr = app.TaskMgr
	cli.TmplMgr = app.TmplMgr
	cli.Inventory = app.Inventory
	cli.Roster = app.Roster
	cli.Saves = app.Saves
	cli.Sim = app.Sim

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier
	cli.Collector = app.Collector

	return app, nil
}

// Do runs fn with exclusive access to the engine state.
func (a *App) Do(fn func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn()
}

// Status summarises the current settlement.
func (a *App) Status() models.SettlementStatus {
	st := models.SettlementStatus{
		Time:       a.Clock.Current(),
		Population: a.Roster.Len(),
		FoodItem:   a.Config.Food.ItemID,
		FoodStock:  a.Inventory.Quantity(a.Config.Food.ItemID),
		LastMeal:   a.Food.LastMealDate(),
		Hungry:     a.Food.Hungry(),
		Tasks:      make(map[models.TaskStatus]int),
		AutoAssign: a.settings.AutoAssignEnabled(),
	}
	st.DailyDemand = st.Population * max(1, a.Config.Food.PerCapita)
	for _, c := range a.Roster.Characters() {
		if c.IsIdle() {
			st.Idle++
		}
	}
	for _, task := range a.TaskMgr.GetAllTasks() {
		st.Tasks[task.Status]++
	}
	return st
}

// Snapshot captures the complete settlement state.
func (a *App) Snapshot() *models.Snapshot {
	return &models.Snapshot{
		Version:      models.SnapshotVersion,
		SavedAt:      time.Now().UTC(),
		Time:         a.Clock.Current(),
		LastFoodDate: a.Food.LastMealDate(),
		Hungry:       a.Food.Hungry(),
		Characters:   a.Roster.Export(),
		Inventory:    a.Inventory.Items(),
		Tasks:        a.TaskMgr.ExportTasks(),
	}
}

// Save writes the settlement to the active slot.
func (a *App) Save() error {
	return a.SaveAs(a.Config.Save.Slot)
}

// SaveAs writes the settlement to slot.
func (a *App) SaveAs(slot string) error {
	if err := a.Saves.Save(slot, a.Snapshot()); err != nil {
		return fmt.Errorf("saving settlement: %w", err)
	}
	return nil
}

// Load replaces the settlement with the one saved in slot.
func (a *App) Load(slot string) error {
	snap, err := a.Saves.Load(slot)
	if err != nil {
		return fmt.Errorf("loading settlement: %w", err)
	}
	if err := a.restore(snap); err != nil {
		return fmt.Errorf("loading settlement from %s: %w", slot, err)
	}
	a.Log.Debug("settlement loaded", zap.String("slot", slot), zap.Stringer("time", snap.Time))
	return nil
}

// restore applies snap. The clock, roster and task list are validated before
// any state changes.
func (a *App) restore(snap *models.Snapshot) error {
	if !snap.Time.Valid() || snap.Time.Hour < 0 || snap.Time.Hour > 23 {
		return fmt.Errorf("invalid game time %s", snap.Time)
	}
	if err := storage.ValidateCharacters(snap.Characters); err != nil {
		return fmt.Errorf("restoring roster: %w", err)
	}
	prev := a.TaskMgr.ExportTasks()
	if err := a.TaskMgr.ImportTasks(snap.Tasks); err != nil {
		return err
	}
	if err := a.Roster.Replace(snap.Characters); err != nil {
		if rerr := a.TaskMgr.ImportTasks(prev); rerr != nil {
			a.Log.Error("restoring previous tasks", zap.Error(rerr))
		}
		return err
	}
	if err := a.Clock.Set(snap.Time); err != nil {
		return err
	}
	a.Inventory.Replace(snap.Inventory)
	a.Food.Restore(snap.LastFoodDate, snap.Hungry)
	return nil
}

// NewGame replaces the settlement with a freshly generated one: population
// characters, the default inventory and no tasks, at the configured start
// time. A zero seed picks a random roster.
func (a *App) NewGame(population int, seed uint64) error {
	if population < 0 {
		return fmt.Errorf("starting new game: population must not be negative, got %d", population)
	}
	gen := storage.NewRosterGenerator(nil)
	if seed != 0 {
		gen = storage.NewSeededRosterGenerator(seed)
	}
	if err := a.Roster.Replace(gen.Generate(population)); err != nil {
		return fmt.Errorf("starting new game: %w", err)
	}
	if err := a.Clock.Set(a.Config.Simulation.Start); err != nil {
		return fmt.Errorf("starting new game: %w", err)
	}
	a.Inventory.Replace(storage.DefaultInventory())
	a.TaskMgr.Reset()
	a.Food.Restore(models.GameDate{}, nil)
	a.Log.Info("new settlement", zap.Int("population", population), zap.Stringer("start", a.Config.Simulation.Start))
	return nil
}

// WatchConfig applies live edits of simulation.auto_assign until the
// process exits.
func (a *App) WatchConfig() error {
	return a.ConfigMgr.WatchGlobalConfig(func(cfg *models.GlobalConfig) {
		if a.settings.autoAssign.Swap(cfg.Simulation.AutoAssign) != cfg.Simulation.AutoAssign {
			a.Log.Info("auto-assign toggled", zap.Bool("enabled", cfg.Simulation.AutoAssign))
		}
	})
}

// Close releases resources held by the App, such as the event log file
// handle and the save store.
func (a *App) Close() error {
	var errs []error
	if a.EventLog != nil {
		errs = append(errs, a.EventLog.Close())
	}
	if a.Saves != nil {
		errs = append(errs, a.Saves.Close())
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	return errors.Join(errs...)
}

// liveSettings is the Settings implementation whose auto-assign flag
// follows the configuration file.
type liveSettings struct {
	autoAssign atomic.Bool
}

func (s *liveSettings) AutoAssignEnabled() bool { return s.autoAssign.Load() }

// ResolveBasePath determines the settlement data directory. It checks the
// SETTLE_HOME env var, then walks up from the working directory looking for
// .settlement.yaml, then falls back to the working directory.
func ResolveBasePath() string {
	if home := os.Getenv("SETTLE_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	cwd := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}
