package cli

import (
	"fmt"

	"github.com/valter-silva-au/settlement/internal/core"
	"github.com/valter-silva-au/settlement/internal/observability"
	"github.com/valter-silva-au/settlement/internal/sim"
	"github.com/valter-silva-au/settlement/internal/storage"
	"github.com/valter-silva-au/settlement/pkg/models"
	"go.uber.org/zap"
)

// Settlement is the loaded game the commands operate on. Do serializes
// access to engine state; the other methods must be called inside Do.
type Settlement interface {
	Do(fn func() error) error
	Status() models.SettlementStatus
	Save() error
	SaveAs(slot string) error
	Load(slot string) error
	NewGame(population int, seed uint64) error
	WatchConfig() error
}

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Config   *models.GlobalConfig
	Logger   = zap.NewNop()

	Game      Settlement
	TaskMgr   core.TaskManager
	TmplMgr   core.TemplateManager
	Inventory storage.InventoryLedger
	Roster    storage.Roster
	Saves     storage.SaveStore
	Sim       *sim.Simulation
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
	Collector   *observability.Collector
)

// errNotInitialized is returned when a command runs before the app wired
// the services.
var errNotInitialized = fmt.Errorf("settlement not initialized")

// view runs fn with read access to the settlement.
func view(fn func() error) error {
	if Game == nil || TaskMgr == nil {
		return errNotInitialized
	}
	return Game.Do(fn)
}

// mutate runs fn and saves the settlement if fn succeeds.
func mutate(fn func() error) error {
	if Game == nil || TaskMgr == nil {
		return errNotInitialized
	}
	return Game.Do(func() error {
		if err := fn(); err != nil {
			return err
		}
		return Game.Save()
	})
}
