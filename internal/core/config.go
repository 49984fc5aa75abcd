// Package core contains the business logic of the settlement engine:
// the task lifecycle, role-fitness scoring, task templates, the typed
// event bus and configuration.
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/valter-silva-au/settlement/pkg/models"
)

// ConfigFileName is the settlement configuration file looked up in the base path.
const ConfigFileName = ".settlement.yaml"

// SpeedOptions are the accepted simulation speed multipliers.
var SpeedOptions = []float64{0.5, 1, 2, 5, 10}

// validSlotPattern matches save slot names.
var validSlotPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ConfigurationManager defines the interface for loading, validating and
// watching the settlement configuration file.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
	WriteDefaultConfig() (string, error)
	WatchGlobalConfig(onChange func(*models.GlobalConfig)) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	// basePath is the directory where .settlement.yaml resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with sensible defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		Simulation: models.SimulationConfig{
			AutoAssign:   true,
			Population:   10,
			Start:        models.GameTime{GameDate: models.GameDate{Year: 2025, Month: 1, Day: 1}},
			TickInterval: time.Second,
			Speed:        1,
		},
		Food: models.FoodConfig{ItemID: "food", PerCapita: 1},
		Save: models.SaveConfig{Backend: models.SaveBackendFile, Slot: "autosave"},
		Log:  models.LogConfig{Level: "info", Encoding: "console"},
		Alerts: models.AlertConfig{
			LowFoodDays:        3,
			MaxPendingTasks:    20,
			ExpiredWindowHours: 24,
		},
	}
}

// newViper returns a Viper instance bound to the config file with every
// default registered.
func (cm *viperConfigManager) newViper() *viper.Viper {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(ConfigFileName, ".yaml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	// Set Viper defaults so missing keys fall back gracefully.
	v.SetDefault("simulation.auto_assign", cfg.Simulation.AutoAssign)
	v.SetDefault("simulation.population", cfg.Simulation.Population)
	v.SetDefault("simulation.start.year", cfg.Simulation.Start.Year)
	v.SetDefault("simulation.start.month", cfg.Simulation.Start.Month)
	v.SetDefault("simulation.start.day", cfg.Simulation.Start.Day)
	v.SetDefault("simulation.start.hour", cfg.Simulation.Start.Hour)
	v.SetDefault("simulation.tick_interval", cfg.Simulation.TickInterval)
	v.SetDefault("simulation.speed", cfg.Simulation.Speed)
	v.SetDefault("food.item_id", cfg.Food.ItemID)
	v.SetDefault("food.per_capita", cfg.Food.PerCapita)
	v.SetDefault("save.backend", cfg.Save.Backend)
	v.SetDefault("save.slot", cfg.Save.Slot)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.encoding", cfg.Log.Encoding)
	v.SetDefault("log.output", cfg.Log.Output)
	v.SetDefault("alerts.low_food_days", cfg.Alerts.LowFoodDays)
	v.SetDefault("alerts.max_pending_tasks", cfg.Alerts.MaxPendingTasks)
	v.SetDefault("alerts.expired_window_hours", cfg.Alerts.ExpiredWindowHours)
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.slack.webhook_url", "")
	v.SetDefault("metrics.addr", "")

	v.SetEnvPrefix("SETTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// configFromViper maps nested YAML keys onto a GlobalConfig.
func configFromViper(v *viper.Viper) *models.GlobalConfig {
	return &models.GlobalConfig{
		Simulation: models.SimulationConfig{
			AutoAssign: v.GetBool("simulation.auto_assign"),
			Population: v.GetInt("simulation.population"),
			Start: models.GameTime{
				GameDate: models.GameDate{
					Year:  v.GetInt("simulation.start.year"),
					Month: v.GetInt("simulation.start.month"),
					Day:   v.GetInt("simulation.start.day"),
				},
				Hour: v.GetInt("simulation.start.hour"),
			},
			TickInterval: v.GetDuration("simulation.tick_interval"),
			Speed:        v.GetFloat64("simulation.speed"),
		},
		Food: models.FoodConfig{
			ItemID:    v.GetString("food.item_id"),
			PerCapita: v.GetInt("food.per_capita"),
		},
		Save: models.SaveConfig{
			Backend: v.GetString("save.backend"),
			Slot:    v.GetString("save.slot"),
		},
		Log: models.LogConfig{
			Level:    v.GetString("log.level"),
			Encoding: v.GetString("log.encoding"),
			Output:   v.GetString("log.output"),
		},
		Alerts: models.AlertConfig{
			LowFoodDays:        v.GetInt("alerts.low_food_days"),
			MaxPendingTasks:    v.GetInt("alerts.max_pending_tasks"),
			ExpiredWindowHours: v.GetInt("alerts.expired_window_hours"),
		},
		Notifications: models.NotificationConfig{
			Enabled: v.GetBool("notifications.enabled"),
			Slack:   models.SlackConfig{WebhookURL: v.GetString("notifications.slack.webhook_url")},
		},
		Metrics: models.MetricsConfig{Addr: v.GetString("metrics.addr")},
	}
}

// LoadGlobalConfig reads .settlement.yaml from the base path using Viper.
// If the file does not exist, defaults (and SETTLE_* environment overrides)
// are returned.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	v := cm.newViper()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}
	return configFromViper(v), nil
}

// WatchGlobalConfig re-reads the configuration file whenever it changes and
// passes each valid result to onChange. Invalid edits are ignored. onChange
// runs on Viper's watcher goroutine.
func (cm *viperConfigManager) WatchGlobalConfig(onChange func(*models.GlobalConfig)) error {
	v := cm.newViper()
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("watching %s: %w", ConfigFileName, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg := configFromViper(v)
		if err := cm.ValidateConfig(cfg); err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// defaultConfigYAML is written by WriteDefaultConfig.
const defaultConfigYAML = `# Settlement configuration.
simulation:
  auto_assign: true
  population: 10
  start: {year: 2025, month: 1, day: 1, hour: 0}
  tick_interval: 1s
  speed: 1
food:
  item_id: food
  per_capita: 1
save:
  backend: file   # file or sqlite
  slot: autosave
log:
  level: info
  encoding: console
  output: ""
alerts:
  low_food_days: 3
  max_pending_tasks: 20
  expired_window_hours: 24
notifications:
  enabled: false
  slack:
    webhook_url: ""
metrics:
  addr: ""
`

// WriteDefaultConfig writes a default .settlement.yaml into the base path
// unless one already exists, and returns its path.
func (cm *viperConfigManager) WriteDefaultConfig() (string, error) {
	path := filepath.Join(cm.basePath, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(cm.basePath, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", ConfigFileName, err)
	}
	return path, nil
}

// validLogLevels is the set of accepted log levels.
var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// ValidateConfig checks the configuration for invalid values and returns a
// clear error message identifying every problem.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	sim := cfg.Simulation
	if sim.Population < 0 {
		errs = append(errs, "simulation.population must not be negative")
	}
	if !sim.Start.GameDate.Valid() {
		errs = append(errs, fmt.Sprintf("simulation.start %s is not a calendar date", sim.Start.GameDate))
	}
	if sim.Start.Hour < 0 || sim.Start.Hour > 23 {
		errs = append(errs, "simulation.start.hour must be between 0 and 23")
	}
	if sim.TickInterval <= 0 {
		errs = append(errs, "simulation.tick_interval must be positive")
	}
	if !slices.Contains(SpeedOptions, sim.Speed) {
		errs = append(errs, fmt.Sprintf("simulation.speed must be one of %v", SpeedOptions))
	}

	if cfg.Food.ItemID == "" {
		errs = append(errs, "food.item_id must not be empty")
	}
	if cfg.Food.PerCapita <= 0 {
		errs = append(errs, "food.per_capita must be positive")
	}

	if cfg.Save.Backend != models.SaveBackendFile && cfg.Save.Backend != models.SaveBackendSQLite {
		errs = append(errs, fmt.Sprintf("save.backend %q must be %q or %q",
			cfg.Save.Backend, models.SaveBackendFile, models.SaveBackendSQLite))
	}
	if !ValidSlotName(cfg.Save.Slot) {
		errs = append(errs, fmt.Sprintf("save.slot %q must be 1-64 letters, digits, '-' or '_'", cfg.Save.Slot))
	}

	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level %q must be debug, info, warn or error", cfg.Log.Level))
	}
	if enc := strings.ToLower(cfg.Log.Encoding); enc != "json" && enc != "console" {
		errs = append(errs, fmt.Sprintf("log.encoding %q must be json or console", cfg.Log.Encoding))
	}

	if cfg.Alerts.LowFoodDays < 0 || cfg.Alerts.MaxPendingTasks < 0 || cfg.Alerts.ExpiredWindowHours < 0 {
		errs = append(errs, "alert thresholds must not be negative")
	}

	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL == "" {
		errs = append(errs, "notifications.slack.webhook_url is required when notifications are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ValidSlotName reports whether name can be used as a save slot.
func ValidSlotName(name string) bool {
	return validSlotPattern.MatchString(name)
}
