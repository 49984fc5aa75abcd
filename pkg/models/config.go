package models

import "time"

// Save backends.
const (
	SaveBackendFile   = "file"
	SaveBackendSQLite = "sqlite"
)

// SimulationConfig controls the clock and the scheduler.
type SimulationConfig struct {
	AutoAssign   bool          `yaml:"auto_assign" mapstructure:"auto_assign"`
	Population   int           `yaml:"population" mapstructure:"population"`
	Start        GameTime      `yaml:"start" mapstructure:"start"`
	TickInterval time.Duration `yaml:"tick_interval" mapstructure:"tick_interval"`
	Speed        float64       `yaml:"speed" mapstructure:"speed"`
}

// FoodConfig controls the daily food consumption step.
type FoodConfig struct {
	ItemID    string `yaml:"item_id" mapstructure:"item_id"`
	PerCapita int    `yaml:"per_capita" mapstructure:"per_capita"`
}

// SaveConfig selects where snapshots are stored.
type SaveConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	Slot    string `yaml:"slot" mapstructure:"slot"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level    string `yaml:"level" mapstructure:"level"`
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
	Output   string `yaml:"output" mapstructure:"output"`
}

// AlertConfig holds the thresholds for settlement alerts.
type AlertConfig struct {
	LowFoodDays        int `yaml:"low_food_days" mapstructure:"low_food_days"`
	MaxPendingTasks    int `yaml:"max_pending_tasks" mapstructure:"max_pending_tasks"`
	ExpiredWindowHours int `yaml:"expired_window_hours" mapstructure:"expired_window_hours"`
}

// SlackConfig holds the Slack webhook used for alert notifications.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationConfig configures outbound alert delivery.
type NotificationConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// MetricsConfig configures the Prometheus endpoint served by the run command.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// GlobalConfig holds settlement-wide settings read from .settlement.yaml via Viper.
type GlobalConfig struct {
	Simulation    SimulationConfig   `yaml:"simulation" mapstructure:"simulation"`
	Food          FoodConfig         `yaml:"food" mapstructure:"food"`
	Save          SaveConfig         `yaml:"save" mapstructure:"save"`
	Log           LogConfig          `yaml:"log" mapstructure:"log"`
	Alerts        AlertConfig        `yaml:"alerts" mapstructure:"alerts"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
}
