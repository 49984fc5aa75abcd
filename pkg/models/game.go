package models

import (
	"fmt"
	"time"
)

// SnapshotVersion tags the shape of a saved game. Loading a snapshot with a
// different tag only logs a warning.
const SnapshotVersion = "1.0.0"

// GameDate is a calendar day in game time.
type GameDate struct {
	Year  int `yaml:"year" json:"year"`
	Month int `yaml:"month" json:"month"`
	Day   int `yaml:"day" json:"day"`
}

// IsZero reports whether the date is unset.
func (d GameDate) IsZero() bool {
	return d == GameDate{}
}

func (d GameDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsLeapYear reports whether year has a February 29th.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in the given month of year.
func DaysInMonth(year, month int) int {
	switch month {
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// Valid reports whether the date exists on the calendar.
func (d GameDate) Valid() bool {
	return d.Year >= 1 && d.Month >= 1 && d.Month <= 12 && d.Day >= 1 && d.Day <= DaysInMonth(d.Year, d.Month)
}

// GameTime is a point on the simulation timeline at hour resolution.
type GameTime struct {
	GameDate `yaml:",inline"`
	Hour     int `yaml:"hour" json:"hour"`
}

// Time converts the game time to a UTC time.Time for timestamps.
func (g GameTime) Time() time.Time {
	return time.Date(g.Year, time.Month(g.Month), g.Day, g.Hour, 0, 0, 0, time.UTC)
}

func (g GameTime) String() string {
	return fmt.Sprintf("%s %02d:00", g.GameDate, g.Hour)
}

// Snapshot is the complete persisted state of a settlement.
type Snapshot struct {
	Version      string         `yaml:"version" json:"version"`
	SavedAt      time.Time      `yaml:"saved_at" json:"saved_at"`
	Time         GameTime       `yaml:"time" json:"time"`
	LastFoodDate GameDate       `yaml:"last_food_date" json:"last_food_date"`
	Hungry       []int          `yaml:"hungry,omitempty" json:"hungry,omitempty"`
	Characters   []*Character   `yaml:"characters" json:"characters"`
	Inventory    map[string]int `yaml:"inventory" json:"inventory"`
	Tasks        []*Task        `yaml:"tasks" json:"tasks"`
}
