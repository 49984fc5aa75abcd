// Package sim drives the settlement forward in game time: the calendar
// clock, the hourly task update, the daily meal and overnight recovery.
package sim

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/settlement/pkg/models"
)

const hoursPerDay = 24

// GameClock holds the current game time at hour resolution. It satisfies
// core.Clock so task timestamps and deadlines are in game time.
type GameClock struct {
	now models.GameTime
}

// NewGameClock creates a clock set to start.
func NewGameClock(start models.GameTime) (*GameClock, error) {
	c := &GameClock{}
	if err := c.Set(start); err != nil {
		return nil, err
	}
	return c, nil
}

// Now returns the current game time as a UTC time.Time.
func (c *GameClock) Now() time.Time {
	return c.now.Time()
}

// Current returns the current game time.
func (c *GameClock) Current() models.GameTime {
	return c.now
}

// Set moves the clock to t without running any hourly work.
func (c *GameClock) Set(t models.GameTime) error {
	if !t.GameDate.Valid() || t.Hour < 0 || t.Hour >= hoursPerDay {
		return fmt.Errorf("setting clock: %s is not a valid game time", t)
	}
	c.now = t
	return nil
}

// AddHours returns t advanced by hours. Whole days carried out of the hour
// field advance the date with month and year rollover.
func AddHours(t models.GameTime, hours int) models.GameTime {
	total := t.Hour + hours
	days := total / hoursPerDay
	t.Hour = total % hoursPerDay
	if days > 0 {
		t.GameDate = AddDays(t.GameDate, days)
	}
	return t
}

// AddDays returns d advanced by days, respecting month lengths and leap
// years.
func AddDays(d models.GameDate, days int) models.GameDate {
	year, month, day := d.Year, d.Month, d.Day+days
	for {
		dim := models.DaysInMonth(year, month)
		if day <= dim {
			break
		}
		day -= dim
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return models.GameDate{Year: year, Month: month, Day: day}
}
