package sim

import (
	"fmt"

	"github.com/valter-silva-au/settlement/internal/core"
	"github.com/valter-silva-au/settlement/pkg/models"
	"go.uber.org/zap"
)

// Overnight recovery.
const (
	idleStaminaRecovery    = 20.0
	idleEfficiencyRecovery = 5.0
	busyStaminaRecovery    = 10.0
	mealHour               = 12
)

// Simulation advances game time hour by hour. Each hour it runs the task
// update; on a new date it announces the day and lets characters recover;
// at noon it serves the daily meal.
type Simulation struct {
	clock  *GameClock
	tasks  core.TaskManager
	roster core.CharacterRegistry
	food   *FoodConsumer
	bus    *core.EventBus
	log    *zap.Logger
}

// New creates a Simulation. bus and log may be nil.
func New(clock *GameClock, tasks core.TaskManager, roster core.CharacterRegistry, food *FoodConsumer, bus *core.EventBus, log *zap.Logger) *Simulation {
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulation{
		clock:  clock,
		tasks:  tasks,
		roster: roster,
		food:   food,
		bus:    bus,
		log:    log,
	}
}

// Clock returns the simulation's game clock.
func (s *Simulation) Clock() *GameClock { return s.clock }

// Food returns the daily meal step.
func (s *Simulation) Food() *FoodConsumer { return s.food }

// AdvanceTime moves the clock forward by hours, one hour at a time, so that
// every hour boundary is observed.
func (s *Simulation) AdvanceTime(hours int) error {
	if hours < 0 {
		return fmt.Errorf("advancing time: hours must not be negative, got %d", hours)
	}
	for range hours {
		s.Step()
	}
	s.log.Debug("time advanced", zap.Int("hours", hours), zap.Stringer("now", s.clock.Current()))
	return nil
}

// Step advances the clock by exactly one hour and runs that hour's work.
func (s *Simulation) Step() {
	prev := s.clock.Current()
	next := AddHours(prev, 1)
	s.clock.now = next

	s.tasks.OnTimeUpdate(next.Hour, next.Day)

	if next.GameDate != prev.GameDate {
		s.bus.Publish(core.DayChanged{Date: next.GameDate})
		s.recover()
		s.log.Info("new day", zap.Stringer("date", next.GameDate))
	}

	if next.Hour == mealHour && s.food.Due(next.GameDate) {
		s.serveMeal(next.GameDate)
	}
}

// recover restores stamina overnight. Idle characters also regain some
// efficiency and are marked rested.
func (s *Simulation) recover() {
	now := s.clock.Now()
	for _, c := range s.roster.Characters() {
		ws := &c.WorkState
		if c.CurrentTaskID == "" {
			ws.Stamina = min(models.MaxStamina, ws.Stamina+idleStaminaRecovery)
			ws.Efficiency = min(models.MaxEfficiency, ws.Efficiency+idleEfficiencyRecovery)
			rested := now
			ws.LastRestTime = &rested
			continue
		}
		ws.Stamina = min(models.MaxStamina, ws.Stamina+busyStaminaRecovery)
	}
}

func (s *Simulation) serveMeal(date models.GameDate) {
	res := s.food.Consume(date, s.roster.Characters())

	s.log.Info("meal served",
		zap.Stringer("date", date),
		zap.Int("fed", res.Fed),
		zap.Int("hungry", len(res.Hungry)),
		zap.Int("remaining", res.Remaining))
	s.bus.Publish(core.FoodConsumed{
		Date:       date,
		Population: res.Population,
		Consumed:   res.Consumed,
		Fed:        res.Fed,
		Hungry:     res.Hungry,
		Remaining:  res.Remaining,
	})
	if len(res.Hungry) > 0 {
		s.log.Warn("characters went hungry", zap.Ints("character_ids", res.Hungry))
		s.bus.Publish(core.HungerReported{Date: date, Hungry: res.Hungry})
	}
}
