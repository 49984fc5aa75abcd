package sim

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/valter-silva-au/settlement/internal/core"
)

// Runner ticks the simulation in real time: one game hour every
// base/speed of wall time, unless paused.
type Runner struct {
	step func() error
	base time.Duration

	mu      sync.Mutex
	speed   float64
	paused  bool
	changed chan struct{}
}

// NewRunner creates a Runner calling step once per game hour. speed must be
// one of core.SpeedOptions.
func NewRunner(step func() error, base time.Duration, speed float64) (*Runner, error) {
	if base <= 0 {
		return nil, fmt.Errorf("creating runner: tick interval must be positive")
	}
	r := &Runner{step: step, base: base, changed: make(chan struct{}, 1)}
	if err := r.SetSpeed(speed); err != nil {
		return nil, err
	}
	return r, nil
}

// Run ticks until ctx is done, step fails, or maxHours hours have run
// (zero means no limit). It returns the number of hours run.
func (r *Runner) Run(ctx context.Context, maxHours int) (int, error) {
	timer := time.NewTimer(r.Interval())
	defer timer.Stop()

	hours := 0
	for maxHours == 0 || hours < maxHours {
		select {
		case <-ctx.Done():
			return hours, nil
		case <-r.changed:
			timer.Reset(r.Interval())
		case <-timer.C:
			timer.Reset(r.Interval())
			if r.Paused() {
				continue
			}
			if err := r.step(); err != nil {
				return hours, fmt.Errorf("running simulation: %w", err)
			}
			hours++
		}
	}
	return hours, nil
}

// Interval returns the wall time between game hours at the current speed.
func (r *Runner) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Duration(float64(r.base) / r.speed)
}

// Speed returns the current speed multiplier.
func (r *Runner) Speed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speed
}

// SetSpeed changes the speed multiplier.
func (r *Runner) SetSpeed(speed float64) error {
	if !slices.Contains(core.SpeedOptions, speed) {
		return fmt.Errorf("speed %v must be one of %v", speed, core.SpeedOptions)
	}
	r.mu.Lock()
	r.speed = speed
	r.mu.Unlock()
	r.notify()
	return nil
}

// Faster moves to the next speed option and returns it.
func (r *Runner) Faster() float64 { return r.shift(1) }

// Slower moves to the previous speed option and returns it.
func (r *Runner) Slower() float64 { return r.shift(-1) }

func (r *Runner) shift(delta int) float64 {
	r.mu.Lock()
	i := slices.Index(core.SpeedOptions, r.speed) + delta
	i = min(max(i, 0), len(core.SpeedOptions)-1)
	r.speed = core.SpeedOptions[i]
	speed := r.speed
	r.mu.Unlock()
	r.notify()
	return speed
}

// TogglePause pauses or resumes ticking and returns the new paused state.
func (r *Runner) TogglePause() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = !r.paused
	return r.paused
}

// Paused reports whether ticking is paused.
func (r *Runner) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

func (r *Runner) notify() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}
