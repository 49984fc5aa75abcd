package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/settlement/internal/observability"
	"github.com/valter-silva-au/settlement/internal/sim"
	"github.com/valter-silva-au/settlement/pkg/models"
	"go.uber.org/zap"
)

var (
	runHours       int
	runSpeed       float64
	runSaveEvery   int
	runMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation in real time",
	Long: `Run the simulation clock in real time: one game hour per tick interval,
divided by the speed multiplier. Tasks progress, deadlines expire, idle
characters are auto-assigned when enabled, and the daily meal is served.

The game is saved every --save-every game hours and when the run stops.
Stop with Ctrl-C or after --hours game hours. With --metrics-addr (or
metrics.addr in .settlement.yaml) Prometheus metrics are served at /metrics.
Edits to simulation.auto_assign in .settlement.yaml apply while running.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Game == nil || Sim == nil {
			return errNotInitialized
		}

		speed := runSpeed
		addr := runMetricsAddr
		if Config != nil {
			if !cmd.Flags().Changed("speed") {
				speed = Config.Simulation.Speed
			}
			if !cmd.Flags().Changed("metrics-addr") {
				addr = Config.Metrics.Addr
			}
		}

		loop, err := newRunLoop(speed, runSaveEvery)
		if err != nil {
			return err
		}

		if err := Game.WatchConfig(); err != nil {
			Logger.Warn("config watch unavailable", zap.Error(err))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if addr != "" {
			shutdown, err := serveMetrics(addr)
			if err != nil {
				return err
			}
			defer shutdown()
			fmt.Printf("Serving metrics on http://%s/metrics\n", addr)
		}

		fmt.Printf("Running at %gx (one game hour every %s). Press Ctrl-C to stop.\n",
			loop.runner.Speed(), loop.runner.Interval())

		hours, runErr := loop.runner.Run(ctx, runHours)
		saveErr := Game.Do(Game.Save)

		st := currentStatus()
		fmt.Printf("Ran %d game hour(s). Now %s.\n", hours, st.Time)
		return errors.Join(runErr, saveErr)
	},
}

// runLoop couples a Runner to the loaded settlement. Each tick steps the
// simulation under the game lock, saves periodically and refreshes the
// live gauges.
type runLoop struct {
	runner    *sim.Runner
	saveEvery int
	ticks     int
}

func newRunLoop(speed float64, saveEvery int) (*runLoop, error) {
	interval := time.Second
	if Config != nil && Config.Simulation.TickInterval > 0 {
		interval = Config.Simulation.TickInterval
	}
	loop := &runLoop{saveEvery: saveEvery}
	runner, err := sim.NewRunner(loop.step, interval, speed)
	if err != nil {
		return nil, err
	}
	loop.runner = runner
	return loop, nil
}

func (l *runLoop) step() error {
	return Game.Do(func() error {
		Sim.Step()
		l.ticks++
		if Collector != nil {
			Collector.Observe(observability.LiveStateOf(Game.Status()))
		}
		if l.saveEvery > 0 && l.ticks%l.saveEvery == 0 {
			if err := Game.Save(); err != nil {
				return err
			}
			Logger.Debug("autosaved", zap.Int("ticks", l.ticks))
		}
		return nil
	})
}

// currentStatus reads the settlement status under the game lock.
func currentStatus() (st models.SettlementStatus) {
	_ = Game.Do(func() error {
		st = Game.Status()
		return nil
	})
	return st
}

// serveMetrics starts the Prometheus endpoint and returns a function that
// shuts it down.
func serveMetrics(addr string) (func(), error) {
	if Collector == nil {
		return nil, fmt.Errorf("metrics collector not initialized")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Error("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func init() {
	runCmd.Flags().IntVar(&runHours, "hours", 0, "Stop after this many game hours (0 = until interrupted)")
	runCmd.Flags().Float64Var(&runSpeed, "speed", 1, "Speed multiplier: 0.5, 1, 2, 5 or 10 (default from config)")
	runCmd.Flags().IntVar(&runSaveEvery, "save-every", 24, "Save every N game hours (0 = only when stopping)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (default from config)")
	rootCmd.AddCommand(runCmd)
}
