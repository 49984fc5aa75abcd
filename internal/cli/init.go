package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/settlement/internal/core"
	"github.com/valter-silva-au/settlement/internal/storage"
)

var (
	initPopulation int
	initSeed       uint64
	initForce      bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Start a new settlement",
	Long: `Start a new settlement in the active save slot.

Generates a roster of characters with random skills, fills the inventory with
the starting stock, sets the clock to the configured start time, and writes a
default .settlement.yaml if none exists. An existing save is only replaced
with --force.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Game == nil || Saves == nil {
			return errNotInitialized
		}

		population := initPopulation
		if !cmd.Flags().Changed("population") && Config != nil {
			population = Config.Simulation.Population
		}

		if !initForce && Config != nil {
			if _, err := Saves.Load(Config.Save.Slot); err == nil {
				return fmt.Errorf("save slot %q already exists (use --force to replace it)", Config.Save.Slot)
			} else if !errors.Is(err, storage.ErrSlotNotFound) {
				return fmt.Errorf("checking save slot: %w", err)
			}
		}

		if BasePath != "" {
			if err := os.MkdirAll(BasePath, 0o755); err != nil {
				return fmt.Errorf("creating settlement directory: %w", err)
			}
			path, err := core.NewConfigurationManager(BasePath).WriteDefaultConfig()
			if err != nil {
				return err
			}
			fmt.Printf("Config: %s\n", path)
		}

		err := Game.Do(func() error {
			if err := Game.NewGame(population, initSeed); err != nil {
				return err
			}
			return Game.Save()
		})
		if err != nil {
			return err
		}

		fmt.Printf("Founded a settlement of %d characters.\n", population)
		return nil
	},
}

func init() {
	initCmd.Flags().IntVar(&initPopulation, "population", 10, "Number of characters to generate (default from config)")
	initCmd.Flags().Uint64Var(&initSeed, "seed", 0, "Seed for the roster generator (0 = random)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Replace an existing save")
	rootCmd.AddCommand(initCmd)
}
