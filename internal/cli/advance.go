package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/settlement/pkg/models"
)

var advanceCmd = &cobra.Command{
	Use:   "advance <hours>",
	Short: "Advance the simulation clock and save",
	Long: `Advance game time by the given number of hours, one hour at a time.

Every hour in-progress tasks gain progress, deadlines are checked and idle
characters are auto-assigned if enabled. Crossing midnight restores stamina;
crossing noon serves the daily meal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hours, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid hours %q: %w", args[0], err)
		}
		if Sim == nil {
			return errNotInitialized
		}

		return mutate(func() error {
			before := Game.Status()
			if err := Sim.AdvanceTime(hours); err != nil {
				return err
			}
			after := Game.Status()
			fmt.Printf("%s -> %s\n", before.Time, after.Time)
			fmt.Printf("Food: %d -> %d", before.FoodStock, after.FoodStock)
			if len(after.Hungry) > 0 {
				fmt.Printf(" (%d hungry)", len(after.Hungry))
			}
			fmt.Println()
			fmt.Printf("Tasks completed: %d, failed: %d\n",
				after.Tasks[models.StatusCompleted]-before.Tasks[models.StatusCompleted],
				after.Tasks[models.StatusFailed]-before.Tasks[models.StatusFailed])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(advanceCmd)
}
