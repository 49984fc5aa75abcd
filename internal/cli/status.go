package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/settlement/pkg/models"
)

// statusOrder lists task statuses in lifecycle order.
var statusOrder = []models.TaskStatus{
	models.StatusInProgress,
	models.StatusPending,
	models.StatusCompleted,
	models.StatusFailed,
	models.StatusCancelled,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show game time, food and task counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var st models.SettlementStatus
		if err := view(func() error {
			st = Game.Status()
			return nil
		}); err != nil {
			return err
		}
		printStatus(st)
		return nil
	},
}

func printStatus(st models.SettlementStatus) {
	fmt.Printf("Time:        %s\n", st.Time)
	fmt.Printf("Population:  %d (%d idle)\n", st.Population, st.Idle)
	fmt.Printf("Food:        %d %s (%d per day)\n", st.FoodStock, st.FoodItem, st.DailyDemand)
	if st.LastMeal.IsZero() {
		fmt.Println("Last meal:   never")
	} else {
		fmt.Printf("Last meal:   %s\n", st.LastMeal)
	}
	if len(st.Hungry) > 0 {
		ids := make([]string, len(st.Hungry))
		for i, id := range st.Hungry {
			ids[i] = fmt.Sprint(id)
		}
		fmt.Printf("Hungry:      %s\n", strings.Join(ids, ", "))
	}
	fmt.Printf("Auto-assign: %v\n", st.AutoAssign)

	fmt.Println("\nTasks:")
	total := 0
	for _, s := range statusOrder {
		fmt.Printf("  %-12s %d\n", s, st.Tasks[s])
		total += st.Tasks[s]
	}
	fmt.Printf("  %-12s %d\n", "total", total)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
