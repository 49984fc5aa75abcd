package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var inventoryCmd = &cobra.Command{
	Use:     "inventory",
	Aliases: []string{"inv"},
	Short:   "Show or adjust the settlement's item stock",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Inventory == nil {
			return errNotInitialized
		}
		var ids []string
		var items map[string]int
		if err := view(func() error {
			ids = Inventory.ItemIDs()
			items = Inventory.Items()
			return nil
		}); err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("Inventory is empty.")
			return nil
		}
		for _, id := range ids {
			fmt.Printf("  %-16s %6d\n", id, items[id])
		}
		return nil
	},
}

// inventoryAdjustCmd builds a command that changes one item's stock.
func inventoryAdjustCmd(use, short string, apply func(item string, n int)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <item> <quantity>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if Inventory == nil {
				return errNotInitialized
			}
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid quantity %q: must be a non-negative integer", args[1])
			}
			return mutate(func() error {
				apply(args[0], n)
				fmt.Printf("%s: %d\n", args[0], Inventory.Quantity(args[0]))
				return nil
			})
		},
	}
}

func init() {
	inventoryCmd.AddCommand(inventoryAdjustCmd("add", "Add items to the stock",
		func(item string, n int) { Inventory.Add(item, n) }))
	inventoryCmd.AddCommand(inventoryAdjustCmd("remove", "Remove items from the stock (stops at zero)",
		func(item string, n int) { Inventory.Remove(item, n) }))
	inventoryCmd.AddCommand(inventoryAdjustCmd("set", "Set an item's quantity",
		func(item string, n int) { Inventory.Set(item, n) }))
	rootCmd.AddCommand(inventoryCmd)
}
