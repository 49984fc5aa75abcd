package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Manage save slots",
	Long: `Every mutating command saves to the active slot (save.slot in
.settlement.yaml). These commands copy the game to other slots, load a slot
into the active game, and list or delete slots.`,
}

var saveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List save slots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Saves == nil {
			return errNotInitialized
		}
		infos, err := Saves.List()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No saves.")
			return nil
		}

		active := ""
		if Config != nil {
			active = Config.Save.Slot
		}
		fmt.Printf("  %-1s %-20s %-17s %-20s %s\n", "", "SLOT", "GAME TIME", "SAVED AT", "VERSION")
		for _, info := range infos {
			marker := ""
			if info.Slot == active {
				marker = "*"
			}
			fmt.Printf("  %-1s %-20s %-17s %-20s %s\n",
				marker, info.Slot, info.GameTime, info.SavedAt.Local().Format("2006-01-02 15:04:05"), info.Version)
		}
		return nil
	},
}

var saveAsCmd = &cobra.Command{
	Use:   "as <slot>",
	Short: "Save the current game to another slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := view(func() error { return Game.SaveAs(args[0]) }); err != nil {
			return err
		}
		fmt.Printf("Saved to %s\n", args[0])
		return nil
	},
}

var saveLoadCmd = &cobra.Command{
	Use:               "load <slot>",
	Short:             "Replace the active game with a saved slot",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeSlots,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := mutate(func() error { return Game.Load(args[0]) })
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %s\n", args[0])
		return nil
	},
}

var saveDeleteCmd = &cobra.Command{
	Use:               "delete <slot>",
	Short:             "Delete a save slot",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeSlots,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Saves == nil {
			return errNotInitialized
		}
		if Config != nil && args[0] == Config.Save.Slot {
			return fmt.Errorf("refusing to delete the active slot %q", args[0])
		}
		if err := Saves.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	saveCmd.AddCommand(saveListCmd)
	saveCmd.AddCommand(saveAsCmd)
	saveCmd.AddCommand(saveLoadCmd)
	saveCmd.AddCommand(saveDeleteCmd)
	rootCmd.AddCommand(saveCmd)
}
