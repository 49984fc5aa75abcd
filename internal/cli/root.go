package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valter-silva-au/settlement/internal/core"
	"github.com/valter-silva-au/settlement/internal/storage"
)

// Build metadata, overridden from main via SetVersionInfo.
var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo records the version, commit and build date stamped in at
// link time.
func SetVersionInfo(version, commit, date string) {
	appVersion, appCommit, appDate = version, commit, date
}

// slotFlag selects a save slot other than the configured one for a single
// invocation.
var slotFlag string

var rootCmd = &cobra.Command{
	Use:   "settle",
	Short: "Settlement task scheduler and simulation",
	Long: `settle runs a small settlement: characters with skills, an inventory,
and a queue of tasks they are assigned to, work on and complete while game
time advances hour by hour.

Every command works on the active save slot, which is save.slot from
.settlement.yaml unless --slot names another. Commands that change the
settlement write it back to that slot.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if slotFlag == "" {
			return nil
		}
		return switchSlot(slotFlag, cmd == initCmd)
	},
}

// switchSlot makes slot the active save slot and loads it. A slot that does
// not exist yet is only accepted when the command is about to create it.
func switchSlot(slot string, creating bool) error {
	if !core.ValidSlotName(slot) {
		return fmt.Errorf("--slot: invalid slot name %q", slot)
	}
	if Game == nil || Config == nil {
		return errNotInitialized
	}
	return Game.Do(func() error {
		err := Game.Load(slot)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrSlotNotFound) && creating:
		default:
			return fmt.Errorf("--slot %s: %w", slot, err)
		}
		Config.Save.Slot = slot
		Logger.Debug("active slot", zap.String("slot", slot))
		return nil
	})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// Version must work without a settlement.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("settle %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&slotFlag, "slot", "", "Save slot to use instead of save.slot")
	_ = rootCmd.RegisterFlagCompletionFunc("slot", completeSlots)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
