package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/settlement/internal/storage"
	"github.com/valter-silva-au/settlement/pkg/models"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Inspect and grow the settlement's characters",
}

var rosterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List characters with their work state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Roster == nil {
			return errNotInitialized
		}
		var chars []*models.Character
		if err := view(func() error {
			chars = Roster.Export()
			return nil
		}); err != nil {
			return err
		}
		if len(chars) == 0 {
			fmt.Println("No characters. Run 'settle init' first.")
			return nil
		}

		fmt.Printf("  %-4s %-18s %-10s %-8s %-8s %s\n", "ID", "NAME", "SPECIALTY", "STAMINA", "EFFIC.", "TASK")
		for _, c := range chars {
			task := "-"
			if c.CurrentTaskID != "" {
				task = c.CurrentTaskID
			}
			specialty := string(c.Specialty)
			if specialty == "" {
				specialty = "-"
			}
			fmt.Printf("  %-4d %-18s %-10s %-8.1f %-8.1f %s\n",
				c.ID, c.Name, specialty, c.WorkState.Stamina, c.WorkState.Efficiency, task)
		}
		return nil
	},
}

var rosterShowCmd = &cobra.Command{
	Use:   "show <character-id>",
	Short: "Show a character's skills and recent work",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return completeCharacterIDs(false, toComplete), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if Roster == nil {
			return errNotInitialized
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid character id %q: %w", args[0], err)
		}
		var c *models.Character
		if err := view(func() error {
			live, ok := Roster.Character(id)
			if !ok {
				return fmt.Errorf("character %d: %w", id, storage.ErrInvalidCharacter)
			}
			c = live.Clone()
			return nil
		}); err != nil {
			return err
		}
		printCharacter(c)
		return nil
	},
}

var rosterRecruitCount int

var rosterRecruitCmd = &cobra.Command{
	Use:   "recruit",
	Short: "Add new settlers with random skills",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Roster == nil {
			return errNotInitialized
		}
		if rosterRecruitCount < 1 {
			return fmt.Errorf("--count must be at least 1")
		}
		gen := storage.NewRosterGenerator(nil)
		return mutate(func() error {
			next := 1
			for _, c := range Roster.Characters() {
				next = max(next, c.ID+1)
			}
			for i := range rosterRecruitCount {
				c := gen.Recruit(next + i)
				if err := Roster.Add(c); err != nil {
					return err
				}
				fmt.Printf("Recruited %d %s\n", c.ID, c.Name)
			}
			return nil
		})
	},
}

func printCharacter(c *models.Character) {
	fmt.Printf("%d  %s\n", c.ID, c.Name)
	if c.Age > 0 {
		fmt.Printf("  Age:        %d\n", c.Age)
	}
	if c.Specialty != "" {
		fmt.Printf("  Specialty:  %s\n", c.Specialty)
	}
	fmt.Printf("  Stamina:    %.1f\n", c.WorkState.Stamina)
	fmt.Printf("  Efficiency: %.1f\n", c.WorkState.Efficiency)
	if c.CurrentTaskID != "" {
		fmt.Printf("  Task:       %s\n", c.CurrentTaskID)
	}
	if c.WorkState.LastRestTime != nil {
		fmt.Printf("  Rested:     %s\n", c.WorkState.LastRestTime.Format("2006-01-02 15:04"))
	}

	fmt.Println("\n  Skills:")
	for _, s := range c.Skills {
		fmt.Printf("    %-14s %-9s %d\n", s.ID, s.Type, s.EffectiveLevel())
	}
	if len(c.WorkState.TaskHistory) > 0 {
		fmt.Println("\n  Recent tasks:")
		for _, id := range c.WorkState.TaskHistory {
			fmt.Printf("    %s\n", id)
		}
	}
}

func init() {
	rosterRecruitCmd.Flags().IntVar(&rosterRecruitCount, "count", 1, "Number of settlers to recruit")

	rosterCmd.RunE = rosterListCmd.RunE
	rosterCmd.AddCommand(rosterListCmd)
	rosterCmd.AddCommand(rosterShowCmd)
	rosterCmd.AddCommand(rosterRecruitCmd)
	rootCmd.AddCommand(rosterCmd)
}
