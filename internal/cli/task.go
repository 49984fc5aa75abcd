package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/settlement/internal/core"
	"github.com/valter-silva-au/settlement/internal/sim"
	"github.com/valter-silva-au/settlement/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks (create, assign, progress, cancel, inspect)",
	Long: `Unified task management commands.

Create tasks directly or from templates, assign them to characters, complete,
fail or cancel them, and rank characters by fitness for a task. Every
mutating command saves the settlement.`,
}

var (
	taskCreateName        string
	taskCreateType        string
	taskCreateDescription string
	taskCreatePriority    int
	taskCreateDeadline    int
	taskCreateSkills      []string
	taskCreateRequires    []string
	taskCreateOutputs     []string
	taskCreateTags        []string
	taskCreateLocation    string
	taskCreateRecurring   bool
	taskCreateAssign      int
)

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new task",
	Long: `Create a pending task.

Skills, required items and outputs are given as id:number pairs, e.g.
--skill woodworking:3 --require wood:2 --output planks:4. With --assign the
task is offered to that character right away; if the character cannot take
it the task stays pending.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		skills, err := parseSkillRequirements(taskCreateSkills)
		if err != nil {
			return err
		}
		requires, err := parseItemRequirements(taskCreateRequires)
		if err != nil {
			return err
		}
		outputs, err := parseItemOutputs(taskCreateOutputs)
		if err != nil {
			return err
		}

		params := models.CreateTaskParams{
			Name:           taskCreateName,
			Type:           models.TaskType(taskCreateType),
			Description:    taskCreateDescription,
			Priority:       taskCreatePriority,
			RequiredSkills: skills,
			RequiredItems:  requires,
			OutputItems:    outputs,
			Tags:           taskCreateTags,
			Location:       taskCreateLocation,
			IsRecurring:    taskCreateRecurring,
			IsUserCreated:  true,
			AssignTo:       taskCreateAssign,
		}

		return mutate(func() error {
			params.Deadline = deadlineIn(taskCreateDeadline)
			task, err := TaskMgr.CreateTask(params)
			if err != nil {
				return fmt.Errorf("creating task: %w", err)
			}
			printCreated(task)
			return nil
		})
	},
}

var (
	taskTemplateName      string
	taskTemplatePriority  int
	taskTemplateDeadline  int
	taskTemplateRecurring bool
	taskTemplateAssign    int
	taskTemplateTags      []string
)

var taskFromTemplateCmd = &cobra.Command{
	Use:   "from-template <template-id>",
	Short: "Create a task from a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TmplMgr == nil {
			return errNotInitialized
		}
		return mutate(func() error {
			task, err := TmplMgr.CreateFromTemplate(args[0], core.TemplateOverrides{
				Name:          taskTemplateName,
				Priority:      taskTemplatePriority,
				Deadline:      deadlineIn(taskTemplateDeadline),
				Tags:          taskTemplateTags,
				IsRecurring:   taskTemplateRecurring,
				IsUserCreated: true,
				AssignTo:      taskTemplateAssign,
			})
			if err != nil {
				return err
			}
			printCreated(task)
			return nil
		})
	},
}

var (
	taskListStatus string
	taskListType   string
)

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `List tasks in creation order, optionally filtered by --status and --type.
Columns: ID, STATUS, PRI, TYPE, PROGRESS, WORKER, NAME.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var tasks []*models.Task
		if err := view(func() error {
			switch {
			case taskListStatus != "":
				tasks = TaskMgr.GetTasksByStatus(models.TaskStatus(taskListStatus))
			case taskListType != "":
				tasks = TaskMgr.GetTasksByType(models.TaskType(taskListType))
			default:
				tasks = TaskMgr.GetAllTasks()
			}
			return nil
		}); err != nil {
			return err
		}

		if taskListStatus != "" && taskListType != "" {
			filtered := tasks[:0]
			for _, t := range tasks {
				if t.Type == models.TaskType(taskListType) {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}
		printTaskTable(tasks)
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task with its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var task *models.Task
		if err := view(func() error {
			var err error
			task, err = TaskMgr.GetTask(args[0])
			return err
		}); err != nil {
			return err
		}
		printTaskDetail(task)
		return nil
	},
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign <task-id> <character-id>",
	Short: "Assign a pending task to a character",
	Long: `Assign a pending task to an idle character. The task's required items are
taken from the inventory and the task moves to in_progress.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		characterID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid character id %q: %w", args[1], err)
		}
		return mutate(func() error {
			if err := TaskMgr.AssignTaskToRole(args[0], characterID); err != nil {
				return err
			}
			fmt.Printf("Assigned %s to character %d\n", args[0], characterID)
			return nil
		})
	},
}

// taskActionCmd builds a command that applies action to a single task.
func taskActionCmd(use, short, done string, action func(taskID string) error) *cobra.Command {
	return &cobra.Command{
		Use:               use + " <task-id>",
		Short:             short,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTaskIDs(models.StatusCompleted, models.StatusFailed, models.StatusCancelled),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func() error {
				if err := action(args[0]); err != nil {
					return err
				}
				fmt.Printf("Task %s %s\n", args[0], done)
				return nil
			})
		},
	}
}

var taskUnassignCmd = taskActionCmd("unassign", "Return an in-progress task to pending", "unassigned",
	func(id string) error { return TaskMgr.UnassignTask(id) })

var taskCancelCmd = taskActionCmd("cancel", "Cancel a task", "cancelled",
	func(id string) error { return TaskMgr.CancelTask(id) })

var taskCompleteCmd = taskActionCmd("complete", "Complete an in-progress task now", "completed",
	func(id string) error { return TaskMgr.CompleteTask(id) })

var taskFailReason string

var taskFailCmd = taskActionCmd("fail", "Mark a task as failed", "failed",
	func(id string) error { return TaskMgr.FailTask(id, models.FailureReason(taskFailReason)) })

var taskAutoAssignCmd = &cobra.Command{
	Use:   "autoassign",
	Short: "Assign idle characters to pending tasks by priority and fitness",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(func() error {
			n := TaskMgr.AutoAssignRolesToTasks()
			fmt.Printf("Auto-assigned %d task(s)\n", n)
			return nil
		})
	},
}

var taskFitCmd = &cobra.Command{
	Use:   "fit <task-id>",
	Short: "Rank every character by fitness for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var scores []models.FitScore
		if err := view(func() error {
			var err error
			scores, err = TaskMgr.RankCandidates(args[0])
			return err
		}); err != nil {
			return err
		}

		if len(scores) == 0 {
			fmt.Println("No characters.")
			return nil
		}
		fmt.Printf("  %-4s %-16s %-7s %-7s %-7s %-7s %s\n", "ID", "NAME", "SCORE", "SKILL", "AVAIL", "OTHER", "ELIGIBLE")
		for _, s := range scores {
			fmt.Printf("  %-4d %-16s %-7.1f %-7.1f %-7.1f %-7.1f %v\n",
				s.CharacterID, s.CharacterName, s.Overall, s.Skill, s.Availability, s.Other, s.Eligible)
		}
		return nil
	},
}

// deadlineIn returns the game time hours from now, or nil for hours <= 0.
// It must run inside Game.Do.
func deadlineIn(hours int) *time.Time {
	if hours <= 0 || Sim == nil {
		return nil
	}
	d := sim.AddHours(Sim.Clock().Current(), hours).Time()
	return &d
}

// splitPair parses an "id:n" flag value.
func splitPair(flag, value string) (string, int, error) {
	id, num, ok := strings.Cut(value, ":")
	if !ok || id == "" {
		return "", 0, fmt.Errorf("invalid --%s %q: expected id:number", flag, value)
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return "", 0, fmt.Errorf("invalid --%s %q: %w", flag, value, err)
	}
	return id, n, nil
}

func parseSkillRequirements(values []string) ([]models.SkillRequirement, error) {
	var out []models.SkillRequirement
	for _, v := range values {
		id, level, err := splitPair("skill", v)
		if err != nil {
			return nil, err
		}
		out = append(out, models.SkillRequirement{SkillID: id, RequiredLevel: level})
	}
	return out, nil
}

func parseItemRequirements(values []string) ([]models.ItemRequirement, error) {
	var out []models.ItemRequirement
	for _, v := range values {
		id, n, err := splitPair("require", v)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ItemRequirement{ItemID: id, Quantity: n})
	}
	return out, nil
}

func parseItemOutputs(values []string) ([]models.ItemOutput, error) {
	var out []models.ItemOutput
	for _, v := range values {
		id, n, err := splitPair("output", v)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ItemOutput{ItemID: id, Quantity: n})
	}
	return out, nil
}

func printCreated(task *models.Task) {
	fmt.Printf("Created task %s\n", task.ID)
	fmt.Printf("  Name:     %s\n", task.Name)
	fmt.Printf("  Type:     %s\n", task.Type)
	fmt.Printf("  Priority: %d\n", task.Priority)
	fmt.Printf("  Status:   %s\n", task.Status)
	if task.AssignedCharacterID != 0 {
		fmt.Printf("  Worker:   %d\n", task.AssignedCharacterID)
	}
	if task.Deadline != nil {
		fmt.Printf("  Deadline: %s\n", task.Deadline.Format("2006-01-02 15:04"))
	}
}

func printTaskTable(tasks []*models.Task) {
	fmt.Printf("  %-13s %-11s %-3s %-11s %-8s %-6s %s\n", "ID", "STATUS", "PRI", "TYPE", "PROGRESS", "WORKER", "NAME")
	for _, t := range tasks {
		worker := "-"
		if t.AssignedCharacterID != 0 {
			worker = strconv.Itoa(t.AssignedCharacterID)
		}
		fmt.Printf("  %-13s %-11s %-3d %-11s %7.1f%% %-6s %s\n",
			t.ID, t.Status, t.Priority, t.Type, t.Progress, worker, t.Name)
	}
}

func printTaskDetail(t *models.Task) {
	fmt.Printf("%s  %s\n", t.ID, t.Name)
	fmt.Printf("  Type:      %s\n", t.Type)
	fmt.Printf("  Status:    %s", t.Status)
	if t.FailureReason != "" {
		fmt.Printf(" (%s)", t.FailureReason)
	}
	fmt.Println()
	fmt.Printf("  Priority:  %d\n", t.Priority)
	fmt.Printf("  Progress:  %.1f%%\n", t.Progress)
	fmt.Printf("  Estimate:  %.1fh base, %.1fh min, skill factor %.2f\n", t.Estimate.BaseHours, t.Estimate.MinHours, t.Estimate.SkillFactor)
	if t.AssignedCharacterID != 0 {
		fmt.Printf("  Worker:    %d\n", t.AssignedCharacterID)
	}
	if t.Deadline != nil {
		fmt.Printf("  Deadline:  %s\n", t.Deadline.Format("2006-01-02 15:04"))
	}
	if t.IsRecurring {
		fmt.Printf("  Recurring: cycle %d\n", max(1, t.Cycle))
	}
	for _, s := range t.RequiredSkills {
		fmt.Printf("  Skill:     %s >= %d\n", s.SkillID, s.RequiredLevel)
	}
	for _, item := range t.RequiredItems {
		fmt.Printf("  Requires:  %s x%d\n", item.ItemID, item.Quantity)
	}
	for _, out := range t.OutputItems {
		fmt.Printf("  Produces:  %s x%d", out.ItemID, out.Quantity)
		if out.QualityModifier != nil {
			fmt.Printf(" (quality %.2f)", *out.QualityModifier)
		}
		fmt.Println()
	}
	if len(t.Tags) > 0 {
		fmt.Printf("  Tags:      %s\n", strings.Join(t.Tags, ", "))
	}

	fmt.Println("\n  History:")
	for _, h := range t.History {
		fmt.Printf("    %s  %-18s %s\n", h.Timestamp.Format("2006-01-02 15:04"), h.Type, h.Description)
	}
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskCreateName, "name", "", "Task name (required)")
	taskCreateCmd.Flags().StringVar(&taskCreateType, "type", string(models.TaskTypeCrafting), "Task type: crafting, gathering, building, research, maintenance or training")
	taskCreateCmd.Flags().StringVar(&taskCreateDescription, "description", "", "Task description")
	taskCreateCmd.Flags().IntVar(&taskCreatePriority, "priority", 0, "Priority 1-10 (default 5)")
	taskCreateCmd.Flags().IntVar(&taskCreateDeadline, "deadline-hours", 0, "Deadline in game hours from now")
	taskCreateCmd.Flags().StringSliceVar(&taskCreateSkills, "skill", nil, "Required skill as id:level (repeatable)")
	taskCreateCmd.Flags().StringSliceVar(&taskCreateRequires, "require", nil, "Required item as id:quantity (repeatable)")
	taskCreateCmd.Flags().StringSliceVar(&taskCreateOutputs, "output", nil, "Output item as id:quantity (repeatable)")
	taskCreateCmd.Flags().StringSliceVar(&taskCreateTags, "tag", nil, "Tag (repeatable)")
	taskCreateCmd.Flags().StringVar(&taskCreateLocation, "location", "", "Where the work happens")
	taskCreateCmd.Flags().BoolVar(&taskCreateRecurring, "recurring", false, "Recreate the task each time it completes")
	taskCreateCmd.Flags().IntVar(&taskCreateAssign, "assign", 0, "Character to assign immediately")
	_ = taskCreateCmd.MarkFlagRequired("name")
	registerTaskCreateCompletions(taskCreateCmd)

	taskFromTemplateCmd.Flags().StringVar(&taskTemplateName, "name", "", "Override the template name")
	taskFromTemplateCmd.Flags().IntVar(&taskTemplatePriority, "priority", 0, "Override the template priority")
	taskFromTemplateCmd.Flags().IntVar(&taskTemplateDeadline, "deadline-hours", 0, "Deadline in game hours from now")
	taskFromTemplateCmd.Flags().BoolVar(&taskTemplateRecurring, "recurring", false, "Recreate the task each time it completes")
	taskFromTemplateCmd.Flags().IntVar(&taskTemplateAssign, "assign", 0, "Character to assign immediately")
	taskFromTemplateCmd.Flags().StringSliceVar(&taskTemplateTags, "tag", nil, "Extra tag (repeatable)")
	registerTaskCreateCompletions(taskFromTemplateCmd)
	taskFromTemplateCmd.ValidArgsFunction = completeTemplateIDs

	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "Filter by status (pending, in_progress, completed, failed, cancelled)")
	taskListCmd.Flags().StringVar(&taskListType, "type", "", "Filter by task type")
	_ = taskListCmd.RegisterFlagCompletionFunc("status", completeStatuses)
	_ = taskFailCmd.RegisterFlagCompletionFunc("reason", completeFailureReasons)
	_ = taskListCmd.RegisterFlagCompletionFunc("type", completeTaskTypes)

	taskFailCmd.Flags().StringVar(&taskFailReason, "reason", string(models.FailureOther), "Failure reason: role_unavailable, insufficient_skill, insufficient_items, expired or other")

	taskShowCmd.ValidArgsFunction = completeTaskIDs()
	taskAssignCmd.ValidArgsFunction = completeAssignArgs
	taskFitCmd.ValidArgsFunction = completeTaskIDs()

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskFromTemplateCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskAssignCmd)
	taskCmd.AddCommand(taskUnassignCmd)
	taskCmd.AddCommand(taskCancelCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskFailCmd)
	taskCmd.AddCommand(taskAutoAssignCmd)
	taskCmd.AddCommand(taskFitCmd)

	rootCmd.AddCommand(taskCmd)
}
