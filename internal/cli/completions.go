package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/settlement/pkg/models"
)

// completeTaskIDs returns a completion function that lists task IDs,
// optionally filtered to exclude certain statuses.
func completeTaskIDs(excludeStatuses ...models.TaskStatus) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return taskIDCandidates(toComplete, excludeStatuses), cobra.ShellCompDirectiveNoFileComp
	}
}

func taskIDCandidates(toComplete string, excludeStatuses []models.TaskStatus) []string {
	exclude := make(map[models.TaskStatus]bool)
	for _, s := range excludeStatuses {
		exclude[s] = true
	}

	var ids []string
	_ = view(func() error {
		for _, task := range TaskMgr.GetAllTasks() {
			if exclude[task.Status] {
				continue
			}
			if toComplete == "" || strings.HasPrefix(task.ID, toComplete) {
				ids = append(ids, task.ID+"\t"+string(task.Type)+": "+task.Name)
			}
		}
		return nil
	})
	return ids
}

// completeAssignArgs completes a pending task ID, then an idle character ID.
func completeAssignArgs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return taskIDCandidates(toComplete, []models.TaskStatus{
			models.StatusInProgress, models.StatusCompleted, models.StatusFailed, models.StatusCancelled,
		}), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return completeCharacterIDs(true, toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// completeCharacterIDs lists roster IDs with the character name as
// description. With idleOnly, characters holding a task are skipped.
func completeCharacterIDs(idleOnly bool, toComplete string) []string {
	if Roster == nil {
		return nil
	}
	var ids []string
	_ = view(func() error {
		for _, c := range Roster.Characters() {
			if idleOnly && c.CurrentTaskID != "" {
				continue
			}
			id := strconv.Itoa(c.ID)
			if strings.HasPrefix(id, toComplete) {
				ids = append(ids, id+"\t"+c.Name)
			}
		}
		return nil
	})
	return ids
}

// completeTemplateIDs lists registered template IDs.
func completeTemplateIDs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 || TmplMgr == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var ids []string
	for _, tmpl := range TmplMgr.ListTemplates() {
		if strings.HasPrefix(tmpl.ID, toComplete) {
			ids = append(ids, tmpl.ID+"\t"+tmpl.Name)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// completeSlots lists existing save slots.
func completeSlots(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 || Saves == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	infos, err := Saves.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var slots []string
	for _, info := range infos {
		if strings.HasPrefix(info.Slot, toComplete) {
			slots = append(slots, info.Slot)
		}
	}
	return slots, cobra.ShellCompDirectiveNoFileComp
}

// completeTaskTypes returns the valid task type values.
func completeTaskTypes(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	out := make([]string, len(models.TaskTypes))
	for i, t := range models.TaskTypes {
		out[i] = string(t)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completePriorities returns a completion function for priority values.
func completePriorities(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"10\tUrgent",
		"8\tHigh",
		"5\tNormal",
		"3\tLow",
		"1\tWhenever",
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeStatuses returns a completion function for task status values.
func completeStatuses(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"pending\tWaiting for a worker",
		"in_progress\tBeing worked on",
		"completed\tOutputs delivered",
		"failed\tAbandoned with a reason",
		"cancelled\tWithdrawn",
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeFailureReasons returns the failure reason values.
func completeFailureReasons(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(models.FailureRoleUnavailable),
		string(models.FailureInsufficientSkill),
		string(models.FailureInsufficientItems),
		string(models.FailureExpired),
		string(models.FailureOther),
	}, cobra.ShellCompDirectiveNoFileComp
}

// registerTaskCreateCompletions registers flag completion functions on a
// task creation command.
func registerTaskCreateCompletions(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("priority", completePriorities)
	if cmd.Flags().Lookup("type") != nil {
		_ = cmd.RegisterFlagCompletionFunc("type", completeTaskTypes)
	}
	_ = cmd.RegisterFlagCompletionFunc("assign", func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return completeCharacterIDs(true, toComplete), cobra.ShellCompDirectiveNoFileComp
	})
}
