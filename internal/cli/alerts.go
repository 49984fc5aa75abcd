package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/settlement/internal/observability"
)

var (
	alertsNotify      bool
	alertsJSON        bool
	alertsMinSeverity string
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active alerts and warnings",
	Long: `Evaluate alert conditions against the event log and the current settlement.

Conditions are hunger at the last meal (high), food stock below the
configured number of days (medium), tasks that expired within the recent
game-time window (medium) and an oversized pending backlog (low).
--min-severity hides anything below the given level; --notify posts what
remains to the configured Slack webhook.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alerts are unavailable: observability is disabled")
		}
		floor, err := observability.ParseSeverity(alertsMinSeverity)
		if err != nil {
			return fmt.Errorf("--min-severity: %w", err)
		}

		var state observability.SettlementState
		if err := view(func() error {
			state = observability.StateOf(Game.Status())
			return nil
		}); err != nil {
			return err
		}

		all, err := AlertEngine.Evaluate(state)
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}
		alerts := make([]observability.Alert, 0, len(all))
		for _, a := range all {
			if a.Severity.AtLeast(floor) {
				alerts = append(alerts, a)
			}
		}

		if alertsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(alerts); err != nil {
				return err
			}
		} else {
			printAlerts(alerts)
		}

		if !alertsNotify || len(alerts) == 0 {
			return nil
		}
		if Notifier == nil {
			return fmt.Errorf("notifications are not configured (set notifications.enabled and notifications.slack.webhook_url)")
		}
		if err := Notifier.Notify(alerts); err != nil {
			return fmt.Errorf("sending alerts: %w", err)
		}
		if !alertsJSON {
			fmt.Println("Alerts sent.")
		}
		return nil
	},
}

func printAlerts(alerts []observability.Alert) {
	if len(alerts) == 0 {
		fmt.Println("No active alerts.")
		return
	}
	fmt.Printf("%d active alert(s) at %s:\n\n", len(alerts), alerts[0].TriggeredAt.Format("2006-01-02 15:04"))
	for _, a := range alerts {
		tag := styleForSeverity(string(a.Severity)).Render("[" + strings.ToUpper(string(a.Severity)) + "]")
		fmt.Printf("  %-8s %s\n", tag, a.Message)
	}
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Also send the alerts to the configured webhook")
	alertsCmd.Flags().BoolVar(&alertsJSON, "json", false, "Output alerts as JSON")
	alertsCmd.Flags().StringVar(&alertsMinSeverity, "min-severity", "low", "Hide alerts below this severity (high, medium, low)")
	_ = alertsCmd.RegisterFlagCompletionFunc("min-severity", cobra.FixedCompletions(
		[]string{"high", "medium", "low"}, cobra.ShellCompDirectiveNoFileComp))
	rootCmd.AddCommand(alertsCmd)
}
