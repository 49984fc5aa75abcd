package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/settlement/internal/observability"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display task, production and food metrics",
	Long: `Display aggregated metrics derived from the event log.

Counts cover the task lifecycle (created, completed, failed, cancelled,
auto-assigned, recurring), tasks by type, failures by reason, items produced
and food consumption. --since takes a real-time window such as 90m, 24h or
7d, measured from when the events were recorded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics are unavailable: observability is disabled")
		}

		since, err := observability.SinceWindow(metricsSince, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
		m, err := MetricsCalc.Calculate(since)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		if metricsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(m)
		}
		printMetrics(since, m)
		return nil
	},
}

var metricsTitle = lipgloss.NewStyle().Bold(true)

func printMetrics(since time.Time, m *observability.Metrics) {
	fmt.Println(metricsTitle.Render("Metrics since " + since.Format("2006-01-02 15:04")))

	rows := [][]string{
		{"Events recorded", strconv.Itoa(m.EventCount)},
		{"Days elapsed", strconv.Itoa(m.DaysElapsed)},
		{"Tasks created", strconv.Itoa(m.TasksCreated)},
		{"Tasks completed", strconv.Itoa(m.TasksCompleted)},
		{"Tasks failed", strconv.Itoa(m.TasksFailed)},
		{"Tasks cancelled", strconv.Itoa(m.TasksCancelled)},
		{"Auto-assigned", strconv.Itoa(m.TasksAutoAssigned)},
		{"Recurring cycles", strconv.Itoa(m.RecurringCreated)},
		{"Food consumed", fmt.Sprintf("%d over %d meal(s)", m.FoodConsumed, m.Meals)},
		{"Days with hunger", strconv.Itoa(m.HungerDays)},
	}
	if m.OldestEvent != nil && m.NewestEvent != nil {
		rows = append(rows,
			[]string{"Oldest event", m.OldestEvent.Format(time.RFC3339)},
			[]string{"Newest event", m.NewestEvent.Format(time.RFC3339)})
	}
	if m.GameStart != nil && m.GameEnd != nil {
		rows = append(rows, []string{"Game time covered",
			m.GameStart.Format("2006-01-02 15:04") + " to " + m.GameEnd.Format("2006-01-02 15:04")})
	}
	fmt.Println(metricsTable().Rows(rows...).Render())

	printCounts("Tasks by type", m.TasksByType)
	printCounts("Failures by reason", m.FailuresByReason)
	printCounts("Items produced", m.ItemsProduced)
}

func metricsTable() *table.Table {
	return table.New().Border(lipgloss.RoundedBorder())
}

// printCounts prints a titled breakdown in key order. Empty maps print
// nothing.
func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	t := metricsTable().Headers(title, "Count")
	for _, key := range slices.Sorted(maps.Keys(counts)) {
		t.Row(key, strconv.Itoa(counts[key]))
	}
	fmt.Println(t.Render())
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Real-time window to aggregate (e.g. 90m, 24h, 7d)")
	rootCmd.AddCommand(metricsCmd)
}
