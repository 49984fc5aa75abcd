package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	settlemcp "github.com/valter-silva-au/settlement/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the settle MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the settle MCP server on stdio",
	Long: `Start the settle MCP server on stdio transport.

The server exposes the task scheduler as MCP tools: list_tasks, get_task,
create_task_from_template, assign_task, unassign_task, cancel_task,
auto_assign, advance_time, get_status, get_metrics and get_alerts.
Mutating tools save the settlement before returning.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Game == nil || TaskMgr == nil || Sim == nil {
			return errNotInitialized
		}

		srv := settlemcp.NewServer(settlemcp.Deps{
			Game:        Game,
			Tasks:       TaskMgr,
			Templates:   TmplMgr,
			Sim:         Sim,
			MetricsCalc: MetricsCalc,
			AlertEngine: AlertEngine,
		}, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
