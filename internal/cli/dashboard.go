package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/settlement/internal/observability"
	"github.com/valter-silva-au/settlement/internal/sim"
	"github.com/valter-silva-au/settlement/pkg/models"
)

type dashPanel int

const (
	panelSettlement dashPanel = iota
	panelTasks
	panelRoster
	panelAlerts
	panelCount
)

// dashboardRefresh is how often the dashboard re-reads the settlement.
const dashboardRefresh = 250 * time.Millisecond

// gridMinWidth is the terminal width from which panels are laid out two
// per row.
const gridMinWidth = 100

// dashboardData is one consistent read of the settlement.
type dashboardData struct {
	status  models.SettlementStatus
	working []taskLine
	crew    []crewLine
	metrics *observability.Metrics
	alerts  []observability.Alert
}

type taskLine struct {
	name     string
	worker   int
	progress float64
}

type crewLine struct {
	id      int
	name    string
	task    string
	stamina float64
}

type dataLoadedMsg struct {
	data dashboardData
	err  error
}

type refreshMsg struct{}

type noticeMsg string

type dashboardModel struct {
	activePanel dashPanel
	width       int
	runner      *sim.Runner

	data    dashboardData
	loaded  bool
	notice  string
	loadErr error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("230")).Background(lipgloss.Color("94")).Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("94"))
	panelBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	statusColors = map[models.TaskStatus]lipgloss.Color{
		models.StatusPending:    "245",
		models.StatusInProgress: "226",
		models.StatusCompleted:  "46",
		models.StatusFailed:     "196",
		models.StatusCancelled:  "240",
	}
)

const dashboardHelp = "space pause · +/- speed · a auto-assign · tab panel · r refresh · q quit"

func quit(*dashboardModel) tea.Cmd { return tea.Quit }

func togglePause(m *dashboardModel) tea.Cmd {
	m.onRunner(func(r *sim.Runner) { r.TogglePause() })
	return nil
}

func speedUp(m *dashboardModel) tea.Cmd {
	m.onRunner(func(r *sim.Runner) { r.Faster() })
	return nil
}

func slowDown(m *dashboardModel) tea.Cmd {
	m.onRunner(func(r *sim.Runner) { r.Slower() })
	return nil
}

func cyclePanel(step dashPanel) func(*dashboardModel) tea.Cmd {
	return func(m *dashboardModel) tea.Cmd {
		m.activePanel = (m.activePanel + panelCount + step) % panelCount
		return nil
	}
}

// dashboardKeys maps key presses to model actions.
var dashboardKeys = map[string]func(*dashboardModel) tea.Cmd{
	"q":         quit,
	"esc":       quit,
	"ctrl+c":    quit,
	"tab":       cyclePanel(1),
	"shift+tab": cyclePanel(-1),
	" ":         togglePause,
	"p":         togglePause,
	"+":         speedUp,
	"=":         speedUp,
	"-":         slowDown,
	"a":         func(*dashboardModel) tea.Cmd { return autoAssign },
	"r":         func(*dashboardModel) tea.Cmd { return loadData },
}

func newDashboardModel(runner *sim.Runner) dashboardModel {
	return dashboardModel{activePanel: panelSettlement, runner: runner}
}

func (m *dashboardModel) onRunner(fn func(*sim.Runner)) {
	if m.runner != nil {
		fn(m.runner)
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(loadData, scheduleRefresh())
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(dashboardRefresh, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if action, ok := dashboardKeys[msg.String()]; ok {
			return m, action(&m)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case refreshMsg:
		return m, tea.Batch(loadData, scheduleRefresh())
	case noticeMsg:
		m.notice = string(msg)
		return m, loadData
	case dataLoadedMsg:
		m.loadErr = msg.err
		if msg.err == nil {
			m.data, m.loaded = msg.data, true
		}
	}
	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	title := titleStyle.Render("Settlement")
	help := dimStyle.Render(dashboardHelp)

	var body string
	switch {
	case m.loadErr != nil:
		body = "Error: " + m.loadErr.Error()
	case !m.loaded:
		body = "Loading data..."
	default:
		body = m.renderPanels()
	}

	footer := help
	if m.notice != "" {
		footer = m.notice + "\n" + help
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", footer)
}

func (m dashboardModel) renderPanels() string {
	renderers := [panelCount]func() string{
		panelSettlement: m.renderSettlement,
		panelTasks:      m.renderTasks,
		panelRoster:     m.renderRoster,
		panelAlerts:     m.renderAlerts,
	}

	perRow := 1
	if m.width >= gridMinWidth {
		perRow = 2
	}
	width := max(m.width/perRow-4, 20)

	var rows []string
	var row []string
	for p, render := range renderers {
		style := panelBorder.BorderForeground(lipgloss.Color("240"))
		if dashPanel(p) == m.activePanel {
			style = style.BorderForeground(lipgloss.Color("94"))
		}
		row = append(row, style.Width(width).Render(render()))
		if len(row) == perRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m dashboardModel) renderSettlement() string {
	st := m.data.status
	lines := []string{headerStyle.Render("Settlement")}
	field := func(k, v string) { lines = append(lines, fmt.Sprintf("%-12s %s", k, v)) }

	field("Time", st.Time.String())
	if m.runner != nil {
		speed := fmt.Sprintf("%gx", m.runner.Speed())
		if m.runner.Paused() {
			speed += " " + pausedStyle.Render("PAUSED")
		}
		field("Speed", speed)
	}
	field("Population", fmt.Sprintf("%d (%d idle)", st.Population, st.Idle))
	field("Food", fmt.Sprintf("%d (%d/day)", st.FoodStock, st.DailyDemand))
	if len(st.Hungry) > 0 {
		field("Hungry", severityHigh.Render(fmt.Sprint(len(st.Hungry))))
	}
	field("Auto-assign", onOff(st.AutoAssign))

	if md := m.data.metrics; md != nil {
		lines = append(lines, "")
		field("Days", fmt.Sprint(md.DaysElapsed))
		field("Completed", fmt.Sprint(md.TasksCompleted))
		field("Failed", fmt.Sprint(md.TasksFailed))
		field("Eaten", fmt.Sprint(md.FoodConsumed))
		field("Hungry days", fmt.Sprint(md.HungerDays))
	}
	return strings.Join(lines, "\n")
}

func (m dashboardModel) renderTasks() string {
	lines := []string{headerStyle.Render("Tasks")}
	for _, status := range statusOrder {
		if n := m.data.status.Tasks[status]; n > 0 {
			style := lipgloss.NewStyle().Foreground(statusColors[status])
			lines = append(lines, style.Render(fmt.Sprintf("%-14s %d", status, n)))
		}
	}
	if len(lines) == 1 {
		return lines[0] + "\nNo tasks found."
	}
	if len(m.data.working) > 0 {
		lines = append(lines, "")
	}
	for _, t := range m.data.working {
		lines = append(lines, fmt.Sprintf("%s %5.1f%% #%d %s", progressBar(t.progress, 10), t.progress, t.worker, t.name))
	}
	return strings.Join(lines, "\n")
}

func (m dashboardModel) renderRoster() string {
	lines := []string{headerStyle.Render("Roster")}
	if len(m.data.crew) == 0 {
		return lines[0] + "\nNobody lives here yet."
	}
	for _, c := range m.data.crew {
		task := dimStyle.Render("idle")
		if c.task != "" {
			task = c.task
		}
		stamina := c.stamina / models.MaxStamina * 100
		lines = append(lines, fmt.Sprintf("#%-3d %-10s %s %s", c.id, c.name, progressBar(stamina, 6), task))
	}
	return strings.Join(lines, "\n")
}

func (m dashboardModel) renderAlerts() string {
	lines := []string{headerStyle.Render("Alerts")}
	if len(m.data.alerts) == 0 {
		return lines[0] + "\nNo active alerts."
	}
	for _, a := range m.data.alerts {
		sev := string(a.Severity)
		lines = append(lines, styleForSeverity(sev).Render("["+strings.ToUpper(sev)+"]")+" "+a.Message)
	}
	return strings.Join(lines, "\n")
}

// progressBar renders pct (0-100) as a bar of width cells.
func progressBar(pct float64, width int) string {
	filled := min(max(int(pct/100*float64(width)), 0), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func styleForSeverity(severity string) lipgloss.Style {
	switch observability.AlertSeverity(strings.ToLower(severity)) {
	case observability.SeverityHigh:
		return severityHigh
	case observability.SeverityMedium:
		return severityMedium
	case observability.SeverityLow:
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func autoAssign() tea.Msg {
	var n int
	err := mutate(func() error {
		n = TaskMgr.AutoAssignRolesToTasks()
		return nil
	})
	if err != nil {
		return noticeMsg(fmt.Sprintf("auto-assign failed: %v", err))
	}
	return noticeMsg(fmt.Sprintf("auto-assigned %d task(s)", n))
}

func loadData() tea.Msg {
	var d dashboardData
	err := view(func() error {
		d.status = Game.Status()
		names := make(map[string]string)
		for _, t := range TaskMgr.GetTasksByStatus(models.StatusInProgress) {
			names[t.ID] = t.Name
			d.working = append(d.working, taskLine{name: t.Name, worker: t.AssignedCharacterID, progress: t.Progress})
		}
		if Roster != nil {
			for _, c := range Roster.Characters() {
				d.crew = append(d.crew, crewLine{id: c.ID, name: c.Name, task: names[c.CurrentTaskID], stamina: c.WorkState.Stamina})
			}
		}
		return nil
	})
	if err != nil {
		return dataLoadedMsg{err: fmt.Errorf("loading settlement: %w", err)}
	}

	if MetricsCalc != nil {
		if d.metrics, err = MetricsCalc.Calculate(time.Time{}); err != nil {
			return dataLoadedMsg{err: fmt.Errorf("loading metrics: %w", err)}
		}
	}
	if AlertEngine != nil {
		if d.alerts, err = AlertEngine.Evaluate(observability.StateOf(d.status)); err != nil {
			return dataLoadedMsg{err: fmt.Errorf("loading alerts: %w", err)}
		}
	}
	return dataLoadedMsg{data: d}
}

var dashboardPaused bool

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI that runs the settlement in real time",
	Long: `Launch a terminal dashboard that runs the simulation clock and shows game
time, food, task progress, the roster and alerts as they change.

Pause with space, change speed with + and -, run an auto-assignment pass
with a, move between panels with Tab, quit with q. The game is saved every
24 game hours and on exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Game == nil || Sim == nil {
			return errNotInitialized
		}

		speed := 1.0
		if Config != nil {
			speed = Config.Simulation.Speed
		}
		loop, err := newRunLoop(speed, 24)
		if err != nil {
			return err
		}
		if dashboardPaused {
			loop.runner.TogglePause()
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		runErr := make(chan error, 1)
		go func() {
			_, err := loop.runner.Run(ctx, 0)
			runErr <- err
		}()

		_, uiErr := tea.NewProgram(newDashboardModel(loop.runner), tea.WithAltScreen()).Run()
		cancel()
		return errors.Join(uiErr, <-runErr, Game.Do(Game.Save))
	},
}

func init() {
	dashboardCmd.Flags().BoolVar(&dashboardPaused, "paused", false, "Start with the clock paused")
	rootCmd.AddCommand(dashboardCmd)
}
