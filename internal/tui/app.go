package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xoelrdgz/idswatch/internal/domain"
	"github.com/xoelrdgz/idswatch/internal/tui/views"
)

const uiTickInterval = 250 * time.Millisecond

// Controller is the part of the sync controller the dashboard drives.
type Controller interface {
	Snapshot() domain.DashboardState
	TriggerScan(ctx context.Context) bool
	RefreshLogs(ctx context.Context) bool
	LastPoll() (attempt, success time.Time)
	PollInterval() time.Duration
}

type App struct {
	ctrl  Controller
	ctx   context.Context
	model *Model

	panel     *views.AlertPanel
	logs      *views.LogTable
	sources   *views.TopSources
	status    *views.Status
	inspector *views.Inspector

	ready    bool
	quitting bool
	width    int
	height   int

	stateChan chan domain.DashboardState
	backend   string
}

func NewApp(ctx context.Context, ctrl Controller) *App {
	a := &App{
		ctrl:      ctrl,
		ctx:       ctx,
		model:     NewModel(),
		panel:     views.NewAlertPanel(100),
		logs:      views.NewLogTable(15),
		sources:   views.NewTopSources(100),
		status:    views.NewStatus(100),
		inspector: views.NewInspector(),
		stateChan: make(chan domain.DashboardState, 1),
	}
	a.applyState(ctrl.Snapshot())
	return a
}

func (a *App) SetBackend(url string) { a.backend = url }

type tickMsg time.Time
type stateMsg domain.DashboardState
type actionMsg struct {
	name   string
	issued bool
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.tick(), a.listenForState())
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(uiTickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (a *App) listenForState() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-a.stateChan:
			return stateMsg(s)
		case <-a.ctx.Done():
			return nil
		}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a, a.handleKey(msg)
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
	case tickMsg:
		a.refreshStatus()
		return a, a.tick()
	case stateMsg:
		a.applyState(domain.DashboardState(msg))
		return a, a.listenForState()
	case actionMsg:
		// outcomes arrive through the state channel
		return a, nil
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if a.inspector.Visible {
		switch msg.String() {
		case "esc", "q", "enter":
			a.inspector.Close()
		case "up", "k":
			a.inspector.ScrollUp()
		case "down", "j":
			a.inspector.ScrollDown()
		case "ctrl+c":
			a.quitting = true
			return tea.Quit
		}
		return nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		a.quitting = true
		return tea.Quit
	case "tab":
		a.model.NextView()
	case "up", "k":
		a.logs.ScrollUp()
	case "down", "j":
		a.logs.ScrollDown()
	case "enter":
		if a.model.ActiveView == ViewLogs {
			if sel := a.logs.Selected(); sel != nil {
				a.inspector.Open("log entry", sel)
			}
		}
	case "a":
		if alert := a.model.State.LatestAlert; alert != nil {
			ev := *alert
			a.inspector.Open("latest alert", &ev)
		}
	case "s":
		if a.model.State.Scan.InProgress() {
			return nil
		}
		return a.run("scan", a.ctrl.TriggerScan)
	case "r":
		if a.model.State.LogsLoading {
			return nil
		}
		return a.run("refresh", a.ctrl.RefreshLogs)
	}
	return nil
}

// run executes a controller action off the UI goroutine.
func (a *App) run(name string, action func(context.Context) bool) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{name: name, issued: action(a.ctx)}
	}
}

func (a *App) resize(width, height int) {
	a.width, a.height = width, height
	a.ready = true
	a.model.SetDimensions(width, height)

	a.panel.Width = width
	a.logs.Width = width - 4
	a.sources.Width = width - 4
	a.status.Width = width

	contentHeight := height - 16
	if contentHeight < 5 {
		contentHeight = 5
	}
	a.logs.VisibleCount = contentHeight
	a.sources.VisibleCount = contentHeight
	a.inspector.SetDimensions(width-4, height-2)
}

func (a *App) applyState(s domain.DashboardState) {
	a.model.SetState(s)
	a.logs.Update(s.Logs, s.LogsLoading)
	a.sources.Update(a.model.TopSources())
	a.refreshStatus()
}

func (a *App) refreshStatus() {
	attempt, success := a.ctrl.LastPoll()
	a.status.Update(views.StatusInfo{
		LastAttempt:  attempt,
		LastSuccess:  success,
		PollInterval: a.ctrl.PollInterval(),
		Degraded:     a.model.State.Degraded,
		LogCount:     len(a.model.State.Logs),
		RecentCount:  len(a.model.State.RecentAlerts),
		Backend:      a.backend,
	})
}

func (a *App) View() string {
	if a.quitting {
		return "\n  Session terminated.\n\n"
	}
	if !a.ready {
		return "\n  Initializing...\n\n"
	}
	if a.inspector.Visible {
		return a.inspector.Render()
	}

	dim := lipgloss.NewStyle().Foreground(ColorDim)
	muted := lipgloss.NewStyle().Foreground(ColorMuted)

	var b strings.Builder
	b.WriteString(a.renderHeader())
	b.WriteString("\n")
	b.WriteString(dim.Render(strings.Repeat("─", a.width)))
	b.WriteString("\n")

	if banner := views.RenderBanner(a.model.State.Error, a.width); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}

	b.WriteString(muted.Render("  LIVE THREAT"))
	b.WriteString("\n")
	b.WriteString(a.panel.Render(a.model.State))
	b.WriteString("\n")
	b.WriteString(views.RenderConsole(a.model.State.Scan, a.width))
	b.WriteString("\n\n")

	viewName := "HISTORICAL LOGS"
	content := a.logs.Render()
	if a.model.ActiveView == ViewSources {
		viewName = "TOP SOURCES"
		content = a.sources.Render()
	}
	b.WriteString(muted.Render("  " + viewName))
	b.WriteString("\n")
	b.WriteString(content)

	b.WriteString("\n\n")
	b.WriteString(a.status.Render())
	b.WriteString("\n")
	b.WriteString(a.renderHelp())

	return b.String()
}

func (a *App) renderHeader() string {
	title := TextPrimary.Bold(true).Render("IDSWATCH")

	s := a.model.State
	var status string
	switch {
	case s.Degraded:
		status = TextRed.Bold(true).Render("FEED DEGRADED")
	case s.LatestAlert != nil && s.LatestAlert.Severity.Rank() >= domain.SeverityHigh.Rank():
		status = TextRed.Render("THREAT ACTIVE")
	case s.Scan.InProgress():
		status = TextAmber.Render("SCANNING")
	default:
		status = TextPrimary.Render("MONITORING")
	}

	held := ""
	if age := a.model.LastAlertAge(time.Now()); age > 0 {
		held = TextDim.Render(fmt.Sprintf("  alert held %s", age.Round(time.Second)))
	}
	return fmt.Sprintf("  %s  %s%s", title, status, held)
}

func (a *App) renderHelp() string {
	key := TextPrimaryDim
	names := []string{"LOGS", "SOURCES"}
	return TextDim.Render(fmt.Sprintf("  %s scan  %s refresh  %s [%s]  %s scroll  %s inspect  %s alert  %s quit",
		key.Render("s"), key.Render("r"), key.Render("TAB"), names[a.model.ActiveView],
		key.Render("↑↓"), key.Render("ENTER"), key.Render("a"), key.Render("q")))
}

// OnStateChange implements ports.StateSubscriber. Only the newest snapshot
// matters, so a pending one is replaced rather than queued.
func (a *App) OnStateChange(s domain.DashboardState) {
	for {
		select {
		case a.stateChan <- s:
			return
		default:
		}
		select {
		case <-a.stateChan:
		default:
		}
	}
}

func (a *App) GetModel() *Model { return a.model }

func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}
