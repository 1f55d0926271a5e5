package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(mutedColor)

	scanDoneStyle = lipgloss.NewStyle().Foreground(successColor)
	scanLiveStyle = lipgloss.NewStyle().Foreground(warningColor)

	helpStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
)

const pollInterval = 1 * time.Second

// tickMsg drives the polling loop.
type tickMsg time.Time

type statsMsg struct {
	stats Stats
	err   error
}

type scopesMsg struct {
	scopes []Scope
	err    error
}

// App is the live monitor dashboard's Bubble Tea model.
type App struct {
	client *Client

	stats       Stats
	scopes      []Scope
	lastErr     error
	daemonAlive bool

	width, height int
}

// New creates a dashboard App polling apiAddr.
func New(apiAddr string) *App {
	return &App{client: NewClient(apiAddr)}
}

// Run starts the Bubble Tea program.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.poll(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (a *App) poll() tea.Cmd {
	return tea.Batch(a.fetchStats(), a.fetchScopes())
}

func (a *App) fetchStats() tea.Cmd {
	return func() tea.Msg {
		stats, err := a.client.FetchStats()
		return statsMsg{stats: stats, err: err}
	}
}

func (a *App) fetchScopes() tea.Cmd {
	return func() tea.Msg {
		scopes, err := a.client.FetchScopes()
		return scopesMsg{scopes: scopes, err: err}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		return a, nil

	case tea.KeyMsg:
		switch m.String() {
		case "q", "ctrl+c", "esc":
			return a, tea.Quit
		case "r":
			return a, a.poll()
		}
		return a, nil

	case tickMsg:
		return a, tea.Batch(a.poll(), tick())

	case statsMsg:
		a.daemonAlive = m.err == nil
		a.lastErr = m.err
		if m.err == nil {
			a.stats = m.stats
		}
		return a, nil

	case scopesMsg:
		if m.err == nil {
			a.scopes = m.scopes
			sort.Slice(a.scopes, func(i, j int) bool { return a.scopes[i].ScopeID < a.scopes[j].ScopeID })
		}
		return a, nil
	}
	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("flowctl -- scheduler monitor"))
	b.WriteString("\n\n")

	status := scanDoneStyle.Render("connected")
	if !a.daemonAlive {
		status = scanLiveStyle.Render("disconnected")
	}
	b.WriteString(statusBarStyle.Render(fmt.Sprintf("daemon: %s", status)))
	b.WriteString("\n\n")

	b.WriteString(panelStyle.Render(a.renderWorkers()))
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(a.renderScopes()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q: quit  r: refresh now"))
	return b.String()
}

func (a *App) renderWorkers() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("worker pools"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  async (LLM):  %d in flight\n", a.stats.AsyncInFlight)
	fmt.Fprintf(&b, "  sync (python): %d in flight", a.stats.SyncInFlight)
	return b.String()
}

func (a *App) renderScopes() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("live scopes (%d)", len(a.scopes))))
	b.WriteString("\n")
	if len(a.scopes) == 0 {
		b.WriteString("  (none)")
		return b.String()
	}
	for _, sc := range a.scopes {
		state := scanLiveStyle.Render("scanning")
		if sc.ScanDone {
			state = scanDoneStyle.Render("scan done")
		}
		fmt.Fprintf(&b, "  scope %-4d parent %-4d window=%-4d next_id=%-6d %s\n",
			sc.ScopeID, sc.ParentID, sc.WindowSize, sc.NextTaskID, state)
	}
	return strings.TrimRight(b.String(), "\n")
}
