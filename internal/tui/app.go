// internal/tui/app.go
//
// The shell hosts one mounted organization panel at a time, the way a
// dashboard page hosts a panel. A switch performs a full page load; once it
// lands the shell discards the panel and mounts a fresh one that detects
// the host version and fetches everything again.

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/kingrea/orgpanel/internal/config"
	"github.com/kingrea/orgpanel/internal/hostversion"
	"github.com/kingrea/orgpanel/internal/logbook"
	"github.com/kingrea/orgpanel/internal/navigation"
	"github.com/kingrea/orgpanel/internal/panel"
)

const logPanelLines = 6

// Host is the API surface the shell mounts panels against.
type Host interface {
	panel.Directory
	HostVersion(ctx context.Context) (string, error)
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithNavigator overrides how switches reach the host.
func WithNavigator(nav navigation.Navigator) AppOption {
	return func(a *App) {
		if nav != nil {
			a.navigator = nav
		}
	}
}

// WithLogbook replaces the logbook opened from the config's log path.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		if lb != nil {
			a.logbook = lb
		}
	}
}

// WithZones replaces the zone manager used for mouse hit-testing.
func WithZones(zones *zone.Manager) AppOption {
	return func(a *App) {
		if zones != nil {
			a.zones = zones
		}
	}
}

type versionDetectedMsg struct {
	generation int
	raw        string
	err        error
}

// App is the root bubbletea model.
type App struct {
	config    *config.Config
	host      Host
	navigator navigation.Navigator
	logbook   *logbook.Logbook
	zones     *zone.Manager

	pageURL    string
	mode       panel.DisplayMode
	generation int
	panel      *panel.Model
	switcher   *navigation.Switcher
	capability bool
	version    string

	width  int
	height int
	err    error
}

// NewApp creates the shell for cfg, reading organizations from host.
func NewApp(cfg *config.Config, host Host, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tui: config is required")
	}
	if host == nil {
		return nil, fmt.Errorf("tui: host is required")
	}
	app := &App{
		config:  cfg,
		host:    host,
		pageURL: cfg.PageURL(),
		mode:    panel.ParseDisplayMode(cfg.DisplayMode()),
	}
	if loader, ok := host.(navigation.PageLoader); ok {
		app.navigator = navigation.HTTPNavigator{Loader: loader}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.logbook == nil {
		if lb, err := logbook.New(cfg.LogPath()); err == nil {
			app.logbook = lb
		}
	}
	if app.zones == nil {
		app.zones = zone.New()
	}
	app.logInfo("Session opened · mode %s · page %s", app.mode, app.pageURL)
	if !app.mode.Known() {
		app.logWarn("Display mode %q is not recognised; the panel will be empty", app.mode)
	}
	return app, nil
}

// Err returns the error that stopped the program, if any.
func (a *App) Err() error {
	return a.err
}

// PageURL returns the page the shell currently shows.
func (a *App) PageURL() string {
	return a.pageURL
}

// Panel returns the mounted panel, or nil while the host version is detected.
func (a *App) Panel() *panel.Model {
	return a.panel
}

// Generation counts mounts since start.
func (a *App) Generation() int {
	return a.generation
}

func (a *App) logInfo(format string, args ...any) {
	a.logbook.Scope("shell").Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	a.logbook.Scope("shell").Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	a.logbook.Scope("shell").Error(format, args...)
}

// Init mounts the first panel.
func (a *App) Init() tea.Cmd {
	return a.remount()
}

// remount drops the current panel and starts a new mount cycle.
func (a *App) remount() tea.Cmd {
	if a.panel != nil {
		a.panel.Unmount()
		a.panel = nil
	}
	a.generation++
	return a.detectVersion(a.generation)
}

func (a *App) detectVersion(generation int) tea.Cmd {
	if pinned := a.config.HostVersion(); pinned != "" {
		return func() tea.Msg {
			return versionDetectedMsg{generation: generation, raw: pinned}
		}
	}
	host := a.host
	return func() tea.Msg {
		raw, err := host.HostVersion(context.Background())
		return versionDetectedMsg{generation: generation, raw: raw, err: err}
	}
}

func (a *App) mountPanel(msg versionDetectedMsg) tea.Cmd {
	a.version = msg.raw
	switch {
	case msg.err != nil:
		a.logWarn("Host version unavailable, using the baseline selector: %v", msg.err)
		a.capability = false
	default:
		capability, err := hostversion.DetectCapability(msg.raw)
		if err != nil {
			a.logWarn("Host version unreadable, using the baseline selector: %v", err)
		}
		a.capability = capability
	}
	a.switcher = navigation.NewSwitcher(a.pageURL, a.navigator)
	a.panel = panel.New(
		a.host,
		a.switcher,
		panel.WithMode(a.mode),
		panel.WithCapability(a.capability),
		panel.WithLogbook(a.logbook),
		panel.WithZones(a.zones),
	)
	if a.width > 0 {
		a.panel.Update(tea.WindowSizeMsg{Width: a.panelWidth(), Height: a.height})
	}
	a.logInfo("Mounted panel #%d (host %s, enhanced select %v)", a.generation, displayVersion(msg.raw), a.capability)
	return a.panel.Init()
}

func (a *App) panelWidth() int {
	return max(0, a.width-4)
}

// Update routes messages to the mounted panel and handles navigation.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.panel != nil {
			return a, a.panel.Update(tea.WindowSizeMsg{Width: a.panelWidth(), Height: msg.Height})
		}
		return a, nil

	case versionDetectedMsg:
		if msg.generation != a.generation || a.panel != nil {
			return a, nil
		}
		return a, a.mountPanel(msg)

	case navigation.NavigatedMsg:
		a.logInfo("Page loaded for org %d: %s", msg.OrgID, msg.Target)
		a.pageURL = msg.Target
		return a, a.remount()

	case navigation.NavigationFailedMsg:
		a.logError("Switch to org %d failed: %v", msg.OrgID, msg.Err)
		a.err = fmt.Errorf("switch to org %d: %w", msg.OrgID, msg.Err)
		return a, tea.Quit

	case tea.KeyMsg:
		capturing := a.panel != nil && a.panel.CapturesInput()
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "q":
			if !capturing {
				return a, tea.Quit
			}
		case "r":
			if !capturing {
				a.logInfo("Reloading panel")
				return a, a.remount()
			}
		}
	}

	if a.panel == nil {
		return a, nil
	}
	return a, a.panel.Update(msg)
}

var (
	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#F55F3E"))
	metaStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888"))
	panelFrameStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1)
	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF6B6B"))
)

// View renders the shell. Zone markers are resolved here, once per frame.
func (a *App) View() string {
	header := headerStyle.Render("⬡ ORGANIZATIONS")
	meta := metaStyle.Render(fmt.Sprintf("%s · host %s · %s", a.mode, displayVersion(a.version), a.switchBase()))

	var body string
	switch {
	case a.panel == nil:
		body = metaStyle.Render("Detecting host version…")
	default:
		body = a.panel.View()
		if body == "" {
			body = metaStyle.Render("(nothing to show)")
		}
	}
	if a.err != nil {
		body = errorStyle.Render(a.err.Error())
	}
	frame := panelFrameStyle
	if a.width > 0 {
		frame = frame.Width(max(0, a.width-2))
	}
	help := metaStyle.Render(a.helpLine())

	parts := []string{header, meta, frame.Render(body), help}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		parts = append(parts, logPanel)
	}
	return a.zones.Scan(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// switchBase is the root every switch lands on; before the first mount it
// is derived from the configured page.
func (a *App) switchBase() string {
	if a.switcher != nil {
		return a.switcher.Base()
	}
	return navigation.BaseURL(a.pageURL)
}

func (a *App) helpLine() string {
	switch a.mode {
	case panel.ModeSelect:
		if a.capability {
			return "type to search · ↑/↓ move · enter switch · esc close · ctrl+c quit"
		}
		return "enter open · ↑/↓ move · enter switch · esc close · r reload · q quit"
	case panel.ModeCollapsibleButton:
		return "←/→ focus · enter switch · . more · r reload · q quit"
	default:
		return "←/→ focus · enter switch · r reload · q quit"
	}
}

var (
	logHeadStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF"))
	logTextStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))
	logBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1)
	logLevelStyles = map[string]lipgloss.Style{
		string(logbook.LevelInfo):  lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
		string(logbook.LevelWarn):  lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")).Bold(true),
		string(logbook.LevelError): lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
	}
)

// renderLogPanel shows the newest logbook entries, one per line, as
// "clock LEVEL message" with the level colored.
func (a *App) renderLogPanel() string {
	lines, total := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	rows := make([]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, formatLogLine(line))
	}
	head := logHeadStyle.Render(fmt.Sprintf("LOG · %d entries · %s", total, a.logbook.Path()))
	return logBoxStyle.Render(head + "\n" + strings.Join(rows, "\n"))
}

// formatLogLine shortens a logbook line's RFC3339 stamp to the clock time
// and colors its level. Lines that do not parse are shown as written.
func formatLogLine(line string) string {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 3 {
		return logTextStyle.Render(line)
	}
	stamp, level, rest := fields[0], fields[1], strings.TrimLeft(fields[2], " ")
	style, ok := logLevelStyles[level]
	if !ok {
		return logTextStyle.Render(line)
	}
	if at, err := time.Parse(time.RFC3339, stamp); err == nil {
		stamp = at.Local().Format("15:04:05")
	}
	return fmt.Sprintf("%s %s %s", logTextStyle.Render(stamp), style.Render(fmt.Sprintf("%-5s", level)), rest)
}

func displayVersion(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "unknown"
	}
	return raw
}
