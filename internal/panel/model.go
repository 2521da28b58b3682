package panel

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/kingrea/orgpanel/internal/directory"
	"github.com/kingrea/orgpanel/internal/logbook"
	"github.com/kingrea/orgpanel/internal/navigation"
)

// Directory is the part of the host API the panel reads on mount.
type Directory interface {
	ListOrganizations(ctx context.Context) ([]directory.Option, error)
	GetCurrentOrganization(ctx context.Context) (int64, error)
}

var mountSeq atomic.Uint64

type orgsLoadedMsg struct {
	mount   uint64
	options []directory.Option
	err     error
}

type currentLoadedMsg struct {
	mount uint64
	orgID int64
	err   error
}

// ModelOption customizes a panel mount.
type ModelOption func(*Model)

// WithMode fixes the display mode for the mount.
func WithMode(mode DisplayMode) ModelOption {
	return func(m *Model) {
		m.mode = mode
	}
}

// WithCapability sets the enhanced-selector flag detected for this mount.
func WithCapability(enhanced bool) ModelOption {
	return func(m *Model) {
		m.capability = enhanced
	}
}

// WithLogbook routes fetch and navigation events to lb.
func WithLogbook(lb *logbook.Logbook) ModelOption {
	return func(m *Model) {
		m.log = lb.Scope("panel")
	}
}

// WithZones marks drawn elements in zones and resolves mouse clicks against it.
func WithZones(zones *zone.Manager) ModelOption {
	return func(m *Model) {
		m.zones = zones
	}
}

// Model is one mounted instance of the panel. It is discarded on
// navigation; a new mount starts from empty state.
type Model struct {
	mount   uint64
	ctx     context.Context
	cancel  context.CancelFunc
	mounted bool

	mode       DisplayMode
	capability bool
	dir        Directory
	switcher   *navigation.Switcher
	log        logbook.Scope
	zones      *zone.Manager

	options        []directory.Option
	orgsPending    bool
	currentPending bool
	current        int64
	hasCurrent     bool

	selector     Selector
	focus        int64
	overflowOpen bool
	width        int
	spinner      spinner.Model
}

// New mounts a panel reading from dir and switching through switcher.
func New(dir Directory, switcher *navigation.Switcher, opts ...ModelOption) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(accentColor)
	m := &Model{
		mount:          mountSeq.Add(1),
		ctx:            ctx,
		cancel:         cancel,
		mounted:        true,
		mode:           ModeSelect,
		dir:            dir,
		switcher:       switcher,
		orgsPending:    true,
		currentPending: true,
		spinner:        spin,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.selector = NewSelector(m.capability)
	return m
}

// Mount returns the identifier of this mount.
func (m *Model) Mount() uint64 {
	return m.mount
}

// Mode returns the display mode fixed at mount.
func (m *Model) Mode() DisplayMode {
	return m.mode
}

// Capability reports whether the enhanced selector is in use.
func (m *Model) Capability() bool {
	return m.capability
}

// Organizations returns the loaded organization options.
func (m *Model) Organizations() []directory.Option {
	return append([]directory.Option(nil), m.options...)
}

// CurrentOrganization returns the current org id, if known.
func (m *Model) CurrentOrganization() (int64, bool) {
	return m.current, m.hasCurrent
}

// Loading reports whether either fetch is still outstanding.
func (m *Model) Loading() bool {
	return m.mounted && (m.orgsPending || m.currentPending)
}

// CapturesInput reports whether printable keys belong to the panel: while
// the dropdown is open, and always for the searchable dropdown, where any
// letter starts a search.
func (m *Model) CapturesInput() bool {
	if m.mode != ModeSelect {
		return false
	}
	return m.selector.IsOpen() || m.selector.Kind() == WidgetCombobox
}

// Init starts both fetches. Neither waits on the other.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchOrganizations(), m.fetchCurrent(), m.spinner.Tick)
}

// Unmount cancels in-flight fetches; results that still arrive are dropped.
func (m *Model) Unmount() {
	if !m.mounted {
		return
	}
	m.mounted = false
	m.cancel()
}

func (m *Model) fetchOrganizations() tea.Cmd {
	ctx, mount, dir := m.ctx, m.mount, m.dir
	return func() tea.Msg {
		if dir == nil {
			return orgsLoadedMsg{mount: mount, err: errors.New("panel: no directory")}
		}
		options, err := dir.ListOrganizations(ctx)
		return orgsLoadedMsg{mount: mount, options: options, err: err}
	}
}

func (m *Model) fetchCurrent() tea.Cmd {
	ctx, mount, dir := m.ctx, m.mount, m.dir
	return func() tea.Msg {
		if dir == nil {
			return currentLoadedMsg{mount: mount, err: errors.New("panel: no directory")}
		}
		orgID, err := dir.GetCurrentOrganization(ctx)
		return currentLoadedMsg{mount: mount, orgID: orgID, err: err}
	}
}

func (m *Model) accepts(mount uint64) bool {
	return m.mounted && mount == m.mount
}

// Update handles fetch results and user input.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case orgsLoadedMsg:
		if !m.accepts(msg.mount) {
			return nil
		}
		m.orgsPending = false
		if msg.err != nil {
			m.log.Warn("Organization list unavailable: %v", msg.err)
			return nil
		}
		m.options = append([]directory.Option(nil), msg.options...)
		m.selector.SetOptions(m.options)
		m.log.Info("Loaded %d organizations", len(m.options))
		m.ensureFocus()
	case currentLoadedMsg:
		if !m.accepts(msg.mount) {
			return nil
		}
		m.currentPending = false
		if msg.err != nil {
			m.log.Warn("Current organization unavailable: %v", msg.err)
			return nil
		}
		m.current, m.hasCurrent = msg.orgID, true
		m.selector.SetValue(msg.orgID, true)
		m.focus = 0
		m.ensureFocus()
	case spinner.TickMsg:
		if !m.Loading() {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		if !m.mounted {
			return nil
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		if !m.mounted {
			return nil
		}
		return m.handleMouse(msg)
	case SelectedMsg:
		if !m.mounted || msg.Value <= 0 {
			return nil
		}
		return m.switchTo(msg.Value)
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.mode == ModeSelect {
		return m.selector.Update(msg)
	}
	if m.mode != ModeButton && m.mode != ModeCollapsibleButton {
		return nil
	}
	switch {
	case key.Matches(msg, keys.Next):
		m.moveFocus(1)
	case key.Matches(msg, keys.Prev):
		m.moveFocus(-1)
	case key.Matches(msg, keys.Activate):
		if m.focus > 0 {
			return m.switchTo(m.focus)
		}
	case key.Matches(msg, keys.Overflow):
		if m.mode == ModeCollapsibleButton {
			m.overflowOpen = !m.overflowOpen
		}
	case key.Matches(msg, keys.Close):
		m.overflowOpen = false
	}
	return nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.zones == nil || msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return nil
	}
	ids := []string{SelectTestID, OverflowTestID}
	for _, opt := range m.options {
		ids = append(ids, OrgTestID(opt.Value))
	}
	for _, id := range ids {
		if info := m.zones.Get(id); info != nil && !info.IsZero() && info.InBounds(msg) {
			return m.Click(id)
		}
	}
	return nil
}

// Click activates the element identified by testID as a pointer click would.
func (m *Model) Click(testID string) tea.Cmd {
	if !m.mounted {
		return nil
	}
	node, ok := Render(m.frame()).Find(testID)
	if !ok {
		return nil
	}
	switch node.Kind {
	case KindButton:
		m.focus = node.Value
		return m.switchTo(node.Value)
	case KindOverflow:
		m.overflowOpen = !m.overflowOpen
	case KindSelect:
		if m.selector.IsOpen() {
			return m.selector.Update(tea.KeyMsg{Type: tea.KeyEsc})
		}
		return m.selector.Update(tea.KeyMsg{Type: tea.KeyEnter})
	}
	return nil
}

// Select picks an option in the dropdown as the user would.
func (m *Model) Select(orgID int64) tea.Cmd {
	return m.Update(SelectedMsg{Value: orgID, Label: m.labelFor(orgID)})
}

func (m *Model) labelFor(orgID int64) string {
	for _, opt := range m.options {
		if opt.Value == orgID {
			return opt.Label
		}
	}
	return ""
}

func (m *Model) switchTo(orgID int64) tea.Cmd {
	if m.switcher == nil {
		m.log.Warn("No switcher configured; ignoring switch to org %d", orgID)
		return nil
	}
	m.log.Info("Switching to org %d via %s", orgID, m.switcher.Target(orgID))
	return m.switcher.SwitchTo(orgID)
}

func (m *Model) ensureFocus() {
	if len(m.options) == 0 {
		m.focus = 0
		return
	}
	for _, opt := range m.options {
		if opt.Value == m.focus {
			return
		}
	}
	m.focus = m.options[0].Value
	if m.hasCurrent && m.labelFor(m.current) != "" {
		m.focus = m.current
	}
	m.syncOverflow()
}

func (m *Model) moveFocus(delta int) {
	n := len(m.options)
	if n == 0 {
		return
	}
	idx := 0
	for i, opt := range m.options {
		if opt.Value == m.focus {
			idx = i
			break
		}
	}
	idx = ((idx+delta)%n + n) % n
	m.focus = m.options[idx].Value
	m.syncOverflow()
}

// syncOverflow opens the overflow menu while focus sits on a hidden button.
func (m *Model) syncOverflow() {
	if m.mode != ModeCollapsibleButton {
		return
	}
	overflow, ok := Render(m.frame()).Find(OverflowTestID)
	if !ok {
		m.overflowOpen = false
		return
	}
	hidden := false
	for _, child := range overflow.Children {
		if child.Value == m.focus {
			hidden = true
		}
	}
	m.overflowOpen = hidden
}

func (m *Model) frame() Frame {
	f := Frame{
		Mode:         m.mode,
		Options:      m.options,
		CurrentOrgID: m.current,
		HasCurrent:   m.hasCurrent,
		Capability:   m.capability,
		Width:        m.width,
		Focus:        m.focus,
		OverflowOpen: m.overflowOpen,
		Selector:     m.selector,
	}
	if m.switcher != nil {
		f.Target = m.switcher.Target
	}
	return f
}

// Tree returns the current render tree.
func (m *Model) Tree() Node {
	return Render(m.frame())
}

// View draws the panel, marking identifiable elements in the zone manager.
func (m *Model) View() string {
	var marker Marker
	if m.zones != nil {
		marker = m.zones
	}
	body := m.Tree().Draw(marker)
	if m.Loading() && len(m.options) == 0 {
		loading := m.spinner.View() + " " + hintStyle.Render("Loading organizations")
		if body == "" {
			return loading
		}
		return strings.Join([]string{body, loading}, "\n")
	}
	return body
}
