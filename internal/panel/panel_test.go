package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/orgpanel/internal/directory"
	"github.com/kingrea/orgpanel/internal/navigation"
)

const pageURL = "http://localhost:3000/d/abc123/org-panel?orgId=1"

type stubDirectory struct {
	options    []directory.Option
	current    int64
	orgsErr    error
	currentErr error
	block      bool
}

func (s *stubDirectory) ListOrganizations(ctx context.Context) ([]directory.Option, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.options, s.orgsErr
}

func (s *stubDirectory) GetCurrentOrganization(ctx context.Context) (int64, error) {
	if s.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return s.current, s.currentErr
}

func threeOrgs() *stubDirectory {
	return &stubDirectory{
		options: []directory.Option{
			{Label: "Main Org.", Value: 1},
			{Label: "Org A", Value: 2},
			{Label: "Org B", Value: 3},
		},
		current: 1,
	}
}

// collect runs cmd and flattens batches, skipping spinner ticks.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg := msg.(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	case spinner.TickMsg, nil:
		return nil
	}
	return []tea.Msg{msg}
}

func mountPanel(t *testing.T, dir Directory, nav navigation.Navigator, opts ...ModelOption) *Model {
	t.Helper()
	m := New(dir, navigation.NewSwitcher(pageURL, nav), opts...)
	for _, msg := range collect(m.Init()) {
		m.Update(msg)
	}
	return m
}

func activeButtons(tree Node) []Node {
	var out []Node
	for _, b := range tree.All(KindButton) {
		if b.Active {
			out = append(out, b)
		}
	}
	return out
}

func TestButtonModeMarksCurrentOrgActive(t *testing.T) {
	m := mountPanel(t, threeOrgs(), nil, WithMode(ModeButton))
	tree := m.Tree()
	buttons := tree.All(KindButton)
	if len(buttons) != 3 {
		t.Fatalf("expected 3 buttons, got:\n%s", tree)
	}
	for i, id := range []int64{1, 2, 3} {
		if buttons[i].TestID != OrgTestID(id) {
			t.Fatalf("button %d has id %q", i, buttons[i].TestID)
		}
		if buttons[i].Variant != VariantSecondary {
			t.Fatalf("button %d has variant %q", i, buttons[i].Variant)
		}
	}
	active := activeButtons(tree)
	if len(active) != 1 || active[0].TestID != "org-1" {
		t.Fatalf("expected only org-1 active, got:\n%s", tree)
	}
}

func TestButtonClickNavigatesToOrgTarget(t *testing.T) {
	nav := &navigation.RecordingNavigator{}
	m := mountPanel(t, threeOrgs(), nav, WithMode(ModeButton))
	cmd := m.Click("org-2")
	if cmd == nil {
		t.Fatalf("expected a navigation command")
	}
	msg, ok := cmd().(navigation.NavigatedMsg)
	if !ok {
		t.Fatalf("expected NavigatedMsg")
	}
	want := "http://localhost:3000/?orgId=2"
	if msg.Target != want || msg.OrgID != 2 {
		t.Fatalf("unexpected navigation %+v", msg)
	}
	if targets := nav.Targets(); len(targets) != 1 || targets[0] != want {
		t.Fatalf("unexpected targets %v", targets)
	}
}

func TestKeyboardSwitchInButtonMode(t *testing.T) {
	nav := &navigation.RecordingNavigator{}
	m := mountPanel(t, threeOrgs(), nav, WithMode(ModeButton))
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected a navigation command")
	}
	cmd()
	if targets := nav.Targets(); len(targets) != 1 || targets[0] != "http://localhost:3000/?orgId=2" {
		t.Fatalf("unexpected targets %v", targets)
	}
}

func TestSelectModeWidgetFollowsCapability(t *testing.T) {
	cases := []struct {
		enhanced bool
		widget   string
	}{
		{enhanced: true, widget: WidgetCombobox},
		{enhanced: false, widget: WidgetSelect},
	}
	for _, tc := range cases {
		m := mountPanel(t, threeOrgs(), nil, WithMode(ModeSelect), WithCapability(tc.enhanced))
		node, ok := m.Tree().Find(SelectTestID)
		if !ok {
			t.Fatalf("select node missing for capability=%v", tc.enhanced)
		}
		if node.Widget != tc.widget {
			t.Fatalf("capability=%v: widget %q, want %q", tc.enhanced, node.Widget, tc.widget)
		}
		if node.Label != "Main Org." || node.Value != 1 {
			t.Fatalf("capability=%v: initial value %q/%d", tc.enhanced, node.Label, node.Value)
		}
		if len(node.Children) != 3 {
			t.Fatalf("expected 3 options, got %d", len(node.Children))
		}
		if !strings.Contains(m.View(), "Main Org.") {
			t.Fatalf("closed selector should show the current org: %q", m.View())
		}
	}
}

func TestBaselineSelectorPicksWithKeys(t *testing.T) {
	nav := &navigation.RecordingNavigator{}
	m := mountPanel(t, threeOrgs(), nav, WithMode(ModeSelect))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.CapturesInput() {
		t.Fatalf("expected the dropdown to be open")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected a selection")
	}
	selected, ok := cmd().(SelectedMsg)
	if !ok || selected.Value != 2 || selected.Label != "Org A" {
		t.Fatalf("unexpected selection %+v", selected)
	}
	if cmd := m.Update(selected); cmd == nil {
		t.Fatalf("selection should navigate")
	} else {
		cmd()
	}
	targets := nav.Targets()
	if len(targets) != 1 || targets[0] != "http://localhost:3000/?orgId=2" {
		t.Fatalf("unexpected targets %v", targets)
	}
}

func TestComboboxFiltersAndSelects(t *testing.T) {
	w := NewComboboxWidget()
	w.SetOptions(threeOrgs().options)
	w.SetValue(1, true)
	w.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("B")})
	if !w.IsOpen() || w.Query() != "B" {
		t.Fatalf("expected open combobox with query B, got open=%v query=%q", w.IsOpen(), w.Query())
	}
	if !strings.Contains(w.View(), "B") || strings.Contains(w.View(), "Org A") {
		t.Fatalf("expected only Org B listed:\n%s", w.View())
	}
	cmd := w.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected a selection")
	}
	if msg := cmd().(SelectedMsg); msg.Value != 3 {
		t.Fatalf("unexpected selection %+v", msg)
	}
	if w.IsOpen() || w.Query() != "" {
		t.Fatalf("combobox should close and reset after a pick")
	}
}

func TestSelectorsShareInitialValue(t *testing.T) {
	for _, enhanced := range []bool{false, true} {
		s := NewSelector(enhanced)
		s.SetOptions(threeOrgs().options)
		s.SetValue(2, true)
		if v, ok := s.Value(); !ok || v != 2 {
			t.Fatalf("enhanced=%v: value %d/%v", enhanced, v, ok)
		}
		if !strings.Contains(s.View(), "Org A") {
			t.Fatalf("enhanced=%v: view %q", enhanced, s.View())
		}
	}
}

func TestNonPositiveSelectionIgnored(t *testing.T) {
	nav := &navigation.RecordingNavigator{}
	m := mountPanel(t, threeOrgs(), nav, WithMode(ModeSelect))
	if cmd := m.Update(SelectedMsg{Value: 0}); cmd != nil {
		t.Fatalf("expected no command for empty selection")
	}
	if len(nav.Targets()) != 0 {
		t.Fatalf("unexpected navigation")
	}
}

func TestUnknownModeRendersNothing(t *testing.T) {
	m := mountPanel(t, threeOrgs(), nil, WithMode(ParseDisplayMode("carousel")))
	if !m.Tree().Empty() {
		t.Fatalf("expected empty tree, got:\n%s", m.Tree())
	}
	if m.View() != "" {
		t.Fatalf("expected empty view, got %q", m.View())
	}
	if m.Mode().Known() {
		t.Fatalf("carousel should not be a known mode")
	}
}

func TestOrgListFailureLeavesEmptyState(t *testing.T) {
	dir := threeOrgs()
	dir.orgsErr = errors.New("boom")
	for _, mode := range []DisplayMode{ModeSelect, ModeButton, ModeCollapsibleButton} {
		m := mountPanel(t, dir, nil, WithMode(mode))
		if len(m.Organizations()) != 0 {
			t.Fatalf("%s: expected no organizations", mode)
		}
		if id, ok := m.CurrentOrganization(); !ok || id != 1 {
			t.Fatalf("%s: current org should still load, got %d/%v", mode, id, ok)
		}
		if len(m.Tree().All(KindButton)) != 0 {
			t.Fatalf("%s: expected no buttons", mode)
		}
		if node, ok := m.Tree().Find(SelectTestID); ok && (len(node.Children) != 0 || node.Value != 0 || node.Label != "") {
			t.Fatalf("%s: select should have no options and no selection, got %q/%d with %d options", mode, node.Label, node.Value, len(node.Children))
		}
		_ = m.View()
	}
}

func TestMissingCurrentOrgRendersNoActiveButton(t *testing.T) {
	dir := threeOrgs()
	dir.currentErr = errors.New("unauthorized")
	m := mountPanel(t, dir, nil, WithMode(ModeButton))
	tree := m.Tree()
	if len(tree.All(KindButton)) != 3 {
		t.Fatalf("expected buttons without a current org:\n%s", tree)
	}
	if len(activeButtons(tree)) != 0 {
		t.Fatalf("expected no active button:\n%s", tree)
	}
	sel := mountPanel(t, dir, nil, WithMode(ModeSelect))
	node, _ := sel.Tree().Find(SelectTestID)
	if node.Label != "" || node.Value != 0 {
		t.Fatalf("expected empty select value, got %q/%d", node.Label, node.Value)
	}
}

func TestResultsFromAnotherMountAreDiscarded(t *testing.T) {
	first := New(threeOrgs(), nil, WithMode(ModeButton))
	msgs := collect(first.Init())
	second := New(threeOrgs(), nil, WithMode(ModeButton))
	for _, msg := range msgs {
		second.Update(msg)
	}
	if len(second.Organizations()) != 0 || !second.Loading() {
		t.Fatalf("second mount accepted results of the first")
	}
	first.Unmount()
	for _, msg := range msgs {
		first.Update(msg)
	}
	if len(first.Organizations()) != 0 {
		t.Fatalf("unmounted panel accepted results")
	}
	if _, ok := first.CurrentOrganization(); ok {
		t.Fatalf("unmounted panel accepted current org")
	}
}

func TestUnmountCancelsInFlightFetch(t *testing.T) {
	m := New(&stubDirectory{block: true}, nil)
	done := make(chan tea.Msg, 1)
	go func() {
		done <- m.fetchOrganizations()()
	}()
	m.Unmount()
	select {
	case msg := <-done:
		loaded := msg.(orgsLoadedMsg)
		if !errors.Is(loaded.err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", loaded.err)
		}
		if cmd := m.Update(loaded); cmd != nil {
			t.Fatalf("unexpected command after unmount")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch was not cancelled")
	}
}

func manyOrgs(n int) *stubDirectory {
	dir := &stubDirectory{current: 1}
	for i := 1; i <= n; i++ {
		dir.options = append(dir.options, directory.Option{Label: fmt.Sprintf("Org %d", i), Value: int64(i)})
	}
	return dir
}

func TestCollapsibleToolbarOverflows(t *testing.T) {
	dir := manyOrgs(9)
	m := mountPanel(t, dir, nil, WithMode(ModeCollapsibleButton))
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	tree := m.Tree()
	if tree.Kind != KindToolbar {
		t.Fatalf("expected toolbar, got:\n%s", tree)
	}
	overflow, ok := tree.Find(OverflowTestID)
	if !ok {
		t.Fatalf("expected an overflow menu at width 40:\n%s", tree)
	}
	if overflow.Open {
		t.Fatalf("overflow should start collapsed")
	}
	buttons := tree.All(KindButton)
	if len(buttons) != 9 {
		t.Fatalf("expected all 9 buttons across row and menu, got %d", len(buttons))
	}
	if len(overflow.Children) == 0 || len(overflow.Children) == 9 {
		t.Fatalf("unexpected split: %d hidden", len(overflow.Children))
	}
	for _, b := range buttons {
		if b.Href != fmt.Sprintf("http://localhost:3000/?orgId=%d", b.Value) {
			t.Fatalf("button %s has href %q", b.TestID, b.Href)
		}
		want := VariantCanvas
		if b.Value == 1 {
			want = VariantActive
		}
		if b.Variant != want {
			t.Fatalf("button %s variant %q, want %q", b.TestID, b.Variant, want)
		}
	}
	if len(activeButtons(tree)) != 1 {
		t.Fatalf("expected exactly one active button")
	}

	m.Click(OverflowTestID)
	if overflow, _ := m.Tree().Find(OverflowTestID); !overflow.Open {
		t.Fatalf("click should open the overflow menu")
	}
}

func TestCollapsibleToolbarFitsWhenWide(t *testing.T) {
	m := mountPanel(t, manyOrgs(3), nil, WithMode(ModeCollapsibleButton))
	m.Update(tea.WindowSizeMsg{Width: 200, Height: 10})
	if _, ok := m.Tree().Find(OverflowTestID); ok {
		t.Fatalf("no overflow expected at width 200")
	}
}

func TestFocusOnHiddenButtonOpensOverflow(t *testing.T) {
	m := mountPanel(t, manyOrgs(9), nil, WithMode(ModeCollapsibleButton))
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	overflow, ok := m.Tree().Find(OverflowTestID)
	if !ok || !overflow.Open {
		t.Fatalf("focusing the last org should open the overflow menu")
	}
}

func TestFitToolbar(t *testing.T) {
	buttons := []Node{{Label: "Org A"}, {Label: "Org B"}, {Label: "Org C"}}
	if got := fitToolbar(buttons, 0); got != 3 {
		t.Fatalf("unbounded width should show all, got %d", got)
	}
	if got := fitToolbar(buttons, 29); got != 3 {
		t.Fatalf("exact width should show all, got %d", got)
	}
	if got := fitToolbar(buttons, 20); got != 1 {
		t.Fatalf("expected 1 visible at width 20, got %d", got)
	}
	if got := fitToolbar(buttons, 5); got != 0 {
		t.Fatalf("expected everything hidden at width 5, got %d", got)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(ModeButton, renderButtons); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(ModeButton, renderButtons); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := r.Register("", renderButtons); err == nil {
		t.Fatalf("expected error for empty mode")
	}
	modes := defaultRegistry.Modes()
	if len(modes) != 3 || modes[0] != ModeButton || modes[1] != ModeCollapsibleButton || modes[2] != ModeSelect {
		t.Fatalf("unexpected default modes %v", modes)
	}
}

func TestCurrentOrgResolvingFirst(t *testing.T) {
	cases := []struct {
		mode     DisplayMode
		enhanced bool
	}{
		{mode: ModeSelect},
		{mode: ModeSelect, enhanced: true},
		{mode: ModeButton},
		{mode: ModeCollapsibleButton},
	}
	for _, tc := range cases {
		m := New(threeOrgs(), nil, WithMode(tc.mode), WithCapability(tc.enhanced))
		msgs := collect(m.Init())
		var orgs, current tea.Msg
		for _, msg := range msgs {
			switch msg.(type) {
			case orgsLoadedMsg:
				orgs = msg
			case currentLoadedMsg:
				current = msg
			}
		}
		if orgs == nil || current == nil {
			t.Fatalf("%s: expected both fetch results, got %d messages", tc.mode, len(msgs))
		}
		m.Update(current)
		_ = m.View()
		if id, ok := m.CurrentOrganization(); !ok || id != 1 {
			t.Fatalf("%s: current org not recorded before the list, got %d/%v", tc.mode, id, ok)
		}
		m.Update(orgs)
		_ = m.View()

		tree := m.Tree()
		if tc.mode == ModeSelect {
			node, ok := tree.Find(SelectTestID)
			if !ok || node.Label != "Main Org." || node.Value != 1 {
				t.Fatalf("select enhanced=%v: expected Main Org. selected, got:\n%s", tc.enhanced, tree)
			}
			if v, ok := m.selector.Value(); !ok || v != 1 {
				t.Fatalf("select enhanced=%v: widget value %d/%v", tc.enhanced, v, ok)
			}
			continue
		}
		active := activeButtons(tree)
		if len(active) != 1 || active[0].TestID != "org-1" {
			t.Fatalf("%s: expected only org-1 active, got:\n%s", tc.mode, tree)
		}
		if !active[0].Focused {
			t.Fatalf("%s: focus should start on the current org", tc.mode)
		}
	}
}

func TestSearchableDropdownCapturesLetters(t *testing.T) {
	enhanced := mountPanel(t, threeOrgs(), nil, WithMode(ModeSelect), WithCapability(true))
	if !enhanced.CapturesInput() {
		t.Fatalf("closed combobox should still own printable keys")
	}
	enhanced.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !enhanced.selector.IsOpen() {
		t.Fatalf("typing should open the search box")
	}
	baseline := mountPanel(t, threeOrgs(), nil, WithMode(ModeSelect))
	if baseline.CapturesInput() {
		t.Fatalf("closed baseline dropdown should not own printable keys")
	}
	buttons := mountPanel(t, threeOrgs(), nil, WithMode(ModeButton))
	if buttons.CapturesInput() {
		t.Fatalf("button row should not own printable keys")
	}
}

func TestKnownModesMatchPanelOption(t *testing.T) {
	for _, mode := range []DisplayMode{ModeSelect, ModeButton, ModeCollapsibleButton} {
		if !mode.Known() {
			t.Fatalf("%s should be known", mode)
		}
	}
	if !ParseDisplayMode(" Button ").Known() {
		t.Fatalf("parsed mode should be normalized")
	}
	if DisplayMode("").Known() {
		t.Fatalf("empty mode should not be known")
	}
}
