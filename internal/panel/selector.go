package panel

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/kingrea/orgpanel/internal/directory"
)

const selectPlaceholder = "Choose"

// SelectedMsg is emitted by either selector when the user picks an option.
type SelectedMsg struct {
	Value int64
	Label string
}

// Selector is the single-choice dropdown contract shared by the baseline
// and the enhanced widget. Only their drawing and filtering differ.
type Selector interface {
	// Kind returns WidgetSelect or WidgetCombobox.
	Kind() string
	SetOptions(options []directory.Option)
	SetValue(value int64, ok bool)
	Value() (int64, bool)
	IsOpen() bool
	// Update handles a key press; a pick is reported as a SelectedMsg command.
	Update(msg tea.Msg) tea.Cmd
	View() string
}

// NewSelector returns the enhanced widget when enhanced is true and the
// baseline widget otherwise.
func NewSelector(enhanced bool) Selector {
	if enhanced {
		return NewComboboxWidget()
	}
	return NewSelectWidget()
}

func selectCmd(opt directory.Option) tea.Cmd {
	return func() tea.Msg {
		return SelectedMsg{Value: opt.Value, Label: opt.Label}
	}
}

// selection is the state both widgets share.
type selection struct {
	options  []directory.Option
	value    int64
	hasValue bool
	open     bool
	cursor   int
}

func (s *selection) SetOptions(options []directory.Option) {
	s.options = append([]directory.Option(nil), options...)
	if s.cursor >= len(s.options) {
		s.cursor = max(0, len(s.options)-1)
	}
}

func (s *selection) SetValue(value int64, ok bool) {
	s.value, s.hasValue = value, ok
}

func (s *selection) Value() (int64, bool) {
	return s.value, s.hasValue
}

func (s *selection) IsOpen() bool {
	return s.open
}

// label returns the label of the selected option, or "" when the value is
// unset or not (yet) in the option list.
func (s *selection) label() string {
	if !s.hasValue {
		return ""
	}
	for _, opt := range s.options {
		if opt.Value == s.value {
			return opt.Label
		}
	}
	return ""
}

func (s *selection) valueIndex() int {
	if s.hasValue {
		for i, opt := range s.options {
			if opt.Value == s.value {
				return i
			}
		}
	}
	return 0
}

func (s *selection) closedView(caret string) string {
	text := s.label()
	if text == "" {
		text = placeholderStyle.Render(selectPlaceholder)
	}
	return text + " " + hintStyle.Render(caret)
}

// SelectWidget is the baseline dropdown: a closed box that opens into the
// full option list.
type SelectWidget struct {
	selection
}

// NewSelectWidget returns a closed baseline dropdown with no options.
func NewSelectWidget() *SelectWidget {
	return &SelectWidget{}
}

// Kind implements Selector.
func (w *SelectWidget) Kind() string { return WidgetSelect }

// Update implements Selector.
func (w *SelectWidget) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	if !w.open {
		if key.Matches(keyMsg, keys.Activate, keys.Down) && len(w.options) > 0 {
			w.open = true
			w.cursor = w.valueIndex()
		}
		return nil
	}
	switch {
	case key.Matches(keyMsg, keys.Up):
		if w.cursor > 0 {
			w.cursor--
		}
	case key.Matches(keyMsg, keys.Down):
		if w.cursor < len(w.options)-1 {
			w.cursor++
		}
	case key.Matches(keyMsg, keys.Close):
		w.open = false
	case key.Matches(keyMsg, keys.Activate):
		w.open = false
		if w.cursor < len(w.options) {
			return selectCmd(w.options[w.cursor])
		}
	}
	return nil
}

// View implements Selector.
func (w *SelectWidget) View() string {
	head := w.closedView("▾")
	if !w.open {
		return head
	}
	lines := []string{head}
	for i, opt := range w.options {
		lines = append(lines, optionLine(opt, opt.Label, i == w.cursor, w.hasValue && opt.Value == w.value))
	}
	return strings.Join(lines, "\n")
}

// ComboboxWidget is the enhanced dropdown: opening it focuses a search box
// and the option list is narrowed by fuzzy matching as the user types.
type ComboboxWidget struct {
	selection
	input   textinput.Model
	matches []fuzzy.Match
}

// NewComboboxWidget returns a closed enhanced dropdown with no options.
func NewComboboxWidget() *ComboboxWidget {
	input := textinput.New()
	input.Prompt = "⌕ "
	input.Placeholder = "Search organizations"
	input.CharLimit = 64
	return &ComboboxWidget{input: input}
}

// Kind implements Selector.
func (w *ComboboxWidget) Kind() string { return WidgetCombobox }

// SetOptions implements Selector and refreshes the filtered list.
func (w *ComboboxWidget) SetOptions(options []directory.Option) {
	w.selection.SetOptions(options)
	w.filter()
}

// Query returns the current search text.
func (w *ComboboxWidget) Query() string {
	return w.input.Value()
}

// Update implements Selector.
func (w *ComboboxWidget) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	if !w.open {
		switch {
		case key.Matches(keyMsg, keys.Activate, keys.Down):
			return w.openMenu()
		case keyMsg.Type == tea.KeyRunes:
			cmd := w.openMenu()
			return tea.Batch(cmd, w.typeKey(keyMsg))
		}
		return nil
	}
	switch {
	case key.Matches(keyMsg, keys.Up):
		if w.cursor > 0 {
			w.cursor--
		}
	case key.Matches(keyMsg, keys.Down):
		if w.cursor < len(w.matches)-1 {
			w.cursor++
		}
	case key.Matches(keyMsg, keys.Close):
		w.closeMenu()
	case keyMsg.Type == tea.KeyEnter:
		if w.cursor < len(w.matches) {
			opt := w.options[w.matches[w.cursor].Index]
			w.closeMenu()
			return selectCmd(opt)
		}
		w.closeMenu()
	default:
		return w.typeKey(keyMsg)
	}
	return nil
}

func (w *ComboboxWidget) openMenu() tea.Cmd {
	w.open = true
	w.input.SetValue("")
	w.filter()
	w.cursor = w.matchIndex(w.valueIndex())
	return w.input.Focus()
}

func (w *ComboboxWidget) closeMenu() {
	w.open = false
	w.input.Blur()
	w.input.SetValue("")
	w.filter()
}

func (w *ComboboxWidget) typeKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	w.input, cmd = w.input.Update(msg)
	w.filter()
	w.cursor = 0
	return cmd
}

func (w *ComboboxWidget) matchIndex(optionIndex int) int {
	for i, m := range w.matches {
		if m.Index == optionIndex {
			return i
		}
	}
	return 0
}

// filter recomputes matches. An empty query keeps every option in host order.
func (w *ComboboxWidget) filter() {
	query := strings.TrimSpace(w.input.Value())
	if query == "" {
		w.matches = make([]fuzzy.Match, len(w.options))
		for i, opt := range w.options {
			w.matches[i] = fuzzy.Match{Str: opt.Label, Index: i}
		}
		return
	}
	w.matches = fuzzy.FindFrom(query, optionSource(w.options))
	if w.cursor >= len(w.matches) {
		w.cursor = 0
	}
}

// View implements Selector.
func (w *ComboboxWidget) View() string {
	if !w.open {
		return w.closedView("⌄")
	}
	lines := []string{w.input.View()}
	if len(w.matches) == 0 {
		lines = append(lines, placeholderStyle.Render("No options found"))
	}
	for i, m := range w.matches {
		opt := w.options[m.Index]
		label := opt.Label
		if len(m.MatchedIndexes) > 0 {
			label = lipgloss.StyleRunes(label, m.MatchedIndexes, optionSelectedStyle.Underline(true), lipgloss.NewStyle())
		}
		lines = append(lines, optionLine(opt, label, i == w.cursor, w.hasValue && opt.Value == w.value))
	}
	return strings.Join(lines, "\n")
}

func optionLine(opt directory.Option, label string, cursor, selected bool) string {
	if selected {
		label = optionSelectedStyle.Render(label) + " ✓"
	}
	if cursor {
		return optionCursorStyle.Render("› " + label)
	}
	return optionStyle.Render(label)
}

type optionSource []directory.Option

func (s optionSource) String(i int) string { return s[i].Label }
func (s optionSource) Len() int            { return len(s) }
