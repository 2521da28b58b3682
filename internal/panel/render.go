package panel

import (
	"github.com/mattn/go-runewidth"

	"github.com/kingrea/orgpanel/internal/directory"
)

// Horizontal cost of drawing a toolbar button around its label: border and
// padding on both sides, plus the gap to the next element.
const (
	buttonChrome   = 4
	buttonGap      = 1
	maxButtonLabel = 32
)

// Frame is everything a producer needs to build the panel.
type Frame struct {
	Mode         DisplayMode
	Options      []directory.Option
	CurrentOrgID int64
	HasCurrent   bool
	// Capability selects the enhanced selector in select mode.
	Capability bool
	// Width is the space available to a toolbar; zero or less means unbounded.
	Width int
	// Focus is the org id that holds keyboard focus, zero for none.
	Focus        int64
	OverflowOpen bool
	// Selector is the live dropdown widget. A missing or mismatched widget is
	// replaced by a fresh one for drawing.
	Selector Selector
	// Target builds the switch URL for an org id.
	Target func(int64) string
}

func (f Frame) isCurrent(orgID int64) bool {
	return f.HasCurrent && f.CurrentOrgID == orgID
}

func (f Frame) href(orgID int64) string {
	if f.Target == nil {
		return ""
	}
	return f.Target(orgID)
}

// Render builds the tree for the frame's display mode. Unknown modes render
// an empty tree.
func Render(f Frame) Node {
	producer, ok := defaultRegistry.Resolve(f.Mode)
	if !ok {
		return Node{}
	}
	return producer(f)
}

func widgetKind(capability bool) string {
	if capability {
		return WidgetCombobox
	}
	return WidgetSelect
}

func renderSelect(f Frame) Node {
	kind := widgetKind(f.Capability)
	selector := f.Selector
	if selector == nil || selector.Kind() != kind {
		selector = NewSelector(f.Capability)
		selector.SetOptions(f.Options)
		selector.SetValue(f.CurrentOrgID, f.HasCurrent)
	}
	node := Node{
		Kind:     KindSelect,
		TestID:   SelectTestID,
		Widget:   kind,
		Open:     selector.IsOpen(),
		Children: make([]Node, 0, len(f.Options)),
		body:     selector.View(),
	}
	for _, opt := range f.Options {
		active := f.isCurrent(opt.Value)
		if active {
			node.Label, node.Value = opt.Label, opt.Value
		}
		node.Children = append(node.Children, Node{
			Kind:   KindOption,
			Label:  opt.Label,
			Value:  opt.Value,
			Active: active,
		})
	}
	return node
}

func renderButtons(f Frame) Node {
	row := Node{Kind: KindButtonRow, Children: make([]Node, 0, len(f.Options))}
	for _, opt := range f.Options {
		row.Children = append(row.Children, Node{
			Kind:    KindButton,
			TestID:  OrgTestID(opt.Value),
			Label:   opt.Label,
			Value:   opt.Value,
			Active:  f.isCurrent(opt.Value),
			Focused: f.Focus == opt.Value,
			Variant: VariantSecondary,
			Href:    f.href(opt.Value),
		})
	}
	return row
}

func renderToolbar(f Frame) Node {
	buttons := make([]Node, 0, len(f.Options))
	for _, opt := range f.Options {
		active := f.isCurrent(opt.Value)
		variant := VariantCanvas
		if active {
			variant = VariantActive
		}
		buttons = append(buttons, Node{
			Kind:    KindButton,
			TestID:  OrgTestID(opt.Value),
			Label:   runewidth.Truncate(opt.Label, maxButtonLabel, "…"),
			Value:   opt.Value,
			Active:  active,
			Focused: f.Focus == opt.Value,
			Variant: variant,
			Href:    f.href(opt.Value),
		})
	}
	visible := fitToolbar(buttons, f.Width)
	bar := Node{Kind: KindToolbar, Children: buttons[:visible:visible]}
	if visible < len(buttons) {
		bar.Children = append(bar.Children, Node{
			Kind:     KindOverflow,
			TestID:   OverflowTestID,
			Open:     f.OverflowOpen,
			Children: buttons[visible:],
		})
	}
	return bar
}

// fitToolbar returns how many leading buttons fit in width, leaving room for
// the overflow toggle when not all of them do.
func fitToolbar(buttons []Node, width int) int {
	if width <= 0 {
		return len(buttons)
	}
	if rowWidth(buttons) <= width {
		return len(buttons)
	}
	budget := width - overflowWidth(len(buttons))
	used := 0
	for i, b := range buttons {
		w := buttonWidth(b.Label)
		if i > 0 {
			w += buttonGap
		}
		if used+w > budget {
			return i
		}
		used += w
	}
	return len(buttons)
}

func rowWidth(buttons []Node) int {
	total := 0
	for i, b := range buttons {
		if i > 0 {
			total += buttonGap
		}
		total += buttonWidth(b.Label)
	}
	return total
}

func buttonWidth(label string) int {
	return runewidth.StringWidth(label) + buttonChrome
}

// overflowWidth is the widest the "⋯ +N" toggle can get for n hidden
// buttons, gap included.
func overflowWidth(n int) int {
	digits := 1
	for ; n >= 10; n /= 10 {
		digits++
	}
	return buttonGap + buttonChrome + runewidth.StringWidth("⋯ +") + digits
}
