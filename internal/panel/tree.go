package panel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Stable identifiers automation locates elements by.
const (
	SelectTestID   = "org-select"
	OverflowTestID = "org-overflow"
)

// OrgTestID returns the identifier of the button for orgID.
func OrgTestID(orgID int64) string {
	return fmt.Sprintf("org-%d", orgID)
}

// Kind identifies a node in the rendered tree.
type Kind int

const (
	KindEmpty Kind = iota
	KindSelect
	KindOption
	KindButtonRow
	KindButton
	KindToolbar
	KindOverflow
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindOption:
		return "option"
	case KindButtonRow:
		return "button-row"
	case KindButton:
		return "button"
	case KindToolbar:
		return "toolbar"
	case KindOverflow:
		return "overflow"
	default:
		return "empty"
	}
}

// Widget kinds a select node can be drawn with.
const (
	WidgetSelect   = "select"
	WidgetCombobox = "combobox"
)

// Button variants.
const (
	VariantSecondary = "secondary"
	VariantActive    = "active"
	VariantCanvas    = "canvas"
)

// Node is one element of the rendered panel.
type Node struct {
	Kind   Kind
	TestID string
	Label  string
	Value  int64
	// Active marks the current organization (buttons) or the selected entry (options).
	Active  bool
	Focused bool
	Variant string
	// Widget is set on select nodes: WidgetSelect or WidgetCombobox.
	Widget string
	Href   string
	// Open is set on an expanded overflow menu or an open selector.
	Open     bool
	Children []Node

	body string
}

// Empty reports whether the node renders nothing.
func (n Node) Empty() bool {
	return n.Kind == KindEmpty
}

// Find returns the first node (depth first) carrying testID.
func (n Node) Find(testID string) (Node, bool) {
	if n.TestID == testID && testID != "" {
		return n, true
	}
	for _, child := range n.Children {
		if found, ok := child.Find(testID); ok {
			return found, true
		}
	}
	return Node{}, false
}

// All returns every node of the given kind in document order.
func (n Node) All(kind Kind) []Node {
	var out []Node
	n.walk(func(node Node) {
		if node.Kind == kind {
			out = append(out, node)
		}
	})
	return out
}

func (n Node) walk(fn func(Node)) {
	fn(n)
	for _, child := range n.Children {
		child.walk(fn)
	}
}

// Marker wraps a drawn element so it can be located later. *zone.Manager
// satisfies it.
type Marker interface {
	Mark(id, v string) string
}

type noMarker struct{}

func (noMarker) Mark(_, v string) string { return v }

// Draw renders the tree. Every node with a TestID is passed through marker.
func (n Node) Draw(marker Marker) string {
	if marker == nil {
		marker = noMarker{}
	}
	switch n.Kind {
	case KindSelect:
		return marker.Mark(n.TestID, selectBoxStyle.Render(n.body))
	case KindButtonRow:
		parts := make([]string, 0, len(n.Children)*2)
		for i, child := range n.Children {
			if i > 0 {
				parts = append(parts, " ")
			}
			parts = append(parts, child.Draw(marker))
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	case KindButton:
		return marker.Mark(n.TestID, buttonFor(n).Render(n.Label))
	case KindToolbar:
		return drawToolbar(n, marker)
	case KindOverflow:
		toggle := toolbarCanvasStyle.Render(fmt.Sprintf("⋯ +%d", len(n.Children)))
		return marker.Mark(n.TestID, toggle)
	default:
		return ""
	}
}

func buttonFor(n Node) lipgloss.Style {
	var style lipgloss.Style
	switch n.Variant {
	case VariantActive:
		style = toolbarActiveStyle
	case VariantCanvas:
		style = toolbarCanvasStyle
	default:
		style = buttonStyle
		if n.Active {
			style = buttonActiveStyle
		}
	}
	if n.Focused {
		style = style.BorderForeground(accentColor)
	}
	return style
}

func drawToolbar(n Node, marker Marker) string {
	var row []string
	var overflow *Node
	for i := range n.Children {
		child := n.Children[i]
		if child.Kind == KindOverflow {
			overflow = &n.Children[i]
			continue
		}
		if len(row) > 0 {
			row = append(row, " ")
		}
		row = append(row, child.Draw(marker))
	}
	if overflow != nil {
		if len(row) > 0 {
			row = append(row, " ")
		}
		row = append(row, overflow.Draw(marker))
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, row...)
	if overflow == nil || !overflow.Open || len(overflow.Children) == 0 {
		return line
	}
	items := make([]string, 0, len(overflow.Children))
	for _, child := range overflow.Children {
		items = append(items, child.Draw(marker))
	}
	menu := overflowMenuStyle.Render(lipgloss.JoinVertical(lipgloss.Left, items...))
	return lipgloss.JoinVertical(lipgloss.Right, line, menu)
}

// String renders the tree as an indented outline; useful in test failures.
func (n Node) String() string {
	var b strings.Builder
	n.outline(&b, 0)
	return b.String()
}

func (n Node) outline(b *strings.Builder, depth int) {
	fmt.Fprintf(b, "%s%s", strings.Repeat("  ", depth), n.Kind)
	if n.TestID != "" {
		fmt.Fprintf(b, " #%s", n.TestID)
	}
	if n.Label != "" {
		fmt.Fprintf(b, " %q", n.Label)
	}
	if n.Active {
		b.WriteString(" active")
	}
	if n.Variant != "" {
		fmt.Fprintf(b, " variant=%s", n.Variant)
	}
	if n.Widget != "" {
		fmt.Fprintf(b, " widget=%s", n.Widget)
	}
	b.WriteString("\n")
	for _, child := range n.Children {
		child.outline(b, depth+1)
	}
}
