// internal/navigation/switcher.go
//
// Switching organization is a full page load of the dashboard root with the
// target org id in the query string. The host resolves the org context while
// serving that page; nothing in the panel is mutated in place. After a
// successful load the shell discards the panel and mounts a fresh one.

package navigation

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// dashboardSegment starts the dashboard's own identifier in a page path.
const dashboardSegment = "/d/"

// Navigator performs a same-tab full page load of target.
type Navigator interface {
	Navigate(ctx context.Context, target string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, target string) error

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, target string) error {
	return f(ctx, target)
}

// PageLoader loads an absolute page URL on the host.
type PageLoader interface {
	LoadPage(ctx context.Context, target string) error
}

// HTTPNavigator navigates by loading the page through the host session.
type HTTPNavigator struct {
	Loader PageLoader
}

// Navigate loads target through the session client.
func (n HTTPNavigator) Navigate(ctx context.Context, target string) error {
	return n.Loader.LoadPage(ctx, target)
}

// RecordingNavigator remembers every target instead of loading it.
type RecordingNavigator struct {
	mu      sync.Mutex
	targets []string
	Err     error
}

// Navigate records target and returns n.Err.
func (n *RecordingNavigator) Navigate(_ context.Context, target string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, target)
	return n.Err
}

// Targets returns the recorded targets in call order.
func (n *RecordingNavigator) Targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.targets))
	copy(out, n.targets)
	return out
}

// NavigatedMsg reports a completed page load. The receiver must remount.
type NavigatedMsg struct {
	OrgID  int64
	Target string
}

// NavigationFailedMsg reports a page load the host or transport rejected.
type NavigationFailedMsg struct {
	OrgID  int64
	Target string
	Err    error
}

// BaseURL derives the switch base from the current page URL: the fragment
// and query are dropped and the path is cut where the dashboard identifier
// begins. The result always ends with a single slash.
func BaseURL(pageURL string) string {
	base := strings.TrimSpace(pageURL)
	if i := strings.Index(base, "#"); i >= 0 {
		base = base[:i]
	}
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	start := pathStart(base)
	if i := strings.Index(base[start:], dashboardSegment); i >= 0 {
		base = base[:start+i]
	}
	return strings.TrimRight(base, "/") + "/"
}

// pathStart returns the offset of the path in raw, skipping scheme and
// authority so a host named like a path segment is never cut.
func pathStart(raw string) int {
	i := strings.Index(raw, "://")
	if i < 0 {
		return 0
	}
	authority := i + len("://")
	if j := strings.Index(raw[authority:], "/"); j >= 0 {
		return authority + j
	}
	return len(raw)
}

// Switcher turns an org selection into a full page navigation.
type Switcher struct {
	base      string
	navigator Navigator
}

// NewSwitcher builds a switcher for the page currently shown.
func NewSwitcher(pageURL string, navigator Navigator) *Switcher {
	return &Switcher{base: BaseURL(pageURL), navigator: navigator}
}

// Base returns the base URL targets are built on.
func (s *Switcher) Base() string {
	return s.base
}

// Target returns the navigation URL for orgID.
func (s *Switcher) Target(orgID int64) string {
	query := url.Values{}
	query.Set("orgId", strconv.FormatInt(orgID, 10))
	return s.base + "?" + query.Encode()
}

// SwitchTo navigates to orgID. Switching to the active org still reloads.
// The outcome is reported as NavigatedMsg or NavigationFailedMsg; the
// caller is never handed an error directly.
func (s *Switcher) SwitchTo(orgID int64) tea.Cmd {
	target := s.Target(orgID)
	navigator := s.navigator
	return func() tea.Msg {
		if navigator == nil {
			return NavigatedMsg{OrgID: orgID, Target: target}
		}
		if err := navigator.Navigate(context.Background(), target); err != nil {
			return NavigationFailedMsg{OrgID: orgID, Target: target, Err: err}
		}
		return NavigatedMsg{OrgID: orgID, Target: target}
	}
}
