package navigation

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/kingrea/orgpanel/internal/devhost"
	"github.com/kingrea/orgpanel/internal/directory"
)

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:3000/d/abc123/org-panel?orgId=1&editPanel=2": "http://localhost:3000/",
		"http://localhost:3000/?orgId=3":                               "http://localhost:3000/",
		"http://localhost:3000":                                        "http://localhost:3000/",
		"https://host/grafana/d/xyz?orgId=1#view":                      "https://host/grafana/",
		"https://host/grafana/explore?left=1":                          "https://host/grafana/explore/",
		"http://localhost:3000/#anchor":                                "http://localhost:3000/",
		"http://localhost:3000/login?redirect=/d/abc":                  "http://localhost:3000/login/",
		"http://d/x":                                                   "http://d/x/",
		"http://d/d/abc123/org-panel?orgId=2":                          "http://d/",
		"https://d/grafana/d/xyz":                                      "https://d/grafana/",
	}
	for input, want := range cases {
		if got := BaseURL(input); got != want {
			t.Fatalf("BaseURL(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTargetEncodesOrgID(t *testing.T) {
	s := NewSwitcher("http://localhost:3000/d/abc/dash?orgId=1", nil)
	if got := s.Target(2); got != "http://localhost:3000/?orgId=2" {
		t.Fatalf("unexpected target %q", got)
	}
}

func TestSwitchToRecordsNavigation(t *testing.T) {
	nav := &RecordingNavigator{}
	s := NewSwitcher("http://localhost:3000/d/abc/dash", nav)
	msg := s.SwitchTo(2)()
	done, ok := msg.(NavigatedMsg)
	if !ok {
		t.Fatalf("expected NavigatedMsg, got %T", msg)
	}
	if done.OrgID != 2 || done.Target != "http://localhost:3000/?orgId=2" {
		t.Fatalf("unexpected message %+v", done)
	}
	if targets := nav.Targets(); len(targets) != 1 || targets[0] != done.Target {
		t.Fatalf("unexpected targets %v", targets)
	}
}

func TestSwitchToCurrentOrgStillNavigates(t *testing.T) {
	nav := &RecordingNavigator{}
	s := NewSwitcher("http://localhost:3000/?orgId=1", nav)
	s.SwitchTo(1)()
	targets := nav.Targets()
	if len(targets) != 1 {
		t.Fatalf("expected one navigation, got %d", len(targets))
	}
	parsed, err := url.Parse(targets[0])
	if err != nil {
		t.Fatalf("parse target: %v", err)
	}
	if got := parsed.Query().Get("orgId"); got != "1" {
		t.Fatalf("expected orgId=1, got %q", got)
	}
}

func TestSwitchToReportsFailureAsMessage(t *testing.T) {
	boom := errors.New("connection reset")
	s := NewSwitcher("http://localhost:3000/", NavigatorFunc(func(context.Context, string) error { return boom }))
	msg := s.SwitchTo(5)()
	failed, ok := msg.(NavigationFailedMsg)
	if !ok {
		t.Fatalf("expected NavigationFailedMsg, got %T", msg)
	}
	if !errors.Is(failed.Err, boom) || failed.OrgID != 5 {
		t.Fatalf("unexpected failure %+v", failed)
	}
}

func TestHTTPNavigatorSwitchesHostContext(t *testing.T) {
	srv := devhost.NewServer(devhost.Settings{Host: "127.0.0.1", Port: 0, Orgs: []string{"Alpha Org."}})
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start host: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	client, err := directory.New(srv.BaseURL(), directory.WithBasicAuth(devhost.DefaultAdminUser, devhost.DefaultAdminPassword))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	s := NewSwitcher(srv.BaseURL()+"d/orgs/organization-panel?orgId=1", HTTPNavigator{Loader: client})
	if _, ok := s.SwitchTo(2)().(NavigatedMsg); !ok {
		t.Fatalf("expected navigation to succeed")
	}
	if got := srv.CurrentOrg().ID; got != 2 {
		t.Fatalf("expected host to switch to org 2, got %d", got)
	}
}
