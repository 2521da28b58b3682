package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kingrea/orgpanel/internal/devhost"
	"github.com/kingrea/orgpanel/internal/directory"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func startHost(t *testing.T) *devhost.Server {
	t.Helper()
	settings := devhost.DefaultSettings()
	settings.Host = "127.0.0.1"
	settings.Port = 0
	settings.Orgs = []string{"Org A", "Org B"}
	srv := devhost.NewServer(settings)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start host: %v", err)
	}
	return srv
}

func TestSchemaCommandPrintsDisplayMode(t *testing.T) {
	out, err := runCLI(t, "schema")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	for _, want := range []string{"displayMode", "collapsible-button", "radio"} {
		if !strings.Contains(out, want) {
			t.Fatalf("schema output missing %q:\n%s", want, out)
		}
	}
}

func TestOrgsCommandListsHostOrganizations(t *testing.T) {
	srv := startHost(t)
	out, err := runCLI(t, "orgs", "--dir", t.TempDir(), "--host-url", srv.BaseURL())
	if err != nil {
		t.Fatalf("orgs: %v", err)
	}
	for _, want := range []string{"11.6.0", "combobox", "Main Org.", "Org A", "Org B"} {
		if !strings.Contains(out, want) {
			t.Fatalf("orgs output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "*  1") {
		t.Fatalf("current org should be marked:\n%s", out)
	}
}

func TestOrgsCommandHonoursPinnedVersion(t *testing.T) {
	srv := startHost(t)
	out, err := runCLI(t, "orgs", "--json", "--dir", t.TempDir(), "--host-url", srv.BaseURL(), "--host-version", "11.4.0")
	if err != nil {
		t.Fatalf("orgs: %v", err)
	}
	if !strings.Contains(out, `"enhancedSelect": false`) || !strings.Contains(out, `"version": "11.4.0"`) {
		t.Fatalf("unexpected json:\n%s", out)
	}
}

func TestOrgsCommandAllListsHostOrganizations(t *testing.T) {
	srv := startHost(t)
	out, err := runCLI(t, "orgs", "--all", "--json", "--dir", t.TempDir(), "--host-url", srv.BaseURL())
	if err != nil {
		t.Fatalf("orgs --all: %v", err)
	}
	for _, want := range []string{`"Label": "Main Org."`, `"Label": "Org A"`, `"Label": "Org B"`, `"currentOrgId": 1`} {
		if !strings.Contains(out, want) {
			t.Fatalf("orgs --all output missing %s:\n%s", want, out)
		}
	}
}

func TestHostOptionsKeepsHostOrder(t *testing.T) {
	got := hostOptions([]directory.Organization{{ID: 3, Name: "Org B"}, {ID: 1, Name: "Main Org."}})
	if len(got) != 2 || got[0] != (directory.Option{Label: "Org B", Value: 3}) || got[1] != (directory.Option{Label: "Main Org.", Value: 1}) {
		t.Fatalf("unexpected options: %+v", got)
	}
}

func TestProvisionCommandCreatesOrgs(t *testing.T) {
	srv := startHost(t)
	out, err := runCLI(t, "provision", "--dir", t.TempDir(), "--host-url", srv.BaseURL(), "--org", "Alpha Org.", "--org", "Org A")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if !strings.Contains(out, "created Alpha Org.") || !strings.Contains(out, "exists  Org A") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if n := len(srv.Orgs()); n != 4 {
		t.Fatalf("expected 4 orgs, got %d", n)
	}
}

func TestBuildReportWithoutCurrentOrg(t *testing.T) {
	snap := directory.Snapshot{
		Organizations: []directory.Option{{Label: "Main Org.", Value: 1}},
		CurrentErr:    errors.New("unauthorized"),
		Version:       "11.5.2",
	}
	report := buildReport(snap, "")
	if report.CurrentOrgID != 0 || !report.EnhancedSelect {
		t.Fatalf("unexpected report %+v", report)
	}
	var out bytes.Buffer
	if err := writeReport(&out, report); err != nil {
		t.Fatalf("write: %v", err)
	}
	if strings.Contains(out.String(), "*") {
		t.Fatalf("no org should be marked:\n%s", out.String())
	}
}
