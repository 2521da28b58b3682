package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(strings.TrimSpace(body)), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.File.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.File.Version)
	}
	if c.DisplayMode() != defaultDisplayMode {
		t.Fatalf("expected default display mode %q, got %q", defaultDisplayMode, c.DisplayMode())
	}
	if c.PageURL() != c.HostURL() {
		t.Fatalf("expected page url to default to host url, got %q", c.PageURL())
	}
}

func TestInitDirWritesDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), StateDirName)
	if err := InitDir(dir); err != nil {
		t.Fatalf("InitDir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "logs")); err != nil {
		t.Fatalf("expected logs dir: %v", err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after init: %v", err)
	}
	if c.Auth().User != "admin" || c.DisplayMode() != "select" {
		t.Fatalf("unexpected defaults %+v", c.File)
	}
	writeConfig(t, dir, "version: 1\nhost:\n  url: http://h:1/\n")
	if err := InitDir(dir); err != nil {
		t.Fatalf("second InitDir: %v", err)
	}
	c, err = Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HostURL() != "http://h:1/" {
		t.Fatalf("InitDir must not overwrite an existing config, got %q", c.HostURL())
	}
}

func TestLoadParsesYaml(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
version: 1
host:
  url: https://grafana.example.com/
  page_url: https://grafana.example.com/d/abc/orgs?orgId=1
  version: 11.4.0
auth:
  token: " glsa_123 "
panel:
  display_mode: " Button "
http:
  timeout: 5s
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.DisplayMode() != "button" {
		t.Fatalf("expected normalized mode, got %q", c.DisplayMode())
	}
	if c.Auth().Token != "glsa_123" {
		t.Fatalf("expected trimmed token, got %q", c.Auth().Token)
	}
	if c.HostVersion() != "11.4.0" {
		t.Fatalf("unexpected version %q", c.HostVersion())
	}
	if c.Timeout() != 5*time.Second {
		t.Fatalf("unexpected timeout %s", c.Timeout())
	}
	if !strings.Contains(c.PageURL(), "/d/abc/") {
		t.Fatalf("unexpected page url %q", c.PageURL())
	}
}

func TestLoadKeepsUnknownDisplayMode(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version: 1\npanel:\n  display_mode: tabs\n")
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.DisplayMode() != "tabs" {
		t.Fatalf("expected unknown mode to pass through, got %q", c.DisplayMode())
	}
}

func TestLoadValidation(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version: 1\nhost:\n  url: localhost:3000\n")
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version: 1\nhost:\n  url: http://file:3000/\npanel:\n  display_mode: button\n")
	t.Setenv("ORGPANEL_HOST_URL", "http://env:3000/")
	t.Setenv("ORGPANEL_DISPLAY_MODE", "collapsible-button")
	t.Setenv("ORGPANEL_HTTP_TIMEOUT", "2s")
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.HostURL() != "http://env:3000/" {
		t.Fatalf("expected env host, got %q", c.HostURL())
	}
	if c.DisplayMode() != "collapsible-button" {
		t.Fatalf("expected env mode, got %q", c.DisplayMode())
	}
	if c.Timeout() != 2*time.Second {
		t.Fatalf("expected env timeout, got %s", c.Timeout())
	}
}

func TestOverrideRevalidates(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Override(HostConfig{PageURL: "http://h/d/x"}, "BUTTON"); err != nil {
		t.Fatalf("Override: %v", err)
	}
	if c.DisplayMode() != "button" || c.PageURL() != "http://h/d/x" {
		t.Fatalf("unexpected override result %+v", c.File)
	}
	if err := c.Override(HostConfig{URL: "ftp://h/"}, ""); err == nil {
		t.Fatalf("expected invalid scheme error")
	}
}

func TestDefaultDirHonorsEnv(t *testing.T) {
	want := filepath.Join(t.TempDir(), "state")
	t.Setenv("ORGPANEL_DIR", want)
	got, err := DefaultDir()
	if err != nil {
		t.Fatalf("DefaultDir: %v", err)
	}
	if got != want {
		t.Fatalf("DefaultDir = %q, want %q", got, want)
	}
}
