// internal/config/config.go
//
// This package handles configuration and the state directory. Every
// installation gets a state directory (default ~/.orgpanel) holding
// config.yaml and the logs/ folder. Values come from the file first, then
// ORGPANEL_* environment variables, then command-line flags.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// StateDirName is the directory created under the user's home.
	StateDirName = ".orgpanel"

	defaultHostURL     = "http://localhost:3000/"
	defaultDisplayMode = "select"
)

const defaultConfigYAML = `# orgpanel configuration
version: 1

host:
  # Root URL of the host serving the organization API.
  url: http://localhost:3000/
  # Page the panel is shown on. Switching lands on the root of this page.
  # page_url: http://localhost:3000/d/abc123/organizations
  # Pin the host build version instead of asking the host.
  # version: 11.6.0

auth:
  user: admin
  password: admin
  # token: glsa_...

panel:
  # select | button | collapsible-button
  display_mode: select

http:
  # Zero means no timeout.
  timeout: 0s
`

// HostConfig locates the host.
type HostConfig struct {
	URL     string `yaml:"url"`
	PageURL string `yaml:"page_url,omitempty"`
	Version string `yaml:"version,omitempty"`
}

// AuthConfig holds the credentials used for every host request.
type AuthConfig struct {
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Token    string `yaml:"token,omitempty"`
}

// PanelConfig holds the panel options.
type PanelConfig struct {
	DisplayMode string `yaml:"display_mode"`
}

// HTTPConfig tunes the HTTP client.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// FileConfig models config.yaml.
type FileConfig struct {
	Version int         `yaml:"version"`
	Host    HostConfig  `yaml:"host"`
	Auth    AuthConfig  `yaml:"auth"`
	Panel   PanelConfig `yaml:"panel"`
	HTTP    HTTPConfig  `yaml:"http"`
}

// Config holds the runtime configuration.
type Config struct {
	// Dir is the state directory (config.yaml, logs/).
	Dir string

	File FileConfig
}

type envOverrides struct {
	HostURL     string        `env:"ORGPANEL_HOST_URL"`
	PageURL     string        `env:"ORGPANEL_PAGE_URL"`
	HostVersion string        `env:"ORGPANEL_HOST_VERSION"`
	User        string        `env:"ORGPANEL_USER"`
	Password    string        `env:"ORGPANEL_PASSWORD"`
	Token       string        `env:"ORGPANEL_TOKEN"`
	DisplayMode string        `env:"ORGPANEL_DISPLAY_MODE"`
	Timeout     time.Duration `env:"ORGPANEL_HTTP_TIMEOUT"`
}

// DefaultDir returns $ORGPANEL_DIR, falling back to ~/.orgpanel.
func DefaultDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("ORGPANEL_DIR")); dir != "" {
		return filepath.Clean(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home dir: %w", err)
	}
	return filepath.Join(home, StateDirName), nil
}

// InitDir creates the state directory structure.
//
// Structure created:
// <dir>/
// ├── config.yaml  <- written with commented defaults when missing
// └── logs/        <- panel.log
func InitDir(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		return err
	}
	return ensureConfigFile(filepath.Join(dir, "config.yaml"))
}

// Load reads config.yaml from dir (if present) and applies environment overrides.
func Load(dir string) (*Config, error) {
	cfg := &Config{
		Dir:  dir,
		File: defaultFileConfig(),
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.File.normalize()
	if err := cfg.File.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ConfigPath returns the on-disk location for the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, "config.yaml")
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.Dir, "logs")
}

// LogPath returns the panel logbook file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "panel.log")
}

// HostURL returns the host root URL.
func (c *Config) HostURL() string {
	return c.File.Host.URL
}

// PageURL returns the page the panel is shown on, defaulting to the host root.
func (c *Config) PageURL() string {
	if c.File.Host.PageURL != "" {
		return c.File.Host.PageURL
	}
	return c.File.Host.URL
}

// HostVersion returns the pinned host version, or "" to ask the host.
func (c *Config) HostVersion() string {
	return c.File.Host.Version
}

// DisplayMode returns the configured display mode. Unknown values are kept
// as-is; the panel renders nothing for them.
func (c *Config) DisplayMode() string {
	return c.File.Panel.DisplayMode
}

// Timeout returns the HTTP client timeout; zero means none.
func (c *Config) Timeout() time.Duration {
	return c.File.HTTP.Timeout
}

// Auth returns the configured credentials.
func (c *Config) Auth() AuthConfig {
	return c.File.Auth
}

// Override applies non-empty values on top of the loaded configuration and
// revalidates. Flags use this.
func (c *Config) Override(host HostConfig, mode string) error {
	if host.URL != "" {
		c.File.Host.URL = host.URL
	}
	if host.PageURL != "" {
		c.File.Host.PageURL = host.PageURL
	}
	if host.Version != "" {
		c.File.Host.Version = host.Version
	}
	if mode != "" {
		c.File.Panel.DisplayMode = mode
	}
	c.File.normalize()
	if err := c.File.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) loadFile() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := FileConfig{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	c.File = parsed
	return nil
}

func (c *Config) applyEnvOverrides() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	set := func(dst *string, value string) {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			*dst = trimmed
		}
	}
	set(&c.File.Host.URL, o.HostURL)
	set(&c.File.Host.PageURL, o.PageURL)
	set(&c.File.Host.Version, o.HostVersion)
	set(&c.File.Auth.User, o.User)
	set(&c.File.Auth.Token, o.Token)
	set(&c.File.Panel.DisplayMode, o.DisplayMode)
	if o.Password != "" {
		c.File.Auth.Password = o.Password
	}
	if o.Timeout > 0 {
		c.File.HTTP.Timeout = o.Timeout
	}
	return nil
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Version: 1,
		Host:    HostConfig{URL: defaultHostURL},
		Panel:   PanelConfig{DisplayMode: defaultDisplayMode},
	}
}

func (fc *FileConfig) applyDefaults() {
	if fc.Version == 0 {
		fc.Version = 1
	}
	if strings.TrimSpace(fc.Host.URL) == "" {
		fc.Host.URL = defaultHostURL
	}
	if strings.TrimSpace(fc.Panel.DisplayMode) == "" {
		fc.Panel.DisplayMode = defaultDisplayMode
	}
}

func (fc *FileConfig) normalize() {
	fc.Host.URL = strings.TrimSpace(fc.Host.URL)
	fc.Host.PageURL = strings.TrimSpace(fc.Host.PageURL)
	fc.Host.Version = strings.TrimSpace(fc.Host.Version)
	fc.Auth.User = strings.TrimSpace(fc.Auth.User)
	fc.Auth.Token = strings.TrimSpace(fc.Auth.Token)
	fc.Panel.DisplayMode = strings.ToLower(strings.TrimSpace(fc.Panel.DisplayMode))
	if fc.Panel.DisplayMode == "" {
		fc.Panel.DisplayMode = defaultDisplayMode
	}
}

func (fc *FileConfig) validate() error {
	if fc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if err := validateURL("host.url", fc.Host.URL); err != nil {
		return err
	}
	if fc.Host.PageURL != "" {
		if err := validateURL("host.page_url", fc.Host.PageURL); err != nil {
			return err
		}
	}
	if fc.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}
	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL", field)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	return nil
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o600)
}
