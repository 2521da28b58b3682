package devhost

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// DefaultHost is the loopback interface used when no host override is provided.
	DefaultHost = "127.0.0.1"
	// DefaultPort matches the port a local host instance usually listens on.
	DefaultPort = 3000
	// DefaultVersion is the build version the fixture host reports.
	DefaultVersion = "11.6.0"
	// DefaultAdminUser and DefaultAdminPassword are the fixture credentials.
	DefaultAdminUser     = "admin"
	DefaultAdminPassword = "admin"
	// DefaultMainOrg is the organization every fresh host starts with.
	DefaultMainOrg = "Main Org."
	// DefaultMaxBodyBytes limits request payloads to 1 MB.
	DefaultMaxBodyBytes int64 = 1 << 20
	// DefaultReadTimeout guards hung clients.
	DefaultReadTimeout = 15 * time.Second
	// DefaultWriteTimeout bounds handler writes.
	DefaultWriteTimeout = 15 * time.Second
	// DefaultIdleTimeout bounds keep-alive connections.
	DefaultIdleTimeout = 60 * time.Second
)

// Settings captures runtime configuration for the fixture host.
type Settings struct {
	Host          string
	Port          int
	Version       string
	AdminUser     string
	AdminPassword string
	// Orgs seeds organizations after the main org, in order.
	Orgs         []string
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type envOverrides struct {
	Host     string   `env:"ORGPANEL_DEVHOST_HOST"`
	Port     int      `env:"ORGPANEL_DEVHOST_PORT"`
	Version  string   `env:"ORGPANEL_DEVHOST_VERSION"`
	User     string   `env:"ORGPANEL_DEVHOST_USER"`
	Password string   `env:"ORGPANEL_DEVHOST_PASSWORD"`
	Orgs     []string `env:"ORGPANEL_DEVHOST_ORGS" envSeparator:";"`
}

// DefaultSettings returns settings for a loopback fixture host.
func DefaultSettings() Settings {
	s := Settings{Port: DefaultPort}
	s.normalize()
	return s
}

// SettingsFromEnv builds Settings from defaults plus ORGPANEL_DEVHOST_* overrides.
func SettingsFromEnv() (Settings, error) {
	s := DefaultSettings()
	if err := s.applyEnvOverrides(); err != nil {
		return Settings{}, err
	}
	s.normalize()
	return s, nil
}

func (s *Settings) applyEnvOverrides() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return err
	}
	if host := strings.TrimSpace(o.Host); host != "" {
		s.Host = host
	}
	if isValidPort(o.Port) {
		s.Port = o.Port
	}
	if version := strings.TrimSpace(o.Version); version != "" {
		s.Version = version
	}
	if user := strings.TrimSpace(o.User); user != "" {
		s.AdminUser = user
	}
	if o.Password != "" {
		s.AdminPassword = o.Password
	}
	if len(o.Orgs) > 0 {
		s.Orgs = o.Orgs
	}
	return nil
}

func (s *Settings) normalize() {
	s.Host = strings.TrimSpace(s.Host)
	if s.Host == "" {
		s.Host = DefaultHost
	}
	// Port 0 asks the kernel for a free port.
	if s.Port < 0 || s.Port > 65535 {
		s.Port = DefaultPort
	}
	s.Version = strings.TrimSpace(s.Version)
	if s.Version == "" {
		s.Version = DefaultVersion
	}
	if s.AdminUser == "" {
		s.AdminUser = DefaultAdminUser
	}
	if s.AdminPassword == "" {
		s.AdminPassword = DefaultAdminPassword
	}
	orgs := make([]string, 0, len(s.Orgs))
	for _, name := range s.Orgs {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			orgs = append(orgs, trimmed)
		}
	}
	s.Orgs = orgs
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
}

// Address returns the TCP bind address in host:port form.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the HTTP base URL for the host.
func (s Settings) URL() string {
	return "http://" + s.Address() + "/"
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}
