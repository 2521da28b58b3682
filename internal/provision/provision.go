// Package provision prepares a host for exercising the panel: a fixed set
// of organizations, each holding a copy of the panel dashboard.
package provision

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ImportedDashboardTitle is the title every imported dashboard copy gets.
const ImportedDashboardTitle = "Imported organization panel dashboard"

// DefaultOrgNames are the fixture organizations, created in this order.
var DefaultOrgNames = []string{
	"Alpha Org.",
	"Beta Org.",
	"Gamma Org.",
	"Delta Org.",
	"Epsilon Org.",
	"Zeta Org.",
	"Eta Org.",
	"Theta Org.",
	"Iota Org.",
}

//go:embed dashboard.json
var defaultDashboard []byte

// DefaultDashboard returns the bundled panel dashboard.
func DefaultDashboard() []byte {
	return append([]byte(nil), defaultDashboard...)
}

// Client sends JSON requests relative to the host root.
// *directory.Client satisfies it.
type Client interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Option customizes a Provisioner.
type Option func(*Provisioner)

// WithOrgs replaces the organization names to ensure.
func WithOrgs(names []string) Option {
	return func(p *Provisioner) {
		if len(names) > 0 {
			p.orgs = append([]string(nil), names...)
		}
	}
}

// WithDashboard replaces the dashboard model imported into new orgs.
func WithDashboard(raw []byte) Option {
	return func(p *Provisioner) {
		if len(raw) > 0 {
			p.dashboard = raw
		}
	}
}

// WithLogger routes progress to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Provisioner) {
		if logger != nil {
			p.log = logger
		}
	}
}

// Provisioner creates missing organizations and seeds each with a dashboard.
type Provisioner struct {
	client    Client
	orgs      []string
	dashboard []byte
	log       logrus.FieldLogger
}

// CreatedOrg is an organization the run created.
type CreatedOrg struct {
	ID           int64
	Name         string
	DashboardUID string
}

// Result summarizes a run.
type Result struct {
	Created []CreatedOrg
	Skipped []string
}

// New builds a provisioner that talks to the host through client.
func New(client Client, opts ...Option) *Provisioner {
	p := &Provisioner{
		client:    client,
		orgs:      append([]string(nil), DefaultOrgNames...),
		dashboard: defaultDashboard,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// LoadDashboard reads a dashboard model from path.
func LoadDashboard(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("provision: read dashboard: %w", err)
	}
	return raw, nil
}

// PrepareDashboard strips the identity of a dashboard model so the host
// assigns a new one, and sets the imported title.
func PrepareDashboard(raw []byte) ([]byte, error) {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, fmt.Errorf("provision: dashboard is not a JSON object")
	}
	out, err := sjson.DeleteBytes(raw, "id")
	if err != nil {
		return nil, fmt.Errorf("provision: drop id: %w", err)
	}
	if out, err = sjson.DeleteBytes(out, "uid"); err != nil {
		return nil, fmt.Errorf("provision: drop uid: %w", err)
	}
	if out, err = sjson.SetBytes(out, "title", ImportedDashboardTitle); err != nil {
		return nil, fmt.Errorf("provision: set title: %w", err)
	}
	return out, nil
}

type userOrg struct {
	OrgID int64  `json:"orgId"`
	Name  string `json:"name"`
}

type createdResponse struct {
	OrgID   int64  `json:"orgId"`
	Message string `json:"message"`
}

type importResponse struct {
	UID    string `json:"uid"`
	Status string `json:"status"`
}

// Run ensures every configured organization exists. For each one it has to
// create, it switches the user into the new org and imports the dashboard
// there. The first failure stops the run.
func (p *Provisioner) Run(ctx context.Context) (Result, error) {
	var result Result
	if p.client == nil {
		return result, fmt.Errorf("provision: client is required")
	}
	dashboard, err := PrepareDashboard(p.dashboard)
	if err != nil {
		return result, err
	}
	importBody, err := sjson.SetRawBytes([]byte(`{"overwrite":false}`), "dashboard", dashboard)
	if err != nil {
		return result, fmt.Errorf("provision: build import body: %w", err)
	}

	var existing []userOrg
	if err := p.client.Do(ctx, http.MethodGet, "api/user/orgs", nil, &existing); err != nil {
		return result, fmt.Errorf("provision: list organizations: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, org := range existing {
		known[org.Name] = struct{}{}
	}

	p.log.WithField("orgs", len(p.orgs)).Info("Setting up test organizations")
	for _, name := range p.orgs {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := known[name]; ok {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		created, err := p.createOrg(ctx, name, importBody)
		if err != nil {
			return result, err
		}
		known[name] = struct{}{}
		result.Created = append(result.Created, created)
	}
	p.log.WithFields(logrus.Fields{
		"created": len(result.Created),
		"skipped": len(result.Skipped),
	}).Info("Test organizations ready")
	return result, nil
}

func (p *Provisioner) createOrg(ctx context.Context, name string, importBody []byte) (CreatedOrg, error) {
	log := p.log.WithField("org", name)
	log.Info("Creating organization")
	var created createdResponse
	if err := p.client.Do(ctx, http.MethodPost, "api/orgs", map[string]string{"name": name}, &created); err != nil {
		return CreatedOrg{}, fmt.Errorf("provision: create org %s: %w", name, err)
	}
	if created.OrgID <= 0 {
		return CreatedOrg{}, fmt.Errorf("provision: create org %s: host returned no id", name)
	}
	log = log.WithField("org_id", created.OrgID)

	if err := p.client.Do(ctx, http.MethodPost, fmt.Sprintf("api/user/using/%d", created.OrgID), nil, nil); err != nil {
		return CreatedOrg{}, fmt.Errorf("provision: switch to org %s: %w", name, err)
	}
	var imported importResponse
	if err := p.client.Do(ctx, http.MethodPost, "api/dashboards/db", json.RawMessage(importBody), &imported); err != nil {
		return CreatedOrg{}, fmt.Errorf("provision: import dashboard into %s: %w", name, err)
	}
	log.WithField("uid", imported.UID).Info("Imported dashboard")
	return CreatedOrg{ID: created.OrgID, Name: name, DashboardUID: imported.UID}, nil
}
