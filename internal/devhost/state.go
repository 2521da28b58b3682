package devhost

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

var (
	errOrgNameTaken = errors.New("organization name taken")
	errNotMember    = errors.New("not a valid organization")
	errUnknownOrg   = errors.New("organization not found")
)

// Org is one organization held by the fixture host.
type Org struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Dashboard is a stored dashboard import.
type Dashboard struct {
	OrgID int64
	UID   string
	Title string
	Model json.RawMessage
}

type account struct {
	id       int64
	login    string
	password string
	orgID    int64
	roles    map[int64]string
}

// directory is the host's in-memory organization and membership state.
type directory struct {
	mu         sync.RWMutex
	orgs       []Org
	nextOrgID  int64
	admin      *account
	dashboards []Dashboard
}

func newDirectory(settings Settings) *directory {
	d := &directory{
		nextOrgID: 1,
		admin: &account{
			id:       1,
			login:    settings.AdminUser,
			password: settings.AdminPassword,
			roles:    map[int64]string{},
		},
	}
	main := d.addOrgLocked(DefaultMainOrg)
	d.admin.orgID = main.ID
	for _, name := range settings.Orgs {
		if _, err := d.createOrg(name); err != nil {
			continue
		}
	}
	return d
}

func (d *directory) addOrgLocked(name string) Org {
	org := Org{ID: d.nextOrgID, Name: name}
	d.nextOrgID++
	d.orgs = append(d.orgs, org)
	d.admin.roles[org.ID] = "Admin"
	return org
}

func (d *directory) createOrg(name string) (Org, error) {
	name = strings.TrimSpace(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, org := range d.orgs {
		if strings.EqualFold(org.Name, name) {
			return Org{}, errOrgNameTaken
		}
	}
	return d.addOrgLocked(name), nil
}

func (d *directory) listOrgs() []Org {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Org, len(d.orgs))
	copy(out, d.orgs)
	return out
}

func (d *directory) org(id int64) (Org, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, org := range d.orgs {
		if org.ID == id {
			return org, true
		}
	}
	return Org{}, false
}

// memberships returns the user's organizations in creation order.
func (d *directory) memberships(acct *account) []Org {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Org
	for _, org := range d.orgs {
		if _, ok := acct.roles[org.ID]; ok {
			out = append(out, org)
		}
	}
	return out
}

func (d *directory) role(acct *account, orgID int64) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return acct.roles[orgID]
}

func (d *directory) currentOrg(acct *account) Org {
	d.mu.RLock()
	id := acct.orgID
	d.mu.RUnlock()
	org, _ := d.org(id)
	return org
}

func (d *directory) switchOrg(acct *account, orgID int64) error {
	if _, ok := d.org(orgID); !ok {
		return errUnknownOrg
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := acct.roles[orgID]; !ok {
		return errNotMember
	}
	acct.orgID = orgID
	return nil
}

func (d *directory) saveDashboard(dash Dashboard) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dashboards = append(d.dashboards, dash)
}

func (d *directory) dashboardsFor(orgID int64) []Dashboard {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Dashboard
	for _, dash := range d.dashboards {
		if dash.OrgID == orgID {
			out = append(out, dash)
		}
	}
	return out
}

func (d *directory) authenticate(login, password string) (*account, bool) {
	if d.admin.login == login && d.admin.password == password {
		return d.admin, true
	}
	return nil, false
}
