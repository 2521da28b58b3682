package directory

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Snapshot is one concurrent read of everything the panel shows. Each field
// group carries its own error so one failed call never hides the others.
type Snapshot struct {
	Organizations []Option
	OrgsErr       error

	CurrentOrgID int64
	CurrentErr   error

	Version    string
	VersionErr error
}

// HasCurrent reports whether the current organization was resolved.
func (s Snapshot) HasCurrent() bool {
	return s.CurrentErr == nil && s.CurrentOrgID > 0
}

// Snapshot issues the organization list, current organization and host
// version reads concurrently and waits for all three.
func (c *Client) Snapshot(ctx context.Context) Snapshot {
	var snap Snapshot
	var g errgroup.Group
	g.Go(func() error {
		snap.Organizations, snap.OrgsErr = c.ListOrganizations(ctx)
		return nil
	})
	g.Go(func() error {
		snap.CurrentOrgID, snap.CurrentErr = c.GetCurrentOrganization(ctx)
		return nil
	})
	g.Go(func() error {
		snap.Version, snap.VersionErr = c.HostVersion(ctx)
		return nil
	})
	_ = g.Wait()
	return snap
}
