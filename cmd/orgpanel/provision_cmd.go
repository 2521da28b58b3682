package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kingrea/orgpanel/internal/provision"
)

func newProvisionCmd(root *rootOptions) *cobra.Command {
	var dashboardPath string
	var orgs []string
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the test organizations and import the panel dashboard into each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			opts := []provision.Option{
				provision.WithLogger(logrus.WithField("host", cfg.HostURL())),
				provision.WithOrgs(orgs),
			}
			if dashboardPath != "" {
				raw, err := provision.LoadDashboard(dashboardPath)
				if err != nil {
					return err
				}
				opts = append(opts, provision.WithDashboard(raw))
			}
			result, err := provision.New(client, opts...).Run(cmd.Context())
			if err != nil {
				return err
			}
			for _, org := range result.Created {
				fmt.Fprintf(cmd.OutOrStdout(), "created %-14s id=%d dashboard=%s\n", org.Name, org.ID, org.DashboardUID)
			}
			for _, name := range result.Skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "exists  %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dashboardPath, "dashboard", "", "dashboard JSON to import (default: bundled dashboard)")
	cmd.Flags().StringSliceVar(&orgs, "org", nil, "organization to ensure (repeatable; default: the nine fixture orgs)")
	return cmd
}
