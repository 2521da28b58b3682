package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kingrea/orgpanel/internal/directory"
	"github.com/kingrea/orgpanel/internal/hostversion"
)

type orgsReport struct {
	Version        string             `json:"version,omitempty"`
	EnhancedSelect bool               `json:"enhancedSelect"`
	CurrentOrgID   int64              `json:"currentOrgId,omitempty"`
	Organizations  []directory.Option `json:"organizations"`
}

func newOrgsCmd(root *rootOptions) *cobra.Command {
	var asJSON, all bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "orgs",
		Short: "List the organizations the panel would show",
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
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			snap := client.Snapshot(ctx)
			if snap.OrgsErr != nil {
				return fmt.Errorf("list organizations: %w", snap.OrgsErr)
			}
			report := buildReport(snap, cfg.HostVersion())
			if all {
				orgs, err := client.ListAllOrganizations(ctx)
				if err != nil {
					return fmt.Errorf("list host organizations: %w", err)
				}
				report.Organizations = hostOptions(orgs)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return writeReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&all, "all", false, "list every organization on the host, not only the caller's (admin)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall request timeout")
	return cmd
}

func buildReport(snap directory.Snapshot, pinned string) orgsReport {
	report := orgsReport{Organizations: snap.Organizations}
	if snap.HasCurrent() {
		report.CurrentOrgID = snap.CurrentOrgID
	} else if snap.CurrentErr != nil {
		logrus.WithError(snap.CurrentErr).Warn("current organization unavailable")
	}
	report.Version = snap.Version
	if pinned != "" {
		report.Version = pinned
	} else if snap.VersionErr != nil {
		logrus.WithError(snap.VersionErr).Warn("host version unavailable")
	}
	enhanced, err := hostversion.DetectCapability(report.Version)
	if err != nil && report.Version != "" {
		logrus.WithError(err).Warn("host version unreadable")
	}
	report.EnhancedSelect = enhanced
	return report
}

// hostOptions shapes host organizations the way the panel labels them.
func hostOptions(orgs []directory.Organization) []directory.Option {
	options := make([]directory.Option, 0, len(orgs))
	for _, org := range orgs {
		options = append(options, directory.Option{Label: org.Name, Value: org.ID})
	}
	return options
}

func writeReport(out io.Writer, report orgsReport) error {
	version := report.Version
	if version == "" {
		version = "unknown"
	}
	widget := "select"
	if report.EnhancedSelect {
		widget = "combobox"
	}
	fmt.Fprintf(out, "Host version: %s (dropdown: %s)\n\n", version, widget)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tNAME")
	for _, opt := range report.Organizations {
		marker := ""
		if opt.Value == report.CurrentOrgID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", marker, opt.Value, opt.Label)
	}
	return w.Flush()
}
