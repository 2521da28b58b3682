package main

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kingrea/orgpanel/internal/config"
	"github.com/kingrea/orgpanel/internal/directory"
	"github.com/kingrea/orgpanel/internal/tui"
)

type rootOptions struct {
	Dir         string
	HostURL     string
	PageURL     string
	HostVersion string
	Mode        string
	Verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "orgpanel",
		Short:         "Switch the active organization of a dashboard host",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if opts.Verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			app, err := tui.NewApp(cfg, client)
			if err != nil {
				return err
			}
			program := tea.NewProgram(app,
				tea.WithAltScreen(),
				tea.WithMouseCellMotion(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("run panel: %w", err)
			}
			return app.Err()
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.Dir, "dir", "", "state directory (default $ORGPANEL_DIR or ~/.orgpanel)")
	flags.StringVar(&opts.HostURL, "host-url", "", "host root URL")
	flags.StringVar(&opts.PageURL, "page-url", "", "page the panel is shown on")
	flags.StringVar(&opts.HostVersion, "host-version", "", "pin the host version instead of asking the host")
	flags.StringVarP(&opts.Mode, "mode", "m", "", "display mode: select, button or collapsible-button")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newOrgsCmd(opts))
	cmd.AddCommand(newDevhostCmd())
	cmd.AddCommand(newProvisionCmd(opts))
	return cmd
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	dir := opts.Dir
	if dir == "" {
		var err error
		if dir, err = config.DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := config.InitDir(dir); err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	host := config.HostConfig{URL: opts.HostURL, PageURL: opts.PageURL, Version: opts.HostVersion}
	if err := cfg.Override(host, opts.Mode); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"dir":  cfg.Dir,
		"host": cfg.HostURL(),
		"mode": cfg.DisplayMode(),
	}).Debug("configuration loaded")
	return cfg, nil
}

func newClient(cfg *config.Config) (*directory.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	auth := cfg.Auth()
	opts := []directory.ClientOption{
		directory.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		directory.WithCookieJar(jar),
	}
	if auth.Token != "" {
		opts = append(opts, directory.WithToken(auth.Token))
	} else if auth.User != "" {
		opts = append(opts, directory.WithBasicAuth(auth.User, auth.Password))
	}
	return directory.New(cfg.HostURL(), opts...)
}
