package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kingrea/orgpanel/internal/devhost"
)

func newDevhostCmd() *cobra.Command {
	var port int
	var version string
	var orgs []string
	cmd := &cobra.Command{
		Use:   "devhost",
		Short: "Serve an in-memory host for trying the panel locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := devhost.SettingsFromEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				settings.Port = port
			}
			if version != "" {
				settings.Version = version
			}
			if len(orgs) > 0 {
				settings.Orgs = orgs
			}
			log := logrus.WithField("component", "devhost")
			srv := devhost.NewServer(settings, devhost.WithLogger(log))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := srv.Start(ctx); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"url":     srv.BaseURL(),
				"version": settings.Version,
				"user":    settings.AdminUser,
			}).Info("devhost ready")
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown devhost: %w", err)
			}
			log.Info("devhost stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", devhost.DefaultPort, "listen port")
	cmd.Flags().StringVar(&version, "version", "", "host version to report")
	cmd.Flags().StringSliceVar(&orgs, "org", nil, "extra organization to seed (repeatable)")
	return cmd
}
