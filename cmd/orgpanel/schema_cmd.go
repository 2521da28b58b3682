package main

import (
	"github.com/spf13/cobra"

	"github.com/kingrea/orgpanel/internal/schema"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the panel's configurable options as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			options := schema.PanelOptions()
			for _, opt := range options {
				if err := opt.Validate(); err != nil {
					return err
				}
			}
			out, err := schema.Marshal(options)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
