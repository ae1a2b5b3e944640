package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/datapipe/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version.Get())
			return err
		},
	}
}
