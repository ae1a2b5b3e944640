package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kbukum/datapipe/steps"
)

func newOpsCmd(_ *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the registered operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := steps.NewRegistry(steps.Dependencies{})
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OPERATION\tKIND\tPROCESSING")
			for _, op := range reg.Operations() {
				kind, _ := steps.Kind(op)
				fmt.Fprintf(w, "%s\t%s\t%s\n", op, kind, kind.ProcessingType())
			}
			return w.Flush()
		},
	}
}
