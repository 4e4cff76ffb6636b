package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fuselab/opcheck/conformance"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered operators and their configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OPERATOR\tDTYPES\tREFERENCE\tERROR CASES")
			for _, op := range conformance.DefaultRegistry() {
				names := make([]string, 0, len(op.DTypes))
				for _, dtype := range op.DTypes {
					names = append(names, dtype.String())
				}
				hasErrors := "-"
				if op.ErrorSamples != nil {
					hasErrors = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					op.Name, strings.Join(names, ","), op.ReferenceType, hasErrors)
			}
			return w.Flush()
		},
	}
}
