package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbunit/pkg/types"
)

func newOperationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "List the database operation names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, op := range types.Operations() {
				if op.NeedsPrimaryKey() {
					fmt.Fprintf(cmd.OutOrStdout(), "%-15s primary key required\n", op)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), op)
			}
			return nil
		},
	}
}
