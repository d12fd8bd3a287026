package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbunit/internal/jsonlset"
	"github.com/mesh-intelligence/dbunit/internal/sqldb"
	"github.com/mesh-intelligence/dbunit/pkg/types"
)

func newExportCmd(flags *rootFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export TABLE...",
		Short: "Write table contents as a JSON Lines fixture",
		Long: "Read every row of the given tables, in order, and write them as a .jsonl\n" +
			"fixture to --out, or to stdout when --out is not set.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if out != "" && !strings.EqualFold(filepath.Ext(out), ".jsonl") {
				return fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, filepath.Ext(out))
			}

			m, err := newManager(cmd, flags)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := m.Close(); cerr != nil {
					err = errors.Join(err, cerr)
				}
			}()

			conn, err := m.Connection(cmd.Context())
			if err != nil {
				return err
			}
			ds, err := sqldb.Snapshot(cmd.Context(), conn, args)
			if err != nil {
				return err
			}

			if out == "" {
				return jsonlset.Write(cmd.OutOrStdout(), ds)
			}
			if err := jsonlset.WriteFile(out, ds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d row(s) from %d table(s) to %s\n", ds.RowCount(), len(ds.Tables), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output .jsonl file (default: stdout)")
	return cmd
}
