package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newSetUpCmd(flags *rootFlags) *cobra.Command {
	var (
		operation string
		inline    []string
	)
	cmd := &cobra.Command{
		Use:   "setup [FILE...]",
		Short: "Apply fixtures with the setup operation",
		Long: "Load the given fixture files and inline fragments and apply them with the\n" +
			"setup operation (default: dbunit.setup_operation, CLEAN_INSERT).",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			m, err := newManager(cmd, flags)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := m.Close(); cerr != nil {
					err = errors.Join(err, cerr)
				}
			}()

			if operation != "" {
				if err := m.SetSetUpOperation(operation); err != nil {
					return err
				}
			}
			for _, path := range args {
				if err := m.AddFile(path); err != nil {
					return err
				}
			}
			for _, text := range inline {
				if err := m.AddInline(text); err != nil {
					return err
				}
			}

			if err := m.SetUp(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d dataset(s) with %s\n", len(m.Datasets()), m.SetUpOperation())
			return nil
		},
	}
	cmd.Flags().StringVarP(&operation, "operation", "o", "", "setup operation name")
	cmd.Flags().StringArrayVar(&inline, "inline", nil, "inline flat XML rows, e.g. '<users id=\"1\"/>' (repeatable)")
	return cmd
}

func newTearDownCmd(flags *rootFlags) *cobra.Command {
	var operation string
	cmd := &cobra.Command{
		Use:   "teardown FILE...",
		Short: "Apply fixtures with the teardown operation",
		Long: "Load the given fixture files and apply them with the teardown operation\n" +
			"(default: dbunit.teardown_operation, NONE).",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager(cmd, flags)
			if err != nil {
				return err
			}
			if operation != "" {
				if err := m.SetTearDownOperation(operation); err != nil {
					_ = m.Close()
					return err
				}
			}
			for _, path := range args {
				if err := m.AddFile(path); err != nil {
					_ = m.Close()
					return err
				}
			}

			n, op := len(m.Datasets()), m.TearDownOperation()
			if err := m.TearDown(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tore down %d dataset(s) with %s\n", n, op)
			return nil
		},
	}
	cmd.Flags().StringVarP(&operation, "operation", "o", "", "teardown operation name")
	return cmd
}
