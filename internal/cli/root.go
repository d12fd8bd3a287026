// Package cli implements the dbunit command-line interface: it applies
// fixture files to the configured database outside a test runner.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbunit/internal/lifecycle"
	"github.com/mesh-intelligence/dbunit/internal/paths"
	"github.com/mesh-intelligence/dbunit/pkg/dbunit"
	"github.com/mesh-intelligence/dbunit/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir  string
	fixtureDir string
	logLevel   string
}

// NewRootCmd creates the top-level "dbunit" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "dbunit",
		Short: "Load and clean database fixtures",
		Long:  "dbunit applies flat XML and YAML datasets to a database using named\noperations such as CLEAN_INSERT, REFRESH and DELETE_ALL.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $DBUNIT_CONFIG_DIR or current directory)")
	root.PersistentFlags().StringVar(&flags.fixtureDir, "fixture-dir", "", "directory relative fixture paths are read from")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default: log.level from config)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(flags))
	root.AddCommand(newSetUpCmd(flags))
	root.AddCommand(newTearDownCmd(flags))
	root.AddCommand(newExportCmd(flags))
	root.AddCommand(newOperationsCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dbunit:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps database failures to exitSysError and everything else
// (bad flags, bad fixtures, bad operation names) to exitUserError.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var connErr *types.ConnectionError
	var applyErr *types.ApplyError
	if errors.As(err, &connErr) || errors.As(err, &applyErr) {
		return exitSysError
	}
	return exitUserError
}

// newManager loads configuration and builds a manager honouring the global
// flags. Logs go to the command's stderr.
func newManager(cmd *cobra.Command, flags *rootFlags) (*lifecycle.Manager, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	opts := []dbunit.Option{dbunit.WithLogOutput(cmd.ErrOrStderr())}
	if flags.logLevel != "" {
		opts = append(opts, dbunit.WithLogLevel(flags.logLevel))
	}
	if flags.fixtureDir != "" {
		dir, err := paths.ResolveFixtureDir(flags.fixtureDir, "")
		if err != nil {
			return nil, fmt.Errorf("resolve fixture dir: %w", err)
		}
		opts = append(opts, dbunit.WithFixtureDir(dir))
	}
	return dbunit.FromConfigDir(configDir, opts...)
}
