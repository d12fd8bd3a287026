// Package dbunit provides the public API for managing database fixtures
// around test scenarios. It wires the lifecycle manager to the database/sql
// connection provider and applier while keeping implementation details
// internal.
package dbunit

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mesh-intelligence/dbunit/internal/config"
	"github.com/mesh-intelligence/dbunit/internal/lifecycle"
	"github.com/mesh-intelligence/dbunit/internal/logging"
	"github.com/mesh-intelligence/dbunit/internal/paths"
	"github.com/mesh-intelligence/dbunit/internal/sqldb"
	"github.com/mesh-intelligence/dbunit/pkg/types"
)

// Version is the dbunit release.
const Version = "0.1.0"

// ModulePath is the Go module path of this project.
const ModulePath = "github.com/mesh-intelligence/dbunit"

type settings struct {
	logger          *log.Logger
	logLevel        string
	logOutput       io.Writer
	timeout         time.Duration
	fixtureDir      string
	setUp, tearDown types.Operation
}

// Option configures a lifecycle built by New.
type Option func(*settings)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithLogLevel sets the level of the logger FromConfigDir builds. It
// overrides log.level from the configuration file.
func WithLogLevel(level string) Option {
	return func(s *settings) { s.logLevel = level }
}

// WithLogOutput sets where the logger FromConfigDir builds writes. The
// default is stderr.
func WithLogOutput(w io.Writer) Option {
	return func(s *settings) { s.logOutput = w }
}

// WithConnectTimeout bounds the initial ping of a new connection.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithFixtureDir sets the directory relative fixture files are read from.
func WithFixtureDir(dir string) Option {
	return func(s *settings) { s.fixtureDir = dir }
}

// WithDefaultOperations sets the operations every scenario starts with.
func WithDefaultOperations(setUp, tearDown types.Operation) Option {
	return func(s *settings) {
		s.setUp = setUp
		s.tearDown = tearDown
	}
}

// New creates a fixture lifecycle for the database named by params. No
// connection is opened until the first SetUp, TearDown or Connection call.
//
// Example:
//
//	lc := dbunit.New(types.ConnectionParams{URL: "postgres://app@localhost/app"})
//	_ = lc.AddFile("testdata/users.xml")
//	if err := lc.SetUp(ctx); err != nil { ... }
//	defer lc.TearDown(ctx)
func New(params types.ConnectionParams, opts ...Option) types.Lifecycle {
	return NewManager(params, opts...)
}

// NewManager is New returning the concrete manager, which also exposes the
// read-only inspection methods.
func NewManager(params types.ConnectionParams, opts ...Option) *lifecycle.Manager {
	s := settings{
		logger:   logging.Discard(),
		timeout:  sqldb.DefaultConnectTimeout,
		setUp:    types.DefaultSetUpOperation,
		tearDown: types.DefaultTearDownOperation,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return lifecycle.New(params,
		lifecycle.WithProvider(sqldb.NewProvider(sqldb.WithConnectTimeout(s.timeout))),
		lifecycle.WithApplier(sqldb.NewApplier()),
		lifecycle.WithLogger(s.logger),
		lifecycle.WithFixtureDir(s.fixtureDir),
		lifecycle.WithDefaultOperations(s.setUp, s.tearDown),
	)
}

// FromConfigDir loads dbunit.yaml from dir and returns a manager configured
// by it. opts apply after the configuration, so they override it. Unless
// WithLogger is given, logs go to stderr at the configured level.
func FromConfigDir(dir string, opts ...Option) (*lifecycle.Manager, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	base, err := configOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(base, opts...)

	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		logger, err := logging.New(s.logLevel, s.logOutput)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithLogger(logger))
	}
	return NewManager(cfg.Connection, opts...), nil
}

// configOptions turns a loaded configuration into options. Relative fixture
// directories are resolved against the current directory.
func configOptions(cfg *config.Config) ([]Option, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	setUp, tearDown, err := cfg.Operations()
	if err != nil {
		return nil, err
	}
	fixtureDir, err := paths.ResolveFixtureDir("", cfg.FixtureDir)
	if err != nil {
		return nil, fmt.Errorf("resolve fixture dir: %w", err)
	}
	return []Option{
		WithConnectTimeout(cfg.ConnectTimeout),
		WithFixtureDir(fixtureDir),
		WithDefaultOperations(setUp, tearDown),
		WithLogLevel(cfg.LogLevel),
		WithLogOutput(os.Stderr),
	}, nil
}
