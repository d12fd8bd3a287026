// Package lifecycle implements the scenario fixture lifecycle: fixtures are
// accumulated during a scenario, applied to the database at setup, applied
// again with the teardown operation at the end, and then discarded so that
// the next scenario starts empty.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/dbunit/internal/fixture"
	"github.com/mesh-intelligence/dbunit/internal/flatxml"
	"github.com/mesh-intelligence/dbunit/internal/jsonlset"
	"github.com/mesh-intelligence/dbunit/internal/paths"
	"github.com/mesh-intelligence/dbunit/internal/yamlset"
	"github.com/mesh-intelligence/dbunit/pkg/types"
)

// Manager owns the fixture state of one scenario at a time. It is not safe
// for concurrent use: scenarios sharing a Manager must run sequentially, and
// concurrent runners need one Manager per scenario.
type Manager struct {
	params   types.ConnectionParams
	provider types.ConnectionProvider
	applier  types.DatasetApplier
	parsers  fixture.Parsers
	inline   types.DatasetParser
	logger   *log.Logger
	baseDir  string

	conn     connState
	fixtures fixture.Set
	setUpOp  types.Operation
	tearOp   types.Operation
	scenario string

	// Defaults restored on every reset.
	defaultSetUp    types.Operation
	defaultTearDown types.Operation
}

var _ types.Lifecycle = (*Manager)(nil)

// connState is either uninitialized (conn nil) or connected.
type connState struct {
	conn types.Connection
}

func (s connState) connected() bool { return s.conn != nil }

// Option configures a Manager.
type Option func(*Manager)

// WithProvider sets the connection provider.
func WithProvider(p types.ConnectionProvider) Option {
	return func(m *Manager) { m.provider = p }
}

// WithApplier sets the dataset applier.
func WithApplier(a types.DatasetApplier) Option {
	return func(m *Manager) { m.applier = a }
}

// WithParser registers a file parser for a lower-case extension such as
// ".xml", replacing any existing registration.
func WithParser(ext string, p types.DatasetParser) Option {
	return func(m *Manager) { m.parsers[ext] = p }
}

// WithInlineParser sets the parser for the synthesized inline dataset.
func WithInlineParser(p types.DatasetParser) Option {
	return func(m *Manager) { m.inline = p }
}

// WithFixtureDir sets the directory that relative fixture file paths are
// read from. By default they are relative to the working directory.
func WithFixtureDir(dir string) Option {
	return func(m *Manager) { m.baseDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithDefaultOperations sets the operations each scenario starts with.
func WithDefaultOperations(setUp, tearDown types.Operation) Option {
	return func(m *Manager) {
		m.defaultSetUp = setUp
		m.defaultTearDown = tearDown
	}
}

// New returns a Manager for the database named by params. Without options it
// parses .xml files as flat XML, .yaml/.yml files as YAML and .jsonl files as
// JSON Lines, logs nowhere,
// and starts each scenario with CLEAN_INSERT setup and NONE teardown.
// A provider and an applier must be supplied for SetUp and TearDown to reach
// a database.
func New(params types.ConnectionParams, opts ...Option) *Manager {
	xml := flatxml.NewParser()
	yml := yamlset.NewParser()
	m := &Manager{
		params:          params,
		parsers:         fixture.Parsers{".xml": xml, ".yaml": yml, ".yml": yml, ".jsonl": jsonlset.NewParser()},
		inline:          xml,
		logger:          log.New(io.Discard),
		defaultSetUp:    types.DefaultSetUpOperation,
		defaultTearDown: types.DefaultTearDownOperation,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.setUpOp = m.defaultSetUp
	m.tearOp = m.defaultTearDown
	m.scenario = newScenarioID()
	return m
}

// AddInline appends raw fixture text to the inline buffer.
func (m *Manager) AddInline(text string) error {
	if text == "" {
		return types.ErrEmptyFixture
	}
	m.fixtures.AddInline(text)
	m.logger.Debug("inline fixture added", "scenario", m.scenario, "bytes", len(text))
	return nil
}

// AddFile loads the fixture file at path and appends its dataset.
func (m *Manager) AddFile(path string) error {
	path = paths.FixturePath(m.baseDir, path)
	ds, err := fixture.Load(path, m.parsers)
	if err != nil {
		m.logger.Error("fixture file rejected", "scenario", m.scenario, "path", path, "err", err)
		return err
	}
	m.fixtures.AddFile(path, ds)
	m.logger.Debug("fixture file added", "scenario", m.scenario, "path", path, "tables", len(ds.Tables), "rows", ds.RowCount())
	return nil
}

// SetSetUpOperation selects the setup operation by name.
func (m *Manager) SetSetUpOperation(name string) error {
	op, err := types.ParseOperation(name)
	if err != nil {
		m.logger.Error("unknown setup operation", "scenario", m.scenario, "name", name)
		return err
	}
	m.setUpOp = op
	return nil
}

// SetTearDownOperation selects the teardown operation by name.
func (m *Manager) SetTearDownOperation(name string) error {
	op, err := types.ParseOperation(name)
	if err != nil {
		m.logger.Error("unknown teardown operation", "scenario", m.scenario, "name", name)
		return err
	}
	m.tearOp = op
	return nil
}

// SetUp resolves the accumulated fixtures and applies every dataset, in
// accumulation order, with the setup operation. The first failure stops the
// sequence; datasets already applied stay applied.
func (m *Manager) SetUp(ctx context.Context) error {
	m.logger.Debug("setUp start", "scenario", m.scenario, "operation", m.setUpOp, "fixtures", sourceNames(m.fixtures.Sources()))

	conn, err := m.Connection(ctx)
	if err != nil {
		return err
	}

	datasets, err := m.fixtures.Resolve(m.inline)
	if err != nil {
		m.logger.Error("inline fixture rejected", "scenario", m.scenario, "err", err)
		return err
	}

	return m.applyAll(ctx, conn, datasets, m.setUpOp)
}

// TearDown applies every resolved dataset with the teardown operation, then
// closes the connection and clears all fixture state, whatever the outcome.
// Errors are returned after the reset.
func (m *Manager) TearDown(ctx context.Context) (err error) {
	m.logger.Debug("tearDown start", "scenario", m.scenario, "operation", m.tearOp)
	defer func() {
		if cerr := m.reset(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	datasets := m.fixtures.Datasets()
	if len(datasets) == 0 {
		m.logger.Debug("nothing to tear down", "scenario", m.scenario, "discarded_inline", !m.fixtures.Empty())
		return nil
	}

	conn, err := m.Connection(ctx)
	if err != nil {
		return err
	}
	return m.applyAll(ctx, conn, datasets, m.tearOp)
}

// Close releases the connection and discards all fixture state without
// applying the teardown operation.
func (m *Manager) Close() error {
	return m.reset()
}

// Connection returns the scenario's connection, opening it on first use.
func (m *Manager) Connection(ctx context.Context) (types.Connection, error) {
	if m.conn.connected() {
		return m.conn.conn, nil
	}
	if m.provider == nil {
		return nil, m.connectionError(errors.New("no connection provider configured"))
	}

	conn, err := m.provider.Open(ctx, m.params)
	if err != nil {
		return nil, m.connectionError(err)
	}
	m.conn = connState{conn: conn}
	m.logger.Debug("connection opened", "scenario", m.scenario, "url", m.params.RedactedURL())
	return conn, nil
}

// Datasets returns the resolved dataset list.
func (m *Manager) Datasets() []*types.Dataset {
	return m.fixtures.Datasets()
}

// Inline returns the pending inline text, or false when none is pending.
func (m *Manager) Inline() (string, bool) {
	in, ok := m.fixtures.Inline()
	return in.Text, ok
}

// SetUpOperation returns the current setup operation.
func (m *Manager) SetUpOperation() types.Operation { return m.setUpOp }

// TearDownOperation returns the current teardown operation.
func (m *Manager) TearDownOperation() types.Operation { return m.tearOp }

// Connected reports whether a connection is currently held.
func (m *Manager) Connected() bool { return m.conn.connected() }

// ScenarioID identifies the current fixture generation in log lines.
func (m *Manager) ScenarioID() string { return m.scenario }

func (m *Manager) applyAll(ctx context.Context, conn types.Connection, datasets []*types.Dataset, op types.Operation) error {
	if len(datasets) == 0 {
		return nil
	}
	if m.applier == nil {
		return errors.New("no dataset applier configured")
	}
	for i, ds := range datasets {
		m.logger.Debug("applying dataset", "scenario", m.scenario, "index", i, "operation", op, "tables", len(ds.Tables), "rows", ds.RowCount())
		if err := m.applier.Apply(ctx, conn, ds, op); err != nil {
			m.logger.Error("dataset failed", "scenario", m.scenario, "index", i, "operation", op, "err", err)
			return &types.ApplyError{Index: i, Operation: op, Err: err}
		}
	}
	return nil
}

// reset returns the manager to its initial state and reports any error from
// closing the connection.
func (m *Manager) reset() error {
	var err error
	if m.conn.connected() {
		if cerr := m.conn.conn.Close(); cerr != nil {
			err = fmt.Errorf("close connection: %w", cerr)
		}
	}
	m.conn = connState{}
	m.fixtures.Reset()
	m.setUpOp = m.defaultSetUp
	m.tearOp = m.defaultTearDown
	m.logger.Debug("fixtures reset", "scenario", m.scenario)
	m.scenario = newScenarioID()
	return err
}

func (m *Manager) connectionError(err error) error {
	m.logger.Error("connection failed", "scenario", m.scenario, "url", m.params.RedactedURL(), "err", err)
	return &types.ConnectionError{Driver: m.params.Driver, URL: m.params.RedactedURL(), Err: err}
}

func sourceNames(sources []fixture.Source) []string {
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name()
	}
	return names
}

func newScenarioID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
