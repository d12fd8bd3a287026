// Package steps binds the fixture lifecycle to godog scenarios. Each
// scenario gets its own manager; fixtures declared by the steps are applied
// when the database is set up and torn down after the scenario ends.
package steps

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/mesh-intelligence/dbunit/internal/lifecycle"
	"github.com/mesh-intelligence/dbunit/internal/sqldb"
)

type managerKey struct{}

// Manager returns the scenario's manager stored in ctx by Register, for use
// by other step definitions.
func Manager(ctx context.Context) (*lifecycle.Manager, bool) {
	m, ok := ctx.Value(managerKey{}).(*lifecycle.Manager)
	return m, ok
}

type fixtureSteps struct {
	m *lifecycle.Manager
}

// Register adds the dataset steps and hooks to a scenario. It is meant to be
// called from a godog ScenarioInitializer, which runs once per scenario.
func Register(sc *godog.ScenarioContext, factory func() *lifecycle.Manager) {
	s := &fixtureSteps{m: factory()}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return context.WithValue(ctx, managerKey{}, s.m), nil
	})

	sc.Step(`^the dataset:$`, s.theDataset)
	sc.Step(`^the dataset file "([^"]*)"$`, s.theDatasetFile)
	sc.Step(`^the setup operation is "([^"]*)"$`, s.theSetUpOperationIs)
	sc.Step(`^the teardown operation is "([^"]*)"$`, s.theTearDownOperationIs)
	sc.Step(`^the database is set up$`, s.theDatabaseIsSetUp)
	sc.Step(`^the table "([^"]*)" has (\d+) rows?$`, s.theTableHasRows)

	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		if err := s.m.TearDown(ctx); err != nil {
			return ctx, fmt.Errorf("tear down fixtures: %w", err)
		}
		return ctx, nil
	})
}

func (s *fixtureSteps) theDataset(doc *godog.DocString) error {
	return s.m.AddInline(doc.Content)
}

func (s *fixtureSteps) theDatasetFile(path string) error {
	return s.m.AddFile(path)
}

func (s *fixtureSteps) theSetUpOperationIs(name string) error {
	return s.m.SetSetUpOperation(name)
}

func (s *fixtureSteps) theTearDownOperationIs(name string) error {
	return s.m.SetTearDownOperation(name)
}

func (s *fixtureSteps) theDatabaseIsSetUp(ctx context.Context) error {
	return s.m.SetUp(ctx)
}

func (s *fixtureSteps) theTableHasRows(ctx context.Context, table string, want int) error {
	conn, err := s.m.Connection(ctx)
	if err != nil {
		return err
	}
	got, err := sqldb.CountRows(ctx, conn, table)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("table %s has %d rows, want %d", table, got, want)
	}
	return nil
}
