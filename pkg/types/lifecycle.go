package types

import "context"

// Lifecycle accumulates fixtures for one scenario and applies them to the
// database at setup and teardown. A Lifecycle is not safe for concurrent
// use; scenarios sharing one instance must run sequentially.
type Lifecycle interface {
	// AddInline appends raw fixture text to the inline buffer. The buffer is
	// wrapped into a single dataset document at SetUp.
	AddInline(text string) error

	// AddFile loads and parses a fixture file and appends the dataset.
	// Returns *FixtureLoadError when the file cannot be read or parsed.
	AddFile(path string) error

	// SetSetUpOperation selects the operation used by SetUp.
	// Returns *UnknownOperationError and leaves the slot unchanged when the
	// name is not in the closed set.
	SetSetUpOperation(name string) error

	// SetTearDownOperation selects the operation used by TearDown, with the
	// same resolution rule as SetSetUpOperation.
	SetTearDownOperation(name string) error

	// SetUp resolves the accumulated fixtures and applies them in order.
	SetUp(ctx context.Context) error

	// TearDown applies the resolved datasets with the teardown operation,
	// then resets all fixture state and drops the connection even on error.
	TearDown(ctx context.Context) error

	// Connection returns the scenario's connection, opening it on first use.
	Connection(ctx context.Context) (Connection, error)
}
