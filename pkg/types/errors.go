package types

import (
	"errors"
	"fmt"
)

// Fixture argument errors.
var (
	ErrEmptyFixture      = errors.New("fixture text must not be empty")
	ErrEmptyPath         = errors.New("fixture path must not be empty")
	ErrUnsupportedFormat = errors.New("unsupported fixture format")
)

// Dataset application errors.
var (
	ErrNoPrimaryKey = errors.New("table has no primary key")
	ErrRowNotFound  = errors.New("no row matched the primary key")
)

// InlineSource is the FixtureLoadError source for accumulated inline text.
const InlineSource = "inline"

// UnknownOperationError reports an operation name outside the closed set.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown database operation %q", e.Name)
}

// FixtureLoadError reports a fixture that could not be read or parsed.
// Source is the file path, or InlineSource for the synthesized dataset.
type FixtureLoadError struct {
	Source string
	Err    error
}

func (e *FixtureLoadError) Error() string {
	return fmt.Sprintf("load fixture %s: %v", e.Source, e.Err)
}

func (e *FixtureLoadError) Unwrap() error { return e.Err }

// ConnectionError reports a provider that could not produce a connection.
// URL is redacted.
type ConnectionError struct {
	Driver string
	URL    string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Driver == "" {
		return fmt.Sprintf("connect to %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("connect to %s (driver %s): %v", e.URL, e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ApplyError reports a dataset that failed to apply. Index is the dataset's
// position in the resolved list.
type ApplyError struct {
	Index     int
	Operation Operation
	Err       error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply dataset %d with %s: %v", e.Index, e.Operation, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
