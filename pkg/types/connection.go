package types

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/url"
)

// ConnectionParams identifies the target database. Driver names a
// database/sql driver; when empty it is inferred from the URL scheme.
// Password is optional and defaults to empty.
type ConnectionParams struct {
	Driver   string `json:"driver" yaml:"driver" mapstructure:"driver"`
	URL      string `json:"connection_url" yaml:"connection_url" mapstructure:"connection_url"`
	Username string `json:"username" yaml:"username" mapstructure:"username"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
}

// Connection parameter errors.
var (
	ErrMissingURL = errors.New("connection url must not be empty")
)

// Validate checks that the parameters name a database.
func (p ConnectionParams) Validate() error {
	if p.URL == "" {
		return ErrMissingURL
	}
	return nil
}

// RedactedURL returns URL with any password in its user info masked, for
// use in logs and error messages.
func (p ConnectionParams) RedactedURL() string {
	u, err := url.Parse(p.URL)
	if err != nil || u.User == nil {
		return p.URL
	}
	return u.Redacted()
}

// Connection is a live handle to the target database.
type Connection interface {
	// DB returns the underlying connection pool.
	DB() *sql.DB

	// Dialect names the SQL dialect spoken by the database
	// (sqlite, postgres, mysql, sqlserver).
	Dialect() string

	// Close releases the handle. Close is idempotent.
	Close() error
}

// ConnectionProvider produces live connections from connection parameters.
type ConnectionProvider interface {
	Open(ctx context.Context, params ConnectionParams) (Connection, error)
}

// DatasetParser turns a fixture document into a Dataset.
type DatasetParser interface {
	Parse(r io.Reader) (*Dataset, error)
}

// DatasetApplier applies a Dataset to a connection using an Operation.
type DatasetApplier interface {
	Apply(ctx context.Context, conn Connection, ds *Dataset, op Operation) error
}
