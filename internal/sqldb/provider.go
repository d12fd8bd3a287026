// Package sqldb opens database/sql connections from connection parameters
// and applies datasets to them with the named database operations.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/xo/dburl"

	"github.com/mesh-intelligence/dbunit/pkg/types"
)

// DefaultConnectTimeout bounds the ping that validates a new connection.
const DefaultConnectTimeout = 3 * time.Second

// Conn implements types.Connection over a *sql.DB.
type Conn struct {
	db      *sql.DB
	dialect *Dialect
	driver  string

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an open pool. Callers own db until it is wrapped; Close
// closes it.
func NewConn(db *sql.DB, driver string) (*Conn, error) {
	d, err := DialectForDriver(driver)
	if err != nil {
		return nil, err
	}
	return &Conn{db: db, dialect: d, driver: driver}, nil
}

// DB returns the underlying pool.
func (c *Conn) DB() *sql.DB { return c.db }

// Dialect returns the dialect name.
func (c *Conn) Dialect() string { return c.dialect.Name }

// Driver returns the database/sql driver name.
func (c *Conn) Driver() string { return c.driver }

// Close closes the pool. Later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.db.Close()
	})
	return c.closeErr
}

// Provider implements types.ConnectionProvider using dburl to turn
// connection URLs into driver DSNs.
type Provider struct {
	connectTimeout time.Duration
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithConnectTimeout sets the ping timeout for new connections. A
// non-positive value disables the timeout.
func WithConnectTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) { p.connectTimeout = d }
}

// NewProvider returns a Provider.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{connectTimeout: DefaultConnectTimeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open connects to the database named by params and pings it.
//
// When params.Driver is empty the driver is inferred from the URL scheme
// (sqlite:, postgres:, mysql:, sqlserver: and their dburl aliases). When it
// is set, it names the database/sql driver, and a URL that dburl cannot
// parse is passed to the driver unchanged as its DSN. Username and Password
// fill the URL user info when the URL has none.
func (p *Provider) Open(ctx context.Context, params types.ConnectionParams) (types.Connection, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	driver, dsn, err := resolve(params)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	pingCtx := ctx
	if p.connectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, p.connectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	conn, err := NewConn(db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return conn, nil
}

// resolve returns the database/sql driver name and DSN for params.
func resolve(params types.ConnectionParams) (driver, dsn string, err error) {
	raw := withCredentials(params.URL, params.Username, params.Password)

	u, parseErr := dburl.Parse(raw)
	if params.Driver != "" {
		if _, err := DialectForDriver(params.Driver); err != nil {
			return "", "", err
		}
		if parseErr != nil {
			return params.Driver, raw, nil
		}
		return params.Driver, u.DSN, nil
	}
	if parseErr != nil {
		return "", "", fmt.Errorf("parse connection url: %w", parseErr)
	}

	driver, ok := goDrivers[u.Driver]
	if !ok {
		return "", "", fmt.Errorf("%w %q", ErrUnknownDialect, u.Driver)
	}
	return driver, u.DSN, nil
}

// withCredentials sets the user info of a hierarchical URL that has a host
// but no user info. Any other input is returned unchanged.
func withCredentials(raw, username, password string) string {
	if username == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Opaque != "" || u.Host == "" || u.User != nil {
		return raw
	}
	if password == "" {
		u.User = url.User(username)
	} else {
		u.User = url.UserPassword(username, password)
	}
	return u.String()
}
