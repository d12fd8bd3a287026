package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/dbunit/pkg/types"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// catalog maps fixture identifiers onto the spelling the database stores.
// Fixtures conventionally spell names in upper case while most schemas are
// created unquoted, so a quoted "USERS" would miss a Postgres table users.
type catalog struct {
	ctx    context.Context
	q      queryer
	d      *Dialect
	tables []string
	loaded bool
}

func newCatalog(ctx context.Context, q queryer, d *Dialect) *catalog {
	return &catalog{ctx: ctx, q: q, d: d}
}

// table returns the stored spelling of name. Schema-qualified names and
// names the catalog does not know are returned unchanged, leaving the
// database to report them.
func (c *catalog) table(name string) (string, error) {
	if strings.Contains(name, ".") {
		return name, nil
	}
	if !c.loaded {
		tables, err := c.list(c.d.tablesSQL)
		if err != nil {
			return "", fmt.Errorf("list tables: %w", err)
		}
		c.tables, c.loaded = tables, true
	}
	return matchName(c.tables, name), nil
}

// columns returns the stored spelling of each fixture column of table.
func (c *catalog) columns(table string, fixture []string) ([]string, error) {
	stored, err := c.list(c.d.columnsSQL, table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	out := make([]string, len(fixture))
	for i, col := range fixture {
		out[i] = matchName(stored, col)
	}
	return out, nil
}

// resolve returns a copy of ds whose table and column names use the stored
// spelling. Row values are rekeyed to match.
func (c *catalog) resolve(ds *types.Dataset) (*types.Dataset, error) {
	out := types.NewDataset()
	for _, t := range ds.Tables {
		name, err := c.table(t.Name)
		if err != nil {
			return nil, err
		}
		columns := t.Columns
		if len(columns) > 0 && !strings.Contains(t.Name, ".") {
			if columns, err = c.columns(name, t.Columns); err != nil {
				return nil, err
			}
		}

		rt := out.Table(name)
		for _, col := range columns {
			rt.AddColumn(col)
		}
		for _, row := range t.Rows {
			r := make(types.Row, len(row))
			for i, col := range t.Columns {
				if v, ok := row[col]; ok {
					r[columns[i]] = v
				}
			}
			rt.Rows = append(rt.Rows, r)
		}
	}
	return out, nil
}

func (c *catalog) list(query string, args ...any) ([]string, error) {
	rows, err := c.q.QueryContext(c.ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// matchName picks the stored name equal to name, else the only stored name
// equal to it ignoring case. Otherwise name is returned as given.
func matchName(stored []string, name string) string {
	match := ""
	for _, s := range stored {
		if s == name {
			return s
		}
		if strings.EqualFold(s, name) {
			if match != "" {
				return name
			}
			match = s
		}
	}
	if match == "" {
		return name
	}
	return match
}
