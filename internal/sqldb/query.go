package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/dbunit/pkg/types"
)

// CountRows returns the number of rows in table.
func CountRows(ctx context.Context, conn types.Connection, table string) (int, error) {
	d, err := LookupDialect(conn.Dialect())
	if err != nil {
		return 0, err
	}
	name, err := newCatalog(ctx, conn.DB(), d).table(table)
	if err != nil {
		return 0, err
	}
	var n int
	if err := conn.DB().QueryRowContext(ctx, d.CountSQL(name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}
	return n, nil
}

// Snapshot reads every row of the named tables into a Dataset, tables in the
// given order and named as the database stores them. Values are read as
// text; SQL NULL stays NULL.
func Snapshot(ctx context.Context, conn types.Connection, tables []string) (*types.Dataset, error) {
	d, err := LookupDialect(conn.Dialect())
	if err != nil {
		return nil, err
	}
	cat := newCatalog(ctx, conn.DB(), d)
	ds := types.NewDataset()
	for _, name := range tables {
		stored, err := cat.table(name)
		if err != nil {
			return nil, err
		}
		if err := snapshotTable(ctx, conn.DB(), d, ds.Table(stored)); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", name, err)
		}
	}
	return ds, nil
}

func snapshotTable(ctx context.Context, db *sql.DB, d *Dialect, t *types.Table) error {
	rows, err := db.QueryContext(ctx, d.SelectSQL(t.Name))
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	for _, c := range columns {
		t.AddColumn(c)
	}

	for rows.Next() {
		vals := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		row := make(types.Row, len(columns))
		for i, c := range columns {
			row[c] = vals[i]
		}
		t.AddRow(columns, row)
	}
	return rows.Err()
}
