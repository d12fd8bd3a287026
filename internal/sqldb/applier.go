package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/dbunit/pkg/types"
)

// Applier implements types.DatasetApplier over database/sql. Each dataset is
// applied inside one transaction; nothing spans datasets.
type Applier struct{}

// NewApplier returns an Applier.
func NewApplier() *Applier {
	return &Applier{}
}

// Apply runs op for every table of ds against conn.
//
// Inserting operations visit tables in dataset order and deleting operations
// in reverse order, so a dataset listing parent tables first can be both
// loaded and removed without violating foreign keys. UPDATE, REFRESH and
// DELETE match rows on the table's primary key. Table and column names are
// matched against the database catalog ignoring case.
func (a *Applier) Apply(ctx context.Context, conn types.Connection, ds *types.Dataset, op types.Operation) error {
	if op == types.OperationNone {
		return nil
	}
	if !op.Valid() {
		return &types.UnknownOperationError{Name: op.String()}
	}

	d, err := LookupDialect(conn.Dialect())
	if err != nil {
		return err
	}

	tx, err := conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if ds, err = newCatalog(ctx, tx, d).resolve(ds); err != nil {
		return err
	}

	x := &executor{ctx: ctx, tx: tx, d: d}
	switch op {
	case types.OperationInsert:
		err = x.insertAll(ds.Tables)
	case types.OperationCleanInsert:
		if err = x.deleteAll(ds.Reversed()); err == nil {
			err = x.insertAll(ds.Tables)
		}
	case types.OperationUpdate:
		err = x.eachTable(ds.Tables, x.update)
	case types.OperationRefresh:
		err = x.eachTable(ds.Tables, x.refresh)
	case types.OperationDelete:
		err = x.eachTable(ds.Reversed(), x.delete)
	case types.OperationDeleteAll:
		err = x.deleteAll(ds.Reversed())
	case types.OperationTruncateTable:
		err = x.truncateAll(ds.Reversed())
	}
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// executor runs one operation inside a transaction.
type executor struct {
	ctx context.Context
	tx  *sql.Tx
	d   *Dialect
}

func (x *executor) eachTable(tables []*types.Table, fn func(*types.Table) error) error {
	for _, t := range tables {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

func (x *executor) insertAll(tables []*types.Table) error {
	return x.eachTable(tables, x.insert)
}

func (x *executor) deleteAll(tables []*types.Table) error {
	return x.eachTable(tables, func(t *types.Table) error {
		if _, err := x.tx.ExecContext(x.ctx, x.d.DeleteSQL(t.Name, nil)); err != nil {
			return fmt.Errorf("delete all from %s: %w", t.Name, err)
		}
		return nil
	})
}

func (x *executor) truncateAll(tables []*types.Table) error {
	return x.eachTable(tables, func(t *types.Table) error {
		if _, err := x.tx.ExecContext(x.ctx, x.d.Truncate(t.Name)); err != nil {
			return fmt.Errorf("truncate %s: %w", t.Name, err)
		}
		return nil
	})
}

// insert writes every row of t with one prepared statement. Columns a row
// does not carry are written as NULL.
func (x *executor) insert(t *types.Table) error {
	if len(t.Rows) == 0 {
		return nil
	}

	stmt, err := x.tx.PrepareContext(x.ctx, x.d.InsertSQL(t.Name, t.Columns))
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", t.Name, err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		if _, err := stmt.ExecContext(x.ctx, values(row, t.Columns)...); err != nil {
			return fmt.Errorf("insert into %s row %d: %w", t.Name, i, err)
		}
	}
	return nil
}

// update writes the non-key columns of every row of t. A row that matches no
// database row fails with types.ErrRowNotFound.
func (x *executor) update(t *types.Table) error {
	keys, set, err := x.split(t)
	if err != nil {
		return err
	}
	for i, row := range t.Rows {
		found, err := x.updateRow(t, keys, set, row)
		if err != nil {
			return fmt.Errorf("update %s row %d: %w", t.Name, i, err)
		}
		if !found {
			return fmt.Errorf("update %s row %d: %w", t.Name, i, types.ErrRowNotFound)
		}
	}
	return nil
}

// refresh updates rows that exist and inserts the rest.
func (x *executor) refresh(t *types.Table) error {
	keys, set, err := x.split(t)
	if err != nil {
		return err
	}
	insertSQL := x.d.InsertSQL(t.Name, t.Columns)
	for i, row := range t.Rows {
		found, err := x.updateRow(t, keys, set, row)
		if err != nil {
			return fmt.Errorf("refresh %s row %d: %w", t.Name, i, err)
		}
		if found {
			continue
		}
		if _, err := x.tx.ExecContext(x.ctx, insertSQL, values(row, t.Columns)...); err != nil {
			return fmt.Errorf("refresh %s row %d: %w", t.Name, i, err)
		}
	}
	return nil
}

// delete removes every row of t by primary key. Rows already absent are
// ignored.
func (x *executor) delete(t *types.Table) error {
	if len(t.Rows) == 0 {
		return nil
	}
	keys, _, err := x.split(t)
	if err != nil {
		return err
	}
	query := x.d.DeleteSQL(t.Name, keys)
	for i, row := range t.Rows {
		args, err := keyValues(row, keys)
		if err != nil {
			return fmt.Errorf("delete from %s row %d: %w", t.Name, i, err)
		}
		if _, err := x.tx.ExecContext(x.ctx, query, args...); err != nil {
			return fmt.Errorf("delete from %s row %d: %w", t.Name, i, err)
		}
	}
	return nil
}

// updateRow reports whether a database row matched row's key.
func (x *executor) updateRow(t *types.Table, keys, set []string, row types.Row) (bool, error) {
	args, err := keyValues(row, keys)
	if err != nil {
		return false, err
	}
	if len(set) == 0 {
		return x.exists(t, keys, args)
	}

	res, err := x.tx.ExecContext(x.ctx, x.d.UpdateSQL(t.Name, set, keys), append(values(row, set), args...)...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	// MySQL reports zero affected rows when the values were already equal.
	return x.exists(t, keys, args)
}

func (x *executor) exists(t *types.Table, keys []string, args []any) (bool, error) {
	var one int
	err := x.tx.QueryRowContext(x.ctx, x.d.ExistsSQL(t.Name, keys), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// split returns the primary-key columns of t and its remaining columns.
func (x *executor) split(t *types.Table) (keys, rest []string, err error) {
	keys, err = x.primaryKey(t.Name)
	if err != nil {
		return nil, nil, err
	}
	if len(keys) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", t.Name, types.ErrNoPrimaryKey)
	}
	// Key columns take the fixture's spelling so that row lookups match.
	for i, k := range keys {
		for _, c := range t.Columns {
			if strings.EqualFold(c, k) {
				keys[i] = c
				break
			}
		}
	}
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	for _, c := range t.Columns {
		if !isKey[c] {
			rest = append(rest, c)
		}
	}
	return keys, rest, nil
}

func (x *executor) primaryKey(table string) ([]string, error) {
	rows, err := x.tx.QueryContext(x.ctx, x.d.primaryKeySQL, table)
	if err != nil {
		return nil, fmt.Errorf("primary key of %s: %w", table, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("primary key of %s: %w", table, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// values returns the bind arguments for columns of row.
func values(row types.Row, columns []string) []any {
	args := make([]any, len(columns))
	for i, c := range columns {
		args[i] = row.Value(c)
	}
	return args
}

// keyValues returns the bind arguments for keys, which must all be present
// and non-NULL.
func keyValues(row types.Row, keys []string) ([]any, error) {
	args := make([]any, len(keys))
	for i, k := range keys {
		v := row.Value(k)
		if !v.Valid {
			return nil, fmt.Errorf("primary key column %s is missing or NULL", k)
		}
		args[i] = v
	}
	return args, nil
}
