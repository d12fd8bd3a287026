package sqldb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Dialect names.
const (
	DialectSQLite    = "sqlite"
	DialectPostgres  = "postgres"
	DialectMySQL     = "mysql"
	DialectSQLServer = "sqlserver"
)

// ErrUnknownDialect is returned for drivers with no SQL dialect mapping.
var ErrUnknownDialect = errors.New("no SQL dialect for driver")

// Dialect holds the statement fragments that differ between databases.
type Dialect struct {
	Name string

	// quoteOpen and quoteClose delimit identifiers.
	quoteOpen, quoteClose string

	// placeholder renders the n-th (1-based) bind parameter.
	placeholder func(n int) string

	// truncate renders the statement that empties a quoted table.
	truncate func(table string) string

	// primaryKeySQL selects the primary-key column names of the table bound
	// to the first parameter, in key order.
	primaryKeySQL string

	// tablesSQL lists the tables visible to the connection. columnsSQL
	// lists the columns of the table bound to the first parameter.
	tablesSQL, columnsSQL string
}

var dialects = map[string]*Dialect{
	DialectSQLite: {
		Name:        DialectSQLite,
		quoteOpen:   `"`,
		quoteClose:  `"`,
		placeholder: func(int) string { return "?" },
		// SQLite has no TRUNCATE; an unqualified DELETE takes the truncate
		// optimization.
		truncate:      func(table string) string { return "DELETE FROM " + table },
		primaryKeySQL: `SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk`,
		tablesSQL:     `SELECT name FROM sqlite_master WHERE type IN ('table', 'view')`,
		columnsSQL:    `SELECT name FROM pragma_table_info(?) ORDER BY cid`,
	},
	DialectPostgres: {
		Name:          DialectPostgres,
		quoteOpen:     `"`,
		quoteClose:    `"`,
		placeholder:   func(n int) string { return "$" + strconv.Itoa(n) },
		truncate:      func(table string) string { return "TRUNCATE TABLE " + table },
		primaryKeySQL: `SELECT kcu.column_name FROM information_schema.table_constraints tc JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema AND tc.table_name = kcu.table_name WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_name = $1 AND tc.table_schema = ANY(current_schemas(false)) ORDER BY kcu.ordinal_position`,
		tablesSQL:     `SELECT table_name FROM information_schema.tables WHERE table_schema = ANY(current_schemas(false))`,
		columnsSQL:    `SELECT column_name FROM information_schema.columns WHERE table_name = $1 AND table_schema = ANY(current_schemas(false)) ORDER BY ordinal_position`,
	},
	DialectMySQL: {
		Name:          DialectMySQL,
		quoteOpen:     "`",
		quoteClose:    "`",
		placeholder:   func(int) string { return "?" },
		truncate:      func(table string) string { return "TRUNCATE TABLE " + table },
		primaryKeySQL: `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND CONSTRAINT_NAME = 'PRIMARY' ORDER BY ORDINAL_POSITION`,
		tablesSQL:     `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = DATABASE()`,
		columnsSQL:    `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`,
	},
	DialectSQLServer: {
		Name:          DialectSQLServer,
		quoteOpen:     "[",
		quoteClose:    "]",
		placeholder:   func(n int) string { return "@p" + strconv.Itoa(n) },
		truncate:      func(table string) string { return "TRUNCATE TABLE " + table },
		primaryKeySQL: `SELECT kcu.COLUMN_NAME FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME AND tc.TABLE_NAME = kcu.TABLE_NAME WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_NAME = @p1 ORDER BY kcu.ORDINAL_POSITION`,
		tablesSQL:     `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES`,
		columnsSQL:    `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = @p1 ORDER BY ORDINAL_POSITION`,
	},
}

// driverDialects maps database/sql driver names, and the driver names
// reported by dburl, to dialects.
var driverDialects = map[string]string{
	"sqlite":        DialectSQLite,
	"sqlite3":       DialectSQLite,
	"moderncsqlite": DialectSQLite,
	"pgx":           DialectPostgres,
	"postgres":      DialectPostgres,
	"mysql":         DialectMySQL,
	"sqlserver":     DialectSQLServer,
	"mssql":         DialectSQLServer,
}

// LookupDialect returns the dialect by dialect name.
func LookupDialect(name string) (*Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownDialect, name)
	}
	return d, nil
}

// DialectForDriver returns the dialect spoken through the named driver.
func DialectForDriver(driver string) (*Dialect, error) {
	name, ok := driverDialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownDialect, driver)
	}
	return dialects[name], nil
}

// Quote quotes an identifier. Dotted names are quoted part by part so that
// schema-qualified tables keep their qualifier.
func (d *Dialect) Quote(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		escaped := strings.ReplaceAll(p, d.quoteClose, d.quoteClose+d.quoteClose)
		parts[i] = d.quoteOpen + escaped + d.quoteClose
	}
	return strings.Join(parts, ".")
}

// Placeholder renders the n-th (1-based) bind parameter.
func (d *Dialect) Placeholder(n int) string {
	return d.placeholder(n)
}

// Truncate renders the statement that empties table.
func (d *Dialect) Truncate(table string) string {
	return d.truncate(d.Quote(table))
}

// InsertSQL renders an INSERT of columns into table.
func (d *Dialect) InsertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
		params[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), strings.Join(quoted, ", "), strings.Join(params, ", "))
}

// UpdateSQL renders an UPDATE of set columns matched on keys. Set columns
// bind first, then keys.
func (d *Dialect) UpdateSQL(table string, set, keys []string) string {
	assignments := make([]string, len(set))
	for i, c := range set {
		assignments[i] = d.Quote(c) + " = " + d.Placeholder(i+1)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		d.Quote(table), strings.Join(assignments, ", "), d.where(keys, len(set)))
}

// DeleteSQL renders a DELETE matched on keys, or of every row when keys is
// empty.
func (d *Dialect) DeleteSQL(table string, keys []string) string {
	if len(keys) == 0 {
		return "DELETE FROM " + d.Quote(table)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", d.Quote(table), d.where(keys, 0))
}

// ExistsSQL renders a query returning one row when a row matches keys.
func (d *Dialect) ExistsSQL(table string, keys []string) string {
	return fmt.Sprintf("SELECT 1 FROM %s WHERE %s", d.Quote(table), d.where(keys, 0))
}

// SelectSQL renders a query of every row of table, ordered by its first
// column.
func (d *Dialect) SelectSQL(table string) string {
	return "SELECT * FROM " + d.Quote(table) + " ORDER BY 1"
}

// CountSQL renders a row count of table.
func (d *Dialect) CountSQL(table string) string {
	return "SELECT COUNT(*) FROM " + d.Quote(table)
}

// where renders key equality predicates, numbering parameters after offset.
func (d *Dialect) where(keys []string, offset int) string {
	preds := make([]string, len(keys))
	for i, k := range keys {
		preds[i] = d.Quote(k) + " = " + d.Placeholder(offset+i+1)
	}
	return strings.Join(preds, " AND ")
}
