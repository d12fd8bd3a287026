package types

import "database/sql"

// Row holds one record keyed by column name. A column missing from the map,
// or present with Valid false, is written as SQL NULL.
type Row map[string]sql.NullString

// Value returns the value stored for column, reporting NULL as Valid false.
func (r Row) Value(column string) sql.NullString {
	return r[column]
}

// Table is the fixture content for one database table. Columns keep the
// order in which they were first seen; Rows keep document order.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// AddColumn appends column unless the table already has it.
func (t *Table) AddColumn(column string) {
	for _, c := range t.Columns {
		if c == column {
			return
		}
	}
	t.Columns = append(t.Columns, column)
}

// AddRow appends row and registers any columns it introduces, in the
// iteration order supplied by columns.
func (t *Table) AddRow(columns []string, row Row) {
	for _, c := range columns {
		t.AddColumn(c)
	}
	t.Rows = append(t.Rows, row)
}

// Dataset is a resolved set of tables ready to be applied to a database.
// Tables are applied in slice order for inserts and in reverse order for
// deletes, so referenced tables should appear before the tables that
// reference them.
type Dataset struct {
	Tables []*Table
}

// NewDataset returns an empty Dataset.
func NewDataset() *Dataset {
	return &Dataset{}
}

// Table returns the table with the given name, creating and appending it when
// absent. Table names are case-sensitive.
func (d *Dataset) Table(name string) *Table {
	if t := d.Lookup(name); t != nil {
		return t
	}
	t := &Table{Name: name}
	d.Tables = append(d.Tables, t)
	return t
}

// Lookup returns the named table or nil.
func (d *Dataset) Lookup(name string) *Table {
	for _, t := range d.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// TableNames returns the table names in dataset order.
func (d *Dataset) TableNames() []string {
	names := make([]string, len(d.Tables))
	for i, t := range d.Tables {
		names[i] = t.Name
	}
	return names
}

// RowCount returns the number of rows across all tables.
func (d *Dataset) RowCount() int {
	n := 0
	for _, t := range d.Tables {
		n += len(t.Rows)
	}
	return n
}

// Reversed returns the tables in reverse dataset order.
func (d *Dataset) Reversed() []*Table {
	out := make([]*Table, len(d.Tables))
	for i, t := range d.Tables {
		out[len(d.Tables)-1-i] = t
	}
	return out
}

// NullValue is the SQL NULL cell value.
var NullValue = sql.NullString{}

// StringValue returns a non-NULL cell value.
func StringValue(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}
