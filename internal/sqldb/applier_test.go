package sqldb

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/dbunit/internal/flatxml"
	"github.com/mesh-intelligence/dbunit/pkg/types"
)

const testSchema = `
CREATE TABLE roles (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL
);
CREATE TABLE users (
    id INTEGER PRIMARY KEY,
    name TEXT,
    role_id INTEGER REFERENCES roles(id)
);
CREATE TABLE grants (
    user_id INTEGER NOT NULL,
    role_id INTEGER NOT NULL,
    level TEXT,
    PRIMARY KEY (user_id, role_id)
);
CREATE TABLE audit_log (
    msg TEXT
);
`

// setupSchemaDB opens SQLite with foreign keys enforced and creates the
// test schema.
func setupSchemaDB(t *testing.T) *Conn {
	t.Helper()
	params := types.ConnectionParams{
		Driver: "sqlite",
		URL:    filepath.Join(t.TempDir(), "apply.db") + "?_pragma=foreign_keys(1)",
	}
	c, err := NewProvider().Open(context.Background(), params)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	conn := c.(*Conn)
	_, err = conn.DB().Exec(testSchema)
	require.NoError(t, err)
	return conn
}

func dataset(t *testing.T, rows string) *types.Dataset {
	t.Helper()
	ds, err := flatxml.NewParser().Parse(strings.NewReader("<dataset>" + rows + "</dataset>"))
	require.NoError(t, err)
	return ds
}

func apply(t *testing.T, conn *Conn, op types.Operation, rows string) error {
	t.Helper()
	return NewApplier().Apply(context.Background(), conn, dataset(t, rows), op)
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func userName(t *testing.T, db *sql.DB, id int) sql.NullString {
	t.Helper()
	var name sql.NullString
	require.NoError(t, db.QueryRow("SELECT name FROM users WHERE id = ?", id).Scan(&name))
	return name
}

const seed = `
<roles id="1" name="admin"/>
<roles id="2" name="viewer"/>
<users id="10" name="alice" role_id="1"/>
<users id="11" name="bob" role_id="2"/>
`

func TestApplyInsert(t *testing.T) {
	conn := setupSchemaDB(t)
	require.NoError(t, apply(t, conn, types.OperationInsert, seed+`<users id="12" role_id="1"/>`))

	db := conn.DB()
	assert.Equal(t, 2, count(t, db, "roles"))
	assert.Equal(t, 3, count(t, db, "users"))
	assert.False(t, userName(t, db, 12).Valid, "absent attribute inserts NULL")
}

func TestApplyInsertRollsBackDataset(t *testing.T) {
	conn := setupSchemaDB(t)
	err := apply(t, conn, types.OperationInsert, `<roles id="1" name="admin"/><roles id="1" name="dup"/>`)
	require.Error(t, err)
	assert.Equal(t, 0, count(t, conn.DB(), "roles"), "a failed dataset leaves no rows behind")
}

func TestApplyCleanInsert(t *testing.T) {
	conn := setupSchemaDB(t)
	require.NoError(t, apply(t, conn, types.OperationInsert, seed))

	require.NoError(t, apply(t, conn, types.OperationCleanInsert, `<roles id="3" name="owner"/><users id="20" name="carol" role_id="3"/>`))

	db := conn.DB()
	assert.Equal(t, 1, count(t, db, "roles"))
	assert.Equal(t, 1, count(t, db, "users"))
	assert.Equal(t, "carol", userName(t, db, 20).String)
}

func TestApplyDeleteAllRespectsForeignKeys(t *testing.T) {
	conn := setupSchemaDB(t)
	require.NoError(t, apply(t, conn, types.OperationInsert, seed+`<audit_log msg="x"/>`))

	// roles precede users, so deleting in reverse order keeps FKs satisfied.
	require.NoError(t, apply(t, conn, types.OperationDeleteAll, `<roles/><users/>`))

	db := conn.DB()
	assert.Equal(t, 0, count(t, db, "roles"))
	assert.Equal(t, 0, count(t, db, "users"))
	assert.Equal(t, 1, count(t, db, "audit_log"), "tables outside the dataset are untouched")
}

func TestApplyDeleteAllWrongOrderFails(t *testing.T) {
	conn := setupSchemaDB(t)
	require.NoError(t, apply(t, conn, types.OperationInsert, seed))

	err := apply(t, conn, types.OperationDeleteAll, `<users/><roles/>`)
	require.Error(t, err)
	assert.Equal(t, 2, count(t, conn.DB(), "users"))
}

func TestApplyTruncateTable(t *testing.T) {
	conn := setupSchemaDB(t)
	require.NoError(t, apply(t, conn, types.OperationInsert, seed+`<audit_log msg="x"/>`))
	require.NoError(t, apply(t, conn, types.OperationTruncateTable, `<audit_log/>`))
	assert.Equal(t, 0, count(t, conn.DB(), "audit_log"))
	assert.Equal(t, 2, count(t, conn.DB(), "users"))
}

func TestApplyDelete(t *testing.T) {
	conn := setupSchemaDB(t)
	require.NoError(t, apply(t, conn, types.OperationInsert, seed))

	require.NoError(t, apply(t, conn, types.OperationDelete, `<roles id="2"/><users id="11"/><users id="99"/>`))

	db := conn.DB()
	assert.Equal(t, 1, count(t, db, "roles"))
	assert.Equal(t, 1, count(t, db, "users"))
	assert.Equal(t, "alice", userName(t, db, 10).String)
}

func TestApplyUpdate(t *testing.T) {
	conn := setupSchemaDB(t)
	require.NoError(t, apply(t, conn, types.OperationInsert, seed))

	require.NoError(t, apply(t, conn, types.OperationUpdate, `<users ID="10" name="alicia"/>`))
	assert.Equal(t, "alicia", userName(t, conn.DB(), 10).String, "key columns match case-insensitively")

	// Same values again: the row still counts as found.
	require.NoError(t, apply(t, conn, types.OperationUpdate, `<users id="10" name="alicia"/>`))

	err := apply(t, conn, types.OperationUpdate, `<users id="99" name="ghost"/>`)
	assert.ErrorIs(t, err, types.ErrRowNotFound)
}

func TestApplyRefresh(t *testing.T) {
	conn := setupSchemaDB(t)
	require.NoError(t, apply(t, conn, types.OperationInsert, seed))

	require.NoError(t, apply(t, conn, types.OperationRefresh, `<users id="11" name="robert" role_id="2"/><users id="12" name="dave" role_id="1"/>`))

	db := conn.DB()
	assert.Equal(t, 3, count(t, db, "users"))
	assert.Equal(t, "robert", userName(t, db, 11).String)
	assert.Equal(t, "dave", userName(t, db, 12).String)
}

func TestApplyRefreshCompositeKeyOnly(t *testing.T) {
	conn := setupSchemaDB(t)
	require.NoError(t, apply(t, conn, types.OperationRefresh, `<grants user_id="1" role_id="1"/>`))
	require.NoError(t, apply(t, conn, types.OperationRefresh, `<grants user_id="1" role_id="1"/><grants user_id="1" role_id="2" level="rw"/>`))
	assert.Equal(t, 2, count(t, conn.DB(), "grants"))
}

func TestApplyKeyedOperationsNeedPrimaryKey(t *testing.T) {
	conn := setupSchemaDB(t)
	for _, op := range []types.Operation{types.OperationUpdate, types.OperationRefresh, types.OperationDelete} {
		t.Run(op.String(), func(t *testing.T) {
			err := apply(t, conn, op, `<audit_log msg="x"/>`)
			assert.ErrorIs(t, err, types.ErrNoPrimaryKey)
		})
	}
}

func TestApplyMissingKeyValue(t *testing.T) {
	conn := setupSchemaDB(t)
	err := apply(t, conn, types.OperationDelete, `<users name="nobody"/>`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary key column id")
}

func TestApplyNone(t *testing.T) {
	conn := setupSchemaDB(t)
	require.NoError(t, apply(t, conn, types.OperationNone, seed))
	assert.Equal(t, 0, count(t, conn.DB(), "users"))
}

func TestApplyUnknownOperation(t *testing.T) {
	conn := setupSchemaDB(t)
	err := apply(t, conn, types.Operation(99), seed)
	var unknown *types.UnknownOperationError
	assert.ErrorAs(t, err, &unknown)
}

func TestApplyUnknownTable(t *testing.T) {
	conn := setupSchemaDB(t)
	assert.Error(t, apply(t, conn, types.OperationInsert, `<nope id="1"/>`))
}
