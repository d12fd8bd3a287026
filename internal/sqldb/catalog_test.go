package sqldb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/dbunit/pkg/types"
)

func TestMatchName(t *testing.T) {
	stored := []string{"users", "Orders", "audit", "AUDIT"}
	tests := []struct {
		name, want string
	}{
		{"users", "users"},
		{"USERS", "users"},
		{"orders", "Orders"},
		{"AUDIT", "AUDIT"},
		{"Audit", "Audit"}, // ambiguous without an exact match
		{"missing", "missing"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchName(stored, tt.name), tt.name)
	}
}

func TestCatalogResolveUsesStoredSpelling(t *testing.T) {
	ctx := context.Background()
	conn := setupSchemaDB(t)
	_, err := conn.DB().Exec(`CREATE TABLE "Orders" ("OrderID" INTEGER PRIMARY KEY, note TEXT)`)
	require.NoError(t, err)

	d, err := LookupDialect(DialectSQLite)
	require.NoError(t, err)

	ds := dataset(t, `<USERS ID="1" NAME="ada"/><ORDERS orderid="7"/><AUDIT_LOG/>`)
	got, err := newCatalog(ctx, conn.DB(), d).resolve(ds)
	require.NoError(t, err)

	assert.Equal(t, []string{"users", "Orders", "audit_log"}, got.TableNames())

	users := got.Lookup("users")
	require.NotNil(t, users)
	assert.Equal(t, []string{"id", "name"}, users.Columns)
	require.Len(t, users.Rows, 1)
	assert.Equal(t, types.StringValue("ada"), users.Rows[0].Value("name"))

	orders := got.Lookup("Orders")
	require.NotNil(t, orders)
	assert.Equal(t, []string{"OrderID"}, orders.Columns)
	assert.Equal(t, types.StringValue("7"), orders.Rows[0].Value("OrderID"))

	assert.Equal(t, "USERS", ds.Tables[0].Name, "input dataset is untouched")
}

func TestCatalogLeavesUnknownAndQualifiedNames(t *testing.T) {
	conn := setupSchemaDB(t)
	d, err := LookupDialect(DialectSQLite)
	require.NoError(t, err)
	c := newCatalog(context.Background(), conn.DB(), d)

	name, err := c.table("nope")
	require.NoError(t, err)
	assert.Equal(t, "nope", name)

	name, err = c.table("main.USERS")
	require.NoError(t, err)
	assert.Equal(t, "main.USERS", name)
}

func TestApplyUpperCaseFixture(t *testing.T) {
	conn := setupSchemaDB(t)
	db := conn.DB()

	require.NoError(t, apply(t, conn, types.OperationCleanInsert,
		`<ROLES ID="1" NAME="admin"/><USERS ID="1" NAME="ada" ROLE_ID="1"/>`))
	assert.Equal(t, 1, count(t, db, "users"))

	require.NoError(t, apply(t, conn, types.OperationUpdate, `<USERS ID="1" NAME="grace"/>`))
	assert.Equal(t, types.StringValue("grace"), userName(t, db, 1))

	require.NoError(t, apply(t, conn, types.OperationDelete, `<USERS ID="1"/>`))
	assert.Equal(t, 0, count(t, db, "users"))

	n, err := CountRows(context.Background(), conn, "ROLES")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
