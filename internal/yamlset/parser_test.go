package yamlset

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/dbunit/pkg/types"
)

func TestParse(t *testing.T) {
	doc := `
roles:
  - id: 1
    name: admin
users:
  - id: 10
    role_id: 1
    email: ~
  - id: 11
    name: "bob"
    active: true
audit_log: []
sessions:
`
	ds, err := NewParser().Parse(strings.NewReader(doc))
	require.NoError(t, err)

	want := &types.Dataset{Tables: []*types.Table{
		{
			Name:    "roles",
			Columns: []string{"id", "name"},
			Rows:    []types.Row{{"id": types.StringValue("1"), "name": types.StringValue("admin")}},
		},
		{
			Name:    "users",
			Columns: []string{"id", "role_id", "email", "name", "active"},
			Rows: []types.Row{
				{"id": types.StringValue("10"), "role_id": types.StringValue("1"), "email": types.NullValue},
				{"id": types.StringValue("11"), "name": types.StringValue("bob"), "active": types.StringValue("true")},
			},
		},
		{Name: "audit_log"},
		{Name: "sessions"},
	}}
	if diff := cmp.Diff(want, ds); diff != "" {
		t.Errorf("dataset mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	for _, doc := range []string{"", "~\n", "# nothing here\n"} {
		ds, err := NewParser().Parse(strings.NewReader(doc))
		require.NoError(t, err, "%q", doc)
		assert.Empty(t, ds.Tables)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{name: "sequence root", doc: "- users\n", wantErr: ErrNotMapping},
		{name: "table is mapping", doc: "users:\n  id: 1\n", wantErr: ErrNotSequence},
		{name: "row is scalar", doc: "users:\n  - 1\n", wantErr: ErrNotRow},
		{name: "nested value", doc: "users:\n  - id: [1, 2]\n", wantErr: ErrNotScalar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().Parse(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := NewParser().Parse(strings.NewReader("users: [\n"))
	assert.Error(t, err, "syntax errors surface")
}
