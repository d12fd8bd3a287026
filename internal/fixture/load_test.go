package fixture

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/dbunit/internal/flatxml"
	"github.com/mesh-intelligence/dbunit/pkg/types"
)

func testParsers() Parsers {
	return Parsers{".xml": flatxml.NewParser()}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "users.XML", `<dataset><users id="1"/></dataset>`)

	ds, err := Load(path, testParsers())
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, ds.TableNames())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{
			name:    "empty path",
			path:    func(t *testing.T) string { return "" },
			wantErr: types.ErrEmptyPath,
		},
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.xml") },
			wantErr: fs.ErrNotExist,
		},
		{
			name:    "unsupported extension",
			path:    func(t *testing.T) string { return writeFile(t, "users.csv", "id\n1\n") },
			wantErr: types.ErrUnsupportedFormat,
		},
		{
			name:    "malformed document",
			path:    func(t *testing.T) string { return writeFile(t, "bad.xml", "<dataset><users") },
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path(t)
			_, err := Load(path, testParsers())

			var loadErr *types.FixtureLoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, path, loadErr.Source)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
