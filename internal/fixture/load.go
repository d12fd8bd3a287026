package fixture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/dbunit/pkg/types"
)

// Parsers selects a dataset parser by lower-case file extension,
// including the leading dot.
type Parsers map[string]types.DatasetParser

// For returns the parser registered for path's extension.
func (p Parsers) For(path string) (types.DatasetParser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	parser, ok := p[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, ext)
	}
	return parser, nil
}

// Load reads and parses the fixture file at path. Every failure is returned
// as *types.FixtureLoadError.
func Load(path string, parsers Parsers) (*types.Dataset, error) {
	if path == "" {
		return nil, &types.FixtureLoadError{Source: path, Err: types.ErrEmptyPath}
	}

	parser, err := parsers.For(path)
	if err != nil {
		return nil, &types.FixtureLoadError{Source: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &types.FixtureLoadError{Source: path, Err: err}
	}
	defer f.Close()

	ds, err := parser.Parse(f)
	if err != nil {
		return nil, &types.FixtureLoadError{Source: path, Err: err}
	}
	return ds, nil
}
