// Package yamlset parses YAML fixture documents.
//
// The document is a mapping from table name to a sequence of rows, each row a
// mapping from column name to scalar value. Document order is kept:
//
//	roles:
//	  - id: 1
//	    name: admin
//	users:
//	  - id: 10
//	    role_id: 1
//	    email: ~
//	audit_log: []
//
// A null scalar is SQL NULL. A table with an empty or null sequence is
// declared without rows.
package yamlset

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/dbunit/pkg/types"
)

// Parse errors.
var (
	ErrNotMapping  = errors.New("document root must be a mapping of tables")
	ErrNotSequence = errors.New("table must be a sequence of rows")
	ErrNotRow      = errors.New("row must be a mapping of columns")
	ErrNotScalar   = errors.New("column value must be a scalar")
)

const nullTag = "!!null"

// Parser implements types.DatasetParser for YAML.
type Parser struct{}

// NewParser returns a YAML parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads a YAML fixture document into a Dataset. An empty document
// yields an empty Dataset.
func (p *Parser) Parse(r io.Reader) (*types.Dataset, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return types.NewDataset(), nil
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return types.NewDataset(), nil
		}
		root = root.Content[0]
	}
	if root.Kind == yaml.ScalarNode && root.Tag == nullTag {
		return types.NewDataset(), nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w (line %d)", ErrNotMapping, root.Line)
	}

	ds := types.NewDataset()
	for i := 0; i+1 < len(root.Content); i += 2 {
		name, rows := root.Content[i], root.Content[i+1]
		if err := parseTable(ds.Table(name.Value), rows); err != nil {
			return nil, fmt.Errorf("table %s: %w", name.Value, err)
		}
	}
	return ds, nil
}

func parseTable(table *types.Table, rows *yaml.Node) error {
	if rows.Kind == yaml.ScalarNode && rows.Tag == nullTag {
		return nil
	}
	if rows.Kind != yaml.SequenceNode {
		return fmt.Errorf("%w (line %d)", ErrNotSequence, rows.Line)
	}

	for _, node := range rows.Content {
		if node.Kind != yaml.MappingNode {
			return fmt.Errorf("%w (line %d)", ErrNotRow, node.Line)
		}
		columns := make([]string, 0, len(node.Content)/2)
		row := make(types.Row, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			col, val := node.Content[i], node.Content[i+1]
			if val.Kind == yaml.AliasNode && val.Alias != nil {
				val = val.Alias
			}
			if val.Kind != yaml.ScalarNode {
				return fmt.Errorf("column %s: %w (line %d)", col.Value, ErrNotScalar, val.Line)
			}
			columns = append(columns, col.Value)
			if val.Tag == nullTag {
				row[col.Value] = types.NullValue
			} else {
				row[col.Value] = types.StringValue(val.Value)
			}
		}
		table.AddRow(columns, row)
	}
	return nil
}
