// Package jsonlset reads and writes JSON Lines fixture files. Each line holds
// one row of one table:
//
//	{"table":"roles","row":{"id":1,"name":"admin"}}
//	{"table":"users","row":{"id":10,"role_id":1,"email":null}}
//	{"table":"audit_log"}
//
// A line without a row declares the table. Blank lines are ignored; any
// other malformed line fails the whole file.
package jsonlset

import (
	"bufio"
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/mesh-intelligence/dbunit/pkg/types"
)

// Parse errors.
var (
	ErrNoTable   = errors.New("line has no table name")
	ErrNotObject = errors.New("row must be a JSON object")
	ErrNotScalar = errors.New("column value must be a string, number, boolean or null")
	ErrTrailing  = errors.New("unexpected content after the line object")
)

// maxLine bounds a single fixture line.
const maxLine = 4 << 20

type line struct {
	Table string          `json:"table"`
	Row   json.RawMessage `json:"row"`
}

// Parser implements types.DatasetParser for JSON Lines.
type Parser struct{}

// NewParser returns a JSON Lines parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads JSON Lines fixture content into a Dataset.
func (p *Parser) Parse(r io.Reader) (*types.Dataset, error) {
	ds := types.NewDataset()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	for n := 1; scanner.Scan(); n++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if err := parseLine(ds, raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning jsonl: %w", err)
	}
	return ds, nil
}

func parseLine(ds *types.Dataset, raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var l line
	if err := dec.Decode(&l); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrTrailing
	}
	if l.Table == "" {
		return ErrNoTable
	}

	t := ds.Table(l.Table)
	if len(l.Row) == 0 || bytes.Equal(l.Row, []byte("null")) {
		return nil
	}
	columns, row, err := parseRow(l.Row)
	if err != nil {
		return fmt.Errorf("table %s: %w", l.Table, err)
	}
	t.AddRow(columns, row)
	return nil
}

// parseRow walks the row object token by token so that column order follows
// the document.
func parseRow(raw json.RawMessage) ([]string, types.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, ErrNotObject
	}

	var columns []string
	row := types.Row{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		col := tok.(string)

		tok, err = dec.Token()
		if err != nil {
			return nil, nil, err
		}
		v, err := cell(tok)
		if err != nil {
			return nil, nil, fmt.Errorf("column %s: %w", col, err)
		}
		if _, seen := row[col]; !seen {
			columns = append(columns, col)
		}
		row[col] = v
	}
	return columns, row, nil
}

func cell(tok json.Token) (sql.NullString, error) {
	switch v := tok.(type) {
	case nil:
		return types.NullValue, nil
	case string:
		return types.StringValue(v), nil
	case json.Number:
		return types.StringValue(v.String()), nil
	case bool:
		return types.StringValue(strconv.FormatBool(v)), nil
	default:
		return types.NullValue, ErrNotScalar
	}
}
