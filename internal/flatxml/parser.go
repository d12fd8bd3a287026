// Package flatxml parses flat XML fixture documents.
//
// A flat XML document has a single "dataset" root element. Every child
// element is one row of the table named by the element, and every attribute
// is one column value:
//
//	<dataset>
//	  <users id="1" name="alice"/>
//	  <users id="2"/>
//	  <audit_log/>
//	</dataset>
//
// An absent attribute is NULL. An element without attributes declares the
// table without adding a row, which is how empty tables are named for
// DELETE_ALL or TRUNCATE_TABLE. The declared XML encoding is honored.
package flatxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/mesh-intelligence/dbunit/pkg/types"
)

// RootElement is the required document element.
const RootElement = "dataset"

// Parse errors.
var (
	ErrNoRoot        = errors.New("document has no root element")
	ErrWrongRoot     = errors.New("root element must be <" + RootElement + ">")
	ErrNestedElement = errors.New("row elements must not contain elements")
	ErrText          = errors.New("text content is not allowed")
	ErrTrailing      = errors.New("content after root element")
)

// Parser implements types.DatasetParser for flat XML.
type Parser struct{}

// NewParser returns a flat XML parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads a flat XML document into a Dataset.
func (p *Parser) Parse(r io.Reader) (*types.Dataset, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	if err := readRoot(dec); err != nil {
		return nil, err
	}

	ds := types.NewDataset()
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("parse flat xml: unexpected end of document")
			}
			return nil, fmt.Errorf("parse flat xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := readRow(dec, ds, t); err != nil {
				return nil, err
			}
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return nil, fmt.Errorf("%w in <%s>", ErrText, RootElement)
			}
		case xml.EndElement:
			// End of <dataset>; the decoder guarantees it matches.
			if err := readTail(dec); err != nil {
				return nil, err
			}
			return ds, nil
		}
	}
}

// readRoot skips the prolog and consumes the <dataset> start element.
func readRoot(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrNoRoot
			}
			return fmt.Errorf("parse flat xml: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			if start.Name.Local != RootElement {
				return fmt.Errorf("%w, got <%s>", ErrWrongRoot, start.Name.Local)
			}
			return nil
		}
	}
}

// readRow records one row element and consumes through its end element.
// Only whitespace may appear inside it.
func readRow(dec *xml.Decoder, ds *types.Dataset, start xml.StartElement) error {
	table := ds.Table(start.Name.Local)
	if len(start.Attr) > 0 {
		columns := make([]string, 0, len(start.Attr))
		row := make(types.Row, len(start.Attr))
		for _, attr := range start.Attr {
			columns = append(columns, attr.Name.Local)
			row[attr.Name.Local] = types.StringValue(attr.Value)
		}
		table.AddRow(columns, row)
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("parse flat xml: row <%s>: %w", start.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("%w: <%s>", ErrNestedElement, start.Name.Local)
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return fmt.Errorf("%w in row <%s>", ErrText, start.Name.Local)
			}
		case xml.EndElement:
			return nil
		}
	}
}

// readTail accepts only whitespace, comments and processing instructions
// after the root element.
func readTail(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse flat xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("%w: <%s>", ErrTrailing, t.Name.Local)
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return ErrTrailing
			}
		}
	}
}
