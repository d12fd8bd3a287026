// Package fixture accumulates the fixtures of one scenario and resolves them
// into the ordered dataset list applied at setup and teardown.
package fixture

import (
	"bytes"
	"strings"

	"github.com/mesh-intelligence/dbunit/pkg/types"
)

// Envelope prolog and root element wrapped around accumulated inline text.
// The prolog declares ISO-8859-1 while Envelope emits UTF-8 bytes; non-ASCII
// inline content is therefore decoded as Latin-1 by a conforming parser.
const (
	envelopeProlog = `<?xml version="1.0" encoding="ISO-8859-1"?>` + "\n"
	envelopeOpen   = "<dataset>\n"
	envelopeClose  = "</dataset>"
)

// Envelope wraps inline fixture text in a single dataset document.
func Envelope(text string) []byte {
	var buf bytes.Buffer
	buf.Grow(len(envelopeProlog) + len(envelopeOpen) + len(text) + len(envelopeClose))
	buf.WriteString(envelopeProlog)
	buf.WriteString(envelopeOpen)
	buf.WriteString(text)
	buf.WriteString(envelopeClose)
	return buf.Bytes()
}

// Source is a typed fixture descriptor.
type Source interface {
	// Name identifies the fixture in logs and errors.
	Name() string
}

// File is a fixture loaded from disk. The dataset is parsed when the file is
// added so that unreadable fixtures fail at the step that names them.
type File struct {
	Path    string
	Dataset *types.Dataset
}

// Name returns the file path.
func (f File) Name() string { return f.Path }

// Inline is the accumulated inline fixture text.
type Inline struct {
	Text string
}

// Name returns types.InlineSource.
func (Inline) Name() string { return types.InlineSource }

// Set accumulates file fixtures and inline fragments. File fixtures join
// the dataset list as soon as they are added; inline fragments wait in a
// buffer until Resolve. The zero value is an empty set ready to use.
type Set struct {
	entries []entry
	inline  strings.Builder
	hasText bool
}

// entry is one resolved dataset and the descriptor it came from.
type entry struct {
	source  Source
	dataset *types.Dataset
}

// AddFile appends a parsed file fixture to the dataset list.
func (s *Set) AddFile(path string, ds *types.Dataset) {
	s.entries = append(s.entries, entry{source: File{Path: path, Dataset: ds}, dataset: ds})
}

// AddInline appends text to the inline buffer with no delimiter.
func (s *Set) AddInline(text string) {
	s.inline.WriteString(text)
	s.hasText = true
}

// Inline returns the pending inline text, or false when none is pending.
func (s *Set) Inline() (Inline, bool) {
	if !s.hasText {
		return Inline{}, false
	}
	return Inline{Text: s.inline.String()}, true
}

// Sources returns the descriptors in application order: every resolved
// fixture, then the pending inline buffer if any.
func (s *Set) Sources() []Source {
	out := make([]Source, 0, len(s.entries)+1)
	for _, e := range s.entries {
		out = append(out, e.source)
	}
	if in, ok := s.Inline(); ok {
		out = append(out, in)
	}
	return out
}

// Resolve synthesizes the pending inline buffer into a dataset, appends it
// to the list, and returns the full list. The text is wrapped with Envelope
// and parsed with parse. The buffer is consumed whether or not parsing
// succeeds; a parse failure returns *types.FixtureLoadError together with
// the datasets resolved so far.
func (s *Set) Resolve(parse types.DatasetParser) ([]*types.Dataset, error) {
	in, ok := s.Inline()
	s.inline.Reset()
	s.hasText = false
	if ok {
		ds, err := parse.Parse(bytes.NewReader(Envelope(in.Text)))
		if err != nil {
			return s.Datasets(), &types.FixtureLoadError{Source: types.InlineSource, Err: err}
		}
		s.entries = append(s.entries, entry{source: in, dataset: ds})
	}
	return s.Datasets(), nil
}

// Datasets returns a copy of the dataset list, excluding pending inline text.
func (s *Set) Datasets() []*types.Dataset {
	out := make([]*types.Dataset, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.dataset
	}
	return out
}

// Len returns the number of datasets in the list.
func (s *Set) Len() int { return len(s.entries) }

// Empty reports whether the set holds no datasets and no pending text.
func (s *Set) Empty() bool {
	return len(s.entries) == 0 && !s.hasText
}

// Reset discards every dataset and the pending inline buffer.
func (s *Set) Reset() {
	s.entries = nil
	s.inline.Reset()
	s.hasText = false
}
