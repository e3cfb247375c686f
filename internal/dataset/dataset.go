// Package dataset reads and writes the delimited question files that the
// augmentation and probe commands operate on.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedRecord is returned when a row has fewer fields than the
// configured id and text positions require.
var ErrMalformedRecord = errors.New("malformed record")

// Layout describes where the identifier and the question text live in a row.
type Layout struct {
	IDIndex   int
	TextIndex int
	Delimiter rune
}

// DefaultLayout matches the original training files: id, question, decomposition.
func DefaultLayout() Layout {
	return Layout{IDIndex: 0, TextIndex: 1, Delimiter: ','}
}

// MinFields is the smallest field count a row needs for this layout.
func (l Layout) MinFields() int {
	if l.IDIndex > l.TextIndex {
		return l.IDIndex + 1
	}
	return l.TextIndex + 1
}

// Record is one row of the input file. Field order is never changed; fields
// other than the id and the text are copied through untouched.
type Record []string

// Check returns ErrMalformedRecord when r cannot be addressed with l.
func (r Record) Check(l Layout) error {
	if len(r) < l.MinFields() {
		return fmt.Errorf("%w: got %d fields, need at least %d", ErrMalformedRecord, len(r), l.MinFields())
	}
	return nil
}

func (r Record) ID(l Layout) string   { return r[l.IDIndex] }
func (r Record) Text(l Layout) string { return r[l.TextIndex] }

// Clone returns a copy that shares no storage with r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	copy(out, r)
	return out
}

// Normalized returns a copy of r with the text lower-cased and trimmed.
func (r Record) Normalized(l Layout) Record {
	out := r.Clone()
	out[l.TextIndex] = Normalize(out[l.TextIndex])
	return out
}

// Derive returns a copy of r with the id and the text replaced.
func (r Record) Derive(l Layout, id, text string) Record {
	out := r.Clone()
	out[l.IDIndex] = id
	out[l.TextIndex] = text
	return out
}

// Normalize lower-cases text and strips surrounding whitespace.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// DerivedID names an augmented record after the language that produced it.
func DerivedID(id, lang string) string {
	return fmt.Sprintf("%s_%s", id, lang)
}

// Reader yields records from a delimited stream in file order.
type Reader struct {
	r      *csv.Reader
	layout Layout
}

func NewReader(r io.Reader, layout Layout) *Reader {
	cr := csv.NewReader(r)
	cr.Comma = layout.Delimiter
	cr.LazyQuotes = true
	// Row widths are checked against the layout, not against the first row.
	cr.FieldsPerRecord = -1
	return &Reader{r: cr, layout: layout}
}

// Read returns the next record, or io.EOF when the stream is exhausted.
func (r *Reader) Read() (Record, error) {
	fields, err := r.r.Read()
	if err != nil {
		return nil, err
	}
	rec := Record(fields)
	if err := rec.Check(r.layout); err != nil {
		line, _ := r.r.FieldPos(0)
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	return rec, nil
}

// Writer appends records to a delimited stream.
type Writer struct {
	w *csv.Writer
}

func NewWriter(w io.Writer, delimiter rune) *Writer {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	return &Writer{w: cw}
}

func (w *Writer) Write(rec Record) error {
	return w.w.Write(rec)
}

// WriteRow writes an arbitrary row, used for stats and probe output.
func (w *Writer) WriteRow(fields ...string) error {
	return w.w.Write(fields)
}

// Flush pushes buffered rows to the underlying writer and reports any
// error seen by earlier writes.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// ParseLine splits one raw line using the layout's delimiter. Stray quotes
// are tolerated since lines come from arbitrary byte offsets.
func ParseLine(line string, l Layout) (Record, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = l.Delimiter
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	fields, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedRecord)
	}
	if err != nil {
		return nil, err
	}
	rec := Record(fields)
	if err := rec.Check(l); err != nil {
		return nil, err
	}
	return rec, nil
}
