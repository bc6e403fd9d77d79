package csvpermute

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"unicode/utf8"
)

// Table is an in-memory, immutable grid of string values. Row 0 is the
// header when the caller says so; structurally it is an ordinary row.
type Table struct {
	rows     [][]string
	encoding string
	skipped  []int
}

// NewTable copies rows into a Table. Rows are not required to share a width.
func NewTable(rows [][]string) Table {
	return Table{rows: cloneRows(rows), encoding: DefaultEncoding}
}

// Len returns the number of rows, header included.
func (t Table) Len() int { return len(t.rows) }

// Width returns the number of fields in row 0, or 0 for an empty table.
func (t Table) Width() int {
	if len(t.rows) == 0 {
		return 0
	}
	return len(t.rows[0])
}

// Row returns a copy of row i.
func (t Table) Row(i int) []string { return slices.Clone(t.rows[i]) }

// Records returns a deep copy of all rows.
func (t Table) Records() [][]string { return cloneRows(t.rows) }

// Encoding is the canonical name of the encoding the table was decoded from.
func (t Table) Encoding() string { return t.encoding }

// Skipped lists the 1-based record numbers dropped by LoadOptions.SkipRagged.
func (t Table) Skipped() []int { return slices.Clone(t.skipped) }

// LoadOptions configures Load. Zero values select ',' '"' and utf-8.
type LoadOptions struct {
	Comma    byte
	Quote    byte
	Encoding string
	// SkipRagged drops rows whose width differs from row 0 instead of failing.
	SkipRagged bool
}

// Load reads src to completion, decodes it and parses it into a Table.
//
// Rows must all have the width of row 0; a mismatch is a *MalformedRowError
// unless SkipRagged is set. Undecodable input is an *EncodingError.
func Load(src io.Reader, opts LoadOptions) (Table, error) {
	comma, quote := dialect(opts.Comma, opts.Quote)
	if err := CheckDialect(comma, quote); err != nil {
		return Table{}, err
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return Table{}, fmt.Errorf("reading input: %w", err)
	}
	text, name, err := decodeText(data, opts.Encoding)
	if err != nil {
		return Table{}, err
	}

	t := Table{encoding: name}
	r := newRecordReader(bytes.NewReader(text), comma, quote)
	for {
		record, err := r.read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			var mre *MalformedRowError
			if opts.SkipRagged && errors.As(err, &mre) && errors.Is(mre.Err, ErrFieldCount) {
				t.skipped = append(t.skipped, mre.Record)
				continue
			}
			return Table{}, err
		}
		t.rows = append(t.rows, record)
	}
}

// WriteOptions configures Table.Write. An empty Encoding reuses the
// encoding the table was loaded with.
type WriteOptions struct {
	Comma       byte
	Quote       byte
	Encoding    string
	UseCRLF     bool
	AlwaysQuote bool
}

// Write serializes the table to w. Nothing is written unless the whole table
// was serialized and encoded successfully.
func (t Table) Write(w io.Writer, opts WriteOptions) error {
	comma, quote := dialect(opts.Comma, opts.Quote)
	if err := CheckDialect(comma, quote); err != nil {
		return err
	}
	name := opts.Encoding
	if name == "" {
		name = t.encoding
	}

	var buf bytes.Buffer
	rw := newRecordWriter(&buf, comma, quote)
	rw.useCRLF = opts.UseCRLF
	rw.alwaysQuote = opts.AlwaysQuote
	if err := rw.writeAll(t.rows); err != nil {
		return err
	}
	if err := rw.flush(); err != nil {
		return err
	}

	out, err := encodeText(buf.Bytes(), name)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// CheckDialect rejects delimiter/quote pairs the reader cannot parse
// unambiguously: equal bytes, CR or LF, and non-ASCII bytes.
func CheckDialect(comma, quote byte) error {
	switch {
	case comma == quote:
		return fmt.Errorf("%w: delimiter and quote are both %q", ErrInvalidDialect, comma)
	case comma == '\r' || comma == '\n' || quote == '\r' || quote == '\n':
		return fmt.Errorf("%w: line terminators cannot be used", ErrInvalidDialect)
	case comma >= utf8.RuneSelf || quote >= utf8.RuneSelf:
		return fmt.Errorf("%w: only ASCII characters are supported", ErrInvalidDialect)
	}
	return nil
}

func dialect(comma, quote byte) (byte, byte) {
	if comma == 0 {
		comma = ','
	}
	if quote == 0 {
		quote = '"'
	}
	return comma, quote
}

func cloneRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = slices.Clone(row)
	}
	return out
}
