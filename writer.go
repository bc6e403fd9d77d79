package csvpermute

import (
	"bufio"
	"io"
)

// recordWriter emits records with minimal quoting: a field is quoted only
// when it contains the delimiter, the quote, CR or LF.
type recordWriter struct {
	dst *bufio.Writer

	comma byte
	quote byte
	// useCRLF terminates records with \r\n instead of \n.
	useCRLF bool
	// alwaysQuote quotes every field.
	alwaysQuote bool

	err error
}

func newRecordWriter(w io.Writer, comma, quote byte) *recordWriter {
	if w == nil {
		panic("csvpermute: writer destination cannot be nil")
	}
	if comma == 0 {
		comma = ','
	}
	if quote == 0 {
		quote = '"'
	}
	return &recordWriter{
		dst:   bufio.NewWriterSize(w, defaultBufferSize),
		comma: comma,
		quote: quote,
	}
}

// write emits a single record followed by the record terminator. The first
// error sticks; later calls return it without writing.
func (w *recordWriter) write(record []string) error {
	if w.err != nil {
		return w.err
	}

	// A lone empty field would otherwise print as a blank line, which the
	// reader skips.
	forceQuote := len(record) == 1 && record[0] == ""

	for i, field := range record {
		if i > 0 {
			if err := w.dst.WriteByte(w.comma); err != nil {
				w.err = err
				return err
			}
		}
		if err := w.writeField(field, forceQuote); err != nil {
			w.err = err
			return err
		}
	}

	var err error
	if w.useCRLF {
		_, err = w.dst.WriteString("\r\n")
	} else {
		err = w.dst.WriteByte('\n')
	}
	if err != nil {
		w.err = err
	}
	return err
}

func (w *recordWriter) writeAll(records [][]string) error {
	for _, record := range records {
		if err := w.write(record); err != nil {
			return err
		}
	}
	return nil
}

func (w *recordWriter) flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.dst.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}

func (w *recordWriter) writeField(field string, forceQuote bool) error {
	if !forceQuote && !w.alwaysQuote && !fieldNeedsQuote(field, w.comma, w.quote) {
		_, err := w.dst.WriteString(field)
		return err
	}
	if err := w.dst.WriteByte(w.quote); err != nil {
		return err
	}

	start := 0
	for i := 0; i < len(field); i++ {
		if field[i] != w.quote {
			continue
		}
		// Include the quote in this chunk and start the next one on it, so
		// the quote is emitted twice.
		if _, err := w.dst.WriteString(field[start : i+1]); err != nil {
			return err
		}
		start = i
	}
	if _, err := w.dst.WriteString(field[start:]); err != nil {
		return err
	}
	return w.dst.WriteByte(w.quote)
}

func fieldNeedsQuote(field string, comma, quote byte) bool {
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case quote, comma, '\n', '\r':
			return true
		}
	}
	return false
}
