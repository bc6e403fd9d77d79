package csvpermute

import (
	"bytes"
	"errors"
	"io"
)

const defaultBufferSize = 1 << 12 // 4096 bytes

var (
	// ErrBareQuote is returned when an unexpected quote is found in an unquoted field.
	ErrBareQuote = errors.New("csvpermute: bare quote in non-quoted field")
	// ErrUnterminatedQuote is returned when a quoted field is not closed before EOF.
	ErrUnterminatedQuote = errors.New("csvpermute: unterminated quoted field")
	// ErrFieldCount is returned when a record width differs from the first record.
	ErrFieldCount = errors.New("csvpermute: wrong number of fields")
)

// recordReader splits decoded text into records. Lines without any
// characters are skipped; every other line yields at least one field.
type recordReader struct {
	src io.Reader

	comma byte
	quote byte
	// width is the expected field count. Zero captures the width of the first record.
	width int

	buf    []byte
	bufPos int
	bufLen int
	bufErr error

	dataBuf     []byte
	fieldBounds []int
	finished    bool
	line        int
	startLine   int
	records     int
}

func newRecordReader(r io.Reader, comma, quote byte) *recordReader {
	if r == nil {
		panic("csvpermute: reader source cannot be nil")
	}
	if comma == 0 {
		comma = ','
	}
	if quote == 0 {
		quote = '"'
	}

	return &recordReader{
		src:         r,
		comma:       comma,
		quote:       quote,
		buf:         make([]byte, defaultBufferSize),
		dataBuf:     make([]byte, 0, 512),
		fieldBounds: make([]int, 0, 32),
		line:        1,
	}
}

// read returns the next record. io.EOF signals that no records remain. A
// width mismatch still returns the record alongside a *MalformedRowError so
// the caller may decide to drop it and keep reading.
func (r *recordReader) read() ([]string, error) {
	if r.finished {
		return nil, io.EOF
	}

	quote := r.quote

	r.dataBuf = r.dataBuf[:0]
	r.fieldBounds = r.fieldBounds[:0]
	r.startLine = r.line

	inQuotes := false
	sawQuotedField := false
	column := 1
	fieldStart := 0

	for {
		if r.bufPos >= r.bufLen {
			if r.bufErr != nil {
				err := r.bufErr
				r.bufErr = nil
				if err != io.EOF {
					return nil, err
				}
				r.finished = true
				if inQuotes {
					return nil, r.malformed(column, ErrUnterminatedQuote)
				}
				// Flush a trailing field if data ended without a newline.
				if len(r.fieldBounds) > 0 || len(r.dataBuf) > 0 || sawQuotedField {
					r.fieldBounds = append(r.fieldBounds, fieldStart, len(r.dataBuf))
					return r.buildRecord()
				}
				return nil, io.EOF
			}

			n, err := r.src.Read(r.buf)
			if n == 0 {
				if err != nil {
					r.bufErr = err
				}
				continue
			}
			r.bufPos = 0
			r.bufLen = n
			r.bufErr = err
		}

		if !inQuotes {
			data := r.buf[r.bufPos:r.bufLen]
			quoteIdx := bytes.IndexByte(data, quote)
			if quoteIdx != 0 {
				// Consume plain bytes up to the next quote (or the whole chunk).
				end := r.bufLen
				if quoteIdx > 0 {
					end = r.bufPos + quoteIdx
				}
				recordDone, err := r.consumePlain(end, &column, &fieldStart, &sawQuotedField)
				if err != nil {
					return nil, err
				}
				if recordDone {
					return r.buildRecord()
				}
				// Either the chunk is exhausted or the next byte is a quote.
				continue
			}
		}

		curColumn := column
		b := r.buf[r.bufPos]
		r.bufPos++

		if inQuotes {
			if b == quote {
				next, err := r.peekByte()
				if err == nil && next == quote {
					r.bufPos++
					r.dataBuf = append(r.dataBuf, quote)
					column = curColumn + 2
					continue
				}
				if err != nil && err != io.EOF {
					return nil, err
				}
				inQuotes = false
				column = curColumn + 1
				continue
			}
			if b == '\n' {
				r.dataBuf = append(r.dataBuf, b)
				r.line++
				column = 1
				continue
			}

			start := r.bufPos - 1
			run := 1
			for _, c := range r.buf[r.bufPos:r.bufLen] {
				if c == quote || c == '\n' {
					break
				}
				run++
			}
			r.bufPos += run - 1
			column = curColumn + run
			r.dataBuf = append(r.dataBuf, r.buf[start:start+run]...)
			continue
		}

		// Outside quotes the plain scan only stops in front of a quote. It
		// opens a quoted field only before any byte of the field.
		if len(r.dataBuf) == fieldStart && !sawQuotedField {
			inQuotes = true
			sawQuotedField = true
			column = curColumn + 1
			continue
		}
		return nil, r.malformed(curColumn, ErrBareQuote)
	}
}

func (r *recordReader) buildRecord() ([]string, error) {
	r.records++
	fieldCount := len(r.fieldBounds) / 2
	data := string(r.dataBuf)

	record := make([]string, fieldCount)
	for i := range fieldCount {
		record[i] = data[r.fieldBounds[2*i]:r.fieldBounds[2*i+1]]
	}

	if r.width <= 0 {
		r.width = fieldCount
		return record, nil
	}
	if fieldCount != r.width {
		return record, &MalformedRowError{
			Record:   r.records,
			Line:     r.startLine,
			Expected: r.width,
			Got:      fieldCount,
			Err:      ErrFieldCount,
		}
	}
	return record, nil
}

func (r *recordReader) malformed(column int, err error) error {
	return &MalformedRowError{Record: r.records + 1, Line: r.line, Column: column, Err: err}
}

// endOfLine handles a record terminator outside quotes. It reports false for
// a line that carried no characters, which is skipped rather than returned.
func (r *recordReader) endOfLine(fieldStart int, sawQuotedField bool) bool {
	r.line++
	if len(r.fieldBounds) == 0 && len(r.dataBuf) == 0 && !sawQuotedField {
		r.startLine = r.line
		return false
	}
	r.fieldBounds = append(r.fieldBounds, fieldStart, len(r.dataBuf))
	return true
}

// consumePlain consumes unquoted field data in r.buf[r.bufPos:end], updating
// *column, *fieldStart and *sawQuotedField. It reports whether a record
// terminator was seen.
func (r *recordReader) consumePlain(end int, column *int, fieldStart *int, sawQuotedField *bool) (bool, error) {
	comma := r.comma

	for r.bufPos < end {
		data := r.buf[r.bufPos:end]
		idxComma := bytes.IndexByte(data, comma)
		idxNewline := bytes.IndexByte(data, '\n')
		idxCR := bytes.IndexByte(data, '\r')

		next := len(data)
		delim := byte(0)
		if idxComma >= 0 && idxComma < next {
			next = idxComma
			delim = comma
		}
		if idxNewline >= 0 && idxNewline < next {
			next = idxNewline
			delim = '\n'
		}
		if idxCR >= 0 && idxCR < next {
			next = idxCR
			delim = '\r'
		}

		if next > 0 {
			r.dataBuf = append(r.dataBuf, data[:next]...)
			r.bufPos += next
			*column += next
		}
		if delim == 0 {
			return false, nil
		}

		r.bufPos++
		switch delim {
		case comma:
			r.fieldBounds = append(r.fieldBounds, *fieldStart, len(r.dataBuf))
			*fieldStart = len(r.dataBuf)
			*sawQuotedField = false
			*column++
		case '\n', '\r':
			if delim == '\r' {
				// CRLF counts as one terminator. Refilling is only safe once
				// the whole buffer has been consumed.
				switch {
				case r.bufPos < end:
					if r.buf[r.bufPos] == '\n' {
						r.bufPos++
					}
				case end == r.bufLen:
					nextByte, err := r.peekByte()
					if err == nil && nextByte == '\n' {
						r.bufPos++
					} else if err != nil && err != io.EOF {
						return false, err
					}
				}
			}
			*column = 1
			if !r.endOfLine(*fieldStart, *sawQuotedField) {
				// Blank line; the buffer may have been refilled by the peek.
				return false, nil
			}
			*sawQuotedField = false
			return true, nil
		}
	}
	return false, nil
}

// peekByte returns the next buffered byte, refilling from src as needed.
func (r *recordReader) peekByte() (byte, error) {
	for {
		if r.bufPos < r.bufLen {
			return r.buf[r.bufPos], nil
		}
		if r.bufErr != nil {
			return 0, r.bufErr
		}

		n, err := r.src.Read(r.buf)
		if n == 0 && err != nil {
			return 0, err
		}
		if n == 0 {
			continue
		}
		r.bufPos = 0
		r.bufLen = n
		r.bufErr = err
	}
}
