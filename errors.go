package csvpermute

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownEncoding is wrapped by EncodingError when an encoding name has no decoder.
	ErrUnknownEncoding = errors.New("csvpermute: unknown encoding")
	// ErrInvalidDialect is returned for unusable delimiter/quote combinations.
	ErrInvalidDialect = errors.New("csvpermute: invalid delimiter or quote character")
	// ErrBadPermutation is returned when a Source yields something other than a
	// reordering of the indices it was given.
	ErrBadPermutation = errors.New("csvpermute: source returned an invalid permutation")
)

// EncodingError reports input bytes that cannot be decoded, output text that
// cannot be encoded, or an encoding name that is not known at all.
type EncodingError struct {
	Encoding string
	// Offset is the byte offset of the first bad sequence, -1 when unknown.
	Offset int
	// Line is the 1-based line of the first bad sequence, 0 when unknown.
	Line int
	Err  error
}

func (e *EncodingError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "encoding error: %s", e.Encoding)
	if e.Offset >= 0 {
		fmt.Fprintf(&b, ": invalid byte sequence at offset %d", e.Offset)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *EncodingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MalformedRowError reports a record that could not be parsed into a row of
// the table's width. Err is one of ErrBareQuote, ErrUnterminatedQuote or
// ErrFieldCount.
type MalformedRowError struct {
	Record int // 1-based, blank lines not counted
	Line   int
	Column int // 0 when the record as a whole is at fault

	// Expected and Got are set for ErrFieldCount.
	Expected int
	Got      int

	Err error
}

func (e *MalformedRowError) Error() string {
	if e == nil {
		return ""
	}
	if errors.Is(e.Err, ErrFieldCount) {
		if e.Line == 0 {
			return fmt.Sprintf("malformed row %d: expected %d fields, got %d", e.Record, e.Expected, e.Got)
		}
		return fmt.Sprintf("malformed row %d (line %d): expected %d fields, got %d", e.Record, e.Line, e.Expected, e.Got)
	}
	return fmt.Sprintf("malformed row %d (line %d, column %d): %v", e.Record, e.Line, e.Column, e.Err)
}

func (e *MalformedRowError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UnknownColumnError reports an exclusion token naming no column.
type UnknownColumnError struct {
	Token         string
	HeaderPresent bool
}

func (e *UnknownColumnError) Error() string {
	if !e.HeaderPresent {
		return fmt.Sprintf("unknown column %q: names need a header row", e.Token)
	}
	return fmt.Sprintf("unknown column %q: not found in header", e.Token)
}

// IndexOutOfRangeError reports a column index outside [0, Width).
type IndexOutOfRangeError struct {
	Token string
	Index int
	Width int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index out of range: column %d (from %q) is not within a table of %d columns", e.Index, e.Token, e.Width)
}

// ModeConflictError reports column exclusions combined with row permutation.
type ModeConflictError struct {
	Mode    Mode
	Columns []string
}

func (e *ModeConflictError) Error() string {
	return fmt.Sprintf("mode conflict: excluded columns [%s] cannot be combined with %s permutation",
		strings.Join(e.Columns, ","), e.Mode)
}

// EmptyTableError reports a permutation over an empty domain.
type EmptyTableError struct {
	Mode Mode
}

func (e *EmptyTableError) Error() string {
	if e.Mode == Rows {
		return "empty table: no data rows to permute"
	}
	return "empty table: no columns to permute"
}
