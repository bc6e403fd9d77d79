package csvpermute

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

const (
	// DefaultEncoding is used when no encoding is configured.
	DefaultEncoding = "utf-8"
	// AutoEncoding sniffs the input: a byte order mark, then UTF-8
	// validity, falling back to windows-1252.
	AutoEncoding = "auto"

	utf8SigEncoding = "utf-8-sig"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LookupEncoding resolves an encoding label to its codec and canonical name.
// WHATWG labels are tried first, then IANA names. "utf-8-sig" is UTF-8 that
// drops a leading byte order mark on read and writes one on output.
func LookupEncoding(name string) (encoding.Encoding, string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "", "utf-8", "utf8":
		return unicode.UTF8, DefaultEncoding, nil
	case utf8SigEncoding, "utf8-sig", "utf-8-bom":
		return unicode.UTF8BOM, utf8SigEncoding, nil
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1", "l1":
		// WHATWG folds these into windows-1252; keep true ISO-8859-1.
		return charmap.ISO8859_1, "iso-8859-1", nil
	}

	if enc, err := htmlindex.Get(key); err == nil {
		canonical, err := htmlindex.Name(enc)
		if err != nil {
			canonical = key
		}
		return enc, canonical, nil
	}
	if enc, err := ianaindex.IANA.Encoding(key); err == nil && enc != nil {
		canonical, err := ianaindex.IANA.Name(enc)
		if err != nil {
			canonical = key
		}
		return enc, strings.ToLower(canonical), nil
	}
	return nil, "", &EncodingError{Encoding: name, Offset: -1, Err: ErrUnknownEncoding}
}

// decodeText converts raw input to UTF-8 and returns the canonical name of
// the encoding that was applied.
func decodeText(data []byte, name string) ([]byte, string, error) {
	if strings.EqualFold(strings.TrimSpace(name), AutoEncoding) {
		name = sniffEncoding(data)
	}
	enc, canonical, err := LookupEncoding(name)
	if err != nil {
		return nil, "", err
	}

	switch canonical {
	case DefaultEncoding, utf8SigEncoding:
		if canonical == utf8SigEncoding {
			data = bytes.TrimPrefix(data, utf8BOM)
		}
		// The x/text UTF-8 decoder substitutes U+FFFD; reject instead.
		if off := invalidUTF8Offset(data); off >= 0 {
			return nil, "", &EncodingError{
				Encoding: canonical,
				Offset:   off,
				Line:     bytes.Count(data[:off], []byte{'\n'}) + 1,
			}
		}
		return data, canonical, nil
	}

	if order, ok := utf16Orders[canonical]; ok {
		return decodeUTF16(data, canonical, order)
	}

	text, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", &EncodingError{Encoding: canonical, Offset: -1, Err: err}
	}
	// Decoders map undecodable bytes to U+FFFD. That is only a failure when
	// the encoding has no way to spell U+FFFD itself.
	if i := bytes.IndexRune(text, utf8.RuneError); i >= 0 && !encodesReplacement(enc) {
		return nil, "", &EncodingError{
			Encoding: canonical,
			Offset:   -1,
			Line:     bytes.Count(text[:i], []byte{'\n'}) + 1,
		}
	}
	return text, canonical, nil
}

var utf16Orders = map[string]binary.ByteOrder{
	"utf-16le": binary.LittleEndian,
	"utf-16be": binary.BigEndian,
}

// decodeUTF16 validates surrogate pairing on the raw code units, then
// decodes. A leading byte order mark is dropped and overrides order.
func decodeUTF16(data []byte, canonical string, order binary.ByteOrder) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		order, canonical, data = binary.LittleEndian, "utf-16le", data[2:]
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		order, canonical, data = binary.BigEndian, "utf-16be", data[2:]
	}
	if off, line := invalidUTF16Offset(data, order); off >= 0 {
		return nil, "", &EncodingError{Encoding: canonical, Offset: off, Line: line}
	}

	endianness := unicode.LittleEndian
	if order == binary.BigEndian {
		endianness = unicode.BigEndian
	}
	text, err := unicode.UTF16(endianness, unicode.IgnoreBOM).NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", &EncodingError{Encoding: canonical, Offset: -1, Err: err}
	}
	return text, canonical, nil
}

// invalidUTF16Offset returns the byte offset and line of the first unpaired
// surrogate or trailing odd byte, or -1.
func invalidUTF16Offset(data []byte, order binary.ByteOrder) (int, int) {
	line := 1
	for off := 0; off < len(data); off += 2 {
		if off+1 >= len(data) {
			return off, line
		}
		u := order.Uint16(data[off:])
		switch {
		case u == '\n':
			line++
		case u >= 0xD800 && u < 0xDC00:
			if off+3 >= len(data) {
				return off, line
			}
			if next := order.Uint16(data[off+2:]); next < 0xDC00 || next >= 0xE000 {
				return off, line
			}
			off += 2
		case u >= 0xDC00 && u < 0xE000:
			return off, line
		}
	}
	return -1, 0
}

func encodesReplacement(enc encoding.Encoding) bool {
	_, err := enc.NewEncoder().String(string(utf8.RuneError))
	return err == nil
}

// encodeText converts UTF-8 text to the named encoding.
func encodeText(text []byte, name string) ([]byte, error) {
	enc, canonical, err := LookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if canonical == DefaultEncoding {
		return text, nil
	}
	out, err := enc.NewEncoder().Bytes(text)
	if err != nil {
		return nil, &EncodingError{Encoding: canonical, Offset: -1, Err: err}
	}
	return out, nil
}

func sniffEncoding(data []byte) string {
	if bytes.HasPrefix(data, utf8BOM) {
		return utf8SigEncoding
	}
	_, name, _ := charset.DetermineEncoding(data, "text/plain")
	return name
}

func invalidUTF8Offset(data []byte) int {
	for off := 0; off < len(data); {
		r, size := utf8.DecodeRune(data[off:])
		if r == utf8.RuneError && size == 1 {
			return off
		}
		off += size
	}
	return -1
}
