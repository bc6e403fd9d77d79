package csvpermute

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriterWrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records [][]string
		config  func(*recordWriter)
		want    string
	}{
		{
			name:    "basic",
			records: [][]string{{"a", "b", "c"}},
			want:    "a,b,c\n",
		},
		{
			name: "multipleRecords",
			records: [][]string{
				{"alpha", "beta"},
				{"gamma", "delta"},
			},
			want: "alpha,beta\ngamma,delta\n",
		},
		{
			name:    "emptyField",
			records: [][]string{{"", "b"}},
			want:    ",b\n",
		},
		{
			name:    "loneEmptyFieldIsQuoted",
			records: [][]string{{"x"}, {""}, {"y"}},
			want:    "x\n\"\"\ny\n",
		},
		{
			name:    "commaForcesQuote",
			records: [][]string{{"alpha,beta"}},
			want:    "\"alpha,beta\"\n",
		},
		{
			name: "quoteEscaping",
			records: [][]string{
				{"he said \"hello\"", "plain"},
			},
			want: "\"he said \"\"hello\"\"\",plain\n",
		},
		{
			name:    "onlyQuote",
			records: [][]string{{"\""}},
			want:    "\"\"\"\"\n",
		},
		{
			name: "newlineForcesQuote",
			records: [][]string{
				{"multi\nline", "z"},
			},
			want: "\"multi\nline\",z\n",
		},
		{
			name:    "carriageReturnForcesQuote",
			records: [][]string{{"a\rb"}},
			want:    "\"a\rb\"\n",
		},
		{
			name: "alwaysQuote",
			records: [][]string{
				{"alpha", "beta"},
			},
			config: func(w *recordWriter) {
				w.alwaysQuote = true
			},
			want: "\"alpha\",\"beta\"\n",
		},
		{
			name: "customComma",
			records: [][]string{
				{"a;b", "c"},
			},
			config: func(w *recordWriter) {
				w.comma = ';'
			},
			want: "\"a;b\";c\n",
		},
		{
			name: "customQuote",
			records: [][]string{
				{"alpha'beta", "plain"},
			},
			config: func(w *recordWriter) {
				w.quote = '\''
			},
			want: "'alpha''beta',plain\n",
		},
		{
			name: "useCRLF",
			records: [][]string{
				{"a"},
				{"b"},
			},
			config: func(w *recordWriter) {
				w.useCRLF = true
			},
			want: "a\r\nb\r\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			w := newRecordWriter(&buf, 0, 0)
			if tc.config != nil {
				tc.config(w)
			}
			if err := w.writeAll(tc.records); err != nil {
				t.Fatalf("writeAll() error = %v", err)
			}
			if err := w.flush(); err != nil {
				t.Fatalf("flush() error = %v", err)
			}
			if got := buf.String(); got != tc.want {
				t.Fatalf("unexpected output:\n got: %q\nwant: %q", got, tc.want)
			}
		})
	}
}

type flushFailWriter struct {
	fail error
}

func (f *flushFailWriter) Write([]byte) (int, error) {
	return 0, f.fail
}

func TestWriterFlushError(t *testing.T) {
	t.Parallel()

	exp := errors.New("flush failed")
	w := newRecordWriter(&flushFailWriter{fail: exp}, 0, 0)

	if err := w.write([]string{"a"}); err != nil {
		t.Fatalf("write() error = %v", err)
	}
	if err := w.flush(); !errors.Is(err, exp) {
		t.Fatalf("expected flush error %v, got %v", exp, err)
	}
	if err := w.write([]string{"b"}); !errors.Is(err, exp) {
		t.Fatalf("write() should return stored error %v, got %v", exp, err)
	}
}

func TestNewWriterNilPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("newRecordWriter should panic on nil writer")
		}
	}()
	newRecordWriter(nil, 0, 0)
}
