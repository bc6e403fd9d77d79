// # csvpermute: positional shuffling for delimited text
//
// csvpermute reads CSV/TSV data into memory and writes it back with either its
// columns or its rows randomly reordered. Selected columns can be pinned so
// they keep their position while every other column moves. Values are never
// altered; only their position changes, which breaks correlations between
// fields when data has to be shared or used for testing.
//
// # Features
//
// - RFC 4180 reader and writer with configurable delimiter and quote bytes.
// - Strict decoding under any encoding known to golang.org/x/text, plus "auto" sniffing.
// - Column exclusions given as zero-based indices or header names (see Resolve).
// - One permutation per run, applied to every row, drawn from an injected Source.
// - Structured errors: EncodingError, MalformedRowError, UnknownColumnError,
//   IndexOutOfRangeError, ModeConflictError and EmptyTableError.
//
// # Getting Started
//
//	table, err := csvpermute.Load(f, csvpermute.LoadOptions{})
//	excluded, err := csvpermute.ResolveStrings(table, true, []string{"id"})
//	out, err := csvpermute.Permute(table, csvpermute.Columns, excluded, true, csvpermute.NewSeededSource(7))
//	err = out.Write(os.Stdout, csvpermute.WriteOptions{})
//
// The command line front end lives in cmd/csvpermute.
package csvpermute
