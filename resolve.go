package csvpermute

import (
	"slices"
	"strconv"
	"strings"
)

// TokenKind tells a numeric column token from a named one.
type TokenKind int

const (
	Numeric TokenKind = iota
	Named
)

// Token is a user-supplied column reference: either a zero-based index or a
// header name.
type Token struct {
	Kind  TokenKind
	Index int
	Name  string
}

// NumericToken references a column by position.
func NumericToken(i int) Token { return Token{Kind: Numeric, Index: i} }

// NamedToken references a column by header name.
func NamedToken(name string) Token { return Token{Kind: Named, Name: name} }

// ParseToken classifies s. Anything strconv.Atoi accepts is Numeric, negative
// values included; those fail later as out of range.
func ParseToken(s string) Token {
	if i, err := strconv.Atoi(s); err == nil {
		return NumericToken(i)
	}
	return NamedToken(s)
}

// SplitTokens parses a comma-separated list, trimming spaces around items
// and dropping empty ones.
func SplitTokens(list string) []Token {
	var tokens []Token
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		tokens = append(tokens, ParseToken(item))
	}
	return tokens
}

func (t Token) String() string {
	if t.Kind == Numeric {
		return strconv.Itoa(t.Index)
	}
	return t.Name
}

// ColumnIndexSet is an immutable set of zero-based column positions.
type ColumnIndexSet struct {
	sorted []int
}

// NewColumnIndexSet builds a set from indices; duplicates collapse.
func NewColumnIndexSet(indices ...int) ColumnIndexSet {
	sorted := slices.Clone(indices)
	slices.Sort(sorted)
	return ColumnIndexSet{sorted: slices.Compact(sorted)}
}

func (s ColumnIndexSet) Len() int { return len(s.sorted) }

func (s ColumnIndexSet) Contains(i int) bool {
	_, found := slices.BinarySearch(s.sorted, i)
	return found
}

// Indices returns the members in ascending order.
func (s ColumnIndexSet) Indices() []int { return slices.Clone(s.sorted) }

// Resolve maps tokens onto column indices of t. Named tokens are matched
// case-sensitively against row 0 and need headerPresent; the first matching
// header cell wins. Resolution is all or nothing: the first unknown name
// (*UnknownColumnError) or out-of-range index (*IndexOutOfRangeError) fails
// the whole call.
func Resolve(t Table, headerPresent bool, tokens []Token) (ColumnIndexSet, error) {
	width := t.Width()
	var header []string
	if headerPresent && t.Len() > 0 {
		header = t.rows[0]
	}

	indices := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		idx := tok.Index
		if tok.Kind == Named {
			idx = slices.Index(header, tok.Name)
			if idx < 0 {
				return ColumnIndexSet{}, &UnknownColumnError{Token: tok.Name, HeaderPresent: headerPresent}
			}
		}
		if idx < 0 || idx >= width {
			return ColumnIndexSet{}, &IndexOutOfRangeError{Token: tok.String(), Index: idx, Width: width}
		}
		indices = append(indices, idx)
	}
	return NewColumnIndexSet(indices...), nil
}

// ResolveStrings parses raw with ParseToken and resolves the result.
func ResolveStrings(t Table, headerPresent bool, raw []string) (ColumnIndexSet, error) {
	tokens := make([]Token, len(raw))
	for i, s := range raw {
		tokens[i] = ParseToken(s)
	}
	return Resolve(t, headerPresent, tokens)
}
