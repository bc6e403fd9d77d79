package csvpermute

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
)

func TestParseToken(t *testing.T) {
	t.Parallel()

	assert.DeepEqual(t, ParseToken("3"), NumericToken(3))
	assert.DeepEqual(t, ParseToken("-1"), NumericToken(-1))
	assert.DeepEqual(t, ParseToken("Name"), NamedToken("Name"))
	assert.DeepEqual(t, ParseToken("3a"), NamedToken("3a"))
	assert.Equal(t, NumericToken(7).String(), "7")
	assert.Equal(t, NamedToken("id").String(), "id")
}

func TestSplitTokens(t *testing.T) {
	t.Parallel()

	assert.DeepEqual(t, SplitTokens(" id , 0,,name ,"), []Token{
		NamedToken("id"),
		NumericToken(0),
		NamedToken("name"),
	})
	assert.Assert(t, SplitTokens("") == nil)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	table := NewTable([][]string{
		{"Name", "age", "city", "age"},
		{"ann", "31", "oslo", "x"},
	})

	tests := []struct {
		name   string
		header bool
		tokens []string
		want   []int
	}{
		{"idempotent", true, []string{"0", "0", "Name"}, []int{0}},
		{"mixed", true, []string{"city", "1"}, []int{1, 2}},
		{"firstHeaderMatchWins", true, []string{"age"}, []int{1}},
		{"numericWithoutHeader", false, []string{"3", "0"}, []int{0, 3}},
		{"none", true, nil, []int{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			set, err := ResolveStrings(table, tc.header, tc.tokens)
			assert.NilError(t, err)
			assert.DeepEqual(t, set.Indices(), tc.want)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	headerless := NewTable([][]string{{"1", "2", "3"}, {"4", "5", "6"}})

	t.Run("unknownWithoutHeader", func(t *testing.T) {
		t.Parallel()
		_, err := ResolveStrings(headerless, false, []string{"z"})
		var uce *UnknownColumnError
		assert.Assert(t, errors.As(err, &uce), "got %v", err)
		assert.Equal(t, uce.Token, "z")
		assert.ErrorContains(t, err, `unknown column "z"`)
	})

	t.Run("unknownName", func(t *testing.T) {
		t.Parallel()
		withHeader := NewTable([][]string{{"a", "b"}})
		// Matching is case-sensitive.
		_, err := ResolveStrings(withHeader, true, []string{"a", "B"})
		var uce *UnknownColumnError
		assert.Assert(t, errors.As(err, &uce), "got %v", err)
		assert.Equal(t, uce.Token, "B")
	})

	t.Run("outOfRange", func(t *testing.T) {
		t.Parallel()
		_, err := ResolveStrings(headerless, false, []string{"0", "3"})
		var oor *IndexOutOfRangeError
		assert.Assert(t, errors.As(err, &oor), "got %v", err)
		assert.Equal(t, oor.Index, 3)
		assert.Equal(t, oor.Width, 3)
	})

	t.Run("negative", func(t *testing.T) {
		t.Parallel()
		_, err := ResolveStrings(headerless, false, []string{"-1"})
		var oor *IndexOutOfRangeError
		assert.Assert(t, errors.As(err, &oor), "got %v", err)
		assert.Equal(t, oor.Index, -1)
	})

	t.Run("emptyTable", func(t *testing.T) {
		t.Parallel()
		_, err := ResolveStrings(NewTable(nil), true, []string{"0"})
		var oor *IndexOutOfRangeError
		assert.Assert(t, errors.As(err, &oor), "got %v", err)
	})
}

func TestColumnIndexSet(t *testing.T) {
	t.Parallel()

	set := NewColumnIndexSet(4, 1, 4, 0)
	assert.Equal(t, set.Len(), 3)
	assert.DeepEqual(t, set.Indices(), []int{0, 1, 4})
	assert.Assert(t, set.Contains(4))
	assert.Assert(t, !set.Contains(2))

	indices := set.Indices()
	indices[0] = 99
	assert.Assert(t, set.Contains(0))

	var empty ColumnIndexSet
	assert.Equal(t, empty.Len(), 0)
	assert.Assert(t, !empty.Contains(0))
}
