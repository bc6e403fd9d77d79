package csvpermute

import (
	"bytes"
	"io"
	"slices"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

type zeroReader struct{}

func (zeroReader) Read(d []byte) (int, error) {
	clear(d)
	return len(d), nil
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func TestReaderSourceZeroStream(t *testing.T) {
	t.Parallel()

	// An all-zero stream always draws j = 0.
	idx := identity(4)
	assert.NilError(t, NewReaderSource(zeroReader{}).Shuffle(idx))
	assert.DeepEqual(t, idx, []int{1, 2, 3, 0})
}

func TestReaderSourceExhausted(t *testing.T) {
	t.Parallel()

	err := NewReaderSource(strings.NewReader("ab")).Shuffle(identity(3))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestSeededSourceIsDeterministic(t *testing.T) {
	t.Parallel()

	a, b := identity(64), identity(64)
	assert.NilError(t, NewSeededSource(7).Shuffle(a))
	assert.NilError(t, NewSeededSource(7).Shuffle(b))
	assert.DeepEqual(t, a, b)

	c := identity(64)
	assert.NilError(t, NewSeededSource(8).Shuffle(c))
	assert.Assert(t, !slices.Equal(a, c), "different seeds produced the same order")

	sorted := slices.Clone(a)
	slices.Sort(sorted)
	assert.DeepEqual(t, sorted, identity(64))
	assert.Assert(t, !slices.Equal(a, identity(64)), "shuffler isn't shuffling")
}

func TestEntropySource(t *testing.T) {
	t.Parallel()

	src, err := NewEntropySource()
	assert.NilError(t, err)
	idx := identity(16)
	assert.NilError(t, src.Shuffle(idx))
	slices.Sort(idx)
	assert.DeepEqual(t, idx, identity(16))
}

func TestSeededSourceIsUniform(t *testing.T) {
	t.Parallel()

	const trials = 6000
	src := NewSeededSource(1)
	counts := map[[3]int]int{}
	for range trials {
		idx := identity(3)
		assert.NilError(t, src.Shuffle(idx))
		counts[[3]int(idx)]++
	}

	assert.Equal(t, len(counts), 6)
	for perm, n := range counts {
		assert.Assert(t, n > 850 && n < 1150, "permutation %v drawn %d times out of %d", perm, n, trials)
	}
}

func TestKeyStreamChunking(t *testing.T) {
	t.Parallel()

	var key [32]byte
	key[0] = 1

	whole := make([]byte, 40000)
	_, err := newKeyStream(key).Read(whole)
	assert.NilError(t, err)

	var pieces bytes.Buffer
	ks := newKeyStream(key)
	for size := 1; pieces.Len() < len(whole); size = size*7%1021 + 1 {
		chunk := make([]byte, min(size, len(whole)-pieces.Len()))
		_, err := ks.Read(chunk)
		assert.NilError(t, err)
		pieces.Write(chunk)
	}
	assert.Assert(t, bytes.Equal(whole, pieces.Bytes()))
	assert.Assert(t, !bytes.Equal(whole[:16*1024], whole[16*1024:32*1024]), "nonce not advanced")
}
