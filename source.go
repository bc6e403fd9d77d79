package csvpermute

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/salsa20"
)

// Source shuffles a sequence of indices in place, drawing every ordering
// with equal probability.
type Source interface {
	Shuffle(idx []int) error
}

// ReaderSource runs a Fisher-Yates shuffle on bytes drawn from an io.Reader.
type ReaderSource struct {
	r   io.Reader
	buf [4]byte
}

// NewReaderSource draws randomness from r. r must yield uniformly
// distributed bytes.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

// NewSeededSource returns a deterministic source: the same seed yields the
// same sequence of shuffles on every platform.
func NewSeededSource(seed uint64) *ReaderSource {
	var material [len("csvpermute/seed") + 8]byte
	n := copy(material[:], "csvpermute/seed")
	binary.BigEndian.PutUint64(material[n:], seed)
	return NewReaderSource(newKeyStream(sha256.Sum256(material[:])))
}

// NewEntropySource returns a source keyed from the operating system's
// entropy pool.
func NewEntropySource() (*ReaderSource, error) {
	var key [32]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("seeding random source: %w", err)
	}
	return NewReaderSource(newKeyStream(key)), nil
}

func (s *ReaderSource) Shuffle(idx []int) error {
	for i := len(idx) - 1; i > 0; i-- {
		j, err := s.intn(i + 1)
		if err != nil {
			return err
		}
		idx[i], idx[j] = idx[j], idx[i]
	}
	return nil
}

// intn returns a uniform integer in [0, n), rejecting draws from the
// incomplete top bucket of the uint32 range.
func (s *ReaderSource) intn(n int) (int, error) {
	if n <= 0 || uint64(n) > 1<<32-1 {
		return 0, fmt.Errorf("csvpermute: intn bound %d out of range", n)
	}
	max := ^uint32(0)
	m := max % uint32(n)
	for {
		if _, err := io.ReadFull(s.r, s.buf[:]); err != nil {
			return 0, fmt.Errorf("reading random source: %w", err)
		}
		x := binary.BigEndian.Uint32(s.buf[:])
		if x < max-m {
			return int(x % uint32(n)), nil
		}
	}
}

// keyStream is an endless Salsa20 key stream; one nonce per 16KiB block.
type keyStream struct {
	zeroes []byte
	buffer []byte
	offset int

	key   [32]byte
	nonce uint64
}

func newKeyStream(key [32]byte) *keyStream {
	const n = 16 * 1024
	ks := &keyStream{
		zeroes: make([]byte, n),
		buffer: make([]byte, n),
		key:    key,
	}
	ks.fill()
	return ks
}

func (ks *keyStream) Read(d []byte) (int, error) {
	n := 0
	for len(d) > 0 {
		if ks.offset == len(ks.buffer) {
			ks.fill()
		}
		m := copy(d, ks.buffer[ks.offset:])
		d = d[m:]
		ks.offset += m
		n += m
	}
	return n, nil
}

func (ks *keyStream) fill() {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], ks.nonce)
	ks.nonce++

	salsa20.XORKeyStream(ks.buffer, ks.zeroes, nonce[:], &ks.key)
	ks.offset = 0
}
