package common

import (
	"fmt"
	"sync"

	"github.com/coinbase/kryptology/pkg/core/curves/native/pasta/fp"
)

// Legacy Poseidon over the Pallas base field: width 3, rate 2, x^5 s-box and
// 63 full rounds followed by one last round key.
const (
	legacyWidth      = 3
	legacyRate       = 2
	legacyFullRounds = 63

	// prefixes are padded to this many bytes with '*'
	legacyPrefixLength = 20
	// bits packed into one field element by LegacyInput
	legacyChunkBits = 254
)

type legacySponge struct {
	state    [legacyWidth]fp.Fp
	absorbed int
}

func (s *legacySponge) permute() {
	for r := 0; r < legacyFullRounds; r++ {
		s.ark(r)
		for i := range s.state {
			f := &s.state[i]
			t := new(fp.Fp).Square(f)
			t.Square(t)
			f.Mul(t, f)
		}
		s.mds()
	}
	s.ark(legacyFullRounds)
}

func (s *legacySponge) ark(round int) {
	for i := range s.state {
		s.state[i].Add(&s.state[i], &legacyRoundKeys[round][i])
	}
}

func (s *legacySponge) mds() {
	var next [legacyWidth]fp.Fp
	for row := range next {
		for col := range s.state {
			t := new(fp.Fp).Mul(&s.state[col], &legacyMds[row][col])
			next[row].Add(&next[row], t)
		}
	}
	s.state = next
}

func (s *legacySponge) absorb(fields ...*fp.Fp) {
	for _, f := range fields {
		if s.absorbed == legacyRate {
			s.permute()
			s.absorbed = 0
		}
		s.state[s.absorbed].Add(&s.state[s.absorbed], f)
		s.absorbed++
	}
}

func (s *legacySponge) squeeze() *fp.Fp {
	if s.absorbed > 0 {
		s.permute()
		s.absorbed = 0
	}
	return new(fp.Fp).Set(&s.state[0])
}

var legacySalts sync.Map

// legacySalt is the sponge after absorbing the prefix into a zero state.
func legacySalt(prefix string) legacySponge {
	if v, ok := legacySalts.Load(prefix); ok {
		return v.(legacySponge)
	}
	var s legacySponge
	s.absorb(LegacyPrefixField(prefix))
	s.permute()
	s.absorbed = 0
	legacySalts.Store(prefix, s)
	return s
}

// LegacyPrefixField packs a domain prefix into one element. The prefix is
// padded to 20 bytes with '*' and read little-endian.
func LegacyPrefixField(prefix string) *fp.Fp {
	if len(prefix) > legacyPrefixLength {
		panic(fmt.Sprintf("poseidon: prefix %q longer than %d bytes", prefix, legacyPrefixLength))
	}
	var buf [32]byte
	copy(buf[:], prefix)
	for i := len(prefix); i < legacyPrefixLength; i++ {
		buf[i] = '*'
	}
	f, err := new(fp.Fp).SetBytes(&buf)
	if err != nil {
		panic(fmt.Sprintf("poseidon: prefix %q: %v", prefix, err))
	}
	return f
}

// LegacyHashWithPrefix hashes inputs with the legacy sponge salted by prefix.
// With no inputs it returns the first element of the salted state.
func LegacyHashWithPrefix(prefix string, inputs ...*fp.Fp) *fp.Fp {
	s := legacySalt(prefix)
	s.absorb(inputs...)
	return s.squeeze()
}

// PastaFromField reads a bn254 element into the Pallas base field. The
// Pallas modulus is the larger one, so the value is kept as is.
func PastaFromField(f Field) *fp.Fp {
	return new(fp.Fp).SetBigInt(f.Big())
}

// LegacyInput collects field elements and a bit string for the legacy
// sponge. Pack places the fields first and then the bits, 254 to an element.
type LegacyInput struct {
	fields []*fp.Fp
	bits   []bool
}

func (in *LegacyInput) AddField(f *fp.Fp) {
	in.fields = append(in.fields, new(fp.Fp).Set(f))
}

func (in *LegacyInput) AddBit(b bool) {
	in.bits = append(in.bits, b)
}

// AddUint32 appends x least significant bit first.
func (in *LegacyInput) AddUint32(x uint32) {
	for i := 0; i < 32; i++ {
		in.bits = append(in.bits, (x>>i)&1 == 1)
	}
}

// AddUint64 appends x least significant bit first.
func (in *LegacyInput) AddUint64(x uint64) {
	for i := 0; i < 64; i++ {
		in.bits = append(in.bits, (x>>i)&1 == 1)
	}
}

// AddBytes appends each byte least significant bit first.
func (in *LegacyInput) AddBytes(b []byte) {
	for _, c := range b {
		for i := 0; i < 8; i++ {
			in.bits = append(in.bits, (c>>i)&1 == 1)
		}
	}
}

func (in *LegacyInput) Pack() []*fp.Fp {
	out := make([]*fp.Fp, 0, len(in.fields)+(len(in.bits)+legacyChunkBits-1)/legacyChunkBits)
	out = append(out, in.fields...)
	for start := 0; start < len(in.bits); start += legacyChunkBits {
		end := min(start+legacyChunkBits, len(in.bits))
		var raw [4]uint64
		for j, b := range in.bits[start:end] {
			if b {
				raw[j>>6] |= 1 << (j & 63)
			}
		}
		out = append(out, new(fp.Fp).SetRaw(&raw))
	}
	return out
}
