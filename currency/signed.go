package currency

import (
	"fmt"
	"strconv"
	"strings"

	ethmath "github.com/ethereum/go-ethereum/common/math"
)

type Sgn uint8

const (
	Pos Sgn = iota
	Neg
)

// Signed is a magnitude with a sign. Zero is always positive.
type Signed[T Unsigned] struct {
	Magnitude T
	Sgn       Sgn
}

func Zero[T Unsigned]() Signed[T] { return Signed[T]{} }

func OfUnsigned[T Unsigned](m T) Signed[T] { return Signed[T]{Magnitude: m, Sgn: Pos} }

func NegOf[T Unsigned](m T) Signed[T] { return Signed[T]{Magnitude: m, Sgn: Neg}.normalize() }

func (s Signed[T]) normalize() Signed[T] {
	if s.Magnitude == 0 {
		s.Sgn = Pos
	}
	return s
}

func (s Signed[T]) IsZero() bool { return s.Magnitude == 0 }

func (s Signed[T]) IsNeg() bool { return s.Sgn == Neg && s.Magnitude != 0 }

func (s Signed[T]) IsPos() bool { return s.Sgn == Pos && s.Magnitude != 0 }

func (s Signed[T]) IsNonNeg() bool { return !s.IsNeg() }

func (s Signed[T]) Negate() Signed[T] {
	if s.Magnitude == 0 {
		return s
	}
	if s.Sgn == Pos {
		s.Sgn = Neg
	} else {
		s.Sgn = Pos
	}
	return s
}

// AddFlagged returns the sum and whether it overflowed. Terms of opposite
// sign never overflow.
func (s Signed[T]) AddFlagged(o Signed[T]) (Signed[T], bool) {
	s, o = s.normalize(), o.normalize()
	if s.Sgn == o.Sgn {
		m, overflow := ethmath.SafeAdd(uint64(s.Magnitude), uint64(o.Magnitude))
		return Signed[T]{Magnitude: T(m), Sgn: s.Sgn}.normalize(), overflow
	}
	if s.Magnitude >= o.Magnitude {
		return Signed[T]{Magnitude: s.Magnitude - o.Magnitude, Sgn: s.Sgn}.normalize(), false
	}
	return Signed[T]{Magnitude: o.Magnitude - s.Magnitude, Sgn: o.Sgn}.normalize(), false
}

// Add is AddFlagged reporting success instead of overflow.
func (s Signed[T]) Add(o Signed[T]) (Signed[T], bool) {
	r, overflow := s.AddFlagged(o)
	return r, !overflow
}

func (s Signed[T]) Equal(o Signed[T]) bool {
	return s.normalize() == o.normalize()
}

func (s Signed[T]) String() string {
	if s.IsNeg() {
		return fmt.Sprintf("-%d", uint64(s.Magnitude))
	}
	return fmt.Sprintf("%d", uint64(s.Magnitude))
}

// SignedFeeToAmount widens a signed fee to a signed amount.
func SignedFeeToAmount(f Signed[Fee]) Signed[Amount] {
	return Signed[Amount]{Magnitude: Amount(f.Magnitude), Sgn: f.Sgn}
}

func (s Signed[T]) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signed[T]) UnmarshalText(text []byte) error {
	str := string(text)
	sgn := Pos
	if strings.HasPrefix(str, "-") {
		sgn, str = Neg, str[1:]
	}
	m, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return fmt.Errorf("signed quantity %q: %w", text, err)
	}
	*s = Signed[T]{Magnitude: T(m), Sgn: sgn}.normalize()
	return nil
}
