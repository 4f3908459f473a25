// Package currency holds the fixed-width quantities used by transaction
// application. All arithmetic is checked: an operation that would overflow
// or underflow reports failure instead of wrapping.
package currency

import (
	"math"
	"strconv"

	ethmath "github.com/ethereum/go-ethereum/common/math"
)

type (
	Fee     uint64
	Amount  uint64
	Balance uint64
	Nonce   uint32
	// Slot is a global slot since genesis.
	Slot     uint32
	SlotSpan uint32
	Length   uint32
	Index    uint32
)

const (
	MaxAmount  = Amount(math.MaxUint64)
	MaxBalance = Balance(math.MaxUint64)
	MaxSlot    = Slot(math.MaxUint32)
	MaxLength  = Length(math.MaxUint32)
)

// Unsigned is the set of 64-bit quantities that can carry a sign.
type Unsigned interface {
	~uint64
}

func (f Fee) Add(g Fee) (Fee, bool) {
	r, overflow := ethmath.SafeAdd(uint64(f), uint64(g))
	return Fee(r), !overflow
}

func (f Fee) Sub(g Fee) (Fee, bool) {
	r, underflow := ethmath.SafeSub(uint64(f), uint64(g))
	return Fee(r), !underflow
}

func (f Fee) ToAmount() Amount { return Amount(f) }

// Scale multiplies, reporting false on overflow.
func (f Fee) Scale(n uint64) (Fee, bool) {
	r, overflow := ethmath.SafeMul(uint64(f), n)
	return Fee(r), !overflow
}

func (a Amount) Add(b Amount) (Amount, bool) {
	r, overflow := ethmath.SafeAdd(uint64(a), uint64(b))
	return Amount(r), !overflow
}

func (a Amount) Sub(b Amount) (Amount, bool) {
	r, underflow := ethmath.SafeSub(uint64(a), uint64(b))
	return Amount(r), !underflow
}

func (a Amount) AddFee(f Fee) (Amount, bool) { return a.Add(f.ToAmount()) }

func (a Amount) Scale(n uint64) (Amount, bool) {
	r, overflow := ethmath.SafeMul(uint64(a), n)
	return Amount(r), !overflow
}

func (a Amount) ToBalance() Balance { return Balance(a) }

func (b Balance) ToAmount() Amount { return Amount(b) }

func (b Balance) AddAmount(a Amount) (Balance, bool) {
	r, overflow := ethmath.SafeAdd(uint64(b), uint64(a))
	return Balance(r), !overflow
}

func (b Balance) SubAmount(a Amount) (Balance, bool) {
	r, underflow := ethmath.SafeSub(uint64(b), uint64(a))
	return Balance(r), !underflow
}

// AddSignedAmountFlagged applies a signed delta and reports whether the result left the range.
// On failure the returned balance is the wrapped value and must not be stored.
func (b Balance) AddSignedAmountFlagged(s Signed[Amount]) (Balance, bool) {
	if s.IsNeg() {
		r, underflow := ethmath.SafeSub(uint64(b), uint64(s.Magnitude))
		return Balance(r), underflow
	}
	r, overflow := ethmath.SafeAdd(uint64(b), uint64(s.Magnitude))
	return Balance(r), overflow
}

// Succ wraps around at the maximum nonce.
func (n Nonce) Succ() Nonce { return n + 1 }

func (s Slot) Add(span SlotSpan) (Slot, bool) {
	r := uint64(s) + uint64(span)
	if r > math.MaxUint32 {
		return MaxSlot, false
	}
	return Slot(r), true
}

// Diff returns s - t, reporting false when t is after s.
func (s Slot) Diff(t Slot) (SlotSpan, bool) {
	if t > s {
		return 0, false
	}
	return SlotSpan(s - t), true
}

func (i Index) Succ() Index { return i + 1 }

func (a Amount) String() string  { return strconv.FormatUint(uint64(a), 10) }
func (f Fee) String() string     { return strconv.FormatUint(uint64(f), 10) }
func (b Balance) String() string { return strconv.FormatUint(uint64(b), 10) }
