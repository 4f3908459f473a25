package currency

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckedArithmetic(t *testing.T) {
	_, ok := Amount(math.MaxUint64).Add(1)
	assert.False(t, ok)
	_, ok = Balance(5).SubAmount(6)
	assert.False(t, ok)
	b, ok := Balance(5).SubAmount(5)
	assert.True(t, ok)
	assert.Equal(t, Balance(0), b)
	_, ok = Fee(math.MaxUint64 / 2).Scale(3)
	assert.False(t, ok)
	s, ok := Slot(math.MaxUint32 - 1).Add(5)
	assert.False(t, ok)
	assert.Equal(t, MaxSlot, s)
	_, ok = Slot(3).Diff(4)
	assert.False(t, ok)
}

func TestSignedAdd(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Signed[Amount]
		want     Signed[Amount]
		overflow bool
	}{
		{"pos+pos", OfUnsigned[Amount](3), OfUnsigned[Amount](4), OfUnsigned[Amount](7), false},
		{"pos+neg larger", OfUnsigned[Amount](3), NegOf[Amount](5), NegOf[Amount](2), false},
		{"neg+pos to zero", NegOf[Amount](5), OfUnsigned[Amount](5), Zero[Amount](), false},
		{"neg+neg", NegOf[Amount](5), NegOf[Amount](1), NegOf[Amount](6), false},
		{"overflow", OfUnsigned(MaxAmount), OfUnsigned[Amount](1), OfUnsigned[Amount](0), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, overflow := tc.a.AddFlagged(tc.b)
			assert.Equal(t, tc.overflow, overflow)
			if !overflow {
				assert.True(t, tc.want.Equal(got), "got %s want %s", got, tc.want)
			}
		})
	}
}

func TestSignedZeroIsPositive(t *testing.T) {
	z := NegOf[Fee](0)
	assert.False(t, z.IsNeg())
	assert.Equal(t, Pos, z.Sgn)
	assert.Equal(t, z, z.Negate())
	assert.Equal(t, "-4", NegOf[Fee](4).String())
}

func TestBalanceSignedDelta(t *testing.T) {
	b, failed := Balance(10).AddSignedAmountFlagged(NegOf[Amount](11))
	assert.True(t, failed)
	b, failed = Balance(10).AddSignedAmountFlagged(NegOf[Amount](4))
	assert.False(t, failed)
	assert.Equal(t, Balance(6), b)
}
