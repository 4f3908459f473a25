package common

import (
	"testing"

	"github.com/coinbase/kryptology/pkg/core/curves/native/pasta/fp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The signature sponges of the Mina networks start from these salted
// states, so they pin the permutation and the prefix packing.
func TestLegacySaltMatchesSignatureSponge(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   [legacyWidth]fp.Fp
	}{
		{"testnet", "CodaSignature", [legacyWidth]fp.Fp{
			{0x67097c15f1a46d64, 0xc76fd61db3c20173, 0xbdf9f393b220a17, 0x10c0e352378ab1fd},
			{0x57dbbe3a20c2a32, 0x486f1b93a41e04c7, 0xa21341e97da1bdc1, 0x24a095608e4bf2e9},
			{0xd4559679d839ff92, 0x577371d495f4d71b, 0x3227c7db607b3ded, 0x2ca212648a12291e},
		}},
		{"mainnet", "MinaSignatureMainnet", [legacyWidth]fp.Fp{
			{0xc21e7c13c81e894, 0x710189d783717f27, 0x7825ac132f04e050, 0x6fd140c96a52f28},
			{0x25611817aeec99d8, 0x24e1697f7e63d4b4, 0x13dabc79c3b8bba9, 0x232c7b1c778fbd08},
			{0x70bff575f3c9723c, 0x96818a1c2ae2e7ef, 0x2eec149ee0aacb0c, 0xecf6e7248a576ad},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := legacySalt(tc.prefix)
			assert.Equal(t, tc.want, s.state)
			assert.Zero(t, s.absorbed)
		})
	}
}

func TestLegacyHashWithPrefix(t *testing.T) {
	one, two := new(fp.Fp).SetUint64(1), new(fp.Fp).SetUint64(2)

	t.Run("no inputs is the salted state", func(t *testing.T) {
		s := legacySalt("TestPrefix")
		assert.Equal(t, &s.state[0], LegacyHashWithPrefix("TestPrefix"))
	})
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, LegacyHashWithPrefix("TestPrefix", one, two), LegacyHashWithPrefix("TestPrefix", one, two))
	})
	t.Run("order sensitive", func(t *testing.T) {
		assert.NotEqual(t, LegacyHashWithPrefix("TestPrefix", one, two), LegacyHashWithPrefix("TestPrefix", two, one))
	})
	t.Run("domain separated", func(t *testing.T) {
		assert.NotEqual(t, LegacyHashWithPrefix("TestPrefixA", one), LegacyHashWithPrefix("TestPrefixB", one))
	})
	t.Run("cached salt is not mutated", func(t *testing.T) {
		before := LegacyHashWithPrefix("TestPrefix")
		LegacyHashWithPrefix("TestPrefix", one, two, one)
		assert.Equal(t, before, LegacyHashWithPrefix("TestPrefix"))
	})
	t.Run("prefix too long", func(t *testing.T) {
		assert.Panics(t, func() { LegacyPrefixField("ThisPrefixIsTooLongToPad") })
	})
}

func TestLegacyInputPack(t *testing.T) {
	t.Run("fields come first", func(t *testing.T) {
		var in LegacyInput
		in.AddUint32(5)
		in.AddField(new(fp.Fp).SetUint64(9))
		packed := in.Pack()
		require.Len(t, packed, 2)
		assert.Equal(t, new(fp.Fp).SetUint64(9), packed[0])
		assert.Equal(t, new(fp.Fp).SetUint64(5), packed[1])
	})
	t.Run("least significant bit first", func(t *testing.T) {
		var in LegacyInput
		in.AddBit(true)
		in.AddBytes([]byte{0x01})
		in.AddUint64(1)
		packed := in.Pack()
		require.Len(t, packed, 1)
		assert.Equal(t, new(fp.Fp).SetUint64(1|1<<1|1<<9), packed[0])
	})
	t.Run("254 bits per element", func(t *testing.T) {
		var in LegacyInput
		for i := 0; i < legacyChunkBits; i++ {
			in.AddBit(false)
		}
		in.AddBit(true)
		packed := in.Pack()
		require.Len(t, packed, 2)
		assert.True(t, packed[0].IsZero())
		assert.True(t, packed[1].IsOne())
	})
	t.Run("empty", func(t *testing.T) {
		var in LegacyInput
		assert.Empty(t, in.Pack())
	})
}
