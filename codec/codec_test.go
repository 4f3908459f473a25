package codec

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNonce uint32

type testRecord struct {
	Nonce    testNonce
	Amount   uint64
	Delegate *[4]byte
	Tags     []string
	Flag     bool
	Kind     testKind
	hidden   int
}

// testKind is a two-variant type: 0 carries nothing, 1 carries a uint16.
type testKind struct {
	Index uint
	Value uint16
}

func (k testKind) IndexValue() (int, interface{}, error) {
	switch k.Index {
	case 0:
		return 0, nil, nil
	case 1:
		return 1, k.Value, nil
	}
	return 0, nil, fmt.Errorf("bad index %d", k.Index)
}

func (k *testKind) ValueAt(index uint) (interface{}, error) {
	switch index {
	case 0:
		k.Index = 0
		return nil, nil
	case 1:
		k.Index = 1
		return uint16(0), nil
	}
	return nil, fmt.Errorf("bad index %d", index)
}

func (k *testKind) SetValue(v interface{}) error {
	if v != nil {
		k.Value = v.(uint16)
	}
	return nil
}

func TestEncodeLayout(t *testing.T) {
	rec := testRecord{
		Nonce:  7,
		Amount: 0x0102,
		Tags:   []string{"a"},
		Flag:   true,
		Kind:   testKind{Index: 1, Value: 0x0304},
		hidden: 99,
	}
	b, err := Encode(rec)
	require.NoError(t, err)
	want := []byte{
		7, 0, 0, 0, // nonce
		2, 1, 0, 0, 0, 0, 0, 0, // amount
		0,        // no delegate
		1 << 2,   // one tag
		1 << 2, 'a',
		1,        // flag
		1, 4, 3,  // variant 1
	}
	assert.Equal(t, want, b)

	var back testRecord
	require.NoError(t, Decode(b, &back))
	rec.hidden = 0
	assert.Equal(t, rec, back)
}

func TestOptionAndTrailingBytes(t *testing.T) {
	d := [4]byte{1, 2, 3, 4}
	rec := testRecord{Delegate: &d, Tags: []string{}}
	b, err := Encode(rec)
	require.NoError(t, err)

	var back testRecord
	require.NoError(t, Decode(b, &back))
	require.NotNil(t, back.Delegate)
	assert.Equal(t, d, *back.Delegate)

	err = Decode(append(b, 0), &back)
	assert.ErrorIs(t, err, ErrTrailingBytes)
}

func TestCompactLength(t *testing.T) {
	for _, n := range []uint{0, 63, 64, 16383, 16384, 1<<30 - 1, 1 << 30, 1 << 40} {
		es := encodeState{}
		buf := &bytesWriter{}
		es.Writer = buf
		require.NoError(t, es.encodeUint(n))
		ds := NewDecoder(bytesReader(buf.b))
		got, err := ds.decodeUint()
		require.NoError(t, err, "n=%d", n)
		assert.Equal(t, uint64(n), got)
	}
}

func TestVersioned(t *testing.T) {
	b, err := EncodeVersioned(2, uint32(5))
	require.NoError(t, err)
	var v uint32
	require.NoError(t, DecodeVersioned(2, b, &v))
	assert.Equal(t, uint32(5), v)
	assert.ErrorIs(t, DecodeVersioned(3, b, &v), ErrVersionMismatch)
}
