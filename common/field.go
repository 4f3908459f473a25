package common

import (
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Field is an element of the bn254 scalar field. The zero value is 0.
type Field fr.Element

const FieldBytes = fr.Bytes

func FieldFromUint64(v uint64) Field {
	var e fr.Element
	e.SetUint64(v)
	return Field(e)
}

// FieldFromBig reduces b modulo the field order.
func FieldFromBig(b *big.Int) Field {
	var e fr.Element
	e.SetBigInt(b)
	return Field(e)
}

// FieldFromBytes interprets b as a big-endian integer reduced modulo the field order.
func FieldFromBytes(b []byte) Field {
	var e fr.Element
	e.SetBytes(b)
	return Field(e)
}

// ParseField parses a canonical decimal representation.
func ParseField(s string) (Field, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Field{}, fmt.Errorf("field: invalid decimal %q", s)
	}
	if b.Sign() < 0 || b.Cmp(fr.Modulus()) >= 0 {
		return Field{}, fmt.Errorf("field: %s out of range", s)
	}
	return FieldFromBig(b), nil
}

func MustParseField(s string) Field {
	f, err := ParseField(s)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Field) Big() *big.Int {
	e := fr.Element(f)
	return e.BigInt(new(big.Int))
}

func (f Field) String() string {
	e := fr.Element(f)
	return e.Text(10)
}

func (f Field) IsZero() bool {
	return f == Field{}
}

// Bytes returns the big-endian canonical encoding.
func (f Field) Bytes() [FieldBytes]byte {
	e := fr.Element(f)
	return e.Bytes()
}

func (f Field) Add(g Field) Field {
	a, b := fr.Element(f), fr.Element(g)
	var r fr.Element
	r.Add(&a, &b)
	return Field(r)
}

func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Field) UnmarshalText(text []byte) error {
	v, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// MarshalWire encodes the field as 32 little-endian bytes.
func (f Field) MarshalWire() ([]byte, error) {
	be := f.Bytes()
	out := make([]byte, FieldBytes)
	for i := range be {
		out[i] = be[FieldBytes-1-i]
	}
	return out, nil
}

func (f *Field) UnmarshalWire(r io.Reader) error {
	var le [FieldBytes]byte
	if _, err := io.ReadFull(r, le[:]); err != nil {
		return err
	}
	var be [FieldBytes]byte
	for i := range le {
		be[i] = le[FieldBytes-1-i]
	}
	var e fr.Element
	if err := e.SetBytesCanonical(be[:]); err != nil {
		return fmt.Errorf("field: %w", err)
	}
	*f = Field(e)
	return nil
}
