// Package codec is the binary wire format: fixed-width little-endian
// integers, option tags 0/1 for pointers, one-byte variant tags, compact
// lengths for sequences, and struct fields in declaration order.
package codec

import (
	"bytes"
	"errors"
	"fmt"
)

// Encode serializes the given object.
func Encode(obj interface{}) ([]byte, error) {
	b, err := Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encoding failed: %w", err)
	}
	return b, nil
}

// Decode deserializes inp into dst, which must be a pointer.
func Decode(inp []byte, dst interface{}) error {
	decoder := NewDecoder(bytes.NewReader(inp))
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decoding failed: %w", err)
	}
	if decoder.Remaining() > 0 {
		return fmt.Errorf("decoding failed: %w: %d bytes", ErrTrailingBytes, decoder.Remaining())
	}
	return nil
}

var (
	ErrTrailingBytes   = errors.New("trailing bytes")
	ErrVersionMismatch = errors.New("version mismatch")
)

// EncodeVersioned prefixes the encoding of obj with a one-byte version tag.
func EncodeVersioned(version uint8, obj interface{}) ([]byte, error) {
	body, err := Encode(obj)
	if err != nil {
		return nil, err
	}
	return append([]byte{version}, body...), nil
}

// DecodeVersioned checks the version tag written by EncodeVersioned and decodes the rest.
func DecodeVersioned(version uint8, inp []byte, dst interface{}) error {
	if len(inp) == 0 {
		return fmt.Errorf("decoding failed: %w: empty input", ErrVersionMismatch)
	}
	if inp[0] != version {
		return fmt.Errorf("decoding failed: %w: got %d want %d", ErrVersionMismatch, inp[0], version)
	}
	return Decode(inp[1:], dst)
}
