package common

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const PublicKeyLength = 32

// PublicKey is a compressed twisted Edwards point. The all-zero key is the empty key.
type PublicKey [PublicKeyLength]byte

var EmptyPublicKey PublicKey

func (pk PublicKey) IsEmpty() bool {
	return pk == EmptyPublicKey
}

func (pk PublicKey) Hex() string {
	return hexutil.Encode(pk[:])
}

func (pk PublicKey) String() string {
	return pk.Hex()
}

// Short prints the first and last two bytes, for logs.
func (pk PublicKey) Short() string {
	return fmt.Sprintf("%x..%x", pk[:2], pk[PublicKeyLength-2:])
}

func PublicKeyFromHex(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := hexutil.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("public key: %w", err)
	}
	if len(b) != PublicKeyLength {
		return pk, fmt.Errorf("public key: want %d bytes, got %d", PublicKeyLength, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.Hex()), nil
}

func (pk *PublicKey) UnmarshalText(text []byte) error {
	v, err := PublicKeyFromHex(string(text))
	if err != nil {
		return err
	}
	*pk = v
	return nil
}
