package common

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"golang.org/x/crypto/blake2b"
)

// ComputeHash computes the BLAKE2b hash of the given data
func ComputeHash(data []byte) []byte {
	hash := blake2b.Sum256(data)
	return hash[:]
}

func Blake2Hash(data []byte) Hash {
	return BytesToHash(ComputeHash(data))
}

func Uint64ToBytes(val uint64) []byte {
	bytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(bytes, val)
	return bytes
}

func Uint32ToBytes(val uint32) []byte {
	bytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(bytes, val)
	return bytes
}

// Poseidon with a 16-wide input accepts the running state plus 15 fresh elements per permutation.
const poseidonRate = 15

var prefixCache sync.Map

// PrefixField returns the domain separation element derived from a prefix string.
func PrefixField(prefix string) Field {
	if v, ok := prefixCache.Load(prefix); ok {
		return v.(Field)
	}
	f := hashRawBytes([]byte(prefix))
	prefixCache.Store(prefix, f)
	return f
}

// HashWithPrefix absorbs inputs into a Poseidon sponge whose state starts at PrefixField(prefix).
func HashWithPrefix(prefix string, inputs ...Field) Field {
	state := PrefixField(prefix)
	if len(inputs) == 0 {
		return poseidonHash([]*big.Int{state.Big()})
	}
	for start := 0; start < len(inputs); start += poseidonRate {
		end := min(start+poseidonRate, len(inputs))
		chunk := make([]*big.Int, 0, end-start+1)
		chunk = append(chunk, state.Big())
		for _, in := range inputs[start:end] {
			chunk = append(chunk, in.Big())
		}
		state = poseidonHash(chunk)
	}
	return state
}

// HashBytesWithPrefix hashes an arbitrary byte string into the field under a domain prefix.
func HashBytesWithPrefix(prefix string, data []byte) Field {
	return HashWithPrefix(prefix, hashRawBytes(data))
}

// hashRawBytes length-prefixes data so that the empty string and trailing zero bytes hash distinctly.
func hashRawBytes(data []byte) Field {
	msg := make([]byte, 0, 8+len(data))
	msg = append(msg, Uint64ToBytes(uint64(len(data)))...)
	msg = append(msg, data...)
	h, err := poseidon.HashBytes(msg)
	if err != nil {
		panic(fmt.Sprintf("poseidon: hash bytes: %v", err))
	}
	return FieldFromBig(h)
}

func poseidonHash(inputs []*big.Int) Field {
	// inputs are reduced field elements and never more than 16 wide
	h, err := poseidon.Hash(inputs)
	if err != nil {
		panic(fmt.Sprintf("poseidon: %v", err))
	}
	return FieldFromBig(h)
}
