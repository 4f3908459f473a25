package types

import (
	"errors"
	"fmt"
	"io"

	"github.com/colorfulnotion/zkapply/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

const (
	MemoLength     = 34
	MemoMaxContent = 32

	memoDigestTag = 0x00
	memoBytesTag  = 0x01
)

var ErrMemoTooLong = errors.New("memo content longer than 32 bytes")

// Memo is a fixed 34-byte memo: a tag byte, a length byte, and 32 bytes of
// content padded with zeros.
type Memo [MemoLength]byte

// MemoFromString stores s verbatim.
func MemoFromString(s string) (Memo, error) {
	return MemoFromBytes([]byte(s))
}

func MemoFromBytes(b []byte) (Memo, error) {
	var m Memo
	if len(b) > MemoMaxContent {
		return m, fmt.Errorf("%w: %d", ErrMemoTooLong, len(b))
	}
	m[0] = memoBytesTag
	m[1] = byte(len(b))
	copy(m[2:], b)
	return m, nil
}

// MemoByDigestingString stores the blake2b-256 digest of s.
func MemoByDigestingString(s string) Memo {
	var m Memo
	m[0] = memoDigestTag
	m[1] = MemoMaxContent
	d := blake2b.Sum256([]byte(s))
	copy(m[2:], d[:])
	return m
}

// EmptyMemo holds zero bytes of content.
func EmptyMemo() Memo {
	m, _ := MemoFromBytes(nil)
	return m
}

func (m Memo) IsDigest() bool { return m[0] == memoDigestTag }

// Content returns the stored bytes without padding.
func (m Memo) Content() []byte {
	n := min(int(m[1]), MemoMaxContent)
	return m[2 : 2+n]
}

func (m Memo) Hash() common.Field {
	return common.HashBytesWithPrefix("ZkMemo", m[:])
}

func (m Memo) String() string {
	if m.IsDigest() {
		return hexutil.Encode(m.Content())
	}
	return string(m.Content())
}

func (m Memo) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(m[:])), nil
}

func (m *Memo) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("memo: %w", err)
	}
	if len(b) != MemoLength {
		return fmt.Errorf("memo: want %d bytes, got %d", MemoLength, len(b))
	}
	copy(m[:], b)
	return nil
}

func (m Memo) MarshalWire() ([]byte, error) {
	return m[:], nil
}

func (m *Memo) UnmarshalWire(r io.Reader) error {
	_, err := io.ReadFull(r, m[:])
	return err
}
