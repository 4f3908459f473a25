package types

import (
	"fmt"
	"io"
	"math/big"
	"slices"

	"github.com/coinbase/kryptology/pkg/core/curves/native/pasta/fp"
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
)

const (
	receiptEmptyPrefix     = "CodaReceiptEmpty"
	receiptUserCmdPrefix   = "CodaReceiptUC"
	receiptZkAppCmdPrefix  = "CodaReceiptZkapp"
	receiptChainHashLength = 32

	// token id of the default token in the legacy payload layout
	legacyDefaultTokenId = 1
)

// ReceiptChainHash is the head of an account's receipt chain, an element
// of the Pallas base field.
type ReceiptChainHash fp.Fp

func receiptChainHash(f *fp.Fp) ReceiptChainHash { return ReceiptChainHash(*f) }

func (h ReceiptChainHash) element() *fp.Fp {
	f := fp.Fp(h)
	return &f
}

func (h ReceiptChainHash) Big() *big.Int { return h.element().BigInt() }

func (h ReceiptChainHash) String() string { return h.Big().String() }

// ParseReceiptChainHash reads a decimal value below the Pallas modulus.
func ParseReceiptChainHash(s string) (ReceiptChainHash, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 || v.BitLen() > 8*receiptChainHashLength {
		return ReceiptChainHash{}, fmt.Errorf("receipt chain hash %q: not a field element", s)
	}
	var le [receiptChainHashLength]byte
	v.FillBytes(le[:])
	slices.Reverse(le[:])
	f, err := new(fp.Fp).SetBytes(&le)
	if err != nil {
		return ReceiptChainHash{}, fmt.Errorf("receipt chain hash %q: %w", s, err)
	}
	return receiptChainHash(f), nil
}

func MustParseReceiptChainHash(s string) ReceiptChainHash {
	h, err := ParseReceiptChainHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (h ReceiptChainHash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *ReceiptChainHash) UnmarshalText(text []byte) error {
	v, err := ParseReceiptChainHash(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// MarshalWire encodes the hash as 32 little-endian bytes.
func (h ReceiptChainHash) MarshalWire() ([]byte, error) {
	b := h.element().Bytes()
	return b[:], nil
}

func (h *ReceiptChainHash) UnmarshalWire(r io.Reader) error {
	var le [receiptChainHashLength]byte
	if _, err := io.ReadFull(r, le[:]); err != nil {
		return err
	}
	f, err := new(fp.Fp).SetBytes(&le)
	if err != nil {
		return fmt.Errorf("receipt chain hash: %w", err)
	}
	*h = receiptChainHash(f)
	return nil
}

// EmptyReceiptChainHash is the receipt chain hash of an account that has
// never authorized anything.
func EmptyReceiptChainHash() ReceiptChainHash {
	return receiptChainHash(common.LegacyHashWithPrefix(receiptEmptyPrefix))
}

// legacyPublicKey splits a compressed key into its coordinate, read
// little-endian without the top bit, and the parity flag held in that bit.
func legacyPublicKey(pk common.PublicKey) (*fp.Fp, bool) {
	le := pk
	odd := le[len(le)-1]>>7 == 1
	le[len(le)-1] &= 0x7f
	slices.Reverse(le[:])
	return new(fp.Fp).SetBigInt(new(big.Int).SetBytes(le[:])), odd
}

// ConsSignedCommandPayload extends a receipt chain with a signed command.
// The payload is laid out as a legacy transaction: the fee payer, source and
// receiver coordinates as elements, then fee, fee token, fee payer parity,
// nonce, valid-until, memo, the three tag bits, source and receiver parity,
// token, amount and the token-locked flag as bits. The fee payer is the
// source.
func ConsSignedCommandPayload(p *SignedCommandPayload, prev ReceiptChainHash) ReceiptChainHash {
	var (
		tag      [3]bool
		receiver common.PublicKey
		amount   currency.Amount
	)
	switch p.Body.Kind {
	case PaymentKind:
		receiver, amount = p.Body.Payment.ReceiverPk, p.Body.Payment.Amount
	case StakeDelegationKind:
		tag[2] = true
		receiver = p.Body.StakeDelegation.NewDelegate
	}
	payerX, payerOdd := legacyPublicKey(p.Common.FeePayerPk)
	receiverX, receiverOdd := legacyPublicKey(receiver)

	var in common.LegacyInput
	in.AddField(payerX)
	in.AddField(payerX)
	in.AddField(receiverX)
	in.AddUint64(uint64(p.Common.Fee))
	in.AddUint64(legacyDefaultTokenId)
	in.AddBit(payerOdd)
	in.AddUint32(uint32(p.Common.Nonce))
	in.AddUint32(uint32(p.Common.ValidUntil))
	in.AddBytes(p.Common.Memo[:])
	for _, b := range tag {
		in.AddBit(b)
	}
	in.AddBit(payerOdd)
	in.AddBit(receiverOdd)
	in.AddUint64(legacyDefaultTokenId)
	in.AddUint64(uint64(amount))
	in.AddBit(false)
	in.AddField(prev.element())
	return receiptChainHash(common.LegacyHashWithPrefix(receiptUserCmdPrefix, in.Pack()...))
}

// ConsZkAppCommandCommitment extends a receipt chain with the commitment of
// a zkApp command, tagged by the position of the authorizing update.
func ConsZkAppCommandCommitment(index currency.Index, commitment common.Field, prev ReceiptChainHash) ReceiptChainHash {
	return receiptChainHash(common.LegacyHashWithPrefix(receiptZkAppCmdPrefix,
		new(fp.Fp).SetUint64(uint64(index)),
		common.PastaFromField(commitment),
		prev.element(),
	))
}
