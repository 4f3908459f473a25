package types

import (
	"errors"
	"fmt"

	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
)

var (
	ErrIncompatibleFeeTokens = errors.New("cannot combine single fee transfers with incompatible tokens")
	ErrCoinbaseFeeTooLarge   = errors.New("coinbase fee transfer larger than the coinbase amount")
	ErrEmptyFeeTransfer      = errors.New("fee transfer needs one or two single transfers")
)

type SingleFeeTransfer struct {
	ReceiverPk common.PublicKey `json:"receiver_pk"`
	Fee        currency.Fee     `json:"fee"`
	FeeToken   TokenId          `json:"fee_token"`
}

func (s SingleFeeTransfer) Receiver() AccountId {
	return AccountId{PublicKey: s.ReceiverPk, TokenId: s.FeeToken}
}

// FeeTransfer pays one or two block-production fees. Both singles share a
// fee token.
type FeeTransfer struct {
	First  SingleFeeTransfer  `json:"first"`
	Second *SingleFeeTransfer `json:"second,omitempty"`
}

// NewFeeTransfer builds a fee transfer from one or two singles.
func NewFeeTransfer(singles ...SingleFeeTransfer) (*FeeTransfer, error) {
	switch len(singles) {
	case 1:
		return &FeeTransfer{First: singles[0]}, nil
	case 2:
		if singles[0].FeeToken != singles[1].FeeToken {
			return nil, fmt.Errorf("%w: %s and %s", ErrIncompatibleFeeTokens, singles[0].FeeToken, singles[1].FeeToken)
		}
		second := singles[1]
		return &FeeTransfer{First: singles[0], Second: &second}, nil
	}
	return nil, ErrEmptyFeeTransfer
}

func (ft *FeeTransfer) Singles() []SingleFeeTransfer {
	if ft.Second == nil {
		return []SingleFeeTransfer{ft.First}
	}
	return []SingleFeeTransfer{ft.First, *ft.Second}
}

func (ft *FeeTransfer) FeeToken() TokenId { return ft.First.FeeToken }

func (ft *FeeTransfer) Receivers() []AccountId {
	var out []AccountId
	for _, s := range ft.Singles() {
		out = append(out, s.Receiver())
	}
	return out
}

// FeeExcess is negative: the fees leave the pool.
func (ft *FeeTransfer) FeeExcess() (FeeExcess, error) {
	var parts []TokenFee
	for _, s := range ft.Singles() {
		parts = append(parts, TokenFee{Token: s.FeeToken, Fee: currency.NegOf(s.Fee)})
	}
	return OfOneOrTwo(parts)
}

type CoinbaseFeeTransfer struct {
	ReceiverPk common.PublicKey `json:"receiver_pk"`
	Fee        currency.Fee     `json:"fee"`
}

func (c CoinbaseFeeTransfer) Receiver() AccountId { return DefaultAccountId(c.ReceiverPk) }

// Coinbase mints the block reward, optionally sharing part of it.
type Coinbase struct {
	Receiver    common.PublicKey     `json:"receiver"`
	Amount      currency.Amount      `json:"amount"`
	FeeTransfer *CoinbaseFeeTransfer `json:"fee_transfer,omitempty"`
}

// NewCoinbase drops a fee transfer to the receiver itself, then rejects a
// fee transfer larger than the amount.
func NewCoinbase(receiver common.PublicKey, amount currency.Amount, ft *CoinbaseFeeTransfer) (*Coinbase, error) {
	if ft != nil && ft.ReceiverPk == receiver {
		ft = nil
	}
	if ft != nil && ft.Fee.ToAmount() > amount {
		return nil, fmt.Errorf("%w: fee %s, amount %s", ErrCoinbaseFeeTooLarge, ft.Fee, amount)
	}
	cb := &Coinbase{Receiver: receiver, Amount: amount}
	if ft != nil {
		c := *ft
		cb.FeeTransfer = &c
	}
	return cb, nil
}

func (c *Coinbase) ReceiverId() AccountId { return DefaultAccountId(c.Receiver) }

func (c *Coinbase) Receivers() []AccountId {
	out := []AccountId{c.ReceiverId()}
	if c.FeeTransfer != nil {
		out = append(out, c.FeeTransfer.Receiver())
	}
	return out
}

// FeeExcess of a coinbase is zero; the minted amount is a supply increase.
func (c *Coinbase) FeeExcess() (FeeExcess, error) { return ZeroFeeExcess(), nil }
