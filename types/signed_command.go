package types

import (
	"encoding/json"
	"fmt"

	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type PaymentPayload struct {
	ReceiverPk common.PublicKey `json:"receiver_pk"`
	Amount     currency.Amount  `json:"amount"`
}

type StakeDelegationPayload struct {
	NewDelegate common.PublicKey `json:"new_delegate"`
}

type CommandBodyKind uint8

const (
	PaymentKind CommandBodyKind = iota
	StakeDelegationKind
)

// SignedCommandBody is either a payment or a stake delegation.
type SignedCommandBody struct {
	Kind            CommandBodyKind
	Payment         PaymentPayload
	StakeDelegation StakeDelegationPayload
}

func PaymentBody(receiver common.PublicKey, amount currency.Amount) SignedCommandBody {
	return SignedCommandBody{Kind: PaymentKind, Payment: PaymentPayload{ReceiverPk: receiver, Amount: amount}}
}

func StakeDelegationBody(delegate common.PublicKey) SignedCommandBody {
	return SignedCommandBody{Kind: StakeDelegationKind, StakeDelegation: StakeDelegationPayload{NewDelegate: delegate}}
}

func (b SignedCommandBody) IndexValue() (int, interface{}, error) {
	switch b.Kind {
	case PaymentKind:
		return int(b.Kind), b.Payment, nil
	case StakeDelegationKind:
		return int(b.Kind), b.StakeDelegation, nil
	}
	return 0, nil, fmt.Errorf("unknown signed command body kind %d", b.Kind)
}

func (b *SignedCommandBody) ValueAt(index uint) (interface{}, error) {
	b.Kind = CommandBodyKind(index)
	switch b.Kind {
	case PaymentKind:
		return PaymentPayload{}, nil
	case StakeDelegationKind:
		return StakeDelegationPayload{}, nil
	}
	return nil, fmt.Errorf("unknown signed command body kind %d", index)
}

func (b *SignedCommandBody) SetValue(v interface{}) error {
	switch v := v.(type) {
	case PaymentPayload:
		b.Payment = v
	case StakeDelegationPayload:
		b.StakeDelegation = v
	default:
		return fmt.Errorf("unexpected signed command body %T", v)
	}
	return nil
}

type signedCommandBodyJSON struct {
	Kind            string                  `json:"kind"`
	Payment         *PaymentPayload         `json:"payment,omitempty"`
	StakeDelegation *StakeDelegationPayload `json:"stake_delegation,omitempty"`
}

func (b SignedCommandBody) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case PaymentKind:
		return json.Marshal(signedCommandBodyJSON{Kind: "payment", Payment: &b.Payment})
	case StakeDelegationKind:
		return json.Marshal(signedCommandBodyJSON{Kind: "stake_delegation", StakeDelegation: &b.StakeDelegation})
	}
	return nil, fmt.Errorf("unknown signed command body kind %d", b.Kind)
}

func (b *SignedCommandBody) UnmarshalJSON(data []byte) error {
	var raw signedCommandBodyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Kind == "payment" && raw.Payment != nil:
		*b = SignedCommandBody{Kind: PaymentKind, Payment: *raw.Payment}
	case raw.Kind == "stake_delegation" && raw.StakeDelegation != nil:
		*b = SignedCommandBody{Kind: StakeDelegationKind, StakeDelegation: *raw.StakeDelegation}
	default:
		return fmt.Errorf("malformed signed command body %q", raw.Kind)
	}
	return nil
}

type SignedCommandCommon struct {
	Fee        currency.Fee     `json:"fee"`
	FeePayerPk common.PublicKey `json:"fee_payer_pk"`
	Nonce      currency.Nonce   `json:"nonce"`
	ValidUntil currency.Slot    `json:"valid_until"`
	Memo       Memo             `json:"memo"`
}

type SignedCommandPayload struct {
	Common SignedCommandCommon `json:"common"`
	Body   SignedCommandBody   `json:"body"`
}

// Fields lays the payload out as field elements for hashing and signing.
// Every component contributes, so no two distinct payloads share a layout.
func (p *SignedCommandPayload) Fields() []common.Field {
	feePayer := PublicKeyFields(p.Common.FeePayerPk)
	out := []common.Field{
		common.FieldFromUint64(uint64(p.Common.Fee)),
		feePayer[0], feePayer[1],
		common.FieldFromUint64(uint64(p.Common.Nonce)),
		common.FieldFromUint64(uint64(p.Common.ValidUntil)),
		p.Common.Memo.Hash(),
		common.FieldFromUint64(uint64(p.Body.Kind)),
	}
	switch p.Body.Kind {
	case PaymentKind:
		receiver := PublicKeyFields(p.Body.Payment.ReceiverPk)
		out = append(out, receiver[0], receiver[1], common.FieldFromUint64(uint64(p.Body.Payment.Amount)))
	case StakeDelegationKind:
		delegate := PublicKeyFields(p.Body.StakeDelegation.NewDelegate)
		out = append(out, delegate[0], delegate[1], common.Field{})
	}
	return out
}

// Digest is the message a signed command's signature covers.
func (p *SignedCommandPayload) Digest() common.Field {
	return common.HashWithPrefix("ZkSignedCommand", p.Fields()...)
}

// SignedCommand is a payment or delegation authorized by the fee payer's
// signature.
type SignedCommand struct {
	Payload   SignedCommandPayload `json:"payload"`
	Signer    common.PublicKey     `json:"signer"`
	Signature hexutil.Bytes        `json:"signature"`
}

func (c *SignedCommand) FeePayerId() AccountId {
	return DefaultAccountId(c.Payload.Common.FeePayerPk)
}

func (c *SignedCommand) Fee() currency.Fee { return c.Payload.Common.Fee }

func (c *SignedCommand) FeeToken() TokenId { return DefaultTokenId }

func (c *SignedCommand) Nonce() currency.Nonce { return c.Payload.Common.Nonce }

func (c *SignedCommand) ValidUntil() currency.Slot { return c.Payload.Common.ValidUntil }

// Receiver is the payment recipient or the new delegate.
func (c *SignedCommand) Receiver() AccountId {
	if c.Payload.Body.Kind == StakeDelegationKind {
		return DefaultAccountId(c.Payload.Body.StakeDelegation.NewDelegate)
	}
	return DefaultAccountId(c.Payload.Body.Payment.ReceiverPk)
}

func (c *SignedCommand) AccountsReferenced() []AccountId {
	fp, r := c.FeePayerId(), c.Receiver()
	if fp == r {
		return []AccountId{fp}
	}
	return []AccountId{fp, r}
}
