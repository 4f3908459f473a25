package types

import (
	"encoding/json"
	"fmt"

	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/txerrors"
)

// Transaction is a signed command, a zkApp command, a fee transfer, or a
// coinbase.
type Transaction interface {
	Kind() TransactionKind
	FeeExcess() (FeeExcess, error)
	// ExpectedSupplyIncrease is the minted amount before burns and
	// account-creation fees.
	ExpectedSupplyIncrease() currency.Amount
}

// UserCommand is a transaction with a fee payer.
type UserCommand interface {
	Transaction
	FeePayerId() AccountId
	Fee() currency.Fee
	FeeToken() TokenId
	Nonce() currency.Nonce
	AccountsReferenced() []AccountId
}

type TransactionKind uint8

const (
	SignedCommandKind TransactionKind = iota
	ZkAppCommandKind
	FeeTransferKind
	CoinbaseKind
)

var kindNames = [...]string{"signed_command", "zkapp_command", "fee_transfer", "coinbase"}

func (k TransactionKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("TransactionKind(%d)", uint8(k))
}

func (*SignedCommand) Kind() TransactionKind { return SignedCommandKind }
func (*ZkAppCommand) Kind() TransactionKind  { return ZkAppCommandKind }
func (*FeeTransfer) Kind() TransactionKind   { return FeeTransferKind }
func (*Coinbase) Kind() TransactionKind      { return CoinbaseKind }

func (c *SignedCommand) FeeExcess() (FeeExcess, error) {
	return OfSingle(c.FeeToken(), currency.OfUnsigned(c.Fee())), nil
}

func (c *ZkAppCommand) FeeExcess() (FeeExcess, error) {
	return OfSingle(c.FeeToken(), currency.OfUnsigned(c.Fee())), nil
}

func (*SignedCommand) ExpectedSupplyIncrease() currency.Amount { return 0 }
func (*ZkAppCommand) ExpectedSupplyIncrease() currency.Amount  { return 0 }
func (*FeeTransfer) ExpectedSupplyIncrease() currency.Amount   { return 0 }
func (c *Coinbase) ExpectedSupplyIncrease() currency.Amount    { return c.Amount }

type StatusKind uint8

const (
	Applied StatusKind = iota
	Failed
)

// TransactionStatus records whether a transaction applied, and if not, the
// failures per segment.
type TransactionStatus struct {
	Kind     StatusKind
	Failures txerrors.Collection
}

func AppliedStatus() TransactionStatus { return TransactionStatus{Kind: Applied} }

func FailedStatus(c txerrors.Collection) TransactionStatus {
	return TransactionStatus{Kind: Failed, Failures: c}
}

// StatusOf is Applied for a collection with no failures, Failed otherwise.
func StatusOf(c txerrors.Collection) TransactionStatus {
	if c.IsEmpty() {
		return AppliedStatus()
	}
	return FailedStatus(c)
}

func (s TransactionStatus) IsApplied() bool { return s.Kind == Applied }

func (s TransactionStatus) String() string {
	if s.IsApplied() {
		return "applied"
	}
	return "failed " + s.Failures.String()
}

func (s TransactionStatus) IndexValue() (int, interface{}, error) {
	if s.IsApplied() {
		return int(Applied), nil, nil
	}
	return int(Failed), s.Failures, nil
}

func (s *TransactionStatus) ValueAt(index uint) (interface{}, error) {
	switch StatusKind(index) {
	case Applied:
		*s = AppliedStatus()
		return nil, nil
	case Failed:
		s.Kind = Failed
		return txerrors.Collection{}, nil
	}
	return nil, fmt.Errorf("unknown transaction status %d", index)
}

func (s *TransactionStatus) SetValue(v interface{}) error {
	c, ok := v.(txerrors.Collection)
	if !ok {
		return fmt.Errorf("unexpected transaction status payload %T", v)
	}
	s.Failures = c
	return nil
}

type transactionStatusJSON struct {
	Status   string              `json:"status"`
	Failures txerrors.Collection `json:"failures,omitempty"`
}

func (s TransactionStatus) MarshalJSON() ([]byte, error) {
	if s.IsApplied() {
		return json.Marshal(transactionStatusJSON{Status: "applied"})
	}
	return json.Marshal(transactionStatusJSON{Status: "failed", Failures: s.Failures})
}

func (s *TransactionStatus) UnmarshalJSON(data []byte) error {
	var raw transactionStatusJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Status {
	case "applied":
		*s = AppliedStatus()
	case "failed":
		*s = FailedStatus(raw.Failures)
	default:
		return fmt.Errorf("unknown transaction status %q", raw.Status)
	}
	return nil
}

// WithStatus pairs a transaction with its outcome.
type WithStatus[T any] struct {
	Data   T                 `json:"data"`
	Status TransactionStatus `json:"status"`
}

// Envelope is the tagged JSON form of a Transaction.
type Envelope struct {
	Transaction Transaction
}

type envelopeJSON struct {
	Kind          string         `json:"kind"`
	SignedCommand *SignedCommand `json:"signed_command,omitempty"`
	ZkAppCommand  *ZkAppCommand  `json:"zkapp_command,omitempty"`
	FeeTransfer   *FeeTransfer   `json:"fee_transfer,omitempty"`
	Coinbase      *Coinbase      `json:"coinbase,omitempty"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	raw := envelopeJSON{}
	switch t := e.Transaction.(type) {
	case *SignedCommand:
		raw.SignedCommand = t
	case *ZkAppCommand:
		raw.ZkAppCommand = t
	case *FeeTransfer:
		raw.FeeTransfer = t
	case *Coinbase:
		raw.Coinbase = t
	default:
		return nil, fmt.Errorf("unknown transaction %T", e.Transaction)
	}
	raw.Kind = e.Transaction.Kind().String()
	return json.Marshal(raw)
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw envelopeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Kind == SignedCommandKind.String() && raw.SignedCommand != nil:
		e.Transaction = raw.SignedCommand
	case raw.Kind == ZkAppCommandKind.String() && raw.ZkAppCommand != nil:
		e.Transaction = raw.ZkAppCommand
	case raw.Kind == FeeTransferKind.String() && raw.FeeTransfer != nil:
		if raw.FeeTransfer.Second != nil && raw.FeeTransfer.Second.FeeToken != raw.FeeTransfer.First.FeeToken {
			return ErrIncompatibleFeeTokens
		}
		e.Transaction = raw.FeeTransfer
	case raw.Kind == CoinbaseKind.String() && raw.Coinbase != nil:
		cb, err := NewCoinbase(raw.Coinbase.Receiver, raw.Coinbase.Amount, raw.Coinbase.FeeTransfer)
		if err != nil {
			return err
		}
		e.Transaction = cb
	default:
		return fmt.Errorf("malformed transaction of kind %q", raw.Kind)
	}
	return nil
}
