package types

import (
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"golang.org/x/exp/constraints"
)

type ClosedInterval[T constraints.Unsigned] struct {
	Lower T `json:"lower"`
	Upper T `json:"upper"`
}

// Numeric is an optional closed-interval check. When Check is false the
// condition is ignored.
type Numeric[T constraints.Unsigned] struct {
	Check    bool              `json:"check"`
	Interval ClosedInterval[T] `json:"interval"`
}

func Between[T constraints.Unsigned](lower, upper T) Numeric[T] {
	return Numeric[T]{Check: true, Interval: ClosedInterval[T]{Lower: lower, Upper: upper}}
}

func Exactly[T constraints.Unsigned](v T) Numeric[T] {
	return Between(v, v)
}

// IsConstant reports whether the interval admits exactly one value.
func (n Numeric[T]) IsConstant() bool {
	return n.Check && n.Interval.Lower == n.Interval.Upper
}

// EqData is an optional equality check.
type EqData[T comparable] struct {
	Check bool `json:"check"`
	Value T    `json:"value"`
}

func Equals[T comparable](v T) EqData[T] {
	return EqData[T]{Check: true, Value: v}
}

type Hash = EqData[common.Field]

type EpochLedgerPrecondition struct {
	Hash          Hash                     `json:"hash"`
	TotalCurrency Numeric[currency.Amount] `json:"total_currency"`
}

type EpochDataPrecondition struct {
	Ledger          EpochLedgerPrecondition  `json:"ledger"`
	Seed            Hash                     `json:"seed"`
	StartCheckpoint Hash                     `json:"start_checkpoint"`
	LockCheckpoint  Hash                     `json:"lock_checkpoint"`
	EpochLength     Numeric[currency.Length] `json:"epoch_length"`
}

// NetworkPreconditions constrain the protocol state the command is applied in.
type NetworkPreconditions struct {
	SnarkedLedgerHash      Hash                     `json:"snarked_ledger_hash"`
	BlockchainLength       Numeric[currency.Length] `json:"blockchain_length"`
	MinWindowDensity       Numeric[currency.Length] `json:"min_window_density"`
	TotalCurrency          Numeric[currency.Amount] `json:"total_currency"`
	GlobalSlotSinceGenesis Numeric[currency.Slot]   `json:"global_slot_since_genesis"`
	StakingEpochData       EpochDataPrecondition    `json:"staking_epoch_data"`
	NextEpochData          EpochDataPrecondition    `json:"next_epoch_data"`
}

// AccountConditions constrain the account an update touches.
type AccountConditions struct {
	Balance          Numeric[currency.Balance] `json:"balance"`
	Nonce            Numeric[currency.Nonce]   `json:"nonce"`
	ReceiptChainHash EqData[ReceiptChainHash]  `json:"receipt_chain_hash"`
	Delegate         EqData[common.PublicKey]  `json:"delegate"`
	State            [AppStateLength]Hash      `json:"state"`
	ActionState      Hash                      `json:"action_state"`
	ProvedState      EqData[bool]              `json:"proved_state"`
	IsNew            EqData[bool]              `json:"is_new"`
}

type AccountPreconditionKind uint8

const (
	AcceptAccount AccountPreconditionKind = iota
	NonceAccount
	FullAccount
)

// AccountPrecondition is Accept, a bare nonce, or a full set of conditions.
type AccountPrecondition struct {
	Kind  AccountPreconditionKind `json:"kind"`
	Nonce currency.Nonce          `json:"nonce,omitempty"`
	Full  *AccountConditions      `json:"full,omitempty"`
}

func AcceptPrecondition() AccountPrecondition { return AccountPrecondition{Kind: AcceptAccount} }

func NoncePrecondition(n currency.Nonce) AccountPrecondition {
	return AccountPrecondition{Kind: NonceAccount, Nonce: n}
}

func FullPrecondition(c AccountConditions) AccountPrecondition {
	return AccountPrecondition{Kind: FullAccount, Full: &c}
}

// ToFull materializes the conditions the precondition stands for.
func (p AccountPrecondition) ToFull() AccountConditions {
	switch p.Kind {
	case NonceAccount:
		return AccountConditions{Nonce: Exactly(p.Nonce)}
	case FullAccount:
		if p.Full != nil {
			return *p.Full
		}
	}
	return AccountConditions{}
}

// NonceCondition returns the nonce interval the precondition imposes.
func (p AccountPrecondition) NonceCondition() Numeric[currency.Nonce] {
	return p.ToFull().Nonce
}

type Preconditions struct {
	Network    NetworkPreconditions   `json:"network"`
	Account    AccountPrecondition    `json:"account"`
	ValidWhile Numeric[currency.Slot] `json:"valid_while"`
}

type EpochLedgerView struct {
	Hash          common.Field    `json:"hash"`
	TotalCurrency currency.Amount `json:"total_currency"`
}

type EpochDataView struct {
	Ledger          EpochLedgerView `json:"ledger"`
	Seed            common.Field    `json:"seed"`
	StartCheckpoint common.Field    `json:"start_checkpoint"`
	LockCheckpoint  common.Field    `json:"lock_checkpoint"`
	EpochLength     currency.Length `json:"epoch_length"`
}

// ProtocolStateView is the slice of protocol state network preconditions
// are checked against.
type ProtocolStateView struct {
	SnarkedLedgerHash      common.Field    `json:"snarked_ledger_hash"`
	BlockchainLength       currency.Length `json:"blockchain_length"`
	MinWindowDensity       currency.Length `json:"min_window_density"`
	TotalCurrency          currency.Amount `json:"total_currency"`
	GlobalSlotSinceGenesis currency.Slot   `json:"global_slot_since_genesis"`
	StakingEpochData       EpochDataView   `json:"staking_epoch_data"`
	NextEpochData          EpochDataView   `json:"next_epoch_data"`
}
