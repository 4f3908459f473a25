// Package zkapp steps a zkApp command's call forest against a global and a
// local execution state, one account update per step.
package zkapp

import (
	"github.com/colorfulnotion/zkapply/callforest"
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/ledger"
	"github.com/colorfulnotion/zkapply/txerrors"
	"github.com/colorfulnotion/zkapply/types"
)

type Forest = callforest.Forest[*types.AccountUpdate]

// StackFrame is a forest still to be processed, with the token ids of the
// account update that called into it and of that update's own caller.
type StackFrame struct {
	Caller       types.TokenId
	CallerCaller types.TokenId
	Calls        Forest
}

func emptyFrame() StackFrame {
	return StackFrame{Caller: types.DefaultTokenId, CallerCaller: types.DefaultTokenId, Calls: callforest.Empty[*types.AccountUpdate]()}
}

// CallStack holds suspended frames; the top is the last element.
type CallStack []StackFrame

func (s CallStack) Push(f StackFrame) CallStack {
	out := make(CallStack, len(s), len(s)+1)
	copy(out, s)
	return append(out, f)
}

// Pop returns the top frame, or an empty frame when the stack is empty.
func (s CallStack) Pop() (StackFrame, CallStack) {
	if len(s) == 0 {
		return emptyFrame(), s
	}
	return s[len(s)-1], s[:len(s)-1]
}

// GlobalState is shared by every transaction in a block.
type GlobalState struct {
	ProtocolState    *types.ProtocolStateView
	FirstPassLedger  ledger.Ledger
	SecondPassLedger ledger.Ledger
	FeeExcess        currency.Signed[currency.Amount]
	SupplyIncrease   currency.Signed[currency.Amount]
	BlockGlobalSlot  currency.Slot
}

// LocalState is the progress of the zkApp command being applied.
type LocalState struct {
	StackFrame                StackFrame
	CallStack                 CallStack
	TransactionCommitment     common.Field
	FullTransactionCommitment common.Field
	Excess                    currency.Signed[currency.Amount]
	SupplyIncrease            currency.Signed[currency.Amount]
	Ledger                    *ledger.Mask
	Success                   bool
	AccountUpdateIndex        currency.Index
	// one bucket per account update processed, fee payer first
	FailureStatusTbl txerrors.Collection
	WillSucceed      bool
}

// NewLocalState is the state before a command starts.
func NewLocalState() *LocalState {
	return &LocalState{
		StackFrame:  emptyFrame(),
		Ledger:      ledger.Empty(0).CreateMasked(),
		Success:     true,
		WillSucceed: true,
	}
}

// AddCheck records f in the current bucket unless ok. Buckets list their
// failures most recent first.
func (l *LocalState) AddCheck(f txerrors.Failure, ok bool) {
	if !ok {
		if n := len(l.FailureStatusTbl); n > 0 {
			l.FailureStatusTbl[n-1] = append([]txerrors.Failure{f}, l.FailureStatusTbl[n-1]...)
		}
	}
	l.Success = l.Success && ok
}

func (l *LocalState) addCode(c txerrors.Code, ok bool) { l.AddCheck(txerrors.New(c), ok) }

// AddNewFailureStatusBucket opens the bucket for the next account update.
func (l *LocalState) AddNewFailureStatusBucket() {
	l.FailureStatusTbl = append(l.FailureStatusTbl, []txerrors.Failure{})
}

// StartData begins a command.
type StartData struct {
	AccountUpdates Forest
	MemoHash       common.Field
	WillSucceed    bool
}
