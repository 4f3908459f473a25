package txlogic

import (
	"errors"
	"fmt"

	"github.com/colorfulnotion/zkapply/callforest"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/ledger"
	"github.com/colorfulnotion/zkapply/log"
	"github.com/colorfulnotion/zkapply/txerrors"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/colorfulnotion/zkapply/zkapp"
)

func accountStates(l ledger.Ledger, ids []types.AccountId) []AccountState {
	out := make([]AccountState, 0, len(ids))
	for _, id := range ids {
		a, _, _ := ledger.GetAccount(l, id)
		out = append(out, AccountState{Id: id, Account: a})
	}
	return out
}

// ApplyZkAppCommandFirstPass charges the fee payer. The account updates are
// left for ApplyZkAppCommandSecondPass.
func ApplyZkAppCommandFirstPass(constants types.ConstraintConstants, slot currency.Slot, view *types.ProtocolStateView, l ledger.Ledger, cmd *types.ZkAppCommand, h zkapp.Handler) (*ZkAppCommandPartiallyApplied, error) {
	previousHash := l.MerkleRoot()
	original := accountStates(l, []types.AccountId{cmd.FeePayerId()})

	all, err := cmd.AllAccountUpdates()
	if err != nil {
		return nil, unauthenticated(cmd, err)
	}
	g := &zkapp.GlobalState{
		ProtocolState:    view,
		FirstPassLedger:  l,
		SecondPassLedger: ledger.Empty(0),
		FeeExcess:        currency.Zero[currency.Amount](),
		SupplyIncrease:   currency.Zero[currency.Amount](),
		BlockGlobalSlot:  slot,
	}
	local := zkapp.NewLocalState()
	start := zkapp.StartData{AccountUpdates: all, MemoHash: cmd.Memo.Hash(), WillSucceed: true}
	if err := zkapp.Start(constants, start, h, g, local); err != nil {
		var feePayerErr *zkapp.FeePayerFailedError
		if errors.As(err, &feePayerErr) {
			rejected := reject(err)
			if f, ok := feePayerErr.First(); ok {
				rejected.Failure = &f
			}
			log.Warn(log.TxLogicMonitoring, "zkApp fee payer rejected", "fee_payer", cmd.FeePayerId(), "err", err)
			return nil, rejected
		}
		return nil, unauthenticated(cmd, err)
	}
	log.Trace(log.TxLogicMonitoring, "zkApp fee payer charged", "fee_payer", cmd.FeePayerId(), "fee", cmd.Fee())
	return &ZkAppCommandPartiallyApplied{
		Command:                        cmd,
		PreviousHash:                   previousHash,
		OriginalFirstPassAccountStates: original,
		Constants:                      constants,
		GlobalState:                    g,
		LocalState:                     local,
	}, nil
}

func unauthenticated(cmd *types.ZkAppCommand, err error) error {
	if errors.Is(err, callforest.ErrUnauthenticated) {
		return fmt.Errorf("command of %s: %w", cmd.FeePayerId(), ErrUnauthenticatedForest)
	}
	return err
}

// cancelAfterFirstFailure marks every account update after the first
// failed one that recorded nothing itself. The fee payer is never marked.
func cancelAfterFirstFailure(tbl txerrors.Collection) txerrors.Collection {
	out := make(txerrors.Collection, len(tbl))
	failed := false
	for i, fs := range tbl {
		switch {
		case len(fs) > 0:
			failed = true
			out[i] = fs
		case failed && i > 0:
			out[i] = []txerrors.Failure{txerrors.New(txerrors.Cancelled)}
		default:
			out[i] = fs
		}
	}
	return out
}

// ApplyZkAppCommandSecondPass runs the remaining account updates against l,
// which must already reflect the first pass.
func ApplyZkAppCommandSecondPass(l ledger.Ledger, p *ZkAppCommandPartiallyApplied, h zkapp.Handler) (*TransactionApplied, error) {
	cmd := p.Command
	ids := cmd.AccountsReferenced()
	afterFeePayer := accountStates(l, ids)

	// the fee payer as it was before its fee was taken
	accounts := make([]AccountState, 0, len(afterFeePayer))
	accounts = append(accounts, p.OriginalFirstPassAccountStates...)
	for _, s := range afterFeePayer {
		if s.Id != cmd.FeePayerId() {
			accounts = append(accounts, s)
		}
	}

	g := *p.GlobalState
	g.SecondPassLedger = l
	local := p.LocalState
	if !local.StackFrame.Calls.IsEmpty() {
		local.Ledger = l.CreateMasked()
	}
	for !local.StackFrame.Calls.IsEmpty() {
		if err := zkapp.Step(p.Constants, h, &g, local); err != nil {
			return nil, fmt.Errorf("account update %d of %s: %w", local.AccountUpdateIndex, cmd.FeePayerId(), err)
		}
	}

	var newAccounts []types.AccountId
	for _, s := range afterFeePayer {
		if _, ok := l.LocationOfAccount(s.Id); s.Account == nil && ok {
			newAccounts = append(newAccounts, s.Id)
		}
	}

	tbl := local.FailureStatusTbl
	status := types.AppliedStatus()
	if !tbl.IsEmpty() {
		status = types.FailedStatus(cancelAfterFirstFailure(tbl))
		if err := checkIsolation(l, afterFeePayer, newAccounts); err != nil {
			return nil, err
		}
	}
	log.Debug(log.TxLogicMonitoring, "zkApp command applied", "fee_payer", cmd.FeePayerId(), "updates", len(tbl)-1, "status", status)
	return &TransactionApplied{
		PreviousHash: p.PreviousHash,
		Varying: Varying{ZkAppCommand: &ZkAppCommandApplied{
			Accounts:    accounts,
			Command:     types.WithStatus[*types.ZkAppCommand]{Data: cmd, Status: status},
			NewAccounts: newAccounts,
		}},
	}, nil
}

// checkIsolation requires a failed command to leave every account as the
// fee payer's charge left it.
func checkIsolation(l ledger.Ledger, before []AccountState, newAccounts []types.AccountId) error {
	if len(newAccounts) > 0 {
		return fmt.Errorf("%w: created %v", ErrFeePayerIsolation, newAccounts)
	}
	for _, s := range before {
		a, _, _ := ledger.GetAccount(l, s.Id)
		if !s.Account.Equal(a) {
			return fmt.Errorf("%w: %s changed", ErrFeePayerIsolation, s.Id)
		}
	}
	return nil
}
