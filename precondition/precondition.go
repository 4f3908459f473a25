// Package precondition evaluates account-update preconditions against an
// account and the protocol state view.
package precondition

import (
	"fmt"

	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/txerrors"
	"github.com/colorfulnotion/zkapply/types"
	"golang.org/x/exp/constraints"
)

// CheckNumeric reports whether x lies in the interval, or the check is ignored.
func CheckNumeric[T constraints.Unsigned](n types.Numeric[T], x T) bool {
	return !n.Check || (n.Interval.Lower <= x && x <= n.Interval.Upper)
}

// CheckEq reports whether x equals the expected value, or the check is ignored.
func CheckEq[T comparable](e types.EqData[T], x T) bool {
	return !e.Check || e.Value == x
}

// Account evaluates every account condition and reports each violated one
// through add, in a fixed order. It never stops early.
func Account(p types.AccountPrecondition, a *types.Account, isNew bool, add func(txerrors.Failure, bool)) {
	c := p.ToFull()
	add(txerrors.New(txerrors.AccountBalancePreconditionUnsatisfied), CheckNumeric(c.Balance, a.Balance))
	add(txerrors.New(txerrors.AccountNoncePreconditionUnsatisfied), CheckNumeric(c.Nonce, a.Nonce))
	add(txerrors.New(txerrors.AccountReceiptChainHashPreconditionUnsatisfied), CheckEq(c.ReceiptChainHash, a.ReceiptChainHash))
	add(txerrors.New(txerrors.AccountDelegatePreconditionUnsatisfied), CheckEq(c.Delegate, a.DelegateOrEmpty()))

	// any of the retained action states may match
	actionState := false
	for _, s := range a.ActionState() {
		actionState = actionState || CheckEq(c.ActionState, s)
	}
	add(txerrors.New(txerrors.AccountActionStatePreconditionUnsatisfied), actionState)

	appState := a.AppState()
	for i, cond := range c.State {
		add(txerrors.AppState(i), CheckEq(cond, appState[i]))
	}
	add(txerrors.New(txerrors.AccountProvedStatePreconditionUnsatisfied), CheckEq(c.ProvedState, a.ProvedState()))
	add(txerrors.New(txerrors.AccountIsNewPreconditionUnsatisfied), CheckEq(c.IsNew, isNew))
}

// AccountFailures collects the failures Account would report.
func AccountFailures(p types.AccountPrecondition, a *types.Account, isNew bool) []txerrors.Failure {
	var out []txerrors.Failure
	Account(p, a, isNew, func(f txerrors.Failure, ok bool) {
		if !ok {
			out = append(out, f)
		}
	})
	return out
}

// Mismatch names a network condition that did not hold.
type Mismatch struct {
	Field string
}

func (m Mismatch) Error() string { return fmt.Sprintf("protocol state precondition %s unsatisfied", m.Field) }

type checker struct {
	failed []Mismatch
}

func (c *checker) check(field string, ok bool) {
	if !ok {
		c.failed = append(c.failed, Mismatch{Field: field})
	}
}

func (c *checker) epoch(prefix string, p types.EpochDataPrecondition, v types.EpochDataView) {
	c.check(prefix+".ledger.hash", CheckEq(p.Ledger.Hash, v.Ledger.Hash))
	c.check(prefix+".ledger.total_currency", CheckNumeric(p.Ledger.TotalCurrency, v.Ledger.TotalCurrency))
	c.check(prefix+".seed", CheckEq(p.Seed, v.Seed))
	c.check(prefix+".start_checkpoint", CheckEq(p.StartCheckpoint, v.StartCheckpoint))
	c.check(prefix+".lock_checkpoint", CheckEq(p.LockCheckpoint, v.LockCheckpoint))
	c.check(prefix+".epoch_length", CheckNumeric(p.EpochLength, v.EpochLength))
}

// Network returns every network condition the view violates.
func Network(p *types.NetworkPreconditions, v *types.ProtocolStateView) []Mismatch {
	c := &checker{}
	c.check("snarked_ledger_hash", CheckEq(p.SnarkedLedgerHash, v.SnarkedLedgerHash))
	c.check("blockchain_length", CheckNumeric(p.BlockchainLength, v.BlockchainLength))
	c.check("min_window_density", CheckNumeric(p.MinWindowDensity, v.MinWindowDensity))
	c.check("total_currency", CheckNumeric(p.TotalCurrency, v.TotalCurrency))
	c.check("global_slot_since_genesis", CheckNumeric(p.GlobalSlotSinceGenesis, v.GlobalSlotSinceGenesis))
	c.epoch("staking_epoch_data", p.StakingEpochData, v.StakingEpochData)
	c.epoch("next_epoch_data", p.NextEpochData, v.NextEpochData)
	return c.failed
}

// ValidWhile checks the update's slot window against the block's slot.
func ValidWhile(n types.Numeric[currency.Slot], slot currency.Slot) bool {
	return CheckNumeric(n, slot)
}

// Accept is a network precondition that ignores every field.
func Accept() types.NetworkPreconditions { return types.NetworkPreconditions{} }
