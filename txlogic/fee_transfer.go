package txlogic

import (
	"fmt"

	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/ledger"
	"github.com/colorfulnotion/zkapply/log"
	"github.com/colorfulnotion/zkapply/txerrors"
	"github.com/colorfulnotion/zkapply/types"
)

var (
	noFailure     = []txerrors.Failure{}
	updateFailure = []txerrors.Failure{txerrors.New(txerrors.UpdateNotPermittedBalance)}
)

// appendEntry inserts f after the head of s, or starts s with f.
func appendEntry(f []txerrors.Failure, s txerrors.Collection) txerrors.Collection {
	if len(s) == 0 {
		return txerrors.Collection{f}
	}
	out := make(txerrors.Collection, 0, len(s)+1)
	out = append(out, s[0], f)
	return append(out, s[1:]...)
}

// receiving is a receiver as fee and coinbase transfers see it.
type receiving struct {
	id         types.AccountId
	account    *types.Account
	isNew      bool
	canReceive bool
}

func lookupReceiver(l ledger.Ledger, id types.AccountId) receiving {
	a, _, isNew := getWithLocation(l, id)
	return receiving{id: id, account: a, isNew: isNew, canReceive: a.HasPermissionToReceive()}
}

// credit is the receiver's balance after amount arrives, net of the
// creation fee for a new account.
func (r receiving) credit(constants types.ConstraintConstants, amount currency.Amount) (currency.Balance, error) {
	if r.isNew {
		net, ok := amount.Sub(constants.AccountCreationFee.ToAmount())
		if !ok {
			return 0, rejectWith(txerrors.AmountInsufficientToCreateAccount, fmt.Errorf("%s cannot pay the creation fee of %s", amount, r.id))
		}
		amount = net
	}
	balance, ok := r.account.Balance.AddAmount(amount)
	if !ok {
		return 0, rejectWith(txerrors.Overflow, fmt.Errorf("%w: crediting %s", ErrOverflow, r.id))
	}
	return balance, nil
}

// timing records a switch to untimed without debiting anything.
func (r receiving) timing(slot currency.Slot) (types.Timing, error) {
	timing, err := validateTiming(r.account, 0, slot)
	if err != nil {
		return timing, reject(err)
	}
	return timing, nil
}

// store writes the receiver, creating it if needed, and reports it when new.
func (r receiving) store(l ledger.Ledger, balance currency.Balance, timing types.Timing) ([]types.AccountId, error) {
	action, loc, err := l.GetOrCreate(r.id, types.NewAccount(r.id, 0))
	if err != nil {
		return nil, err
	}
	a, _ := l.Get(loc)
	a.Balance, a.Timing = balance, timing
	l.Set(loc, a)
	if action == ledger.Added {
		return []types.AccountId{r.id}, nil
	}
	return nil, nil
}

// ApplyFeeTransfer credits one or two block-production fees. A receiver that
// may not receive burns its fee instead.
func ApplyFeeTransfer(constants types.ConstraintConstants, slot currency.Slot, l ledger.Ledger, ft *types.FeeTransfer) (*FeeTransferApplied, error) {
	for _, s := range ft.Singles() {
		if !s.FeeToken.IsDefault() {
			return nil, reject(fmt.Errorf("%w: %s", ErrNonDefaultFeeToken, s.FeeToken))
		}
	}
	newAccounts, failures, burned, err := processFeeTransfer(constants, slot, l, ft)
	if err != nil {
		return nil, err
	}
	applied := &FeeTransferApplied{
		FeeTransfer:  types.WithStatus[*types.FeeTransfer]{Data: ft, Status: types.StatusOf(failures)},
		NewAccounts:  newAccounts,
		BurnedTokens: burned,
	}
	log.Debug(log.TxLogicMonitoring, "fee transfer applied", "receivers", len(ft.Singles()), "burned", burned, "status", applied.FeeTransfer.Status)
	return applied, nil
}

func processFeeTransfer(constants types.ConstraintConstants, slot currency.Slot, l ledger.Ledger, ft *types.FeeTransfer) ([]types.AccountId, txerrors.Collection, currency.Amount, error) {
	if ft.Second == nil {
		r := lookupReceiver(l, ft.First.Receiver())
		return creditOne(constants, slot, l, r, ft.First.Fee)
	}

	first, second := ft.First, *ft.Second
	r1 := lookupReceiver(l, first.Receiver())
	if first.Receiver() == second.Receiver() {
		fee, ok := first.Fee.Add(second.Fee)
		if !ok {
			return nil, nil, 0, reject(fmt.Errorf("%w: fee transfer to %s", ErrOverflow, r1.id))
		}
		newAccounts, failures, burned, err := creditOne(constants, slot, l, r1, fee)
		if err != nil || len(failures) == 0 {
			return newAccounts, failures, burned, err
		}
		return nil, appendEntry(updateFailure, failures), burned, nil
	}

	r2 := lookupReceiver(l, second.Receiver())
	balance1, err := r1.credit(constants, first.Fee.ToAmount())
	if err != nil {
		return nil, nil, 0, err
	}
	// the first receiver's timing is left alone: crediting never violates it
	timing2, err := r2.timing(slot)
	if err != nil {
		return nil, nil, 0, err
	}
	balance2, err := r2.credit(constants, second.Fee.ToAmount())
	if err != nil {
		return nil, nil, 0, err
	}

	var newAccounts []types.AccountId
	var failures txerrors.Collection
	var burned1, burned2 currency.Amount
	if r1.canReceive {
		created, err := r1.store(l, balance1, r1.account.Timing)
		if err != nil {
			return nil, nil, 0, err
		}
		newAccounts = append(newAccounts, created...)
		failures = appendEntry(noFailure, nil)
	} else {
		failures, burned1 = txerrors.Collection{updateFailure}, first.Fee.ToAmount()
	}
	if r2.canReceive {
		created, err := r2.store(l, balance2, timing2)
		if err != nil {
			return nil, nil, 0, err
		}
		newAccounts = append(newAccounts, created...)
		failures = appendEntry(noFailure, failures)
	} else {
		failures, burned2 = appendEntry(updateFailure, failures), second.Fee.ToAmount()
	}
	burned, ok := burned1.Add(burned2)
	if !ok {
		return nil, nil, 0, reject(fmt.Errorf("%w: burned tokens", ErrOverflow))
	}
	return newAccounts, failures, burned, nil
}

// creditOne credits fee to a single receiver, or burns it when the receiver
// may not receive.
func creditOne(constants types.ConstraintConstants, slot currency.Slot, l ledger.Ledger, r receiving, fee currency.Fee) ([]types.AccountId, txerrors.Collection, currency.Amount, error) {
	timing, err := r.timing(slot)
	if err != nil {
		return nil, nil, 0, err
	}
	balance, err := r.credit(constants, fee.ToAmount())
	if err != nil {
		return nil, nil, 0, err
	}
	if !r.canReceive {
		return nil, txerrors.Collection{updateFailure}, fee.ToAmount(), nil
	}
	created, err := r.store(l, balance, timing)
	if err != nil {
		return nil, nil, 0, err
	}
	return created, nil, 0, nil
}

// ApplyCoinbase credits the block reward, minus the optional fee transfer,
// to its receiver.
func ApplyCoinbase(constants types.ConstraintConstants, slot currency.Slot, l ledger.Ledger, cb *types.Coinbase) (*CoinbaseApplied, error) {
	reward := cb.Amount
	var (
		transferee        *receiving
		transfereeBalance currency.Balance
		transfereeTiming  types.Timing
		failures          txerrors.Collection
		burned1           currency.Amount
	)
	if ft := cb.FeeTransfer; ft != nil {
		fee := ft.Fee.ToAmount()
		var ok bool
		if reward, ok = cb.Amount.Sub(fee); !ok {
			return nil, reject(fmt.Errorf("%w: fee %s, amount %s", types.ErrCoinbaseFeeTooLarge, fee, cb.Amount))
		}
		r := lookupReceiver(l, ft.Receiver())
		timing, err := r.timing(slot)
		if err != nil {
			return nil, err
		}
		balance, err := r.credit(constants, fee)
		if err != nil {
			return nil, err
		}
		if r.canReceive {
			transferee, transfereeBalance, transfereeTiming = &r, balance, timing
			failures = appendEntry(noFailure, nil)
		} else {
			failures, burned1 = txerrors.Collection{updateFailure}, fee
		}
	}

	var newAccounts []types.AccountId
	if transferee != nil {
		// created ahead of the receiver
		action, _, err := l.GetOrCreate(transferee.id, types.NewAccount(transferee.id, 0))
		if err != nil {
			return nil, err
		}
		if action == ledger.Added {
			newAccounts = append(newAccounts, transferee.id)
		}
	}

	receiver := lookupReceiver(l, cb.ReceiverId())
	receiverTiming := receiver.account.Timing
	if cb.FeeTransfer == nil {
		var err error
		if receiverTiming, err = receiver.timing(slot); err != nil {
			return nil, err
		}
	}
	receiverBalance, err := receiver.credit(constants, reward)
	if err != nil {
		return nil, err
	}
	var burned2 currency.Amount
	if receiver.canReceive {
		created, err := receiver.store(l, receiverBalance, receiverTiming)
		if err != nil {
			return nil, err
		}
		newAccounts = append(newAccounts, created...)
		failures = appendEntry(noFailure, failures)
	} else {
		failures, burned2 = appendEntry(updateFailure, failures), reward
	}
	if transferee != nil {
		if _, err := transferee.store(l, transfereeBalance, transfereeTiming); err != nil {
			return nil, err
		}
	}

	burned, ok := burned1.Add(burned2)
	if !ok {
		return nil, reject(fmt.Errorf("%w: burned tokens", ErrOverflow))
	}
	applied := &CoinbaseApplied{
		Coinbase:     types.WithStatus[*types.Coinbase]{Data: cb, Status: types.StatusOf(failures)},
		NewAccounts:  newAccounts,
		BurnedTokens: burned,
	}
	log.Debug(log.TxLogicMonitoring, "coinbase applied", "receiver", cb.ReceiverId(), "amount", cb.Amount, "burned", burned, "status", applied.Coinbase.Status)
	return applied, nil
}
