package types

import (
	"github.com/colorfulnotion/zkapply/currency"
	ethmath "github.com/ethereum/go-ethereum/common/math"
)

// Timing is an account's vesting schedule. The zero value is untimed.
type Timing struct {
	IsTimed               bool              `json:"is_timed"`
	InitialMinimumBalance currency.Balance  `json:"initial_minimum_balance"`
	CliffTime             currency.Slot     `json:"cliff_time"`
	CliffAmount           currency.Amount   `json:"cliff_amount"`
	VestingPeriod         currency.SlotSpan `json:"vesting_period"`
	VestingIncrement      currency.Amount   `json:"vesting_increment"`
}

var Untimed = Timing{}

// MinBalanceAtSlot returns the balance a timed account must keep at slot.
func MinBalanceAtSlot(slot currency.Slot, t Timing) currency.Balance {
	if !t.IsTimed {
		return 0
	}
	if slot < t.CliffTime {
		return t.InitialMinimumBalance
	}
	if t.VestingPeriod == 0 {
		return 0
	}
	pastCliff, ok := t.InitialMinimumBalance.SubAmount(t.CliffAmount)
	if !ok {
		return 0
	}
	span, _ := slot.Diff(t.CliffTime)
	periods := uint64(span) / uint64(t.VestingPeriod)
	decrement, overflow := ethmath.SafeMul(periods, uint64(t.VestingIncrement))
	if overflow {
		decrement = uint64(currency.MaxAmount)
	}
	minBalance, ok := pastCliff.SubAmount(currency.Amount(decrement))
	if !ok {
		return 0
	}
	return minBalance
}

// TimingViolation classifies why a debit was refused by ValidateTiming.
type TimingViolation uint8

const (
	TimingOK TimingViolation = iota
	InsufficientBalance
	MinimumBalanceViolation
)

// ValidateTiming checks that debiting amount from account at slot leaves the
// balance covered and above the vesting minimum. It returns the timing to
// store: an account whose minimum has vested to zero becomes untimed.
func ValidateTiming(account *Account, amount currency.Amount, slot currency.Slot) (Timing, currency.Balance, TimingViolation) {
	proposed, ok := account.Balance.SubAmount(amount)
	if !account.Timing.IsTimed {
		if !ok {
			return Untimed, 0, InsufficientBalance
		}
		return Untimed, 0, TimingOK
	}
	minBalance := MinBalanceAtSlot(slot, account.Timing)
	violation := TimingOK
	switch {
	case !ok:
		violation = InsufficientBalance
	case proposed < minBalance:
		violation = MinimumBalanceViolation
	}
	if minBalance > 0 {
		return account.Timing, minBalance, violation
	}
	return Untimed, 0, violation
}

// HasLockedTokens reports whether any balance is still vesting at slot.
func (a *Account) HasLockedTokens(slot currency.Slot) bool {
	return MinBalanceAtSlot(slot, a.Timing) > 0
}
