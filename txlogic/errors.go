package txlogic

import (
	"errors"
	"fmt"

	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/txerrors"
	"github.com/colorfulnotion/zkapply/types"
)

var (
	ErrFeePayerIsolation     = errors.New("failed zkApp command changed accounts other than the fee payer")
	ErrUnauthenticatedForest = errors.New("zkApp command forest has no accumulated hashes")
	ErrNonDefaultFeeToken    = errors.New("cannot pay fees in non-default tokens")
	ErrExpired               = errors.New("current global slot greater than transaction expiry slot")
	ErrSignerMismatch        = errors.New("cannot pay fees from a public key that did not sign the transaction")
	ErrFeePayerNotPresent    = errors.New("the fee-payer account does not exist")
	ErrIncorrectNonce        = errors.New("nonce in account different from nonce in transaction")
	ErrOverflow              = errors.New("amount overflow")
	ErrNotFirstPassResult    = errors.New("transaction was not partially applied")
)

// RejectedError means the transaction cannot be included at all. Failure is
// set when the rejection corresponds to a named failure.
type RejectedError struct {
	Failure *txerrors.Failure
	Err     error
}

func reject(err error) *RejectedError { return &RejectedError{Err: err} }

func rejectWith(code txerrors.Code, err error) *RejectedError {
	f := txerrors.New(code)
	return &RejectedError{Failure: &f, Err: err}
}

func (e *RejectedError) Error() string {
	if e.Failure != nil {
		return fmt.Sprintf("transaction rejected: %s: %v", e.Failure.Name(), e.Err)
	}
	return fmt.Sprintf("transaction rejected: %v", e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }

// TimingError is a debit refused by the vesting schedule.
type TimingError struct {
	Account    types.AccountId
	Amount     currency.Amount
	MinBalance currency.Balance
	Violation  types.TimingViolation
}

func (e *TimingError) Error() string {
	if e.Violation == types.InsufficientBalance {
		return fmt.Sprintf("account %s has insufficient balance for %s", e.Account, e.Amount)
	}
	return fmt.Sprintf("debit of %s from %s violates its minimum balance %s", e.Amount, e.Account, e.MinBalance)
}

// Failure maps the violation to its recorded failure.
func (e *TimingError) Failure() txerrors.Failure {
	if e.Violation == types.InsufficientBalance {
		return txerrors.New(txerrors.SourceInsufficientBalance)
	}
	return txerrors.New(txerrors.SourceMinimumBalanceViolation)
}

// validateTiming returns the timing to store after debiting amount.
func validateTiming(a *types.Account, amount currency.Amount, slot currency.Slot) (types.Timing, error) {
	timing, minBalance, violation := types.ValidateTiming(a, amount, slot)
	if violation != types.TimingOK {
		return timing, &TimingError{Account: a.Id(), Amount: amount, MinBalance: minBalance, Violation: violation}
	}
	return timing, nil
}
