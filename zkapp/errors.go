package zkapp

import (
	"errors"
	"fmt"

	"github.com/colorfulnotion/zkapply/txerrors"
)

var (
	ErrInvalidVestingPeriod  = errors.New("timing has a zero vesting period")
	ErrAuthorizationMismatch = errors.New("authorization does not match the declared authorization kind")
	ErrFeePayerToken         = errors.New("fee payer must pay a non-negative fee in the default token")
	ErrWillSucceed           = errors.New("command was declared to fail but succeeded")
	ErrNoAccountUpdates      = errors.New("no account updates left to step")
	ErrCommandInProgress     = errors.New("previous command has not finished")
)

// FeePayerFailedError is returned when the first account update of a
// command fails. The command cannot be included.
type FeePayerFailedError struct {
	Failures txerrors.Collection
}

func (e *FeePayerFailedError) Error() string {
	return fmt.Sprintf("fee payer account update failed: %s", e.Failures)
}

// First returns the most recently recorded fee-payer failure.
func (e *FeePayerFailedError) First() (txerrors.Failure, bool) {
	if len(e.Failures) == 0 || len(e.Failures[0]) == 0 {
		return txerrors.Failure{}, false
	}
	return e.Failures[0][0], true
}
