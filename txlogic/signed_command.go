package txlogic

import (
	"errors"
	"fmt"

	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/ledger"
	"github.com/colorfulnotion/zkapply/log"
	"github.com/colorfulnotion/zkapply/txerrors"
	"github.com/colorfulnotion/zkapply/types"
)

// getWithLocation returns the stored account, or a fresh account for id
// that is not in the ledger yet.
func getWithLocation(l ledger.Ledger, id types.AccountId) (*types.Account, ledger.Location, bool) {
	if a, loc, ok := ledger.GetAccount(l, id); ok {
		return a, loc, false
	}
	return types.NewAccount(id, 0), 0, true
}

// timingReject turns a refused debit into a rejection carrying its failure.
func timingReject(err error) error {
	var te *TimingError
	if errors.As(err, &te) {
		f := te.Failure()
		return &RejectedError{Failure: &f, Err: err}
	}
	return reject(err)
}

// payFee charges the fee, bumps the nonce and extends the receipt chain. The
// account is returned unstored.
func payFee(c *types.SignedCommand, l ledger.Ledger, slot currency.Slot) (*types.Account, ledger.Location, error) {
	if c.Payload.Common.FeePayerPk != c.Signer {
		return nil, 0, reject(ErrSignerMismatch)
	}
	id := c.FeePayerId()
	a, loc, ok := ledger.GetAccount(l, id)
	if !ok {
		return nil, 0, rejectWith(txerrors.SourceNotPresent, fmt.Errorf("%w: %s", ErrFeePayerNotPresent, id))
	}
	fee := c.Fee().ToAmount()
	balance, ok := a.Balance.SubAmount(fee)
	if !ok {
		return nil, 0, rejectWith(txerrors.SourceInsufficientBalance, fmt.Errorf("%s cannot pay fee %s from %s", id, fee, a.Balance))
	}
	if c.Nonce() != a.Nonce {
		return nil, 0, rejectWith(txerrors.IncorrectNonce, fmt.Errorf("%w: account %d, transaction %d", ErrIncorrectNonce, a.Nonce, c.Nonce()))
	}
	timing, err := validateTiming(a, fee, slot)
	if err != nil {
		return nil, 0, timingReject(err)
	}
	a.ReceiptChainHash = types.ConsSignedCommandPayload(&c.Payload, a.ReceiptChainHash)
	a.Balance, a.Nonce, a.Timing = balance, a.Nonce.Succ(), timing
	return a, loc, nil
}

// ApplyUserCommand applies a payment or stake delegation. The fee is
// charged even when the command itself fails; a rejected command leaves the
// ledger untouched. Signatures are not checked here.
func ApplyUserCommand(constants types.ConstraintConstants, slot currency.Slot, l ledger.Ledger, c *types.SignedCommand) (*SignedCommandApplied, error) {
	if slot > c.ValidUntil() {
		return nil, reject(fmt.Errorf("%w: slot %d, valid until %d", ErrExpired, slot, c.ValidUntil()))
	}
	feePayer, feePayerLoc, err := payFee(c, l, slot)
	if err != nil {
		return nil, err
	}
	if !feePayer.HasPermissionToSend() || !feePayer.HasPermissionToIncrementNonce() {
		return nil, rejectWith(txerrors.UpdateNotPermittedBalance, fmt.Errorf("fee payer %s may not send or increment its nonce", c.FeePayerId()))
	}

	applied := &SignedCommandApplied{Command: types.WithStatus[*types.SignedCommand]{Data: c, Status: types.AppliedStatus()}}
	var failure *txerrors.Failure
	switch c.Payload.Body.Kind {
	case types.PaymentKind:
		applied.NewAccounts, failure, err = applyPayment(constants, slot, l, c, feePayer, feePayerLoc)
	case types.StakeDelegationKind:
		l.Set(feePayerLoc, feePayer)
		applied.PreviousDelegate, failure, err = applyDelegation(slot, l, c, feePayer, feePayerLoc)
	default:
		err = fmt.Errorf("unknown signed command body kind %d", c.Payload.Body.Kind)
	}
	if err != nil {
		return nil, err
	}
	if failure != nil {
		applied.Command.Status = types.FailedStatus(txerrors.Single(*failure))
	}
	log.Debug(log.TxLogicMonitoring, "signed command applied", "fee_payer", c.FeePayerId(), "nonce", c.Nonce(), "status", applied.Command.Status)
	return applied, nil
}

func failWith(code txerrors.Code) *txerrors.Failure {
	f := txerrors.New(code)
	return &f
}

func applyPayment(constants types.ConstraintConstants, slot currency.Slot, l ledger.Ledger, c *types.SignedCommand, feePayer *types.Account, feePayerLoc ledger.Location) ([]types.AccountId, *txerrors.Failure, error) {
	amount := c.Payload.Body.Payment.Amount
	balance, ok := feePayer.Balance.SubAmount(amount)
	if !ok {
		// an unfunded payment is never included
		return nil, nil, rejectWith(txerrors.SourceInsufficientBalance, fmt.Errorf("%s cannot send %s from %s", c.FeePayerId(), amount, feePayer.Balance))
	}
	timing, err := validateTiming(feePayer, amount, slot)
	if err != nil {
		return nil, nil, timingReject(err)
	}
	// the fee is kept from here on, whatever happens to the payment
	l.Set(feePayerLoc, feePayer)
	sender := feePayer.Clone()
	sender.Balance, sender.Timing = balance, timing

	receiverId := c.Receiver()
	selfPayment := receiverId == c.FeePayerId()
	receiver, receiverLoc, isNew := sender, feePayerLoc, false
	if !selfPayment {
		receiver, receiverLoc, isNew = getWithLocation(l, receiverId)
	}
	if !receiver.HasPermissionToReceive() {
		return nil, failWith(txerrors.UpdateNotPermittedBalance), nil
	}
	received := amount
	if isNew {
		if received, ok = amount.Sub(constants.AccountCreationFee.ToAmount()); !ok {
			return nil, failWith(txerrors.AmountInsufficientToCreateAccount), nil
		}
	}
	if receiver.Balance, ok = receiver.Balance.AddAmount(received); !ok {
		return nil, failWith(txerrors.Overflow), nil
	}

	var newAccounts []types.AccountId
	if isNew {
		if err := l.CreateNewAccount(receiverId, receiver); err != nil {
			return nil, nil, err
		}
		newAccounts = []types.AccountId{receiverId}
	} else {
		l.Set(receiverLoc, receiver)
	}
	if !selfPayment {
		l.Set(feePayerLoc, sender)
	}
	return newAccounts, nil, nil
}

func applyDelegation(slot currency.Slot, l ledger.Ledger, c *types.SignedCommand, feePayer *types.Account, feePayerLoc ledger.Location) (*common.PublicKey, *txerrors.Failure, error) {
	if _, ok := l.LocationOfAccount(c.Receiver()); !ok {
		return nil, failWith(txerrors.ReceiverNotPresent), nil
	}
	if !feePayer.HasPermissionToSetDelegate() {
		return nil, failWith(txerrors.UpdateNotPermittedDelegate), nil
	}
	// a zero debit only moves a fully vested account to untimed
	timing, err := validateTiming(feePayer, 0, slot)
	if err != nil {
		f := err.(*TimingError).Failure()
		return nil, &f, nil
	}
	previous := feePayer.Delegate
	delegate := c.Payload.Body.StakeDelegation.NewDelegate
	feePayer.Delegate, feePayer.Timing = &delegate, timing
	l.Set(feePayerLoc, feePayer)
	return previous, nil, nil
}
