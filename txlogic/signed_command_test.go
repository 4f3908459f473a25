package txlogic

import (
	"testing"

	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/ledger"
	"github.com/colorfulnotion/zkapply/txerrors"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayment(t *testing.T) {
	const fee = currency.Fee(1_000_000)
	tests := []struct {
		name     string
		receiver *types.Account
		to       byte
		amount   currency.Amount
		status   types.TransactionStatus
		payer    currency.Balance
		check    func(t *testing.T, l ledger.Ledger, applied *SignedCommandApplied)
	}{
		{
			name:     "existing receiver",
			receiver: open(2, 5_000_000_000),
			to:       2,
			amount:   10_000_000_000,
			status:   types.AppliedStatus(),
			payer:    89_999_000_000,
			check: func(t *testing.T, l ledger.Ledger, applied *SignedCommandApplied) {
				assert.Equal(t, currency.Balance(15_000_000_000), account(t, l, id(2)).Balance)
				assert.Empty(t, applied.NewAccounts)
			},
		},
		{
			name:   "new receiver pays the creation fee",
			to:     2,
			amount: 10_000_000_000,
			status: types.AppliedStatus(),
			payer:  89_999_000_000,
			check: func(t *testing.T, l ledger.Ledger, applied *SignedCommandApplied) {
				created := account(t, l, id(2))
				assert.Equal(t, currency.Balance(9_000_000_000), created.Balance)
				assert.Equal(t, key(2), created.DelegateOrEmpty())
				assert.Equal(t, []types.AccountId{id(2)}, applied.NewAccounts)
			},
		},
		{
			name:   "amount below the creation fee",
			to:     2,
			amount: 500_000_000,
			status: types.FailedStatus(txerrors.Single(txerrors.New(txerrors.AmountInsufficientToCreateAccount))),
			payer:  99_999_000_000,
			check: func(t *testing.T, l ledger.Ledger, applied *SignedCommandApplied) {
				absent(t, l, id(2))
			},
		},
		{
			name:     "receiver refuses",
			receiver: closed(2, 5_000_000_000),
			to:       2,
			amount:   10_000_000_000,
			status:   types.FailedStatus(txerrors.Single(txerrors.New(txerrors.UpdateNotPermittedBalance))),
			payer:    99_999_000_000,
			check: func(t *testing.T, l ledger.Ledger, applied *SignedCommandApplied) {
				assert.Equal(t, currency.Balance(5_000_000_000), account(t, l, id(2)).Balance)
			},
		},
		{
			name:   "self payment",
			to:     1,
			amount: 10_000_000_000,
			status: types.AppliedStatus(),
			payer:  99_999_000_000,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			accounts := []*types.Account{open(1, 100_000_000_000)}
			if tc.receiver != nil {
				accounts = append(accounts, tc.receiver)
			}
			db := newLedger(t, accounts...)
			cmd := payment(1, tc.to, tc.amount, fee, 0)

			applied, err := ApplyUserCommand(constants, slot, db, cmd)
			require.NoError(t, err)
			require.Equal(t, tc.status, applied.Command.Status)

			payer := account(t, db, id(1))
			assert.Equal(t, tc.payer, payer.Balance)
			assert.Equal(t, currency.Nonce(1), payer.Nonce)
			assert.Equal(t, types.ConsSignedCommandPayload(&cmd.Payload, types.EmptyReceiptChainHash()), payer.ReceiptChainHash)
			if tc.check != nil {
				tc.check(t, db, applied)
			}
		})
	}
}

func TestSignedCommandRejected(t *testing.T) {
	timed := open(1, 100_000_000_000)
	timed.Timing = types.Timing{
		IsTimed:               true,
		InitialMinimumBalance: 95_000_000_000,
		CliffTime:             1000,
		VestingPeriod:         1,
		VestingIncrement:      1,
	}
	noSend := open(1, 100_000_000_000)
	noSend.Permissions.Send = types.AuthImpossible

	tests := []struct {
		name    string
		payer   *types.Account
		cmd     func() *types.SignedCommand
		failure *txerrors.Code
		is      error
	}{
		{
			name: "expired",
			cmd: func() *types.SignedCommand {
				c := payment(1, 2, 1, 1, 0)
				c.Payload.Common.ValidUntil = slot - 1
				return c
			},
			is: ErrExpired,
		},
		{
			name: "signer is not the fee payer",
			cmd: func() *types.SignedCommand {
				c := payment(1, 2, 1, 1, 0)
				c.Signer = key(9)
				return c
			},
			is: ErrSignerMismatch,
		},
		{
			name:    "fee payer absent",
			cmd:     func() *types.SignedCommand { return payment(7, 2, 1, 1, 0) },
			failure: code(txerrors.SourceNotPresent),
			is:      ErrFeePayerNotPresent,
		},
		{
			name:    "fee larger than balance",
			cmd:     func() *types.SignedCommand { return payment(1, 2, 1, 200_000_000_000, 0) },
			failure: code(txerrors.SourceInsufficientBalance),
		},
		{
			name:    "wrong nonce",
			cmd:     func() *types.SignedCommand { return payment(1, 2, 1, 1, 4) },
			failure: code(txerrors.IncorrectNonce),
			is:      ErrIncorrectNonce,
		},
		{
			name:    "payment larger than balance",
			cmd:     func() *types.SignedCommand { return payment(1, 2, 200_000_000_000, 1, 0) },
			failure: code(txerrors.SourceInsufficientBalance),
		},
		{
			name:    "fee payer may not send",
			payer:   noSend,
			cmd:     func() *types.SignedCommand { return payment(1, 2, 1, 1, 0) },
			failure: code(txerrors.UpdateNotPermittedBalance),
		},
		{
			name:    "payment below the vesting minimum",
			payer:   timed,
			cmd:     func() *types.SignedCommand { return payment(1, 2, 10_000_000_000, 1, 0) },
			failure: code(txerrors.SourceMinimumBalanceViolation),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payer := tc.payer
			if payer == nil {
				payer = open(1, 100_000_000_000)
			}
			db := newLedger(t, payer, open(2, 0))
			root := db.MerkleRoot()

			_, err := ApplyUserCommand(constants, slot, db, tc.cmd())
			var rejected *RejectedError
			require.ErrorAs(t, err, &rejected)
			if tc.failure != nil {
				require.NotNil(t, rejected.Failure)
				assert.Equal(t, *tc.failure, rejected.Failure.Code)
			} else {
				assert.Nil(t, rejected.Failure)
			}
			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
			assert.Equal(t, root, db.MerkleRoot())
		})
	}
}

func code(c txerrors.Code) *txerrors.Code { return &c }

func TestMinimumBalanceIsNotInsufficientBalance(t *testing.T) {
	timed := open(1, 100_000_000_000)
	timed.Timing = types.Timing{IsTimed: true, InitialMinimumBalance: 95_000_000_000, CliffTime: 1000, VestingPeriod: 1, VestingIncrement: 95_000_000_000}
	db := newLedger(t, timed)

	_, err := ApplyUserCommand(constants, slot, db, payment(1, 1, 10_000_000_000, 1, 0))
	var te *TimingError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.MinimumBalanceViolation, te.Violation)
	assert.Equal(t, currency.Balance(95_000_000_000), te.MinBalance)
	assert.Equal(t, txerrors.New(txerrors.SourceMinimumBalanceViolation), te.Failure())

	// one period past the cliff everything has vested
	applied, err := ApplyUserCommand(constants, 1001, db, payment(1, 1, 10_000_000_000, 1, 0))
	require.NoError(t, err)
	require.True(t, applied.Command.Status.IsApplied())
	assert.False(t, account(t, db, id(1)).Timing.IsTimed)
}

func TestStakeDelegation(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		db := newLedger(t, open(1, 10_000_000_000), open(2, 0))
		applied, err := ApplyUserCommand(constants, slot, db, delegation(1, 2, 1_000_000))
		require.NoError(t, err)
		require.True(t, applied.Command.Status.IsApplied())
		require.NotNil(t, applied.PreviousDelegate)
		assert.Equal(t, key(1), *applied.PreviousDelegate)

		payer := account(t, db, id(1))
		assert.Equal(t, key(2), payer.DelegateOrEmpty())
		assert.Equal(t, currency.Balance(9_999_000_000), payer.Balance)
	})

	noSetDelegate := func() *types.Account {
		a := open(1, 10_000_000_000)
		a.Permissions.SetDelegate = types.AuthImpossible
		return a
	}
	tests := []struct {
		name     string
		payer    *types.Account
		delegate bool
		want     txerrors.Code
	}{
		{"delegate absent", open(1, 10_000_000_000), false, txerrors.ReceiverNotPresent},
		{"may not set delegate", noSetDelegate(), true, txerrors.UpdateNotPermittedDelegate},
		{"delegate absent and may not set delegate", noSetDelegate(), false, txerrors.ReceiverNotPresent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			accounts := []*types.Account{tc.payer}
			if tc.delegate {
				accounts = append(accounts, open(2, 0))
			}
			db := newLedger(t, accounts...)
			applied, err := ApplyUserCommand(constants, slot, db, delegation(1, 2, 1_000_000))
			require.NoError(t, err)
			require.Equal(t, types.FailedStatus(txerrors.Single(txerrors.New(tc.want))), applied.Command.Status)

			payer := account(t, db, id(1))
			assert.Equal(t, key(1), payer.DelegateOrEmpty())
			assert.Equal(t, currency.Balance(9_999_000_000), payer.Balance)
			assert.Equal(t, currency.Nonce(1), payer.Nonce)
		})
	}
}
