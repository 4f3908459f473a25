package txlogic

import (
	"testing"

	"github.com/colorfulnotion/zkapply/callforest"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/txerrors"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/colorfulnotion/zkapply/zkapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZkAppCommandFailureCancelsLaterUpdates(t *testing.T) {
	db := newLedger(t, open(1, 10_000_000_000), open(2, 10_000_000_000), open(3, 0), open(4, 0))
	before := map[byte]*types.Account{}
	for _, b := range []byte{2, 3, 4} {
		before[b] = account(t, db, id(b))
	}

	stale := update(id(4), currency.Zero[currency.Amount]())
	stale.Elem.Body.Preconditions.Account = types.NoncePrecondition(9)
	cmd := zkCommand(1, 1_000_000, 0,
		signedUpdate(id(2), currency.NegOf[currency.Amount](1_000_000_000)),
		update(id(3), currency.OfUnsigned[currency.Amount](1_000_000_000)),
		stale,
		update(id(3), currency.Zero[currency.Amount]()),
		update(id(2), currency.Zero[currency.Amount]()),
	)

	applied, err := ApplyTransaction(constants, slot, view, db, cmd)
	require.NoError(t, err)
	record := applied.Varying.ZkAppCommand
	require.NotNil(t, record)

	nonce := []txerrors.Failure{txerrors.New(txerrors.AccountNoncePreconditionUnsatisfied)}
	cancelled := []txerrors.Failure{txerrors.New(txerrors.Cancelled)}
	want := txerrors.Collection{none, none, none, nonce, cancelled, cancelled}
	assert.Equal(t, types.FailedStatus(want), record.Command.Status)
	assert.Empty(t, record.NewAccounts)

	payer := account(t, db, id(1))
	assert.Equal(t, currency.Balance(9_999_000_000), payer.Balance)
	assert.Equal(t, currency.Nonce(1), payer.Nonce)
	for b, a := range before {
		assert.True(t, a.Equal(account(t, db, id(b))), "account %d changed", b)
	}

	// the fee payer is recorded as it was before paying
	require.Len(t, record.Accounts, 4)
	assert.Equal(t, id(1), record.Accounts[0].Id)
	assert.Equal(t, currency.Balance(10_000_000_000), record.Accounts[0].Account.Balance)
}

func TestZkAppCommandFeePayerOnly(t *testing.T) {
	db := newLedger(t, open(1, 10_000_000_000))
	root := db.MerkleRoot()

	applied, err := ApplyTransaction(constants, slot, view, db, zkCommand(1, 1_000_000, 0))
	require.NoError(t, err)
	assert.True(t, applied.Status().IsApplied())
	assert.Equal(t, root, applied.PreviousHash)
	assert.Equal(t, currency.Balance(9_999_000_000), account(t, db, id(1)).Balance)
}

func TestZkAppCommandRejected(t *testing.T) {
	t.Run("fee payer nonce", func(t *testing.T) {
		db := newLedger(t, open(1, 10_000_000_000))
		root := db.MerkleRoot()

		_, err := ApplyTransaction(constants, slot, view, db, zkCommand(1, 1_000_000, 3))
		var rejected *RejectedError
		require.ErrorAs(t, err, &rejected)
		require.NotNil(t, rejected.Failure)
		assert.Equal(t, txerrors.AccountNoncePreconditionUnsatisfied, rejected.Failure.Code)
		var feePayerErr *zkapp.FeePayerFailedError
		assert.ErrorAs(t, err, &feePayerErr)
		assert.Equal(t, root, db.MerkleRoot())
	})
	t.Run("unauthenticated forest", func(t *testing.T) {
		db := newLedger(t, open(1, 10_000_000_000))
		cmd := zkCommand(1, 1_000_000, 0)
		cmd.AccountUpdates = callforest.NewBuilder[*types.AccountUpdate]().Build([]tree{update(id(1), currency.Zero[currency.Amount]())})

		_, err := ApplyTransaction(constants, slot, view, db, cmd)
		assert.ErrorIs(t, err, ErrUnauthenticatedForest)
	})
}

func TestZkAppCommandCreatesAccount(t *testing.T) {
	db := newLedger(t, open(1, 10_000_000_000))
	created := update(id(3), currency.OfUnsigned[currency.Amount](5_000_000_000))
	created.Elem.Body.ImplicitAccountCreationFee = true
	cmd := zkCommand(1, 1_000_000, 0,
		signedUpdate(id(1), currency.NegOf[currency.Amount](5_000_000_000)),
		created,
	)

	applied, err := ApplyTransaction(constants, slot, view, db, cmd)
	require.NoError(t, err)
	require.True(t, applied.Status().IsApplied(), applied.Status().String())
	assert.Equal(t, []types.AccountId{id(3)}, applied.NewAccounts())
	assert.Equal(t, currency.Balance(4_999_000_000), account(t, db, id(1)).Balance)
	assert.Equal(t, currency.Balance(4_000_000_000), account(t, db, id(3)).Balance)

	supply, err := applied.SupplyIncrease(constants)
	require.NoError(t, err)
	assert.True(t, currency.NegOf[currency.Amount](1_000_000_000).Equal(supply), "supply %s", supply)
}

func TestCancelAfterFirstFailure(t *testing.T) {
	nonce := []txerrors.Failure{txerrors.New(txerrors.AccountNoncePreconditionUnsatisfied)}
	cancelled := []txerrors.Failure{txerrors.New(txerrors.Cancelled)}
	tests := []struct {
		name string
		in   txerrors.Collection
		want txerrors.Collection
	}{
		{"no failure", txerrors.Collection{none, none}, txerrors.Collection{none, none}},
		{"last fails", txerrors.Collection{none, none, nonce}, txerrors.Collection{none, none, nonce}},
		{"first fails", txerrors.Collection{none, nonce, none, nonce}, txerrors.Collection{none, nonce, cancelled, nonce}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cancelAfterFirstFailure(tc.in))
		})
	}
}
