package txlogic

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/nsf/jsondiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTransactionsBlock(t *testing.T) {
	db := newLedger(t, open(1, 100_000_000_000), open(2, 100_000_000_000))
	ft, err := types.NewFeeTransfer(single(1, 3_000_000))
	require.NoError(t, err)
	cb, err := types.NewCoinbase(key(2), 10_000_000_000, nil)
	require.NoError(t, err)
	txns := []types.Transaction{
		payment(1, 3, 5_000_000_000, 1_000_000, 0),
		zkCommand(2, 2_000_000, 0),
		ft,
		cb,
	}

	applied, err := ApplyTransactions(constants, slot, view, db, txns)
	require.NoError(t, err)
	require.Len(t, applied, len(txns))
	for i, a := range applied {
		assert.True(t, a.Status().IsApplied(), "transaction %d: %s", i, a.Status())
		assert.Equal(t, txns[i], a.Transaction())
	}

	block, err := AccountBlock(constants, applied)
	require.NoError(t, err)
	assert.True(t, block.FeeBalanced(), "fee excess %s", block.FeeExcess)
	assert.Equal(t, len(txns), block.Transactions)
	supply, err := block.SupplyIncrease()
	require.NoError(t, err)
	assert.True(t, currency.OfUnsigned[currency.Amount](9_000_000_000).Equal(supply), "supply %s", supply)

	assert.Equal(t, currency.Balance(95_002_000_000), account(t, db, id(1)).Balance)
	assert.Equal(t, currency.Balance(109_998_000_000), account(t, db, id(2)).Balance)
	assert.Equal(t, currency.Balance(4_000_000_000), account(t, db, id(3)).Balance)
}

func TestApplyTransactionsStopsAtRejection(t *testing.T) {
	db := newLedger(t, open(1, 100_000_000_000))
	txns := []types.Transaction{
		payment(1, 1, 1, 1_000_000, 0),
		payment(1, 1, 1, 1_000_000, 0),
	}

	_, err := ApplyTransactions(constants, slot, view, db, txns)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncorrectNonce)
	assert.Contains(t, err.Error(), "transaction 1")
	// the first payment stays applied
	assert.Equal(t, currency.Nonce(1), account(t, db, id(1)).Nonce)
}

func TestSecondPassNeedsFirstPass(t *testing.T) {
	_, err := ApplyTransactionSecondPass(newLedger(t), nil)
	assert.ErrorIs(t, err, ErrNotFirstPassResult)
	_, err = ApplyTransactionSecondPass(newLedger(t), &TransactionPartiallyApplied{})
	assert.ErrorIs(t, err, ErrNotFirstPassResult)
}

func TestFeeTransferAppliedJSON(t *testing.T) {
	pk := key(1).Hex()
	tests := []struct {
		name   string
		open   bool
		status string
		burned int
	}{
		{"applied", true, `{"status":"applied"}`, 0},
		{"refused", false, `{"status":"failed","failures":[["Update_not_permitted_balance"]]}`, 500},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			receiver := open(1, 1_000)
			if !tc.open {
				receiver = closed(1, 1_000)
			}
			db := newLedger(t, receiver)
			ft, err := types.NewFeeTransfer(single(1, 500))
			require.NoError(t, err)

			applied, err := ApplyTransaction(constants, slot, view, db, ft)
			require.NoError(t, err)
			got, err := json.Marshal(applied)
			require.NoError(t, err)

			want := fmt.Sprintf(`{
				"previous_hash": %q,
				"varying": {"fee_transfer": {
					"fee_transfer": {
						"data": {"first": {"receiver_pk": %q, "fee": 500, "fee_token": "1"}},
						"status": %s
					},
					"burned_tokens": %d
				}}
			}`, applied.PreviousHash.String(), pk, tc.status, tc.burned)
			opts := jsondiff.DefaultConsoleOptions()
			diff, desc := jsondiff.Compare(got, []byte(want), &opts)
			assert.Equal(t, jsondiff.FullMatch, diff, desc)
		})
	}
}
