package precondition

import (
	"testing"

	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/txerrors"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/stretchr/testify/require"
)

func account() *types.Account {
	var pk common.PublicKey
	pk[0] = 7
	a := types.NewAccount(types.DefaultAccountId(pk), 100)
	a.Nonce = 4
	return a
}

func TestAllIgnorePasses(t *testing.T) {
	a := account()
	require.Empty(t, AccountFailures(types.AcceptPrecondition(), a, false))
	require.Empty(t, AccountFailures(types.FullPrecondition(types.AccountConditions{}), a, true))
	require.Empty(t, Network(&types.NetworkPreconditions{}, &types.ProtocolStateView{BlockchainLength: 9}))
	require.True(t, ValidWhile(types.Numeric[currency.Slot]{}, 123))
}

func TestAccountFailures(t *testing.T) {
	a := account()
	tests := []struct {
		name  string
		cond  types.AccountConditions
		isNew bool
		want  []txerrors.Failure
	}{
		{
			name: "balance out of range",
			cond: types.AccountConditions{Balance: types.Between[currency.Balance](0, 99)},
			want: []txerrors.Failure{txerrors.New(txerrors.AccountBalancePreconditionUnsatisfied)},
		},
		{
			name: "nonce and is_new",
			cond: types.AccountConditions{Nonce: types.Exactly[currency.Nonce](3), IsNew: types.Equals(true)},
			want: []txerrors.Failure{
				txerrors.New(txerrors.AccountNoncePreconditionUnsatisfied),
				txerrors.New(txerrors.AccountIsNewPreconditionUnsatisfied),
			},
		},
		{
			name: "app state slot",
			cond: func() types.AccountConditions {
				var c types.AccountConditions
				c.State[2] = types.Equals(common.FieldFromUint64(1))
				return c
			}(),
			want: []txerrors.Failure{txerrors.AppState(2)},
		},
		{
			name: "action state matches any retained slot",
			cond: types.AccountConditions{ActionState: types.Equals(types.EmptyActionStateElement())},
		},
		{
			name:  "satisfied",
			cond:  types.AccountConditions{Balance: types.Between[currency.Balance](100, 200), Nonce: types.Exactly[currency.Nonce](4), IsNew: types.Equals(true)},
			isNew: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AccountFailures(types.FullPrecondition(tc.cond), a, tc.isNew)
			require.Equal(t, tc.want, got)
		})
	}

	t.Run("nonce precondition", func(t *testing.T) {
		require.Empty(t, AccountFailures(types.NoncePrecondition(4), a, false))
		require.Len(t, AccountFailures(types.NoncePrecondition(5), a, false), 1)
	})
}

func TestNetwork(t *testing.T) {
	view := &types.ProtocolStateView{BlockchainLength: 10, GlobalSlotSinceGenesis: 50}
	p := &types.NetworkPreconditions{
		BlockchainLength:       types.Between[currency.Length](11, 20),
		GlobalSlotSinceGenesis: types.Between[currency.Slot](40, 60),
	}
	p.StakingEpochData.Seed = types.Equals(common.FieldFromUint64(3))
	got := Network(p, view)
	require.Equal(t, []Mismatch{{Field: "blockchain_length"}, {Field: "staking_epoch_data.seed"}}, got)
}
