package txlogic

import (
	"testing"

	"github.com/colorfulnotion/zkapply/callforest"
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/ledger"
	"github.com/colorfulnotion/zkapply/txerrors"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/stretchr/testify/require"
)

const slot = currency.Slot(5)

var (
	constants = types.TestConstraintConstants()
	view      = &types.ProtocolStateView{BlockchainLength: 3, GlobalSlotSinceGenesis: slot}

	none = []txerrors.Failure{}
	unpb = []txerrors.Failure{txerrors.New(txerrors.UpdateNotPermittedBalance)}
)

func key(b byte) common.PublicKey {
	var pk common.PublicKey
	pk[0], pk[31] = b, b
	return pk
}

func id(b byte) types.AccountId { return types.DefaultAccountId(key(b)) }

func open(b byte, balance currency.Balance) *types.Account {
	return types.NewAccount(id(b), balance)
}

// closed is an account that refuses every credit.
func closed(b byte, balance currency.Balance) *types.Account {
	a := types.NewAccount(id(b), balance)
	a.Permissions.Receive = types.AuthImpossible
	return a
}

func newLedger(t *testing.T, accounts ...*types.Account) *ledger.Database {
	db := ledger.Empty(int(constants.LedgerDepth))
	for _, a := range accounts {
		require.NoError(t, db.CreateNewAccount(a.Id(), a))
	}
	return db
}

func account(t *testing.T, l ledger.Ledger, i types.AccountId) *types.Account {
	a, _, ok := ledger.GetAccount(l, i)
	require.True(t, ok, "missing %s", i)
	return a
}

func absent(t *testing.T, l ledger.Ledger, i types.AccountId) {
	_, ok := l.LocationOfAccount(i)
	require.False(t, ok, "unexpected %s", i)
}

func payment(from, to byte, amount currency.Amount, fee currency.Fee, nonce currency.Nonce) *types.SignedCommand {
	return &types.SignedCommand{
		Payload: types.SignedCommandPayload{
			Common: types.SignedCommandCommon{
				Fee:        fee,
				FeePayerPk: key(from),
				Nonce:      nonce,
				ValidUntil: currency.MaxSlot,
				Memo:       types.EmptyMemo(),
			},
			Body: types.PaymentBody(key(to), amount),
		},
		Signer: key(from),
	}
}

func delegation(from, to byte, fee currency.Fee) *types.SignedCommand {
	c := payment(from, to, 0, fee, 0)
	c.Payload.Body = types.StakeDelegationBody(key(to))
	return c
}

type tree = callforest.Node[*types.AccountUpdate]

func zkCommand(payer byte, fee currency.Fee, nonce currency.Nonce, trees ...tree) *types.ZkAppCommand {
	forest := callforest.NewBuilder[*types.AccountUpdate]().Build(trees)
	callforest.AccumulateHashes(forest)
	return &types.ZkAppCommand{
		FeePayer: types.FeePayer{
			Body:          types.FeePayerBody{PublicKey: key(payer), Fee: fee, Nonce: nonce},
			Authorization: []byte{1},
		},
		AccountUpdates: forest,
		Memo:           types.EmptyMemo(),
	}
}

func signedUpdate(i types.AccountId, change currency.Signed[currency.Amount]) tree {
	u := types.NewAccountUpdate(i)
	u.Body.BalanceChange = change
	u.Body.UseFullCommitment = true
	u.Body.AuthorizationKind = types.AuthorizationKind{Tag: types.ControlSignature}
	u.Authorization = types.SignatureControl([]byte{2})
	return tree{Elem: u}
}

func update(i types.AccountId, change currency.Signed[currency.Amount]) tree {
	u := types.NewAccountUpdate(i)
	u.Body.BalanceChange = change
	return tree{Elem: u}
}
