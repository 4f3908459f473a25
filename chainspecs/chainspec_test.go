package chainspecs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/colorfulnotion/zkapply/chainspecs/configs"
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/ledger"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/colorfulnotion/zkapply/verifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBuiltinSpecs(t *testing.T) {
	tests := []struct {
		id       string
		depth    uint64
		accounts int
	}{
		{"devnet", 20, 4},
		{"mainnet", 35, 0},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			spec, err := ReadSpec(tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.id, spec.ID)
			c := spec.ConstraintConstants()
			assert.Equal(t, tc.depth, c.LedgerDepth)
			assert.Equal(t, currency.Fee(1_000_000_000), c.AccountCreationFee)
			assert.Equal(t, currency.Amount(720_000_000_000), c.CoinbaseAmount)
			assert.Len(t, spec.GenesisAccounts, tc.accounts)
		})
	}
	_, err := ReadSpec(configs.Network)
	assert.NoError(t, err)
}

func TestGenesisLedger(t *testing.T) {
	spec, err := ReadSpec("devnet")
	require.NoError(t, err)
	db, err := spec.GenesisLedger()
	require.NoError(t, err)
	assert.Equal(t, 4, db.NumAccounts())

	alice := types.DefaultAccountId(verifier.KeyFromSeed([]byte("alice")).PublicKey())
	a, _, ok := ledger.GetAccount(db, alice)
	require.True(t, ok)
	assert.Equal(t, currency.Balance(1_000_000_000_000_000), a.Balance)
	assert.Equal(t, alice.PublicKey, a.DelegateOrEmpty())

	dave := types.DefaultAccountId(verifier.KeyFromSeed([]byte("dave")).PublicKey())
	d, _, ok := ledger.GetAccount(db, dave)
	require.True(t, ok)
	assert.True(t, d.Timing.IsTimed)
	assert.True(t, d.HasLockedTokens(0))

	again, err := spec.GenesisLedger()
	require.NoError(t, err)
	assert.Equal(t, db.MerkleRoot(), again.MerkleRoot())
}

func TestReadSpecFromFile(t *testing.T) {
	var pk common.PublicKey
	pk[0] = 7
	spec := ChainSpec{
		ID:              "local",
		Constants:       types.TestConstraintConstants(),
		GenesisAccounts: []GenesisAccount{{PublicKey: &pk, Balance: 42}},
	}
	data, err := json.Marshal(spec)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "local-spec.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := ReadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, spec, *got)

	db, err := got.GenesisLedger()
	require.NoError(t, err)
	a, _, ok := ledger.GetAccount(db, types.DefaultAccountId(pk))
	require.True(t, ok)
	assert.Equal(t, currency.Balance(42), a.Balance)
}

func TestGenesisAccountKey(t *testing.T) {
	var pk common.PublicKey
	tests := []struct {
		name    string
		account GenesisAccount
		ok      bool
	}{
		{"seed", GenesisAccount{Seed: "erin"}, true},
		{"public key", GenesisAccount{PublicKey: &pk}, true},
		{"both", GenesisAccount{Seed: "erin", PublicKey: &pk}, false},
		{"neither", GenesisAccount{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.account.Key()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrGenesisAccountKey)
			}
		})
	}
}

func TestGenSpec(t *testing.T) {
	spec, err := GenSpec(DevConfig{
		ID:       "local",
		Network:  "devnet",
		Accounts: []DevAccount{{Seed: "erin", Balance: 5}, {Seed: "frank", Balance: 6}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(20), spec.Constants.LedgerDepth)
	require.Len(t, spec.GenesisAccounts, 2)

	db, err := spec.GenesisLedger()
	require.NoError(t, err)
	assert.Equal(t, 2, db.NumAccounts())
}
