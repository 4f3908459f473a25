package chainspecs

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/ledger"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/colorfulnotion/zkapply/verifier"
)

//go:embed *.json
var configFS embed.FS

var networkFile = map[string]string{
	"devnet":  "devnet-spec.json",
	"mainnet": "mainnet-spec.json",
}

var ErrGenesisAccountKey = errors.New("genesis account needs exactly one of seed and pk")

// ReadSpec loads a built-in network profile by name, or a spec file by path.
func ReadSpec(id string) (spec *ChainSpec, err error) {
	var data []byte
	path, ok := networkFile[id]
	if ok {
		data, err = configFS.ReadFile(path)
		if err != nil {
			return spec, err
		}
	} else {
		data, err = os.ReadFile(id)
		if err != nil {
			return spec, err
		}
	}
	if err := json.Unmarshal(data, &spec); err != nil {
		return spec, fmt.Errorf("chain spec %s: %w", id, err)
	}
	return spec, nil
}

// GenesisAccount is keyed either by a development seed or by a public key.
type GenesisAccount struct {
	Seed      string            `json:"seed,omitempty"`
	PublicKey *common.PublicKey `json:"pk,omitempty"`
	Balance   currency.Balance  `json:"balance"`
	Delegate  *common.PublicKey `json:"delegate,omitempty"`
	Timing    *types.Timing     `json:"timing,omitempty"`
}

func (g GenesisAccount) Key() (common.PublicKey, error) {
	switch {
	case g.Seed != "" && g.PublicKey == nil:
		return verifier.KeyFromSeed([]byte(g.Seed)).PublicKey(), nil
	case g.Seed == "" && g.PublicKey != nil:
		return *g.PublicKey, nil
	}
	return common.PublicKey{}, ErrGenesisAccountKey
}

type ChainSpec struct {
	ID              string                    `json:"id"`
	Constants       types.ConstraintConstants `json:"constraint_constants"`
	GenesisAccounts []GenesisAccount          `json:"genesis_accounts"`
}

func (cs *ChainSpec) ConstraintConstants() types.ConstraintConstants { return cs.Constants }

// LoadGenesis creates every genesis account in l, in spec order.
func (cs *ChainSpec) LoadGenesis(l ledger.Ledger) error {
	for i, g := range cs.GenesisAccounts {
		pk, err := g.Key()
		if err != nil {
			return fmt.Errorf("genesis account %d: %w", i, err)
		}
		id := types.DefaultAccountId(pk)
		a := types.NewAccount(id, g.Balance)
		if g.Delegate != nil {
			d := *g.Delegate
			a.Delegate = &d
		}
		if g.Timing != nil {
			a.Timing = *g.Timing
		}
		if err := l.CreateNewAccount(id, a); err != nil {
			return fmt.Errorf("genesis account %d (%s): %w", i, id, err)
		}
	}
	return nil
}

// GenesisLedger is an in-memory ledger holding the genesis accounts.
func (cs *ChainSpec) GenesisLedger() (*ledger.Database, error) {
	db := ledger.Empty(int(cs.Constants.LedgerDepth))
	if err := cs.LoadGenesis(db); err != nil {
		return nil, err
	}
	return db, nil
}

type DevConfig struct {
	ID        string                     `json:"id"`
	Network   string                     `json:"network"`
	Accounts  []DevAccount               `json:"accounts"`
	Overrides *types.ConstraintConstants `json:"constraint_constants,omitempty"`
}

type DevAccount struct {
	Seed    string           `json:"seed"`
	Balance currency.Balance `json:"balance"`
}

// GenSpec builds a spec from a base network profile and a list of seeded
// development accounts.
func GenSpec(dev DevConfig) (chainSpec *ChainSpec, err error) {
	base, err := ReadSpec(dev.Network)
	if err != nil {
		return nil, err
	}
	chainSpec = &ChainSpec{ID: dev.ID, Constants: base.Constants}
	if dev.Overrides != nil {
		chainSpec.Constants = *dev.Overrides
	}
	for _, a := range dev.Accounts {
		chainSpec.GenesisAccounts = append(chainSpec.GenesisAccounts, GenesisAccount{Seed: a.Seed, Balance: a.Balance})
	}
	return chainSpec, nil
}
