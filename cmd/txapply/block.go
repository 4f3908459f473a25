package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/colorfulnotion/zkapply/chainspecs"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/ledger"
	log "github.com/colorfulnotion/zkapply/log"
	"github.com/colorfulnotion/zkapply/storage"
	"github.com/colorfulnotion/zkapply/types"
)

// Block is the input file of the apply, forest, receipt and sign commands.
type Block struct {
	GlobalSlot    currency.Slot           `json:"global_slot"`
	ProtocolState types.ProtocolStateView `json:"protocol_state"`
	Transactions  []types.Envelope        `json:"transactions"`
}

func readBlock(path string) (*Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("block %s: %w", path, err)
	}
	return &b, nil
}

func writeBlock(path string, b *Block) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func (b *Block) transactions() []types.Transaction {
	out := make([]types.Transaction, len(b.Transactions))
	for i, e := range b.Transactions {
		out[i] = e.Transaction
	}
	return out
}

// openLedger returns the genesis ledger of spec, or the ledger stored in
// dir. A fresh store is seeded with the genesis accounts. The returned
// close function commits nothing; callers commit explicitly.
func openLedger(spec *chainspecs.ChainSpec, dir string) (*ledger.Database, func() error, error) {
	if dir == "" {
		db, err := spec.GenesisLedger()
		return db, func() error { return nil }, err
	}
	store, err := storage.NewPersistenceStore(dir)
	if err != nil {
		return nil, nil, err
	}
	db, err := ledger.OpenDatabase(store, int(spec.Constants.LedgerDepth))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	if db.NumAccounts() == 0 {
		if err := spec.LoadGenesis(db); err != nil {
			store.Close()
			return nil, nil, err
		}
		log.Info(log.CLI, "seeded ledger store", "path", dir, "accounts", db.NumAccounts())
	}
	return db, store.Close, nil
}
