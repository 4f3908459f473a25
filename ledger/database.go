package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/colorfulnotion/zkapply/codec"
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/log"
	"github.com/colorfulnotion/zkapply/storage"
	"github.com/colorfulnotion/zkapply/types"
)

var accountPrefix = []byte("acct")

func depthKey() common.Hash { return common.Blake2Hash([]byte("zkapply/ledger/depth")) }

// Database is the root ledger. Accounts live in memory; when a
// PersistenceStore is attached, Commit writes changed accounts to it.
type Database struct {
	depth    int
	accounts []*types.Account
	index    map[types.AccountId]Location

	store *storage.PersistenceStore
	dirty map[Location]struct{}

	root      common.Field
	rootValid bool
}

func NewDatabase(depth int) *Database {
	return &Database{
		depth: depth,
		index: make(map[types.AccountId]Location),
		dirty: make(map[Location]struct{}),
	}
}

// OpenDatabase loads every account held in store. A fresh store records
// depth; a store written with another depth is refused.
func OpenDatabase(store *storage.PersistenceStore, depth int) (*Database, error) {
	db := NewDatabase(depth)
	db.store = store

	raw, err := store.GetHash(depthKey())
	switch {
	case storage.IsNotFound(err):
		if err := store.PutHash(depthKey(), common.Uint32ToBytes(uint32(depth))); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case len(raw) != 4 || int(binary.LittleEndian.Uint32(raw)) != depth:
		return nil, fmt.Errorf("ledger store has depth %x, want %d", raw, depth)
	}

	kvs, err := store.GetWithPrefix(accountPrefix)
	if err != nil {
		return nil, err
	}
	for i, kv := range kvs {
		loc := Location(binary.BigEndian.Uint64(kv[0][len(accountPrefix):]))
		if loc != Location(i) {
			return nil, fmt.Errorf("ledger store has a gap at location %d", i)
		}
		a := new(types.Account)
		if err := codec.Unmarshal(kv[1], a); err != nil {
			return nil, fmt.Errorf("decode account at %d: %w", loc, err)
		}
		db.accounts = append(db.accounts, a)
		db.index[a.Id()] = loc
	}
	log.Debug(log.LedgerMonitoring, "opened ledger", "path", store.Path(), "accounts", len(db.accounts))
	return db, nil
}

func accountKey(loc Location) []byte {
	k := make([]byte, len(accountPrefix)+8)
	copy(k, accountPrefix)
	binary.BigEndian.PutUint64(k[len(accountPrefix):], uint64(loc))
	return k
}

// Commit persists accounts changed since the last commit. It is a no-op
// without a store.
func (db *Database) Commit() error {
	if db.store == nil || len(db.dirty) == 0 {
		return nil
	}
	batch := &storage.Batch{}
	for loc := range db.dirty {
		enc, err := codec.Marshal(db.accounts[loc])
		if err != nil {
			return fmt.Errorf("encode account at %d: %w", loc, err)
		}
		batch.Put(accountKey(loc), enc)
	}
	if err := db.store.Write(batch); err != nil {
		return err
	}
	log.Debug(log.LedgerMonitoring, "committed ledger", "accounts", len(db.dirty))
	db.dirty = make(map[Location]struct{})
	return nil
}

func (db *Database) Depth() int       { return db.depth }
func (db *Database) NumAccounts() int { return len(db.accounts) }

func (db *Database) LocationOfAccount(id types.AccountId) (Location, bool) {
	loc, ok := db.index[id]
	return loc, ok
}

func (db *Database) Get(loc Location) (*types.Account, bool) {
	if uint64(loc) >= uint64(len(db.accounts)) {
		return nil, false
	}
	return db.accounts[loc].Clone(), true
}

func (db *Database) Set(loc Location, a *types.Account) {
	if uint64(loc) >= uint64(len(db.accounts)) {
		panic(fmt.Sprintf("ledger: set at unallocated location %d", loc))
	}
	db.accounts[loc] = a.Clone()
	db.touch(loc)
}

func (db *Database) touch(loc Location) {
	db.dirty[loc] = struct{}{}
	db.rootValid = false
}

func (db *Database) allocate(id types.AccountId, a *types.Account) (Location, error) {
	if uint64(len(db.accounts)) >= capacity(db.depth) {
		return 0, ErrLedgerFull
	}
	loc := Location(len(db.accounts))
	db.accounts = append(db.accounts, a.Clone())
	db.index[id] = loc
	db.touch(loc)
	return loc, nil
}

func (db *Database) GetOrCreate(id types.AccountId, a *types.Account) (GetOrCreateAction, Location, error) {
	if loc, ok := db.index[id]; ok {
		return Existed, loc, nil
	}
	loc, err := db.allocate(id, a)
	return Added, loc, err
}

func (db *Database) CreateNewAccount(id types.AccountId, a *types.Account) error {
	if _, ok := db.index[id]; ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, id)
	}
	_, err := db.allocate(id, a)
	return err
}

func (db *Database) MerkleRoot() common.Field {
	if !db.rootValid {
		db.root = merkleRoot(db.depth, len(db.accounts), func(i int) common.Field { return db.accounts[i].Hash() })
		db.rootValid = true
	}
	return db.root
}

func (db *Database) CreateMasked() *Mask { return newMask(db) }

func (db *Database) ApplyMask(m *Mask) error { return m.commitTo(db) }

// Accounts returns copies of all accounts in location order.
func (db *Database) Accounts() []*types.Account {
	out := make([]*types.Account, len(db.accounts))
	for i, a := range db.accounts {
		out[i] = a.Clone()
	}
	return out
}
