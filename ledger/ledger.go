// Package ledger is the account store the transaction logic runs against:
// an in-memory Database, optionally persisted to leveldb, and copy-on-write
// Masks layered on top of it.
package ledger

import (
	"errors"

	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/types"
)

var (
	ErrLedgerFull    = errors.New("ledger full")
	ErrForeignMask   = errors.New("mask was not created from this ledger")
	ErrStaleMask     = errors.New("parent ledger grew after the mask was created")
	ErrAccountExists = errors.New("account already exists")
)

// Location is the index of an account's leaf.
type Location uint64

// GetOrCreateAction reports what GetOrCreate did.
type GetOrCreateAction uint8

const (
	Existed GetOrCreateAction = iota
	Added
)

// Ledger is the account store capability consumed by transaction logic.
// Get returns a copy; changes are only visible after Set.
type Ledger interface {
	Depth() int
	NumAccounts() int
	LocationOfAccount(id types.AccountId) (Location, bool)
	Get(loc Location) (*types.Account, bool)
	Set(loc Location, a *types.Account)
	// GetOrCreate stores a at a fresh location unless id is already present.
	GetOrCreate(id types.AccountId, a *types.Account) (GetOrCreateAction, Location, error)
	CreateNewAccount(id types.AccountId, a *types.Account) error
	MerkleRoot() common.Field
	CreateMasked() *Mask
	ApplyMask(m *Mask) error
}

// Empty returns an in-memory ledger with no accounts.
func Empty(depth int) *Database {
	return NewDatabase(depth)
}

// GetAccount looks an account up by id.
func GetAccount(l Ledger, id types.AccountId) (*types.Account, Location, bool) {
	loc, ok := l.LocationOfAccount(id)
	if !ok {
		return nil, 0, false
	}
	a, ok := l.Get(loc)
	if !ok {
		panic("ledger: location without account")
	}
	return a, loc, true
}

func capacity(depth int) uint64 {
	if depth >= 64 {
		return ^uint64(0)
	}
	return uint64(1) << depth
}
