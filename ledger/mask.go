package ledger

import (
	"fmt"
	"sort"

	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/log"
	"github.com/colorfulnotion/zkapply/types"
)

// Mask records changes on top of a parent ledger without touching it until
// the parent applies the mask. The parent must not gain accounts while the
// mask is outstanding.
type Mask struct {
	parent   Ledger
	base     int
	accounts map[Location]*types.Account
	created  []types.AccountId
	index    map[types.AccountId]Location
}

func newMask(parent Ledger) *Mask {
	return &Mask{
		parent:   parent,
		base:     parent.NumAccounts(),
		accounts: make(map[Location]*types.Account),
		index:    make(map[types.AccountId]Location),
	}
}

func (m *Mask) Parent() Ledger { return m.parent }

func (m *Mask) Depth() int       { return m.parent.Depth() }
func (m *Mask) NumAccounts() int { return m.base + len(m.created) }

func (m *Mask) LocationOfAccount(id types.AccountId) (Location, bool) {
	if loc, ok := m.index[id]; ok {
		return loc, true
	}
	return m.parent.LocationOfAccount(id)
}

func (m *Mask) Get(loc Location) (*types.Account, bool) {
	if a, ok := m.accounts[loc]; ok {
		return a.Clone(), true
	}
	if int(loc) >= m.base {
		return nil, false
	}
	return m.parent.Get(loc)
}

func (m *Mask) Set(loc Location, a *types.Account) {
	if int(loc) >= m.NumAccounts() {
		panic(fmt.Sprintf("ledger: set at unallocated location %d", loc))
	}
	m.accounts[loc] = a.Clone()
}

func (m *Mask) allocate(id types.AccountId, a *types.Account) (Location, error) {
	if uint64(m.NumAccounts()) >= capacity(m.Depth()) {
		return 0, ErrLedgerFull
	}
	loc := Location(m.NumAccounts())
	m.created = append(m.created, id)
	m.index[id] = loc
	m.accounts[loc] = a.Clone()
	return loc, nil
}

func (m *Mask) GetOrCreate(id types.AccountId, a *types.Account) (GetOrCreateAction, Location, error) {
	if loc, ok := m.LocationOfAccount(id); ok {
		return Existed, loc, nil
	}
	loc, err := m.allocate(id, a)
	return Added, loc, err
}

func (m *Mask) CreateNewAccount(id types.AccountId, a *types.Account) error {
	if _, ok := m.LocationOfAccount(id); ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, id)
	}
	_, err := m.allocate(id, a)
	return err
}

func (m *Mask) MerkleRoot() common.Field {
	return merkleRoot(m.Depth(), m.NumAccounts(), func(i int) common.Field {
		a, _ := m.Get(Location(i))
		return a.Hash()
	})
}

func (m *Mask) CreateMasked() *Mask { return newMask(m) }

func (m *Mask) ApplyMask(child *Mask) error { return child.commitTo(m) }

// commitTo writes the mask's changes into parent, which must be the ledger
// the mask was created from, and leaves the mask empty.
func (m *Mask) commitTo(parent Ledger) error {
	if m.parent != parent {
		return ErrForeignMask
	}
	if parent.NumAccounts() != m.base {
		return fmt.Errorf("%w: had %d accounts, now %d", ErrStaleMask, m.base, parent.NumAccounts())
	}
	for _, id := range m.created {
		loc := m.index[id]
		if err := parent.CreateNewAccount(id, m.accounts[loc]); err != nil {
			return err
		}
	}
	locs := make([]Location, 0, len(m.accounts))
	for loc := range m.accounts {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i] < locs[j] })
	for _, loc := range locs {
		parent.Set(loc, m.accounts[loc])
	}
	log.Trace(log.LedgerMonitoring, "applied mask", "created", len(m.created), "written", len(locs))

	m.base = parent.NumAccounts()
	m.accounts = make(map[Location]*types.Account)
	m.created = nil
	m.index = make(map[types.AccountId]Location)
	return nil
}
