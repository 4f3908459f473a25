package txlogic

import (
	"fmt"

	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/holiman/uint256"
)

// BlockAccounting totals a block's applied transactions. Sums are kept in
// 256 bits so a block can be checked without overflowing midway.
type BlockAccounting struct {
	FeeExcess    types.FeeExcess
	Minted       *uint256.Int
	Burned       *uint256.Int
	CreationFees *uint256.Int
	Transactions int
}

func NewBlockAccounting() *BlockAccounting {
	return &BlockAccounting{
		FeeExcess:    types.ZeroFeeExcess(),
		Minted:       new(uint256.Int),
		Burned:       new(uint256.Int),
		CreationFees: new(uint256.Int),
	}
}

// Add folds one applied transaction in.
func (b *BlockAccounting) Add(constants types.ConstraintConstants, t *TransactionApplied) error {
	txn := t.Transaction()
	if txn == nil {
		return fmt.Errorf("applied record %d holds no transaction", b.Transactions)
	}
	fe, err := txn.FeeExcess()
	if err != nil {
		return err
	}
	if b.FeeExcess, err = b.FeeExcess.Combine(fe); err != nil {
		return fmt.Errorf("transaction %d: %w", b.Transactions, err)
	}
	creation := new(uint256.Int).Mul(
		uint256.NewInt(uint64(constants.AccountCreationFee)),
		uint256.NewInt(uint64(len(t.NewAccounts()))),
	)
	b.Minted.Add(b.Minted, uint256.NewInt(uint64(txn.ExpectedSupplyIncrease())))
	b.Burned.Add(b.Burned, uint256.NewInt(uint64(t.BurnedTokens())))
	b.CreationFees.Add(b.CreationFees, creation)
	b.Transactions++
	return nil
}

// FeeBalanced reports whether every fee collected was paid out.
func (b *BlockAccounting) FeeBalanced() bool { return b.FeeExcess.IsZero() }

// SupplyIncrease is the block's net change in total currency.
func (b *BlockAccounting) SupplyIncrease() (currency.Signed[currency.Amount], error) {
	removed := new(uint256.Int).Add(b.Burned, b.CreationFees)
	sgn, diff := currency.Pos, new(uint256.Int)
	if b.Minted.Lt(removed) {
		sgn = currency.Neg
		diff.Sub(removed, b.Minted)
	} else {
		diff.Sub(b.Minted, removed)
	}
	if !diff.IsUint64() {
		return currency.Signed[currency.Amount]{}, fmt.Errorf("%w: block supply change %s", ErrOverflow, diff.Dec())
	}
	if diff.IsZero() {
		return currency.Zero[currency.Amount](), nil
	}
	return currency.Signed[currency.Amount]{Magnitude: currency.Amount(diff.Uint64()), Sgn: sgn}, nil
}

// AccountBlock totals a block's applied transactions.
func AccountBlock(constants types.ConstraintConstants, applied []*TransactionApplied) (*BlockAccounting, error) {
	b := NewBlockAccounting()
	for _, t := range applied {
		if err := b.Add(constants, t); err != nil {
			return nil, err
		}
	}
	return b, nil
}
