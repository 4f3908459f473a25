// Package txlogic applies transactions to a ledger and records what
// happened, including partial failures.
package txlogic

import (
	"fmt"

	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/ledger"
	"github.com/colorfulnotion/zkapply/log"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/colorfulnotion/zkapply/zkapp"
)

// ApplyTransactionFirstPass applies everything but the account updates of
// a zkApp command. Signed commands, fee transfers and coinbases finish here.
func ApplyTransactionFirstPass(constants types.ConstraintConstants, slot currency.Slot, view *types.ProtocolStateView, l ledger.Ledger, txn types.Transaction) (*TransactionPartiallyApplied, error) {
	return firstPass(constants, slot, view, l, txn, zkapp.LedgerHandler{})
}

func firstPass(constants types.ConstraintConstants, slot currency.Slot, view *types.ProtocolStateView, l ledger.Ledger, txn types.Transaction, h zkapp.Handler) (*TransactionPartiallyApplied, error) {
	previousHash := l.MerkleRoot()
	var v Varying
	switch t := txn.(type) {
	case *types.SignedCommand:
		applied, err := ApplyUserCommand(constants, slot, l, t)
		if err != nil {
			return nil, err
		}
		v.SignedCommand = applied
	case *types.ZkAppCommand:
		partial, err := ApplyZkAppCommandFirstPass(constants, slot, view, l, t, h)
		if err != nil {
			return nil, err
		}
		return &TransactionPartiallyApplied{ZkApp: partial}, nil
	case *types.FeeTransfer:
		applied, err := ApplyFeeTransfer(constants, slot, l, t)
		if err != nil {
			return nil, err
		}
		v.FeeTransfer = applied
	case *types.Coinbase:
		applied, err := ApplyCoinbase(constants, slot, l, t)
		if err != nil {
			return nil, err
		}
		v.Coinbase = applied
	default:
		return nil, fmt.Errorf("unknown transaction %T", txn)
	}
	return &TransactionPartiallyApplied{Applied: &TransactionApplied{PreviousHash: previousHash, Varying: v}}, nil
}

// ApplyTransactionSecondPass completes a first-pass result against l.
func ApplyTransactionSecondPass(l ledger.Ledger, p *TransactionPartiallyApplied) (*TransactionApplied, error) {
	return secondPass(l, p, zkapp.LedgerHandler{})
}

func secondPass(l ledger.Ledger, p *TransactionPartiallyApplied, h zkapp.Handler) (*TransactionApplied, error) {
	switch {
	case p == nil:
		return nil, ErrNotFirstPassResult
	case p.Applied != nil:
		return p.Applied, nil
	case p.ZkApp != nil:
		return ApplyZkAppCommandSecondPass(l, p.ZkApp, h)
	}
	return nil, ErrNotFirstPassResult
}

// ApplyTransaction runs both passes of one transaction.
func ApplyTransaction(constants types.ConstraintConstants, slot currency.Slot, view *types.ProtocolStateView, l ledger.Ledger, txn types.Transaction) (*TransactionApplied, error) {
	p, err := ApplyTransactionFirstPass(constants, slot, view, l, txn)
	if err != nil {
		return nil, err
	}
	return ApplyTransactionSecondPass(l, p)
}

// ApplyTransactions runs every first pass in order, then every second pass.
// The first error stops the batch; the ledger keeps what was applied.
func ApplyTransactions(constants types.ConstraintConstants, slot currency.Slot, view *types.ProtocolStateView, l ledger.Ledger, txns []types.Transaction) ([]*TransactionApplied, error) {
	return ApplyTransactionsWith(zkapp.LedgerHandler{}, constants, slot, view, l, txns)
}

// ApplyTransactionsWith is ApplyTransactions with the zkApp checks
// delegated to h.
func ApplyTransactionsWith(h zkapp.Handler, constants types.ConstraintConstants, slot currency.Slot, view *types.ProtocolStateView, l ledger.Ledger, txns []types.Transaction) ([]*TransactionApplied, error) {
	partial := make([]*TransactionPartiallyApplied, 0, len(txns))
	for i, txn := range txns {
		p, err := firstPass(constants, slot, view, l, txn, h)
		if err != nil {
			log.Warn(log.TxLogicMonitoring, "transaction rejected", "index", i, "kind", txn.Kind(), "err", err)
			return nil, fmt.Errorf("transaction %d (%s): %w", i, txn.Kind(), err)
		}
		partial = append(partial, p)
	}
	out := make([]*TransactionApplied, 0, len(partial))
	for i, p := range partial {
		applied, err := secondPass(l, p, h)
		if err != nil {
			log.Warn(log.TxLogicMonitoring, "second pass failed", "index", i, "err", err)
			return out, fmt.Errorf("transaction %d (%s): %w", i, txns[i].Kind(), err)
		}
		out = append(out, applied)
	}
	log.Debug(log.TxLogicMonitoring, "batch applied", "transactions", len(out), "root", l.MerkleRoot())
	return out, nil
}
