package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/colorfulnotion/zkapply/chainspecs"
	log "github.com/colorfulnotion/zkapply/log"
	"github.com/colorfulnotion/zkapply/txlogic"
	"github.com/colorfulnotion/zkapply/verifier"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type applyOptions struct {
	network  string
	txns     string
	expected string
	ledgerDB string
}

var errReportMismatch = errors.New("apply report differs from expected")

// applyReport is what apply prints.
type applyReport struct {
	Applied        []*txlogic.TransactionApplied `json:"applied"`
	LedgerHash     string                        `json:"ledger_hash"`
	FeeBalanced    bool                          `json:"fee_balanced"`
	SupplyIncrease string                        `json:"supply_increase"`
}

func newApplyCmd() *cobra.Command {
	var opts applyOptions
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Verify and apply a block of transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	networkFlag(cmd, &opts.network)
	cmd.Flags().StringVar(&opts.txns, "txns", "", "Block file with the transactions to apply")
	cmd.Flags().StringVar(&opts.expected, "expected", "", "Earlier apply report to compare the result against")
	cmd.Flags().StringVar(&opts.ledgerDB, "ledger-db", "", "Ledger store directory (in-memory genesis ledger when empty)")
	cmd.MarkFlagRequired("txns")
	return cmd
}

func runApply(ctx context.Context, opts applyOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := tracer().Start(ctx, "apply")
	defer span.End()

	spec, err := chainspecs.ReadSpec(opts.network)
	if err != nil {
		return fail(span, err)
	}
	block, err := readBlock(opts.txns)
	if err != nil {
		return fail(span, err)
	}
	db, closeStore, err := openLedger(spec, opts.ledgerDB)
	if err != nil {
		return fail(span, err)
	}
	defer closeStore()
	span.SetAttributes(
		attribute.String("network", spec.ID),
		attribute.Int("transactions", len(block.Transactions)),
		attribute.Int64("global_slot", int64(block.GlobalSlot)),
	)

	txns := block.transactions()
	for i, txn := range txns {
		_, vspan := tracer().Start(ctx, "verify", trace.WithAttributes(
			attribute.Int("index", i),
			attribute.String("kind", txn.Kind().String()),
		))
		err := verifier.VerifyTransaction(txn)
		vspan.End()
		if err != nil {
			return fail(span, fmt.Errorf("transaction %d (%s): %w", i, txn.Kind(), err))
		}
	}

	constants := spec.ConstraintConstants()
	applied, err := txlogic.ApplyTransactionsWith(verifier.Handler{}, constants, block.GlobalSlot, &block.ProtocolState, db, txns)
	if err != nil {
		return fail(span, err)
	}
	for i, a := range applied {
		span.AddEvent("applied", trace.WithAttributes(
			attribute.Int("index", i),
			attribute.String("kind", txns[i].Kind().String()),
			attribute.String("status", a.Status().String()),
		))
	}
	if err := db.Commit(); err != nil {
		return fail(span, err)
	}

	acct, err := txlogic.AccountBlock(constants, applied)
	if err != nil {
		return fail(span, err)
	}
	supply, err := acct.SupplyIncrease()
	if err != nil {
		return fail(span, err)
	}
	report := applyReport{
		Applied:        applied,
		LedgerHash:     db.MerkleRoot().String(),
		FeeBalanced:    acct.FeeBalanced(),
		SupplyIncrease: supply.String(),
	}
	log.Info(log.CLI, "block applied", "transactions", len(applied), "ledger", report.LedgerHash, "fee_balanced", report.FeeBalanced)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fail(span, err)
	}
	if opts.expected != "" {
		want, err := os.ReadFile(opts.expected)
		if err != nil {
			return fail(span, err)
		}
		diff, same, err := diffJSON(want, out)
		if err != nil {
			return fail(span, err)
		}
		if !same {
			fmt.Fprintln(w, diff)
			return fail(span, fmt.Errorf("%w: %s", errReportMismatch, opts.expected))
		}
		log.Info(log.CLI, "report matches", "expected", opts.expected)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
