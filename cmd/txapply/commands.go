package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/colorfulnotion/zkapply/callforest"
	"github.com/colorfulnotion/zkapply/chainspecs"
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	log "github.com/colorfulnotion/zkapply/log"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/colorfulnotion/zkapply/verifier"
	"github.com/spf13/cobra"
)

func newForestCmd() *cobra.Command {
	var txns string
	cmd := &cobra.Command{
		Use:   "forest",
		Short: "Print the call forest of every zkApp command in a block",
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := readBlock(txns)
			if err != nil {
				return err
			}
			printForests(cmd.OutOrStdout(), block)
			return nil
		},
	}
	cmd.Flags().StringVar(&txns, "txns", "", "Block file")
	cmd.MarkFlagRequired("txns")
	return cmd
}

func updateLabel(u *types.AccountUpdate) string {
	var flags []string
	if u.IsSigned() {
		flags = append(flags, "signed")
	}
	if u.IsProved() {
		flags = append(flags, "proved")
	}
	if u.Body.IncrementNonce {
		flags = append(flags, "nonce++")
	}
	if len(flags) == 0 {
		return u.String()
	}
	return fmt.Sprintf("%s [%s]", u, strings.Join(flags, " "))
}

func printForests(w io.Writer, block *Block) {
	for i, e := range block.Transactions {
		cmd, ok := e.Transaction.(*types.ZkAppCommand)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "transaction %d: fee payer %s fee %d nonce %d\n", i, cmd.FeePayerId(), cmd.Fee(), cmd.Nonce())
		fmt.Fprint(w, callforest.Print(cmd.AccountUpdates, updateLabel))
	}
}

// receiptChains extends a receipt chain per account with every command of
// the block that the account authorized, starting from empty chains.
func receiptChains(block *Block) (map[types.AccountId]types.ReceiptChainHash, []types.AccountId, error) {
	chains := make(map[types.AccountId]types.ReceiptChainHash)
	var order []types.AccountId
	extend := func(id types.AccountId, cons func(prev types.ReceiptChainHash) types.ReceiptChainHash) {
		prev, ok := chains[id]
		if !ok {
			prev = types.EmptyReceiptChainHash()
			order = append(order, id)
		}
		chains[id] = cons(prev)
	}
	for i, e := range block.Transactions {
		switch t := e.Transaction.(type) {
		case *types.SignedCommand:
			extend(t.FeePayerId(), func(prev types.ReceiptChainHash) types.ReceiptChainHash {
				return types.ConsSignedCommandPayload(&t.Payload, prev)
			})
		case *types.ZkAppCommand:
			full, err := t.FullCommitment()
			if err != nil {
				return nil, nil, fmt.Errorf("transaction %d: %w", i, err)
			}
			extend(t.FeePayerId(), func(prev types.ReceiptChainHash) types.ReceiptChainHash {
				return types.ConsZkAppCommandCommitment(0, full, prev)
			})
			var index currency.Index
			for _, u := range t.AccountUpdates.ToList() {
				index = index.Succ()
				if !u.IsSigned() && !u.IsProved() {
					continue
				}
				at := index
				extend(u.AccountId(), func(prev types.ReceiptChainHash) types.ReceiptChainHash {
					return types.ConsZkAppCommandCommitment(at, full, prev)
				})
			}
		}
	}
	return chains, order, nil
}

func newReceiptCmd() *cobra.Command {
	var txns string
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Compute the receipt chain hashes a block produces",
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := readBlock(txns)
			if err != nil {
				return err
			}
			chains, order, err := receiptChains(block)
			if err != nil {
				return err
			}
			for _, id := range order {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, chains[id])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&txns, "txns", "", "Block file")
	cmd.MarkFlagRequired("txns")
	return cmd
}

func parseSeeds(list string) []*verifier.PrivateKey {
	var keys []*verifier.PrivateKey
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			keys = append(keys, verifier.KeyFromSeed([]byte(s)))
		}
	}
	return keys
}

// signBlock signs every user command of block with the key of its fee
// payer, and every signature-authorized account update.
func signBlock(block *Block, keys []*verifier.PrivateKey) error {
	byKey := make(map[common.PublicKey]*verifier.PrivateKey, len(keys))
	for _, k := range keys {
		byKey[k.PublicKey()] = k
	}
	for i, e := range block.Transactions {
		switch t := e.Transaction.(type) {
		case *types.SignedCommand:
			k, ok := byKey[t.Payload.Common.FeePayerPk]
			if !ok {
				return fmt.Errorf("transaction %d: %w: fee payer %s", i, verifier.ErrMissingKey, t.Payload.Common.FeePayerPk)
			}
			if err := verifier.SignCommand(k, t); err != nil {
				return fmt.Errorf("transaction %d: %w", i, err)
			}
		case *types.ZkAppCommand:
			k, ok := byKey[t.FeePayer.Body.PublicKey]
			if !ok {
				return fmt.Errorf("transaction %d: %w: fee payer %s", i, verifier.ErrMissingKey, t.FeePayer.Body.PublicKey)
			}
			if err := verifier.SignAccountUpdates(t, keys...); err != nil {
				return fmt.Errorf("transaction %d: %w", i, err)
			}
			if err := verifier.SignZkAppFeePayer(k, t); err != nil {
				return fmt.Errorf("transaction %d: %w", i, err)
			}
		}
		log.Debug(log.CLI, "signed", "index", i, "kind", e.Transaction.Kind())
	}
	return nil
}

func newSignCmd() *cobra.Command {
	var txns, out, seeds string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a block with keys derived from development seeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := readBlock(txns)
			if err != nil {
				return err
			}
			if err := signBlock(block, parseSeeds(seeds)); err != nil {
				return err
			}
			if out == "" {
				out = txns
			}
			return writeBlock(out, block)
		},
	}
	cmd.Flags().StringVar(&txns, "txns", "", "Block file")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: overwrite --txns)")
	cmd.Flags().StringVar(&seeds, "seeds", "", "Comma separated key seeds, e.g. alice,bob")
	cmd.MarkFlagRequired("txns")
	return cmd
}

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key <seed>...",
		Short: "Print the public keys of development seeds",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			for _, seed := range args {
				pk := verifier.KeyFromSeed([]byte(seed)).PublicKey()
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", seed, pk.Hex())
			}
		},
	}
}

func newGenSpecCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "gen-spec <dev-config.json>",
		Short: "Generate a chain spec with seeded development accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var dev chainspecs.DevConfig
			if err := json.Unmarshal(data, &dev); err != nil {
				return fmt.Errorf("dev config %s: %w", args[0], err)
			}
			spec, err := chainspecs.GenSpec(dev)
			if err != nil {
				return err
			}
			js, err := json.MarshalIndent(spec, "", "  ")
			if err != nil {
				return err
			}
			if out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(js))
				return err
			}
			return os.WriteFile(out, append(js, '\n'), 0o644)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: stdout)")
	return cmd
}
