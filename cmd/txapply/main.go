// txapply applies blocks of transactions to a ledger built from a chain
// spec and prints the applied records.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/colorfulnotion/zkapply/chainspecs/configs"
	log "github.com/colorfulnotion/zkapply/log"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel     string
		logModules   string
		logJSON      bool
		otlpEndpoint string
		shutdown     func(context.Context) error
	)
	var rootCmd = &cobra.Command{
		Use:           "txapply",
		Short:         "Apply transactions to a zkApp ledger",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initLogger := log.InitLogger
			if logJSON {
				initLogger = log.InitJSONLogger
			}
			if err := initLogger(logLevel); err != nil {
				return err
			}
			log.EnableModules(logModules)
			var err error
			shutdown, err = initTracing(cmd.Context(), otlpEndpoint)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if shutdown == nil {
				return nil
			}
			return shutdown(context.Background())
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logModules, "log-modules", "", "Comma separated modules to trace (txlogic,zkapp,ledger_mod,storage,cli or all)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log JSON records instead of text")
	rootCmd.PersistentFlags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP trace collector, e.g. localhost:4318 (tracing is off when empty)")

	rootCmd.AddCommand(
		newApplyCmd(),
		newForestCmd(),
		newReceiptCmd(),
		newSignCmd(),
		newKeyCmd(),
		newGenSpecCmd(),
	)
	return rootCmd
}

func networkFlag(cmd *cobra.Command, network *string) {
	cmd.Flags().StringVar(network, "network", configs.Network, "Network profile (devnet, mainnet) or chain spec file")
}
