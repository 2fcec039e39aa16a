// cmd/mtprep/main.go
//
// Entry point for the mtprep CLI. Running `mtprep` without a subcommand
// prepares the requested datasets; see `mtprep --help` for the rest.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &prepareOptions{}
	rootCmd := &cobra.Command{
		Use:           "mtprep",
		Short:         "Prepare multi-talker ASR manifests",
		Long:          "Downloads corpora, builds namespaced cut-sets and supervision manifests, and exports STM references. Every stage is skipped when its outputs already exist.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrepare(cmd, opts)
		},
	}
	addGlobalFlags(rootCmd)
	addPrepareFlags(rootCmd, opts)

	rootCmd.AddCommand(newPrepareCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSTMCmd())
	rootCmd.AddCommand(newFilterCmd())
	rootCmd.AddCommand(newRelocateCmd())
	rootCmd.AddCommand(newInitCmd())
	return rootCmd
}
