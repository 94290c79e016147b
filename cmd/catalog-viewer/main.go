// Package main provides the entry point for the catalog viewer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version        = "0.1.0-dev"
	globalConfig   string
	globalLogLevel string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "catalog-viewer",
		Short:         "Browse the PokéAPI catalog with local search, filters and pagination",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalConfig, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&globalLogLevel, "log-level", "", "Override the log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCmd(),
		newSearchCmd(),
		newShowCmd(),
	)

	return rootCmd
}
