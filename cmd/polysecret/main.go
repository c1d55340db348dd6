package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Davincible/polysecret/internal/cli"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cli.LogLevel.Set(slog.LevelWarn)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cli.LogLevel,
	}))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:   "polysecret",
		Short: "Recover secrets from polynomial share-sets",
		Long: `Polysecret recovers the secret behind a Shamir-style share-set.

Each share is a point (index, value) on a polynomial of degree k-1 whose
constant term is the secret. Values may be written in any base from 2 to 36.
Polysecret decodes them into exact integers and solves the k x k system by
Gaussian elimination over unbounded precision arithmetic.

Features:
- Any number of share-sets per run, one secret each, in input order
- JSON and CBOR share-set files, optionally sealed with a password
- First-k or consensus share selection
- Consistency check of every share against the recovered polynomial`,
		Version: fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit),
	}

	rootCmd.AddCommand(
		cli.NewRecoverCommand(),
		cli.NewDecodeCommand(),
		cli.NewCheckCommand(),
		cli.NewSealCommand(),
	)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
