package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Davincible/polysecret/internal/validation"
	"github.com/Davincible/polysecret/pkg/crypto/interpolate"
	"github.com/Davincible/polysecret/pkg/crypto/reconstruct"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// defaultInputs are read when recover is run without arguments.
var defaultInputs = []string{"testcase1.json", "testcase2.json"}

// RecoverOptions controls a batch of reconstructions.
type RecoverOptions struct {
	Strategy    reconstruct.Strategy
	Solver      *interpolate.Solver
	Parallelism int
	FailFast    bool
	Passwords   *passwordSource
}

// Outcome is the result of reconstructing one share-set. Exactly one of
// Result and Err is set.
type Outcome struct {
	Source      string
	Fingerprint string
	N, K        int
	Warnings    []string
	Result      *reconstruct.Result
	Err         error
}

type outcomeJSON struct {
	Source      string   `json:"source"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	N           int      `json:"n,omitempty"`
	K           int      `json:"k,omitempty"`
	Secret      string   `json:"secret,omitempty"`
	Votes       int      `json:"votes,omitempty"`
	Candidates  int      `json:"candidates,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	ErrorKind   string   `json:"error_kind,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func (o *Outcome) toJSON() outcomeJSON {
	out := outcomeJSON{
		Source:      o.Source,
		Fingerprint: o.Fingerprint,
		N:           o.N,
		K:           o.K,
		Warnings:    o.Warnings,
	}
	if o.Err != nil {
		out.ErrorKind = errorKind(o.Err)
		out.Error = o.Err.Error()
		return out
	}
	out.Secret = o.Result.Secret.String()
	out.Votes = o.Result.Votes
	out.Candidates = o.Result.Candidates
	return out
}

// NewRecoverCommand creates the recover command
func NewRecoverCommand() *cobra.Command {
	var (
		strategyName    string
		arithmeticName  string
		parallelism     int
		maxCombinations int
		failFast        bool
		passwordFile    string
	)

	cmd := &cobra.Command{
		Use:   "recover [FILE...]",
		Short: "Recover the secret of one or more share-sets",
		Long: `Recover the constant term of the polynomial behind each share-set.

Each FILE holds one share-set: the share count n, the threshold k and one
base-encoded value per share index. JSON and CBOR files are read directly,
files ending in .sealed are decrypted with a password first.

One secret is printed per share-set, in the order the files were given. A
share-set that fails is reported with its error kind and the remaining sets
are still processed.`,
		Example: `  # Recover testcase1.json and testcase2.json in the current directory
  polysecret recover

  # Recover specific share-sets four at a time
  polysecret recover --parallel 4 sets/*.json

  # Vote across every k-subset of the shares
  polysecret recover --strategy consensus set.json`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			applyUI(cmd, cfg)

			if !cmd.Flags().Changed("strategy") {
				strategyName = cfg.Defaults.Strategy
			}
			if !cmd.Flags().Changed("arithmetic") {
				arithmeticName = cfg.Defaults.Arithmetic
			}
			if !cmd.Flags().Changed("parallel") {
				parallelism = cfg.Defaults.Parallelism
			}
			if !cmd.Flags().Changed("max-combinations") {
				maxCombinations = cfg.Defaults.MaxCombinations
			}
			if !cmd.Flags().Changed("fail-fast") {
				failFast = cfg.Defaults.FailFast
			}

			if err := validation.ValidateParallelism(parallelism); err != nil {
				return err
			}
			if err := validation.ValidateMaxCombinations(maxCombinations); err != nil {
				return err
			}
			strategy, err := reconstruct.ParseStrategy(strategyName, maxCombinations)
			if err != nil {
				return err
			}
			arithmetic, err := interpolate.ParseArithmetic(arithmeticName)
			if err != nil {
				return err
			}

			paths := args
			if len(paths) == 0 {
				paths = defaultInputs
			}

			opts := RecoverOptions{
				Strategy:    strategy,
				Solver:      interpolate.NewSolver(arithmetic),
				Parallelism: parallelism,
				FailFast:    failFast,
				Passwords:   newPasswordSource(passwordFile),
			}
			defer opts.Passwords.Release()

			outcomes, err := RecoverAll(cmd.Context(), paths, opts)
			if err != nil && !failFast {
				return err
			}

			if jsonOutput(cmd) {
				records := make([]outcomeJSON, 0, len(outcomes))
				for _, o := range outcomes {
					records = append(records, o.toJSON())
				}
				if err := printJSON(cmd.OutOrStdout(), records); err != nil {
					return err
				}
			} else {
				displayOutcomes(cmd.OutOrStdout(), outcomes)
			}

			if failed := countFailed(outcomes); failed > 0 {
				return fmt.Errorf("%d of %d share-sets failed", failed, len(paths))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategyName, "strategy", "s", string(reconstruct.StrategyFirstK), "Share selection strategy: first-k or consensus")
	cmd.Flags().StringVarP(&arithmeticName, "arithmetic", "a", interpolate.ArithmeticExact.String(), "Elimination arithmetic: exact or truncating")
	cmd.Flags().IntVarP(&parallelism, "parallel", "P", 1, "Number of share-sets recovered concurrently")
	cmd.Flags().IntVar(&maxCombinations, "max-combinations", reconstruct.DefaultMaxCombinations, "Maximum subsets tried by the consensus strategy")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first share-set that fails")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "File holding the password for .sealed share-sets")

	return cmd
}

// RecoverAll reconstructs every share-set in paths. Outcomes are returned in
// input order whatever the parallelism. With FailFast the first failure
// cancels the sets not yet started and only the outcomes gathered so far are
// returned, together with that failure.
func RecoverAll(ctx context.Context, paths []string, opts RecoverOptions) ([]*Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if opts.Passwords == nil {
		opts.Passwords = newPasswordSource("")
	}

	outcomes := make([]*Outcome, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}

		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			outcome := recoverOne(path, opts)
			outcomes[i] = outcome
			if outcome.Err != nil && opts.FailFast {
				return fmt.Errorf("%s: %w", outcome.Source, outcome.Err)
			}
			return nil
		})
	}

	err := g.Wait()

	done := make([]*Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o != nil {
			done = append(done, o)
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return done, err
	}
	if err := ctx.Err(); err != nil {
		return done, err
	}
	return done, nil
}

func recoverOne(path string, opts RecoverOptions) *Outcome {
	outcome := &Outcome{Source: path}

	set, err := loadShareSet(path, opts.Passwords)
	if err != nil {
		outcome.Err = err
		slog.Warn("Failed to load share-set", "source", path, "error", err)
		return outcome
	}

	outcome.Fingerprint = set.Fingerprint()
	outcome.N, outcome.K = set.N, set.K
	outcome.Warnings = set.Warnings()
	for _, w := range outcome.Warnings {
		slog.Warn("Share-set inconsistency", "source", path, "warning", w)
	}

	slog.Debug("Recovering share-set",
		"source", path,
		"fingerprint", outcome.Fingerprint,
		"n", set.N,
		"k", set.K,
		"strategy", opts.Strategy.Name(),
		"arithmetic", opts.Solver.Arithmetic.String(),
	)

	result, err := reconstruct.Recover(set, opts.Strategy, opts.Solver)
	if err != nil {
		outcome.Err = err
		slog.Warn("Reconstruction failed", "source", path, "kind", errorKind(err), "error", err)
		return outcome
	}

	outcome.Result = result
	return outcome
}

func countFailed(outcomes []*Outcome) int {
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	return failed
}

func displayOutcomes(w io.Writer, outcomes []*Outcome) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)

	for _, o := range outcomes {
		if o.Err != nil {
			red.Fprintf(w, "✗ %s: %s\n", o.Source, errorKind(o.Err))
			fmt.Fprintf(w, "  %v\n", o.Err)
			continue
		}

		green.Fprintf(w, "✓ %s: ", o.Source)
		fmt.Fprintln(w, o.Result.Secret.String())
		if o.Result.Candidates > 1 {
			fmt.Fprintf(w, "  %d of %d subsets agree\n", o.Result.Votes, o.Result.Candidates)
		}
		for _, warning := range o.Warnings {
			yellow.Fprintf(w, "  ⚠ %s\n", warning)
		}
	}
}
