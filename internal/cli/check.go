package cli

import (
	"fmt"
	"io"
	"math/big"

	"github.com/Davincible/polysecret/pkg/crypto/interpolate"
	"github.com/Davincible/polysecret/pkg/shareset"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// CheckReport compares every share beyond the first k against the polynomial
// those k shares define.
type CheckReport struct {
	Source       string        `json:"source"`
	Fingerprint  string        `json:"fingerprint"`
	N            int           `json:"n"`
	K            int           `json:"k"`
	Coefficients []string      `json:"coefficients"`
	Secret       string        `json:"secret"`
	Shares       []ShareResult `json:"shares"`
	Consistent   bool          `json:"consistent"`
}

type ShareResult struct {
	Index    int    `json:"index"`
	Used     bool   `json:"used"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual"`
	Matches  bool   `json:"matches"`
}

func NewCheckCommand() *cobra.Command {
	var (
		arithmeticName string
		passwordFile   string
	)

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Check that every share lies on the recovered polynomial",
		Long: `Solve for the polynomial through the first k shares of a share-set and
evaluate it at the index of every remaining share. Shares whose value does not
match are listed; recover with --strategy consensus to outvote them.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			applyUI(cmd, cfg)

			if !cmd.Flags().Changed("arithmetic") {
				arithmeticName = cfg.Defaults.Arithmetic
			}
			arithmetic, err := interpolate.ParseArithmetic(arithmeticName)
			if err != nil {
				return err
			}

			passwords := newPasswordSource(passwordFile)
			set, err := loadShareSet(args[0], passwords)
			passwords.Release()
			if err != nil {
				return err
			}

			report, err := CheckShareSet(set, interpolate.NewSolver(arithmetic))
			if err != nil {
				return fmt.Errorf("%s: %w", errorKind(err), err)
			}

			if jsonOutput(cmd) {
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				displayCheckReport(cmd.OutOrStdout(), report)
			}

			if !report.Consistent {
				return fmt.Errorf("share-set %s has shares off the polynomial", report.Source)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&arithmeticName, "arithmetic", "a", interpolate.ArithmeticExact.String(), "Elimination arithmetic: exact or truncating")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "File holding the password for a .sealed share-set")

	return cmd
}

// CheckShareSet decodes every share, solves with the first k and evaluates the
// result at the rest.
func CheckShareSet(set *shareset.ShareSet, solver *interpolate.Solver) (*CheckReport, error) {
	points, err := set.Points(0)
	if err != nil {
		return nil, err
	}

	coeffs, err := solver.Solve(points, set.K)
	if err != nil {
		return nil, err
	}

	report := &CheckReport{
		Source:       set.Name,
		Fingerprint:  set.Fingerprint(),
		N:            set.N,
		K:            set.K,
		Coefficients: make([]string, len(coeffs)),
		Secret:       coeffs[len(coeffs)-1].RatString(),
		Consistent:   true,
	}
	for i, c := range coeffs {
		report.Coefficients[i] = c.RatString()
	}

	for i, p := range points {
		result := ShareResult{
			Index:   set.Shares[i].Index,
			Used:    i < set.K,
			Actual:  p.Y.String(),
			Matches: true,
		}
		if !result.Used {
			expected := interpolate.Evaluate(coeffs, p.X)
			result.Expected = expected.RatString()
			result.Matches = expected.Cmp(new(big.Rat).SetInt(p.Y)) == 0
			if !result.Matches {
				report.Consistent = false
			}
		}
		report.Shares = append(report.Shares, result)
	}

	return report, nil
}

func displayCheckReport(w io.Writer, report *CheckReport) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)

	cyan.Fprintf(w, "%s (n=%d, k=%d)\n", report.Source, report.N, report.K)
	fmt.Fprintf(w, "  Fingerprint: %s\n", report.Fingerprint)
	fmt.Fprintf(w, "  Secret:      %s\n\n", report.Secret)

	for _, s := range report.Shares {
		switch {
		case s.Used:
			fmt.Fprintf(w, "  share %d: used for interpolation\n", s.Index)
		case s.Matches:
			green.Fprintf(w, "  ✓ share %d: on the polynomial\n", s.Index)
		default:
			red.Fprintf(w, "  ✗ share %d: expected %s, got %s\n", s.Index, s.Expected, s.Actual)
		}
	}

	fmt.Fprintln(w)
	if report.Consistent {
		green.Fprintln(w, "All shares are consistent")
	} else {
		red.Fprintln(w, "Some shares are inconsistent")
	}
}
