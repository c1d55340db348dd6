package cli

import (
	"fmt"

	"github.com/Davincible/polysecret/internal/validation"
	"github.com/Davincible/polysecret/pkg/crypto/basen"
	"github.com/spf13/cobra"
)

type decodeOutput struct {
	Value   string `json:"value"`
	Base    int    `json:"base"`
	Decoded string `json:"decoded"`
	To      int    `json:"to"`
}

func NewDecodeCommand() *cobra.Command {
	var (
		base int
		to   int
	)

	cmd := &cobra.Command{
		Use:   "decode VALUE",
		Short: "Decode a share value written in another base",
		Long: `Decode a share value written in any base from 2 to 36 into an exact
integer. Letters are the digits 10 to 35 and may be upper or lower case.`,
		Example: `  # Prints 124
  polysecret decode 324 --base 6

  # Re-express a base-36 value in hexadecimal
  polysecret decode 3C2683LBEW8BJ --base 36 --to 16`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyUI(cmd, loadConfig())

			raw := validation.SanitizeInput(args[0])
			v, err := basen.Decode(raw, base)
			if err != nil {
				return fmt.Errorf("%s: %w", errorKind(err), err)
			}

			out, err := basen.Encode(v, to)
			if err != nil {
				return fmt.Errorf("%s: %w", errorKind(err), err)
			}

			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), decodeOutput{Value: raw, Base: base, Decoded: out, To: to})
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&base, "base", "b", 10, "Base the value is written in")
	cmd.Flags().IntVarP(&to, "to", "t", 10, "Base to print the decoded value in")

	return cmd
}
