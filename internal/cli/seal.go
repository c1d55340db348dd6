package cli

import (
	"bytes"
	"fmt"

	"github.com/Davincible/polysecret/pkg/secure"
	"github.com/Davincible/polysecret/pkg/shareset"
	"github.com/Davincible/polysecret/pkg/storage"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func NewSealCommand() *cobra.Command {
	var (
		output       string
		formatName   string
		passwordFile string
	)

	cmd := &cobra.Command{
		Use:   "seal FILE",
		Short: "Encrypt a share-set file with a password",
		Long: `Encrypt a JSON or CBOR share-set with a password (PBKDF2-SHA256 and
AES-256-GCM). The sealed file can be passed to recover and check directly.`,
		Example: `  polysecret seal testcase1.json --output testcase1.sealed`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			applyUI(cmd, cfg)

			if !cmd.Flags().Changed("format") {
				formatName = cfg.Storage.SealFormat
			}
			format, err := shareset.ParseFormat(formatName)
			if err != nil {
				return err
			}

			set, err := shareset.Load(args[0])
			if err != nil {
				return err
			}

			if output == "" {
				output = args[0] + storage.SealedExt
			}
			if !storage.IsSealed(output) {
				return fmt.Errorf("output file must end in %s", storage.SealedExt)
			}

			password, err := sealPassword(passwordFile)
			if err != nil {
				return err
			}
			defer secure.Zero(password)

			if err := storage.NewSealedFile(output).Save(set, format, password); err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"source":      args[0],
					"output":      output,
					"fingerprint": set.Fingerprint(),
				})
			}
			green := color.New(color.FgGreen, color.Bold)
			green.Fprintf(cmd.OutOrStdout(), "✓ Sealed %s to %s\n", args[0], output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Sealed output file (default FILE.sealed)")
	cmd.Flags().StringVarP(&formatName, "format", "f", "", "Encoding inside the sealed file: json or cbor")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "File holding the password")

	return cmd
}

// sealPassword reads the password from a file, or prompts twice.
func sealPassword(passwordFile string) ([]byte, error) {
	src := newPasswordSource(passwordFile)
	password, err := src.Get()
	if err != nil || passwordFile != "" {
		return password, err
	}

	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	defer secure.Zero(confirm)

	if !bytes.Equal(password, confirm) {
		return nil, fmt.Errorf("passwords do not match")
	}
	return password, nil
}
