package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/Davincible/polysecret/internal/validation"
	"github.com/Davincible/polysecret/pkg/config"
	"github.com/Davincible/polysecret/pkg/crypto/basen"
	"github.com/Davincible/polysecret/pkg/crypto/interpolate"
	"github.com/Davincible/polysecret/pkg/crypto/reconstruct"
	"github.com/Davincible/polysecret/pkg/secure"
	"github.com/Davincible/polysecret/pkg/shareset"
	"github.com/Davincible/polysecret/pkg/storage"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword reads a password from the terminal without echo. When stdin is
// not a terminal it reads one line instead.
func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		pass, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, err
		}
		return pass, nil
	}

	// Fallback for non-terminal
	return readPasswordLine(os.Stdin)
}

func readPasswordLine(r io.Reader) ([]byte, error) {
	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

func readPasswordFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open password file: %w", err)
	}
	defer f.Close()

	return readPasswordLine(f)
}

// passwordSource asks for the password at most once, however many sealed
// files a run opens.
type passwordSource struct {
	file   string
	prompt func(string) ([]byte, error)

	once     sync.Once
	password []byte
	err      error
}

func newPasswordSource(file string) *passwordSource {
	return &passwordSource{file: file, prompt: readPassword}
}

func (p *passwordSource) Get() ([]byte, error) {
	p.once.Do(func() {
		if p.file != "" {
			p.password, p.err = readPasswordFile(p.file)
		} else {
			p.password, p.err = p.prompt("Password for sealed share-sets: ")
		}
		if p.err == nil {
			p.err = validation.ValidatePassword(p.password)
		}
	})
	return p.password, p.err
}

// Release wipes the cached password. Get must not be called afterwards.
func (p *passwordSource) Release() {
	secure.ClearBytes(&p.password)
}

// loadShareSet reads a share-set file, decrypting it first when it is sealed.
func loadShareSet(path string, passwords *passwordSource) (*shareset.ShareSet, error) {
	if !storage.IsSealed(path) {
		return shareset.Load(path)
	}

	password, err := passwords.Get()
	if err != nil {
		return nil, err
	}
	set, err := storage.NewSealedFile(path).Load(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// loadConfig returns the user configuration, or the defaults when it cannot be
// read.
func loadConfig() *config.Config {
	cm, err := config.NewConfigManager()
	if err != nil {
		slog.Warn("Using default configuration", "error", err)
		return config.DefaultConfig()
	}
	return cm.GetConfig()
}

// LogLevel is the level of the default logger. --verbose beats the
// configured verbosity.
var LogLevel = new(slog.LevelVar)

func applyUI(cmd *cobra.Command, cfg *config.Config) {
	noColor, _ := cmd.Flags().GetBool("no-color")
	if noColor || !cfg.UI.UseColor {
		color.NoColor = true
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		LogLevel.Set(slog.LevelDebug)
		return
	}
	switch cfg.UI.Verbosity {
	case "quiet":
		LogLevel.Set(slog.LevelError)
	case "verbose":
		LogLevel.Set(slog.LevelDebug)
	default:
		LogLevel.Set(slog.LevelWarn)
	}
}

func jsonOutput(cmd *cobra.Command) bool {
	enabled, _ := cmd.Flags().GetBool("json")
	return enabled
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// errorKind names the failure class of a reconstruction error.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, basen.ErrInvalidBase):
		return "InvalidBase"
	case errors.Is(err, basen.ErrInvalidDigit):
		return "InvalidDigit"
	case errors.Is(err, interpolate.ErrDimensionMismatch):
		return "DimensionMismatch"
	case errors.Is(err, interpolate.ErrSingularMatrix):
		return "SingularMatrix"
	case errors.Is(err, interpolate.ErrNonIntegerResult):
		return "NonIntegerResult"
	case errors.Is(err, reconstruct.ErrNoConsensus):
		return "NoConsensus"
	case errors.Is(err, reconstruct.ErrTooManyCombinations):
		return "TooManyCombinations"
	case errors.Is(err, shareset.ErrMalformed):
		return "MalformedShareSet"
	case errors.Is(err, storage.ErrDecrypt):
		return "DecryptionFailed"
	}
	return "Error"
}
