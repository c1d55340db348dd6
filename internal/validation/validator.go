package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Davincible/polysecret/pkg/crypto/basen"
)

var (
	indexPattern = regexp.MustCompile(`^[0-9]+$`)
	basePattern  = regexp.MustCompile(`^[0-9]{1,2}$`)
)

// MaxThreshold bounds k so a single share-set cannot request an absurd
// elimination.
const MaxThreshold = 4096

func ValidateThreshold(n, k int) error {
	if k < 1 {
		return fmt.Errorf("threshold must be at least 1 (got %d)", k)
	}
	if k > MaxThreshold {
		return fmt.Errorf("threshold cannot exceed %d (got %d)", MaxThreshold, k)
	}
	if n < k {
		return fmt.Errorf("share count (%d) cannot be less than threshold (%d)", n, k)
	}
	return nil
}

// ParseShareIndex parses the key a share is declared under. Indices are the
// evaluation points of the polynomial and must be positive.
func ParseShareIndex(key string) (int, error) {
	key = strings.TrimSpace(key)
	if !indexPattern.MatchString(key) {
		return 0, fmt.Errorf("share index %q is not a decimal integer", key)
	}

	idx, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("share index %q out of range: %w", key, err)
	}
	if idx < 1 {
		return 0, fmt.Errorf("share index must be positive (got %d)", idx)
	}
	return idx, nil
}

// ParseBase parses a base written as decimal text and checks its range.
func ParseBase(s string) (int, error) {
	s = strings.TrimSpace(s)
	if !basePattern.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", basen.ErrInvalidBase, s)
	}

	base, _ := strconv.Atoi(s)
	if err := basen.ValidateBase(base); err != nil {
		return 0, err
	}
	return base, nil
}

func ValidateParallelism(n int) error {
	if n < 1 || n > 1024 {
		return fmt.Errorf("parallelism must be between 1 and 1024 (got %d)", n)
	}
	return nil
}

func ValidateMaxCombinations(n int) error {
	if n < 1 {
		return fmt.Errorf("max combinations must be positive (got %d)", n)
	}
	return nil
}

func ValidatePassword(password []byte) error {
	if len(password) == 0 {
		return fmt.Errorf("password cannot be empty")
	}
	if len(password) > 256 {
		return fmt.Errorf("password too long (max 256 bytes)")
	}

	for i, ch := range password {
		if ch == 0 {
			return fmt.Errorf("password contains null byte at position %d", i)
		}
	}

	return nil
}

func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)

	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.ReplaceAll(input, "\r", "\n")

	lines := strings.Split(input, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	return strings.Join(lines, "\n")
}
