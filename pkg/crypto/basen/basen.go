// Package basen decodes share values written in a positional numeral base
// between 2 and 36 into exact integers.
package basen

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	MinBase = 2
	MaxBase = 36
)

var (
	ErrInvalidBase  = errors.New("invalid base")
	ErrInvalidDigit = errors.New("invalid digit")
)

// ValidateBase reports whether base is usable for decoding.
func ValidateBase(base int) error {
	if base < MinBase || base > MaxBase {
		return fmt.Errorf("%w: %d is outside [%d, %d]", ErrInvalidBase, base, MinBase, MaxBase)
	}
	return nil
}

// Decode converts raw, written in the given base, into an exact integer.
// Letters stand for the digits 10 through 35 regardless of case and a single
// leading sign is accepted.
func Decode(raw string, base int) (*big.Int, error) {
	if err := ValidateBase(base); err != nil {
		return nil, err
	}

	s := strings.TrimSpace(raw)
	digits := s
	if len(digits) > 0 && (digits[0] == '+' || digits[0] == '-') {
		digits = digits[1:]
	}
	if digits == "" {
		return nil, fmt.Errorf("%w: empty value %q", ErrInvalidDigit, raw)
	}

	offset := len(s) - len(digits)
	for i := 0; i < len(digits); i++ {
		if digitValue(digits[i]) >= base {
			return nil, fmt.Errorf("%w: %q at position %d is not a base-%d digit",
				ErrInvalidDigit, digits[i], offset+i, base)
		}
	}

	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("%w: cannot parse %q in base %d", ErrInvalidDigit, raw, base)
	}
	return v, nil
}

// Encode writes v in the given base using lowercase digits, most significant
// first.
func Encode(v *big.Int, base int) (string, error) {
	if err := ValidateBase(base); err != nil {
		return "", err
	}
	if v == nil {
		return "", fmt.Errorf("cannot encode nil integer")
	}
	return v.Text(base), nil
}

// digitValue returns the numeric value of c, or MaxBase when c is not a digit
// in any supported base.
func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return MaxBase
}
