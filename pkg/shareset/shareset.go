// Package shareset models a set of base-encoded shares together with the
// share count n and threshold k needed to reconstruct their secret.
package shareset

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/Davincible/polysecret/internal/validation"
	"github.com/Davincible/polysecret/pkg/crypto/basen"
	"github.com/Davincible/polysecret/pkg/crypto/interpolate"
	"github.com/zeebo/blake3"
)

var ErrMalformed = errors.New("malformed share-set")

// Share is one encoded point. Index is the x coordinate; Value written in Base
// is the y coordinate.
type Share struct {
	Index int
	Base  int
	Value string
}

// Point decodes the share value.
func (s Share) Point() (interpolate.Point, error) {
	y, err := basen.Decode(s.Value, s.Base)
	if err != nil {
		return interpolate.Point{}, fmt.Errorf("share %d: %w", s.Index, err)
	}
	return interpolate.Point{X: big.NewInt(int64(s.Index)), Y: y}, nil
}

// ShareSet is read-only once constructed. Shares are kept in ascending index
// order.
type ShareSet struct {
	Name   string
	N      int
	K      int
	Shares []Share
}

// New builds a share-set and sorts its shares by index.
func New(name string, n, k int, shares []Share) (*ShareSet, error) {
	sorted := make([]Share, len(shares))
	copy(sorted, shares)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	set := &ShareSet{Name: name, N: n, K: k, Shares: sorted}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Validate checks the header and every share's index and base. Share values
// are only checked when decoded.
func (s *ShareSet) Validate() error {
	if err := validation.ValidateThreshold(s.N, s.K); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	seen := make(map[int]bool, len(s.Shares))
	for _, share := range s.Shares {
		if share.Index < 1 {
			return fmt.Errorf("%w: share index must be positive (got %d)", ErrMalformed, share.Index)
		}
		if seen[share.Index] {
			return fmt.Errorf("%w: duplicate share index %d", ErrMalformed, share.Index)
		}
		seen[share.Index] = true

		if err := basen.ValidateBase(share.Base); err != nil {
			return fmt.Errorf("share %d: %w", share.Index, err)
		}
	}
	return nil
}

// Warnings lists inconsistencies that do not prevent reconstruction.
func (s *ShareSet) Warnings() []string {
	var warnings []string
	if len(s.Shares) != s.N {
		warnings = append(warnings, fmt.Sprintf("declared %d shares but found %d", s.N, len(s.Shares)))
	}
	return warnings
}

// Points decodes the first limit shares, or all shares when limit <= 0.
func (s *ShareSet) Points(limit int) ([]interpolate.Point, error) {
	shares := s.Shares
	if limit > 0 && limit < len(shares) {
		shares = shares[:limit]
	}

	points := make([]interpolate.Point, 0, len(shares))
	for _, share := range shares {
		p, err := share.Point()
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// Fingerprint identifies the share-set contents without revealing them.
func (s *ShareSet) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "n=%d;k=%d\n", s.N, s.K)
	for _, share := range s.Shares {
		fmt.Fprintf(&b, "%d:%d:%s\n", share.Index, share.Base, strings.ToLower(strings.TrimSpace(share.Value)))
	}

	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
