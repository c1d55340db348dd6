// Package reconstruct chooses which shares of a share-set feed the
// interpolation solver and turns its output into a secret.
package reconstruct

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Davincible/polysecret/pkg/crypto/interpolate"
	"github.com/Davincible/polysecret/pkg/shareset"
)

var (
	ErrNoConsensus         = errors.New("no consensus")
	ErrTooManyCombinations = errors.New("too many combinations")
)

// DefaultMaxCombinations caps the subsets the consensus strategy will try.
const DefaultMaxCombinations = 10000

// StrategyType names a selection policy.
type StrategyType string

const (
	StrategyFirstK    StrategyType = "first-k"
	StrategyConsensus StrategyType = "consensus"
)

// Result is a recovered secret and the shares that produced it.
type Result struct {
	Secret *big.Int
	// Used holds the x coordinates of every subset that yielded Secret.
	Used [][]*big.Int
	// Votes is the number of subsets agreeing on Secret; Candidates is the
	// number of subsets that produced any integer secret.
	Votes      int
	Candidates int
}

// Strategy selects k of the available points and reconstructs from them.
type Strategy interface {
	Name() StrategyType
	// PointsNeeded reports how many leading shares must be decoded; 0 means
	// all of them.
	PointsNeeded(k int) int
	Reconstruct(solver *interpolate.Solver, points []interpolate.Point, k int) (*Result, error)
}

func ParseStrategy(name string, maxCombinations int) (Strategy, error) {
	switch StrategyType(name) {
	case "", StrategyFirstK:
		return FirstK{}, nil
	case StrategyConsensus:
		if maxCombinations <= 0 {
			maxCombinations = DefaultMaxCombinations
		}
		return &Consensus{MaxCombinations: maxCombinations}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q (want %s or %s)", name, StrategyFirstK, StrategyConsensus)
}

// FirstK uses the first k points in encounter order and nothing else.
type FirstK struct{}

func (FirstK) Name() StrategyType { return StrategyFirstK }

func (FirstK) PointsNeeded(k int) int { return k }

func (FirstK) Reconstruct(solver *interpolate.Solver, points []interpolate.Point, k int) (*Result, error) {
	secret, err := solver.ReconstructSecret(points, k)
	if err != nil {
		return nil, err
	}

	return &Result{
		Secret:     secret,
		Used:       [][]*big.Int{xs(points[:k])},
		Votes:      1,
		Candidates: 1,
	}, nil
}

// Consensus reconstructs from every k-subset of the points and returns the
// secret most subsets agree on.
type Consensus struct {
	MaxCombinations int
}

func (*Consensus) Name() StrategyType { return StrategyConsensus }

func (*Consensus) PointsNeeded(int) int { return 0 }

func (c *Consensus) Reconstruct(solver *interpolate.Solver, points []interpolate.Point, k int) (*Result, error) {
	if k < 1 || len(points) < k {
		return nil, fmt.Errorf("%w: need %d points, got %d", interpolate.ErrDimensionMismatch, k, len(points))
	}

	limit := c.MaxCombinations
	if limit <= 0 {
		limit = DefaultMaxCombinations
	}
	if total := binomial(len(points), k); !total.IsInt64() || total.Int64() > int64(limit) {
		return nil, fmt.Errorf("%w: C(%d, %d) = %s exceeds %d", ErrTooManyCombinations, len(points), k, total, limit)
	}

	type tally struct {
		secret *big.Int
		used   [][]*big.Int
	}
	var (
		order      []string
		tallies    = make(map[string]*tally)
		candidates int
		lastErr    error
	)

	subset := make([]interpolate.Point, k)
	err := combinations(len(points), k, func(idx []int) error {
		for i, j := range idx {
			subset[i] = points[j]
		}

		secret, err := solver.ReconstructSecret(subset, k)
		switch {
		case errors.Is(err, interpolate.ErrSingularMatrix), errors.Is(err, interpolate.ErrNonIntegerResult):
			lastErr = err
			return nil
		case err != nil:
			return err
		}

		candidates++
		key := secret.String()
		t, ok := tallies[key]
		if !ok {
			t = &tally{secret: secret}
			tallies[key] = t
			order = append(order, key)
		}
		t.used = append(t.used, xs(subset))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if candidates == 0 {
		return nil, fmt.Errorf("%w: every subset failed, last error: %v", ErrNoConsensus, lastErr)
	}

	var best *tally
	tied := false
	for _, key := range order {
		t := tallies[key]
		switch {
		case best == nil || len(t.used) > len(best.used):
			best, tied = t, false
		case len(t.used) == len(best.used):
			tied = true
		}
	}
	if tied {
		return nil, fmt.Errorf("%w: top secrets tied at %d votes each", ErrNoConsensus, len(best.used))
	}

	return &Result{
		Secret:     best.secret,
		Used:       best.used,
		Votes:      len(best.used),
		Candidates: candidates,
	}, nil
}

// Recover decodes the shares the strategy needs and reconstructs the secret
// of one share-set.
func Recover(set *shareset.ShareSet, strategy Strategy, solver *interpolate.Solver) (*Result, error) {
	if strategy == nil {
		strategy = FirstK{}
	}
	if solver == nil {
		solver = interpolate.NewSolver(interpolate.ArithmeticExact)
	}

	points, err := set.Points(strategy.PointsNeeded(set.K))
	if err != nil {
		return nil, err
	}
	return strategy.Reconstruct(solver, points, set.K)
}

func xs(points []interpolate.Point) []*big.Int {
	out := make([]*big.Int, len(points))
	for i, p := range points {
		out[i] = new(big.Int).Set(p.X)
	}
	return out
}

func binomial(n, k int) *big.Int {
	return new(big.Int).Binomial(int64(n), int64(k))
}

// combinations calls fn with every k-subset of [0, n) in lexicographic order.
// The slice passed to fn is reused between calls.
func combinations(n, k int, fn func([]int) error) error {
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}

	for {
		if err := fn(idx); err != nil {
			return err
		}

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return nil
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
