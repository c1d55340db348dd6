// Package interpolate recovers the coefficients of the unique polynomial of
// degree k-1 passing through k points by Gaussian elimination with partial
// pivoting over unbounded integers.
package interpolate

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Davincible/polysecret/pkg/secure"
)

var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrSingularMatrix    = errors.New("singular matrix")
	ErrNonIntegerResult  = errors.New("non-integer result")
)

// Point is a decoded share: the polynomial evaluated at X equals Y.
type Point struct {
	X *big.Int
	Y *big.Int
}

func NewPoint(x, y int64) Point {
	return Point{X: big.NewInt(x), Y: big.NewInt(y)}
}

func (p Point) String() string {
	return fmt.Sprintf("(%s, %s)", p.X, p.Y)
}

// Arithmetic selects how elimination factors and back-substitution quotients
// are computed.
type Arithmetic int

const (
	// ArithmeticExact works over rationals and only converts the constant term
	// to an integer at the end.
	ArithmeticExact Arithmetic = iota
	// ArithmeticTruncating uses truncated integer quotients at every division.
	// Results are only correct when every division happens to be exact.
	ArithmeticTruncating
)

func (a Arithmetic) String() string {
	switch a {
	case ArithmeticExact:
		return "exact"
	case ArithmeticTruncating:
		return "truncating"
	}
	return fmt.Sprintf("arithmetic(%d)", int(a))
}

func ParseArithmetic(s string) (Arithmetic, error) {
	switch s {
	case "", "exact":
		return ArithmeticExact, nil
	case "truncating":
		return ArithmeticTruncating, nil
	}
	return 0, fmt.Errorf("unknown arithmetic %q (want exact or truncating)", s)
}

// Solver reconstructs polynomials from points. The zero value uses exact
// arithmetic. A Solver holds no state between calls.
type Solver struct {
	Arithmetic Arithmetic
}

func NewSolver(arithmetic Arithmetic) *Solver {
	return &Solver{Arithmetic: arithmetic}
}

var defaultSolver = &Solver{Arithmetic: ArithmeticExact}

// ReconstructSecret returns the constant term of the polynomial through the
// first k points using exact arithmetic.
func ReconstructSecret(points []Point, k int) (*big.Int, error) {
	return defaultSolver.ReconstructSecret(points, k)
}

// ReconstructSecret returns the constant term of the polynomial through the
// first k points.
func (s *Solver) ReconstructSecret(points []Point, k int) (*big.Int, error) {
	coeffs, err := s.Solve(points, k)
	if err != nil {
		return nil, err
	}

	secret := coeffs[k-1]
	if !secret.IsInt() {
		return nil, fmt.Errorf("%w: constant term is %s", ErrNonIntegerResult, secret.RatString())
	}
	return new(big.Int).Set(secret.Num()), nil
}

// Solve returns the coefficient vector of the polynomial through the first k
// points, leading coefficient first and constant term last.
func (s *Solver) Solve(points []Point, k int) ([]*big.Rat, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: threshold must be at least 1, got %d", ErrDimensionMismatch, k)
	}
	if len(points) < k {
		return nil, fmt.Errorf("%w: need %d points, got %d", ErrDimensionMismatch, k, len(points))
	}
	for i, p := range points[:k] {
		if p.X == nil || p.Y == nil {
			return nil, fmt.Errorf("%w: point %d has a nil coordinate", ErrDimensionMismatch, i)
		}
	}

	mat := augmentedMatrix(points[:k])
	defer secure.ZeroMatrix(mat)

	if err := s.eliminate(mat); err != nil {
		return nil, err
	}
	return s.backSubstitute(mat), nil
}

// augmentedMatrix builds the k x (k+1) system whose row i is
// [x_i^(k-1) ... x_i 1 | y_i].
func augmentedMatrix(points []Point) [][]*big.Rat {
	k := len(points)
	mat := make([][]*big.Rat, k)
	for i, p := range points {
		row := make([]*big.Rat, k+1)
		pow := big.NewInt(1)
		for j := k - 1; j >= 0; j-- {
			row[j] = new(big.Rat).SetInt(pow)
			pow.Mul(pow, p.X)
		}
		row[k] = new(big.Rat).SetInt(p.Y)
		mat[i] = row
	}
	return mat
}

func (s *Solver) eliminate(mat [][]*big.Rat) error {
	k := len(mat)
	factor := new(big.Rat)
	tmp := new(big.Rat)

	for i := 0; i < k; i++ {
		maxRow := i
		for j := i + 1; j < k; j++ {
			if cmpAbs(mat[j][i], mat[maxRow][i]) > 0 {
				maxRow = j
			}
		}
		mat[i], mat[maxRow] = mat[maxRow], mat[i]

		if mat[i][i].Sign() == 0 {
			return fmt.Errorf("%w: zero pivot in column %d", ErrSingularMatrix, i)
		}

		for j := i + 1; j < k; j++ {
			s.quotient(factor, mat[j][i], mat[i][i])
			if factor.Sign() == 0 {
				continue
			}
			for c := i; c <= k; c++ {
				tmp.Mul(factor, mat[i][c])
				mat[j][c].Sub(mat[j][c], tmp)
			}
		}
	}
	return nil
}

func (s *Solver) backSubstitute(mat [][]*big.Rat) []*big.Rat {
	k := len(mat)
	coeffs := make([]*big.Rat, k)
	tmp := new(big.Rat)

	for i := k - 1; i >= 0; i-- {
		sum := new(big.Rat).Set(mat[i][k])
		for j := i + 1; j < k; j++ {
			tmp.Mul(mat[i][j], coeffs[j])
			sum.Sub(sum, tmp)
		}
		coeffs[i] = s.quotient(new(big.Rat), sum, mat[i][i])
	}
	return coeffs
}

// quotient sets z to a/b. In truncating mode both operands are integers and
// the quotient is rounded toward zero.
func (s *Solver) quotient(z, a, b *big.Rat) *big.Rat {
	if s.Arithmetic == ArithmeticTruncating {
		q := new(big.Int).Quo(a.Num(), b.Num())
		return z.SetInt(q)
	}
	return z.Quo(a, b)
}

func cmpAbs(a, b *big.Rat) int {
	return new(big.Rat).Abs(a).Cmp(new(big.Rat).Abs(b))
}

// Evaluate computes the polynomial with the given coefficients (leading term
// first) at x using Horner's rule.
func Evaluate(coeffs []*big.Rat, x *big.Int) *big.Rat {
	xr := new(big.Rat).SetInt(x)
	acc := new(big.Rat)
	for _, c := range coeffs {
		acc.Mul(acc, xr)
		acc.Add(acc, c)
	}
	return acc
}
