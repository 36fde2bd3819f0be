// Package erlangb implements the Erlang-B loss formula (M/M/n/n) for integer
// and non-integer server counts, two closed-form approximations and the
// minimum-servers search.
package erlangb

import (
	"math"

	"agent-staffing/errors"
	"agent-staffing/specfunc"
)

// DefaultMaxServers bounds the MinimumServers scan.
const DefaultMaxServers = 10000

// Config configures a Calculator.
type Config struct {
	Gamma      specfunc.Config
	MaxServers int
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		Gamma:      specfunc.DefaultConfig(),
		MaxServers: DefaultMaxServers,
	}
}

// Calculator evaluates the formulas that need iteration limits.
type Calculator struct {
	gamma      *specfunc.Evaluator
	maxServers int
}

// New returns a Calculator for cfg.
func New(cfg Config) *Calculator {
	if cfg.MaxServers <= 0 {
		cfg.MaxServers = DefaultMaxServers
	}
	return &Calculator{
		gamma:      specfunc.New(cfg.Gamma),
		maxServers: cfg.MaxServers,
	}
}

var defaultCalculator = New(DefaultConfig())

// BlockingProbability returns B(n, load) by Erlang's recurrence
//
//	B(0) = 1,  B(i) = load·B(i-1) / (i + load·B(i-1))
func BlockingProbability(n int, load float64) (float64, error) {
	const op = "erlangb.BlockingProbability"
	if n < 0 {
		return 0, errors.Invalid(op, "n=%d must be non-negative", n)
	}
	if !(load >= 0) {
		return 0, errors.Invalid(op, "load=%g must be non-negative", load)
	}
	p := 1.0
	for i := 1; i <= n; i++ {
		p = load * p / (float64(i) + load*p)
	}
	return p, nil
}

// BlockingProbabilityNonInteger evaluates B(n, load) with the default limits.
func BlockingProbabilityNonInteger(n, load float64) (float64, error) {
	return defaultCalculator.BlockingProbabilityNonInteger(n, load)
}

// MinimumServers runs the search with the default limits.
func MinimumServers(load, targetBlocking float64) (int, error) {
	return defaultCalculator.MinimumServers(load, targetBlocking)
}

// BlockingProbabilityNonInteger extends B to real n through the upper
// incomplete gamma function:
//
//	B(n, A) = A^n e^-A / Γ(n+1, A)
//
// A regularized Q that underflows to zero saturates the result at 1.
func (c *Calculator) BlockingProbabilityNonInteger(n, load float64) (float64, error) {
	const op = "erlangb.BlockingProbabilityNonInteger"
	if err := checkArgs(op, n, load); err != nil {
		return 0, err
	}
	if load == 0 {
		return 0, nil
	}
	if n == 0 {
		return 1, nil
	}
	if n == math.Trunc(n) {
		return BlockingProbability(int(n), load)
	}

	q, err := c.gamma.RegularizedGammaQ(n+1, load)
	if err != nil {
		return 0, err
	}
	if q == 0 {
		return 1, nil
	}
	return math.Exp(n*math.Log(load) - load - (math.Log(q) + specfunc.LogGamma(n+1))), nil
}

// BlockingProbabilityApprox seeds the recurrence with a continuous form for
// the fractional part s of n, then steps floor(n) servers with index offset s.
func BlockingProbabilityApprox(n, load float64) (float64, error) {
	const op = "erlangb.BlockingProbabilityApprox"
	if err := checkArgs(op, n, load); err != nil {
		return 0, err
	}
	whole := math.Floor(n)
	s := n - whole
	if load == 0 {
		if n == 0 {
			return 1, nil
		}
		return 0, nil
	}

	p := ((2-s)*load + load*load) / (s + 2*load + load*load)
	for i := 1; i <= int(whole); i++ {
		p = load * p / (float64(i) + s + load*p)
	}
	return p, nil
}

// RappApproximation is Rapp's parabola through B(0)=1, B(1) and B(2):
//
//	B(n, A) ≈ 1 + C1·n + C2·n²
//	C1 = -(A+2) / ((1+A)² + A)
//	C2 = 1 / ((1+A)·((1+A)² + A))
//
// It is accurate for 0 ≤ n ≤ 2.
func RappApproximation(n, load float64) (float64, error) {
	const op = "erlangb.RappApproximation"
	if err := checkArgs(op, n, load); err != nil {
		return 0, err
	}
	d := (1+load)*(1+load) + load
	c1 := -(load + 2) / d
	c2 := 1 / ((1 + load) * d)
	return 1 + c1*n + c2*n*n, nil
}

// MinimumServers returns the smallest n with B(n, load) ≤ targetBlocking.
func (c *Calculator) MinimumServers(load, targetBlocking float64) (int, error) {
	const op = "erlangb.MinimumServers"
	if !(load >= 0) {
		return 0, errors.Invalid(op, "load=%g must be non-negative", load)
	}
	if !(targetBlocking > 0 && targetBlocking <= 1) {
		return 0, errors.Invalid(op, "target=%g must be in (0, 1]", targetBlocking)
	}
	if targetBlocking == 1 || load == 0 {
		return 0, nil
	}

	p := 1.0
	for n := 1; n <= c.maxServers; n++ {
		p = load * p / (float64(n) + load*p)
		if p <= targetBlocking {
			return n, nil
		}
	}
	return 0, &errors.ComputeError{
		Op:     op,
		Detail: "no server count up to the search ceiling meets the target",
		Err:    errors.ErrNotFound,
	}
}

func checkArgs(op string, n, load float64) error {
	if !(n >= 0) || math.IsInf(n, 1) {
		return errors.Invalid(op, "n=%g must be a finite non-negative number", n)
	}
	if !(load >= 0) || math.IsInf(load, 1) {
		return errors.Invalid(op, "load=%g must be a finite non-negative number", load)
	}
	return nil
}
