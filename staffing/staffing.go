// Package staffing finds the smallest number of agents that meets a
// service-level target under the Erlang-A or Erlang-C model.
package staffing

import (
	stderrors "errors"
	"fmt"
	"math"
	"strings"

	"agent-staffing/errors"
	"agent-staffing/erlanga"
	"agent-staffing/erlangc"
	"agent-staffing/models"
)

// DefaultMaxAgents is the search ceiling.
const DefaultMaxAgents = 500

// Strategy selects how agent counts are searched.
type Strategy string

const (
	// Linear tries 1, 2, 3, ... and stops at the first count that meets the target.
	Linear Strategy = "linear"
	// Bisection halves [1, MaxAgents]; it relies on the service level rising with agents.
	Bisection Strategy = "bisection"
)

// ParseStrategy accepts "linear" or "bisection".
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case Linear:
		return Linear, nil
	case Bisection:
		return Bisection, nil
	}
	return "", fmt.Errorf("unknown search strategy %q (want linear or bisection)", s)
}

// Config configures a Solver.
type Config struct {
	MaxAgents int
	Strategy  Strategy
	ErlangA   erlanga.Config
}

// DefaultConfig returns a linear search up to DefaultMaxAgents.
func DefaultConfig() Config {
	return Config{
		MaxAgents: DefaultMaxAgents,
		Strategy:  Linear,
		ErlangA:   erlanga.DefaultConfig(),
	}
}

// Solver answers StaffingQuery values. It is safe for concurrent use.
type Solver struct {
	maxAgents int
	strategy  Strategy
	erlangA   *erlanga.Model
}

// New returns a Solver for cfg.
func New(cfg Config) *Solver {
	if cfg.MaxAgents <= 0 {
		cfg.MaxAgents = DefaultMaxAgents
	}
	if cfg.Strategy == "" {
		cfg.Strategy = Linear
	}
	return &Solver{
		maxAgents: cfg.MaxAgents,
		strategy:  cfg.Strategy,
		erlangA:   erlanga.New(cfg.ErlangA),
	}
}

var defaultSolver = New(DefaultConfig())

// SolveMinimumStaff runs q through the default Solver.
func SolveMinimumStaff(q models.StaffingQuery) (int, error) {
	return defaultSolver.Solve(q)
}

// MaxAgents returns the search ceiling.
func (s *Solver) MaxAgents() int {
	return s.maxAgents
}

// Solve returns the smallest agent count whose service level exceeds
// q.TargetServiceLevel. When no count up to the ceiling does, the error
// wraps errors.ErrNotFound.
func (s *Solver) Solve(q models.StaffingQuery) (int, error) {
	const op = "staffing.Solve"
	if err := validate(op, q); err != nil {
		return 0, err
	}

	switch s.strategy {
	case Bisection:
		return s.bisect(op, q)
	default:
		return s.scan(op, q)
	}
}

// ServiceLevel is the projected fraction of calls answered within
// q.TargetWaitTime with the given number of agents:
//
//	SL = 1 - Pw · exp(-(agents - A) · targetWait / AHT)
//
// where A is the offered load in Erlangs and Pw comes from q.Model.
func (s *Solver) ServiceLevel(q models.StaffingQuery, agents int) (float64, error) {
	const op = "staffing.ServiceLevel"
	if err := validate(op, q); err != nil {
		return 0, err
	}
	if agents < 1 {
		return 0, errors.Invalid(op, "agents=%d must be at least 1", agents)
	}
	return s.serviceLevel(q, agents)
}

func (s *Solver) serviceLevel(q models.StaffingQuery, agents int) (float64, error) {
	aht := q.AvgHandleTime.Minutes()
	traffic := erlangc.TrafficIntensity(q.CallsPerMinute, aht)

	var pw float64
	var err error
	switch q.Model {
	case models.ErlangA:
		pw, err = s.erlangA.WaitingProbability(models.QueueParameters{
			Servers:         float64(agents),
			ArrivalRate:     q.CallsPerMinute,
			ServiceRate:     1 / aht,
			AbandonmentRate: 1 / q.Patience.Minutes(),
		})
	default:
		pw, err = erlangc.WaitProbability(agents, traffic)
	}
	if err != nil {
		return 0, err
	}

	wait := q.TargetWaitTime.Minutes()
	return 1 - pw*math.Exp(-(float64(agents)-traffic)*(wait/aht)), nil
}

// search tracks one staffing search. A count whose queue cannot be evaluated
// without overflow counts as not meeting the target; the error is kept so a
// search that never meets it can still report why.
type search struct {
	s       *Solver
	q       models.StaffingQuery
	skipped error
}

func (sr *search) meets(agents int) (bool, error) {
	sl, err := sr.s.serviceLevel(sr.q, agents)
	if stderrors.Is(err, errors.ErrNonConvergence) {
		sr.skipped = err
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sl > sr.q.TargetServiceLevel, nil
}

// exhausted is the error for a search that found no count meeting the target.
func (sr *search) exhausted(op string) error {
	if sr.skipped != nil {
		return sr.skipped
	}
	return sr.s.notFound(op, sr.q)
}

func (s *Solver) scan(op string, q models.StaffingQuery) (int, error) {
	sr := &search{s: s, q: q}
	for agents := 1; agents <= s.maxAgents; agents++ {
		ok, err := sr.meets(agents)
		if err != nil {
			return 0, err
		}
		if ok {
			return agents, nil
		}
	}
	return 0, sr.exhausted(op)
}

func (s *Solver) bisect(op string, q models.StaffingQuery) (int, error) {
	sr := &search{s: s, q: q}
	ok, err := sr.meets(s.maxAgents)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, sr.exhausted(op)
	}

	// Overflow only happens at the low end, where the target is not met anyway.
	lo, hi := 1, s.maxAgents
	for lo < hi {
		mid := lo + (hi-lo)/2
		ok, err := sr.meets(mid)
		if err != nil {
			return 0, err
		}
		if ok {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, nil
}

func (s *Solver) notFound(op string, q models.StaffingQuery) error {
	return &errors.ComputeError{
		Op: op,
		Detail: fmt.Sprintf("%.4g calls/min at %s AHT needs more than %d agents",
			q.CallsPerMinute, q.AvgHandleTime, s.maxAgents),
		Err: errors.ErrNotFound,
	}
}

func validate(op string, q models.StaffingQuery) error {
	if !(q.CallsPerMinute >= 0) || math.IsInf(q.CallsPerMinute, 1) {
		return errors.Invalid(op, "calls per minute %g must be non-negative", q.CallsPerMinute)
	}
	if q.AvgHandleTime <= 0 {
		return errors.Invalid(op, "average handle time %s must be positive", q.AvgHandleTime)
	}
	if !(q.TargetServiceLevel > 0 && q.TargetServiceLevel <= 1) {
		return errors.Invalid(op, "target service level %g must be in (0, 1]", q.TargetServiceLevel)
	}
	if q.TargetWaitTime < 0 {
		return errors.Invalid(op, "target wait time %s must be non-negative", q.TargetWaitTime)
	}
	switch q.Model {
	case models.ErlangA:
		if q.Patience <= 0 {
			return errors.Invalid(op, "patience %s must be positive for %s", q.Patience, q.Model)
		}
	case models.ErlangC:
	default:
		return errors.Invalid(op, "unknown model %q", q.Model)
	}
	return nil
}
