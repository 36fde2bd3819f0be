// Package erlanga solves the Erlang-A (M/M/n+M) queue: n agents, Poisson
// arrivals, exponential service and exponential caller patience.
//
// With x = nμ/θ and y = λ/θ the model hinges on the series
//
//	A(x, y) = 1 + Σ_{j≥1} y^j / Π_{k=1..j} (x+k)
//
// which links the Erlang-B blocking probability to the probability that all
// agents are busy, p_n = B / (1 + B·(A(x,y) - 1)).
package erlanga

import (
	"fmt"
	"math"

	"agent-staffing/errors"
	"agent-staffing/erlangb"
	"agent-staffing/models"
)

const (
	DefaultEpsilon              = 1e-15
	DefaultMaxIterations        = 1_000_000
	DefaultConsistencyTolerance = 1e-5

	rescaleAbove = 1e250
)

// Config bounds the series evaluations.
type Config struct {
	// Epsilon truncates the A(x,y) series and the distribution tail.
	Epsilon float64
	// MaxIterations caps both the series and the tail extension.
	MaxIterations int
	// ConsistencyTolerance is the allowed gap between p_n from the closed
	// form and p_n from the normalized distribution.
	ConsistencyTolerance float64
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		Epsilon:              DefaultEpsilon,
		MaxIterations:        DefaultMaxIterations,
		ConsistencyTolerance: DefaultConsistencyTolerance,
	}
}

// Model evaluates Erlang-A queues. It is stateless and safe for concurrent use.
type Model struct {
	cfg Config
}

// New returns a Model. Zero fields in cfg take the defaults.
func New(cfg Config) *Model {
	def := DefaultConfig()
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = def.Epsilon
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.ConsistencyTolerance <= 0 {
		cfg.ConsistencyTolerance = def.ConsistencyTolerance
	}
	return &Model{cfg: cfg}
}

var defaultModel = New(DefaultConfig())

// Result is the solved steady state of one queue.
type Result struct {
	Params models.QueueParameters
	// TrafficIntensity is λ/μ in Erlangs.
	TrafficIntensity float64
	// OfferedLoadPerServer is λ/(nμ).
	OfferedLoadPerServer float64
	// AXY is the A(x, y) series value.
	AXY float64
	// BusyNoWait is p_n, the probability that all agents are busy and nobody waits.
	BusyNoWait       float64
	Distribution     models.SteadyStateDistribution
	JobsDistribution []float64
	Metrics          models.PerformanceMetrics
}

// Solve runs the model with the default limits.
func Solve(p models.QueueParameters) (*Result, error) {
	return defaultModel.Solve(p)
}

// WaitingProbability returns P(wait) with the default limits.
func WaitingProbability(p models.QueueParameters) (float64, error) {
	return defaultModel.WaitingProbability(p)
}

// WaitingProbability returns only P(wait) = A(x,y)·p_n, skipping the
// distribution reconstruction.
func (m *Model) WaitingProbability(p models.QueueParameters) (float64, error) {
	const op = "erlanga.WaitingProbability"
	n, err := validate(op, p)
	if err != nil {
		return 0, err
	}
	if p.ArrivalRate == 0 {
		return 0, nil
	}
	axy, pn, err := m.busyProbability(op, n, p)
	if err != nil {
		return 0, err
	}
	return axy * pn, nil
}

// Solve computes the steady-state distribution and the derived metrics.
func (m *Model) Solve(p models.QueueParameters) (*Result, error) {
	const op = "erlanga.Solve"
	n, err := validate(op, p)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Params:               p,
		TrafficIntensity:     p.ArrivalRate / p.ServiceRate,
		OfferedLoadPerServer: p.ArrivalRate / (float64(n) * p.ServiceRate),
	}

	if p.ArrivalRate == 0 {
		// Nobody arrives: the system is empty with certainty.
		res.AXY = 1
		res.Distribution = make(models.SteadyStateDistribution, n+1)
		res.Distribution[0] = 1
		res.JobsDistribution = make([]float64, n+1)
		return res, nil
	}

	axy, pn, err := m.busyProbability(op, n, p)
	if err != nil {
		return nil, err
	}
	res.AXY = axy
	res.BusyNoWait = pn

	dist, err := m.distribution(op, n, p, pn)
	if err != nil {
		return nil, err
	}
	res.Distribution = dist

	res.JobsDistribution = make([]float64, len(dist))
	var inSystem float64
	for i, pi := range dist {
		res.JobsDistribution[i] = float64(i) * pi
		inSystem += res.JobsDistribution[i]
	}

	rho := res.OfferedLoadPerServer
	theta := p.AbandonmentRate
	waiting := axy * pn
	abandonIfDelayed := 1/(rho*axy) + 1 - 1/rho
	abandon := abandonIfDelayed * waiting
	meanWait := abandon / theta

	res.Metrics = models.PerformanceMetrics{
		WaitingProbability:          waiting,
		AbandonmentProbability:      abandon,
		AbandonProbabilityIfDelayed: abandonIfDelayed,
		MeanWaitTime:                meanWait,
		MeanWaitIfDelayed:           (1 / theta) * (1 - 1/rho + 1/(rho*axy)),
		AvgQueueLength:              p.ArrivalRate * meanWait,
		MeanInSystem:                inSystem,
		Throughput:                  math.Min(float64(n)*p.ServiceRate, p.ArrivalRate*(1-abandon)),
	}
	return res, nil
}

// ProbServedAtPosition is the probability that a caller who joins the queue
// with i callers ahead is eventually served.
func (r *Result) ProbServedAtPosition(i int) (float64, error) {
	if i < 0 {
		return 0, errors.Invalid("erlanga.ProbServedAtPosition", "position %d must be non-negative", i)
	}
	capacity := r.Params.Servers * r.Params.ServiceRate
	return capacity / (capacity + r.Params.AbandonmentRate*float64(i+1)), nil
}

// ProbAbandonAtPosition is 1 - ProbServedAtPosition(i).
func (r *Result) ProbAbandonAtPosition(i int) (float64, error) {
	if i < 0 {
		return 0, errors.Invalid("erlanga.ProbAbandonAtPosition", "position %d must be non-negative", i)
	}
	served, err := r.ProbServedAtPosition(i)
	if err != nil {
		return 0, err
	}
	return 1 - served, nil
}

func validate(op string, p models.QueueParameters) (int, error) {
	if !(p.Servers >= 1) || p.Servers != math.Trunc(p.Servers) || math.IsInf(p.Servers, 1) {
		return 0, errors.Invalid(op, "servers=%g must be an integer of at least 1", p.Servers)
	}
	if !(p.ArrivalRate >= 0) || math.IsInf(p.ArrivalRate, 1) {
		return 0, errors.Invalid(op, "arrival rate %g must be non-negative", p.ArrivalRate)
	}
	if !(p.ServiceRate > 0) || math.IsInf(p.ServiceRate, 1) {
		return 0, errors.Invalid(op, "service rate %g must be positive", p.ServiceRate)
	}
	if !(p.AbandonmentRate > 0) || math.IsInf(p.AbandonmentRate, 1) {
		return 0, errors.Invalid(op, "abandonment rate %g must be positive", p.AbandonmentRate)
	}
	return int(p.Servers), nil
}

// busyProbability returns A(x, y) and p_n.
func (m *Model) busyProbability(op string, n int, p models.QueueParameters) (float64, float64, error) {
	axy, err := m.axy(op, float64(n)*p.ServiceRate/p.AbandonmentRate, p.ArrivalRate/p.AbandonmentRate)
	if err != nil {
		return 0, 0, err
	}
	b, err := erlangb.BlockingProbability(n, p.ArrivalRate/p.ServiceRate)
	if err != nil {
		return 0, 0, err
	}
	return axy, b / (1 + b*(axy-1)), nil
}

func (m *Model) axy(op string, x, y float64) (float64, error) {
	res, term := 1.0, 1.0
	for j := 1; j <= m.cfg.MaxIterations; j++ {
		term *= y / (x + float64(j))
		res += term
		if math.IsInf(res, 0) || math.IsNaN(res) {
			return 0, &errors.ComputeError{
				Op:     op,
				Detail: fmt.Sprintf("A(x,y) series overflowed at term %d (x=%g, y=%g)", j, x, y),
				Err:    errors.ErrNonConvergence,
			}
		}
		if term < m.cfg.Epsilon {
			return res, nil
		}
	}
	return 0, errors.NotConverged(op, m.cfg.MaxIterations)
}

// distribution rebuilds p_0..p_n from the birth-death balance equations
// relative to p_n, extends the abandonment tail past n, then normalizes.
// The normalized p_n must agree with the closed form pn.
func (m *Model) distribution(op string, n int, p models.QueueParameters, pn float64) (models.SteadyStateDistribution, error) {
	load := p.ArrivalRate / p.ServiceRate
	capacity := float64(n) * p.ServiceRate

	// Walking down from p_n the weights grow like n!/load^n; rescale before
	// they overflow. Only ratios matter until the final normalization.
	weights := make([]float64, n+1, n+64)
	weights[n] = 1
	for i := n; i > 0; i-- {
		weights[i-1] = weights[i] * float64(i) / load
		if weights[i-1] > rescaleAbove {
			for k := i - 1; k <= n; k++ {
				weights[k] /= rescaleAbove
			}
		}
	}

	anchor := weights[n]
	ratio := 1.0
	for j := 1; ; j++ {
		if j > m.cfg.MaxIterations {
			return nil, errors.NotConverged(op, m.cfg.MaxIterations)
		}
		ratio *= p.ArrivalRate / (capacity + float64(j)*p.AbandonmentRate)
		weights = append(weights, ratio*anchor)
		if ratio*pn < m.cfg.Epsilon {
			break
		}
	}

	var total float64
	for _, v := range weights {
		total += v
	}
	if diff := math.Abs(anchor/total - pn); !(diff <= m.cfg.ConsistencyTolerance) {
		return nil, &errors.ComputeError{
			Op:     op,
			Detail: fmt.Sprintf("p_n=%g from A(x,y) but %g from the distribution (diff %g)", pn, anchor/total, diff),
			Err:    errors.ErrConsistency,
		}
	}

	dist := make(models.SteadyStateDistribution, len(weights))
	for i, v := range weights {
		dist[i] = v / total
	}
	return dist, nil
}
