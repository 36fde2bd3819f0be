// Package erlangc implements the Erlang-C delay formula for an M/M/n queue
// without abandonment.
package erlangc

import (
	"math"

	"agent-staffing/errors"
)

// TrafficIntensity is the offered load in Erlangs. Both arguments must use
// the same time unit (e.g. calls per minute and minutes per call).
func TrafficIntensity(callsPerPeriod, avgHandleTime float64) float64 {
	return callsPerPeriod * avgHandleTime
}

// Poisson returns mean^k e^-mean / k!, or 0 for k < 0.
// The power and factorial are built up together, one factor per step, so
// large k neither overflows nor loses the e^-mean scale.
func Poisson(k int, mean float64) float64 {
	if k < 0 {
		return 0
	}
	p := math.Exp(-mean)
	for i := 1; i <= k; i++ {
		p *= mean / float64(i)
	}
	return p
}

// PoissonCumulative returns the sum of Poisson(k, mean) for k = 0..n.
// It is 0 for n < 0.
func PoissonCumulative(n int, mean float64) float64 {
	if n < 0 {
		return 0
	}
	term := math.Exp(-mean)
	sum := term
	for k := 1; k <= n; k++ {
		term *= mean / float64(k)
		sum += term
	}
	return sum
}

// WaitProbability returns the Erlang-C probability that a call has to queue
// with n agents and the given traffic intensity. A queue offered at least
// n Erlangs never drains, so every call waits.
func WaitProbability(n int, trafficIntensity float64) (float64, error) {
	const op = "erlangc.WaitProbability"
	if n < 1 {
		return 0, errors.Invalid(op, "n=%d must be at least 1", n)
	}
	if !(trafficIntensity >= 0) {
		return 0, errors.Invalid(op, "traffic intensity %g must be non-negative", trafficIntensity)
	}
	if trafficIntensity >= float64(n) {
		return 1, nil
	}

	x := Poisson(n, trafficIntensity)
	occupancy := trafficIntensity / float64(n)
	cumul := PoissonCumulative(n-1, trafficIntensity)
	return x / (x + (1-occupancy)*cumul), nil
}

// AverageSpeedOfAnswer projects the mean wait of all calls, rounded to two
// decimals, in the unit of avgHandleTime:
//
//	ASA = Pw · AHT / (agents · (1 - occupancy))
//
// calls arrive over periodLength, which shares the unit of avgHandleTime.
// An overloaded queue has an unbounded wait and returns +Inf.
func AverageSpeedOfAnswer(agents int, calls, periodLength, avgHandleTime float64) (float64, error) {
	const op = "erlangc.AverageSpeedOfAnswer"
	if !(periodLength > 0) {
		return 0, errors.Invalid(op, "period length %g must be positive", periodLength)
	}
	if !(calls >= 0) || !(avgHandleTime >= 0) {
		return 0, errors.Invalid(op, "calls=%g and handle time=%g must be non-negative", calls, avgHandleTime)
	}

	traffic := TrafficIntensity(calls/periodLength, avgHandleTime)
	pw, err := WaitProbability(agents, traffic)
	if err != nil {
		return 0, err
	}
	occupancy := traffic / float64(agents)
	if occupancy >= 1 {
		return math.Inf(1), nil
	}
	asa := pw * avgHandleTime / (float64(agents) * (1 - occupancy))
	return math.Round(asa*100) / 100, nil
}
