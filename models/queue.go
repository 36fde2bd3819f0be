package models

import (
	"fmt"
	"strings"
	"time"
)

// QueueModel selects the probability-of-waiting model used for staffing.
type QueueModel string

const (
	// ErlangA is the M/M/n+M queue: callers abandon after an exponential patience.
	ErlangA QueueModel = "erlang-a"
	// ErlangC is the M/M/n delay queue without abandonment.
	ErlangC QueueModel = "erlang-c"
)

// ParseQueueModel accepts "erlang-a", "erlanga", "a" and the C equivalents.
func ParseQueueModel(s string) (QueueModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "erlang-a", "erlanga", "a":
		return ErlangA, nil
	case "erlang-c", "erlangc", "c":
		return ErlangC, nil
	}
	return "", fmt.Errorf("unknown queue model %q (want erlang-a or erlang-c)", s)
}

// QueueParameters describes one queue. Rates share a time unit.
// Servers may be fractional for the Erlang-B non-integer formulas only.
type QueueParameters struct {
	Servers         float64
	ArrivalRate     float64
	ServiceRate     float64
	AbandonmentRate float64
}

// SteadyStateDistribution holds p[i], the probability of i jobs in the system.
// It is truncated once the tail drops below the series tolerance.
type SteadyStateDistribution []float64

// Sum returns the total probability mass.
func (d SteadyStateDistribution) Sum() float64 {
	var s float64
	for _, p := range d {
		s += p
	}
	return s
}

// PerformanceMetrics are the steady-state outputs of a queue model.
// Times use the unit of the input rates.
type PerformanceMetrics struct {
	WaitingProbability          float64 `json:"waiting_probability"`
	AbandonmentProbability      float64 `json:"abandonment_probability"`
	AbandonProbabilityIfDelayed float64 `json:"abandon_probability_if_delayed"`
	MeanWaitTime                float64 `json:"mean_wait_time"`
	MeanWaitIfDelayed           float64 `json:"mean_wait_if_delayed"`
	AvgQueueLength              float64 `json:"avg_queue_length"`
	MeanInSystem                float64 `json:"mean_in_system"`
	Throughput                  float64 `json:"throughput"`
}

// StaffingQuery asks for the smallest agent count that answers more than
// TargetServiceLevel of calls within TargetWaitTime.
type StaffingQuery struct {
	CallsPerMinute     float64
	AvgHandleTime      time.Duration
	TargetServiceLevel float64
	TargetWaitTime     time.Duration
	// Patience is the mean caller patience; required for ErlangA only.
	Patience time.Duration
	Model    QueueModel
}
