// Package metrics provides Prometheus observability metrics for the staffing planner.
// It includes Critical and Important metrics for business and operational visibility.
package metrics

import (
	"strconv"

	"agent-staffing/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for our application
var Registry = prometheus.NewRegistry()

// factory allows us to register metrics to our custom Registry directly
var factory = promauto.With(Registry)

// =============================================================================
// CRITICAL METRICS - Business Impact Visibility
// =============================================================================

// AgentsUnmetTotal tracks total unmet agent demand across all hours.
// High values indicate capacity planning issues.
var AgentsUnmetTotal = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "agents_unmet_total",
	Help:      "Total number of agents that could not be allocated due to capacity constraints",
})

// AgentsDemandedTotal tracks total agent demand across all hours.
var AgentsDemandedTotal = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "agents_demanded_total",
	Help:      "Total number of agents demanded across all customers and hours",
})

// AgentsAllocatedTotal tracks total agents successfully allocated.
var AgentsAllocatedTotal = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "agents_allocated_total",
	Help:      "Total number of agents successfully allocated",
})

// HighPrioritySatisfaction counts priority-1 requests by outcome
// (full, partial, none) when capacity constraints apply.
var HighPrioritySatisfaction = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "scheduler",
	Name:      "high_priority_requests_total",
	Help:      "Priority-1 requests under capacity constraints by satisfaction outcome",
}, []string{"outcome"})

// HoursWithUnmetDemand tracks number of hours where capacity was exceeded.
var HoursWithUnmetDemand = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "hours_with_unmet_demand",
	Help:      "Number of hours in the schedule where demand exceeded capacity",
})

// UnmetDemandByPriority tracks unmet agents by priority level.
var UnmetDemandByPriority = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "unmet_demand_by_priority",
	Help:      "Unmet agent demand broken down by priority level",
}, []string{"priority"})

// StaffingSolvesTotal counts staffing searches by model and outcome
// (ok, not_found, non_convergence, ...).
var StaffingSolvesTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "staffing",
	Name:      "solves_total",
	Help:      "Minimum-staff searches by queue model and outcome",
}, []string{"model", "outcome"})

// StaffingAgentsRecommended tracks the distribution of recommended agent counts.
var StaffingAgentsRecommended = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "staffing",
	Name:      "agents_recommended",
	Help:      "Minimum agent count meeting the service-level target",
	Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
}, []string{"model"})

// StaffingProjectedServiceLevel tracks the service level achieved by each recommendation.
var StaffingProjectedServiceLevel = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "staffing",
	Name:      "projected_service_level",
	Help:      "Projected fraction of calls answered within the target wait at the recommended staffing",
	Buckets:   []float64{0.5, 0.7, 0.8, 0.85, 0.9, 0.95, 0.99, 1},
})

// =============================================================================
// IMPORTANT METRICS - Operational Health
// =============================================================================

// EngineErrorsTotal tracks queueing-model failures by error kind.
var EngineErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "engine",
	Name:      "errors_total",
	Help:      "Queueing computations that failed, by error kind",
}, []string{"error_type"})

// ParserErrorsTotal tracks parse errors by error type.
var ParserErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "errors_total",
	Help:      "Total parse errors by error type",
}, []string{"error_type"})

// ParserRecordsTotal tracks total records successfully parsed.
var ParserRecordsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "records_total",
	Help:      "Total CSV records successfully parsed",
})

// ParserDurationSeconds tracks time to parse input files.
var ParserDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "parser",
	Name:      "duration_seconds",
	Help:      "Time taken to parse CSV input file",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
})

// SchedulerDurationSeconds tracks time to generate schedule.
var SchedulerDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "scheduler",
	Name:      "duration_seconds",
	Help:      "Time taken to generate the schedule",
	Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1, 5},
})

// SchedulerCustomersProcessed tracks number of customers per scheduling run.
var SchedulerCustomersProcessed = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "scheduler",
	Name:      "customers_processed",
	Help:      "Number of customers processed per scheduling run",
	Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
})

// SchedulerCapacityUsed tracks the capacity used when constraints are applied.
var SchedulerCapacityUsed = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "capacity_used_total",
	Help:      "Total capacity used across all hours when capacity constraints applied",
})

// =============================================================================
// Helper Functions
// =============================================================================

// ResetSchedulerGauges resets all scheduler gauges before a new scheduling run.
// Call this at the start of GenerateSchedule.
func ResetSchedulerGauges() {
	AgentsUnmetTotal.Set(0)
	AgentsDemandedTotal.Set(0)
	AgentsAllocatedTotal.Set(0)
	HoursWithUnmetDemand.Set(0)
	SchedulerCapacityUsed.Set(0)
	UnmetDemandByPriority.Reset()
}

// ObserveSolve records the outcome of one staffing search.
func ObserveSolve(model string, agents int, serviceLevel float64, err error) {
	if err != nil {
		kind := errors.Kind(err)
		StaffingSolvesTotal.WithLabelValues(model, kind).Inc()
		EngineErrorsTotal.WithLabelValues(kind).Inc()
		return
	}
	StaffingSolvesTotal.WithLabelValues(model, "ok").Inc()
	StaffingAgentsRecommended.WithLabelValues(model).Observe(float64(agents))
	StaffingProjectedServiceLevel.Observe(serviceLevel)
}

// ObserveUnmet records unmet agents for one priority level.
func ObserveUnmet(priority, agents int) {
	UnmetDemandByPriority.WithLabelValues(strconv.Itoa(priority)).Add(float64(agents))
}
