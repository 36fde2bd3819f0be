// Package scheduler turns per-customer call windows into an hourly agent
// schedule and applies priority-based capacity limits.
package scheduler

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"agent-staffing/errors"
	"agent-staffing/metrics"
	"agent-staffing/models"
	"agent-staffing/staffing"
)

// Options controls how GenerateSchedule sizes and allocates agents.
type Options struct {
	// Utilization is the fraction of paid time agents spend on calls, in (0, 1].
	// Agent counts are divided by it.
	Utilization float64
	// CapacityPerHour caps the agents available per local hour. 0 means unlimited.
	CapacityPerHour int

	// Solver sizes each customer with a queueing model. When nil, agents are
	// the plain workload ceil(calls × AHT / 3600).
	Solver             *staffing.Solver
	Model              models.QueueModel
	TargetServiceLevel float64
	TargetWaitTime     time.Duration
	// DefaultPatience applies to rows without a patience column.
	DefaultPatience time.Duration

	Logger *slog.Logger
}

// sizing is the staffing decision for one customer window.
type sizing struct {
	callsPerHour float64
	// agents is the concurrent staffing level from the solver, or -1 when
	// the window is sized by workload.
	agents       int
	serviceLevel float64
}

// GenerateSchedule calculates the number of agents needed per local hour for
// each customer, then enforces opts.CapacityPerHour by priority.
func GenerateSchedule(data []models.CallData, opts Options) (*models.Schedule, error) {
	started := time.Now()
	defer func() {
		metrics.SchedulerDurationSeconds.Observe(time.Since(started).Seconds())
	}()
	metrics.ResetSchedulerGauges()
	metrics.SchedulerCustomersProcessed.Observe(float64(len(data)))

	if !(opts.Utilization > 0 && opts.Utilization <= 1) {
		return nil, errors.Invalid("scheduler.GenerateSchedule", "utilization %g must be in (0, 1]", opts.Utilization)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	hourlyRequests := make([][]models.CustomerRequirement, 24)
	for h := range 24 {
		hourlyRequests[h] = make([]models.CustomerRequirement, 0)
	}

	for _, cd := range data {
		start, end := cd.StartTime, cd.EndTime
		// Overnight windows, e.g. 9PM to 5AM.
		if end.Before(start) {
			end = end.Add(24 * time.Hour)
		}

		// Elapsed hours, not wall clock, so DST transitions count correctly.
		durationHours := end.Sub(start).Hours()
		if durationHours <= 0 {
			continue
		}

		sz, err := size(cd, float64(cd.NumberOfCalls)/durationHours, opts, log)
		if err != nil {
			return nil, err
		}

		seen := make(map[int]bool)
		for _, s := range hourSlots(start, end) {
			localTime := s.start
			if cd.Location != nil {
				localTime = s.start.In(cd.Location)
			}
			h := localTime.Hour()

			req := models.CustomerRequirement{
				Name:     cd.CustomerName,
				Location: cd.Location,
				Priority: cd.Priority,
			}
			if sz.agents < 0 {
				// Workload sizing is agent-hours, so a repeated local hour adds up.
				calls := sz.callsPerHour * s.hours
				base := math.Ceil(calls * float64(cd.AverageCallDurationSeconds) / 3600.0)
				req.AgentsNeeded = int(math.Ceil(base / opts.Utilization))
			} else {
				// A staffing level is concurrent; a repeated local hour needs it once.
				if seen[h] {
					continue
				}
				seen[h] = true
				req.AgentsNeeded = sz.agents
				req.ServiceLevel = sz.serviceLevel
			}
			hourlyRequests[h] = append(hourlyRequests[h], req)
		}
	}

	schedule := models.Schedule{
		HourlyRequirements: hourlyRequests,
		UnmetDemands:       make([]models.UnmetDemand, 0),
	}

	demanded := 0
	for h := range 24 {
		for _, req := range hourlyRequests[h] {
			demanded += req.AgentsNeeded
		}
	}
	metrics.AgentsDemandedTotal.Set(float64(demanded))

	if opts.CapacityPerHour > 0 {
		for h := range 24 {
			allocated, unmet := allocateWithConstraints(hourlyRequests[h], opts.CapacityPerHour)
			schedule.HourlyRequirements[h] = allocated
			if unmet != nil {
				unmet.Hour = h
				schedule.UnmetDemands = append(schedule.UnmetDemands, *unmet)
			}
		}
	}

	recordOutcome(&schedule, opts.CapacityPerHour, log)
	return &schedule, nil
}

// size decides how one customer window is staffed.
func size(cd models.CallData, callsPerHour float64, opts Options, log *slog.Logger) (sizing, error) {
	sz := sizing{callsPerHour: callsPerHour, agents: -1}
	if opts.Solver == nil || callsPerHour == 0 {
		return sz, nil
	}

	patience := opts.DefaultPatience
	if cd.PatienceSeconds > 0 {
		patience = time.Duration(cd.PatienceSeconds) * time.Second
	}
	q := models.StaffingQuery{
		CallsPerMinute:     callsPerHour / 60,
		AvgHandleTime:      time.Duration(cd.AverageCallDurationSeconds) * time.Second,
		TargetServiceLevel: opts.TargetServiceLevel,
		TargetWaitTime:     opts.TargetWaitTime,
		Patience:           patience,
		Model:              opts.Model,
	}

	agents, err := opts.Solver.Solve(q)
	var sl float64
	if err == nil {
		sl, err = opts.Solver.ServiceLevel(q, agents)
	}
	metrics.ObserveSolve(string(opts.Model), agents, sl, err)

	switch {
	case stderrors.Is(err, errors.ErrNotFound):
		log.Warn("staffing search exhausted, using workload estimate",
			"customer", cd.CustomerName,
			"calls_per_minute", q.CallsPerMinute,
			"max_agents", opts.Solver.MaxAgents())
		return sz, nil
	case err != nil:
		return sz, fmt.Errorf("sizing %s: %w", cd.CustomerName, err)
	}

	sz.agents = int(math.Ceil(float64(agents) / opts.Utilization))
	sz.serviceLevel = sl
	log.Debug("sized customer",
		"customer", cd.CustomerName,
		"model", opts.Model,
		"calls_per_minute", q.CallsPerMinute,
		"agents", agents,
		"scheduled", sz.agents,
		"service_level", sl)
	return sz, nil
}

// slot is the part of one clock hour covered by a window.
type slot struct {
	start time.Time
	hours float64
}

// hourSlots splits [start, end) at hour boundaries. The first and last slot
// may be partial.
func hourSlots(start, end time.Time) []slot {
	first := time.Date(start.Year(), start.Month(), start.Day(), start.Hour(), 0, 0, 0, start.Location())
	last := time.Date(end.Year(), end.Month(), end.Day(), end.Hour(), 0, 0, 0, end.Location())
	if end.After(last) {
		last = last.Add(time.Hour)
	}

	var slots []slot
	for t := first; t.Before(last); t = t.Add(time.Hour) {
		from, to := t, t.Add(time.Hour)
		if start.After(from) {
			from = start
		}
		if end.Before(to) {
			to = end
		}
		if used := to.Sub(from).Hours(); used > 0 {
			slots = append(slots, slot{start: t, hours: used})
		}
	}
	return slots
}

// allocateWithConstraints fills capacity in priority order (1 = highest).
// Customers sharing a priority keep their input order.
func allocateWithConstraints(requests []models.CustomerRequirement, capacity int) ([]models.CustomerRequirement, *models.UnmetDemand) {
	if len(requests) == 0 {
		return nil, nil
	}

	totalDemand := 0
	for _, req := range requests {
		totalDemand += req.AgentsNeeded
	}
	if capacity >= totalDemand {
		return requests, nil
	}

	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].Priority < requests[j].Priority
	})

	allocated := make([]models.CustomerRequirement, 0, len(requests))
	impactedClients := make([]models.ImpactedClient, 0)
	remaining := capacity

	for _, req := range requests {
		granted := min(remaining, req.AgentsNeeded)
		remaining -= granted

		if req.Priority == 1 {
			metrics.HighPrioritySatisfaction.WithLabelValues(outcome(granted, req.AgentsNeeded)).Inc()
		}
		if granted > 0 {
			a := req
			a.AgentsNeeded = granted
			if granted < req.AgentsNeeded {
				// The projection was for the full request.
				a.ServiceLevel = 0
			}
			allocated = append(allocated, a)
		}
		if granted < req.AgentsNeeded {
			impactedClients = append(impactedClients, models.ImpactedClient{
				Name:            req.Name,
				RequestedAgents: req.AgentsNeeded,
				AllocatedAgents: granted,
				UnmetAgents:     req.AgentsNeeded - granted,
				Priority:        req.Priority,
			})
		}
	}

	return allocated, &models.UnmetDemand{
		TotalDemand:     totalDemand,
		AllocatedAgents: capacity,
		UnmetAgents:     totalDemand - capacity,
		ImpactedClients: impactedClients,
	}
}

func outcome(granted, requested int) string {
	switch {
	case granted >= requested:
		return "full"
	case granted > 0:
		return "partial"
	default:
		return "none"
	}
}

func recordOutcome(schedule *models.Schedule, capacity int, log *slog.Logger) {
	allocated := 0
	for _, reqs := range schedule.HourlyRequirements {
		for _, req := range reqs {
			allocated += req.AgentsNeeded
		}
	}
	metrics.AgentsAllocatedTotal.Set(float64(allocated))
	if capacity > 0 {
		metrics.SchedulerCapacityUsed.Set(float64(allocated))
	}

	unmetTotal := 0
	for _, u := range schedule.UnmetDemands {
		unmetTotal += u.UnmetAgents
		for _, c := range u.ImpactedClients {
			metrics.ObserveUnmet(c.Priority, c.UnmetAgents)
		}
		log.Warn("capacity exceeded",
			"hour", u.Hour,
			"demand", u.TotalDemand,
			"capacity", u.AllocatedAgents,
			"unmet", u.UnmetAgents,
			"impacted", len(u.ImpactedClients))
	}
	metrics.AgentsUnmetTotal.Set(float64(unmetTotal))
	metrics.HoursWithUnmetDemand.Set(float64(len(schedule.UnmetDemands)))
}
