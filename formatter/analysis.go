package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"agent-staffing/erlanga"
	"agent-staffing/erlangb"
	"agent-staffing/erlangc"
	"agent-staffing/models"
)

// Analysis is a single-queue report: the Erlang-A steady state plus the
// Erlang-B and Erlang-C values for the same agents and load.
type Analysis struct {
	Parameters           models.QueueParameters    `json:"parameters"`
	TrafficIntensity     float64                   `json:"traffic_intensity"`
	OfferedLoadPerServer float64                   `json:"offered_load_per_server"`
	Metrics              models.PerformanceMetrics `json:"metrics"`
	ErlangBBlocking      float64                   `json:"erlang_b_blocking"`
	ErlangCWaiting       float64                   `json:"erlang_c_waiting_probability"`
	DistributionLength   int                       `json:"distribution_length"`
	Positions            []Position                `json:"positions,omitempty"`
}

// Position holds the fate of a caller who joins with Index callers ahead.
type Position struct {
	Index   int     `json:"index"`
	Served  float64 `json:"served"`
	Abandon float64 `json:"abandon"`
}

// NewAnalysis builds an Analysis from a solved queue, listing the first
// positions queue positions.
func NewAnalysis(res *erlanga.Result, positions int) (*Analysis, error) {
	n := int(res.Params.Servers)
	blocking, err := erlangb.BlockingProbability(n, res.TrafficIntensity)
	if err != nil {
		return nil, err
	}
	waiting, err := erlangc.WaitProbability(n, res.TrafficIntensity)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Parameters:           res.Params,
		TrafficIntensity:     res.TrafficIntensity,
		OfferedLoadPerServer: res.OfferedLoadPerServer,
		Metrics:              res.Metrics,
		ErlangBBlocking:      blocking,
		ErlangCWaiting:       waiting,
		DistributionLength:   len(res.Distribution),
	}
	for i := range positions {
		served, err := res.ProbServedAtPosition(i)
		if err != nil {
			return nil, err
		}
		abandon, err := res.ProbAbandonAtPosition(i)
		if err != nil {
			return nil, err
		}
		a.Positions = append(a.Positions, Position{Index: i, Served: served, Abandon: abandon})
	}
	return a, nil
}

// FormatAnalysis renders a in format f.
func FormatAnalysis(a *Analysis, f Format) (string, error) {
	switch f {
	case JSON:
		b, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	case CSV:
		return analysisCSV(a)
	}

	var sb strings.Builder
	p := a.Parameters
	fmt.Fprintf(&sb, "Erlang-A queue: agents=%g arrival=%g service=%g abandonment=%g\n",
		p.Servers, p.ArrivalRate, p.ServiceRate, p.AbandonmentRate)
	for _, row := range analysisRows(a) {
		fmt.Fprintf(&sb, "  %-32s %.6f\n", row.label, row.value)
	}
	if len(a.Positions) > 0 {
		sb.WriteString("  Position   P(served)   P(abandon)\n")
		for _, pos := range a.Positions {
			fmt.Fprintf(&sb, "  %8d   %9.6f   %10.6f\n", pos.Index, pos.Served, pos.Abandon)
		}
	}
	return sb.String(), nil
}

type analysisRow struct {
	label string
	key   string
	value float64
}

func analysisRows(a *Analysis) []analysisRow {
	m := a.Metrics
	return []analysisRow{
		{"Traffic intensity (Erlangs)", "traffic_intensity", a.TrafficIntensity},
		{"Offered load per agent", "offered_load_per_server", a.OfferedLoadPerServer},
		{"P(wait)", "waiting_probability", m.WaitingProbability},
		{"P(abandon)", "abandonment_probability", m.AbandonmentProbability},
		{"P(abandon | delayed)", "abandon_probability_if_delayed", m.AbandonProbabilityIfDelayed},
		{"Mean wait", "mean_wait_time", m.MeanWaitTime},
		{"Mean wait | delayed", "mean_wait_if_delayed", m.MeanWaitIfDelayed},
		{"Mean queue length", "avg_queue_length", m.AvgQueueLength},
		{"Mean jobs in system", "mean_in_system", m.MeanInSystem},
		{"Throughput", "throughput", m.Throughput},
		{"Erlang-B blocking", "erlang_b_blocking", a.ErlangBBlocking},
		{"Erlang-C P(wait)", "erlang_c_waiting_probability", a.ErlangCWaiting},
	}
}

func analysisCSV(a *Analysis) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Write([]string{"metric", "value"})
	for _, row := range analysisRows(a) {
		w.Write([]string{row.key, strconv.FormatFloat(row.value, 'g', -1, 64)})
	}
	for _, pos := range a.Positions {
		w.Write([]string{fmt.Sprintf("served_at_position_%d", pos.Index), strconv.FormatFloat(pos.Served, 'g', -1, 64)})
		w.Write([]string{fmt.Sprintf("abandon_at_position_%d", pos.Index), strconv.FormatFloat(pos.Abandon, 'g', -1, 64)})
	}
	w.Flush()
	return sb.String(), w.Error()
}

// StaffingReport is the answer to one staffing query.
type StaffingReport struct {
	Model              models.QueueModel `json:"model"`
	CallsPerMinute     float64           `json:"calls_per_minute"`
	AvgHandleSeconds   float64           `json:"avg_handle_seconds"`
	TargetServiceLevel float64           `json:"target_service_level"`
	TargetWaitSeconds  float64           `json:"target_wait_seconds"`
	PatienceSeconds    float64           `json:"patience_seconds,omitempty"`
	Agents             int               `json:"agents"`
	ServiceLevel       float64           `json:"service_level"`
	// ASASeconds is the Erlang-C average speed of answer; nil when the
	// recommended agents cannot drain the offered load.
	ASASeconds *float64 `json:"asa_seconds,omitempty"`
}

// NewStaffingReport combines a query with its solved agent count and
// projected service level.
func NewStaffingReport(q models.StaffingQuery, agents int, serviceLevel float64) (*StaffingReport, error) {
	r := &StaffingReport{
		Model:              q.Model,
		CallsPerMinute:     q.CallsPerMinute,
		AvgHandleSeconds:   q.AvgHandleTime.Seconds(),
		TargetServiceLevel: q.TargetServiceLevel,
		TargetWaitSeconds:  q.TargetWaitTime.Seconds(),
		Agents:             agents,
		ServiceLevel:       serviceLevel,
	}
	if q.Model == models.ErlangA {
		r.PatienceSeconds = q.Patience.Seconds()
	}

	// Calls per minute arrive over a 60 second period, so ASA comes back in seconds.
	asa, err := erlangc.AverageSpeedOfAnswer(agents, q.CallsPerMinute, 60, q.AvgHandleTime.Seconds())
	if err != nil {
		return nil, err
	}
	if !math.IsInf(asa, 0) {
		r.ASASeconds = &asa
	}
	return r, nil
}

// FormatStaffing renders r in format f.
func FormatStaffing(r *StaffingReport, f Format) (string, error) {
	switch f {
	case JSON:
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	case CSV:
		var sb strings.Builder
		w := csv.NewWriter(&sb)
		asa := ""
		if r.ASASeconds != nil {
			asa = strconv.FormatFloat(*r.ASASeconds, 'f', 2, 64)
		}
		w.Write([]string{"model", "calls_per_minute", "agents", "service_level", "asa_seconds"})
		w.Write([]string{
			string(r.Model),
			strconv.FormatFloat(r.CallsPerMinute, 'g', -1, 64),
			strconv.Itoa(r.Agents),
			strconv.FormatFloat(r.ServiceLevel, 'f', 4, 64),
			asa,
		})
		w.Flush()
		return sb.String(), w.Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %.4g calls/min, AHT %gs, target %.1f%% within %gs\n",
		r.Model, r.CallsPerMinute, r.AvgHandleSeconds, r.TargetServiceLevel*100, r.TargetWaitSeconds)
	if r.PatienceSeconds > 0 {
		fmt.Fprintf(&sb, "  mean patience %gs\n", r.PatienceSeconds)
	}
	fmt.Fprintf(&sb, "  agents required: %d\n", r.Agents)
	fmt.Fprintf(&sb, "  projected service level: %.2f%%\n", r.ServiceLevel*100)
	if r.ASASeconds != nil {
		fmt.Fprintf(&sb, "  Erlang-C average speed of answer: %.2fs\n", *r.ASASeconds)
	}
	return sb.String(), nil
}
