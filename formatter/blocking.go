package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"agent-staffing/erlangb"
)

// rappMaxServers is the largest server count Rapp's parabola is reported for.
const rappMaxServers = 2

// BlockingReport is the Erlang-B loss picture for one server count and load.
type BlockingReport struct {
	Servers        float64 `json:"servers"`
	Load           float64 `json:"load"`
	Blocking       float64 `json:"blocking"`
	ApproxBlocking float64 `json:"approx_blocking"`
	// RappBlocking is only set for 0 ≤ servers ≤ 2, where the parabola holds.
	RappBlocking   *float64 `json:"rapp_blocking,omitempty"`
	TargetBlocking float64  `json:"target_blocking,omitempty"`
	MinimumServers *int     `json:"minimum_servers,omitempty"`
}

// NewBlockingReport evaluates servers and load with calc. Servers may be
// fractional. A targetBlocking of 0 skips the minimum-servers search.
func NewBlockingReport(calc *erlangb.Calculator, servers, load, targetBlocking float64) (*BlockingReport, error) {
	blocking, err := calc.BlockingProbabilityNonInteger(servers, load)
	if err != nil {
		return nil, err
	}
	approx, err := erlangb.BlockingProbabilityApprox(servers, load)
	if err != nil {
		return nil, err
	}
	r := &BlockingReport{
		Servers:        servers,
		Load:           load,
		Blocking:       blocking,
		ApproxBlocking: approx,
	}

	if servers <= rappMaxServers {
		rapp, err := erlangb.RappApproximation(servers, load)
		if err != nil {
			return nil, err
		}
		r.RappBlocking = &rapp
	}

	if targetBlocking != 0 {
		n, err := calc.MinimumServers(load, targetBlocking)
		if err != nil {
			return nil, err
		}
		r.TargetBlocking = targetBlocking
		r.MinimumServers = &n
	}
	return r, nil
}

// FormatBlocking renders r in format f.
func FormatBlocking(r *BlockingReport, f Format) (string, error) {
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
		w.Write([]string{"metric", "value"})
		for _, row := range blockingRows(r) {
			w.Write([]string{row.key, row.value})
		}
		w.Flush()
		return sb.String(), w.Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Erlang-B loss: servers=%g load=%g Erlangs\n", r.Servers, r.Load)
	for _, row := range blockingRows(r) {
		fmt.Fprintf(&sb, "  %-32s %s\n", row.label, row.value)
	}
	return sb.String(), nil
}

type blockingRow struct {
	label string
	key   string
	value string
}

func blockingRows(r *BlockingReport) []blockingRow {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	rows := []blockingRow{
		{"Blocking probability", "blocking", f(r.Blocking)},
		{"Blocking (continued recurrence)", "approx_blocking", f(r.ApproxBlocking)},
	}
	if r.RappBlocking != nil {
		rows = append(rows, blockingRow{"Blocking (Rapp)", "rapp_blocking", f(*r.RappBlocking)})
	}
	if r.MinimumServers != nil {
		rows = append(rows, blockingRow{
			fmt.Sprintf("Servers for blocking <= %g", r.TargetBlocking),
			"minimum_servers",
			strconv.Itoa(*r.MinimumServers),
		})
	}
	return rows
}
