package formatter_test

import (
	"encoding/json"
	"testing"
	"time"

	"agent-staffing/erlanga"
	"agent-staffing/formatter"
	"agent-staffing/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoAgentAnalysis(t *testing.T) *formatter.Analysis {
	t.Helper()
	res, err := erlanga.Solve(models.QueueParameters{Servers: 2, ArrivalRate: 1, ServiceRate: 1, AbandonmentRate: 1})
	require.NoError(t, err)
	a, err := formatter.NewAnalysis(res, 2)
	require.NoError(t, err)
	return a
}

func TestNewAnalysis(t *testing.T) {
	a := twoAgentAnalysis(t)

	assert.InDelta(t, 0.2, a.ErlangBBlocking, 1e-12)
	assert.InDelta(t, 1.0/3, a.ErlangCWaiting, 1e-12)
	assert.InDelta(t, 1.0, a.TrafficIntensity, 1e-12)
	assert.InDelta(t, 0.5, a.OfferedLoadPerServer, 1e-12)
	require.Len(t, a.Positions, 2)
	assert.InDelta(t, 2.0/3, a.Positions[0].Served, 1e-12)
	assert.InDelta(t, 1.0/3, a.Positions[0].Abandon, 1e-12)
	assert.InDelta(t, 0.5, a.Positions[1].Abandon, 1e-12)
	for _, pos := range a.Positions {
		assert.InDelta(t, 1.0, pos.Served+pos.Abandon, 1e-12)
	}
	assert.Positive(t, a.DistributionLength)
}

func TestFormatAnalysis(t *testing.T) {
	a := twoAgentAnalysis(t)

	tests := map[string]struct {
		format   formatter.Format
		contains []string
	}{
		"Text": {
			format: formatter.Text,
			contains: []string{
				"Erlang-A queue: agents=2 arrival=1 service=1 abandonment=1",
				"Erlang-B blocking",
				"0.200000",
				"0.333333",
				"Position   P(served)   P(abandon)",
				"0.666667",
			},
		},
		"JSON": {
			format: formatter.JSON,
			contains: []string{
				`"erlang_b_blocking": 0.2`,
				`"positions": [`,
				`"waiting_probability":`,
			},
		},
		"CSV": {
			format: formatter.CSV,
			contains: []string{
				"metric,value\n",
				"erlang_b_blocking,0.2\n",
				"served_at_position_1,0.5\n",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := formatter.FormatAnalysis(a, tt.format)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func fourPerMinute(model models.QueueModel) models.StaffingQuery {
	return models.StaffingQuery{
		CallsPerMinute:     4,
		AvgHandleTime:      3 * time.Minute,
		TargetServiceLevel: 0.8,
		TargetWaitTime:     20 * time.Second,
		Patience:           2 * time.Minute,
		Model:              model,
	}
}

func TestStaffingReport(t *testing.T) {
	r, err := formatter.NewStaffingReport(fourPerMinute(models.ErlangC), 16, 0.8688)
	require.NoError(t, err)
	require.NotNil(t, r.ASASeconds)
	assert.InDelta(t, 9.21, *r.ASASeconds, 1e-9)
	assert.Zero(t, r.PatienceSeconds)

	text, err := formatter.FormatStaffing(r, formatter.Text)
	require.NoError(t, err)
	assert.Contains(t, text, "erlang-c: 4 calls/min, AHT 180s, target 80.0% within 20s")
	assert.Contains(t, text, "agents required: 16")
	assert.Contains(t, text, "projected service level: 86.88%")
	assert.Contains(t, text, "Erlang-C average speed of answer: 9.21s")

	out, err := formatter.FormatStaffing(r, formatter.CSV)
	require.NoError(t, err)
	assert.Equal(t, "model,calls_per_minute,agents,service_level,asa_seconds\nerlang-c,4,16,0.8688,9.21\n", out)
}

func TestStaffingReport_ErlangAOverloaded(t *testing.T) {
	// 12 Erlangs on 10 agents never drains without abandonment.
	r, err := formatter.NewStaffingReport(fourPerMinute(models.ErlangA), 10, 0.41)
	require.NoError(t, err)
	assert.Nil(t, r.ASASeconds)
	assert.Equal(t, 120.0, r.PatienceSeconds)

	out, err := formatter.FormatStaffing(r, formatter.JSON)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.NotContains(t, decoded, "asa_seconds")
	assert.Equal(t, "erlang-a", decoded["model"])
	assert.Equal(t, 120.0, decoded["patience_seconds"])
	assert.Equal(t, 10.0, decoded["agents"])
}
