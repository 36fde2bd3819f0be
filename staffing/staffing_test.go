package staffing_test

import (
	"errors"
	"testing"
	"time"

	customerrors "agent-staffing/errors"
	"agent-staffing/models"
	"agent-staffing/staffing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func query(cpm float64, aht time.Duration, target float64, wait, patience time.Duration, model models.QueueModel) models.StaffingQuery {
	return models.StaffingQuery{
		CallsPerMinute:     cpm,
		AvgHandleTime:      aht,
		TargetServiceLevel: target,
		TargetWaitTime:     wait,
		Patience:           patience,
		Model:              model,
	}
}

var solveCases = map[string]struct {
	query    models.StaffingQuery
	expected int
}{
	// 12 Erlangs, 80/20.
	"ErlangC_8020": {
		query:    query(4, 3*time.Minute, 0.8, 20*time.Second, 0, models.ErlangC),
		expected: 16,
	},
	"ErlangA_8020_PatientCallers": {
		query:    query(4, 3*time.Minute, 0.8, 20*time.Second, 2*time.Minute, models.ErlangA),
		expected: 15,
	},
	"ErlangA_8020_ImpatientCallers": {
		query:    query(4, 3*time.Minute, 0.8, 20*time.Second, 30*time.Second, models.ErlangA),
		expected: 14,
	},
	// 50 Erlangs, 90/30.
	"ErlangC_9030": {
		query:    query(10, 5*time.Minute, 0.9, 30*time.Second, 0, models.ErlangC),
		expected: 58,
	},
	"ErlangA_9030": {
		query:    query(10, 5*time.Minute, 0.9, 30*time.Second, 3*time.Minute, models.ErlangA),
		expected: 57,
	},
	// Zero threshold: SL = 1 - Pw.
	"ErlangC_ZeroWait": {
		query:    query(1, time.Minute, 0.5, 0, 0, models.ErlangC),
		expected: 2,
	},
	"ErlangC_LargeCenter": {
		query:    query(100, 4*time.Minute, 0.99, 0, 0, models.ErlangC),
		expected: 449,
	},
	"ErlangA_LargeCenter": {
		query:    query(100, 4*time.Minute, 0.8, 20*time.Second, 5*time.Minute, models.ErlangA),
		expected: 408,
	},
	"NoCalls": {
		query:    query(0, 3*time.Minute, 0.8, 20*time.Second, 0, models.ErlangC),
		expected: 1,
	},
}

func TestSolveMinimumStaff(t *testing.T) {
	for name, tt := range solveCases {
		t.Run(name, func(t *testing.T) {
			agents, err := staffing.SolveMinimumStaff(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, agents)
		})
	}
}

func TestSolve_Minimality(t *testing.T) {
	solver := staffing.New(staffing.DefaultConfig())

	for name, tt := range solveCases {
		t.Run(name, func(t *testing.T) {
			agents, err := solver.Solve(tt.query)
			require.NoError(t, err)

			at, err := solver.ServiceLevel(tt.query, agents)
			require.NoError(t, err)
			assert.Greater(t, at, tt.query.TargetServiceLevel)

			if agents > 1 {
				below, err := solver.ServiceLevel(tt.query, agents-1)
				require.NoError(t, err)
				assert.LessOrEqual(t, below, tt.query.TargetServiceLevel)
			}
		})
	}
}

func TestSolve_BisectionMatchesLinear(t *testing.T) {
	cfg := staffing.DefaultConfig()
	cfg.Strategy = staffing.Bisection
	bisect := staffing.New(cfg)

	for name, tt := range solveCases {
		t.Run(name, func(t *testing.T) {
			agents, err := bisect.Solve(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, agents)
		})
	}
}

func TestServiceLevel(t *testing.T) {
	solver := staffing.New(staffing.DefaultConfig())

	tests := map[string]struct {
		query    models.StaffingQuery
		agents   int
		expected float64
	}{
		"ErlangC_15": {query: solveCases["ErlangC_8020"].query, agents: 15, expected: 0.7712900663714926},
		"ErlangC_16": {query: solveCases["ErlangC_8020"].query, agents: 16, expected: 0.8688312539855577},
		// Twelve agents on twelve Erlangs: every call waits, exponent is zero.
		"ErlangC_Saturated": {query: solveCases["ErlangC_8020"].query, agents: 12, expected: 0},
		"ErlangA_14":        {query: solveCases["ErlangA_8020_PatientCallers"].query, agents: 14, expected: 0.7652938194380954},
		"ErlangA_15":        {query: solveCases["ErlangA_8020_PatientCallers"].query, agents: 15, expected: 0.8486936333454418},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			sl, err := solver.ServiceLevel(tt.query, tt.agents)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, sl, 1e-9)
		})
	}

	_, err := solver.ServiceLevel(solveCases["ErlangC_8020"].query, 0)
	assert.True(t, errors.Is(err, customerrors.ErrInvalidParameter))
}

func TestSolve_NotFound(t *testing.T) {
	tests := map[string]struct {
		cfg   staffing.Config
		query models.StaffingQuery
	}{
		// 520 Erlangs cannot be carried by 500 agents.
		"BeyondDefaultCeiling": {
			cfg:   staffing.DefaultConfig(),
			query: query(130, 4*time.Minute, 0.8, 20*time.Second, 0, models.ErlangC),
		},
		"BeyondDefaultCeiling_Bisection": {
			cfg:   staffing.Config{Strategy: staffing.Bisection},
			query: query(130, 4*time.Minute, 0.8, 20*time.Second, 0, models.ErlangC),
		},
		"SmallCeiling": {
			cfg:   staffing.Config{MaxAgents: 10},
			query: solveCases["ErlangC_8020"].query,
		},
		"SmallCeiling_ErlangA": {
			cfg:   staffing.Config{MaxAgents: 10, Strategy: staffing.Bisection},
			query: solveCases["ErlangA_8020_PatientCallers"].query,
		},
		// A service level can reach 1 but never exceed it.
		"PerfectTarget": {
			cfg:   staffing.DefaultConfig(),
			query: query(0, 3*time.Minute, 1, 20*time.Second, 0, models.ErlangC),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := staffing.New(tt.cfg).Solve(tt.query)
			require.Error(t, err)
			assert.True(t, errors.Is(err, customerrors.ErrNotFound), "got %v", err)
			assert.False(t, errors.Is(err, customerrors.ErrInvalidParameter))
		})
	}
}

func TestSolve_InvalidParameter(t *testing.T) {
	valid := solveCases["ErlangA_8020_PatientCallers"].query

	tests := map[string]func(q *models.StaffingQuery){
		"NegativeCalls":   func(q *models.StaffingQuery) { q.CallsPerMinute = -1 },
		"ZeroHandleTime":  func(q *models.StaffingQuery) { q.AvgHandleTime = 0 },
		"ZeroTarget":      func(q *models.StaffingQuery) { q.TargetServiceLevel = 0 },
		"TargetAboveOne":  func(q *models.StaffingQuery) { q.TargetServiceLevel = 1.2 },
		"NegativeWait":    func(q *models.StaffingQuery) { q.TargetWaitTime = -time.Second },
		"MissingPatience": func(q *models.StaffingQuery) { q.Patience = 0 },
		"UnknownModel":    func(q *models.StaffingQuery) { q.Model = "erlang-x" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			q := valid
			mutate(&q)
			_, err := staffing.SolveMinimumStaff(q)
			assert.True(t, errors.Is(err, customerrors.ErrInvalidParameter), "got %v", err)
		})
	}

	// Patience is irrelevant to Erlang-C.
	q := solveCases["ErlangC_8020"].query
	q.Patience = 0
	_, err := staffing.SolveMinimumStaff(q)
	assert.NoError(t, err)
}

func TestSolve_NoCountConverges(t *testing.T) {
	cfg := staffing.DefaultConfig()
	cfg.ErlangA.MaxIterations = 2

	q := query(19, time.Minute, 0.8, 20*time.Second, 1000*time.Hour, models.ErlangA)
	for _, strategy := range []staffing.Strategy{staffing.Linear, staffing.Bisection} {
		cfg.Strategy = strategy
		_, err := staffing.New(cfg).Solve(q)
		assert.True(t, errors.Is(err, customerrors.ErrNonConvergence), "%s: got %v", strategy, err)
	}
}

// Small agent counts against a large arrival-to-abandonment ratio overflow
// the Erlang-A series. Those counts cannot meet the target, so both searches
// step past them.
func TestSolve_SkipsOverflowingCounts(t *testing.T) {
	tests := map[string]struct {
		query    models.StaffingQuery
		expected int
	}{
		"HeavyLoad_TenMinutePatience": {
			query:    query(100, 2*time.Minute, 0.8, 20*time.Second, 10*time.Minute, models.ErlangA),
			expected: 206,
		},
		"NearlyInfinitePatience": {
			query: query(19, time.Minute, 0.8, 20*time.Second, time.Duration(1e6)*time.Minute, models.ErlangA),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			linear := staffing.New(staffing.DefaultConfig())
			_, err := linear.ServiceLevel(tt.query, 1)
			require.True(t, errors.Is(err, customerrors.ErrNonConvergence), "got %v", err)

			got, err := linear.Solve(tt.query)
			require.NoError(t, err)

			cfg := staffing.DefaultConfig()
			cfg.Strategy = staffing.Bisection
			bisected, err := staffing.New(cfg).Solve(tt.query)
			require.NoError(t, err)
			assert.Equal(t, got, bisected)

			if tt.expected > 0 {
				assert.Equal(t, tt.expected, got)
			}
			// More agents than Erlangs offered, or the queue only drains by abandonment.
			assert.Greater(t, float64(got), tt.query.CallsPerMinute*tt.query.AvgHandleTime.Minutes())

			sl, err := linear.ServiceLevel(tt.query, got)
			require.NoError(t, err)
			assert.Greater(t, sl, tt.query.TargetServiceLevel)
		})
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := staffing.ParseStrategy(" Bisection ")
	require.NoError(t, err)
	assert.Equal(t, staffing.Bisection, s)

	s, err = staffing.ParseStrategy("linear")
	require.NoError(t, err)
	assert.Equal(t, staffing.Linear, s)

	_, err = staffing.ParseStrategy("newton")
	assert.Error(t, err)
}
