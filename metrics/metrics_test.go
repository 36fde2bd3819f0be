package metrics_test

import (
	"testing"

	customerrors "agent-staffing/errors"
	"agent-staffing/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveSolve(t *testing.T) {
	okBefore := testutil.ToFloat64(metrics.StaffingSolvesTotal.WithLabelValues("erlang-c", "ok"))
	nfBefore := testutil.ToFloat64(metrics.StaffingSolvesTotal.WithLabelValues("erlang-c", "not_found"))
	errBefore := testutil.ToFloat64(metrics.EngineErrorsTotal.WithLabelValues("not_found"))

	metrics.ObserveSolve("erlang-c", 16, 0.87, nil)
	metrics.ObserveSolve("erlang-c", 0, 0, &customerrors.ComputeError{Op: "staffing.Solve", Err: customerrors.ErrNotFound})

	assert.Equal(t, okBefore+1, testutil.ToFloat64(metrics.StaffingSolvesTotal.WithLabelValues("erlang-c", "ok")))
	assert.Equal(t, nfBefore+1, testutil.ToFloat64(metrics.StaffingSolvesTotal.WithLabelValues("erlang-c", "not_found")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(metrics.EngineErrorsTotal.WithLabelValues("not_found")))
}

func TestResetSchedulerGauges(t *testing.T) {
	metrics.AgentsDemandedTotal.Set(12)
	metrics.ObserveUnmet(2, 5)
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.UnmetDemandByPriority.WithLabelValues("2")))

	metrics.ResetSchedulerGauges()

	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.AgentsDemandedTotal))
	assert.Equal(t, 0, testutil.CollectAndCount(metrics.UnmetDemandByPriority))
}
