package formatter_test

import (
	"encoding/json"
	"errors"
	"testing"

	customerrors "agent-staffing/errors"
	"agent-staffing/erlangb"
	"agent-staffing/formatter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlockingReport(t *testing.T) {
	calc := erlangb.New(erlangb.DefaultConfig())

	t.Run("TwoServers", func(t *testing.T) {
		// B(1)=0.5, B(2)=0.2, B(3)=0.0625, B(4)≈0.0154, B(5)≈0.0031.
		r, err := formatter.NewBlockingReport(calc, 2, 1, 0.01)
		require.NoError(t, err)

		assert.InDelta(t, 0.2, r.Blocking, 1e-12)
		assert.InDelta(t, 0.2, r.ApproxBlocking, 1e-12)
		require.NotNil(t, r.RappBlocking)
		assert.InDelta(t, 0.2, *r.RappBlocking, 1e-12)
		require.NotNil(t, r.MinimumServers)
		assert.Equal(t, 5, *r.MinimumServers)
	})

	t.Run("FractionalServers", func(t *testing.T) {
		r, err := formatter.NewBlockingReport(calc, 2.5, 1, 0)
		require.NoError(t, err)

		assert.Greater(t, r.Blocking, 0.0625)
		assert.Less(t, r.Blocking, 0.2)
		assert.Nil(t, r.RappBlocking)
		assert.Nil(t, r.MinimumServers)
	})

	t.Run("ServerCeiling", func(t *testing.T) {
		small := erlangb.New(erlangb.Config{MaxServers: 3})
		_, err := formatter.NewBlockingReport(small, 2, 1, 0.01)
		assert.True(t, errors.Is(err, customerrors.ErrNotFound), "got %v", err)
	})

	t.Run("InvalidTarget", func(t *testing.T) {
		_, err := formatter.NewBlockingReport(calc, 2, 1, 1.5)
		assert.True(t, errors.Is(err, customerrors.ErrInvalidParameter), "got %v", err)
	})

	t.Run("InvalidLoad", func(t *testing.T) {
		_, err := formatter.NewBlockingReport(calc, 2, -1, 0)
		assert.True(t, errors.Is(err, customerrors.ErrInvalidParameter), "got %v", err)
	})
}

func TestFormatBlocking(t *testing.T) {
	r, err := formatter.NewBlockingReport(erlangb.New(erlangb.DefaultConfig()), 2, 1, 0.01)
	require.NoError(t, err)

	text, err := formatter.FormatBlocking(r, formatter.Text)
	require.NoError(t, err)
	assert.Contains(t, text, "Erlang-B loss: servers=2 load=1 Erlangs")
	assert.Contains(t, text, "Blocking probability")
	assert.Contains(t, text, "0.200000")
	assert.Contains(t, text, "Servers for blocking <= 0.01")

	out, err := formatter.FormatBlocking(r, formatter.CSV)
	require.NoError(t, err)
	assert.Equal(t, "metric,value\n"+
		"blocking,0.200000\n"+
		"approx_blocking,0.200000\n"+
		"rapp_blocking,0.200000\n"+
		"minimum_servers,5\n", out)

	js, err := formatter.FormatBlocking(r, formatter.JSON)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(js), &decoded))
	assert.Equal(t, 5.0, decoded["minimum_servers"])
	assert.Equal(t, 0.01, decoded["target_blocking"])
}
