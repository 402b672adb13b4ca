package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiagents/multiagents/internal/metrics"
)

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	_ = gauge.(prometheus.Metric).Write(m)
	return m.GetGauge().GetValue()
}

func getCounterValue(t *testing.T, counter *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := counter.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	_ = c.(prometheus.Metric).Write(m)
	return m.GetCounter().GetValue()
}

func TestGateInFlightGauge(t *testing.T) {
	before := getGaugeValue(t, metrics.GateInFlight)
	metrics.GateInFlight.Inc()
	after := getGaugeValue(t, metrics.GateInFlight)
	assert.Equal(t, float64(1), after-before)

	metrics.GateInFlight.Dec()
	assert.Equal(t, before, getGaugeValue(t, metrics.GateInFlight))
}

func TestOneShotTotal(t *testing.T) {
	before := getCounterValue(t, metrics.OneShotTotal, "claude", "ok")
	metrics.OneShotTotal.WithLabelValues("claude", "ok").Inc()
	after := getCounterValue(t, metrics.OneShotTotal, "claude", "ok")
	assert.Equal(t, float64(1), after-before)
}

func TestActiveSessionsGaugeVec(t *testing.T) {
	metrics.ActiveSessions.WithLabelValues("gemini").Set(3)
	m := &dto.Metric{}
	g, err := metrics.ActiveSessions.GetMetricWithLabelValues("gemini")
	require.NoError(t, err)
	_ = g.(prometheus.Metric).Write(m)
	assert.Equal(t, float64(3), m.GetGauge().GetValue())
}

func TestBroadcastsTotal(t *testing.T) {
	before := getCounterValue(t, metrics.BroadcastsTotal, "oneshot", "ok")
	metrics.BroadcastsTotal.WithLabelValues("oneshot", "ok").Inc()
	after := getCounterValue(t, metrics.BroadcastsTotal, "oneshot", "ok")
	assert.Equal(t, float64(1), after-before)
}

func TestMetricsRegistered(t *testing.T) {
	count, err := testutil.GatherAndCount(prometheus.DefaultGatherer)
	require.NoError(t, err)
	assert.Greater(t, count, 0, "should have registered metrics")
}
