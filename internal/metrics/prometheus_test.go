package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCollectors(t *testing.T) {
	prom := NewPrometheus()
	prom.Metrics.OrdersPlaced.Inc()
	prom.Metrics.OrdersFailed.Inc()
	prom.Metrics.OrdersFilled.Inc()
	prom.Metrics.Rebuilds.Inc()
	prom.Metrics.ReconciliationMismatches.Inc()
	prom.Metrics.SpacingPercent.Set(2.5)
	prom.Metrics.ActiveLevels.Set(8)

	assertValue(t, prom.ordersPlaced, 1)
	assertValue(t, prom.ordersFailed, 1)
	assertValue(t, prom.ordersFilled, 1)
	assertValue(t, prom.rebuilds, 1)
	assertValue(t, prom.mismatches, 1)
	assertValue(t, prom.spacingPercent, 2.5)
	assertValue(t, prom.activeLevels, 8)
}

func assertValue(t *testing.T, c prometheus.Collector, expected float64) {
	t.Helper()
	if got := testutil.ToFloat64(c); got != expected {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}
