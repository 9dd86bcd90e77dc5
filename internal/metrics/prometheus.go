package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "gridbot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type promGauge struct {
	gauge prometheus.Gauge
}

func (p promGauge) Set(v float64) {
	p.gauge.Set(v)
}

type Prometheus struct {
	Metrics *Metrics

	registry       *prometheus.Registry
	ordersPlaced   prometheus.Counter
	ordersFailed   prometheus.Counter
	ordersFilled   prometheus.Counter
	rebuilds       prometheus.Counter
	mismatches     prometheus.Counter
	spacingPercent prometheus.Gauge
	activeLevels   prometheus.Gauge
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_placed_total",
		Help:      "Total number of orders placed.",
	})
	ordersFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_failed_total",
		Help:      "Total number of order placement failures.",
	})
	ordersFilled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_filled_total",
		Help:      "Total number of grid order fills.",
	})
	rebuilds := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "ladder_rebuilds_total",
		Help:      "Total number of ladder rebuilds.",
	})
	mismatches := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "reconciliation_mismatches_total",
		Help:      "Total number of orders resolved by reconciliation mismatch handling.",
	})
	spacingPercent := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "ladder_spacing_percent",
		Help:      "Current ladder spacing in percent.",
	})
	activeLevels := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "active_levels",
		Help:      "Number of levels with an active order.",
	})

	registry.MustRegister(ordersPlaced, ordersFailed, ordersFilled, rebuilds, mismatches, spacingPercent, activeLevels)

	m := &Metrics{
		OrdersPlaced:             promCounter{ordersPlaced},
		OrdersFailed:             promCounter{ordersFailed},
		OrdersFilled:             promCounter{ordersFilled},
		Rebuilds:                 promCounter{rebuilds},
		ReconciliationMismatches: promCounter{mismatches},
		SpacingPercent:           promGauge{spacingPercent},
		ActiveLevels:             promGauge{activeLevels},
	}

	return &Prometheus{
		Metrics:        m,
		registry:       registry,
		ordersPlaced:   ordersPlaced,
		ordersFailed:   ordersFailed,
		ordersFilled:   ordersFilled,
		rebuilds:       rebuilds,
		mismatches:     mismatches,
		spacingPercent: spacingPercent,
		activeLevels:   activeLevels,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
