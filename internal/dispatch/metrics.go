package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dispatcher's Prometheus metrics.
type Metrics struct {
	Requests  *prometheus.CounterVec
	Dropped   *prometheus.CounterVec
	Removals  *prometheus.CounterVec
	Snapshots prometheus.Counter
	Windows   prometheus.Gauge
	Views     prometheus.Gauge
	Pending   prometheus.Gauge
}

// NewMetrics creates the dispatcher metrics and registers them with reg. A
// nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabhost_requests_total",
				Help: "Inbound UI requests by channel",
			},
			[]string{"channel"},
		),
		Dropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabhost_requests_dropped_total",
				Help: "Inbound UI requests that were ignored, by reason",
			},
			[]string{"reason"},
		),
		Removals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabhost_view_removals_total",
				Help: "Tab removal requests by outcome",
			},
			[]string{"outcome"},
		),
		Snapshots: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tabhost_snapshots_sent_total",
				Help: "Tab list snapshots sent to window chrome",
			},
		),
		Windows: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabhost_windows",
				Help: "Open top-level windows",
			},
		),
		Views: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabhost_views",
				Help: "Open tabs across all windows",
			},
		),
		Pending: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabhost_pending_removals",
				Help: "Tab removals waiting for confirmation",
			},
		),
	}
}
