package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch result labels.
const (
	fetchOK        = "ok"
	fetchError     = "error"
	fetchMalformed = "malformed"
)

// Metrics groups the coordinator's Prometheus instruments.
type Metrics struct {
	Fetches       *prometheus.CounterVec
	Alerts        prometheus.Counter
	Rebooked      prometheus.Counter
	Watchers      prometheus.Gauge
	UnitsTotal    prometheus.Gauge
	UnitsOccupied prometheus.Gauge
	LastFetch     prometheus.Gauge
	FetchDuration prometheus.Histogram
}

// NewMetrics registers the coordinator metrics on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sewamonitor",
			Name:      "snapshot_fetches_total",
			Help:      "Snapshot fetches by result.",
		}, []string{"result"}),

		Alerts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sewamonitor",
			Name:      "alerts_total",
			Help:      "Expiry alerts raised.",
		}),

		Rebooked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sewamonitor",
			Name:      "rentals_rebooked_total",
			Help:      "Rentals whose time window changed between polls.",
		}),

		Watchers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sewamonitor",
			Name:      "watchers",
			Help:      "Rentals currently watched.",
		}),

		UnitsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sewamonitor",
			Name:      "units_total",
			Help:      "Units in the occupancy view.",
		}),

		UnitsOccupied: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sewamonitor",
			Name:      "units_occupied",
			Help:      "Units referenced by an active rental.",
		}),

		LastFetch: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sewamonitor",
			Name:      "last_fetch_timestamp_seconds",
			Help:      "Unix time of the last successful snapshot fetch.",
		}),

		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sewamonitor",
			Name:      "snapshot_fetch_duration_seconds",
			Help:      "Time spent fetching a snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
