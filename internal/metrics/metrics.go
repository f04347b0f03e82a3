// Package metrics exposes the Prometheus instrumentation for the ingest
// pipeline and the tracker lane.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the daemon registers.
type Metrics struct {
	PackagesInQueue prometheus.Gauge
	PackagesWaiting prometheus.Gauge
	IngestSuccess   prometheus.Counter
	IngestFailure   prometheus.Counter
	UpdateSuccess   prometheus.Counter
	UpdateFailure   prometheus.Counter
	SweepDuration   prometheus.Histogram
	SweepClaims     *prometheus.CounterVec
}

// New registers the collectors against reg. A nil registerer uses the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		PackagesInQueue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "adiengine",
			Name:      "packages_in_queue",
			Help:      "Queue items currently being processed.",
		}),
		PackagesWaiting: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "adiengine",
			Name:      "packages_waiting",
			Help:      "Queue items waiting for a worker, including retryable non-mapped items.",
		}),
		IngestSuccess: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "adiengine",
			Name:      "ingest_success_total",
			Help:      "Packages delivered by the ingest lane.",
		}),
		IngestFailure: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "adiengine",
			Name:      "ingest_failure_total",
			Help:      "Packages that failed or were rejected by the ingest lane.",
		}),
		UpdateSuccess: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "adiengine",
			Name:      "update_success_total",
			Help:      "Update packages generated and delivered by the tracker lane.",
		}),
		UpdateFailure: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "adiengine",
			Name:      "update_failure_total",
			Help:      "Update generation attempts that failed.",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "adiengine",
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of one full tracker sweep across all tiers.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		SweepClaims: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adiengine",
			Name:      "sweep_claims_total",
			Help:      "Tracking rows claimed or refreshed per tier.",
		}, []string{"tier"}),
	}
}
