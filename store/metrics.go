package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcomes.
const (
	outcomeCompressed   = "compressed"
	outcomeDecompressed = "decompressed"
	outcomeEmpty        = "empty"
	outcomeFailed       = "failed"
)

type metrics struct {
	jobs          *prometheus.CounterVec
	bytes         *prometheus.CounterVec
	derivations   *prometheus.CounterVec
	configLoads   *prometheus.CounterVec
	blocked       prometheus.Gauge
	deriveSeconds prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &metrics{
		jobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genostore_jobs_total",
				Help: "Number of stream jobs written to the container, split by outcome.",
			},
			[]string{"outcome"},
		),
		bytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genostore_bytes_total",
				Help: "Stream bytes submitted (in) and packed (out).",
			},
			[]string{"direction"},
		),
		derivations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genostore_config_derivations_total",
				Help: "Number of configs derived by analysis, split by canonical config name.",
			},
			[]string{"config"},
		),
		configLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genostore_config_loads_total",
				Help: "Number of configs obtained without analysis, split by source.",
			},
			[]string{"source"},
		),
		blocked: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "genostore_blocked_jobs",
				Help: "Number of jobs waiting for a config that is being derived.",
			},
		),
		deriveSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "genostore_config_derivation_seconds",
				Help:    "Time spent loading or analyzing one config.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
	}
}
