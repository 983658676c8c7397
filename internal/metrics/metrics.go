// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Renders = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "holidaycal",
		Name:      "renders_total",
		Help:      "Completed pipeline runs.",
	})

	Failures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "holidaycal",
		Name:      "failures_total",
		Help:      "Failed pipeline steps by stage.",
	}, []string{"stage"})

	SourceEvents = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "holidaycal",
		Name:      "source_events",
		Help:      "Events read from each input on the last load.",
	}, []string{"source"})

	Occurrences = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "holidaycal",
		Name:      "occurrences",
		Help:      "Holidays selected on the last run.",
	})

	LastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "holidaycal",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run.",
	})

	Duration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "holidaycal",
		Name:      "run_duration_seconds",
		Help:      "Pipeline run duration.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})
)
