package sync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_tracker",
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Number of reconciliation passes grouped by terminal status.",
	}, []string{"status"})

	recordsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_tracker",
		Subsystem: "sync",
		Name:      "records_total",
		Help:      "Per-record reconciliation outcomes.",
	}, []string{"outcome"})

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "activity_tracker",
		Subsystem: "sync",
		Name:      "run_duration_seconds",
		Help:      "Duration of reconciliation passes including the upstream fetch.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "activity_tracker",
		Subsystem: "sync",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful reconciliation pass.",
	})
)

func init() {
	prometheus.MustRegister(runsCounter, recordsCounter, runDuration, lastSyncGauge)
}

func recordRun(status Status, elapsed time.Duration) {
	runsCounter.WithLabelValues(string(status)).Inc()
	runDuration.Observe(elapsed.Seconds())
}
