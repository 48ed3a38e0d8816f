package main

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const allowedLabel = "allowed"

var (
	// verifyTotal counts every /verify-sql call that produced a verdict, split by allowed/denied;
	// requests rejected before or by analyzer.Verify with an error are not counted.
	verifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sqlguardian_verify_total",
		Help: "Total number of verify-sql calls, labeled by the resulting verdict.",
	}, []string{allowedLabel})

	// verifyDuration times the core analyzer call, excluding request parsing and the risk scorer.
	verifyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sqlguardian_verify_duration_seconds",
		Help:    "Time spent in analyzer.Verify per request.",
		Buckets: prometheus.DefBuckets,
	})
)

var registerMetricsOnce sync.Once

// registerMetrics registers the package's collectors with the default Prometheus registry.
func registerMetrics() {
	registerMetricsOnce.Do(func() {
		prometheus.MustRegister(verifyTotal)
		prometheus.MustRegister(verifyDuration)
	})
}
