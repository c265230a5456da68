// Package monitoring exposes the dev server's Prometheus collectors.
//
// Collectors are registered on the default registry and served by the
// /metrics route.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shtml"

var (
	BuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "builds_total",
		Help:      "Total number of build attempts by outcome",
	}, []string{"outcome"})

	BuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "build_duration_seconds",
		Help:      "Duration of build attempts",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"outcome"})

	AssetCopyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "asset_copy_failures_total",
		Help:      "Total number of failed static asset mirrors",
	})

	TriggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "change_triggers_total",
		Help:      "Change triggers by detection source and decision",
	}, []string{"source", "decision"})

	ReloadSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reload_subscribers",
		Help:      "Number of connected live-reload subscribers",
	})

	ReloadBroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reload_broadcasts_total",
		Help:      "Total number of reload broadcasts",
	})

	ReloadPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reload_pruned_total",
		Help:      "Subscribers removed because delivery failed",
	})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route kind and status class",
	}, []string{"route", "code"})
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// RecordBuild records one finished build attempt.
func RecordBuild(success bool, d time.Duration) {
	outcome := OutcomeFailed
	if success {
		outcome = OutcomeSuccess
	}
	BuildsTotal.WithLabelValues(outcome).Inc()
	BuildDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordTrigger records a detected change and whether the quiet window let it through.
func RecordTrigger(source string, accepted bool) {
	if source == "" {
		source = "unknown"
	}
	decision := "dropped"
	if accepted {
		decision = "accepted"
	}
	TriggersTotal.WithLabelValues(source, decision).Inc()
}

// RecordRequest counts one served request.
func RecordRequest(route string, status int) {
	code := "5xx"
	switch {
	case status < 300:
		code = "2xx"
	case status < 400:
		code = "3xx"
	case status < 500:
		code = "4xx"
	}
	RequestsTotal.WithLabelValues(route, code).Inc()
}
