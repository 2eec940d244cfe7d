// Package metrics provides application-level Prometheus collectors.
// Collectors live on a dedicated registry that the API server exposes on
// /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for request counters.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeExists    = "exists"
	OutcomeCollision = "collision"
	OutcomeOverflow  = "overflow"
)

// Registry is the registry all uvb collectors are registered on.
var Registry = prometheus.NewRegistry()

// Operation counters.
var (
	RegisterTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uvb_register_total",
		Help: "Registration attempts by outcome.",
	}, []string{"outcome"})

	IncrementTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uvb_increment_total",
		Help: "Increment attempts by outcome.",
	}, []string{"outcome"})

	ReclaimedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uvb_reclaimed_total",
		Help: "Counters evicted by the reclaimer.",
	})

	SamplePasses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uvb_sample_passes_total",
		Help: "Completed rate sampling passes.",
	})

	ReclaimPasses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uvb_reclaim_passes_total",
		Help: "Completed reclamation passes.",
	})

	LiveCounters = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "uvb_live_counters",
		Help: "Counters currently held by the registry.",
	})

	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uvb_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "code"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RegisterTotal,
		IncrementTotal,
		ReclaimedTotal,
		SamplePasses,
		ReclaimPasses,
		LiveCounters,
		RequestsTotal,
	)
}

// Handler returns an http.Handler serving the uvb registry in the Prometheus
// exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Inc increments the given counter by 1.
func Inc(counter prometheus.Counter) { counter.Inc() }
