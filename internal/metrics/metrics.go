// Package metrics exposes railpulse activity as Prometheus collectors.
//
// A [Recorder] implements both graphql.AttemptRecorder and poller.Recorder,
// so a single value can be handed to the transport and the controller.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/railpulse/internal/ratelimit"
	"github.com/jpalmerr/railpulse/internal/status"
)

const namespace = "railpulse"

var histogramBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30}

// Recorder owns the railpulse collectors.
type Recorder struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	cycles          *prometheus.CounterVec
	cycleDuration   *prometheus.HistogramVec
	rateLimit       *prometheus.GaugeVec
	rateLimitReset  prometheus.Gauge
	services        *prometheus.GaugeVec
	intervalSeconds prometheus.Gauge
}

// New creates a Recorder registered on reg. A nil reg gets a fresh registry.
// Collectors already present on reg are reused.
func New(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Recorder{registry: reg}

	r.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "GraphQL HTTP attempts by response status (0 when no response arrived)",
	}, []string{"status"})

	r.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution of GraphQL HTTP attempts",
		Buckets:   histogramBuckets,
	}, []string{"status"})

	r.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "poller",
		Name:      "cycles_total",
		Help:      "Fetch cycles by outcome",
	}, []string{"outcome"})

	r.cycleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "poller",
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of fetch cycles",
		Buckets:   histogramBuckets,
	}, []string{"outcome"})

	r.rateLimit = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "requests",
		Help:      "Last observed rate-limit budget",
	}, []string{"kind"})

	r.rateLimitReset = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "reset_timestamp_seconds",
		Help:      "Unix time at which the rate-limit window resets",
	})

	r.services = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "services",
		Name:      "count",
		Help:      "Services by effective deployment status",
	}, []string{"status"})

	r.intervalSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "poller",
		Name:      "interval_seconds",
		Help:      "Current refresh interval",
	})

	r.requests = register(reg, r.requests)
	r.requestLatency = register(reg, r.requestLatency)
	r.cycles = register(reg, r.cycles)
	r.cycleDuration = register(reg, r.cycleDuration)
	r.rateLimit = register(reg, r.rateLimit)
	r.rateLimitReset = register(reg, r.rateLimitReset)
	r.services = register(reg, r.services)
	r.intervalSeconds = register(reg, r.intervalSeconds)

	return r
}

// register adds c to reg, returning the existing collector of the same type
// if an equivalent one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordAttempt counts one GraphQL HTTP attempt.
func (r *Recorder) RecordAttempt(statusCode int, latency time.Duration) {
	labels := prometheus.Labels{"status": strconv.Itoa(statusCode)}
	r.requests.With(labels).Inc()
	r.requestLatency.With(labels).Observe(latency.Seconds())
}

// RecordCycle counts one fetch cycle.
func (r *Recorder) RecordCycle(outcome string, duration time.Duration) {
	labels := prometheus.Labels{"outcome": outcome}
	r.cycles.With(labels).Inc()
	r.cycleDuration.With(labels).Observe(duration.Seconds())
}

// RecordSnapshot publishes the budget, service counts and interval as of the
// end of a cycle. Unknown budget values leave their gauges untouched.
func (r *Recorder) RecordSnapshot(budget ratelimit.Snapshot, counts status.Counts, interval time.Duration) {
	if budget.Limit != nil {
		r.rateLimit.With(prometheus.Labels{"kind": "limit"}).Set(float64(*budget.Limit))
	}
	if budget.Remaining != nil {
		r.rateLimit.With(prometheus.Labels{"kind": "remaining"}).Set(float64(*budget.Remaining))
	}
	if budget.ResetAt != nil {
		r.rateLimitReset.Set(float64(budget.ResetAt.Unix()))
	}

	r.services.With(prometheus.Labels{"status": "running"}).Set(float64(counts.Running))
	r.services.With(prometheus.Labels{"status": "errored"}).Set(float64(counts.Errored))
	r.services.With(prometheus.Labels{"status": "active"}).Set(float64(counts.Active))
	r.services.With(prometheus.Labels{"status": "sleeping"}).Set(float64(counts.Sleeping))
	r.services.With(prometheus.Labels{"status": "total"}).Set(float64(counts.Total))

	r.intervalSeconds.Set(interval.Seconds())
}
