// Package metrics provides Prometheus metrics for the contribution pipeline
//
// A nil *Manager is valid and records nothing, so components take one optionally
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns a registry and the pipeline collectors
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  *prometheus.Registry
	runtime   bool

	submissions   *prometheus.CounterVec
	opinions      *prometheus.CounterVec
	probes        *prometheus.CounterVec
	probeLatency  prometheus.Histogram
	identityCalls *prometheus.CounterVec
	ledgerSteps   *prometheus.CounterVec
	ledgerLatency *prometheus.HistogramVec
	resumed       *prometheus.CounterVec
	rateLimited   prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	scoreDeltas   prometheus.Histogram
	badgesMinted  *prometheus.CounterVec
}

// NewManager builds a Manager on its own registry unless WithRegistry is given
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "celoid",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m.init()
	return m
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		}, labels)
	}

	m.submissions = counter("submissions_total", "Contribution submissions by outcome", "outcome")
	m.opinions = counter("advisory_opinions_total", "Advisory opinions by source", "source")
	m.probes = counter("signal_probes_total", "Ecosystem file probes by result", "result")
	m.identityCalls = counter("identity_requests_total", "Identity source requests by endpoint and status", "endpoint", "status")
	m.ledgerSteps = counter("ledger_steps_total", "Execution steps by step and outcome", "step", "outcome")
	m.resumed = counter("resumer_checkpoints_total", "Checkpoints handled by the resumer by outcome", "outcome")
	m.badgesMinted = counter("badges_minted_total", "Tier badges confirmed on the ledger", "tier")
	m.httpRequests = counter("http_requests_total", "HTTP requests by route, method and status", "route", "method", "status")

	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rate_limited_total", Help: "Requests denied by the submission rate limiter",
	})
	m.probeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "signal_probe_duration_seconds", Help: "Ecosystem file probe latency",
		Buckets: m.buckets,
	})
	m.scoreDeltas = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "score_delta", Help: "Score deltas granted per accepted submission",
		Buckets: []float64{0, 1, 3, 5, 10, 15, 20, 25, 30},
	})
	m.ledgerLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ledger_step_duration_seconds", Help: "Submit plus confirm latency per execution step",
		Buckets: m.buckets,
	}, []string{"step"})
	m.httpLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_request_duration_seconds", Help: "HTTP request latency by route",
		Buckets: m.buckets,
	}, []string{"route", "method"})
}

// Registry exposes the underlying registry
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Submission counts one submission outcome
func (m *Manager) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// Opinion counts one advisory opinion by its source
func (m *Manager) Opinion(source string) {
	if m == nil {
		return
	}
	m.opinions.WithLabelValues(source).Inc()
}

// Probe records a file probe result and its latency
func (m *Manager) Probe(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(result).Inc()
	m.probeLatency.Observe(elapsed.Seconds())
}

// IdentityRequest counts one identity source request; status 0 is a transport error
func (m *Manager) IdentityRequest(endpoint string, status int) {
	if m == nil {
		return
	}
	m.identityCalls.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

// LedgerStep records one execution step outcome and latency
func (m *Manager) LedgerStep(step, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ledgerSteps.WithLabelValues(step, outcome).Inc()
	m.ledgerLatency.WithLabelValues(step).Observe(elapsed.Seconds())
}

// ScoreDelta observes a granted delta
func (m *Manager) ScoreDelta(delta int) {
	if m == nil {
		return
	}
	m.scoreDeltas.Observe(float64(delta))
}

// BadgeMinted counts a confirmed badge
func (m *Manager) BadgeMinted(tier string) {
	if m == nil {
		return
	}
	m.badgesMinted.WithLabelValues(tier).Inc()
}

// Resumed counts one resumer outcome
func (m *Manager) Resumed(outcome string) {
	if m == nil {
		return
	}
	m.resumed.WithLabelValues(outcome).Inc()
}

// RateLimited counts one denied request
func (m *Manager) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// ObserveHTTP matches the access log Observe hook
func (m *Manager) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
