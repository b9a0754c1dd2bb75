// Package metrics holds the Prometheus collectors of the API process.
//
// A nil *Metrics is valid and records nothing, so services and tests can
// run without a registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketmapper"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
	agreementTransitions *prometheus.CounterVec
	connectionOps        *prometheus.CounterVec
	analysisFailures     prometheus.Counter
}

// New builds a private registry with the process and Go collectors plus the
// service collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		agreementTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agreement",
			Name:      "transitions_total",
			Help:      "Committed agreement status changes by target status.",
		}, []string{"status"}),
		connectionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "operations_total",
			Help:      "Connection graph operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		analysisFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "analysis_failures_total",
			Help:      "Market analyses that failed at the model call or while decoding.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.agreementTransitions,
		m.connectionOps,
		m.analysisFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) AgreementTransition(status string) {
	if m == nil {
		return
	}
	m.agreementTransitions.WithLabelValues(status).Inc()
}

// ConnectionOp counts one graph operation; outcome is "ok" or the error kind.
func (m *Metrics) ConnectionOp(op, outcome string) {
	if m == nil {
		return
	}
	m.connectionOps.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) AnalysisFailed() {
	if m == nil {
		return
	}
	m.analysisFailures.Inc()
}
