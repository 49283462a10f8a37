// Package metrics exposes Prometheus collectors for the engine and API.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interviewrag"

type Metrics struct {
	registry *prometheus.Registry

	llmCalls       *prometheus.CounterVec
	llmLatency     *prometheus.HistogramVec
	recoveryStages *prometheus.CounterVec
	sessions       prometheus.Counter
	chunks         prometheus.Counter
	evictions      prometheus.Counter
	requests       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Model calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_seconds",
			Help:      "Model call latency by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"op"}),
		recoveryStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_stage_total",
			Help:      "Recovery stage that produced each parsed model response.",
		}, []string{"kind", "stage"}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_indexed_total",
			Help:      "Resume indexes built.",
		}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Resume chunks embedded and indexed.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_evictions_total",
			Help:      "Session indexes dropped for capacity or age.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.llmCalls, m.llmLatency, m.recoveryStages,
		m.sessions, m.chunks, m.evictions, m.requests,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveLLM(op string, took time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.llmCalls.WithLabelValues(op, outcome).Inc()
	m.llmLatency.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) ObserveRecovery(kind, stage string) {
	if m == nil {
		return
	}
	m.recoveryStages.WithLabelValues(kind, stage).Inc()
}

func (m *Metrics) ObserveIndex(chunks int) {
	if m == nil {
		return
	}
	m.sessions.Inc()
	m.chunks.Add(float64(chunks))
}

func (m *Metrics) ObserveEviction() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
