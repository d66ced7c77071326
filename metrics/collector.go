// Package metrics exposes Prometheus instruments for agent calls, model
// requests and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "knowledgenet"

// Collector records KnowledgeNet metrics against one registry.
type Collector struct {
	agentCallsTotal     *prometheus.CounterVec
	agentCallDuration   *prometheus.HistogramVec
	modelRequestsTotal  *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewCollector registers the instruments in reg. Passing nil uses a fresh
// registry, which keeps parallel tests independent.
func NewCollector(namespace string, reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Collector{
		agentCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_calls_total",
				Help:      "Total number of agent replies",
			},
			[]string{"agent", "caller", "status"},
		),
		agentCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "agent_call_duration_seconds",
				Help:      "Agent reply duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"agent"},
		),
		modelRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_requests_total",
				Help:      "Total number of language model requests",
			},
			[]string{"provider", "model", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		gatherer: reg,
	}
}

// ObserveCall records one agent reply.
func (c *Collector) ObserveCall(agentID, caller string, failed bool, duration time.Duration) {
	c.agentCallsTotal.WithLabelValues(agentID, caller, status(failed)).Inc()
	c.agentCallDuration.WithLabelValues(agentID).Observe(duration.Seconds())
}

// ObserveModelRequest records one language model request.
func (c *Collector) ObserveModelRequest(provider, model string, failed bool) {
	c.modelRequestsTotal.WithLabelValues(provider, model, status(failed)).Inc()
}

// ObserveHTTPRequest records one request handled by the HTTP surface.
func (c *Collector) ObserveHTTPRequest(method string, code int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	c.httpRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// Handler serves the collected metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func status(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}
