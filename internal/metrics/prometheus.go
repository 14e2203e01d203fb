package metrics

import (
	"net/http"
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder exports every observation on its own registry.
type PrometheusRecorder struct {
	registry         *prom.Registry
	storeTotal       *prom.CounterVec
	storeSeconds     *prom.HistogramVec
	embeddingTotal   *prom.CounterVec
	embeddingSeconds *prom.HistogramVec
	httpTotal        *prom.CounterVec
	httpSeconds      *prom.HistogramVec
	toolTotal        *prom.CounterVec
	toolSeconds      *prom.HistogramVec
}

func NewPrometheusRecorder() *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: prom.NewRegistry(),
		storeTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "synapse_store_ops_total",
			Help: "Total number of graph and vector store operations",
		}, []string{"store", "op", "success"}),
		storeSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "synapse_store_op_seconds",
			Help:    "Store operation duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"store", "op", "success"}),
		embeddingTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "synapse_embeddings_total",
			Help: "Total number of embedding requests",
		}, []string{"provider", "success"}),
		embeddingSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "synapse_embedding_seconds",
			Help:    "Embedding request duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"provider", "success"}),
		httpTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "synapse_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "synapse_http_request_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"method", "route"}),
		toolTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "synapse_tool_calls_total",
			Help: "Total number of MCP tool calls",
		}, []string{"tool", "success"}),
		toolSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "synapse_tool_call_seconds",
			Help:    "MCP tool call duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"tool", "success"}),
	}

	p.registry.MustRegister(
		p.storeTotal, p.storeSeconds,
		p.embeddingTotal, p.embeddingSeconds,
		p.httpTotal, p.httpSeconds,
		p.toolTotal, p.toolSeconds,
	)
	return p
}

func (p *PrometheusRecorder) ObserveStoreOp(store, op string, success bool, seconds float64) {
	s := strconv.FormatBool(success)
	p.storeTotal.WithLabelValues(store, op, s).Inc()
	p.storeSeconds.WithLabelValues(store, op, s).Observe(seconds)
}

func (p *PrometheusRecorder) ObserveEmbedding(provider string, success bool, seconds float64) {
	s := strconv.FormatBool(success)
	p.embeddingTotal.WithLabelValues(provider, s).Inc()
	p.embeddingSeconds.WithLabelValues(provider, s).Observe(seconds)
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, seconds float64) {
	p.httpTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpSeconds.WithLabelValues(method, route).Observe(seconds)
}

func (p *PrometheusRecorder) ObserveTool(tool string, success bool, seconds float64) {
	s := strconv.FormatBool(success)
	p.toolTotal.WithLabelValues(tool, s).Inc()
	p.toolSeconds.WithLabelValues(tool, s).Observe(seconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

// EnablePrometheus installs a Prometheus recorder as the default and returns
// it so callers can mount its handler.
func EnablePrometheus() *PrometheusRecorder {
	p := NewPrometheusRecorder()
	SetRecorder(p)
	return p
}
