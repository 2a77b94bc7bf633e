// ABOUTME: Prometheus collectors for classifier verdicts, rebuild runs and the HTTP API
// ABOUTME: Collectors live on a private registry so several instances can coexist in tests
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sisyph/mcoder/internal/models"
)

// Metrics holds every collector mcoder exports
type Metrics struct {
	registry *prometheus.Registry

	Verdicts        *prometheus.CounterVec
	Rebuilds        *prometheus.CounterVec
	RebuildDuration *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	CachePruned     prometheus.Counter
}

// New registers the collectors, plus the Go runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcoder_classifier_verdicts_total",
			Help: "Classifier verdicts recorded in the security ledger.",
		}, []string{"action", "risk"}),
		Rebuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcoder_rebuilds_total",
			Help: "Finished rebuild runs by outcome.",
		}, []string{"module", "status"}),
		RebuildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcoder_rebuild_seconds",
			Help:    "Wall time of rebuild commands.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"module"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcoder_http_requests_total",
			Help: "HTTP API requests by route pattern and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcoder_http_request_seconds",
			Help:    "HTTP API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		CachePruned: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcoder_cache_pruned_total",
			Help: "Generation cache entries removed by scheduled pruning.",
		}),
	}
}

// ObserveVerdict counts one ledger entry. Its signature matches the storage verdict hook.
func (m *Metrics) ObserveVerdict(action string, v models.Verdict) {
	m.Verdicts.WithLabelValues(action, string(v.RiskLevel)).Inc()
}

// ObserveRebuild records a finished rebuild run
func (m *Metrics) ObserveRebuild(module, status string, elapsed time.Duration) {
	m.Rebuilds.WithLabelValues(module, status).Inc()
	m.RebuildDuration.WithLabelValues(module).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
