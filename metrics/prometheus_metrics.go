package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

type PrometheusMetrics struct {
	httpHandler func(*fasthttp.RequestCtx)
	registry    *prometheus.Registry
	logger      *zap.Logger

	purgesTotal        *prometheus.CounterVec
	purgeRequestsTotal *prometheus.CounterVec
	purgedFilesTotal   prometheus.Counter
	requestDuration    prometheus.Histogram
	zoneLookupsTotal   *prometheus.CounterVec
}

func NewPrometheusMetrics(namespace string, logger *zap.Logger) *PrometheusMetrics {
	if namespace == "" {
		namespace = "cfpurge"
	}

	pm := &PrometheusMetrics{
		logger: logger,
	}

	pm.purgesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purges_total",
			Help:      "Total number of purge operations",
		},
		[]string{"kind", "outcome"},
	)

	pm.purgeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purge_requests_total",
			Help:      "Total number of purge_cache requests sent to Cloudflare",
		},
		[]string{"outcome"},
	)

	pm.purgedFilesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_files_total",
			Help:      "Total number of URLs successfully purged",
		},
	)

	pm.requestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "purge_request_duration_seconds",
			Help:      "Duration of purge_cache requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	pm.zoneLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zone_lookups_total",
			Help:      "Total number of zone id lookups",
		},
		[]string{"source", "outcome"},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(pm.purgesTotal)
	registry.MustRegister(pm.purgeRequestsTotal)
	registry.MustRegister(pm.purgedFilesTotal)
	registry.MustRegister(pm.requestDuration)
	registry.MustRegister(pm.zoneLookupsTotal)
	pm.registry = registry

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(handler)

	logger.Info("Prometheus metrics initialized", zap.String("namespace", namespace))

	return pm
}

func (pm *PrometheusMetrics) RecordPurge(kind, outcome string) {
	pm.purgesTotal.WithLabelValues(kind, outcome).Inc()
}

func (pm *PrometheusMetrics) RecordPurgeRequest(outcome string, seconds float64) {
	pm.purgeRequestsTotal.WithLabelValues(outcome).Inc()
	pm.requestDuration.Observe(seconds)
}

func (pm *PrometheusMetrics) RecordPurgedFiles(count int) {
	pm.purgedFilesTotal.Add(float64(count))
}

func (pm *PrometheusMetrics) RecordZoneLookup(source, outcome string) {
	pm.zoneLookupsTotal.WithLabelValues(source, outcome).Inc()
}

// Registry exposes the underlying registry for gathering in tests.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}
