package metrics

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// MetricsCollector implements Recorder on top of PrometheusMetrics and logs each observation at debug level.
type MetricsCollector struct {
	prometheus *PrometheusMetrics
	logger     *zap.Logger
}

func NewMetricsCollector(namespace string, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: NewPrometheusMetrics(namespace, logger),
		logger:     logger,
	}
}

func (mc *MetricsCollector) RecordPurge(kind, outcome string) {
	mc.prometheus.RecordPurge(kind, outcome)

	mc.logger.Debug("Recorded purge metric",
		zap.String("kind", kind),
		zap.String("outcome", outcome))
}

func (mc *MetricsCollector) RecordPurgeRequest(outcome string, duration time.Duration) {
	mc.prometheus.RecordPurgeRequest(outcome, duration.Seconds())

	mc.logger.Debug("Recorded purge request metric",
		zap.String("outcome", outcome),
		zap.Duration("duration", duration))
}

func (mc *MetricsCollector) RecordPurgedFiles(count int) {
	mc.prometheus.RecordPurgedFiles(count)

	mc.logger.Debug("Recorded purged files metric", zap.Int("count", count))
}

func (mc *MetricsCollector) RecordZoneLookup(source, outcome string) {
	mc.prometheus.RecordZoneLookup(source, outcome)

	mc.logger.Debug("Recorded zone lookup metric",
		zap.String("source", source),
		zap.String("outcome", outcome))
}

func (mc *MetricsCollector) Prometheus() *PrometheusMetrics {
	return mc.prometheus
}

func (mc *MetricsCollector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	mc.prometheus.ServeHTTP(ctx)
}
