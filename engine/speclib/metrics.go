package speclib

import (
	"context"
	"sync"
	"time"

	"github.com/compozy/specmatch/engine/infra/monitoring/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce      sync.Once
	metricsMu        sync.Mutex
	metricsInitErr   error
	loadDurationHist metric.Float64Histogram
	chunkCounter     metric.Int64Counter
	documentCounter  metric.Int64Counter
	scoreLatencyHist metric.Float64Histogram
	decisionCounter  metric.Int64Counter
	embedderCounter  metric.Int64Counter
	cacheCounter     metric.Int64Counter
)

func RecordLoadDuration(ctx context.Context, mode Mode, d time.Duration) {
	if ensureMetrics() != nil || loadDurationHist == nil {
		return
	}
	loadDurationHist.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("mode", string(mode))))
}

func RecordChunks(ctx context.Context, chunks int) {
	if chunks <= 0 || ensureMetrics() != nil || chunkCounter == nil {
		return
	}
	chunkCounter.Add(ctx, int64(chunks))
}

// RecordDocuments counts documents by outcome: loaded, skipped or failed.
func RecordDocuments(ctx context.Context, outcome string, n int) {
	if n <= 0 || ensureMetrics() != nil || documentCounter == nil {
		return
	}
	documentCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordScoreLatency(ctx context.Context, d time.Duration) {
	if ensureMetrics() != nil || scoreLatencyHist == nil {
		return
	}
	scoreLatencyHist.Record(ctx, d.Seconds())
}

func RecordDecision(ctx context.Context, status string) {
	if ensureMetrics() != nil || decisionCounter == nil {
		return
	}
	decisionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordEmbedderRequest(ctx context.Context, provider string, outcome string) {
	if ensureMetrics() != nil || embedderCounter == nil {
		return
	}
	embedderCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

// RecordEmbedderCache counts cache lookups by result: hit, miss or error.
func RecordEmbedderCache(ctx context.Context, result string, n int) {
	if n <= 0 || ensureMetrics() != nil || cacheCounter == nil {
		return
	}
	cacheCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("result", result)))
}

func ResetMetricsForTesting() {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	metricsOnce = sync.Once{}
	metricsInitErr = nil
	loadDurationHist = nil
	chunkCounter = nil
	documentCounter = nil
	scoreLatencyHist = nil
	decisionCounter = nil
	embedderCounter = nil
	cacheCounter = nil
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("specmatch.speclib")
		if err := initLibraryMetrics(meter); err != nil {
			metricsInitErr = err
			return
		}
		if err := initScoringMetrics(meter); err != nil {
			metricsInitErr = err
		}
	})
	return metricsInitErr
}

func initLibraryMetrics(meter metric.Meter) error {
	var err error
	loadDurationHist, err = meter.Float64Histogram(
		metrics.MetricNameWithSubsystem("library", "load_duration_seconds"),
		metric.WithDescription("Latency of spec library loads"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.LoadDurationBuckets...),
	)
	if err != nil {
		return err
	}
	chunkCounter, err = meter.Int64Counter(
		metrics.MetricNameWithSubsystem("library", "chunks_total"),
		metric.WithDescription("Chunks committed to the spec library"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	documentCounter, err = meter.Int64Counter(
		metrics.MetricNameWithSubsystem("library", "documents_total"),
		metric.WithDescription("Documents processed by outcome"),
		metric.WithUnit("1"),
	)
	return err
}

func initScoringMetrics(meter metric.Meter) error {
	var err error
	scoreLatencyHist, err = meter.Float64Histogram(
		metrics.MetricNameWithSubsystem("scorer", "latency_seconds"),
		metric.WithDescription("Latency of scoring one infraction"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.QueryDurationBuckets...),
	)
	if err != nil {
		return err
	}
	decisionCounter, err = meter.Int64Counter(
		metrics.MetricNameWithSubsystem("scorer", "decisions_total"),
		metric.WithDescription("Scoring decisions by status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	embedderCounter, err = meter.Int64Counter(
		metrics.MetricNameWithSubsystem("embedder", "requests_total"),
		metric.WithDescription("Embedding requests by provider and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	cacheCounter, err = meter.Int64Counter(
		metrics.MetricNameWithSubsystem("embedder", "cache_total"),
		metric.WithDescription("Embedding cache lookups by result"),
		metric.WithUnit("1"),
	)
	return err
}
