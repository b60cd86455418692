package monitoring

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/compozy/specmatch/engine/infra/monitoring/metrics"
	"github.com/compozy/specmatch/pkg/logger"
	"github.com/compozy/specmatch/pkg/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	systemInitOnce sync.Once
	startTime      time.Time
)

// InitSystemMetrics registers build info and uptime instruments on meter.
func InitSystemMetrics(ctx context.Context, meter metric.Meter) {
	log := logger.FromContext(ctx)
	systemInitOnce.Do(func() {
		startTime = time.Now()
		buildInfo, err := meter.Float64Gauge(
			metrics.MetricName("build_info"),
			metric.WithDescription("Build information (value=1)"),
		)
		if err != nil {
			log.Error("Failed to create build info gauge", "error", err)
		} else {
			build := version.Get()
			buildInfo.Record(ctx, 1, metric.WithAttributes(
				attribute.String("version", build.Version),
				attribute.String("commit_hash", build.Commit),
				attribute.String("go_version", runtime.Version()),
			))
		}
		uptime, err := meter.Float64ObservableGauge(
			metrics.MetricName("uptime_seconds"),
			metric.WithDescription("Service uptime in seconds"),
		)
		if err != nil {
			log.Error("Failed to create uptime gauge", "error", err)
			return
		}
		if _, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveFloat64(uptime, time.Since(startTime).Seconds())
			return nil
		}, uptime); err != nil {
			log.Error("Failed to register uptime callback", "error", err)
		}
	})
}
