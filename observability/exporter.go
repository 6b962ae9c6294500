package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// ShutdownCallback flushes the pending metrics and stops the exporter.
type ShutdownCallback func(ctx context.Context) error

// NewConsoleMetricsExporter serves for test/dev environment.
// The returned provider is registered as the global one as well, so the
// tree stats built without an explicit provider are exported too.
func NewConsoleMetricsExporter(interval, timeout time.Duration, opts ...stdoutmetric.Option) (*metric.MeterProvider, ShutdownCallback, error) {
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(interval),
		metric.WithTimeout(timeout),
	)))
	otel.SetMeterProvider(mp)
	return mp, mp.Shutdown, nil
}

// NewPrometheusMetricsExporter serves for the product environment, the
// stats are fetched by HTTP from the registerer's handler.
func NewPrometheusMetricsExporter(opts ...prometheus.Option) (*metric.MeterProvider, ShutdownCallback, error) {
	exporter, err := prometheus.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	return mp, mp.Shutdown, nil
}
