package observability

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xtree/lib/tree"
)

// AppStats observes the process next to the tree stats, both share
// the "xtree" meter prefix.
type AppStats struct {
	goroutines   metric.Int64ObservableUpDownCounter
	processes    metric.Int64ObservableUpDownCounter
	registration metric.Registration
	once         sync.Once
}

// Stop unregisters the callbacks, it is safe to call more than once.
func (stats *AppStats) Stop() error {
	if stats == nil || stats.registration == nil {
		return nil
	}
	var err error
	stats.once.Do(func() {
		err = stats.registration.Unregister()
	})
	return err
}

// StopOnDone unregisters the callbacks once ctx is done.
func (stats *AppStats) StopOnDone(ctx context.Context) {
	if stats == nil {
		return
	}
	go func() {
		<-ctx.Done()
		_ = stats.Stop()
	}()
}

func appStatsMeterName(name string) string {
	builder := &strings.Builder{}
	builder.WriteString(tree.TreeStatsName)
	builder.WriteString("/app/")
	if len(strings.TrimSpace(name)) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	return builder.String()
}

// NewAppStats records the goroutines and GOMAXPROCS by the global otel
// meter provider unless one is given. The go runtime instrumentation
// (gc, heap, scheduler) is started on the same provider.
func NewAppStats(name string, mp ...metric.MeterProvider) (*AppStats, error) {
	var provider metric.MeterProvider
	if len(mp) > 0 && mp[0] != nil {
		provider = mp[0]
	} else {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(
		appStatsMeterName(name),
		metric.WithInstrumentationVersion(otelruntime.Version()),
	)

	stats := &AppStats{
		goroutines: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"app.core.goroutines",
			metric.WithDescription(`The application goroutines' info.`),
		)),
		processes: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"app.core.processes",
			metric.WithDescription(`The application processes' info.`),
		)),
	}
	reg, err := meter.RegisterCallback(func(ctx context.Context, ob metric.Observer) error {
		ob.ObserveInt64(stats.goroutines, int64(runtime.NumGoroutine()))
		ob.ObserveInt64(stats.processes, int64(runtime.GOMAXPROCS(0)))
		return nil
	}, stats.goroutines, stats.processes)
	if err != nil {
		return nil, err
	}
	stats.registration = reg

	if err = otelruntime.Start(
		otelruntime.WithMeterProvider(provider),
		otelruntime.WithMinimumReadMemStatsInterval(time.Second),
	); err != nil {
		_ = reg.Unregister()
		return nil, err
	}
	return stats, nil
}
