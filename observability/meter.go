package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeter installs a periodic OTLP meter provider as the global provider.
// The caller must shut it down on exit.
func InitMeter(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by the API and worker processes.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
	dispatchTotal   metric.Int64Counter
	taskTotal       metric.Int64Counter
	taskDuration    metric.Float64Histogram
	uploadFailures  metric.Int64Counter
	reapedTotal     metric.Int64Counter
	reapFailures    metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.requestTotal, err = meter.Int64Counter("http.request.total",
		metric.WithDescription("HTTP requests served")); err != nil {
		return nil, fmt.Errorf("creating http.request.total counter: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("http.request.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating http.request.duration histogram: %w", err)
	}
	if m.requestActive, err = meter.Int64UpDownCounter("http.request.active",
		metric.WithDescription("HTTP requests in flight")); err != nil {
		return nil, fmt.Errorf("creating http.request.active gauge: %w", err)
	}
	if m.dispatchTotal, err = meter.Int64Counter("task.dispatch.total",
		metric.WithDescription("Tasks created and handed to the queue, by outcome")); err != nil {
		return nil, fmt.Errorf("creating task.dispatch.total counter: %w", err)
	}
	if m.taskTotal, err = meter.Int64Counter("task.finished.total",
		metric.WithDescription("Tasks finalized by the executor, by status")); err != nil {
		return nil, fmt.Errorf("creating task.finished.total counter: %w", err)
	}
	if m.taskDuration, err = meter.Float64Histogram("task.processing.duration",
		metric.WithDescription("Time from pickup to final status"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating task.processing.duration histogram: %w", err)
	}
	if m.uploadFailures, err = meter.Int64Counter("task.upload.failures",
		metric.WithDescription("Artifact uploads to object storage that failed")); err != nil {
		return nil, fmt.Errorf("creating task.upload.failures counter: %w", err)
	}
	if m.reapedTotal, err = meter.Int64Counter("reaper.records.deleted",
		metric.WithDescription("Task records removed by the reaper or manual release")); err != nil {
		return nil, fmt.Errorf("creating reaper.records.deleted counter: %w", err)
	}
	if m.reapFailures, err = meter.Int64Counter("reaper.files.failed",
		metric.WithDescription("Cache file deletions that failed")); err != nil {
		return nil, fmt.Errorf("creating reaper.files.failed counter: %w", err)
	}
	return &m, nil
}

// RecordRequestStart increments the in-flight request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd records a served request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

// RecordDispatch counts a create-and-dispatch outcome ("dispatched" or "failed").
func (m *Metrics) RecordDispatch(ctx context.Context, taskType, outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("outcome", outcome),
	))
}

// RecordTaskEnd counts a finalized task and its processing time.
func (m *Metrics) RecordTaskEnd(ctx context.Context, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.taskTotal.Add(ctx, 1, attrs)
	m.taskDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordUploadFailure counts a failed artifact upload.
func (m *Metrics) RecordUploadFailure(ctx context.Context, format string) {
	if m == nil {
		return
	}
	m.uploadFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
}

// RecordCleanup counts records deleted and file deletions that failed.
// source is "reaper" or "release".
func (m *Metrics) RecordCleanup(ctx context.Context, source string, recordsDeleted, filesFailed int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("source", source))
	if recordsDeleted > 0 {
		m.reapedTotal.Add(ctx, int64(recordsDeleted), attrs)
	}
	if filesFailed > 0 {
		m.reapFailures.Add(ctx, int64(filesFailed), attrs)
	}
}
