package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Observability exposes OpenTelemetry instruments through the Prometheus registry
// served on /metrics.
type Observability struct {
	meterProvider  *metric.MeterProvider
	meter          otelmetric.Meter
	searchCounter  otelmetric.Int64Counter
	searchDuration otelmetric.Float64Histogram
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
}

func New(serviceName string, log *zap.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter, otel metrics disabled", zap.Error(err))
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	searchCounter, _ := meter.Int64Counter(
		"property.searches",
		otelmetric.WithDescription("Number of property searches executed"),
	)
	searchDuration, _ := meter.Float64Histogram(
		"property.search.duration",
		otelmetric.WithDescription("Property search duration"),
		otelmetric.WithUnit("ms"),
	)
	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of workflow jobs processed"),
	)
	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Workflow job processing duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:  provider,
		meter:          meter,
		searchCounter:  searchCounter,
		searchDuration: searchDuration,
		jobCounter:     jobCounter,
		jobDuration:    jobDuration,
	}
}

// RecordSearch is nil-safe so callers can hold a zero Observability in tests.
func (o *Observability) RecordSearch(ctx context.Context, backend string, duration time.Duration, results int) {
	if o == nil || o.searchCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("backend", backend),
		attribute.Bool("empty", results == 0),
	)
	o.searchCounter.Add(ctx, 1, attrs)
	o.searchDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) RecordJob(ctx context.Context, taskType, status string, duration time.Duration) {
	if o == nil || o.jobCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	)
	o.jobCounter.Add(ctx, 1, attrs)
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}
