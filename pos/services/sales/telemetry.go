package main

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// SalesMetrics agrupa os instrumentos OpenTelemetry do checkout
type SalesMetrics struct {
	checkouts metric.Int64Counter
	amount    metric.Float64Histogram
}

// NewSalesMetrics registra os instrumentos no meter informado
func NewSalesMetrics(meter metric.Meter) (*SalesMetrics, error) {
	checkouts, err := meter.Int64Counter("pos.checkouts",
		metric.WithDescription("Checkout attempts by result"),
	)
	if err != nil {
		return nil, err
	}

	amount, err := meter.Float64Histogram("pos.sales.amount",
		metric.WithDescription("Total amount of completed sales"),
	)
	if err != nil {
		return nil, err
	}

	return &SalesMetrics{checkouts: checkouts, amount: amount}, nil
}

// RecordCheckout contabiliza uma tentativa de checkout
func (m *SalesMetrics) RecordCheckout(ctx context.Context, success bool, total float64) {
	if m == nil {
		return
	}

	result := "failure"
	if success {
		result = "success"
	}
	m.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))

	if success {
		m.amount.Record(ctx, total)
	}
}

func newResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
}

func initTracer(cfg *Config) (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	otel.SetTracerProvider(tp)

	return tp, nil
}

func initMetrics(cfg *Config) (*sdkmetric.MeterProvider, error) {
	ctx := context.Background()

	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}
