package httpapi

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/fusiond/internal/httpapi"

// Metrics holds the HTTP and fusion metrics.
type Metrics struct {
	meter  metric.Meter
	logger *zap.Logger

	requestsTotal metric.Int64Counter
	requestDur    metric.Float64Histogram
	fusionsTotal  metric.Int64Counter
	fusionDur     metric.Float64Histogram
	fusionInputs  metric.Int64Histogram
}

// NewMetrics creates a Metrics instance. Instruments that fail to build are
// logged and left nil; recording guards against nil so a broken meter never
// breaks request handling.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.requestsTotal, err = m.meter.Int64Counter(
		"fusiond.http.requests_total",
		metric.WithDescription("Total HTTP requests labeled by method, endpoint, and status code."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create requests counter", zap.Error(err))
	}

	m.requestDur, err = m.meter.Float64Histogram(
		"fusiond.http.request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds, labeled by method, endpoint, and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.fusionsTotal, err = m.meter.Int64Counter(
		"fusiond.fusion.operations_total",
		metric.WithDescription("Total fusion operations labeled by the strategy that produced the result."),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		m.logger.Warn("failed to create fusions counter", zap.Error(err))
	}

	m.fusionDur, err = m.meter.Float64Histogram(
		"fusiond.fusion.duration_seconds",
		metric.WithDescription("Fusion operation duration in seconds, labeled by strategy."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1.0),
	)
	if err != nil {
		m.logger.Warn("failed to create fusion duration histogram", zap.Error(err))
	}

	m.fusionInputs, err = m.meter.Int64Histogram(
		"fusiond.fusion.input_items",
		metric.WithDescription("Number of feedback items per fusion operation, labeled by strategy."),
		metric.WithUnit("{item}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 10, 25, 50, 100),
	)
	if err != nil {
		m.logger.Warn("failed to create fusion input histogram", zap.Error(err))
	}
}

// Middleware returns an Echo middleware that records request metrics.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			attrs := []attribute.KeyValue{
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", c.Path()),
				attribute.Int("status", c.Response().Status),
			}
			ctx := c.Request().Context()

			if m.requestsTotal != nil {
				m.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			if m.requestDur != nil {
				m.requestDur.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
			}
			return err
		}
	}
}

// RecordFusion records one fusion operation.
func (m *Metrics) RecordFusion(ctx context.Context, strategy string, inputs int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("strategy", strategy))
	if m.fusionsTotal != nil {
		m.fusionsTotal.Add(ctx, 1, attrs)
	}
	if m.fusionDur != nil {
		m.fusionDur.Record(ctx, duration.Seconds(), attrs)
	}
	if m.fusionInputs != nil {
		m.fusionInputs.Record(ctx, int64(inputs), attrs)
	}
}
