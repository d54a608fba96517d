package pricing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

const meterName = "github.com/Simplici0/pricer/internal/pricing"

const (
	modeFixed   = "fixed"
	modeDynamic = "dynamic"
)

type metrics struct {
	passes     metric.Int64Counter
	failures   metric.Int64Counter
	finalPrice metric.Float64Histogram
}

// newMetrics registers instruments on the global meter provider, which is a
// no-op until the host installs one.
func newMetrics(logger *zap.Logger) *metrics {
	meter := otel.Meter(meterName)
	m, err := buildMetrics(meter)
	if err != nil {
		logger.Warn("pricing metrics disabled", zap.Error(err))
		m, _ = buildMetrics(noop.NewMeterProvider().Meter(meterName))
	}
	return m
}

func buildMetrics(meter metric.Meter) (*metrics, error) {
	passes, err := meter.Int64Counter("pricing.passes",
		metric.WithDescription("Pricing passes executed"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("pricing.formula.failures",
		metric.WithDescription("Formula evaluations that degraded to zero"))
	if err != nil {
		return nil, err
	}
	finalPrice, err := meter.Float64Histogram("pricing.final_price",
		metric.WithDescription("Final price per pass"))
	if err != nil {
		return nil, err
	}
	return &metrics{passes: passes, failures: failures, finalPrice: finalPrice}, nil
}

func (m *metrics) recordPass(ctx context.Context, res Result, mode string) {
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("currency", res.Currency),
	)
	m.passes.Add(ctx, 1, attrs)
	m.finalPrice.Record(ctx, res.FinalPrice, attrs)
}

func (m *metrics) recordFailure(ctx context.Context, formula string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("formula", formula)))
}
