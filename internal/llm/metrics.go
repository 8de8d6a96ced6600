package llm

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	aidaotel "github.com/Lokie-ree/aida-sub001/internal/otel"
)

const meterName = "github.com/Lokie-ree/aida-sub001/internal/llm"

var (
	costHistogram     metric.Float64Histogram
	costMetricsOnce   sync.Once
	costMetricsActive bool
)

func initCostMetrics() {
	var err error
	costHistogram, err = aidaotel.Meter(meterName).Float64Histogram(
		"aida.llm.cost",
		metric.WithDescription("Estimated cost in EUR per generation request"),
		metric.WithUnit("eur"),
	)
	if err != nil {
		return
	}
	costMetricsActive = true
}

// RecordCostMetrics records the estimated cost of one generation call.
func RecordCostMetrics(ctx context.Context, costEUR float64, provider, model string) {
	costMetricsOnce.Do(initCostMetrics)
	if !costMetricsActive {
		return
	}
	costHistogram.Record(ctx, costEUR, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
	))
}
