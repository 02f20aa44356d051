package harness

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("testloop.harness")

var (
	runsTotal        metric.Int64Counter
	engineCallsTotal metric.Int64Counter
	toolCallsTotal   metric.Int64Counter
	toolDuration     metric.Float64Histogram
	runIterations    metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runsTotal, err = meter.Int64Counter(
			"harness_runs_total",
			metric.WithDescription("Orchestration runs by stop reason"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		engineCallsTotal, err = meter.Int64Counter(
			"harness_engine_calls_total",
			metric.WithDescription("Reasoning engine calls"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		toolCallsTotal, err = meter.Int64Counter(
			"harness_tool_calls_total",
			metric.WithDescription("Tool dispatches by tool and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		toolDuration, err = meter.Float64Histogram(
			"harness_tool_duration_seconds",
			metric.WithDescription("Duration of tool dispatches"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runIterations, err = meter.Int64Histogram(
			"harness_run_iterations",
			metric.WithDescription("Engine calls made per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordRun(ctx context.Context, stop StopReason, iterations int) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("stop", string(stop)))
	runsTotal.Add(ctx, 1, attrs)
	runIterations.Record(ctx, int64(iterations), attrs)
}

func recordEngineCall(ctx context.Context, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	engineCallsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

func recordToolCall(ctx context.Context, tool string, success bool, d time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.Bool("success", success),
	)
	toolCallsTotal.Add(ctx, 1, attrs)
	toolDuration.Record(ctx, d.Seconds(), attrs)
}
