package mcpserver

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// mcpMetrics holds the OTel metric instruments for the middleware stack.
// Instruments are registered against the global provider at init time, a
// no-op until the entry point installs a real MeterProvider (serve wires
// a stdout exporter by default), exactly as the teacher's dolt storage
// backend registers its instruments against the global delegating
// provider ahead of telemetry.Init().
var mcpMetrics struct {
	toolCalls       metric.Int64Counter
	toolLatencyMS   metric.Float64Histogram
	rateLimitReject metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/steveyegge/memctl/mcpserver")
	mcpMetrics.toolCalls, _ = m.Int64Counter("memctl.mcp.tool_calls",
		metric.WithDescription("MCP tool invocations by tool and outcome"),
		metric.WithUnit("{call}"),
	)
	mcpMetrics.toolLatencyMS, _ = m.Float64Histogram("memctl.mcp.tool_latency_ms",
		metric.WithDescription("MCP tool invocation latency"),
		metric.WithUnit("ms"),
	)
	mcpMetrics.rateLimitReject, _ = m.Int64Counter("memctl.mcp.rate_limit_rejects",
		metric.WithDescription("Tool calls rejected by the rate limiter"),
		metric.WithUnit("{call}"),
	)
}

// InstallStdoutMeterProvider installs a global OTel MeterProvider backed
// by a periodic stdout exporter writing to w. The serve command calls
// this once at startup so the rate-limiter and audit-logger counters
// registered above actually export somewhere; without it they're
// no-ops against the default global provider.
func InstallStdoutMeterProvider(w io.Writer) (shutdown func(context.Context) error, err error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}

func recordToolCall(ctx context.Context, tool string, outcome Outcome, elapsedMS float64) {
	attrs := attribute.NewSet(
		attribute.String("tool", tool),
		attribute.String("outcome", string(outcome)),
	)
	mcpMetrics.toolCalls.Add(ctx, 1, metric.WithAttributeSet(attrs))
	mcpMetrics.toolLatencyMS.Record(ctx, elapsedMS, metric.WithAttributeSet(attrs))
	if outcome == OutcomeBlocked {
		mcpMetrics.rateLimitReject.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
	}
}
