package ports

import "context"

// MetricsCollector records quantitative observability signals. The interface
// is intentionally generic so adapters can back onto Prometheus, StatsD, or
// vendor-specific SDKs. Standard metric names include:
//   - Counters:
//     agentpipeline_runs_total{status="completed|failed|partial|aborted"}
//     agentpipeline_stage_executions_total{stage="...", status="success|failed|skipped"}
//     agentpipeline_stage_retries_total{stage="..."}
//   - Gauges:
//     agentpipeline_active_runs
//     agentpipeline_group_parallel_stages
//   - Histograms:
//     agentpipeline_run_duration_seconds
//     agentpipeline_stage_duration_seconds{stage="..."}
type MetricsCollector interface {
	IncCounter(ctx context.Context, name string, labels map[string]string)
	SetGauge(ctx context.Context, name string, value float64, labels map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string)
}

// Tracer manages distributed tracing spans. Span names follow the convention
// `<component>.<operation>` (e.g., `runner.run`, `group.process`,
// `stage.execute`, `config.load`). Adapters should propagate correlation IDs
// and integrate with the chosen tracing backend (e.g., OpenTelemetry).
type Tracer interface {
	StartSpan(ctx context.Context, name string, attributes ...interface{}) (context.Context, Span)
	Inject(ctx context.Context, carrier interface{}) error
	Extract(ctx context.Context, carrier interface{}) (context.Context, error)
}

// Span represents an active tracing span.
type Span interface {
	SetAttribute(key string, value interface{})
	SetStatus(status SpanStatus, message string)
	End()
}

// SpanStatus provides strongly typed span result semantics.
type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "ok"
	SpanStatusError SpanStatus = "error"
)
