package ports

import (
	"context"

	"github.com/agentpipeline/agentpipeline/internal/domain/agent"
	domain "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
)

// DAGPlanner builds an execution graph from a pipeline configuration. Pure;
// no I/O (spec §4.1). Implementations must preserve declaration order within
// a level and report warnings rather than fail the build for non-fatal
// conditions such as deep chains or oversized groups.
type DAGPlanner interface {
	BuildExecutionPlan(ctx context.Context, config domain.PipelineConfig) (domain.ExecutionGraph, error)
}

// GroupDisposition captures, per spec §4.2, why a stage did or did not run
// before execution was dispatched.
type GroupDisposition struct {
	Runnable  []domain.StageConfig
	Skipped   []domain.StageExecution
}

// GroupResult is returned by GroupOrchestrator.ProcessGroup.
type GroupResult struct {
	State             domain.RunState
	ShouldStopPipeline bool
}

// GroupOrchestrator evaluates per-stage disposition (enabled/condition),
// dispatches runnable stages to the ParallelExecutor, applies the failure
// policy, and triggers context reduction between groups (spec §4.2).
type GroupOrchestrator interface {
	ProcessGroup(ctx context.Context, group domain.ExecutionGroup, state domain.RunState, config domain.PipelineConfig, graph domain.ExecutionGraph, isFinalGroup bool) (GroupResult, error)
}

// ExecutorOutcome is the return shape shared by sequential and parallel
// dispatch (spec §4.3).
type ExecutorOutcome struct {
	Executions []domain.StageExecution
	AnyFailed  bool
}

// OutputHandler receives incremental agent output; delivery is best-effort
// and unordered across sibling stages (spec §4.3).
type OutputHandler func(stageName, chunk string)

// ParallelExecutor runs a group's runnable stages, either concurrently or
// sequentially, with per-stage retry and timeout handling.
type ParallelExecutor interface {
	ExecuteParallelGroup(ctx context.Context, stages []domain.StageConfig, state domain.RunState, onOutput OutputHandler) (ExecutorOutcome, error)
	ExecuteSequentialGroup(ctx context.Context, stages []domain.StageConfig, state domain.RunState, onOutput OutputHandler) (ExecutorOutcome, error)
}

// StageExecutor invokes a single stage's agent runtime under timeout,
// commits any resulting changes, and classifies failures. Never returns an
// error for a failed stage; failure is always surfaced via the returned
// StageExecution's Status/Error fields (spec §4.4).
type StageExecutor interface {
	ExecuteStage(ctx context.Context, stage domain.StageConfig, state domain.RunState, onOutput func(chunk string)) domain.StageExecution
}

// AgentRuntime is the capability boundary consumed by StageExecutor to
// invoke an LLM-driven agent (spec §6).
type AgentRuntime interface {
	Execute(ctx context.Context, req agent.ExecuteRequest) (agent.ExecuteResult, error)
	GetCapabilities() agent.Capabilities
	Validate(ctx context.Context) agent.ValidationResult
}

// AgentRuntimeRegistry is a process-wide lookup of registered runtime
// backends, keyed by agent.RuntimeType.
type AgentRuntimeRegistry interface {
	Register(runtimeType agent.RuntimeType, runtime AgentRuntime)
	GetRuntime(runtimeType agent.RuntimeType) (AgentRuntime, bool)
	Clear()
}
