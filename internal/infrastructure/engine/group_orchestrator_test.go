package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

type stubParallelExecutor struct {
	outcome    ports.ExecutorOutcome
	err        error
	lastStages []pipeline.StageConfig
	sequential bool
}

func (e *stubParallelExecutor) ExecuteParallelGroup(ctx context.Context, stages []pipeline.StageConfig, state pipeline.RunState, onOutput ports.OutputHandler) (ports.ExecutorOutcome, error) {
	e.lastStages = stages
	return e.outcome, e.err
}

func (e *stubParallelExecutor) ExecuteSequentialGroup(ctx context.Context, stages []pipeline.StageConfig, state pipeline.RunState, onOutput ports.OutputHandler) (ports.ExecutorOutcome, error) {
	e.sequential = true
	e.lastStages = stages
	return e.outcome, e.err
}

type stubConditionEvaluator struct {
	result bool
	err    error
}

func (c *stubConditionEvaluator) Evaluate(ctx context.Context, condition string, state pipeline.RunState) (bool, error) {
	return c.result, c.err
}

func TestGroupOrchestratorSkipsDisabledStage(t *testing.T) {
	executor := &stubParallelExecutor{}
	orchestrator := NewGroupOrchestrator(executor, &stubConditionEvaluator{result: true})

	group := pipeline.ExecutionGroup{Stages: []pipeline.StageConfig{{Name: "skip-me", Enabled: false}}}
	result, err := orchestrator.ProcessGroup(context.Background(), group, testState(), pipeline.PipelineConfig{}, pipeline.ExecutionGraph{}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.State.Stages) != 1 || result.State.Stages[0].Status != pipeline.StageStatusSkipped {
		t.Fatalf("expected a single skipped execution, got %+v", result.State.Stages)
	}
	if executor.lastStages != nil {
		t.Fatal("disabled stage must never reach the executor")
	}
}

func TestGroupOrchestratorSkipsFalseCondition(t *testing.T) {
	executor := &stubParallelExecutor{}
	orchestrator := NewGroupOrchestrator(executor, &stubConditionEvaluator{result: false})

	group := pipeline.ExecutionGroup{Stages: []pipeline.StageConfig{{Name: "conditional", Enabled: true, Condition: "stages.prior.success"}}}
	result, _ := orchestrator.ProcessGroup(context.Background(), group, testState(), pipeline.PipelineConfig{}, pipeline.ExecutionGraph{}, true)

	if len(result.State.Stages) != 1 {
		t.Fatalf("expected one skipped execution, got %d", len(result.State.Stages))
	}
	exec := result.State.Stages[0]
	if !exec.ConditionEvaluated || exec.ConditionResult {
		t.Fatalf("expected conditionEvaluated=true conditionResult=false, got %+v", exec)
	}
}

func TestGroupOrchestratorConditionErrorFailsSafe(t *testing.T) {
	executor := &stubParallelExecutor{}
	orchestrator := NewGroupOrchestrator(executor, &stubConditionEvaluator{err: errors.New("bad expression")})

	group := pipeline.ExecutionGroup{Stages: []pipeline.StageConfig{{Name: "conditional", Enabled: true, Condition: "broken(("}}}
	result, _ := orchestrator.ProcessGroup(context.Background(), group, testState(), pipeline.PipelineConfig{}, pipeline.ExecutionGraph{}, true)

	if result.State.Stages[0].Status != pipeline.StageStatusSkipped {
		t.Fatalf("expected fail-safe skip on condition error, got %+v", result.State.Stages[0])
	}
}

func TestGroupOrchestratorStopStrategyHaltsPipeline(t *testing.T) {
	executor := &stubParallelExecutor{outcome: ports.ExecutorOutcome{
		Executions: []pipeline.StageExecution{{StageName: "build", Status: pipeline.StageStatusFailed}},
		AnyFailed:  true,
	}}
	orchestrator := NewGroupOrchestrator(executor, &stubConditionEvaluator{result: true})

	config := pipeline.PipelineConfig{
		Stages:   []pipeline.StageConfig{{Name: "build", Enabled: true, OnFail: pipeline.FailureStrategyStop}},
		Settings: pipeline.Settings{FailureStrategy: pipeline.FailureStrategyStop},
	}
	group := pipeline.ExecutionGroup{Stages: []pipeline.StageConfig{{Name: "build", Enabled: true}}}

	result, _ := orchestrator.ProcessGroup(context.Background(), group, testState(), config, pipeline.ExecutionGraph{}, false)
	if !result.ShouldStopPipeline {
		t.Fatal("expected stop strategy to halt the pipeline")
	}
}

func TestGroupOrchestratorContinueStrategySetsPartial(t *testing.T) {
	executor := &stubParallelExecutor{outcome: ports.ExecutorOutcome{
		Executions: []pipeline.StageExecution{{StageName: "build", Status: pipeline.StageStatusFailed}},
		AnyFailed:  true,
	}}
	orchestrator := NewGroupOrchestrator(executor, &stubConditionEvaluator{result: true})

	config := pipeline.PipelineConfig{
		Stages:   []pipeline.StageConfig{{Name: "build", Enabled: true, OnFail: pipeline.FailureStrategyContinue}},
		Settings: pipeline.Settings{FailureStrategy: pipeline.FailureStrategyStop},
	}
	group := pipeline.ExecutionGroup{Stages: []pipeline.StageConfig{{Name: "build", Enabled: true}}}

	result, _ := orchestrator.ProcessGroup(context.Background(), group, testState(), config, pipeline.ExecutionGraph{}, false)
	if result.ShouldStopPipeline {
		t.Fatal("continue strategy must not halt the pipeline")
	}
	if result.State.Status != pipeline.RunStatusPartial {
		t.Fatalf("expected partial status, got %s", result.State.Status)
	}
}

func TestGroupOrchestratorUsesParallelExecutorForMultipleRunnables(t *testing.T) {
	executor := &stubParallelExecutor{}
	orchestrator := NewGroupOrchestrator(executor, &stubConditionEvaluator{result: true})

	config := pipeline.PipelineConfig{Settings: pipeline.Settings{ExecutionMode: pipeline.ExecutionModeParallel}}
	group := pipeline.ExecutionGroup{Stages: []pipeline.StageConfig{
		{Name: "a", Enabled: true},
		{Name: "b", Enabled: true},
	}}

	_, _ = orchestrator.ProcessGroup(context.Background(), group, testState(), config, pipeline.ExecutionGraph{}, true)
	if executor.sequential {
		t.Fatal("expected parallel dispatch for multiple runnables in parallel mode")
	}
	if len(executor.lastStages) != 2 {
		t.Fatalf("expected both runnable stages dispatched, got %d", len(executor.lastStages))
	}
}

func TestGroupOrchestratorSingleStageAlwaysSequential(t *testing.T) {
	executor := &stubParallelExecutor{}
	orchestrator := NewGroupOrchestrator(executor, &stubConditionEvaluator{result: true})

	config := pipeline.PipelineConfig{Settings: pipeline.Settings{ExecutionMode: pipeline.ExecutionModeParallel}}
	group := pipeline.ExecutionGroup{Stages: []pipeline.StageConfig{{Name: "solo", Enabled: true}}}

	_, _ = orchestrator.ProcessGroup(context.Background(), group, testState(), config, pipeline.ExecutionGraph{}, true)
	if !executor.sequential {
		t.Fatal("expected single-stage group to use sequential dispatch regardless of execution mode")
	}
}
