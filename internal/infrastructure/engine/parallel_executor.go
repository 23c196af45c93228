package engine

import (
	"context"
	"sync"
	"time"

	"github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/logging"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// maxRetryBackoff caps the exponential backoff applied between stage retry
// attempts (spec §4.3).
const maxRetryBackoff = 30 * time.Second

// ParallelExecutor dispatches a group's runnable stages either concurrently
// or sequentially, retrying transient failures with exponential backoff.
// Grounded on the teacher's Executor.Execute per-level goroutine/semaphore
// fan-out.
type ParallelExecutor struct {
	stageExecutor ports.StageExecutor
	logger        ports.Logger
	parallelism   int
}

// ParallelExecutorOption configures a ParallelExecutor instance.
type ParallelExecutorOption func(*ParallelExecutor)

// WithParallelExecutorLogger injects a logger.
func WithParallelExecutorLogger(logger ports.Logger) ParallelExecutorOption {
	return func(e *ParallelExecutor) { e.logger = logger }
}

// WithParallelExecutorParallelism overrides the concurrency ceiling.
func WithParallelExecutorParallelism(parallelism int) ParallelExecutorOption {
	return func(e *ParallelExecutor) { e.parallelism = parallelism }
}

// NewParallelExecutor constructs a ParallelExecutor backed by stageExecutor.
func NewParallelExecutor(stageExecutor ports.StageExecutor, opts ...ParallelExecutorOption) *ParallelExecutor {
	e := &ParallelExecutor{
		stageExecutor: stageExecutor,
		logger:        logging.NewNoOpLogger(),
		parallelism:   4,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteParallelGroup runs stages concurrently. Failures in one stage do not
// cancel siblings; the returned executions preserve input order, not
// completion order (spec §4.3).
func (e *ParallelExecutor) ExecuteParallelGroup(ctx context.Context, stages []pipeline.StageConfig, state pipeline.RunState, onOutput ports.OutputHandler) (ports.ExecutorOutcome, error) {
	executions := make([]pipeline.StageExecution, len(stages))
	anyFailed := false
	var mu sync.Mutex
	var wg sync.WaitGroup

	parallelism := e.parallelism
	if parallelism <= 0 || parallelism > len(stages) {
		parallelism = len(stages)
	}
	sem := make(chan struct{}, parallelism)

	for idx, stage := range stages {
		wg.Add(1)
		go func(index int, st pipeline.StageConfig) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
			}

			exec := e.executeWithRetry(ctx, st, state, chunkHandler(onOutput, st.Name))
			executions[index] = exec

			if exec.IsFailure() {
				mu.Lock()
				anyFailed = true
				mu.Unlock()
			}
		}(idx, stage)
	}

	wg.Wait()
	return ports.ExecutorOutcome{Executions: executions, AnyFailed: anyFailed}, nil
}

// ExecuteSequentialGroup runs stages one after another, stopping early when
// a stage fails under the "stop" effective failure strategy (spec §4.3).
func (e *ParallelExecutor) ExecuteSequentialGroup(ctx context.Context, stages []pipeline.StageConfig, state pipeline.RunState, onOutput ports.OutputHandler) (ports.ExecutorOutcome, error) {
	var executions []pipeline.StageExecution
	anyFailed := false

	for _, stage := range stages {
		exec := e.executeWithRetry(ctx, stage, state, chunkHandler(onOutput, stage.Name))
		executions = append(executions, exec)

		if exec.IsFailure() {
			anyFailed = true
			strategy := stage.EffectiveFailureStrategy(state.PipelineConfig.Settings.FailureStrategy)
			if strategy == pipeline.FailureStrategyStop {
				break
			}
		}
	}

	return ports.ExecutorOutcome{Executions: executions, AnyFailed: anyFailed}, nil
}

func chunkHandler(onOutput ports.OutputHandler, stageName string) func(string) {
	if onOutput == nil {
		return nil
	}
	return func(chunk string) { onOutput(stageName, chunk) }
}

func (e *ParallelExecutor) executeWithRetry(ctx context.Context, stage pipeline.StageConfig, state pipeline.RunState, onOutput func(string)) pipeline.StageExecution {
	policy := stage.Retry.ApplyDefaults()
	backoff := policy.Backoff

	var last pipeline.StageExecution
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		last = e.stageExecutor.ExecuteStage(ctx, stage, state, onOutput)
		last.RetryAttempt = attempt
		last.MaxRetries = policy.MaxAttempts

		if !last.IsFailure() || ctx.Err() != nil {
			return last
		}
		if attempt == policy.MaxAttempts {
			break
		}

		e.logger.Warn(ctx, "retrying stage after transient failure", "stage_name", stage.Name, "attempt", attempt, "backoff", backoff.String())
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return last
		}
		backoff *= 2
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}

	return last
}

var _ ports.ParallelExecutor = (*ParallelExecutor)(nil)
