package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/logging"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// GroupOrchestrator evaluates per-stage disposition (enabled/condition),
// dispatches runnable stages to the ParallelExecutor, applies the pipeline's
// failure policy, and triggers context reduction between groups (spec §4.2).
// The teacher's Executor.Execute only dispatches; this adds the disposition
// and policy layer on top, in the teacher's options-pattern constructor
// style.
type GroupOrchestrator struct {
	executor   ports.ParallelExecutor
	conditions ports.ConditionEvaluator
	tokens     ports.TokenEstimator
	reducer    ports.ContextReducer
	stateStore ports.StateStore
	notifier   ports.NotificationDispatcher
	logger     ports.Logger
	events     ports.EventPublisher
}

// GroupOrchestratorOption configures a GroupOrchestrator instance.
type GroupOrchestratorOption func(*GroupOrchestrator)

func WithGroupOrchestratorLogger(logger ports.Logger) GroupOrchestratorOption {
	return func(g *GroupOrchestrator) { g.logger = logger }
}

func WithGroupOrchestratorEvents(events ports.EventPublisher) GroupOrchestratorOption {
	return func(g *GroupOrchestrator) { g.events = events }
}

func WithTokenEstimator(estimator ports.TokenEstimator) GroupOrchestratorOption {
	return func(g *GroupOrchestrator) { g.tokens = estimator }
}

func WithContextReducer(reducer ports.ContextReducer) GroupOrchestratorOption {
	return func(g *GroupOrchestrator) { g.reducer = reducer }
}

func WithStateStore(store ports.StateStore) GroupOrchestratorOption {
	return func(g *GroupOrchestrator) { g.stateStore = store }
}

func WithNotificationDispatcher(dispatcher ports.NotificationDispatcher) GroupOrchestratorOption {
	return func(g *GroupOrchestrator) { g.notifier = dispatcher }
}

// NewGroupOrchestrator constructs a GroupOrchestrator.
func NewGroupOrchestrator(executor ports.ParallelExecutor, conditions ports.ConditionEvaluator, opts ...GroupOrchestratorOption) *GroupOrchestrator {
	g := &GroupOrchestrator{
		executor:   executor,
		conditions: conditions,
		logger:     logging.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ProcessGroup implements spec §4.2: disposition → dispatch → failure
// policy → context reduction, returning the updated state and whether the
// pipeline should stop advancing to the next group.
func (g *GroupOrchestrator) ProcessGroup(ctx context.Context, group pipeline.ExecutionGroup, state pipeline.RunState, config pipeline.PipelineConfig, graph pipeline.ExecutionGraph, isFinalGroup bool) (ports.GroupResult, error) {
	disposition := g.disposeStages(ctx, group.Stages, state)

	for _, skipped := range disposition.Skipped {
		state.AppendStage(skipped)
	}

	var outcome ports.ExecutorOutcome
	var err error
	onOutput := ports.OutputHandler(func(stageName, chunk string) {})

	switch {
	case len(disposition.Runnable) == 0:
		outcome = ports.ExecutorOutcome{}
	case config.Settings.ExecutionMode == pipeline.ExecutionModeParallel && len(disposition.Runnable) > 1:
		outcome, err = g.executor.ExecuteParallelGroup(ctx, disposition.Runnable, state, onOutput)
	default:
		outcome, err = g.executor.ExecuteSequentialGroup(ctx, disposition.Runnable, state, onOutput)
	}
	if err != nil {
		return ports.GroupResult{State: state}, err
	}

	for _, exec := range outcome.Executions {
		state.AppendStage(exec)
	}

	shouldStop := false
	anyFailure := false
	for _, exec := range outcome.Executions {
		if !exec.IsFailure() {
			continue
		}
		anyFailure = true
		stage, lookupErr := config.GetStage(exec.StageName)
		strategy := config.Settings.FailureStrategy
		if lookupErr == nil {
			strategy = stage.EffectiveFailureStrategy(config.Settings.FailureStrategy)
		}
		if strategy == pipeline.FailureStrategyStop {
			shouldStop = true
		}
	}
	if anyFailure && !shouldStop {
		state.Status = pipeline.RunStatusPartial
	}

	if !isFinalGroup && !shouldStop {
		g.maybeReduceContext(ctx, &state, config)
	}

	if g.notifier != nil {
		_ = g.notifier.Dispatch(ctx, ports.LifecycleEvent{
			Type:  "group.completed",
			State: state.Clone(),
			Extra: map[string]interface{}{"level": group.Level, "summary": pipeline.AggregateSummary(outcome.Executions)},
		})
	}
	if g.stateStore != nil {
		if saveErr := g.stateStore.Save(ctx, state); saveErr != nil {
			g.logger.Warn(ctx, "failed to persist run state after group", "run_id", state.RunID, "level", group.Level, "error", saveErr)
		}
	}

	return ports.GroupResult{State: state, ShouldStopPipeline: shouldStop}, nil
}

// disposeStages implements spec §4.2's per-stage disposition algorithm,
// evaluated in declaration order before any stage runs.
func (g *GroupOrchestrator) disposeStages(ctx context.Context, stages []pipeline.StageConfig, state pipeline.RunState) ports.GroupDisposition {
	var disposition ports.GroupDisposition

	for _, stage := range stages {
		now := time.Now()
		if !stage.Enabled {
			disposition.Skipped = append(disposition.Skipped, pipeline.StageExecution{
				StageName: stage.Name,
				Status:    pipeline.StageStatusSkipped,
				StartTime: now,
				EndTime:   now,
			})
			continue
		}

		if stage.Condition != "" {
			result, err := g.conditions.Evaluate(ctx, stage.Condition, state)
			if err != nil {
				g.logger.Warn(ctx, "condition evaluation failed, skipping stage fail-safe", "stage_name", stage.Name, "condition", stage.Condition, "error", err)
				result = false
			}
			if !result {
				disposition.Skipped = append(disposition.Skipped, pipeline.StageExecution{
					StageName:          stage.Name,
					Status:             pipeline.StageStatusSkipped,
					StartTime:          now,
					EndTime:            now,
					ConditionEvaluated: true,
					ConditionResult:    false,
				})
				continue
			}
		}

		disposition.Runnable = append(disposition.Runnable, stage)
	}

	return disposition
}

// maybeReduceContext implements spec §4.2's context-reduction hook: only
// triggered between groups, never on the final group, and only when the
// estimated token footprint for the upcoming context exceeds the configured
// budget. Failures are logged and treated as non-fatal.
func (g *GroupOrchestrator) maybeReduceContext(ctx context.Context, state *pipeline.RunState, config pipeline.PipelineConfig) {
	reduction := config.ContextReduction
	if !reduction.Enabled || reduction.Strategy != pipeline.ContextReductionAgentBased || reduction.AgentPath == "" {
		return
	}
	if g.tokens == nil || g.reducer == nil {
		return
	}

	var accumulated strings.Builder
	for _, exec := range state.Stages {
		accumulated.WriteString(exec.AgentOutput)
	}

	estimated, err := g.tokens.EstimateTokens(ctx, accumulated.String())
	if err != nil {
		g.logger.Warn(ctx, "token estimation failed, continuing with full context", "run_id", state.RunID, "error", err)
		return
	}
	if estimated <= reduction.EffectiveMaxTokens() {
		return
	}

	sentinel, err := g.reducer.RunReduction(ctx, *state)
	if err != nil {
		g.logger.Warn(ctx, "context reduction failed, continuing with full context", "run_id", state.RunID, "error", err)
		return
	}
	state.InsertReducerStage(sentinel)
	g.logger.Info(ctx, fmt.Sprintf("reduced accumulated context from ~%d tokens", estimated), "run_id", state.RunID)
}

var _ ports.GroupOrchestrator = (*GroupOrchestrator)(nil)
