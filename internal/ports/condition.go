package ports

import (
	"context"

	pipeline "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
)

// ConditionEvaluator evaluates a stage's template condition string against
// the current run state (spec §4.2 step 2). Evaluation errors are treated
// fail-safe by the caller (as false); the evaluator itself should still
// return the error so the caller can log a warning.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, condition string, state pipeline.RunState) (bool, error)
}

// TokenEstimator estimates the token footprint of a block of text, used by
// GroupOrchestrator to decide whether context reduction is required before
// the next group runs (spec §4.2 context reduction).
type TokenEstimator interface {
	EstimateTokens(ctx context.Context, text string) (int, error)
}

// ContextReducer rewrites accumulated context to fit a token budget,
// producing a synthetic StageExecution spliced into RunState.Stages under
// the reserved sentinel name (spec §4.2, §8 scenario 6).
type ContextReducer interface {
	RunReduction(ctx context.Context, state pipeline.RunState) (pipeline.StageExecution, error)
}
