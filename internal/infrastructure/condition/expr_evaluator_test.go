package condition

import (
	"context"
	"testing"

	pipeline "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
)

func TestExprEvaluatorEvaluatesStructuredOutputComparison(t *testing.T) {
	evaluator := NewExprEvaluator()
	state := pipeline.RunState{
		Stages: []pipeline.StageExecution{
			{StageName: "review", Status: pipeline.StageStatusSuccess, AgentOutput: `{"issues": 3}`},
		},
	}

	result, err := evaluator.Evaluate(context.Background(), "{{ stages.review.outputs.issues > 0 }}", state)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result {
		t.Fatal("expected condition to evaluate true")
	}
}

func TestExprEvaluatorEvaluatesStatusComparison(t *testing.T) {
	evaluator := NewExprEvaluator()
	state := pipeline.RunState{
		Stages: []pipeline.StageExecution{
			{StageName: "build", Status: pipeline.StageStatusFailed},
		},
	}

	result, err := evaluator.Evaluate(context.Background(), `{{ stages.build.status == "failed" }}`, state)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result {
		t.Fatal("expected condition to evaluate true")
	}
}

func TestExprEvaluatorReturnsErrorForInvalidExpression(t *testing.T) {
	evaluator := NewExprEvaluator()
	_, err := evaluator.Evaluate(context.Background(), "{{ stages. }}", pipeline.RunState{})
	if err == nil {
		t.Fatal("expected compile error for malformed expression")
	}
}

func TestExprEvaluatorMissingStageReferenceReturnsError(t *testing.T) {
	evaluator := NewExprEvaluator()
	state := pipeline.RunState{}

	_, err := evaluator.Evaluate(context.Background(), "{{ stages.missing.outputs.issues > 0 }}", state)
	if err == nil {
		t.Fatal("expected evaluation error for missing stage reference")
	}
}
