// Package condition evaluates stage condition templates against run state.
package condition

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	pipeline "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// ExprEvaluator evaluates stage conditions written as `{{ expression }}`
// template strings, where expression is a github.com/expr-lang/expr
// expression over a `stages` map (manifests `Soochol-Upal`,
// `yesoreyeram-thaiyyal` evidence exactly this library for rule
// evaluation). Example: `{{ stages.review.outputs.issues > 0 }}`.
type ExprEvaluator struct{}

// NewExprEvaluator constructs an ExprEvaluator.
func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{}
}

// Evaluate compiles and runs condition against an environment built from
// state's recorded stage executions.
func (e *ExprEvaluator) Evaluate(ctx context.Context, condition string, state pipeline.RunState) (bool, error) {
	expression := unwrapTemplate(condition)
	if expression == "" {
		return false, fmt.Errorf("condition %q has no expression body", condition)
	}

	env := buildEnvironment(state)

	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", condition, err)
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate condition %q: %w", condition, err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not evaluate to a boolean, got %T", condition, output)
	}
	return result, nil
}

func unwrapTemplate(condition string) string {
	trimmed := strings.TrimSpace(condition)
	trimmed = strings.TrimPrefix(trimmed, "{{")
	trimmed = strings.TrimSuffix(trimmed, "}}")
	return strings.TrimSpace(trimmed)
}

// buildEnvironment exposes each recorded stage as `stages.<name>` with
// `status`, `output`, and `outputs` fields, matching the spec's condition
// syntax (e.g. `stages.review.outputs.issues > 0`). Plain maps are used
// rather than structs since expr resolves map keys exactly as written,
// while exported struct fields would force capitalized property names.
func buildEnvironment(state pipeline.RunState) map[string]any {
	stages := make(map[string]any, len(state.Stages))
	for _, execution := range state.Stages {
		stages[execution.StageName] = map[string]any{
			"status":  string(execution.Status),
			"output":  execution.AgentOutput,
			"outputs": parseStructuredOutputs(execution.AgentOutput),
		}
	}
	return map[string]any{"stages": stages}
}

// parseStructuredOutputs treats AgentOutput as JSON when possible, so
// conditions like `stages.review.outputs.issues > 0` can reach into an
// agent's structured response. Non-JSON output yields an empty map rather
// than an error, since most agents emit plain text.
func parseStructuredOutputs(output string) map[string]any {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" || trimmed[0] != '{' {
		return map[string]any{}
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return map[string]any{}
	}
	return parsed
}

var _ ports.ConditionEvaluator = (*ExprEvaluator)(nil)
