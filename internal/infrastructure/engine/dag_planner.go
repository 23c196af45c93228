package engine

import (
	"context"
	"strconv"

	"github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
)

// maxHealthyChainDepth and maxHealthyGroupSize gate the non-fatal warnings
// DAGPlanner emits (spec §4.1).
const (
	maxHealthyChainDepth = 5
	maxHealthyGroupSize  = 8
)

// DAGPlanner builds a level-based ExecutionGraph from a pipeline's stages
// using Kahn's algorithm, preserving declaration order within each level.
type DAGPlanner struct{}

// NewDAGPlanner creates a DAGPlanner instance.
func NewDAGPlanner() *DAGPlanner {
	return &DAGPlanner{}
}

// BuildExecutionPlan constructs the execution graph for config. It is pure
// and performs no I/O; the only non-nil error it returns is context
// cancellation. Fatal problems (cycles, unknown dependencies, duplicate
// names) are reported through the returned graph's Validation field rather
// than as a Go error, per spec §4.1.
func (p *DAGPlanner) BuildExecutionPlan(ctx context.Context, config pipeline.PipelineConfig) (pipeline.ExecutionGraph, error) {
	var validation pipeline.GraphValidation

	lookup := make(map[string]pipeline.StageConfig, len(config.Stages))
	order := make(map[string]int, len(config.Stages))
	for i, stage := range config.Stages {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pipeline.ExecutionGraph{}, &pipeline.DomainError{Code: pipeline.ErrCodeCancelled, Message: "plan build cancelled", Cause: ctxErr}
		}
		if _, dup := lookup[stage.Name]; dup {
			validation.Errors = append(validation.Errors, "duplicate stage name: "+stage.Name)
			continue
		}
		lookup[stage.Name] = stage
		order[stage.Name] = i
	}

	indegree := make(map[string]int, len(lookup))
	adjacency := make(map[string][]string, len(lookup))
	for name := range lookup {
		indegree[name] = 0
	}

	hasDependents := make(map[string]bool, len(lookup))
	hasDependencies := make(map[string]bool, len(lookup))

	for name, stage := range lookup {
		for _, dep := range stage.DependsOn {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return pipeline.ExecutionGraph{}, &pipeline.DomainError{Code: pipeline.ErrCodeCancelled, Message: "plan build cancelled", Cause: ctxErr}
			}
			if dep == name {
				validation.Errors = append(validation.Errors, "stage cannot depend on itself: "+name)
				continue
			}
			if _, ok := lookup[dep]; !ok {
				validation.Errors = append(validation.Errors, "unknown dependency: "+name+" -> "+dep)
				continue
			}
			indegree[name]++
			adjacency[dep] = append(adjacency[dep], name)
			hasDependents[dep] = true
			hasDependencies[name] = true
		}
	}

	if len(validation.Errors) > 0 {
		validation.IsValid = false
		return pipeline.ExecutionGraph{Validation: validation}, nil
	}

	queue := stableQueue(lookup, order, indegree)

	processed := 0
	var groups []pipeline.ExecutionGroup
	maxParallelism := 0

	for len(queue) > 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pipeline.ExecutionGraph{}, &pipeline.DomainError{Code: pipeline.ErrCodeCancelled, Message: "plan build cancelled", Cause: ctxErr}
		}

		level := len(groups)
		stages := make([]pipeline.StageConfig, len(queue))
		for i, name := range queue {
			stages[i] = lookup[name]
		}
		groups = append(groups, pipeline.ExecutionGroup{Level: level, Stages: stages})
		if len(stages) > maxParallelism {
			maxParallelism = len(stages)
		}
		if len(stages) > maxHealthyGroupSize {
			validation.Warnings = append(validation.Warnings, "group size exceeds recommended maximum at level "+strconv.Itoa(level))
		}

		var next []string
		for _, name := range queue {
			processed++
			for _, dependent := range adjacency[name] {
				indegree[dependent]--
				if indegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		next = stableOrder(next, order)
		queue = next
	}

	if processed != len(lookup) {
		validation.Errors = append(validation.Errors, "circular dependency detected")
		validation.IsValid = false
		return pipeline.ExecutionGraph{Validation: validation}, nil
	}

	if len(groups) > maxHealthyChainDepth {
		validation.Warnings = append(validation.Warnings, "dependency chain depth exceeds recommended maximum")
	}

	if len(lookup) > 1 {
		for name := range lookup {
			if !hasDependents[name] && !hasDependencies[name] {
				validation.Warnings = append(validation.Warnings, "isolated stage with no dependencies or dependents: "+name)
			}
		}
	}

	validation.IsValid = true
	return pipeline.ExecutionGraph{
		Groups:         groups,
		MaxParallelism: maxParallelism,
		Validation:     validation,
	}, nil
}

// stableQueue returns the initial zero-indegree queue in declaration order.
func stableQueue(lookup map[string]pipeline.StageConfig, order map[string]int, indegree map[string]int) []string {
	var queue []string
	for name, deg := range indegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	return stableOrder(queue, order)
}

// stableOrder sorts names by their original declaration index, a stable
// partition that replaces the teacher's lexical sort.Strings so within-level
// ordering matches config declaration order (spec §4.1).
func stableOrder(names []string, order map[string]int) []string {
	sorted := append([]string(nil), names...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && order[sorted[j-1]] > order[sorted[j]]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted
}
