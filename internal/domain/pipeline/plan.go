package pipeline

import "fmt"

// ExecutionGroup groups stages that share a dependency level and may run in
// parallel.
type ExecutionGroup struct {
	Level  int
	Stages []StageConfig
}

// GraphValidation carries the outcome of planning a pipeline's execution
// graph, distinct from a bare Go error so warnings can be surfaced alongside
// fatal problems.
type GraphValidation struct {
	Errors   []string
	Warnings []string
	IsValid  bool
}

// ExecutionGraph is the immutable output of DAGPlanner.BuildExecutionPlan.
type ExecutionGraph struct {
	Groups         []ExecutionGroup
	MaxParallelism int
	Validation     GraphValidation
}

// Validate ensures the graph is coherent with the pipeline definition it was
// built from. This is a defensive, redundant check used by tests and callers
// that received a graph from an untrusted source (e.g. deserialized state).
func (g ExecutionGraph) Validate(config PipelineConfig) error {
	if len(g.Groups) == 0 {
		return newValidationError("execution graph must contain at least one group", nil)
	}

	seen := make(map[string]struct{})
	for _, group := range g.Groups {
		if len(group.Stages) == 0 {
			return newValidationError("execution group must contain stages", map[string]interface{}{"level": group.Level})
		}
		for _, stage := range group.Stages {
			if _, ok := seen[stage.Name]; ok {
				return newDependencyError("stage appears in multiple execution groups", map[string]interface{}{"stage_name": stage.Name})
			}
			seen[stage.Name] = struct{}{}
		}
	}

	for _, stage := range config.Stages {
		if _, ok := seen[stage.Name]; !ok {
			return newDependencyError("plan missing stage", map[string]interface{}{"stage_name": stage.Name})
		}
	}

	levelIndex := make(map[string]int)
	for _, group := range g.Groups {
		for _, stage := range group.Stages {
			levelIndex[stage.Name] = group.Level
		}
	}

	for _, stage := range config.Stages {
		for _, dep := range stage.DependsOn {
			if levelIndex[dep] >= levelIndex[stage.Name] {
				return newDependencyError("dependency not scheduled before dependent", map[string]interface{}{
					"stage_name":    stage.Name,
					"dependency_id": dep,
				})
			}
		}
	}

	return nil
}

// LevelForStage returns the group level index for the provided stage.
func (g ExecutionGraph) LevelForStage(name string) (int, error) {
	for _, group := range g.Groups {
		for _, stage := range group.Stages {
			if stage.Name == name {
				return group.Level, nil
			}
		}
	}
	return 0, fmt.Errorf("stage %s not present in execution graph", name)
}
