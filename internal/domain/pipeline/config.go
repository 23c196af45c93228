package pipeline

import "regexp"

var nameTokenPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ExecutionMode controls whether stages within a group run in parallel.
type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = "sequential"
	ExecutionModeParallel   ExecutionMode = "parallel"
)

// FailureStrategy controls how a stage failure affects the rest of the run.
type FailureStrategy string

const (
	FailureStrategyStop     FailureStrategy = "stop"
	FailureStrategyWarn     FailureStrategy = "warn"
	FailureStrategyContinue FailureStrategy = "continue"
)

// PermissionMode mirrors the agent runtime's permission posture for a run.
type PermissionMode string

const (
	PermissionModeDefault           PermissionMode = "default"
	PermissionModeAcceptEdits       PermissionMode = "acceptEdits"
	PermissionModeBypassPermissions PermissionMode = "bypassPermissions"
	PermissionModePlan              PermissionMode = "plan"
)

// ContextReductionStrategy selects how accumulated context is trimmed between
// groups.
type ContextReductionStrategy string

const (
	ContextReductionAgentBased   ContextReductionStrategy = "agent-based"
	ContextReductionSummaryBased ContextReductionStrategy = "summary-based"
)

// TriggerSource describes what caused a pipeline run to start.
type TriggerSource string

const (
	TriggerManual   TriggerSource = "manual"
	TriggerSchedule TriggerSource = "schedule"
	TriggerWebhook  TriggerSource = "webhook"
	TriggerLoop     TriggerSource = "loop"
)

// PipelineConfig is the immutable, validated description of a pipeline. It is
// loaded once per run and never mutated afterward.
type PipelineConfig struct {
	Name             string
	Trigger          TriggerSource
	Stages           []StageConfig
	Settings         Settings
	Git              GitSettings
	PullRequest      PullRequestSettings
	Looping          LoopingSettings
	ContextReduction ContextReductionSettings
	Notifications    NotificationsSettings
}

// Validate ensures the pipeline configuration satisfies all invariants
// described by the data model before a run may start.
func (p PipelineConfig) Validate() error {
	if p.Name == "" {
		return newMissingFieldError("name")
	}
	if !nameTokenPattern.MatchString(p.Name) {
		return newValidationError("pipeline name must be a filesystem-safe token", map[string]interface{}{"name": p.Name})
	}
	if len(p.Stages) == 0 {
		return newValidationError("pipeline requires at least one stage", nil)
	}

	seen := make(map[string]struct{}, len(p.Stages))
	for _, stage := range p.Stages {
		if err := stage.Validate(); err != nil {
			return err
		}
		if _, ok := seen[stage.Name]; ok {
			return newDuplicateError(stage.Name)
		}
		seen[stage.Name] = struct{}{}
	}

	return p.ValidateDependencies()
}

// ValidateDependencies ensures every dependsOn edge targets a known stage and
// that no cycle exists among them.
func (p PipelineConfig) ValidateDependencies() error {
	lookup := make(map[string]StageConfig, len(p.Stages))
	for _, stage := range p.Stages {
		lookup[stage.Name] = stage
	}

	for _, stage := range p.Stages {
		for _, dep := range stage.DependsOn {
			if dep == stage.Name {
				return newDependencyError("stage cannot depend on itself", map[string]interface{}{"stage_name": stage.Name})
			}
			if _, ok := lookup[dep]; !ok {
				return newDependencyError("dependency not found", map[string]interface{}{"stage_name": stage.Name, "missing_dependency": dep})
			}
		}
	}

	visited := make(map[string]bool, len(p.Stages))
	stack := make(map[string]bool, len(p.Stages))
	var path []string
	var detect func(string) *DomainError
	detect = func(name string) *DomainError {
		visited[name] = true
		stack[name] = true
		path = append(path, name)

		for _, dep := range lookup[name].DependsOn {
			if !visited[dep] {
				if err := detect(dep); err != nil {
					return err
				}
			} else if stack[dep] {
				cycle := append([]string(nil), path...)
				cycle = append(cycle, dep)
				return newCycleError(cycle)
			}
		}

		stack[name] = false
		path = path[:len(path)-1]
		return nil
	}

	for _, stage := range p.Stages {
		if !visited[stage.Name] {
			if err := detect(stage.Name); err != nil {
				return err
			}
		}
	}

	return nil
}

// GetStage retrieves a stage by name.
func (p PipelineConfig) GetStage(name string) (*StageConfig, error) {
	for i := range p.Stages {
		if p.Stages[i].Name == name {
			copy := p.Stages[i]
			return &copy, nil
		}
	}
	return nil, newDomainError(ErrCodeNotFound, "stage not found", nil, map[string]interface{}{"stage_name": name})
}

// EffectiveSettings returns settings with defaults applied.
func (p PipelineConfig) EffectiveSettings() Settings {
	return p.Settings.ApplyDefaults()
}

// Clone returns a defensive copy of the pipeline configuration.
func (p PipelineConfig) Clone() PipelineConfig {
	stages := make([]StageConfig, len(p.Stages))
	for i, stage := range p.Stages {
		stages[i] = stage.Clone()
	}
	return PipelineConfig{
		Name:             p.Name,
		Trigger:          p.Trigger,
		Stages:           stages,
		Settings:         p.Settings.Clone(),
		Git:              p.Git,
		PullRequest:      p.PullRequest,
		Looping:          p.Looping,
		ContextReduction: p.ContextReduction,
		Notifications:    p.Notifications,
	}
}
