package pipeline

import "time"

// RetryPolicy controls how a stage is retried after a transient failure.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// ApplyDefaults returns a retry policy with sane defaults applied.
func (r RetryPolicy) ApplyDefaults() RetryPolicy {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 1
	}
	if r.Backoff <= 0 {
		r.Backoff = time.Second
	}
	return r
}

// StageConfig describes a single unit of agent-driven work in a pipeline.
type StageConfig struct {
	Name       string
	Agent      string
	DependsOn  []string
	Enabled    bool
	Condition  string
	OnFail     FailureStrategy
	Timeout    time.Duration
	Retry      RetryPolicy
	Inputs     map[string]interface{}
	Runtime    string
	AutoCommit *bool
}

// Validate ensures the stage satisfies all business rules.
func (s StageConfig) Validate() error {
	if s.Name == "" {
		return newMissingFieldError("name")
	}
	if !nameTokenPattern.MatchString(s.Name) {
		return newValidationError("stage name must match ^[a-zA-Z0-9_-]+$", map[string]interface{}{"stage_name": s.Name})
	}
	if s.Name == contextReducerStageName {
		return newValidationError("stage name is reserved", map[string]interface{}{"stage_name": s.Name})
	}
	if s.Agent == "" {
		return newMissingFieldError("agent")
	}
	if s.Timeout < 0 {
		return newValidationError("stage timeout must be non-negative", map[string]interface{}{"stage_name": s.Name})
	}
	if s.OnFail != "" && s.OnFail != FailureStrategyStop && s.OnFail != FailureStrategyWarn && s.OnFail != FailureStrategyContinue {
		return newTypeError("one of [stop warn continue]", string(s.OnFail)).WithContext(map[string]interface{}{"stage_name": s.Name})
	}
	return nil
}

// EffectiveTimeout returns the configured timeout or the spec default of 900
// seconds.
func (s StageConfig) EffectiveTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 900 * time.Second
	}
	return s.Timeout
}

// EffectiveFailureStrategy resolves the failure strategy that applies to this
// stage, falling back to the pipeline-level strategy and finally to "stop".
func (s StageConfig) EffectiveFailureStrategy(pipelineDefault FailureStrategy) FailureStrategy {
	if s.OnFail != "" {
		return s.OnFail
	}
	if pipelineDefault != "" {
		return pipelineDefault
	}
	return FailureStrategyStop
}

// HasDependency returns true if the stage depends on the provided name.
func (s StageConfig) HasDependency(name string) bool {
	for _, dep := range s.DependsOn {
		if dep == name {
			return true
		}
	}
	return false
}

// Clone returns a defensive copy of the stage configuration.
func (s StageConfig) Clone() StageConfig {
	deps := append([]string(nil), s.DependsOn...)
	inputs := make(map[string]interface{}, len(s.Inputs))
	for k, v := range s.Inputs {
		inputs[k] = v
	}
	var autoCommit *bool
	if s.AutoCommit != nil {
		v := *s.AutoCommit
		autoCommit = &v
	}
	return StageConfig{
		Name:       s.Name,
		Agent:      s.Agent,
		DependsOn:  deps,
		Enabled:    s.Enabled,
		Condition:  s.Condition,
		OnFail:     s.OnFail,
		Timeout:    s.Timeout,
		Retry:      s.Retry,
		Inputs:     inputs,
		Runtime:    s.Runtime,
		AutoCommit: autoCommit,
	}
}

// contextReducerStageName is the sentinel stage name reserved for
// engine-inserted context-reduction entries (spec §4.2, §8 scenario 6).
const contextReducerStageName = "__context_reducer__"
