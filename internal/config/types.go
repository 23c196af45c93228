package config

// Config is the raw YAML document describing a pipeline, before translation
// into the validated domain.PipelineConfig.
type Config struct {
	Version          string           `yaml:"version" validate:"required,semver"`
	Name             string           `yaml:"name" validate:"required,min=1,max=100"`
	Description      string           `yaml:"description,omitempty"`
	Trigger          string           `yaml:"trigger,omitempty" validate:"omitempty,oneof=manual schedule webhook loop"`
	Settings         Settings         `yaml:"settings,omitempty"`
	Git              GitSettings      `yaml:"git,omitempty"`
	PullRequest      PullRequest      `yaml:"pull_request,omitempty"`
	Looping          Looping          `yaml:"looping,omitempty"`
	ContextReduction ContextReduction `yaml:"context_reduction,omitempty"`
	Notifications    Notifications    `yaml:"notifications,omitempty"`
	Stages           []Stage          `yaml:"stages" validate:"required,min=1,dive"`
}

// Settings holds global execution parameters for the run.
type Settings struct {
	ExecutionMode   string `yaml:"execution_mode,omitempty" validate:"omitempty,oneof=sequential parallel"`
	FailureStrategy string `yaml:"failure_strategy,omitempty" validate:"omitempty,oneof=stop warn continue"`
	PermissionMode  string `yaml:"permission_mode,omitempty" validate:"omitempty,oneof=default acceptEdits bypassPermissions plan"`
	MaxParallelism  int    `yaml:"max_parallelism,omitempty" validate:"omitempty,min=1,max=64"`
	Verbose         bool   `yaml:"verbose,omitempty"`
	DryRun          bool   `yaml:"dry_run,omitempty"`
}

// GitSettings controls automatic commit behavior during a run.
type GitSettings struct {
	AutoCommit     bool   `yaml:"auto_commit,omitempty"`
	CommitTemplate string `yaml:"commit_template,omitempty"`
	BranchPrefix   string `yaml:"branch_prefix,omitempty"`
}

// PullRequest controls whether and how a PR is opened at finalize.
type PullRequest struct {
	Enabled       bool   `yaml:"enabled,omitempty"`
	Base          string `yaml:"base,omitempty"`
	TitleTemplate string `yaml:"title_template,omitempty"`
	BodyTemplate  string `yaml:"body_template,omitempty"`
	Draft         bool   `yaml:"draft,omitempty"`
}

// LoopDirectories names the queue directories the loop controller watches.
type LoopDirectories struct {
	Pending  string `yaml:"pending,omitempty"`
	Running  string `yaml:"running,omitempty"`
	Finished string `yaml:"finished,omitempty"`
	Failed   string `yaml:"failed,omitempty"`
}

// Looping controls unattended repeated execution of the pipeline.
type Looping struct {
	Enabled       bool            `yaml:"enabled,omitempty"`
	MaxIterations int             `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`
	Directories   LoopDirectories `yaml:"directories,omitempty"`
}

// ContextReduction controls whether accumulated context is trimmed between
// execution groups.
type ContextReduction struct {
	Enabled   bool   `yaml:"enabled,omitempty"`
	Strategy  string `yaml:"strategy,omitempty" validate:"omitempty,oneof=agent-based summary-based"`
	MaxTokens int    `yaml:"max_tokens,omitempty" validate:"omitempty,min=1"`
	AgentPath string `yaml:"agent_path,omitempty"`
}

// NotificationChannel configures a single dispatch target.
type NotificationChannel struct {
	Type    string            `yaml:"type" validate:"required,oneof=console webhook audit"`
	Target  string            `yaml:"target,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Notifications lists the channels that lifecycle events fan out to.
type Notifications struct {
	Channels []NotificationChannel `yaml:"channels,omitempty" validate:"omitempty,dive"`
}

// Retry controls how a stage is retried after a transient failure.
type Retry struct {
	MaxAttempts    int `yaml:"max_attempts,omitempty" validate:"omitempty,min=1,max=10"`
	BackoffSeconds int `yaml:"backoff_seconds,omitempty" validate:"omitempty,min=0"`
}

// Stage describes a single unit of agent-driven work in the pipeline DAG.
type Stage struct {
	Name       string                 `yaml:"name" validate:"required,stage_name"`
	Agent      string                 `yaml:"agent" validate:"required"`
	DependsOn  []string               `yaml:"depends_on,omitempty"`
	Enabled    *bool                  `yaml:"enabled,omitempty"`
	Condition  string                 `yaml:"condition,omitempty"`
	OnFail     string                 `yaml:"on_fail,omitempty" validate:"omitempty,oneof=stop warn continue"`
	TimeoutSec int                    `yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
	Retry      Retry                  `yaml:"retry,omitempty"`
	Inputs     map[string]interface{} `yaml:"inputs,omitempty"`
	Runtime    string                 `yaml:"runtime,omitempty"`
	AutoCommit *bool                  `yaml:"auto_commit,omitempty"`
}

// IsEnabled returns the stage's configured enablement, defaulting to true
// when the field is omitted from YAML.
func (s Stage) IsEnabled() bool {
	if s.Enabled == nil {
		return true
	}
	return *s.Enabled
}
