package pipeline

import (
	"fmt"
	"time"
)

// StageStatus represents the status of a single stage execution attempt.
type StageStatus string

const (
	StageStatusPending StageStatus = "pending"
	StageStatusRunning StageStatus = "running"
	StageStatusSuccess StageStatus = "success"
	StageStatusFailed  StageStatus = "failed"
	StageStatusSkipped StageStatus = "skipped"
	StageStatusAborted StageStatus = "aborted"
)

// TokenUsage records agent runtime token accounting for a single stage.
type TokenUsage struct {
	Input      int
	Output     int
	Total      int
	CacheRead  int
	CacheWrite int
}

// ErrorDetail captures a classified failure for a stage execution.
type ErrorDetail struct {
	Message    string
	Stack      string
	Suggestion string
	AgentPath  string
	Timestamp  time.Time
}

// OutputFiles references the on-disk handover artifacts produced by a stage.
type OutputFiles struct {
	Structured string
	Raw        string
}

// StageExecution is a single recorded attempt of a stage, appended to
// RunState.Stages in completion order.
type StageExecution struct {
	StageName          string
	Status             StageStatus
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
	CommitSha          string
	CommitMessage      string
	AgentOutput        string
	Error              *ErrorDetail
	RetryAttempt       int
	MaxRetries         int
	ConditionEvaluated bool
	ConditionResult    bool
	OutputFiles        *OutputFiles
	TokenUsage         *TokenUsage
}

// IsSuccess returns true when the stage completed successfully.
func (e StageExecution) IsSuccess() bool {
	return e.Status == StageStatusSuccess
}

// IsFailure returns true when the stage failed.
func (e StageExecution) IsFailure() bool {
	return e.Status == StageStatusFailed
}

// IsTerminal returns true when the execution will not be retried or resumed.
func (e StageExecution) IsTerminal() bool {
	switch e.Status {
	case StageStatusSuccess, StageStatusFailed, StageStatusSkipped, StageStatusAborted:
		return true
	default:
		return false
	}
}

// Clone returns a defensive copy of the execution record.
func (e StageExecution) Clone() StageExecution {
	clone := e
	if e.Error != nil {
		errCopy := *e.Error
		clone.Error = &errCopy
	}
	if e.OutputFiles != nil {
		filesCopy := *e.OutputFiles
		clone.OutputFiles = &filesCopy
	}
	if e.TokenUsage != nil {
		usageCopy := *e.TokenUsage
		clone.TokenUsage = &usageCopy
	}
	return clone
}

// RunStatus is the overall lifecycle status of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusAborted   RunStatus = "aborted"
)

// IsTerminal reports whether the status ends the run (spec P3).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusPartial, RunStatusAborted:
		return true
	default:
		return false
	}
}

// Trigger describes what started a run and from which commit.
type Trigger struct {
	Type      TriggerSource
	CommitSha string
	Timestamp time.Time
}

// PullRequestArtifact records the PR opened at finalize, if any.
type PullRequestArtifact struct {
	URL    string
	Number int
}

// Artifacts accumulates the side effects produced over the life of a run.
type Artifacts struct {
	InitialCommit string
	FinalCommit   string
	ChangedFiles  []string
	TotalDuration time.Duration
	PullRequest   *PullRequestArtifact
	HandoverDir   string
}

// RunState is the authoritative, persisted record of one pipeline run. It is
// exclusively owned and mutated by PipelineRunner; every other component only
// ever receives a clone (see Clone).
type RunState struct {
	RunID          string
	PipelineConfig PipelineConfig
	Trigger        Trigger
	Stages         []StageExecution
	Status         RunStatus
	Artifacts      Artifacts
}

// AppendStage appends a stage execution to the run's history. Per the
// append-only invariant (spec §3), callers must never remove or reorder
// existing entries; the sole exception is the reducer sentinel, which
// InsertReducerStage splices in explicitly.
func (s *RunState) AppendStage(exec StageExecution) {
	s.Stages = append(s.Stages, exec)
}

// InsertReducerStage splices a context-reducer sentinel execution immediately
// after the current tail of Stages (spec §4.2, §8 scenario 6).
func (s *RunState) InsertReducerStage(exec StageExecution) {
	exec.StageName = contextReducerStageName
	s.Stages = append(s.Stages, exec)
}

// Clone returns a deep copy of the run state so that observers handed a
// clone cannot alias or mutate the runner's internal state (spec P4).
func (s RunState) Clone() RunState {
	clone := s
	clone.PipelineConfig = s.PipelineConfig.Clone()
	clone.Stages = make([]StageExecution, len(s.Stages))
	for i, exec := range s.Stages {
		clone.Stages[i] = exec.Clone()
	}
	clone.Artifacts = s.Artifacts
	clone.Artifacts.ChangedFiles = append([]string(nil), s.Artifacts.ChangedFiles...)
	if s.Artifacts.PullRequest != nil {
		pr := *s.Artifacts.PullRequest
		clone.Artifacts.PullRequest = &pr
	}
	return clone
}

// AggregateSummary returns a compact human-readable summary of execution
// statuses, e.g. "3 completed: 2 success, 1 failed, 0 skipped" (spec §4.3
// aggregateResults, L3).
func AggregateSummary(executions []StageExecution) string {
	var success, failed, skipped int
	for _, e := range executions {
		switch e.Status {
		case StageStatusSuccess:
			success++
		case StageStatusFailed:
			failed++
		case StageStatusSkipped:
			skipped++
		}
	}
	return fmt.Sprintf("%d completed: %d success, %d failed, %d skipped", len(executions), success, failed, skipped)
}
