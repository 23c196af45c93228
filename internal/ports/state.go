package ports

import (
	"context"

	pipeline "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
)

// StateStore persists and loads RunState by runId. Implementations must
// write atomically (temp file + rename) so a crash mid-write never leaves a
// corrupt or partially written state file on disk (spec §5 locking
// discipline, property L1).
type StateStore interface {
	Save(ctx context.Context, state pipeline.RunState) error
	Load(ctx context.Context, runID string) (pipeline.RunState, error)
}

// HandoverStore persists per-stage output so downstream stages can reference
// earlier work without inlining entire bodies into their prompt context
// (spec §4.4, §6 on-disk layout).
type HandoverStore interface {
	// Save writes a stage's textual output under the run's handover
	// directory, returning the structured/raw file references to attach to
	// the StageExecution.
	Save(ctx context.Context, stageName string, output string) (pipeline.OutputFiles, error)

	// GetPreviousStages returns file references for every stage that has
	// already produced handover output in the current run, in completion
	// order.
	GetPreviousStages(ctx context.Context) ([]PreviousStageRef, error)

	// AggregatePath returns the path to the run's aggregated HANDOVER.md.
	AggregatePath() string

	// Dir returns the root handover directory for the current run.
	Dir() string
}

// PreviousStageRef is a lightweight pointer to an earlier stage's handover
// output, used to build the next stage's agent context without inlining
// large bodies (spec §4.4 step 3).
type PreviousStageRef struct {
	StageName      string
	StructuredPath string
	RawPath        string
}
