package pipeline

import (
	"context"
	"strconv"
	"time"

	domain "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/logging"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// StateObserver is notified with a deep clone of RunState on every
// externally visible mutation (spec §4.5, P4).
type StateObserver func(domain.RunState)

// PipelineRunner owns a run's lifecycle end to end: initialize, iterate
// execution groups through GroupOrchestrator, trap group errors without
// propagating them past a run, and finalize (spec §4.5). An error from
// Initialize is not trapped: it is returned to the caller, no RunState is
// finalized, and no synthetic failed stage is recorded. It is the single
// component permitted to set a run's terminal Status.
type PipelineRunner struct {
	initializer  *PipelineInitializer
	orchestrator ports.GroupOrchestrator
	finalizer    *PipelineFinalizer
	abort        ports.AbortController
	logger       ports.Logger
	observers    []StateObserver
}

// PipelineRunnerOption configures a PipelineRunner.
type PipelineRunnerOption func(*PipelineRunner)

func WithRunnerAbortController(abort ports.AbortController) PipelineRunnerOption {
	return func(r *PipelineRunner) { r.abort = abort }
}

func WithRunnerLogger(logger ports.Logger) PipelineRunnerOption {
	return func(r *PipelineRunner) { r.logger = logger }
}

// WithRunnerObserver registers a StateObserver invoked on every externally
// visible state mutation during Run.
func WithRunnerObserver(observer StateObserver) PipelineRunnerOption {
	return func(r *PipelineRunner) { r.observers = append(r.observers, observer) }
}

// NewPipelineRunner constructs a PipelineRunner.
func NewPipelineRunner(initializer *PipelineInitializer, orchestrator ports.GroupOrchestrator, finalizer *PipelineFinalizer, opts ...PipelineRunnerOption) *PipelineRunner {
	r := &PipelineRunner{
		initializer:  initializer,
		orchestrator: orchestrator,
		finalizer:    finalizer,
		logger:       logging.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// broadcast notifies every registered observer with a defensive clone of
// state, per spec P4 (observers never alias the runner's internal state).
func (r *PipelineRunner) broadcast(state domain.RunState) {
	clone := state.Clone()
	for _, observer := range r.observers {
		observer(clone)
	}
}

// Run executes spec §4.5 steps 1-5: initialize, pre-execution abort check,
// the group loop (with error trapping so a panic-worthy condition instead
// surfaces as a synthetic failed stage), and finalize. It never returns an
// error for a failed or aborted run; those are reflected in the returned
// RunState's Status. The only error it returns is one from Initialize.
func (r *PipelineRunner) Run(ctx context.Context, req RunRequest) (domain.RunState, error) {
	if r.abort != nil {
		ctx = r.abort.Context()
	}

	init, err := r.initializer.Initialize(ctx, req)
	if err != nil {
		return domain.RunState{}, err
	}

	state := init.State
	r.broadcast(state)

	if r.abort != nil && r.abort.Aborted() {
		state.Status = domain.RunStatusAborted
		r.broadcast(state)
		return r.finalizer.Finalize(ctx, state, init)
	}

	state = r.runGroups(ctx, state, init)
	r.broadcast(state)

	return r.finalizer.Finalize(ctx, state, init)
}

// runGroups advances state through every group in init.Graph, stopping on
// an abort signal, a group result that requests pipeline stop, or a group
// error that is trapped into a synthetic failed stage (spec §4.5 steps 2-4).
func (r *PipelineRunner) runGroups(ctx context.Context, state domain.RunState, init InitializedRun) domain.RunState {
	groups := init.Graph.Groups
	for idx, group := range groups {
		if r.abort != nil && r.abort.Aborted() {
			state.Status = domain.RunStatusAborted
			return state
		}

		isFinalGroup := idx == len(groups)-1
		result, err := r.orchestrator.ProcessGroup(ctx, group, state, state.PipelineConfig, init.Graph, isFinalGroup)
		if err != nil {
			r.logger.Error(ctx, "group execution failed, trapping as run failure", "run_id", state.RunID, "level", group.Level, "error", err)
			return r.trapGroupError(state, group.Level, err)
		}

		state = result.State
		r.broadcast(state)

		if result.ShouldStopPipeline {
			state.Status = domain.RunStatusFailed
			return state
		}
	}

	if state.Status == domain.RunStatusRunning {
		state.Status = domain.RunStatusCompleted
	}
	return state
}

// trapGroupError implements spec §4.5's error trap: a group that failed to
// execute at all (as opposed to a stage within it failing cleanly) never
// aborts the process. It is recorded as a synthetic failed stage and the
// run's status becomes aborted (if abort was signalled concurrently) or
// failed.
func (r *PipelineRunner) trapGroupError(state domain.RunState, level int, groupErr error) domain.RunState {
	now := time.Now()
	state.AppendStage(domain.StageExecution{
		StageName: syntheticGroupFailureName(level),
		Status:    domain.StageStatusFailed,
		StartTime: now,
		EndTime:   now,
		Error: &domain.ErrorDetail{
			Message:   groupErr.Error(),
			Timestamp: now,
		},
	})

	if r.abort != nil && r.abort.Aborted() {
		state.Status = domain.RunStatusAborted
	} else {
		state.Status = domain.RunStatusFailed
	}
	return state
}

func syntheticGroupFailureName(level int) string {
	return "group-" + strconv.Itoa(level) + "-error"
}
