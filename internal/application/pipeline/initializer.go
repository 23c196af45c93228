package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/logging"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// RunRequest carries the caller-supplied parameters for starting a run
// (spec §4.5 step 1). Trigger defaults to TriggerManual when unset.
type RunRequest struct {
	Config  domain.PipelineConfig
	Trigger domain.TriggerSource
}

// InitializedRun is everything PipelineInitializer assembles before the
// group loop begins: the seed RunState plus the per-run collaborators that
// depend on the generated runId.
type InitializedRun struct {
	State         domain.RunState
	Graph         domain.ExecutionGraph
	HandoverStore ports.HandoverStore
	WorktreePath  string
}

// PipelineInitializer performs spec §4.5 step 1: generating a run identity,
// capturing the starting commit, planning the execution graph, preparing an
// isolated worktree when configured, and constructing the per-run handover
// store. It never mutates state beyond what it returns; PipelineRunner owns
// the run from here on (spec P4).
type PipelineInitializer struct {
	planner      ports.DAGPlanner
	git          ports.GitOps
	handoverRoot func(runID string) (ports.HandoverStore, error)
	events       ports.EventPublisher
	notifier     ports.NotificationDispatcher
	logger       ports.Logger
}

// PipelineInitializerOption configures a PipelineInitializer.
type PipelineInitializerOption func(*PipelineInitializer)

func WithInitializerEvents(events ports.EventPublisher) PipelineInitializerOption {
	return func(i *PipelineInitializer) { i.events = events }
}

func WithInitializerNotifier(notifier ports.NotificationDispatcher) PipelineInitializerOption {
	return func(i *PipelineInitializer) { i.notifier = notifier }
}

func WithInitializerLogger(logger ports.Logger) PipelineInitializerOption {
	return func(i *PipelineInitializer) { i.logger = logger }
}

// NewPipelineInitializer constructs a PipelineInitializer. handoverRoot
// builds the HandoverStore for a given runId; callers typically pass a
// closure over a base directory and handover.NewFileStore.
func NewPipelineInitializer(planner ports.DAGPlanner, git ports.GitOps, handoverRoot func(runID string) (ports.HandoverStore, error), opts ...PipelineInitializerOption) *PipelineInitializer {
	i := &PipelineInitializer{
		planner:      planner,
		git:          git,
		handoverRoot: handoverRoot,
		logger:       logging.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Initialize builds the execution graph, captures the starting commit,
// prepares a branch named BranchPrefix+runID when Git.AutoCommit is set and
// Git.BranchPrefix is non-empty (PullRequest settings play no part in this),
// constructs the handover store, and assembles the initial
// RunState with status running (spec §4.5 step 1).
func (i *PipelineInitializer) Initialize(ctx context.Context, req RunRequest) (InitializedRun, error) {
	config := req.Config
	trigger := req.Trigger
	if trigger == "" {
		trigger = domain.TriggerManual
	}

	graph, err := i.planner.BuildExecutionPlan(ctx, config)
	if err != nil {
		return InitializedRun{}, err
	}

	runID := uuid.NewString()

	initialCommit, err := i.git.GetCurrentCommit(ctx)
	if err != nil {
		return InitializedRun{}, err
	}

	var worktreePath string
	if config.Git.AutoCommit && config.Git.BranchPrefix != "" {
		branchName := config.Git.BranchPrefix + runID
		worktreePath, err = i.git.EnsureWorktree(ctx, branchName)
		if err != nil {
			return InitializedRun{}, err
		}
	}

	handoverStore, err := i.handoverRoot(runID)
	if err != nil {
		return InitializedRun{}, err
	}

	state := domain.RunState{
		RunID:          runID,
		PipelineConfig: config.Clone(),
		Trigger: domain.Trigger{
			Type:      trigger,
			CommitSha: initialCommit,
			Timestamp: time.Now(),
		},
		Status: domain.RunStatusRunning,
		Artifacts: domain.Artifacts{
			InitialCommit: initialCommit,
			HandoverDir:   handoverStore.Dir(),
		},
	}

	publishEvent(ctx, i.events, i.logger, ports.EventPipelineStarted, map[string]interface{}{
		"run_id": runID,
		"name":   config.Name,
	})
	if i.notifier != nil {
		if dispatchErr := i.notifier.Dispatch(ctx, ports.LifecycleEvent{Type: ports.EventPipelineStarted, State: state.Clone()}); dispatchErr != nil {
			i.logger.Warn(ctx, "failed to dispatch pipeline.started notification", "run_id", runID, "error", dispatchErr)
		}
	}

	return InitializedRun{
		State:         state,
		Graph:         graph,
		HandoverStore: handoverStore,
		WorktreePath:  worktreePath,
	}, nil
}
