package pipeline

import (
	"context"
	"errors"
	"testing"

	domain "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

type stubOrchestrator struct {
	results []ports.GroupResult
	errs    []error
	calls   int
}

func (o *stubOrchestrator) ProcessGroup(ctx context.Context, group domain.ExecutionGroup, state domain.RunState, config domain.PipelineConfig, graph domain.ExecutionGraph, isFinalGroup bool) (ports.GroupResult, error) {
	idx := o.calls
	o.calls++
	var err error
	if idx < len(o.errs) {
		err = o.errs[idx]
	}
	if idx < len(o.results) {
		return o.results[idx], err
	}
	return ports.GroupResult{State: state}, err
}

type fakeAbortController struct {
	aborted bool
	done    chan struct{}
}

func (a *fakeAbortController) Abort() {
	a.aborted = true
	if a.done != nil {
		close(a.done)
	}
}
func (a *fakeAbortController) Aborted() bool { return a.aborted }
func (a *fakeAbortController) Done() <-chan struct{} {
	if a.done == nil {
		a.done = make(chan struct{})
	}
	return a.done
}
func (a *fakeAbortController) Context() context.Context { return context.Background() }

func newTestRunner(t *testing.T, orchestrator ports.GroupOrchestrator, opts ...PipelineRunnerOption) *PipelineRunner {
	t.Helper()
	initializer := NewPipelineInitializer(&stubPlanner{graph: domain.ExecutionGraph{Groups: []domain.ExecutionGroup{{Level: 0}, {Level: 1}}}}, &stubGitOps{currentCommit: "abc"},
		func(runID string) (ports.HandoverStore, error) { return &stubHandoverStore{dir: "/tmp/" + runID}, nil })
	finalizer := NewPipelineFinalizer(&stubGitOps{currentCommit: "def"})
	return NewPipelineRunner(initializer, orchestrator, finalizer, opts...)
}

func TestPipelineRunnerCompletesWhenAllGroupsSucceed(t *testing.T) {
	orchestrator := &stubOrchestrator{}
	runner := newTestRunner(t, orchestrator)

	state, err := runner.Run(context.Background(), RunRequest{Config: validConfig()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Status != domain.RunStatusCompleted {
		t.Fatalf("expected completed status, got %s", state.Status)
	}
	if orchestrator.calls != 2 {
		t.Fatalf("expected both groups processed, got %d calls", orchestrator.calls)
	}
}

func TestPipelineRunnerStopsWhenGroupRequestsStop(t *testing.T) {
	orchestrator := &stubOrchestrator{
		results: []ports.GroupResult{{ShouldStopPipeline: true}},
	}
	runner := newTestRunner(t, orchestrator)

	state, err := runner.Run(context.Background(), RunRequest{Config: validConfig()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Status != domain.RunStatusFailed {
		t.Fatalf("expected failed status after stop request, got %s", state.Status)
	}
	if orchestrator.calls != 1 {
		t.Fatalf("expected second group never processed, got %d calls", orchestrator.calls)
	}
}

func TestPipelineRunnerTrapsGroupErrorAsFailed(t *testing.T) {
	orchestrator := &stubOrchestrator{errs: []error{errors.New("boom")}}
	runner := newTestRunner(t, orchestrator)

	state, err := runner.Run(context.Background(), RunRequest{Config: validConfig()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Status != domain.RunStatusFailed {
		t.Fatalf("expected failed status, got %s", state.Status)
	}
	if len(state.Stages) != 1 || state.Stages[0].Status != domain.StageStatusFailed {
		t.Fatalf("expected synthetic failed stage, got %+v", state.Stages)
	}
}

func TestPipelineRunnerHonorsAbortBeforeExecution(t *testing.T) {
	orchestrator := &stubOrchestrator{}
	abort := &fakeAbortController{aborted: true}
	runner := newTestRunner(t, orchestrator, WithRunnerAbortController(abort))

	state, err := runner.Run(context.Background(), RunRequest{Config: validConfig()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Status != domain.RunStatusAborted {
		t.Fatalf("expected aborted status, got %s", state.Status)
	}
	if orchestrator.calls != 0 {
		t.Fatalf("expected no groups processed when pre-aborted, got %d calls", orchestrator.calls)
	}
}

func TestPipelineRunnerBroadcastsStateToObservers(t *testing.T) {
	orchestrator := &stubOrchestrator{}
	var observed []domain.RunStatus
	runner := newTestRunner(t, orchestrator, WithRunnerObserver(func(state domain.RunState) {
		observed = append(observed, state.Status)
	}))

	if _, err := runner.Run(context.Background(), RunRequest{Config: validConfig()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(observed) == 0 {
		t.Fatal("expected at least one observer notification")
	}
}
