package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	domainagent "github.com/agentpipeline/agentpipeline/internal/domain/agent"
	"github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

type stubRuntime struct {
	result domainagent.ExecuteResult
	err    error
	delay  time.Duration
}

func (r *stubRuntime) Execute(ctx context.Context, req domainagent.ExecuteRequest) (domainagent.ExecuteResult, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return domainagent.ExecuteResult{}, ctx.Err()
		}
	}
	return r.result, r.err
}

func (r *stubRuntime) GetCapabilities() domainagent.Capabilities { return domainagent.Capabilities{} }
func (r *stubRuntime) Validate(ctx context.Context) domainagent.ValidationResult {
	return domainagent.ValidationResult{Valid: true}
}

type stubRegistry struct {
	runtimes map[domainagent.RuntimeType]ports.AgentRuntime
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{runtimes: make(map[domainagent.RuntimeType]ports.AgentRuntime)}
}

func (r *stubRegistry) Register(t domainagent.RuntimeType, runtime ports.AgentRuntime) {
	r.runtimes[t] = runtime
}
func (r *stubRegistry) GetRuntime(t domainagent.RuntimeType) (ports.AgentRuntime, bool) {
	runtime, ok := r.runtimes[t]
	return runtime, ok
}
func (r *stubRegistry) Clear() { r.runtimes = make(map[domainagent.RuntimeType]ports.AgentRuntime) }

type stubHandover struct {
	savedStage  string
	savedOutput string
}

func (h *stubHandover) Save(ctx context.Context, stageName, output string) (pipeline.OutputFiles, error) {
	h.savedStage = stageName
	h.savedOutput = output
	return pipeline.OutputFiles{Structured: "/handover/" + stageName + ".json", Raw: "/handover/" + stageName + ".md"}, nil
}
func (h *stubHandover) GetPreviousStages(ctx context.Context) ([]ports.PreviousStageRef, error) {
	return nil, nil
}
func (h *stubHandover) AggregatePath() string { return "/handover/HANDOVER.md" }
func (h *stubHandover) Dir() string           { return "/handover" }

type stubGit struct {
	hasChanges bool
	sha        string
}

func (g *stubGit) GetCurrentCommit(ctx context.Context) (string, error) { return "abc123", nil }
func (g *stubGit) HasUncommittedChanges(ctx context.Context) (bool, error) {
	return g.hasChanges, nil
}
func (g *stubGit) CreatePipelineCommit(ctx context.Context, stageName, runID, customMessage, template string) (string, error) {
	return g.sha, nil
}
func (g *stubGit) GetCommitMessage(ctx context.Context, sha string) (string, error) { return "msg", nil }
func (g *stubGit) EnsureWorktree(ctx context.Context, branchName string) (string, error) {
	return "/tmp/worktree", nil
}
func (g *stubGit) PushBranch(ctx context.Context, branchName string) error { return nil }
func (g *stubGit) ChangedFiles(ctx context.Context, baseCommit string) ([]string, error) {
	return nil, nil
}

func testState() pipeline.RunState {
	return pipeline.RunState{
		RunID:          "run-1",
		PipelineConfig: pipeline.PipelineConfig{Name: "p"},
	}
}

func TestStageExecutorExecuteStageSuccess(t *testing.T) {
	registry := newStubRegistry()
	registry.Register(domainagent.RuntimeClaude, &stubRuntime{result: domainagent.ExecuteResult{TextOutput: "done", TokenUsage: domainagent.TokenUsage{TotalTokens: 10}}})
	handover := &stubHandover{}
	git := &stubGit{hasChanges: true, sha: "deadbeef"}

	executor := NewStageExecutor(registry, handover, git,
		WithAgentFileReader(func(path string) (string, error) { return "prompt body", nil }))

	stage := pipeline.StageConfig{Name: "build", Agent: "agents/build.md", Timeout: time.Second}
	state := testState()
	state.PipelineConfig.Git.AutoCommit = true
	exec := executor.ExecuteStage(context.Background(), stage, state, nil)

	if !exec.IsSuccess() {
		t.Fatalf("expected success, got status %s error %+v", exec.Status, exec.Error)
	}
	if exec.AgentOutput != "done" {
		t.Fatalf("expected agent output to be recorded, got %q", exec.AgentOutput)
	}
	if exec.TokenUsage == nil || exec.TokenUsage.Total != 10 {
		t.Fatalf("expected token usage recorded, got %+v", exec.TokenUsage)
	}
	if exec.CommitSha != "deadbeef" {
		t.Fatalf("expected auto commit to record sha, got %q", exec.CommitSha)
	}
	if handover.savedStage != "build" || handover.savedOutput != "done" {
		t.Fatalf("expected handover save, got %q %q", handover.savedStage, handover.savedOutput)
	}
}

func TestStageExecutorExecuteStageAgentError(t *testing.T) {
	registry := newStubRegistry()
	registry.Register(domainagent.RuntimeClaude, &stubRuntime{err: errors.New("401 unauthorized")})
	executor := NewStageExecutor(registry, &stubHandover{}, &stubGit{},
		WithAgentFileReader(func(path string) (string, error) { return "prompt", nil }))

	stage := pipeline.StageConfig{Name: "build", Agent: "agents/build.md", Timeout: time.Second}
	exec := executor.ExecuteStage(context.Background(), stage, testState(), nil)

	if !exec.IsFailure() {
		t.Fatalf("expected failure, got %s", exec.Status)
	}
	if exec.Error == nil || exec.Error.Suggestion == "" {
		t.Fatalf("expected classified error detail, got %+v", exec.Error)
	}
}

func TestStageExecutorExecuteStageMissingAgentFile(t *testing.T) {
	registry := newStubRegistry()
	registry.Register(domainagent.RuntimeClaude, &stubRuntime{})
	executor := NewStageExecutor(registry, &stubHandover{}, &stubGit{},
		WithAgentFileReader(func(path string) (string, error) { return "", errors.New("open agents/missing.md: no such file or directory") }))

	stage := pipeline.StageConfig{Name: "build", Agent: "agents/missing.md", Timeout: time.Second}
	exec := executor.ExecuteStage(context.Background(), stage, testState(), nil)

	if !exec.IsFailure() {
		t.Fatalf("expected failure, got %s", exec.Status)
	}
	if exec.Error == nil {
		t.Fatal("expected error detail")
	}
}

func TestStageExecutorExecuteStageTimeout(t *testing.T) {
	registry := newStubRegistry()
	registry.Register(domainagent.RuntimeClaude, &stubRuntime{delay: 50 * time.Millisecond})
	executor := NewStageExecutor(registry, &stubHandover{}, &stubGit{},
		WithAgentFileReader(func(path string) (string, error) { return "prompt", nil }))

	stage := pipeline.StageConfig{Name: "build", Agent: "agents/build.md", Timeout: 5 * time.Millisecond}
	exec := executor.ExecuteStage(context.Background(), stage, testState(), nil)

	if !exec.IsFailure() {
		t.Fatalf("expected timeout to fail the stage, got %s", exec.Status)
	}
}

func TestStageExecutorExecuteStageUnregisteredRuntime(t *testing.T) {
	registry := newStubRegistry()
	executor := NewStageExecutor(registry, &stubHandover{}, &stubGit{})

	stage := pipeline.StageConfig{Name: "build", Agent: "agents/build.md", Runtime: "unknown-runtime"}
	exec := executor.ExecuteStage(context.Background(), stage, testState(), nil)

	if !exec.IsFailure() {
		t.Fatalf("expected failure for unregistered runtime, got %s", exec.Status)
	}
}
