package pipeline

import (
	"context"
	"errors"
	"testing"

	domain "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

type stubPlanner struct {
	graph domain.ExecutionGraph
	err   error
}

func (p *stubPlanner) BuildExecutionPlan(ctx context.Context, config domain.PipelineConfig) (domain.ExecutionGraph, error) {
	return p.graph, p.err
}

type stubGitOps struct {
	currentCommit string
	worktreePath  string
	ensureErr     error
	commitErr     error
	changedFiles  []string
	pushed        []string
}

func (g *stubGitOps) GetCurrentCommit(ctx context.Context) (string, error) {
	return g.currentCommit, g.commitErr
}
func (g *stubGitOps) HasUncommittedChanges(ctx context.Context) (bool, error) { return false, nil }
func (g *stubGitOps) CreatePipelineCommit(ctx context.Context, stageName, runID, customMessage, template string) (string, error) {
	return "sha", nil
}
func (g *stubGitOps) GetCommitMessage(ctx context.Context, sha string) (string, error) {
	return "", nil
}
func (g *stubGitOps) EnsureWorktree(ctx context.Context, branchName string) (string, error) {
	return g.worktreePath, g.ensureErr
}
func (g *stubGitOps) PushBranch(ctx context.Context, branchName string) error {
	g.pushed = append(g.pushed, branchName)
	return nil
}
func (g *stubGitOps) ChangedFiles(ctx context.Context, baseCommit string) ([]string, error) {
	return g.changedFiles, nil
}

type stubHandoverStore struct {
	dir string
}

func (s *stubHandoverStore) Save(ctx context.Context, stageName string, output string) (domain.OutputFiles, error) {
	return domain.OutputFiles{}, nil
}
func (s *stubHandoverStore) GetPreviousStages(ctx context.Context) ([]ports.PreviousStageRef, error) {
	return nil, nil
}
func (s *stubHandoverStore) AggregatePath() string { return s.dir + "/HANDOVER.md" }
func (s *stubHandoverStore) Dir() string           { return s.dir }

func validConfig() domain.PipelineConfig {
	return domain.PipelineConfig{
		Name:     "demo",
		Stages:   []domain.StageConfig{{Name: "build", Agent: "build-agent", Enabled: true}},
		Settings: domain.Settings{}.ApplyDefaults(),
	}
}

func TestPipelineInitializerBuildsRunningState(t *testing.T) {
	git := &stubGitOps{currentCommit: "abc123"}
	init := NewPipelineInitializer(&stubPlanner{graph: domain.ExecutionGraph{Groups: []domain.ExecutionGroup{{Level: 0}}}}, git,
		func(runID string) (ports.HandoverStore, error) { return &stubHandoverStore{dir: "/tmp/" + runID}, nil })

	result, err := init.Initialize(context.Background(), RunRequest{Config: validConfig()})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if result.State.RunID == "" {
		t.Fatal("expected a generated run id")
	}
	if result.State.Status != domain.RunStatusRunning {
		t.Fatalf("expected running status, got %s", result.State.Status)
	}
	if result.State.Artifacts.InitialCommit != "abc123" {
		t.Fatalf("expected initial commit captured, got %q", result.State.Artifacts.InitialCommit)
	}
	if result.State.Trigger.Type != domain.TriggerManual {
		t.Fatalf("expected manual trigger default, got %s", result.State.Trigger.Type)
	}
}

func TestPipelineInitializerPropagatesPlannerError(t *testing.T) {
	init := NewPipelineInitializer(&stubPlanner{err: errors.New("bad graph")}, &stubGitOps{},
		func(runID string) (ports.HandoverStore, error) { return &stubHandoverStore{}, nil })

	_, err := init.Initialize(context.Background(), RunRequest{Config: validConfig()})
	if err == nil {
		t.Fatal("expected planner error to propagate")
	}
}

func TestPipelineInitializerEnsuresWorktreeWhenAutoCommitConfigured(t *testing.T) {
	git := &stubGitOps{currentCommit: "abc", worktreePath: "/tmp/worktree"}
	config := validConfig()
	config.Git = domain.GitSettings{AutoCommit: true, BranchPrefix: "agentpipeline/"}

	init := NewPipelineInitializer(&stubPlanner{}, git,
		func(runID string) (ports.HandoverStore, error) { return &stubHandoverStore{dir: "/tmp/" + runID}, nil })

	result, err := init.Initialize(context.Background(), RunRequest{Config: config})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if result.WorktreePath != "/tmp/worktree" {
		t.Fatalf("expected worktree path propagated, got %q", result.WorktreePath)
	}
}
