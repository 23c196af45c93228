package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	domainagent "github.com/agentpipeline/agentpipeline/internal/domain/agent"
	"github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/logging"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// StageExecutor invokes a single stage's agent runtime under timeout,
// records handover output, commits any resulting changes, and classifies
// failures. It never returns a Go error; failure is always surfaced through
// the returned StageExecution (spec §4.4).
type StageExecutor struct {
	runtimes       ports.AgentRuntimeRegistry
	defaultRuntime domainagent.RuntimeType
	handover       ports.HandoverStore
	git            ports.GitOps
	logger         ports.Logger
	metrics        ports.MetricsCollector
	tracer         ports.Tracer
	events         ports.EventPublisher
	readAgentFile  func(path string) (string, error)
	dryRun         bool
}

// StageExecutorOption configures a StageExecutor instance.
type StageExecutorOption func(*StageExecutor)

func WithStageExecutorLogger(logger ports.Logger) StageExecutorOption {
	return func(s *StageExecutor) { s.logger = logger }
}

func WithStageExecutorMetrics(metrics ports.MetricsCollector) StageExecutorOption {
	return func(s *StageExecutor) { s.metrics = metrics }
}

func WithStageExecutorTracer(tracer ports.Tracer) StageExecutorOption {
	return func(s *StageExecutor) { s.tracer = tracer }
}

func WithStageExecutorEvents(events ports.EventPublisher) StageExecutorOption {
	return func(s *StageExecutor) { s.events = events }
}

func WithDefaultRuntime(runtimeType domainagent.RuntimeType) StageExecutorOption {
	return func(s *StageExecutor) { s.defaultRuntime = runtimeType }
}

func WithDryRun(dryRun bool) StageExecutorOption {
	return func(s *StageExecutor) { s.dryRun = dryRun }
}

// WithAgentFileReader overrides how agent prompt files are read from disk,
// primarily for tests.
func WithAgentFileReader(reader func(path string) (string, error)) StageExecutorOption {
	return func(s *StageExecutor) { s.readAgentFile = reader }
}

// NewStageExecutor constructs a StageExecutor.
func NewStageExecutor(runtimes ports.AgentRuntimeRegistry, handover ports.HandoverStore, git ports.GitOps, opts ...StageExecutorOption) *StageExecutor {
	s := &StageExecutor{
		runtimes:       runtimes,
		defaultRuntime: domainagent.RuntimeClaude,
		handover:       handover,
		git:            git,
		logger:         logging.NewNoOpLogger(),
		readAgentFile: func(path string) (string, error) {
			content, err := os.ReadFile(path)
			return string(content), err
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExecuteStage runs the sequence of operations described in spec §4.4.
func (s *StageExecutor) ExecuteStage(ctx context.Context, stage pipeline.StageConfig, state pipeline.RunState, onOutput func(chunk string)) pipeline.StageExecution {
	start := time.Now()
	exec := pipeline.StageExecution{StageName: stage.Name, Status: pipeline.StageStatusRunning, StartTime: start}

	var span ports.Span
	if s.tracer != nil {
		var spanCtx context.Context
		spanCtx, span = s.tracer.StartSpan(ctx, "stage.execute", "stage_name", stage.Name)
		if spanCtx != nil {
			ctx = spanCtx
		}
	}

	runtimeType := domainagent.RuntimeType(stage.Runtime)
	if runtimeType == "" {
		runtimeType = s.defaultRuntime
	}
	runtime, ok := s.runtimes.GetRuntime(runtimeType)
	if !ok {
		return s.fail(exec, start, fmt.Errorf("no agent runtime registered for type %q", runtimeType), stage.Agent, span)
	}

	prompt, err := s.readAgentFile(stage.Agent)
	if err != nil {
		return s.fail(exec, start, err, stage.Agent, span)
	}

	userPrompt, err := s.buildAgentContext(ctx, stage, state)
	if err != nil {
		s.logger.Warn(ctx, "failed to build full agent context, proceeding with partial context", "stage_name", stage.Name, "error", err)
	}

	result, err := s.invokeWithTimeout(ctx, runtime, domainagent.ExecuteRequest{
		SystemPrompt: prompt,
		UserPrompt:   userPrompt,
		Options: domainagent.ExecuteOptions{
			PermissionMode: string(state.PipelineConfig.EffectiveSettings().PermissionMode),
			OnOutputUpdate: onOutput,
		},
	}, stage.EffectiveTimeout())
	if err != nil {
		return s.fail(exec, start, err, stage.Agent, span)
	}

	exec.AgentOutput = result.TextOutput
	exec.TokenUsage = &pipeline.TokenUsage{
		Input:      result.TokenUsage.InputTokens,
		Output:     result.TokenUsage.OutputTokens,
		Total:      result.TokenUsage.TotalTokens,
		CacheRead:  result.TokenUsage.CacheReadTokens,
		CacheWrite: result.TokenUsage.CacheWriteTokens,
	}

	if files, err := s.handover.Save(ctx, stage.Name, result.TextOutput); err != nil {
		s.logger.Warn(ctx, "failed to persist handover output", "stage_name", stage.Name, "error", err)
	} else {
		exec.OutputFiles = &files
	}

	autoCommit := state.PipelineConfig.Git.AutoCommit
	if stage.AutoCommit != nil {
		autoCommit = *stage.AutoCommit
	}
	if autoCommit {
		if changed, err := s.git.HasUncommittedChanges(ctx); err != nil {
			s.logger.Warn(ctx, "failed to check for uncommitted changes", "stage_name", stage.Name, "error", err)
		} else if changed && !s.dryRun {
			sha, err := s.git.CreatePipelineCommit(ctx, stage.Name, state.RunID, "", state.PipelineConfig.Git.CommitTemplate)
			if err != nil {
				s.logger.Warn(ctx, "stage commit failed", "stage_name", stage.Name, "error", err)
			} else {
				exec.CommitSha = sha
				if msg, err := s.git.GetCommitMessage(ctx, sha); err == nil {
					exec.CommitMessage = msg
				}
			}
		}
	}

	exec.Status = pipeline.StageStatusSuccess
	exec.EndTime = time.Now()
	exec.Duration = durationFloor(exec.EndTime.Sub(start))

	s.recordMetrics(ctx, stage.Name, exec.Status, exec.Duration)
	if span != nil {
		span.SetStatus(ports.SpanStatusOK, "success")
	}
	return exec
}

// invokeWithTimeout races AgentRuntime.Execute against timeout, abandoning
// the call if it does not return in time (grounded on the corpus's
// context.WithTimeout + goroutine + result-channel pattern).
func (s *StageExecutor) invokeWithTimeout(ctx context.Context, runtime ports.AgentRuntime, req domainagent.ExecuteRequest, timeout time.Duration) (domainagent.ExecuteResult, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result domainagent.ExecuteResult
		err    error
	}
	resultCh := make(chan outcome, 1)

	go func() {
		result, err := runtime.Execute(timeoutCtx, req)
		resultCh <- outcome{result: result, err: err}
	}()

	select {
	case out := <-resultCh:
		return out.result, out.err
	case <-timeoutCtx.Done():
		return domainagent.ExecuteResult{}, fmt.Errorf("agent execution timeout: %w", timeoutCtx.Err())
	}
}

// buildAgentContext assembles the userPrompt handed to the agent runtime:
// run metadata, references to prior stage outputs (by path, not inlined),
// and this stage's declared inputs (spec §4.4 step 3).
func (s *StageExecutor) buildAgentContext(ctx context.Context, stage pipeline.StageConfig, state pipeline.RunState) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline Run ID: %s\n", state.RunID)
	fmt.Fprintf(&b, "Trigger Commit: %s\n\n", state.Trigger.CommitSha)

	refs, err := s.handover.GetPreviousStages(ctx)
	if err == nil && len(refs) > 0 {
		b.WriteString("Previous stage outputs:\n")
		for _, ref := range refs {
			fmt.Fprintf(&b, "- %s: %s\n", ref.StageName, ref.RawPath)
		}
		b.WriteString("\n")
	}

	if len(stage.Inputs) > 0 {
		b.WriteString("Inputs:\n")
		for k, v := range stage.Inputs {
			fmt.Fprintf(&b, "**%s**: %v\n", k, v)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Handover directory: %s\n", s.handover.Dir())
	return b.String(), err
}

func (s *StageExecutor) fail(exec pipeline.StageExecution, start time.Time, err error, agentPath string, span ports.Span) pipeline.StageExecution {
	exec.Status = pipeline.StageStatusFailed
	exec.EndTime = time.Now()
	exec.Duration = durationFloor(exec.EndTime.Sub(start))
	exec.Error = captureErrorDetails(err, agentPath)
	s.logger.Error(context.Background(), "stage execution failed", "stage_name", exec.StageName, "error", err)
	s.recordMetrics(context.Background(), exec.StageName, exec.Status, exec.Duration)
	if span != nil {
		span.SetStatus(ports.SpanStatusError, err.Error())
	}
	if s.events != nil {
		_ = s.events.Publish(context.Background(), stageEvent{eventType: ports.EventStageFailed, payload: map[string]interface{}{"stage_name": exec.StageName, "error": err.Error()}})
	}
	return exec
}

func (s *StageExecutor) recordMetrics(ctx context.Context, stageName string, status pipeline.StageStatus, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	labels := map[string]string{"stage": stageName, "status": string(status)}
	s.metrics.IncCounter(ctx, "agentpipeline_stage_executions_total", labels)
	s.metrics.ObserveHistogram(ctx, "agentpipeline_stage_duration_seconds", duration.Seconds(), labels)
}

// durationFloor returns d rounded down to whole seconds, never negative
// (spec §4.4 step 8).
func durationFloor(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Second)
}

// captureErrorDetails classifies a raw error into a suggestion (spec §4.4
// error classification table).
func captureErrorDetails(err error, agentPath string) *pipeline.ErrorDetail {
	detail := &pipeline.ErrorDetail{
		Message:   err.Error(),
		AgentPath: agentPath,
		Timestamp: time.Now(),
	}

	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, os.ErrNotExist), strings.Contains(msg, "no such file"), strings.Contains(msg, "file not found"):
		detail.Suggestion = fmt.Sprintf("Agent file not found: %s — check the path", agentPath)
	case strings.Contains(msg, "timeout"):
		detail.Suggestion = "Stage exceeded timeout; raise `timeout` in pipeline config"
	case strings.Contains(msg, "401"), strings.Contains(msg, "api"):
		detail.Suggestion = "Check `ANTHROPIC_API_KEY`"
	case strings.Contains(msg, "yaml"):
		detail.Suggestion = "Check YAML syntax in agent definition"
	case strings.Contains(msg, "permission"):
		detail.Suggestion = "File permission problem"
	}

	return detail
}

type stageEvent struct {
	eventType string
	payload   interface{}
}

func (e stageEvent) EventType() string    { return e.eventType }
func (e stageEvent) Payload() interface{} { return e.payload }

var _ ports.StageExecutor = (*StageExecutor)(nil)
