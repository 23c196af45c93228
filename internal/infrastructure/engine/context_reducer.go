package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	domainagent "github.com/agentpipeline/agentpipeline/internal/domain/agent"
	"github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/logging"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// maxInlinedStageOutputChars caps how much of a single stage's output is fed
// back into the reduction prompt; summaries from prior phases are capped the
// same way in the corpus's phased-context pattern.
const maxInlinedStageOutputChars = 2000

// ContextReducer invokes a dedicated summarization agent to rewrite the
// accumulated stage outputs under a token budget, producing a sentinel
// StageExecution that GroupOrchestrator splices into the run's history
// (spec §4.2, §8 scenario 6).
type ContextReducer struct {
	runtimes       ports.AgentRuntimeRegistry
	defaultRuntime domainagent.RuntimeType
	readAgentFile  func(path string) (string, error)
	logger         ports.Logger
}

// ContextReducerOption configures a ContextReducer instance.
type ContextReducerOption func(*ContextReducer)

func WithContextReducerLogger(logger ports.Logger) ContextReducerOption {
	return func(c *ContextReducer) { c.logger = logger }
}

func WithContextReducerRuntime(runtimeType domainagent.RuntimeType) ContextReducerOption {
	return func(c *ContextReducer) { c.defaultRuntime = runtimeType }
}

// NewContextReducer constructs a ContextReducer.
func NewContextReducer(runtimes ports.AgentRuntimeRegistry, opts ...ContextReducerOption) *ContextReducer {
	c := &ContextReducer{
		runtimes:       runtimes,
		defaultRuntime: domainagent.RuntimeClaude,
		logger:         logging.NewNoOpLogger(),
		readAgentFile: func(path string) (string, error) {
			content, err := os.ReadFile(path)
			return string(content), err
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunReduction summarizes state.Stages' accumulated output via the
// configured reduction agent, returning a synthetic success StageExecution
// under the reserved sentinel name.
func (c *ContextReducer) RunReduction(ctx context.Context, state pipeline.RunState) (pipeline.StageExecution, error) {
	start := time.Now()
	agentPath := state.PipelineConfig.ContextReduction.AgentPath

	prompt, err := c.readAgentFile(agentPath)
	if err != nil {
		return pipeline.StageExecution{}, fmt.Errorf("load context reduction agent %q: %w", agentPath, err)
	}

	runtime, ok := c.runtimes.GetRuntime(c.defaultRuntime)
	if !ok {
		return pipeline.StageExecution{}, fmt.Errorf("no agent runtime registered for type %q", c.defaultRuntime)
	}

	result, err := runtime.Execute(ctx, domainagent.ExecuteRequest{
		SystemPrompt: prompt,
		UserPrompt:   c.buildReductionPrompt(state),
	})
	if err != nil {
		return pipeline.StageExecution{}, fmt.Errorf("context reduction agent failed: %w", err)
	}

	end := time.Now()
	return pipeline.StageExecution{
		Status:      pipeline.StageStatusSuccess,
		StartTime:   start,
		EndTime:     end,
		Duration:    durationFloor(end.Sub(start)),
		AgentOutput: result.TextOutput,
		TokenUsage: &pipeline.TokenUsage{
			Input:      result.TokenUsage.InputTokens,
			Output:     result.TokenUsage.OutputTokens,
			Total:      result.TokenUsage.TotalTokens,
			CacheRead:  result.TokenUsage.CacheReadTokens,
			CacheWrite: result.TokenUsage.CacheWriteTokens,
		},
	}, nil
}

// buildReductionPrompt concatenates each completed stage's output, capped
// per stage to bound the summarizer's own input size.
func (c *ContextReducer) buildReductionPrompt(state pipeline.RunState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline Run ID: %s\n\n", state.RunID)
	b.WriteString("Summarize the following stage outputs into a compact context for subsequent stages:\n\n")

	for _, exec := range state.Stages {
		if exec.AgentOutput == "" {
			continue
		}
		output := exec.AgentOutput
		if len(output) > maxInlinedStageOutputChars {
			output = output[:maxInlinedStageOutputChars] + "..."
		}
		fmt.Fprintf(&b, "[Stage: %s]\n%s\n\n", exec.StageName, output)
	}

	return b.String()
}

var _ ports.ContextReducer = (*ContextReducer)(nil)
