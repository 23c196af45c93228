package agentruntime

import (
	"context"
	"fmt"

	"github.com/agentpipeline/agentpipeline/internal/domain/agent"
)

// MockRuntime is a deterministic, no-network AgentRuntime used in tests, for
// `agentpipeline validate`, and for `--dry-run` runs that must exercise the
// full stage lifecycle without spending real agent calls.
type MockRuntime struct {
	// Output is returned verbatim by Execute. If empty, a short
	// deterministic placeholder is generated from the request.
	Output string
	// Err, if set, is returned by every Execute call instead of Output.
	Err error
}

// NewMockRuntime constructs a MockRuntime with a fixed canned response.
func NewMockRuntime(output string) *MockRuntime {
	return &MockRuntime{Output: output}
}

// Execute returns the configured canned output, or a deterministic
// placeholder derived from the prompt length when none is set.
func (r *MockRuntime) Execute(ctx context.Context, req agent.ExecuteRequest) (agent.ExecuteResult, error) {
	if r.Err != nil {
		return agent.ExecuteResult{}, r.Err
	}

	output := r.Output
	if output == "" {
		output = fmt.Sprintf("mock output for prompt of length %d", len(req.UserPrompt))
	}
	if req.Options.OnOutputUpdate != nil {
		req.Options.OnOutputUpdate(output)
	}

	return agent.ExecuteResult{
		TextOutput: output,
		TokenUsage: agent.TokenUsage{
			InputTokens:  len(req.SystemPrompt) + len(req.UserPrompt),
			OutputTokens: len(output),
			TotalTokens:  len(req.SystemPrompt) + len(req.UserPrompt) + len(output),
		},
		NumTurns: 1,
	}, nil
}

// GetCapabilities reports a permissive capability set suitable for testing.
func (r *MockRuntime) GetCapabilities() agent.Capabilities {
	return agent.Capabilities{
		SupportsStreaming:     true,
		SupportsTokenTracking: true,
		AvailableModels:       []string{"mock"},
		PermissionModes:       []string{"default", "acceptEdits", "bypassPermissions", "plan"},
	}
}

// Validate always reports a valid configuration; the mock requires no
// credentials.
func (r *MockRuntime) Validate(ctx context.Context) agent.ValidationResult {
	return agent.ValidationResult{Valid: true}
}
