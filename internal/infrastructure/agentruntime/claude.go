package agentruntime

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentpipeline/agentpipeline/internal/domain/agent"
)

// defaultClaudeModel is used when a stage does not override
// ExecuteOptions.Model.
const defaultClaudeModel = "claude-sonnet-4-5"

// defaultClaudeMaxTokens bounds a single agent turn's output.
const defaultClaudeMaxTokens = 8192

// ClaudeRuntime invokes Anthropic's Messages API as a pipeline agent
// backend. Grounded on the pack's
// lonestarx1-gogrid/pkg/llm/anthropic.Provider (client construction via
// option.WithAPIKey, request/response shape translation).
type ClaudeRuntime struct {
	client anthropic.Client
	model  string
}

// ClaudeOption configures a ClaudeRuntime.
type ClaudeOption func(*claudeConfig)

type claudeConfig struct {
	baseURL    string
	httpClient *http.Client
	model      string
}

// WithClaudeBaseURL overrides the API base URL.
func WithClaudeBaseURL(url string) ClaudeOption {
	return func(c *claudeConfig) { c.baseURL = url }
}

// WithClaudeHTTPClient overrides the HTTP client used for API calls.
func WithClaudeHTTPClient(client *http.Client) ClaudeOption {
	return func(c *claudeConfig) { c.httpClient = client }
}

// WithClaudeModel overrides the default model.
func WithClaudeModel(model string) ClaudeOption {
	return func(c *claudeConfig) { c.model = model }
}

// NewClaudeRuntime constructs a ClaudeRuntime authenticated with apiKey.
func NewClaudeRuntime(apiKey string, opts ...ClaudeOption) *ClaudeRuntime {
	cfg := &claudeConfig{model: defaultClaudeModel}
	for _, opt := range opts {
		opt(cfg)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(cfg.httpClient))
	}

	return &ClaudeRuntime{
		client: anthropic.NewClient(clientOpts...),
		model:  cfg.model,
	}
}

// NewClaudeRuntimeFromEnv builds a ClaudeRuntime using ANTHROPIC_API_KEY.
func NewClaudeRuntimeFromEnv(opts ...ClaudeOption) (*ClaudeRuntime, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	return NewClaudeRuntime(apiKey, opts...), nil
}

// Execute sends req as a single-turn Messages API call and returns the
// agent's text output and token usage.
func (r *ClaudeRuntime) Execute(ctx context.Context, req agent.ExecuteRequest) (agent.ExecuteResult, error) {
	model := r.model
	if req.Options.Model != "" {
		model = req.Options.Model
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: defaultClaudeMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	message, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return agent.ExecuteResult{}, fmt.Errorf("anthropic: messages: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			chunk := block.AsText().Text
			text += chunk
			if req.Options.OnOutputUpdate != nil {
				req.Options.OnOutputUpdate(chunk)
			}
		}
	}

	return agent.ExecuteResult{
		TextOutput: text,
		TokenUsage: agent.TokenUsage{
			InputTokens:      int(message.Usage.InputTokens),
			OutputTokens:     int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
			CacheReadTokens:  int(message.Usage.CacheReadInputTokens),
			CacheWriteTokens: int(message.Usage.CacheCreationInputTokens),
		},
	}, nil
}

// GetCapabilities describes what the Claude backend supports.
func (r *ClaudeRuntime) GetCapabilities() agent.Capabilities {
	return agent.Capabilities{
		SupportsStreaming:     true,
		SupportsTokenTracking: true,
		AvailableModels:       []string{"claude-sonnet-4-5", "claude-opus-4-1", "claude-haiku-4-5"},
		PermissionModes:       []string{"default", "acceptEdits", "bypassPermissions", "plan"},
	}
}

// Validate reports whether the runtime has the credentials required to run.
func (r *ClaudeRuntime) Validate(ctx context.Context) agent.ValidationResult {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return agent.ValidationResult{Valid: false, Errors: []string{"ANTHROPIC_API_KEY is not set"}}
	}
	return agent.ValidationResult{Valid: true}
}
