package agentruntime

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/agentpipeline/agentpipeline/internal/domain/agent"
)

// defaultOpenAIModel is used when a stage does not override
// ExecuteOptions.Model.
const defaultOpenAIModel = "gpt-5"

// OpenAIRuntime invokes the Chat Completions API as a pipeline agent
// backend. Grounded on the pack's lonestarx1-gogrid/pkg/llm/openai.Provider
// (client construction, message/tool translation, response shape).
type OpenAIRuntime struct {
	client openai.Client
	model  string
}

// OpenAIOption configures an OpenAIRuntime.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL    string
	httpClient *http.Client
	model      string
}

// WithOpenAIBaseURL overrides the API base URL (Azure, local models, etc.).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithOpenAIHTTPClient overrides the HTTP client used for API calls.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(c *openAIConfig) { c.httpClient = client }
}

// WithOpenAIModel overrides the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *openAIConfig) { c.model = model }
}

// NewOpenAIRuntime constructs an OpenAIRuntime authenticated with apiKey.
func NewOpenAIRuntime(apiKey string, opts ...OpenAIOption) *OpenAIRuntime {
	cfg := &openAIConfig{model: defaultOpenAIModel}
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

	return &OpenAIRuntime{
		client: openai.NewClient(clientOpts...),
		model:  cfg.model,
	}
}

// NewOpenAIRuntimeFromEnv builds an OpenAIRuntime using OPENAI_API_KEY.
func NewOpenAIRuntimeFromEnv(opts ...OpenAIOption) (*OpenAIRuntime, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	return NewOpenAIRuntime(apiKey, opts...), nil
}

// Execute sends req as a single-turn chat completion and returns the
// agent's text output and token usage.
func (r *OpenAIRuntime) Execute(ctx context.Context, req agent.ExecuteRequest) (agent.ExecuteResult, error) {
	model := r.model
	if req.Options.Model != "" {
		model = req.Options.Model
	}

	var msgs []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	msgs = append(msgs, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: msgs,
	}

	completion, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return agent.ExecuteResult{}, fmt.Errorf("openai: completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return agent.ExecuteResult{}, fmt.Errorf("openai: response contains no choices")
	}

	text := completion.Choices[0].Message.Content
	if req.Options.OnOutputUpdate != nil && text != "" {
		req.Options.OnOutputUpdate(text)
	}

	return agent.ExecuteResult{
		TextOutput: text,
		TokenUsage: agent.TokenUsage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:  int(completion.Usage.TotalTokens),
		},
	}, nil
}

// GetCapabilities describes what the OpenAI backend supports.
func (r *OpenAIRuntime) GetCapabilities() agent.Capabilities {
	return agent.Capabilities{
		SupportsStreaming:     true,
		SupportsTokenTracking: true,
		AvailableModels:       []string{"gpt-5", "gpt-5-mini", "o3"},
		PermissionModes:       []string{"default", "acceptEdits"},
	}
}

// Validate reports whether the runtime has the credentials required to run.
func (r *OpenAIRuntime) Validate(ctx context.Context) agent.ValidationResult {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return agent.ValidationResult{Valid: false, Errors: []string{"OPENAI_API_KEY is not set"}}
	}
	return agent.ValidationResult{Valid: true}
}
