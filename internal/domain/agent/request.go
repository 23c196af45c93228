package agent

// TokenUsage mirrors pipeline.TokenUsage but belongs to the agent runtime
// boundary since it is the shape a concrete backend reports before the
// pipeline domain records it against a StageExecution.
type TokenUsage struct {
	InputTokens      int
	OutputTokens     int
	TotalTokens      int
	CacheReadTokens  int
	CacheWriteTokens int
}

// ExecuteOptions carries per-invocation knobs that do not belong to the
// prompt content itself.
type ExecuteOptions struct {
	PermissionMode  string
	Model           string
	MCPServers      []string
	OnOutputUpdate  func(chunk string)
}

// ExecuteRequest is the input to AgentRuntime.Execute.
type ExecuteRequest struct {
	SystemPrompt string
	UserPrompt   string
	Options      ExecuteOptions
}

// ExecuteResult is the output of a successful AgentRuntime.Execute call.
type ExecuteResult struct {
	TextOutput    string
	ExtractedData map[string]interface{}
	TokenUsage    TokenUsage
	NumTurns      int
}
