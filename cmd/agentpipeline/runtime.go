package main

import (
	"context"

	domainagent "github.com/agentpipeline/agentpipeline/internal/domain/agent"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/agentruntime"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// buildRuntimeRegistry registers every agent backend this binary knows how
// to construct. Runtimes whose credentials are absent from the environment
// are skipped with a warning rather than failing startup, since a given
// pipeline may only reference one of them.
func buildRuntimeRegistry(ctx context.Context, logger ports.Logger) *agentruntime.Registry {
	registry := agentruntime.NewRegistry()
	registry.Register(domainagent.RuntimeMock, agentruntime.NewMockRuntime("mock output"))

	if claude, err := agentruntime.NewClaudeRuntimeFromEnv(); err == nil {
		registry.Register(domainagent.RuntimeClaude, claude)
	} else if logger != nil {
		logger.Warn(ctx, "claude runtime unavailable", "error", err)
	}

	if openai, err := agentruntime.NewOpenAIRuntimeFromEnv(); err == nil {
		registry.Register(domainagent.RuntimeOpenAI, openai)
	} else if logger != nil {
		logger.Warn(ctx, "openai runtime unavailable", "error", err)
	}

	return registry
}
