package main

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	domainagent "github.com/agentpipeline/agentpipeline/internal/domain/agent"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/logging"
)

func TestBuildRuntimeRegistryAlwaysRegistersMock(t *testing.T) {
	os.Unsetenv("ANTHROPIC_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")

	registry := buildRuntimeRegistry(context.Background(), logging.NewNoOpLogger())

	_, ok := registry.GetRuntime(domainagent.RuntimeMock)
	require.True(t, ok)

	_, ok = registry.GetRuntime(domainagent.RuntimeClaude)
	require.False(t, ok)
}

func TestBuildRuntimeRegistryRegistersClaudeWhenKeyPresent(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	registry := buildRuntimeRegistry(context.Background(), logging.NewNoOpLogger())

	_, ok := registry.GetRuntime(domainagent.RuntimeClaude)
	require.True(t, ok)
}
