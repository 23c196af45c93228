package agentruntime

import (
	"testing"

	"github.com/agentpipeline/agentpipeline/internal/domain/agent"
)

func TestRegistryRegisterAndGetRuntime(t *testing.T) {
	reg := NewRegistry()
	reg.Register(agent.RuntimeMock, NewMockRuntime("hello"))

	runtime, ok := reg.GetRuntime(agent.RuntimeMock)
	if !ok {
		t.Fatal("expected mock runtime to be registered")
	}
	if runtime.GetCapabilities().AvailableModels[0] != "mock" {
		t.Fatalf("unexpected capabilities: %+v", runtime.GetCapabilities())
	}
}

func TestRegistryGetRuntimeMissing(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.GetRuntime(agent.RuntimeClaude); ok {
		t.Fatal("expected no runtime registered for claude")
	}
}

func TestRegistryClear(t *testing.T) {
	reg := NewRegistry()
	reg.Register(agent.RuntimeMock, NewMockRuntime(""))
	reg.Clear()

	if _, ok := reg.GetRuntime(agent.RuntimeMock); ok {
		t.Fatal("expected registry to be empty after Clear")
	}
}

func TestRegistryRegisterOverwrites(t *testing.T) {
	reg := NewRegistry()
	reg.Register(agent.RuntimeMock, NewMockRuntime("first"))
	reg.Register(agent.RuntimeMock, NewMockRuntime("second"))

	runtime, _ := reg.GetRuntime(agent.RuntimeMock)
	mock, ok := runtime.(*MockRuntime)
	if !ok || mock.Output != "second" {
		t.Fatalf("expected overwritten registration, got %+v", runtime)
	}
}
