package agentruntime

import (
	"sync"

	"github.com/agentpipeline/agentpipeline/internal/domain/agent"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// Registry is a process-wide, concurrency-safe lookup of registered agent
// runtime backends, keyed by agent.RuntimeType. Grounded on the teacher's
// internal/infrastructure/plugin.Registry (in-memory map guarded by a
// sync.RWMutex), generalized from "plugins keyed by step type" to "runtime
// backends keyed by runtime type" — dependency-graph validation has no
// analogue here since runtimes don't depend on one another.
type Registry struct {
	mu       sync.RWMutex
	runtimes map[agent.RuntimeType]ports.AgentRuntime
}

// NewRegistry creates an empty runtime registry.
func NewRegistry() *Registry {
	return &Registry{runtimes: make(map[agent.RuntimeType]ports.AgentRuntime)}
}

// Register stores a runtime implementation keyed by runtimeType, overwriting
// any previous registration for that type.
func (r *Registry) Register(runtimeType agent.RuntimeType, runtime ports.AgentRuntime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtimes[runtimeType] = runtime
}

// GetRuntime retrieves the runtime registered for runtimeType.
func (r *Registry) GetRuntime(runtimeType agent.RuntimeType) (ports.AgentRuntime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runtime, ok := r.runtimes[runtimeType]
	return runtime, ok
}

// Clear removes every registered runtime.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtimes = make(map[agent.RuntimeType]ports.AgentRuntime)
}

// defaultRegistry is the process-global registry most callers should use;
// constructing a private Registry (e.g. for tests) remains fully supported.
var defaultRegistry = NewRegistry()

// Default returns the process-global registry.
func Default() *Registry { return defaultRegistry }

// RegisterDefault registers runtime against the process-global registry.
func RegisterDefault(runtimeType agent.RuntimeType, runtime ports.AgentRuntime) {
	defaultRegistry.Register(runtimeType, runtime)
}

var _ ports.AgentRuntimeRegistry = (*Registry)(nil)
