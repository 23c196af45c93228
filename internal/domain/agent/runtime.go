package agent

// RuntimeType identifies which concrete agent backend a stage should use.
type RuntimeType string

const (
	RuntimeClaude RuntimeType = "claude"
	RuntimeOpenAI RuntimeType = "openai"
	RuntimeMock   RuntimeType = "mock"
)

var supportedRuntimeTypes = []RuntimeType{
	RuntimeClaude,
	RuntimeOpenAI,
	RuntimeMock,
}

// IsSupportedRuntimeType reports whether the provided type is recognised by
// the registry.
func IsSupportedRuntimeType(t RuntimeType) bool {
	for _, candidate := range supportedRuntimeTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Status captures the lifecycle state of a registered runtime.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusUnknown  Status = "unknown"
)
