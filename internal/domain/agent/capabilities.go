package agent

// Capabilities describes what a runtime backend supports, returned by
// AgentRuntime.GetCapabilities (spec §6).
type Capabilities struct {
	SupportsStreaming     bool
	SupportsTokenTracking bool
	AvailableModels       []string
	PermissionModes       []string
}

// ValidationResult is returned by AgentRuntime.Validate to report whether a
// runtime is correctly configured (e.g. required credentials present).
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}
