package agent

import "fmt"

// Metadata describes a registered agent runtime's identity and version.
type Metadata struct {
	ID          string
	Name        string
	Version     string
	Type        RuntimeType
	Description string
	APIVersion  string
}

// Validate ensures metadata values satisfy invariants.
func (m Metadata) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("runtime id is required")
	}
	if m.Type == "" || !IsSupportedRuntimeType(m.Type) {
		return fmt.Errorf("unsupported runtime type %q", m.Type)
	}
	if m.Name == "" {
		return fmt.Errorf("runtime name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("runtime version is required")
	}
	return nil
}
