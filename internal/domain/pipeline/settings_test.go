package pipeline

import "testing"

func TestSettingsApplyDefaults(t *testing.T) {
	s := Settings{}
	defaulted := s.ApplyDefaults()
	if defaulted.MaxParallelism != 4 {
		t.Fatalf("expected max parallelism default 4, got %d", defaulted.MaxParallelism)
	}
	if defaulted.PermissionMode != PermissionModeAcceptEdits {
		t.Fatalf("expected permission mode default acceptEdits, got %s", defaulted.PermissionMode)
	}
}
