package agent

import "testing"

func TestMetadataValidate(t *testing.T) {
	m := Metadata{ID: "claude", Name: "Claude", Version: "1.0.0", Type: RuntimeClaude}
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMetadataValidateUnsupportedType(t *testing.T) {
	m := Metadata{ID: "x", Name: "X", Version: "1.0.0", Type: RuntimeType("unknown")}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestMetadataValidateMissingFields(t *testing.T) {
	cases := []Metadata{
		{Name: "X", Version: "1.0.0", Type: RuntimeMock},
		{ID: "x", Version: "1.0.0", Type: RuntimeMock},
		{ID: "x", Name: "X", Type: RuntimeMock},
	}
	for _, m := range cases {
		if err := m.Validate(); err == nil {
			t.Fatalf("expected error for %+v", m)
		}
	}
}
