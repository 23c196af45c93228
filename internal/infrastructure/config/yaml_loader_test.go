package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	domain "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/logging"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestYAMLLoaderLoadMapsToDomainConfig(t *testing.T) {
	path := writeYAML(t, `version: "1.0"
name: "demo"
settings:
  execution_mode: parallel
  failure_strategy: warn
stages:
  - name: build
    agent: build-agent
  - name: review
    agent: review-agent
    depends_on: [build]
    condition: "{{ stages.build.status == \"success\" }}"
`)

	loader := NewYAMLLoader(logging.NewNoOpLogger())
	config, err := loader.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if config.Name != "demo" {
		t.Fatalf("expected name demo, got %q", config.Name)
	}
	if config.Settings.ExecutionMode != domain.ExecutionModeParallel {
		t.Fatalf("expected parallel execution mode, got %s", config.Settings.ExecutionMode)
	}
	if len(config.Stages) != 2 || config.Stages[1].Condition == "" {
		t.Fatalf("expected condition preserved on second stage, got %+v", config.Stages)
	}
}

func TestYAMLLoaderLoadRejectsMissingFile(t *testing.T) {
	loader := NewYAMLLoader(logging.NewNoOpLogger())
	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestYAMLLoaderLoadRejectsDependencyCycle(t *testing.T) {
	path := writeYAML(t, `version: "1.0"
name: "demo"
stages:
  - name: a
    agent: agent-a
    depends_on: [b]
  - name: b
    agent: agent-b
    depends_on: [a]
`)

	loader := NewYAMLLoader(logging.NewNoOpLogger())
	_, err := loader.Load(context.Background(), path)
	if err == nil {
		t.Fatal("expected domain validation to reject a dependency cycle")
	}
}

func TestYAMLLoaderValidateRejectsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loader := NewYAMLLoader(logging.NewNoOpLogger())
	if err := loader.Validate(context.Background(), path); err == nil {
		t.Fatal("expected unsupported extension to be rejected")
	}
}

func TestYAMLLoaderValidateAcceptsWellFormedDocument(t *testing.T) {
	path := writeYAML(t, `version: "1.0"
name: "demo"
stages:
  - name: build
    agent: build-agent
`)

	loader := NewYAMLLoader(logging.NewNoOpLogger())
	if err := loader.Validate(context.Background(), path); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
