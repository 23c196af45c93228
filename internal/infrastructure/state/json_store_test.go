package state

import (
	"context"
	"testing"
	"time"

	pipeline "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
)

func TestJSONStoreSaveThenLoadRoundTrips(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}

	st := pipeline.RunState{
		RunID:  "run-123",
		Status: pipeline.RunStatusRunning,
		Trigger: pipeline.Trigger{
			Type:      pipeline.TriggerManual,
			CommitSha: "abc123",
			Timestamp: time.Now().UTC().Truncate(time.Second),
		},
		Stages: []pipeline.StageExecution{
			{StageName: "analyze", Status: pipeline.StageStatusSuccess},
		},
	}

	if err := store.Save(context.Background(), st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(context.Background(), "run-123")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.RunID != st.RunID || loaded.Status != st.Status {
		t.Fatalf("loaded state mismatch: %+v", loaded)
	}
	if len(loaded.Stages) != 1 || loaded.Stages[0].StageName != "analyze" {
		t.Fatalf("loaded stages mismatch: %+v", loaded.Stages)
	}
}

func TestJSONStoreLoadMissingRunReturnsError(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}

	if _, err := store.Load(context.Background(), "does-not-exist"); err == nil {
		t.Fatal("expected error loading missing run")
	}
}

func TestJSONStoreSaveOverwritesExisting(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}

	first := pipeline.RunState{RunID: "run-1", Status: pipeline.RunStatusRunning}
	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("Save first: %v", err)
	}

	second := pipeline.RunState{RunID: "run-1", Status: pipeline.RunStatusCompleted}
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	loaded, err := store.Load(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Status != pipeline.RunStatusCompleted {
		t.Fatalf("expected overwritten status, got %v", loaded.Status)
	}
}
