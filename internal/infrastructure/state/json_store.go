// Package state persists pipeline run state as JSON on disk.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	pipeline "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// JSONStore persists RunState under dir/<runID>.json, writing via a
// temp-file-then-rename so a crash mid-write never leaves a corrupt file
// (spec §5 property L1). Grounded on the teacher's internal/registry.Registry
// atomic-save pattern, generalized from "one file holding many pipelines" to
// "one file per run".
type JSONStore struct {
	dir string
	mu  sync.Mutex
}

// NewJSONStore constructs a JSONStore rooted at dir, creating it if absent.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) pathFor(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

// Save atomically writes state to disk, keyed by state.RunID.
func (s *JSONStore) Save(ctx context.Context, st pipeline.RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}

	path := s.pathFor(st.RunID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temporary state file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temporary state file: %w", err)
	}
	return nil
}

// Load reads the persisted state for runID.
func (s *JSONStore) Load(ctx context.Context, runID string) (pipeline.RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.pathFor(runID))
	if err != nil {
		return pipeline.RunState{}, fmt.Errorf("read run state %s: %w", runID, err)
	}

	var st pipeline.RunState
	if err := json.Unmarshal(data, &st); err != nil {
		return pipeline.RunState{}, fmt.Errorf("parse run state %s: %w", runID, err)
	}
	return st, nil
}

var _ ports.StateStore = (*JSONStore)(nil)
