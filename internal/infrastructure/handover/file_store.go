// Package handover persists per-stage agent output to disk so later stages
// can reference earlier work without inlining it into their prompts.
package handover

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	pipeline "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// FileStore writes each stage's output as two files under dir/<runID>/:
// <stage>.md (raw agent text) and <stage>.summary.md (the same text, kept
// distinct so future structured extraction can diverge from the raw body).
// It also maintains an aggregated HANDOVER.md appended to in completion
// order, mirroring the teacher's registry.go temp-file-then-rename pattern
// for the append target.
type FileStore struct {
	root string
	mu   sync.Mutex

	order []ports.PreviousStageRef
}

// NewFileStore constructs a FileStore rooted at dir/runID, creating the
// directory tree if it doesn't exist.
func NewFileStore(dir, runID string) (*FileStore, error) {
	root := filepath.Join(dir, runID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create handover directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Save writes stageName's output to disk and records it for later
// GetPreviousStages calls.
func (s *FileStore) Save(ctx context.Context, stageName string, output string) (pipeline.OutputFiles, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rawPath := filepath.Join(s.root, stageName+".md")
	if err := os.WriteFile(rawPath, []byte(output), 0o644); err != nil {
		return pipeline.OutputFiles{}, fmt.Errorf("write handover output for %s: %w", stageName, err)
	}

	structuredPath := filepath.Join(s.root, stageName+".summary.md")
	if err := os.WriteFile(structuredPath, []byte(output), 0o644); err != nil {
		return pipeline.OutputFiles{}, fmt.Errorf("write handover summary for %s: %w", stageName, err)
	}

	ref := ports.PreviousStageRef{StageName: stageName, StructuredPath: structuredPath, RawPath: rawPath}
	s.order = append(s.order, ref)

	if err := s.appendAggregate(stageName, output); err != nil {
		return pipeline.OutputFiles{}, err
	}

	return pipeline.OutputFiles{Structured: structuredPath, Raw: rawPath}, nil
}

func (s *FileStore) appendAggregate(stageName, output string) error {
	path := s.AggregatePath()

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read aggregate handover: %w", err)
	}

	section := fmt.Sprintf("## %s\n\n%s\n\n", stageName, output)
	combined := append(existing, []byte(section)...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, combined, 0o644); err != nil {
		return fmt.Errorf("write temporary aggregate handover: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temporary aggregate handover: %w", err)
	}
	return nil
}

// GetPreviousStages returns every stage saved so far, in completion order.
func (s *FileStore) GetPreviousStages(ctx context.Context) ([]ports.PreviousStageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs := make([]ports.PreviousStageRef, len(s.order))
	copy(refs, s.order)
	return refs, nil
}

// AggregatePath returns the path to the run's aggregated HANDOVER.md.
func (s *FileStore) AggregatePath() string {
	return filepath.Join(s.root, "HANDOVER.md")
}

// Dir returns the root handover directory for the current run.
func (s *FileStore) Dir() string {
	return s.root
}

var _ ports.HandoverStore = (*FileStore)(nil)
