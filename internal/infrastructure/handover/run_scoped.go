package handover

import (
	"context"
	"fmt"
	"sync"

	pipeline "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// RunScoped forwards to whichever HandoverStore is current, letting a
// long-lived StageExecutor target a fresh per-run store on every loop
// iteration without being reconstructed (spec §4.5 loop mode: each iteration
// gets its own runId and handover directory, but the executor stack is built
// once per CLI invocation).
type RunScoped struct {
	mu      sync.RWMutex
	current ports.HandoverStore
}

// NewRunScoped returns a RunScoped with no active run; calls made before
// SetCurrent fail.
func NewRunScoped() *RunScoped {
	return &RunScoped{}
}

// SetCurrent switches the active target, typically called once per run by
// the handoverRoot factory passed to PipelineInitializer.
func (r *RunScoped) SetCurrent(store ports.HandoverStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = store
}

func (r *RunScoped) target() (ports.HandoverStore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return nil, fmt.Errorf("handover store: no active run")
	}
	return r.current, nil
}

// Save delegates to the active run's store.
func (r *RunScoped) Save(ctx context.Context, stageName string, output string) (pipeline.OutputFiles, error) {
	target, err := r.target()
	if err != nil {
		return pipeline.OutputFiles{}, err
	}
	return target.Save(ctx, stageName, output)
}

// GetPreviousStages delegates to the active run's store.
func (r *RunScoped) GetPreviousStages(ctx context.Context) ([]ports.PreviousStageRef, error) {
	target, err := r.target()
	if err != nil {
		return nil, err
	}
	return target.GetPreviousStages(ctx)
}

// AggregatePath delegates to the active run's store.
func (r *RunScoped) AggregatePath() string {
	target, err := r.target()
	if err != nil {
		return ""
	}
	return target.AggregatePath()
}

// Dir delegates to the active run's store.
func (r *RunScoped) Dir() string {
	target, err := r.target()
	if err != nil {
		return ""
	}
	return target.Dir()
}

var _ ports.HandoverStore = (*RunScoped)(nil)
