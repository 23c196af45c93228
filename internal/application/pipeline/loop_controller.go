package pipeline

import (
	"context"
	"os"
	"time"

	domain "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/logging"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// IterationRecord summarizes one pass of a loop session.
type IterationRecord struct {
	Iteration int
	RunID     string
	Status    domain.RunStatus
	StartedAt time.Time
	EndedAt   time.Time
}

// LoopSession is the outcome of LoopController.StartSession.
type LoopSession struct {
	Iterations []IterationRecord
	FinalState domain.RunState
}

// LoopController wraps PipelineRunner in LoopingSettings' unattended
// repetition: after each run it inspects the pending-queue directory, ending
// the session when the queue is empty, the run aborted, or the run failed
// under a "stop" failure strategy (spec §4.5 loop mode).
type LoopController struct {
	runner *PipelineRunner
	logger ports.Logger
}

// LoopControllerOption configures a LoopController.
type LoopControllerOption func(*LoopController)

func WithLoopControllerLogger(logger ports.Logger) LoopControllerOption {
	return func(c *LoopController) { c.logger = logger }
}

// NewLoopController constructs a LoopController around runner.
func NewLoopController(runner *PipelineRunner, opts ...LoopControllerOption) *LoopController {
	c := &LoopController{
		runner: runner,
		logger: logging.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartSession runs req's pipeline repeatedly, up to config.Looping's
// MaxIterations, ending early when the pending queue directory empties out,
// the run was aborted, or it failed under FailureStrategyStop.
func (c *LoopController) StartSession(ctx context.Context, req RunRequest) (LoopSession, error) {
	config := req.Config
	looping := config.Looping

	maxIterations := looping.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 1
	}

	session := LoopSession{}
	for iteration := 1; iteration <= maxIterations; iteration++ {
		startedAt := time.Now()
		state, err := c.runner.Run(ctx, req)
		if err != nil {
			return session, err
		}
		endedAt := time.Now()

		session.Iterations = append(session.Iterations, IterationRecord{
			Iteration: iteration,
			RunID:     state.RunID,
			Status:    state.Status,
			StartedAt: startedAt,
			EndedAt:   endedAt,
		})
		session.FinalState = state

		if state.Status == domain.RunStatusAborted {
			c.logger.Info(ctx, "loop session ending: run aborted", "run_id", state.RunID, "iteration", iteration)
			break
		}
		if state.Status == domain.RunStatusFailed && config.Settings.FailureStrategy == domain.FailureStrategyStop {
			c.logger.Info(ctx, "loop session ending: run failed under stop strategy", "run_id", state.RunID, "iteration", iteration)
			break
		}

		if !looping.Enabled {
			break
		}

		empty, err := pendingQueueEmpty(looping.Directories.Pending)
		if err != nil {
			c.logger.Warn(ctx, "failed to inspect pending queue directory, ending loop session", "directory", looping.Directories.Pending, "error", err)
			break
		}
		if empty {
			c.logger.Info(ctx, "loop session ending: pending queue empty", "directory", looping.Directories.Pending, "iteration", iteration)
			break
		}
	}

	return session, nil
}

// pendingQueueEmpty reports whether dir contains no entries. A missing
// directory counts as empty, ending the session rather than erroring: an
// unattended loop should never wedge because its queue directory was never
// created.
func pendingQueueEmpty(dir string) (bool, error) {
	if dir == "" {
		return true, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}
