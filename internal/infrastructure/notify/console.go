package notify

import (
	"context"

	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// ConsoleSink relays lifecycle events to the operational logger, grounded
// on the teacher's internal/infrastructure/logging.Logger as the console
// output surface.
type ConsoleSink struct {
	logger ports.Logger
}

// NewConsoleSink constructs a ConsoleSink writing through logger.
func NewConsoleSink(logger ports.Logger) *ConsoleSink {
	return &ConsoleSink{logger: logger}
}

// Send logs event at info level with its run and type as structured fields.
func (s *ConsoleSink) Send(ctx context.Context, event ports.LifecycleEvent) error {
	s.logger.Info(ctx, "pipeline event",
		"event_type", event.Type,
		"run_id", event.State.RunID,
		"status", string(event.State.Status),
	)
	return nil
}

var _ Sink = (*ConsoleSink)(nil)
