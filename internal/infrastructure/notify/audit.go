package notify

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// AuditSink writes every lifecycle event as a single-line JSON record via
// zerolog, kept deliberately separate from the operational logger
// (internal/infrastructure/logging) so the audit trail survives independent
// of log-level configuration and is safe to feed into compliance tooling.
type AuditSink struct {
	logger zerolog.Logger
}

// NewAuditSink constructs an AuditSink writing newline-delimited JSON to w.
func NewAuditSink(w io.Writer) *AuditSink {
	return &AuditSink{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// Send records event as a structured audit entry.
func (s *AuditSink) Send(ctx context.Context, event ports.LifecycleEvent) error {
	entry := s.logger.Info().
		Str("event_type", event.Type).
		Str("run_id", event.State.RunID).
		Str("status", string(event.State.Status)).
		Int("stage_count", len(event.State.Stages))

	for key, value := range event.Extra {
		entry = entry.Interface(key, value)
	}

	entry.Msg("pipeline_event")
	return nil
}

var _ Sink = (*AuditSink)(nil)
