package ports

import (
	"context"

	pipeline "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
)

// LifecycleEvent is the payload delivered to NotificationDispatcher for every
// lifecycle event named in spec §6. State is always a clone (spec P4).
type LifecycleEvent struct {
	Type  string
	State pipeline.RunState
	Extra map[string]interface{}
}

// NotificationDispatcher fans a lifecycle event out to the channels
// configured under PipelineConfig.Notifications. Implementations must not
// let a single channel's failure block delivery to the others, and must
// never treat a notification failure as fatal to the run (spec §7
// NotificationError).
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, event LifecycleEvent) error
}
