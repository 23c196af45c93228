// Package notify fans lifecycle events out to console, webhook, and audit
// sinks without letting one channel's failure block the others (spec §7
// NotificationError).
package notify

import (
	"context"

	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// Sink delivers a single lifecycle event to one notification channel.
type Sink interface {
	Send(ctx context.Context, event ports.LifecycleEvent) error
}
