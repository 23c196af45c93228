package ports

import "context"

const (
	// EventPipelineStarted is emitted when a run begins (spec §6).
	EventPipelineStarted = "pipeline.started"
	// EventStageCompleted is emitted when a stage finishes successfully.
	EventStageCompleted = "stage.completed"
	// EventStageFailed is emitted when a stage fails.
	EventStageFailed = "stage.failed"
	// EventPipelineCompleted is emitted after a successful run.
	EventPipelineCompleted = "pipeline.completed"
	// EventPipelineFailed is emitted when a run terminates with a failed status.
	EventPipelineFailed = "pipeline.failed"
	// EventPullRequestCreated is emitted when PROps opens a pull request at
	// finalize.
	EventPullRequestCreated = "pr.created"
)

// DomainEvent represents a significant occurrence within the domain or
// application layer. Events carry structured payloads that downstream
// subscribers can use for logging, UI updates, or integrations.
type DomainEvent interface {
	EventType() string
	Payload() interface{}
}

// EventPublisher distributes events to interested subscribers. Dispatch is
// synchronous—Publish blocks until all handlers run—ensuring observability
// signals appear before the process exits. Handlers may spawn goroutines for
// async processing if work should continue in the background. Implementations
// must be thread-safe.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
}

// EventHandler processes an event of a specific type. Handlers should avoid
// panicking; failures should be surfaced via returned errors so publishers can
// log diagnostics and continue delivering to remaining subscribers.
type EventHandler func(context.Context, DomainEvent) error

// Subscription represents a registered handler. Callers must invoke
// Unsubscribe to stop receiving events and release resources.
type Subscription interface {
	Unsubscribe()
}
