package notify

import (
	"context"

	pipeline "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// Dispatcher fans a LifecycleEvent out to every configured sink, logging
// (rather than returning) a sink's failure so one broken channel never
// blocks the others or the run itself (spec §7 NotificationError).
type Dispatcher struct {
	sinks  map[pipeline.NotificationChannelType]Sink
	logger ports.Logger
}

// NewDispatcher constructs a Dispatcher with the given channel-type to sink
// bindings.
func NewDispatcher(sinks map[pipeline.NotificationChannelType]Sink, logger ports.Logger) *Dispatcher {
	return &Dispatcher{sinks: sinks, logger: logger}
}

// Dispatch sends event to every sink bound to a channel present in channels.
func (d *Dispatcher) Dispatch(ctx context.Context, channels []pipeline.NotificationChannel, event ports.LifecycleEvent) {
	for _, channel := range channels {
		sink, ok := d.sinks[channel.Type]
		if !ok {
			continue
		}
		if err := sink.Send(ctx, event); err != nil {
			d.logger.Warn(ctx, "notification channel failed",
				"channel", string(channel.Type),
				"event_type", event.Type,
				"error", err.Error(),
			)
		}
	}
}

var _ ports.NotificationDispatcher = (*configuredDispatcher)(nil)

// configuredDispatcher binds a Dispatcher to one pipeline's configured
// channel list, satisfying ports.NotificationDispatcher's single-event
// signature used by the application layer.
type configuredDispatcher struct {
	dispatcher *Dispatcher
	channels   []pipeline.NotificationChannel
}

// NewConfiguredDispatcher adapts dispatcher to ports.NotificationDispatcher
// for a fixed channel configuration.
func NewConfiguredDispatcher(dispatcher *Dispatcher, channels []pipeline.NotificationChannel) ports.NotificationDispatcher {
	return &configuredDispatcher{dispatcher: dispatcher, channels: channels}
}

// Dispatch fans event out to every configured channel. It always returns
// nil: per-channel failures are logged, never propagated, so a
// notification problem can never fail a pipeline run.
func (d *configuredDispatcher) Dispatch(ctx context.Context, event ports.LifecycleEvent) error {
	d.dispatcher.Dispatch(ctx, d.channels, event)
	return nil
}
