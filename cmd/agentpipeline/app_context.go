package main

import (
	"context"

	"github.com/spf13/cobra"

	configinfra "github.com/agentpipeline/agentpipeline/internal/infrastructure/config"
	eventsinfra "github.com/agentpipeline/agentpipeline/internal/infrastructure/events"
	logginginfra "github.com/agentpipeline/agentpipeline/internal/infrastructure/logging"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// AppContext bundles the long-lived services created at startup that every
// subcommand draws on.
type AppContext struct {
	Logger       ports.Logger
	Events       ports.EventPublisher
	ConfigLoader ports.ConfigLoader
}

// Bootstrap constructs Logger, Events, and ConfigLoader once the root
// command's persistent flags (notably --verbose) have been parsed.
func (a *AppContext) Bootstrap(verbose bool) error {
	level := "info"
	if verbose {
		level = "debug"
	}

	logger, err := logginginfra.New(logginginfra.Options{
		Level:     level,
		Component: "cli",
		Layer:     "infrastructure",
	})
	if err != nil {
		return err
	}

	a.Logger = logger
	a.Events = eventsinfra.NewLoggingPublisher(logger.With("component", "event_publisher"))
	a.ConfigLoader = configinfra.NewYAMLLoader(logger.With("component", "yaml_loader"))
	return nil
}

// CommandContext returns the command's context (falling back to Background)
// together with a component-scoped logger.
func (a *AppContext) CommandContext(cmd *cobra.Command, component string) (context.Context, ports.Logger) {
	ctx := context.Background()
	if cmd != nil && cmd.Context() != nil {
		ctx = cmd.Context()
	}
	return ctx, a.LoggerFor(component)
}

// LoggerFor derives a child logger scoped to component.
func (a *AppContext) LoggerFor(component string) ports.Logger {
	if a == nil || a.Logger == nil {
		return nil
	}
	return a.Logger.With("component", component)
}
