package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	domain "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/condition"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/engine"
	applicationpipeline "github.com/agentpipeline/agentpipeline/internal/application/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/git"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/handover"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/notify"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/pr"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/state"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/tokenestimator"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

type runOptions struct {
	trigger string
}

func newRunCmd(root *rootFlags, app *AppContext) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a pipeline to completion (or until its loop queue empties)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireConfigPath(root.configPath); err != nil {
				return err
			}
			return runPipeline(cmd, root, app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.trigger, "trigger", "manual", "Trigger source recorded on the run (manual|schedule|webhook|loop)")

	return cmd
}

func runPipeline(cmd *cobra.Command, root *rootFlags, app *AppContext, opts runOptions) error {
	ctx, logger := app.CommandContext(cmd, "run")

	cfg, err := app.ConfigLoader.Load(ctx, root.configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	runtimeRegistry := buildRuntimeRegistry(ctx, logger)
	gitOps := git.New(root.repoPath)
	conditionEvaluator := condition.NewExprEvaluator()

	estimator, err := tokenestimator.NewTiktokenEstimator()
	if err != nil {
		return fmt.Errorf("build token estimator: %w", err)
	}

	stateStore, err := state.NewJSONStore(root.stateDir)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}

	contextReducer := engine.NewContextReducer(
		runtimeRegistry,
		engine.WithContextReducerLogger(app.LoggerFor("context_reducer")),
	)

	notificationDispatcher := buildNotificationDispatcher(app, cfg)

	// handoverProxy lets the long-lived StageExecutor below target a fresh
	// per-run handover directory on every loop iteration; handoverRoot
	// (passed to PipelineInitializer) repoints it before each run starts.
	handoverProxy := handover.NewRunScoped()
	stageExecutor := engine.NewStageExecutor(
		runtimeRegistry,
		handoverProxy,
		gitOps,
		engine.WithStageExecutorLogger(app.LoggerFor("stage_executor")),
		engine.WithStageExecutorEvents(app.Events),
	)
	parallelExecutor := engine.NewParallelExecutor(
		stageExecutor,
		engine.WithParallelExecutorLogger(app.LoggerFor("parallel_executor")),
		engine.WithParallelExecutorParallelism(cfg.Settings.MaxParallelism),
	)
	groupOrchestrator := engine.NewGroupOrchestrator(
		parallelExecutor,
		conditionEvaluator,
		engine.WithGroupOrchestratorLogger(app.LoggerFor("group_orchestrator")),
		engine.WithGroupOrchestratorEvents(app.Events),
		engine.WithTokenEstimator(estimator),
		engine.WithContextReducer(contextReducer),
		engine.WithStateStore(stateStore),
		engine.WithNotificationDispatcher(notificationDispatcher),
	)

	planner := engine.NewDAGPlanner()
	handoverRoot := func(runID string) (ports.HandoverStore, error) {
		store, err := handover.NewFileStore(root.handoverDir, runID)
		if err != nil {
			return nil, err
		}
		handoverProxy.SetCurrent(store)
		return store, nil
	}

	initializer := applicationpipeline.NewPipelineInitializer(
		planner,
		gitOps,
		handoverRoot,
		applicationpipeline.WithInitializerEvents(app.Events),
		applicationpipeline.WithInitializerNotifier(notificationDispatcher),
		applicationpipeline.WithInitializerLogger(app.LoggerFor("initializer")),
	)

	var prOps ports.PROps
	if cfg.PullRequest.Enabled {
		driver, err := buildPRDriver()
		if err != nil {
			return err
		}
		prOps = driver
	}

	finalizer := applicationpipeline.NewPipelineFinalizer(
		gitOps,
		applicationpipeline.WithFinalizerPROps(prOps),
		applicationpipeline.WithFinalizerStateStore(stateStore),
		applicationpipeline.WithFinalizerNotifier(notificationDispatcher),
		applicationpipeline.WithFinalizerEvents(app.Events),
		applicationpipeline.WithFinalizerLogger(app.LoggerFor("finalizer")),
	)

	abort := engine.NewAbortController(ctx)
	runner := applicationpipeline.NewPipelineRunner(
		initializer,
		groupOrchestrator,
		finalizer,
		applicationpipeline.WithRunnerAbortController(abort),
		applicationpipeline.WithRunnerLogger(app.LoggerFor("runner")),
		applicationpipeline.WithRunnerObserver(func(s domain.RunState) {
			logger.Info(ctx, "run state updated", "run_id", s.RunID, "status", string(s.Status))
		}),
	)

	loopController := applicationpipeline.NewLoopController(
		runner,
		applicationpipeline.WithLoopControllerLogger(app.LoggerFor("loop_controller")),
	)

	session, err := loopController.StartSession(ctx, applicationpipeline.RunRequest{
		Config:  *cfg,
		Trigger: domain.TriggerSource(opts.trigger),
	})
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "completed %d iteration(s), final status: %s\n", len(session.Iterations), session.FinalState.Status)
	if session.FinalState.Status == domain.RunStatusFailed || session.FinalState.Status == domain.RunStatusAborted {
		return fmt.Errorf("pipeline finished with status %s", session.FinalState.Status)
	}
	return nil
}

func buildNotificationDispatcher(app *AppContext, cfg *domain.PipelineConfig) ports.NotificationDispatcher {
	sinks := map[domain.NotificationChannelType]notify.Sink{
		domain.NotificationChannelConsole: notify.NewConsoleSink(app.LoggerFor("notify_console")),
		domain.NotificationChannelAudit:   notify.NewAuditSink(os.Stdout),
	}
	for _, channel := range cfg.Notifications.Channels {
		if channel.Type == domain.NotificationChannelWebhook {
			sinks[domain.NotificationChannelWebhook] = notify.NewWebhookSink(channel.Target, channel.Headers)
		}
	}
	dispatcher := notify.NewDispatcher(sinks, app.LoggerFor("notify_dispatcher"))
	return notify.NewConfiguredDispatcher(dispatcher, cfg.Notifications.Channels)
}

func buildPRDriver() (ports.PROps, error) {
	token := os.Getenv("GITHUB_TOKEN")
	owner := os.Getenv("GITHUB_OWNER")
	repo := os.Getenv("GITHUB_REPO")
	if token == "" || owner == "" || repo == "" {
		return nil, fmt.Errorf("pull requests are enabled but GITHUB_TOKEN, GITHUB_OWNER, and GITHUB_REPO must all be set")
	}
	return pr.New(token, owner, repo), nil
}
