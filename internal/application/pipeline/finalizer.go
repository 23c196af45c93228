package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	domain "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/logging"
	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// prTemplateData is the substitution environment available to
// PullRequestSettings.TitleTemplate and BodyTemplate.
type prTemplateData struct {
	RunID   string
	Name    string
	Summary string
}

// PipelineFinalizer performs spec §4.5 step 5: computing the run's total
// duration and final commit, pushing the branch and opening a pull request
// when configured, persisting the terminal state, and emitting the closing
// pipeline.completed or pipeline.failed event.
type PipelineFinalizer struct {
	git        ports.GitOps
	pr         ports.PROps
	stateStore ports.StateStore
	notifier   ports.NotificationDispatcher
	events     ports.EventPublisher
	logger     ports.Logger
}

// PipelineFinalizerOption configures a PipelineFinalizer.
type PipelineFinalizerOption func(*PipelineFinalizer)

func WithFinalizerPROps(pr ports.PROps) PipelineFinalizerOption {
	return func(f *PipelineFinalizer) { f.pr = pr }
}

func WithFinalizerStateStore(store ports.StateStore) PipelineFinalizerOption {
	return func(f *PipelineFinalizer) { f.stateStore = store }
}

func WithFinalizerNotifier(notifier ports.NotificationDispatcher) PipelineFinalizerOption {
	return func(f *PipelineFinalizer) { f.notifier = notifier }
}

func WithFinalizerEvents(events ports.EventPublisher) PipelineFinalizerOption {
	return func(f *PipelineFinalizer) { f.events = events }
}

func WithFinalizerLogger(logger ports.Logger) PipelineFinalizerOption {
	return func(f *PipelineFinalizer) { f.logger = logger }
}

// NewPipelineFinalizer constructs a PipelineFinalizer.
func NewPipelineFinalizer(git ports.GitOps, opts ...PipelineFinalizerOption) *PipelineFinalizer {
	f := &PipelineFinalizer{
		git:    git,
		logger: logging.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize computes closing artifacts, opens a pull request when
// PullRequest.Enabled and the run produced changes, persists the final
// state, and emits the terminal lifecycle event. Finalize never fails the
// run over a PR or persistence error; those are logged and the RunState's
// Status is left as the group loop determined it.
func (f *PipelineFinalizer) Finalize(ctx context.Context, state domain.RunState, init InitializedRun) (domain.RunState, error) {
	started := state.Trigger.Timestamp
	if !started.IsZero() {
		state.Artifacts.TotalDuration = time.Since(started)
	}

	finalCommit, err := f.git.GetCurrentCommit(ctx)
	if err != nil {
		f.logger.Warn(ctx, "failed to capture final commit", "run_id", state.RunID, "error", err)
	} else {
		state.Artifacts.FinalCommit = finalCommit
	}

	config := state.PipelineConfig
	if config.PullRequest.Enabled && state.Status != domain.RunStatusAborted {
		f.maybeOpenPullRequest(ctx, &state, config, init)
	}

	if f.stateStore != nil {
		if saveErr := f.stateStore.Save(ctx, state); saveErr != nil {
			f.logger.Warn(ctx, "failed to persist final run state", "run_id", state.RunID, "error", saveErr)
		}
	}

	eventType := ports.EventPipelineCompleted
	if state.Status == domain.RunStatusFailed || state.Status == domain.RunStatusAborted {
		eventType = ports.EventPipelineFailed
	}
	publishEvent(ctx, f.events, f.logger, eventType, map[string]interface{}{
		"run_id": state.RunID,
		"status": string(state.Status),
	})
	if f.notifier != nil {
		if dispatchErr := f.notifier.Dispatch(ctx, ports.LifecycleEvent{Type: eventType, State: state.Clone()}); dispatchErr != nil {
			f.logger.Warn(ctx, "failed to dispatch terminal notification", "run_id", state.RunID, "error", dispatchErr)
		}
	}

	return state, nil
}

// maybeOpenPullRequest pushes the run's branch and opens a pull request if
// one is not already open, tolerating the run not having used an isolated
// worktree (in which case there is nothing to push).
func (f *PipelineFinalizer) maybeOpenPullRequest(ctx context.Context, state *domain.RunState, config domain.PipelineConfig, init InitializedRun) {
	if f.pr == nil || init.WorktreePath == "" || config.Git.BranchPrefix == "" {
		return
	}
	branchName := config.Git.BranchPrefix + state.RunID

	changed, err := f.git.ChangedFiles(ctx, state.Artifacts.InitialCommit)
	if err != nil {
		f.logger.Warn(ctx, "failed to compute changed files", "run_id", state.RunID, "error", err)
		return
	}
	state.Artifacts.ChangedFiles = changed
	if len(changed) == 0 {
		return
	}

	if err := f.git.PushBranch(ctx, branchName); err != nil {
		f.logger.Warn(ctx, "failed to push pipeline branch", "run_id", state.RunID, "branch", branchName, "error", err)
		return
	}

	exists, err := f.pr.PRExists(ctx, branchName)
	if err != nil {
		f.logger.Warn(ctx, "failed to check for existing pull request", "run_id", state.RunID, "branch", branchName, "error", err)
		return
	}
	if exists {
		return
	}

	title, err := renderPRTemplate(config.PullRequest.TitleTemplate, defaultPRTitleTemplate, state)
	if err != nil {
		f.logger.Warn(ctx, "failed to render pull request title", "run_id", state.RunID, "error", err)
		return
	}
	body, err := renderPRTemplate(config.PullRequest.BodyTemplate, defaultPRBodyTemplate, state)
	if err != nil {
		f.logger.Warn(ctx, "failed to render pull request body", "run_id", state.RunID, "error", err)
		return
	}

	ref, err := f.pr.CreatePR(ctx, branchName, config.PullRequest.Base, ports.PullRequestOptions{
		Title: title,
		Body:  body,
		Draft: config.PullRequest.Draft,
	})
	if err != nil {
		f.logger.Warn(ctx, "failed to create pull request", "run_id", state.RunID, "branch", branchName, "error", err)
		return
	}

	state.Artifacts.PullRequest = &domain.PullRequestArtifact{URL: ref.URL, Number: ref.Number}
	publishEvent(ctx, f.events, f.logger, ports.EventPullRequestCreated, map[string]interface{}{
		"run_id": state.RunID,
		"url":    ref.URL,
	})
}

const (
	defaultPRTitleTemplate = "[agentpipeline] {{.Name}} run {{.RunID}}"
	defaultPRBodyTemplate  = "Automated changes from pipeline {{.Name}} (run {{.RunID}}).\n\n{{.Summary}}"
)

func renderPRTemplate(tmplText, fallback string, state *domain.RunState) (string, error) {
	if tmplText == "" {
		tmplText = fallback
	}
	tmpl, err := template.New("pr").Parse(tmplText)
	if err != nil {
		return "", fmt.Errorf("parse pull request template: %w", err)
	}
	var buf bytes.Buffer
	data := prTemplateData{
		RunID:   state.RunID,
		Name:    state.PipelineConfig.Name,
		Summary: domain.AggregateSummary(state.Stages),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render pull request template: %w", err)
	}
	return buf.String(), nil
}
