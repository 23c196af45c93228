package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	cfgpkg "github.com/agentpipeline/agentpipeline/internal/config"
	domain "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
	"github.com/agentpipeline/agentpipeline/internal/ports"
	apperrors "github.com/agentpipeline/agentpipeline/pkg/errors"
)

// YAMLLoader implements the ConfigLoader port by reading YAML files from disk.
type YAMLLoader struct {
	logger ports.Logger
}

// NewYAMLLoader constructs a YAMLLoader.
func NewYAMLLoader(logger ports.Logger) *YAMLLoader {
	return &YAMLLoader{logger: logger}
}

// Load parses, maps, and domain-validates the pipeline configuration at path
// (spec §4.1's PipelineConfig is immutable once loaded).
func (l *YAMLLoader) Load(ctx context.Context, path string) (*domain.PipelineConfig, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, domainError(domain.ErrCodeCancelled, "load cancelled", ctxErr, nil)
	}

	l.logDebug(ctx, "loading pipeline configuration", map[string]interface{}{"path": path})

	cfg, err := cfgpkg.ParseConfig(path)
	if err != nil {
		l.logError(ctx, "failed to parse configuration", err, map[string]interface{}{"path": path})
		return nil, convertError(err, path)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, domainError(domain.ErrCodeCancelled, "load cancelled", ctxErr, nil)
	}

	pipelineConfig := mapToDomain(cfg)
	if err := pipelineConfig.Validate(); err != nil {
		l.logError(ctx, "configuration failed domain validation", err, map[string]interface{}{"path": path})
		return nil, err
	}

	l.logInfo(ctx, "pipeline configuration loaded", map[string]interface{}{"path": path, "stages": len(pipelineConfig.Stages)})
	return &pipelineConfig, nil
}

// Validate checks that path is a .yaml/.yml file and then runs the full
// Load (parse, schema and domain validation), since the new schema has no
// cheaper partial-parse path worth maintaining separately. It returns
// whatever error Load returns.
func (l *YAMLLoader) Validate(ctx context.Context, path string) error {
	if err := contextCheck(ctx); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		l.logError(ctx, "configuration path stat failed", err, map[string]interface{}{"path": path})
		return convertError(err, path)
	}
	if info.IsDir() {
		return domainError(domain.ErrCodeValidation, "configuration path is a directory", nil, map[string]interface{}{"path": path})
	}

	ext := filepath.Ext(path)
	switch ext {
	case ".yaml", ".yml":
		l.logDebug(ctx, "validating pipeline configuration", map[string]interface{}{"path": path})
		_, err = l.Load(ctx, path)
	default:
		err = domainError(domain.ErrCodeValidation, "unsupported configuration file extension", nil, map[string]interface{}{"path": path, "extension": ext})
	}

	return err
}

var _ ports.ConfigLoader = (*YAMLLoader)(nil)

func convertError(err error, path string) error {
	if err == nil {
		return nil
	}
	var parseErr *apperrors.ParseError
	if errors.As(err, &parseErr) {
		if errors.Is(parseErr.Err, os.ErrNotExist) {
			return domainError(domain.ErrCodeNotFound, "configuration not found", parseErr.Err, map[string]interface{}{"path": path})
		}
		return domainError(domain.ErrCodeValidation, "invalid configuration syntax", err, map[string]interface{}{"path": parseErr.Path, "line": parseErr.Line})
	}
	var valErr *apperrors.ValidationError
	if errors.As(err, &valErr) {
		fieldContext := map[string]interface{}{"path": path}
		if valErr.Field != "" {
			fieldContext["field"] = valErr.Field
		}
		code := domain.ErrCodeValidation
		msg := strings.ToLower(valErr.Message)
		if strings.Contains(msg, "duplicate") {
			code = domain.ErrCodeDuplicate
		}
		if strings.Contains(msg, "depend") {
			code = domain.ErrCodeDependency
		}
		return domainError(code, valErr.Message, valErr.Err, fieldContext)
	}
	if os.IsNotExist(err) {
		return domainError(domain.ErrCodeNotFound, "configuration not found", err, map[string]interface{}{"path": path})
	}
	return domainError(domain.ErrCodeInternal, "configuration load failed", err, map[string]interface{}{"path": path})
}

func contextCheck(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return domainError(domain.ErrCodeCancelled, "operation cancelled", err, nil)
	}
	return nil
}

func domainError(code domain.ErrorCode, message string, cause error, ctx map[string]interface{}) *domain.DomainError {
	return &domain.DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: ctx,
	}
}

func (l *YAMLLoader) logDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Debug(ctx, msg, flattenFields(fields)...)
}

func (l *YAMLLoader) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Info(ctx, msg, flattenFields(fields)...)
}

func (l *YAMLLoader) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	payload := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["error"] = err
	l.logger.Error(ctx, msg, flattenFields(payload)...)
}

func flattenFields(fields map[string]interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return args
}

func mapToDomain(cfg *cfgpkg.Config) domain.PipelineConfig {
	if cfg == nil {
		return domain.PipelineConfig{}
	}

	stages := make([]domain.StageConfig, len(cfg.Stages))
	for i, stage := range cfg.Stages {
		stages[i] = domain.StageConfig{
			Name:       stage.Name,
			Agent:      stage.Agent,
			DependsOn:  append([]string(nil), stage.DependsOn...),
			Enabled:    stage.IsEnabled(),
			Condition:  stage.Condition,
			OnFail:     domain.FailureStrategy(stage.OnFail),
			Timeout:    time.Duration(stage.TimeoutSec) * time.Second,
			Retry:      mapRetry(stage.Retry),
			Inputs:     cloneMap(stage.Inputs),
			Runtime:    stage.Runtime,
			AutoCommit: stage.AutoCommit,
		}
	}

	channels := make([]domain.NotificationChannel, len(cfg.Notifications.Channels))
	for i, channel := range cfg.Notifications.Channels {
		channels[i] = domain.NotificationChannel{
			Type:    domain.NotificationChannelType(channel.Type),
			Target:  channel.Target,
			Headers: channel.Headers,
		}
	}

	return domain.PipelineConfig{
		Name:    cfg.Name,
		Trigger: domain.TriggerSource(cfg.Trigger),
		Stages:  stages,
		Settings: domain.Settings{
			ExecutionMode:   domain.ExecutionMode(cfg.Settings.ExecutionMode),
			FailureStrategy: domain.FailureStrategy(cfg.Settings.FailureStrategy),
			PermissionMode:  domain.PermissionMode(cfg.Settings.PermissionMode),
			MaxParallelism:  cfg.Settings.MaxParallelism,
			Verbose:         cfg.Settings.Verbose,
			DryRun:          cfg.Settings.DryRun,
		},
		Git: domain.GitSettings{
			AutoCommit:     cfg.Git.AutoCommit,
			CommitTemplate: cfg.Git.CommitTemplate,
			BranchPrefix:   cfg.Git.BranchPrefix,
		},
		PullRequest: domain.PullRequestSettings{
			Enabled:       cfg.PullRequest.Enabled,
			Base:          cfg.PullRequest.Base,
			TitleTemplate: cfg.PullRequest.TitleTemplate,
			BodyTemplate:  cfg.PullRequest.BodyTemplate,
			Draft:         cfg.PullRequest.Draft,
		},
		Looping: domain.LoopingSettings{
			Enabled:       cfg.Looping.Enabled,
			MaxIterations: cfg.Looping.MaxIterations,
			Directories: domain.LoopDirectories{
				Pending:  cfg.Looping.Directories.Pending,
				Running:  cfg.Looping.Directories.Running,
				Finished: cfg.Looping.Directories.Finished,
				Failed:   cfg.Looping.Directories.Failed,
			},
		},
		ContextReduction: domain.ContextReductionSettings{
			Enabled:   cfg.ContextReduction.Enabled,
			Strategy:  domain.ContextReductionStrategy(cfg.ContextReduction.Strategy),
			MaxTokens: cfg.ContextReduction.MaxTokens,
			AgentPath: cfg.ContextReduction.AgentPath,
		},
		Notifications: domain.NotificationsSettings{Channels: channels},
	}
}

func mapRetry(retry cfgpkg.Retry) domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxAttempts: retry.MaxAttempts,
		Backoff:     time.Duration(retry.BackoffSeconds) * time.Second,
	}.ApplyDefaults()
}

func cloneMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return map[string]interface{}{}
	}
	clone := make(map[string]interface{}, len(src))
	for k, v := range src {
		clone[k] = v
	}
	return clone
}
