package ports

import (
	"context"

	pipeline "github.com/agentpipeline/agentpipeline/internal/domain/pipeline"
)

// ConfigLoader loads pipeline definitions from an external source such as the
// filesystem, an embedded asset, or a remote service. Implementations must be
// deterministic, respect context cancellation, and translate infrastructure
// failures into domain-friendly error codes.
//
// Error mapping expectations:
//   - io/fs.ErrNotExist → ErrCodeNotFound
//   - schema or YAML parsing failures → ErrCodeValidation
//   - context cancellation/deadline → ErrCodeCancelled or ErrCodeTimeout
//   - unexpected I/O issues → ErrCodeInternal with wrapped cause
//
// ConfigLoader is consumed exclusively by application-layer use cases; domain
// packages never depend on concrete infrastructure concerns.
type ConfigLoader interface {
	// Load materialises a fully validated pipeline configuration from the
	// provided location.
	Load(ctx context.Context, path string) (*pipeline.PipelineConfig, error)

	// Validate checks the configuration at path without running it. This
	// enables the CLI to surface errors quickly (e.g.
	// `agentpipeline validate config.yaml`). Implementations must avoid side
	// effects; the error codes are not restricted beyond those Load can
	// return (the YAML implementation runs the full Load, so duplicate and
	// dependency codes can appear).
	Validate(ctx context.Context, path string) error
}
