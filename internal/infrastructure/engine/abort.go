package engine

import (
	"context"
	"sync/atomic"

	"github.com/agentpipeline/agentpipeline/internal/ports"
)

var _ ports.AbortController = (*AbortController)(nil)

// AbortController is the concrete cancellation token threaded through a run
// (spec §5). It pairs a context.CancelFunc with an atomic flag so call sites
// that cannot block on a channel select (e.g. a disposition check at the top
// of a loop) can still observe abort state synchronously.
type AbortController struct {
	ctx     context.Context
	cancel  context.CancelFunc
	aborted atomic.Bool
}

// NewAbortController wraps parent in a cancellable context.
func NewAbortController(parent context.Context) *AbortController {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &AbortController{ctx: ctx, cancel: cancel}
}

// Context returns the controller's context, suitable for passing to
// AgentRuntime.Execute and other cancellable operations.
func (a *AbortController) Context() context.Context {
	return a.ctx
}

// Abort signals cancellation. Idempotent.
func (a *AbortController) Abort() {
	a.aborted.Store(true)
	a.cancel()
}

// Aborted reports whether Abort has been called.
func (a *AbortController) Aborted() bool {
	return a.aborted.Load()
}

// Done returns the controller's context Done channel.
func (a *AbortController) Done() <-chan struct{} {
	return a.ctx.Done()
}
