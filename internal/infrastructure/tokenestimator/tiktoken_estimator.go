// Package tokenestimator estimates prompt token counts for context-budget
// decisions.
package tokenestimator

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// defaultEncoding matches the encoding used by the modern GPT/Claude
// tokenizer families closely enough for budget estimation purposes; exact
// provider-specific tokenization is not required since the estimate only
// gates a reduction decision, not a hard request limit.
const defaultEncoding = "cl100k_base"

// TiktokenEstimator estimates token counts via github.com/pkoukk/tiktoken-go,
// grounded on the pack's evidenced use of tiktoken-go for token accounting
// (manifests `kadirpekel-hector`, `teradata-labs-loom`).
type TiktokenEstimator struct {
	mu       sync.Mutex
	encoding *tiktoken.Tiktoken
}

// NewTiktokenEstimator constructs an estimator using the cl100k_base
// encoding.
func NewTiktokenEstimator() (*TiktokenEstimator, error) {
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %s: %w", defaultEncoding, err)
	}
	return &TiktokenEstimator{encoding: enc}, nil
}

// EstimateTokens returns the number of tokens text encodes to.
func (e *TiktokenEstimator) EstimateTokens(ctx context.Context, text string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tokens := e.encoding.Encode(text, nil, nil)
	return len(tokens), nil
}

var _ ports.TokenEstimator = (*TiktokenEstimator)(nil)
