// Package mock provides a test double for the embeddings.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/avirajsharma-ops/sameer/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider. Embed returns a
// deterministic vector of Dims length so tests do not depend on a live model.
type Provider struct {
	mu sync.Mutex

	// Dims is the vector dimension reported by Dimensions. Defaults to 8
	// when zero, which keeps test fixtures small.
	Dims int

	// Err, if non-nil, is returned as the error from Embed.
	Err error

	// Texts records every text passed to Embed in order.
	Texts []string
}

// Embed records the call and returns a vector whose first element encodes the
// text length, making distinct inputs distinguishable in assertions.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Texts = append(p.Texts, text)
	if p.Err != nil {
		return nil, p.Err
	}
	vec := make([]float32, p.dims())
	vec[0] = float32(len(text))
	return vec, nil
}

// Dimensions returns Dims, defaulting to 8.
func (p *Provider) Dimensions() int { return p.dims() }

func (p *Provider) dims() int {
	if p.Dims <= 0 {
		return 8
	}
	return p.Dims
}

// Compile-time interface check.
var _ embeddings.Provider = (*Provider)(nil)
