// Package embeddings defines the Provider interface for text embedding
// backends, used to index profile facts and utterance analysis for semantic
// lookup.
package embeddings

import "context"

// Provider is the abstraction over any embedding backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Embed returns the embedding vector for text. The vector length always
	// equals Dimensions().
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the output dimension of the embedding model. The
	// value is constant for the lifetime of the provider and must match the
	// vector column width of the backing store.
	Dimensions() int
}
