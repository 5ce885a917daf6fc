// Package embeddings defines the vectorization seam for journal search.
// The outbox worker embeds journal entries before indexing them, and the
// search handler embeds queries at request time; both go through Provider
// so the backing model (Ollama in dev) can be swapped via config.
package embeddings

import "context"

// Provider turns free text into a vector. Implementations must be safe for
// concurrent use; the worker and the HTTP path share one instance.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
