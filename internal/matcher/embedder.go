package matcher

import "context"

// Embedder turns a batch of texts into vectors. Implementations must return
// one vector per input text, in input order, and must be deterministic for a
// given input so that ranking the same search twice gives the same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
