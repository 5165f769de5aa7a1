package matcher

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const localEmbedderDims = 256

// LocalEmbedder is a deterministic hashed bag-of-words embedder. It is the
// default provider when no embedding API key is configured and the provider
// used by tests: no network, no model drift, same text in, same vector out.
// Quality is far below a real embedding model but the cosine geometry still
// rewards vocabulary overlap.
type LocalEmbedder struct {
	dims int
}

// NewLocalEmbedder creates a local hashed bag-of-words embedder
func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{dims: localEmbedderDims}
}

func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *LocalEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dims)

	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(e.dims)]++
	}

	// L2 normalize so cosine similarity reduces to a dot product
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}

	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
