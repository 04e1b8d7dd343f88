package embedding

import (
	"context"
	"crypto/sha256"
)

// StaticProvider generates deterministic embeddings derived from the input
// text's SHA-256 digest. It needs no network access and is intended for tests
// and offline development.
type StaticProvider struct {
	dims int
}

// NewStaticProvider creates a deterministic provider with the given
// dimensionality (default 32).
func NewStaticProvider(dims int) *StaticProvider {
	if dims <= 0 {
		dims = 32
	}
	return &StaticProvider{dims: dims}
}

// Embed derives a normalized vector from the text digest. Identical inputs
// always embed identically.
func (p *StaticProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, p.dims)
	for i := range v {
		v[i] = float32(sum[i%len(sum)]) / 255.0
	}
	return Normalize(v), nil
}

// EmbedBatch embeds each text independently.
func (p *StaticProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Model returns the provider name.
func (p *StaticProvider) Model() string {
	return "static-sha256"
}

// Dimensions returns the embedding dimension.
func (p *StaticProvider) Dimensions() int {
	return p.dims
}
