package embedder

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/tmc/langchaingo/embeddings"
)

// HashClient is a deterministic feature-hashing model. Word unigrams and
// bigrams are hashed into a fixed number of signed buckets and the result is
// L2 normalized, so identical texts embed identically on every run.
type HashClient struct {
	dimension int
}

var _ embeddings.EmbedderClient = (*HashClient)(nil)

// NewHashClient returns a local embedding client of the given dimension.
func NewHashClient(dimension int) (*HashClient, error) {
	if dimension <= 0 {
		return nil, errInvalidDimension
	}
	return &HashClient{dimension: dimension}, nil
}

// CreateEmbedding implements embeddings.EmbedderClient.
func (h *HashClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if h == nil {
		return nil, errors.New("hash client is nil")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(text)
	}
	return out, nil
}

func (h *HashClient) embed(text string) []float32 {
	vec := make([]float32, h.dimension)
	tokens := tokenize(text)
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	normalize(vec)
	return vec
}

func (h *HashClient) add(vec []float32, feature string, weight float32) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()
	idx := int(sum % uint64(h.dimension))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '%'
	})
	tokens := fields[:0]
	for _, f := range fields {
		// keep "310.16" intact but drop sentence dots
		if f = strings.Trim(f, "."); f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
