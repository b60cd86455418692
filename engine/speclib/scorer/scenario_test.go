package scorer

import (
	"context"
	"math"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/compozy/specmatch/engine/speclib"
	"github.com/compozy/specmatch/engine/speclib/chunk"
	"github.com/compozy/specmatch/engine/speclib/embedder"
	"github.com/compozy/specmatch/engine/speclib/ingest"
	"github.com/compozy/specmatch/engine/speclib/library"
	"github.com/compozy/specmatch/engine/speclib/vectordb"
)

const conceptDimension = 8

// conceptClient stands in for a semantic embedding model: words map onto a
// handful of concept axes, so paraphrases land close together.
type conceptClient struct{}

var conceptAxes = map[string]int{
	"voltage":   0,
	"drop":      1,
	"drops":     1,
	"exceed":    2,
	"exceeds":   2,
	"exceeded":  2,
	"exceeding": 2,
	"limit":     2,
	"maximum":   2,
	"feeder":    3,
	"feeders":   3,
	"branch":    3,
	"circuit":   3,
	"primary":   4,
	"secondary": 4,
	"section":   6,
	"ground":    7,
	"grounding": 7,
	"rod":       7,
	"rods":      7,
}

func (conceptClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, conceptDimension)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '%'
		})
		for _, w := range words {
			if strings.HasSuffix(w, "%") {
				vec[5]++
				continue
			}
			if axis, ok := conceptAxes[w]; ok {
				vec[axis]++
			}
		}
		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		if sum > 0 {
			norm := float32(math.Sqrt(sum))
			for j := range vec {
				vec[j] /= norm
			}
		}
		out[i] = vec
	}
	return out, nil
}

func newConceptEmbedder(t *testing.T) *embedder.Adapter {
	t.Helper()
	impl, err := embeddings.NewEmbedder(conceptClient{}, embeddings.WithBatchSize(8))
	require.NoError(t, err)
	emb, err := embedder.Wrap(&embedder.Config{
		Provider:  embedder.ProviderOllama,
		Model:     "nomic-embed-text",
		Dimension: conceptDimension,
		BatchSize: 8,
	}, impl)
	require.NoError(t, err)
	return emb
}

func TestScorer_VoltageDropScenario(t *testing.T) {
	const sectionText = "Section 4.2.3: Voltage drop shall not exceed 3% for feeders and 5% for combined primary and secondary."

	ctx := t.Context()
	emb := newConceptEmbedder(t)
	index, err := vectordb.New(ctx, &vectordb.Config{Provider: vectordb.ProviderMemory, Dimension: conceptDimension})
	require.NoError(t, err)
	chunker, err := chunk.NewProcessor(chunk.Settings{TargetSize: 1200, OverlapRatio: 0.15})
	require.NoError(t, err)
	lib, err := library.New(ctx, library.Deps{
		Catalog:  library.NewMemoryCatalog(),
		Index:    index,
		Chunker:  chunker,
		Embedder: emb,
	}, library.Options{})
	require.NoError(t, err)

	t.Run("Should keep the section in one intact chunk", func(t *testing.T) {
		result, err := lib.Load(ctx, []ingest.File{
			{Name: "electrical.txt", Data: []byte(sectionText)},
			{Name: "grounding.txt", Data: []byte(groundingSpec)},
		}, speclib.ModeAppend)
		require.NoError(t, err)
		assert.Equal(t, []string{"electrical.txt", "grounding.txt"}, result.Processed)
		summary, err := lib.Status(ctx)
		require.NoError(t, err)
		require.Len(t, summary.PerDocument, 2)
		assert.Equal(t, 1, summary.PerDocument[0].Chunks)
	})

	t.Run("Should classify the paraphrased infraction as medium", func(t *testing.T) {
		s, err := New(emb, lib, DefaultPolicy(), Options{})
		require.NoError(t, err)
		res, err := s.Score(ctx, "Voltage drop exceeds 5% limit", 5)
		require.NoError(t, err)
		require.NotEmpty(t, res.Matches)
		top := res.Matches[0]
		assert.Equal(t, "electrical.txt", top.Filename)
		assert.Equal(t, sectionText, top.Text)
		assert.Contains(t, top.References, "SECTION 4.2.3")
		assert.GreaterOrEqual(t, res.TopScore, 0.40)
		assert.Equal(t, StatusRepealableMedium, res.Status)
		assert.GreaterOrEqual(t, res.Confidence, 0.55)
		assert.Less(t, res.Confidence, 0.70)
		assert.Equal(t, []string{"electrical.txt"}, res.MatchedDocuments)
		for _, reason := range res.Reasons {
			assert.NotContains(t, reason, "reference")
		}
	})
}
