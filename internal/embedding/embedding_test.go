package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"

	"policy-rag/internal/models"
)

// recordingClient captures what gets embedded.
type recordingClient struct {
	texts []string
	err   error
}

func (r *recordingClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.texts = append(r.texts, texts...)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func TestEmbedChunksUsesSummaryForTables(t *testing.T) {
	client := &recordingClient{}
	embedder, err := embeddings.NewEmbedder(client)
	require.NoError(t, err)

	chunks := []models.Chunk{
		{Type: models.ChunkTypeText, Content: "The deductible is $500."},
		{Type: models.ChunkTypeTable, Content: "| Coverage | Limit |\n| --- | --- |\n| Flood | $50,000 |", Summary: "Table with columns: Coverage, Limit."},
	}
	require.NoError(t, EmbedChunks(context.Background(), embedder, chunks))

	require.Len(t, client.texts, 2)
	assert.Equal(t, "The deductible is $500.", client.texts[0])
	assert.Equal(t, "Table with columns: Coverage, Limit.", client.texts[1])

	// the stored content keeps the verbatim table even though the
	// summary was embedded
	assert.Contains(t, chunks[1].Content, "| Flood | $50,000 |")
	for _, c := range chunks {
		assert.NotEmpty(t, c.Embedding)
	}
}

func TestEmbedChunksEmpty(t *testing.T) {
	embedder, err := embeddings.NewEmbedder(&recordingClient{})
	require.NoError(t, err)
	assert.NoError(t, EmbedChunks(context.Background(), embedder, nil))
}

func TestEmbedChunksProviderFailure(t *testing.T) {
	embedder, err := embeddings.NewEmbedder(&recordingClient{err: errors.New("provider down")})
	require.NoError(t, err)

	chunks := []models.Chunk{{Type: models.ChunkTypeText, Content: "text"}}
	assert.Error(t, EmbedChunks(context.Background(), embedder, chunks))
}
