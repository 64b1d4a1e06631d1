package chromemdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-rag/internal/models"
)

func newMemoryManager(t *testing.T) *VectorDBManager {
	t.Helper()
	m, err := NewVectorDBManager("", "test_chunks")
	require.NoError(t, err)
	return m
}

func TestAddAndSearchChunks(t *testing.T) {
	m := newMemoryManager(t)
	ctx := context.Background()

	chunks := []models.Chunk{
		{
			DocumentID: "doc-1", TenantID: "t1", Version: 1, Position: 0, PageNumber: 1,
			Type: models.ChunkTypeText, Content: "The deductible is $500.",
			Embedding: []float32{1, 0, 0},
		},
		{
			DocumentID: "doc-1", TenantID: "t1", Version: 1, Position: 1, PageNumber: 2,
			Type: models.ChunkTypeText, Content: "Windstorm damage is excluded.",
			Embedding: []float32{0, 1, 0},
		},
	}
	require.NoError(t, m.AddChunks(ctx, chunks))

	got, err := m.SearchChunks(ctx, "t1", "doc-1", 1, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "The deductible is $500.", got[0].Chunk.Content)
	assert.Equal(t, 1, got[0].Chunk.PageNumber)
	assert.InDelta(t, 1.0, got[0].Similarity, 0.001)
	assert.GreaterOrEqual(t, got[1].Similarity, 0.0)
	for _, c := range got {
		assert.Nil(t, c.RerankScore)
	}
}

func TestSearchChunksScopedToDocument(t *testing.T) {
	m := newMemoryManager(t)
	ctx := context.Background()

	require.NoError(t, m.AddChunks(ctx, []models.Chunk{
		{DocumentID: "doc-1", TenantID: "t1", Version: 1, Position: 0, Content: "alpha", Embedding: []float32{1, 0}},
		{DocumentID: "doc-2", TenantID: "t1", Version: 1, Position: 0, Content: "beta", Embedding: []float32{1, 0}},
	}))

	got, err := m.SearchChunks(ctx, "t1", "doc-2", 1, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "doc-2", got[0].Chunk.DocumentID)
}

func TestSearchChunksEmptyCollection(t *testing.T) {
	m := newMemoryManager(t)

	got, err := m.SearchChunks(context.Background(), "t1", "doc-1", 1, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
