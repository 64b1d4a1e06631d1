package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"

	"policy-rag/internal/models"
)

// fakeEmbedderClient returns a constant vector for any text.
type fakeEmbedderClient struct {
	vector []float32
	err    error
}

func (f *fakeEmbedderClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

type fakeSearcher struct {
	chunks       []models.RetrievedChunk
	err          error
	gotTenantID  string
	gotDocID     string
	gotEmbedding []float32
	gotLimit     int
}

func (f *fakeSearcher) SearchChunks(_ context.Context, tenantID, docID string, queryEmbedding []float32, limit int) ([]models.RetrievedChunk, error) {
	f.gotTenantID = tenantID
	f.gotDocID = docID
	f.gotEmbedding = queryEmbedding
	f.gotLimit = limit
	return f.chunks, f.err
}

func newTestEmbedder(t *testing.T, client *fakeEmbedderClient) *embeddings.EmbedderImpl {
	t.Helper()
	embedder, err := embeddings.NewEmbedder(client)
	require.NoError(t, err)
	return embedder
}

func TestRetrievePassesScopeToStore(t *testing.T) {
	searcher := &fakeSearcher{
		chunks: []models.RetrievedChunk{
			{Chunk: models.Chunk{DocumentID: "doc-1", Position: 0}, Similarity: 0.9},
			{Chunk: models.Chunk{DocumentID: "doc-1", Position: 1}, Similarity: 0.7},
		},
	}
	embedder := newTestEmbedder(t, &fakeEmbedderClient{vector: []float32{0.1, 0.2, 0.3}})
	r := New(searcher, embedder, 5)

	chunks, err := r.Retrieve(context.Background(), "what is the deductible?", "tenant-1", "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "tenant-1", searcher.gotTenantID)
	assert.Equal(t, "doc-1", searcher.gotDocID)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, searcher.gotEmbedding)
	assert.Equal(t, 5, searcher.gotLimit)

	// retrieval sets only the vector similarity; the rerank score stays
	// nil until a reranker actually runs
	for _, c := range chunks {
		assert.Nil(t, c.RerankScore)
	}
}

func TestRetrieveEmptyDocument(t *testing.T) {
	searcher := &fakeSearcher{}
	embedder := newTestEmbedder(t, &fakeEmbedderClient{vector: []float32{0.1}})
	r := New(searcher, embedder, 5)

	chunks, err := r.Retrieve(context.Background(), "anything", "tenant-1", "empty-doc")
	require.NoError(t, err, "a document with zero chunks is a normal outcome, not an error")
	assert.Empty(t, chunks)
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	searcher := &fakeSearcher{}
	embedder := newTestEmbedder(t, &fakeEmbedderClient{err: errors.New("embedding api down")})
	r := New(searcher, embedder, 5)

	_, err := r.Retrieve(context.Background(), "anything", "tenant-1", "doc-1")
	assert.Error(t, err)
}

func TestRetrieveStoreFailure(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("store down")}
	embedder := newTestEmbedder(t, &fakeEmbedderClient{vector: []float32{0.1}})
	r := New(searcher, embedder, 5)

	_, err := r.Retrieve(context.Background(), "anything", "tenant-1", "doc-1")
	assert.Error(t, err)
}
