// Package retriever finds the chunks most similar to a query within one
// document. Retrieval is always scoped to a single (tenant, document)
// pair; the store enforces the scoping, the retriever passes it
// explicitly on every call.
package retriever

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"policy-rag/internal/models"
)

// VectorSearcher is the nearest-neighbor store behind retrieval. The
// Postgres/pgvector store and the local chromem store both satisfy it.
type VectorSearcher interface {
	SearchChunks(ctx context.Context, tenantID, docID string, queryEmbedding []float32, limit int) ([]models.RetrievedChunk, error)
}

type Retriever struct {
	searcher VectorSearcher
	embedder *embeddings.EmbedderImpl
	topK     int
}

func New(searcher VectorSearcher, embedder *embeddings.EmbedderImpl, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{searcher: searcher, embedder: embedder, topK: topK}
}

// Retrieve embeds the query and returns the top-K chunks of the document
// ranked by cosine similarity. A document with no stored chunks yields an
// empty result, not an error; downstream confidence then resolves to
// not_found.
func (r *Retriever) Retrieve(ctx context.Context, query, tenantID, docID string) ([]models.RetrievedChunk, error) {
	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	chunks, err := r.searcher.SearchChunks(ctx, tenantID, docID, queryEmbedding, r.topK)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	log.Debug().
		Str("document_id", docID).
		Int("retrieved", len(chunks)).
		Msg("Retrieved chunks")
	return chunks, nil
}
