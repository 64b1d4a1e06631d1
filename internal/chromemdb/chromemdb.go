package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"

	"policy-rag/internal/models"
)

// VectorDBManager wraps a chromem-go collection as a document-scoped
// chunk store. It backs local mode and tests; production retrieval goes
// through Postgres. Chunk scoping metadata travels as chromem document
// metadata so searches stay inside one (tenant, document, version).
type VectorDBManager struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewVectorDBManager opens (or creates) a chromem database. An empty
// dbPath selects the in-memory variant.
func NewVectorDBManager(dbPath, collectionName string) (*VectorDBManager, error) {
	var (
		db  *chromem.DB
		err error
	)
	if dbPath == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}

	return &VectorDBManager{db: db, collection: collection}, nil
}

// AddChunks stores one chunk-version set.
func (m *VectorDBManager) AddChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("%s-v%d-%d", c.DocumentID, c.Version, c.Position),
			Content:   c.Content,
			Embedding: c.Embedding,
			Metadata: map[string]string{
				"document_id": c.DocumentID,
				"tenant_id":   c.TenantID,
				"version":     strconv.Itoa(c.Version),
				"position":    strconv.Itoa(c.Position),
				"page_number": strconv.Itoa(c.PageNumber),
				"chunk_type":  string(c.Type),
				"summary":     c.Summary,
			},
		}
	}
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add chunks: %w", err)
	}
	return nil
}

// SearchChunks runs a similarity search scoped to one (tenant, document,
// version). Zero stored chunks returns an empty result, not an error.
func (m *VectorDBManager) SearchChunks(ctx context.Context, tenantID, docID string, version int, queryEmbedding []float32, limit int) ([]models.RetrievedChunk, error) {
	where := map[string]string{
		"tenant_id":   tenantID,
		"document_id": docID,
		"version":     strconv.Itoa(version),
	}

	// chromem rejects queries asking for more results than stored docs
	if count := m.collection.Count(); count == 0 {
		return nil, nil
	} else if limit > count {
		limit = count
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       limit,
		Where:          where,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	retrieved := make([]models.RetrievedChunk, 0, len(results))
	for _, res := range results {
		position, _ := strconv.Atoi(res.Metadata["position"])
		pageNumber, _ := strconv.Atoi(res.Metadata["page_number"])
		ver, _ := strconv.Atoi(res.Metadata["version"])
		similarity := float64(res.Similarity)
		if similarity < 0 {
			similarity = 0
		}
		retrieved = append(retrieved, models.RetrievedChunk{
			Chunk: models.Chunk{
				DocumentID: res.Metadata["document_id"],
				TenantID:   res.Metadata["tenant_id"],
				Version:    ver,
				Position:   position,
				PageNumber: pageNumber,
				Type:       models.ChunkType(res.Metadata["chunk_type"]),
				Content:    res.Content,
				Summary:    res.Metadata["summary"],
				Embedding:  res.Embedding,
			},
			Similarity: similarity,
		})
	}

	// chromem ties are unordered; break them by position for
	// reproducible fixtures
	sort.SliceStable(retrieved, func(i, j int) bool {
		if retrieved[i].Similarity != retrieved[j].Similarity {
			return retrieved[i].Similarity > retrieved[j].Similarity
		}
		return retrieved[i].Chunk.Position < retrieved[j].Chunk.Position
	})
	return retrieved, nil
}

// VersionedSearcher pins a chunk version, matching the retriever's
// VectorSearcher interface. Local mode has no promoted-version table, so
// the caller picks the version explicitly.
type VersionedSearcher struct {
	m       *VectorDBManager
	version int
}

func (m *VectorDBManager) Versioned(version int) *VersionedSearcher {
	return &VersionedSearcher{m: m, version: version}
}

func (v *VersionedSearcher) SearchChunks(ctx context.Context, tenantID, docID string, queryEmbedding []float32, limit int) ([]models.RetrievedChunk, error) {
	return v.m.SearchChunks(ctx, tenantID, docID, v.version, queryEmbedding, limit)
}

// DeleteCollection drops the whole collection, local-mode reset only.
func (m *VectorDBManager) DeleteCollection() error {
	if err := m.db.DeleteCollection(m.collection.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}
