package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"policy-rag/internal/models"
)

// Document tracks one uploaded document and which chunk version is live.
// Chunks of older versions stay queryable until a new version is promoted.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:doc"`
	ID            string `bun:"id,pk"`
	TenantID      string `bun:"tenant_id,notnull"`
	Filename      string `bun:"filename"`
	CurrentVersion int   `bun:"current_version,notnull,default:0"`
}

// Chunk is the stored form of models.Chunk. Rows are immutable;
// re-processing inserts a new version set.
type Chunk struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            int64     `bun:"id,pk,autoincrement"`
	DocumentID    string    `bun:"document_id,notnull"`
	TenantID      string    `bun:"tenant_id,notnull"`
	Version       int       `bun:"version,notnull"`
	Position      int       `bun:"position,notnull"`
	PageNumber    int       `bun:"page_number,notnull"`
	ChunkType     string    `bun:"chunk_type,notnull"`
	Content       string    `bun:"content,notnull"`
	Summary       string    `bun:"summary"`
	Embedding     []float32 `bun:"embedding,notnull,type:vector(768)"`

	// populated by SearchChunks only
	Similarity float64 `bun:"similarity,scanonly"`
}

// Searcher adapts the package-level search to the retriever's
// VectorSearcher interface.
type Searcher struct {
	db *bun.DB
}

func NewSearcher(db *bun.DB) *Searcher {
	return &Searcher{db: db}
}

func (s *Searcher) SearchChunks(ctx context.Context, tenantID, docID string, queryEmbedding []float32, limit int) ([]models.RetrievedChunk, error) {
	return SearchChunks(ctx, s.db, tenantID, docID, queryEmbedding, limit)
}

// NextVersion reserves the next chunk version for a document, creating
// the document row on first ingestion.
func NextVersion(ctx context.Context, db *bun.DB, docID, tenantID, filename string) (int, error) {
	doc := &Document{ID: docID, TenantID: tenantID, Filename: filename}
	if _, err := db.NewInsert().Model(doc).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return 0, fmt.Errorf("ensuring document row: %w", err)
	}
	if err := db.NewSelect().Model(doc).Where("id = ? AND tenant_id = ?", docID, tenantID).Scan(ctx); err != nil {
		return 0, err
	}
	return doc.CurrentVersion + 1, nil
}

// StoreChunks inserts one chunk-version set in a batch.
func StoreChunks(ctx context.Context, db *bun.DB, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]Chunk, len(chunks))
	for i, c := range chunks {
		rows[i] = Chunk{
			DocumentID: c.DocumentID,
			TenantID:   c.TenantID,
			Version:    c.Version,
			Position:   c.Position,
			PageNumber: c.PageNumber,
			ChunkType:  string(c.Type),
			Content:    c.Content,
			Summary:    c.Summary,
			Embedding:  c.Embedding,
		}
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("storing %d chunks: %w", len(chunks), err)
	}
	return nil
}

// PromoteVersion makes a stored chunk version the one retrieval sees.
// Old versions are left in place, so a reader mid-query is unaffected.
func PromoteVersion(ctx context.Context, db *bun.DB, docID, tenantID string, version int) error {
	res, err := db.NewUpdate().
		Model((*Document)(nil)).
		Set("current_version = ?", version).
		Where("id = ? AND tenant_id = ?", docID, tenantID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s not found for tenant %s", docID, tenantID)
	}
	return nil
}

// SearchChunks returns the top-K chunks of one document's promoted
// version by cosine similarity to the query embedding. Scope is always
// one (tenant, document); cross-document leakage would corrupt both
// confidence scoring and citations. Zero stored chunks is a normal
// outcome and yields an empty result. Ties break on chunk position so
// results stay reproducible.
func SearchChunks(ctx context.Context, db *bun.DB, tenantID, docID string, queryEmbedding []float32, limit int) ([]models.RetrievedChunk, error) {
	var rows []Chunk
	err := db.NewSelect().
		Model(&rows).
		ColumnExpr("c.*").
		ColumnExpr("1 - (c.embedding <=> ?) AS similarity", queryEmbedding).
		Where("c.tenant_id = ?", tenantID).
		Where("c.document_id = ?", docID).
		Where("c.version = (SELECT current_version FROM documents WHERE id = ?)", docID).
		OrderExpr("c.embedding <=> ?, c.position", queryEmbedding).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	retrieved := make([]models.RetrievedChunk, len(rows))
	for i, row := range rows {
		retrieved[i] = models.RetrievedChunk{
			Chunk: models.Chunk{
				DocumentID: row.DocumentID,
				TenantID:   row.TenantID,
				Version:    row.Version,
				Position:   row.Position,
				PageNumber: row.PageNumber,
				Type:       models.ChunkType(row.ChunkType),
				Content:    row.Content,
				Summary:    row.Summary,
				Embedding:  row.Embedding,
			},
			Similarity: row.Similarity,
		}
	}
	return retrieved, nil
}
