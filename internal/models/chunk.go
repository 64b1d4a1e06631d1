package models

// ChunkType tags a chunk as plain text or a whole extracted table.
type ChunkType string

const (
	ChunkTypeText  ChunkType = "text"
	ChunkTypeTable ChunkType = "table"
)

// Chunk is one retrieval-sized unit of a document: a span of extracted
// text, or one whole detected table. Chunks are immutable once created;
// re-processing a document writes a new Version instead of mutating.
type Chunk struct {
	DocumentID string
	TenantID   string
	Version    int
	Position   int
	PageNumber int
	Type       ChunkType
	// Content holds the chunk text verbatim. For table chunks it is the
	// entire table, never truncated.
	Content string
	// Summary is set for table chunks only. The summary, not the raw
	// table, is what gets embedded.
	Summary   string
	Embedding []float32
}

// EmbeddingText returns the text that should be embedded for retrieval:
// the rule-based summary for tables, the raw content otherwise.
func (c *Chunk) EmbeddingText() string {
	if c.Type == ChunkTypeTable && c.Summary != "" {
		return c.Summary
	}
	return c.Content
}

// RetrievedChunk is a per-query view of a Chunk carrying two independent
// scores. Similarity is cosine similarity against the query embedding in
// [0,1]. RerankScore is on the reranker's own scale and is nil when
// reranking was skipped or failed. The two fields are never allowed to
// overwrite each other; their scales and thresholds differ.
type RetrievedChunk struct {
	Chunk       Chunk
	Similarity  float64
	RerankScore *float64
}

// BestScore reports the score the confidence classifier should trust:
// the rerank score when present, the vector similarity otherwise.
func (r *RetrievedChunk) BestScore() (score float64, reranked bool) {
	if r.RerankScore != nil {
		return *r.RerankScore, true
	}
	return r.Similarity, false
}
