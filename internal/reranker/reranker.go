// Package reranker scores retrieved chunks against the query with an
// external cross-encoder API. The relevance score lives on its own scale
// and lands in its own field on RetrievedChunk; the vector similarity a
// chunk arrived with is never touched here. A failed rerank is recovered
// by the caller with vector-only ranking, it never fails the query.
package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"policy-rag/internal/config"
	"policy-rag/internal/models"
)

type Reranker struct {
	cfg    *config.RerankerConfig
	client *http.Client
}

func New(cfg *config.RerankerConfig) *Reranker {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Reranker{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank fills in the rerank score for each chunk and re-orders the set
// by it, highest first, position as tie break. The input order and the
// similarity values pass through unchanged on each chunk.
func (r *Reranker) Rerank(ctx context.Context, query string, chunks []models.RetrievedChunk) ([]models.RetrievedChunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	documents := make([]string, len(chunks))
	for i := range chunks {
		documents[i] = chunks[i].Chunk.Content
	}

	payload := rerankRequest{
		Model:     r.cfg.Model,
		Query:     query,
		Documents: documents,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/v1/rerank", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.cfg.Key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank request failed: %d, %s", resp.StatusCode, string(body))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	reranked := make([]models.RetrievedChunk, len(chunks))
	copy(reranked, chunks)
	for _, res := range parsed.Results {
		if res.Index < 0 || res.Index >= len(reranked) {
			return nil, fmt.Errorf("rerank result index %d out of range", res.Index)
		}
		score := res.RelevanceScore
		reranked[res.Index].RerankScore = &score
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		si, sj := reranked[i].RerankScore, reranked[j].RerankScore
		switch {
		case si == nil && sj == nil:
			return reranked[i].Chunk.Position < reranked[j].Chunk.Position
		case si == nil:
			return false
		case sj == nil:
			return true
		case *si != *sj:
			return *si > *sj
		default:
			return reranked[i].Chunk.Position < reranked[j].Chunk.Position
		}
	})
	return reranked, nil
}
