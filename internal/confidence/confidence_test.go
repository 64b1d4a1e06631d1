package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"policy-rag/internal/models"
)

func f(v float64) *float64 { return &v }

func TestCalculate(t *testing.T) {
	cal := DefaultCalibration()

	tests := []struct {
		name        string
		vectorScore *float64
		rerankScore *float64
		queryIntent models.QueryIntent
		want        models.ConfidenceLevel
	}{
		{
			name:        "rerank score above high threshold wins despite low vector score",
			vectorScore: f(0.40),
			rerankScore: f(0.35),
			queryIntent: models.IntentLookup,
			want:        models.ConfidenceHigh,
		},
		{
			name:        "greeting is conversational regardless of scores",
			vectorScore: f(0.20),
			rerankScore: f(0.10),
			queryIntent: models.IntentConversational,
			want:        models.ConfidenceConversational,
		},
		{
			name:        "vector-only below floor is not found",
			vectorScore: f(0.30),
			rerankScore: nil,
			queryIntent: models.IntentLookup,
			want:        models.ConfidenceNotFound,
		},
		{
			name:        "vector-only above high threshold",
			vectorScore: f(0.80),
			queryIntent: models.IntentLookup,
			want:        models.ConfidenceHigh,
		},
		{
			name:        "vector-only mid band needs review",
			vectorScore: f(0.60),
			queryIntent: models.IntentAnalysis,
			want:        models.ConfidenceNeedsReview,
		},
		{
			name:        "rerank mid band needs review",
			vectorScore: f(0.90),
			rerankScore: f(0.15),
			queryIntent: models.IntentLookup,
			want:        models.ConfidenceNeedsReview,
		},
		{
			name:        "rerank below floor is not found even with strong vector score",
			vectorScore: f(0.90),
			rerankScore: f(0.05),
			queryIntent: models.IntentLookup,
			want:        models.ConfidenceNotFound,
		},
		{
			name:        "no retrieval at all is not found",
			queryIntent: models.IntentLookup,
			want:        models.ConfidenceNotFound,
		},
		{
			name:        "boundary: rerank exactly at high threshold",
			rerankScore: f(0.30),
			queryIntent: models.IntentLookup,
			want:        models.ConfidenceHigh,
		},
		{
			name:        "boundary: vector exactly at floor",
			vectorScore: f(0.50),
			queryIntent: models.IntentLookup,
			want:        models.ConfidenceNeedsReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.vectorScore, tt.rerankScore, tt.queryIntent, cal)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromChunks(t *testing.T) {
	cal := DefaultCalibration()

	t.Run("empty retrieval resolves to not found", func(t *testing.T) {
		got := FromChunks(nil, models.IntentLookup, cal)
		assert.Equal(t, models.ConfidenceNotFound, got)
	})

	t.Run("uses best score of each type across chunks", func(t *testing.T) {
		chunks := []models.RetrievedChunk{
			{Similarity: 0.45, RerankScore: f(0.05)},
			{Similarity: 0.40, RerankScore: f(0.35)},
		}
		got := FromChunks(chunks, models.IntentLookup, cal)
		assert.Equal(t, models.ConfidenceHigh, got)
	})

	t.Run("vector-only chunks fall back to vector thresholds", func(t *testing.T) {
		chunks := []models.RetrievedChunk{
			{Similarity: 0.62},
			{Similarity: 0.58},
		}
		got := FromChunks(chunks, models.IntentLookup, cal)
		assert.Equal(t, models.ConfidenceNeedsReview, got)
	})
}
