// Package confidence maps retrieval scores and query intent to the
// discrete trust level shown next to an answer. It is pure logic with no
// I/O: the caller gathers the scores, this package only decides.
package confidence

import "policy-rag/internal/models"

// Calibration holds the thresholds for both score types. Vector cosine
// similarity and reranker relevance live on different scales, so each
// gets its own independently tunable pair. The vector defaults use the
// 0.75/0.50 calibration.
type Calibration struct {
	VectorHigh float64
	VectorLow  float64
	RerankHigh float64
	RerankLow  float64
}

func DefaultCalibration() Calibration {
	return Calibration{
		VectorHigh: 0.75,
		VectorLow:  0.50,
		RerankHigh: 0.30,
		RerankLow:  0.10,
	}
}

// Calculate resolves the confidence level for one answered query.
// vectorScore is the best cosine similarity among retrieved chunks, nil
// when nothing was retrieved. rerankScore is the best reranker relevance,
// nil when reranking was skipped or failed. When a rerank score is
// present it wins; it is the sharper signal, but the vector score is
// never overwritten by it; both arrive here as separate values.
func Calculate(vectorScore, rerankScore *float64, queryIntent models.QueryIntent, cal Calibration) models.ConfidenceLevel {
	if queryIntent == models.IntentConversational {
		return models.ConfidenceConversational
	}

	if rerankScore != nil {
		switch {
		case *rerankScore >= cal.RerankHigh:
			return models.ConfidenceHigh
		case *rerankScore >= cal.RerankLow:
			return models.ConfidenceNeedsReview
		default:
			return models.ConfidenceNotFound
		}
	}

	if vectorScore == nil {
		return models.ConfidenceNotFound
	}
	switch {
	case *vectorScore >= cal.VectorHigh:
		return models.ConfidenceHigh
	case *vectorScore >= cal.VectorLow:
		return models.ConfidenceNeedsReview
	default:
		return models.ConfidenceNotFound
	}
}

// FromChunks resolves confidence from a retrieved set, using the highest
// of each score type across the chunks.
func FromChunks(chunks []models.RetrievedChunk, queryIntent models.QueryIntent, cal Calibration) models.ConfidenceLevel {
	var vector, rerank *float64
	for i := range chunks {
		c := &chunks[i]
		if vector == nil || c.Similarity > *vector {
			v := c.Similarity
			vector = &v
		}
		if c.RerankScore != nil && (rerank == nil || *c.RerankScore > *rerank) {
			r := *c.RerankScore
			rerank = &r
		}
	}
	return Calculate(vector, rerank, queryIntent, cal)
}
