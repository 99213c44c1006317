// Package matcher implements cosine-similarity matching of a query embedding
// against a gallery snapshot.
package matcher

import (
	"fmt"

	"facematch/internal/core/models"

	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity returns sim(a, b) = (a·b) / (||a|| * ||b||).
// A zero-magnitude vector is non-matchable: its similarity to anything is 0.
func CosineSimilarity(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}

// Match scores the query embedding against every record in the snapshot and
// decides accept/reject against the threshold. The snapshot is a consistent
// point-in-time view; Match never mutates it.
//
// Ties on the maximum similarity are broken by earliest CreatedAt, then by
// lexicographically smallest record id, so results are reproducible.
func Match(query []float64, snapshot []models.FaceRecord, threshold float64) (models.MatchResult, error) {
	if threshold < -1 || threshold > 1 {
		return models.MatchResult{}, models.NewValidationError("threshold", "must be in [-1, 1], got %v", threshold)
	}

	if len(snapshot) == 0 {
		return models.MatchResult{Matched: false}, nil
	}

	var best *models.FaceRecord
	var bestSim float64

	for i := range snapshot {
		rec := &snapshot[i]
		vec, err := rec.EmbeddingVector()
		if err != nil {
			return models.MatchResult{}, fmt.Errorf("matching against face %s: %w", rec.ID, err)
		}
		if len(vec) != len(query) {
			return models.MatchResult{}, models.NewValidationError("embedding",
				"dimension mismatch: query has %d, face %s has %d", len(query), rec.ID, len(vec))
		}

		sim := CosineSimilarity(query, vec)
		if best == nil || sim > bestSim || (sim == bestSim && earlier(rec, best)) {
			best = rec
			bestSim = sim
		}
	}

	result := models.MatchResult{Confidence: bestSim}
	if bestSim >= threshold {
		result.Matched = true
		result.Name = best.Name
	}
	return result, nil
}

func earlier(a, b *models.FaceRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
