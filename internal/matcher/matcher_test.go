package matcher

import (
	"testing"
	"time"

	"facematch/internal/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, id, name string, createdAt time.Time, embedding []float64) models.FaceRecord {
	t.Helper()
	rec := models.FaceRecord{ID: id, Name: name, CreatedAt: createdAt}
	require.NoError(t, rec.SetEmbedding(embedding))
	return rec
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"identical", []float64{0.3, 0.5, 0.1}, []float64{0.3, 0.5, 0.1}, 1},
		{"negated", []float64{0.3, 0.5, 0.1}, []float64{-0.3, -0.5, -0.1}, -1},
		{"orthogonal", []float64{1, 0, 0}, []float64{0, 1, 0}, 0},
		{"scaled copy", []float64{1, 2, 3}, []float64{2, 4, 6}, 1},
		{"zero query", []float64{0, 0, 0}, []float64{1, 2, 3}, 0},
		{"zero record", []float64{1, 2, 3}, []float64{0, 0, 0}, 0},
		{"both zero", []float64{0, 0, 0}, []float64{0, 0, 0}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, CosineSimilarity(tc.a, tc.b), 1e-9)
		})
	}
}

func TestMatchEmptySnapshot(t *testing.T) {
	result, err := Match([]float64{1, 0}, nil, 0.8)
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Empty(t, result.Name)
}

func TestMatchDecision(t *testing.T) {
	now := time.Now()
	alice := record(t, "a", "Alice", now, []float64{1, 0, 0, 0})
	bob := record(t, "b", "Bob", now, []float64{0, 1, 0, 0})
	snapshot := []models.FaceRecord{alice, bob}

	t.Run("exact match", func(t *testing.T) {
		result, err := Match([]float64{1, 0, 0, 0}, snapshot, 0.8)
		require.NoError(t, err)
		assert.True(t, result.Matched)
		assert.Equal(t, "Alice", result.Name)
		assert.InDelta(t, 1.0, result.Confidence, 1e-9)
	})

	t.Run("orthogonal query is unmatched but scored", func(t *testing.T) {
		result, err := Match([]float64{0, 0, 1, 0}, snapshot, 0.8)
		require.NoError(t, err)
		assert.False(t, result.Matched)
		assert.InDelta(t, 0.0, result.Confidence, 1e-9)
	})

	t.Run("below threshold keeps best-effort score", func(t *testing.T) {
		result, err := Match([]float64{1, 1, 0, 0}, snapshot, 0.9)
		require.NoError(t, err)
		assert.False(t, result.Matched)
		assert.InDelta(t, 0.7071, result.Confidence, 1e-3)
	})
}

func TestMatchThresholdMonotonicity(t *testing.T) {
	// Every query matched at a higher threshold must also match at a lower
	// one against the same snapshot.
	now := time.Now()
	snapshot := []models.FaceRecord{
		record(t, "a", "Alice", now, []float64{1, 0, 0}),
		record(t, "b", "Bob", now, []float64{0, 1, 0}),
	}
	queries := [][]float64{
		{1, 0, 0},
		{1, 1, 0},
		{0, 0, 1},
		{-1, 0, 0},
	}

	for _, q := range queries {
		loose, err := Match(q, snapshot, 0.3)
		require.NoError(t, err)
		strict, err := Match(q, snapshot, 0.9)
		require.NoError(t, err)
		if strict.Matched {
			assert.True(t, loose.Matched, "query matched at 0.9 but not at 0.3")
		}
	}
}

func TestMatchTieBreaking(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	vec := []float64{1, 0}

	t.Run("earliest created_at wins", func(t *testing.T) {
		snapshot := []models.FaceRecord{
			record(t, "z", "Late", late, vec),
			record(t, "a", "Early", early, vec),
		}
		result, err := Match(vec, snapshot, 0.5)
		require.NoError(t, err)
		assert.Equal(t, "Early", result.Name)
	})

	t.Run("smallest id breaks remaining tie", func(t *testing.T) {
		snapshot := []models.FaceRecord{
			record(t, "bbb", "Second", early, vec),
			record(t, "aaa", "First", early, vec),
		}
		result, err := Match(vec, snapshot, 0.5)
		require.NoError(t, err)
		assert.Equal(t, "First", result.Name)
	})
}

func TestMatchValidation(t *testing.T) {
	now := time.Now()
	snapshot := []models.FaceRecord{record(t, "a", "Alice", now, []float64{1, 0})}

	t.Run("threshold out of range", func(t *testing.T) {
		for _, th := range []float64{-1.5, 1.5, 2} {
			_, err := Match([]float64{1, 0}, snapshot, th)
			var vErr *models.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "threshold", vErr.Field)
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := Match([]float64{1, 0, 0}, snapshot, 0.5)
		var vErr *models.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "embedding", vErr.Field)
	})
}
