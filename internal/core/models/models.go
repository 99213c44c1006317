package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Recognition outcomes recorded in the log.
const (
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
	OutcomeError     = "error"
)

// Pipeline methods. Every recognition response and log entry carries one of
// these so callers can always tell a real decision from a degraded one.
const (
	MethodReal     = "real"
	MethodFallback = "fallback"
)

// Storage modes reported by health checks.
const (
	StorageConnected = "connected"
	StorageDegraded  = "degraded"
)

// FaceRecord is one enrolled face. Records are created on enrollment and
// removed on explicit delete; they are never mutated in place.
type FaceRecord struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"index;not null" json:"name"`
	Embedding datatypes.JSON `gorm:"type:json" json:"embedding"`
	CreatedAt time.Time      `json:"created_at"`
}

// SetEmbedding stores the vector as a JSON column value.
func (f *FaceRecord) SetEmbedding(vec []float64) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encoding embedding: %w", err)
	}
	f.Embedding = datatypes.JSON(data)
	return nil
}

// EmbeddingVector decodes the stored embedding back into a float vector.
func (f *FaceRecord) EmbeddingVector() ([]float64, error) {
	var vec []float64
	if err := json.Unmarshal(f.Embedding, &vec); err != nil {
		return nil, fmt.Errorf("decoding embedding of face %s: %w", f.ID, err)
	}
	return vec, nil
}

// RecognitionLogEntry is one append-only record of a recognition attempt.
// Entries are never mutated or deleted by normal operation.
type RecognitionLogEntry struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
	Outcome     string    `gorm:"not null" json:"outcome"`
	MatchedName *string   `json:"matched_name,omitempty"`
	Confidence  *float64  `json:"confidence,omitempty"`
	Method      string    `gorm:"index;not null" json:"method"`
}

// User is an administrative identity. Username carries the only uniqueness
// constraint in the schema; face names may repeat freely.
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Detection is one face reported by the external detection/embedding service.
type Detection struct {
	BoundingBox [4]int    `json:"bounding_box"`
	Embedding   []float64 `json:"embedding"`
}

// MatchResult is the decision for a single query embedding against one
// gallery snapshot.
type MatchResult struct {
	Matched    bool    `json:"matched"`
	Name       string  `json:"name,omitempty"`
	Confidence float64 `json:"confidence"`
}

// FaceMatch is the per-face result within a recognition response.
type FaceMatch struct {
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	Matched     bool    `json:"matched"`
	BoundingBox [4]int  `json:"bounding_box"`
}

// RecognitionResponse is the image-level result of one Recognize call.
type RecognitionResponse struct {
	FacesDetected   int         `json:"faces_detected"`
	RecognizedFaces []FaceMatch `json:"recognized_faces"`
	Method          string      `json:"method"`
}

// HealthStatus describes the current operating mode of the engine.
type HealthStatus struct {
	Storage  string `json:"storage"`  // connected | degraded
	Pipeline string `json:"pipeline"` // real | fallback
}
