package storage

import (
	"context"
	"sync"

	"facematch/internal/core/models"
)

// MemoryStore is the in-process fallback store. Data lives only for the
// process lifetime. It is always reachable and safe for concurrent use:
// mutations are mutually exclusive, and reads observe either fully-pre- or
// fully-post-mutation state.
type MemoryStore struct {
	mu    sync.RWMutex
	faces []models.FaceRecord // insertion order
	logs  []models.RecognitionLogEntry
}

// NewMemoryStore creates an empty fallback store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Name identifies the backend in logs and health output.
func (s *MemoryStore) Name() string { return "memory" }

// Ping always succeeds; the fallback store has no external dependency.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// AddFace appends a record to the gallery.
func (s *MemoryStore) AddFace(ctx context.Context, rec *models.FaceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faces = append(s.faces, *rec)
	return nil
}

// GetFace looks up a record by id.
func (s *MemoryStore) GetFace(ctx context.Context, id string) (*models.FaceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.faces {
		if s.faces[i].ID == id {
			rec := s.faces[i]
			return &rec, nil
		}
	}
	return nil, models.ErrNotFound
}

// DeleteFace removes a record by id and reports whether it existed.
func (s *MemoryStore) DeleteFace(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.faces {
		if s.faces[i].ID == id {
			s.faces = append(s.faces[:i], s.faces[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ListFaces returns a snapshot copy of the gallery in insertion order.
func (s *MemoryStore) ListFaces(ctx context.Context) ([]models.FaceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]models.FaceRecord, len(s.faces))
	copy(snapshot, s.faces)
	return snapshot, nil
}

// AppendLog records one recognition attempt.
func (s *MemoryStore) AppendLog(ctx context.Context, entry *models.RecognitionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *entry)
	return nil
}

// ListLogs returns matching entries newest-first. Every call is a fresh
// consistent read, not a shared cursor.
func (s *MemoryStore) ListLogs(ctx context.Context, filter LogFilter) ([]models.RecognitionLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.RecognitionLogEntry
	for i := len(s.logs) - 1; i >= 0; i-- {
		entry := s.logs[i]
		if filter.Since != nil && entry.Timestamp.Before(*filter.Since) {
			continue
		}
		if filter.Method != "" && entry.Method != filter.Method {
			continue
		}
		out = append(out, entry)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
