// Package storage provides dual-mode persistence for face records and
// recognition logs: a persistent SQLite-backed store when reachable, and a
// process-lifetime in-memory fallback otherwise.
package storage

import (
	"context"
	"time"

	"facematch/internal/core/models"
)

// LogFilter narrows a recognition log listing. Zero values mean "no filter".
type LogFilter struct {
	Since  *time.Time // inclusive lower bound on Timestamp
	Method string     // exact match on the pipeline method
	Limit  int        // maximum entries returned, 0 = unlimited
}

// Store is the backend contract shared by the persistent and fallback
// implementations. ListFaces returns a consistent snapshot in insertion
// order; ListLogs returns entries newest-first and re-queries on every call.
type Store interface {
	Name() string
	Ping(ctx context.Context) error

	AddFace(ctx context.Context, rec *models.FaceRecord) error
	GetFace(ctx context.Context, id string) (*models.FaceRecord, error)
	DeleteFace(ctx context.Context, id string) (bool, error)
	ListFaces(ctx context.Context) ([]models.FaceRecord, error)

	AppendLog(ctx context.Context, entry *models.RecognitionLogEntry) error
	ListLogs(ctx context.Context, filter LogFilter) ([]models.RecognitionLogEntry, error)

	Close() error
}
