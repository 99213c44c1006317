package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"facematch/internal/config"
	"facematch/internal/core/models"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var logFields = log.Fields{
	"component": "storage",
}

// Opener creates the persistent store. It is retried while degraded, so a
// store that could not be opened at startup can still come up later.
type Opener func() (Store, error)

// Manager routes every gallery and log operation to the current backend:
// the persistent store while Connected, the in-memory fallback while
// Degraded. Transitions never tear an in-flight operation; an operation
// resolves its backend once, at start.
//
// Data written while Degraded is not migrated on reconnection. It stays in
// the fallback store for the process lifetime unless Reconcile is called
// explicitly.
type Manager struct {
	cfg       config.StorageConfig
	dimension int
	opener    Opener
	fallback  *MemoryStore
	scheduler *gocron.Scheduler

	mu         sync.RWMutex
	mode       string
	persistent Store
}

// NewManager probes the persistent store and picks the initial mode. An
// unreachable persistent store is a deliberate fallback, not an error: the
// manager starts Degraded and keeps trying in the background once Start is
// called.
func NewManager(cfg config.StorageConfig, dimension int, opener Opener, fallback *MemoryStore) *Manager {
	m := &Manager{
		cfg:       cfg,
		dimension: dimension,
		opener:    opener,
		fallback:  fallback,
		mode:      models.StorageDegraded,
	}

	if opener != nil {
		store, err := opener()
		if err != nil {
			log.WithFields(logFields).WithError(err).Warn("Persistent store unavailable at startup, running in degraded mode")
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout())
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				log.WithFields(logFields).WithError(err).Warn("Persistent store not reachable at startup, running in degraded mode")
				m.persistent = store
			} else {
				m.persistent = store
				m.mode = models.StorageConnected
				log.WithFields(logFields).Infof("Persistent store connected (%s)", store.Name())
			}
		}
	}

	return m
}

// Start schedules the periodic health check and reconnection attempts.
func (m *Manager) Start() {
	m.scheduler = gocron.NewScheduler(time.UTC)
	if m.cfg.HealthIntervalSeconds > 0 {
		_, _ = m.scheduler.Every(m.cfg.HealthIntervalSeconds).Seconds().Do(m.healthCheck)
	}
	if m.cfg.ReconnectIntervalSeconds > 0 {
		_, _ = m.scheduler.Every(m.cfg.ReconnectIntervalSeconds).Seconds().Do(m.reconnect)
	}
	m.scheduler.StartAsync()
}

// Stop halts background jobs and closes the persistent store.
func (m *Manager) Stop() {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.persistent != nil {
		if err := m.persistent.Close(); err != nil {
			log.WithFields(logFields).WithError(err).Warn("Failed to close persistent store")
		}
	}
}

// Mode reports the current storage mode: connected or degraded.
func (m *Manager) Mode() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// AddFace validates the input, assigns a fresh id and timestamp, and
// persists the record to the current backend. Validation failures reject the
// request before any mutation.
func (m *Manager) AddFace(ctx context.Context, name string, embedding []float64) (*models.FaceRecord, error) {
	if strings.TrimSpace(name) == "" {
		return nil, models.NewValidationError("name", "must not be empty")
	}
	if m.dimension > 0 && len(embedding) != m.dimension {
		return nil, models.NewValidationError("embedding", "expected %d dimensions, got %d", m.dimension, len(embedding))
	}

	rec := &models.FaceRecord{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := rec.SetEmbedding(embedding); err != nil {
		return nil, err
	}

	err := m.run(ctx, func(opCtx context.Context, s Store) error {
		return s.AddFace(opCtx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetFace looks up a record by id on the current backend.
func (m *Manager) GetFace(ctx context.Context, id string) (*models.FaceRecord, error) {
	var rec *models.FaceRecord
	err := m.run(ctx, func(opCtx context.Context, s Store) error {
		var err error
		rec, err = s.GetFace(opCtx, id)
		return err
	})
	return rec, err
}

// DeleteFace removes a record by id. Deleting an unknown id is a no-op and
// reports false, never an error.
func (m *Manager) DeleteFace(ctx context.Context, id string) (bool, error) {
	var existed bool
	err := m.run(ctx, func(opCtx context.Context, s Store) error {
		var err error
		existed, err = s.DeleteFace(opCtx, id)
		return err
	})
	return existed, err
}

// ListFaces returns a consistent gallery snapshot in insertion order. An
// empty gallery yields an empty snapshot, not an error.
func (m *Manager) ListFaces(ctx context.Context) ([]models.FaceRecord, error) {
	var faces []models.FaceRecord
	err := m.run(ctx, func(opCtx context.Context, s Store) error {
		var err error
		faces, err = s.ListFaces(opCtx)
		return err
	})
	return faces, err
}

// AppendLog records one recognition attempt, assigning id and timestamp when
// unset, and returns the entry id.
func (m *Manager) AppendLog(ctx context.Context, entry *models.RecognitionLogEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	err := m.run(ctx, func(opCtx context.Context, s Store) error {
		return s.AppendLog(opCtx, entry)
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// ListLogs returns matching recognition log entries newest-first.
func (m *Manager) ListLogs(ctx context.Context, filter LogFilter) ([]models.RecognitionLogEntry, error) {
	var entries []models.RecognitionLogEntry
	err := m.run(ctx, func(opCtx context.Context, s Store) error {
		var err error
		entries, err = s.ListLogs(opCtx, filter)
		return err
	})
	return entries, err
}

// Reconcile copies records that exist only in the fallback store into the
// persistent store, skipping ids already present. It is the only path that
// merges degraded-mode data and must be triggered explicitly.
func (m *Manager) Reconcile(ctx context.Context) (facesCopied, logsCopied int, err error) {
	m.mu.RLock()
	persistent := m.persistent
	connected := m.mode == models.StorageConnected
	m.mu.RUnlock()

	if !connected || persistent == nil {
		return 0, 0, models.ErrBackendUnavailable
	}

	faces, err := m.fallback.ListFaces(ctx)
	if err != nil {
		return 0, 0, err
	}
	for i := range faces {
		if _, err := persistent.GetFace(ctx, faces[i].ID); err == nil {
			continue
		} else if !errors.Is(err, models.ErrNotFound) {
			return facesCopied, logsCopied, err
		}
		if err := persistent.AddFace(ctx, &faces[i]); err != nil {
			return facesCopied, logsCopied, err
		}
		facesCopied++
	}

	existing, err := persistent.ListLogs(ctx, LogFilter{})
	if err != nil {
		return facesCopied, logsCopied, err
	}
	seen := make(map[string]struct{}, len(existing))
	for i := range existing {
		seen[existing[i].ID] = struct{}{}
	}

	entries, err := m.fallback.ListLogs(ctx, LogFilter{})
	if err != nil {
		return facesCopied, logsCopied, err
	}
	for i := range entries {
		if _, ok := seen[entries[i].ID]; ok {
			continue
		}
		if err := persistent.AppendLog(ctx, &entries[i]); err != nil {
			return facesCopied, logsCopied, err
		}
		logsCopied++
	}

	log.WithFields(logFields).Infof("Reconciliation copied %d faces and %d log entries to %s", facesCopied, logsCopied, persistent.Name())
	return facesCopied, logsCopied, nil
}

// current resolves the backend for one operation. The mode is read once so
// a transition taking effect mid-operation cannot tear it.
func (m *Manager) current() (Store, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.mode == models.StorageConnected && m.persistent != nil {
		return m.persistent, models.StorageConnected
	}
	return m.fallback, models.StorageDegraded
}

// run executes op against the current backend with a bounded timeout. When
// the persistent store fails mid-operation the manager degrades and retries
// the operation once on the fallback, so backend unavailability is never
// surfaced to callers.
func (m *Manager) run(ctx context.Context, op func(context.Context, Store) error) error {
	store, mode := m.current()

	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout())
	err := op(opCtx, store)
	cancel()

	if err == nil || mode == models.StorageDegraded {
		return err
	}
	if isDomainError(err) {
		return err
	}
	if ctx.Err() != nil {
		// The caller went away; not the backend's fault.
		return err
	}

	m.demote(err)

	opCtx, cancel = context.WithTimeout(ctx, m.opTimeout())
	defer cancel()
	return op(opCtx, m.fallback)
}

// isDomainError reports whether err is part of the caller-visible contract
// rather than a sign of backend trouble.
func isDomainError(err error) bool {
	var vErr *models.ValidationError
	return errors.Is(err, models.ErrNotFound) || errors.As(err, &vErr)
}

func (m *Manager) opTimeout() time.Duration {
	if m.cfg.OpTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(m.cfg.OpTimeoutSeconds) * time.Second
}

func (m *Manager) demote(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == models.StorageDegraded {
		return
	}
	m.mode = models.StorageDegraded
	log.WithFields(logFields).WithError(cause).Warn("Persistent store unavailable, switching to in-memory fallback")
}

func (m *Manager) promote() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == models.StorageConnected {
		return
	}
	m.mode = models.StorageConnected
	log.WithFields(logFields).Info("Persistent store reachable again; degraded-mode data stays in the fallback store until reconciled")
}

// healthCheck verifies the persistent store while connected.
func (m *Manager) healthCheck() {
	m.mu.RLock()
	persistent := m.persistent
	connected := m.mode == models.StorageConnected
	m.mu.RUnlock()

	if !connected || persistent == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout())
	defer cancel()
	if err := persistent.Ping(ctx); err != nil {
		m.demote(err)
	}
}

// reconnect attempts to reach the persistent store while degraded.
func (m *Manager) reconnect() {
	m.mu.RLock()
	persistent := m.persistent
	degraded := m.mode == models.StorageDegraded
	m.mu.RUnlock()

	if !degraded {
		return
	}

	if persistent == nil {
		if m.opener == nil {
			return
		}
		store, err := m.opener()
		if err != nil {
			log.WithFields(logFields).WithError(err).Debug("Reconnection attempt failed")
			return
		}
		m.mu.Lock()
		m.persistent = store
		m.mu.Unlock()
		persistent = store
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout())
	defer cancel()
	if err := persistent.Ping(ctx); err != nil {
		log.WithFields(logFields).WithError(err).Debug("Reconnection attempt failed")
		return
	}
	m.promote()
}
